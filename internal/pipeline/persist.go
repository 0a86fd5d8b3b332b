package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gmailclient "github.com/teemow/invoicefetch/internal/gmail"
)

// ErrPersist marks a matched attachment that could not be written.
var ErrPersist = errors.New("attachment could not be saved")

// Persister writes attachments into a download folder.
type Persister struct {
	Folder string
}

// EnsureFolder creates the download folder if it does not exist.
func (p Persister) EnsureFolder() error {
	if err := os.MkdirAll(p.Folder, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create download folder %s: %w", ErrPersist, p.Folder, err)
	}
	return nil
}

// Save writes data to the folder under the sanitized filename, replacing any
// existing file of that name. The content is staged in a temporary file inside
// the folder and renamed into place, so a failed write leaves no partial file.
// It returns the name the file was saved under.
func (p Persister) Save(filename string, data []byte) (string, error) {
	name := gmailclient.SanitizeFilename(filename)

	if err := p.EnsureFolder(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(p.Folder, ".invoicefetch-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPersist, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("%w: failed to write %s: %w", ErrPersist, name, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("%w: failed to set permissions on %s: %w", ErrPersist, name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: failed to write %s: %w", ErrPersist, name, err)
	}

	if err := os.Rename(tmpPath, filepath.Join(p.Folder, name)); err != nil {
		return "", fmt.Errorf("%w: failed to save %s: %w", ErrPersist, name, err)
	}
	committed = true

	return name, nil
}
