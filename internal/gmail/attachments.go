package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/invoicefetch/internal/instrumentation"
)

const (
	// MaxAttachmentSize defines the maximum attachment size in bytes (25MB)
	MaxAttachmentSize = 25 * 1024 * 1024
)

// GetAttachment retrieves the body of an attachment that is not sent inline.
// The data is returned as sent by Gmail, base64url-encoded; see DecodeData.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) (string, error) {
	if messageID == "" {
		return "", fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return "", fmt.Errorf("attachmentID is required")
	}

	var attachment *gmail.MessagePartBody
	err := c.instrument(ctx, instrumentation.OperationGetAttachment, func(ctx context.Context) error {
		var err error
		attachment, err = c.svc.Messages.Attachments.Get(userID, messageID, attachmentID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	// Check size limit
	if attachment.Size > MaxAttachmentSize {
		return "", fmt.Errorf("attachment size %d exceeds maximum size %d", attachment.Size, MaxAttachmentSize)
	}

	return attachment.Data, nil
}

// DecodeData decodes Gmail body data.
// Gmail uses RFC 4648 base64url encoding; unpadded and standard alphabets are accepted as well.
func DecodeData(data string) ([]byte, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err == nil {
		return decoded, nil
	}
	if decoded, rawErr := base64.RawURLEncoding.DecodeString(data); rawErr == nil {
		return decoded, nil
	}
	// Try with standard base64 if URLEncoding fails
	if decoded, stdErr := base64.StdEncoding.DecodeString(data); stdErr == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("failed to decode attachment data: %w", err)
}

// WalkParts calls fn for part and every nested part, depth-first in document order
func WalkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		WalkParts(subpart, fn)
	}
}

// SanitizeFilename turns an attachment filename into a single path element.
// Path separators become underscores and NUL bytes are dropped; dots inside a
// name are kept, so "invoice..pdf" stays as is.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "\x00", "")
	switch filename {
	case "", ".", "..":
		return "attachment"
	}
	return filename
}
