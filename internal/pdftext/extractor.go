package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/teemow/invoicefetch/internal/gmail"
	"github.com/teemow/invoicefetch/internal/instrumentation"
)

var (
	// ErrExtraction marks a payload that decoded fine but could not be read as a PDF.
	ErrExtraction = errors.New("pdf text extraction failed")

	// ErrDecode marks a payload that is not valid Gmail base64 data.
	ErrDecode = errors.New("attachment data could not be decoded")
)

// Extraction is the result of extracting text from one attachment.
type Extraction struct {
	// Text is the lower-cased text of all pages, empty when Err is set.
	Text string
	Err  error
}

// Failed reports whether the extraction produced no usable text.
func (e Extraction) Failed() bool {
	return e.Err != nil
}

// Extractor turns encoded PDF attachments into searchable text.
type Extractor struct {
	// TempDir is where decoded payloads are staged. Empty means os.TempDir().
	TempDir string

	// InMemory parses from memory instead of staging a temporary file.
	InMemory bool

	// Metrics records extraction durations. May be nil.
	Metrics *instrumentation.Metrics
}

// Extract decodes a base64url payload and extracts its text.
func (x *Extractor) Extract(ctx context.Context, encoded string) Extraction {
	data, err := gmail.DecodeData(encoded)
	if err != nil {
		return Extraction{Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}
	return x.ExtractBytes(ctx, data)
}

// ExtractBytes extracts the text of a decoded PDF.
func (x *Extractor) ExtractBytes(ctx context.Context, data []byte) Extraction {
	start := time.Now()

	var (
		text string
		err  error
	)
	if x.InMemory {
		text, err = ReadText(bytes.NewReader(data), int64(len(data)))
	} else {
		text, err = x.readViaTempFile(data)
	}

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	x.Metrics.RecordExtraction(ctx, status, time.Since(start))

	if err != nil {
		return Extraction{Err: err}
	}
	return Extraction{Text: text}
}

func (x *Extractor) readViaTempFile(data []byte) (string, error) {
	tmp, err := os.CreateTemp(x.TempDir, "invoicefetch-*.pdf")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temp file: %v", ErrExtraction, err)
	}
	path := tmp.Name()
	defer func() { _ = os.Remove(path) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("%w: failed to write temp file: %v", ErrExtraction, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: failed to write temp file: %v", ErrExtraction, err)
	}

	return ReadFile(path)
}

// ReadFile extracts the lower-cased text of the PDF at path.
func ReadFile(path string) (text string, err error) {
	defer recoverParser(&text, &err)

	f, r, err := pdf.Open(path)
	if f != nil {
		defer func() { _ = f.Close() }()
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return plainText(r)
}

// ReadText extracts the lower-cased text of a PDF held by r.
func ReadText(r io.ReaderAt, size int64) (text string, err error) {
	defer recoverParser(&text, &err)

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return plainText(reader)
}

// The parser panics on some malformed documents.
func recoverParser(text *string, err *error) {
	if r := recover(); r != nil {
		*text = ""
		*err = fmt.Errorf("%w: parser panic: %v", ErrExtraction, r)
	}
}

func plainText(r *pdf.Reader) (string, error) {
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrExtraction, i, err)
		}
		b.WriteString(text)
	}
	return strings.ToLower(b.String()), nil
}
