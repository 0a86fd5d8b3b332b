package pipeline

import (
	"context"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/invoicefetch/internal/pdftext"
)

// Session is the mailbox the pipeline reads from. *gmail.Client implements it.
type Session interface {
	ListMessages(ctx context.Context, query string) ([]string, error)
	GetMessage(ctx context.Context, messageID string) (*gmail.Message, error)
	GetAttachment(ctx context.Context, messageID, attachmentID string) (string, error)
}

// TextExtractor turns an encoded attachment body into searchable text.
// *pdftext.Extractor implements it.
type TextExtractor interface {
	Extract(ctx context.Context, encoded string) pdftext.Extraction
}
