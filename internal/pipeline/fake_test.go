package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/invoicefetch/internal/pdftext"
)

var errNotFound = errors.New("googleapi: Error 404: Requested entity was not found., notFound")

// fakeSession is an in-memory mailbox.
type fakeSession struct {
	ids         []string
	listErr     error
	messages    map[string]*gmail.Message
	attachments map[string]string // "<messageID>/<attachmentID>" -> encoded data

	queries          []string
	attachmentsFetch []string
}

func (s *fakeSession) ListMessages(_ context.Context, query string) ([]string, error) {
	s.queries = append(s.queries, query)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.ids, nil
}

func (s *fakeSession) GetMessage(_ context.Context, messageID string) (*gmail.Message, error) {
	msg, ok := s.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, errNotFound)
	}
	return msg, nil
}

func (s *fakeSession) GetAttachment(_ context.Context, messageID, attachmentID string) (string, error) {
	key := messageID + "/" + attachmentID
	s.attachmentsFetch = append(s.attachmentsFetch, key)
	data, ok := s.attachments[key]
	if !ok {
		return "", fmt.Errorf("failed to get attachment %s: %w", attachmentID, errNotFound)
	}
	return data, nil
}

// stubExtractor returns the decoded payload itself as text, so tests can use plain strings as "PDFs".
type stubExtractor struct {
	fail  map[string]error // decoded payload -> error
	calls int
}

func (x *stubExtractor) Extract(_ context.Context, encoded string) pdftext.Extraction {
	x.calls++
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return pdftext.Extraction{Err: fmt.Errorf("%w: %v", pdftext.ErrDecode, err)}
	}
	if err := x.fail[string(data)]; err != nil {
		return pdftext.Extraction{Err: err}
	}
	return pdftext.Extraction{Text: string(data)}
}

func enc(data []byte) string {
	return base64.URLEncoding.EncodeToString(data)
}

func message(id string, parts ...*gmail.MessagePart) *gmail.Message {
	return &gmail.Message{
		Id: id,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Parts:    parts,
		},
	}
}

func inlinePart(filename string, data []byte) *gmail.MessagePart {
	return &gmail.MessagePart{
		Filename: filename,
		MimeType: "application/pdf",
		Body:     &gmail.MessagePartBody{Data: enc(data), Size: int64(len(data))},
	}
}

func attachmentPart(filename, attachmentID string) *gmail.MessagePart {
	return &gmail.MessagePart{
		Filename: filename,
		MimeType: "application/pdf",
		Body:     &gmail.MessagePartBody{AttachmentId: attachmentID},
	}
}
