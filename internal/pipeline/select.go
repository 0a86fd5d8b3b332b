package pipeline

import (
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	gmailclient "github.com/teemow/invoicefetch/internal/gmail"
)

// PartFilter decides whether a named message part is an attachment candidate.
type PartFilter func(part *gmail.MessagePart) bool

// ExtensionFilter accepts parts whose filename ends in ext, ignoring case.
// An empty ext accepts every named part.
func ExtensionFilter(ext string) PartFilter {
	ext = strings.ToLower(ext)
	return func(part *gmail.MessagePart) bool {
		return ext == "" || strings.HasSuffix(strings.ToLower(part.Filename), ext)
	}
}

// SelectParts returns the attachment candidates of a message payload in document
// order. Nested multipart containers are walked depth-first; parts without a
// filename are skipped, as is the payload root itself. A nil filter accepts
// every named part.
func SelectParts(payload *gmail.MessagePart, filter PartFilter) []*gmail.MessagePart {
	if payload == nil {
		return nil
	}

	var selected []*gmail.MessagePart
	for _, top := range payload.Parts {
		gmailclient.WalkParts(top, func(part *gmail.MessagePart) {
			if part.Filename == "" {
				return
			}
			if filter != nil && !filter(part) {
				return
			}
			selected = append(selected, part)
		})
	}
	return selected
}
