package pipeline

import (
	"context"
	"errors"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
)

// ErrRetrieval marks a part whose body could not be obtained.
var ErrRetrieval = errors.New("attachment retrieval failed")

// Retrieve returns the encoded body of a part. Inline data is returned as is;
// otherwise the attachment is fetched from the session.
func Retrieve(ctx context.Context, session Session, messageID string, part *gmail.MessagePart) (string, error) {
	if part.Body == nil {
		return "", fmt.Errorf("%w: part has no body", ErrRetrieval)
	}

	if part.Body.Data != "" {
		return part.Body.Data, nil
	}

	if part.Body.AttachmentId == "" {
		return "", fmt.Errorf("%w: part has neither inline data nor an attachment id", ErrRetrieval)
	}

	data, err := session.GetAttachment(ctx, messageID, part.Body.AttachmentId)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRetrieval, err)
	}
	return data, nil
}
