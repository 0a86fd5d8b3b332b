package gmail

import (
	"context"
	"fmt"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/invoicefetch/internal/google"
	"github.com/teemow/invoicefetch/internal/instrumentation"
)

// userID addresses the authenticated user's mailbox
const userID = "me"

// Client wraps the Gmail Users service
type Client struct {
	svc     *gmail.UsersService
	metrics *instrumentation.Metrics
}

// NewClient creates a new Gmail client authenticated with tokens from provider.
// Extra client options are applied after the authenticated HTTP client.
func NewClient(ctx context.Context, provider google.TokenProvider, opts ...option.ClientOption) (*Client, error) {
	ts, err := provider.TokenSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found: %w", err)
	}

	all := append([]option.ClientOption{option.WithHTTPClient(google.NewHTTPClient(ts))}, opts...)
	return NewClientWithOptions(ctx, all...)
}

// NewClientWithOptions creates a Gmail client from raw client options.
// The caller is responsible for authentication.
func NewClientWithOptions(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{svc: svc.Users}, nil
}

// SetMetrics sets the recorder for API operation metrics. A nil recorder disables recording.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

// ListMessages returns the ids of all messages matching the query, in the order
// Gmail returns them. Every result page is fetched.
func (c *Client) ListMessages(ctx context.Context, q string) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		var res *gmail.ListMessagesResponse
		err := c.instrument(ctx, instrumentation.OperationList, func(ctx context.Context) error {
			req := c.svc.Messages.List(userID).Q(q).Context(ctx)
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			var err error
			res, err = req.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}

		if res.NextPageToken == "" {
			return ids, nil
		}
		pageToken = res.NextPageToken
	}
}

// GetMessage retrieves a full Gmail message
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	var msg *gmail.Message
	err := c.instrument(ctx, instrumentation.OperationGet, func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Messages.Get(userID, messageID).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// instrument runs one Gmail API call inside a span and records its outcome.
func (c *Client) instrument(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, operation)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, status, time.Since(start))

	return err
}
