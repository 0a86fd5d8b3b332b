package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	gmail "google.golang.org/api/gmail/v1"

	gmailclient "github.com/teemow/invoicefetch/internal/gmail"
	"github.com/teemow/invoicefetch/internal/instrumentation"
	"github.com/teemow/invoicefetch/internal/logging"
	"github.com/teemow/invoicefetch/internal/pdftext"
)

// Options configures a Pipeline.
type Options struct {
	Criteria       Criteria
	Filter         PartFilter
	DownloadFolder string

	// Stdout receives one "Downloaded: <filename>" line per saved attachment.
	Stdout io.Writer
	// Stderr receives one line per failed part or message.
	Stderr io.Writer

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Pipeline filters the attachments of candidate messages into a download folder.
type Pipeline struct {
	session   Session
	extractor TextExtractor
	criteria  Criteria
	filter    PartFilter
	persister Persister

	stdout  io.Writer
	stderr  io.Writer
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// New creates a Pipeline reading from session.
func New(session Session, extractor TextExtractor, opts Options) *Pipeline {
	p := &Pipeline{
		session:   session,
		extractor: extractor,
		criteria:  opts.Criteria,
		filter:    opts.Filter,
		persister: Persister{Folder: opts.DownloadFolder},
		stdout:    opts.Stdout,
		stderr:    opts.Stderr,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	if p.stdout == nil {
		p.stdout = os.Stdout
	}
	if p.stderr == nil {
		p.stderr = os.Stderr
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run processes every message matching query and returns the outcome counts.
// An error is returned only when the download folder cannot be created, the
// candidates cannot be listed, or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, query string) (Summary, error) {
	ctx, span := instrumentation.StartSpan(ctx, instrumentation.SpanRun, attribute.String("invoicefetch.query", query))
	defer span.End()

	start := time.Now()
	var summary Summary

	if err := p.persister.EnsureFolder(); err != nil {
		instrumentation.SetSpanError(span, err)
		return summary, err
	}

	ids, err := p.session.ListMessages(ctx, query)
	if err != nil {
		err = fmt.Errorf("failed to enumerate candidate messages: %w", err)
		instrumentation.SetSpanError(span, err)
		summary.Duration = time.Since(start)
		return summary, err
	}
	p.logger.Info("candidate messages found", logging.Operation("list"), "count", len(ids), "query", query)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			instrumentation.SetSpanError(span, err)
			return summary, err
		}

		results, err := p.ProcessMessage(ctx, id)
		summary.Messages++
		if err != nil {
			summary.MessageErrors++
			summary.LastError = err
			continue
		}
		for _, r := range results {
			summary.Add(r)
		}
	}

	summary.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("invoicefetch.messages", summary.Messages),
		attribute.Int("invoicefetch.downloaded", summary.Downloaded),
	)
	instrumentation.SetSpanSuccess(span)
	return summary, nil
}

// ProcessMessage fetches one message and processes each of its attachment candidates.
// A message that cannot be fetched is reported on stderr and returned as an error;
// part failures are reported in the results.
func (p *Pipeline) ProcessMessage(ctx context.Context, messageID string) ([]PartResult, error) {
	ctx, span := instrumentation.StartSpan(ctx, instrumentation.SpanMessage,
		attribute.String(instrumentation.SpanAttrMessageID, messageID))
	defer span.End()

	msg, err := p.session.GetMessage(ctx, messageID)
	if err != nil {
		fmt.Fprintf(p.stderr, "Error processing message %s: %v\n", messageID, err)
		p.logger.Warn("message skipped", logging.MessageID(messageID), logging.Err(err))
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	p.metrics.RecordMessageScanned(ctx)

	parts := SelectParts(msg.Payload, p.filter)
	p.logger.Debug("message fetched", logging.MessageID(messageID), "candidates", len(parts))

	results := make([]PartResult, 0, len(parts))
	for _, part := range parts {
		results = append(results, p.ProcessPart(ctx, messageID, part))
	}

	instrumentation.SetSpanSuccess(span)
	return results, nil
}

// ProcessPart runs one attachment candidate through retrieval, extraction,
// matching and persistence. It never returns early with an error: every
// failure is captured in the result and reported on stderr.
func (p *Pipeline) ProcessPart(ctx context.Context, messageID string, part *gmail.MessagePart) PartResult {
	ctx, span := instrumentation.StartAttachmentSpan(ctx, messageID, part.Filename)
	result := p.processPart(ctx, messageID, part)
	instrumentation.EndAttachmentSpan(span, string(result.Status), result.Err)

	p.metrics.RecordAttachment(ctx, string(result.Status))
	p.logger.Debug("attachment processed",
		logging.MessageID(messageID),
		logging.Filename(result.Filename),
		logging.Status(string(result.Status)),
		logging.Err(result.Err),
	)
	return result
}

func (p *Pipeline) processPart(ctx context.Context, messageID string, part *gmail.MessagePart) PartResult {
	result := PartResult{MessageID: messageID, Filename: part.Filename}

	encoded, err := Retrieve(ctx, p.session, messageID, part)
	if err != nil {
		return p.fail(result, StatusRetrievalFailed, err)
	}

	extraction := p.extractor.Extract(ctx, encoded)
	if extraction.Failed() {
		if errors.Is(extraction.Err, pdftext.ErrDecode) {
			return p.fail(result, StatusRetrievalFailed, extraction.Err)
		}
		result.Status = StatusExtractionFailed
		result.Err = extraction.Err
		fmt.Fprintf(p.stderr, "Error extracting PDF text from %s: %v\n", displayName(part.Filename), extraction.Err)
		return result
	}

	if !p.criteria.Matches(extraction.Text) {
		result.Status = StatusNotMatched
		return result
	}

	data, err := gmailclient.DecodeData(encoded)
	if err != nil {
		return p.fail(result, StatusPersistFailed, fmt.Errorf("%w: %w", ErrPersist, err))
	}

	savedAs, err := p.persister.Save(part.Filename, data)
	if err != nil {
		return p.fail(result, StatusPersistFailed, err)
	}

	result.Status = StatusDownloaded
	result.SavedAs = savedAs
	fmt.Fprintf(p.stdout, "Downloaded: %s\n", savedAs)
	return result
}

func (p *Pipeline) fail(result PartResult, status Status, err error) PartResult {
	result.Status = status
	result.Err = err
	fmt.Fprintf(p.stderr, "Error processing %s: %v\n", displayName(result.Filename), err)
	return result
}

func displayName(filename string) string {
	if filename == "" {
		return "unknown file"
	}
	return filename
}
