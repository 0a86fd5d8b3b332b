package pipeline

import (
	"time"

	"github.com/teemow/invoicefetch/internal/logging"
)

// Status is the outcome of one attachment candidate.
type Status string

const (
	StatusRetrievalFailed  Status = "retrieval_failed"
	StatusExtractionFailed Status = "extraction_failed"
	StatusNotMatched       Status = "not_matched"
	StatusPersistFailed    Status = "persist_failed"
	StatusDownloaded       Status = "downloaded"
)

// PartResult records what happened to one attachment candidate.
type PartResult struct {
	MessageID string
	Filename  string
	// SavedAs is the name written to the download folder, set when Status is StatusDownloaded.
	SavedAs string
	Status  Status
	Err     error
}

// Summary counts the outcomes of a run.
type Summary struct {
	Messages         int
	MessageErrors    int
	Candidates       int
	Downloaded       int
	NotMatched       int
	RetrievalFailed  int
	ExtractionFailed int
	PersistFailed    int
	Duration         time.Duration
	LastError        error
}

// Add counts one part result.
func (s *Summary) Add(r PartResult) {
	s.Candidates++
	switch r.Status {
	case StatusDownloaded:
		s.Downloaded++
	case StatusNotMatched:
		s.NotMatched++
	case StatusRetrievalFailed:
		s.RetrievalFailed++
	case StatusExtractionFailed:
		s.ExtractionFailed++
	case StatusPersistFailed:
		s.PersistFailed++
	}
	if r.Err != nil {
		s.LastError = r.Err
	}
}

// Failures returns the number of failed parts and messages.
func (s Summary) Failures() int {
	return s.MessageErrors + s.RetrievalFailed + s.ExtractionFailed + s.PersistFailed
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"messages", s.Messages,
		"messageErrors", s.MessageErrors,
		"candidates", s.Candidates,
		"downloaded", s.Downloaded,
		"notMatched", s.NotMatched,
		"retrievalFailed", s.RetrievalFailed,
		"extractionFailed", s.ExtractionFailed,
		"persistFailed", s.PersistFailed,
		logging.KeyDuration, s.Duration,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}
