package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DateLayout is the YYYY/MM/DD form accepted by Gmail's after: and before: operators.
const DateLayout = "2006/01/02"

// Defaults applied when neither a flag nor an environment variable is set.
const (
	DefaultStartDate           = "2024/01/01"
	DefaultEndDate             = "2024/12/31"
	DefaultDownloadFolder      = "attachments"
	DefaultAttachmentExtension = ".pdf"
	DefaultCredentialsFile     = "credentials.json"
	DefaultTokenFile           = "token.json"
	DefaultEnvFile             = ".env"
)

// Environment variable names.
const (
	EnvStartDate           = "START_DATE"
	EnvEndDate             = "END_DATE"
	EnvSearchStrings       = "SEARCH_STRINGS"
	EnvDownloadFolder      = "DOWNLOAD_FOLDER"
	EnvAttachmentExtension = "ATTACHMENT_EXTENSION"
	EnvQuery               = "QUERY"
	EnvCredentialsFile     = "GOOGLE_CREDENTIALS_FILE"
	EnvTokenFile           = "GOOGLE_TOKEN_FILE"
	EnvAccessToken         = "GOOGLE_ACCESS_TOKEN"
	EnvLogLevel            = "LOG_LEVEL"
	EnvLogFormat           = "LOG_FORMAT"
)

// Error is a configuration problem detected before the run starts.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrMissingSearchStrings is returned when no usable search term was supplied.
var ErrMissingSearchStrings = errors.New("at least one search string is required")

// DateWindow bounds the candidate messages. Bounds are passed to Gmail verbatim,
// so their inclusivity is whatever Gmail's after:/before: operators define.
type DateWindow struct {
	Start string
	End   string
}

// Validate checks that both bounds are YYYY/MM/DD dates.
func (w DateWindow) Validate() error {
	if _, err := time.Parse(DateLayout, w.Start); err != nil {
		return &Error{Field: EnvStartDate, Err: fmt.Errorf("%q is not a YYYY/MM/DD date", w.Start)}
	}
	if _, err := time.Parse(DateLayout, w.End); err != nil {
		return &Error{Field: EnvEndDate, Err: fmt.Errorf("%q is not a YYYY/MM/DD date", w.End)}
	}
	return nil
}

// Inverted reports whether Start lies after End. Such a window is still
// queried; Gmail simply returns no candidates for it.
func (w DateWindow) Inverted() bool {
	start, err := time.Parse(DateLayout, w.Start)
	if err != nil {
		return false
	}
	end, err := time.Parse(DateLayout, w.End)
	if err != nil {
		return false
	}
	return start.After(end)
}

// Config holds everything a fetch run needs.
type Config struct {
	Window              DateWindow
	SearchStrings       []string
	DownloadFolder      string
	AttachmentExtension string
	Query               string

	CredentialsFile string
	TokenFile       string
	AccessToken     string

	LogLevel  string
	LogFormat string
}

// FromEnv builds a Config from the process environment, applying defaults.
func FromEnv() Config {
	return Config{
		Window: DateWindow{
			Start: getEnvOrDefault(EnvStartDate, DefaultStartDate),
			End:   getEnvOrDefault(EnvEndDate, DefaultEndDate),
		},
		SearchStrings:       ParseSearchStrings(os.Getenv(EnvSearchStrings)),
		DownloadFolder:      getEnvOrDefault(EnvDownloadFolder, DefaultDownloadFolder),
		AttachmentExtension: getEnvOrDefault(EnvAttachmentExtension, DefaultAttachmentExtension),
		Query:               os.Getenv(EnvQuery),
		CredentialsFile:     getEnvOrDefault(EnvCredentialsFile, DefaultCredentialsFile),
		TokenFile:           getEnvOrDefault(EnvTokenFile, DefaultTokenFile),
		AccessToken:         os.Getenv(EnvAccessToken),
		LogLevel:            os.Getenv(EnvLogLevel),
		LogFormat:           os.Getenv(EnvLogFormat),
	}
}

// Validate reports the first configuration problem as an *Error.
func (c Config) Validate() error {
	if err := c.Window.Validate(); err != nil {
		return err
	}
	if len(c.SearchStrings) == 0 {
		return &Error{Field: EnvSearchStrings, Err: ErrMissingSearchStrings}
	}
	if strings.TrimSpace(c.DownloadFolder) == "" {
		return &Error{Field: EnvDownloadFolder, Err: errors.New("download folder must not be empty")}
	}
	if ext := c.AttachmentExtension; ext != "" && !strings.HasPrefix(ext, ".") {
		return &Error{Field: EnvAttachmentExtension, Err: fmt.Errorf("extension %q must start with a dot", ext)}
	}
	if c.AccessToken == "" && c.CredentialsFile == "" {
		return &Error{Field: EnvCredentialsFile, Err: errors.New("a credentials file or access token is required")}
	}
	return nil
}

// ParseSearchStrings splits a comma-separated list, trimming whitespace and
// dropping empty terms. It returns nil when no term remains.
func ParseSearchStrings(s string) []string {
	if s == "" {
		return nil
	}

	var terms []string
	for _, part := range strings.Split(s, ",") {
		if term := strings.TrimSpace(part); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// LoadEnvFile loads variables from a .env file without overriding variables that
// are already set. A missing file is only an error when required is true.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		path = DefaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &Error{Field: "env-file", Err: fmt.Errorf("failed to load %s: %w", path, err)}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
