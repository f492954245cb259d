// Package logging provides zerolog setup for taskgraph: level mapping from
// the §4.G setLogLevel enumeration, a console-vs-JSON writer, optional
// rotating file output, and a sensitive-data redaction hook so task
// parameters (connection strings, API keys routed through handler
// parameters) never land on disk unredacted.
package logging

import (
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// RedactedValue replaces any matched sensitive substring.
const RedactedValue = "[REDACTED]"

// Minimum length thresholds for the patterns below, tuned to avoid
// false-positiving on short, harmless strings.
const (
	minAPIKeyLength  = "20"
	minSecretLength  = "8"
	minBase64TokenLength = "32"
)

// sensitivePatterns match common secret shapes that can end up in task
// parameters or connection strings (§4.C document-store DSNs, handler
// parameters for auth-flavored handlers).
var sensitivePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // compiled once, reused
	regexp.MustCompile(`sk-[a-zA-Z0-9]{` + minAPIKeyLength + `,}`),
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{` + minAPIKeyLength + `,}`),
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*["']?([a-zA-Z0-9_-]{` + minAPIKeyLength + `,})["']?`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_-]{` + minAPIKeyLength + `,}`),
	regexp.MustCompile(`(?i)(secret|password|credential|passwd|pwd)\s*[:=]\s*["']?[^\s"']{` + minSecretLength + `,}["']?`),
	regexp.MustCompile(`(?i)(token|auth)\s*[:=]\s*["']?[a-zA-Z0-9+/=]{` + minBase64TokenLength + `,}["']?`),
	regexp.MustCompile(`postgres://[^\s]*:[^\s@]+@`),
}

// sensitiveFieldSet holds field names whose values are always redacted
// regardless of content.
var sensitiveFieldSet = map[string]struct{}{ //nolint:gochecknoglobals // reused lookup table
	"password": {}, "passwd": {}, "secret": {}, "credential": {}, "credentials": {},
	"api_key": {}, "apikey": {}, "auth_token": {}, "access_token": {}, "refresh_token": {},
	"bearer": {}, "authorization": {},
}

// ContainsSensitiveData reports whether s matches any known secret shape.
func ContainsSensitiveData(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// FilterSensitiveValue replaces every sensitive-looking substring of value
// with RedactedValue.
func FilterSensitiveValue(value string) string {
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// IsSensitiveFieldName reports whether fieldName (e.g. a task parameter
// key) names a value that should always be redacted outright.
func IsSensitiveFieldName(fieldName string) bool {
	_, ok := sensitiveFieldSet[strings.ToLower(fieldName)]
	return ok
}

// RedactIfSensitive returns RedactedValue when fieldName is sensitive,
// otherwise the value with any embedded secret patterns filtered out.
func RedactIfSensitive(fieldName, value string) string {
	if IsSensitiveFieldName(fieldName) {
		return RedactedValue
	}
	return FilterSensitiveValue(value)
}

// SensitiveDataHook is a zerolog.Hook that flags (but cannot itself
// rewrite) log messages containing secret-shaped substrings; the actual
// filtering happens via FilterSensitiveValue/RedactIfSensitive at call
// sites and in FilteringWriter below.
type SensitiveDataHook struct{}

// NewSensitiveDataHook returns a SensitiveDataHook.
func NewSensitiveDataHook() *SensitiveDataHook {
	return &SensitiveDataHook{}
}

// Run implements zerolog.Hook.
func (h *SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// FilteringWriter wraps an io.Writer, redacting sensitive substrings from
// every write before it reaches disk.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter wraps w with sensitive-data redaction.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer. It reports the original length on success so
// callers never see a spurious short write from redaction changing size.
func (fw *FilteringWriter) Write(p []byte) (int, error) {
	filtered := FilterSensitiveValue(string(p))
	if _, err := fw.w.Write([]byte(filtered)); err != nil {
		return 0, err
	}
	return len(p), nil
}
