package logger

import (
	"io"
	"regexp"
)

const redactedMarker = "[REDACTED]"

// redactionRule replaces matches of re. When the expression has a capture
// group, the first group (a field name or header) is kept in the output.
type redactionRule struct {
	name string
	re   *regexp.Regexp
}

// Redactor redacts provider credentials and other secrets from log output.
type Redactor struct {
	rules []redactionRule
}

// NewRedactor creates a redactor for the model provider keys onion handles.
func NewRedactor() *Redactor {
	return &Redactor{
		rules: []redactionRule{
			// anthropic first, openai's pattern would also match sk-ant-
			{name: "anthropic_key", re: regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`)},
			{name: "openai_key", re: regexp.MustCompile(`sk-(?:proj-)?[a-zA-Z0-9_-]{20,}`)},
			{name: "gemini_key", re: regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`)},

			{name: "bearer", re: regexp.MustCompile(`(Bearer\s+)[a-zA-Z0-9._~+/=-]+`)},
			{name: "api_key_field", re: regexp.MustCompile(`(?i)((?:x-api-key|api_key|apikey)["']?\s*[:=]\s*["']?)[^\s"',}]+`)},
			{name: "password_field", re: regexp.MustCompile(`(?i)(password["']?\s*[:=]\s*["']?)[^\s"',}]+`)},
			{name: "secret_field", re: regexp.MustCompile(`(?i)(secret["']?\s*[:=]\s*["']?)[^\s"',}]+`)},
		},
	}
}

// AddPattern adds a custom redaction pattern
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, redactionRule{name: "custom", re: re})
	return nil
}

// Redact redacts sensitive information from a string
func (r *Redactor) Redact(s string) string {
	for _, rule := range r.rules {
		if rule.re.NumSubexp() > 0 {
			s = rule.re.ReplaceAllString(s, "${1}"+redactedMarker)
			continue
		}
		s = rule.re.ReplaceAllLiteralString(s, redactedMarker)
	}
	return s
}

// Wrap wraps an io.Writer to redact sensitive information
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{
		writer:   w,
		redactor: r,
	}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success; the redacted line may differ in length.
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := w.writer.Write([]byte(w.redactor.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
