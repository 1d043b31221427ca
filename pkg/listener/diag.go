package listener

import (
	"fmt"

	"go.uber.org/multierr"
)

// Severity classifies a diagnostic. There are exactly two levels: fatal
// records abort startup, warnings are reported and startup continues.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityFatal
)

func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}
	return "warning"
}

// Record is one operator-facing diagnostic produced at parse or bind time.
type Record struct {
	Severity  Severity
	Directive string // keyword that produced the record, may be empty
	Listener  string // listener address, may be empty for parse records
	Message   string
}

func (r Record) String() string {
	out := r.Severity.String() + ":"
	if r.Listener != "" {
		out += " [" + r.Listener + "]"
	}
	if r.Directive != "" {
		out += " '" + r.Directive + "'"
	}
	return out + " " + r.Message
}

// Report accumulates diagnostics in the order they occur. Records are never
// dropped; the caller decides when a fatal record actually stops the run, so
// a whole configuration pass can be diagnosed in one go.
type Report struct {
	records []Record
}

// Warnf appends a warning record.
func (r *Report) Warnf(directive, lst, format string, args ...interface{}) {
	r.records = append(r.records, Record{
		Severity:  SeverityWarning,
		Directive: directive,
		Listener:  lst,
		Message:   fmt.Sprintf(format, args...),
	})
}

// Fatalf appends a fatal record.
func (r *Report) Fatalf(directive, lst, format string, args ...interface{}) {
	r.records = append(r.records, Record{
		Severity:  SeverityFatal,
		Directive: directive,
		Listener:  lst,
		Message:   fmt.Sprintf(format, args...),
	})
}

// Add appends an already-built record.
func (r *Report) Add(rec Record) {
	r.records = append(r.records, rec)
}

// Records returns every diagnostic in arrival order.
func (r *Report) Records() []Record {
	return r.records
}

// Warnings returns only the warning-level records, in arrival order.
func (r *Report) Warnings() []Record {
	var out []Record
	for _, rec := range r.records {
		if rec.Severity == SeverityWarning {
			out = append(out, rec)
		}
	}
	return out
}

// HasFatal reports whether any fatal record was accumulated.
func (r *Report) HasFatal() bool {
	for _, rec := range r.records {
		if rec.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// Err combines every fatal record into one error, or nil if none exist.
func (r *Report) Err() error {
	var err error
	for _, rec := range r.records {
		if rec.Severity == SeverityFatal {
			err = multierr.Append(err, fmt.Errorf("%s", rec.String()))
		}
	}
	return err
}
