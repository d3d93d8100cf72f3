package testdb

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// CategoryTeardown marks warnings raised while destroying test databases.
const CategoryTeardown = "TeardownWarning"

// Warning is a non-fatal problem recorded on the session report.
type Warning struct {
	Category string    `json:"category"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

func (w Warning) String() string {
	return w.Category + ": " + w.Message
}

// Report collects warnings raised during a session.
type Report struct {
	mu       sync.Mutex
	warnings []Warning
}

// Warn records a warning.
func (r *Report) Warn(category, message string) Warning {
	w := Warning{Category: category, Message: message, Time: time.Now().UTC()}
	r.mu.Lock()
	r.warnings = append(r.warnings, w)
	r.mu.Unlock()
	return w
}

// Warnings returns a copy of the recorded warnings.
func (r *Report) Warnings() []Warning {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Warning, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// WriteSummary prints the warnings summary. Nothing is written when there
// are no warnings.
func (r *Report) WriteSummary(w io.Writer) error {
	warnings := r.Warnings()
	if len(warnings) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "=== warnings summary ==="); err != nil {
		return err
	}
	for _, warn := range warnings {
		if _, err := fmt.Fprintln(w, warn.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "=== %d warning(s) ===\n", len(warnings))
	return err
}
