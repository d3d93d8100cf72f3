// Package output implements consistent text, JSON and YAML output for the
// testdb CLI. JSON and YAML use the snake_case json tags of the payloads.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"
)

// Format represents the output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Writer handles formatted output.
type Writer struct {
	format Format
	out    io.Writer
	errOut io.Writer
	style  Styler
}

// Styler decorates human-readable status lines.
type Styler interface {
	Success(string) string
	Warning(string) string
	Failure(string) string
}

type plainStyler struct{}

func (plainStyler) Success(s string) string { return s }
func (plainStyler) Warning(s string) string { return s }
func (plainStyler) Failure(s string) string { return s }

// Option configures the Writer.
type Option func(*Writer)

// WithOutput sets the standard output writer.
func WithOutput(w io.Writer) Option {
	return func(wr *Writer) {
		wr.out = w
	}
}

// WithErrorOutput sets the error output writer.
func WithErrorOutput(w io.Writer) Option {
	return func(wr *Writer) {
		wr.errOut = w
	}
}

// WithStyler sets how text-mode status lines are decorated.
func WithStyler(s Styler) Option {
	return func(wr *Writer) {
		if s != nil {
			wr.style = s
		}
	}
}

// New creates a new output writer.
func New(format Format, opts ...Option) *Writer {
	w := &Writer{
		format: format,
		out:    os.Stdout,
		errOut: os.Stderr,
		style:  plainStyler{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Format returns the configured format.
func (w *Writer) Format() Format { return w.format }

// Write outputs data in the configured format.
func (w *Writer) Write(data any) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		normalized, err := normalizeForYAML(data)
		if err != nil {
			return err
		}
		b, err := yaml.Marshal(normalized)
		if err != nil {
			return err
		}
		if len(b) == 0 || b[len(b)-1] != '\n' {
			b = append(b, '\n')
		}
		_, err = w.out.Write(b)
		return err
	case FormatText:
		if s, ok := data.(fmt.Stringer); ok {
			_, err := fmt.Fprintln(w.out, s.String())
			return err
		}
		_, err := fmt.Fprintf(w.out, "%v\n", data)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", w.format)
	}
}

// Success outputs a success message.
func (w *Writer) Success(msg string) {
	if w.format == FormatText {
		fmt.Fprintln(w.errOut, w.style.Success("✓ "+msg))
		return
	}
	_ = w.Write(map[string]any{"status": "success", "message": msg})
}

// Warn outputs a non-fatal warning. Warnings always go to the error output
// so machine-readable stdout stays a single document.
func (w *Writer) Warn(msg string) {
	if w.format == FormatText {
		fmt.Fprintln(w.errOut, w.style.Warning("! "+msg))
		return
	}
	enc := json.NewEncoder(w.errOut)
	_ = enc.Encode(map[string]any{"status": "warning", "message": msg})
}

// ErrorPayload is the machine-readable error shape.
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Error outputs an error message.
func (w *Writer) Error(err error) {
	if w.format == FormatText {
		fmt.Fprintln(w.errOut, w.style.Failure("✗ "+err.Error()))
		return
	}
	payload := ErrorPayload{Error: "error", Message: err.Error()}
	if w.format == FormatYAML {
		_ = New(FormatYAML, WithOutput(w.errOut)).Write(payload)
		return
	}
	enc := json.NewEncoder(w.errOut)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func normalizeForYAML(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var normalized any
	if err := dec.Decode(&normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}
