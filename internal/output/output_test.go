package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"
)

func newBuffered(format Format) (*Writer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return New(format, WithOutput(&out), WithErrorOutput(&errOut)), &out, &errOut
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"text", "json", "yaml"} {
		if _, err := ParseFormat(s); err != nil {
			t.Fatalf("ParseFormat(%q): %v", s, err)
		}
	}
	if _, err := ParseFormat("toml"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestWriter_Write_Text(t *testing.T) {
	w, out, _ := newBuffered(FormatText)

	if err := w.Write("hello"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := out.String(); got != "hello\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

type named struct{ name string }

func (n named) String() string { return "name=" + n.name }

func TestWriter_Write_TextStringer(t *testing.T) {
	w, out, _ := newBuffered(FormatText)
	if err := w.Write(named{"x"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := out.String(); got != "name=x\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestWriter_Write_JSON(t *testing.T) {
	w, out, _ := newBuffered(FormatJSON)
	if err := w.Write(map[string]any{"a": 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if !strings.Contains(out.String(), "\n  ") {
		t.Fatalf("expected pretty-printed JSON, got: %q", out.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("json.Unmarshal: %v; out=%q", err, out.String())
	}
	if got, ok := payload["a"].(float64); !ok || got != 1 {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestWriter_Write_YAML(t *testing.T) {
	type payload struct {
		Alias string `json:"alias"`
		Count int    `json:"count"`
	}
	w, out, _ := newBuffered(FormatYAML)
	if err := w.Write(payload{Alias: "default", Count: 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var decoded map[string]any
	if err := yaml.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("yaml.Unmarshal: %v; out=%q", err, out.String())
	}
	if decoded["alias"] != "default" {
		t.Fatalf("unexpected payload: %#v", decoded)
	}
	if !strings.HasSuffix(out.String(), "\n") {
		t.Fatalf("expected trailing newline: %q", out.String())
	}
}

func TestWriter_Write_UnsupportedFormat(t *testing.T) {
	w := New(Format("bogus"))
	if err := w.Write("x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWriter_Success_Text(t *testing.T) {
	w, out, errOut := newBuffered(FormatText)
	w.Success("done")
	if got := errOut.String(); got != "✓ done\n" {
		t.Fatalf("unexpected stderr: %q", got)
	}
	if out.Len() != 0 {
		t.Fatalf("expected empty stdout, got %q", out.String())
	}
}

func TestWriter_Success_JSON(t *testing.T) {
	w, out, _ := newBuffered(FormatJSON)
	w.Success("done")

	var payload map[string]any
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if payload["status"] != "success" || payload["message"] != "done" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestWriter_Warn(t *testing.T) {
	w, out, errOut := newBuffered(FormatJSON)
	w.Warn("teardown failed")
	if out.Len() != 0 {
		t.Fatalf("warnings must not touch stdout: %q", out.String())
	}
	if !strings.Contains(errOut.String(), `"status":"warning"`) {
		t.Fatalf("unexpected stderr: %q", errOut.String())
	}

	w, _, errOut = newBuffered(FormatText)
	w.Warn("teardown failed")
	if got := errOut.String(); got != "! teardown failed\n" {
		t.Fatalf("unexpected stderr: %q", got)
	}
}

func TestWriter_Error(t *testing.T) {
	w, _, errOut := newBuffered(FormatText)
	w.Error(errors.New("boom"))
	if got := errOut.String(); got != "✗ boom\n" {
		t.Fatalf("unexpected stderr: %q", got)
	}

	w, _, errOut = newBuffered(FormatJSON)
	w.Error(errors.New("boom"))
	var payload ErrorPayload
	if err := json.Unmarshal(errOut.Bytes(), &payload); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if payload.Error != "error" || payload.Message != "boom" {
		t.Fatalf("unexpected payload: %#v", payload)
	}

	w, _, errOut = newBuffered(FormatYAML)
	w.Error(errors.New("boom"))
	if !strings.Contains(errOut.String(), "message: boom") {
		t.Fatalf("unexpected yaml error: %q", errOut.String())
	}
}

type bracketStyler struct{}

func (bracketStyler) Success(s string) string { return "[" + s + "]" }
func (bracketStyler) Warning(s string) string { return "<" + s + ">" }
func (bracketStyler) Failure(s string) string { return "{" + s + "}" }

func TestWriter_Styler(t *testing.T) {
	var errOut bytes.Buffer
	w := New(FormatText, WithErrorOutput(&errOut), WithStyler(bracketStyler{}))
	w.Success("a")
	w.Warn("b")
	w.Error(errors.New("c"))
	if got := errOut.String(); got != "[✓ a]\n<! b>\n{✗ c}\n" {
		t.Fatalf("unexpected styled output: %q", got)
	}
}
