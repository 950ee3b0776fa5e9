package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biovault/verify/pkg/biometric"
)

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer

	count := 1
	v := biometric.Verdict{Verified: true, SpeakerCount: &count}
	if err := Output(v, OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if result["verified"] != true || result["speaker_count"] != float64(1) {
		t.Errorf("result = %v", result)
	}
	if _, ok := result["distance"]; ok {
		t.Error("unset distance should be omitted")
	}
}

func TestOutput_YAML(t *testing.T) {
	var buf bytes.Buffer

	v := biometric.Failure(biometric.ReasonFetch, "http status 404")
	if err := Output(v, OutputOptions{Format: FormatYAML, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"verified: false", "error: fetch failed", "detail: http status 404"} {
		if !strings.Contains(output, want) {
			t.Errorf("output should contain %q, got: %s", want, output)
		}
	}
}

func TestOutput_DefaultFormat(t *testing.T) {
	var buf bytes.Buffer

	if err := Output(map[string]string{"key": "value"}, OutputOptions{Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	if !strings.Contains(buf.String(), "key: value") {
		t.Errorf("Default format should be YAML, got: %s", buf.String())
	}
}

func TestOutput_Text(t *testing.T) {
	var buf bytes.Buffer

	d, th := 0.31, 0.6
	r := Result{
		Modality: biometric.ModalityFace,
		Refs:     [2]string{"https://cdn.test/a.jpg", "https://cdn.test/b.jpg"},
		Verdict:  biometric.Verdict{Verified: true, Distance: &d, Threshold: &th},
	}
	if err := Output(r, OutputOptions{Format: FormatText, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	for _, want := range []string{"face verification", "same person", "https://cdn.test/a.jpg", "0.3100"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("text output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestOutput_TextFallsBackToYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(map[string]int{"count": 1}, OutputOptions{Format: FormatText, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "count: 1\n" {
		t.Errorf("got %q, want %q", got, "count: 1\n")
	}
}

func TestOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := Output(map[string]string{"a": "b"}, OutputOptions{Format: FormatJSON, File: path}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"a": "b"`) {
		t.Errorf("file = %s", data)
	}
}

func TestOutput_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Output("x", OutputOptions{Format: "table", Writer: &buf}); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"json", FormatJSON, false},
		{"text", FormatText, false},
		{"table", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}
