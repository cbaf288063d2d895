package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Name  string `json:"name" yaml:"name"`
	Files int    `json:"files" yaml:"files"`
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONFormatter{}).Write(&buf, sample{Name: "inline", Files: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "{\"name\":\"inline\",\"files\":3}\n" {
		t.Fatalf("unexpected json %q", got)
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (YAMLFormatter{}).Write(&buf, sample{Name: "offloaded", Files: 7}); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "name: offloaded\n") || !strings.Contains(got, "files: 7\n") {
		t.Fatalf("unexpected yaml %q", got)
	}
}

func TestForName(t *testing.T) {
	for name, want := range map[string]Formatter{
		"":     JSONFormatter{},
		"json": JSONFormatter{},
		"YAML": YAMLFormatter{},
		"yml":  YAMLFormatter{},
	} {
		got, err := ForName(name)
		if err != nil {
			t.Fatalf("ForName(%q): %v", name, err)
		}
		if got != want {
			t.Fatalf("ForName(%q) = %T, want %T", name, got, want)
		}
	}
	if _, err := ForName("xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
