package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docstore/internal/config"
	"docstore/internal/ingest"
	"docstore/internal/offload"
	"docstore/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("DOCSTORE_CONFIG_DIR", t.TempDir())
	t.Setenv("DOCSTORE_DB", filepath.Join(t.TempDir(), "docs.db"))
	t.Setenv("DOCSTORE_LOG_LEVEL", "error")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func runCLI(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFormatter := stdout, outputFormatter
	stdout = &buf
	t.Cleanup(func() {
		stdout = prevOut
		outputFormatter = prevFormatter
	})

	cmd := newRootCmd(cfg)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeDocs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"index.html":      "<!DOCTYPE html><html><body>hello</body></html>",
		"static/site.css": "h1 { font-weight: bold; }\n",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

func TestCLIAddGetStatus(t *testing.T) {
	cfg := testConfig(t)
	root := writeDocs(t)

	out, err := runCLI(t, cfg, "add", "demo/0.1.0", root)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	var manifest ingest.Manifest
	if err := json.Unmarshal([]byte(out), &manifest); err != nil {
		t.Fatalf("decode manifest %q: %v", out, err)
	}
	if len(manifest) != 2 || manifest[1].MediaType != "text/css" || manifest[1].Path != "static/site.css" {
		t.Fatalf("unexpected manifest %v", manifest)
	}

	out, err = runCLI(t, cfg, "get", "demo/0.1.0/static/site.css")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != "h1 { font-weight: bold; }\n" {
		t.Fatalf("unexpected bytes %q", out)
	}

	out, err = runCLI(t, cfg, "get", "--meta", "demo/0.1.0/index.html")
	if err != nil {
		t.Fatalf("get --meta: %v", err)
	}
	var meta fileMeta
	if err := json.Unmarshal([]byte(out), &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.MediaType != "text/html" || meta.Location != "inline" {
		t.Fatalf("unexpected meta %#v", meta)
	}

	out, err = runCLI(t, cfg, "status", "--format", "yaml")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "object_store: none") || !strings.Contains(out, "files: 2") {
		t.Fatalf("unexpected status %q", out)
	}
}

func TestCLIGetMissingKey(t *testing.T) {
	cfg := testConfig(t)
	_, err := runCLI(t, cfg, "get", "nope/index.html")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCLIOffloadRequiresObjectStore(t *testing.T) {
	cfg := testConfig(t)
	_, err := runCLI(t, cfg, "offload")
	if !errors.Is(err, offload.ErrNoObjectStore) {
		t.Fatalf("expected ErrNoObjectStore, got %v", err)
	}
}

func TestCLIOffloadToLocalDirectory(t *testing.T) {
	cfg := testConfig(t)
	root := writeDocs(t)
	if _, err := runCLI(t, cfg, "add", "demo", root); err != nil {
		t.Fatalf("add: %v", err)
	}

	cfg.ObjectStore.LocalDir = t.TempDir()
	out, err := runCLI(t, cfg, "offload", "--batch", "1")
	if err != nil {
		t.Fatalf("offload: %v", err)
	}
	var stats store.Stats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats %q: %v", out, err)
	}
	if stats.Inline.Files != 0 || stats.Offloaded.Files != 2 {
		t.Fatalf("expected everything offloaded, got %#v", stats)
	}

	out, err = runCLI(t, cfg, "get", "demo/index.html")
	if err != nil {
		t.Fatalf("get offloaded: %v", err)
	}
	if !strings.Contains(out, "hello") {
		t.Fatalf("unexpected offloaded bytes %q", out)
	}
}

func TestCLIMigrateInspect(t *testing.T) {
	cfg := testConfig(t)
	out, err := runCLI(t, cfg, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	var plan store.MigrationStatus
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if plan.CurrentVersion != plan.AvailableVersion || len(plan.Pending) != 0 {
		t.Fatalf("expected fully migrated database, got %#v", plan)
	}
}

func TestCLIRejectsUnknownFormat(t *testing.T) {
	cfg := testConfig(t)
	if _, err := runCLI(t, cfg, "status", "--format", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestCLIConfigSetAndGet(t *testing.T) {
	cfg := testConfig(t)
	if _, err := runCLI(t, cfg, "config", "set", "offload.batch_size", "25"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	reloaded, err := config.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	out, err := runCLI(t, reloaded, "config", "get", "offload.batch_size")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if out != "25\n" {
		t.Fatalf("expected 25, got %q", out)
	}
}

func TestCLIConfigGetAllAndPath(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCLI(t, cfg, "config", "get")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	var values map[string]string
	if err := json.Unmarshal([]byte(out), &values); err != nil {
		t.Fatalf("decode settings %q: %v", out, err)
	}
	if len(values) != len(config.AllowedKeys()) {
		t.Fatalf("expected %d settings, got %v", len(config.AllowedKeys()), values)
	}
	if values["offload.concurrency"] != "16" || values["db_path"] != cfg.DBPath {
		t.Fatalf("unexpected effective settings %v", values)
	}

	if _, err := runCLI(t, cfg, "config", "get", "object_store.acl"); err == nil {
		t.Fatal("expected error for unknown key")
	}

	out, err = runCLI(t, cfg, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	var paths configPaths
	if err := json.Unmarshal([]byte(out), &paths); err != nil {
		t.Fatalf("decode paths %q: %v", out, err)
	}
	if filepath.Base(paths.Global) != ".docstore.toml" || paths.Global != paths.Project || paths.ProjectLoaded {
		t.Fatalf("unexpected paths %#v", paths)
	}
}

func TestCLIAddWritesMetricsTextfile(t *testing.T) {
	cfg := testConfig(t)
	root := writeDocs(t)
	textfile := filepath.Join(t.TempDir(), "docstore.prom")

	if _, err := runCLI(t, cfg, "add", "--metrics-textfile", textfile, "demo", root); err != nil {
		t.Fatalf("add: %v", err)
	}
	data, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	body := string(data)
	for _, want := range []string{
		`docstore_ingest_runs_total{outcome="success"} 1`,
		`docstore_files_stored_total{location="inline"} 2`,
		`docstore_files{location="inline"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in textfile:\n%s", want, body)
		}
	}
}

func TestCLIAddMetricsTextfileOnFailure(t *testing.T) {
	cfg := testConfig(t)
	textfile := filepath.Join(t.TempDir(), "docstore.prom")

	_, err := runCLI(t, cfg, "add", "--metrics-textfile", textfile, "demo", filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ingest.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	data, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `docstore_ingest_runs_total{outcome="failure"} 1`) {
		t.Fatalf("expected failure run in textfile:\n%s", data)
	}
}
