package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"docstore/internal/config"
	"docstore/internal/ingest"
	"docstore/internal/tiered"
)

func repoRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

func readme(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(repoRoot(t), "README.md"))
	if err != nil {
		t.Fatalf("read README.md: %v", err)
	}
	return string(data)
}

// fencedBlock returns the first ``` block of the given language after heading.
func fencedBlock(t *testing.T, doc, heading, lang string) string {
	t.Helper()
	idx := strings.Index(doc, heading)
	if idx == -1 {
		t.Fatalf("README has no %q section", heading)
	}
	section := doc[idx:]
	open := strings.Index(section, "```"+lang+"\n")
	if open == -1 {
		t.Fatalf("README section %q has no %s block", heading, lang)
	}
	body := section[open+len("```"+lang+"\n"):]
	end := strings.Index(body, "```")
	if end == -1 {
		t.Fatalf("unterminated %s block in %q", lang, heading)
	}
	return body[:end]
}

func TestReadmeCommandLinesParse(t *testing.T) {
	cfg := config.Default()
	root := newRootCmd(&cfg)
	documented := map[string]bool{}

	for _, line := range strings.Split(fencedBlock(t, readme(t), "## Commands", "bash"), "\n") {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "docstore" {
			continue
		}

		var words []string
		for _, f := range fields[1:] {
			if strings.ContainsAny(f[:1], "-<[\"") {
				break
			}
			words = append(words, f)
		}
		cmd, _, err := root.Find(words)
		if err != nil || cmd == root {
			t.Fatalf("README line %q does not name a command: %v", line, err)
		}
		documented[cmd.CommandPath()] = true

		for _, f := range fields[1:] {
			for _, flag := range strings.Split(strings.Trim(f, "[]"), "|") {
				if !strings.HasPrefix(flag, "-") {
					continue
				}
				if !hasFlag(cmd, flag) {
					t.Fatalf("README line %q uses unknown flag %s for %q", line, flag, cmd.CommandPath())
				}
			}
		}
	}

	for _, path := range runnableCommandPaths(root) {
		if !documented[path] {
			t.Errorf("command %q is not documented in README", path)
		}
	}
}

func hasFlag(cmd *cobra.Command, flag string) bool {
	if name, ok := strings.CutPrefix(flag, "--"); ok {
		name, _, _ = strings.Cut(name, "=")
		return cmd.Flags().Lookup(name) != nil || cmd.InheritedFlags().Lookup(name) != nil
	}
	short := strings.TrimPrefix(flag, "-")
	return cmd.Flags().ShorthandLookup(short) != nil
}

func runnableCommandPaths(cmd *cobra.Command) []string {
	var out []string
	for _, child := range cmd.Commands() {
		if child.Hidden || child.Name() == "help" || child.Name() == "completion" {
			continue
		}
		if child.Runnable() {
			out = append(out, child.CommandPath())
		}
		out = append(out, runnableCommandPaths(child)...)
	}
	return out
}

func TestReadmeConfigExampleUsesSupportedKeys(t *testing.T) {
	doc := readme(t)

	var cfg config.Config
	md, err := toml.Decode(fencedBlock(t, doc, "## Configuration", "toml"), &cfg)
	if err != nil {
		t.Fatalf("decode README config example: %v", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		t.Fatalf("README config example has unknown keys: %v", undecoded)
	}

	bullets := regexp.MustCompile("(?m)^- `([a-z_.]+)`$").FindAllStringSubmatch(doc, -1)
	var listed []string
	for _, m := range bullets {
		listed = append(listed, m[1])
	}
	allowed := slices.Clone(config.AllowedKeys())
	slices.Sort(listed)
	slices.Sort(allowed)
	if !slices.Equal(listed, allowed) {
		t.Fatalf("README key list %v does not match allowed keys %v", listed, allowed)
	}

	for _, key := range allowed {
		if !md.IsDefined(strings.Split(key, ".")...) {
			t.Errorf("README config example does not show %s", key)
		}
	}
}

func TestReadmeKeyExamplesMatchIngestKey(t *testing.T) {
	re := regexp.MustCompile("`docstore add (\\S+) \\S+` stores `([^`]+)` as `([^`]+)`")
	examples := re.FindAllStringSubmatch(readme(t), -1)
	if len(examples) < 2 {
		t.Fatalf("expected key layout examples in README, found %d", len(examples))
	}
	for _, ex := range examples {
		prefix, rel, want := strings.Trim(ex[1], `"`), ex[2], ex[3]
		if got := ingest.Key(prefix, rel); got != want {
			t.Errorf("README says %q + %q is stored as %q, Key gives %q", prefix, rel, want, got)
		}
		if err := tiered.ValidatePath(want); err != nil {
			t.Errorf("README example key %q is not a valid key: %v", want, err)
		}
	}
}

func TestReadmeManifestExampleMatchesEncoding(t *testing.T) {
	raw := fencedBlock(t, readme(t), "## Keys and manifests", "json")

	var manifest ingest.Manifest
	if err := json.Unmarshal([]byte(raw), &manifest); err != nil {
		t.Fatalf("decode README manifest: %v", err)
	}
	if len(manifest) == 0 {
		t.Fatal("README manifest example is empty")
	}

	encoded, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("encode manifest: %v", err)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(raw)); err != nil {
		t.Fatalf("compact README manifest: %v", err)
	}
	if !bytes.Equal(encoded, compact.Bytes()) {
		t.Fatalf("README manifest differs from encoding\nreadme:  %s\nencoded: %s", compact.Bytes(), encoded)
	}
}

func TestReadmeDocumentsEnvironmentReadByCode(t *testing.T) {
	doc := readme(t)
	literal := regexp.MustCompile(`"((?:DOCSTORE|AWS|S3)_[A-Z0-9_]+)"`)

	var sources []string
	for _, dir := range []string{"cmd", "internal"} {
		err := filepath.WalkDir(filepath.Join(repoRoot(t), dir), func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go") {
				sources = append(sources, path)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("walk %s: %v", dir, err)
		}
	}

	seen := map[string]bool{}
	for _, path := range sources {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		for _, m := range literal.FindAllStringSubmatch(string(data), -1) {
			key := m[1]
			if seen[key] {
				continue
			}
			seen[key] = true
			if !strings.Contains(doc, "| `"+key+"` |") {
				t.Errorf("%s reads %s but the README environment table does not list it", filepath.Base(path), key)
			}
		}
	}
	if !seen["DOCSTORE_DB"] {
		t.Fatal("expected to find DOCSTORE_DB in sources")
	}
}
