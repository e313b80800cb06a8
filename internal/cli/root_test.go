package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/adjoint/pkg/ad"
	pkgio "github.com/matzehuels/adjoint/pkg/io"
	"github.com/matzehuels/adjoint/pkg/observability"
)

// isolate points the config and cache directories at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Cleanup(observability.Reset)
	return dir
}

// writeGraph stores x*y + sin(x) at x=1, y=2.
func writeGraph(t *testing.T, dir string) string {
	t.Helper()
	g := ad.NewGraph()
	x := g.Input(0, 1)
	y := g.Input(1, 2)
	path := filepath.Join(dir, "graph.json")
	err := pkgio.ExportJSON(ad.MakeGraph(g, ad.Outputs{Primary: g.Add(g.Mul(x, y), g.Sin(x))}), path)
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestExecuteVersion(t *testing.T) {
	isolate(t)
	out, err := run(t, "--version")
	if err != nil {
		t.Fatalf("--version: %v", err)
	}
	if !strings.Contains(out, appName) {
		t.Errorf("version output %q does not name %s", out, appName)
	}
}

func TestExecuteCachePath(t *testing.T) {
	dir := isolate(t)
	out, err := run(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	want := filepath.Join(dir, "cache", appName)
	if strings.TrimSpace(out) != want {
		t.Errorf("cache path = %q, want %q", strings.TrimSpace(out), want)
	}
}

func TestExecuteCacheClear(t *testing.T) {
	dir := isolate(t)
	out, err := run(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear on empty dir: %v", err)
	}
	if !strings.Contains(out, "Nothing cached") {
		t.Errorf("output = %q", out)
	}

	path := writeGraph(t, dir)
	if _, err := run(t, "eval", path, "--inputs", "1,2"); err != nil {
		t.Fatalf("eval: %v", err)
	}
	out, err = run(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Removed 1 entries") {
		t.Errorf("output = %q, want one removed entry", out)
	}
}

func TestExecuteCompletion(t *testing.T) {
	isolate(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, err := run(t, "completion", shell)
		if err != nil {
			t.Errorf("completion %s: %v", shell, err)
			continue
		}
		if !strings.Contains(out, appName) {
			t.Errorf("completion %s does not mention %s", shell, appName)
		}
	}
	if _, err := run(t, "completion", "tcsh"); err == nil {
		t.Error("completion tcsh should fail")
	}
}

func TestExecuteEvalJSON(t *testing.T) {
	dir := isolate(t)
	path := writeGraph(t, dir)

	out, err := run(t, "eval", path, "--inputs", "3,4", "--json")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	res, err := pkgio.DecodeResult([]byte(strings.TrimSpace(out)))
	if err != nil {
		t.Fatalf("DecodeResult(%q): %v", out, err)
	}
	if want := 12 + math.Sin(3); math.Abs(res.Primary-want) > 1e-12 {
		t.Errorf("primary = %v, want %v", res.Primary, want)
	}
	if len(res.Gradient) != 2 || math.Abs(res.Gradient[1]-3) > 1e-12 {
		t.Errorf("gradient = %v, want [4+cos(3), 3]", res.Gradient)
	}
}

func TestExecuteEvalBatch(t *testing.T) {
	dir := isolate(t)
	path := writeGraph(t, dir)
	inputs := filepath.Join(dir, "inputs.json")
	if err := os.WriteFile(inputs, []byte(`[[1, 2], [0, 5], ["NaN", 1]]`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "eval", path, "--inputs-file", inputs, "--no-cache")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d result lines, want 3:\n%s", len(lines), out)
	}
	for i, line := range lines {
		if !json.Valid([]byte(line)) {
			t.Errorf("line %d is not JSON: %q", i, line)
		}
	}
	if !strings.Contains(lines[2], `"NaN"`) {
		t.Errorf("NaN input should yield a NaN result, got %s", lines[2])
	}
}

func TestExecuteEvalMissingFile(t *testing.T) {
	dir := isolate(t)
	if _, err := run(t, "eval", filepath.Join(dir, "absent.json")); err == nil {
		t.Error("expected error for a missing graph")
	}
}

func TestExecuteRenderDOT(t *testing.T) {
	dir := isolate(t)
	path := writeGraph(t, dir)

	out, err := run(t, "render", path, "-f", "dot", "-o", "-")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(out, "digraph") {
		t.Errorf("expected DOT output, got %q", out)
	}
}

func TestExecuteFuzzAndVerify(t *testing.T) {
	dir := isolate(t)
	fixtures := filepath.Join(dir, "fixtures")

	if _, err := run(t, "fuzz", "-n", "4", "--seed", "11", "-o", fixtures); err != nil {
		t.Fatalf("fuzz: %v", err)
	}
	dirs, err := fixtureDirs(fixtures)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 4 {
		t.Fatalf("got %d fixtures, want 4", len(dirs))
	}

	if _, err := run(t, "fuzz", "verify", fixtures); err != nil {
		t.Errorf("verify: %v", err)
	}
}

func TestExecuteCheckFile(t *testing.T) {
	dir := isolate(t)
	path := writeGraph(t, dir)

	if _, err := run(t, "check", path, "--inputs", "0.5,-2"); err != nil {
		t.Errorf("check: %v", err)
	}
}

func TestExecuteBadConfig(t *testing.T) {
	dir := isolate(t)
	cfg := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(cfg, []byte("[cache]\nbackend = \"tape\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "--config", cfg, "cache", "path"); err == nil {
		t.Error("expected error for an invalid config")
	}
}
