package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joboya/ghostline/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		StorageDir: t.TempDir(),
		Logging: config.LoggingConfig{
			Level: "info",
			Path:  filepath.Join(t.TempDir(), "ghostline.log"),
		},
	}
}

func TestParsePairLine(t *testing.T) {
	request, response, latency, ok := parsePairLine("hello\tworld\t42")
	if !ok || request != "hello" || response != "world" || latency != 42 {
		t.Fatalf("got %q %q %d %v", request, response, latency, ok)
	}

	if _, _, _, ok := parsePairLine("missing-tabs"); ok {
		t.Fatal("expected malformed line to fail parsing")
	}
}

func TestRecordThenReplayRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "run.ghostline")

	var out, errOut bytes.Buffer
	code := run(cfg, []string{"record", path, "--stdin-pairs"}, strings.NewReader("hello\tworld\t5\n"), &out, &errOut)
	if code != 0 {
		t.Fatalf("record exit code = %d, stderr=%s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "captured 1 frame") {
		t.Fatalf("unexpected record output: %s", out.String())
	}

	out.Reset()
	errOut.Reset()
	code = run(cfg, []string{"replay", path}, strings.NewReader("hello\tignored\t0\nunknown\tignored\t0\n"), &out, &errOut)
	if code != 0 {
		t.Fatalf("replay exit code = %d, stderr=%s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "hit: world") {
		t.Fatalf("expected a cache hit, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "miss: unknown") {
		t.Fatalf("expected a cache miss, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "hits=1 misses=1") {
		t.Fatalf("expected hit/miss summary, got: %s", out.String())
	}
}

func TestRecordRequiresStdinPairsFlag(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "run.ghostline")

	var out, errOut bytes.Buffer
	code := run(cfg, []string{"record", path}, strings.NewReader(""), &out, &errOut)
	if code == 0 {
		t.Fatal("expected a non-zero exit code without --stdin-pairs")
	}
	if !strings.Contains(errOut.String(), "--stdin-pairs is required") {
		t.Fatalf("unexpected error output: %s", errOut.String())
	}
}

func TestForkCommandProducesChild(t *testing.T) {
	cfg := testConfig(t)
	parentPath := filepath.Join(t.TempDir(), "run.ghostline")
	childPath := filepath.Join(t.TempDir(), "child.ghostline")

	var out, errOut bytes.Buffer
	code := run(cfg, []string{"record", parentPath, "--stdin-pairs"}, strings.NewReader("a\t1\t1\nb\t2\t1\n"), &out, &errOut)
	if code != 0 {
		t.Fatalf("record exit code = %d, stderr=%s", code, errOut.String())
	}

	out.Reset()
	errOut.Reset()
	code = run(cfg, []string{"fork", parentPath, "--at-step", "1", "--out", childPath}, strings.NewReader(""), &out, &errOut)
	if code != 0 {
		t.Fatalf("fork exit code = %d, stderr=%s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "forked") {
		t.Fatalf("unexpected fork output: %s", out.String())
	}
}

func TestUnknownCommandReportsError(t *testing.T) {
	cfg := testConfig(t)
	var out, errOut bytes.Buffer
	code := run(cfg, []string{"bogus"}, strings.NewReader(""), &out, &errOut)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "unknown command") {
		t.Fatalf("unexpected error output: %s", errOut.String())
	}
}

func TestNoArgsPrintsUsage(t *testing.T) {
	cfg := testConfig(t)
	var out, errOut bytes.Buffer
	code := run(cfg, nil, strings.NewReader(""), &out, &errOut)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(out.String(), "Usage: ghostline") {
		t.Fatalf("unexpected usage output: %s", out.String())
	}
}
