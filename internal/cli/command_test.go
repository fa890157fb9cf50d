package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	flag "github.com/spf13/pflag"
)

func TestCommandNameIsFirstUsageWord(t *testing.T) {
	cmd := &Command{Usage: "fork <file> --at-step N"}
	if cmd.Name() != "fork" {
		t.Fatalf("Name() = %q, want fork", cmd.Name())
	}
}

func TestCommandRunExecutesAndReturnsZero(t *testing.T) {
	var out, errOut bytes.Buffer
	called := false
	cmd := &Command{
		Flags: flag.NewFlagSet("noop", flag.ContinueOnError),
		Usage: "noop",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			called = true
			o.Println("ok")
			return nil
		},
	}
	code := cmd.Run(context.Background(), NewIO(&out, &errOut), nil)
	if code != 0 || !called {
		t.Fatalf("code=%d called=%v", code, called)
	}
	if strings.TrimSpace(out.String()) != "ok" {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestCommandRunReportsExecError(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := &Command{
		Flags: flag.NewFlagSet("fail", flag.ContinueOnError),
		Usage: "fail",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return errFailing
		},
	}
	code := cmd.Run(context.Background(), NewIO(&out, &errOut), nil)
	if code != 1 {
		t.Fatalf("code = %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "boom") {
		t.Fatalf("unexpected stderr: %s", errOut.String())
	}
}

func TestCommandRunPrintsHelpOnFlagParseError(t *testing.T) {
	var out, errOut bytes.Buffer
	flags := flag.NewFlagSet("strict", flag.ContinueOnError)
	flags.Bool("known", false, "a known flag")
	cmd := &Command{
		Flags: flags,
		Usage: "strict",
		Short: "a strict command",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			t.Fatal("Exec should not run when flag parsing fails")
			return nil
		},
	}
	code := cmd.Run(context.Background(), NewIO(&out, &errOut), []string{"--unknown"})
	if code != 1 {
		t.Fatalf("code = %d, want 1", code)
	}
	if !strings.Contains(out.String(), "a strict command") {
		t.Fatalf("expected help to be printed, got: %s", out.String())
	}
}

var errFailing = errBoom{}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
