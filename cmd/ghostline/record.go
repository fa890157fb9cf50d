package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/joboya/ghostline/internal/auditlog"
	"github.com/joboya/ghostline/internal/cli"
	"github.com/joboya/ghostline/internal/config"
	"github.com/joboya/ghostline/internal/logging"
	"github.com/joboya/ghostline/internal/recorder"
)

func recordCmd(cfg *config.Config, in io.Reader) *cli.Command {
	flags := flag.NewFlagSet("record", flag.ContinueOnError)
	stdinPairs := flags.Bool("stdin-pairs", false, "read request/response/latency triples from stdin")

	return &cli.Command{
		Flags: flags,
		Usage: "record <file> --stdin-pairs",
		Short: "capture request/response pairs into a .ghostline container",
		Long: "Reads newline-delimited \"request\\tresponse\\tlatency_ms\" triples from\n" +
			"stdin, scrubs each pair, and appends it as a frame to <file>. Stands in\n" +
			"for a real client adapter's invoke() calls.",
		Exec: func(ctx context.Context, o *cli.IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one <file> argument")
			}
			if !*stdinPairs {
				return fmt.Errorf("--stdin-pairs is required (no other adapter is wired up)")
			}
			path := args[0]

			scrubCfg, err := buildScrubConfig(cfg)
			if err != nil {
				return err
			}

			auditLog, err := auditlog.Open(cfg.AuditLogPath)
			if err != nil {
				return err
			}
			defer auditLog.Close()

			rec, err := recorder.New(path, recorder.Options{
				Scrub:    scrubCfg,
				AuditLog: auditLog,
				Logger:   logging.L(),
			})
			if err != nil {
				return err
			}
			if err := rec.Start(); err != nil {
				return err
			}
			defer rec.Stop()

			scanner := bufio.NewScanner(in)
			scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
			captured := 0
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					continue
				}
				request, response, latencyMs, ok := parsePairLine(line)
				if !ok {
					o.ErrPrintln("skipping malformed line:", line)
					continue
				}
				if err := rec.Capture([]byte(request), []byte(response), latencyMs); err != nil {
					return fmt.Errorf("capture: %w", err)
				}
				captured++
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			o.Printf("captured %d frame(s) into %s\n", captured, path)
			return nil
		},
	}
}
