package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/joboya/ghostline/internal/cli"
	"github.com/joboya/ghostline/internal/config"
	"github.com/joboya/ghostline/internal/replayer"
)

func replayCmd(cfg *config.Config, in io.Reader) *cli.Command {
	flags := flag.NewFlagSet("replay", flag.ContinueOnError)

	return &cli.Command{
		Flags: flags,
		Usage: "replay <file>",
		Short: "serve cached responses for request/response triples read from stdin",
		Long: "Starts a replayer over <file> and, for every \"request\\tresponse\\t\n" +
			"latency_ms\" triple read from stdin, looks the request up and reports a\n" +
			"hit or miss. The response/latency columns are ignored — lookups are by\n" +
			"request only, mirroring how a real adapter call is intercepted.",
		Exec: func(ctx context.Context, o *cli.IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one <file> argument")
			}
			path := args[0]

			r := replayer.New(path, replayer.Options{})
			if err := r.Start(); err != nil {
				return err
			}
			defer r.Stop()

			scanner := bufio.NewScanner(in)
			scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					continue
				}
				request, _, _, ok := parsePairLine(line)
				if !ok {
					o.ErrPrintln("skipping malformed line:", line)
					continue
				}
				resp, hit, err := r.Lookup([]byte(request))
				if err != nil {
					return fmt.Errorf("lookup: %w", err)
				}
				if hit {
					o.Printf("hit: %s\n", resp)
				} else {
					o.Printf("miss: %s\n", request)
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			stats := r.Snapshot()
			o.Printf("hits=%d misses=%d\n", stats.Hits, stats.Misses)
			return nil
		},
	}
}
