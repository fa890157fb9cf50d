// Command ghostline is the one concrete consumer of the interception
// layer (spec.md §4.H): it exercises recording, replay, forking, and
// inspection of .ghostline containers without pulling in a real vendor
// SDK, standing in for a client adapter via newline-delimited
// request/response pairs on stdin.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joboya/ghostline/internal/cli"
	"github.com/joboya/ghostline/internal/config"
	"github.com/joboya/ghostline/internal/logging"
	"github.com/joboya/ghostline/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logging.ReplaceGlobals(logger)
	defer logger.Sync()

	metrics.ServeHTTP(cfg.MetricsAddr)

	os.Exit(run(cfg, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(cfg *config.Config, args []string, in io.Reader, out, errOut io.Writer) int {
	commands := allCommands(cfg, in)
	commandMap := make(map[string]*cli.Command, len(commands))
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
	}

	o := cli.NewIO(out, errOut)

	if len(args) == 0 {
		printUsage(o, commands)
		return 0
	}

	if args[0] == "--help" || args[0] == "-h" {
		printUsage(o, commands)
		return 0
	}

	cmd, ok := commandMap[args[0]]
	if !ok {
		o.ErrPrintln("error: unknown command:", args[0])
		printUsage(o, commands)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan int, 1)
	go func() { done <- cmd.Run(ctx, o, args[1:]) }()

	select {
	case exitCode := <-done:
		return exitCode
	case <-sigCh:
		o.ErrPrintln("interrupted, shutting down...")
		cancel()
		return <-done
	}
}

func allCommands(cfg *config.Config, in io.Reader) []*cli.Command {
	return []*cli.Command{
		recordCmd(cfg, in),
		replayCmd(cfg, in),
		forkCmd(),
		inspectCmd(),
	}
}

func printUsage(o *cli.IO, commands []*cli.Command) {
	o.Println("ghostline - record and replay LLM API call traces")
	o.Println()
	o.Println("Usage: ghostline <command> [args]")
	o.Println()
	o.Println("Commands:")
	for _, cmd := range commands {
		o.Println(cmd.HelpLine())
	}
	o.Println()
	o.Println("Run 'ghostline <command> --help' for details on a command.")
}

// parsePairLine splits one stdin line into its request/response/latency
// triple (tab-separated: "request\tresponse\tlatency_ms").
func parsePairLine(line string) (request, response string, latencyMs uint64, ok bool) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) != 3 {
		return "", "", 0, false
	}
	var latency uint64
	if _, err := fmt.Sscanf(parts[2], "%d", &latency); err != nil {
		return "", "", 0, false
	}
	return parts[0], parts[1], latency, true
}
