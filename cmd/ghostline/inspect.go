package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/peterh/liner"

	"github.com/joboya/ghostline/internal/cli"
	"github.com/joboya/ghostline/internal/ghostcontainer"
)

func inspectCmd() *cli.Command {
	flags := flag.NewFlagSet("inspect", flag.ContinueOnError)

	return &cli.Command{
		Flags: flags,
		Usage: "inspect <file>",
		Short: "interactively browse a .ghostline container",
		Long:  "Opens an interactive REPL (list/get/hash/info/help/exit) over <file>\nwithout mutating it.",
		Exec: func(ctx context.Context, o *cli.IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one <file> argument")
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			reader, err := ghostcontainer.OpenReader(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			defer reader.Close()

			repl := &inspectREPL{path: args[0], reader: reader, o: o}
			return repl.run()
		},
	}
}

type inspectREPL struct {
	path   string
	reader *ghostcontainer.Reader
	o      *cli.IO
	liner  *liner.State
}

func inspectHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ghostline_inspect_history")
}

func (r *inspectREPL) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()
	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(inspectHistoryFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	r.o.Printf("ghostline inspect %s (%d frames)\n", r.path, r.reader.FrameCount())
	r.o.Println("Type 'help' for available commands.")

	for {
		line, err := r.liner.Prompt("ghostline> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				r.o.Println("\nBye!")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		cmdArgs := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			r.saveHistory()
			return nil
		case "help", "?":
			r.printHelp()
		case "info":
			r.cmdInfo()
		case "list", "ls":
			r.cmdList(cmdArgs)
		case "get":
			r.cmdGet(cmdArgs)
		case "hash":
			r.cmdHash(cmdArgs)
		default:
			r.o.Printf("unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()
	return nil
}

func (r *inspectREPL) saveHistory() {
	if path := inspectHistoryFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *inspectREPL) completer(line string) []string {
	commands := []string{"list", "ls", "get", "hash", "info", "help", "exit", "quit", "q"}
	var out []string
	lower := strings.ToLower(line)
	for _, c := range commands {
		if strings.HasPrefix(c, lower) {
			out = append(out, c)
		}
	}
	return out
}

func (r *inspectREPL) printHelp() {
	r.o.Println("Commands:")
	r.o.Println("  list [limit]       Show frames in append order (default limit 20)")
	r.o.Println("  get <index>        Show one frame by index")
	r.o.Println("  hash <prefix>      Find frames whose request hash starts with <prefix>")
	r.o.Println("  info               Show container header info")
	r.o.Println("  help               Show this help")
	r.o.Println("  exit / quit / q    Exit")
}

func (r *inspectREPL) cmdInfo() {
	h := r.reader.Header()
	r.o.Printf("version:    %d\n", h.Version)
	r.o.Printf("started_at: %d\n", h.StartedAt)
	r.o.Printf("frames:     %d\n", r.reader.FrameCount())
	if h.GitSHA != nil {
		r.o.Printf("git_sha:    %x\n", *h.GitSHA)
	}
	if h.HasFork() {
		r.o.Printf("parent_run_id: %x\n", *h.ParentRunID)
		r.o.Printf("fork_at_step:  %d\n", h.ForkAtStep)
	}
}

func (r *inspectREPL) cmdList(args []string) {
	limit := 20
	if len(args) >= 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			r.o.Printf("error parsing limit: %v\n", err)
			return
		}
		limit = n
	}

	count := r.reader.FrameCount()
	shown := 0
	for i := 0; i < count && shown < limit; i++ {
		frame, err := r.reader.GetFrame(i)
		if err != nil {
			r.o.Printf("error reading frame %d: %v\n", i, err)
			return
		}
		r.o.Printf("%4d. hash=%s latency_ms=%d timestamp=%d\n",
			i, hex.EncodeToString(frame.RequestHash[:8]), frame.LatencyMs, frame.Timestamp)
		shown++
	}
	if count > shown {
		r.o.Printf("... (showing first %d of %d, use 'list <limit>' for more)\n", shown, count)
	}
}

func (r *inspectREPL) cmdGet(args []string) {
	if len(args) < 1 {
		r.o.Println("Usage: get <index>")
		return
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		r.o.Printf("error parsing index: %v\n", err)
		return
	}
	frame, err := r.reader.GetFrame(idx)
	if err != nil {
		r.o.Printf("error: %v\n", err)
		return
	}
	r.o.Printf("request_hash: %s\n", hex.EncodeToString(frame.RequestHash[:]))
	r.o.Printf("latency_ms:   %d\n", frame.LatencyMs)
	r.o.Printf("timestamp:    %d\n", frame.Timestamp)
	r.o.Printf("request:      %s\n", frame.RequestBytes)
	r.o.Printf("response:     %s\n", frame.ResponseBytes)
}

func (r *inspectREPL) cmdHash(args []string) {
	if len(args) < 1 {
		r.o.Println("Usage: hash <prefix>")
		return
	}
	prefix := strings.ToLower(args[0])

	count := r.reader.FrameCount()
	matches := 0
	for i := 0; i < count; i++ {
		frame, err := r.reader.GetFrame(i)
		if err != nil {
			r.o.Printf("error reading frame %d: %v\n", i, err)
			return
		}
		full := hex.EncodeToString(frame.RequestHash[:])
		if strings.HasPrefix(full, prefix) {
			r.o.Printf("%4d. hash=%s latency_ms=%d\n", i, full, frame.LatencyMs)
			matches++
		}
	}
	if matches == 0 {
		r.o.Println("(no matches)")
	}
}
