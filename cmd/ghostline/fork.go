package main

import (
	"context"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/joboya/ghostline/internal/cli"
	"github.com/joboya/ghostline/internal/fork"
)

func forkCmd() *cli.Command {
	flags := flag.NewFlagSet("fork", flag.ContinueOnError)
	atStep := flags.Uint32("at-step", 0, "index of the last parent frame to include, inclusive")
	out := flags.String("out", "", "path for the forked container (defaults to <file> with a .fork suffix)")

	return &cli.Command{
		Flags: flags,
		Usage: "fork <file> --at-step N [--out path]",
		Short: "derive a child container from a parent's frame prefix",
		Long:  "Copies the parent's frames [0, N] inclusive into a new container and stamps\nit with parent_run_id/fork_at_step lineage (spec §4.G).",
		Exec: func(ctx context.Context, o *cli.IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one <file> argument")
			}
			parentPath := args[0]

			childPath := *out
			if childPath == "" {
				childPath = strings.TrimSuffix(parentPath, ".ghostline") + ".fork.ghostline"
			}

			if err := fork.Fork(parentPath, childPath, *atStep); err != nil {
				return err
			}
			o.Printf("forked %s at step %d -> %s\n", parentPath, *atStep, childPath)
			return nil
		},
	}
}
