package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command defines one ghostline subcommand with unified help generation.
type Command struct {
	// Flags defines command-specific flags. The FlagSet's own name is
	// unused — command identity comes from Usage.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after "ghostline" in
	// help output. Includes the command name and its arguments.
	// Example: "fork <file> --at-step N [--out path]".
	Usage string

	// Short is a one-line description shown in the top-level command list.
	Short string

	// Long is the full description shown by "ghostline <cmd> --help".
	// Falls back to Short when empty.
	Long string

	// Exec runs the command after flags have been parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (the first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine returns the short help line shown in the top-level listing.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-28s %s", c.Usage, c.Short)
}

// PrintHelp prints full help for "ghostline <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: ghostline", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}
	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")
		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command, returning an exit code.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{}) // discard pflag's own output

	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)
			return 0
		}
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)
		return 1
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}
	return 0
}
