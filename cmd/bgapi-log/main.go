// Command bgapi-log views and analyzes BGAPI protocol capture files.
//
// Capture files are written by bgapi-console and bgapi-sim with the
// -capture flag.
//
// Usage:
//
//	bgapi-log <command> [flags] <file.blog>
//
// Commands:
//
//	view     View capture in human-readable format
//	export   Export capture to JSONL or CSV
//	filter   Filter capture and write to a new file
//	stats    Show statistics about the capture
//
// Examples:
//
//	# View only decoded messages
//	bgapi-log view -layer codec session.blog
//
//	# View one command by name
//	bgapi-log view -name system_hello session.blog
//
//	# Export to CSV
//	bgapi-log export -format csv -o session.csv session.blog
//
//	# Keep only incoming frames
//	bgapi-log filter -direction in -layer transport -o rx.blog session.blog
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/bgapi-protocol/bgapi-go/cmd/bgapi-log/commands"
)

const usage = `bgapi-log - BGAPI Protocol Capture Analyzer

Usage:
  bgapi-log <command> [flags] <file.blog>

Commands:
  view     View capture in human-readable format
  export   Export capture to JSONL or CSV
  filter   Filter capture and write to a new file
  stats    Show statistics about the capture

Use "bgapi-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "view":
		err = runView(args)
	case "export":
		err = runExport(args)
	case "filter":
		err = runFilter(args)
	case "stats":
		err = runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newFlagSet creates a flag set with a usage header.
func newFlagSet(name, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "bgapi-log %s - %s\n\nUsage:\n  bgapi-log %s [flags] <file.blog>\n\nFlags:\n", name, summary, name)
		fs.PrintDefaults()
	}
	return fs
}

// addFilterFlags registers the shared filter flags.
func addFilterFlags(fs *flag.FlagSet, opts *commands.FilterOptions) {
	fs.StringVar(&opts.ConnID, "conn-id", "", "Filter by connection ID")
	fs.StringVar(&opts.Name, "name", "", "Filter by message name, e.g. system_hello")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339, inclusive)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339, exclusive)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, codec, session)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (message, state, error)")
}

// parsePath parses args and returns the single positional file argument.
func parsePath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) error {
	fs := newFlagSet("view", "View capture in human-readable format")
	var opts commands.FilterOptions
	addFilterFlags(fs, &opts)
	path := parsePath(fs, args)

	filter, err := opts.Build()
	if err != nil {
		return err
	}
	return commands.RunView(path, filter, os.Stdout)
}

func runExport(args []string) error {
	fs := newFlagSet("export", "Export capture to JSONL or CSV")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path := parsePath(fs, args)

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return commands.RunExport(path, *format, w)
}

func runFilter(args []string) error {
	fs := newFlagSet("filter", "Filter capture and write to a new file")
	output := fs.String("o", "", "Output file (required)")
	var opts commands.FilterOptions
	addFilterFlags(fs, &opts)
	path := parsePath(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	filter, err := opts.Build()
	if err != nil {
		return err
	}
	n, err := commands.RunFilter(path, *output, filter)
	if err != nil {
		return err
	}
	fmt.Printf("Filtered %d events to %s\n", n, *output)
	return nil
}

func runStats(args []string) error {
	fs := newFlagSet("stats", "Show statistics about the capture")
	path := parsePath(fs, args)
	return commands.RunStats(path, os.Stdout)
}
