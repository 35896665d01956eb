// Command combos finds the subsets of a list of amounts that add up to a target.
//
//	combos -target 300 [-max 500] [-export N] [file]
//
// Amounts are read one per line from file, or from stdin when file is
// omitted or "-". Lines that are not amounts are skipped.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"combos/internal/cli"
	"combos/internal/config"
	"combos/internal/core"
	applog "combos/internal/log"
	"combos/internal/services"
	"combos/internal/sources/memory"
)

const (
	exitOK = iota
	exitIO
	exitUsage
	exitTimeout
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cli.LoadEnvFile()

	fs := flag.NewFlagSet("combos", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		flagTarget string
		flagMax    string
		flagExport int
		flagQuiet  bool
	)
	fs.StringVar(&flagTarget, "target", "", "target amount, e.g. 300 or $1,234.56 (required)")
	fs.StringVar(&flagMax, "max", "", "maximum number of combinations to report (default 500)")
	fs.IntVar(&flagExport, "export", 0, "print the tab-separated export of combination N instead of the list")
	fs.BoolVar(&flagQuiet, "q", false, "do not list the parsed entries")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: combos -target AMOUNT [-max N] [-export N] [file]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return exitUsage
	}

	cfg := config.Load()
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(envOr("LOG_LEVEL", "warn")),
		Format:    cfg.LogFormat,
		Component: applog.ComponentCLI,
		Output:    stderr,
	})

	store, err := openInput(fs.Arg(0), stdin)
	if err != nil {
		fmt.Fprintf(stderr, "combos: %v\n", err)
		return exitIO
	}
	lines, err := store.ReadLines(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "combos: %v\n", err)
		return exitIO
	}

	opts := services.OptionsFromConfig(cfg)
	opts.CacheSize = 0
	svc := services.NewSearchService(opts, logger)

	req := services.SearchRequest{Lines: lines, Target: flagTarget, MaxCount: flagMax}
	if flagExport != 0 {
		out, err := svc.Export(context.Background(), req, flagExport)
		if err != nil {
			return reportError(stderr, err)
		}
		fmt.Fprintln(stdout, out)
		return exitOK
	}

	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		return reportError(stderr, err)
	}
	if !flagQuiet {
		printEntries(stdout, resp.Entries)
	}
	printCombinations(stdout, resp.Result)
	fmt.Fprintln(stdout, resp.Status)
	return exitOK
}

func openInput(path string, stdin io.Reader) (*memory.Store, error) {
	if path == "" || path == "-" {
		return memory.NewFromReader(stdin)
	}
	return memory.NewFromFile(path)
}

func printEntries(w io.Writer, entries []core.Entry) {
	if len(entries) == 1 {
		fmt.Fprintln(w, "Parsed 1 entry.")
	} else {
		fmt.Fprintf(w, "Parsed %d entries.\n", len(entries))
	}
	for _, e := range entries {
		fmt.Fprintf(w, "  #%d %s\t%s\n", e.Index, core.FormatCents(e.Cents), e.Text)
	}
}

func printCombinations(w io.Writer, res core.SearchResult) {
	for i, c := range res.Combinations {
		chips := make([]string, len(c.Items))
		for j, e := range c.Items {
			chips[j] = fmt.Sprintf("#%d %s", e.Index, core.FormatCents(e.Cents))
		}
		fmt.Fprintf(w, "Combo %d · sum = %s: %s\n", i+1, core.FormatCents(c.Sum), strings.Join(chips, ", "))
	}
}

func reportError(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "combos: %s\n", services.UserMessage(err))
	switch {
	case errors.Is(err, services.ErrSearchTimeout):
		return exitTimeout
	case services.IsValidation(err):
		return exitUsage
	default:
		return exitIO
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
