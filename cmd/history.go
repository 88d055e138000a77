package cmd

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/skinledger/history"
	"github.com/etnz/skinledger/renderer"
	"github.com/google/subcommands"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type historyCmd struct {
	n int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list the latest price checks" }
func (*historyCmd) Usage() string {
	return `skl history [-n N]

Lists the most recent runs of skl update, most recent first.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.n, "n", 10, "number of runs to list")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.n < 1 {
		fmt.Fprintln(os.Stderr, "Error: -n must be positive")
		return subcommands.ExitUsageError
	}
	cfg, _, status := setup()
	if status != subcommands.ExitSuccess {
		return status
	}
	runs, err := latest(ctx, cfg.History, c.n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderHistory(runs))
	return subcommands.ExitSuccess
}

type reportCmd struct {
	html string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "render the report of the last price check" }
func (*reportCmd) Usage() string {
	return `skl report [-html <file>]

Renders the report of the last run of skl update, in the terminal or as an
HTML page.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.html, "html", "", "write the report as HTML to this file")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, _, status := setup()
	if status != subcommands.ExitSuccess {
		return status
	}
	runs, err := latest(ctx, cfg.History, 1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no price check recorded yet")
		return subcommands.ExitFailure
	}
	md := renderer.RenderRun(runs[0])

	if c.html == "" {
		printMarkdown(md)
		return subcommands.ExitSuccess
	}
	if err := writeHTML(c.html, md); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Successfully wrote %s\n", c.html)
	return subcommands.ExitSuccess
}

func latest(ctx context.Context, path string, n int) ([]history.Run, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	db, err := history.Open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.Latest(ctx, n)
}

// writeHTML converts md to a standalone HTML page written to path.
func writeHTML(path, md string) error {
	conv := goldmark.New(goldmark.WithExtensions(extension.Table))
	var body bytes.Buffer
	if err := conv.Convert([]byte(md), &body); err != nil {
		return fmt.Errorf("could not convert report: %w", err)
	}
	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>skl report</title></head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return os.WriteFile(path, page.Bytes(), 0644)
}
