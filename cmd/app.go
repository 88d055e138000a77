// Package cmd implements the skl CLI application to keep an item ledger
// valued.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/skinledger/config"
	"github.com/etnz/skinledger/logging"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&updateCmd{}, "ledger")
	c.Register(&importCmd{}, "ledger")

	c.Register(&historyCmd{}, "reports")
	c.Register(&reportCmd{}, "reports")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configPath = flag.String("config", "skl.yaml", "Path to the YAML configuration file")
var workbookPath = flag.String("workbook", "", "Path to the ledger workbook, overrides the configuration")
var verbose = flag.Bool("v", false, "Log debug diagnostics")

// loadConfig loads the configuration and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}
	if *workbookPath != "" {
		cfg.Workbook = *workbookPath
	}
	if *verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger { return logging.Stderr(cfg.Verbose) }

// setup loads the configuration and the logger of a command, reporting
// failures the way commands do.
func setup() (*config.Config, zerolog.Logger, subcommands.ExitStatus) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, zerolog.Nop(), subcommands.ExitFailure
	}
	return cfg, newLogger(cfg), subcommands.ExitSuccess
}

// printMarkdown renders md for the terminal, or prints it raw if it cannot.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}
