// Command skl keeps the current market value of a CS2 item ledger up to date.
//
// Run 'skl help' for the list of commands and 'skl topic' for the
// documentation. Shell completion is installed with COMP_INSTALL=1 skl.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"

	"github.com/etnz/skinledger/cmd"
	"github.com/etnz/skinledger/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// completion describes the command line for shell completion.
func completion() *complete.Command {
	workbooks := predict.Files("*.xlsx")
	topics, _ := docs.List()
	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"config":   predict.Files("*.yaml"),
			"workbook": workbooks,
			"v":        predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"update": {Flags: map[string]complete.Predictor{
				"mode":     predict.Set{"live", "24h", "7d"},
				"retries":  predict.Something,
				"throttle": predict.Something,
				"rate":     predict.Something,
				"dry-run":  predict.Nothing,
			}},
			"import": {
				Flags: map[string]complete.Predictor{"template": workbooks},
				Args:  predict.Something,
			},
			"history": {Flags: map[string]complete.Predictor{"n": predict.Something}},
			"report":  {Flags: map[string]complete.Predictor{"html": predict.Files("*.html")}},
			"topic":   {Args: predict.Set(topics)},
			"help":    {},
		},
	}
}

func main() {
	name := path.Base(os.Args[0])
	completion().Complete(name)

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
