package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/skinledger/config"
	"github.com/etnz/skinledger/inventory"
	"github.com/etnz/skinledger/store"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

type importCmd struct {
	template string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "add the items of a Steam inventory to the ledger" }
func (*importCmd) Usage() string {
	return `skl import [-template <workbook>] <inventory-url>

Opens the public inventory at <inventory-url> in headless Chrome, reads
every item and appends a row for each marketable one. The inventory URL
looks like https://steamcommunity.com/id/<name>/inventory/.

With -template, the rows are added to a copy of the template workbook,
saved as the ledger.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.template, "template", "", "workbook to start from instead of the ledger")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: an inventory URL is required")
		f.Usage()
		return subcommands.ExitUsageError
	}
	addr, err := inventory.PageURL(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	cfg, log, status := setup()
	if status != subcommands.ExitSuccess {
		return status
	}

	browser, err := inventory.Open(ctx, addr, cfg.Inventory.ChromePath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer browser.Close()

	items, err := inventory.Scrape(ctx, browser, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	n, err := importItems(items, cfg, c.template, time.Now(), log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Successfully added %d item(s) to %s\n", n, cfg.Workbook)
	return subcommands.ExitSuccess
}

// importItems appends items to the ledger (or to a copy of template) and
// saves it. It returns the number of rows added.
func importItems(items []inventory.Item, cfg *config.Config, template string, today time.Time, log zerolog.Logger) (int, error) {
	src := cfg.Workbook
	if template != "" {
		src = template
	}
	w, err := store.Open(src, cfg.Currency)
	if err != nil {
		return 0, err
	}
	defer w.Close()
	w.SetLogger(log)

	n, err := inventory.Import(items, w, inventory.Options{
		Date:      today,
		Currency:  cfg.Currency,
		Wearables: cfg.Inventory.Wearables,
		Rarities:  cfg.Inventory.Rarities,
	})
	if err != nil {
		return n, err
	}
	if err := w.ApplyDifferenceFormula(); err != nil {
		return n, err
	}
	log.Info().Int("items", len(items)).Int("imported", n).Msg("inventory imported")
	return n, w.SaveAs(cfg.Workbook, cfg.Mirror)
}
