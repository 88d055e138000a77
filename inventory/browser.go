package inventory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// Browser is an inventory Page driven in headless Chrome.
type Browser struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

// Open starts headless Chrome (the one at execPath, or the one found on the
// system if empty), loads the inventory page at addr and dismisses the
// cookie banner. Close must be called to stop the browser.
func Open(ctx context.Context, addr, execPath string, log zerolog.Logger) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("silent", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(1600, 1200),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	b := &Browser{
		ctx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
		log: log,
	}

	if err := chromedp.Run(browserCtx, chromedp.Navigate(addr)); err != nil {
		b.Close()
		return nil, fmt.Errorf("could not load %q: %w", addr, err)
	}

	// the cookie banner is not shown to everyone.
	cookieCtx, cancel := context.WithTimeout(browserCtx, 10*time.Second)
	defer cancel()
	if err := chromedp.Run(cookieCtx, chromedp.Click("#acceptAllButton", chromedp.ByID, chromedp.NodeVisible)); err != nil {
		log.Debug().Err(err).Msg("no cookie banner")
	}
	return b, nil
}

// Close stops the browser.
func (b *Browser) Close() { b.cancel() }

// run runs actions in the browser tab, stopped when ctx is done.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (b *Browser) Slots(ctx context.Context) (int, error) {
	var n int
	err := b.run(ctx, chromedp.Evaluate(`document.querySelectorAll('.itemHolder').length`, &n))
	return n, err
}

func (b *Browser) Empty(ctx context.Context, i int) (bool, error) {
	var empty bool
	js := fmt.Sprintf(`document.querySelectorAll('.itemHolder')[%d].classList.contains('disabled')`, i)
	err := b.run(ctx, chromedp.Evaluate(js, &empty))
	return empty, err
}

// selectJS clicks a slot. The details pane has two blocks that take turns
// showing the selected item: the visible one is read.
const selectJS = `(() => {
	document.querySelectorAll('.itemHolder')[%d].click();
	const rhs = document.querySelector('.inventory_page_right');
	const names = Array.from(rhs.querySelectorAll('.hover_item_name'));
	const tags = Array.from(rhs.querySelectorAll('span.item_desc_descriptors'));
	let k = names.findIndex(e => e.offsetParent !== null);
	if (k < 0) k = 0;
	return {
		name: names[k] ? names[k].innerText.trim() : '',
		tags: tags[k] ? tags[k].innerText.trim() : ''
	};
})()`

func (b *Browser) Select(ctx context.Context, i int) (Item, error) {
	var details struct {
		Name string `json:"name"`
		Tags string `json:"tags"`
	}
	if err := b.run(ctx, chromedp.Evaluate(fmt.Sprintf(selectJS, i), &details)); err != nil {
		return Item{}, err
	}
	if details.Name == "" {
		return Item{}, fmt.Errorf("no item name displayed")
	}
	return Item{Name: details.Name, Tags: ParseTags(details.Tags)}, nil
}

func (b *Browser) Next(ctx context.Context) (bool, error) {
	var nodes []*cdp.Node
	if err := b.run(ctx, chromedp.Nodes("#pagebtn_next", &nodes, chromedp.ByID, chromedp.AtLeast(0))); err != nil {
		return false, err
	}
	if len(nodes) == 0 {
		return false, nil
	}
	if class, _ := nodes[0].Attribute("class"); containsClass(class, "disabled") {
		return false, nil
	}
	b.log.Debug().Msg("next inventory page")
	err := b.run(ctx,
		chromedp.Click("#pagebtn_next", chromedp.ByID),
		chromedp.Sleep(500*time.Millisecond),
	)
	return err == nil, err
}

func containsClass(class, name string) bool {
	return slices.Contains(strings.Fields(class), name)
}
