package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/mvidia/checkout-guard/internal/overlay"
	"github.com/mvidia/checkout-guard/internal/page"
)

// bindingName is the CDP binding the injected script calls to forward
// page events.
const bindingName = "__checkoutGuardEmit"

const snapshotTimeout = 20 * time.Second

// Browser attaches the guard to a headless Chrome tab. It implements
// both the session's Page interface and the overlay Surface.
type Browser struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// BrowserOpts configures the headless browser.
type BrowserOpts struct {
	Headless bool
}

// NewBrowser launches Chrome and opens a blank tab.
func NewBrowser(ctx context.Context, opts BrowserOpts) (*Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Browser{ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc}, nil
}

// Open installs the event binding and page script, then navigates to
// the URL. The script is registered for evaluation on every new
// document so SPA navigations keep their observers.
func (b *Browser) Open(url string, onEvent func(Event)) error {
	chromedp.ListenTarget(b.ctx, func(ev interface{}) {
		call, ok := ev.(*runtime.EventBindingCalled)
		if !ok || call.Name != bindingName {
			return
		}
		var event Event
		if err := json.Unmarshal([]byte(call.Payload), &event); err != nil {
			log.Warn().Err(err).Msg("failed to decode page event")
			return
		}
		onEvent(event)
	})

	err := chromedp.Run(b.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return runtime.AddBinding(bindingName).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := cdppage.AddScriptToEvaluateOnNewDocument(observerScript).Do(ctx)
			return err
		}),
		chromedp.Navigate(url),
		chromedp.Evaluate(observerScript, nil),
	)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}

	log.Info().Str("url", url).Msg("page opened")
	return nil
}

// Snapshot annotates computed styles page-side and captures the current
// document.
func (b *Browser) Snapshot(ctx context.Context) (*page.Snapshot, error) {
	tctx, cancel := context.WithTimeout(b.ctx, snapshotTimeout)
	defer cancel()

	var rawURL, title, markup string
	err := chromedp.Run(tctx,
		chromedp.Evaluate("window.__checkoutGuardAnnotate && window.__checkoutGuardAnnotate()", nil),
		chromedp.Location(&rawURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &markup),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture snapshot: %w", err)
	}

	return page.Parse(rawURL, title, markup)
}

// WatchTotal points the dedicated page-side observer at the node
// addressed by path.
func (b *Browser) WatchTotal(ctx context.Context, path string) error {
	return b.eval(fmt.Sprintf("window.__checkoutGuardWatchTotal(%s)", jsString(path)))
}

// Mount injects the shadow-host overlay container with its styles.
func (b *Browser) Mount(ctx context.Context) error {
	return b.eval(fmt.Sprintf(mountScript, jsString(overlay.Styles())))
}

// Update replaces the overlay card markup.
func (b *Browser) Update(ctx context.Context, markup string) error {
	return b.eval(fmt.Sprintf("window.__checkoutGuardUpdate(%s)", jsString(markup)))
}

// SetVisible toggles the overlay. Focus is saved and restored page-side
// so showing the card does not steal the user's input position.
func (b *Browser) SetVisible(ctx context.Context, visible bool) error {
	return b.eval(fmt.Sprintf("window.__checkoutGuardSetVisible(%t)", visible))
}

// Toast shows a transient notice outside the card.
func (b *Browser) Toast(ctx context.Context, message, tone string) error {
	return b.eval(fmt.Sprintf("window.__checkoutGuardToast(%s, %s)", jsString(message), jsString(tone)))
}

// Close tears down the tab and browser process.
func (b *Browser) Close() {
	b.cancelTab()
	b.cancelAlloc()
}

func (b *Browser) eval(expr string) error {
	return chromedp.Run(b.ctx, chromedp.Evaluate(expr, nil))
}

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}
