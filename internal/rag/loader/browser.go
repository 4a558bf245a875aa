package loader

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// BrowserRenderer loads pages in headless Chrome so client-side rendered
// content is included.
type BrowserRenderer struct {
	allocOpts []chromedp.ExecAllocatorOption
}

// NewBrowserRenderer returns a renderer using chromedp's default headless
// flags.
func NewBrowserRenderer() *BrowserRenderer {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.DisableGPU, chromedp.NoSandbox)
	return &BrowserRenderer{allocOpts: opts}
}

// Render navigates to pageURL and returns document.body.innerText. Each call
// starts and tears down its own browser; ctx bounds the whole lifetime.
func (b *BrowserRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var text string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(`document.body.innerText`, &text),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", pageURL, err)
	}
	return text, nil
}
