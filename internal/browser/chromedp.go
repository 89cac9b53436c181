package browser

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// opTimeout bounds individual CDP round trips that are not themselves
// waits (text reads, clicks on already-located nodes).
const opTimeout = 10 * time.Second

// Browser owns one Chrome process; tabs are created per external system.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	log         *slog.Logger
}

// Launch starts Chrome. Headful mode is used by the one-time credential
// capture so the operator can log in by hand.
func Launch(ctx context.Context, headless bool, log *slog.Logger) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", headless),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	return &Browser{allocCtx: allocCtx, allocCancel: cancel, log: log}, nil
}

func (b *Browser) Close() {
	b.allocCancel()
}

// NewTab opens a tab and returns it with its release func.
func (b *Browser) NewTab() (*Tab, func(), error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)
	// Force the tab into existence so cookie import works before the
	// first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, nil, err
	}
	return &Tab{ctx: tabCtx, log: b.log}, cancel, nil
}

// Tab implements Page over one chromedp tab context.
type Tab struct {
	ctx context.Context
	log *slog.Logger
}

// run executes actions against the tab, honoring both the caller's context
// and an optional per-call timeout, and maps a dead tab to ErrClosed.
func (t *Tab) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rctx := t.ctx
	cancel := func() {}
	if timeout > 0 {
		rctx, cancel = context.WithTimeout(t.ctx, timeout)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(rctx, actions...) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if t.ctx.Err() != nil {
			return ErrClosed
		}
		return err
	}
}

func (t *Tab) Navigate(ctx context.Context, url string) error {
	return t.run(ctx, 30*time.Second, chromedp.Navigate(url))
}

func (t *Tab) URL(ctx context.Context) (string, error) {
	var u string
	err := t.run(ctx, opTimeout, chromedp.Location(&u))
	return u, err
}

func (t *Tab) WaitVisible(ctx context.Context, sel string, timeout time.Duration) bool {
	return t.run(ctx, timeout, chromedp.WaitVisible(sel, chromedp.BySearch)) == nil
}

func (t *Tab) WaitGone(ctx context.Context, sel string, timeout time.Duration) bool {
	return t.run(ctx, timeout, chromedp.WaitNotPresent(sel, chromedp.BySearch)) == nil
}

func (t *Tab) Click(ctx context.Context, sel string, force bool) error {
	err := t.run(ctx, opTimeout, chromedp.Click(sel, chromedp.BySearch, chromedp.NodeVisible))
	if err == nil || !force {
		return err
	}
	// Raw mouse event on the first match; some controls swallow the
	// normal click path while overlays are animating.
	els, qerr := t.QueryAll(ctx, sel)
	if qerr != nil {
		return qerr
	}
	if len(els) == 0 {
		return ErrNotFound
	}
	return els[0].Click(ctx)
}

func (t *Tab) Fill(ctx context.Context, sel, text string) error {
	return t.run(ctx, opTimeout,
		chromedp.SetValue(sel, "", chromedp.BySearch),
		chromedp.SendKeys(sel, text, chromedp.BySearch),
	)
}

func (t *Tab) Text(ctx context.Context, sel string) (string, error) {
	var s string
	if err := t.run(ctx, opTimeout, chromedp.Text(sel, &s, chromedp.BySearch)); err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (t *Tab) QueryAll(ctx context.Context, sel string) ([]Element, error) {
	var nodes []*cdp.Node
	err := t.run(ctx, opTimeout,
		chromedp.Nodes(sel, &nodes, chromedp.BySearch, chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	els := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &element{tab: t, node: n})
	}
	return els, nil
}

func (t *Tab) Content(ctx context.Context) (string, error) {
	var html string
	err := t.run(ctx, opTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (t *Tab) PressEscape(ctx context.Context) error {
	return t.run(ctx, opTimeout, chromedp.KeyEvent(kb.Escape))
}

// ExportCookies snapshots the tab's cookies for session persistence.
func (t *Tab) ExportCookies(ctx context.Context) ([]Cookie, error) {
	var out []Cookie
	err := t.run(ctx, opTimeout, chromedp.ActionFunc(func(cctx context.Context) error {
		cookies, err := storage.GetCookies().Do(cctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
			})
		}
		return nil
	}))
	return out, err
}

// ImportCookies restores a previously exported snapshot into the tab.
func (t *Tab) ImportCookies(ctx context.Context, cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &exp
		}
		params = append(params, p)
	}
	return t.run(ctx, opTimeout, chromedp.ActionFunc(func(cctx context.Context) error {
		return storage.SetCookies(params).Do(cctx)
	}))
}

type element struct {
	tab  *Tab
	node *cdp.Node
}

func (e *element) Text(ctx context.Context) (string, error) {
	var s string
	err := e.tab.run(ctx, opTimeout,
		chromedp.Text(e.node.FullXPath(), &s, chromedp.BySearch))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (e *element) Click(ctx context.Context) error {
	return e.tab.run(ctx, opTimeout, chromedp.MouseClickNode(e.node))
}

func (e *element) Attr(ctx context.Context, name string) (string, bool, error) {
	// Attributes were captured when the node was queried; a stale read is
	// acceptable for the class/value/disabled checks this serves.
	attrs := e.node.Attributes
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == name {
			return attrs[i+1], true, nil
		}
	}
	return "", false, nil
}

func (e *element) Query(ctx context.Context, sel string) ([]Element, error) {
	var nodes []*cdp.Node
	err := e.tab.run(ctx, opTimeout,
		chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	els := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &element{tab: e.tab, node: n})
	}
	return els, nil
}
