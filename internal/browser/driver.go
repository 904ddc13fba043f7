package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/wolfman30/wa-campaign-sender/internal/automation"
)

var errNoElement = errors.New("browser: no element matches")

// Driver implements automation.Driver on a chromedp tab. Element lookups run
// as XPath evaluations inside the page so a missing element never blocks.
type Driver struct {
	tab context.Context
}

func NewDriver(tab context.Context) *Driver {
	return &Driver{tab: tab}
}

// run executes actions on the tab, cancelled early when ctx is done.
func (d *Driver) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return d.classify(op, chromedp.Run(runCtx, actions...))
}

// classify wraps errors that mean the browser or tab is gone in
// automation.ErrSessionLost; everything else stays transient.
func (d *Driver) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if d.tab.Err() != nil || sessionGone(err) {
		return fmt.Errorf("browser: %s: %w: %v", op, automation.ErrSessionLost, err)
	}
	return fmt.Errorf("browser: %s: %w", op, err)
}

var sessionLostMarkers = []string{
	"target closed",
	"inspected target navigated or closed",
	"no target with given id",
	"session with given id not found",
	"websocket: close",
	"use of closed network connection",
	"browser has been closed",
	"connection reset by peer",
}

func sessionGone(err error) bool {
	if errors.Is(err, chromedp.ErrInvalidContext) || errors.Is(err, chromedp.ErrChannelClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range sessionLostMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// xpathScript wraps body in a function receiving the snapshot of xpath as nodes.
func xpathScript(xpath, body string) string {
	quoted, _ := json.Marshal(xpath)
	return fmt.Sprintf(`(function(xp) {
	const snap = document.evaluate(xp, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	const nodes = [];
	for (let i = 0; i < snap.snapshotLength; i++) nodes.push(snap.snapshotItem(i));
	const el = nodes.length > 0 ? nodes[0] : null;
	%s
})(%s)`, body, quoted)
}

const (
	countBody   = `return nodes.length;`
	visibleBody = `if (!el) return false;
	const style = window.getComputedStyle(el);
	if (style.visibility === 'hidden' || style.display === 'none') return false;
	return el.getClientRects().length > 0;`
	textBody   = `if (!el) return {found: false, text: ''}; return {found: true, text: el.textContent || ''};`
	labelsBody = `return nodes.map(n => (n.getAttribute('aria-label') || n.getAttribute('title') || n.innerText || n.textContent || '').trim());`
	clickBody  = `if (!el) return false; el.click(); return true;`
	focusBody  = `if (!el) return false; el.focus(); return true;`
	rectBody   = `if (!el) return {found: false, x: 0, y: 0};
	el.scrollIntoView({block: 'center', inline: 'center'});
	const r = el.getBoundingClientRect();
	return {found: true, x: r.left + r.width / 2, y: r.top + r.height / 2};`
)

func (d *Driver) Count(ctx context.Context, xpath string) (int, error) {
	var n int
	if err := d.run(ctx, "count", chromedp.Evaluate(xpathScript(xpath, countBody), &n)); err != nil {
		return 0, err
	}
	return n, nil
}

func (d *Driver) Visible(ctx context.Context, xpath string) (bool, error) {
	var ok bool
	if err := d.run(ctx, "visible", chromedp.Evaluate(xpathScript(xpath, visibleBody), &ok)); err != nil {
		return false, err
	}
	return ok, nil
}

func (d *Driver) Text(ctx context.Context, xpath string) (string, error) {
	var res struct {
		Found bool   `json:"found"`
		Text  string `json:"text"`
	}
	if err := d.run(ctx, "text", chromedp.Evaluate(xpathScript(xpath, textBody), &res)); err != nil {
		return "", err
	}
	if !res.Found {
		return "", fmt.Errorf("browser: text %s: %w", xpath, errNoElement)
	}
	return res.Text, nil
}

func (d *Driver) Labels(ctx context.Context, xpath string) ([]string, error) {
	var labels []string
	if err := d.run(ctx, "labels", chromedp.Evaluate(xpathScript(xpath, labelsBody), &labels)); err != nil {
		return nil, err
	}
	return labels, nil
}

func (d *Driver) Click(ctx context.Context, xpath string) error {
	return d.elementCall(ctx, "click", xpath, clickBody)
}

func (d *Driver) Focus(ctx context.Context, xpath string) error {
	return d.elementCall(ctx, "focus", xpath, focusBody)
}

func (d *Driver) elementCall(ctx context.Context, op, xpath, body string) error {
	var ok bool
	if err := d.run(ctx, op, chromedp.Evaluate(xpathScript(xpath, body), &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("browser: %s %s: %w", op, xpath, errNoElement)
	}
	return nil
}

type point struct {
	Found bool    `json:"found"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// PointerClick scrolls the element into view and clicks its center with real mouse events.
func (d *Driver) PointerClick(ctx context.Context, xpath string) error {
	var at point
	if err := d.run(ctx, "pointer click", chromedp.Evaluate(xpathScript(xpath, rectBody), &at)); err != nil {
		return err
	}
	if !at.Found {
		return fmt.Errorf("browser: pointer click %s: %w", xpath, errNoElement)
	}
	return d.run(ctx, "pointer click", chromedp.MouseClickXY(at.X, at.Y))
}

// keyStroke describes how a logical key is sent over CDP.
type keyStroke struct {
	key       string
	modifiers input.Modifier
	// commands are editing commands executed with the keydown (used for select-all,
	// which Chrome does not derive from synthetic Ctrl+A).
	commands []string
}

func strokeFor(key automation.Key) (keyStroke, bool) {
	switch key {
	case automation.KeyEnter:
		return keyStroke{key: kb.Enter}, true
	case automation.KeyShiftEnter:
		return keyStroke{key: kb.Enter, modifiers: input.ModifierShift}, true
	case automation.KeyEscape:
		return keyStroke{key: kb.Escape}, true
	case automation.KeyArrowDown:
		return keyStroke{key: kb.ArrowDown}, true
	case automation.KeyBackspace:
		return keyStroke{key: kb.Backspace}, true
	case automation.KeySelectAll:
		return keyStroke{key: "a", modifiers: input.ModifierCtrl, commands: []string{"selectAll"}}, true
	}
	return keyStroke{}, false
}

func (d *Driver) Press(ctx context.Context, key automation.Key) error {
	stroke, ok := strokeFor(key)
	if !ok {
		return fmt.Errorf("browser: unsupported key %q", key)
	}
	if len(stroke.commands) > 0 {
		return d.run(ctx, "press "+string(key),
			input.DispatchKeyEvent(input.KeyDown).
				WithKey(stroke.key).
				WithModifiers(stroke.modifiers).
				WithCommands(stroke.commands),
			input.DispatchKeyEvent(input.KeyUp).
				WithKey(stroke.key).
				WithModifiers(stroke.modifiers),
		)
	}
	return d.run(ctx, "press "+string(key), chromedp.KeyEvent(stroke.key, chromedp.KeyModifiers(stroke.modifiers)))
}

func (d *Driver) InsertText(ctx context.Context, text string) error {
	return d.run(ctx, "insert text", input.InsertText(text))
}

// SetFiles assigns files to a file input, which need not be visible.
func (d *Driver) SetFiles(ctx context.Context, xpath string, paths []string) error {
	n, err := d.Count(ctx, xpath)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("browser: set files %s: %w", xpath, errNoElement)
	}
	return d.run(ctx, "set files", chromedp.SetUploadFiles(xpath, paths, chromedp.BySearch))
}

func (d *Driver) URL(ctx context.Context) (string, error) {
	var url string
	if err := d.run(ctx, "url", chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, "navigate", chromedp.Navigate(url))
}

var _ automation.Driver = (*Driver)(nil)
