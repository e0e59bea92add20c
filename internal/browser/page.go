package browser

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const toastID = "menuscout-notification"

// toastColors mirrors the notice levels: success, warning, error, info.
var toastColors = map[string]string{
	"success": "#4caf50",
	"warning": "#ff9800",
	"error":   "#f44336",
	"info":    "#2196f3",
}

// Toast shows a transient notification in the top right corner of the page.
// Any previous notification is replaced; the element removes itself after 3s.
func Toast(page *rod.Page, message, level string) error {
	color, ok := toastColors[level]
	if !ok {
		color = toastColors["info"]
	}

	_, err := page.Timeout(5*time.Second).Eval(`(id, message, color) => {
		const existing = document.getElementById(id);
		if (existing) existing.remove();

		const el = document.createElement('div');
		el.id = id;
		el.textContent = message;
		el.style.cssText = [
			'position: fixed', 'top: 20px', 'right: 20px', 'padding: 12px 20px',
			'background: ' + color, 'color: #fff', 'border-radius: 8px',
			'font-family: -apple-system, BlinkMacSystemFont, sans-serif', 'font-size: 14px',
			'box-shadow: 0 4px 12px rgba(0, 0, 0, 0.15)', 'z-index: 999999',
			'transition: opacity 0.3s, transform 0.3s',
		].join(';');
		document.body.appendChild(el);

		setTimeout(() => {
			el.style.opacity = '0';
			el.style.transform = 'translateY(-10px)';
			setTimeout(() => el.remove(), 300);
		}, 3000);
	}`, toastID, message, color)
	if err != nil {
		return fmt.Errorf("failed to show notification: %w", err)
	}
	return nil
}

// Probe reports DOM activity on a live page: inserted item-like nodes and
// the scroll position.
type Probe struct {
	eval         evalFunc
	itemLike     string
	bottomOffset int
	seen         int
	lastY        int
}

// NewProbe installs a MutationObserver on the page counting inserted nodes
// that match (or contain) the itemLike selector group.
func NewProbe(page *rod.Page, itemLike string, bottomOffset int) (*Probe, error) {
	return newProbe(pageEval(page), itemLike, bottomOffset)
}

// evalFunc runs a JS function on the page and returns its result.
type evalFunc func(js string, args ...interface{}) (*proto.RuntimeRemoteObject, error)

func pageEval(page *rod.Page) evalFunc {
	return func(js string, args ...interface{}) (*proto.RuntimeRemoteObject, error) {
		return page.Timeout(5*time.Second).Eval(js, args...)
	}
}

func newProbe(eval evalFunc, itemLike string, bottomOffset int) (*Probe, error) {
	p := &Probe{eval: eval, itemLike: itemLike, bottomOffset: bottomOffset}
	if err := p.install(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Probe) install() error {
	// An observer left by an earlier install keeps counting; start from its count.
	res, err := p.eval(`(sel) => {
		if (window.__menuscout) return window.__menuscout.added;
		const state = { added: 0 };
		window.__menuscout = state;

		const hit = (node) => {
			if (node.nodeType !== Node.ELEMENT_NODE) return false;
			try {
				return node.matches(sel) || node.querySelector(sel) !== null;
			} catch (e) {
				return false;
			}
		};
		new MutationObserver((mutations) => {
			if (mutations.some(m => Array.from(m.addedNodes).some(hit))) state.added++;
		}).observe(document.body, { childList: true, subtree: true });
		return 0;
	}`, p.itemLike)
	if err != nil {
		return fmt.Errorf("failed to install mutation observer: %w", err)
	}
	p.seen = res.Value.Int()
	return nil
}

// ItemsAdded reports whether item-like nodes were inserted since the last call.
func (p *Probe) ItemsAdded() (bool, error) {
	res, err := p.eval(`() => window.__menuscout ? window.__menuscout.added : -1`)
	if err != nil {
		return false, fmt.Errorf("failed to read mutation counter: %w", err)
	}

	added := res.Value.Int()
	if added < 0 {
		// The page navigated and lost the observer.
		return false, p.install()
	}
	changed := added != p.seen
	p.seen = added
	return changed, nil
}

// NearBottom reports whether the page was scrolled since the last call and
// the viewport is now within bottomOffset pixels of the end of the document.
// A page resting at the bottom does not keep reporting true.
func (p *Probe) NearBottom() (bool, error) {
	res, err := p.eval(`(offset) => ({
		y: Math.round(window.scrollY),
		near: (window.innerHeight + window.scrollY) >= (document.body.scrollHeight - offset),
	})`, p.bottomOffset)
	if err != nil {
		return false, fmt.Errorf("failed to read scroll position: %w", err)
	}

	y := res.Value.Get("y").Int()
	moved := y != p.lastY
	p.lastY = y
	return moved && res.Value.Get("near").Bool(), nil
}

// ScrollToBottom scrolls the window to the end of the document, which makes
// lazily loaded menus fetch their next batch.
func (p *Probe) ScrollToBottom() error {
	if _, err := p.eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}
