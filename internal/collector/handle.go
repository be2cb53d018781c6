package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/yacobolo/tokensmith/internal/tokens"
)

// elementLookup bounds how long a handle waits for its element
const elementLookup = 2 * time.Second

const stylesScript = `function(props) {
	const cs = getComputedStyle(this);
	const out = {};
	for (const p of props) out[p] = cs.getPropertyValue(p);
	return out;
}`

const extrasScript = `function() {
	const out = [];
	if (this.disabled || this.getAttribute("aria-disabled") === "true") out.push("disabled");
	if (this.getAttribute("aria-selected") === "true" || this.getAttribute("aria-current")) out.push("selected");
	if (this.getAttribute("aria-pressed") === "true") out.push("pressed");
	if (this.getAttribute("aria-busy") === "true") out.push("loading");
	return out;
}`

// rodHandle drives one live element for the state engine
type rodHandle struct {
	page      *rod.Page
	selector  string
	candidate tokens.Candidate

	mu        sync.Mutex
	el        *rod.Element
	mouseDown bool
}

func newRodHandle(page *rod.Page, id string, c tokens.Candidate) *rodHandle {
	return &rodHandle{
		page:      page,
		selector:  fmt.Sprintf("[%s=%q]", handleAttr, id),
		candidate: c,
	}
}

func (h *rodHandle) element(ctx context.Context) (*rod.Element, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.el == nil {
		el, err := h.page.Context(ctx).Timeout(elementLookup).Element(h.selector)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", h.candidate.SelectorPath, err)
		}
		h.el = el
	}
	return h.el.Context(ctx), nil
}

func (h *rodHandle) Styles(ctx context.Context, properties []string) (map[string]string, error) {
	el, err := h.element(ctx)
	if err != nil {
		return nil, err
	}
	res, err := el.Eval(stylesScript, properties)
	if err != nil {
		return nil, fmt.Errorf("computed styles %s: %w", h.candidate.SelectorPath, err)
	}
	return decodeStyles(res.Value), nil
}

func (h *rodHandle) Induce(ctx context.Context, state tokens.StateName) error {
	// extras are only reported when the element is already in them
	if state == tokens.StateDefault || state.IsExtra() {
		return nil
	}

	el, err := h.element(ctx)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		return err
	}

	switch state {
	case tokens.StateHover:
		return el.Hover()
	case tokens.StateFocusVisible:
		// a keyboard event first, so the focus that follows matches :focus-visible
		if err := h.page.Keyboard.Press(input.Shift); err != nil {
			return err
		}
		return el.Focus()
	case tokens.StateActive:
		if err := el.Hover(); err != nil {
			return err
		}
		if err := h.page.Mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		h.mu.Lock()
		h.mouseDown = true
		h.mu.Unlock()
		return nil
	}
	return fmt.Errorf("state %s cannot be induced on a live page", state)
}

func (h *rodHandle) Reset(ctx context.Context) error {
	el, err := h.element(ctx)
	if err != nil {
		return err
	}

	h.mu.Lock()
	down := h.mouseDown
	h.mouseDown = false
	h.mu.Unlock()
	// release outside the element so no click fires
	if err := el.MoveMouseOut(); err != nil {
		return err
	}
	if down {
		if err := h.page.Mouse.Up(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
	}
	return el.Blur()
}

func (h *rodHandle) Navigational() bool {
	return h.candidate.Navigational()
}

func (h *rodHandle) ObservedExtras(ctx context.Context) ([]tokens.StateName, error) {
	el, err := h.element(ctx)
	if err != nil {
		return nil, err
	}
	res, err := el.Eval(extrasScript)
	if err != nil {
		return nil, err
	}
	return decodeStates(res.Value), nil
}
