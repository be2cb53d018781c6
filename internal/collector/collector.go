// Package collector gathers page evidence from a live browser.
//
// It drives Chrome through go-rod with stealth applied, one tab per target:
// it sets the viewport and color scheme, loads the page, records font
// network responses, extracts candidate elements with their computed
// styles, and reads every stylesheet. The tab stays open until the
// evidence is released so the state engine can hover, focus and press
// elements through their handles.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/yacobolo/tokensmith"
	"github.com/yacobolo/tokensmith/internal/tokens"
)

// maxCuratedCandidates bounds curated extraction
const maxCuratedCandidates = 400

// Config configures the browser collector
type Config struct {
	// RemoteURL is the WebSocket URL of an already running Chrome.
	// Empty launches a local browser.
	RemoteURL string

	// Bin overrides the browser binary. Empty lets the launcher find or download one.
	Bin string

	// Headful shows the browser window.
	Headful bool

	// LoadsPerSecond throttles navigations per host. Default: 2.
	LoadsPerSecond float64

	// StylesheetTTL is how long fetched stylesheet bodies are reused. Default: 10m.
	StylesheetTTL time.Duration

	// IdleWait is how long to wait for network quiet after load. Default: 1s.
	IdleWait time.Duration

	// BroadCapture extracts every rendered element instead of the curated set.
	BroadCapture bool

	// Properties are the computed styles read per candidate. Default: tokens.StyleProperties.
	Properties []string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (c *Config) defaults() {
	if c.LoadsPerSecond == 0 {
		c.LoadsPerSecond = 2
	}
	if c.StylesheetTTL <= 0 {
		c.StylesheetTTL = 10 * time.Minute
	}
	if c.IdleWait <= 0 {
		c.IdleWait = time.Second
	}
	if len(c.Properties) == 0 {
		c.Properties = tokens.StyleProperties
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Rod collects evidence with a rod-controlled browser
type Rod struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
	limiter *HostLimiter
	sheets  *SheetCache
}

var _ tokensmith.Collector = (*Rod)(nil)

// New launches (or connects to) a browser
func New(cfg Config) (*Rod, error) {
	cfg.defaults()
	log := cfg.Logger

	wsURL := cfg.RemoteURL
	var l *launcher.Launcher
	if wsURL == "" {
		l = launcher.New().Headless(!cfg.Headful).Leakless(true)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("collector: launch: %w", err)
		}
		wsURL = u
		log.Info("collector: launched local browser", "url", wsURL, "headful", cfg.Headful)
	} else {
		log.Info("collector: connecting to remote browser", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Cleanup()
		}
		return nil, fmt.Errorf("collector: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("collector: ignore cert errors failed", "error", err)
	}

	return &Rod{
		cfg:     cfg,
		browser: b,
		lnch:    l,
		limiter: NewHostLimiter(cfg.LoadsPerSecond, 1),
		sheets:  NewSheetCache(cfg.StylesheetTTL, cfg.HTTPClient),
	}, nil
}

// Close shuts the browser down
func (r *Rod) Close() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.lnch != nil {
		r.lnch.Cleanup()
		r.lnch = nil
	}
	return err
}

// Collect loads one target and extracts its evidence. The returned
// evidence owns an open tab; the caller must Release it.
func (r *Rod) Collect(ctx context.Context, t tokensmith.Target) (*tokens.PageEvidence, error) {
	log := r.cfg.Logger.With("target", t.Key())

	if err := r.limiter.Wait(ctx, t.URL); err != nil {
		return nil, fmt.Errorf("collector: throttle %s: %w", t.URL, err)
	}

	page, err := stealth.Page(r.browser)
	if err != nil {
		return nil, fmt.Errorf("collector: open tab: %w", err)
	}

	eventsCtx, stopEvents := context.WithCancel(context.Background())
	release := func() error {
		stopEvents()
		return page.Close()
	}
	fail := func(err error) (*tokens.PageEvidence, error) {
		release()
		return nil, err
	}

	fonts := &fontRecorder{}
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return fail(fmt.Errorf("collector: enable network: %w", err))
	}
	wait := page.Context(eventsCtx).EachEvent(fonts.observe)
	go wait()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             t.Breakpoint.Width,
		Height:            t.Breakpoint.Height,
		DeviceScaleFactor: 1,
		Mobile:            t.Breakpoint.Width < 768,
	}); err != nil {
		return fail(fmt.Errorf("collector: viewport %s: %w", t.Breakpoint, err))
	}
	if err := emulateScheme(page, t.Theme); err != nil {
		return fail(fmt.Errorf("collector: theme %s: %w", t.Theme, err))
	}

	p := page.Context(ctx)
	if err := p.Navigate(t.URL); err != nil {
		return fail(fmt.Errorf("collector: navigate %s: %w", t.URL, err))
	}
	if err := p.WaitLoad(); err != nil {
		return fail(fmt.Errorf("collector: load %s: %w", t.URL, err))
	}
	if err := p.WaitIdle(r.cfg.IdleWait); err != nil {
		log.Debug("collector: network not idle", "error", err)
	}
	if !isScheme(t.Theme) {
		if _, err := p.Eval(`t => document.documentElement.setAttribute("data-theme", t)`, t.Theme); err != nil {
			return fail(fmt.Errorf("collector: theme %s: %w", t.Theme, err))
		}
	}

	limit := maxCuratedCandidates
	if r.cfg.BroadCapture {
		limit = maxBroadCandidates
	}
	res, err := p.Eval(extractScript, r.cfg.Properties, r.cfg.BroadCapture, limit, handleAttr)
	if err != nil {
		return fail(fmt.Errorf("collector: extract %s: %w", t.URL, err))
	}
	found := decodeCandidates(res.Value)

	res, err = p.Eval(sheetScript)
	if err != nil {
		return fail(fmt.Errorf("collector: stylesheets %s: %w", t.URL, err))
	}
	sheets := r.stylesheets(ctx, decodeSheets(res.Value), log)

	ev := &tokens.PageEvidence{
		Page:          t.Page,
		Breakpoint:    t.Breakpoint.Name,
		Theme:         t.Theme,
		URL:           t.URL,
		Stylesheets:   sheets,
		FontResponses: fonts.list(),
		Handles:       make(map[string]tokens.ElementHandle, len(found)),
		Closer:        release,
	}
	for _, x := range found {
		ev.Candidates = append(ev.Candidates, x.candidate)
		if _, dup := ev.Handles[x.candidate.SelectorPath]; !dup {
			ev.Handles[x.candidate.SelectorPath] = newRodHandle(page, x.handle, x.candidate)
		}
	}

	log.Info("collector: page loaded",
		"candidates", len(ev.Candidates),
		"stylesheets", len(ev.Stylesheets),
		"font_responses", len(ev.FontResponses))
	return ev, nil
}

// stylesheets resolves page sheets to bodies, fetching cross-origin ones
func (r *Rod) stylesheets(ctx context.Context, raw []rawSheet, log *slog.Logger) []tokens.Stylesheet {
	var out []tokens.Stylesheet
	for _, s := range raw {
		switch {
		case s.hasText:
			r.sheets.Put(s.href, s.text)
			out = append(out, tokens.Stylesheet{URL: s.href, Text: s.text})
		case s.href != "":
			text, err := r.sheets.Get(ctx, s.href)
			if err != nil {
				log.Warn("collector: stylesheet unavailable", "url", s.href, "error", err)
				continue
			}
			out = append(out, tokens.Stylesheet{URL: s.href, Text: text})
		}
	}
	return out
}

func isScheme(theme string) bool {
	return theme == "light" || theme == "dark"
}

func emulateScheme(page *rod.Page, theme string) error {
	if !isScheme(theme) {
		return nil
	}
	return proto.EmulationSetEmulatedMedia{
		Features: []*proto.EmulationMediaFeature{{Name: "prefers-color-scheme", Value: theme}},
	}.Call(page)
}

// fontRecorder keeps font responses seen on the network
type fontRecorder struct {
	mu    sync.Mutex
	fonts []tokens.FontResponse
}

func (f *fontRecorder) observe(e *proto.NetworkResponseReceived) {
	if e.Type != proto.NetworkResourceTypeFont || e.Response == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fonts = append(f.fonts, tokens.FontResponse{
		URL:      e.Response.URL,
		Status:   e.Response.Status,
		MimeType: e.Response.MIMEType,
	})
}

func (f *fontRecorder) list() []tokens.FontResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tokens.FontResponse(nil), f.fonts...)
}
