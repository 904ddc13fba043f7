// Package browser owns the Chrome session that hosts WhatsApp Web and
// implements automation.Driver over the DevTools protocol.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/wolfman30/wa-campaign-sender/internal/automation"
	"github.com/wolfman30/wa-campaign-sender/pkg/logging"
)

// Session is one Chrome window logged in to WhatsApp Web. It is not bound to
// the run context: an interrupted run still closes it through Close.
type Session struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	driver      *Driver
	opts        sessionOptions
}

type sessionOptions struct {
	url          string
	execPath     string
	profileDir   string
	headless     bool
	loginTimeout time.Duration
	windowWidth  int
	windowHeight int
	logger       *logging.Logger
}

// SessionOption is a functional option for configuring the Session.
type SessionOption func(*sessionOptions)

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) SessionOption {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}

// WithExecPath points at a specific Chrome binary instead of the one on PATH.
func WithExecPath(path string) SessionOption {
	return func(o *sessionOptions) {
		o.execPath = path
	}
}

// WithProfileDir keeps cookies and the WhatsApp login between runs.
func WithProfileDir(dir string) SessionOption {
	return func(o *sessionOptions) {
		o.profileDir = dir
	}
}

func WithHeadless(headless bool) SessionOption {
	return func(o *sessionOptions) {
		o.headless = headless
	}
}

// WithLoginTimeout bounds how long Open waits for the QR code to be scanned.
func WithLoginTimeout(d time.Duration) SessionOption {
	return func(o *sessionOptions) {
		o.loginTimeout = d
	}
}

func WithURL(url string) SessionOption {
	return func(o *sessionOptions) {
		o.url = url
	}
}

func defaultSessionOptions() sessionOptions {
	return sessionOptions{
		url:          automation.WhatsAppURL,
		profileDir:   "./chrome_profile",
		loginTimeout: 300 * time.Second,
		windowWidth:  1280,
		windowHeight: 900,
		logger:       logging.Default(),
	}
}

// allocatorOptions builds the Chrome flags for a persistent, non-automated looking window.
func allocatorOptions(o sessionOptions) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.UserDataDir(o.profileDir),
		chromedp.Flag("headless", o.headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.WindowSize(o.windowWidth, o.windowHeight),
	)
	if o.execPath != "" {
		opts = append(opts, chromedp.ExecPath(o.execPath))
	}
	return opts
}

// Open starts Chrome, loads WhatsApp Web and blocks until the chat list is
// visible or the login timeout expires.
func Open(ctx context.Context, opts ...SessionOption) (*Session, error) {
	o := defaultSessionOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Default()
	}

	profile, err := filepath.Abs(o.profileDir)
	if err != nil {
		return nil, fmt.Errorf("browser: resolve profile dir: %w", err)
	}
	if err := os.MkdirAll(profile, 0o700); err != nil {
		return nil, fmt.Errorf("browser: create profile dir: %w", err)
	}
	o.profileDir = profile

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions(o)...)
	tab, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			o.logger.Debug("chromedp error", "detail", fmt.Sprintf(format, args...))
		}),
	)

	s := &Session{
		tab:         tab,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		driver:      NewDriver(tab),
		opts:        o,
	}

	chromedp.ListenTarget(tab, func(ev any) {
		if _, ok := ev.(*page.EventFileChooserOpened); ok {
			o.logger.Debug("file chooser intercepted")
		}
	})

	o.logger.Info("starting chrome", "profile_dir", o.profileDir, "headless", o.headless)
	// The native file dialog would block the window; uploads go through SetFiles instead.
	if err := chromedp.Run(tab,
		page.SetInterceptFileChooserDialog(true),
		chromedp.Navigate(o.url),
	); err != nil {
		s.Close(0)
		return nil, fmt.Errorf("browser: launch chrome: %w", err)
	}

	if err := s.waitForLogin(ctx); err != nil {
		s.Close(0)
		return nil, err
	}
	return s, nil
}

func (s *Session) waitForLogin(ctx context.Context) error {
	locator := automation.NewLocator(s.driver, automation.SystemClock{}, automation.DefaultPollInterval)

	if ok, err := locator.Present(ctx, automation.SearchBox); err == nil && ok {
		s.opts.logger.Info("whatsapp session restored from profile")
		return nil
	}

	s.opts.logger.Info("waiting for WhatsApp login, scan the QR code in the browser window",
		"timeout", s.opts.loginTimeout.String())
	_, ok, err := locator.LocateVisible(ctx, automation.SearchBox, s.opts.loginTimeout)
	if err != nil {
		return fmt.Errorf("browser: wait for login: %w", err)
	}
	if !ok {
		if ctx.Err() != nil {
			return fmt.Errorf("browser: wait for login: %w", ctx.Err())
		}
		return fmt.Errorf("browser: login not completed within %s", s.opts.loginTimeout)
	}
	s.opts.logger.Info("whatsapp login detected")
	return nil
}

// Driver returns the automation surface for this session.
func (s *Session) Driver() *Driver { return s.driver }

// Close shuts Chrome down, waiting up to grace for a clean exit so the profile
// is flushed to disk.
func (s *Session) Close(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := chromedp.Cancel(s.tab); err != nil {
			s.opts.logger.Debug("chrome close", "error", err)
		}
	}()
	if grace > 0 {
		select {
		case <-done:
		case <-time.After(grace):
			s.opts.logger.Warn("chrome did not exit in time, killing it", "grace", grace.String())
		}
	}
	s.cancelTab()
	s.cancelAlloc()
}
