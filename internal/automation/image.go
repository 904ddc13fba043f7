package automation

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/wolfman30/wa-campaign-sender/internal/images"
	"github.com/wolfman30/wa-campaign-sender/pkg/logging"
)

const (
	ReasonImageMissing        = "image_missing"
	ReasonAttachUnavailable   = "attach_unavailable"
	ReasonMenuTimeout         = "menu_timeout"
	ReasonMenuSelectionFailed = "menu_selection_failed"
	ReasonPreviewTimeout      = "preview_timeout"
	ReasonCaptionUnavailable  = "caption_unavailable"
)

// ImageSender drives the attachment flow: menu, photos option, file, preview,
// caption, send.
type ImageSender struct {
	driver  Driver
	locator *Locator
	clock   Clock
	timings Timings
	logger  *logging.Logger
}

func NewImageSender(driver Driver, clock Clock, timings Timings, logger *logging.Logger) *ImageSender {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ImageSender{
		driver:  driver,
		locator: NewLocator(driver, clock, timings.Poll),
		clock:   clock,
		timings: timings,
		logger:  logger,
	}
}

// SendImageWithCaption attaches imagePath to the open conversation with caption
// and sends it. Once the preview is showing, every failure discards it first.
func (s *ImageSender) SendImageWithCaption(ctx context.Context, imagePath, caption string) (Result, error) {
	if _, found, err := s.locator.LocateVisible(ctx, MessageBox, s.timings.ChatOpenWait); err != nil || !found {
		return failed(ReasonNoOpenChat), err
	}

	abs, ok := checkAsset(imagePath)
	if !ok {
		s.logger.Warn("image not usable", "path", imagePath)
		return failed(ReasonImageMissing), nil
	}

	if reason, err := s.openMenu(ctx); err != nil || reason != "" {
		return failed(reason), err
	}

	var media Control
	selection, err := Sequence(ctx,
		Strategy{Name: "keyboard", Attempts: 2, Run: func(ctx context.Context, attempt int) (bool, error) {
			if attempt > 0 {
				if reason, err := s.reopenMenu(ctx); err != nil || reason != "" {
					return false, err
				}
			}
			calls := make([]func() error, 0, MediaMenuOrdinal+1)
			for i := 0; i < MediaMenuOrdinal; i++ {
				calls = append(calls, func() error { return s.driver.Press(ctx, KeyArrowDown) })
			}
			calls = append(calls, func() error { return s.driver.Press(ctx, KeyEnter) })
			if ok, err := run(calls...); err != nil || !ok {
				return false, err
			}
			c, ok, err := s.mediaReady(ctx)
			media = c
			return ok, err
		}},
		Strategy{Name: "pointer", Attempts: 1, Run: func(ctx context.Context, _ int) (bool, error) {
			if reason, err := s.reopenMenu(ctx); err != nil || reason != "" {
				return false, err
			}
			entry, ok, err := s.mediaEntry(ctx)
			if err != nil || !ok {
				return false, err
			}
			if ok, err := run(func() error { return s.driver.PointerClick(ctx, entry) }); err != nil || !ok {
				return false, err
			}
			c, ok, err := s.mediaReady(ctx)
			media = c
			return ok, err
		}},
	)
	if err != nil {
		return Result{}, err
	}
	if selection.ExhaustedAll() {
		s.logger.Warn("photos option could not be selected", "tries", selection.Tries)
		if err := s.dismiss(ctx, AttachMenu); err != nil {
			return Result{}, err
		}
		return failed(ReasonMenuSelectionFailed), nil
	}
	s.logger.Debug("photos option selected", "via", selection.Via)

	ok, err = run(func() error { return s.driver.SetFiles(ctx, media.XPath, []string{abs}) })
	if err != nil {
		return Result{}, err
	}
	if ok {
		ok, err = s.timings.wait("media_preview", s.timings.PreviewWait).Poll(ctx, s.clock, func() (bool, error) {
			return s.locator.Present(ctx, MediaPreview)
		})
		if err != nil {
			return Result{}, err
		}
	}
	if !ok {
		return s.abandon(ctx, ReasonPreviewTimeout)
	}

	captionBox, found, err := s.locator.LocateVisible(ctx, CaptionBox, s.timings.CaptionWait)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return s.abandon(ctx, ReasonCaptionUnavailable)
	}
	if strings.TrimSpace(caption) != "" {
		ok, err := run(
			func() error { return s.driver.Focus(ctx, captionBox.XPath) },
			func() error { return s.driver.Press(ctx, KeySelectAll) },
			func() error { return s.driver.Press(ctx, KeyBackspace) },
			func() error { return typeLines(ctx, s.driver, caption) },
		)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return s.abandon(ctx, ReasonCaptionUnavailable)
		}
	}

	submit, err := Sequence(ctx,
		Strategy{Name: "send_button", Attempts: 1, Run: func(ctx context.Context, _ int) (bool, error) {
			send, found, err := s.locator.LocateVisible(ctx, SendButton, s.timings.MediaWait)
			if err != nil || !found {
				return false, err
			}
			if ok, err := run(func() error { return s.driver.Click(ctx, send.XPath) }); err != nil || !ok {
				return false, err
			}
			return s.previewClosed(ctx)
		}},
		Strategy{Name: "enter", Attempts: 1, Run: func(ctx context.Context, _ int) (bool, error) {
			ok, err := run(
				func() error { return s.driver.Focus(ctx, captionBox.XPath) },
				func() error { return s.driver.Press(ctx, KeyEnter) },
			)
			if err != nil || !ok {
				return false, err
			}
			return s.previewClosed(ctx)
		}},
	)
	if err != nil {
		return Result{}, err
	}
	if submit.ExhaustedAll() {
		return s.abandon(ctx, ReasonUnconfirmed)
	}
	s.logger.Debug("image sent", "via", submit.Via)
	return delivered(), nil
}

// openMenu clicks the attach control and waits for the menu. A non-empty
// reason means the menu never showed.
func (s *ImageSender) openMenu(ctx context.Context) (string, error) {
	attach, found, err := s.locator.LocateVisible(ctx, AttachButton, s.timings.Locate)
	if err != nil {
		return "", err
	}
	if !found {
		return ReasonAttachUnavailable, nil
	}
	if ok, err := run(func() error { return s.driver.Click(ctx, attach.XPath) }); err != nil || !ok {
		if err != nil {
			return "", err
		}
		return ReasonAttachUnavailable, nil
	}
	shown, err := s.timings.wait("attach_menu", s.timings.MenuWait).Poll(ctx, s.clock, func() (bool, error) {
		return s.locator.Present(ctx, AttachMenu)
	})
	if err != nil {
		return "", err
	}
	if !shown {
		return ReasonMenuTimeout, nil
	}
	return "", nil
}

// reopenMenu escapes whatever surface the last attempt produced and opens the
// attachment menu again.
func (s *ImageSender) reopenMenu(ctx context.Context) (string, error) {
	if err := s.dismiss(ctx, StickerSurface, AttachMenu); err != nil {
		return "", err
	}
	return s.openMenu(ctx)
}

// mediaReady waits for an image-accepting file input while no sticker surface shows.
func (s *ImageSender) mediaReady(ctx context.Context) (Control, bool, error) {
	var media Control
	ok, err := s.timings.wait("media_option", s.timings.MediaWait).Poll(ctx, s.clock, func() (bool, error) {
		sticker, err := s.locator.Present(ctx, StickerSurface)
		if err != nil || sticker {
			return false, err
		}
		c, found, err := s.locator.Locate(ctx, MediaInput, 0)
		if found {
			media = c
		}
		return found, err
	})
	return media, ok, err
}

// mediaEntry finds the photos entry by label, never an excluded option.
func (s *ImageSender) mediaEntry(ctx context.Context) (string, bool, error) {
	entries, found, err := s.locator.Locate(ctx, AttachMenuEntries, s.timings.MenuWait)
	if err != nil || !found {
		return "", false, err
	}
	labels, err := s.driver.Labels(ctx, entries.XPath)
	if err != nil {
		return "", false, fatal(err)
	}
	idx := pickMediaEntry(labels)
	if idx < 0 {
		return "", false, nil
	}
	return entries.Nth(idx + 1), true, nil
}

func pickMediaEntry(labels []string) int {
	fallback := -1
	for i, raw := range labels {
		label := strings.ToLower(raw)
		if containsAny(label, excludedMenuLabels) {
			continue
		}
		if containsAny(label, mediaMenuLabels) {
			return i
		}
		if fallback < 0 && strings.TrimSpace(label) != "" {
			fallback = i
		}
	}
	return fallback
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func (s *ImageSender) previewClosed(ctx context.Context) (bool, error) {
	return s.timings.wait("preview_closed", s.timings.ConfirmWait).Poll(ctx, s.clock, func() (bool, error) {
		showing, err := s.locator.Present(ctx, MediaPreview)
		return !showing, err
	})
}

// abandon discards the preview and reports reason.
func (s *ImageSender) abandon(ctx context.Context, reason string) (Result, error) {
	s.logger.Warn("discarding attachment preview", "reason", reason)
	for i := 0; i < s.timings.EscapeRetries; i++ {
		showing, err := s.locator.Present(ctx, MediaPreview)
		if err != nil {
			return Result{}, err
		}
		if !showing {
			break
		}
		closeBtn, found, err := s.locator.Locate(ctx, ClosePreview, 0)
		if err != nil {
			return Result{}, err
		}
		press := func() error { return s.driver.Press(ctx, KeyEscape) }
		if found {
			press = func() error { return s.driver.Click(ctx, closeBtn.XPath) }
		}
		if _, err := run(press, func() error { return s.clock.Sleep(ctx, s.timings.KeyGap) }); err != nil {
			return Result{}, err
		}
	}
	return failed(reason), nil
}

// dismiss presses Escape while any of targets is showing.
func (s *ImageSender) dismiss(ctx context.Context, targets ...Target) error {
	for i := 0; i < s.timings.EscapeRetries; i++ {
		showing := false
		for _, t := range targets {
			ok, err := s.locator.Present(ctx, t)
			if err != nil {
				return err
			}
			showing = showing || ok
		}
		if !showing {
			return nil
		}
		if _, err := run(
			func() error { return s.driver.Press(ctx, KeyEscape) },
			func() error { return s.clock.Sleep(ctx, s.timings.KeyGap) },
		); err != nil {
			return err
		}
	}
	return nil
}

// checkAsset returns the absolute path when imagePath is a readable regular
// file with a supported extension.
func checkAsset(imagePath string) (string, bool) {
	if strings.TrimSpace(imagePath) == "" || !images.IsSupported(imagePath) {
		return "", false
	}
	abs, err := filepath.Abs(imagePath)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	f, err := os.Open(abs)
	if err != nil {
		return "", false
	}
	_ = f.Close()
	return abs, true
}
