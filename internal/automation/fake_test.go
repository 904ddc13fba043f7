package automation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) slept(d time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.sleeps {
		if s == d {
			n++
		}
	}
	return n
}

type sentMessage struct {
	To    string
	Text  string
	Image string
}

var menuLabels = []string{"Document", "Photos & videos", "Camera", "New sticker"}

// fakeWhatsApp simulates the parts of the client the engine touches. It only
// recognizes the first strategy of each target.
type fakeWhatsApp struct {
	url      string
	contacts map[string]bool

	search     string
	chat       string
	draft      string
	caption    string
	focused    string
	selectAll  bool
	highlight  bool
	menuOpen   bool
	menuCursor int
	sticker    bool
	mediaReady bool
	preview    bool
	attached   string

	// knobs
	keyboardOpensChat   bool
	keyboardStickerLeft int
	textConfirms        bool
	imageSendWorks      bool
	captionMissing      bool
	sessionLost         bool

	inputs        []string
	searched      []string
	pointerClicks []string
	sent          []sentMessage
}

func newFakeWhatsApp(contacts ...string) *fakeWhatsApp {
	f := &fakeWhatsApp{
		url:               WhatsAppURL + "/",
		contacts:          make(map[string]bool),
		keyboardOpensChat: true,
		textConfirms:      true,
		imageSendWorks:    true,
	}
	for _, c := range contacts {
		f.contacts[c] = true
	}
	return f
}

func (f *fakeWhatsApp) element(xpath string) string {
	for _, t := range []Target{SearchBox, FirstResult, NoResults, ConversationPane, MessageBox, AttachButton,
		AttachMenu, AttachMenuEntries, MediaInput, StickerSurface, MediaPreview, CaptionBox, SendButton, ClosePreview} {
		if xpath == t.Strategies[0] {
			return t.Name
		}
		if strings.HasPrefix(xpath, "("+t.Strategies[0]+")[") {
			return t.Name + "#" + strings.TrimSuffix(strings.TrimPrefix(xpath, "("+t.Strategies[0]+")["), "]")
		}
	}
	return ""
}

func (f *fakeWhatsApp) lost() error {
	if f.sessionLost {
		return fmt.Errorf("cdp: target closed: %w", ErrSessionLost)
	}
	return nil
}

func (f *fakeWhatsApp) input(format string, args ...any) {
	f.inputs = append(f.inputs, fmt.Sprintf(format, args...))
}

func (f *fakeWhatsApp) Count(_ context.Context, xpath string) (int, error) {
	if err := f.lost(); err != nil {
		return 0, err
	}
	home := strings.HasPrefix(f.url, WhatsAppURL)
	has := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}
	switch f.element(xpath) {
	case SearchBox.Name:
		return has(home), nil
	case FirstResult.Name:
		return has(f.search != "" && f.contacts[f.search]), nil
	case NoResults.Name:
		return has(f.search != "" && !f.contacts[f.search]), nil
	case ConversationPane.Name, MessageBox.Name, AttachButton.Name:
		return has(f.chat != ""), nil
	case AttachMenu.Name:
		return has(f.menuOpen), nil
	case AttachMenuEntries.Name:
		if f.menuOpen {
			return len(menuLabels), nil
		}
		return 0, nil
	case MediaInput.Name:
		return has(f.mediaReady), nil
	case StickerSurface.Name:
		return has(f.sticker), nil
	case MediaPreview.Name, SendButton.Name, ClosePreview.Name:
		return has(f.preview), nil
	case CaptionBox.Name:
		return has(f.preview && !f.captionMissing), nil
	}
	return 0, nil
}

func (f *fakeWhatsApp) Visible(ctx context.Context, xpath string) (bool, error) {
	n, err := f.Count(ctx, xpath)
	return n > 0, err
}

func (f *fakeWhatsApp) Text(_ context.Context, xpath string) (string, error) {
	if err := f.lost(); err != nil {
		return "", err
	}
	switch f.element(xpath) {
	case SearchBox.Name:
		return f.search, nil
	case MessageBox.Name:
		return f.draft, nil
	case CaptionBox.Name:
		return f.caption, nil
	}
	return "", nil
}

func (f *fakeWhatsApp) Labels(_ context.Context, xpath string) ([]string, error) {
	if err := f.lost(); err != nil {
		return nil, err
	}
	if f.element(xpath) == AttachMenuEntries.Name && f.menuOpen {
		return append([]string(nil), menuLabels...), nil
	}
	return nil, nil
}

func (f *fakeWhatsApp) Click(_ context.Context, xpath string) error {
	if err := f.lost(); err != nil {
		return err
	}
	el := f.element(xpath)
	f.input("click %s", el)
	switch el {
	case AttachButton.Name:
		if f.chat == "" {
			return fmt.Errorf("element not interactable")
		}
		f.menuOpen, f.menuCursor = true, 0
	case SendButton.Name:
		if !f.preview {
			return fmt.Errorf("element not found")
		}
		f.sendImage()
	case ClosePreview.Name:
		f.discardPreview()
	default:
		return fmt.Errorf("element not found: %s", xpath)
	}
	return nil
}

func (f *fakeWhatsApp) PointerClick(_ context.Context, xpath string) error {
	if err := f.lost(); err != nil {
		return err
	}
	el := f.element(xpath)
	f.input("pointer %s", el)
	f.pointerClicks = append(f.pointerClicks, el)
	switch {
	case el == FirstResult.Name && f.contacts[f.search]:
		f.openChat()
	case strings.HasPrefix(el, AttachMenuEntries.Name+"#") && f.menuOpen:
		var n int
		fmt.Sscanf(strings.TrimPrefix(el, AttachMenuEntries.Name+"#"), "%d", &n)
		f.menuOpen = false
		if n >= 1 && n <= len(menuLabels) && strings.HasPrefix(menuLabels[n-1], "Photos") {
			f.mediaReady = true
		}
	default:
		return fmt.Errorf("element not found: %s", xpath)
	}
	return nil
}

func (f *fakeWhatsApp) Focus(_ context.Context, xpath string) error {
	if err := f.lost(); err != nil {
		return err
	}
	el := f.element(xpath)
	f.input("focus %s", el)
	if n, _ := f.Count(context.Background(), xpath); n == 0 {
		return fmt.Errorf("element not found: %s", xpath)
	}
	f.focused = el
	f.selectAll = false
	return nil
}

func (f *fakeWhatsApp) Press(_ context.Context, key Key) error {
	if err := f.lost(); err != nil {
		return err
	}
	f.input("press %s", key)
	switch key {
	case KeyEscape:
		switch {
		case f.sticker:
			f.sticker, f.mediaReady = false, false
		case f.preview:
			f.discardPreview()
		case f.menuOpen:
			f.menuOpen = false
		case f.chat != "":
			f.chat, f.draft = "", ""
		}
	case KeyArrowDown:
		switch {
		case f.menuOpen:
			f.menuCursor++
		case f.focused == SearchBox.Name && f.contacts[f.search]:
			f.highlight = true
		}
	case KeyEnter:
		switch {
		case f.menuOpen:
			f.menuOpen = false
			if f.menuCursor == MediaMenuOrdinal {
				f.mediaReady = true
				if f.keyboardStickerLeft > 0 {
					f.keyboardStickerLeft--
					f.sticker = true
				}
			}
		case f.focused == SearchBox.Name:
			if f.highlight && f.keyboardOpensChat {
				f.openChat()
			}
		case f.focused == MessageBox.Name && f.chat != "":
			if f.textConfirms && strings.TrimSpace(f.draft) != "" {
				f.sent = append(f.sent, sentMessage{To: f.chat, Text: f.draft})
				f.draft = ""
			}
		case f.focused == CaptionBox.Name && f.preview:
			f.sendImage()
		}
	case KeyShiftEnter:
		f.appendText("\n")
	case KeySelectAll:
		f.selectAll = true
	case KeyBackspace:
		if f.selectAll {
			f.setText("")
			f.selectAll = false
		}
	}
	return nil
}

func (f *fakeWhatsApp) InsertText(_ context.Context, text string) error {
	if err := f.lost(); err != nil {
		return err
	}
	f.input("insert %q", text)
	if f.focused == SearchBox.Name && f.search == "" {
		f.searched = append(f.searched, text)
	}
	f.appendText(text)
	return nil
}

func (f *fakeWhatsApp) SetFiles(_ context.Context, xpath string, paths []string) error {
	if err := f.lost(); err != nil {
		return err
	}
	f.input("files %s", f.element(xpath))
	if f.element(xpath) != MediaInput.Name || !f.mediaReady || len(paths) == 0 {
		return fmt.Errorf("no file input")
	}
	f.attached = paths[0]
	f.preview = true
	f.mediaReady = false
	return nil
}

func (f *fakeWhatsApp) URL(context.Context) (string, error) {
	if err := f.lost(); err != nil {
		return "", err
	}
	return f.url, nil
}

func (f *fakeWhatsApp) Navigate(_ context.Context, url string) error {
	if err := f.lost(); err != nil {
		return err
	}
	f.input("navigate %s", url)
	f.url = url
	f.chat, f.search, f.menuOpen, f.preview, f.sticker = "", "", false, false, false
	return nil
}

func (f *fakeWhatsApp) openChat() {
	f.chat = f.search
	f.highlight = false
	f.focused = MessageBox.Name
}

func (f *fakeWhatsApp) sendImage() {
	if !f.imageSendWorks {
		return
	}
	f.sent = append(f.sent, sentMessage{To: f.chat, Text: f.caption, Image: f.attached})
	f.preview, f.caption, f.attached = false, "", ""
}

func (f *fakeWhatsApp) discardPreview() {
	f.preview, f.caption, f.attached = false, "", ""
}

func (f *fakeWhatsApp) appendText(s string) {
	switch f.focused {
	case SearchBox.Name:
		f.search += s
	case MessageBox.Name:
		f.draft += s
	case CaptionBox.Name:
		f.caption += s
	}
}

func (f *fakeWhatsApp) setText(s string) {
	switch f.focused {
	case SearchBox.Name:
		f.search = s
	case MessageBox.Name:
		f.draft = s
	case CaptionBox.Name:
		f.caption = s
	}
}
