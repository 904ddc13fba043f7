package automation

import (
	"context"
	"strings"

	"github.com/wolfman30/wa-campaign-sender/internal/recipients"
	"github.com/wolfman30/wa-campaign-sender/pkg/logging"
)

// ViewKind is the navigator's belief about what the client shows.
type ViewKind int

const (
	ViewUnknown ViewKind = iota
	ViewMainList
	ViewConversation
)

func (k ViewKind) String() string {
	switch k {
	case ViewMainList:
		return "main_list"
	case ViewConversation:
		return "conversation"
	default:
		return "unknown"
	}
}

// ConversationState records which conversation, if any, is open.
type ConversationState struct {
	Kind       ViewKind
	Identifier string
}

// OpenStatus classifies an OpenConversation attempt.
type OpenStatus int

const (
	Opened OpenStatus = iota
	ContactNotFound
	Unavailable
)

// OpenResult is the outcome of OpenConversation. Reason is set for Unavailable.
type OpenResult struct {
	Status OpenStatus
	Reason string
	Via    string
}

const (
	ReasonSearchUnavailable = "search_unavailable"
	ReasonChatOpenFailed    = "chat_open_failed"
	ReasonInvalidIdentifier = "invalid_identifier"
)

// Navigator moves between the chat list and individual conversations.
type Navigator struct {
	driver  Driver
	locator *Locator
	clock   Clock
	timings Timings
	homeURL string
	logger  *logging.Logger
	state   ConversationState
}

func NewNavigator(driver Driver, clock Clock, timings Timings, logger *logging.Logger) *Navigator {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Navigator{
		driver:  driver,
		locator: NewLocator(driver, clock, timings.Poll),
		clock:   clock,
		timings: timings,
		homeURL: WhatsAppURL,
		logger:  logger,
	}
}

// WithHomeURL overrides the client address used when the tab has wandered off.
func (n *Navigator) WithHomeURL(url string) *Navigator {
	if url != "" {
		n.homeURL = strings.TrimRight(url, "/")
	}
	return n
}

// State returns the tracked conversation state.
func (n *Navigator) State() ConversationState { return n.state }

// EnsureMainList brings the client back to the chat list with an empty search.
// When the client already shows that, no input is sent. It reports whether the
// main list was reached.
func (n *Navigator) EnsureMainList(ctx context.Context) (bool, error) {
	url, err := n.driver.URL(ctx)
	if IsSessionLost(err) {
		return false, err
	}
	if err == nil && !strings.HasPrefix(url, n.homeURL) {
		n.logger.Warn("client left whatsapp, navigating back", "url", url)
		n.state = ConversationState{}
		if _, err := run(func() error { return n.driver.Navigate(ctx, n.homeURL) }); err != nil {
			return false, err
		}
		if _, _, err := n.locator.LocateVisible(ctx, SearchBox, n.timings.Locate); err != nil {
			return false, err
		}
	}

	for i := 0; i < n.timings.EscapeRetries; i++ {
		covered, err := n.surfaceShowing(ctx)
		if err != nil {
			return false, err
		}
		if !covered {
			break
		}
		if _, err := run(
			func() error { return n.driver.Press(ctx, KeyEscape) },
			func() error { return n.clock.Sleep(ctx, n.timings.KeyGap) },
		); err != nil {
			return false, err
		}
	}

	if err := n.clearSearchIfDirty(ctx); err != nil {
		return false, err
	}

	covered, err := n.surfaceShowing(ctx)
	if err != nil {
		return false, err
	}
	if covered {
		n.state = ConversationState{}
		n.logger.Warn("could not return to chat list")
		return false, nil
	}
	n.state = ConversationState{Kind: ViewMainList}
	return true, nil
}

// OpenConversation searches for identifier and opens the first result.
func (n *Navigator) OpenConversation(ctx context.Context, identifier string) (OpenResult, error) {
	query, err := recipients.NormalizeE164(identifier)
	if err != nil {
		return OpenResult{Status: Unavailable, Reason: ReasonInvalidIdentifier}, nil
	}

	search, found, err := n.locator.LocateVisible(ctx, SearchBox, n.timings.Locate)
	if err != nil {
		return OpenResult{}, err
	}
	if !found {
		return OpenResult{Status: Unavailable, Reason: ReasonSearchUnavailable}, nil
	}

	ok, err := run(
		func() error { return n.driver.Focus(ctx, search.XPath) },
		func() error { return n.driver.Press(ctx, KeySelectAll) },
		func() error { return n.driver.Press(ctx, KeyBackspace) },
		func() error { return n.driver.InsertText(ctx, query) },
		func() error { return n.clock.Sleep(ctx, n.timings.SearchSettle) },
	)
	if err != nil {
		return OpenResult{}, err
	}
	if !ok {
		return OpenResult{Status: Unavailable, Reason: ReasonSearchUnavailable}, nil
	}

	var first Control
	hasResult := false
	_, err = n.timings.wait("search_results", n.timings.ResultWait).Poll(ctx, n.clock, func() (bool, error) {
		empty, err := n.locator.Present(ctx, NoResults)
		if err != nil || empty {
			return empty, err
		}
		c, ok, err := n.locator.Locate(ctx, FirstResult, 0)
		if ok {
			first, hasResult = c, true
		}
		return ok, err
	})
	if err != nil {
		return OpenResult{}, err
	}
	if !hasResult {
		n.logger.Info("contact not found", "recipient", query)
		if err := n.clearSearch(ctx, search); err != nil {
			return OpenResult{}, err
		}
		n.state = ConversationState{Kind: ViewMainList}
		return OpenResult{Status: ContactNotFound}, nil
	}

	attempt, err := Sequence(ctx,
		Strategy{Name: "keyboard", Attempts: 1, Run: func(ctx context.Context, _ int) (bool, error) {
			ok, err := run(
				func() error { return n.driver.Focus(ctx, search.XPath) },
				func() error { return n.driver.Press(ctx, KeyArrowDown) },
				func() error { return n.clock.Sleep(ctx, n.timings.KeyGap) },
				func() error { return n.driver.Press(ctx, KeyEnter) },
			)
			if err != nil || !ok {
				return false, err
			}
			return n.conversationOpened(ctx)
		}},
		Strategy{Name: "pointer", Attempts: 1, Run: func(ctx context.Context, _ int) (bool, error) {
			ok, err := run(func() error { return n.driver.PointerClick(ctx, first.XPath) })
			if err != nil || !ok {
				return false, err
			}
			return n.conversationOpened(ctx)
		}},
	)
	if err != nil {
		return OpenResult{}, err
	}
	if attempt.ExhaustedAll() {
		n.state = ConversationState{}
		n.logger.Warn("conversation did not open", "recipient", query)
		return OpenResult{Status: Unavailable, Reason: ReasonChatOpenFailed}, nil
	}

	n.state = ConversationState{Kind: ViewConversation, Identifier: query}
	n.logger.Debug("conversation opened", "recipient", query, "via", attempt.Via)
	return OpenResult{Status: Opened, Via: attempt.Via}, nil
}

func (n *Navigator) conversationOpened(ctx context.Context) (bool, error) {
	_, ok, err := n.locator.LocateVisible(ctx, MessageBox, n.timings.ChatOpenWait)
	return ok, err
}

// surfaceShowing reports whether a conversation, menu or preview covers the list.
func (n *Navigator) surfaceShowing(ctx context.Context) (bool, error) {
	for _, target := range []Target{MediaPreview, AttachMenu, ConversationPane} {
		ok, err := n.locator.Present(ctx, target)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (n *Navigator) clearSearchIfDirty(ctx context.Context) error {
	search, found, err := n.locator.Locate(ctx, SearchBox, 0)
	if err != nil || !found {
		return err
	}
	text, err := n.driver.Text(ctx, search.XPath)
	if err != nil {
		return fatal(err)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return n.clearSearch(ctx, search)
}

func (n *Navigator) clearSearch(ctx context.Context, search Control) error {
	_, err := run(
		func() error { return n.driver.Focus(ctx, search.XPath) },
		func() error { return n.driver.Press(ctx, KeySelectAll) },
		func() error { return n.driver.Press(ctx, KeyBackspace) },
	)
	return err
}
