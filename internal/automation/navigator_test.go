package automation

import (
	"context"
	"testing"

	"github.com/wolfman30/wa-campaign-sender/pkg/logging"
)

func newTestNavigator(f *fakeWhatsApp) (*Navigator, *fakeClock) {
	clock := newFakeClock()
	return NewNavigator(f, clock, DefaultTimings(), logging.Discard()), clock
}

func TestEnsureMainListIsIdempotent(t *testing.T) {
	f := newFakeWhatsApp()
	nav, _ := newTestNavigator(f)

	for i := 0; i < 2; i++ {
		ok, err := nav.EnsureMainList(context.Background())
		if err != nil || !ok {
			t.Fatalf("call %d: expected main list, got ok=%v err=%v", i, ok, err)
		}
	}
	if len(f.inputs) != 0 {
		t.Fatalf("expected no input at the main list, got %v", f.inputs)
	}
	if nav.State().Kind != ViewMainList {
		t.Fatalf("expected main list state, got %s", nav.State().Kind)
	}
}

func TestEnsureMainListClosesConversationAndClearsSearch(t *testing.T) {
	f := newFakeWhatsApp("+919555611880")
	nav, _ := newTestNavigator(f)

	res, err := nav.OpenConversation(context.Background(), "+919555611880")
	if err != nil || res.Status != Opened {
		t.Fatalf("expected open, got %+v err=%v", res, err)
	}
	if got := nav.State(); got.Kind != ViewConversation || got.Identifier != "+919555611880" {
		t.Fatalf("unexpected state %+v", got)
	}

	ok, err := nav.EnsureMainList(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected main list, got ok=%v err=%v", ok, err)
	}
	if f.chat != "" || f.search != "" {
		t.Fatalf("expected closed chat and empty search, got chat=%q search=%q", f.chat, f.search)
	}

	before := len(f.inputs)
	if _, err := nav.EnsureMainList(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.inputs) != before {
		t.Fatalf("second call sent input: %v", f.inputs[before:])
	}
}

func TestEnsureMainListNavigatesHome(t *testing.T) {
	f := newFakeWhatsApp()
	f.url = "https://example.com/elsewhere"
	nav, _ := newTestNavigator(f)

	ok, err := nav.EnsureMainList(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected main list, got ok=%v err=%v", ok, err)
	}
	if f.url != WhatsAppURL {
		t.Fatalf("expected navigation home, got %s", f.url)
	}
}

func TestOpenConversationNormalizesBeforeSearch(t *testing.T) {
	f := newFakeWhatsApp("+919555611880")
	nav, _ := newTestNavigator(f)

	res, err := nav.OpenConversation(context.Background(), "+91 95556 11880")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != Opened || res.Via != "keyboard" {
		t.Fatalf("expected keyboard open, got %+v", res)
	}
	if len(f.searched) != 1 || f.searched[0] != "+919555611880" {
		t.Fatalf("expected normalized query, got %v", f.searched)
	}
}

func TestOpenConversationContactNotFound(t *testing.T) {
	f := newFakeWhatsApp()
	nav, _ := newTestNavigator(f)

	res, err := nav.OpenConversation(context.Background(), "+15550001111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != ContactNotFound {
		t.Fatalf("expected not found, got %+v", res)
	}
	if f.search != "" {
		t.Fatalf("search should be cleared, got %q", f.search)
	}
	if len(f.searched) != 1 {
		t.Fatalf("expected a single search, got %v", f.searched)
	}
}

func TestOpenConversationPointerFallback(t *testing.T) {
	f := newFakeWhatsApp("+15550001111")
	f.keyboardOpensChat = false
	nav, _ := newTestNavigator(f)

	res, err := nav.OpenConversation(context.Background(), "+15550001111")
	if err != nil || res.Status != Opened || res.Via != "pointer" {
		t.Fatalf("expected pointer open, got %+v err=%v", res, err)
	}
	if len(f.pointerClicks) != 1 || f.pointerClicks[0] != FirstResult.Name {
		t.Fatalf("expected one click on the first result, got %v", f.pointerClicks)
	}
}

func TestOpenConversationSearchUnavailable(t *testing.T) {
	f := newFakeWhatsApp("+15550001111")
	nav, _ := newTestNavigator(f)
	f.url = "about:blank"

	res, err := nav.OpenConversation(context.Background(), "+15550001111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != Unavailable || res.Reason != ReasonSearchUnavailable {
		t.Fatalf("expected search_unavailable, got %+v", res)
	}
}

func TestOpenConversationSessionLost(t *testing.T) {
	f := newFakeWhatsApp("+15550001111")
	f.sessionLost = true
	nav, _ := newTestNavigator(f)

	if _, err := nav.OpenConversation(context.Background(), "+15550001111"); !IsSessionLost(err) {
		t.Fatalf("expected session loss, got %v", err)
	}
}
