package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONTACTS_FILE", "")
	t.Setenv("DELAY", "")
	t.Setenv("START_FROM", "")
	t.Setenv("LOGIN_TIMEOUT", "")
	cfg := Load()
	if cfg.ContactsFile != "contacts.xlsx" {
		t.Fatalf("expected default contacts file, got %s", cfg.ContactsFile)
	}
	if cfg.Delay != 5*time.Second {
		t.Fatalf("expected default delay, got %s", cfg.Delay)
	}
	if cfg.StartFrom != 0 {
		t.Fatalf("expected start index 0, got %d", cfg.StartFrom)
	}
	if cfg.ProgressEvery != 10 {
		t.Fatalf("expected progress every 10, got %d", cfg.ProgressEvery)
	}
	if cfg.LoginTimeout != 300*time.Second {
		t.Fatalf("expected login timeout 300s, got %s", cfg.LoginTimeout)
	}
	if cfg.Headless {
		t.Fatalf("expected visible browser by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CONTACTS_FILE", "/data/list.csv")
	t.Setenv("START_FROM", "12")
	t.Setenv("DELAY", "15")
	t.Setenv("TEXT_ONLY", "true")
	t.Setenv("DEFAULT_IMAGE", "s3://bucket/banner.jpg")
	t.Setenv("ACTION_TIMEOUT", "2500ms")
	cfg := Load()
	if cfg.ContactsFile != "/data/list.csv" {
		t.Fatalf("expected contacts override, got %s", cfg.ContactsFile)
	}
	if cfg.StartFrom != 12 {
		t.Fatalf("expected start override, got %d", cfg.StartFrom)
	}
	if cfg.Delay != 15*time.Second {
		t.Fatalf("expected bare seconds to parse, got %s", cfg.Delay)
	}
	if !cfg.TextOnly {
		t.Fatalf("expected text only")
	}
	if cfg.ActionTimeout != 2500*time.Millisecond {
		t.Fatalf("expected action timeout override, got %s", cfg.ActionTimeout)
	}
	if !cfg.UsesS3() {
		t.Fatalf("expected s3 default image to be detected")
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("START_FROM", "abc")
	t.Setenv("DELAY", "-3")
	t.Setenv("HEADLESS", "maybe")
	cfg := Load()
	if cfg.StartFrom != 0 {
		t.Fatalf("expected fallback start, got %d", cfg.StartFrom)
	}
	if cfg.Delay != 5*time.Second {
		t.Fatalf("expected fallback delay, got %s", cfg.Delay)
	}
	if cfg.Headless {
		t.Fatalf("expected fallback headless false")
	}
}
