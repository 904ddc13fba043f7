package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	appconfig "github.com/wolfman30/wa-campaign-sender/internal/config"
	"github.com/wolfman30/wa-campaign-sender/internal/recipients"
)

func TestCheckChrome(t *testing.T) {
	found := func(name string) (string, error) {
		if name == "chromium" {
			return "/usr/bin/chromium", nil
		}
		return "", errors.New("not found")
	}
	if c := checkChrome("", found); !c.OK || c.Detail != "/usr/bin/chromium" {
		t.Fatalf("expected chromium on PATH, got %+v", c)
	}
	if c := checkChrome("/opt/chrome", found); c.OK {
		t.Fatalf("expected configured path to be checked alone, got %+v", c)
	}
}

func TestCheckRecipientsAndImages(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "images"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "images", "919555611880.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	csvPath := filepath.Join(dir, "contacts.csv")
	body := "Phone,Message,Image\n+919555611880,Hello,\n+919355611880,Hi,missing.jpg\n"
	if err := os.WriteFile(csvPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	recs, c := checkRecipients(csvPath)
	if !c.OK || len(recs) != 2 {
		t.Fatalf("expected two recipients, got %d (%+v)", len(recs), c)
	}

	cfg := &appconfig.Config{ContactsFile: csvPath, ImagesFolder: "images"}
	img := checkImages(context.Background(), cfg, recs)
	if !img.OK || !img.Warn {
		t.Fatalf("expected warning for missing image, got %+v", img)
	}
	if !strings.Contains(img.Detail, "row 3") {
		t.Fatalf("expected missing row to be reported, got %q", img.Detail)
	}
}

func TestCheckRecipientsMissingFile(t *testing.T) {
	_, c := checkRecipients(filepath.Join(t.TempDir(), "nope.xlsx"))
	if c.OK {
		t.Fatalf("expected failure for missing file")
	}
}

func TestCheckImagesTextOnly(t *testing.T) {
	c := checkImages(context.Background(), &appconfig.Config{TextOnly: true}, []recipients.Record{{Identifier: "+15550001111"}})
	if !c.OK || c.Warn {
		t.Fatalf("unexpected check %+v", c)
	}
}
