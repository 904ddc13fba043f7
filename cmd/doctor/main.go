package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wolfman30/wa-campaign-sender/internal/app/bootstrap"
	appconfig "github.com/wolfman30/wa-campaign-sender/internal/config"
	"github.com/wolfman30/wa-campaign-sender/internal/recipients"
)

type check struct {
	Name   string
	OK     bool
	Detail string
	// Warn marks a non-blocking problem.
	Warn bool
}

var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
}

// Usage: doctor [-file contacts.xlsx]
func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	file := flag.String("file", cfg.ContactsFile, "recipient spreadsheet to validate")
	flag.Parse()
	cfg.ContactsFile = *file

	checks := []check{
		checkChrome(cfg.ChromePath, exec.LookPath),
		checkProfileDir(cfg.ChromeProfileDir),
	}
	recs, recCheck := checkRecipients(cfg.ContactsFile)
	checks = append(checks, recCheck)
	if recCheck.OK {
		checks = append(checks, checkImages(context.Background(), cfg, recs))
	}
	if cfg.RedisAddr != "" {
		checks = append(checks, checkRedis(cfg))
	}

	failed := false
	for _, c := range checks {
		mark := "ok"
		switch {
		case !c.OK:
			mark = "FAIL"
			failed = true
		case c.Warn:
			mark = "warn"
		}
		fmt.Printf("[%-4s] %-12s %s\n", mark, c.Name, c.Detail)
	}
	if failed {
		os.Exit(1)
	}
}

func checkChrome(configured string, lookPath func(string) (string, error)) check {
	candidates := chromeCandidates
	if strings.TrimSpace(configured) != "" {
		candidates = []string{configured}
	}
	for _, name := range candidates {
		if path, err := lookPath(name); err == nil {
			return check{Name: "chrome", OK: true, Detail: path}
		}
	}
	if configured != "" {
		return check{Name: "chrome", Detail: fmt.Sprintf("CHROME_PATH %q is not executable", configured)}
	}
	return check{Name: "chrome", Detail: "no Chrome or Chromium found on PATH; set CHROME_PATH"}
}

func checkProfileDir(dir string) check {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return check{Name: "profile", Detail: err.Error()}
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return check{Name: "profile", Detail: fmt.Sprintf("cannot create %s: %v", abs, err)}
	}
	probe, err := os.CreateTemp(abs, ".doctor-*")
	if err != nil {
		return check{Name: "profile", Detail: fmt.Sprintf("%s is not writable: %v", abs, err)}
	}
	probe.Close()
	_ = os.Remove(probe.Name())
	return check{Name: "profile", OK: true, Detail: abs}
}

func checkRecipients(path string) ([]recipients.Record, check) {
	recs, report, err := recipients.Load(path)
	if err != nil {
		return nil, check{Name: "recipients", Detail: err.Error()}
	}
	detail := fmt.Sprintf("%d recipients in %s", len(recs), path)
	c := check{Name: "recipients", OK: true, Detail: detail}
	if len(report.SkippedRows) > 0 {
		c.Warn = true
		c.Detail = fmt.Sprintf("%s, skipped rows %v (missing contact or message)", detail, report.SkippedRows)
	}
	return recs, c
}

// checkImages resolves every recipient's image offline; s3:// references are
// reported as remote rather than fetched.
func checkImages(ctx context.Context, cfg *appconfig.Config, recs []recipients.Record) check {
	if cfg.TextOnly {
		return check{Name: "images", OK: true, Detail: "text-only mode"}
	}
	resolver := bootstrap.BuildImageResolver(cfg, cfg.ContactsFile, nil, nil)

	withImage, remote := 0, 0
	var missing []string
	for _, rec := range recs {
		res := resolver.Resolve(ctx, rec)
		if res.Found() {
			withImage++
		}
		for _, m := range res.Missing {
			if strings.HasPrefix(m, "s3://") {
				remote++
				continue
			}
			missing = append(missing, fmt.Sprintf("row %d: %s", rec.Row, m))
		}
	}

	c := check{Name: "images", OK: true, Detail: fmt.Sprintf("%d of %d recipients have a local image", withImage, len(recs))}
	if remote > 0 {
		c.Detail += fmt.Sprintf(", %d s3 references", remote)
	}
	if len(missing) > 0 {
		c.Warn = true
		if len(missing) > 5 {
			missing = append(missing[:5], fmt.Sprintf("and %d more", len(missing)-5))
		}
		c.Detail += "; unusable: " + strings.Join(missing, ", ")
	}
	return c
}

func checkRedis(cfg *appconfig.Config) check {
	client := bootstrap.BuildRedisClient(context.Background(), cfg, nil, true)
	if client == nil {
		return check{Name: "redis", OK: true, Warn: true, Detail: cfg.RedisAddr + " unreachable, journal will be skipped"}
	}
	_ = client.Close()
	return check{Name: "redis", OK: true, Detail: cfg.RedisAddr}
}
