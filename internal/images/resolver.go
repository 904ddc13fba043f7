// Package images resolves which image, if any, accompanies a recipient's message.
package images

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wolfman30/wa-campaign-sender/internal/recipients"
)

// SupportedExtensions lists the image types the attachment flow accepts.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Source names where a resolved image came from.
type Source string

const (
	SourceNone    Source = ""
	SourceRow     Source = "row"
	SourceByName  Source = "recipient_file"
	SourceFolder  Source = "folder"
	SourceDefault Source = "default"
)

// Resolution is the outcome of resolving one recipient's image.
type Resolution struct {
	Path   string
	Source Source
	// Missing lists configured candidates that did not exist or were unusable.
	Missing []string
}

// Found reports whether an image was resolved.
func (r Resolution) Found() bool { return r.Path != "" }

// Fetcher materializes remote image references (s3://...) as local files.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (string, error)
}

// Options configures a Resolver.
type Options struct {
	// BaseDir anchors relative row paths, normally the spreadsheet's directory.
	BaseDir      string
	ImagesFolder string
	DefaultImage string
	TextOnly     bool
	Fetcher      Fetcher
}

// Resolver applies the priority row value > <identifier>.<ext> > any folder image > default.
type Resolver struct {
	opts Options
}

func NewResolver(opts Options) *Resolver {
	return &Resolver{opts: opts}
}

// Resolve picks the image for rec. It never fails; unusable candidates are
// reported in Resolution.Missing and resolution continues down the chain.
func (r *Resolver) Resolve(ctx context.Context, rec recipients.Record) Resolution {
	var res Resolution
	if r == nil || r.opts.TextOnly {
		return res
	}

	if rec.ImagePath != "" {
		if path, ok := r.usable(ctx, rec.ImagePath, &res); ok {
			res.Path, res.Source = path, SourceRow
			return res
		}
	}

	folder := r.localPath(r.opts.ImagesFolder)
	if folder != "" {
		if path := byRecipientName(folder, rec.Identifier); path != "" {
			res.Path, res.Source = path, SourceByName
			return res
		}
		if path := firstImage(folder); path != "" {
			res.Path, res.Source = path, SourceFolder
			return res
		}
	}

	if r.opts.DefaultImage != "" {
		if path, ok := r.usable(ctx, r.opts.DefaultImage, &res); ok {
			res.Path, res.Source = path, SourceDefault
			return res
		}
	}
	return res
}

func (r *Resolver) usable(ctx context.Context, ref string, res *Resolution) (string, bool) {
	if strings.HasPrefix(ref, "s3://") {
		if r.opts.Fetcher == nil {
			res.Missing = append(res.Missing, ref)
			return "", false
		}
		path, err := r.opts.Fetcher.Fetch(ctx, ref)
		if err != nil {
			res.Missing = append(res.Missing, ref)
			return "", false
		}
		ref = path
	}
	path := r.localPath(ref)
	if !IsSupported(path) || !isRegularFile(path) {
		res.Missing = append(res.Missing, path)
		return "", false
	}
	return path, true
}

func (r *Resolver) localPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) || r.opts.BaseDir == "" {
		return p
	}
	return filepath.Join(r.opts.BaseDir, p)
}

// IsSupported reports whether path carries a supported image extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func byRecipientName(folder, identifier string) string {
	digits := recipients.Digits(identifier)
	for _, stem := range []string{digits, "+" + digits} {
		for _, ext := range SupportedExtensions {
			for _, e := range []string{ext, strings.ToUpper(ext)} {
				candidate := filepath.Join(folder, stem+e)
				if isRegularFile(candidate) {
					return candidate
				}
			}
		}
	}
	return ""
}

func firstImage(folder string) string {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return ""
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && IsSupported(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(folder, names[0])
}
