package subtitle

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Fetcher downloads subtitle tracks with yt-dlp.
type Fetcher struct {
	binary string
	langs  []string
	dir    string
	run    func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewFetcher(binary string, langs []string, dir string) *Fetcher {
	return &Fetcher{
		binary: binary,
		langs:  langs,
		dir:    dir,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// Fetch downloads manual or automatic subtitles for videoURL and returns the
// path of the best .vtt file by language preference.
func (f *Fetcher) Fetch(ctx context.Context, videoURL string) (string, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("url", videoURL))
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("create subtitle dir: %w", err)
	}
	base := filepath.Join(f.dir, "transcript")
	stale, _ := filepath.Glob(base + ".*.vtt")
	for _, path := range stale {
		_ = os.Remove(path)
	}
	args := []string{
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", strings.Join(f.langs, ","),
		"--sub-format", "vtt",
		"-o", base,
		videoURL,
	}
	logger.Info("downloading subtitles", zap.String("binary", f.binary), zap.Strings("langs", f.langs))
	output, err := f.run(ctx, f.binary, args...)
	if err != nil {
		return "", fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	for _, lang := range f.langs {
		path := base + "." + lang + ".vtt"
		if _, err := os.Stat(path); err == nil {
			logger.Info("subtitles downloaded", zap.String("path", path))
			return path, nil
		}
	}
	found, _ := filepath.Glob(base + ".*.vtt")
	if len(found) > 0 {
		return found[0], nil
	}
	return "", fmt.Errorf("no vtt subtitles produced for %s", videoURL)
}

// ExtractVideoID returns the 11 character YouTube id referenced by raw, or "".
func ExtractVideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if videoIDRe.MatchString(raw) {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")
	var candidate string
	switch {
	case host == "youtu.be":
		candidate = strings.Trim(u.Path, "/")
	case strings.HasSuffix(host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			candidate = v
			break
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live") {
			candidate = parts[1]
		}
	}
	if videoIDRe.MatchString(candidate) {
		return candidate
	}
	return ""
}
