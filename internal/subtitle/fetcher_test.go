package subtitle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10s", want: "dQw4w9WgXcQ"},
		{in: "https://youtu.be/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{in: "https://m.youtube.com/shorts/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{in: "https://www.youtube.com/embed/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{in: "dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{in: "https://example.com/watch?v=dQw4w9WgXcQ", want: ""},
		{in: "not a url", want: ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ExtractVideoID(tt.in), tt.in)
	}
}

func TestFetcher_PicksPreferredLanguage(t *testing.T) {
	dir := t.TempDir()
	f := NewFetcher("yt-dlp", []string{"en", "zh-TW"}, dir)
	var gotArgs []string
	f.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = args
		require.NoError(t, os.WriteFile(filepath.Join(dir, "transcript.zh-TW.vtt"), []byte("WEBVTT"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "transcript.en.vtt"), []byte("WEBVTT"), 0o644))
		return nil, nil
	}
	path, err := f.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "transcript.en.vtt"), path)
	require.Contains(t, gotArgs, "--skip-download")
	require.Contains(t, gotArgs, "en,zh-TW")
}

func TestFetcher_CommandFailure(t *testing.T) {
	f := NewFetcher("yt-dlp", []string{"en"}, t.TempDir())
	f.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("ERROR: video unavailable"), errors.New("exit status 1")
	}
	_, err := f.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "video unavailable")
}

func TestFetcher_NoOutput(t *testing.T) {
	f := NewFetcher("yt-dlp", []string{"en"}, t.TempDir())
	f.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, nil
	}
	_, err := f.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.Error(t, err)
}
