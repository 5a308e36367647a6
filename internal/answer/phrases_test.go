package answer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPhrases(t *testing.T) {
	p := DefaultPhrases()
	require.Equal(t, 1, p.Version)
	require.Equal(t, "No information found in the transcript for this question. ", p.Notice)
	require.Equal(t, []string{"no information", "not found", "cannot find"}, p.Strong)
	require.Contains(t, p.Phrases, "doesn't mention")
	require.Contains(t, p.Phrases, "not articulated in the transcript")
	require.Contains(t, p.Phrases, "no evidence of")
	require.Contains(t, p.Phrases, "no details about")
}

func TestPhrases_Matching(t *testing.T) {
	p := DefaultPhrases()
	require.True(t, p.DeniesCoverage("The speaker DOES NOT MENTION that."))
	require.True(t, p.DeniesCoverage("there is no evidence of this"))
	require.False(t, p.DeniesCoverage("The speaker mentions it at [00:01:00]."))
	require.True(t, p.HasStrongMarker("That was Not Found in the transcript."))
	require.False(t, p.HasStrongMarker("It is not mentioned."))
}

func TestLoadPhrases_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 2\nnotice: \"N: \"\nstrong: [nada]\nphrases: [Nada]\n"), 0o644))
	p, err := LoadPhrases(path)
	require.NoError(t, err)
	require.Equal(t, 2, p.Version)
	require.Equal(t, []string{"nada"}, p.Phrases)

	_, err = LoadPhrases(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("version: 3\n"), 0o644))
	_, err = LoadPhrases(path)
	require.Error(t, err)
}
