package timestamp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	got := Validate([]string{"00:01:30", "00:02:00 - 00:02:15", "1:2:3", "abc"})
	require.Equal(t, []string{"00:01:30", "00:02:00"}, got)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "00:00:01.500", want: "00:00:01.500", ok: true},
		{raw: "01:02:03-01:02:09", want: "01:02:03", ok: true},
		{raw: " 00:10:00 - 00:11:00 ", want: "00:10:00", ok: true},
		{raw: "00:10:00.12", ok: false},
		{raw: "a - b", ok: false},
		{raw: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.raw)
		require.Equal(t, tt.ok, ok, tt.raw)
		require.Equal(t, tt.want, got, tt.raw)
	}
}

func TestFindCitations(t *testing.T) {
	text := "Intro at [00:00:05], details [00:01:00 - 00:01:30] and [00:02:00.250]. Not [1:00:00] or [00:03]."
	cites := FindCitations(text)
	require.Len(t, cites, 3)
	require.Equal(t, "00:00:05", cites[0].Start)
	require.Equal(t, "00:01:00 - 00:01:30", cites[1].Raw)
	require.Equal(t, "00:01:00", cites[1].Start)
	require.Equal(t, "00:02:00.250", cites[2].Start)
}

func TestSeconds(t *testing.T) {
	require.Equal(t, 65, Seconds("00:01:05"))
	require.Equal(t, 3723, Seconds("01:02:03.999"))
	require.Equal(t, 125, Seconds("02:05"))
	require.Equal(t, 0, Seconds("garbage"))
}

func TestWithin(t *testing.T) {
	require.True(t, Within("00:01:00", "00:00:30.000", "00:02:00.000"))
	require.True(t, Within("00:00:30.000", "00:00:30.000", "00:02:00.000"))
	require.False(t, Within("00:02:01", "00:00:30.000", "00:02:00.000"))
}
