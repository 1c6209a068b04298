package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveString(t *testing.T) {
	data := map[string]any{
		"watermark": map[string]any{"time": int64(1700000000000)},
		"props":     map[string]any{"channel": "general", "limit": float64(10)},
	}
	for scenario, fn := range map[string]func(t *testing.T){
		"resolves nested path": func(t *testing.T) {
			out := ResolveString("https://api.test/items?since={$.watermark.time}", data)
			require.Equal(t, "https://api.test/items?since=1700000000000", out)
		},
		"resolves several tokens": func(t *testing.T) {
			out := ResolveString("/c/{$.props.channel}?limit={$.props.limit}", data)
			require.Equal(t, "/c/general?limit=10", out)
		},
		"missing path becomes empty": func(t *testing.T) {
			out := ResolveString("since={$.watermark.count}", data)
			require.Equal(t, "since=", out)
		},
		"non path braces untouched": func(t *testing.T) {
			out := ResolveString("{literal}", data)
			require.Equal(t, "{literal}", out)
		},
	} {
		t.Run(scenario, fn)
	}
}

func TestResolveURL(t *testing.T) {
	data := map[string]any{"watermark": map[string]any{"lastId": "a&b=c #d"}}
	for scenario, fn := range map[string]func(t *testing.T){
		"escapes substituted values": func(t *testing.T) {
			out := ResolveURL("https://api.test/items?after={$.watermark.lastId}&limit=5", data)
			require.Equal(t, "https://api.test/items?after=a%26b%3Dc+%23d&limit=5", out)
		},
		"plain resolution keeps values raw": func(t *testing.T) {
			out := ResolveString("after={$.watermark.lastId}", data)
			require.Equal(t, "after=a&b=c #d", out)
		},
	} {
		t.Run(scenario, fn)
	}
}

func TestResolveParams(t *testing.T) {
	data := map[string]any{"props": map[string]any{"q": "open"}}
	params := map[string]any{
		"state":  "{$.props.q}",
		"nested": map[string]any{"value": "x-{$.props.q}"},
		"list":   []any{"{$.props.q}", float64(3)},
		"count":  float64(1),
	}
	out := ResolveParams(params, data)
	require.Equal(t, "open", out["state"])
	require.Equal(t, map[string]any{"value": "x-open"}, out["nested"])
	require.Equal(t, []any{"open", float64(3)}, out["list"])
	require.Equal(t, float64(1), out["count"])
}

func TestFirstLastN(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6}
	require.Equal(t, []int{1, 2, 3}, FirstN(in, 3))
	require.Equal(t, []int{4, 5, 6}, LastN(in, 3))
	require.Equal(t, in, FirstN(in, 10))
	require.Equal(t, []int{}, LastN(in, 0))
}
