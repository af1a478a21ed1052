package page

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, markup string) *Snapshot {
	t.Helper()
	snap, err := Parse("https://shop.example.com/cart", "Cart", markup)
	require.NoError(t, err)
	return snap
}

func TestIsVisible(t *testing.T) {
	snap := mustParse(t, `
		<div id="shown">visible</div>
		<div id="inline" style="display: none">gone</div>
		<div id="vis" style="visibility:hidden">gone</div>
		<div id="attr" hidden>gone</div>
		<div id="aria" aria-hidden="true">gone</div>
		<div id="annotated" data-cg-hidden="1">gone</div>
		<div style="display:none"><span id="nested">gone</span></div>
		<input id="hidden-input" type="hidden" value="x">
	`)

	assert.True(t, IsVisible(snap.Doc.Find("#shown")))
	for _, id := range []string{"#inline", "#vis", "#attr", "#aria", "#annotated", "#nested", "#hidden-input"} {
		assert.False(t, IsVisible(snap.Doc.Find(id)), id)
	}
	assert.False(t, IsVisible(nil))
	assert.False(t, IsVisible(snap.Doc.Find("#missing")))
}

func TestIsStruckThrough(t *testing.T) {
	snap := mustParse(t, `
		<span id="plain">$89.00</span>
		<s id="s-tag">$120.00</s>
		<del><span id="in-del">$120.00</span></del>
		<span id="styled" style="text-decoration: line-through">$120.00</span>
		<span id="annotated" data-cg-struck="1">$120.00</span>
	`)

	assert.False(t, IsStruckThrough(snap.Doc.Find("#plain")))
	for _, id := range []string{"#s-tag", "#in-del", "#styled", "#annotated"} {
		assert.True(t, IsStruckThrough(snap.Doc.Find(id)), id)
	}
}

func TestPathRoundTrip(t *testing.T) {
	snap := mustParse(t, `
		<div><span>first</span><span id="target">second</span></div>
		<div><span>other</span></div>
	`)

	target := snap.Doc.Find("#target")
	path := Path(target)
	require.NotEmpty(t, path)

	resolved := snap.Resolve(path)
	require.NotNil(t, resolved)
	assert.Equal(t, "second", Text(resolved))
	assert.Equal(t, target.Get(0), resolved.Get(0))

	assert.Nil(t, snap.Resolve(""))
	assert.Nil(t, snap.Resolve("main:nth-child(9) > div:nth-child(9)"))
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseSpace("  a\n\tb   c "))
	assert.Equal(t, "", CollapseSpace("   "))
}

func TestTruncateBytes(t *testing.T) {
	assert.Equal(t, "abc", TruncateBytes("abc", 10))
	assert.Equal(t, "ab", TruncateBytes("abc", 2))
	assert.Equal(t, "", TruncateBytes("abc", 0))

	// the cut must never land inside a multi-byte rune
	s := strings.Repeat("é", 10)
	for max := 1; max < len(s); max++ {
		out := TruncateBytes(s, max)
		assert.True(t, utf8.ValidString(out), "max=%d", max)
		assert.LessOrEqual(t, len(out), max)
	}
}
