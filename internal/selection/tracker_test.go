package selection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsconsole/internal/content"
	"adsconsole/internal/selection"
)

func mustParse(t *testing.T, s string) *content.Document {
	t.Helper()
	doc, err := content.Parse(s)
	require.NoError(t, err)
	return doc
}

type fakeHandle struct {
	current  *selection.Range
	valid    bool
	selected []selection.Range
}

func (h *fakeHandle) Selection() (selection.Range, bool) {
	if h.current == nil {
		return selection.Range{}, false
	}
	return *h.current, true
}

func (h *fakeHandle) Select(r selection.Range) error {
	if !h.valid {
		return selection.ErrStale
	}
	h.selected = append(h.selected, r)
	h.current = &r
	return nil
}

func TestCaptureWithoutSelection(t *testing.T) {
	tr := selection.NewTracker(&fakeHandle{valid: true})
	assert.False(t, tr.Capture())
	assert.False(t, tr.Restore())
}

func TestCaptureRestore(t *testing.T) {
	doc := mustParse(t, "<p>hello</p>")
	text := doc.Root().FirstChild.FirstChild
	r := selection.Range{Surface: "tmp-top-1-a", Generation: 1, Start: selection.Point{Node: text, Offset: 1}, End: selection.Point{Node: text, Offset: 3}}

	h := &fakeHandle{current: &r, valid: true}
	tr := selection.NewTracker(h)
	require.True(t, tr.Capture())

	h.current = nil // prompt stole focus
	require.True(t, tr.Restore())
	require.Len(t, h.selected, 1)
	assert.Equal(t, r, h.selected[0])

	saved, ok := tr.Saved()
	assert.True(t, ok)
	assert.Equal(t, r, saved)
}

func TestRestoreStaleIsNoop(t *testing.T) {
	r := selection.Range{Surface: "b1", Generation: 1}
	h := &fakeHandle{current: &r, valid: true}
	tr := selection.NewTracker(h)
	require.True(t, tr.Capture())

	h.valid = false
	assert.False(t, tr.Restore())
	assert.Empty(t, h.selected)

	// The stale snapshot is gone for good.
	h.valid = true
	assert.False(t, tr.Restore())
}

func TestCaptureKeepsPreviousSnapshot(t *testing.T) {
	r := selection.Range{Surface: "b1", Generation: 2}
	h := &fakeHandle{current: &r, valid: true}
	tr := selection.NewTracker(h)
	require.True(t, tr.Capture())

	h.current = nil
	assert.False(t, tr.Capture())
	saved, ok := tr.Saved()
	require.True(t, ok)
	assert.Equal(t, "b1", saved.Surface)

	tr.Clear()
	_, ok = tr.Saved()
	assert.False(t, ok)
}

func TestCommonAncestor(t *testing.T) {
	doc := mustParse(t, `<p><b>ab</b><i>cd</i></p>`)
	p := doc.Root().FirstChild
	ab := p.FirstChild.FirstChild
	cd := p.LastChild.FirstChild

	r := selection.Range{Start: selection.Point{Node: ab}, End: selection.Point{Node: cd, Offset: 1}}
	assert.Same(t, p, r.CommonAncestor())
	assert.False(t, r.Collapsed())

	caret := selection.Range{Start: selection.Point{Node: ab, Offset: 1}, End: selection.Point{Node: ab, Offset: 1}}
	assert.Same(t, ab, caret.CommonAncestor())
	assert.True(t, caret.Collapsed())

	assert.Nil(t, selection.Range{}.CommonAncestor())
}
