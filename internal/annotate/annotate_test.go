package annotate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsconsole/internal/annotate"
	"adsconsole/internal/content"
	"adsconsole/internal/domain"
	"adsconsole/internal/selection"
)

func mustParse(t *testing.T, s string) *content.Document {
	t.Helper()
	doc, err := content.Parse(s)
	require.NoError(t, err)
	return doc
}

const twoImages = `<p>first <img src="a.png"/></p><p>second <img src="b.png"/></p>`

func target(doc *content.Document, r *selection.Range) annotate.Target {
	return annotate.Target{Surface: "s1", Doc: doc, Range: r}
}

func TestResolveOrder(t *testing.T) {
	doc := mustParse(t, twoImages)
	imgs := doc.Images()
	require.Len(t, imgs, 2)
	first, second := imgs[0], imgs[1]
	firstText := first.Parent.FirstChild

	e := annotate.NewEngine()

	// 1: selection starts on the image.
	r := &selection.Range{Surface: "s1", Start: selection.Point{Node: first}, End: selection.Point{Node: first}}
	img, step, err := e.Resolve(target(doc, r))
	require.NoError(t, err)
	assert.Same(t, first, img)
	assert.Equal(t, annotate.StepSelection, step)

	// 3: the common ancestor's parent is not an image, the text selection
	// does not hit anything, so we fall back to the last image.
	r = &selection.Range{Surface: "s1", Start: selection.Point{Node: firstText}, End: selection.Point{Node: firstText, Offset: 2}}
	img, step, err = e.Resolve(target(doc, r))
	require.NoError(t, err)
	assert.Same(t, second, img)
	assert.Equal(t, annotate.StepFallback, step)

	// 4: a picked image wins over the fallback.
	require.NoError(t, e.Pick("s1", doc, first))
	img, step, err = e.Resolve(target(doc, nil))
	require.NoError(t, err)
	assert.Same(t, first, img)
	assert.Equal(t, annotate.StepPicked, step)

	// The pick belongs to s1 only.
	img, step, err = e.Resolve(annotate.Target{Surface: "s2", Doc: doc})
	require.NoError(t, err)
	assert.Same(t, second, img)
	assert.Equal(t, annotate.StepFallback, step)
}

func TestResolveIgnoresRangeFromOtherSurface(t *testing.T) {
	doc := mustParse(t, twoImages)
	first := doc.Images()[0]
	r := &selection.Range{Surface: "other", Start: selection.Point{Node: first}, End: selection.Point{Node: first}}

	img, step, err := annotate.NewEngine().Resolve(target(doc, r))
	require.NoError(t, err)
	assert.Equal(t, annotate.StepFallback, step)
	assert.NotSame(t, first, img)
}

func TestResolveIsDeterministic(t *testing.T) {
	doc := mustParse(t, twoImages)
	first := doc.Images()[0]
	r := &selection.Range{Surface: "s1", Start: selection.Point{Node: first}, End: selection.Point{Node: first}}
	e := annotate.NewEngine()

	want, _, err := e.Resolve(target(doc, r))
	require.NoError(t, err)
	for range 5 {
		got, _, err := e.Resolve(target(doc, r))
		require.NoError(t, err)
		assert.Same(t, want, got)
	}
}

func TestResolveNothing(t *testing.T) {
	doc := mustParse(t, `<p>no images</p>`)
	_, step, err := annotate.NewEngine().Resolve(target(doc, nil))
	assert.ErrorIs(t, err, domain.ErrNothingSelected)
	assert.Equal(t, annotate.StepNone, step)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestPickedImageRemovedFallsBack(t *testing.T) {
	doc := mustParse(t, twoImages)
	imgs := doc.Images()
	e := annotate.NewEngine()
	require.NoError(t, e.Pick("s1", doc, imgs[0]))

	imgs[0].Parent.RemoveChild(imgs[0])
	img, step, err := e.Resolve(target(doc, nil))
	require.NoError(t, err)
	assert.Same(t, imgs[1], img)
	assert.Equal(t, annotate.StepFallback, step)
}

func TestAttachViaSelectionAndFallbackMatch(t *testing.T) {
	link, ok, err := annotate.BuildLink(annotate.ModeWhatsApp, "+91 12345-67890")
	require.NoError(t, err)
	require.True(t, ok)

	// Path 1: selection on the image.
	bySel := mustParse(t, `<p><img src="a.png"/></p>`)
	img := bySel.LastImage()
	r := &selection.Range{Surface: "s1", Start: selection.Point{Node: img}, End: selection.Point{Node: img}}
	e1 := annotate.NewEngine()
	got, step, err := e1.Resolve(target(bySel, r))
	require.NoError(t, err)
	require.Equal(t, annotate.StepSelection, step)
	require.NoError(t, e1.Attach(target(bySel, r), got, link, false))

	// Path 5: no selection, last image.
	byFallback := mustParse(t, `<p><img src="a.png"/></p>`)
	e2 := annotate.NewEngine()
	got, step, err = e2.Resolve(target(byFallback, nil))
	require.NoError(t, err)
	require.Equal(t, annotate.StepFallback, step)
	require.NoError(t, e2.Attach(target(byFallback, nil), got, link, false))

	want := `<p><a href="https://wa.me/911234567890" target="_blank"><img src="a.png"/></a></p>`
	for _, doc := range []*content.Document{bySel, byFallback} {
		assert.True(t, doc.Sanitize())
		assert.Equal(t, want, doc.Render())
	}
}

func TestAttachReplace(t *testing.T) {
	doc := mustParse(t, `<p>x<a href="https://old" target="_blank"><img src="a.png"/></a>y</p>`)
	img := doc.LastImage()
	e := annotate.NewEngine()
	require.True(t, e.Linked(target(doc, nil), img))

	err := e.Attach(target(doc, nil), img, "https://t.me/new", false)
	require.ErrorIs(t, err, annotate.ErrAlreadyLinked)
	assert.Contains(t, doc.Render(), "https://old")

	require.NoError(t, e.Attach(target(doc, nil), img, "https://t.me/new", true))
	doc.Sanitize()
	assert.Equal(t, `<p>x<a href="https://t.me/new" target="_blank"><img src="a.png"/></a>y</p>`, doc.Render())
}

func TestDetach(t *testing.T) {
	doc := mustParse(t, `<p>x<a href="https://old" target="_blank"><img src="a.png"/></a>y</p>`)
	img := doc.LastImage()
	e := annotate.NewEngine()

	require.NoError(t, e.Detach(target(doc, nil), img))
	v, ok := content.Attr(img, content.FocusAttr)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	doc.Sanitize()
	assert.Equal(t, `<p>x<img src="a.png"/>y</p>`, doc.Render())

	assert.ErrorIs(t, e.Detach(target(doc, nil), img), annotate.ErrNotLinked)
}

func TestFocusMovesBetweenImages(t *testing.T) {
	doc := mustParse(t, twoImages)
	imgs := doc.Images()
	e := annotate.NewEngine()

	require.NoError(t, e.Pick("s1", doc, imgs[0]))
	require.NoError(t, e.Pick("s1", doc, imgs[1]))
	_, ok := content.Attr(imgs[0], content.FocusAttr)
	assert.False(t, ok)
	_, ok = content.Attr(imgs[0], "style")
	assert.False(t, ok)

	e.Forget()
	_, ok = content.Attr(imgs[1], content.FocusAttr)
	assert.False(t, ok)
}

func TestFocusKeepsImageOutline(t *testing.T) {
	doc := mustParse(t, `<p><img src="a.png" style="outline:3px dashed green"/><img src="b.png"/></p>`)
	imgs := doc.Images()
	e := annotate.NewEngine()

	require.NoError(t, e.Pick("s1", doc, imgs[0]))
	require.NoError(t, e.Pick("s1", doc, imgs[1]))
	style, _ := content.Attr(imgs[0], "style")
	assert.Equal(t, "outline:3px dashed green;", style)

	require.NoError(t, e.Pick("s1", doc, imgs[0]))
	doc.Sanitize()
	assert.Equal(t, `<p><img src="a.png" style="outline:3px dashed green;"/><img src="b.png"/></p>`, doc.Render())
}

func TestPickRejectsNonImage(t *testing.T) {
	doc := mustParse(t, `<p>x</p>`)
	err := annotate.NewEngine().Pick("s1", doc, doc.Root().FirstChild)
	assert.ErrorIs(t, err, content.ErrNotAnImage)
}

func TestBuildLink(t *testing.T) {
	for _, tc := range []struct {
		mode  annotate.Mode
		input string
		want  string
	}{
		{annotate.ModeWhatsApp, "+1 (555) 010-9999", "https://wa.me/15550109999"},
		{annotate.ModeTelegram, "  somebody ", "https://t.me/somebody"},
		{annotate.ModeURL, "example.com/path", "https://example.com/path"},
		{annotate.ModeURL, "example.com:8080", "https://example.com:8080"},
		{annotate.ModeURL, "http://example.com", "http://example.com"},
		{annotate.ModeURL, "mailto:me@example.com", "mailto:me@example.com"},
	} {
		got, ok, err := annotate.BuildLink(tc.mode, tc.input)
		require.NoError(t, err, tc.input)
		assert.True(t, ok)
		assert.Equal(t, tc.want, got)
	}
}

func TestBuildLinkBlankAndInvalid(t *testing.T) {
	for _, m := range annotate.Modes() {
		link, ok, err := annotate.BuildLink(m, "   ")
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, link)
	}

	_, ok, err := annotate.BuildLink(annotate.ModeWhatsApp, "call me")
	assert.False(t, ok)
	assert.ErrorIs(t, err, annotate.ErrNoDigits)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, _, err = annotate.BuildLink("fax", "123")
	assert.ErrorIs(t, err, annotate.ErrUnknownMode)
}

func TestParseMode(t *testing.T) {
	m, err := annotate.ParseMode("1")
	require.NoError(t, err)
	assert.Equal(t, annotate.ModeWhatsApp, m)
	m, err = annotate.ParseMode("Telegram")
	require.NoError(t, err)
	assert.Equal(t, annotate.ModeTelegram, m)
	_, err = annotate.ParseMode("9")
	assert.ErrorIs(t, err, annotate.ErrUnknownMode)
}
