package pdfwrap

import (
	"context"
	"errors"
	"strings"
)

// fakeEngine is an in-memory Engine with a fixed page layout.
type fakeEngine struct {
	html      string
	opts      Options
	loadErr   error
	renderErr error
	warnings  []string
	renders   int
	pages     [][2]float64
	canvas    Canvas
	encrypts  bool
}

func newFakeEngine(pages ...[2]float64) *fakeEngine {
	if len(pages) == 0 {
		pages = [][2]float64{{612, 792}, {612, 792}, {612, 792}}
	}
	return &fakeEngine{pages: pages}
}

func (e *fakeEngine) LoadHTML(html string) error {
	if e.loadErr != nil {
		return e.loadErr
	}
	e.html = html
	e.canvas = nil
	return nil
}

func (e *fakeEngine) Options() Options        { return e.opts }
func (e *fakeEngine) SetOptions(opts Options) { e.opts = opts }

func (e *fakeEngine) Render(context.Context) ([]string, error) {
	if e.renderErr != nil {
		return nil, e.renderErr
	}
	e.renders++
	if e.encrypts {
		e.canvas = &lockingCanvas{fakeCanvas: fakeCanvas{pages: e.pages}}
	} else {
		e.canvas = &fakeCanvas{pages: e.pages}
	}
	return e.warnings, nil
}

func (e *fakeEngine) Canvas() (Canvas, error) {
	if e.canvas == nil {
		return nil, ErrNotRendered
	}
	return e.canvas, nil
}

func (e *fakeEngine) FontMetrics() FontMetrics { return fixedMetrics{} }

func (e *fakeEngine) Output(_ context.Context, opts OutputOptions) ([]byte, error) {
	if e.canvas == nil {
		return nil, ErrNotRendered
	}
	out := "%PDF-fake " + e.html
	if !opts.compress() {
		out += " uncompressed"
	}
	switch c := e.canvas.(type) {
	case *fakeCanvas:
		c.written = true
	case *lockingCanvas:
		c.written = true
	}
	return []byte(out), nil
}

// infoEngine adds document information support.
type infoEngine struct {
	*fakeEngine
	info [][2]string
}

func (e *infoEngine) AddInfo(key, value string) {
	e.info = append(e.info, [2]string{key, value})
}

// fileEngine loads files itself.
type fileEngine struct {
	*fakeEngine
	loaded string
}

func (e *fileEngine) LoadFile(path string) error {
	if strings.Contains(path, "missing") {
		return &NotFoundError{Path: path, Err: errors.New("no such file")}
	}
	e.loaded = path
	return nil
}

type drawCall struct {
	page int
	x, y float64
	text string
	font string
	size float64
}

// fakeCanvas records draw calls and cannot encrypt. Like the fpdf canvas,
// it refuses changes once output.
type fakeCanvas struct {
	pages   [][2]float64
	draws   []drawCall
	written bool
}

func (c *fakeCanvas) PageCount() int { return len(c.pages) }

func (c *fakeCanvas) PageSize(page int) (float64, float64) {
	p := c.pages[page-1]
	return p[0], p[1]
}

func (c *fakeCanvas) DrawText(page int, x, y float64, text, font string, size float64) error {
	if c.written {
		return errCanvasWritten
	}
	c.draws = append(c.draws, drawCall{page, x, y, text, font, size})
	return nil
}

// lockingCanvas is a fakeCanvas that can encrypt.
type lockingCanvas struct {
	fakeCanvas
	user, owner string
	perms       []Permission
}

func (c *lockingCanvas) Encrypt(user, owner string, perms []Permission) error {
	if c.written {
		return errCanvasWritten
	}
	c.user, c.owner, c.perms = user, owner, perms
	return nil
}

// fixedMetrics measures every glyph as half the font size wide.
type fixedMetrics struct{}

func (fixedMetrics) Font(name string) string { return "font:" + name }

func (fixedMetrics) TextWidth(text, _ string, size float64) float64 {
	return float64(len([]rune(text))) * size / 2
}
