package pdfwrap

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/porticus-lab/go-pdfwrap/internal/pdf"
)

// ChromeEngine renders one document through a [Browser]. Create it with
// [Browser.NewEngine]. It is not safe for concurrent use.
type ChromeEngine struct {
	browser *Browser
	opts    Options
	logger  *zap.Logger

	html string
	file string
	info map[string]string

	raw     []byte
	pages   []pdf.PageInfo
	canvas  *fpdfCanvas
	metrics *coreMetrics
}

var (
	_ Engine     = (*ChromeEngine)(nil)
	_ FileLoader = (*ChromeEngine)(nil)
	_ InfoAdder  = (*ChromeEngine)(nil)
)

// LoadHTML replaces the document with markup and discards any earlier
// render.
func (e *ChromeEngine) LoadHTML(html string) error {
	e.reset()
	e.html = html
	e.file = ""
	return nil
}

// LoadFile replaces the document with the HTML file at path. Relative
// assets resolve against the file's directory.
func (e *ChromeEngine) LoadFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return &NotFoundError{Path: path, Err: err}
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return &NotFoundError{Path: path, Err: err}
	}
	if fi.IsDir() {
		return &NotFoundError{Path: path, Err: fmt.Errorf("is a directory")}
	}
	e.reset()
	e.html = ""
	e.file = abs
	return nil
}

func (e *ChromeEngine) Options() Options { return e.opts }

func (e *ChromeEngine) SetOptions(opts Options) { e.opts = opts }

// AddInfo records a document information entry such as Title or Author.
// It is written when the document is output.
func (e *ChromeEngine) AddInfo(key, value string) {
	if e.info == nil {
		e.info = make(map[string]string)
	}
	e.info[key] = value
}

// Render prints the document in a new browser tab and reads back the page
// geometry of the result.
func (e *ChromeEngine) Render(ctx context.Context) ([]string, error) {
	job := printJob{opts: e.opts}
	switch {
	case e.file != "":
		job.url = fileURL(e.file)
		if job.opts.BasePath == "" {
			job.opts.BasePath = filepath.Dir(e.file)
		}
	default:
		job.html = e.html
	}

	e.logger.Debug("render started", zap.String("file", e.file), zap.Int("html_len", len(e.html)))
	raw, warnings, err := e.browser.print(ctx, job)
	if err != nil {
		return nil, err
	}

	doc, err := pdf.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("pdfwrap: reading rendered document: %w", err)
	}
	pages, err := doc.Geometry()
	if err != nil {
		return nil, fmt.Errorf("pdfwrap: reading rendered pages: %w", err)
	}

	e.reset()
	e.raw = raw
	e.pages = pages
	e.logger.Debug("render finished",
		zap.Int("pages", len(pages)),
		zap.Int("bytes", len(raw)),
		zap.Int("warnings", len(warnings)),
	)
	return warnings, nil
}

// Canvas returns the stampable surface of the rendered document, building
// it on first use.
func (e *ChromeEngine) Canvas() (Canvas, error) {
	c, err := e.fpdf()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (e *ChromeEngine) fpdf() (*fpdfCanvas, error) {
	if e.raw == nil {
		return nil, ErrNotRendered
	}
	if e.canvas == nil {
		c, err := newFPDFCanvas(e.raw, e.pages)
		if err != nil {
			return nil, err
		}
		e.canvas = c
	}
	return e.canvas, nil
}

// FontMetrics measures with the canvas fonts.
func (e *ChromeEngine) FontMetrics() FontMetrics {
	if e.canvas != nil {
		return e.canvas
	}
	if e.metrics == nil {
		e.metrics = newCoreMetrics()
	}
	return e.metrics
}

// Output returns the rendered document. Chrome's bytes are returned as is
// unless the document was stamped or carries information entries.
func (e *ChromeEngine) Output(_ context.Context, opts OutputOptions) ([]byte, error) {
	if e.raw == nil {
		return nil, ErrNotRendered
	}
	if e.canvas == nil && len(e.info) == 0 {
		return e.raw, nil
	}
	c, err := e.fpdf()
	if err != nil {
		return nil, err
	}
	c.setInfo(e.info)
	return c.output(opts.compress())
}

func (e *ChromeEngine) reset() {
	e.raw = nil
	e.pages = nil
	e.canvas = nil
}

// fileURL converts a filesystem path to a file:// URL.
func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	return u.String()
}
