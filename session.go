package pdfwrap

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"unicode/utf8"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/porticus-lab/go-pdfwrap/storage"
)

// Defaults for [Session.SetHeader] and [Session.SetFooter].
const (
	DefaultTextPosition = "right"
	DefaultTextSize     = 6.0
)

// Session drives one document through an [Engine]: load markup, adjust
// options, stamp headers and footers, then output or deliver the PDF.
//
// The engine renders at most once per loaded document unless [Session.Render]
// is called explicitly. A Session is not safe for concurrent use.
type Session struct {
	engine       Engine
	config       Config
	defaults     Options
	showWarnings bool
	rendered     bool
	// written is set once Output has consumed the rendered canvas.
	written bool

	logger *zap.Logger
	disks  storage.Disks
	fs     afero.Fs
}

// New returns a Session over engine. The engine starts from cfg.Options,
// which also serve as the defaults for SetOptions with merge.
func New(engine Engine, cfg Config, opts ...SessionOption) *Session {
	s := &Session{
		engine:       engine,
		config:       cfg,
		defaults:     cfg.Options,
		showWarnings: cfg.ShowWarnings,
		logger:       zap.NewNop(),
		fs:           afero.NewOsFs(),
	}
	for _, o := range opts {
		o(s)
	}
	engine.SetOptions(cfg.Options)
	return s
}

// Engine returns the underlying engine for direct use.
func (s *Session) Engine() Engine { return s.engine }

// Rendered reports whether the current document has been rendered.
func (s *Session) Rendered() bool { return s.rendered }

// LoadHTML loads markup. A non-empty encoding names the character set of
// html (for example "windows-1252"); it is converted to UTF-8 first.
func (s *Session) LoadHTML(html, encoding string) error {
	text, err := decodeMarkup(html, encoding)
	if err != nil {
		return err
	}
	if s.config.ConvertEntities {
		text = ConvertEntities(text)
	}
	if err := s.engine.LoadHTML(text); err != nil {
		return &ParseError{Encoding: encoding, Err: err}
	}
	s.rendered = false
	return nil
}

// LoadTemplate executes the named template of tmpl with data and loads
// the result. An empty name executes tmpl itself.
func (s *Session) LoadTemplate(tmpl *template.Template, name string, data any) error {
	var buf bytes.Buffer
	var err error
	if name == "" {
		err = tmpl.Execute(&buf, data)
	} else {
		err = tmpl.ExecuteTemplate(&buf, name, data)
	}
	if err != nil {
		return &ParseError{Err: fmt.Errorf("executing template: %w", err)}
	}
	return s.LoadHTML(buf.String(), "")
}

// LoadFile loads an HTML file. Engines that implement [FileLoader] read it
// themselves so relative assets resolve against the file.
func (s *Session) LoadFile(path string) error {
	if fl, ok := s.engine.(FileLoader); ok {
		if err := fl.LoadFile(path); err != nil {
			return err
		}
		s.rendered = false
		return nil
	}

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return &NotFoundError{Path: path, Err: err}
	}
	if err := s.engine.LoadHTML(string(data)); err != nil {
		return &ParseError{Err: err}
	}
	s.rendered = false
	return nil
}

// SetOptions replaces the engine options. With merge, the non-zero fields
// of opts are laid over the session defaults instead.
func (s *Session) SetOptions(opts Options, merge bool) error {
	if merge {
		merged, err := MergeOptions(s.defaults, opts)
		if err != nil {
			return err
		}
		opts = merged
	}
	s.engine.SetOptions(opts)
	return nil
}

// OptionFunc edits engine options in place.
type OptionFunc func(*Options)

// SetOption applies fn to the current engine options.
func (s *Session) SetOption(fn OptionFunc) *Session {
	opts := s.engine.Options()
	fn(&opts)
	s.engine.SetOptions(opts)
	return s
}

// SetPaper sets the paper size and orientation.
func (s *Session) SetPaper(size PageSize, orientation Orientation) *Session {
	return s.SetOption(func(o *Options) {
		o.Paper = size
		o.PaperName = ""
		o.Orientation = orientation
	})
}

// SetWarnings toggles whether render warnings fail with a
// [RenderWarningError].
func (s *Session) SetWarnings(show bool) *Session {
	s.showWarnings = show
	return s
}

// SetInfo adds document information entries such as Title or Author.
func (s *Session) SetInfo(info map[string]string) error {
	ia, ok := s.engine.(InfoAdder)
	if !ok {
		return &UnsupportedOperationError{Op: "SetInfo"}
	}
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ia.AddInfo(k, info[k])
	}
	return nil
}

// Render runs a layout pass now, even if the document was rendered before.
func (s *Session) Render(ctx context.Context) error {
	warnings, err := s.engine.Render(ctx)
	if err != nil {
		return err
	}
	if len(warnings) > 0 {
		if s.showWarnings {
			return &RenderWarningError{Warnings: warnings}
		}
		s.logger.Debug("render warnings dropped", zap.Strings("warnings", warnings))
	}
	s.rendered = true
	s.written = false
	return nil
}

func (s *Session) ensureRendered(ctx context.Context) error {
	if s.rendered {
		return nil
	}
	return s.Render(ctx)
}

// ensureCanvas is ensureRendered for callers that modify the canvas. A
// canvas already written by Output is sealed, so the document is rendered
// again; text stamped before that Output is not carried over.
func (s *Session) ensureCanvas(ctx context.Context) error {
	if s.written {
		s.logger.Debug("re-rendering written document")
		s.rendered = false
	}
	return s.ensureRendered(ctx)
}

// SetHeader draws text at the top of every page. An empty text falls back
// to the configured header; tokens {PAGE_NUM} and {PAGE_COUNT} are
// replaced per page. A configured position wins over position. Empty
// position means right, zero size means 6pt.
func (s *Session) SetHeader(ctx context.Context, text, position string, size float64) error {
	return s.stampText(ctx, "top", s.config.Header, text, position, size)
}

// SetFooter draws text at the bottom of every page, as SetHeader does at
// the top.
func (s *Session) SetFooter(ctx context.Context, text, position string, size float64) error {
	return s.stampText(ctx, "bottom", s.config.Footer, text, position, size)
}

func (s *Session) stampText(ctx context.Context, edge string, cfg TextConfig, text, position string, size float64) error {
	if err := s.ensureCanvas(ctx); err != nil {
		return err
	}

	if text == "" {
		text = cfg.TextFormat
	}
	if cfg.Position != "" {
		position = cfg.Position
	}
	if position == "" {
		position = DefaultTextPosition
	}
	if size <= 0 {
		size = DefaultTextSize
	}
	if text == "" {
		return nil
	}

	canvas, err := s.engine.Canvas()
	if err != nil {
		return err
	}
	metrics := s.engine.FontMetrics()
	family := s.engine.Options().DefaultFont
	if family == "" {
		family = s.defaults.DefaultFont
	}
	anchor := Anchor(edge + "-" + position)
	return stamp(canvas, metrics, text, anchor, metrics.Font(family), size)
}

// SetEncryption password-protects the output. Permissions name what a user
// opening the document with userPassword may do.
func (s *Session) SetEncryption(ctx context.Context, userPassword, ownerPassword string, permissions ...Permission) error {
	if err := s.ensureCanvas(ctx); err != nil {
		return err
	}
	canvas, err := s.engine.Canvas()
	if err != nil {
		return err
	}
	enc, ok := canvas.(Encrypter)
	if !ok {
		return &EncryptionUnsupportedError{Canvas: fmt.Sprintf("%T", canvas)}
	}
	return enc.Encrypt(userPassword, ownerPassword, permissions)
}

// Output returns the PDF, rendering first if needed.
func (s *Session) Output(ctx context.Context, opts OutputOptions) (*Result, error) {
	if err := s.ensureRendered(ctx); err != nil {
		return nil, err
	}
	data, err := s.engine.Output(ctx, opts)
	if err != nil {
		return nil, err
	}
	s.written = true
	return &Result{data: data}, nil
}

// Save writes the PDF to filename on the named disk, falling back to the
// configured disk. With neither, it writes to the session filesystem at
// filename exactly as given, so callers handling untrusted names should
// name a disk.
func (s *Session) Save(ctx context.Context, filename, disk string) error {
	res, err := s.Output(ctx, OutputOptions{})
	if err != nil {
		return err
	}
	if disk == "" {
		disk = s.config.Disk
	}
	if disk != "" {
		d, err := s.disks.Disk(disk)
		if err != nil {
			return err
		}
		if err := d.Put(ctx, filename, res.Bytes()); err != nil {
			return err
		}
		s.logger.Info("document saved", zap.String("disk", disk), zap.String("path", filename), zap.Int("size", res.Len()))
		return nil
	}

	if err := afero.WriteFile(s.fs, filename, res.Bytes(), 0o644); err != nil {
		return fmt.Errorf("pdfwrap: saving %s: %w", filename, err)
	}
	s.logger.Info("document saved", zap.String("path", filename), zap.Int("size", res.Len()))
	return nil
}

// decodeMarkup converts html from the named character set to UTF-8.
func decodeMarkup(html, encoding string) (string, error) {
	if encoding != "" {
		enc, name := charset.Lookup(encoding)
		if enc == nil {
			return "", &ParseError{Encoding: encoding, Err: fmt.Errorf("unknown character set")}
		}
		if name != "utf-8" {
			out, err := enc.NewDecoder().String(html)
			if err != nil {
				return "", &ParseError{Encoding: encoding, Err: err}
			}
			html = out
		}
	}
	if !utf8.ValidString(html) {
		return "", &ParseError{Encoding: encoding, Err: fmt.Errorf("invalid UTF-8")}
	}
	return html, nil
}
