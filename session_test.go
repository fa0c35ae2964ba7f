package pdfwrap

import (
	"context"
	"errors"
	"html/template"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/porticus-lab/go-pdfwrap/storage"
)

func newTestSession(t *testing.T, e Engine, cfg Config, opts ...SessionOption) *Session {
	t.Helper()
	opts = append([]SessionOption{WithLogger(zaptest.NewLogger(t))}, opts...)
	return New(e, cfg, opts...)
}

func TestSession_OutputRendersOnce(t *testing.T) {
	e := newFakeEngine()
	s := newTestSession(t, e, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, s.LoadHTML("<p>hi</p>", ""))
	assert.False(t, s.Rendered())

	first, err := s.Output(ctx, OutputOptions{})
	require.NoError(t, err)
	second, err := s.Output(ctx, OutputOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, e.renders)
	assert.Equal(t, first.Bytes(), second.Bytes())
	assert.True(t, s.Rendered())
}

func TestSession_LoadResetsRender(t *testing.T) {
	e := newFakeEngine()
	s := newTestSession(t, e, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, s.LoadHTML("<p>one</p>", ""))
	_, err := s.Output(ctx, OutputOptions{})
	require.NoError(t, err)

	require.NoError(t, s.LoadHTML("<p>two</p>", ""))
	assert.False(t, s.Rendered())
	res, err := s.Output(ctx, OutputOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, e.renders)
	assert.Equal(t, "%PDF-fake <p>two</p>", string(res.Bytes()))
}

func TestSession_RenderIsForced(t *testing.T) {
	e := newFakeEngine()
	s := newTestSession(t, e, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, s.Render(ctx))
	require.NoError(t, s.Render(ctx))
	_, err := s.Output(ctx, OutputOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, e.renders)
}

func TestSession_OutputCompress(t *testing.T) {
	e := newFakeEngine()
	s := newTestSession(t, e, DefaultConfig())
	off := false

	res, err := s.Output(context.Background(), OutputOptions{Compress: &off})
	require.NoError(t, err)
	assert.Contains(t, string(res.Bytes()), "uncompressed")
}

func TestSession_ConvertEntities(t *testing.T) {
	e := newFakeEngine()
	s := newTestSession(t, e, DefaultConfig())
	require.NoError(t, s.LoadHTML("€5 £3 $1", ""))
	assert.Equal(t, "&euro;5 &pound;3 &dollar;1", e.html)

	cfg := DefaultConfig()
	cfg.ConvertEntities = false
	e = newFakeEngine()
	s = newTestSession(t, e, cfg)
	require.NoError(t, s.LoadHTML("€5", ""))
	assert.Equal(t, "€5", e.html)
}

func TestSession_LoadHTMLEncoding(t *testing.T) {
	e := newFakeEngine()
	s := newTestSession(t, e, DefaultConfig())

	require.NoError(t, s.LoadHTML("<p>\x80 caf\xe9</p>", "windows-1252"))
	assert.Equal(t, "<p>&euro; café</p>", e.html)

	require.NoError(t, s.LoadHTML("<p>café</p>", "UTF-8"))
	assert.Equal(t, "<p>café</p>", e.html)
}

func TestSession_LoadHTMLParseErrors(t *testing.T) {
	s := newTestSession(t, newFakeEngine(), DefaultConfig())

	err := s.LoadHTML("<p>x</p>", "klingon-8")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "klingon-8", perr.Encoding)
	assert.ErrorIs(t, err, ErrParse)

	err = s.LoadHTML("<p>\xff</p>", "")
	assert.ErrorIs(t, err, ErrParse)

	e := newFakeEngine()
	e.loadErr = errors.New("unbalanced tags")
	s = newTestSession(t, e, DefaultConfig())
	err = s.LoadHTML("<p>", "")
	assert.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "unbalanced tags")
}

func TestSession_LoadFileFromFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tpl/report.html", []byte("<h1>€</h1>"), 0o644))

	e := newFakeEngine()
	s := newTestSession(t, e, DefaultConfig(), WithFs(fs))
	require.NoError(t, s.LoadFile("/tpl/report.html"))
	assert.Equal(t, "<h1>€</h1>", e.html, "files are loaded verbatim")

	err := s.LoadFile("/tpl/missing.html")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "/tpl/missing.html", nf.Path)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSession_LoadFileThroughEngine(t *testing.T) {
	e := &fileEngine{fakeEngine: newFakeEngine()}
	s := newTestSession(t, e, DefaultConfig())
	ctx := context.Background()

	_, err := s.Output(ctx, OutputOptions{})
	require.NoError(t, err)

	require.NoError(t, s.LoadFile("report.html"))
	assert.Equal(t, "report.html", e.loaded)
	assert.False(t, s.Rendered())

	assert.ErrorIs(t, s.LoadFile("missing.html"), ErrNotFound)
}

func TestSession_LoadTemplate(t *testing.T) {
	tmpl := template.Must(template.New("invoice").Parse(`<h1>{{.Name}}</h1><p>{{.Total}}</p>`))
	e := newFakeEngine()
	s := newTestSession(t, e, DefaultConfig())

	require.NoError(t, s.LoadTemplate(tmpl, "", map[string]string{"Name": "<ACME>", "Total": "$40"}))
	assert.Equal(t, "<h1>&lt;ACME&gt;</h1><p>&dollar;40</p>", e.html)

	err := s.LoadTemplate(tmpl, "nope", nil)
	assert.ErrorIs(t, err, ErrParse)
}

func TestSession_SetOptionsMerge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Options.RemoteEnabled = Bool(true)
	e := newFakeEngine()
	s := newTestSession(t, e, cfg)
	assert.Equal(t, cfg.Options, e.opts)

	require.NoError(t, s.SetOptions(Options{Scale: 1.5}, true))
	assert.Equal(t, 1.5, e.opts.Scale)
	assert.Equal(t, A4, e.opts.Paper)
	assert.Equal(t, "serif", e.opts.DefaultFont)
	assert.True(t, e.opts.remoteEnabled())

	require.NoError(t, s.SetOptions(Options{Scale: 0.5}, false))
	assert.Equal(t, Options{Scale: 0.5}, e.opts)
}

func TestSession_SetOptionsMergeOverridesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Options.Orientation = Landscape
	cfg.Options.RemoteEnabled = Bool(true)
	e := newFakeEngine()
	s := newTestSession(t, e, cfg)

	require.NoError(t, s.SetOptions(Options{
		PaperName:     "letter",
		Orientation:   Portrait,
		RemoteEnabled: Bool(false),
	}, true))

	r := e.opts.resolved()
	assert.Equal(t, Letter, r.Paper)
	assert.Equal(t, Portrait, r.Orientation)
	assert.False(t, r.remoteEnabled())
}

func TestSession_SetOptionAndPaper(t *testing.T) {
	e := newFakeEngine()
	s := newTestSession(t, e, DefaultConfig())

	s.SetOption(func(o *Options) { o.DefaultFont = "monospace" }).
		SetPaper(Letter, Landscape)

	assert.Equal(t, "monospace", e.opts.DefaultFont)
	assert.Equal(t, Letter, e.opts.Paper)
	assert.Equal(t, Landscape, e.opts.Orientation)
}

func TestSession_SetInfo(t *testing.T) {
	e := &infoEngine{fakeEngine: newFakeEngine()}
	s := newTestSession(t, e, DefaultConfig())

	require.NoError(t, s.SetInfo(map[string]string{"Title": "Q3", "Author": "Finance"}))
	assert.Equal(t, [][2]string{{"Author", "Finance"}, {"Title", "Q3"}}, e.info)

	s = newTestSession(t, newFakeEngine(), DefaultConfig())
	err := s.SetInfo(map[string]string{"Title": "Q3"})
	var uerr *UnsupportedOperationError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "SetInfo", uerr.Op)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestSession_RenderWarnings(t *testing.T) {
	e := newFakeEngine()
	e.warnings = []string{"missing font", "bad css"}
	s := newTestSession(t, e, DefaultConfig()).SetWarnings(true)

	err := s.Render(context.Background())
	var werr *RenderWarningError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "missing font\nbad css\n", werr.Text())
	assert.ErrorIs(t, err, ErrRenderWarnings)
	assert.False(t, s.Rendered())
}

func TestSession_RenderWarningsDropped(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := newFakeEngine()
	e.warnings = []string{"missing font"}
	s := New(e, DefaultConfig(), WithLogger(zap.New(core)))

	require.NoError(t, s.Render(context.Background()))
	assert.True(t, s.Rendered())

	entries := logs.FilterMessage("render warnings dropped").All()
	require.Len(t, entries, 1)
	assert.Equal(t, []any{"missing font"}, entries[0].ContextMap()["warnings"])
}

func TestSession_RenderError(t *testing.T) {
	e := newFakeEngine()
	e.renderErr = errors.New("browser gone")
	s := newTestSession(t, e, DefaultConfig())

	_, err := s.Output(context.Background(), OutputOptions{})
	assert.EqualError(t, err, "browser gone")
	assert.False(t, s.Rendered())
}

func TestSession_SetFooter(t *testing.T) {
	e := newFakeEngine()
	s := newTestSession(t, e, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, s.SetFooter(ctx, "Page {PAGE_NUM} of {PAGE_COUNT}", "", 0))

	c := e.canvas.(*fakeCanvas)
	require.Len(t, c.draws, 3)
	for i, d := range c.draws {
		assert.Equal(t, i+1, d.page)
		assert.Equal(t, DefaultTextSize, d.size)
		assert.Equal(t, "font:serif", d.font)
	}
	second := c.draws[1]
	assert.Equal(t, "Page 2 of 3", second.text)
	// 11 glyphs at 3pt each.
	assert.InDelta(t, 612-37-33.0, second.x, 1e-9)
	assert.InDelta(t, 792-25.0, second.y, 1e-9)
}

func TestSession_SetHeaderCenter(t *testing.T) {
	e := newFakeEngine([2]float64{595, 842})
	s := newTestSession(t, e, DefaultConfig())

	require.NoError(t, s.SetHeader(context.Background(), "ACME", "center", 10))

	c := e.canvas.(*fakeCanvas)
	require.Len(t, c.draws, 1)
	assert.InDelta(t, (595-23)/2.0-10, c.draws[0].x, 1e-9)
	assert.InDelta(t, 20, c.draws[0].y, 1e-9)
}

func TestSession_HeaderConfigFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Header = TextConfig{TextFormat: "Confidential", Position: "left"}
	e := newFakeEngine([2]float64{612, 792})
	s := newTestSession(t, e, cfg)

	require.NoError(t, s.SetHeader(context.Background(), "", "right", 6))

	c := e.canvas.(*fakeCanvas)
	require.Len(t, c.draws, 1)
	assert.Equal(t, "Confidential", c.draws[0].text)
	assert.Equal(t, InsetLeft, c.draws[0].x, "configured position wins")
}

func TestSession_HeaderEmptyIsNoop(t *testing.T) {
	e := newFakeEngine()
	s := newTestSession(t, e, DefaultConfig())

	require.NoError(t, s.SetHeader(context.Background(), "", "right", 6))

	assert.Equal(t, 1, e.renders, "stamping still renders")
	assert.Empty(t, e.canvas.(*fakeCanvas).draws)
}

func TestSession_HeaderAndFooterShareRender(t *testing.T) {
	e := newFakeEngine()
	s := newTestSession(t, e, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, s.SetHeader(ctx, "Report", "left", 0))
	require.NoError(t, s.SetFooter(ctx, "{PAGE_NUM}", "right", 0))
	_, err := s.Output(ctx, OutputOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, e.renders)
	assert.Len(t, e.canvas.(*fakeCanvas).draws, 6)
}

func TestSession_StampAfterOutputRendersAgain(t *testing.T) {
	e := newFakeEngine()
	s := newTestSession(t, e, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, s.SetHeader(ctx, "Draft", "left", 0))
	_, err := s.Output(ctx, OutputOptions{})
	require.NoError(t, err)

	require.NoError(t, s.SetFooter(ctx, "{PAGE_NUM}", "right", 0))
	assert.Equal(t, 2, e.renders)
	c := e.canvas.(*fakeCanvas)
	require.Len(t, c.draws, 3)
	assert.Equal(t, "1", c.draws[0].text)

	// Output again reuses the fresh render.
	_, err = s.Output(ctx, OutputOptions{})
	require.NoError(t, err)
	_, err = s.Output(ctx, OutputOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, e.renders)
}

func TestSession_EncryptAfterOutputRendersAgain(t *testing.T) {
	e := newFakeEngine()
	e.encrypts = true
	s := newTestSession(t, e, DefaultConfig())
	ctx := context.Background()

	_, err := s.Output(ctx, OutputOptions{})
	require.NoError(t, err)

	require.NoError(t, s.SetEncryption(ctx, "user", "owner", PermPrint))
	assert.Equal(t, 2, e.renders)
	assert.Equal(t, "user", e.canvas.(*lockingCanvas).user)
}

func TestSession_SetEncryption(t *testing.T) {
	e := newFakeEngine()
	e.encrypts = true
	s := newTestSession(t, e, DefaultConfig())

	require.NoError(t, s.SetEncryption(context.Background(), "user", "owner", PermPrint, PermCopy))

	c := e.canvas.(*lockingCanvas)
	assert.Equal(t, "user", c.user)
	assert.Equal(t, "owner", c.owner)
	assert.Equal(t, []Permission{PermPrint, PermCopy}, c.perms)
}

func TestSession_SetEncryptionUnsupported(t *testing.T) {
	s := newTestSession(t, newFakeEngine(), DefaultConfig())

	err := s.SetEncryption(context.Background(), "user", "", PermPrint)
	var eerr *EncryptionUnsupportedError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, "*pdfwrap.fakeCanvas", eerr.Canvas)
	assert.ErrorIs(t, err, ErrEncryptionUnsupported)
}

func TestSession_SaveToDisk(t *testing.T) {
	archive := afero.NewMemMapFs()
	fsDisk, err := storage.NewFS(archive, "/archive")
	require.NoError(t, err)
	disks := storage.Disks{"archive": fsDisk}

	cfg := DefaultConfig()
	cfg.Disk = "archive"
	s := newTestSession(t, newFakeEngine(), cfg, WithDisks(disks))
	require.NoError(t, s.LoadHTML("x", ""))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "2024/a.pdf", ""))
	got, err := afero.ReadFile(archive, "/archive/2024/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fake x", string(got))

	err = s.Save(ctx, "a.pdf", "cold")
	assert.ErrorIs(t, err, storage.ErrUnknownDisk)
}

func TestSession_SaveToFs(t *testing.T) {
	local := afero.NewMemMapFs()
	s := newTestSession(t, newFakeEngine(), DefaultConfig(), WithFs(local))
	require.NoError(t, s.LoadHTML("y", ""))

	require.NoError(t, s.Save(context.Background(), "/out/y.pdf", ""))
	got, err := afero.ReadFile(local, "/out/y.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fake y", string(got))
}

func TestSession_Engine(t *testing.T) {
	e := newFakeEngine()
	s := newTestSession(t, e, DefaultConfig())
	assert.Same(t, e, s.Engine())
}
