package pdfwrap

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
)

// Browser owns a headless Chrome instance that engines render through.
//
// A Browser is safe for concurrent use; each render opens its own tab.
// Call [Browser.Close] when the Browser is no longer needed to release
// browser resources.
type Browser struct {
	cfg           browserConfig
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewBrowser starts a headless browser, or attaches to a remote one when
// [WithRemoteURL] is given.
func NewBrowser(opts ...BrowserOption) (*Browser, error) {
	cfg := defaultBrowserConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.chromePath == "" && cfg.autoDownload && cfg.remoteURL == "" {
		path, err := resolveBrowser()
		if err != nil {
			return nil, err
		}
		cfg.chromePath = path
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.remoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.remoteURL)
	} else {
		allocOpts := append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("disable-background-networking", true),
			chromedp.Flag("disable-sync", true),
			chromedp.Flag("disable-translate", true),
			chromedp.Flag("no-first-run", true),
			chromedp.Flag("headless", cfg.headless),
		)
		if cfg.chromePath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(cfg.chromePath))
		}
		if cfg.noSandbox {
			allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
	}

	logger := cfg.logger
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	// Start the browser eagerly so errors surface at creation time.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("pdfwrap: starting browser: %w", err)
	}
	logger.Debug("browser started", zap.String("path", cfg.chromePath), zap.String("remote", cfg.remoteURL))

	return &Browser{
		cfg:           cfg,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close releases all resources held by the Browser, including the
// browser process. Close is idempotent.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.browserCancel()
	b.allocCancel()
	b.cfg.logger.Debug("browser closed")
	return nil
}

// NewEngine returns an engine holding one document, rendered through b.
func (b *Browser) NewEngine(opts Options) *ChromeEngine {
	return &ChromeEngine{
		browser: b,
		opts:    opts,
		logger:  b.cfg.logger,
	}
}

func (b *Browser) checkClosed() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

// printJob is one document to print. Exactly one of html and url is set.
type printJob struct {
	html string
	url  string
	opts Options
}

// print renders job in a fresh tab and returns the PDF bytes together
// with the console warnings, errors and exceptions raised by the page.
func (b *Browser) print(ctx context.Context, job printJob) ([]byte, []string, error) {
	if err := b.checkClosed(); err != nil {
		return nil, nil, err
	}

	if b.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.timeout)
		defer cancel()
	}

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	var warnings warningCollector
	chromedp.ListenTarget(tabCtx, warnings.listen)

	resolved := job.opts.resolved()
	width, height := resolved.paperDimensions()
	marginTop, marginRight, marginBottom, marginLeft := resolved.marginInches()

	tasks := chromedp.Tasks{
		log.Enable(),
		network.Enable(),
	}
	if !resolved.remoteEnabled() {
		tasks = append(tasks, network.SetBlockedURLs([]string{"http://*", "https://*"}))
	}
	if job.url != "" {
		tasks = append(tasks, chromedp.Navigate(job.url))
	} else {
		tasks = append(tasks,
			chromedp.Navigate("about:blank"),
			chromedp.ActionFunc(func(ctx context.Context) error {
				tree, err := page.GetFrameTree().Do(ctx)
				if err != nil {
					return err
				}
				return page.SetDocumentContent(tree.Frame.ID, withBase(job.html, resolved.BasePath)).Do(ctx)
			}),
		)
	}

	var buf []byte
	tasks = append(tasks,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPaperWidth(width).
				WithPaperHeight(height).
				WithMarginTop(marginTop).
				WithMarginRight(marginRight).
				WithMarginBottom(marginBottom).
				WithMarginLeft(marginLeft).
				WithScale(resolved.Scale).
				WithPrintBackground(*resolved.PrintBackground).
				WithLandscape(resolved.Orientation == Landscape).
				WithPreferCSSPageSize(resolved.preferCSSPageSize()).
				Do(ctx)
			return err
		}),
	)

	if err := chromedp.Run(tabCtx, tasks); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, fmt.Errorf("pdfwrap: render aborted: %w", ctxErr)
		}
		return nil, nil, fmt.Errorf("pdfwrap: render failed: %w", err)
	}
	return buf, warnings.list(), nil
}

// withBase injects a <base> element so relative URLs in html resolve
// against dir.
func withBase(html, dir string) string {
	if dir == "" {
		return html
	}
	href := fileURL(dir)
	if !strings.HasSuffix(href, "/") {
		href += "/"
	}
	tag := `<base href="` + href + `">`

	lower := strings.ToLower(html)
	if i := strings.Index(lower, "<head"); i >= 0 {
		if j := strings.IndexByte(html[i:], '>'); j >= 0 {
			at := i + j + 1
			return html[:at] + tag + html[at:]
		}
	}
	return tag + html
}

// warningCollector gathers page diagnostics from target events. Events
// arrive on the chromedp event goroutine.
type warningCollector struct {
	mu   sync.Mutex
	msgs []string
}

func (w *warningCollector) listen(ev any) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		if ev.Type != runtime.APITypeWarning && ev.Type != runtime.APITypeError {
			return
		}
		parts := make([]string, 0, len(ev.Args))
		for _, arg := range ev.Args {
			parts = append(parts, remoteObjectText(arg))
		}
		w.add("console " + string(ev.Type) + ": " + strings.Join(parts, " "))
	case *runtime.EventExceptionThrown:
		d := ev.ExceptionDetails
		if d == nil {
			return
		}
		msg := d.Text
		if d.Exception != nil && d.Exception.Description != "" {
			msg = d.Exception.Description
		}
		w.add("exception: " + msg)
	case *log.EventEntryAdded:
		e := ev.Entry
		if e == nil || e.Level != log.LevelWarning && e.Level != log.LevelError {
			return
		}
		msg := string(e.Source) + " " + string(e.Level) + ": " + e.Text
		if e.URL != "" {
			msg += " (" + e.URL + ")"
		}
		w.add(msg)
	}
}

func (w *warningCollector) add(msg string) {
	w.mu.Lock()
	w.msgs = append(w.msgs, msg)
	w.mu.Unlock()
}

func (w *warningCollector) list() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.msgs...)
}

func remoteObjectText(obj *runtime.RemoteObject) string {
	if obj == nil {
		return ""
	}
	if obj.Description != "" {
		return obj.Description
	}
	if len(obj.Value) > 0 {
		return strings.Trim(string(obj.Value), `"`)
	}
	return string(obj.Type)
}

// resolveBrowser downloads a compatible Chromium binary if one is not
// already cached and returns the path to the executable. The binary is
// stored in ~/.cache/rod/browser (Unix) or %APPDATA%\rod\browser (Windows).
func resolveBrowser() (string, error) {
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("pdfwrap: downloading browser: %w", err)
	}
	return path, nil
}
