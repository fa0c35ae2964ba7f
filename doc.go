// Package pdfwrap turns HTML into PDF documents through a session that
// renders lazily, stamps page headers and footers, and delivers the result
// to HTTP responses, the local filesystem or object storage.
//
// Layout is done by headless Chrome over the DevTools protocol. Rendered
// pages are imported into an fpdf canvas when text has to be drawn over
// them, metadata set or the output encrypted.
//
// # Sessions
//
// A [Browser] owns the Chrome process and hands out one [ChromeEngine] per
// document. A [Session] wraps the engine:
//
//	b, err := pdfwrap.NewBrowser(pdfwrap.WithNoSandbox())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	cfg := pdfwrap.DefaultConfig()
//	s := pdfwrap.New(b.NewEngine(cfg.Options), cfg)
//
//	if err := s.LoadHTML("<h1>Invoice</h1><p>Total: €12</p>", ""); err != nil {
//	    log.Fatal(err)
//	}
//	if err := s.SetFooter(ctx, "Page {PAGE_NUM} of {PAGE_COUNT}", "center", 0); err != nil {
//	    log.Fatal(err)
//	}
//	res, err := s.Output(ctx, pdfwrap.OutputOptions{})
//
// The document is rendered once, on the first operation that needs pages
// (stamping, encryption or output). Loading new markup discards the render.
//
// # Header and footer placement
//
// Text is placed with [Place] relative to the page edges: 23pt from the
// left, 37pt from the right, 20pt from the top and 25pt from the bottom.
// Center alignment uses (width-23)/2 as the axis.
//
// # Delivery
//
//	s.Download(ctx, w, "invoice.pdf") // attachment
//	s.Stream(ctx, w, "invoice.pdf")   // inline
//	s.Save(ctx, "2024/invoice.pdf", "archive")
//
// Named disks come from the storage package: local or in-memory
// filesystems through afero, and S3-compatible buckets.
//
// # Configuration
//
// [LoadConfig] reads a TOML, YAML or JSON file with PDFWRAP_ environment
// overrides. Chrome or Chromium must be available in PATH, or use
// [WithAutoDownload].
package pdfwrap
