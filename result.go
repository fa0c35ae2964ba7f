package pdfwrap

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/porticus-lab/go-pdfwrap/internal/pdf"
)

// Result holds an output PDF. Its methods never modify the data and may
// be called any number of times.
type Result struct {
	data []byte
}

// Bytes returns the raw PDF content.
func (r *Result) Bytes() []byte {
	return r.data
}

// Len returns the size of the PDF in bytes.
func (r *Result) Len() int {
	return len(r.data)
}

// Base64 returns the PDF encoded as a standard base64 string (RFC 4648),
// for JSON payloads.
func (r *Result) Base64() string {
	return base64.StdEncoding.EncodeToString(r.data)
}

// Reader returns an [*bytes.Reader] over the PDF content.
func (r *Result) Reader() *bytes.Reader {
	return bytes.NewReader(r.data)
}

// WriteTo writes the full PDF content to w. It implements [io.WriterTo].
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// WriteToFile writes the PDF to path on fs, creating it if needed.
func (r *Result) WriteToFile(fs afero.Fs, path string) error {
	return afero.WriteFile(fs, path, r.data, 0o644)
}

// Pages returns the size in points of every page, in order. Quarter-turned
// pages report their displayed size.
func (r *Result) Pages() ([]PageMetrics, error) {
	doc, err := pdf.Load(r.data)
	if err != nil {
		return nil, fmt.Errorf("pdfwrap: reading output: %w", err)
	}
	geo, err := doc.Geometry()
	if err != nil {
		return nil, fmt.Errorf("pdfwrap: reading output pages: %w", err)
	}
	out := make([]PageMetrics, len(geo))
	for i, g := range geo {
		w, h := displaySize(g)
		out[i] = PageMetrics{Width: w, Height: h, PageNumber: i + 1, PageCount: len(geo)}
	}
	return out, nil
}

// Info returns the document information entries (Title, Author, ...).
// Encrypted documents report their entries still encrypted.
func (r *Result) Info() (map[string]string, error) {
	doc, err := pdf.Load(r.data)
	if err != nil {
		return nil, fmt.Errorf("pdfwrap: reading output: %w", err)
	}
	return doc.Info(), nil
}
