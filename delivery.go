package pdfwrap

import (
	"context"
	"net/http"
	"strconv"
)

// DefaultFilename is used by Download and Stream when filename is empty.
const DefaultFilename = "document.pdf"

// Download writes the PDF to w as an attachment.
func (s *Session) Download(ctx context.Context, w http.ResponseWriter, filename string) error {
	res, err := s.Output(ctx, OutputOptions{})
	if err != nil {
		return err
	}
	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Length", strconv.Itoa(res.Len()))
	h.Set("Content-Disposition", contentDisposition("attachment", filename))
	w.WriteHeader(http.StatusOK)
	_, err = res.WriteTo(w)
	return err
}

// Stream writes the PDF to w for display inline in the browser.
func (s *Session) Stream(ctx context.Context, w http.ResponseWriter, filename string) error {
	res, err := s.Output(ctx, OutputOptions{})
	if err != nil {
		return err
	}
	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", contentDisposition("inline", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := res.WriteTo(w); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func contentDisposition(kind, filename string) string {
	if filename == "" {
		filename = DefaultFilename
	}
	name := FallbackName(filename)
	if name == "" {
		name = DefaultFilename
	}
	return kind + `; filename="` + name + `"`
}
