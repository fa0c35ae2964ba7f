package pdfwrap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/porticus-lab/go-pdfwrap/internal/pdf"
)

// fpdfCanvas re-creates a rendered document in fpdf, one imported page
// template per page, so text can be drawn over it.
type fpdfCanvas struct {
	doc   *fpdf.Fpdf
	sizes []pdf.PageInfo
	tr    func(string) string

	// written holds the serialized document once output; fpdf cannot be
	// drawn on or written again after that.
	written []byte
}

var (
	_ Canvas      = (*fpdfCanvas)(nil)
	_ Encrypter   = (*fpdfCanvas)(nil)
	_ FontMetrics = (*fpdfCanvas)(nil)
)

var errCanvasWritten = errors.New("pdfwrap: document already written; render again to modify it")

// newFPDFCanvas imports every page of raw. sizes must hold the page
// geometry of raw in order.
func newFPDFCanvas(raw []byte, sizes []pdf.PageInfo) (c *fpdfCanvas, err error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("pdfwrap: document has no pages")
	}

	// gofpdi panics on sources it cannot parse.
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, fmt.Errorf("pdfwrap: importing pages: %v", r)
		}
	}()

	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: sizes[0].Width, Ht: sizes[0].Height},
	})
	doc.SetAutoPageBreak(false, 0)
	doc.SetCellMargin(0)
	doc.SetProducer("pdfwrap", false)

	imp := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(raw))
	for i, info := range sizes {
		w, h := displaySize(info)
		doc.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		tpl := imp.ImportPageFromStream(doc, &rs, i+1, "/MediaBox")
		imp.UseImportedTemplate(doc, tpl, 0, 0, w, h)
	}
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("pdfwrap: importing pages: %w", err)
	}

	return &fpdfCanvas{
		doc:   doc,
		sizes: sizes,
		tr:    doc.UnicodeTranslatorFromDescriptor(""),
	}, nil
}

// displaySize swaps the MediaBox sides of quarter-turned pages.
func displaySize(info pdf.PageInfo) (w, h float64) {
	if r := ((info.Rotation % 360) + 360) % 360; r == 90 || r == 270 {
		return info.Height, info.Width
	}
	return info.Width, info.Height
}

func (c *fpdfCanvas) PageCount() int { return len(c.sizes) }

func (c *fpdfCanvas) PageSize(page int) (width, height float64) {
	if page < 1 || page > len(c.sizes) {
		return 0, 0
	}
	return displaySize(c.sizes[page-1])
}

// DrawText writes text with its top-left corner at x, y.
func (c *fpdfCanvas) DrawText(page int, x, y float64, text, font string, size float64) error {
	if page < 1 || page > len(c.sizes) {
		return fmt.Errorf("pdfwrap: page %d out of range 1..%d", page, len(c.sizes))
	}
	if c.written != nil {
		return errCanvasWritten
	}
	c.doc.SetPage(page)
	c.doc.SetFont(c.Font(font), "", size)
	c.doc.SetTextColor(0, 0, 0)
	c.doc.SetXY(x, y)
	text = c.tr(text)
	c.doc.CellFormat(c.doc.GetStringWidth(text), size, text, "", 0, "LT", false, 0, "")
	return c.doc.Error()
}

func (c *fpdfCanvas) Font(name string) string { return coreFont(name) }

func (c *fpdfCanvas) TextWidth(text, font string, size float64) float64 {
	if c.written != nil {
		return newCoreMetrics().TextWidth(text, font, size)
	}
	c.doc.SetFont(c.Font(font), "", size)
	return c.doc.GetStringWidth(c.tr(text))
}

// Encrypt protects the document with RC4 encryption. An empty owner
// password is replaced with a random one.
func (c *fpdfCanvas) Encrypt(userPassword, ownerPassword string, permissions []Permission) error {
	if c.written != nil {
		return errCanvasWritten
	}
	var flags byte
	for _, p := range permissions {
		switch p {
		case PermPrint:
			flags |= fpdf.CnProtectPrint
		case PermModify:
			flags |= fpdf.CnProtectModify
		case PermCopy:
			flags |= fpdf.CnProtectCopy
		case PermAdd:
			flags |= fpdf.CnProtectAnnotForms
		default:
			return fmt.Errorf("pdfwrap: unknown permission %q", p)
		}
	}
	c.doc.SetProtection(flags, userPassword, ownerPassword)
	return c.doc.Error()
}

// setInfo writes the document information dictionary.
func (c *fpdfCanvas) setInfo(info map[string]string) {
	if c.written != nil {
		return
	}
	for key, value := range info {
		switch strings.ToLower(key) {
		case "title":
			c.doc.SetTitle(value, true)
		case "author":
			c.doc.SetAuthor(value, true)
		case "subject":
			c.doc.SetSubject(value, true)
		case "keywords":
			c.doc.SetKeywords(value, true)
		case "creator":
			c.doc.SetCreator(value, true)
		case "producer":
			c.doc.SetProducer(value, true)
		}
	}
}

func (c *fpdfCanvas) output(compress bool) ([]byte, error) {
	if c.written != nil {
		return c.written, nil
	}
	c.doc.SetPage(len(c.sizes))
	c.doc.SetCompression(compress)
	var buf bytes.Buffer
	if err := c.doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdfwrap: writing document: %w", err)
	}
	c.written = buf.Bytes()
	return c.written, nil
}

// coreFont maps a CSS-style family name onto one of the standard PDF
// fonts every reader ships.
func coreFont(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "serif", "times", "times-roman", "times new roman":
		return "times"
	case "monospace", "courier", "courier new":
		return "courier"
	default:
		return "helvetica"
	}
}

// coreMetrics measures text with the standard fonts before any canvas
// exists.
type coreMetrics struct {
	doc *fpdf.Fpdf
	tr  func(string) string
}

func newCoreMetrics() *coreMetrics {
	doc := fpdf.New("P", "pt", "A4", "")
	return &coreMetrics{doc: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}
}

func (m *coreMetrics) Font(name string) string { return coreFont(name) }

func (m *coreMetrics) TextWidth(text, font string, size float64) float64 {
	m.doc.SetFont(coreFont(font), "", size)
	return m.doc.GetStringWidth(m.tr(text))
}
