package pdfwrap

import (
	"strconv"
	"strings"
)

// Anchor names a page-relative position for stamped text, such as
// "bottom-right". Unrecognized anchors resolve to top-left.
type Anchor string

// Recognized anchors.
const (
	TopLeft      Anchor = "top-left"
	TopCenter    Anchor = "top-center"
	TopRight     Anchor = "top-right"
	BottomLeft   Anchor = "bottom-left"
	BottomCenter Anchor = "bottom-center"
	BottomRight  Anchor = "bottom-right"
)

// Insets, in points, from the page edges. The right inset is larger than
// the left one so right-aligned text stays clear of the edge.
const (
	InsetLeft   = 23.0
	InsetRight  = 37.0
	InsetTop    = 20.0
	InsetBottom = 25.0
)

// Page-number tokens recognized in header and footer templates.
const (
	TokenPageNum   = "{PAGE_NUM}"
	TokenPageCount = "{PAGE_COUNT}"
)

// PageMetrics is a snapshot of one rendered page.
type PageMetrics struct {
	Width      float64
	Height     float64
	PageNumber int // 1-based
	PageCount  int
}

// ExpandTokens substitutes the page-number tokens in template.
func ExpandTokens(template string, pageNumber, pageCount int) string {
	return strings.NewReplacer(
		TokenPageNum, strconv.Itoa(pageNumber),
		TokenPageCount, strconv.Itoa(pageCount),
	).Replace(template)
}

// Place returns where text of the given measured width starts on a page of
// the given size. The y coordinate is the top of the text, measured from
// the top edge.
func Place(width, height float64, anchor Anchor, textWidth float64) (x, y float64) {
	switch anchor {
	case TopRight:
		return width - InsetRight - textWidth, InsetTop
	case TopCenter:
		return (width-InsetLeft)/2 - textWidth/2, InsetTop
	case BottomLeft:
		return InsetLeft, height - InsetBottom
	case BottomRight:
		return width - InsetRight - textWidth, height - InsetBottom
	case BottomCenter:
		return (width-InsetLeft)/2 - textWidth/2, height - InsetBottom
	default:
		return InsetLeft, InsetTop
	}
}

// stamp draws template on every page of canvas at anchor.
func stamp(canvas Canvas, metrics FontMetrics, template string, anchor Anchor, font string, size float64) error {
	count := canvas.PageCount()
	for n := 1; n <= count; n++ {
		w, h := canvas.PageSize(n)
		pm := PageMetrics{Width: w, Height: h, PageNumber: n, PageCount: count}

		text := ExpandTokens(template, pm.PageNumber, pm.PageCount)
		x, y := Place(pm.Width, pm.Height, anchor, metrics.TextWidth(text, font, size))
		if err := canvas.DrawText(n, x, y, text, font, size); err != nil {
			return err
		}
	}
	return nil
}
