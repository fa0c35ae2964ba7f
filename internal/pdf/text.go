package pdf

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// textSpan is a run of text shown at a position in text space.
type textSpan struct {
	x, y float64
	text string
}

// PageText returns the text shown directly in the content of page, one
// line per baseline from top to bottom. Strings are read as
// WinAnsiEncoding; composite fonts and form XObjects are not followed.
func (doc *Document) PageText(page Dict) (string, error) {
	content, err := doc.contents(page)
	if err != nil {
		return "", err
	}
	return spansToText(scanText(content)), nil
}

// Text returns PageText for every page in order.
func (doc *Document) Text() ([]string, error) {
	pages, err := doc.Pages()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(pages))
	for i, p := range pages {
		text, err := doc.PageText(p)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		out[i] = text
	}
	return out, nil
}

// contents concatenates the decoded content streams of page.
func (doc *Document) contents(page Dict) ([]byte, error) {
	obj := doc.Resolve(page["Contents"])
	var streams []*Object
	switch obj.Kind {
	case KindStream:
		streams = append(streams, obj)
	case KindArray:
		for _, item := range obj.Array {
			if s := doc.Resolve(item); s.Kind == KindStream {
				streams = append(streams, s)
			}
		}
	}

	var buf bytes.Buffer
	for _, s := range streams {
		data, err := decodeStream(s)
		if err != nil {
			return nil, fmt.Errorf("content stream: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// scanText walks a content stream and records every shown string.
func scanText(data []byte) []textSpan {
	l := newLexer(data, 0)
	var (
		spans    []textSpan
		operands []*Object
		tx, ty   float64 // text position
		lx, ly   float64 // start of line
		leading  float64
	)
	show := func(s string) {
		if s != "" {
			spans = append(spans, textSpan{x: tx, y: ty, text: s})
		}
	}
	nextLine := func() {
		ly -= leading
		tx, ty = lx, ly
	}

	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			break
		}
		c := l.data[l.pos]
		if c == '(' || c == '<' || c == '/' || c == '[' || c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
			obj, err := l.object()
			if err != nil {
				break
			}
			operands = append(operands, obj)
			continue
		}

		op := l.token()
		if op == "" {
			l.pos++
			continue
		}
		args := operands
		operands = operands[:0]

		switch op {
		case "BT":
			tx, ty, lx, ly = 0, 0, 0, 0
		case "TL":
			if len(args) >= 1 {
				leading = Number(args[0])
			}
		case "Td", "TD":
			if len(args) >= 2 {
				if op == "TD" {
					leading = -Number(args[1])
				}
				lx += Number(args[0])
				ly += Number(args[1])
				tx, ty = lx, ly
			}
		case "Tm":
			if len(args) >= 6 {
				lx, ly = Number(args[4]), Number(args[5])
				tx, ty = lx, ly
			}
		case "T*":
			nextLine()
		case "Tj":
			if len(args) >= 1 {
				show(decodeShown(args[0]))
			}
		case "'":
			nextLine()
			if len(args) >= 1 {
				show(decodeShown(args[0]))
			}
		case `"`:
			nextLine()
			if len(args) >= 3 {
				show(decodeShown(args[2]))
			}
		case "TJ":
			if len(args) >= 1 && args[0].Kind == KindArray {
				var b strings.Builder
				for _, el := range args[0].Array {
					switch el.Kind {
					case KindString:
						b.WriteString(decodeShown(el))
					case KindInt, KindReal:
						// Large negative adjustments separate words.
						if Number(el) < -100 {
							b.WriteByte(' ')
						}
					}
				}
				show(b.String())
			}
		case "ID":
			// Skip inline image data.
			if i := bytes.Index(l.data[l.pos:], []byte("EI")); i >= 0 {
				l.pos += i + 2
			} else {
				l.pos = len(l.data)
			}
		}
	}
	return spans
}

func decodeShown(obj *Object) string {
	if obj.Kind != KindString {
		return ""
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(obj.Str)
	if err != nil {
		return string(obj.Str)
	}
	return string(s)
}

// spansToText orders spans top to bottom, left to right, and joins spans
// sharing a baseline with a space.
func spansToText(spans []textSpan) string {
	sort.SliceStable(spans, func(i, j int) bool {
		if math.Abs(spans[i].y-spans[j].y) > 1 {
			return spans[i].y > spans[j].y
		}
		return spans[i].x < spans[j].x
	})

	var b strings.Builder
	for i, sp := range spans {
		if i > 0 {
			if math.Abs(sp.y-spans[i-1].y) > 1 {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(sp.text)
	}
	return b.String()
}
