package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

type xrefEntry struct {
	offset   int64
	inUse    bool
	packed   bool // stored inside an object stream
	streamID int
	index    int
}

// Document is a parsed PDF file.
type Document struct {
	data    []byte
	xref    map[int]xrefEntry
	trailer Dict
	cache   map[int]*Object
}

// PageInfo describes the geometry of one page in points.
type PageInfo struct {
	Width    float64
	Height   float64
	Rotation int
}

// Open reads and parses a PDF file from disk.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return Load(data)
}

// Load parses a PDF from raw bytes.
func Load(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("not a PDF file")
	}
	doc := &Document{
		data:  data,
		xref:  make(map[int]xrefEntry),
		cache: make(map[int]*Object),
	}
	off, err := doc.startXRef()
	if err != nil {
		return nil, err
	}
	if err := doc.readXRef(off, 0); err != nil {
		return nil, fmt.Errorf("loading xref: %w", err)
	}
	return doc, nil
}

// Version returns the header version, e.g. "1.4".
func (doc *Document) Version() string {
	line := doc.data[5:]
	if i := bytes.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(string(line))
}

func (doc *Document) startXRef() (int64, error) {
	from := len(doc.data) - 1024
	if from < 0 {
		from = 0
	}
	idx := bytes.LastIndex(doc.data[from:], []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	l := newLexer(doc.data, from+idx+len("startxref"))
	l.skipSpace()
	off, err := strconv.ParseInt(l.token(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid startxref value: %w", err)
	}
	return off, nil
}

// readXRef loads the xref section at offset and follows /Prev links.
func (doc *Document) readXRef(offset int64, hops int) error {
	if hops > 32 {
		return fmt.Errorf("too many /Prev links")
	}
	if offset < 0 || int(offset) >= len(doc.data) {
		return fmt.Errorf("xref offset out of bounds: %d", offset)
	}
	l := newLexer(doc.data, int(offset))
	l.skipSpace()

	var section Dict
	var err error
	if l.accept("xref") {
		section, err = doc.readXRefTable(l)
	} else {
		section, err = doc.readXRefStream(l)
	}
	if err != nil {
		return err
	}
	if doc.trailer == nil {
		doc.trailer = section
	}
	if prev, ok := section.Int("Prev"); ok && prev > 0 {
		return doc.readXRef(prev, hops+1)
	}
	return nil
}

func (doc *Document) readXRefTable(l *lexer) (Dict, error) {
	for {
		l.skipSpace()
		if l.pos >= len(doc.data) || l.accept("trailer") {
			break
		}
		first, err1 := strconv.Atoi(l.token())
		l.skipSpace()
		count, err2 := strconv.Atoi(l.token())
		if err1 != nil || err2 != nil {
			break
		}
		l.skipSpace()
		// Each entry is 20 bytes: "oooooooooo ggggg n\r\n".
		for i := 0; i < count && l.pos+20 <= len(doc.data); i++ {
			entry := doc.data[l.pos : l.pos+20]
			l.pos += 20
			id := first + i
			if _, seen := doc.xref[id]; seen {
				continue
			}
			off, _ := strconv.ParseInt(strings.TrimSpace(string(entry[:10])), 10, 64)
			doc.xref[id] = xrefEntry{offset: off, inUse: entry[17] == 'n'}
		}
	}

	obj, err := l.object()
	if err != nil {
		return nil, fmt.Errorf("parsing trailer: %w", err)
	}
	if obj.Kind != KindDict {
		return nil, fmt.Errorf("trailer is not a dictionary")
	}
	return obj.Dict, nil
}

func (doc *Document) readXRefStream(l *lexer) (Dict, error) {
	if !l.objHeader() {
		return nil, fmt.Errorf("expected xref stream object")
	}
	obj, err := l.object()
	if err != nil {
		return nil, fmt.Errorf("parsing xref stream: %w", err)
	}
	if obj.Kind != KindStream {
		return nil, fmt.Errorf("xref section is not a stream")
	}
	data, err := decodeStream(obj)
	if err != nil {
		return nil, fmt.Errorf("decoding xref stream: %w", err)
	}

	w, _ := obj.Dict.Array("W")
	if len(w) < 3 {
		return nil, fmt.Errorf("xref stream missing /W")
	}
	w1, w2, w3 := int(w[0].Int), int(w[1].Int), int(w[2].Int)
	size := w1 + w2 + w3
	if size == 0 {
		return nil, fmt.Errorf("xref stream has zero entry size")
	}

	var ranges [][2]int
	if index, ok := obj.Dict.Array("Index"); ok {
		for i := 0; i+1 < len(index); i += 2 {
			ranges = append(ranges, [2]int{int(index[i].Int), int(index[i+1].Int)})
		}
	} else {
		n, _ := obj.Dict.Int("Size")
		ranges = [][2]int{{0, int(n)}}
	}

	pos := 0
	for _, r := range ranges {
		for i := 0; i < r[1] && pos+size <= len(data); i++ {
			row := data[pos : pos+size]
			pos += size
			id := r[0] + i
			if _, seen := doc.xref[id]; seen {
				continue
			}
			kind := 1
			if w1 > 0 {
				kind = bigEndian(row[:w1])
			}
			f2 := bigEndian(row[w1 : w1+w2])
			f3 := bigEndian(row[w1+w2:])
			switch kind {
			case 0:
				doc.xref[id] = xrefEntry{}
			case 1:
				doc.xref[id] = xrefEntry{offset: int64(f2), inUse: true}
			case 2:
				doc.xref[id] = xrefEntry{packed: true, streamID: f2, index: f3, inUse: true}
			}
		}
	}
	return obj.Dict, nil
}

func bigEndian(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

// Resolve follows obj if it is an indirect reference. Missing or broken
// objects resolve to null.
func (doc *Document) Resolve(obj *Object) *Object {
	if obj == nil {
		return null
	}
	if obj.Kind != KindRef {
		return obj
	}
	return doc.resolveRef(obj.Ref.Num, 0)
}

func (doc *Document) resolveRef(num, depth int) *Object {
	if obj, ok := doc.cache[num]; ok {
		return obj
	}
	entry, ok := doc.xref[num]
	if !ok || !entry.inUse || depth > 8 {
		return null
	}
	var obj *Object
	var err error
	if entry.packed {
		obj, err = doc.readPacked(entry, depth)
	} else {
		obj, err = doc.readAt(entry.offset)
	}
	if err != nil {
		return null
	}
	doc.cache[num] = obj
	return obj
}

func (doc *Document) readAt(offset int64) (*Object, error) {
	if offset < 0 || int(offset) >= len(doc.data) {
		return nil, fmt.Errorf("object offset %d out of bounds", offset)
	}
	l := newLexer(doc.data, int(offset))
	if !l.objHeader() {
		return nil, fmt.Errorf("expected 'obj' at offset %d", offset)
	}
	// An indirect /Length is not resolved here; the lexer falls back to
	// scanning for "endstream".
	return l.object()
}

func (doc *Document) readPacked(entry xrefEntry, depth int) (*Object, error) {
	container := doc.resolveRef(entry.streamID, depth+1)
	if container.Kind != KindStream {
		return nil, fmt.Errorf("object stream %d is not a stream", entry.streamID)
	}
	data, err := decodeStream(container)
	if err != nil {
		return nil, err
	}
	n, _ := container.Dict.Int("N")
	first, _ := container.Dict.Int("First")
	if entry.index >= int(n) {
		return nil, fmt.Errorf("object index %d beyond /N %d", entry.index, n)
	}

	l := newLexer(data, 0)
	off := 0
	for i := 0; i <= entry.index; i++ {
		l.skipSpace()
		l.token()
		l.skipSpace()
		off, _ = strconv.Atoi(l.token())
	}
	pos := int(first) + off
	if pos > len(data) {
		return nil, fmt.Errorf("packed object offset out of bounds")
	}
	return newLexer(data, pos).object()
}

// Catalog returns the document catalog dictionary.
func (doc *Document) Catalog() (Dict, error) {
	root := doc.Resolve(doc.trailer["Root"])
	if root.Kind != KindDict {
		return nil, fmt.Errorf("no document catalog")
	}
	return root.Dict, nil
}

// Pages returns the leaf page dictionaries in document order. Inheritable
// attributes (MediaBox, Rotate) are copied down from parent nodes.
func (doc *Document) Pages() ([]Dict, error) {
	cat, err := doc.Catalog()
	if err != nil {
		return nil, err
	}
	tree := doc.Resolve(cat["Pages"])
	if tree.Kind != KindDict {
		return nil, fmt.Errorf("no /Pages in catalog")
	}
	var pages []Dict
	doc.walkPages(tree.Dict, Dict{}, &pages, 0)
	return pages, nil
}

var inheritable = []string{"MediaBox", "Rotate"}

func (doc *Document) walkPages(node, inherited Dict, pages *[]Dict, depth int) {
	if depth > maxNesting {
		return
	}
	attrs := make(Dict, len(inherited))
	for k, v := range inherited {
		attrs[k] = v
	}
	for _, key := range inheritable {
		if v, ok := node[key]; ok {
			attrs[key] = v
		}
	}

	if t, _ := node.Name("Type"); t == "Page" {
		page := make(Dict, len(node)+len(attrs))
		for k, v := range attrs {
			page[k] = v
		}
		for k, v := range node {
			page[k] = v
		}
		*pages = append(*pages, page)
		return
	}

	kids := doc.Resolve(node["Kids"])
	if kids.Kind != KindArray {
		return
	}
	for _, ref := range kids.Array {
		kid := doc.Resolve(ref)
		if kid.Kind == KindDict || kid.Kind == KindStream {
			doc.walkPages(kid.Dict, attrs, pages, depth+1)
		}
	}
}

// PageCount returns the number of leaf pages.
func (doc *Document) PageCount() (int, error) {
	pages, err := doc.Pages()
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// PageInfo reports the MediaBox size and rotation of page.
func (doc *Document) PageInfo(page Dict) PageInfo {
	var info PageInfo
	if mb := doc.Resolve(page["MediaBox"]); mb.Kind == KindArray && len(mb.Array) >= 4 {
		x0 := Number(doc.Resolve(mb.Array[0]))
		y0 := Number(doc.Resolve(mb.Array[1]))
		x1 := Number(doc.Resolve(mb.Array[2]))
		y1 := Number(doc.Resolve(mb.Array[3]))
		info.Width = x1 - x0
		info.Height = y1 - y0
	}
	if rot := doc.Resolve(page["Rotate"]); rot.Kind == KindInt {
		info.Rotation = int(rot.Int)
	}
	return info
}

// Geometry returns PageInfo for every page in order.
func (doc *Document) Geometry() ([]PageInfo, error) {
	pages, err := doc.Pages()
	if err != nil {
		return nil, err
	}
	out := make([]PageInfo, len(pages))
	for i, p := range pages {
		out[i] = doc.PageInfo(p)
	}
	return out, nil
}

// Info returns the string entries of the document information dictionary.
func (doc *Document) Info() map[string]string {
	info := doc.Resolve(doc.trailer["Info"])
	out := make(map[string]string)
	if info.Kind != KindDict {
		return out
	}
	for key, val := range info.Dict {
		if v := doc.Resolve(val); v.Kind == KindString {
			out[key] = decodeTextString(v.Str)
		}
	}
	return out
}

// decodeTextString decodes a PDF text string: UTF-16BE when it carries a
// byte order mark, PDFDocEncoding (treated as Latin-1) otherwise.
func decodeTextString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		s, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
		if err == nil {
			return string(s)
		}
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}
