package pdf

import (
	"bytes"
	"fmt"
	"strconv"
)

const maxNesting = 100

// lexer is a recursive-descent reader for PDF object syntax.
type lexer struct {
	data  []byte
	pos   int
	depth int
}

func newLexer(data []byte, pos int) *lexer {
	return &lexer{data: data, pos: pos}
}

// skipSpace skips whitespace and comments.
func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		case isSpace(c):
			l.pos++
		default:
			return
		}
	}
}

// accept advances past s when it is next in the input.
func (l *lexer) accept(s string) bool {
	end := l.pos + len(s)
	if end > len(l.data) || string(l.data[l.pos:end]) != s {
		return false
	}
	l.pos = end
	return true
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

// token reads a run of regular characters.
func (l *lexer) token() string {
	start := l.pos
	for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// objHeader consumes "N G obj".
func (l *lexer) objHeader() bool {
	l.skipSpace()
	l.token()
	l.skipSpace()
	l.token()
	l.skipSpace()
	return l.accept("obj")
}

// object parses one object at the current position.
func (l *lexer) object() (*Object, error) {
	if l.depth > maxNesting {
		return nil, fmt.Errorf("exceeded maximum nesting depth")
	}
	l.depth++
	defer func() { l.depth-- }()

	l.skipSpace()
	if l.pos >= len(l.data) {
		return null, nil
	}

	c := l.data[l.pos]
	switch {
	case c == 'n' && l.accept("null"):
		return null, nil
	case c == 't' && l.accept("true"):
		return &Object{Kind: KindBool, Bool: true}, nil
	case c == 'f' && l.accept("false"):
		return &Object{Kind: KindBool}, nil
	case c == '(':
		return l.literalString(), nil
	case c == '<' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '<':
		return l.dict()
	case c == '<':
		return l.hexString(), nil
	case c == '/':
		return l.name(), nil
	case c == '[':
		return l.array()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return l.numberOrRef(), nil
	}
	l.pos++
	return null, nil
}

func (l *lexer) literalString() *Object {
	l.pos++
	var buf bytes.Buffer
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos >= len(l.data) {
				break
			}
			l.escape(&buf)
		case '(':
			depth++
			buf.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return &Object{Kind: KindString, Str: buf.Bytes()}
			}
			buf.WriteByte(c)
		default:
			buf.WriteByte(c)
		}
	}
	return &Object{Kind: KindString, Str: buf.Bytes()}
}

var escapes = map[byte]byte{
	'n': '\n', 'r': '\r', 't': '\t', 'b': '\b', 'f': '\f',
	'(': '(', ')': ')', '\\': '\\',
}

func (l *lexer) escape(buf *bytes.Buffer) {
	esc := l.data[l.pos]
	l.pos++
	if b, ok := escapes[esc]; ok {
		buf.WriteByte(b)
		return
	}
	switch {
	case esc == '\r':
		if l.pos < len(l.data) && l.data[l.pos] == '\n' {
			l.pos++
		}
	case esc == '\n':
	case esc >= '0' && esc <= '7':
		oct := int(esc - '0')
		for i := 0; i < 2 && l.pos < len(l.data); i++ {
			d := l.data[l.pos]
			if d < '0' || d > '7' {
				break
			}
			oct = oct*8 + int(d-'0')
			l.pos++
		}
		buf.WriteByte(byte(oct))
	default:
		buf.WriteByte(esc)
	}
}

func (l *lexer) hexString() *Object {
	l.pos++
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if !isSpace(l.data[l.pos]) {
			digits = append(digits, l.data[l.pos])
		}
		l.pos++
	}
	l.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = hexVal(digits[2*i])<<4 | hexVal(digits[2*i+1])
	}
	return &Object{Kind: KindString, Str: out}
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

func (l *lexer) name() *Object {
	l.pos++
	raw := l.token()
	if !bytes.ContainsRune([]byte(raw), '#') {
		return &Object{Kind: KindName, Name: raw}
	}
	var buf bytes.Buffer
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			buf.WriteByte(hexVal(raw[i+1])<<4 | hexVal(raw[i+2]))
			i += 2
			continue
		}
		buf.WriteByte(raw[i])
	}
	return &Object{Kind: KindName, Name: buf.String()}
}

func (l *lexer) array() (*Object, error) {
	l.pos++
	var arr []*Object
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			break
		}
		if l.data[l.pos] == ']' {
			l.pos++
			break
		}
		obj, err := l.object()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
	return &Object{Kind: KindArray, Array: arr}, nil
}

// dict parses <<...>> and a following stream body, if any.
func (l *lexer) dict() (*Object, error) {
	l.pos += 2
	d := make(Dict)
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			break
		}
		if l.accept(">>") {
			break
		}
		if l.data[l.pos] != '/' {
			l.pos++
			continue
		}
		key := l.name()
		val, err := l.object()
		if err != nil {
			return nil, err
		}
		d[key.Name] = val
	}

	l.skipSpace()
	if !l.accept("stream") {
		return &Object{Kind: KindDict, Dict: d}, nil
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\n' {
		l.pos++
	}

	start := l.pos
	length := -1
	if n, ok := d.Int("Length"); ok && d["Length"].Kind == KindInt {
		length = int(n)
	}
	var body []byte
	if length >= 0 && start+length <= len(l.data) {
		body = l.data[start : start+length]
		l.pos = start + length
	} else {
		end := bytes.Index(l.data[start:], []byte("endstream"))
		if end < 0 {
			end = len(l.data) - start
		}
		body = l.data[start : start+end]
		l.pos = start + end
	}
	l.skipSpace()
	l.accept("endstream")

	return &Object{Kind: KindStream, Dict: d, Stream: body}, nil
}

// numberOrRef parses a number or an indirect reference (N G R).
func (l *lexer) numberOrRef() *Object {
	tok := l.token()
	n, intErr := strconv.ParseInt(tok, 10, 64)
	if intErr != nil {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return null
		}
		return &Object{Kind: KindReal, Real: f}
	}

	after := l.pos
	l.skipSpace()
	if g, err := strconv.ParseInt(l.token(), 10, 64); err == nil {
		l.skipSpace()
		if l.pos < len(l.data) && l.data[l.pos] == 'R' &&
			(l.pos+1 >= len(l.data) || isSpace(l.data[l.pos+1]) || isDelim(l.data[l.pos+1])) {
			l.pos++
			return &Object{Kind: KindRef, Ref: Ref{Num: int(n), Gen: int(g)}}
		}
	}
	l.pos = after
	return &Object{Kind: KindInt, Int: n}
}
