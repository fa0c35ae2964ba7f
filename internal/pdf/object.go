// Package pdf reads just enough of a PDF file to report its page geometry
// and document information. It is used to inspect the output of the
// rendering engine before pages are stamped.
package pdf

// Kind identifies the type of a PDF object.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindReal
	KindString
	KindName
	KindArray
	KindDict
	KindStream
	KindRef
)

// Object holds any PDF object value.
type Object struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Real   float64
	Str    []byte
	Name   string
	Array  []*Object
	Dict   Dict
	Stream []byte // raw, still encoded
	Ref    Ref
}

var null = &Object{Kind: KindNull}

// Ref is an indirect object reference (N G R).
type Ref struct {
	Num int
	Gen int
}

// Dict is a PDF dictionary keyed by name without the leading slash.
type Dict map[string]*Object

// Int returns an integer entry. Reals are truncated.
func (d Dict) Int(key string) (int64, bool) {
	obj, ok := d[key]
	if !ok {
		return 0, false
	}
	switch obj.Kind {
	case KindInt:
		return obj.Int, true
	case KindReal:
		return int64(obj.Real), true
	}
	return 0, false
}

// Name returns a name entry, accepting strings as well.
func (d Dict) Name(key string) (string, bool) {
	obj, ok := d[key]
	if !ok {
		return "", false
	}
	switch obj.Kind {
	case KindName:
		return obj.Name, true
	case KindString:
		return string(obj.Str), true
	}
	return "", false
}

// Array returns an array entry. A single object is treated as a
// one-element array.
func (d Dict) Array(key string) ([]*Object, bool) {
	obj, ok := d[key]
	if !ok {
		return nil, false
	}
	if obj.Kind == KindArray {
		return obj.Array, true
	}
	return []*Object{obj}, true
}

// Number returns the numeric value of obj, or 0.
func Number(obj *Object) float64 {
	if obj == nil {
		return 0
	}
	switch obj.Kind {
	case KindReal:
		return obj.Real
	case KindInt:
		return float64(obj.Int)
	}
	return 0
}
