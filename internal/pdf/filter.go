package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// maxDecodedSize bounds the memory a single stream may expand to (64 MB).
const maxDecodedSize = 64 * 1024 * 1024

// decodeStream undoes the stream filters needed for structural objects
// (object streams and cross-reference streams). Only FlateDecode with an
// optional PNG predictor is supported; image filters are never needed here.
func decodeStream(obj *Object) ([]byte, error) {
	filters, _ := obj.Dict.Array("Filter")
	if len(filters) == 0 {
		return obj.Stream, nil
	}
	if len(filters) > 1 || filters[0].Kind != KindName ||
		(filters[0].Name != "FlateDecode" && filters[0].Name != "Fl") {
		return nil, fmt.Errorf("unsupported stream filter %v", filterNames(filters))
	}

	r, err := zlib.NewReader(bytes.NewReader(obj.Stream))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("zlib read: %w", err)
	}
	if len(out) > maxDecodedSize {
		return nil, fmt.Errorf("decoded stream exceeds %d bytes", maxDecodedSize)
	}

	parms, ok := obj.Dict["DecodeParms"]
	if !ok || parms.Kind != KindDict {
		return out, nil
	}
	if predictor, _ := parms.Dict.Int("Predictor"); predictor >= 10 {
		return unpredictPNG(parms.Dict, out), nil
	}
	return out, nil
}

func filterNames(objs []*Object) []string {
	names := make([]string, 0, len(objs))
	for _, o := range objs {
		names = append(names, o.Name)
	}
	return names
}

// unpredictPNG reverses PNG row filters (predictors 10-15).
func unpredictPNG(parms Dict, data []byte) []byte {
	colors, _ := parms.Int("Colors")
	bpc, _ := parms.Int("BitsPerComponent")
	columns, _ := parms.Int("Columns")
	if colors == 0 {
		colors = 1
	}
	if bpc == 0 {
		bpc = 8
	}
	if columns == 0 {
		columns = 1
	}
	rowLen := int((columns*colors*bpc + 7) / 8)
	bpp := int((colors*bpc + 7) / 8)
	stride := rowLen + 1
	if len(data) == 0 {
		return data
	}

	rows := len(data) / stride
	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)
	for row := 0; row < rows; row++ {
		src := data[row*stride+1 : (row+1)*stride]
		dst := out[row*rowLen : (row+1)*rowLen]
		kind := data[row*stride]
		for i := range dst {
			var left, upLeft byte
			if i >= bpp {
				left = dst[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch kind {
			case 1:
				dst[i] = src[i] + left
			case 2:
				dst[i] = src[i] + up
			case 3:
				dst[i] = src[i] + byte((int(left)+int(up))/2)
			case 4:
				dst[i] = src[i] + paeth(left, up, upLeft)
			default:
				dst[i] = src[i]
			}
		}
		copy(prev, dst)
	}
	return out
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
