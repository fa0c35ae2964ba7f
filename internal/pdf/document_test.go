package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pdfBuilder assembles a small PDF with a classic xref table.
type pdfBuilder struct {
	buf     bytes.Buffer
	offsets map[int]int
}

func newPDFBuilder() *pdfBuilder {
	b := &pdfBuilder{offsets: map[int]int{}}
	b.buf.WriteString("%PDF-1.4\n")
	return b
}

func (b *pdfBuilder) obj(id int, body string) {
	b.offsets[id] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", id, body)
}

func (b *pdfBuilder) finish(trailer string) []byte {
	size := len(b.offsets) + 1
	xref := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n0000000000 65535 f \n", size)
	for id := 1; id < size; id++ {
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", b.offsets[id])
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", size, trailer, xref)
	return b.buf.Bytes()
}

// buildPages creates a document whose page tree carries an inherited
// MediaBox and whose second page overrides it.
func buildPages() []byte {
	b := newPDFBuilder()
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R 4 0 R 5 0 R] /Count 3 /MediaBox [0 0 612 792] >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R >>")
	b.obj(4, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 842 595.5] /Rotate 90 >>")
	b.obj(5, "<< /Type /Page /Parent 2 0 R >>")
	b.obj(6, "<< /Title (Quarterly \\(draft\\)) /Author <FEFF00C900760065> >>")
	return b.finish("/Root 1 0 R /Info 6 0 R")
}

func TestLoad_NotPDF(t *testing.T) {
	_, err := Load([]byte("<html></html>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a PDF")
}

func TestLoad_MissingStartXRef(t *testing.T) {
	_, err := Load([]byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	require.Error(t, err)
}

func TestDocument_Version(t *testing.T) {
	doc, err := Load(buildPages())
	require.NoError(t, err)
	assert.Equal(t, "1.4", doc.Version())
}

func TestDocument_Geometry(t *testing.T) {
	doc, err := Load(buildPages())
	require.NoError(t, err)

	n, err := doc.PageCount()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	geo, err := doc.Geometry()
	require.NoError(t, err)
	require.Len(t, geo, 3)

	assert.Equal(t, PageInfo{Width: 612, Height: 792}, geo[0])
	assert.Equal(t, PageInfo{Width: 842, Height: 595.5, Rotation: 90}, geo[1])
	assert.Equal(t, PageInfo{Width: 612, Height: 792}, geo[2])
}

func TestDocument_Info(t *testing.T) {
	doc, err := Load(buildPages())
	require.NoError(t, err)

	info := doc.Info()
	assert.Equal(t, "Quarterly (draft)", info["Title"])
	assert.Equal(t, "Éve", info["Author"])
}

func TestDocument_InfoMissing(t *testing.T) {
	b := newPDFBuilder()
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	doc, err := Load(b.finish("/Root 1 0 R"))
	require.NoError(t, err)

	assert.Empty(t, doc.Info())
	n, err := doc.PageCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// TestLoad_XRefStream covers PDF 1.5 files that keep their objects in a
// compressed object stream indexed by a cross-reference stream.
func TestLoad_XRefStream(t *testing.T) {
	objects := "1 0 2 48 " // object numbers and offsets inside the stream
	catalog := "<< /Type /Catalog /Pages 2 0 R >>"
	pages := "<< /Type /Pages /Kids [3 0 R] /Count 1 >>"
	header := objects
	for len(header) < 10 {
		header += " "
	}
	body := catalog
	for len(body) < 48 {
		body += " "
	}
	body += pages
	packed := deflate(t, []byte(header+body))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")
	pageOff := buf.Len()
	buf.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 300 400] >>\nendobj\n")
	streamOff := buf.Len()
	fmt.Fprintf(&buf, "4 0 obj\n<< /Type /ObjStm /N 2 /First %d /Filter /FlateDecode /Length %d >>\nstream\n", len(header), len(packed))
	buf.Write(packed)
	buf.WriteString("\nendstream\nendobj\n")

	// Rows: type(1) offset(2) gen/index(1).
	rows := []byte{
		0, 0, 0, 0,
		2, 0, 4, 0,
		2, 0, 4, 1,
		1, byte(pageOff >> 8), byte(pageOff), 0,
		1, byte(streamOff >> 8), byte(streamOff), 0,
	}
	xrefData := deflate(t, rows)
	xrefOff := buf.Len()
	fmt.Fprintf(&buf, "5 0 obj\n<< /Type /XRef /Size 5 /W [1 2 1] /Root 1 0 R /Filter /FlateDecode /Length %d >>\nstream\n", len(xrefData))
	buf.Write(xrefData)
	fmt.Fprintf(&buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", xrefOff)

	doc, err := Load(buf.Bytes())
	require.NoError(t, err)

	geo, err := doc.Geometry()
	require.NoError(t, err)
	require.Len(t, geo, 1)
	assert.Equal(t, PageInfo{Width: 300, Height: 400}, geo[0])
}

func TestUnpredictPNG_Up(t *testing.T) {
	parms := Dict{"Columns": &Object{Kind: KindInt, Int: 2}}
	// Two rows, second row uses the Up filter.
	data := []byte{0, 1, 2, 2, 1, 1}
	assert.Equal(t, []byte{1, 2, 2, 3}, unpredictPNG(parms, data))
}
