package main

import (
	"bytes"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porticus-lab/go-pdfwrap/internal/pdf"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		total   int
		want    []int
		wantErr bool
	}{
		{"all", "", 3, []int{0, 1, 2}, false},
		{"single", "2", 3, []int{1}, false},
		{"range", "1-3", 5, []int{0, 1, 2}, false},
		{"list", "1,3,5", 5, []int{0, 2, 4}, false},
		{"mixed", "1-2, 4", 5, []int{0, 1, 3}, false},
		{"duplicates", "1,1-2", 3, []int{0, 1}, false},
		{"out of bounds", "4", 3, nil, true},
		{"reversed", "3-1", 3, nil, true},
		{"not a number", "x", 3, nil, true},
		{"zero", "0", 3, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageRange(tt.spec, tt.total)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteInfo(t *testing.T) {
	src := fpdf.New("P", "pt", "A4", "")
	src.SetTitle("Quarterly", false)
	src.SetFont("helvetica", "", 12)
	src.AddPageFormat("P", fpdf.SizeType{Wd: 612, Ht: 792})
	src.AddPageFormat("L", fpdf.SizeType{Wd: 612, Ht: 792})
	var raw bytes.Buffer
	require.NoError(t, src.Output(&raw))

	doc, err := pdf.Load(raw.Bytes())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeInfo(&out, "report.pdf", doc))

	got := out.String()
	assert.Contains(t, got, "File:    report.pdf\n")
	assert.Contains(t, got, "Pages:   2\n")
	assert.Contains(t, got, "Title:   Quarterly\n")
	assert.Contains(t, got, "Page 1: 612 x 792 pt\n")
	assert.Contains(t, got, "Page 2: 792 x 612 pt\n")
}

func TestParseRenderFlags(t *testing.T) {
	f, err := parseRenderFlags([]string{"-F", "Page {PAGE_NUM}", "-p", "center", "-s", "9", "-w", "invoice.html"})
	require.NoError(t, err)
	assert.Equal(t, "invoice.html", f.input)
	assert.Equal(t, "invoice.pdf", f.output)
	assert.Equal(t, "Page {PAGE_NUM}", f.footer)
	assert.Equal(t, "center", f.position)
	assert.Equal(t, 9.0, f.size)
	assert.True(t, f.warnings)

	for _, args := range [][]string{
		{},
		{"-o"},
		{"-s", "big", "a.html"},
		{"-x", "a.html"},
	} {
		_, err := parseRenderFlags(args)
		assert.Error(t, err, "%v", args)
	}
}
