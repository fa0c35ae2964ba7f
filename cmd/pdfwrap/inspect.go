package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/porticus-lab/go-pdfwrap/internal/pdf"
)

// runInfo implements the "info" command.
func runInfo(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no input file specified")
	}
	inputFile := args[0]

	doc, err := pdf.Open(inputFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", inputFile, err)
	}
	return writeInfo(os.Stdout, inputFile, doc)
}

func writeInfo(w io.Writer, name string, doc *pdf.Document) error {
	pages, err := doc.Geometry()
	if err != nil {
		return fmt.Errorf("reading pages: %w", err)
	}

	fmt.Fprintf(w, "File:    %s\n", name)
	fmt.Fprintf(w, "Version: PDF-%s\n", doc.Version())
	fmt.Fprintf(w, "Pages:   %d\n", len(pages))

	info := doc.Info()
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%-8s %s\n", k+":", info[k])
	}

	if len(pages) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Page dimensions:")
		for i, p := range pages {
			fmt.Fprintf(w, "  Page %d: %.0f x %.0f pt", i+1, p.Width, p.Height)
			if p.Rotation != 0 {
				fmt.Fprintf(w, " (rotated %d°)", p.Rotation)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

// runText implements the "text" command.
func runText(args []string) error {
	var outputFile, pageRange, inputFile string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-o", "-p":
			v, err := optionValue(args, i)
			if err != nil {
				return err
			}
			if args[i] == "-o" {
				outputFile = v
			} else {
				pageRange = v
			}
			i++
		default:
			if strings.HasPrefix(args[i], "-") {
				return fmt.Errorf("unknown option: %s", args[i])
			}
			inputFile = args[i]
		}
	}
	if inputFile == "" {
		return fmt.Errorf("no input file specified")
	}

	doc, err := pdf.Open(inputFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", inputFile, err)
	}
	pages, err := doc.Pages()
	if err != nil {
		return fmt.Errorf("reading pages: %w", err)
	}
	indices, err := parsePageRange(pageRange, len(pages))
	if err != nil {
		return fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	out := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	for n, idx := range indices {
		text, err := doc.PageText(pages[idx])
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: page %d: %v\n", idx+1, err)
			continue
		}
		if n > 0 {
			fmt.Fprintln(out, "\f")
		}
		fmt.Fprintln(out, text)
	}
	return nil
}

// parsePageRange converts a page range string to a slice of 0-based page indices.
// Supported formats: "" (all), "3" (single page), "1-5" (range), "1,3,5" (list).
func parsePageRange(spec string, total int) ([]int, error) {
	if spec == "" {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	var indices []int
	seen := make(map[int]bool)
	add := func(p int) {
		if !seen[p] {
			indices = append(indices, p-1)
			seen[p] = true
		}
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("invalid page number: %s", lo)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("invalid page number: %s", hi)
			}
			if start < 1 || end > total || start > end {
				return nil, fmt.Errorf("page range %d-%d out of bounds (1-%d)", start, end, total)
			}
			for p := start; p <= end; p++ {
				add(p)
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number: %s", part)
		}
		if p < 1 || p > total {
			return nil, fmt.Errorf("page %d out of bounds (1-%d)", p, total)
		}
		add(p)
	}
	return indices, nil
}
