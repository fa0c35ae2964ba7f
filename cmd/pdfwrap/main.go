// pdfwrap renders HTML documents to PDF and inspects the results.
//
// Usage:
//
//	pdfwrap render [options] <file.html>
//	pdfwrap info <file.pdf>
//	pdfwrap text [options] <file.pdf>
//	pdfwrap serve [options]
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	case "text":
		err = runText(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`pdfwrap - HTML to PDF rendering tool

Usage:
  pdfwrap render [options] <file.html>
  pdfwrap info <file.pdf>
  pdfwrap text [options] <file.pdf>
  pdfwrap serve [options]

Commands:
  render    Render an HTML file to PDF
  info      Display document metadata and page dimensions
  text      Extract plain text from a PDF file
  serve     Run an HTTP rendering service

Render options:
  -c <file>       Configuration file (yaml, toml or json)
  -o <file>       Output file (default: input name with .pdf)
  -d <disk>       Save to a configured disk instead of the local filesystem
  -H <text>       Header text; {PAGE_NUM} and {PAGE_COUNT} are replaced
  -F <text>       Footer text
  -p <position>   Header and footer position: left, center, right
  -s <size>       Header and footer font size in points
  -t <title>      Document title
  -w              Fail on render warnings
  -v              Verbose logging

Text options:
  -o <file>       Write output to file (default: stdout)
  -p <range>      Page range, e.g. "1", "1-5", "1,3,5" (default: all)

Serve options:
  -c <file>       Configuration file
  -a <addr>       Listen address (default: :8080)

Examples:
  pdfwrap render -F "Page {PAGE_NUM} of {PAGE_COUNT}" invoice.html
  pdfwrap render -c pdfwrap.yaml -d s3 -o invoices/42.pdf invoice.html
  pdfwrap info invoice.pdf
  pdfwrap text -p 1-2 invoice.pdf
`)
}

// optionValue returns the argument following option i.
func optionValue(args []string, i int) (string, error) {
	if i+1 >= len(args) {
		return "", fmt.Errorf("%s requires an argument", args[i])
	}
	return args[i+1], nil
}
