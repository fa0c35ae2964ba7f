package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	pdfwrap "github.com/porticus-lab/go-pdfwrap"
	"github.com/porticus-lab/go-pdfwrap/storage"
)

type renderFlags struct {
	config   string
	output   string
	disk     string
	header   string
	footer   string
	position string
	size     float64
	title    string
	warnings bool
	verbose  bool
	input    string
}

func parseRenderFlags(args []string) (renderFlags, error) {
	var f renderFlags
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-c", "-o", "-d", "-H", "-F", "-p", "-s", "-t":
			v, err := optionValue(args, i)
			if err != nil {
				return f, err
			}
			switch args[i] {
			case "-c":
				f.config = v
			case "-o":
				f.output = v
			case "-d":
				f.disk = v
			case "-H":
				f.header = v
			case "-F":
				f.footer = v
			case "-p":
				f.position = v
			case "-s":
				size, err := strconv.ParseFloat(v, 64)
				if err != nil || size <= 0 {
					return f, fmt.Errorf("invalid size %q", v)
				}
				f.size = size
			case "-t":
				f.title = v
			}
			i++
		case "-w":
			f.warnings = true
		case "-v":
			f.verbose = true
		default:
			if strings.HasPrefix(args[i], "-") {
				return f, fmt.Errorf("unknown option: %s", args[i])
			}
			f.input = args[i]
		}
	}
	if f.input == "" {
		return f, fmt.Errorf("no input file specified")
	}
	if f.output == "" {
		f.output = strings.TrimSuffix(f.input, filepath.Ext(f.input)) + ".pdf"
	}
	return f, nil
}

// runRender implements the "render" command.
func runRender(args []string) error {
	f, err := parseRenderFlags(args)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if f.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}
	defer logger.Sync()

	cfg, err := pdfwrap.LoadConfig(f.config)
	if err != nil {
		return err
	}
	if f.warnings {
		cfg.ShowWarnings = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	disks, err := storage.Open(ctx, cfg.Disks, logger)
	if err != nil {
		return err
	}

	b, err := pdfwrap.NewBrowser(pdfwrap.WithNoSandbox(), pdfwrap.WithBrowserLogger(logger))
	if err != nil {
		return err
	}
	defer b.Close()

	s := pdfwrap.New(b.NewEngine(cfg.Options), cfg,
		pdfwrap.WithLogger(logger),
		pdfwrap.WithDisks(disks),
	)
	if err := s.LoadFile(f.input); err != nil {
		return err
	}
	if f.title != "" {
		if err := s.SetInfo(map[string]string{"Title": f.title}); err != nil {
			return err
		}
	}
	if f.header != "" || cfg.Header.TextFormat != "" {
		if err := s.SetHeader(ctx, f.header, f.position, f.size); err != nil {
			return err
		}
	}
	if f.footer != "" || cfg.Footer.TextFormat != "" {
		if err := s.SetFooter(ctx, f.footer, f.position, f.size); err != nil {
			return err
		}
	}

	if err := s.Save(ctx, f.output, f.disk); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", f.output)
	return nil
}
