package pdfwrap

import (
	"fmt"
	"strings"

	"dario.cat/mergo"
)

// PageSize represents paper dimensions in centimeters.
type PageSize struct {
	Width  float64 // Width in centimeters.
	Height float64 // Height in centimeters.
}

// Standard paper sizes.
var (
	A3      = PageSize{Width: 29.7, Height: 42.0}
	A4      = PageSize{Width: 21.0, Height: 29.7}
	A5      = PageSize{Width: 14.8, Height: 21.0}
	Letter  = PageSize{Width: 21.59, Height: 27.94}
	Legal   = PageSize{Width: 21.59, Height: 35.56}
	Tabloid = PageSize{Width: 27.94, Height: 43.18}
)

var paperNames = map[string]PageSize{
	"a3":      A3,
	"a4":      A4,
	"a5":      A5,
	"letter":  Letter,
	"legal":   Legal,
	"tabloid": Tabloid,
}

// PaperByName looks up a standard paper size, ignoring case.
func PaperByName(name string) (PageSize, bool) {
	p, ok := paperNames[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Orientation represents the page orientation.
type Orientation int

// The zero Orientation is unset and resolves to Portrait, so an explicit
// Portrait can still override a Landscape default.
const (
	// Portrait is the default vertical orientation.
	Portrait Orientation = iota + 1
	// Landscape rotates the page to horizontal orientation.
	Landscape
)

// ParseOrientation accepts "portrait" or "landscape".
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "portrait":
		return Portrait, nil
	case "landscape":
		return Landscape, nil
	}
	return Portrait, fmt.Errorf("pdfwrap: unknown orientation %q", s)
}

// Margin represents page margins in centimeters.
type Margin struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// UniformMargin returns a Margin with the same value on all sides.
func UniformMargin(cm float64) Margin {
	return Margin{Top: cm, Right: cm, Bottom: cm, Left: cm}
}

// Options configures an [Engine].
//
// Zero-value fields use defaults: A4 paper, portrait orientation, 1 cm
// margins, scale 1.0, background graphics enabled, serif default font and
// remote assets blocked.
type Options struct {
	// Paper specifies the paper size. Defaults to A4.
	Paper PageSize `mapstructure:"-"`

	// PaperName selects a standard size by name when Paper is zero.
	PaperName string `mapstructure:"paper"`

	// Orientation specifies portrait or landscape.
	Orientation Orientation `mapstructure:"-"`

	// Margin in centimeters. Defaults to 1 cm on all sides.
	Margin Margin `mapstructure:"margin"`

	// Scale of the webpage rendering, between 0.1 and 2.0. Defaults to 1.0.
	Scale float64 `mapstructure:"scale"`

	// PrintBackground enables printing of background colors and images.
	// Nil means true.
	PrintBackground *bool `mapstructure:"print_background"`

	// PreferCSSPageSize gives precedence to any CSS @page size declared
	// in the document over Paper. Nil means false.
	PreferCSSPageSize *bool `mapstructure:"prefer_css_page_size"`

	// DefaultFont is the family used for stamped header and footer text.
	DefaultFont string `mapstructure:"default_font"`

	// BasePath is the directory relative URLs in loaded markup resolve
	// against.
	BasePath string `mapstructure:"base_path"`

	// RemoteEnabled allows the document to fetch http and https assets.
	// Nil means false.
	RemoteEnabled *bool `mapstructure:"remote_enabled"`
}

// Bool returns a pointer to v, for the optional switches in [Options].
func Bool(v bool) *bool { return &v }

func boolValue(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	return Bool(*p)
}

func (o Options) remoteEnabled() bool     { return boolValue(o.RemoteEnabled, false) }
func (o Options) preferCSSPageSize() bool { return boolValue(o.PreferCSSPageSize, false) }

// DefaultOptions returns Options with every default filled in.
func DefaultOptions() Options {
	bg := true
	return Options{
		Paper:           A4,
		Orientation:     Portrait,
		Margin:          UniformMargin(1.0),
		Scale:           1.0,
		PrintBackground: &bg,
		DefaultFont:     "serif",
	}
}

// MergeOptions overlays the set fields of override onto base. A switch
// set to false and an explicit Portrait count as set. A PaperName without
// a Paper replaces the base paper.
func MergeOptions(base, override Options) (Options, error) {
	merged := base
	merged.PrintBackground = cloneBool(base.PrintBackground)
	merged.PreferCSSPageSize = cloneBool(base.PreferCSSPageSize)
	merged.RemoteEnabled = cloneBool(base.RemoteEnabled)
	if err := mergo.Merge(&merged, override, mergo.WithOverride); err != nil {
		return base, fmt.Errorf("pdfwrap: merging options: %w", err)
	}
	// mergo skips a false bool behind a pointer and writes through shared
	// pointers, so the switches are copied by hand.
	for _, sw := range []struct{ dst, src **bool }{
		{&merged.PrintBackground, &override.PrintBackground},
		{&merged.PreferCSSPageSize, &override.PreferCSSPageSize},
		{&merged.RemoteEnabled, &override.RemoteEnabled},
	} {
		if *sw.src != nil {
			*sw.dst = cloneBool(*sw.src)
		}
	}
	if override.PaperName != "" && override.Paper == (PageSize{}) {
		merged.Paper = PageSize{}
	}
	return merged, nil
}

// resolved returns Options with all zero values replaced by defaults.
func (o Options) resolved() Options {
	d := DefaultOptions()
	r := o
	if r.Paper == (PageSize{}) {
		if p, ok := PaperByName(r.PaperName); ok {
			r.Paper = p
		} else {
			r.Paper = d.Paper
		}
	}
	if r.Orientation == 0 {
		r.Orientation = d.Orientation
	}
	if r.Scale <= 0 {
		r.Scale = d.Scale
	}
	if r.Margin == (Margin{}) {
		r.Margin = d.Margin
	}
	if r.PrintBackground == nil {
		r.PrintBackground = d.PrintBackground
	}
	if r.DefaultFont == "" {
		r.DefaultFont = d.DefaultFont
	}
	return r
}

// cmToInches converts centimeters to inches.
func cmToInches(cm float64) float64 {
	return cm / 2.54
}

// paperDimensions returns the paper width and height in inches,
// accounting for orientation.
func (o Options) paperDimensions() (width, height float64) {
	r := o.resolved()
	w := cmToInches(r.Paper.Width)
	h := cmToInches(r.Paper.Height)
	if r.Orientation == Landscape {
		return h, w
	}
	return w, h
}

// marginInches returns margins converted to inches.
func (o Options) marginInches() (top, right, bottom, left float64) {
	r := o.resolved()
	return cmToInches(r.Margin.Top),
		cmToInches(r.Margin.Right),
		cmToInches(r.Margin.Bottom),
		cmToInches(r.Margin.Left)
}
