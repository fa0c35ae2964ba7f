package pdfwrap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/porticus-lab/go-pdfwrap/storage"
)

// Config holds the process-wide settings a [Session] is built from.
type Config struct {
	// ShowWarnings turns render warnings into a [RenderWarningError].
	ShowWarnings bool

	// ConvertEntities replaces €, £ and $ with named entities on load.
	// DefaultConfig and LoadConfig turn it on; a zero Config leaves it off.
	ConvertEntities bool

	Header TextConfig
	Footer TextConfig

	// Disk is the default storage disk for [Session.Save].
	Disk string

	// PublicPath is the directory relative asset URLs resolve against
	// when Options.BasePath is empty.
	PublicPath string

	// Options are the engine defaults every session starts from.
	Options Options

	// Disks configures named storage disks.
	Disks map[string]storage.DiskConfig `validate:"dive"`
}

// TextConfig is the configured header or footer text.
type TextConfig struct {
	// TextFormat may contain {PAGE_NUM} and {PAGE_COUNT}.
	TextFormat string

	// Position is left, center or right. When set, it wins over the
	// position passed to SetHeader or SetFooter.
	Position string `validate:"omitempty,oneof=left center right"`
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{
		ConvertEntities: true,
		Options:         DefaultOptions(),
	}
}

// LoadConfig reads configuration from the file at path (TOML, YAML or
// JSON, chosen by extension) with PDFWRAP_ environment overrides. An empty
// path reads the environment only.
//
// Keys live under the "pdf" table, for example:
//
//	[pdf]
//	show_warnings = true
//	disk = "archive"
//
//	[pdf.footer]
//	text_format = "Page {PAGE_NUM} of {PAGE_COUNT}"
//	position = "center"
//
//	[pdf.options]
//	paper = "letter"
//	orientation = "landscape"
//
//	[pdf.disks.archive]
//	driver = "s3"
//	bucket = "documents"
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("pdfwrap: reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("PDFWRAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("pdf.convert_entities", true)

	orientation, err := ParseOrientation(v.GetString("pdf.options.orientation"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ShowWarnings:    v.GetBool("pdf.show_warnings"),
		ConvertEntities: v.GetBool("pdf.convert_entities"),
		Header: TextConfig{
			TextFormat: v.GetString("pdf.header.text_format"),
			Position:   strings.ToLower(v.GetString("pdf.header.position")),
		},
		Footer: TextConfig{
			TextFormat: v.GetString("pdf.footer.text_format"),
			Position:   strings.ToLower(v.GetString("pdf.footer.position")),
		},
		Disk:       v.GetString("pdf.disk"),
		PublicPath: v.GetString("pdf.public_path"),
		Options: Options{
			PaperName:   v.GetString("pdf.options.paper"),
			Orientation: orientation,
			Margin:      UniformMargin(v.GetFloat64("pdf.options.margin")),
			Scale:       v.GetFloat64("pdf.options.scale"),
			DefaultFont: v.GetString("pdf.options.default_font"),
			BasePath:    v.GetString("pdf.options.base_path"),
		},
	}
	if v.IsSet("pdf.options.print_background") {
		cfg.Options.PrintBackground = Bool(v.GetBool("pdf.options.print_background"))
	}
	if v.IsSet("pdf.options.prefer_css_page_size") {
		cfg.Options.PreferCSSPageSize = Bool(v.GetBool("pdf.options.prefer_css_page_size"))
	}
	if v.IsSet("pdf.options.remote_enabled") {
		cfg.Options.RemoteEnabled = Bool(v.GetBool("pdf.options.remote_enabled"))
	}
	if v.IsSet("pdf.disks") {
		if err := v.UnmarshalKey("pdf.disks", &cfg.Disks); err != nil {
			return Config{}, fmt.Errorf("pdfwrap: decoding disks: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Options.PaperName != "" {
		if p, ok := PaperByName(c.Options.PaperName); ok {
			c.Options.Paper = p
		}
	}
	if c.Options.BasePath == "" {
		c.Options.BasePath = c.PublicPath
	}
	c.Options = c.Options.resolved()
}

var validate = validator.New()

// Validate reports configuration values that cannot be used.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("pdfwrap: invalid config %s: %q fails %s", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return fmt.Errorf("pdfwrap: invalid config: %w", err)
	}
	if c.Options.PaperName != "" {
		if _, ok := PaperByName(c.Options.PaperName); !ok {
			return fmt.Errorf("pdfwrap: unknown paper %q", c.Options.PaperName)
		}
	}
	if c.Options.Scale != 0 && (c.Options.Scale < 0.1 || c.Options.Scale > 2) {
		return fmt.Errorf("pdfwrap: scale %v out of range [0.1, 2]", c.Options.Scale)
	}
	if c.Disk != "" && len(c.Disks) > 0 {
		if _, ok := c.Disks[c.Disk]; !ok {
			return fmt.Errorf("pdfwrap: default disk %q is not configured", c.Disk)
		}
	}
	return nil
}
