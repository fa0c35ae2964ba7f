package pdfwrap

import "context"

// Engine is the rendering backend a [Session] drives. One Engine holds
// one document; it is not safe for concurrent use.
//
// [ChromeEngine] is the implementation shipped with this package.
type Engine interface {
	// LoadHTML replaces the document source with UTF-8 markup.
	LoadHTML(html string) error

	// Options returns the current engine options.
	Options() Options

	// SetOptions replaces the engine options.
	SetOptions(opts Options)

	// Render runs the layout pass. Non-fatal diagnostics are returned as
	// warnings alongside a nil error.
	Render(ctx context.Context) (warnings []string, err error)

	// Canvas returns the drawable surface of the rendered document.
	// It fails with [ErrNotRendered] before a successful Render.
	Canvas() (Canvas, error)

	// FontMetrics returns the font measurement collaborator.
	FontMetrics() FontMetrics

	// Output returns the final PDF bytes of the rendered document.
	Output(ctx context.Context, opts OutputOptions) ([]byte, error)
}

// FileLoader is implemented by engines that can load a document straight
// from disk, so relative asset paths resolve against the file.
type FileLoader interface {
	LoadFile(path string) error
}

// InfoAdder is implemented by engines that can set document metadata
// such as Title or Author.
type InfoAdder interface {
	AddInfo(key, value string)
}

// Canvas is the drawable surface of a rendered document. Pages are
// numbered from 1. Coordinates are points from the top-left corner.
type Canvas interface {
	PageCount() int
	PageSize(page int) (width, height float64)
	DrawText(page int, x, y float64, text, font string, size float64) error
}

// Encrypter is implemented by canvases that can password-protect output.
type Encrypter interface {
	Encrypt(userPassword, ownerPassword string, permissions []Permission) error
}

// FontMetrics measures text for placement.
type FontMetrics interface {
	// Font resolves a configured family name (e.g. "serif") to a font
	// the canvas can draw with.
	Font(name string) string

	// TextWidth returns the width of text in points.
	TextWidth(text, font string, size float64) float64
}

// Permission is a user permission granted on an encrypted document.
type Permission string

// Permissions understood by [Session.SetEncryption].
const (
	PermPrint  Permission = "print"
	PermModify Permission = "modify"
	PermCopy   Permission = "copy"
	PermAdd    Permission = "add"
)

// OutputOptions controls final serialization.
type OutputOptions struct {
	// Compress enables content stream compression. Nil means true.
	Compress *bool
}

func (o OutputOptions) compress() bool {
	return o.Compress == nil || *o.Compress
}
