package pdfwrap

import (
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/porticus-lab/go-pdfwrap/storage"
)

// browserConfig holds internal configuration for a Browser.
type browserConfig struct {
	chromePath   string
	remoteURL    string
	autoDownload bool
	timeout      time.Duration
	noSandbox    bool
	headless     string
	logger       *zap.Logger
}

func defaultBrowserConfig() browserConfig {
	return browserConfig{
		timeout:  30 * time.Second,
		headless: "new",
		logger:   zap.NewNop(),
	}
}

// BrowserOption configures a [Browser].
type BrowserOption func(*browserConfig)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default chromedp searches standard locations.
func WithChromePath(path string) BrowserOption {
	return func(c *browserConfig) {
		c.chromePath = path
	}
}

// WithAutoDownload fetches a compatible Chromium into the local cache
// when no path is given.
func WithAutoDownload() BrowserOption {
	return func(c *browserConfig) {
		c.autoDownload = true
	}
}

// WithRemoteURL attaches to an already running browser through its
// DevTools websocket URL instead of starting one.
func WithRemoteURL(url string) BrowserOption {
	return func(c *browserConfig) {
		c.remoteURL = url
	}
}

// WithTimeout sets the maximum duration of a single render.
// Defaults to 30 seconds. A zero or negative value disables the timeout.
func WithTimeout(d time.Duration) BrowserOption {
	return func(c *browserConfig) {
		c.timeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() BrowserOption {
	return func(c *browserConfig) {
		c.noSandbox = true
	}
}

// WithBrowserLogger sets the logger for browser lifecycle events.
func WithBrowserLogger(logger *zap.Logger) BrowserOption {
	return func(c *browserConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDisks registers the storage disks [Session.Save] can target.
func WithDisks(disks storage.Disks) SessionOption {
	return func(s *Session) {
		s.disks = disks
	}
}

// WithFs sets the filesystem used by Save when no disk is named.
func WithFs(fs afero.Fs) SessionOption {
	return func(s *Session) {
		if fs != nil {
			s.fs = fs
		}
	}
}
