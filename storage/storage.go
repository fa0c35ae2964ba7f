// Package storage provides the named disks a rendered document can be
// saved to: a local (or in-memory) filesystem and S3-compatible object
// storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrUnknownDisk is returned when a disk name has no registered Storage.
var ErrUnknownDisk = errors.New("storage: unknown disk")

// Storage writes whole objects by path.
type Storage interface {
	Put(ctx context.Context, path string, data []byte) error
}

// Disks is a registry of storages keyed by disk name.
type Disks map[string]Storage

// Disk returns the storage registered under name.
func (d Disks) Disk(name string) (Storage, error) {
	if s, ok := d[name]; ok && s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownDisk, name)
}

// Names returns the registered disk names in sorted order.
func (d Disks) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Drivers understood by [Open].
const (
	DriverLocal  = "local"
	DriverMemory = "memory"
	DriverS3     = "s3"
)

// DiskConfig describes one disk.
type DiskConfig struct {
	Driver       string `mapstructure:"driver" validate:"omitempty,oneof=local memory s3"`
	Root         string `mapstructure:"root"`
	Bucket       string `mapstructure:"bucket" validate:"required_if=Driver s3"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	Prefix       string `mapstructure:"prefix"`
}

// Open builds a Disks registry from configuration.
func Open(ctx context.Context, cfgs map[string]DiskConfig, logger *zap.Logger) (Disks, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	disks := make(Disks, len(cfgs))
	for name, cfg := range cfgs {
		var (
			s   Storage
			err error
		)
		switch strings.ToLower(cfg.Driver) {
		case DriverLocal, "":
			s, err = NewFS(afero.NewOsFs(), cfg.Root)
		case DriverMemory:
			s, err = NewFS(afero.NewMemMapFs(), cfg.Root)
		case DriverS3:
			s, err = NewS3(ctx, cfg, WithLogger(logger.Named(name)))
		default:
			err = fmt.Errorf("storage: disk %q: unknown driver %q", name, cfg.Driver)
		}
		if err != nil {
			return nil, err
		}
		disks[name] = s
		logger.Debug("disk registered", zap.String("disk", name), zap.String("driver", cfg.Driver))
	}
	return disks, nil
}
