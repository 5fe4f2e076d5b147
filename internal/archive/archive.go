// Package archive is the facade over the artifact storage backends.
// Callers depend on the Store interface here; only this package imports
// the infra implementations.
package archive

import (
	"context"
	"fmt"
	"os"

	"registercore/internal/archive/core"
	"registercore/internal/infra/archive/fs"
	"registercore/internal/infra/archive/memory"
	"registercore/internal/infra/archive/s3"
)

// Re-exported core types so callers need a single import.
type (
	Store            = core.Store
	Driver           = core.Driver
	Info             = core.Info
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// ErrUnsupported mirrors core.ErrUnsupported.
var ErrUnsupported = core.ErrUnsupported

// NewFilesystem returns a filesystem archive rooted at path.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// NewMemory returns an in-memory archive.
func NewMemory() Store { return memory.New() }

// NewS3 returns an S3 archive from explicit configuration.
func NewS3(ctx context.Context, cfg s3.Config) (Store, error) { return s3.New(ctx, cfg) }

// Open selects an archive backend from environment variables.
//
//	REGISTERCORE_ARCHIVE_DRIVER: fs|s3|memory (default fs)
//	REGISTERCORE_ARCHIVE_FS_ROOT: directory root when driver=fs (default ./archivedata)
//	(S3 specific variables documented in the s3 package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("REGISTERCORE_ARCHIVE_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("REGISTERCORE_ARCHIVE_FS_ROOT"))
	case DriverS3:
		return s3.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown archive driver %s", driver)
	}
}
