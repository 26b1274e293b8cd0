package provision

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"strings"

	"github.com/kozaktomas/photo-search/internal/storage"
	"github.com/kozaktomas/photo-search/internal/web/static"
	"github.com/rs/zerolog"
)

const (
	defaultContentType  = "application/octet-stream"
	settingsContentType = "text/javascript"
)

// Frontend publishes the browser bundle and its runtime settings.
type Frontend struct {
	blobs    storage.BlobStore
	bucket   string
	settings static.Settings
	bundle   storage.Location // zero means use the embedded assets
}

// NewFrontend creates a frontend provisioner uploading to bucket. A non-zero
// bundle points at a zip archive of the assets in the blob store.
func NewFrontend(blobs storage.BlobStore, bucket string, settings static.Settings, bundle storage.Location) *Frontend {
	return &Frontend{blobs: blobs, bucket: bucket, settings: settings, bundle: bundle}
}

// Run handles one lifecycle event. Delete leaves the hosted assets in place.
func (f *Frontend) Run(ctx context.Context, rt RequestType) error {
	logger := zerolog.Ctx(ctx)
	if rt == RequestDelete {
		logger.Info().Msg("frontend delete requested, keeping assets")
		return nil
	}
	if f.bucket == "" {
		return errors.New("frontend bucket is not configured")
	}

	assets, err := f.assets(ctx)
	if err != nil {
		return err
	}

	n, err := f.upload(ctx, assets)
	if err != nil {
		return err
	}
	logger.Info().Int("files", n).Str("bucket", f.bucket).Msg("frontend assets uploaded")

	js, err := static.SettingsJS(f.settings)
	if err != nil {
		return err
	}
	loc := storage.Location{Bucket: f.bucket, Key: static.SettingsFile}
	if err := f.blobs.Put(ctx, loc, js, settingsContentType); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func (f *Frontend) assets(ctx context.Context) (fs.FS, error) {
	if f.bundle.IsZero() {
		return static.FS(), nil
	}
	data, err := f.blobs.Get(ctx, f.bundle)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open bundle %s: %w", f.bundle, err)
	}
	return zr, nil
}

// upload copies every regular file of assets to the hosting bucket.
func (f *Frontend) upload(ctx context.Context, assets fs.FS) (int, error) {
	logger := zerolog.Ctx(ctx)
	count := 0
	err := fs.WalkDir(assets, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := readFile(assets, name)
		if err != nil {
			return err
		}
		loc := storage.Location{Bucket: f.bucket, Key: name}
		if err := f.blobs.Put(ctx, loc, data, ContentType(name)); err != nil {
			return fmt.Errorf("upload %s: %w", name, err)
		}
		logger.Debug().Str("key", name).Msg("uploaded asset")
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("upload assets: %w", err)
	}
	return count, nil
}

func readFile(fsys fs.FS, name string) ([]byte, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()
	return io.ReadAll(file)
}

// ContentType returns the MIME type for a file name, defaulting to octet-stream.
func ContentType(name string) string {
	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		return defaultContentType
	}
	// Drop parameters such as charset so stored objects carry a bare type.
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}
