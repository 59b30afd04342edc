// Package storage reads encrypted containers from and writes decrypted
// metadata to local files or S3 objects.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/kenneth/metadata-decryptor/internal/config"
)

// ErrNoObjectClient is returned for S3 locations when no client is configured.
var ErrNoObjectClient = errors.New("no S3 client configured")

// Options configures a Store.
type Options struct {
	// Objects serves s3:// locations; nil disables them.
	Objects ObjectClient
	// Decompress inflates gzip or zstd wrapped inputs.
	Decompress bool
	// MaxDecompressedSize caps inflated inputs; values below 1 select
	// config.DefaultMaxDecompressedSize.
	MaxDecompressedSize int64
	Logger              *logrus.Logger
}

// Store loads and saves whole files at local or S3 locations.
type Store struct {
	objects       ObjectClient
	decompress    bool
	maxDecompress int64
	logger        *logrus.Logger
}

// NewStore creates a Store.
func NewStore(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	maxDecompress := opts.MaxDecompressedSize
	if maxDecompress < 1 {
		maxDecompress = config.DefaultMaxDecompressedSize
	}
	return &Store{
		objects:       opts.Objects,
		decompress:    opts.Decompress,
		maxDecompress: maxDecompress,
		logger:        logger,
	}
}

// Load reads the whole content at location. Failures, including an input
// that inflates past the size limit, are reported as *IOError with
// ReasonCannotOpenInput.
func (s *Store) Load(ctx context.Context, location string) ([]byte, error) {
	data, err := s.load(ctx, location)
	if err != nil {
		return nil, newIOError(ReasonCannotOpenInput, location, err)
	}

	if !s.decompress {
		return data, nil
	}
	out, algorithm, err := decompress(data, s.maxDecompress)
	if errors.Is(err, ErrDecompressedTooLarge) {
		return nil, newIOError(ReasonCannotOpenInput, location, err)
	}
	if err != nil {
		// Not a valid stream despite the magic: hand the raw bytes on so
		// the container parser classifies them.
		s.logger.WithError(err).WithFields(logrus.Fields{
			"location":  location,
			"algorithm": algorithm,
		}).Debug("Input is not a valid compressed stream, using raw bytes")
		return data, nil
	}
	if algorithm != "" {
		s.logger.WithFields(logrus.Fields{
			"location":          location,
			"algorithm":         algorithm,
			"compressed_size":   len(data),
			"decompressed_size": len(out),
		}).Debug("Decompressed input")
	}
	return out, nil
}

func (s *Store) load(ctx context.Context, location string) ([]byte, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	if !loc.IsRemote() {
		return os.ReadFile(loc.Path)
	}

	if s.objects == nil {
		return nil, ErrNoObjectClient
	}
	body, err := s.objects.GetObject(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

// Save writes data to location. Local files are written to a temporary file
// in the target directory and renamed into place, so a failed write never
// leaves a partial output. Failures are reported as *IOError with
// ReasonCannotCreateOutput.
func (s *Store) Save(ctx context.Context, location string, data []byte) error {
	if err := s.save(ctx, location, data); err != nil {
		return newIOError(ReasonCannotCreateOutput, location, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, location string, data []byte) error {
	loc, err := ParseLocation(location)
	if err != nil {
		return err
	}

	if loc.IsRemote() {
		if s.objects == nil {
			return ErrNoObjectClient
		}
		return s.objects.PutObject(ctx, loc.Bucket, loc.Key, data)
	}

	return writeFileAtomic(loc.Path, data, 0644)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
