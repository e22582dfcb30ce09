package dump

import (
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hervehildenbrand/bgp-conflicts/pkg/models"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrSourceNotFound is returned by MemoryOpener for unknown source names.
var ErrSourceNotFound = errors.New("source not found")

// Opener turns a source descriptor into a stream of newline delimited records.
// The caller must close the returned reader.
type Opener interface {
	Open(ctx context.Context, src models.Source) (io.ReadCloser, error)
}

// FileOpener opens local dump files, decompressing .gz, .zst and .bz2.
type FileOpener struct{}

func (FileOpener) Open(_ context.Context, src models.Source) (io.ReadCloser, error) {
	file, err := os.Open(src.Name)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(src.Name)) {
	case ".gz":
		zr, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &stackedReader{Reader: zr, closers: []io.Closer{zr, file}}, nil
	case ".zst", ".zstd":
		dec, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("zstd: %w", err)
		}
		rc := dec.IOReadCloser()
		return &stackedReader{Reader: rc, closers: []io.Closer{rc, file}}, nil
	case ".bz2":
		return &stackedReader{Reader: bzip2.NewReader(file), closers: []io.Closer{file}}, nil
	}

	return file, nil
}

// stackedReader closes a decompressor and the file beneath it.
type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemoryOpener serves sources from in-memory lines keyed by source name.
type MemoryOpener map[string][]string

func (m MemoryOpener) Open(_ context.Context, src models.Source) (io.ReadCloser, error) {
	lines, ok := m[src.Name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", src.Name, ErrSourceNotFound)
	}
	return io.NopCloser(strings.NewReader(strings.Join(lines, "\n"))), nil
}

// DefaultOpener routes ws:// and wss:// sources to a WebSocketOpener and
// everything else to a FileOpener.
type DefaultOpener struct {
	WebSocket *WebSocketOpener
	File      FileOpener
}

// NewDefaultOpener creates a DefaultOpener with default WebSocket settings.
func NewDefaultOpener() *DefaultOpener {
	return &DefaultOpener{WebSocket: NewWebSocketOpener()}
}

func (o *DefaultOpener) Open(ctx context.Context, src models.Source) (io.ReadCloser, error) {
	if strings.HasPrefix(src.Name, "ws://") || strings.HasPrefix(src.Name, "wss://") {
		return o.WebSocket.Open(ctx, src)
	}
	return o.File.Open(ctx, src)
}
