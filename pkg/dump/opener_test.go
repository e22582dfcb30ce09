package dump

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hervehildenbrand/bgp-conflicts/pkg/models"
)

const sampleLine = `{"type": "update", "timestamp": 1, "as_path": "1 2", "announce": ["1.0.0.0/24"]}`

func readAll(t *testing.T, o Opener, src models.Source) string {
	t.Helper()
	rc, err := o.Open(context.Background(), src)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestFileOpener_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updates.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleLine+"\n"), 0644))

	assert.Equal(t, sampleLine+"\n", readAll(t, FileOpener{}, models.Source{Name: path}))
}

func TestFileOpener_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updates.json.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(sampleLine))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	assert.Equal(t, sampleLine, readAll(t, FileOpener{}, models.Source{Name: path}))
}

func TestFileOpener_Zstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bview.json.zst")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = zw.Write([]byte(sampleLine))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	assert.Equal(t, sampleLine, readAll(t, FileOpener{}, models.Source{Name: path}))
}

func TestFileOpener_Errors(t *testing.T) {
	_, err := FileOpener{}.Open(context.Background(), models.Source{Name: "/nonexistent/path/bview.gz"})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "corrupt.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0644))
	_, err = FileOpener{}.Open(context.Background(), models.Source{Name: path})
	assert.Error(t, err)
}

func TestMemoryOpener(t *testing.T) {
	o := MemoryOpener{"a": {"one", "two"}}

	assert.Equal(t, "one\ntwo", readAll(t, o, models.Source{Name: "a"}))

	_, err := o.Open(context.Background(), models.Source{Name: "b"})
	assert.True(t, errors.Is(err, ErrSourceNotFound))
}

func TestDefaultOpener_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updates.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleLine), 0644))

	assert.Equal(t, sampleLine, readAll(t, NewDefaultOpener(), models.Source{Name: path}))
}
