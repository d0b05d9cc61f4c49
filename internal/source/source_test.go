package source

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestReadLines(t *testing.T) {
	lines, err := ReadLines(bytes.NewReader(gzipped(t, "{\"a\":1}\r\n\n  \n{\"b\":2}")))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte(`{"a":1}`), []byte(`{"b":2}`)}, lines)
}

func TestReadLines_NotGzip(t *testing.T) {
	_, err := ReadLines(bytes.NewReader([]byte(`{"a":1}`)))
	require.Error(t, err)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webhook_data.gz")
	require.NoError(t, os.WriteFile(path, gzipped(t, "l1\nl2\n"), 0o600))

	src := NewFile(path)
	b, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, b.Name)
	assert.Len(t, b.Lines, 2)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestFile_Missing(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "nope.gz")).Next(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestSlice(t *testing.T) {
	src := NewSlice(Batch{Name: "a"}, Batch{Name: "b"})
	ctx := context.Background()
	b, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", b.Name)
	b, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", b.Name)
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}
