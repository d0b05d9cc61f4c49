package source

import (
	"context"
	"fmt"
	"io"
	"os"
)

// File yields a single gzip file as one batch.
type File struct {
	path string
	done bool
}

func NewFile(path string) *File { return &File{path: path} }

func (f *File) Next(ctx context.Context) (Batch, error) {
	if f.done {
		return Batch{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	f.done = true

	fh, err := os.Open(f.path)
	if err != nil {
		return Batch{}, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer fh.Close()

	lines, err := ReadLines(fh)
	if err != nil {
		return Batch{}, fmt.Errorf("%s: %w", f.path, err)
	}
	return Batch{Name: f.path, Lines: lines}, nil
}
