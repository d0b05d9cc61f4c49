// Package source yields batches of raw webhook lines from gzip files,
// either local or in an S3 bucket laid out by hour.
package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// maxLineBytes bounds a single JSON record.
const maxLineBytes = 16 << 20

// Batch is one decompressed unit: a file or one object.
type Batch struct {
	Name  string
	Lines [][]byte
}

// Source produces batches in order. Next returns io.EOF once exhausted.
type Source interface {
	Next(ctx context.Context) (Batch, error)
}

// ReadLines decompresses r and splits it into non-blank lines.
func ReadLines(r io.Reader) ([][]byte, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()

	var lines [][]byte
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, bytes.Clone(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return lines, nil
}

// Slice serves fixed batches; useful for tests and piping.
type Slice struct {
	batches []Batch
}

func NewSlice(batches ...Batch) *Slice { return &Slice{batches: batches} }

func (s *Slice) Next(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	if len(s.batches) == 0 {
		return Batch{}, io.EOF
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}
