package ranforest

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxEncodedLen bounds every length prefix accepted on read so a corrupt
// file cannot trigger a huge allocation.
const maxEncodedLen = 1 << 28

// binWriter writes little-endian values, counting bytes and keeping the
// first error. Later writes after an error are no-ops.
type binWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (b *binWriter) put(v any) {
	if b.err != nil {
		return
	}
	if err := binary.Write(b.w, binary.LittleEndian, v); err != nil {
		b.err = err
		return
	}
	b.n += int64(binary.Size(v))
}

func (b *binWriter) putFloats(xs []float32) {
	b.put(int32(len(xs)))
	b.put(xs)
}

func (b *binWriter) putInts(xs []int) {
	b.put(int32(len(xs)))
	buf := make([]int32, len(xs))
	for i, x := range xs {
		buf[i] = int32(x)
	}
	b.put(buf)
}

// binReader is the reading counterpart of binWriter. Malformed lengths are
// reported as corrupt.
type binReader struct {
	r       io.Reader
	n       int64
	err     error
	corrupt error
}

func (b *binReader) get(v any) {
	if b.err != nil {
		return
	}
	if err := binary.Read(b.r, binary.LittleEndian, v); err != nil {
		b.err = err
		return
	}
	b.n += int64(binary.Size(v))
}

func (b *binReader) length() int {
	var n int32
	b.get(&n)
	if b.err == nil && (n < 0 || n > maxEncodedLen) {
		b.err = fmt.Errorf("invalid length %d: %w", n, b.corrupt)
	}
	return int(n)
}

func (b *binReader) floats() []float32 {
	n := b.length()
	if b.err != nil {
		return nil
	}
	xs := make([]float32, n)
	b.get(xs)
	return xs
}

func (b *binReader) ints() []int {
	n := b.length()
	if b.err != nil {
		return nil
	}
	buf := make([]int32, n)
	b.get(buf)
	xs := make([]int, n)
	for i, x := range buf {
		xs[i] = int(x)
	}
	return xs
}
