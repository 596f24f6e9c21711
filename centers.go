package ranforest

import (
	"fmt"
	"io"

	"github.com/x448/float16"
)

// CenterPrecision selects how cluster centers are stored.
type CenterPrecision uint8

const (
	// FullPrecision stores centers as IEEE 754 float32.
	// Memory: 4 bytes per dimension
	FullPrecision CenterPrecision = iota + 1

	// HalfPrecision stores centers as IEEE 754 float16.
	// Memory: 2 bytes per dimension
	// Accuracy: ~3 decimal digits, range ±65504
	HalfPrecision
)

func (p CenterPrecision) String() string {
	switch p {
	case FullPrecision:
		return "float32"
	case HalfPrecision:
		return "float16"
	default:
		return fmt.Sprintf("CenterPrecision(%d)", uint8(p))
	}
}

// ParseCenterPrecision maps "float32" and "float16" to their precision.
func ParseCenterPrecision(s string) (CenterPrecision, error) {
	switch s {
	case "float32", "":
		return FullPrecision, nil
	case "float16":
		return HalfPrecision, nil
	default:
		return 0, fmt.Errorf("unsupported center precision: %s", s)
	}
}

var (
	centersMagic = [4]byte{'C', 'N', 'T', 'R'}
	centersSeal  = [10]byte{'E', 'N', 'D', 'T', 'M', 'E', 'A', 'N', 'S', 0}
)

// WriteCenters serializes the fitted centers.
//
// Format:
//   - magic: "CNTR" (4 bytes)
//   - version: uint32
//   - precision: uint8
//   - dim, count: uint32
//   - count × dim values: float32, or float16 bits as uint16
//   - trailer: "ENDTMEANS\x00"
func (q *QuasiKMeans) WriteCenters(w io.Writer, precision CenterPrecision) (int64, error) {
	if precision != FullPrecision && precision != HalfPrecision {
		return 0, fmt.Errorf("unsupported center precision: %s", precision)
	}

	bw := &binWriter{w: w}
	bw.put(centersMagic)
	bw.put(uint32(1))
	bw.put(uint8(precision))
	bw.put(uint32(q.dim))
	bw.put(uint32(len(q.centers)))

	bits := make([]uint16, q.dim)
	for _, c := range q.centers {
		if precision == FullPrecision {
			bw.put(c)
			continue
		}
		for i, v := range c {
			bits[i] = float16.Fromfloat32(v).Bits()
		}
		bw.put(bits)
	}
	bw.put(centersSeal)

	if bw.err != nil {
		return bw.n, fmt.Errorf("failed to write centers: %w", bw.err)
	}
	return bw.n, nil
}

// ReadCenters replaces the centers with ones written by WriteCenters. The
// encoded dim must match the engine's. Half precision centers are widened
// back to float32.
func (q *QuasiKMeans) ReadCenters(r io.Reader) (int64, error) {
	br := &binReader{r: r, corrupt: ErrCorruptCenters}

	var magic [4]byte
	br.get(&magic)
	if br.err != nil {
		return br.n, fmt.Errorf("failed to read magic number: %w", br.err)
	}
	if magic != centersMagic {
		return br.n, fmt.Errorf("invalid magic number: expected 'CNTR', got '%s': %w", magic[:], ErrCorruptCenters)
	}

	var version, dim, count uint32
	var precision uint8
	br.get(&version)
	br.get(&precision)
	br.get(&dim)
	br.get(&count)
	if br.err != nil {
		return br.n, fmt.Errorf("failed to read header: %w", br.err)
	}
	if version != 1 {
		return br.n, fmt.Errorf("unsupported version %d: %w", version, ErrCorruptCenters)
	}
	if p := CenterPrecision(precision); p != FullPrecision && p != HalfPrecision {
		return br.n, fmt.Errorf("unsupported center precision %d: %w", precision, ErrCorruptCenters)
	}
	if int(dim) != q.dim {
		return br.n, fmt.Errorf("centers have dim %d, want %d: %w", dim, q.dim, ErrDimensionMismatch)
	}
	if count > maxEncodedLen {
		return br.n, fmt.Errorf("invalid center count %d: %w", count, ErrCorruptCenters)
	}

	centers := make([][]float32, count)
	bits := make([]uint16, dim)
	for l := range centers {
		c := make([]float32, dim)
		if CenterPrecision(precision) == FullPrecision {
			br.get(c)
		} else {
			br.get(bits)
			for i, b := range bits {
				c[i] = float16.Frombits(b).Float32()
			}
		}
		centers[l] = c
	}
	if br.err != nil {
		return br.n, fmt.Errorf("failed to read centers: %w", br.err)
	}

	var seal [10]byte
	br.get(&seal)
	if br.err != nil || seal != centersSeal {
		return br.n, fmt.Errorf("missing trailer: %w", ErrCorruptCenters)
	}

	q.centers = centers
	return br.n, nil
}
