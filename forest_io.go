package ranforest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// treeSeal terminates every encoded tree.
var treeSeal = [4]byte{'E', 'N', 'D', 0}

const treeFilePrefix = "tree."

// treeFiles manages the per-tree files of a forest directory.
type treeFiles struct {
	dir string
}

func (p treeFiles) path(i int) string {
	return filepath.Join(p.dir, treeFilePrefix+strconv.Itoa(i))
}

// probe counts tree files by opening tree.0, tree.1, ... until one is
// missing. A gap hides every tree after it.
func (p treeFiles) probe() int {
	n := 0
	for fileExists(p.path(n)) {
		n++
	}
	return n
}

// list returns the indices of every tree file in the directory, sorted.
func (p treeFiles) list() ([]int, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var ids []int
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), treeFilePrefix) {
			continue
		}
		id, err := strconv.Atoi(strings.TrimPrefix(entry.Name(), treeFilePrefix))
		if err == nil && id >= 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// clean removes every tree file so a smaller forest does not inherit stale
// trees from a larger one.
func (p treeFiles) clean() error {
	ids, err := p.list()
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		if err := os.Remove(p.path(id)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", p.path(id), err))
		}
	}
	return errors.Join(errs...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Write stores the forest in dir, one file per tree named tree.<i>. The
// directory is created if needed and existing tree files are removed first.
func (f *Forest) Write(dir string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.roots) == 0 {
		return ErrNotGrown
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	files := treeFiles{dir: dir}
	if err := files.clean(); err != nil {
		return fmt.Errorf("failed to remove old trees: %w", err)
	}

	for t := range f.roots {
		if err := f.writeTreeFile(files.path(t), t); err != nil {
			return err
		}
	}
	return nil
}

func (f *Forest) writeTreeFile(path string, treeID int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create tree file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if _, err := f.writeTree(w, treeID); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return file.Close()
}

// WriteTree encodes tree treeID to w.
//
// Format (little-endian):
//   - dim: int32
//   - nodes in pre-order, children in construction order. Each node is
//     childCount:int32, then for a leaf n:int32 and n int32 point indices,
//     for an internal node the splitter kind:uint8 and the splitter encoding
//   - trailer: "END\x00"
func (f *Forest) WriteTree(w io.Writer, treeID int) (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if treeID < 0 || treeID >= len(f.roots) {
		return 0, ErrTreeOutOfRange
	}
	return f.writeTree(w, treeID)
}

func (f *Forest) writeTree(w io.Writer, treeID int) (int64, error) {
	t := &f.table
	bw := &binWriter{w: w}
	bw.put(int32(f.dim))

	stack := []NodeID{f.roots[treeID]}
	for len(stack) > 0 && bw.err == nil {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		kids := t.children[id]
		bw.put(int32(len(kids)))
		if len(kids) == 0 {
			bw.putInts(t.stores[id])
			continue
		}

		judge := t.judges[id]
		bw.put(uint8(judge.Kind()))
		if bw.err == nil {
			n, err := judge.WriteTo(w)
			bw.n += n
			bw.err = err
		}
		for k := len(kids) - 1; k >= 0; k-- {
			stack = append(stack, kids[k])
		}
	}
	bw.put(treeSeal)

	if bw.err != nil {
		return bw.n, fmt.Errorf("failed to write tree %d: %w", treeID, bw.err)
	}
	return bw.n, nil
}

// ReadForest loads a forest written by Write.
func ReadForest(dir string, logger zerolog.Logger) (*Forest, error) {
	f := NewForest()
	if err := f.Read(dir, logger); err != nil {
		return nil, err
	}
	return f, nil
}

// Read replaces the forest with the trees stored in dir.
//
// Trees are discovered by probing tree.0, tree.1, ... and loading stops at
// the first missing index; later files are ignored with a warning. Every
// tree must declare the same dim. NodeIDs are assigned in the order a
// depth-first Grow would assign them, so a forest grown depth-first by a
// single worker reloads with identical ids.
func (f *Forest) Read(dir string, logger zerolog.Logger) error {
	files := treeFiles{dir: dir}
	count := files.probe()
	if count == 0 {
		return fmt.Errorf("no tree files in %s: %w", dir, ErrNotGrown)
	}
	if ids, err := files.list(); err == nil && len(ids) > count {
		logger.Warn().
			Int("loaded", count).
			Int("found", len(ids)).
			Str("dir", dir).
			Msg("tree files past a missing index were ignored")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.table.reset()
	f.roots = nil
	f.dim = 0

	for t := range count {
		if err := f.readTreeFile(files.path(t)); err != nil {
			f.table.reset()
			f.roots = nil
			f.dim = 0
			return err
		}
	}

	logger.Info().
		Int("trees", len(f.roots)).
		Int("nodes", f.table.len()).
		Int("dim", f.dim).
		Str("dir", dir).
		Msg("forest loaded")
	return nil
}

func (f *Forest) readTreeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open tree file: %w", err)
	}
	defer file.Close()

	if _, err := f.readTree(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// ReadTree decodes one tree written by WriteTree and appends it to the
// forest. An empty forest adopts the tree's dim; otherwise the dims must
// agree.
func (f *Forest) ReadTree(r io.Reader) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readTree(r)
}

// treeRecord is a decoded node before it is placed in the table.
type treeRecord struct {
	children []int
	judge    Splitter
	store    []int
}

func (f *Forest) readTree(r io.Reader) (int64, error) {
	br := &binReader{r: r, corrupt: ErrCorruptTree}
	var dim int32
	br.get(&dim)
	if br.err != nil {
		return br.n, fmt.Errorf("failed to read dim: %w", br.err)
	}
	if dim <= 0 {
		return br.n, fmt.Errorf("invalid dim %d: %w", dim, ErrCorruptTree)
	}
	if len(f.roots) > 0 && int(dim) != f.dim {
		return br.n, fmt.Errorf("tree has dim %d, forest has %d: %w", dim, f.dim, ErrDimensionMismatch)
	}

	records, err := decodeRecords(br, int(dim))
	if err != nil {
		return br.n, err
	}

	var seal [4]byte
	br.get(&seal)
	if br.err != nil || seal != treeSeal {
		return br.n, fmt.Errorf("missing trailer: %w", ErrCorruptTree)
	}

	rollback := f.table.len()
	root := f.place(records)
	if _, err := f.coverage(root); err != nil {
		f.truncate(rollback)
		return br.n, err
	}
	f.dim = int(dim)
	f.roots = append(f.roots, root)
	return br.n, nil
}

// decodeRecords reads the pre-order node stream into local records; record
// 0 is the root and children refer to record indices.
func decodeRecords(br *binReader, dim int) ([]treeRecord, error) {
	type pending struct {
		record    int
		remaining int
	}

	var records []treeRecord
	var open []pending
	for {
		var childCount int32
		br.get(&childCount)
		if br.err != nil {
			return nil, fmt.Errorf("failed to read node %d: %w", len(records), wrapCorrupt(br.err))
		}
		if childCount < 0 || childCount > maxEncodedLen {
			return nil, fmt.Errorf("node %d has %d children: %w", len(records), childCount, ErrCorruptTree)
		}

		rec := treeRecord{}
		if childCount == 0 {
			rec.store = br.ints()
		} else {
			var kind uint8
			br.get(&kind)
			if br.err == nil {
				judge, err := NewSplitter(SplitterKind(kind))
				if err != nil {
					return nil, fmt.Errorf("node %d: %w", len(records), errors.Join(err, ErrCorruptTree))
				}
				n, err := judge.ReadFrom(br.r)
				br.n += n
				br.err = err
				rec.judge = judge
			}
		}
		if br.err != nil {
			return nil, fmt.Errorf("failed to read node %d: %w", len(records), wrapCorrupt(br.err))
		}
		if rec.judge != nil {
			if err := checkSplitter(rec.judge, dim, int(childCount)); err != nil {
				return nil, fmt.Errorf("node %d: %w", len(records), err)
			}
		}

		id := len(records)
		records = append(records, rec)
		if len(open) > 0 {
			parent := &open[len(open)-1]
			records[parent.record].children = append(records[parent.record].children, id)
			parent.remaining--
		}
		if childCount > 0 {
			open = append(open, pending{record: id, remaining: int(childCount)})
		}
		for len(open) > 0 && open[len(open)-1].remaining == 0 {
			open = open[:len(open)-1]
		}
		if len(open) == 0 {
			return records, nil
		}
	}
}

// checkSplitter rejects splitters that would index outside dim or route to
// a missing child.
func checkSplitter(s Splitter, dim, childCount int) error {
	if s.Branches() != childCount {
		return fmt.Errorf("%s splitter has %d branches, node has %d children: %w",
			s.Kind(), s.Branches(), childCount, ErrCorruptTree)
	}
	switch s := s.(type) {
	case *AxisSplitter:
		if s.Axis >= dim {
			return fmt.Errorf("axis %d outside dim %d: %w", s.Axis, dim, ErrCorruptTree)
		}
	case *DistanceSplitter:
		if len(s.Vantage) != dim {
			return fmt.Errorf("vantage point has %d coordinates, want %d: %w", len(s.Vantage), dim, ErrCorruptTree)
		}
	case *SubspaceSplitter:
		for _, c := range s.Components {
			if c >= dim {
				return fmt.Errorf("component %d outside dim %d: %w", c, dim, ErrCorruptTree)
			}
		}
	}
	return nil
}

func wrapCorrupt(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Join(err, ErrCorruptTree)
	}
	return err
}

// place appends the decoded records to the table, numbering them the way
// a depth-first grow does: all children of a node get consecutive ids when
// the node is split, and the last child is expanded first.
func (f *Forest) place(records []treeRecord) NodeID {
	t := &f.table
	type item struct {
		record int
		id     NodeID
	}

	root := t.reserve(0)
	work := []item{{record: 0, id: root}}
	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]

		rec := records[it.record]
		if len(rec.children) == 0 {
			t.commitLeaf(it.id, rec.store)
			continue
		}
		ids := t.split(it.id, rec.judge, t.levels[it.id]+1, len(rec.children))
		for k, id := range ids {
			work = append(work, item{record: rec.children[k], id: id})
		}
	}
	return root
}

// truncate drops table records from n on.
func (f *Forest) truncate(n int) {
	t := &f.table
	t.children = t.children[:n]
	t.judges = t.judges[:n]
	t.levels = t.levels[:n]
	t.stores = t.stores[:n]
}
