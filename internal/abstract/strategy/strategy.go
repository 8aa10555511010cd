// Package strategy implements the Strategy store (§4.5): read-only access to
// per-node probabilities for each (player, node, bucket, succ), in both an
// eager in-memory form and a lazy file-backed form, grounded on
// sdk/solver/runtime.Policy's Load/ActionWeights shape but generalized to
// the dense (street, nonterminal-id, offset) addressing spec §3.1 requires,
// and to per-street quantization (§4.5: "u8, u16, i32, f64").
package strategy

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/lox/pokerabstract/internal/abstract/abserrors"
	"github.com/lox/pokerabstract/internal/fileutil"
)

// Store is the read-only contract spec §4.5 names: a function
// (player, street, nonterminalID, offset, numSuccs) -> probability vector.
type Store interface {
	// Probs returns a normalized distribution over numSuccs successors. If
	// all stored values are zero, implementations return 1.0 at
	// defaultSuccIndex and 0 elsewhere (regret-matching's conventional
	// default); a negative stored value is an error.
	Probs(player, street, nonterminalID, offset, numSuccs, defaultSuccIndex int) ([]float64, error)
	// FTLCurrentProb returns 1.0 on the argmax succ, else 0.0, for
	// follow-the-leader trainers.
	FTLCurrentProb(player, street, nonterminalID, offset, succ, numSuccs int) (float64, error)
}

// Quantizer converts between a quantized on-disk representation and a
// float64 probability weight. Callers of Store never see these directly.
type Quantizer interface {
	Size() int
	Decode(b []byte) float64
	Encode(v float64, b []byte)
}

// U8Quantizer maps [0,1] onto a single byte.
type U8Quantizer struct{}

func (U8Quantizer) Size() int { return 1 }
func (U8Quantizer) Decode(b []byte) float64 {
	return float64(b[0]) / 255.0
}
func (U8Quantizer) Encode(v float64, b []byte) {
	b[0] = byte(clamp01(v) * 255.0)
}

// U16Quantizer maps [0,1] onto a little-endian uint16.
type U16Quantizer struct{}

func (U16Quantizer) Size() int { return 2 }
func (U16Quantizer) Decode(b []byte) float64 {
	return float64(binary.LittleEndian.Uint16(b)) / 65535.0
}
func (U16Quantizer) Encode(v float64, b []byte) {
	binary.LittleEndian.PutUint16(b, uint16(clamp01(v)*65535.0))
}

// I32Quantizer stores a raw regret/sumprob value as a little-endian int32
// (used when callers want unnormalized magnitudes, not probabilities).
type I32Quantizer struct{ Scale float64 }

func (q I32Quantizer) Size() int { return 4 }
func (q I32Quantizer) Decode(b []byte) float64 {
	v := int32(binary.LittleEndian.Uint32(b))
	scale := q.Scale
	if scale == 0 {
		scale = 1
	}
	return float64(v) / scale
}
func (q I32Quantizer) Encode(v float64, b []byte) {
	scale := q.Scale
	if scale == 0 {
		scale = 1
	}
	binary.LittleEndian.PutUint32(b, uint32(int32(v*scale)))
}

// F64Quantizer stores the raw IEEE-754 value, i.e. no quantization.
type F64Quantizer struct{}

func (F64Quantizer) Size() int { return 8 }
func (F64Quantizer) Decode(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
func (F64Quantizer) Encode(v float64, b []byte) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// nodeKey addresses a (player, street, nonterminalID) triple.
type nodeKey struct {
	player, street, nonterminalID int
}

// MemoryStore is an eagerly-loaded, fully in-memory Store, safe for
// concurrent reads from multiple bot instances (spec §5: "must be safe from
// multiple bots concurrently").
type MemoryStore struct {
	data map[nodeKey][]float64
}

// NewMemoryStore builds an empty store; callers populate it via Set before
// sharing it across goroutines.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[nodeKey][]float64)}
}

// Set installs the raw (non-negative, not necessarily normalized) regret or
// sumprob values for a node; Probs normalizes on read.
func (m *MemoryStore) Set(player, street, nonterminalID int, values []float64) {
	m.data[nodeKey{player, street, nonterminalID}] = values
}

func (m *MemoryStore) Probs(player, street, nonterminalID, offset, numSuccs, defaultSuccIndex int) ([]float64, error) {
	raw, ok := m.data[nodeKey{player, street, nonterminalID}]
	if !ok {
		return nil, abserrors.TableMissing("strategy.MemoryStore.Probs", fmt.Errorf("no entry for player=%d street=%d node=%d", player, street, nonterminalID))
	}
	start := offset * numSuccs
	if start < 0 || start+numSuccs > len(raw) {
		return nil, abserrors.Invariant("strategy.MemoryStore.Probs", fmt.Errorf("offset %d out of range (len=%d, numSuccs=%d)", offset, len(raw), numSuccs))
	}
	return normalize(raw[start:start+numSuccs], defaultSuccIndex)
}

func (m *MemoryStore) FTLCurrentProb(player, street, nonterminalID, offset, succ, numSuccs int) (float64, error) {
	raw, ok := m.data[nodeKey{player, street, nonterminalID}]
	if !ok {
		return 0, abserrors.TableMissing("strategy.MemoryStore.FTLCurrentProb", fmt.Errorf("no entry for player=%d street=%d node=%d", player, street, nonterminalID))
	}
	start := offset * numSuccs
	if start < 0 || start+numSuccs > len(raw) {
		return 0, abserrors.Invariant("strategy.MemoryStore.FTLCurrentProb", fmt.Errorf("offset out of range"))
	}
	best := argmax(raw[start : start+numSuccs])
	if succ == best {
		return 1, nil
	}
	return 0, nil
}

// SnapshotRegion describes one node's byte range within a saved snapshot
// file, in the same shape OpenFileStore's index parameter expects.
type SnapshotRegion struct {
	Offset int64
	Count  int
}

// SaveSnapshot quantizes and writes every node this store holds to a single
// concatenated file via fileutil.WriteFileAtomic, so a reader never observes
// a partially-written snapshot (spec §4.8 step 5 swaps in a resolved store
// mid-hand; persisting it lets a later run reopen the same resolve via
// OpenFileStore instead of recomputing it). Returns the index OpenFileStore
// needs to address each node's region.
func (m *MemoryStore) SaveSnapshot(path string, q Quantizer) (map[[3]int]SnapshotRegion, error) {
	size := q.Size()
	index := make(map[[3]int]SnapshotRegion, len(m.data))
	var buf []byte
	var offset int64

	for key, values := range m.data {
		region := SnapshotRegion{Offset: offset, Count: len(values)}
		index[[3]int{key.player, key.street, key.nonterminalID}] = region
		// U8/U16 encode [0,1]; scale the node by its largest value so the
		// ratios Probs normalizes on read survive the clamp.
		scale := 1.0
		switch q.(type) {
		case U8Quantizer, U16Quantizer:
			mx := 0.0
			for _, v := range values {
				mx = math.Max(mx, v)
			}
			if mx > 1 {
				scale = 1 / mx
			}
		}
		chunk := make([]byte, len(values)*size)
		for i, v := range values {
			q.Encode(v*scale, chunk[i*size:(i+1)*size])
		}
		buf = append(buf, chunk...)
		offset += int64(len(chunk))
	}

	if err := fileutil.WriteFileAtomic(path, buf, 0o644); err != nil {
		return nil, abserrors.Resource("strategy.MemoryStore.SaveSnapshot", err)
	}
	return index, nil
}

func normalize(raw []float64, defaultSuccIndex int) ([]float64, error) {
	out := make([]float64, len(raw))
	total := 0.0
	for _, v := range raw {
		if v < 0 {
			return nil, abserrors.Invariant("strategy.normalize", fmt.Errorf("negative stored value %v", v))
		}
		total += v
	}
	if total <= 0 {
		if defaultSuccIndex < 0 || defaultSuccIndex >= len(out) {
			return nil, abserrors.Invariant("strategy.normalize", fmt.Errorf("default succ index %d out of range", defaultSuccIndex))
		}
		out[defaultSuccIndex] = 1
		return out, nil
	}
	for i, v := range raw {
		out[i] = v / total
	}
	return out, nil
}

func argmax(v []float64) int {
	best, bestVal := 0, v[0]
	for i := 1; i < len(v); i++ {
		if v[i] > bestVal {
			best, bestVal = i, v[i]
		}
	}
	return best
}

// FileStore is a lazy, file-backed Store: each (player, street,
// nonterminalID) region is read from disk on first access and cached.
// Thread-safe for concurrent reads via a single RWMutex guarding the cache.
type FileStore struct {
	mu        sync.RWMutex
	cache     map[nodeKey][]float64
	index     map[nodeKey]fileRegion
	path      string
	quantizer Quantizer
	f         *os.File
}

type fileRegion struct {
	offset int64
	count  int
}

// indexMagic tags the on-disk index format OpenFileStore reads (little-
// endian throughout, per spec §6.4): magic, entry count, then one record per
// entry of (player, street, nonterminalID int32; offset int64; count int32).
const indexMagic = uint32(0x50504958) // "PPIX"

// WriteIndexFile persists a SaveSnapshot index alongside its strategy file,
// so a later process can reopen the same snapshot via OpenFileStore without
// recomputing it (spec §6.4: "concrete readers/writers live beside each
// owning package").
func WriteIndexFile(path string, index map[[3]int]SnapshotRegion) error {
	buf := make([]byte, 0, 8+len(index)*20)
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], indexMagic)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(index)))
	buf = append(buf, hdr[:]...)

	for key, region := range index {
		var rec [20]byte
		binary.LittleEndian.PutUint32(rec[0:4], uint32(int32(key[0])))
		binary.LittleEndian.PutUint32(rec[4:8], uint32(int32(key[1])))
		binary.LittleEndian.PutUint32(rec[8:12], uint32(int32(key[2])))
		binary.LittleEndian.PutUint64(rec[12:20], uint64(region.Offset))
		buf = append(buf, rec[:]...)
		var countBuf [4]byte
		binary.LittleEndian.PutUint32(countBuf[:], uint32(int32(region.Count)))
		buf = append(buf, countBuf[:]...)
	}

	if err := fileutil.WriteFileAtomic(path, buf, 0o644); err != nil {
		return abserrors.Resource("strategy.WriteIndexFile", err)
	}
	return nil
}

// LoadIndexFile reads back an index written by WriteIndexFile.
func LoadIndexFile(path string) (map[[3]int]SnapshotRegion, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, abserrors.TableMissing("strategy.LoadIndexFile", err)
	}
	if len(raw) < 8 {
		return nil, abserrors.Parse("strategy.LoadIndexFile", fmt.Errorf("index file %q too short", path))
	}
	if binary.LittleEndian.Uint32(raw[0:4]) != indexMagic {
		return nil, abserrors.Parse("strategy.LoadIndexFile", fmt.Errorf("index file %q has bad magic", path))
	}
	count := int(binary.LittleEndian.Uint32(raw[4:8]))
	const recSize = 24
	want := 8 + count*recSize
	if len(raw) != want {
		return nil, abserrors.Parse("strategy.LoadIndexFile", fmt.Errorf("index file %q has %d bytes, want %d for %d entries", path, len(raw), want, count))
	}

	index := make(map[[3]int]SnapshotRegion, count)
	off := 8
	for i := 0; i < count; i++ {
		rec := raw[off : off+recSize]
		player := int(int32(binary.LittleEndian.Uint32(rec[0:4])))
		street := int(int32(binary.LittleEndian.Uint32(rec[4:8])))
		nonterminalID := int(int32(binary.LittleEndian.Uint32(rec[8:12])))
		offset := int64(binary.LittleEndian.Uint64(rec[12:20]))
		regionCount := int(int32(binary.LittleEndian.Uint32(rec[20:24])))
		index[[3]int{player, street, nonterminalID}] = SnapshotRegion{Offset: offset, Count: regionCount}
		off += recSize
	}
	return index, nil
}

// OpenFileStore opens a concatenated strategy file and its index (mapping
// each (player,street,nonterminalID) to a byte region), per spec §6.4: "one
// concatenated file, quantized per street flags".
func OpenFileStore(path string, index map[[3]int]SnapshotRegion, q Quantizer) (*FileStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, abserrors.TableMissing("strategy.OpenFileStore", err)
	}
	fs := &FileStore{
		cache:     make(map[nodeKey][]float64),
		index:     make(map[nodeKey]fileRegion, len(index)),
		path:      path,
		quantizer: q,
		f:         f,
	}
	for k, v := range index {
		fs.index[nodeKey{k[0], k[1], k[2]}] = fileRegion{offset: v.Offset, count: v.Count}
	}
	return fs, nil
}

// Close releases the underlying file handle.
func (fs *FileStore) Close() error { return fs.f.Close() }

func (fs *FileStore) load(key nodeKey) ([]float64, error) {
	fs.mu.RLock()
	if v, ok := fs.cache[key]; ok {
		fs.mu.RUnlock()
		return v, nil
	}
	fs.mu.RUnlock()

	region, ok := fs.index[key]
	if !ok {
		return nil, abserrors.TableMissing("strategy.FileStore.load", fmt.Errorf("no region for player=%d street=%d node=%d", key.player, key.street, key.nonterminalID))
	}

	size := fs.quantizer.Size()
	buf := make([]byte, region.count*size)
	if _, err := fs.f.ReadAt(buf, region.offset); err != nil {
		return nil, abserrors.Resource("strategy.FileStore.load", err)
	}
	values := make([]float64, region.count)
	for i := range values {
		values[i] = fs.quantizer.Decode(buf[i*size : (i+1)*size])
	}

	fs.mu.Lock()
	fs.cache[key] = values
	fs.mu.Unlock()
	return values, nil
}

func (fs *FileStore) Probs(player, street, nonterminalID, offset, numSuccs, defaultSuccIndex int) ([]float64, error) {
	raw, err := fs.load(nodeKey{player, street, nonterminalID})
	if err != nil {
		return nil, err
	}
	start := offset * numSuccs
	if start < 0 || start+numSuccs > len(raw) {
		return nil, abserrors.Invariant("strategy.FileStore.Probs", fmt.Errorf("offset %d out of range", offset))
	}
	return normalize(raw[start:start+numSuccs], defaultSuccIndex)
}

func (fs *FileStore) FTLCurrentProb(player, street, nonterminalID, offset, succ, numSuccs int) (float64, error) {
	raw, err := fs.load(nodeKey{player, street, nonterminalID})
	if err != nil {
		return 0, err
	}
	start := offset * numSuccs
	if start < 0 || start+numSuccs > len(raw) {
		return 0, abserrors.Invariant("strategy.FileStore.FTLCurrentProb", fmt.Errorf("offset out of range"))
	}
	best := argmax(raw[start : start+numSuccs])
	if succ == best {
		return 1, nil
	}
	return 0, nil
}
