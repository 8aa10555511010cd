package strategy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerabstract/internal/abstract/strategy"
)

func TestMemoryStoreNormalizesOnRead(t *testing.T) {
	m := strategy.NewMemoryStore()
	m.Set(0, 0, 0, []float64{1, 3})

	probs, err := m.Probs(0, 0, 0, 0, 2, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, probs[0], 1e-9)
	assert.InDelta(t, 0.75, probs[1], 1e-9)
}

func TestMemoryStoreDefaultsWhenAllZero(t *testing.T) {
	m := strategy.NewMemoryStore()
	m.Set(0, 0, 0, []float64{0, 0, 0})

	probs, err := m.Probs(0, 0, 0, 0, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, probs)
}

func TestMemoryStoreMissingNodeErrors(t *testing.T) {
	m := strategy.NewMemoryStore()
	_, err := m.Probs(0, 0, 0, 0, 2, 0)
	assert.Error(t, err)
}

func TestMemoryStoreOffsetOutOfRangeErrors(t *testing.T) {
	m := strategy.NewMemoryStore()
	m.Set(0, 0, 0, []float64{1, 1})
	_, err := m.Probs(0, 0, 0, 5, 2, 0)
	assert.Error(t, err)
}

func TestFTLCurrentProbPicksArgmax(t *testing.T) {
	m := strategy.NewMemoryStore()
	m.Set(0, 0, 0, []float64{1, 5, 2})

	p, err := m.FTLCurrentProb(0, 0, 0, 0, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)

	p, err = m.FTLCurrentProb(0, 0, 0, 0, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
}

func TestQuantizerRoundTrips(t *testing.T) {
	cases := []struct {
		name string
		q    strategy.Quantizer
		v    float64
		tol  float64
	}{
		{"u8", strategy.U8Quantizer{}, 0.5, 1.0 / 255},
		{"u16", strategy.U16Quantizer{}, 0.33, 1.0 / 65535},
		{"i32", strategy.I32Quantizer{Scale: 1000}, 12.345, 1e-3},
		{"f64", strategy.F64Quantizer{}, 0.123456789, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			buf := make([]byte, c.q.Size())
			c.q.Encode(c.v, buf)
			got := c.q.Decode(buf)
			assert.InDelta(t, c.v, got, c.tol+1e-9)
		})
	}
}

func TestSaveSnapshotThenOpenFileStoreRoundTrips(t *testing.T) {
	m := strategy.NewMemoryStore()
	m.Set(0, 1, 2, []float64{1, 2, 1})

	path := filepath.Join(t.TempDir(), "snapshot.bin")
	q := strategy.U16Quantizer{}
	index, err := m.SaveSnapshot(path, q)
	require.NoError(t, err)

	fs, err := strategy.OpenFileStore(path, index, q)
	require.NoError(t, err)
	defer fs.Close()

	probs, err := fs.Probs(0, 1, 2, 0, 3, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, probs[0], 1e-3)
	assert.InDelta(t, 0.5, probs[1], 1e-3)
	assert.InDelta(t, 0.25, probs[2], 1e-3)
}

func TestWriteIndexFileThenLoadIndexFileRoundTrips(t *testing.T) {
	m := strategy.NewMemoryStore()
	m.Set(0, 1, 2, []float64{1, 2, 1})
	m.Set(1, 0, 0, []float64{3, 1})

	dir := t.TempDir()
	snapshotPath := filepath.Join(dir, "snapshot.bin")
	q := strategy.U16Quantizer{}
	index, err := m.SaveSnapshot(snapshotPath, q)
	require.NoError(t, err)

	idxPath := filepath.Join(dir, "snapshot.idx")
	require.NoError(t, strategy.WriteIndexFile(idxPath, index))

	loaded, err := strategy.LoadIndexFile(idxPath)
	require.NoError(t, err)
	assert.Equal(t, index, loaded)

	fs, err := strategy.OpenFileStore(snapshotPath, loaded, q)
	require.NoError(t, err)
	defer fs.Close()

	probs, err := fs.Probs(0, 1, 2, 0, 3, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, probs[0], 1e-3)
}

func TestLoadIndexFileRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.idx")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4, 0, 0, 0, 0}, 0o644))
	_, err := strategy.LoadIndexFile(path)
	assert.Error(t, err)
}

func TestLoadIndexFileMissingFileErrors(t *testing.T) {
	_, err := strategy.LoadIndexFile(filepath.Join(t.TempDir(), "missing.idx"))
	assert.Error(t, err)
}

func TestFileStoreMissingRegionErrors(t *testing.T) {
	m := strategy.NewMemoryStore()
	path := filepath.Join(t.TempDir(), "empty.bin")
	_, err := m.SaveSnapshot(path, strategy.U8Quantizer{})
	require.NoError(t, err)

	fs, err := strategy.OpenFileStore(path, nil, strategy.U8Quantizer{})
	require.NoError(t, err)
	defer fs.Close()

	_, err = fs.Probs(0, 0, 0, 0, 2, 0)
	assert.Error(t, err)
}
