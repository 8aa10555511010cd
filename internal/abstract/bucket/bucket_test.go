package bucket_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerabstract/internal/abstract/bucket"
)

func TestNoAbstractionReturnsHCPAsBucket(t *testing.T) {
	tbl := bucket.NewTable(2)
	tbl.SetNoAbstraction(0, 100)

	b, err := tbl.Bucket(0, 5, 42)
	require.NoError(t, err)
	assert.Equal(t, 42, b)
	assert.Equal(t, 100, tbl.NumBuckets(0))
}

func TestLoadAndBucketIndexing(t *testing.T) {
	tbl := bucket.NewTable(1)
	// 2 boards x 3 HCPs, bucket id = (gbd+1)*10+hcp for an easy check.
	data := []uint32{10, 11, 12, 20, 21, 22}
	tbl.Load(0, data, 3, 5)

	b, err := tbl.Bucket(0, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 22, b)
	assert.Equal(t, 5, tbl.NumBuckets(0))
}

func TestBucketMissingTableErrors(t *testing.T) {
	tbl := bucket.NewTable(1)
	_, err := tbl.Bucket(0, 0, 0)
	assert.Error(t, err)
}

func TestBucketStreetOutOfRangeErrors(t *testing.T) {
	tbl := bucket.NewTable(1)
	_, err := tbl.Bucket(5, 0, 0)
	assert.Error(t, err)
}

func TestBucketIndexOutOfRangeErrors(t *testing.T) {
	tbl := bucket.NewTable(1)
	tbl.Load(0, []uint32{1, 2}, 2, 5)
	_, err := tbl.Bucket(0, 10, 0)
	assert.Error(t, err)
}

func TestLoadFromDiskRoundTrips(t *testing.T) {
	raw := make([]byte, 4*4)
	values := []uint32{7, 8, 9, 10}
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], v)
	}
	path := filepath.Join(t.TempDir(), "buckets.bin")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	tbl := bucket.NewTable(1)
	require.NoError(t, tbl.LoadFromDisk(0, path, 2, 4))

	b, err := tbl.Bucket(0, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 9, b)
}

func TestLoadFromDiskRejectsMisalignedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	tbl := bucket.NewTable(1)
	err := tbl.LoadFromDisk(0, path, 1, 1)
	assert.Error(t, err)
}

func TestLoadFromDiskMissingFileErrors(t *testing.T) {
	tbl := bucket.NewTable(1)
	err := tbl.LoadFromDisk(0, filepath.Join(t.TempDir(), "missing.bin"), 1, 1)
	assert.Error(t, err)
}
