// Package bucket implements the Bucketing component (spec §2, §3.1): maps
// (street, canonical-board, hole-card-pair) to a bucket id, with a
// per-street "no abstraction" mode. Grounded on sdk/solver.BucketMapper,
// generalized to index by an explicit (global-board, HCP) pair instead of
// a raw poker.Hand.
package bucket

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/lox/pokerabstract/internal/abstract/abserrors"
)

// Table is a read-only lookup of bucket ids, one array per street, indexed
// by (globalBoard * numHoleCardPairsOnStreet + hcp). A street with
// NoAbstraction set returns the HCP itself as the bucket, i.e. every hand is
// its own bucket (spec: "supports per-street no-abstraction mode").
type Table struct {
	noAbstraction []bool
	buckets       [][]uint32 // [street][globalBoard*numHCP + hcp]
	numHCP        []int
	numBuckets    []int
}

// NewTable constructs an in-memory bucket table with numStreets streets.
func NewTable(numStreets int) *Table {
	return &Table{
		noAbstraction: make([]bool, numStreets),
		buckets:       make([][]uint32, numStreets),
		numHCP:        make([]int, numStreets),
		numBuckets:    make([]int, numStreets),
	}
}

// SetNoAbstraction marks a street as using identity bucketing (HCP == bucket).
func (t *Table) SetNoAbstraction(street int, numHCP int) {
	t.noAbstraction[street] = true
	t.numHCP[street] = numHCP
	t.numBuckets[street] = numHCP
}

// Load installs a dense bucket array for a street: data[gbd*numHCP+hcp] =
// bucket id.
func (t *Table) Load(street int, data []uint32, numHCP, numBuckets int) {
	t.buckets[street] = data
	t.numHCP[street] = numHCP
	t.numBuckets[street] = numBuckets
}

// Bucket returns the bucket id for (street, globalBoard, hcp).
func (t *Table) Bucket(street, globalBoard, hcp int) (int, error) {
	if street < 0 || street >= len(t.buckets) {
		return 0, abserrors.Invariant("bucket.Bucket", fmt.Errorf("street %d out of range", street))
	}
	if t.noAbstraction[street] {
		return hcp, nil
	}
	data := t.buckets[street]
	if data == nil {
		return 0, abserrors.TableMissing("bucket.Bucket", fmt.Errorf("no bucket table loaded for street %d", street))
	}
	idx := globalBoard*t.numHCP[street] + hcp
	if idx < 0 || idx >= len(data) {
		return 0, abserrors.Invariant("bucket.Bucket", fmt.Errorf("index %d out of range for street %d", idx, street))
	}
	return int(data[idx]), nil
}

// NumBuckets returns the bucket-space size for a street.
func (t *Table) NumBuckets(street int) int {
	if street < 0 || street >= len(t.numBuckets) {
		return 0
	}
	return t.numBuckets[street]
}

// LoadFromDisk reads a street's bucket array from a little-endian file of
// 32-bit bucket ids indexed by (global_board, hcp), per spec §6.4.
func (t *Table) LoadFromDisk(street int, path string, numHCP, numBuckets int) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return abserrors.TableMissing("bucket.LoadFromDisk", err)
	}
	if len(raw)%4 != 0 {
		return abserrors.TableMissing("bucket.LoadFromDisk", fmt.Errorf("bucket file size %d not a multiple of 4", len(raw)))
	}
	data := make([]uint32, len(raw)/4)
	for i := range data {
		data[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	t.Load(street, data, numHCP, numBuckets)
	return nil
}
