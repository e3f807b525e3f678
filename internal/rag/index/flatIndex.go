package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension does not match index")
	ErrEmptyIndex        = errors.New("index holds no vectors")
)

// FlatIndex is an exact (brute force) squared-L2 index over fixed-dimension
// float32 vectors. Position in the index is the vector's identity: callers keep
// a parallel metadata slice and never remove single rows - rebuilds replace the
// whole index instead.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

type Match struct {
	Position int
	Score    float32 //squared L2, lower is better
}

func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

func (f *FlatIndex) Dim() int  { return f.dim }
func (f *FlatIndex) Size() int { return len(f.vectors) }

func (f *FlatIndex) Add(vector []float32) error {
	if len(vector) != f.dim {
		return fmt.Errorf("%w: got %d want %d", ErrDimensionMismatch, len(vector), f.dim)
	}
	owned := make([]float32, f.dim)
	copy(owned, vector)
	f.vectors = append(f.vectors, owned)
	return nil
}

// Search returns up to k matches sorted by ascending score. Ties keep
// insertion order so repeated queries stay deterministic.
func (f *FlatIndex) Search(query []float32, k int) ([]Match, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: got %d want %d", ErrDimensionMismatch, len(query), f.dim)
	}
	if len(f.vectors) == 0 {
		return nil, ErrEmptyIndex
	}

	matches := make([]Match, len(f.vectors))
	for i, v := range f.vectors {
		matches[i] = Match{Position: i, Score: squaredL2(query, v)}
	}
	sort.SliceStable(matches, func(a, b int) bool { return matches[a].Score < matches[b].Score })

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// DistanceAt scores one stored vector against the query. Used for targeted
// scans where the candidate set is already known.
func (f *FlatIndex) DistanceAt(position int, query []float32) (float32, error) {
	if position < 0 || position >= len(f.vectors) {
		return 0, fmt.Errorf("position %d out of range [0,%d)", position, len(f.vectors))
	}
	if len(query) != f.dim {
		return 0, fmt.Errorf("%w: got %d want %d", ErrDimensionMismatch, len(query), f.dim)
	}
	return squaredL2(query, f.vectors[position]), nil
}

// Mean returns the centroid of all stored vectors. Block-level vectors are
// the centroid of their chunk vectors, so a rebuild never needs to re-embed.
func (f *FlatIndex) Mean() ([]float32, error) {
	if len(f.vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	mean := make([]float32, f.dim)
	for _, v := range f.vectors {
		for i, x := range v {
			mean[i] += x
		}
	}
	n := float32(len(f.vectors))
	for i := range mean {
		mean[i] /= n
	}
	return mean, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Binary layout: uint32 dim, uint32 count, then count*dim little-endian
// float32 values.
func (f *FlatIndex) SaveTo(w io.Writer) error {
	header := [2]uint32{uint32(f.dim), uint32(len(f.vectors))}
	if err := binary.Write(w, binary.LittleEndian, header[:]); err != nil {
		return err
	}
	for _, v := range f.vectors {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func LoadFrom(r io.Reader) (*FlatIndex, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.LittleEndian, header[:]); err != nil {
		return nil, fmt.Errorf("read index header: %w", err)
	}
	dim, count := int(header[0]), int(header[1])
	if dim <= 0 {
		return nil, fmt.Errorf("corrupt index header: dim %d", dim)
	}

	idx := NewFlatIndex(dim)
	idx.vectors = make([][]float32, 0, count)
	for i := 0; i < count; i++ {
		v := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		idx.vectors = append(idx.vectors, v)
	}
	return idx, nil
}

func (f *FlatIndex) SaveFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return f.SaveTo(file)
}

func LoadFile(path string) (*FlatIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadFrom(file)
}
