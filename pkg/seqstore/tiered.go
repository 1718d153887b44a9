package seqstore

import (
	"math"

	"github.com/kasuganosora/livetable/pkg/value"
)

// tieredSequence is a two-level array of fixed-size blocks. Every access
// (get, set, insert, remove) first locates its block by scanning the block
// list, which costs O(√n); get and set are therefore O(√n), not O(1).
// Insert/remove are O(√n) because each operation only ever shifts within
// one block and the block target size itself tracks √n as the sequence
// grows or shrinks.
type tieredSequence struct {
	blocks [][]value.Value
	length int
}

// NewTieredSequence returns the tiered-vector backend.
func NewTieredSequence() Sequence {
	return &tieredSequence{blocks: [][]value.Value{{}}}
}

func (s *tieredSequence) Len() int { return s.length }

func (s *tieredSequence) targetBlockSize() int {
	n := math.Sqrt(float64(s.length + 1))
	if n < 8 {
		n = 8
	}
	return int(n)
}

// locate returns the block index and offset within it for a global index.
func (s *tieredSequence) locate(i int) (block, offset int) {
	remaining := i
	for bi, b := range s.blocks {
		if remaining < len(b) {
			return bi, remaining
		}
		remaining -= len(b)
	}
	// i == length: append position in the last block.
	return len(s.blocks) - 1, len(s.blocks[len(s.blocks)-1])
}

func (s *tieredSequence) Get(i int) value.Value {
	b, off := s.locate(i)
	return s.blocks[b][off]
}

func (s *tieredSequence) Set(i int, v value.Value) {
	b, off := s.locate(i)
	s.blocks[b][off] = v
}

func (s *tieredSequence) Append(v value.Value) {
	s.Insert(s.length, v)
}

func (s *tieredSequence) Insert(i int, v value.Value) {
	b, off := s.locate(i)
	blk := s.blocks[b]
	blk = append(blk, value.Null)
	copy(blk[off+1:], blk[off:])
	blk[off] = v
	s.blocks[b] = blk
	s.length++

	if len(blk) > 2*s.targetBlockSize() {
		s.splitBlock(b)
	}
}

func (s *tieredSequence) Remove(i int) {
	b, off := s.locate(i)
	blk := s.blocks[b]
	copy(blk[off:], blk[off+1:])
	s.blocks[b] = blk[:len(blk)-1]
	s.length--

	target := s.targetBlockSize()
	if len(s.blocks[b]) == 0 && len(s.blocks) > 1 {
		s.blocks = append(s.blocks[:b], s.blocks[b+1:]...)
		return
	}
	if len(s.blocks[b]) < target/2 && len(s.blocks) > 1 {
		s.mergeWithNeighbor(b)
	}
}

func (s *tieredSequence) splitBlock(b int) {
	blk := s.blocks[b]
	mid := len(blk) / 2
	left := append([]value.Value(nil), blk[:mid]...)
	right := append([]value.Value(nil), blk[mid:]...)

	newBlocks := make([][]value.Value, 0, len(s.blocks)+1)
	newBlocks = append(newBlocks, s.blocks[:b]...)
	newBlocks = append(newBlocks, left, right)
	newBlocks = append(newBlocks, s.blocks[b+1:]...)
	s.blocks = newBlocks
}

func (s *tieredSequence) mergeWithNeighbor(b int) {
	if b+1 < len(s.blocks) {
		s.blocks[b] = append(s.blocks[b], s.blocks[b+1]...)
		s.blocks = append(s.blocks[:b+1], s.blocks[b+2:]...)
		return
	}
	if b-1 >= 0 {
		s.blocks[b-1] = append(s.blocks[b-1], s.blocks[b]...)
		s.blocks = append(s.blocks[:b], s.blocks[b+1:]...)
	}
}
