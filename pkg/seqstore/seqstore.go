// Package seqstore implements the two Sequence backends described in
// spec §4.B: a growing array (amortized O(1) append, O(n) insert/remove)
// and a tiered vector (O(√n) insert/remove and O(√n) get, since the block
// holding an index is found by a linear scan of blocks). The table picks one
// backend at construction and every column shares that choice.
package seqstore

import (
	"github.com/kasuganosora/livetable/pkg/value"
)

// Sequence is the common contract shared by both backends.
type Sequence interface {
	Append(v value.Value)
	Get(i int) value.Value
	Set(i int, v value.Value)
	Insert(i int, v value.Value)
	Remove(i int)
	Len() int
}

// New returns the backend selected at table-construction time: a tiered
// vector when useTiered is true, otherwise the plain growing array.
func New(useTiered bool) Sequence {
	if useTiered {
		return NewTieredSequence()
	}
	return NewArraySequence()
}

// NewArraySequence returns the simple growing-array backend.
func NewArraySequence() Sequence {
	return &arraySequence{}
}

type arraySequence struct {
	data []value.Value
}

func (s *arraySequence) Len() int { return len(s.data) }

func (s *arraySequence) Append(v value.Value) {
	s.data = append(s.data, v)
}

func (s *arraySequence) Get(i int) value.Value { return s.data[i] }

func (s *arraySequence) Set(i int, v value.Value) { s.data[i] = v }

func (s *arraySequence) Insert(i int, v value.Value) {
	s.data = append(s.data, value.Null)
	copy(s.data[i+1:], s.data[i:])
	s.data[i] = v
}

func (s *arraySequence) Remove(i int) {
	copy(s.data[i:], s.data[i+1:])
	s.data = s.data[:len(s.data)-1]
}
