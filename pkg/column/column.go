// Package column implements the typed, nullable sequence described in
// spec §4.D: a Sequence of Values wrapping an optional shared interner for
// string columns.
package column

import (
	"github.com/kasuganosora/livetable/pkg/intern"
	"github.com/kasuganosora/livetable/pkg/seqstore"
	"github.com/kasuganosora/livetable/pkg/tableerr"
	"github.com/kasuganosora/livetable/pkg/value"
)

// Column is a typed, nullable sequence. Length always equals the owning
// table's row count. If Nullable is false no null may ever appear. When
// Interner is non-nil, every string value holds an id with a live
// refcount.
type Column struct {
	Name     string
	Type     value.Kind
	Nullable bool
	seq      seqstore.Sequence
	interner *intern.Interner
}

// New builds a Column backed by seq, optionally sharing interner for
// string storage (nil disables interning for this column).
func New(name string, typ value.Kind, nullable bool, seq seqstore.Sequence, interner *intern.Interner) *Column {
	return &Column{Name: name, Type: typ, Nullable: nullable, seq: seq, interner: interner}
}

func (c *Column) Len() int { return c.seq.Len() }

// typeCheck validates v against the declared type and nullability.
func (c *Column) typeCheck(v value.Value) error {
	if v.IsNull() {
		if !c.Nullable {
			return tableerr.New(tableerr.NullViolation, "column %q is not nullable", c.Name)
		}
		return nil
	}
	if v.Kind() != c.Type {
		return tableerr.New(tableerr.TypeMismatch, "column %q expects %s, got %s", c.Name, c.Type, v.Kind())
	}
	return nil
}

// internValue converts an inbound plain-string Value to its interned form, when
// this column interns strings.
func (c *Column) internValue(v value.Value) value.Value {
	if c.interner == nil || v.Kind() != value.KindString || v.Interned() {
		return v
	}
	id := c.interner.Intern(v.Str())
	return value.InternedString(id)
}

// releaseIfInterned drops a refcount for an outgoing interned string value.
func (c *Column) releaseIfInterned(v value.Value) {
	if c.interner != nil && v.Kind() == value.KindString && v.Interned() {
		c.interner.Release(v.InternID())
	}
}

func (c *Column) Append(v value.Value) error {
	if err := c.typeCheck(v); err != nil {
		return err
	}
	c.seq.Append(c.internValue(v))
	return nil
}

func (c *Column) Get(i int) value.Value { return c.seq.Get(i) }

// Set assigns v at index i. When interning, the new value is interned
// before the old id is released, so assigning the same string to itself
// is a refcount no-op (spec §4.D).
func (c *Column) Set(i int, v value.Value) error {
	if err := c.typeCheck(v); err != nil {
		return err
	}
	newVal := c.internValue(v)
	old := c.seq.Get(i)
	c.seq.Set(i, newVal)
	c.releaseIfInterned(old)
	return nil
}

func (c *Column) Insert(i int, v value.Value) error {
	if err := c.typeCheck(v); err != nil {
		return err
	}
	c.seq.Insert(i, c.internValue(v))
	return nil
}

func (c *Column) Remove(i int) {
	old := c.seq.Get(i)
	c.seq.Remove(i)
	c.releaseIfInterned(old)
}

// BulkAppend validates and appends every value, returning the first
// validation error; values appended before that failure stay appended
// (Column itself does not roll back partial appends).
func (c *Column) BulkAppend(vs []value.Value) error {
	for _, v := range vs {
		if err := c.Append(v); err != nil {
			return err
		}
	}
	return nil
}

// Resolver exposes the column's interner (if any) for read paths that
// need to resolve interned strings to text.
func (c *Column) Resolver() value.Resolver {
	if c.interner == nil {
		return nil
	}
	return c.interner
}
