// Package records defines the tabular data model of the relation-extraction
// pipeline: one Record per sentence with its two entity mentions, and a Table
// of such records that the cleaning and augmentation stages transform.
package records

// Entity is one entity mention inside a sentence.
//
// Start and End are inclusive rune offsets into the sentence, as annotated in
// the source dataset. Offsets are only meaningful while the sentence still has
// its original text: any transform that rewrites the sentence invalidates them.
type Entity struct {
	Word  string
	Start int
	End   int
	Type  string
}

// Record is one training/prediction example: a sentence, the subject and
// object entity mentions, and a relation label.
//
// Records loaded from the raw dataset carry the serialized entity annotation
// in Subject.Word/Object.Word until the entity-parsing transform replaces it
// with the bare word and fills in the offset and type fields.
type Record struct {
	ID       string
	Sentence string
	Subject  Entity
	Object   Entity
	Label    string
	Source   string
}

// Table is an ordered collection of records. Rows are implicitly indexed by
// their position, starting from 0.
type Table []Record

// Clone returns a deep copy of the table. Transforms operate on copies so the
// caller's table is never mutated.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// Append returns a new table with the rows of other appended to t.
func (t Table) Append(other Table) Table {
	out := make(Table, 0, len(t)+len(other))
	out = append(out, t...)
	out = append(out, other...)
	return out
}

// Drop returns a new table without the rows at the given positions.
// Positions outside the table are ignored. Remaining rows keep their relative
// order, re-indexed contiguously from 0.
func (t Table) Drop(positions []int) Table {
	drop := make(map[int]bool, len(positions))
	for _, p := range positions {
		drop[p] = true
	}
	out := make(Table, 0, len(t))
	for i, r := range t {
		if drop[i] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Sentences returns the sentence column.
func (t Table) Sentences() []string {
	out := make([]string, len(t))
	for i, r := range t {
		out[i] = r.Sentence
	}
	return out
}

// Labels returns the label column.
func (t Table) Labels() []string {
	out := make([]string, len(t))
	for i, r := range t {
		out[i] = r.Label
	}
	return out
}
