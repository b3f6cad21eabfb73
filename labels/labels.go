// Package labels holds the fixed bidirectional mapping between relation-label
// strings and dense integer class ids. The mapping is built once from a JSON
// dictionary file and shared read-only across training, validation and
// prediction.
package labels

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// Mapping is an immutable label <-> id mapping.
type Mapping struct {
	toID   map[string]int
	toName []string
}

// NewFromFile loads a mapping from a JSON file of the form
// {"no_relation": 0, "org:founded": 1, ...}.
func NewFromFile(path string) (*Mapping, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read label dictionary %q", path)
	}
	var raw map[string]int
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, errors.Wrapf(err, "failed to parse label dictionary %q", path)
	}
	return New(raw)
}

// New builds a mapping from a label->id dictionary. Ids must be dense,
// covering exactly [0, len) with no duplicates.
func New(raw map[string]int) (*Mapping, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty label dictionary")
	}
	m := &Mapping{
		toID:   make(map[string]int, len(raw)),
		toName: make([]string, len(raw)),
	}
	seen := make([]bool, len(raw))
	for label, id := range raw {
		if id < 0 || id >= len(raw) {
			return nil, errors.Errorf("label %q has id %d outside [0, %d)", label, id, len(raw))
		}
		if seen[id] {
			return nil, errors.Errorf("duplicate id %d (label %q)", id, label)
		}
		seen[id] = true
		m.toID[label] = id
		m.toName[id] = label
	}
	return m, nil
}

// Encode returns the integer id for a label string.
func (m *Mapping) Encode(label string) (int, error) {
	id, ok := m.toID[label]
	if !ok {
		return 0, errors.Errorf("unknown label %q", label)
	}
	return id, nil
}

// Decode returns the label string for an integer id.
func (m *Mapping) Decode(id int) (string, error) {
	if id < 0 || id >= len(m.toName) {
		return "", errors.Errorf("unknown label id %d", id)
	}
	return m.toName[id], nil
}

// EncodeAll encodes a label column into target ids.
func (m *Mapping) EncodeAll(labelColumn []string) ([]int, error) {
	out := make([]int, len(labelColumn))
	for i, label := range labelColumn {
		id, err := m.Encode(label)
		if err != nil {
			return nil, errors.WithMessagef(err, "row %d", i)
		}
		out[i] = id
	}
	return out, nil
}

// NumClasses returns the number of distinct labels.
func (m *Mapping) NumClasses() int {
	return len(m.toName)
}

// Names returns all label strings sorted alphabetically.
func (m *Mapping) Names() []string {
	out := make([]string, len(m.toName))
	copy(out, m.toName)
	sort.Strings(out)
	return out
}
