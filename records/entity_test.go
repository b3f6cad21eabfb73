package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntity(t *testing.T) {
	ent, err := ParseEntity(`{'word': '비틀즈', 'start_idx': 24, 'end_idx': 26, 'type': 'ORG'}`)
	require.NoError(t, err)
	assert.Equal(t, Entity{Word: "비틀즈", Start: 24, End: 26, Type: "ORG"}, ent)
}

func TestParseEntity_DoubleQuotesAndEscapes(t *testing.T) {
	ent, err := ParseEntity(`{"word": "it\'s", "start_idx": 0, "end_idx": 3, "type": "PER"}`)
	require.NoError(t, err)
	assert.Equal(t, "it's", ent.Word)
	assert.Equal(t, "PER", ent.Type)
}

func TestParseEntity_KeyOrderIrrelevant(t *testing.T) {
	ent, err := ParseEntity(`{'type': 'POH', 'end_idx': 7, 'word': 'abc', 'start_idx': 5}`)
	require.NoError(t, err)
	assert.Equal(t, Entity{Word: "abc", Start: 5, End: 7, Type: "POH"}, ent)
}

func TestParseEntity_Malformed(t *testing.T) {
	cases := []string{
		"",
		"not a mapping",
		`{'word': 'a'}`, // missing keys
		`{'word': 'a', 'start_idx': 1, 'end_idx': 2, 'type': 'ORG', 'extra': 'x'}`, // unknown key
		`{'word': 'a', 'start_idx': 1, 'end_idx': 2, 'type': 'ORG'} trailing`,      // trailing content
		`{'word': 'a', 'word': 'b', 'start_idx': 1, 'end_idx': 2, 'type': 'ORG'}`,  // duplicate key
		`{'word': 'a', 'start_idx': 'one', 'end_idx': 2, 'type': 'ORG'}`,           // non-integer offset
		`{'word': 'a', 'start_idx': 1, 'end_idx': 2, 'type': 3}`,                   // non-string type
		`{'word': 'a', 'start_idx': 1, 'end_idx': 2, 'type': 'ORG'`,                // unterminated
	}
	for _, in := range cases {
		_, err := ParseEntity(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseEntities(t *testing.T) {
	tbl := Table{
		{
			ID:       "0",
			Sentence: "조지 해리슨이 쓴 노래다.",
			Subject:  Entity{Word: `{'word': '조지 해리슨', 'start_idx': 0, 'end_idx': 5, 'type': 'PER'}`},
			Object:   Entity{Word: `{'word': '노래', 'start_idx': 9, 'end_idx': 10, 'type': 'POH'}`},
			Label:    "no_relation",
		},
	}
	parsed, err := ParseEntities(tbl)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, Entity{Word: "조지 해리슨", Start: 0, End: 5, Type: "PER"}, parsed[0].Subject)
	assert.Equal(t, Entity{Word: "노래", Start: 9, End: 10, Type: "POH"}, parsed[0].Object)
	// The input table is not mutated.
	assert.Contains(t, tbl[0].Subject.Word, "start_idx")
}

func TestParseEntities_FailsWholeTable(t *testing.T) {
	tbl := Table{
		{Subject: Entity{Word: `{'word': 'a', 'start_idx': 0, 'end_idx': 1, 'type': 'ORG'}`},
			Object: Entity{Word: `{'word': 'b', 'start_idx': 2, 'end_idx': 3, 'type': 'ORG'}`}},
		{Subject: Entity{Word: `broken`},
			Object: Entity{Word: `{'word': 'c', 'start_idx': 0, 'end_idx': 1, 'type': 'ORG'}`}},
	}
	_, err := ParseEntities(tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}
