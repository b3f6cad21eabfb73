package records

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		{
			ID:       "0",
			Sentence: "AB was written by CD.",
			Subject:  Entity{Word: "CD", Start: 18, End: 19, Type: "PER"},
			Object:   Entity{Word: "AB", Start: 0, End: 1, Type: "POH"},
			Label:    "per:title",
			Source:   "wikipedia",
		},
		{
			ID:       "1",
			Sentence: "쉼표, 그리고 따옴표 \"인용\"이 있는 문장.",
			Subject:  Entity{Word: "쉼표", Start: 0, End: 1, Type: "POH"},
			Object:   Entity{Word: "따옴표", Start: 8, End: 10, Type: "POH"},
			Label:    "no_relation",
			Source:   "wikitree",
		},
	}
}

func TestPreprocessedCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new_train.csv")
	tbl := sampleTable()
	require.NoError(t, WritePreprocessedCSV(path, tbl))

	got, err := ReadPreprocessedCSV(path)
	require.NoError(t, err)
	assert.Equal(t, tbl, got)
}

func TestReadRawCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.csv")
	content := "id,sentence,subject_entity,object_entity,label,source\n" +
		`0,조지 해리슨이 쓴 노래다.,"{'word': '조지 해리슨', 'start_idx': 0, 'end_idx': 5, 'type': 'PER'}","{'word': '노래', 'start_idx': 9, 'end_idx': 10, 'type': 'POH'}",no_relation,wikipedia` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tbl, err := ReadRawCSV(path)
	require.NoError(t, err)
	require.Len(t, tbl, 1)
	assert.Equal(t, "조지 해리슨이 쓴 노래다.", tbl[0].Sentence)
	// The serialized annotation stays verbatim until entity parsing runs.
	assert.Contains(t, tbl[0].Subject.Word, "'start_idx': 0")
	assert.Equal(t, "no_relation", tbl[0].Label)
}

func TestReadCSV_HeaderMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c,d,e,f\n"), 0o644))
	_, err := ReadRawCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expected "id"`)
}

func TestTableDrop(t *testing.T) {
	tbl := Table{{ID: "0"}, {ID: "1"}, {ID: "2"}, {ID: "3"}}
	got := tbl.Drop([]int{1, 3, 99})
	require.Len(t, got, 2)
	assert.Equal(t, "0", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
	// Original untouched.
	assert.Len(t, tbl, 4)
}

func TestTableAppend(t *testing.T) {
	a := Table{{ID: "0"}}
	b := Table{{ID: "1"}, {ID: "2"}}
	got := a.Append(b)
	require.Len(t, got, 3)
	assert.Equal(t, "2", got[2].ID)
	assert.Len(t, a, 1)
}
