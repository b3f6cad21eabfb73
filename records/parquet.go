package records

import (
	"bytes"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

// parquetRow is the flattened on-disk row, mirroring the preprocessed CSV
// layout.
type parquetRow struct {
	ID              string `parquet:"id"`
	Sentence        string `parquet:"sentence"`
	SubjectEntity   string `parquet:"subject_entity"`
	ObjectEntity    string `parquet:"object_entity"`
	Label           string `parquet:"label"`
	Source          string `parquet:"source"`
	SubjectStartIdx int32  `parquet:"subject_start_idx"`
	SubjectEndIdx   int32  `parquet:"subject_end_idx"`
	SubjectType     string `parquet:"subject_type"`
	ObjectStartIdx  int32  `parquet:"object_start_idx"`
	ObjectEndIdx    int32  `parquet:"object_end_idx"`
	ObjectType      string `parquet:"object_type"`
}

// WriteParquet writes a preprocessed table as a parquet file, an alternative
// snapshot format to WritePreprocessedCSV.
func WriteParquet(path string, tbl Table) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", path)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[parquetRow](f)
	rows := make([]parquetRow, len(tbl))
	for i, rec := range tbl {
		rows[i] = parquetRow{
			ID:              rec.ID,
			Sentence:        rec.Sentence,
			SubjectEntity:   rec.Subject.Word,
			ObjectEntity:    rec.Object.Word,
			Label:           rec.Label,
			Source:          rec.Source,
			SubjectStartIdx: int32(rec.Subject.Start),
			SubjectEndIdx:   int32(rec.Subject.End),
			SubjectType:     rec.Subject.Type,
			ObjectStartIdx:  int32(rec.Object.Start),
			ObjectEndIdx:    int32(rec.Object.End),
			ObjectType:      rec.Object.Type,
		}
	}
	if _, err := w.Write(rows); err != nil {
		return errors.Wrapf(err, "failed to write parquet rows to %q", path)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "failed to close parquet writer for %q", path)
	}
	return nil
}

// ReadParquet loads a preprocessed table from a parquet snapshot.
func ReadParquet(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %q", path)
	}
	file, err := parquet.OpenFile(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open parquet file %q", path)
	}

	r := parquet.NewGenericReader[parquetRow](file)
	defer r.Close()

	var tbl Table
	buf := make([]parquetRow, 64)
	for {
		n, err := r.Read(buf)
		for _, row := range buf[:n] {
			tbl = append(tbl, Record{
				ID:       row.ID,
				Sentence: row.Sentence,
				Subject: Entity{
					Word:  row.SubjectEntity,
					Start: int(row.SubjectStartIdx),
					End:   int(row.SubjectEndIdx),
					Type:  row.SubjectType,
				},
				Object: Entity{
					Word:  row.ObjectEntity,
					Start: int(row.ObjectStartIdx),
					End:   int(row.ObjectEndIdx),
					Type:  row.ObjectType,
				},
				Label:  row.Label,
				Source: row.Source,
			})
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read parquet rows from %q", path)
		}
		if n == 0 {
			break
		}
	}
	return tbl, nil
}
