package records

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Column layouts.
//
// Raw dataset files carry the serialized entity annotations:
//
//	id, sentence, subject_entity, object_entity, label, source
//
// Preprocessed files (the output of the offline entity-parsing pass) keep the
// same leading columns, with subject_entity/object_entity reduced to the bare
// word, and append the flattened offset/type columns:
//
//	..., subject_start_idx, subject_end_idx, subject_type,
//	     object_start_idx, object_end_idx, object_type

var rawHeader = []string{"id", "sentence", "subject_entity", "object_entity", "label", "source"}

var preprocessedHeader = append(append([]string{}, rawHeader...),
	"subject_start_idx", "subject_end_idx", "subject_type",
	"object_start_idx", "object_end_idx", "object_type")

// ReadRawCSV loads a raw dataset file. The serialized entity annotations are
// kept verbatim in Subject.Word/Object.Word for the entity-parsing transform.
func ReadRawCSV(path string) (Table, error) {
	rows, err := readCSV(path, rawHeader)
	if err != nil {
		return nil, err
	}
	tbl := make(Table, len(rows))
	for i, row := range rows {
		tbl[i] = Record{
			ID:       row[0],
			Sentence: row[1],
			Subject:  Entity{Word: row[2]},
			Object:   Entity{Word: row[3]},
			Label:    row[4],
			Source:   row[5],
		}
	}
	return tbl, nil
}

// ReadPreprocessedCSV loads a preprocessed dataset file (new_train.csv /
// new_test.csv shape). The id and source columns are read but not used
// downstream, mirroring how the pipeline drops them right after loading.
func ReadPreprocessedCSV(path string) (Table, error) {
	rows, err := readCSV(path, preprocessedHeader)
	if err != nil {
		return nil, err
	}
	tbl := make(Table, len(rows))
	for i, row := range rows {
		rec := Record{
			ID:       row[0],
			Sentence: row[1],
			Subject:  Entity{Word: row[2], Type: row[8]},
			Object:   Entity{Word: row[3], Type: row[11]},
			Label:    row[4],
			Source:   row[5],
		}
		var err error
		if rec.Subject.Start, err = strconv.Atoi(row[6]); err != nil {
			return nil, errors.Wrapf(err, "row %d: bad subject_start_idx %q", i, row[6])
		}
		if rec.Subject.End, err = strconv.Atoi(row[7]); err != nil {
			return nil, errors.Wrapf(err, "row %d: bad subject_end_idx %q", i, row[7])
		}
		if rec.Object.Start, err = strconv.Atoi(row[9]); err != nil {
			return nil, errors.Wrapf(err, "row %d: bad object_start_idx %q", i, row[9])
		}
		if rec.Object.End, err = strconv.Atoi(row[10]); err != nil {
			return nil, errors.Wrapf(err, "row %d: bad object_end_idx %q", i, row[10])
		}
		tbl[i] = rec
	}
	return tbl, nil
}

// WritePreprocessedCSV writes a table in the preprocessed layout.
func WritePreprocessedCSV(path string, tbl Table) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(preprocessedHeader); err != nil {
		return errors.Wrapf(err, "failed to write header to %q", path)
	}
	for i, rec := range tbl {
		row := []string{
			rec.ID, rec.Sentence, rec.Subject.Word, rec.Object.Word, rec.Label, rec.Source,
			strconv.Itoa(rec.Subject.Start), strconv.Itoa(rec.Subject.End), rec.Subject.Type,
			strconv.Itoa(rec.Object.Start), strconv.Itoa(rec.Object.End), rec.Object.Type,
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write row %d to %q", i, path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(err, "failed to flush %q", path)
	}
	return nil
}

func readCSV(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %q", path)
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("%q is empty, expected a header row", path)
	}
	for i, name := range header {
		if rows[0][i] != name {
			return nil, errors.Errorf("%q: column %d is %q, expected %q", path, i, rows[0][i], name)
		}
	}
	return rows[1:], nil
}
