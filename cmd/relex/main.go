// Command relex runs the relation-extraction pipeline: offline entity-span
// preprocessing, training with validation metrics, and prediction.
//
// Usage:
//
//	relex preprocess -config config.yaml
//	relex train      -config config.yaml
//	relex predict    -config config.yaml
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/koreml/relex/cleaning"
	"github.com/koreml/relex/config"
	"github.com/koreml/relex/dataset"
	"github.com/koreml/relex/hub"
	"github.com/koreml/relex/labels"
	"github.com/koreml/relex/models/baseline"
	"github.com/koreml/relex/records"
	"github.com/koreml/relex/tokenizers/api"
	"github.com/koreml/relex/tokenizers/sentencepiece"
	"github.com/koreml/relex/tokenizers/wordpiece"
	"github.com/koreml/relex/training"
)

const embeddingDim = 128

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	epochStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	metricStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd := os.Args[1]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "pipeline configuration file")
	modelPath := fs.String("model", "", "checkpoint to load for predict (written by train)")
	klog.InitFlags(nil)
	flag.CommandLine.VisitAll(func(f *flag.Flag) {
		fs.Var(f.Value, f.Name, f.Usage)
	})
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		klog.Exitf("%+v", err)
	}

	switch cmd {
	case "preprocess":
		err = runPreprocess(cfg)
	case "train":
		err = runTrain(cfg)
	case "predict":
		err = runPredict(cfg, *modelPath)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		klog.Exitf("%s: %+v", cmd, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: relex <preprocess|train|predict> [-config config.yaml]")
}

// runPreprocess parses the serialized entity annotations of the raw dataset
// and writes the flattened table as CSV and parquet next to the input.
func runPreprocess(cfg *config.Config) error {
	tbl, err := records.ReadRawCSV(cfg.Paths.TrainCSV)
	if err != nil {
		return err
	}
	parsed, err := records.ParseEntities(tbl)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(cfg.Paths.TrainCSV, filepath.Ext(cfg.Paths.TrainCSV))
	csvOut := base + "_preprocessed.csv"
	parquetOut := base + "_preprocessed.parquet"
	if err := records.WritePreprocessedCSV(csvOut, parsed); err != nil {
		return err
	}
	if err := records.WriteParquet(parquetOut, parsed); err != nil {
		return err
	}
	klog.Infof("preprocessed %d rows into %q and %q", len(parsed), csvOut, parquetOut)
	return nil
}

func runTrain(cfg *config.Config) error {
	tbl, err := records.ReadPreprocessedCSV(cfg.Paths.TrainCSV)
	if err != nil {
		return err
	}
	mapping, err := labels.NewFromFile(cfg.Paths.LabelMap)
	if err != nil {
		return err
	}

	tbl, err = cleanAndAugment(cfg, tbl, true)
	if err != nil {
		return err
	}

	trainTbl, valTbl, err := dataset.StratifiedSplit(tbl, cfg.Train.TestSize, cfg.Train.Shuffle, cfg.Seed)
	if err != nil {
		return err
	}
	klog.Infof("split %d rows into %d train / %d validation", len(tbl), len(trainTbl), len(valTbl))

	tok, err := loadTokenizer(cfg, tbl)
	if err != nil {
		return err
	}
	trainLoader, err := makeLoader(cfg, tok, mapping, trainTbl, cfg.Train.Shuffle)
	if err != nil {
		return err
	}
	valLoader, err := makeLoader(cfg, tok, mapping, valTbl, false)
	if err != nil {
		return err
	}

	model, err := baseline.New(tok.VocabSize(), embeddingDim, mapping.NumClasses(), cfg.Seed)
	if err != nil {
		return err
	}
	wrapper, err := training.NewWrapper(model, cfg.Train.LossF, cfg.Train.Optim, cfg.Train.LR, mapping.NumClasses())
	if err != nil {
		return err
	}
	runner, err := training.NewRunner(wrapper, cfg.Train.Epochs, cfg.Paths.OutputDir)
	if err != nil {
		return err
	}

	reports, err := runner.Fit(trainLoader, valLoader)
	if err != nil {
		return err
	}
	printReports(runner.RunID(), reports)

	checkpoint := filepath.Join(cfg.Paths.OutputDir, "run-"+runner.RunID(), "model.gob")
	if err := model.Save(checkpoint); err != nil {
		return err
	}
	klog.Infof("saved checkpoint %q", checkpoint)
	return nil
}

func runPredict(cfg *config.Config, modelPath string) error {
	tbl, err := records.ReadPreprocessedCSV(cfg.Paths.TestCSV)
	if err != nil {
		return err
	}
	mapping, err := labels.NewFromFile(cfg.Paths.LabelMap)
	if err != nil {
		return err
	}

	tbl, err = cleanAndAugment(cfg, tbl, false)
	if err != nil {
		return err
	}

	tok, err := loadTokenizer(cfg, tbl)
	if err != nil {
		return err
	}
	enc, err := dataset.EncodeTable(tok, tbl, cfg.Train.TokenMaxLen)
	if err != nil {
		return err
	}
	ds, err := dataset.New(enc, nil)
	if err != nil {
		return err
	}
	loader, err := dataset.NewLoader(ds, cfg.Train.BatchSize, false, cfg.Seed)
	if err != nil {
		return err
	}

	if modelPath == "" {
		return errors.New("predict requires -model pointing at a trained checkpoint")
	}
	model, err := baseline.Load(modelPath)
	if err != nil {
		return err
	}
	wrapper, err := training.NewWrapper(model, cfg.Train.LossF, cfg.Train.Optim, cfg.Train.LR, mapping.NumClasses())
	if err != nil {
		return err
	}
	runner, err := training.NewRunner(wrapper, cfg.Train.Epochs, "")
	if err != nil {
		return err
	}

	preds, probs, err := runner.Predict(loader)
	if err != nil {
		return err
	}
	out := filepath.Join(cfg.Paths.OutputDir, "submission.csv")
	if err := writeSubmission(out, tbl, mapping, preds, probs); err != nil {
		return err
	}
	klog.Infof("wrote %d predictions to %q", len(preds), out)
	return nil
}

// cleanAndAugment runs the configured cleaning transforms and, in training
// mode, the augmentation transforms.
func cleanAndAugment(cfg *config.Config, tbl records.Table, train bool) (records.Table, error) {
	opts := cleaning.Options{StopWordsPath: cfg.Paths.StopWords}
	cleaner, err := cleaning.NewCleaner(cfg.SelectDC, opts)
	if err != nil {
		return nil, err
	}
	tbl, err = cleaner.Process(tbl, train)
	if err != nil {
		return nil, err
	}
	if !train {
		return tbl, nil
	}
	augmenter, err := cleaning.NewAugmenter(cfg.SelectDA, opts)
	if err != nil {
		return nil, err
	}
	return augmenter.Process(tbl)
}

// pipelineTokenizer is what the pipeline needs beyond encoding: the id range
// that sizes the embedding table.
type pipelineTokenizer interface {
	api.Tokenizer
	VocabSize() int
}

// markerRegistrar is implemented by tokenizers that can add unsplittable
// marker tokens after loading. SentencePiece carries its symbol table inside
// the model proto, so its markers must already be user-defined symbols there.
type markerRegistrar interface {
	RegisterMarkers(markers []string)
}

// loadTokenizer resolves the configured tokenizer artifact, picks the
// implementation matching its format (a tokenizer.model proto loads
// SentencePiece, anything else loads WordPiece from tokenizer.json) and
// registers the boundary markers the cleaning transforms may have inserted,
// so they tokenize as single ids instead of being split apart.
func loadTokenizer(cfg *config.Config, tbl records.Table) (pipelineTokenizer, error) {
	path, err := resolveTokenizerPath(cfg.Paths.Tokenizer, hub.New)
	if err != nil {
		return nil, err
	}
	var tok pipelineTokenizer
	if filepath.Ext(path) == ".model" {
		tok, err = sentencepiece.NewFromFile(path)
	} else {
		tok, err = wordpiece.NewFromFile(path)
	}
	if err != nil {
		return nil, err
	}
	if reg, ok := tok.(markerRegistrar); ok {
		reg.RegisterMarkers(entityMarkers(tbl))
	}
	return tok, nil
}

// resolveTokenizerPath turns the tokenizer setting into a local file path. A
// value naming an existing file is used as is; anything else is read as a
// "<repo>/<filename>" hub reference and fetched through the download cache,
// so the pipeline can point straight at a checkpoint name like
// "klue/bert-base/tokenizer.json".
func resolveTokenizerPath(value string, repoFor func(name string) *hub.Repo) (string, error) {
	if _, err := os.Stat(value); err == nil {
		return value, nil
	}
	slash := strings.LastIndex(value, "/")
	if slash <= 0 || slash == len(value)-1 {
		return "", errors.Errorf("tokenizer %q is neither a local file nor a <repo>/<file> reference", value)
	}
	return repoFor(value[:slash]).DownloadFile(context.Background(), value[slash+1:])
}

// entityMarkers returns the fixed boundary markers plus the typed markers for
// every entity type present in the table.
func entityMarkers(tbl records.Table) []string {
	seen := make(map[string]bool)
	for _, rec := range tbl {
		seen["S:"+rec.Subject.Type] = true
		seen["O:"+rec.Object.Type] = true
	}
	typed := make([]string, 0, len(seen))
	for typ := range seen {
		typed = append(typed, typ)
	}
	// Sorted so marker ids are stable for a given entity-type inventory.
	sort.Strings(typed)
	markers := []string{"[ENT]", "[/ENT]", "[SUB]", "[OB]", "[OTH]"}
	for _, typ := range typed {
		markers = append(markers, "["+typ+"]", "[/"+typ+"]")
	}
	return markers
}

func makeLoader(cfg *config.Config, tok pipelineTokenizer, mapping *labels.Mapping, tbl records.Table, shuffle bool) (*dataset.Loader, error) {
	enc, err := dataset.EncodeTable(tok, tbl, cfg.Train.TokenMaxLen)
	if err != nil {
		return nil, err
	}
	targets, err := mapping.EncodeAll(tbl.Labels())
	if err != nil {
		return nil, err
	}
	ds, err := dataset.New(enc, targets)
	if err != nil {
		return nil, err
	}
	return dataset.NewLoader(ds, cfg.Train.BatchSize, shuffle, cfg.Seed)
}

func printReports(runID string, reports []training.EpochReport) {
	fmt.Println(headerStyle.Render("run " + runID))
	for _, r := range reports {
		line := fmt.Sprintf("epoch %2d  train %.4f  val %.4f  lr %.2e  ",
			r.Epoch, r.TrainLoss, r.ValLoss, r.LearningRate)
		metrics := fmt.Sprintf("f1 %.4f  auprc %.4f  acc %.4f",
			r.Metrics.MicroF1, r.Metrics.AUPRC, r.Metrics.Accuracy)
		fmt.Println(epochStyle.Render(line) + metricStyle.Render(metrics))
	}
}

func writeSubmission(path string, tbl records.Table, mapping *labels.Mapping, preds []int, probs [][]float32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "pred_label", "probs"}); err != nil {
		return err
	}
	for i, pred := range preds {
		label, err := mapping.Decode(pred)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(probs[i])
		if err != nil {
			return err
		}
		if err := w.Write([]string{tbl[i].ID, label, string(encoded)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
