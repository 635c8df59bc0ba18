// Command seqtrans trains and runs attention
// encoder-decoder translation models on whitespace
// tokenized parallel text.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jkastner/seqtrans/corpus"
	"github.com/jkastner/seqtrans/eval"
	"github.com/jkastner/seqtrans/model"
	"github.com/jkastner/seqtrans/train"
	"github.com/jkastner/seqtrans/translate"
	"github.com/jkastner/seqtrans/viz"
	"github.com/jkastner/seqtrans/vocab"
	"github.com/spf13/cobra"
	"github.com/unixpickle/essentials"
)

var (
	inputDim     int
	hiddenDim    int
	layers       int
	epochs       int
	batchSize    int
	beamSize     int
	vocabSize    int
	evalAfter    int
	maxLen       int
	maxPred      int
	maxPatience  int
	lossPatience int
	optimization string
	learning     float64
	gradClip     float64
	seed         int64
	plotCurves   bool
	override     bool
	lastState    bool
)

func main() {
	root := &cobra.Command{
		Use:           "seqtrans",
		Short:         "Sequence-to-sequence translation with attention",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	trainCmd := &cobra.Command{
		Use:   "train <train-inputs> <train-outputs> <dev-inputs> <dev-outputs> <results-path>",
		Short: "Train a model on parallel text files",
		Args:  cobra.ExactArgs(5),
		RunE:  runTrain,
	}
	tf := trainCmd.Flags()
	tf.IntVar(&inputDim, "input-dim", 300, "token embedding dimension")
	tf.IntVar(&hiddenDim, "hidden-dim", 100, "LSTM hidden dimension")
	tf.IntVar(&layers, "layers", 1, "LSTM layers per direction")
	tf.IntVar(&epochs, "epochs", 1, "training epochs")
	tf.IntVar(&batchSize, "batch-size", 1, "examples per batch")
	tf.IntVar(&vocabSize, "vocab-size", 99999, "maximum vocabulary size per side")
	tf.IntVar(&evalAfter, "eval-after", 1000, "batches between dev evaluations")
	tf.IntVar(&maxLen, "max-len", 50, "maximum training sequence length")
	tf.IntVar(&maxPatience, "max-patience", 100, "dev checkpoints without improvement before stopping")
	tf.IntVar(&lossPatience, "loss-patience", 1000, "batches without train loss improvement before stopping")
	tf.StringVar(&optimization, "optimization", "ADADELTA", "SGD, MOMENTUM, ADAGRAD, ADADELTA or ADAM")
	tf.Float64Var(&learning, "learning", 0.0001, "learning rate")
	tf.Float64Var(&gradClip, "grad-clip", 5.0, "gradient norm clipping threshold")
	tf.Int64Var(&seed, "seed", 1, "batch shuffling seed")
	tf.BoolVar(&plotCurves, "plot", false, "plot learning curves at each checkpoint")
	tf.BoolVar(&override, "override", false, "ignore an existing checkpoint and train from scratch")
	addDecodeFlags(trainCmd)

	predictCmd := &cobra.Command{
		Use:   "predict <model> <inputs> <output>",
		Short: "Decode an input file with a trained model",
		Args:  cobra.ExactArgs(3),
		RunE:  runPredict,
	}
	predictCmd.Flags().StringVar(&referencePath, "references", "",
		"reference output file to score predictions against")
	predictCmd.Flags().StringVar(&attentionDir, "attention-maps", "",
		"directory for per-sentence attention heat maps (greedy decoding only)")
	addDecodeFlags(predictCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble <inputs> <output> <model> [model ...]",
		Short: "Decode with several models and majority-vote the outputs",
		Args:  cobra.MinimumNArgs(3),
		RunE:  runEnsemble,
	}
	addDecodeFlags(ensembleCmd)

	root.AddCommand(trainCmd, predictCmd, ensembleCmd)
	if err := root.Execute(); err != nil {
		essentials.Die(err)
	}
}

var (
	referencePath string
	attentionDir  string
)

func addDecodeFlags(c *cobra.Command) {
	f := c.Flags()
	f.IntVar(&beamSize, "beam-size", 5, "beam width (1 decodes greedily)")
	f.IntVar(&maxPred, "max-pred", 50, "maximum predicted sequence length")
	f.BoolVar(&lastState, "last-state", false,
		"attend only to the final encoder state")
}

func runTrain(cmd *cobra.Command, args []string) error {
	trainSet, err := corpus.LoadParallel(args[0], args[1], maxLen)
	if err != nil {
		return err
	}
	devSet, err := corpus.LoadParallel(args[2], args[3], maxLen)
	if err != nil {
		return err
	}
	resultsPath := args[4]
	slog.Info("loaded corpora", "train", len(trainSet), "dev", len(devSet))

	m, err := loadOrCreate(resultsPath, trainSet)
	if err != nil {
		return err
	}
	if err := writeModelInfo(resultsPath, m); err != nil {
		return err
	}

	res, err := train.Run(m, trainSet, devSet, train.Options{
		Epochs:            epochs,
		BatchSize:         batchSize,
		Optimization:      optimization,
		LearningRate:      learning,
		GradClip:          gradClip,
		EvalEvery:         evalAfter,
		MaxPatience:       maxPatience,
		TrainLossPatience: lossPatience,
		MaxPredictLen:     maxPred,
		BeamWidth:         beamSize,
		LastStateOnly:     lastState,
		Plot:              plotCurves,
		Seed:              seed,
	}, resultsPath)
	if err != nil {
		return err
	}
	slog.Info("training done", "lastEpoch", res.LastEpoch,
		"bestEpoch", res.BestEpoch, "bestDevBLEU", res.BestDevBLEU)
	return nil
}

// loadOrCreate resumes from an existing checkpoint unless
// --override is set, falling back to a freshly initialized
// model when none exists.
func loadOrCreate(resultsPath string, trainSet corpus.Set) (*model.Model, error) {
	checkpoint := resultsPath + "_bestmodel.bin"
	if !override && model.Exists(checkpoint) {
		slog.Info("resuming from checkpoint", "path", checkpoint)
		return model.Load(checkpoint)
	}

	inVocab := vocab.Build(trainSet.Inputs(), vocabSize)
	outVocab := vocab.Build(trainSet.Outputs(), vocabSize)
	slog.Info("built vocabularies", "input", inVocab.Len(),
		"output", outVocab.Len())
	conf := model.Config{
		InputDim:  inputDim,
		HiddenDim: hiddenDim,
		Layers:    layers,
	}
	return model.New(conf, inVocab, outVocab), nil
}

func writeModelInfo(resultsPath string, m *model.Model) error {
	info := map[string]interface{}{
		"input_dim":    m.Conf.InputDim,
		"hidden_dim":   m.Conf.HiddenDim,
		"layers":       m.Conf.Layers,
		"input_vocab":  m.In.Len(),
		"output_vocab": m.Out.Len(),
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(resultsPath+".modelinfo", append(data, '\n'), 0644)
}

func runPredict(cmd *cobra.Command, args []string) error {
	m, err := model.Load(args[0])
	if err != nil {
		return err
	}
	inputs, err := corpus.LoadInputs(args[1])
	if err != nil {
		return err
	}
	preds := translate.All(m, inputs, decodeOptions())
	if err := translate.WriteResults(args[2], preds); err != nil {
		return err
	}
	slog.Info("wrote predictions", "count", len(preds), "path", args[2])

	if referencePath != "" {
		refSet, err := corpus.LoadParallel(args[1], referencePath, 0)
		if err != nil {
			return err
		}
		bleu := eval.CorpusBLEU(refSet.Outputs(), preds)
		slog.Info("scored predictions", "bleu", bleu)
	}

	if attentionDir != "" {
		if err := writeAttentionMaps(m, inputs); err != nil {
			return err
		}
	}
	return nil
}

func writeAttentionMaps(m *model.Model, inputs [][]string) error {
	if beamSize > 1 {
		slog.Warn("attention maps require greedy decoding, skipping",
			"beamSize", beamSize)
		return nil
	}
	if err := os.MkdirAll(attentionDir, 0755); err != nil {
		return err
	}
	for i, in := range inputs {
		out, alphas := m.Greedy(in, maxPred, lastState)
		if len(alphas) == 0 {
			continue
		}
		inLabels := append(append([]string{vocab.Begin}, in...), vocab.End)
		outLabels := out
		for len(outLabels) < len(alphas) {
			outLabels = append(outLabels, vocab.End)
		}
		path := filepath.Join(attentionDir, fmt.Sprintf("attention_%04d.png", i))
		if err := viz.AttentionMap(path, alphas, inLabels, outLabels); err != nil {
			return err
		}
	}
	slog.Info("wrote attention maps", "count", len(inputs), "dir", attentionDir)
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	inputs, err := corpus.LoadInputs(args[0])
	if err != nil {
		return err
	}
	perModel := make([][][]string, 0, len(args)-2)
	for _, path := range args[2:] {
		m, err := model.Load(path)
		if err != nil {
			return err
		}
		slog.Info("decoding with ensemble member", "path", path)
		perModel = append(perModel, translate.All(m, inputs, decodeOptions()))
	}
	combined := translate.EnsembleMajority(perModel)
	if err := translate.WriteResults(args[1], combined); err != nil {
		return err
	}
	slog.Info("wrote ensemble predictions", "models", len(perModel),
		"count", len(combined), "path", args[1])
	return nil
}

func decodeOptions() translate.Options {
	return translate.Options{
		BeamWidth:     beamSize,
		MaxLen:        maxPred,
		LastStateOnly: lastState,
	}
}
