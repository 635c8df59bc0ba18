// Package train runs the stochastic training loop for
// attention encoder-decoder models.
package train

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/jkastner/seqtrans/corpus"
	"github.com/jkastner/seqtrans/eval"
	"github.com/jkastner/seqtrans/model"
	"github.com/jkastner/seqtrans/translate"
	"github.com/jkastner/seqtrans/viz"
	"github.com/unixpickle/autofunc"
)

// warmupBatches is how many batches run before the
// train-loss patience counter starts counting.
const warmupBatches = 20

// Options configures a training run.
type Options struct {
	Epochs    int
	BatchSize int

	// Optimization selects the update rule:
	// SGD, MOMENTUM, ADAGRAD, ADADELTA or ADAM.
	Optimization string
	LearningRate float64
	GradClip     float64

	// EvalEvery is the number of batches between checkpoint
	// evaluations on the held-out set.
	EvalEvery int

	// MaxPatience is the number of checkpoints without a
	// new best dev BLEU tolerated before early stopping.
	MaxPatience int

	// TrainLossPatience is the number of consecutive
	// batches without improvement of the running average
	// train loss tolerated before aborting.
	TrainLossPatience int

	// MaxPredictLen and BeamWidth control the checkpoint
	// decoding of the held-out set; a width of 1 or less
	// decodes greedily.
	MaxPredictLen int
	BeamWidth     int

	LastStateOnly bool
	Plot          bool
	Seed          int64
}

// A Result reports where training stopped.
type Result struct {
	// LastEpoch is the epoch index at which training
	// stopped.
	LastEpoch int

	// BestEpoch is the epoch index of the best held-out
	// BLEU seen at a checkpoint.
	BestEpoch int

	BestDevBLEU float64
}

// Run trains m on trainSet, evaluating against devSet.
// Checkpoints where dev BLEU reaches a new best (ties
// included) overwrite the checkpoint at
// resultsPath+"_bestmodel.bin"; metrics rows append to
// resultsPath+"_log.txt".
//
// Both patience exits are normal termination paths, not
// failures.
func Run(m *model.Model, trainSet, devSet corpus.Set, opts Options,
	resultsPath string) (Result, error) {
	updater, err := NewUpdater(opts.Optimization, opts.LearningRate, opts.GradClip)
	if err != nil {
		return Result{}, err
	}
	log := &metricsLog{path: resultsPath + "_log.txt"}
	checkpointPath := resultsPath + "_bestmodel.bin"

	trainSorted := append(corpus.Set{}, trainSet...)
	trainSorted.SortByInputLen()
	batches := trainSorted.Bucket(opts.BatchSize)
	order := make([]int, len(batches))
	for i := range order {
		order[i] = i
	}

	devSorted := append(corpus.Set{}, devSet...)
	devSorted.SortByInputLen()

	rng := rand.New(rand.NewSource(opts.Seed))
	params := m.Parameters()

	res := Result{BestDevBLEU: -1}
	bestAvgTrainLoss := math.Inf(1)
	bestDevLoss := math.Inf(1)
	var totalLoss, avgTrainLoss float64
	var totalBatches, trainLossPatience, patience int
	var curve []viz.Point

	for e := 0; e < opts.Epochs; e++ {
		res.LastEpoch = e

		// Only the batch order is reshuffled; batch contents
		// stay fixed across epochs.
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		for i, bi := range order {
			set := batches[bi]
			if !set.Valid() {
				continue
			}
			totalBatches++

			batch := corpus.NewBatch(set, m.In, m.Out)
			g := autofunc.NewGradient(params)
			loss := m.BatchLoss(batch, g, opts.LastStateOnly)
			updater.Update(g)
			totalLoss += loss

			avgTrainLoss = totalLoss /
				float64((i+1)*opts.BatchSize+e*len(trainSorted))
			if totalBatches > warmupBatches {
				if avgTrainLoss < bestAvgTrainLoss {
					bestAvgTrainLoss = avgTrainLoss
					trainLossPatience = 0
				} else {
					trainLossPatience++
					if trainLossPatience > opts.TrainLossPatience {
						slog.Info("train loss patience exceeded",
							"batches", trainLossPatience, "epoch", e)
						return res, nil
					}
				}
			} else if avgTrainLoss < bestAvgTrainLoss {
				bestAvgTrainLoss = avgTrainLoss
			}

			if totalBatches%500 == 0 {
				slog.Info("training progress", "epoch", e,
					"batch", i+1, "batches", len(order),
					"totalBatches", totalBatches,
					"avgTrainLoss", avgTrainLoss)
			}

			if opts.EvalEvery > 0 && totalBatches%opts.EvalEvery == 0 {
				devBLEU, devLoss := checkpointEval(m, devSorted, opts)
				err := log.Append(e, totalBatches, avgTrainLoss, devLoss,
					UnknownBLEU, devBLEU)
				if err != nil {
					return res, err
				}

				if devBLEU >= res.BestDevBLEU {
					res.BestDevBLEU = devBLEU
					res.BestEpoch = e
					if err := m.Save(checkpointPath); err != nil {
						return res, err
					}
					slog.Info("saved new best model", "path", checkpointPath,
						"devBLEU", devBLEU)
					patience = 0
				} else {
					patience++
				}
				if devLoss < bestDevLoss {
					bestDevLoss = devLoss
				}
				slog.Info("checkpoint", "epoch", e,
					"avgTrainLoss", avgTrainLoss, "devLoss", devLoss,
					"devBLEU", devBLEU, "bestDevBLEU", res.BestDevBLEU,
					"bestEpoch", res.BestEpoch, "patience", patience)

				if opts.MaxPatience > 0 && patience >= opts.MaxPatience {
					slog.Info("checkpoint patience exceeded",
						"checkpoints", patience, "epoch", e)
					return res, nil
				}

				if opts.Plot {
					curve = append(curve, viz.Point{
						Checkpoint: len(curve),
						TrainLoss:  avgTrainLoss,
						DevLoss:    devLoss,
						DevBLEU:    devBLEU,
					})
					err := viz.LearningCurve(resultsPath+"_plot.png", curve)
					if err != nil {
						slog.Warn("learning-curve plot failed", "error", err)
					}
				}
			}
		}
	}

	slog.Info("finished training", "avgTrainLoss", avgTrainLoss,
		"bestEpoch", res.BestEpoch, "bestDevBLEU", res.BestDevBLEU)
	return res, nil
}

// checkpointEval decodes the held-out set, scores it with
// corpus BLEU, and computes the average masked dev loss.
func checkpointEval(m *model.Model, dev corpus.Set, opts Options) (float64, float64) {
	preds := translate.All(m, dev.Inputs(), translate.Options{
		BeamWidth:     opts.BeamWidth,
		MaxLen:        opts.MaxPredictLen,
		LastStateOnly: opts.LastStateOnly,
	})
	bleu := eval.CorpusBLEU(dev.Outputs(), preds)

	var totalLoss float64
	for _, set := range dev.Bucket(1) {
		if !set.Valid() {
			continue
		}
		batch := corpus.NewBatch(set, m.In, m.Out)
		totalLoss += m.BatchLoss(batch, nil, opts.LastStateOnly)
	}
	devLoss := totalLoss / float64(len(dev))
	return bleu, devLoss
}
