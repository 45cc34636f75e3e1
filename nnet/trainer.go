package nnet

import (
	"fmt"
	"math"
	"time"

	"github.com/willbrasic/adultnet/num"
)

// Stats holds the metrics for one completed epoch.
type Stats struct {
	Epoch     int
	TrainLoss float64
	TrainAcc  float64
	ValLoss   float64
	ValAcc    float64
	Elapsed   time.Duration
}

func StatsHeaders() []string {
	return []string{"train loss", "train acc", "valid loss", "valid acc"}
}

func (s Stats) Format() []string {
	return []string{
		fmt.Sprintf("%7.4f", s.TrainLoss),
		fmt.Sprintf("%6.2f%%", s.TrainAcc),
		fmt.Sprintf("%7.4f", s.ValLoss),
		fmt.Sprintf("%6.2f%%", s.ValAcc),
	}
}

func (s Stats) String() string {
	msg := fmt.Sprintf("epoch %3d:", s.Epoch)
	for i, val := range s.Format() {
		msg += fmt.Sprintf("  %s =%s", StatsHeaders()[i], val)
	}
	return msg
}

// MetricsSink receives the stats for each completed epoch, in order.
// Record returns true if training should stop after this epoch.
type MetricsSink interface {
	Record(s Stats) bool
}

// Sink which logs each epoch to stdout.
type logSink struct {
	every int
}

func NewLogSink(every int) MetricsSink {
	return logSink{every: every}
}

func (l logSink) Record(s Stats) bool {
	if l.every == 0 || s.Epoch%l.every == 0 {
		fmt.Println(s)
	}
	return false
}

// TrainingState is the per run mutable record driving early stopping.
// It is created when a run starts, updated each epoch and discarded at the
// end of the run.
type TrainingState struct {
	Epoch       int
	BestValLoss float64
	BadEpochs   int
}

// RunResult is the outcome of a training run: the ordered epoch history,
// whether early stopping fired and at which epoch. An early stop is a
// normal, successful termination.
type RunResult struct {
	History   []Stats
	Stopped   bool
	StopEpoch int
	Elapsed   time.Duration
}

// Train runs the epoch loop: a full pass over the training batches then a
// full pass over the validation batches, until the epoch cap is reached or
// validation loss stops improving for Patience consecutive epochs.
//
// The early stopping comparison uses the summed validation loss before it is
// normalised per batch. When the patience threshold is reached the run stops
// at once and the triggering epoch's metrics are not appended to the history.
func Train(net *Network, opt *SGD, trainSet, validSet *Dataset, sink MetricsSink) (*RunResult, error) {
	if err := checkFeatures(net, trainSet, validSet); err != nil {
		return nil, err
	}
	state := TrainingState{BestValLoss: math.Inf(1)}
	res := &RunResult{}
	start := time.Now()
	for state.Epoch = 0; state.Epoch < net.MaxEpoch; state.Epoch++ {
		epochStart := time.Now()
		trainLoss, trainAcc, err := TrainEpoch(net, opt, trainSet, state.Epoch)
		if err != nil {
			return res, err
		}
		agg, err := accumulate(net, validSet, "valid", state.Epoch, nil)
		if err != nil {
			return res, err
		}
		if agg.lossSum < state.BestValLoss {
			state.BestValLoss = agg.lossSum
			state.BadEpochs = 0
		} else {
			state.BadEpochs++
		}
		if state.BadEpochs >= net.Patience {
			fmt.Printf("early stopping: no improvement in validation loss for %d epochs\n", net.Patience)
			res.Stopped = true
			res.StopEpoch = state.Epoch
			break
		}
		s := Stats{
			Epoch:     state.Epoch,
			TrainLoss: trainLoss,
			TrainAcc:  trainAcc,
			ValLoss:   agg.meanLoss(),
			ValAcc:    agg.accuracy(),
			Elapsed:   time.Since(epochStart),
		}
		res.History = append(res.History, s)
		if sink != nil && sink.Record(s) {
			break
		}
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// Perform one training epoch: per batch compute the logits and loss, clear
// the gradients, back propagate and apply the optimizer step. Returns the
// per batch averaged loss and the accuracy over all examples.
func TrainEpoch(net *Network, opt *SGD, dset *Dataset, epoch int) (loss, acc float64, err error) {
	if net.Config.Shuffle {
		dset.Shuffle()
	}
	params := net.Params()
	lossSum := 0.0
	correct, total := 0, 0
	for batch := 0; batch < dset.Batches; batch++ {
		x, y := dset.GetBatch(batch)
		logits := net.Fprop(x, true)
		grad := num.Zeros(len(y), 1)
		batchLoss := bceWithLogits(logits, y, grad)
		if !num.Finite(batchLoss) {
			return 0, 0, &NumericError{Phase: "train", Epoch: epoch, Batch: batch, Value: batchLoss}
		}
		lossSum += batchLoss
		for i := range y {
			if predictLabel(logits.At(i, 0)) == int(y[i]) {
				correct++
			}
		}
		total += len(y)
		net.ZeroGrad()
		net.Bprop(grad)
		opt.Step(params)
	}
	return lossSum / float64(dset.Batches), 100 * float64(correct) / float64(total), nil
}

func checkFeatures(net *Network, dsets ...*Dataset) error {
	for _, d := range dsets {
		if d.NumFeatures() != net.InFeatures {
			return configErr("DataSet", "model expects %d features but data has %d",
				net.InFeatures, d.NumFeatures())
		}
	}
	return nil
}
