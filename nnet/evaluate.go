package nnet

import (
	"github.com/willbrasic/adultnet/num"
	"github.com/willbrasic/adultnet/stats"
)

// Prediction pairs a thresholded model output with the true label for one
// example.
type Prediction struct {
	Pred  int
	Label int
}

// TestResult is the outcome of scoring a data set: per batch averaged loss,
// accuracy and the ordered prediction record for every example.
type TestResult struct {
	Loss     float64
	Accuracy float64
	Preds    []Prediction
}

// Confusion reduces the prediction records to the 2x2 count matrix.
func (r *TestResult) Confusion() stats.Confusion {
	return ConfusionMatrix(r.Preds)
}

// ConfusionMatrix counts (true label, predicted label) pairs. The counts
// always sum to the number of records.
func ConfusionMatrix(preds []Prediction) stats.Confusion {
	var c stats.Confusion
	for _, p := range preds {
		c.Add(p.Label, p.Pred)
	}
	return c
}

// Evaluate scores a trained model over a batch source in evaluation mode:
// a single pass with no parameter update and no gradient computation. It is
// used both for validation during training and for final test set scoring.
func Evaluate(net *Network, dset *Dataset) (*TestResult, error) {
	if err := checkFeatures(net, dset); err != nil {
		return nil, err
	}
	preds := []Prediction{}
	agg, err := accumulate(net, dset, "test", 0, &preds)
	if err != nil {
		return nil, err
	}
	return &TestResult{Loss: agg.meanLoss(), Accuracy: agg.accuracy(), Preds: preds}, nil
}

// aggregate folds per batch loss and correct counts over a pass.
// Normalisation is a separate step so the caller controls its ordering
// relative to the early stopping check.
type aggregate struct {
	lossSum float64
	correct int
	total   int
	batches int
}

func (a aggregate) meanLoss() float64 {
	if a.batches == 0 {
		return 0
	}
	return a.lossSum / float64(a.batches)
}

func (a aggregate) accuracy() float64 {
	if a.total == 0 {
		return 0
	}
	return 100 * float64(a.correct) / float64(a.total)
}

// accumulate runs one inference only pass over the dataset, folding batch
// losses and correct counts. If preds is non-nil every (prediction, label)
// pair is appended to it in batch order.
func accumulate(net *Network, dset *Dataset, phase string, epoch int, preds *[]Prediction) (aggregate, error) {
	var agg aggregate
	for batch := 0; batch < dset.Batches; batch++ {
		x, y := dset.GetBatch(batch)
		logits := net.Fprop(x, false)
		batchLoss := bceWithLogits(logits, y, nil)
		if !num.Finite(batchLoss) {
			return agg, &NumericError{Phase: phase, Epoch: epoch, Batch: batch, Value: batchLoss}
		}
		agg.lossSum += batchLoss
		for i := range y {
			pred := predictLabel(logits.At(i, 0))
			if pred == int(y[i]) {
				agg.correct++
			}
			if preds != nil {
				*preds = append(*preds, Prediction{Pred: pred, Label: int(y[i])})
			}
		}
		agg.total += len(y)
	}
	agg.batches = dset.Batches
	return agg, nil
}
