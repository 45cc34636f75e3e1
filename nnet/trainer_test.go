package nnet

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// synthetic linearly separable data: label is 1 when the first feature sum
// exceeds the mean
func synthData(n, nfeat int, rng *rand.Rand) Data {
	inputs := make([]float64, n*nfeat)
	labels := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < nfeat; j++ {
			v := rng.NormFloat64()
			inputs[i*nfeat+j] = v
			sum += v
		}
		if sum > 0 {
			labels[i] = 1
		}
	}
	return NewData(nfeat, labels, inputs)
}

func testConfig() Config {
	conf := Config{
		DataSet:    "synth",
		Eta:        0.01,
		Momentum:   0.9,
		Nesterov:   true,
		Shuffle:    true,
		TrainBatch: 8,
		MaxEpoch:   20,
		Patience:   10,
		RandSeed:   42,
	}
	return conf.AddLayers(LinearClassifier(4)...)
}

func newRun(t *testing.T, conf Config, seed int64) (*Network, *Dataset, *Dataset) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	trainSet := NewDataset(synthData(64, 6, rng), conf.TrainBatch, rng)
	validSet := NewDataset(synthData(32, 6, rng), conf.TestBatch, rng)
	net, err := New(conf, 6, rng)
	if err != nil {
		t.Fatal(err)
	}
	net.InitWeights(rng)
	return net, trainSet, validSet
}

func TestTrainRunsToEpochCap(t *testing.T) {
	conf := testConfig()
	net, trainSet, validSet := newRun(t, conf, 1)
	res, err := Train(net, NewSGD(conf), trainSet, validSet, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Stopped {
		if len(res.History) != res.StopEpoch {
			t.Errorf("stopped at %d but recorded %d epochs", res.StopEpoch, len(res.History))
		}
	} else if len(res.History) != conf.MaxEpoch {
		t.Errorf("recorded %d epochs want %d", len(res.History), conf.MaxEpoch)
	}
	for i, s := range res.History {
		if s.Epoch != i {
			t.Errorf("epoch %d recorded out of order as %d", i, s.Epoch)
		}
		if s.TrainAcc < 0 || s.TrainAcc > 100 || s.ValAcc < 0 || s.ValAcc > 100 {
			t.Errorf("epoch %d accuracy out of range: %v %v", i, s.TrainAcc, s.ValAcc)
		}
		if s.TrainLoss < 0 || s.ValLoss < 0 {
			t.Errorf("epoch %d negative loss", i)
		}
	}
}

// With a zero learning rate the weights never move, so validation loss is
// identical every epoch. Only epoch 0 improves on +Inf; after Patience
// non-improving epochs the run must stop without recording the final epoch.
func TestEarlyStopping(t *testing.T) {
	conf := testConfig()
	net, trainSet, validSet := newRun(t, conf, 1)
	opt := &SGD{Eta: 0}
	res, err := Train(net, opt, trainSet, validSet, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Stopped {
		t.Fatal("expected early stop with constant validation loss")
	}
	if res.StopEpoch != conf.Patience {
		t.Errorf("stop epoch = %d want %d", res.StopEpoch, conf.Patience)
	}
	if len(res.History) != conf.Patience {
		t.Errorf("recorded %d epochs want %d", len(res.History), conf.Patience)
	}
	for i := 1; i < len(res.History); i++ {
		if res.History[i].ValLoss != res.History[0].ValLoss {
			t.Error("validation loss should be constant with zero learning rate")
		}
	}
}

func TestTrainDeterministic(t *testing.T) {
	conf := testConfig()
	conf.MaxEpoch = 5
	run := func() []Stats {
		net, trainSet, validSet := newRun(t, conf, 7)
		res, err := Train(net, NewSGD(conf), trainSet, validSet, nil)
		if err != nil {
			t.Fatal(err)
		}
		return res.History
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("history lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].TrainLoss != b[i].TrainLoss || a[i].ValLoss != b[i].ValLoss ||
			a[i].TrainAcc != b[i].TrainAcc || a[i].ValAcc != b[i].ValAcc {
			t.Errorf("epoch %d differs between identically seeded runs", i)
		}
	}
}

func TestTrainLossDecreases(t *testing.T) {
	conf := testConfig()
	conf.Eta = 0.1
	net, trainSet, validSet := newRun(t, conf, 3)
	res, err := Train(net, NewSGD(conf), trainSet, validSet, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.History) < 2 {
		t.Fatal("too few epochs recorded")
	}
	first := res.History[0].TrainLoss
	last := res.History[len(res.History)-1].TrainLoss
	if last >= first {
		t.Errorf("training loss did not decrease: %v -> %v", first, last)
	}
}

func TestTrainSinkStop(t *testing.T) {
	conf := testConfig()
	net, trainSet, validSet := newRun(t, conf, 1)
	stopAt := 3
	sink := sinkFunc(func(s Stats) bool { return s.Epoch == stopAt })
	res, err := Train(net, NewSGD(conf), trainSet, validSet, sink)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.History) != stopAt+1 {
		t.Errorf("recorded %d epochs want %d", len(res.History), stopAt+1)
	}
}

type sinkFunc func(Stats) bool

func (f sinkFunc) Record(s Stats) bool { return f(s) }

func TestFeatureMismatch(t *testing.T) {
	conf := testConfig()
	rng := rand.New(rand.NewSource(1))
	net, err := New(conf, 6, rng)
	if err != nil {
		t.Fatal(err)
	}
	bad := NewDataset(synthData(16, 5, rng), conf.TrainBatch, rng)
	good := NewDataset(synthData(16, 6, rng), conf.TrainBatch, rng)
	if _, err := Train(net, NewSGD(conf), bad, good, nil); err == nil {
		t.Error("expected error for feature count mismatch")
	}
}

func TestSGDStep(t *testing.T) {
	net, _, _ := newRun(t, testConfig(), 1)
	params := net.Params()
	before := append([]float64{}, params[0].Value.RawMatrix().Data...)
	for i := range params[0].Grad.RawMatrix().Data {
		params[0].Grad.RawMatrix().Data[i] = 1
	}
	opt := &SGD{Eta: 0.1}
	opt.Step(params)
	for i, v := range params[0].Value.RawMatrix().Data {
		if math.Abs(v-(before[i]-0.1)) > 1e-12 {
			t.Fatalf("weight %d = %v want %v", i, v, before[i]-0.1)
		}
	}
}

func TestSGDMomentum(t *testing.T) {
	w := []float64{0.0}
	params := []Param{{
		Value: mat.NewDense(1, 1, w),
		Grad:  mat.NewDense(1, 1, []float64{1}),
	}}
	opt := &SGD{Eta: 1, Momentum: 0.5}
	opt.Step(params)
	// v = 1, w -= 1
	if params[0].Value.At(0, 0) != -1 {
		t.Errorf("after step 1: w = %v want -1", params[0].Value.At(0, 0))
	}
	opt.Step(params)
	// v = 0.5 + 1 = 1.5, w -= 1.5
	if params[0].Value.At(0, 0) != -2.5 {
		t.Errorf("after step 2: w = %v want -2.5", params[0].Value.At(0, 0))
	}
}

func TestSGDNesterov(t *testing.T) {
	params := []Param{{
		Value: mat.NewDense(1, 1, []float64{0}),
		Grad:  mat.NewDense(1, 1, []float64{1}),
	}}
	opt := &SGD{Eta: 1, Momentum: 0.5, Nesterov: true}
	opt.Step(params)
	// v = 1, step = g + mu*v = 1.5
	if params[0].Value.At(0, 0) != -1.5 {
		t.Errorf("after step 1: w = %v want -1.5", params[0].Value.At(0, 0))
	}
}
