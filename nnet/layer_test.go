package nnet

import (
	"math"
	"math/rand"
	"testing"

	"github.com/willbrasic/adultnet/num"
	"gonum.org/v1/gonum/mat"
)

func TestLinearLayer(t *testing.T) {
	l := Linear{Nout: 2}.Marshal().Unmarshal().(*linear)
	l.Init(3, nil)
	l.w = mat.NewDense(3, 2, []float64{1, 0, 0, 1, 1, 1})
	l.b = mat.NewDense(1, 2, []float64{1, -1})
	x := mat.NewDense(1, 3, []float64{1, 2, 3})
	out := l.Fprop(x, true)
	if out.At(0, 0) != 5 || out.At(0, 1) != 4 {
		t.Errorf("fprop = %v %v", out.At(0, 0), out.At(0, 1))
	}
	grad := mat.NewDense(1, 2, []float64{1, 1})
	dsrc := l.Bprop(grad)
	// dsrc = grad * w.T
	want := []float64{1, 1, 2}
	for j := 0; j < 3; j++ {
		if dsrc.At(0, j) != want[j] {
			t.Errorf("dsrc[%d] = %v want %v", j, dsrc.At(0, j), want[j])
		}
	}
	if l.db.At(0, 0) != 1 || l.dw.At(0, 0) != 1 || l.dw.At(2, 1) != 3 {
		t.Error("parameter gradients wrong")
	}
}

func TestBatchNormTrain(t *testing.T) {
	l := BatchNorm{}.Marshal().Unmarshal().(*batchNorm)
	l.Init(2, nil)
	x := mat.NewDense(4, 2, []float64{1, 5, 2, 5, 3, 5, 4, 5})
	out := l.Fprop(x, true)
	mean, variance := num.ColMeanVar(out)
	if math.Abs(mean[0]) > 1e-9 {
		t.Errorf("normalised mean = %v want 0", mean[0])
	}
	if math.Abs(variance[0]-1) > 1e-3 {
		t.Errorf("normalised variance = %v want 1", variance[0])
	}
	// constant column should map to zero, not NaN
	if !num.FiniteMat(out) || math.Abs(out.At(0, 1)) > 1e-6 {
		t.Errorf("constant column output = %v", out.At(0, 1))
	}
}

func TestBatchNormEvalDeterministic(t *testing.T) {
	l := BatchNorm{}.Marshal().Unmarshal().(*batchNorm)
	l.Init(2, nil)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 5; i++ {
		l.Fprop(num.Random(8, 2, 1, true, rng), true)
	}
	x := num.Random(4, 2, 1, true, rng)
	a := l.Fprop(x, false)
	b := l.Fprop(x, false)
	for i, v := range a.RawMatrix().Data {
		if v != b.RawMatrix().Data[i] {
			t.Fatal("eval mode should be deterministic")
		}
	}
}

func TestDropoutEvalIdentity(t *testing.T) {
	l := Dropout{Prob: 0.5}.Marshal().Unmarshal().(*dropout)
	l.Init(4, rand.New(rand.NewSource(1)))
	x := mat.NewDense(2, 4, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	out := l.Fprop(x, false)
	if out != x {
		t.Error("eval mode dropout should pass input through unchanged")
	}
	grad := mat.NewDense(2, 4, []float64{1, 1, 1, 1, 1, 1, 1, 1})
	if l.Bprop(grad) != grad {
		t.Error("eval mode dropout bprop should pass gradient through")
	}
}

func TestDropoutTrainScaling(t *testing.T) {
	l := Dropout{Prob: 0.5}.Marshal().Unmarshal().(*dropout)
	l.Init(1, rand.New(rand.NewSource(1)))
	x := mat.NewDense(1000, 1, nil)
	num.Fill(x, 1)
	out := l.Fprop(x, true)
	zeros, sum := 0, 0.0
	for _, v := range out.RawMatrix().Data {
		if v == 0 {
			zeros++
		} else if v != 2 {
			t.Fatalf("kept unit should be scaled by 1/(1-p), got %v", v)
		}
		sum += v
	}
	if zeros < 400 || zeros > 600 {
		t.Errorf("dropped %d of 1000 units, expected about half", zeros)
	}
	// inverted scaling keeps the expected activation roughly unchanged
	if sum/1000 < 0.8 || sum/1000 > 1.2 {
		t.Errorf("mean output = %v want about 1", sum/1000)
	}
}

func TestActivationElu(t *testing.T) {
	l := Activation{Atype: "elu"}.Marshal().Unmarshal().(*activation)
	l.Init(2, nil)
	x := mat.NewDense(1, 2, []float64{2, -2})
	out := l.Fprop(x, true)
	if out.At(0, 0) != 2 {
		t.Error("elu should be identity for positive input")
	}
	if math.Abs(out.At(0, 1)-(math.Exp(-2)-1)) > 1e-12 {
		t.Errorf("elu(-2) = %v", out.At(0, 1))
	}
	grad := mat.NewDense(1, 2, []float64{1, 1})
	dsrc := l.Bprop(grad)
	if dsrc.At(0, 0) != 1 || math.Abs(dsrc.At(0, 1)-math.Exp(-2)) > 1e-12 {
		t.Error("elu derivative wrong")
	}
}

func TestInvalidLayerType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("invalid layer type should panic")
		}
	}()
	LayerConfig{Type: "conv"}.Unmarshal()
}

func TestInvalidActivation(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("invalid activation type should panic")
		}
	}()
	LayerConfig{Type: "activation", Data: marshal(Activation{Atype: "relu6"})}.Unmarshal()
}
