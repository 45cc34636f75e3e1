package nnet

import (
	"math/rand"
	"os"
	"path"
	"testing"
)

func TestDataset(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDataset(synthData(20, 3, rng), 8, rng)
	if d.Batches != 3 {
		t.Errorf("batches = %d want 3", d.Batches)
	}
	x, y := d.GetBatch(0)
	rows, cols := x.Dims()
	if rows != 8 || cols != 3 || len(y) != 8 {
		t.Errorf("batch 0 shape %dx%d labels %d", rows, cols, len(y))
	}
	x, y = d.GetBatch(2)
	rows, _ = x.Dims()
	if rows != 4 || len(y) != 4 {
		t.Errorf("last batch should have 4 examples, got %d", rows)
	}
}

func TestDatasetWholePartition(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDataset(synthData(20, 3, rng), 0, rng)
	if d.Batches != 1 || d.BatchSize != 20 {
		t.Errorf("batch size 0 should select one batch over the partition: %d x %d", d.Batches, d.BatchSize)
	}
}

func TestDatasetShuffle(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDataset(synthData(64, 2, rng), 64, rng)
	_, before := d.GetBatch(0)
	before = append([]float64{}, before...)
	d.Shuffle()
	_, after := d.GetBatch(0)
	same := true
	for i := range before {
		if before[i] != after[i] {
			same = false
		}
	}
	if same {
		t.Error("shuffle did not reorder the labels")
	}
}

func TestSaveLoadData(t *testing.T) {
	dir := t.TempDir()
	saved := DataDir
	DataDir = dir
	defer func() { DataDir = saved }()

	rng := rand.New(rand.NewSource(1))
	d := synthData(10, 4, rng)
	if err := SaveDataFile(d, "synth_train"); err != nil {
		t.Fatal(err)
	}
	if !FileExists("synth_train.dat") {
		t.Fatal("data file not written")
	}
	got, err := LoadDataFile("synth_train")
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 10 || got.NumFeatures() != 4 {
		t.Errorf("loaded %d x %d", got.Len(), got.NumFeatures())
	}
	buf := make([]float64, 4)
	want := make([]float64, 4)
	got.Input([]int{3}, buf)
	d.Input([]int{3}, want)
	for i := range buf {
		if buf[i] != want[i] {
			t.Fatal("loaded inputs differ from saved")
		}
	}

	m, err := LoadData("synth")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m["train"]; !ok || len(m) != 1 {
		t.Errorf("partitions = %v", m)
	}
	if _, err := LoadData("missing"); err == nil {
		t.Error("expected error for missing data set")
	}
	_ = os.Remove(path.Join(dir, "synth_train.dat"))
}

func TestConfigSaveLoad(t *testing.T) {
	dir := t.TempDir()
	saved := DataDir
	DataDir = dir
	defer func() { DataDir = saved }()

	conf := testConfig()
	if err := conf.SaveDefault("synth_linear"); err != nil {
		t.Fatal(err)
	}
	got, err := LoadConfig("synth_linear.conf")
	if err != nil {
		t.Fatal(err)
	}
	if got.Eta != conf.Eta || got.MaxEpoch != conf.MaxEpoch || len(got.Layers) != len(conf.Layers) {
		t.Error("loaded config differs from saved")
	}
	if _, err := LoadConfig("synth_linear.default"); err != nil {
		t.Error("default config not written:", err)
	}
}
