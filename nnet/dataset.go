package nnet

import (
	"encoding/gob"
	"fmt"
	"math/rand"
	"os"
	"path"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	DataDir   = dataDir()
	DataTypes = []string{"train", "valid", "test"}
)

func dataDir() string {
	if dir := os.Getenv("ADULTNET_DATA"); dir != "" {
		return dir
	}
	return "data"
}

func init() {
	gob.Register(data{})
}

// Data interface type represents the raw examples for one partition:
// a fixed length feature vector and a label in {0,1} per example.
type Data interface {
	Len() int
	NumFeatures() int
	Input(index []int, buf []float64)
	Label(index []int, buf []float64)
}

// Dataset type wraps a Data partition and cuts it into ordered batches.
// The same dataset can be iterated once per phase; the training partition
// is reshuffled between epochs from the run's seeded generator.
type Dataset struct {
	Data
	Samples   int
	BatchSize int
	Batches   int
	indexes   []int
	rng       *rand.Rand
}

// Create a new Dataset and set the batch size. A batchSize of 0 selects a
// single batch over the whole partition.
func NewDataset(data Data, batchSize int, rng *rand.Rand) *Dataset {
	d := &Dataset{Data: data, Samples: data.Len(), rng: rng}
	if batchSize == 0 || batchSize > d.Samples {
		d.BatchSize = d.Samples
	} else {
		d.BatchSize = batchSize
	}
	d.Batches = d.Samples / d.BatchSize
	if d.Samples%d.BatchSize != 0 {
		d.Batches++
	}
	d.indexes = make([]int, d.Samples)
	for i := range d.indexes {
		d.indexes[i] = i
	}
	return d
}

// Get batch number batch as a feature matrix with one row per example and
// the matching label vector. The last batch may be smaller.
func (d *Dataset) GetBatch(batch int) (x *mat.Dense, y []float64) {
	start := batch * d.BatchSize
	end := start + d.BatchSize
	if end > d.Samples {
		end = d.Samples
	}
	index := d.indexes[start:end]
	nfeat := d.NumFeatures()
	buf := make([]float64, len(index)*nfeat)
	d.Input(index, buf)
	x = mat.NewDense(len(index), nfeat, buf)
	y = make([]float64, len(index))
	d.Label(index, y)
	return x, y
}

// Shuffle the order in which examples are batched.
func (d *Dataset) Shuffle() {
	d.indexes = d.rng.Perm(d.Samples)
}

// Load train, valid and test partitions from disk given the data set name.
func LoadData(name string) (d map[string]Data, err error) {
	var data Data
	d = make(map[string]Data)
	for _, key := range DataTypes {
		file := name + "_" + key
		if FileExists(file + ".dat") {
			if data, err = LoadDataFile(file); err != nil {
				return
			}
			d[key] = data
		}
	}
	if len(d) == 0 {
		return nil, errors.Errorf("no data files found for %s under %s", name, DataDir)
	}
	return d, nil
}

// Decode data from file in gob format under DataDir
func LoadDataFile(name string) (Data, error) {
	filePath := path.Join(DataDir, name+".dat")
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "load data %s", name)
	}
	defer f.Close()
	fmt.Printf("loading data from %s.dat:\t", name)
	var d Data
	if err = gob.NewDecoder(f).Decode(&d); err != nil {
		return nil, errors.Wrapf(err, "decode data %s", name)
	}
	fmt.Println(d.Len(), "examples x", d.NumFeatures(), "features")
	return d, nil
}

// Encode in gob format and save to file under DataDir
func SaveDataFile(d Data, name string) error {
	if err := os.MkdirAll(DataDir, 0755); err != nil {
		return err
	}
	filePath := path.Join(DataDir, name+".dat")
	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	fmt.Println("saving data to", name+".dat")
	return gob.NewEncoder(f).Encode(&d)
}

// Check if file exists under DataDir
func FileExists(name string) bool {
	filePath := path.Join(DataDir, name)
	_, err := os.Stat(filePath)
	return err == nil
}

type data struct {
	Nfeat  int
	Labels []float64
	Inputs []float64
}

// NewData function creates a new data set which implements the Data interface
func NewData(nfeat int, labels []float64, inputs []float64) Data {
	return data{Nfeat: nfeat, Labels: labels, Inputs: inputs}
}

func (d data) Len() int { return len(d.Labels) }

func (d data) NumFeatures() int { return d.Nfeat }

func (d data) Label(index []int, buf []float64) {
	for i, ix := range index {
		buf[i] = d.Labels[ix]
	}
}

func (d data) Input(index []int, buf []float64) {
	for i, ix := range index {
		copy(buf[i*d.Nfeat:], d.Inputs[ix*d.Nfeat:(ix+1)*d.Nfeat])
	}
}
