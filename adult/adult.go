// Package adult prepares the UCI adult income dataset: it cleans and encodes
// the raw census CSV into fixed length feature vectors with a binary income
// label, balances the classes by undersampling and splits the result into
// train, validation and test partitions.
package adult

import (
	"encoding/csv"
	"io"
	"math/rand"
	"os"
	"path"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/willbrasic/adultnet/nnet"
	"github.com/willbrasic/adultnet/stats"
)

// Name is the dataset name used for cached data files and model configs.
const Name = "adult"

// Categorical columns which are one hot encoded, in feature vector order.
var catColumns = []string{"education", "race", "workclass", "occupation", "relationship"}

// Only these education levels are kept; other rows are dropped.
var educationKeep = map[string]bool{
	"HS-grad":      true,
	"Some-college": true,
	"Bachelors":    true,
	"Masters":      true,
	"Doctorate":    true,
}

type record struct {
	age    float64
	gender float64
	hours  float64
	income float64
	cats   []string
}

// Table holds the cleaned records prior to encoding.
type Table struct {
	records []record
}

func (t *Table) Len() int { return len(t.records) }

// LoadFile reads and cleans the raw CSV from DataDir/adult.
func LoadFile(name string) (*Table, error) {
	f, err := os.Open(path.Join(nnet.DataDir, Name, name))
	if err != nil {
		return nil, errors.Wrap(err, "load adult csv")
	}
	defer f.Close()
	return Load(f)
}

// Load reads and cleans the raw CSV: income, gender and hours-per-week are
// binarized, only the five kept education levels survive and rows with an
// unknown workclass or occupation are dropped.
func Load(r io.Reader) (*Table, error) {
	rd := csv.NewReader(r)
	header, err := rd.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	for _, name := range append([]string{"age", "gender", "hours-per-week", "income"}, catColumns...) {
		if _, ok := col[name]; !ok {
			return nil, errors.Errorf("csv missing column %s", name)
		}
	}
	t := &Table{}
	for {
		row, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv row")
		}
		if !educationKeep[row[col["education"]]] {
			continue
		}
		if row[col["workclass"]] == "?" || row[col["occupation"]] == "?" {
			continue
		}
		age, err := strconv.ParseFloat(row[col["age"]], 64)
		if err != nil {
			return nil, errors.Wrap(err, "parse age")
		}
		hours, err := strconv.ParseFloat(row[col["hours-per-week"]], 64)
		if err != nil {
			return nil, errors.Wrap(err, "parse hours-per-week")
		}
		rec := record{age: age, cats: make([]string, len(catColumns))}
		if row[col["income"]] == ">50K" {
			rec.income = 1
		}
		if row[col["gender"]] == "Male" {
			rec.gender = 1
		}
		if hours >= 40 {
			rec.hours = 1
		}
		for i, name := range catColumns {
			rec.cats[i] = row[col[name]]
		}
		t.records = append(t.records, rec)
	}
	if len(t.records) == 0 {
		return nil, errors.New("no usable rows in csv")
	}
	return t, nil
}

// Encoded is the numeric form of the cleaned table: one row per example with
// standardized age, the two binary indicators and one hot category blocks.
type Encoded struct {
	Names  []string
	Nfeat  int
	Inputs []float64
	Labels []float64
}

// Encode builds the feature matrix. Category values are assigned one hot
// positions in sorted order so the encoding is independent of row order.
// Age is standardized using the mean and stddev over the cleaned table.
func (t *Table) Encode() *Encoded {
	vocab := make([][]string, len(catColumns))
	pos := make([]map[string]int, len(catColumns))
	for i := range catColumns {
		seen := map[string]bool{}
		for _, rec := range t.records {
			seen[rec.cats[i]] = true
		}
		for val := range seen {
			vocab[i] = append(vocab[i], val)
		}
		sort.Strings(vocab[i])
		pos[i] = make(map[string]int)
		for j, val := range vocab[i] {
			pos[i][val] = j
		}
	}
	var age stats.Average
	for _, rec := range t.records {
		age.Add(rec.age)
	}
	e := &Encoded{Names: []string{"age", "gender", "hours-per-week"}}
	for i, name := range catColumns {
		for _, val := range vocab[i] {
			e.Names = append(e.Names, name+"_"+val)
		}
	}
	e.Nfeat = len(e.Names)
	e.Inputs = make([]float64, len(t.records)*e.Nfeat)
	e.Labels = make([]float64, len(t.records))
	for n, rec := range t.records {
		row := e.Inputs[n*e.Nfeat:]
		row[0] = (rec.age - age.Mean) / age.StdDev
		row[1] = rec.gender
		row[2] = rec.hours
		base := 3
		for i := range catColumns {
			row[base+pos[i][rec.cats[i]]] = 1
			base += len(vocab[i])
		}
		e.Labels[n] = rec.income
	}
	return e
}

// Undersample balances the classes: every example of the minority class is
// kept together with an equal sized random sample of the majority class.
// Selected examples keep their original relative order.
func (e *Encoded) Undersample(rng *rand.Rand) *Encoded {
	var pos, neg []int
	for i, label := range e.Labels {
		if label == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	minority, majority := pos, neg
	if len(pos) > len(neg) {
		minority, majority = neg, pos
	}
	perm := rng.Perm(len(majority))
	keep := append([]int{}, minority...)
	for _, p := range perm[:len(minority)] {
		keep = append(keep, majority[p])
	}
	sort.Ints(keep)
	return e.subset(keep)
}

// Split cuts the encoded examples into train, validation and test partitions
// keyed by nnet.DataTypes. A quarter of the examples are held out for test,
// then a quarter of the remainder for validation, after a seeded shuffle.
func (e *Encoded) Split(rng *rand.Rand) map[string]nnet.Data {
	perm := rng.Perm(len(e.Labels))
	nTest := len(perm) / 4
	test := perm[len(perm)-nTest:]
	rest := perm[:len(perm)-nTest]
	nValid := len(rest) / 4
	valid := rest[len(rest)-nValid:]
	train := rest[:len(rest)-nValid]
	return map[string]nnet.Data{
		"train": e.subset(train).data(),
		"valid": e.subset(valid).data(),
		"test":  e.subset(test).data(),
	}
}

func (e *Encoded) subset(index []int) *Encoded {
	sub := &Encoded{Names: e.Names, Nfeat: e.Nfeat}
	sub.Inputs = make([]float64, len(index)*e.Nfeat)
	sub.Labels = make([]float64, len(index))
	for i, ix := range index {
		copy(sub.Inputs[i*e.Nfeat:(i+1)*e.Nfeat], e.Inputs[ix*e.Nfeat:(ix+1)*e.Nfeat])
		sub.Labels[i] = e.Labels[ix]
	}
	return sub
}

func (e *Encoded) data() nnet.Data {
	return nnet.NewData(e.Nfeat, e.Labels, e.Inputs)
}

// Prepare runs the full pipeline on the raw csv file and returns the three
// partitions ready to be cached with nnet.SaveDataFile.
func Prepare(csvFile string, rng *rand.Rand) (map[string]nnet.Data, []string, error) {
	table, err := LoadFile(csvFile)
	if err != nil {
		return nil, nil, err
	}
	enc := table.Encode().Undersample(rng)
	return enc.Split(rng), enc.Names, nil
}
