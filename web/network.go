// Package web has a web based interface for network training and evaluation.
package web

import (
	"encoding/gob"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/willbrasic/adultnet/nnet"
)

// Network and associated training / test data and configuration
type Network struct {
	*NetworkData
	*nnet.Network
	Data     map[string]nnet.Data
	trainSet *nnet.Dataset
	validSet *nnet.Dataset
	testSet  *nnet.Dataset
	opt      *nnet.SGD
	conn     *websocket.Conn
	rng      *rand.Rand
	running  bool
	stop     bool
	epoch0   int
	sync.Mutex
}

// Embedded struct used to persist state to file
type NetworkData struct {
	Model   string
	Conf    nnet.Config
	Epoch   int
	Stats   []nnet.Stats
	Params  []LayerData
	History []HistoryData
}

type LayerData struct {
	Layer  int
	Values [][]float64
}

type HistoryData struct {
	Stats nnet.Stats
	Conf  nnet.Config
}

// Create a new network and load config from data given model name
func NewNetwork(model string) (*Network, error) {
	n := &Network{}
	log.Println("load model:", model)
	var err error
	n.NetworkData, err = LoadNetwork(model, false)
	if err != nil {
		return nil, err
	}
	if err := n.Init(n.Conf); err != nil {
		return nil, err
	}
	if err := n.Import(); err != nil {
		return nil, err
	}
	return n, nil
}

// Initialise the network and batch the data partitions
func (n *Network) Init(conf nnet.Config) error {
	log.Println("init network: dataSet=" + conf.DataSet)
	var err error
	if n.Data, err = nnet.LoadData(conf.DataSet); err != nil {
		return err
	}
	n.rng = nnet.NewRng(conf.RandSeed)
	n.trainSet = nnet.NewDataset(n.Data["train"], conf.TrainBatch, n.rng)
	n.validSet = nnet.NewDataset(n.Data["valid"], conf.TestBatch, n.rng)
	if d, ok := n.Data["test"]; ok {
		n.testSet = nnet.NewDataset(d, conf.TestBatch, n.rng)
	}
	n.Network, err = nnet.New(conf, n.trainSet.NumFeatures(), n.rng)
	if err != nil {
		return err
	}
	n.opt = nnet.NewSGD(conf)
	return nil
}

// Initialise for new training run
func (n *Network) Start(conf nnet.Config) error {
	if err := n.Init(conf); err != nil {
		return err
	}
	log.Println("init weights")
	n.InitWeights(n.rng)
	n.Epoch = 0
	n.Stats = n.Stats[:0]
	return nil
}

// Perform training run in the background. With restart a fresh model is
// trained from new weights, otherwise training resumes from the current
// epoch. Stats are pushed to the websocket as each epoch completes.
func (n *Network) Train(restart bool) error {
	log.Printf("train %s: restart=%v\n", n.Model, restart)
	if restart && (n.Epoch != 0 || len(n.Stats) > 0) {
		if err := n.Start(n.Conf); err != nil {
			return err
		}
	}
	if n.Epoch >= n.MaxEpoch {
		return nil
	}
	n.epoch0 = n.Epoch
	n.running = true
	n.stop = false
	go func() {
		res, err := nnet.Train(n.Network, n.opt, n.trainSet, n.validSet, n)
		n.Lock()
		if err != nil {
			log.Println("train: error:", err)
		} else if len(res.History) > 0 {
			last := res.History[len(res.History)-1]
			last.Epoch += n.epoch0
			log.Println(last)
			n.History = append(n.History, HistoryData{Stats: last, Conf: n.Conf})
		}
		if res != nil && res.Stopped {
			log.Printf("train: early stop at epoch %d\n", res.StopEpoch)
		}
		n.running = false
		n.stop = false
		n.Export()
		if err := SaveNetwork(n.NetworkData); err != nil {
			log.Println("train: error saving network:", err)
		}
		n.Unlock()
		n.notify()
		log.Println("train: end")
	}()
	return nil
}

// Record implements the nnet.MetricsSink interface: it mirrors each epoch
// into the page state, pushes a websocket refresh and reports whether the
// stop button was pressed.
func (n *Network) Record(s nnet.Stats) bool {
	n.Lock()
	s.Epoch += n.epoch0
	n.Epoch = s.Epoch + 1
	n.Stats = append(n.Stats, s)
	stop := n.stop
	n.Unlock()
	n.notify()
	return stop
}

// notify the client that new stats are available
func (n *Network) notify() {
	if n.conn == nil {
		return
	}
	msg := []byte(strconv.Itoa(n.Epoch))
	if err := n.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.Println("notify: error writing to websocket", err)
	}
}

// Export model weights prior to saving to file
func (n *Network) Export() {
	n.NetworkData.Params = []LayerData{}
	for i, layer := range n.Layers {
		if l, ok := layer.(nnet.ParamLayer); ok {
			d := LayerData{Layer: i}
			for _, p := range l.Params() {
				data := p.Value.RawMatrix().Data
				d.Values = append(d.Values, append([]float64{}, data...))
			}
			n.NetworkData.Params = append(n.NetworkData.Params, d)
		}
	}
}

// Import model weights after loading from file
func (n *Network) Import() error {
	if n.Epoch == 0 || len(n.NetworkData.Params) == 0 {
		log.Println("init weights")
		n.InitWeights(n.rng)
		return nil
	}
	log.Println("import weights")
	nlayers := len(n.Layers)
	for _, d := range n.NetworkData.Params {
		if d.Layer >= nlayers {
			return fmt.Errorf("layer %d import error: network has %d layers total", d.Layer, nlayers)
		}
		layer, ok := n.Layers[d.Layer].(nnet.ParamLayer)
		if !ok {
			return fmt.Errorf("layer %d import error: not a ParamLayer", d.Layer)
		}
		params := layer.Params()
		if len(params) != len(d.Values) {
			return fmt.Errorf("layer %d import error: have %d params - expect %d",
				d.Layer, len(d.Values), len(params))
		}
		for i, p := range params {
			data := p.Value.RawMatrix().Data
			if len(data) != len(d.Values[i]) {
				return fmt.Errorf("layer %d import error: size mismatch - have %d - expect %d",
					d.Layer, len(d.Values[i]), len(data))
			}
			copy(data, d.Values[i])
		}
	}
	return nil
}

// Evaluate the test set with the current model weights
func (n *Network) TestResult() (*nnet.TestResult, error) {
	if n.testSet == nil {
		return nil, fmt.Errorf("no test partition for %s", n.Conf.DataSet)
	}
	return nnet.Evaluate(n.Network, n.testSet)
}

// Encode data in gob format and save to file under nnet.DataDir
func SaveNetwork(data *NetworkData) error {
	filePath := path.Join(nnet.DataDir, data.Model+".net")
	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(*data)
}

// Read back gob encoded data file, if not found or reset is set then load default config.
func LoadNetwork(model string, reset bool) (data *NetworkData, err error) {
	data = &NetworkData{
		Model:   model,
		Stats:   []nnet.Stats{},
		Params:  []LayerData{},
		History: []HistoryData{},
	}
	if !reset {
		if err = loadGob(model+".net", data); err != nil {
			reset = true
		}
	}
	if reset {
		data.Conf, err = nnet.LoadConfig(model + ".conf")
	}
	return data, err
}

func loadGob(name string, data *NetworkData) error {
	filePath := path.Join(nnet.DataDir, name)
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	log.Println("loading network state from", name)
	return gob.NewDecoder(f).Decode(data)
}
