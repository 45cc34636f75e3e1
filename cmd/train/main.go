// Command train loads a model config, trains it and scores the test set.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/willbrasic/adultnet/nnet"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: train [opts] <model>")
		os.Exit(1)
	}
	model := os.Args[len(os.Args)-1]
	fmt.Println("load model:", model)
	conf, err := nnet.LoadConfig(model + ".conf")
	nnet.CheckErr(err)

	// override config settings from command line
	flag.Float64Var(&conf.Eta, "eta", conf.Eta, "learning rate")
	flag.Float64Var(&conf.Momentum, "momentum", conf.Momentum, "momentum coefficient")
	flag.Int64Var(&conf.RandSeed, "seed", conf.RandSeed, "random number seed")
	flag.IntVar(&conf.MaxEpoch, "epochs", conf.MaxEpoch, "max epochs")
	flag.IntVar(&conf.Patience, "patience", conf.Patience, "early stopping patience")
	flag.IntVar(&conf.TrainBatch, "batch", conf.TrainBatch, "train batch size")
	flag.IntVar(&conf.TestBatch, "testbatch", conf.TestBatch, "test batch size")
	flag.IntVar(&conf.LogEvery, "log", conf.LogEvery, "log stats every n epochs")
	flag.Parse()

	// load train, valid and test data
	data, err := nnet.LoadData(conf.DataSet)
	nnet.CheckErr(err)
	rng := nnet.NewRng(conf.RandSeed)
	trainSet := nnet.NewDataset(data["train"], conf.TrainBatch, rng)
	validSet := nnet.NewDataset(data["valid"], conf.TestBatch, rng)
	testSet := nnet.NewDataset(data["test"], conf.TestBatch, rng)

	// initialise weights
	net, err := nnet.New(conf, trainSet.NumFeatures(), rng)
	nnet.CheckErr(err)
	fmt.Println(net)
	net.InitWeights(rng)

	// train the network
	opt := nnet.NewSGD(conf)
	res, err := nnet.Train(net, opt, trainSet, validSet, nnet.NewLogSink(conf.LogEvery))
	nnet.CheckErr(err)
	fmt.Printf("run time: %s  epochs: %d\n", res.Elapsed.Round(10*time.Millisecond), len(res.History))

	// score the test set
	test, err := nnet.Evaluate(net, testSet)
	nnet.CheckErr(err)
	fmt.Printf("test loss: %.4f  accuracy: %.2f%%\n", test.Loss, test.Accuracy)
	fmt.Println(test.Confusion())
}
