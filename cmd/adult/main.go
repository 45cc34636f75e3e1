// Command adult prepares the UCI adult income dataset and writes the two
// default model configs. The raw csv is expected under DataDir/adult.
package main

import (
	"flag"
	"fmt"

	"github.com/willbrasic/adultnet/adult"
	"github.com/willbrasic/adultnet/nnet"
)

func main() {
	csvFile := flag.String("csv", "adult.csv", "raw csv file name under the adult data dir")
	seed := flag.Int64("seed", 1024, "random seed for undersampling and splits")
	flag.Parse()

	rng := nnet.NewRng(*seed)
	data, names, err := adult.Prepare(*csvFile, rng)
	nnet.CheckErr(err)
	fmt.Println(len(names), "features:", names)

	for _, key := range nnet.DataTypes {
		err = nnet.SaveDataFile(data[key], adult.Name+"_"+key)
		nnet.CheckErr(err)
	}

	conf := nnet.Config{
		DataSet:     adult.Name,
		HiddenUnits: 25,
		Eta:         0.01,
		Momentum:    0.9,
		Nesterov:    true,
		Shuffle:     true,
		TrainBatch:  32,
		MaxEpoch:    20,
		Patience:    10,
		LogEvery:    1,
		RandSeed:    1024,
	}

	linear := conf.AddLayers(nnet.LinearClassifier(conf.HiddenUnits)...)
	fmt.Println(linear)
	err = linear.SaveDefault("adult_linear")
	nnet.CheckErr(err)

	conf.DropProb = 0.5
	elu := conf.AddLayers(nnet.RegularizedNonlinearClassifier(conf.HiddenUnits, conf.DropProb)...)
	fmt.Println(elu)
	err = elu.SaveDefault("adult_elu")
	nnet.CheckErr(err)
}
