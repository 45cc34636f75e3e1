package nnet

import (
	"math/rand"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	base := testConfig()
	if err := base.Validate(); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		field  string
		modify func(c Config) Config
	}{
		{"DataSet", func(c Config) Config { c.DataSet = ""; return c }},
		{"Eta", func(c Config) Config { c.Eta = 0; return c }},
		{"Eta", func(c Config) Config { c.Eta = -0.1; return c }},
		{"Momentum", func(c Config) Config { c.Momentum = 1; return c }},
		{"Nesterov", func(c Config) Config { c.Momentum = 0; c.Nesterov = true; return c }},
		{"DropProb", func(c Config) Config { c.DropProb = 1; return c }},
		{"TrainBatch", func(c Config) Config { c.TrainBatch = 0; return c }},
		{"TestBatch", func(c Config) Config { c.TestBatch = -1; return c }},
		{"MaxEpoch", func(c Config) Config { c.MaxEpoch = 0; return c }},
		{"Patience", func(c Config) Config { c.Patience = 0; return c }},
		{"Layers", func(c Config) Config { c.Layers = nil; return c }},
	}
	for _, tc := range cases {
		err := tc.modify(base).Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tc.field)
			continue
		}
		cerr, ok := err.(*ConfigError)
		if !ok {
			t.Errorf("%s: error type %T", tc.field, err)
		} else if cerr.Field != tc.field {
			t.Errorf("error names field %s want %s", cerr.Field, tc.field)
		}
	}
}

func TestNetworkShape(t *testing.T) {
	conf := testConfig()
	rng := rand.New(rand.NewSource(1))
	// stack must end in a single logit
	conf.Layers = nil
	conf = conf.AddLayers(Linear{Nout: 4})
	if _, err := New(conf, 6, rng); err == nil {
		t.Error("expected error for stack ending with 4 outputs")
	}
	conf.Layers = nil
	conf = conf.AddLayers(RegularizedNonlinearClassifier(25, 0.5)...)
	net, err := New(conf, 6, rng)
	if err != nil {
		t.Fatal(err)
	}
	if len(net.Layers) != 10 {
		t.Errorf("elu model has %d layers want 10", len(net.Layers))
	}
}

func TestSetString(t *testing.T) {
	conf := testConfig()
	conf, err := conf.SetString("Eta", "0.05")
	if err != nil || conf.Eta != 0.05 {
		t.Errorf("SetString Eta: %v %v", conf.Eta, err)
	}
	if _, err = conf.SetString("MaxEpoch", "ten"); err == nil {
		t.Error("expected parse error")
	}
	conf, err = conf.SetBool("Shuffle", false)
	if err != nil || conf.Shuffle {
		t.Errorf("SetBool Shuffle: %v %v", conf.Shuffle, err)
	}
}

func TestFields(t *testing.T) {
	conf := testConfig()
	fields := conf.Fields()
	for _, f := range fields {
		if f == "Layers" {
			t.Error("Fields should not include the layer stack")
		}
	}
	if len(fields) == 0 || fields[0] != "DataSet" {
		t.Errorf("fields = %v", fields)
	}
}

func TestConfigString(t *testing.T) {
	s := testConfig().String()
	for _, want := range []string{"== Config ==", "== Network ==", "DataSet", "linear"} {
		if !strings.Contains(s, want) {
			t.Errorf("config string missing %q", want)
		}
	}
}
