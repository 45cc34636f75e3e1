package web

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/willbrasic/adultnet/nnet"
)

type ConfigPage struct {
	*Templates
	Fields []Field
	Layers []Layer
	net    *Network
	sync.Mutex
}

type Field struct {
	Name    string
	Value   string
	Error   string
	Boolean bool
	On      bool
}

type Layer struct {
	Index int
	Desc  string
}

// Base data for handler functions to view and update the network config
func NewConfigPage(t *Templates, net *Network) *ConfigPage {
	p := &ConfigPage{net: net}
	p.Templates = t.Select("/config")
	p.AddOption(Link{Name: "save", Url: "/config/save", Submit: true})
	p.AddOption(Link{Name: "reset", Url: "/config/reset"})
	p.Fields = getFields(&net.Conf)
	p.Layers = getLayers(&net.Conf)
	return p
}

// Handler function for the config template
func (p *ConfigPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Lock()
		defer p.Unlock()
		if err := p.ExecuteTemplate(w, "config", p); err != nil {
			logError(w, err)
		}
	}
}

// Handler function for the action to load a new model
func (p *ConfigPage) Load() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Lock()
		defer p.Unlock()
		model := r.FormValue("model")
		log.Println("load model:", model)
		conf, err := nnet.LoadConfig(model + ".conf")
		if err != nil {
			logError(w, err)
			return
		}
		p.net.Lock()
		defer p.net.Unlock()
		p.net.Model = model
		if err := p.applyConfig(conf); err != nil {
			logError(w, err)
			return
		}
		http.Redirect(w, r, "/config", http.StatusFound)
	}
}

// Handler function for the config form save action
func (p *ConfigPage) Save() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Lock()
		defer p.Unlock()
		r.ParseForm()
		haveErrors := false
		conf := p.net.Conf
		for i, fld := range p.Fields {
			val := r.Form.Get(fld.Name)
			var err error
			if fld.Boolean {
				p.Fields[i].On = (val == "true")
				conf, err = conf.SetBool(fld.Name, p.Fields[i].On)
			} else {
				p.Fields[i].Value = val
				conf, err = conf.SetString(fld.Name, val)
			}
			p.Fields[i].Error = ""
			if err != nil {
				p.Fields[i].Error = "invalid syntax"
				haveErrors = true
			}
		}
		if err := conf.Validate(); !haveErrors && err != nil {
			logError(w, err)
			return
		}
		if !haveErrors {
			if err := conf.Save(p.net.Model + ".conf"); err != nil {
				logError(w, err)
				return
			}
			p.net.Lock()
			defer p.net.Unlock()
			if err := p.applyConfig(conf); err != nil {
				logError(w, err)
				return
			}
		}
		http.Redirect(w, r, "/config", http.StatusFound)
	}
}

// Handler function for the config form reset action
func (p *ConfigPage) Reset() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Lock()
		defer p.Unlock()
		conf, err := nnet.LoadConfig(p.net.Model + ".default")
		if err != nil {
			logError(w, err)
			return
		}
		if err = conf.Save(p.net.Model + ".conf"); err != nil {
			logError(w, err)
			return
		}
		p.net.Lock()
		defer p.net.Unlock()
		if err := p.applyConfig(conf); err != nil {
			logError(w, err)
			return
		}
		http.Redirect(w, r, "/config", http.StatusFound)
	}
}

// applyConfig rebuilds the model for the new settings. Callers hold both the
// page and network locks.
func (p *ConfigPage) applyConfig(conf nnet.Config) error {
	p.net.Conf = conf
	if err := p.net.Start(conf); err != nil {
		return err
	}
	p.Fields = getFields(&conf)
	p.Layers = getLayers(&conf)
	return nil
}

func (p *ConfigPage) Heading() template.HTML {
	files, err := os.ReadDir(nnet.DataDir)
	if err != nil {
		log.Fatal(err)
	}
	html := `model: <select name="model" class="model-select" form="loadConfig" onchange="this.form.submit()">`
	for _, file := range files {
		name := file.Name()
		if strings.HasSuffix(name, ".conf") {
			name = name[:len(name)-5]
			if name == p.net.Model {
				html += "<option selected>" + name + "</option>"
			} else {
				html += "<option>" + name + "</option>"
			}
		}
	}
	html += "</select>"
	return template.HTML(html)
}

func getFields(conf *nnet.Config) []Field {
	keys := conf.Fields()
	var flds []Field
	for _, key := range keys {
		f := Field{Name: key, Value: fmt.Sprint(conf.Get(key))}
		f.On, f.Boolean = conf.Get(key).(bool)
		flds = append(flds, f)
	}
	return flds
}

func getLayers(conf *nnet.Config) []Layer {
	layers := make([]Layer, len(conf.Layers))
	for i, l := range conf.Layers {
		layers[i].Index = i
		layers[i].Desc = l.Unmarshal().ToString()
	}
	return layers
}
