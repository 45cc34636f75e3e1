package web

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/willbrasic/adultnet/nnet"
)

type TestPage struct {
	*Templates
	net    *Network
	result *nnet.TestResult
	err    error
}

// Base data for handler functions to score the test set and display the
// confusion matrix for the current model weights.
func NewTestPage(t *Templates, net *Network) *TestPage {
	p := &TestPage{net: net}
	p.Templates = t.Select("/test")
	return p
}

// Handler function for the test template
func (p *TestPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		p.result, p.err = p.net.TestResult()
		if err := p.ExecuteTemplate(w, "test", p); err != nil {
			logError(w, err)
		}
	}
}

func (p *TestPage) Heading() template.HTML {
	return template.HTML(fmt.Sprintf("%s: test set evaluation", p.net.Model))
}

func (p *TestPage) Error() string {
	if p.err != nil {
		return p.err.Error()
	}
	return ""
}

func (p *TestPage) Summary() string {
	if p.result == nil {
		return ""
	}
	return fmt.Sprintf("loss: %.4f  accuracy: %.2f%%  examples: %d",
		p.result.Loss, p.result.Accuracy, len(p.result.Preds))
}

func (p *TestPage) Confusion() template.HTML {
	if p.result == nil {
		return ""
	}
	return p.result.Confusion().HTML()
}
