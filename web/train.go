package web

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/willbrasic/adultnet/nnet"
	"github.com/willbrasic/adultnet/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// number of epochs over which the validation curve is smoothed
const smoothEpochs = 5

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type TrainPage struct {
	*Templates
	net *Network
}

// Base data for handler functions to perform network training and display the stats
func NewTrainPage(t *Templates, net *Network) *TrainPage {
	p := &TrainPage{net: net}
	p.Templates = t.Select("/train")
	p.AddOption(Link{Name: "start", Url: "/train/start"})
	p.AddOption(Link{Name: "stop", Url: "/train/stop"})
	p.AddOption(Link{Name: "continue", Url: "/train/continue"})
	return p
}

// Handler function for the train template
func (p *TrainPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd := mux.Vars(r)["cmd"]
		p.net.Lock()
		defer p.net.Unlock()
		switch cmd {
		case "start", "continue":
			if p.net.running {
				log.Println("skip start - already running")
			} else if err := p.net.Train(cmd == "start"); err != nil {
				logError(w, err)
				return
			}
			http.Redirect(w, r, "/train/stats", http.StatusFound)
		case "stop":
			p.net.stop = true
			http.Redirect(w, r, "/train/stats", http.StatusFound)
		default:
			if err := p.ExecuteTemplate(w, "train", p); err != nil {
				logError(w, err)
			}
		}
	}
}

// Handler function for the stats frame
func (p *TrainPage) Stats() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		if err := p.ExecuteTemplate(w, "stats", p); err != nil {
			logError(w, err)
		}
	}
}

// Handler function for websocket connection
func (p *TrainPage) Websocket() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		p.net.conn, err = upgrader.Upgrade(w, r, nil)
		if err != nil {
			logError(w, err)
		}
	}
}

func (p *TrainPage) Heading() template.HTML {
	s := fmt.Sprintf(`%s: epoch <span id="epoch">%d</span> of %d`, p.net.Model, p.net.Epoch, p.net.MaxEpoch)
	return template.HTML(s)
}

func (p *TrainPage) Headers() []string {
	return nnet.StatsHeaders()
}

func (p *TrainPage) LatestStats(n int) []nnet.Stats {
	last := len(p.net.Stats) - 1
	res := []nnet.Stats{}
	for i := last; i >= 0 && i > last-n; i-- {
		res = append(res, p.net.Stats[i])
	}
	return res
}

func (p *TrainPage) History() []HistoryData {
	return p.net.History
}

func (p *TrainPage) RunTime() string {
	var elapsed time.Duration
	for _, s := range p.net.Stats {
		elapsed += s.Elapsed
	}
	if elapsed == 0 {
		return ""
	}
	return fmt.Sprintf("run time: %s", elapsed.Round(10*time.Millisecond))
}

// LossPlot draws training and validation loss per epoch, with an
// exponentially smoothed overlay for the noisier validation curve.
func (p *TrainPage) LossPlot(width, height int) template.HTML {
	plt := newPlot()
	train := newLinePlot(p.net.Stats, 0, func(s nnet.Stats) float64 { return s.TrainLoss })
	plt.Add(train)
	plt.Legend.Add("training loss ", train)
	valid := newLinePlot(p.net.Stats, 1, func(s nnet.Stats) float64 { return s.ValLoss })
	plt.Add(valid)
	plt.Legend.Add("validation loss ", valid)
	var ema stats.EMA
	smooth := newLinePlot(p.net.Stats, 2, func(s nnet.Stats) float64 {
		ema = stats.EMA(ema.Add(s.ValLoss, smoothEpochs))
		return float64(ema)
	})
	plt.Add(smooth)
	plt.Legend.Add("smoothed ", smooth)
	return writePlot(plt, width, height)
}

func (p *TrainPage) AccuracyPlot(width, height int) template.HTML {
	plt := newPlot()
	train := newLinePlot(p.net.Stats, 0, func(s nnet.Stats) float64 { return s.TrainAcc })
	plt.Add(train)
	plt.Legend.Add("train acc % ", train)
	valid := newLinePlot(p.net.Stats, 1, func(s nnet.Stats) float64 { return s.ValAcc })
	plt.Add(valid)
	plt.Legend.Add("valid acc % ", valid)
	return writePlot(plt, width, height)
}

func newPlot() *plot.Plot {
	p := plot.New()
	p.X.Padding, p.Y.Padding = 0, 0
	p.X.Tick.Label.Font.Size = vg.Points(10)
	p.Y.Tick.Label.Font.Size = vg.Points(10)
	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = vg.Points(12)
	p.Add(plotter.NewGrid())
	return p
}

func writePlot(p *plot.Plot, w, h int) template.HTML {
	var buf bytes.Buffer
	writer, err := p.WriterTo(vg.Points(float64(w)), vg.Points(float64(h)), "svg")
	if err != nil {
		log.Fatal("Error writing plot: ", err)
	}
	writer.WriteTo(&buf)
	return template.HTML(buf.String())
}

func newLinePlot(stats []nnet.Stats, ix int, value func(nnet.Stats) float64) linePlot {
	var pts plotter.XYs
	xmax, ymax := 1.0, 0.0
	for _, s := range stats {
		pt := plotter.XY{X: float64(s.Epoch), Y: value(s)}
		pts = append(pts, pt)
		if pt.X > xmax {
			xmax = pt.X
		}
		if pt.Y > ymax {
			ymax = pt.Y
		}
	}
	l, _ := plotter.NewLine(pts)
	l.Width = 2
	l.Color = plotutil.Color(ix)
	return linePlot{Line: l, xmax: xmax, ymax: ymax}
}

// modified plotter.Line with a fixed scale
type linePlot struct {
	*plotter.Line
	xmin, xmax, ymin, ymax float64
}

func (l linePlot) DataRange() (xmin, xmax, ymin, ymax float64) {
	return l.xmin, l.xmax, l.ymin, l.ymax
}
