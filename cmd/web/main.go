// Command web serves the training dashboard.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/willbrasic/adultnet/nnet"
	"github.com/willbrasic/adultnet/web"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Println("usage: web [opts] <model>")
		os.Exit(1)
	}
	model := os.Args[len(os.Args)-1]
	port := flag.Int("port", 8080, "port to listen on")
	flag.Parse()

	net, err := web.NewNetwork(model)
	nnet.CheckErr(err)

	t, err := web.NewTemplates()
	nnet.CheckErr(err)
	t.AddMenuItem(web.Link{Name: "train", Url: "/train"})
	t.AddMenuItem(web.Link{Name: "test", Url: "/test"})
	t.AddMenuItem(web.Link{Name: "config", Url: "/config"})

	trainPage := web.NewTrainPage(t.Clone(), net)
	testPage := web.NewTestPage(t.Clone(), net)
	configPage := web.NewConfigPage(t.Clone(), net)

	r := mux.NewRouter()
	r.Handle("/", http.RedirectHandler("/train/stats", http.StatusFound))
	r.PathPrefix("/static/").Handler(http.FileServer(http.Dir(web.AssetDir)))

	r.Handle("/train", http.RedirectHandler("/train/stats", http.StatusFound))
	r.HandleFunc("/train/{cmd:(?:stats|start|stop|continue)}", trainPage.Base())
	r.HandleFunc("/stats", trainPage.Stats())
	r.HandleFunc("/ws", trainPage.Websocket())

	r.HandleFunc("/test", testPage.Base())

	r.HandleFunc("/config", configPage.Base())
	r.HandleFunc("/config/load", configPage.Load())
	r.HandleFunc("/config/save", configPage.Save()).Methods("POST")
	r.HandleFunc("/config/reset", configPage.Reset())

	var handler http.Handler = r
	auth := web.NewAuthMiddleware()
	if auth.Enabled() {
		handler = auth.Middleware(r)
	}
	fmt.Printf("serving web page at http://localhost:%d\n", *port)
	http.ListenAndServe(fmt.Sprintf(":%d", *port), handler)
}
