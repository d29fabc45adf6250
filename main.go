package main

import (
	"net/http"
	"os"

	"github.com/juju/loggo"

	_ "net/http/pprof"
)

// APPLICATION STATE

var (
	cfg    = &config{}
	srv    *TCPServer
	uiHub  *wsHub
	logger = loggo.GetLogger("main")
)

// APPLICATION ENTRY POINT

func main() {
	// SETUP
	err := cfg.fromFile("config.json")
	if err != nil {
		cfg = &config{
			TCPPort:     "6001",
			HTTPPort:    "8899",
			Institution: "UWOLS",
			Delimiter:   "|",
			Timeout:     10,
			Retries:     2,
			Renewal:     true,
			LogLevels:   "<root>=WARNING;tcp=INFO;ws=INFO;main=INFO;sip=INFO;web=WARNING",
		}
		logger.Warningf("No config.json file found, using standard values")
	}
	loggo.ConfigureLoggers(cfg.LogLevels)
	if cfg.ErrorLogFile != "" {
		file, err := os.Create(cfg.ErrorLogFile)
		if err == nil {
			err = loggo.RegisterWriter("file",
				loggo.NewSimpleWriter(file, &loggo.DefaultFormatter{}), loggo.WARNING)
			if err != nil {
				logger.Warningf(err.Error())
			}
		}
	}

	ils := newDemoILS(cfg.Institution)
	uiHub = newHub()
	srv = newTCPServer(cfg, ils)
	srv.broadcast = uiHub.broadcast

	// START SERVICES

	logger.Infof("Starting SIP server, listening at port %v", cfg.TCPPort)
	go srv.run()

	logger.Infof("Starting Websocket hub")
	go uiHub.run()

	http.HandleFunc("/.status", statusHandler)
	http.HandleFunc("/ws", wsHandler)

	logger.Infof("Starting HTTP server, listening at port %v", cfg.HTTPPort)
	http.ListenAndServe(":"+cfg.HTTPPort, nil)
}
