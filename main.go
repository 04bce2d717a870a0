package main

import (
	"flag"

	"github.com/golang/glog"
	"github.com/oxxion/rtd-server/config"
	"github.com/oxxion/rtd-server/router"
	"github.com/oxxion/rtd-server/server"
	"github.com/spf13/viper"
)

// Version and Rev hold the binary version and revision strings.
// Set at build time using:
//
//	go build -ldflags "-X main.Version=`git describe --tags` -X main.Rev=`git rev-parse --short HEAD`"
var (
	Version string
	Rev     string
)

func main() {
	flag.Parse() // required for glog flags and testing package flags

	cfg, err := loadConfig()
	if err != nil {
		glog.Exitf("Configuration could not be loaded or did not pass validation: %v", err)
	}

	err = serve(cfg)
	if err != nil {
		glog.Exitf("rtd-server failed: %v", err)
	}
}

const configFileName = "pbs"

func loadConfig() (*config.Configuration, error) {
	v := viper.New()
	config.SetupViper(v, configFileName)
	return config.New(v)
}

func serve(cfg *config.Configuration) error {
	r, err := router.New(cfg, Version, Rev)
	if err != nil {
		return err
	}
	defer r.Shutdown()

	corsRouter := router.SupportCORS(r)
	return server.Listen(cfg, router.NoCache{Handler: corsRouter}, router.Admin(Version, Rev, r.ModulesStages), r.MetricsEngine, r.PrometheusRegistry)
}
