package main

import (
	"context"
	"os"

	config "github.com/avvvet/kpi-services/configs"
	"github.com/avvvet/kpi-services/internal/kpictl"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "kpictl"

func init() {
	config.LoadEnv(SERVICE_NAME)
	config.Logging(SERVICE_NAME)
}

func main() {
	if err := kpictl.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
