package main

import (
	"flag"
	"os"
	_ "time/tzdata"

	"github.com/lecturedesk/lecturedesk/internal/app"
	log "github.com/sirupsen/logrus"
)

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		logrusLevel, err := log.ParseLevel(level)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	configPath := flag.String("config", "./config/application.yaml", "path to the YAML configuration file")
	flag.Parse()

	application, err := app.NewApplication(*configPath)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	if err := application.Run(); err != nil {
		log.Fatal(err)
	}
}
