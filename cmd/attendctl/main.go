package main

import (
	"log"
	"os"

	"qrattend/internal/config"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "ATTENDCTL : ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err)
	}

	cli := commandLine{cfg: cfg, out: os.Stdout}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("error: %s", err)
		}
		os.Exit(1)
	}
}
