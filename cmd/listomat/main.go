package main

import (
	"log"

	"github.com/vzemtsov/listomat/internal/app"
	"github.com/vzemtsov/listomat/internal/logger"
)

func main() {
	application, err := app.New()
	if err != nil {
		log.Fatalf("Unable to initialize the application: %v", err)
	}
	defer application.Close()

	if err := application.Run(); err != nil {
		logger.Log.Fatalln("Application terminated with error:", err)
	}
}
