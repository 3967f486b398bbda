package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/survi-edge/clipscan/internal/api"
	"github.com/survi-edge/clipscan/internal/config"
	"github.com/survi-edge/clipscan/internal/database"
	"github.com/survi-edge/clipscan/internal/detect"
	"github.com/survi-edge/clipscan/internal/pipeline"
	"github.com/survi-edge/clipscan/internal/storage"
)

func main() {
	cfg := config.Load()

	detector, err := detect.NewDNNDetector(cfg.ModelPath, cfg.ConfigPath)
	if err != nil {
		log.Fatal("Failed to initialize detector: ", err)
	}
	defer detector.Close()

	clipStore, err := storage.NewLocalStorage(cfg.ClipDirectory)
	if err != nil {
		log.Fatal("Failed to initialize clip storage: ", err)
	}

	app := &api.App{
		Pipeline:         pipeline.New(detector),
		Store:            clipStore,
		MaxUploadSize:    cfg.MaxUploadSize,
		DefaultFrames:    5,
		DefaultThreshold: 0.50,
	}

	if cfg.DBPath != "" {
		db, err := database.NewDB(cfg.DBPath)
		if err != nil {
			log.Fatal("Failed to open run history: ", err)
		}
		defer db.Close()
		app.Runs = database.NewRunRepository(db)
		log.Printf("Run history enabled at %s", cfg.DBPath)
	} else {
		log.Printf("DB_PATH not set, run history disabled")
	}

	router := api.NewRouter(app)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Server starting on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal("Server failed: ", err)
	}
}
