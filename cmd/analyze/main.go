package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/survi-edge/clipscan/internal/config"
	"github.com/survi-edge/clipscan/internal/database"
	"github.com/survi-edge/clipscan/internal/detect"
	"github.com/survi-edge/clipscan/internal/pipeline"
	"github.com/survi-edge/clipscan/internal/report"
	"github.com/survi-edge/clipscan/internal/upload"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		eventID   = flag.String("event-id", "", "Event identifier carried into the report")
		videoPath = flag.String("video", "", "Path to the clip to analyze")
		outPath   = flag.String("out", "", "Path for the JSON report artifact")
		frames    = flag.Int("frames", 5, "Number of frames to sample")
		threshold = flag.Float64("threshold", 0.50, "Confidence threshold in [0, 1]")
	)
	flag.Parse()

	if *eventID == "" || *videoPath == "" || *outPath == "" {
		usage()
		return exitUsage
	}
	if *frames < 1 {
		fmt.Fprintln(os.Stderr, "frames must be a positive integer")
		usage()
		return exitUsage
	}
	if *threshold < 0 || *threshold > 1 {
		fmt.Fprintln(os.Stderr, "threshold must be in [0, 1]")
		usage()
		return exitUsage
	}

	cfg := config.Load()

	detector, err := detect.NewDNNDetector(cfg.ModelPath, cfg.ConfigPath)
	if err != nil {
		log.Printf("Failed to initialize detector: %v", err)
		rep := report.NewError(*eventID, err)
		if werr := rep.WriteFile(*outPath); werr != nil {
			log.Printf("Failed to write error report: %v", werr)
		}
		return exitError
	}
	defer detector.Close()

	rep := pipeline.New(detector).Run(pipeline.Options{
		EventID:   *eventID,
		VideoPath: *videoPath,
		Frames:    *frames,
		Threshold: *threshold,
	})

	if err := rep.WriteFile(*outPath); err != nil {
		log.Printf("Failed to write report %s: %v", *outPath, err)
		return exitError
	}

	finish(cfg, rep)

	if !rep.OK() {
		return exitError
	}
	return exitOK
}

// finish records and ships the report where configured. Both are best-effort;
// the artifact on disk is the contract.
func finish(cfg *config.Config, rep *report.Report) {
	ctx := context.Background()

	if cfg.DBPath != "" {
		db, err := database.NewDB(cfg.DBPath)
		if err != nil {
			log.Printf("Failed to open run history: %v", err)
		} else {
			defer db.Close()
			if _, err := database.NewRunRepository(db).Save(ctx, rep); err != nil {
				log.Printf("Failed to record run: %v", err)
			}
		}
	}

	if cfg.IngestURL != "" {
		client := upload.NewClient(cfg.IngestURL, cfg.IngestToken)
		if err := client.UploadResult(ctx, rep); err != nil {
			log.Printf("Failed to upload result: %v", err)
		}
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: analyze -event-id <id> -video <clip.mp4> -out <report.json> [-frames N] [-threshold T]")
	flag.PrintDefaults()
}
