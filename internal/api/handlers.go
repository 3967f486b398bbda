package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/survi-edge/clipscan/internal/database"
	"github.com/survi-edge/clipscan/internal/pipeline"
	"github.com/survi-edge/clipscan/internal/report"
	"github.com/survi-edge/clipscan/internal/storage"
)

// Runner runs one clip through the detection pipeline.
type Runner interface {
	Run(opts pipeline.Options) *report.Report
}

// App wires the HTTP surface to the pipeline and the run history.
type App struct {
	Pipeline         Runner
	Store            storage.ClipStore
	Runs             *database.RunRepository
	MaxUploadSize    int64
	DefaultFrames    int
	DefaultThreshold float64
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

// AnalyzeHandler accepts a multipart clip upload, runs the pipeline on it and
// responds with the run's report. The report is also recorded in the run
// history when one is configured.
func (app *App) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "clip too large or malformed form")
		return
	}

	file, header, err := r.FormFile("clip")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing clip file")
		return
	}
	defer file.Close()

	eventID := r.FormValue("event_id")
	if eventID == "" {
		eventID = uuid.New().String()
	}

	frames := app.DefaultFrames
	if v := r.FormValue("frames"); v != "" {
		frames, err = strconv.Atoi(v)
		if err != nil || frames < 1 {
			respondError(w, http.StatusBadRequest, "frames must be a positive integer")
			return
		}
	}

	threshold := app.DefaultThreshold
	if v := r.FormValue("threshold"); v != "" {
		threshold, err = strconv.ParseFloat(v, 64)
		if err != nil || threshold < 0 || threshold > 1 {
			respondError(w, http.StatusBadRequest, "threshold must be in [0, 1]")
			return
		}
	}

	filename, err := app.Store.SaveClip(file, header.Filename)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store clip")
		return
	}
	defer app.Store.DeleteClip(filename)

	clipPath, err := app.Store.Path(filename)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to resolve clip")
		return
	}

	rep := app.Pipeline.Run(pipeline.Options{
		EventID:   eventID,
		VideoPath: clipPath,
		Frames:    frames,
		Threshold: threshold,
	})

	if app.Runs != nil {
		if _, err := app.Runs.Save(r.Context(), rep); err != nil {
			log.Printf("failed to record run for event %s: %v", eventID, err)
		}
	}

	respondJSON(w, http.StatusOK, rep)
}

func (app *App) RunListHandler(w http.ResponseWriter, r *http.Request) {
	if app.Runs == nil {
		respondError(w, http.StatusNotFound, "run history not configured")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	records, err := app.Runs.List(r.Context(), limit)
	if err != nil {
		log.Printf("failed to list runs: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if records == nil {
		records = []*database.RunRecord{}
	}

	respondJSON(w, http.StatusOK, records)
}

// RunHandler resolves by run ID first, then by event ID.
func (app *App) RunHandler(w http.ResponseWriter, r *http.Request) {
	if app.Runs == nil {
		respondError(w, http.StatusNotFound, "run history not configured")
		return
	}

	id := chi.URLParam(r, "id")
	record, err := app.Runs.GetByID(r.Context(), id)
	if err != nil {
		log.Printf("failed to get run %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if record == nil {
		record, err = app.Runs.GetByEventID(r.Context(), id)
		if err != nil {
			log.Printf("failed to get run by event %s: %v", id, err)
			respondError(w, http.StatusInternalServerError, "failed to get run")
			return
		}
	}
	if record == nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}

	respondJSON(w, http.StatusOK, record)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
