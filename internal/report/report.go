package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/survi-edge/clipscan/internal/detect"
)

// ModelName identifies the detector in every artifact.
const ModelName = "edgeimpulse_fomo_local"

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Detection is the artifact-level view of one detection.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"conf"`
	BBox       [4]int  `json:"bbox"`
	FrameIndex int     `json:"frame_idx"`
}

// Report is the single artifact a run produces, success or error.
type Report struct {
	EventID        string
	Status         string
	Error          string
	FramesAnalyzed int
	Threshold      float64
	Summary        detect.Summary
	Detections     []Detection
	LatencyMS      int64
}

// NewOK assembles a success report from the collector's finalized output.
func NewOK(eventID string, framesAnalyzed int, threshold float64, summary detect.Summary, ranked []detect.Detection, latencyMS int64) *Report {
	detections := make([]Detection, 0, len(ranked))
	for _, d := range ranked {
		detections = append(detections, Detection{
			Label:      d.Label,
			Confidence: d.Confidence,
			BBox:       [4]int{d.X, d.Y, d.Width, d.Height},
			FrameIndex: d.FrameIndex,
		})
	}
	return &Report{
		EventID:        eventID,
		Status:         StatusOK,
		FramesAnalyzed: framesAnalyzed,
		Threshold:      threshold,
		Summary:        summary,
		Detections:     detections,
		LatencyMS:      latencyMS,
	}
}

// NewError assembles the error variant. Only the failure detail is carried;
// partial pipeline results are discarded.
func NewError(eventID string, err error) *Report {
	return &Report{
		EventID: eventID,
		Status:  StatusError,
		Error:   err.Error(),
	}
}

func (r *Report) OK() bool {
	return r.Status == StatusOK
}

// MarshalJSON picks the field set by status: the error variant carries only
// the identifying fields and the failure detail.
func (r *Report) MarshalJSON() ([]byte, error) {
	if r.Status == StatusError {
		return json.Marshal(struct {
			EventID string `json:"event_id"`
			Model   string `json:"model"`
			Status  string `json:"status"`
			Error   string `json:"error"`
		}{
			EventID: r.EventID,
			Model:   ModelName,
			Status:  r.Status,
			Error:   r.Error,
		})
	}

	detections := r.Detections
	if detections == nil {
		detections = []Detection{}
	}

	return json.Marshal(struct {
		EventID        string         `json:"event_id"`
		Model          string         `json:"model"`
		Status         string         `json:"status"`
		FramesAnalyzed int            `json:"frames_analyzed"`
		Threshold      float64        `json:"threshold"`
		Summary        detect.Summary `json:"summary"`
		Detections     []Detection    `json:"detections"`
		LatencyMS      int64          `json:"latency_ms"`
	}{
		EventID:        r.EventID,
		Model:          ModelName,
		Status:         r.Status,
		FramesAnalyzed: r.FramesAnalyzed,
		Threshold:      r.Threshold,
		Summary:        r.Summary,
		Detections:     detections,
		LatencyMS:      r.LatencyMS,
	})
}

// WriteFile persists the report atomically: a temp file in the destination
// directory is renamed into place, so readers never observe a partial
// artifact.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp_report_*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close report: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	return nil
}
