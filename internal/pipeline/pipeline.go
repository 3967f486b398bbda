package pipeline

import (
	"fmt"
	"log"
	"time"

	"github.com/survi-edge/clipscan/internal/detect"
	"github.com/survi-edge/clipscan/internal/imaging"
	"github.com/survi-edge/clipscan/internal/report"
	"github.com/survi-edge/clipscan/internal/video"
)

// Options are the per-run inputs.
type Options struct {
	EventID   string
	VideoPath string
	Frames    int
	Threshold float64
}

// Pipeline runs one clip through sample -> normalize -> detect -> aggregate
// and always produces exactly one report.
type Pipeline struct {
	// Open yields the frame source for a clip path. Overridable in tests.
	Open     func(path string) (video.Source, error)
	Detector detect.Detector
}

func New(detector detect.Detector) *Pipeline {
	return &Pipeline{
		Open: func(path string) (video.Source, error) {
			return video.Open(path)
		},
		Detector: detector,
	}
}

// Run processes one clip sequentially. Individual decode failures are
// skipped; an open failure or a detector failure aborts the run with an
// error report. Latency covers the whole run, wall clock.
func (p *Pipeline) Run(opts Options) *report.Report {
	start := time.Now()

	src, err := p.Open(opts.VideoPath)
	if err != nil {
		return report.NewError(opts.EventID, err)
	}
	defer src.Close()

	total := src.FrameCount()
	if total <= 0 {
		// Some decoders misreport the count for edge-case clips.
		total = 1
	}

	indices := video.SampleIndices(total, opts.Frames)

	inW, inH := p.Detector.InputSize()
	collector := detect.NewCollector(opts.Threshold)
	analyzed := 0

	for _, idx := range indices {
		frame, ok := src.ReadFrame(idx)
		if !ok {
			log.Printf("event %s: frame %d failed to decode, skipping", opts.EventID, idx)
			continue
		}

		buf, err := imaging.Normalize(frame, inW, inH)
		frame.Close()
		if err != nil {
			log.Printf("event %s: frame %d unusable: %v, skipping", opts.EventID, idx, err)
			continue
		}

		detections, err := p.Detector.Detect(buf)
		if err != nil {
			return report.NewError(opts.EventID, fmt.Errorf("run inference failed on frame %d: %w", idx, err))
		}

		analyzed++
		for _, d := range detections {
			d.FrameIndex = idx
			collector.Submit(d)
		}
	}

	summary, ranked := collector.Finalize()
	latency := time.Since(start).Milliseconds()

	return report.NewOK(opts.EventID, analyzed, opts.Threshold, summary, ranked, latency)
}
