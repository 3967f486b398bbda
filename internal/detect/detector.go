package detect

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/survi-edge/clipscan/internal/imaging"
)

// Model input geometry, fixed by the detector's own metadata.
const (
	InputWidth  = 160
	InputHeight = 160
)

// Detection is one object found in a sampled frame. Box coordinates are in
// model-space pixels (the normalized input geometry, not the source frame).
type Detection struct {
	Label      string
	Confidence float64
	X          int
	Y          int
	Width      int
	Height     int
	FrameIndex int
}

// Detector turns one normalized buffer into a list of detections. A returned
// error means the inference engine itself failed, not that nothing was found.
type Detector interface {
	InputSize() (width, height int)
	Detect(buf imaging.NormalizedBuffer) ([]Detection, error)
	Close() error
}

// classLabels maps network class IDs to labels (COCO subset the model was
// trained on).
var classLabels = map[int]string{
	1:  "person",
	2:  "bicycle",
	3:  "car",
	4:  "motorcycle",
	6:  "bus",
	8:  "truck",
	17: "cat",
	18: "dog",
}

// DNNDetector runs an OpenCV DNN object-detection network over normalized
// RGB buffers.
type DNNDetector struct {
	net gocv.Net
}

// NewDNNDetector loads the network from its weights and graph config files.
func NewDNNDetector(modelPath, configPath string) (*DNNDetector, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model config file not found: %s", configPath)
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set network backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set network target: %w", err)
	}

	return &DNNDetector{net: net}, nil
}

func (d *DNNDetector) InputSize() (int, int) {
	return InputWidth, InputHeight
}

// Detect runs a forward pass over the buffer. Detections are unfiltered;
// thresholding is the collector's job.
func (d *DNNDetector) Detect(buf imaging.NormalizedBuffer) ([]Detection, error) {
	if d.net.Empty() {
		return nil, fmt.Errorf("detection network not initialized")
	}
	if len(buf.Pix) != buf.Width*buf.Height*imaging.Channels {
		return nil, fmt.Errorf("buffer size %d does not match %dx%dx%d",
			len(buf.Pix), buf.Width, buf.Height, imaging.Channels)
	}

	mat, err := gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV8UC3, buf.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap buffer: %w", err)
	}
	defer mat.Close()

	// Buffer is already RGB, so no channel swap in the blob.
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(buf.Width, buf.Height),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	if output.Empty() || output.Total()%7 != 0 {
		return nil, fmt.Errorf("network produced malformed output (%d values)", output.Total())
	}

	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	var detections []Detection
	for i := 0; i < rows.Rows(); i++ {
		classID := int(rows.GetFloatAt(i, 1))
		label, known := classLabels[classID]
		if !known {
			continue
		}

		conf := float64(rows.GetFloatAt(i, 2))
		left := rows.GetFloatAt(i, 3)
		top := rows.GetFloatAt(i, 4)
		right := rows.GetFloatAt(i, 5)
		bottom := rows.GetFloatAt(i, 6)

		x := int(left * float32(buf.Width))
		y := int(top * float32(buf.Height))
		w := int(right*float32(buf.Width)) - x
		h := int(bottom*float32(buf.Height)) - y

		detections = append(detections, Detection{
			Label:      label,
			Confidence: conf,
			X:          x,
			Y:          y,
			Width:      w,
			Height:     h,
		})
	}

	return detections, nil
}

func (d *DNNDetector) Close() error {
	return d.net.Close()
}
