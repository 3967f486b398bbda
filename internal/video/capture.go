package video

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Source is a seekable stream of decoded frames indexed 0..FrameCount()-1.
type Source interface {
	// FrameCount reports the total number of frames in the clip. Decoders
	// can misreport this for edge-case containers; callers should floor it.
	FrameCount() int

	// ReadFrame seeks to the given index and decodes one frame. The second
	// return value is false when the frame cannot be decoded; the returned
	// Mat is only valid (and must be closed) when it is true.
	ReadFrame(index int) (gocv.Mat, bool)

	Close() error
}

// Capture is a Source backed by an OpenCV VideoCapture handle.
type Capture struct {
	cap *gocv.VideoCapture
}

// Open opens a clip for frame-accurate reading.
func Open(path string) (*Capture, error) {
	cap, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("failed to open video %s", path)
	}
	return &Capture{cap: cap}, nil
}

func (c *Capture) FrameCount() int {
	return int(c.cap.Get(gocv.VideoCaptureFrameCount))
}

func (c *Capture) ReadFrame(index int) (gocv.Mat, bool) {
	c.cap.Set(gocv.VideoCapturePosFrames, float64(index))

	frame := gocv.NewMat()
	if ok := c.cap.Read(&frame); !ok || frame.Empty() {
		frame.Close()
		return gocv.Mat{}, false
	}
	return frame, true
}

func (c *Capture) Close() error {
	return c.cap.Close()
}
