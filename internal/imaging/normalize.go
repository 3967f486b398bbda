package imaging

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

const Channels = 3

// NormalizedBuffer is a contiguous Width*Height*3 RGB byte image matching the
// detector's expected input geometry.
type NormalizedBuffer struct {
	Width  int
	Height int
	Pix    []byte
}

// coverSize returns the dimensions of a scale-to-cover resize: the smallest
// uniform scale at which both resized dimensions are >= the target.
func coverSize(srcW, srcH, dstW, dstH int) (int, int) {
	scale := math.Max(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
	newW := int(math.Round(float64(srcW) * scale))
	newH := int(math.Round(float64(srcH) * scale))
	return newW, newH
}

// cropOrigin returns the top-left corner of a centered dstW x dstH window
// inside a resW x resH image.
func cropOrigin(resW, resH, dstW, dstH int) (int, int) {
	x0 := (resW - dstW) / 2
	if x0 < 0 {
		x0 = 0
	}
	y0 := (resH - dstH) / 2
	if y0 < 0 {
		y0 = 0
	}
	return x0, y0
}

// Normalize converts an arbitrary-size BGR frame into a dstW x dstH RGB
// buffer: aspect-preserving resize so both dimensions cover the target
// (area interpolation), center crop, then BGR to RGB. The result is
// deterministic for a given frame and target size.
func Normalize(frame gocv.Mat, dstW, dstH int) (NormalizedBuffer, error) {
	srcW, srcH := frame.Cols(), frame.Rows()
	if srcW <= 0 || srcH <= 0 {
		return NormalizedBuffer{}, fmt.Errorf("cannot normalize empty frame (%dx%d)", srcW, srcH)
	}

	resW, resH := coverSize(srcW, srcH, dstW, dstH)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(frame, &resized, image.Pt(resW, resH), 0, 0, gocv.InterpolationArea)

	x0, y0 := cropOrigin(resW, resH, dstW, dstH)
	roi := resized.Region(image.Rect(x0, y0, x0+dstW, y0+dstH))
	cropped := roi.Clone()
	roi.Close()
	defer cropped.Close()

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(cropped, &rgb, gocv.ColorBGRToRGB)

	data := rgb.ToBytes()
	pix := make([]byte, dstW*dstH*Channels)
	copy(pix, data)

	return NormalizedBuffer{Width: dstW, Height: dstH, Pix: pix}, nil
}
