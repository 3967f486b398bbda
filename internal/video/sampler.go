package video

import "math"

// SampleIndices picks count frame indices evenly spanning a clip of
// totalFrames frames, first to last inclusive. A single sample lands on the
// middle frame. Indices are non-decreasing and may repeat when count exceeds
// totalFrames; each repeat is an independent decode.
func SampleIndices(totalFrames, count int) []int {
	if count == 1 {
		return []int{totalFrames / 2}
	}

	indices := make([]int, 0, count)
	for k := 0; k < count; k++ {
		idx := int(math.Round(float64(k) * float64(totalFrames-1) / float64(count-1)))
		if idx < 0 {
			idx = 0
		}
		if idx > totalFrames-1 {
			idx = totalFrames - 1
		}
		indices = append(indices, idx)
	}
	return indices
}
