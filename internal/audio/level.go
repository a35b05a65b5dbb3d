package audio

import (
	"encoding/binary"
	"math"
)

const (
	// noiseFloor is the RMS level below which a frame is treated as
	// silence and rendered at floorLevel instead of zero, so a quiet
	// room keeps a stable visual baseline instead of flickering.
	noiseFloor = 0.012
	floorLevel = 0.02
)

// FrameLevel reduces one s16le frame to a normalized loudness value in
// [0,1] using the RMS of the frame window.
func FrameLevel(frame []byte) float64 {
	n := len(frame) / 2
	if n == 0 {
		return floorLevel
	}

	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(frame[2*i:]))
		v := float64(s) / 32768.0
		sum += v * v
	}

	rms := math.Sqrt(sum / float64(n))
	if rms < noiseFloor {
		return floorLevel
	}
	if rms > 1 {
		return 1
	}
	return rms
}
