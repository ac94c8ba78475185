package audio

import (
	"fmt"
)

// fullScale is the normalization divisor for 16-bit signed PCM
const fullScale = 32768.0

// DecodePCM16 converts raw little-endian 16-bit signed PCM bytes into samples
func DecodePCM16(data []byte) ([]int16, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty PCM data")
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even (16-bit samples), got %d", len(data))
	}

	samples := make([]int16, len(data)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples, nil
}

// PeakAmplitude returns the largest absolute sample value normalized to [0, 1]
func PeakAmplitude(samples []int16) float64 {
	peak := 0.0
	for _, sample := range samples {
		v := float64(sample) / fullScale
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}
