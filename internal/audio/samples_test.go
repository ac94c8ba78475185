package audio

import (
	"testing"
)

func TestDecodePCM16(t *testing.T) {
	// Little-endian: 0x0100 = 256, 0xFFFF = -1
	data := []byte{0x00, 0x01, 0xFF, 0xFF}
	samples, err := DecodePCM16(data)
	if err != nil {
		t.Fatalf("DecodePCM16 failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}
	if samples[0] != 256 {
		t.Errorf("Expected sample 256, got %d", samples[0])
	}
	if samples[1] != -1 {
		t.Errorf("Expected sample -1, got %d", samples[1])
	}
}

func TestDecodePCM16_OddLength(t *testing.T) {
	if _, err := DecodePCM16([]byte{0x00, 0x01, 0xFF}); err == nil {
		t.Error("Expected error for odd-length PCM data")
	}
}

func TestDecodePCM16_Empty(t *testing.T) {
	if _, err := DecodePCM16(nil); err == nil {
		t.Error("Expected error for empty PCM data")
	}
}

func TestPeakAmplitude(t *testing.T) {
	samples := []int16{100, -200, 300, -150}
	peak := PeakAmplitude(samples)
	expected := 300.0 / 32768.0
	if peak != expected {
		t.Errorf("Expected peak %f, got %f", expected, peak)
	}
}

func TestPeakAmplitude_NegativeDominates(t *testing.T) {
	samples := []int16{100, -5000, 300}
	peak := PeakAmplitude(samples)
	expected := 5000.0 / 32768.0
	if peak != expected {
		t.Errorf("Expected peak %f, got %f", expected, peak)
	}
}

func TestPeakAmplitude_FullScale(t *testing.T) {
	// -32768 has no positive counterpart; it must normalize to 1.0
	peak := PeakAmplitude([]int16{-32768})
	if peak != 1.0 {
		t.Errorf("Expected peak 1.0 for full-scale sample, got %f", peak)
	}
}

func TestPeakAmplitude_Empty(t *testing.T) {
	if peak := PeakAmplitude(nil); peak != 0 {
		t.Errorf("Expected peak 0 for empty samples, got %f", peak)
	}
}
