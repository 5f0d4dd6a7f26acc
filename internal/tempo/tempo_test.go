package tempo

import (
	"math"
	"testing"
	"time"
)

func TestBeatsToSeconds(t *testing.T) {
	tests := []struct {
		beats, bpm, want float64
	}{
		{4, 120, 2},
		{1, 60, 1},
		{0, 90, 0},
		{64, 300, 12.8},
	}

	for _, tt := range tests {
		got := BeatsToSeconds(tt.beats, tt.bpm)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("BeatsToSeconds(%v, %v) = %v, want %v", tt.beats, tt.bpm, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, bpm := range []float64{MinBPM, 97.5, DefaultBPM, 233, MaxBPM} {
		for _, beats := range []float64{0, 0.25, 1, 3.333, 64, 1000.125} {
			got := SecondsToBeats(BeatsToSeconds(beats, bpm), bpm)
			if math.Abs(got-beats) > 1e-9 {
				t.Errorf("round trip at bpm %v: got %v, want %v", bpm, got, beats)
			}
		}
	}
}

func TestClampBPM(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{500, MaxBPM},
		{10, MinBPM},
		{-3, MinBPM},
		{128, 128},
		{math.NaN(), MinBPM},
		{math.Inf(1), MaxBPM},
	}

	for _, tt := range tests {
		got := ClampBPM(tt.in)
		if got != tt.want {
			t.Errorf("ClampBPM(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if again := ClampBPM(got); again != got {
			t.Errorf("ClampBPM not idempotent for %v: %v then %v", tt.in, got, again)
		}
	}
}

func TestBeatDuration(t *testing.T) {
	if got := BeatDuration(120); got != 500*time.Millisecond {
		t.Errorf("BeatDuration(120) = %v, want 500ms", got)
	}
}
