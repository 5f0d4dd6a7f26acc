// Package tempo converts between beats and wall-clock time.
package tempo

import (
	"math"
	"time"
)

const (
	MinBPM     = 40.0
	MaxBPM     = 300.0
	DefaultBPM = 120.0
)

// BeatsToSeconds returns the length in seconds of the given number of beats.
func BeatsToSeconds(beats, bpm float64) float64 {
	return beats / bpm * 60
}

// SecondsToBeats returns how many beats fit in the given number of seconds.
func SecondsToBeats(seconds, bpm float64) float64 {
	return seconds / 60 * bpm
}

// ClampBPM limits bpm to [MinBPM, MaxBPM]. NaN maps to MinBPM.
func ClampBPM(bpm float64) float64 {
	if math.IsNaN(bpm) {
		return MinBPM
	}
	return math.Max(MinBPM, math.Min(MaxBPM, bpm))
}

// BeatDuration is the wall-clock length of a single beat.
func BeatDuration(bpm float64) time.Duration {
	return time.Duration(BeatsToSeconds(1, bpm) * float64(time.Second))
}
