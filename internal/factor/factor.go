package factor

import (
	"errors"
	"fmt"
)

// ErrInvalidFactor is returned when a quality or resize ratio is out of range.
var ErrInvalidFactor = errors.New("invalid compression factor")

// Factor describes how aggressively a single image is compressed:
// the JPEG quality of the output and the linear scale-down of its dimensions.
// A Factor is validated at construction and immutable afterwards.
type Factor struct {
	quality float64
	ratio   float64
}

// New returns a Factor with the given JPEG quality and resize ratio.
// Quality must be within [0, 100] and ratio within (0, 1]; values outside
// those ranges produce an error wrapping ErrInvalidFactor, never a clamp.
func New(quality, ratio float64) (Factor, error) {
	if quality < 0 || quality > 100 {
		return Factor{}, fmt.Errorf("%w: quality %.2f outside [0, 100]", ErrInvalidFactor, quality)
	}
	if ratio <= 0 || ratio > 1 {
		return Factor{}, fmt.Errorf("%w: resize ratio %.2f outside (0, 1]", ErrInvalidFactor, ratio)
	}
	return Factor{quality: quality, ratio: ratio}, nil
}

// Quality returns the JPEG quality on a 0-100 scale.
func (f Factor) Quality() float64 {
	return f.quality
}

// Ratio returns the linear resize ratio on a (0, 1] scale.
func (f Factor) Ratio() float64 {
	return f.ratio
}

// Calculator maps the decoded dimensions and on-disk byte size of one image
// to the Factor used to compress it. A Calculator is invoked concurrently
// from multiple workers without synchronization, so it must not mutate
// shared state.
type Calculator func(width, height int, fileSize int64) (Factor, error)

// Fixed returns a Calculator that ignores its inputs and always yields f.
func Fixed(f Factor) Calculator {
	return func(int, int, int64) (Factor, error) {
		return f, nil
	}
}

// Default returns the built-in threshold Calculator: large files and large
// pixel counts are compressed harder, small images mostly keep their size.
func Default() Calculator {
	return func(width, height int, fileSize int64) (Factor, error) {
		pixels := width * height
		switch {
		case fileSize > 5<<20 || pixels > 3000*3000:
			return New(60, 0.7)
		case fileSize > 1<<20 || pixels > 1500*1500:
			return New(70, 0.8)
		default:
			return New(80, 0.9)
		}
	}
}
