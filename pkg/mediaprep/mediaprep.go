// Package mediaprep validates and normalizes media against per-provider
// constraints before anything is sent to an external platform. Violations are
// reported as *ValidationError so callers can surface them immediately
// instead of retrying.
package mediaprep

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

// Constraints describes the media rules of one publish target
type Constraints struct {
	MinCount     int     // Minimum media items per post
	MaxCount     int     // Maximum media items per post (carousel cap)
	MinAspect    float64 // Minimum width/height ratio, 0 = unchecked
	MaxAspect    float64 // Maximum width/height ratio, 0 = unchecked
	MaxBytes     int     // Maximum encoded size, 0 = unchecked
	MaxDimension int     // Longest allowed edge; larger images are downscaled
}

// ValidationError reports a media constraint violation
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("media validation failed: %s", e.Reason)
}

// IsValidationError reports whether err is a media constraint violation
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateCount checks the number of media items against the constraints
func ValidateCount(count int, c Constraints) error {
	if c.MinCount > 0 && count < c.MinCount {
		return &ValidationError{Reason: fmt.Sprintf("requires at least %d media item(s), got %d", c.MinCount, count)}
	}
	if c.MaxCount > 0 && count > c.MaxCount {
		return &ValidationError{Reason: fmt.Sprintf("allows at most %d media item(s), got %d", c.MaxCount, count)}
	}
	return nil
}

// Prepare decodes an image, validates it against the constraints, downscales
// it when it exceeds MaxDimension, and returns the (possibly re-encoded)
// bytes. Undecodable input and bound violations return *ValidationError.
func Prepare(data []byte, c Constraints) ([]byte, error) {
	if c.MaxBytes > 0 && len(data) > c.MaxBytes {
		return nil, &ValidationError{Reason: fmt.Sprintf("image is %d bytes, limit is %d", len(data), c.MaxBytes)}
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("could not decode image: %v", err)}
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, &ValidationError{Reason: "image has zero dimension"}
	}

	aspect := float64(width) / float64(height)
	if c.MinAspect > 0 && aspect < c.MinAspect {
		return nil, &ValidationError{Reason: fmt.Sprintf("aspect ratio %.3f below minimum %.3f", aspect, c.MinAspect)}
	}
	if c.MaxAspect > 0 && aspect > c.MaxAspect {
		return nil, &ValidationError{Reason: fmt.Sprintf("aspect ratio %.3f above maximum %.3f", aspect, c.MaxAspect)}
	}

	// Within bounds and small enough, pass through untouched
	if c.MaxDimension <= 0 || (width <= c.MaxDimension && height <= c.MaxDimension) {
		return data, nil
	}

	resized := imaging.Fit(img, c.MaxDimension, c.MaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}
