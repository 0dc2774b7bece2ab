package mediaprep

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeTestImage produces JPEG bytes of the given dimensions
func encodeTestImage(t *testing.T, width, height int) []byte {
	t.Helper()

	img := imaging.New(width, height, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func TestValidateCount(t *testing.T) {
	c := Constraints{MinCount: 1, MaxCount: 10}

	assert.NoError(t, ValidateCount(1, c))
	assert.NoError(t, ValidateCount(10, c))

	err := ValidateCount(0, c)
	assert.True(t, IsValidationError(err))

	err = ValidateCount(11, c)
	assert.True(t, IsValidationError(err))
}

func TestPrepare_PassThroughWithinBounds(t *testing.T) {
	data := encodeTestImage(t, 400, 400)

	out, err := Prepare(data, Constraints{MinAspect: 0.8, MaxAspect: 1.91, MaxDimension: 1080})
	require.NoError(t, err)
	assert.Equal(t, data, out, "an in-bounds image must not be re-encoded")
}

func TestPrepare_AspectRatioViolations(t *testing.T) {
	c := Constraints{MinAspect: 0.8, MaxAspect: 1.91}

	// Too tall (aspect 0.25)
	_, err := Prepare(encodeTestImage(t, 100, 400), c)
	assert.True(t, IsValidationError(err))

	// Too wide (aspect 4.0)
	_, err = Prepare(encodeTestImage(t, 400, 100), c)
	assert.True(t, IsValidationError(err))
}

func TestPrepare_SizeLimit(t *testing.T) {
	data := encodeTestImage(t, 400, 400)

	_, err := Prepare(data, Constraints{MaxBytes: 10})
	assert.True(t, IsValidationError(err))
}

func TestPrepare_UndecodableInput(t *testing.T) {
	_, err := Prepare([]byte("definitely not an image"), Constraints{})
	assert.True(t, IsValidationError(err))
}

func TestPrepare_DownscalesOversizedImage(t *testing.T) {
	data := encodeTestImage(t, 2000, 1000)

	out, err := Prepare(data, Constraints{MaxDimension: 1000})
	require.NoError(t, err)
	assert.NotEqual(t, data, out)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.LessOrEqual(t, bounds.Dx(), 1000)
	assert.LessOrEqual(t, bounds.Dy(), 1000)

	// Aspect ratio preserved
	assert.Equal(t, image.Pt(1000, 500), image.Pt(bounds.Dx(), bounds.Dy()))
}
