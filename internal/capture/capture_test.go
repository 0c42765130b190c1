package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"
)

// checker returns a w x h RGBA framebuffer with alternating red and blue
// pixels.
func checker(w, h int) []byte {
	pix := make([]byte, w*h*4)
	for y := range h {
		for x := range w {
			i := (y*w + x) * 4
			if (x+y)%2 == 0 {
				pix[i] = 255
			} else {
				pix[i+2] = 255
			}
			pix[i+3] = 255
		}
	}
	return pix
}

func TestFormatFor(t *testing.T) {
	f, err := FormatFor("out/frame.PNG")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)

	f, err = FormatFor("frame.webp")
	require.NoError(t, err)
	assert.Equal(t, FormatWebP, f)

	_, err = FormatFor("frame.jpg")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFromRGBA(t *testing.T) {
	img, err := FromRGBA(checker(4, 2), 4, 2)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), img.Bounds())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(1, 0))

	_, err = FromRGBA(make([]byte, 10), 4, 2)
	assert.Error(t, err)
	_, err = FromRGBA(nil, 0, 2)
	assert.Error(t, err)
}

func TestScale(t *testing.T) {
	img, err := FromRGBA(checker(8, 6), 8, 6)
	require.NoError(t, err)

	assert.Same(t, img, Scale(img, 1))

	half := Scale(img, 0.5)
	assert.Equal(t, image.Rect(0, 0, 4, 3), half.Bounds())

	double := Scale(img, 2)
	assert.Equal(t, image.Rect(0, 0, 16, 12), double.Bounds())
}

func TestWriteFilePNG(t *testing.T) {
	img, err := FromRGBA(checker(4, 4), 4, 4)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "frame.png")
	require.NoError(t, WriteFile(path, img))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	r, _, _, _ := decoded.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestWriteFileWebP(t *testing.T) {
	img, err := FromRGBA(checker(4, 4), 4, 4)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "frame.webp")
	require.NoError(t, WriteFile(path, img))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := webp.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	_, _, b, _ := decoded.At(1, 0).RGBA()
	assert.Equal(t, uint32(0xffff), b, "lossless encoding keeps exact pixels")
}

func TestWriteFileUnsupported(t *testing.T) {
	img, err := FromRGBA(checker(1, 1), 1, 1)
	require.NoError(t, err)
	err = WriteFile(filepath.Join(t.TempDir(), "frame.gif"), img)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
