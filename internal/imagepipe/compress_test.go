package imagepipe

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperror "sitetrack/internal/errors"
)

func pngBytes(t *testing.T, w, h int, noisy bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rng := rand.New(rand.NewSource(1))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255}
			if noisy {
				c = color.RGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompress_LimitsDimension(t *testing.T) {
	f := File{Name: "obra.png", ContentType: "image/png", Data: pngBytes(t, 400, 200, false)}

	out, err := Compress(f, Options{MaxBytes: 1 << 20, MaxDimension: 100, InitialQuality: 80})
	require.NoError(t, err)

	assert.Equal(t, "obra.jpg", out.Name)
	assert.Equal(t, "image/jpeg", out.ContentType)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestCompress_ReachesByteLimit(t *testing.T) {
	f := File{Name: "ruido.png", Data: pngBytes(t, 512, 512, true)}
	opts := Options{MaxBytes: 40 << 10, MaxDimension: 2048, InitialQuality: 90}

	out, err := Compress(f, opts)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out.Data), opts.MaxBytes)

	again, err := Compress(f, opts)
	require.NoError(t, err)
	assert.Equal(t, out.Data, again.Data, "compressão determinística")
}

func TestCompress_MalformedInput(t *testing.T) {
	_, err := Compress(File{Name: "x.jpg", Data: []byte("não é imagem")}, DefaultOptions())
	assert.IsType(t, &apperror.CompressionError{}, err)

	_, err = Compress(File{Name: "vazio.jpg"}, DefaultOptions())
	assert.IsType(t, &apperror.CompressionError{}, err)
}

func TestOrient(t *testing.T) {
	// 2x1: vermelho à esquerda, azul à direita.
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	src.SetRGBA(0, 0, red)
	src.SetRGBA(1, 0, blue)

	rotated := orient(src, 6) // 90° horário
	assert.Equal(t, image.Rect(0, 0, 1, 2), rotated.Bounds())
	assert.Equal(t, red, rotated.RGBAAt(0, 0))
	assert.Equal(t, blue, rotated.RGBAAt(0, 1))

	mirrored := orient(src, 2)
	assert.Equal(t, blue, mirrored.RGBAAt(0, 0))

	ccw := orient(src, 8)
	assert.Equal(t, blue, ccw.RGBAAt(0, 0))
	assert.Equal(t, red, ccw.RGBAAt(0, 1))
}

func TestReadOrientation_WithoutExif(t *testing.T) {
	assert.Equal(t, 1, readOrientation(pngBytes(t, 2, 2, false)))
}
