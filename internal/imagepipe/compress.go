// Package imagepipe comprime as fotos enviadas e as grava no armazenamento de objetos.
package imagepipe

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"strings"

	// Decodificadores registrados em image.Decode
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"

	apperror "sitetrack/internal/errors"
)

const (
	minQuality   = 40
	qualityStep  = 10
	shrinkFactor = 0.75
	minDimension = 64
)

// File é uma imagem em memória.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Options controla a compressão.
type Options struct {
	MaxBytes       int
	MaxDimension   int
	InitialQuality int
}

func DefaultOptions() Options {
	return Options{MaxBytes: 2 << 20, MaxDimension: 2048, InitialQuality: 80}
}

// Compress decodifica a imagem, aplica a orientação EXIF nos pixels (os metadados
// não sobrevivem à recodificação), limita a maior dimensão e recodifica em JPEG
// reduzindo primeiro a qualidade e depois as dimensões até caber em MaxBytes.
// O resultado depende apenas da entrada e das opções.
func Compress(f File, opts Options) (File, error) {
	if len(f.Data) == 0 {
		return File{}, apperror.NewCompressionError(f.Name+": arquivo vazio", nil)
	}

	src, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return File{}, apperror.NewCompressionError(f.Name+": formato de imagem não reconhecido", err)
	}

	img := orient(src, readOrientation(f.Data))
	img = fit(img, opts.MaxDimension)

	quality := opts.InitialQuality
	if quality <= 0 || quality > 100 {
		quality = DefaultOptions().InitialQuality
	}

	var buf bytes.Buffer
	for {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return File{}, apperror.NewCompressionError(f.Name+": falha ao codificar JPEG", err)
		}
		if opts.MaxBytes <= 0 || buf.Len() <= opts.MaxBytes {
			break
		}
		if quality > minQuality {
			quality = max(quality-qualityStep, minQuality)
			continue
		}
		b := img.Bounds()
		w, h := int(float64(b.Dx())*shrinkFactor), int(float64(b.Dy())*shrinkFactor)
		if w < minDimension || h < minDimension {
			// Menor tamanho alcançável; entregamos o melhor esforço.
			break
		}
		img = scale(img, w, h)
	}

	return File{
		Name:        jpegName(f.Name),
		ContentType: "image/jpeg",
		Data:        bytes.Clone(buf.Bytes()),
	}, nil
}

func jpegName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	return base + ".jpg"
}

// readOrientation lê a tag Orientation; sem EXIF, retorna 1 (normal).
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// orient aplica a transformação EXIF (1 a 8) e devolve uma imagem RGBA com fundo branco.
func orient(src image.Image, orientation int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	dw, dh := w, h
	if orientation >= 5 {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	if orientation == 1 {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
		return dst
	}
	flat := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(flat, flat.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), src, b.Min, draw.Over)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch orientation {
			case 2:
				dx, dy = w-1-x, y
			case 3:
				dx, dy = w-1-x, h-1-y
			case 4:
				dx, dy = x, h-1-y
			case 5:
				dx, dy = y, x
			case 6:
				dx, dy = h-1-y, x
			case 7:
				dx, dy = h-1-y, w-1-x
			case 8:
				dx, dy = y, w-1-x
			default:
				dx, dy = x, y
			}
			dst.SetRGBA(dx, dy, flat.RGBAAt(x, y))
		}
	}
	return dst
}

// fit reduz a imagem para que a maior dimensão não passe de maxDim.
func fit(img *image.RGBA, maxDim int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}
	if w >= h {
		return scale(img, maxDim, max(1, h*maxDim/w))
	}
	return scale(img, max(1, w*maxDim/h), maxDim)
}

func scale(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
