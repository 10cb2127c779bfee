// Package color derives presentation colors from artwork. Extraction
// is a pure function of the image: no state, no randomness on the
// primary path, so repeated runs over the same cover are byte-identical.
package color

import (
	"image"
	"sort"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/playhead-dev/playhead/internal/domain"
)

const (
	// Covers are downsampled to gridSize² and then sampled on a stride,
	// bounding extraction cost regardless of the original resolution.
	gridSize   = 50
	stride     = 5
	quantShift = 5 // 8 quantization levels per channel (256 >> 5)

	// PaletteSize is the number of gradient anchor colors produced.
	PaletteSize = 4

	// Near-black and near-white buckets make poor gradient anchors.
	minBrightness = 0.12
	maxBrightness = 0.92

	// Vibrancy boost applied to every returned color.
	saturationBoost = 1.25
	brightnessBoost = 1.10

	// Each padding color darkens the previous one by this factor.
	padDarken = 0.70
)

type bucket struct {
	key   uint32
	count int
	sumR  uint64
	sumG  uint64
	sumB  uint64
}

// Extract computes the dominant color and a gradient palette of up to
// PaletteSize entries for the image. Buckets are ranked by frequency
// with the bucket key as a deterministic tie-break; when fewer than
// PaletteSize buckets survive the brightness filter, the palette is
// padded with progressively darkened variants of the last survivor.
func Extract(img image.Image) (domain.Color, []domain.Color) {
	small := imaging.Resize(img, gridSize, gridSize, imaging.Lanczos)
	bounds := small.Bounds()

	counts := make(map[uint32]*bucket)
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			r, g, b, a := small.At(x, y).RGBA()
			if a < 0x8000 {
				continue
			}
			r8 := uint8(r >> 8)
			g8 := uint8(g >> 8)
			b8 := uint8(b >> 8)
			key := (uint32(r8>>quantShift) << 6) | (uint32(g8>>quantShift) << 3) | uint32(b8>>quantShift)
			bk, ok := counts[key]
			if !ok {
				bk = &bucket{key: key}
				counts[key] = bk
			}
			bk.count++
			bk.sumR += uint64(r8)
			bk.sumG += uint64(g8)
			bk.sumB += uint64(b8)
		}
	}

	ranked := make([]*bucket, 0, len(counts))
	for _, bk := range counts {
		ranked = append(ranked, bk)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].key < ranked[j].key
	})

	var palette []domain.Color
	for _, bk := range ranked {
		if len(palette) == PaletteSize {
			break
		}
		c := domain.Color{
			R: uint8(bk.sumR / uint64(bk.count)),
			G: uint8(bk.sumG / uint64(bk.count)),
			B: uint8(bk.sumB / uint64(bk.count)),
		}
		bright := (float64(c.R) + float64(c.G) + float64(c.B)) / 3 / 255
		if bright < minBrightness || bright > maxBrightness {
			continue
		}
		palette = append(palette, boost(c))
	}

	if len(palette) == 0 {
		// Every bucket was near-black or near-white. Fall back to
		// k-means clustering for a usable dominant color.
		dominant := kmeansFallback(img)
		palette = pad([]domain.Color{dominant})
		return palette[0], palette
	}

	palette = pad(palette)
	return palette[0], palette
}

// Mean returns the arithmetic mean of all pixels with the standard
// vibrancy boost applied. Cheaper than Extract for single-color use.
func Mean(img image.Image) domain.Color {
	bounds := img.Bounds()
	var sumR, sumG, sumB, n uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			if a < 0x8000 {
				continue
			}
			sumR += uint64(r >> 8)
			sumG += uint64(g >> 8)
			sumB += uint64(b >> 8)
			n++
		}
	}
	if n == 0 {
		return domain.Color{}
	}
	return boost(domain.Color{
		R: uint8(sumR / n),
		G: uint8(sumG / n),
		B: uint8(sumB / n),
	})
}

// pad extends the palette to PaletteSize by repeatedly darkening the
// last entry, so gradients always have enough anchors.
func pad(palette []domain.Color) []domain.Color {
	for len(palette) < PaletteSize {
		last := palette[len(palette)-1]
		c, _ := colorful.MakeColor(toRGBA(last))
		h, s, v := c.Hsv()
		palette = append(palette, fromColorful(colorful.Hsv(h, s, v*padDarken)))
	}
	return palette
}

// boost raises saturation and brightness by fixed multipliers, clamped
// to the valid range, for visual vibrancy against dark backgrounds.
func boost(c domain.Color) domain.Color {
	cf, ok := colorful.MakeColor(toRGBA(c))
	if !ok {
		return c
	}
	h, s, v := cf.Hsv()
	s *= saturationBoost
	if s > 1 {
		s = 1
	}
	v *= brightnessBoost
	if v > 1 {
		v = 1
	}
	return fromColorful(colorful.Hsv(h, s, v))
}

func kmeansFallback(img image.Image) domain.Color {
	items, err := prominentcolor.Kmeans(img)
	if err != nil || len(items) == 0 {
		return Mean(img)
	}
	c := items[0].Color
	return boost(domain.Color{R: uint8(c.R), G: uint8(c.G), B: uint8(c.B)})
}

type rgba struct{ c domain.Color }

func (r rgba) RGBA() (uint32, uint32, uint32, uint32) {
	return uint32(r.c.R) * 0x101, uint32(r.c.G) * 0x101, uint32(r.c.B) * 0x101, 0xffff
}

func toRGBA(c domain.Color) rgba { return rgba{c} }

func fromColorful(c colorful.Color) domain.Color {
	r, g, b := c.Clamped().RGB255()
	return domain.Color{R: r, G: g, B: b}
}
