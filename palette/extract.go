package palette

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"sort"

	"github.com/viant/cardindex/internal/kmeans"
	"golang.org/x/image/draw"
)

// ExtractFile reads and decodes the image at path.
func ExtractFile(path string, opts Options) (Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()
	p, err := Extract(f, opts)
	if de, ok := err.(*DecodeError); ok {
		de.Path = path
	}
	return p, err
}

// Extract decodes a PNG or JPEG stream.
func Extract(r io.Reader, opts Options) (Palette, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return FromImage(img, opts)
}

// FromImage computes the palette of a decoded image.
func FromImage(img image.Image, opts Options) (Palette, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	hist := histogram(sample(img, opts.SampleSize), opts.AlphaThreshold)
	if hist.total == 0 {
		return nil, ErrNoPixels
	}

	var clusters []cluster
	if len(hist.colors) <= opts.NumColors {
		clusters = make([]cluster, len(hist.colors))
		for i, c := range hist.colors {
			clusters[i] = cluster{center: c, count: hist.counts[i]}
		}
	} else {
		res, err := kmeans.Cluster(context.Background(), hist.colors, hist.counts, kmeans.Config{
			K:             opts.NumColors,
			MaxIterations: opts.MaxIterations,
			Epsilon:       opts.Epsilon,
			Restarts:      opts.Restarts,
			Seed:          opts.Seed,
		})
		if err != nil {
			return nil, fmt.Errorf("palette: %w", err)
		}
		for i, c := range res.Centroids {
			clusters = append(clusters, cluster{center: c, count: res.Counts[i]})
		}
	}
	return swatches(clusters, hist.total), nil
}

// sample downsamples img to size x size when it has more pixels than that.
func sample(img image.Image, size int) image.Image {
	b := img.Bounds()
	if b.Dx()*b.Dy() <= size*size {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

type colorHistogram struct {
	colors [][]float32
	counts []int
	total  int
}

// histogram counts unique opaque colors, ordered by packed RGB value so the
// clustering input does not depend on map iteration.
func histogram(img image.Image, alphaThreshold uint8) colorHistogram {
	b := img.Bounds()
	counts := make(map[uint32]int)
	total := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A < alphaThreshold {
				continue
			}
			counts[uint32(c.R)<<16|uint32(c.G)<<8|uint32(c.B)]++
			total++
		}
	}
	keys := make([]uint32, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	h := colorHistogram{total: total}
	for _, k := range keys {
		h.colors = append(h.colors, []float32{float32(k >> 16 & 0xff), float32(k >> 8 & 0xff), float32(k & 0xff)})
		h.counts = append(h.counts, counts[k])
	}
	return h
}
