package palette

import (
	"fmt"
	"sort"
)

type cluster struct {
	center []float32
	count  int
}

// swatches converts clusters into an ordered palette. Empty clusters are
// dropped and clusters that truncate to the same hex are combined.
func swatches(clusters []cluster, total int) Palette {
	byHex := make(map[string]int)
	var hexes []string
	for _, c := range clusters {
		if c.count == 0 {
			continue
		}
		h := Hex(c.center)
		if _, ok := byHex[h]; !ok {
			hexes = append(hexes, h)
		}
		byHex[h] += c.count
	}
	sort.Slice(hexes, func(i, j int) bool {
		if byHex[hexes[i]] != byHex[hexes[j]] {
			return byHex[hexes[i]] > byHex[hexes[j]]
		}
		return hexes[i] < hexes[j]
	})

	counts := make([]int, len(hexes))
	for i, h := range hexes {
		counts[i] = byHex[h]
	}
	tenths := ratios(counts, total)

	p := make(Palette, len(hexes))
	for i, h := range hexes {
		p[i] = Swatch{Hex: h, Ratio: Ratio(float64(tenths[i]) / 10)}
	}
	sort.SliceStable(p, func(i, j int) bool {
		if p[i].Ratio != p[j].Ratio {
			return p[i].Ratio > p[j].Ratio
		}
		return p[i].Hex < p[j].Hex
	})
	return p
}

// Hex formats an RGB centroid as lowercase #rrggbb. Channels are clamped to
// [0,255] and truncated.
func Hex(center []float32) string {
	var rgb [3]uint8
	for i := 0; i < 3 && i < len(center); i++ {
		v := center[i]
		switch {
		case v != v || v < 0:
			v = 0
		case v > 255:
			v = 255
		}
		rgb[i] = uint8(v)
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}

// ratios returns each count's share of total in tenths of a percent,
// rounded half up. When rounding drifts the sum more than half a percent from
// 100 the shares are redistributed with apportion instead.
func ratios(counts []int, total int) []int {
	parts := make([]int, len(counts))
	if total == 0 {
		return parts
	}
	sum := 0
	for i, c := range counts {
		parts[i] = (2*c*1000 + total) / (2 * total)
		sum += parts[i]
	}
	if sum < 995 || sum > 1005 {
		return apportion(counts, total, 1000)
	}
	return parts
}

// apportion splits scale units across counts proportionally using the
// largest remainder method, so the parts always add up to scale. Equal
// remainders favour the earlier entry.
func apportion(counts []int, total, scale int) []int {
	parts := make([]int, len(counts))
	if total == 0 {
		return parts
	}
	type rem struct {
		i int
		r int
	}
	rems := make([]rem, len(counts))
	assigned := 0
	for i, c := range counts {
		q := c * scale
		parts[i] = q / total
		rems[i] = rem{i: i, r: q % total}
		assigned += parts[i]
	}
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].r > rems[b].r })
	for j := 0; assigned < scale && j < len(rems); j++ {
		parts[rems[j].i]++
		assigned++
	}
	return parts
}
