package main

import (
	"math"

	"go-quad-batch/internal/render2d"
)

// plasma fills px, a w by h image, with an animated interference pattern.
func plasma(px []uint32, w, h int, t float64) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := math.Sin(float64(x)*0.3+t) + math.Sin(float64(y)*0.2-t) + math.Sin(float64(x+y)*0.15+t*0.5)
			v = (v + 3) / 6
			px[y*w+x] = render2d.PackRGBA(
				channel(v),
				channel(1-v),
				channel(0.5+0.5*math.Sin(v*math.Pi*2+t)),
				255)
		}
	}
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
