package main

import "testing"

func TestPlasmaFillsOpaquePixels(t *testing.T) {
	const w, h = 8, 4
	px := make([]uint32, w*h)
	plasma(px, w, h, 1.5)
	for i, p := range px {
		if p>>24 != 0xff {
			t.Fatalf("pixel %d alpha = %#x, want 0xff", i, p>>24)
		}
	}
	if px[0] == px[w*h-1] && px[1] == px[w] {
		t.Error("pattern is flat")
	}
}

func TestChannelClamps(t *testing.T) {
	cases := map[float64]uint8{-1: 0, 0: 0, 0.5: 128, 1: 255, 2: 255}
	for in, want := range cases {
		if got := channel(in); got != want {
			t.Errorf("channel(%v) = %d, want %d", in, got, want)
		}
	}
}
