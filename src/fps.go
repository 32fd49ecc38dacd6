package main

import "time"

// FPSCounter averages frames over one-second windows.
type FPSCounter struct {
	frames   int
	lastTime time.Time
	fps      float64
}

func NewFPSCounter() *FPSCounter {
	return &FPSCounter{lastTime: time.Now()}
}

func (f *FPSCounter) Update() {
	f.frames++
	if elapsed := time.Since(f.lastTime); elapsed >= time.Second {
		f.fps = float64(f.frames) / elapsed.Seconds()
		f.frames = 0
		f.lastTime = time.Now()
	}
}

func (f *FPSCounter) FPS() float64 {
	return f.fps
}
