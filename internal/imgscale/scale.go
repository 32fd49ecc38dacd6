// Package imgscale resizes pixel buffers with bilinear filtering, spreading
// destination rows over a pool of workers.
//
// Workers claim rows from a shared counter, so each row is written by
// exactly one worker and the result does not depend on the thread count.
package imgscale

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

var (
	ErrWorkerPanic = errors.New("imgscale: worker panicked")
	ErrClosed      = errors.New("imgscale: scaler closed")
)

// Option configures a Scaler.
type Option func(s *Scaler)

// WithRowHook calls fn after every finished destination row. fn runs on
// worker goroutines and must be safe for concurrent use.
func WithRowHook(fn func(row int)) Option {
	return func(s *Scaler) {
		s.rowHook = fn
	}
}

// WithLogger sets the logger for per-call diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scaler) {
		if l != nil {
			s.log = l
		}
	}
}

// Scaler owns a worker pool that is reused across Scale calls.
type Scaler struct {
	pool    worker.DynamicWorkerPool
	threads int
	rowHook func(row int)
	log     *slog.Logger

	mu     sync.Mutex
	nextID int
	closed bool
}

// NewScaler creates a scaler with threads workers; values below 1 mean 1.
func NewScaler(threads int, opts ...Option) *Scaler {
	if threads < 1 {
		threads = 1
	}
	s := &Scaler{
		threads: threads,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pool = worker.NewDynamicWorkerPool(threads, threads, 1*time.Second)
	return s
}

// Threads is the number of workers a Scale call fans out to.
func (s *Scaler) Threads() int { return s.threads }

// shared holds one Scaler per thread count for the package-level helpers.
var shared sync.Map

func sharedScaler(threads int) *Scaler {
	threads = max(threads, 1)
	if s, ok := shared.Load(threads); ok {
		return s.(*Scaler)
	}
	s := NewScaler(threads)
	if prev, loaded := shared.LoadOrStore(threads, s); loaded {
		s.Close()
		return prev.(*Scaler)
	}
	return s
}

// Scale resizes src on a shared Scaler with the given thread count. The
// shared scalers live for the rest of the process.
func Scale(src Buffer, dstW, dstH, threads int) (Buffer, error) {
	return sharedScaler(threads).Scale(src, dstW, dstH)
}

// ScaleRGBA scales img to w by h.
func ScaleRGBA(img *image.RGBA, w, h, threads int) (*image.RGBA, error) {
	out, err := Scale(FromImage(img), w, h, threads)
	if err != nil {
		return nil, err
	}
	return out.RGBA(), nil
}

// Scale returns src resized to dstW by dstH. It blocks until every row has
// been written. A panic in any worker fails the call with ErrWorkerPanic.
func (s *Scaler) Scale(src Buffer, dstW, dstH int) (Buffer, error) {
	if err := src.validate(); err != nil {
		return Buffer{}, err
	}
	if dstW <= 0 || dstH <= 0 {
		return Buffer{}, fmt.Errorf("imgscale: invalid destination size %dx%d", dstW, dstH)
	}

	if s.isClosed() {
		return Buffer{}, ErrClosed
	}

	dst := NewBuffer(dstW, dstH, src.Channels)
	start := time.Now()

	var (
		next   atomic.Int64
		failed atomic.Value
		wg     sync.WaitGroup
	)
	for i := 0; i < s.threads; i++ {
		wg.Add(1)
		s.pool.SubmitTask(worker.Task{
			ID: s.taskID(),
			Do: func() (any, error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						failed.CompareAndSwap(nil, fmt.Sprint(r))
						// Drain the counter so other workers stop early.
						next.Store(int64(dstH))
					}
				}()
				for {
					y := int(next.Add(1) - 1)
					if y >= dstH {
						return nil, nil
					}
					scaleRow(src, dst, y)
					if s.rowHook != nil {
						s.rowHook(y)
					}
				}
			},
		})
	}
	wg.Wait()

	if v := failed.Load(); v != nil {
		return Buffer{}, fmt.Errorf("%w: %v", ErrWorkerPanic, v)
	}
	s.log.Debug("image scaled",
		"from", fmt.Sprintf("%dx%d", src.Width, src.Height),
		"to", fmt.Sprintf("%dx%d", dstW, dstH),
		"threads", s.threads,
		"elapsed", time.Since(start))
	return dst, nil
}

// Close ends every worker goroutine and waits for them to finish their
// current task. Scale fails with ErrClosed afterwards. Close must not run
// concurrently with Scale.
func (s *Scaler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	// A worker stops after its exit task, so each worker takes exactly one.
	var wg sync.WaitGroup
	for i := 0; i < s.threads; i++ {
		wg.Add(1)
		s.pool.SubmitTask(worker.Task{
			ID: s.taskID(),
			Do: func() (any, error) {
				wg.Done()
				runtime.Goexit()
				return nil, nil
			},
		})
	}
	wg.Wait()
	s.pool.Stop()
	s.log.Debug("scaler closed", "threads", s.threads)
}

func (s *Scaler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Scaler) taskID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// scaleRow fills destination row y. Source coordinates are dst/scale with
// the right and bottom neighbours clamped to the last pixel.
func scaleRow(src, dst Buffer, y int) {
	scaleX := float32(dst.Width) / float32(src.Width)
	scaleY := float32(dst.Height) / float32(src.Height)

	sy := float32(y) / scaleY
	y0 := min(int(sy), src.Height-1)
	y1 := min(y0+1, src.Height-1)
	fy := sy - float32(y0)
	if fy > 1 {
		fy = 1
	}

	ch := src.Channels
	row0 := y0 * src.Width * ch
	row1 := y1 * src.Width * ch
	out := dst.Pix[y*dst.Width*ch : (y+1)*dst.Width*ch]

	for x := 0; x < dst.Width; x++ {
		sx := float32(x) / scaleX
		x0 := min(int(sx), src.Width-1)
		x1 := min(x0+1, src.Width-1)
		fx := sx - float32(x0)
		if fx > 1 {
			fx = 1
		}

		for c := 0; c < ch; c++ {
			p00 := float32(src.Pix[row0+x0*ch+c])
			p10 := float32(src.Pix[row0+x1*ch+c])
			p01 := float32(src.Pix[row1+x0*ch+c])
			p11 := float32(src.Pix[row1+x1*ch+c])

			top := (1-fx)*p00 + fx*p10
			bottom := (1-fx)*p01 + fx*p11
			v := (1-fy)*top + fy*bottom + 0.5
			if v > 255 {
				v = 255
			}
			out[x*ch+c] = uint8(v)
		}
	}
}
