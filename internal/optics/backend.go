package optics

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/config"
	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/monitoring"
)

// Backend is the numeric execution abstraction for the reconstruction
// pipeline. All heavy transforms go through a single backend selected once
// at setup, so there is no per-call CPU/accelerator branching.
//
// Implementations must be safe for concurrent use: the per-distance
// propagation loop calls FFT2/IFFT2 from multiple workers.
type Backend interface {
	Name() string
	// FFT2 computes the unnormalized forward 2D transform in place.
	FFT2(f *Field)
	// IFFT2 computes the normalized inverse 2D transform in place, so
	// IFFT2(FFT2(x)) == x up to floating-point error.
	IFFT2(f *Field)
}

var (
	backendMu   sync.RWMutex
	accelerated Backend
)

// RegisterAccelerated installs an accelerated backend implementation.
// Typically called from an init() guarded by a build tag. The registered
// backend must match the default backend within floating-point tolerance.
func RegisterAccelerated(b Backend) {
	backendMu.Lock()
	defer backendMu.Unlock()
	accelerated = b
}

// SelectBackend resolves an acceleration mode (config.AccelOff/On/Auto) into
// a concrete backend. A requested accelerated backend that is unavailable
// falls back to the default path; the fallback is logged, never surfaced as
// an error.
func SelectBackend(mode string) Backend {
	backendMu.RLock()
	acc := accelerated
	backendMu.RUnlock()

	switch mode {
	case config.AccelOn, config.AccelAuto:
		if acc != nil {
			monitoring.Infof("optics: using accelerated backend %q", acc.Name())
			return acc
		}
		if mode == config.AccelOn {
			monitoring.Infof("optics: accelerated backend requested but unavailable, falling back to gonum")
		}
		return newGonumBackend()
	default:
		return newGonumBackend()
	}
}

// gonumBackend implements Backend with gonum's complex FFT, applying 1D
// transforms along rows then columns. Plan instances carry internal scratch
// state and are not concurrency-safe, so they are pooled per length and each
// FFT2/IFFT2 call checks out its own.
type gonumBackend struct {
	mu    sync.Mutex
	pools map[int]*sync.Pool
}

func newGonumBackend() *gonumBackend {
	return &gonumBackend{pools: make(map[int]*sync.Pool)}
}

func (b *gonumBackend) Name() string { return "gonum" }

func (b *gonumBackend) pool(n int) *sync.Pool {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pools[n]
	if !ok {
		p = &sync.Pool{New: func() interface{} { return fourier.NewCmplxFFT(n) }}
		b.pools[n] = p
	}
	return p
}

func (b *gonumBackend) FFT2(f *Field) { b.transform2(f, false) }

func (b *gonumBackend) IFFT2(f *Field) {
	b.transform2(f, true)
	scale := complex(1.0/float64(f.W*f.H), 0)
	for i := range f.Data {
		f.Data[i] *= scale
	}
}

// transform2 runs the separable 2D transform: rows first, then columns.
func (b *gonumBackend) transform2(f *Field, inverse bool) {
	rowPool := b.pool(f.W)
	rowPlan := rowPool.Get().(*fourier.CmplxFFT)
	rowScratch := make([]complex128, f.W)
	for y := 0; y < f.H; y++ {
		row := f.Data[y*f.W : (y+1)*f.W]
		transform1(rowPlan, row, rowScratch, inverse)
	}
	rowPool.Put(rowPlan)

	colPool := b.pool(f.H)
	colPlan := colPool.Get().(*fourier.CmplxFFT)
	colIn := make([]complex128, f.H)
	colScratch := make([]complex128, f.H)
	for x := 0; x < f.W; x++ {
		for y := 0; y < f.H; y++ {
			colIn[y] = f.Data[y*f.W+x]
		}
		transform1(colPlan, colIn, colScratch, inverse)
		for y := 0; y < f.H; y++ {
			f.Data[y*f.W+x] = colIn[y]
		}
	}
	colPool.Put(colPlan)
}

// transform1 applies the 1D transform to seq in place via scratch.
func transform1(plan *fourier.CmplxFFT, seq, scratch []complex128, inverse bool) {
	if inverse {
		plan.Sequence(scratch, seq)
	} else {
		plan.Coefficients(scratch, seq)
	}
	copy(seq, scratch)
}
