package ingest

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/soundprint/soundprint/internal/progress"
)

// Status reports a Pool's current batch-ingest progress, polled the way
// the teacher's AnalysisStatus is polled by its HTTP layer.
type Status struct {
	State      string // "idle" | "running" | "paused" | "complete"
	Total      int
	Ingested   int
	Failed     int
	InProgress int
}

// PoolConfig configures the bounded ingest worker pool.
type PoolConfig struct {
	// MaxWorkers caps concurrency at min(MaxWorkers, NumCPU); <= 0 defaults
	// to NumCPU.
	MaxWorkers int
}

// Pool runs a bounded set of goroutines over a batch of file paths,
// calling Engine.IngestFile for each. Grounded on the teacher's Worker
// (internal/analysis/worker.go): job channel + bounded goroutine pool +
// pause/resume channels + atomic counters, generalized so there is no
// playback-aware throttle (soundprint has no player) but the same
// pause/resume/cancel shape is kept (SPEC_FULL §5).
type Pool struct {
	mu sync.Mutex

	maxWorkers int
	engine     *Engine
	log        *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
	isPaused  bool
	pauseChan chan struct{}
	resumeChan chan struct{}

	state string

	ingestedCount   int64
	failedCount     int64
	inProgressCount int64
	total           int64
}

// NewPool builds a Pool bound to engine. A zero/negative MaxWorkers
// resolves to runtime.NumCPU(), a larger one is capped at runtime.NumCPU(),
// and the result is floored at 1.
func NewPool(engine *Engine, cfg PoolConfig, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 || maxWorkers > runtime.NumCPU() {
		maxWorkers = runtime.NumCPU()
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Pool{
		maxWorkers: maxWorkers,
		engine:     engine,
		log:        log,
		state:      "idle",
		pauseChan:  make(chan struct{}),
		resumeChan: make(chan struct{}),
	}
}

// Run ingests every path in paths across the pool's bounded workers,
// emitting progress through emit. It blocks until every path has been
// processed, the context is cancelled, or Stop is called. Only one Run
// may be in flight at a time.
func (p *Pool) Run(ctx context.Context, paths []string, emit progress.Emitter) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return errPoolAlreadyRunning
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.isRunning = true
	p.isPaused = false
	p.state = "running"
	atomic.StoreInt64(&p.ingestedCount, 0)
	atomic.StoreInt64(&p.failedCount, 0)
	atomic.StoreInt64(&p.inProgressCount, 0)
	atomic.StoreInt64(&p.total, int64(len(paths)))
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.isRunning = false
		if p.state == "running" {
			p.state = "complete"
		}
		p.mu.Unlock()
	}()

	jobs := make(chan string, len(paths))
	for _, path := range paths {
		jobs <- path
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < p.maxWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.worker(workerID, jobs, emit)
		}(i)
	}
	wg.Wait()

	if err := p.ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (p *Pool) worker(id int, jobs <-chan string, emit progress.Emitter) {
	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		p.mu.Lock()
		paused := p.isPaused
		resumeChan := p.resumeChan
		p.mu.Unlock()

		if paused {
			select {
			case <-p.ctx.Done():
				return
			case <-resumeChan:
			}
		}

		path, ok := <-jobs
		if !ok {
			return
		}

		atomic.AddInt64(&p.inProgressCount, 1)
		_, err := p.engine.IngestFile(p.ctx, path, emit)
		atomic.AddInt64(&p.inProgressCount, -1)

		if err != nil {
			atomic.AddInt64(&p.failedCount, 1)
			p.log.Warn("ingest worker: file failed", zap.Int("worker", id), zap.String("path", path), zap.Error(err))
			continue
		}
		atomic.AddInt64(&p.ingestedCount, 1)
	}
}

// Pause suspends worker pickup of new jobs until Resume is called;
// in-flight jobs run to completion.
func (p *Pool) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isRunning || p.isPaused {
		return
	}
	p.isPaused = true
	p.state = "paused"
	close(p.pauseChan)
	p.pauseChan = make(chan struct{})
}

// Resume releases workers paused by Pause.
func (p *Pool) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isRunning || !p.isPaused {
		return
	}
	p.isPaused = false
	p.state = "running"
	close(p.resumeChan)
	p.resumeChan = make(chan struct{})
}

// Stop cancels the in-progress Run.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	p.isRunning = false
	p.state = "idle"
}

// IsRunning reports whether a Run is currently in progress.
func (p *Pool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isRunning
}

// Status reports the pool's current counters.
func (p *Pool) Status() Status {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()
	return Status{
		State:      state,
		Total:      int(atomic.LoadInt64(&p.total)),
		Ingested:   int(atomic.LoadInt64(&p.ingestedCount)),
		Failed:     int(atomic.LoadInt64(&p.failedCount)),
		InProgress: int(atomic.LoadInt64(&p.inProgressCount)),
	}
}

type poolError string

func (e poolError) Error() string { return string(e) }

const errPoolAlreadyRunning = poolError("ingest pool already running")
