package weave

import (
	"runtime"
	"sync"
)

// Dispatcher runs lifecycle steps submitted by the engine.
type Dispatcher interface {
	Submit(func())
	Stop()
}

// goroutineDispatcher runs every submitted step on its own goroutine.
type goroutineDispatcher struct{}

func (goroutineDispatcher) Submit(fn func()) {
	go fn()
}

func (goroutineDispatcher) Stop() {}

// NewWorkerPoolDispatcher returns a Dispatcher that runs widget lifecycle
// steps on a fixed number of workers, bounding how many Start or Stop calls
// are in flight at once. If size is zero or negative, GOMAXPROCS workers are
// used. Steps submitted after Stop run on their own goroutine so that late
// unweaves still settle.
func NewWorkerPoolDispatcher(size int) Dispatcher {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
		if size <= 0 {
			size = 1
		}
	}

	pool := &workerPoolDispatcher{
		steps: make(chan func(), size*2),
	}
	pool.wg.Add(size)
	for i := 0; i < size; i++ {
		go pool.worker()
	}
	return pool
}

type workerPoolDispatcher struct {
	steps chan func()
	wg    sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func (d *workerPoolDispatcher) worker() {
	defer d.wg.Done()
	for step := range d.steps {
		step()
	}
}

func (d *workerPoolDispatcher) Submit(step func()) {
	if step == nil {
		return
	}
	d.mu.RLock()
	if d.stopped {
		d.mu.RUnlock()
		go step()
		return
	}
	d.steps <- step
	d.mu.RUnlock()
}

func (d *workerPoolDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.steps)
	d.mu.Unlock()
	d.wg.Wait()
}
