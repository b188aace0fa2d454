package commands

import (
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWorkers is used when no positive worker count is configured.
const DefaultWorkers = 4

// channelQueue holds the pending jobs of one channel. Only one drain
// goroutine exists per queue, so jobs for a channel never overlap and run in
// submission order.
type channelQueue struct {
	jobs []func()
}

// Dispatcher runs jobs on a bounded pool while serialising them per channel.
// Safe for concurrent use.
type Dispatcher struct {
	mu     sync.Mutex
	queues map[string]*channelQueue // key: channelID
	closed bool

	sem chan struct{}
	wg  sync.WaitGroup

	handled atomic.Int64
	failed  atomic.Int64
}

// NewDispatcher creates a dispatcher running at most workers jobs at once.
// workers == 1 processes every command strictly one after another.
func NewDispatcher(workers int) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Dispatcher{
		queues: make(map[string]*channelQueue),
		sem:    make(chan struct{}, workers),
	}
}

// Workers returns the pool size.
func (d *Dispatcher) Workers() int {
	return cap(d.sem)
}

// Submit queues job behind any pending work for channelID. It returns false
// once the dispatcher is closed.
func (d *Dispatcher) Submit(channelID string, job func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		log.Printf("[dispatch] rejected job for channel=%s: dispatcher closed", channelID)
		return false
	}

	if q, ok := d.queues[channelID]; ok {
		q.jobs = append(q.jobs, job)
		return true
	}

	q := &channelQueue{jobs: []func(){job}}
	d.queues[channelID] = q
	d.wg.Add(1)
	go d.drain(channelID, q)
	return true
}

// Pending returns the number of queued or running jobs.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, q := range d.queues {
		n += len(q.jobs)
	}
	return n
}

// Stats returns basic observability counters.
func (d *Dispatcher) Stats() (handled, failed int64) {
	return d.handled.Load(), d.failed.Load()
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) drain(channelID string, q *channelQueue) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(q.jobs) == 0 {
			// Only delete if the map entry still points to this queue.
			if current, ok := d.queues[channelID]; ok && current == q {
				delete(d.queues, channelID)
			}
			d.mu.Unlock()
			return
		}
		job := q.jobs[0]
		d.mu.Unlock()

		d.sem <- struct{}{}
		d.run(channelID, job)
		<-d.sem

		d.mu.Lock()
		q.jobs = q.jobs[1:]
		d.mu.Unlock()
	}
}

func (d *Dispatcher) run(channelID string, job func()) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			d.failed.Add(1)
			log.Printf("[dispatch] job for channel=%s panicked: %v\n%s", channelID, rec, debug.Stack())
			return
		}
		d.handled.Add(1)
		log.Printf("[dispatch] channel=%s job done in %s", channelID, time.Since(start).Round(time.Millisecond))
	}()
	job()
}
