package queue

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when the queue is at capacity
	ErrQueueFull = errors.New("queue is full")

	// ErrQueueClosed is returned when operations are attempted on a closed queue
	ErrQueueClosed = errors.New("queue is closed")
)

// Priority orders pending tasks. Higher priorities run first; equal
// priorities run in submission order.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

// Task is a unit of work. It receives the context it was submitted with.
type Task func(ctx context.Context) error

// Queue runs submitted tasks sequentially on a single worker.
type Queue struct {
	items   priorityQueue
	maxSize int
	seq     uint64

	// Synchronization
	mu       sync.Mutex
	notEmpty *sync.Cond

	// State
	closed bool
	stats  Stats
	done   chan struct{}
}

// Stats tracks queue performance metrics
type Stats struct {
	TotalSubmitted    int64
	TotalCompleted    int64
	TotalFailed       int64
	TotalDropped      int64
	HighPriorityCount int64
	CurrentSize       int
	PeakSize          int
	LastSubmit        time.Time
	LastComplete      time.Time
	AverageWaitTime   time.Duration
}

// New creates a queue holding at most maxSize pending tasks and starts its
// worker. A non-positive maxSize means unbounded.
func New(maxSize int) *Queue {
	q := &Queue{
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	heap.Init(&q.items)
	q.notEmpty = sync.NewCond(&q.mu)

	go q.run()

	return q
}

// Submit enqueues a task and returns a channel receiving its result. The
// task is skipped with the context error if ctx ends before it starts.
func (q *Queue) Submit(ctx context.Context, priority Priority, task Task) (<-chan error, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}
	if q.maxSize > 0 && q.items.Len() >= q.maxSize {
		q.stats.TotalDropped++
		return nil, ErrQueueFull
	}

	result := make(chan error, 1)
	q.seq++
	heap.Push(&q.items, &queueItem{
		ctx:       ctx,
		task:      task,
		result:    result,
		priority:  priority,
		seq:       q.seq,
		submitted: time.Now(),
	})

	q.stats.TotalSubmitted++
	if priority > PriorityNormal {
		q.stats.HighPriorityCount++
	}
	q.stats.LastSubmit = time.Now()
	q.stats.CurrentSize = q.items.Len()
	if q.stats.CurrentSize > q.stats.PeakSize {
		q.stats.PeakSize = q.stats.CurrentSize
	}

	q.notEmpty.Signal()
	return result, nil
}

// Do submits a task at normal priority and waits for it to finish.
func (q *Queue) Do(ctx context.Context, task Task) error {
	result, err := q.Submit(ctx, PriorityNormal, task)
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size returns the number of pending tasks.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// GetStats returns current queue statistics.
func (q *Queue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	stats := q.stats
	stats.CurrentSize = q.items.Len()
	return stats
}

// Close stops accepting tasks, fails pending ones with ErrQueueClosed and
// waits for the running task to finish.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return nil
	}
	q.closed = true
	for q.items.Len() > 0 {
		item := heap.Pop(&q.items).(*queueItem)
		item.result <- ErrQueueClosed
		q.stats.TotalDropped++
	}
	q.notEmpty.Broadcast()
	q.mu.Unlock()

	<-q.done
	return nil
}

// run is the single worker loop.
func (q *Queue) run() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for q.items.Len() == 0 && !q.closed {
			q.notEmpty.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		item := heap.Pop(&q.items).(*queueItem)
		q.stats.CurrentSize = q.items.Len()
		wait := time.Since(item.submitted)
		q.mu.Unlock()

		err := item.ctx.Err()
		if err == nil {
			err = safeRun(item.ctx, item.task)
		}
		item.result <- err

		q.mu.Lock()
		if err != nil {
			q.stats.TotalFailed++
		} else {
			q.stats.TotalCompleted++
		}
		n := q.stats.TotalCompleted + q.stats.TotalFailed
		q.stats.AverageWaitTime = time.Duration(
			(int64(q.stats.AverageWaitTime)*(n-1) + int64(wait)) / n,
		)
		q.stats.LastComplete = time.Now()
		q.mu.Unlock()
	}
}

// ErrTaskPanicked is returned for a task that panicked.
var ErrTaskPanicked = errors.New("task panicked")

func safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrTaskPanicked
		}
	}()
	return task(ctx)
}

// Priority queue implementation using a heap
type queueItem struct {
	ctx       context.Context
	task      Task
	result    chan error
	priority  Priority
	seq       uint64
	submitted time.Time
	index     int // Index in the heap
}

type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	// Higher priority items come first
	if pq[i].priority != pq[j].priority {
		return pq[i].priority > pq[j].priority
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	n := len(*pq)
	item := x.(*queueItem)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	item.index = -1 // For safety
	*pq = old[0 : n-1]
	return item
}
