package worker

import (
	"errors"
	"sync"

	"github.com/nimasrn/store-ledger/pkg/logger"
)

var ErrStopped = errors.New("workers terminated")

type WorkerHandler = func(workerIndex int, job interface{})

type WorkerManager struct {
	bufferSize     int
	jobChannel     chan interface{}
	numberOfWorker int
	quit           chan struct{}
	quitOnce       sync.Once
	do             WorkerHandler
	waiter         *sync.WaitGroup
}

// NewWorkerManager builds a fixed pool of goroutines reading from one job
// channel. A nil jobChannel gets a buffered channel of bufferSize. An external
// channel is never closed by the manager since other producers may share it.
func NewWorkerManager(bufferSize, numberOfWorkers int, jobChannel chan interface{}) *WorkerManager {
	if jobChannel == nil {
		jobChannel = make(chan interface{}, bufferSize)
	}
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}

	return &WorkerManager{
		bufferSize:     bufferSize,
		numberOfWorker: numberOfWorkers,
		jobChannel:     jobChannel,
		quit:           make(chan struct{}),
		waiter:         &sync.WaitGroup{},
	}
}

func (w *WorkerManager) GetUnreadCount() int64 {
	return int64(len(w.jobChannel))
}

func (w *WorkerManager) Size() int {
	return w.numberOfWorker
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Enqueue blocks while the buffer is full. It returns false once the pool
// has been told to exit.
func (w *WorkerManager) Enqueue(val interface{}) bool {
	select {
	case <-w.quit:
		return false
	default:
	}
	select {
	case w.jobChannel <- val:
		return true
	case <-w.quit:
		return false
	}
}

// Start runs the workers and blocks until Exit is called.
func (w *WorkerManager) Start() error {
	if w.do == nil {
		return errors.New("worker handler is not set")
	}
	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case job := <-w.jobChannel:
					w.do(index, job)
				case <-w.quit:
					return
				}
			}
		}(i)
	}
	w.waiter.Wait()

	return ErrStopped
}

// Exit stops every worker after its current job. Jobs still buffered are
// dropped. Safe to call more than once.
func (w *WorkerManager) Exit() {
	w.quitOnce.Do(func() {
		logger.Info("[worker] exit requested", "workers", w.numberOfWorker, "unread", len(w.jobChannel))
		close(w.quit)
	})
}
