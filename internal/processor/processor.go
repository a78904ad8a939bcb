package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nimasrn/store-ledger/internal/queue"
	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/nimasrn/store-ledger/pkg/redis"
	"github.com/nimasrn/store-ledger/pkg/worker"
)

const (
	ProcessingTimeout = time.Second * 5
	HealthInterval    = time.Second * 30
	ReportInterval    = time.Second * 30
	ShutdownTimeout   = time.Minute

	// pending entries above this are reported as consumer lag
	lagWarnThreshold = 10_000
)

// Processor handles one decoded stream message. A nil error acks it.
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

type Options struct {
	Queue     queue.QueueConfig
	Consumers int
	Workers   int
}

// ProcessorService reads the alert stream with several consumers in one
// group and hands each message to a worker pool. A consumer waits for its
// worker's result so the ack decision stays with the queue.
type ProcessorService struct {
	adapter   redis.RedisAdapter
	processor Processor
	opts      Options
	queues    []*queue.Queue
	stats     *serviceStats
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	worker    *worker.WorkerManager
}

func NewProcessorService(adapter redis.RedisAdapter, processor Processor, opts Options) (*ProcessorService, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if opts.Consumers < 1 {
		opts.Consumers = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ProcessorService{
		adapter:   adapter,
		processor: processor,
		opts:      opts,
		stats:     newServiceStats(),
		ctx:       ctx,
		cancel:    cancel,
		worker:    worker.NewWorkerManager(opts.Workers*4, opts.Workers, nil),
	}, nil
}

func (s *ProcessorService) Start() error {
	logger.Info("[processor] starting", "type", s.processor.GetType(), "queue", s.opts.Queue.Name)

	s.worker.SetWorker(s.workerHandler)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(); err != nil {
			logger.Info("[processor] worker pool stopped", "reason", err)
		}
	}()

	baseName := s.opts.Queue.ConsumerName
	if baseName == "" {
		baseName = fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	}
	for i := 0; i < s.opts.Consumers; i++ {
		cfg := s.opts.Queue
		cfg.ConsumerName = fmt.Sprintf("%s-%d", baseName, i)

		q, err := queue.NewQueue(s.adapter, cfg)
		if err != nil {
			return fmt.Errorf("failed to create queue %d: %w", i, err)
		}
		if err := q.Consume(s.messageHandler); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}
		s.queues = append(s.queues, q)
	}

	s.wg.Add(2)
	go s.every(ReportInterval, s.reportMetrics)
	go s.every(HealthInterval, s.performHealthCheck)

	logger.Info("[processor] started", "consumers", len(s.queues), "workers", s.opts.Workers)
	return nil
}

func (s *ProcessorService) every(interval time.Duration, fn func()) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) reportMetrics() {
	snap := s.stats.snapshot()
	logger.Info("[processor] metrics",
		"processed", snap.Processed,
		"failed", snap.Failed,
		"rate_per_second", snap.RatePerSecond,
		"avg_duration_ms", snap.AvgDuration.Milliseconds(),
		"uptime_seconds", snap.Uptime.Seconds())

	if len(s.queues) == 0 {
		return
	}
	if qs, err := s.queues[0].GetStats(context.Background()); err == nil {
		logger.Info("[processor] queue stats", "queue", s.queues[0].Name(), "total", qs.TotalMessages, "pending", qs.PendingMessages, "dead_letters", qs.DeadLetters)
	}
}

func (s *ProcessorService) performHealthCheck() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if err := s.adapter.Ping(ctx); err != nil {
		logger.Error("[processor] health check failed: redis unreachable", "error", err)
		return
	}
	if len(s.queues) == 0 {
		return
	}
	stats, err := s.queues[0].GetStats(ctx)
	if err != nil {
		logger.Warn("[processor] queue stats unavailable", "error", err)
		return
	}
	if stats.PendingMessages > lagWarnThreshold {
		logger.Warn("[processor] queue has high lag", "pending_messages", stats.PendingMessages)
	}
	logger.Debug("[processor] health check ok")
}

// Stop cancels the consumers, waits for them and shuts the worker pool down.
func (s *ProcessorService) Stop() {
	logger.Info("[processor] shutting down")

	s.cancel()

	var qwg sync.WaitGroup
	for i, q := range s.queues {
		qwg.Add(1)
		go func(index int, q *queue.Queue) {
			defer qwg.Done()
			if err := q.Stop(ShutdownTimeout); err != nil {
				logger.Error("[processor] error stopping queue", "consumer", index, "error", err)
			}
		}(i, q)
	}
	qwg.Wait()

	s.worker.Exit()
	s.wg.Wait()
	s.reportMetrics()

	logger.Info("[processor] stopped")
}

type job struct {
	msg        *queue.Message
	resultChan chan error
	ctx        context.Context
}

// messageHandler runs on a consumer goroutine and blocks until a worker has
// produced the ack decision.
func (s *ProcessorService) messageHandler(ctx context.Context, msg *queue.Message) error {
	resultChan := make(chan error, 1)

	msgCtx, cancel := context.WithTimeout(ctx, ProcessingTimeout+time.Second)
	defer cancel()

	if !s.worker.Enqueue(&job{msg: msg, resultChan: resultChan, ctx: msgCtx}) {
		return fmt.Errorf("worker pool stopped")
	}

	select {
	case err := <-resultChan:
		return err
	case <-msgCtx.Done():
		return fmt.Errorf("timeout waiting for worker to process message: %w", msgCtx.Err())
	}
}

func (s *ProcessorService) workerHandler(workerIndex int, j interface{}) {
	jb, ok := j.(*job)
	if !ok {
		logger.Error("[processor] invalid job type", "worker", workerIndex)
		return
	}

	select {
	case <-jb.ctx.Done():
		logger.Warn("[processor] job expired before processing", "worker", workerIndex, "id", jb.msg.ID)
		return
	default:
	}

	ctx, cancel := context.WithTimeout(jb.ctx, ProcessingTimeout)
	defer cancel()

	start := time.Now()
	err := s.processor.Process(ctx, jb.msg)
	if err != nil {
		s.stats.recordFailure()
		logger.Error("[processor] processing failed", "worker", workerIndex, "id", jb.msg.ID, "attempts", jb.msg.Attempts, "error", err)
	} else {
		s.stats.recordSuccess(time.Since(start))
	}

	// resultChan is buffered, the send never blocks
	jb.resultChan <- err
}
