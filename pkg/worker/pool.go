package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/kacperjurak/thermalcore/pkg/models"
)

// ProcessorFunc runs one simulation request.
type ProcessorFunc func(ctx context.Context, req models.SimulationRequest) (models.SimulationResponse, error)

// Sender delivers finished runs to a webhook.
type Sender interface {
	Send(ctx context.Context, item models.WebhookItem) error
}

// Observer receives pool events. *profiling.Metrics satisfies it.
type Observer interface {
	ObserveSimulation(samples int, maxHotSpot float64, d time.Duration, err error)
	ObserveWebhook(err error)
	SetQueuedJobs(n int)
}

// Pool manages concurrent simulation workers
type Pool struct {
	jobs         chan job
	webhookQueue chan models.WebhookItem
	workers      int
	processor    ProcessorFunc
	sender       Sender
	observer     Observer
	logger       *zap.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	queued   atomic.Int64
	wg       sync.WaitGroup
	webhooks sync.WaitGroup
	once     sync.Once
}

type job struct {
	item  models.WorkItem
	reply chan<- models.WorkResult
}

// Options holds configuration for creating a new worker pool
type Options struct {
	Workers   int
	Processor ProcessorFunc
	Sender    Sender
	Observer  Observer
	Logger    *zap.Logger
}

// New creates a new worker pool with specified configuration
func New(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Buffers keep submitters from blocking while all workers are busy.
	// Webhooks are slower, so their queue is larger.
	pool := &Pool{
		jobs:         make(chan job, opts.Workers*2),
		webhookQueue: make(chan models.WebhookItem, opts.Workers*4),
		workers:      opts.Workers,
		processor:    opts.Processor,
		sender:       opts.Sender,
		observer:     opts.Observer,
		logger:       opts.Logger,
		ctx:          ctx,
		cancel:       cancel,
	}

	pool.start()
	return pool
}

// start initializes and starts all workers
func (p *Pool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.wg.Add(1)
	go p.webhookProcessor()

	p.logger.Info("worker pool started", zap.Int("workers", p.workers))
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case j := <-p.jobs:
			p.observer.SetQueuedJobs(int(p.queued.Add(-1)))
			result := p.processJob(j.item)
			select {
			case j.reply <- result:
			case <-p.ctx.Done():
				return
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// processJob runs one request and wraps its outcome.
func (p *Pool) processJob(item models.WorkItem) models.WorkResult {
	req := item.Request
	if req.ID == "" {
		req.ID = item.RequestID
	}

	startTime := time.Now()
	resp, err := p.processor(p.ctx, req)
	processingTime := time.Since(startTime)

	maxHotSpot := 0.0
	if err == nil && len(resp.HotSpot) > 0 {
		maxHotSpot = floats.Max(resp.HotSpot)
	}
	p.observer.ObserveSimulation(len(resp.HotSpot), maxHotSpot, processingTime, err)

	if err != nil {
		p.logger.Warn("simulation failed",
			zap.String("request_id", item.RequestID),
			zap.String("batch_id", item.BatchID),
			zap.Int("iteration", item.Iteration),
			zap.Error(err),
		)
	} else {
		p.logger.Debug("simulation done",
			zap.String("request_id", item.RequestID),
			zap.Int("iteration", item.Iteration),
			zap.Duration("processing_time", processingTime),
		)
	}

	return models.WorkResult{
		ID:             item.ID,
		RequestID:      item.RequestID,
		BatchID:        item.BatchID,
		Iteration:      item.Iteration,
		Response:       resp,
		Err:            err,
		ProcessingTime: processingTime,
		Success:        err == nil,
		Category:       req.Category,
	}
}

// webhookProcessor sends queued webhooks without blocking the workers.
func (p *Pool) webhookProcessor() {
	defer p.wg.Done()

	for {
		select {
		case item := <-p.webhookQueue:
			p.webhooks.Add(1)
			go p.sendWebhook(item)

		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) sendWebhook(item models.WebhookItem) {
	defer p.webhooks.Done()

	if p.sender == nil {
		p.logger.Debug("no webhook configured, dropping result", zap.String("request_id", item.RequestID))
		return
	}

	// The send outlives a pool shutdown so in-flight deliveries finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := p.sender.Send(ctx, item)
	p.observer.ObserveWebhook(err)
	if err != nil {
		p.logger.Error("webhook delivery failed", zap.String("request_id", item.RequestID), zap.Error(err))
	}
}

// SubmitBatch submits items and returns a channel that receives one result
// per item, in completion order. Items refused because the pool is shutting
// down come back with the context error. Readers should also watch Done,
// since jobs queued at shutdown are not answered.
func (p *Pool) SubmitBatch(items []models.WorkItem) <-chan models.WorkResult {
	reply := make(chan models.WorkResult, len(items))
	go func() {
		for _, item := range items {
			p.submit(job{item: item, reply: reply})
		}
	}()
	return reply
}

func (p *Pool) submit(j job) {
	if p.ctx.Err() != nil {
		p.refuse(j)
		return
	}

	p.observer.SetQueuedJobs(int(p.queued.Add(1)))
	select {
	case p.jobs <- j:
		return
	default:
	}

	p.logger.Warn("worker pool jobs channel full, job may be delayed", zap.String("request_id", j.item.RequestID))
	select {
	case p.jobs <- j:
	case <-p.ctx.Done():
		p.observer.SetQueuedJobs(int(p.queued.Add(-1)))
		p.refuse(j)
	}
}

// refuse answers a job the pool will not run. Reply channels are sized for
// their batch, so this never blocks.
func (p *Pool) refuse(j job) {
	j.reply <- models.WorkResult{
		ID:        j.item.ID,
		RequestID: j.item.RequestID,
		BatchID:   j.item.BatchID,
		Iteration: j.item.Iteration,
		Err:       p.ctx.Err(),
		Category:  j.item.Request.Category,
	}
}

// Done is closed once Shutdown has begun.
func (p *Pool) Done() <-chan struct{} {
	return p.ctx.Done()
}

// QueueWebhook queues a webhook for async processing. It never blocks.
func (p *Pool) QueueWebhook(item models.WebhookItem) bool {
	select {
	case p.webhookQueue <- item:
		return true
	default:
		p.logger.Warn("webhook queue full, dropping webhook", zap.String("request_id", item.RequestID))
		return false
	}
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return p.workers
}

// Shutdown stops the workers and waits for in-flight webhooks.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.logger.Info("shutting down worker pool")
		p.cancel()
		p.wg.Wait()
		p.webhooks.Wait()
		p.logger.Info("worker pool shutdown complete")
	})
}

type nopObserver struct{}

func (nopObserver) ObserveSimulation(int, float64, time.Duration, error) {}
func (nopObserver) ObserveWebhook(error)                                 {}
func (nopObserver) SetQueuedJobs(int)                                    {}
