package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"bargain-backend/model"
	"bargain-backend/pkg/metrics"

	"go.uber.org/zap"
)

// TargetPriceRatio is the share of the buyer's budget sessions aim for.
const TargetPriceRatio = 0.8

const recordTimeout = 10 * time.Second

// BatchNegotiator negotiates with a batch of candidates. *Scheduler
// implements it.
type BatchNegotiator interface {
	Negotiate(ctx context.Context, candidates []model.Candidate, targetPrice float64) []model.NegotiationOutcome
}

// Coordinator drives a comparison from search to best deal and owns its
// progress record.
type Coordinator struct {
	finder     CandidateFinder
	negotiator BatchNegotiator
	store      TaskStore
	recorder   ResultRecorder
	logger     *zap.Logger
	metrics    *metrics.Recorder
	now        func() time.Time

	inflight sync.WaitGroup
}

type CoordinatorOption func(*Coordinator)

func WithCoordinatorLogger(logger *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = logger }
}

func WithCoordinatorMetrics(m *metrics.Recorder) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// WithRecorder persists every finished task. Recording errors are logged
// and otherwise ignored.
func WithRecorder(r ResultRecorder) CoordinatorOption {
	return func(c *Coordinator) { c.recorder = r }
}

func WithCoordinatorClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(finder CandidateFinder, negotiator BatchNegotiator, store TaskStore, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		finder:     finder,
		negotiator: negotiator,
		store:      store,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs a comparison to completion. It always returns a result;
// failures are reported in it, never as a panic or error.
func (c *Coordinator) Execute(ctx context.Context, req model.SearchRequest) model.Result {
	task, err := c.create(req)
	if err != nil {
		return model.Result{Success: false, Error: err.Error(), Products: []model.Candidate{}, Negotiations: []model.NegotiationOutcome{}}
	}
	return c.run(ctx, task, req)
}

// Start creates the task and runs it in the background, returning its id at
// once. ctx bounds the whole run, so it should outlive any single request.
func (c *Coordinator) Start(ctx context.Context, req model.SearchRequest) (string, error) {
	task, err := c.create(req)
	if err != nil {
		return "", err
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.run(ctx, task, req)
	}()
	return task.ID, nil
}

// Wait blocks until every run launched by Start has finished.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

// GetProgress returns a snapshot of a task.
func (c *Coordinator) GetProgress(taskID string) (model.Task, error) {
	return c.store.Get(taskID)
}

func (c *Coordinator) create(req model.SearchRequest) (model.Task, error) {
	now := c.now()
	task := model.Task{
		ID:        model.NewID(),
		Query:     req.Query,
		MaxPrice:  req.MaxPrice,
		Status:    model.StatusInitializing,
		Progress:  0,
		Message:   "初始化比价任务...",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.Create(task); err != nil {
		c.logger.Error("create task failed", zap.Error(err))
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	c.logger.Info("comparison task created",
		zap.String("task_id", task.ID),
		zap.String("query", req.Query),
		zap.Float64("max_price", req.MaxPrice))
	return task, nil
}

func (c *Coordinator) run(ctx context.Context, task model.Task, req model.SearchRequest) (result model.Result) {
	started := c.now()
	logger := c.logger.With(zap.String("task_id", task.ID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("comparison pipeline panicked", zap.Any("panic", r))
			result = c.fail(ctx, &task, fmt.Sprintf("执行失败: %v: %v", ErrPipelinePanic, r), started)
		}
	}()

	if strings.TrimSpace(req.Query) == "" || req.MaxPrice <= 0 {
		return c.fail(ctx, &task, fmt.Sprintf("%v: query must be set and max price positive", ErrInvalidInput), started)
	}

	c.advance(&task, model.StatusSearching, 10, "正在搜索商品...")
	candidates, err := c.finder.FindCandidates(ctx, req)
	if err != nil {
		logger.Warn("search phase failed", zap.Error(err))
		return c.fail(ctx, &task, fmt.Sprintf("搜索失败: %v", err), started)
	}

	c.advance(&task, model.StatusSearching, 30, fmt.Sprintf("找到 %d 个商品", len(candidates)))
	if len(candidates) == 0 {
		return c.complete(ctx, &task, model.Result{
			TaskID:       task.ID,
			Success:      true,
			Products:     []model.Candidate{},
			Negotiations: []model.NegotiationOutcome{},
		}, "未找到符合条件的商品", started)
	}

	c.advance(&task, model.StatusCommunicating, 40, "开始与卖家沟通...")
	target := req.MaxPrice * TargetPriceRatio
	outcomes := c.negotiator.Negotiate(ctx, candidates, target)

	c.advance(&task, model.StatusComparing, 80, "分析比价结果...")
	deal := SelectBestDeal(candidates, outcomes)

	return c.complete(ctx, &task, model.Result{
		TaskID:       task.ID,
		Success:      true,
		Products:     candidates,
		Negotiations: outcomes,
		BestDeal:     deal,
	}, "比价完成", started)
}

func (c *Coordinator) advance(task *model.Task, status model.TaskStatus, progress float64, msg string) {
	task.Status = status
	task.Progress = progress
	task.Message = msg
	task.UpdatedAt = c.now()
	if err := c.store.Update(*task); err != nil {
		c.logger.Error("update task progress failed", zap.String("task_id", task.ID), zap.Error(err))
		return
	}
	c.logger.Info("task progress",
		zap.String("task_id", task.ID),
		zap.String("status", string(status)),
		zap.Float64("progress", progress),
		zap.String("message", msg))
}

func (c *Coordinator) complete(ctx context.Context, task *model.Task, result model.Result, msg string, started time.Time) model.Result {
	task.Result = &result
	c.advance(task, model.StatusCompleted, 100, msg)
	c.finish(ctx, *task, started)
	return result
}

func (c *Coordinator) fail(ctx context.Context, task *model.Task, msg string, started time.Time) model.Result {
	result := model.Result{
		TaskID:       task.ID,
		Success:      false,
		Products:     []model.Candidate{},
		Negotiations: []model.NegotiationOutcome{},
		Error:        msg,
	}
	task.Result = &result
	c.advance(task, model.StatusFailed, 0, msg)
	c.finish(ctx, *task, started)
	return result
}

func (c *Coordinator) finish(ctx context.Context, task model.Task, started time.Time) {
	c.metrics.TaskFinished(string(task.Status), c.now().Sub(started))
	if c.recorder == nil {
		return
	}

	// The task is already terminal; record it even if the run was cancelled.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := c.recorder.RecordResult(recCtx, task); err != nil {
		c.logger.Error("record result failed", zap.String("task_id", task.ID), zap.Error(err))
	}
}
