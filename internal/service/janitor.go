package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/postfeed/pkg/logger"
	"github.com/d60-Lab/postfeed/pkg/storage"
)

type janitorJob struct {
	path  string
	enqAt time.Time
}

// MediaJanitor 异步删除不再被帖子引用的图片（帖子删除、编辑换图、写库失败）
type MediaJanitor struct {
	store     storage.FileStorage
	ch        chan janitorJob
	metricsCh chan time.Duration

	mu          sync.RWMutex
	closed      bool
	wg          sync.WaitGroup
	metricsOnce sync.Once
}

func NewMediaJanitor(store storage.FileStorage, queueSize int) *MediaJanitor {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &MediaJanitor{store: store, ch: make(chan janitorJob, queueSize), metricsCh: make(chan time.Duration, 4096)}
}

// Start 启动 workers 个协程，返回的函数停止接收并等待队列排空
func (j *MediaJanitor) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		j.wg.Add(1)
		go func() {
			defer j.wg.Done()
			for job := range j.ch {
				j.handle(job)
			}
		}()
	}
	return func(ctx context.Context) error {
		j.mu.Lock()
		if !j.closed {
			j.closed = true
			close(j.ch)
		}
		j.mu.Unlock()

		done := make(chan struct{})
		go func() {
			j.wg.Wait()
			// worker 全部退出后不再发送，消费方的 range 随之结束
			j.metricsOnce.Do(func() { close(j.metricsCh) })
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (j *MediaJanitor) handle(job janitorJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.store.Delete(ctx, job.path); err != nil {
		logger.Warn("delete media failed", zap.String("path", job.path), zap.Error(err))
	}
	select {
	case j.metricsCh <- time.Since(job.enqAt):
	default:
	}
}

// Enqueue 空路径忽略；队列满或已停止时丢弃并记录
func (j *MediaJanitor) Enqueue(path string) {
	if path == "" {
		return
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		logger.Warn("janitor stopped, drop media", zap.String("path", path))
		return
	}
	select {
	case j.ch <- janitorJob{path: path, enqAt: time.Now()}:
	default:
		logger.Warn("janitor queue full, drop media", zap.String("path", path))
	}
}

// Metrics 返回删除落地耗时的只读通道（每处理一条发送一次 duration）。
// 缓冲满时丢弃新样本；停止并排空后通道关闭。
func (j *MediaJanitor) Metrics() <-chan time.Duration { return j.metricsCh }

// QueueLen 返回当前队列长度（采样值）。
func (j *MediaJanitor) QueueLen() int { return len(j.ch) }

// ReportMetrics 持续消费 Metrics 并写 debug 日志，直到通道关闭
func (j *MediaJanitor) ReportMetrics() {
	var n int
	for d := range j.metricsCh {
		n++
		logger.Debug("media deleted", zap.Duration("latency", d), zap.Int("queue", j.QueueLen()))
	}
	logger.Debug("janitor metrics closed", zap.Int("deleted", n))
}
