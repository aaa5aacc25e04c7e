package hosting

import (
	"context"
	"fmt"
	"time"

	"github.com/gocrud/ioc/logging"
)

// BackgroundService 后台服务基类，Start 阻塞直到停止信号或 context 取消
type BackgroundService struct {
	name   string
	logger logging.Logger
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBackgroundService 创建后台服务
func NewBackgroundService(name string, logger logging.Logger) *BackgroundService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &BackgroundService{
		name:   name,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Name 返回服务名
func (s *BackgroundService) Name() string {
	return s.name
}

// Start 阻塞运行，直到收到停止信号或 context 取消
func (s *BackgroundService) Start(ctx context.Context) error {
	s.logger.Info(fmt.Sprintf("BackgroundService '%s' starting", s.name))
	select {
	case <-s.stopCh:
	case <-ctx.Done():
	}
	s.Done()
	return nil
}

// Stop 发出停止信号并等待服务退出或超时
func (s *BackgroundService) Stop(ctx context.Context) error {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		s.logger.Warn(fmt.Sprintf("BackgroundService '%s' stop timeout", s.name))
		return ctx.Err()
	}
}

// ShouldStop 检查是否收到停止信号
func (s *BackgroundService) ShouldStop() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// StopChan 返回停止通道，用于在 select 中监听
func (s *BackgroundService) StopChan() <-chan struct{} {
	return s.stopCh
}

// Done 标记服务已退出，可重复调用
func (s *BackgroundService) Done() {
	select {
	case <-s.doneCh:
	default:
		close(s.doneCh)
	}
}

// TimedHostedService 定时托管服务，按固定间隔执行任务
type TimedHostedService struct {
	*BackgroundService
	interval time.Duration
	task     func(ctx context.Context) error
}

// NewTimedHostedService 创建定时托管服务
func NewTimedHostedService(name string, interval time.Duration, task func(ctx context.Context) error, logger logging.Logger) *TimedHostedService {
	return &TimedHostedService{
		BackgroundService: NewBackgroundService(name, logger),
		interval:          interval,
		task:              task,
	}
}

// Start 按间隔循环执行任务，直到停止信号或 context 取消
func (s *TimedHostedService) Start(ctx context.Context) error {
	defer s.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.task(ctx); err != nil {
				s.logger.Error(fmt.Sprintf("TimedHostedService '%s' task failed", s.Name()),
					logging.Field{Key: "error", Value: err.Error()})
			}
		case <-s.StopChan():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
