// Package retry 提供带退避策略的重试与熔断保护
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/A2Data/auto-douyin/internal/utils"
)

// Strategy 重试策略类型
type Strategy string

const (
	// ExponentialBackoff 指数退避策略
	ExponentialBackoff Strategy = "exponential_backoff"
	// FixedInterval 固定间隔策略
	FixedInterval Strategy = "fixed_interval"
	// LinearBackoff 线性退避策略
	LinearBackoff Strategy = "linear_backoff"
)

// Condition 重试条件函数，返回 false 时立即停止重试
type Condition func(error) bool

// Callback 重试回调函数
type Callback func(attempt int, delay time.Duration, err error)

// Config 重试配置
type Config struct {
	MaxRetries   int           // 最大重试次数（不含首次执行）
	InitialDelay time.Duration // 初始延迟
	MaxDelay     time.Duration // 最大延迟
	TotalTimeout time.Duration // 总超时时间，0表示不限

	Strategy      Strategy // 重试策略
	BackoffFactor float64  // 退避因子（用于指数退避）
	Jitter        bool     // 是否启用抖动
	JitterFactor  float64  // 抖动因子 (0.0 - 1.0)

	RetryCondition Condition // 自定义重试条件

	OnRetry Callback // 每次重试前回调
}

// DefaultConfig 默认重试配置
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:    3,
		InitialDelay:  2 * time.Second,
		MaxDelay:      30 * time.Second,
		TotalTimeout:  5 * time.Minute,
		Strategy:      ExponentialBackoff,
		BackoffFactor: 2.0,
		Jitter:        true,
		JitterFactor:  0.1,
	}
}

// Retry 重试器
type Retry struct {
	config   *Config
	attempts int32
}

// NewRetry 创建重试器
func NewRetry(config *Config) *Retry {
	if config == nil {
		config = DefaultConfig()
	}
	return &Retry{config: config}
}

// Do 执行带重试的操作
func (r *Retry) Do(ctx context.Context, operation func() error) error {
	if r.config.TotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.TotalTimeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.calculateDelay(attempt)
			if r.config.OnRetry != nil {
				r.config.OnRetry(attempt, delay, lastErr)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err
		atomic.AddInt32(&r.attempts, 1)

		if !r.shouldRetry(err) {
			break
		}
	}

	return lastErr
}

// DoWithResult 执行带重试的操作并返回结果
func DoWithResult[T any](ctx context.Context, config *Config, operation func() (T, error)) (T, error) {
	var result T
	r := NewRetry(config)
	err := r.Do(ctx, func() error {
		var err error
		result, err = operation()
		return err
	})
	return result, err
}

// calculateDelay 计算重试延迟
func (r *Retry) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.Strategy {
	case ExponentialBackoff:
		delay = time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.BackoffFactor, float64(attempt-1)))
	case LinearBackoff:
		delay = time.Duration(int64(r.config.InitialDelay) * int64(attempt))
	case FixedInterval:
		delay = r.config.InitialDelay
	default:
		delay = r.config.InitialDelay
	}

	if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	if r.config.Jitter {
		jitter := time.Duration(float64(delay) * r.config.JitterFactor * (rand.Float64()*2 - 1))
		delay += jitter
	}

	return delay
}

// shouldRetry 判断是否应重试
func (r *Retry) shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if r.config.RetryCondition != nil {
		return r.config.RetryCondition(err)
	}
	return true
}

// Attempts 返回已发生的失败尝试次数
func (r *Retry) Attempts() int {
	return int(atomic.LoadInt32(&r.attempts))
}

// RetryWithContext 使用上下文进行重试的便捷函数
func RetryWithContext(ctx context.Context, maxRetries int, operation func() error) error {
	config := DefaultConfig()
	config.MaxRetries = maxRetries
	r := NewRetry(config)
	return r.Do(ctx, operation)
}

// RetryWithBackoff 使用指数退避进行重试的便捷函数
func RetryWithBackoff(maxRetries int, initialDelay time.Duration, operation func() error) error {
	config := DefaultConfig()
	config.MaxRetries = maxRetries
	config.InitialDelay = initialDelay
	config.Strategy = ExponentialBackoff
	r := NewRetry(config)
	return r.Do(context.Background(), operation)
}

// CircuitBreaker 熔断器，连续失败达到上限后暂停执行一段时间
type CircuitBreaker struct {
	maxFailures  int32
	resetTimeout time.Duration
	failureCount int32
	lastFailure  time.Time
	state        int32 // 0: closed, 1: open, 2: half-open
	mutex        sync.RWMutex
}

// ErrCircuitOpen 熔断器处于开启状态
var ErrCircuitOpen = fmt.Errorf("熔断器开启中，暂停执行")

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(maxFailures int32, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
	}
}

// Execute 执行操作，带熔断保护
func (cb *CircuitBreaker) Execute(operation func() error) error {
	if !cb.canExecute() {
		return ErrCircuitOpen
	}

	err := operation()
	if err != nil {
		cb.recordFailure()
		return err
	}

	cb.recordSuccess()
	return nil
}

// canExecute 检查是否可以执行
func (cb *CircuitBreaker) canExecute() bool {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()

	state := atomic.LoadInt32(&cb.state)
	if state == 0 { // closed
		return true
	}

	if state == 1 { // open
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			atomic.StoreInt32(&cb.state, 2) // half-open
			return true
		}
		return false
	}

	return true // half-open
}

// recordFailure 记录失败
func (cb *CircuitBreaker) recordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.lastFailure = time.Now()
	count := atomic.AddInt32(&cb.failureCount, 1)

	if count >= cb.maxFailures {
		atomic.StoreInt32(&cb.state, 1) // open
		utils.Warn(fmt.Sprintf("[-] 熔断器开启，连续失败次数: %d", count))
	}
}

// recordSuccess 记录成功
func (cb *CircuitBreaker) recordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	atomic.StoreInt32(&cb.failureCount, 0)
	atomic.StoreInt32(&cb.state, 0) // closed
}

// GetState 获取熔断器状态
func (cb *CircuitBreaker) GetState() string {
	state := atomic.LoadInt32(&cb.state)
	switch state {
	case 0:
		return "closed"
	case 1:
		return "open"
	case 2:
		return "half-open"
	default:
		return "unknown"
	}
}
