// Package clock 提供可注入的时间源，发布流水线的轮询等待都通过它进行，
// 便于在测试中用假时钟做确定性验证。
package clock

import (
	"context"
	"time"
)

// Clock 时间源接口
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	// Sleep 阻塞 d 时长，ctx 取消时提前返回 ctx.Err()
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// System 返回真实时钟
func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
