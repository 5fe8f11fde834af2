package lifecycle

import (
	"context"
	"time"
)

// Handle 是分发给每个后台服务的生命周期句柄，由 Manager 创建。
type Handle struct {
	ctx context.Context
	// Close 通知Manager该服务已退出，应在服务的Goroutine中 defer 调用。
	Close func()
}

// Ctx 返回句柄内部的ctx
func (h *Handle) Ctx() context.Context {
	return h.ctx
}

// Done 在管理器广播停机信号时关闭。
func (h *Handle) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Err 返回上下文被取消的原因。
func (h *Handle) Err() error {
	return h.ctx.Err()
}

// Sleep 是可被停机信号打断的休眠。
func (h *Handle) Sleep(duration time.Duration) error {
	return Sleep(h.ctx, duration)
}

// Sleep 暂停指定时长；若ctx先被取消，则提前返回ctx的错误。
// 所有重试循环都应使用它代替 time.Sleep。
func Sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
