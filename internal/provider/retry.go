package provider

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// retryPolicy 统一的重试策略
// 429 按 Retry-After 等待；5xx和网络超时按指数退避（基数1s，翻倍，上限30s）；
// 其余4xx立即失败；最多3次尝试
type retryPolicy struct {
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxAttempts: 3,
		baseBackoff: time.Second,
		maxBackoff:  30 * time.Second,
	}
}

// backoff 第attempt次重试前的等待时间（attempt从0开始）
func (p retryPolicy) backoff(attempt int) time.Duration {
	d := p.baseBackoff << uint(attempt)
	if d > p.maxBackoff || d <= 0 {
		return p.maxBackoff
	}
	return d
}

// retryAfter 限流响应的等待时间：优先 Retry-After 头，否则用当前退避
func (p retryPolicy) retryAfter(resp *http.Response, attempt int) time.Duration {
	if resp != nil {
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				d := time.Duration(secs) * time.Second
				if d > p.maxBackoff {
					return p.maxBackoff
				}
				return d
			}
		}
	}
	return p.backoff(attempt)
}

// sleepCtx 可取消的等待
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
