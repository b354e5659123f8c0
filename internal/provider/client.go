package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fisker/cloudlease-backend/pkg/config"
	"github.com/fisker/cloudlease-backend/pkg/logger"
	"github.com/fisker/cloudlease-backend/pkg/metrics"
)

// Client 云服务商REST API客户端（bearer token认证）
// 所有调用走统一的重试策略，选项类查询带TTL缓存
type Client struct {
	httpClient *http.Client
	token      string
	baseURL    string
	retry      retryPolicy
	cache      *optionsCache

	defaultRegion string
	cacheTTL      time.Duration

	// IP轮询参数（创建主机后等待公网地址分配）
	ipPollAttempts int
	ipPollInterval time.Duration

	// sleep 可注入，测试中替换为零等待
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient 根据配置创建客户端
func NewClient(cfg *config.ProviderConfig) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		token:          cfg.Token,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		retry:          defaultRetryPolicy(),
		cache:          newOptionsCache(time.Now),
		defaultRegion:  cfg.DefaultRegion,
		cacheTTL:       time.Duration(cfg.OptionsCacheTTL) * time.Second,
		ipPollAttempts: cfg.IPPollAttempts,
		ipPollInterval: time.Duration(cfg.IPPollInterval) * time.Second,
		sleep:          sleepCtx,
	}
}

// do 发送一次API请求并按重试策略处理失败
// body为nil时不带请求体；out为nil时丢弃响应体
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	url := path
	if !strings.HasPrefix(path, "http") {
		url = c.baseURL + path
	}

	var lastErr *Error
	for attempt := 0; attempt < c.retry.maxAttempts; attempt++ {
		var reqBody io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to encode %s request: %w", op, err)
			}
			reqBody = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return fmt.Errorf("failed to build %s request: %w", op, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// 网络错误/超时：瞬时，退避后重试
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = &Error{Kind: ErrKindTransient, Op: op, Err: err}
			metrics.ProviderRequestRetries.WithLabelValues(op, "network").Inc()
			logger.Warnf("[Provider] %s attempt %d failed: %v", op, attempt+1, err)
			if err := c.sleep(ctx, c.retry.backoff(attempt)); err != nil {
				return err
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if readErr != nil {
				return fmt.Errorf("failed to read %s response: %w", op, readErr)
			}
			metrics.ProviderRequestsTotal.WithLabelValues(op, "ok").Inc()
			if out != nil && len(respBody) > 0 {
				if err := json.Unmarshal(respBody, out); err != nil {
					return fmt.Errorf("failed to decode %s response: %w", op, err)
				}
			}
			return nil

		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = &Error{Kind: ErrKindRateLimited, StatusCode: resp.StatusCode, Op: op, Message: strings.TrimSpace(string(respBody))}
			wait := c.retry.retryAfter(resp, attempt)
			metrics.ProviderRequestRetries.WithLabelValues(op, "rate_limited").Inc()
			logger.Warnf("[Provider] %s rate limited, waiting %v before retry", op, wait)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}

		case resp.StatusCode >= 500:
			lastErr = &Error{Kind: ErrKindTransient, StatusCode: resp.StatusCode, Op: op, Message: strings.TrimSpace(string(respBody))}
			metrics.ProviderRequestRetries.WithLabelValues(op, "server_error").Inc()
			logger.Warnf("[Provider] %s attempt %d got status %d", op, attempt+1, resp.StatusCode)
			if err := c.sleep(ctx, c.retry.backoff(attempt)); err != nil {
				return err
			}

		default:
			// 其余4xx：永久错误，不重试
			metrics.ProviderRequestsTotal.WithLabelValues(op, "client_error").Inc()
			return &Error{Kind: ErrKindPermanent, StatusCode: resp.StatusCode, Op: op, Message: strings.TrimSpace(string(respBody))}
		}
	}

	metrics.ProviderRequestsTotal.WithLabelValues(op, "exhausted").Inc()
	return lastErr
}

// readAll 读取并关闭响应体
func readAll(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// pageLinks "next link" 分页约定
type pageLinks struct {
	Pages struct {
		Next string `json:"next"`
	} `json:"pages"`
}

// next 下一页URL（空串表示已到末页）
func (l pageLinks) next() string {
	return l.Pages.Next
}

// pagedPath 带page/per_page参数的起始路径
func pagedPath(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "per_page=" + strconv.Itoa(200)
}
