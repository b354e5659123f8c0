package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// clusterEnvelope API响应中的集群结构
type clusterEnvelope struct {
	KubernetesCluster clusterJSON `json:"kubernetes_cluster"`
}

type clusterJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Status   struct {
		State string `json:"state"`
	} `json:"status"`
}

func (c clusterJSON) toCluster() *Cluster {
	return &Cluster{
		ID:       c.ID,
		Name:     c.Name,
		State:    ClusterState(c.Status.State),
		Endpoint: c.Endpoint,
	}
}

// CreateCluster 创建托管K8s集群，创建是异步的，返回时状态为 provisioning
func (c *Client) CreateCluster(ctx context.Context, params CreateClusterParams) (*Cluster, error) {
	region := params.Region
	if region == "" {
		region = c.defaultRegion
	}

	reqBody := map[string]interface{}{
		"name":    params.Name,
		"region":  region,
		"version": params.Version,
		"ha":      params.HA,
		"node_pools": []map[string]interface{}{
			{
				"size":  params.NodeSize,
				"count": params.NodeCount,
				"name":  params.Name + "-pool",
			},
		},
	}

	var created clusterEnvelope
	if err := c.do(ctx, "create_cluster", "POST", "/kubernetes/clusters", reqBody, &created); err != nil {
		return nil, err
	}
	return created.KubernetesCluster.toCluster(), nil
}

// GetCluster 查询集群实时状态和endpoint
func (c *Client) GetCluster(ctx context.Context, id string) (*Cluster, error) {
	var result clusterEnvelope
	if err := c.do(ctx, "get_cluster", "GET", "/kubernetes/clusters/"+id, nil, &result); err != nil {
		return nil, err
	}
	return result.KubernetesCluster.toCluster(), nil
}

// DeleteCluster 删除集群（404容忍）
func (c *Client) DeleteCluster(ctx context.Context, id string) error {
	err := c.do(ctx, "delete_cluster", "DELETE", "/kubernetes/clusters/"+id, nil, nil)
	if err != nil && IsNotFound(err) {
		return nil
	}
	return err
}

// GetKubeconfig 获取集群访问凭据（原始YAML字节）
// kubeconfig端点返回的不是JSON，单独走一次带重试的请求
func (c *Client) GetKubeconfig(ctx context.Context, id string) ([]byte, error) {
	url := c.baseURL + "/kubernetes/clusters/" + id + "/kubeconfig"

	var lastErr error
	for attempt := 0; attempt < c.retry.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build kubeconfig request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = &Error{Kind: ErrKindTransient, Op: "get_kubeconfig", Err: err}
			if err := c.sleep(ctx, c.retry.backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := readAll(resp)
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if readErr != nil {
				return nil, fmt.Errorf("failed to read kubeconfig response: %w", readErr)
			}
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = &Error{Kind: ErrKindRateLimited, StatusCode: resp.StatusCode, Op: "get_kubeconfig"}
			if err := c.sleep(ctx, c.retry.retryAfter(resp, attempt)); err != nil {
				return nil, err
			}
		case resp.StatusCode >= 500:
			lastErr = &Error{Kind: ErrKindTransient, StatusCode: resp.StatusCode, Op: "get_kubeconfig"}
			if err := c.sleep(ctx, c.retry.backoff(attempt)); err != nil {
				return nil, err
			}
		default:
			return nil, &Error{Kind: ErrKindPermanent, StatusCode: resp.StatusCode, Op: "get_kubeconfig", Message: strings.TrimSpace(string(body))}
		}
	}
	return nil, lastErr
}

// GetKubernetesOptions 查询可用版本和节点规格（结果缓存）
func (c *Client) GetKubernetesOptions(ctx context.Context) (*KubernetesOptions, error) {
	value, err := c.cache.getOrRefresh("kubernetes_options", c.cacheTTL, func() (interface{}, error) {
		var result struct {
			Options KubernetesOptions `json:"options"`
		}
		if err := c.do(ctx, "kubernetes_options", "GET", "/kubernetes/options", nil, &result); err != nil {
			return nil, err
		}
		return &result.Options, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*KubernetesOptions), nil
}
