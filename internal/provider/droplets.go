package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fisker/cloudlease-backend/pkg/logger"
)

// dropletEnvelope API响应中的droplet结构
type dropletEnvelope struct {
	Droplet dropletJSON `json:"droplet"`
}

type dropletJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Networks struct {
		V4 []struct {
			IPAddress string `json:"ip_address"`
			Type      string `json:"type"`
		} `json:"v4"`
	} `json:"networks"`
	Size struct {
		Slug        string          `json:"slug"`
		PriceHourly decimal.Decimal `json:"price_hourly"`
	} `json:"size"`
	SizeSlug string `json:"size_slug"`
}

func (d dropletJSON) publicIP() string {
	for _, net := range d.Networks.V4 {
		if net.Type == "public" {
			return net.IPAddress
		}
	}
	return ""
}

// CreateDroplet 创建云主机并等待公网IP分配
// 提交创建请求后按固定间隔轮询网络信息，超出次数上限时
// 返回占位符IP而不是让整个创建失败
func (c *Client) CreateDroplet(ctx context.Context, params CreateDropletParams) (*Droplet, error) {
	region := params.Region
	if region == "" {
		region = c.defaultRegion
	}

	reqBody := map[string]interface{}{
		"name":     params.Name,
		"region":   region,
		"size":     params.Size,
		"image":    params.Image,
		"ssh_keys": []int64{params.SSHKeyID},
	}

	var created dropletEnvelope
	if err := c.do(ctx, "create_droplet", "POST", "/droplets", reqBody, &created); err != nil {
		return nil, err
	}

	droplet := &Droplet{
		ID:   created.Droplet.ID,
		Name: created.Droplet.Name,
		Size: created.Droplet.SizeSlug,
	}
	if !created.Droplet.Size.PriceHourly.IsZero() {
		price := created.Droplet.Size.PriceHourly
		droplet.PriceHourly = &price
	}

	// 轮询等待公网IP
	droplet.IPAddress = IPUnavailable
	for attempt := 0; attempt < c.ipPollAttempts; attempt++ {
		if err := c.sleep(ctx, c.ipPollInterval); err != nil {
			return droplet, nil
		}

		var current dropletEnvelope
		if err := c.do(ctx, "get_droplet", "GET", fmt.Sprintf("/droplets/%d", droplet.ID), nil, &current); err != nil {
			logger.Warnf("[Provider] IP poll for droplet %d failed: %v", droplet.ID, err)
			continue
		}
		if ip := current.Droplet.publicIP(); ip != "" {
			droplet.IPAddress = ip
			return droplet, nil
		}
	}

	logger.Warnf("[Provider] Droplet %d got no public IP after %d polls, storing placeholder", droplet.ID, c.ipPollAttempts)
	return droplet, nil
}

// DeleteDroplet 删除云主机
// 404（已不存在）不视为失败，保证回收路径幂等
func (c *Client) DeleteDroplet(ctx context.Context, id int64) error {
	err := c.do(ctx, "delete_droplet", "DELETE", fmt.Sprintf("/droplets/%d", id), nil, nil)
	if err != nil && IsNotFound(err) {
		logger.Infof("[Provider] Droplet %d already gone", id)
		return nil
	}
	return err
}

// CreateSnapshot 发起快照，返回action ID供 WaitForAction 等待
func (c *Client) CreateSnapshot(ctx context.Context, dropletID int64, name string) (int64, error) {
	reqBody := map[string]interface{}{
		"type": "snapshot",
		"name": name,
	}

	var result struct {
		Action struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"action"`
	}
	if err := c.do(ctx, "create_snapshot", "POST", fmt.Sprintf("/droplets/%d/actions", dropletID), reqBody, &result); err != nil {
		return 0, err
	}
	return result.Action.ID, nil
}

// WaitForAction 轮询等待异步操作完成
// 终态为 completed/errored，超时返回 timed_out 而不是一直阻塞
func (c *Client) WaitForAction(ctx context.Context, actionID int64, timeout, interval time.Duration) (ActionOutcome, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var result struct {
			Action struct {
				Status string `json:"status"`
			} `json:"action"`
		}
		if err := c.do(ctx, "get_action", "GET", fmt.Sprintf("/actions/%d", actionID), nil, &result); err != nil {
			return "", err
		}

		switch result.Action.Status {
		case "completed":
			return ActionCompleted, nil
		case "errored":
			return ActionErrored, nil
		}

		if err := c.sleep(ctx, interval); err != nil {
			return "", err
		}
	}
	return ActionTimedOut, nil
}

// CreateDNSRecord 在托管区域下创建A记录，返回记录ID
func (c *Client) CreateDNSRecord(ctx context.Context, zone, name, ip string) (int64, error) {
	reqBody := map[string]interface{}{
		"type": "A",
		"name": name,
		"data": ip,
		"ttl":  300,
	}

	var result struct {
		DomainRecord struct {
			ID int64 `json:"id"`
		} `json:"domain_record"`
	}
	if err := c.do(ctx, "create_dns_record", "POST", fmt.Sprintf("/domains/%s/records", zone), reqBody, &result); err != nil {
		return 0, err
	}
	return result.DomainRecord.ID, nil
}

// DeleteDNSRecord 删除DNS记录（404容忍）
func (c *Client) DeleteDNSRecord(ctx context.Context, zone string, recordID int64) error {
	err := c.do(ctx, "delete_dns_record", "DELETE", fmt.Sprintf("/domains/%s/records/%d", zone, recordID), nil, nil)
	if err != nil && IsNotFound(err) {
		return nil
	}
	return err
}

// ListSSHKeys 列出账户下所有SSH公钥（透明翻页）
func (c *Client) ListSSHKeys(ctx context.Context) ([]SSHKey, error) {
	var keys []SSHKey
	path := pagedPath("/account/keys")
	for path != "" {
		var page struct {
			SSHKeys []SSHKey  `json:"ssh_keys"`
			Links   pageLinks `json:"links"`
		}
		if err := c.do(ctx, "list_ssh_keys", "GET", path, nil, &page); err != nil {
			return nil, err
		}
		keys = append(keys, page.SSHKeys...)
		path = page.Links.next()
	}
	return keys, nil
}

// ListImages 列出发行版镜像（透明翻页）
func (c *Client) ListImages(ctx context.Context) ([]Image, error) {
	var images []Image
	path := pagedPath("/images?type=distribution")
	for path != "" {
		var page struct {
			Images []Image   `json:"images"`
			Links  pageLinks `json:"links"`
		}
		if err := c.do(ctx, "list_images", "GET", path, nil, &page); err != nil {
			return nil, err
		}
		images = append(images, page.Images...)
		path = page.Links.next()
	}
	return images, nil
}

// ListSizes 列出可用规格（带价格），结果缓存
func (c *Client) ListSizes(ctx context.Context) ([]Size, error) {
	value, err := c.cache.getOrRefresh("sizes", c.cacheTTL, func() (interface{}, error) {
		var sizes []Size
		path := pagedPath("/sizes")
		for path != "" {
			var page struct {
				Sizes []Size    `json:"sizes"`
				Links pageLinks `json:"links"`
			}
			if err := c.do(ctx, "list_sizes", "GET", path, nil, &page); err != nil {
				return nil, err
			}
			sizes = append(sizes, page.Sizes...)
			path = page.Links.next()
		}
		return sizes, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]Size), nil
}

// ListDomains 列出托管DNS区域（透明翻页）
func (c *Client) ListDomains(ctx context.Context) ([]Domain, error) {
	var domains []Domain
	path := pagedPath("/domains")
	for path != "" {
		var page struct {
			Domains []Domain  `json:"domains"`
			Links   pageLinks `json:"links"`
		}
		if err := c.do(ctx, "list_domains", "GET", path, nil, &page); err != nil {
			return nil, err
		}
		domains = append(domains, page.Domains...)
		path = page.Links.next()
	}
	return domains, nil
}

// SizePriceHourly 查某规格的小时价（走缓存的规格列表）
func (c *Client) SizePriceHourly(ctx context.Context, slug string) (*decimal.Decimal, error) {
	sizes, err := c.ListSizes(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range sizes {
		if s.Slug == slug {
			price := s.PriceHourly
			return &price, nil
		}
	}
	return nil, nil
}

// ExpiredSnapshotName 到期回收前的安全快照命名
func ExpiredSnapshotName(dropletName string, now time.Time) string {
	return dropletName + "-expired-" + now.Format("20060102")
}
