package provider

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorKind 错误分类
type ErrorKind string

const (
	// ErrKindTransient 瞬时错误（5xx、网络超时），重试耗尽后返回
	ErrKindTransient ErrorKind = "transient"
	// ErrKindRateLimited 限流（429），按 Retry-After 重试后仍失败
	ErrKindRateLimited ErrorKind = "rate_limited"
	// ErrKindPermanent 永久错误（429以外的4xx），不重试
	ErrKindPermanent ErrorKind = "permanent"
)

// Error 云服务商API的类型化错误，携带分类和最后一次失败原因
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Op         string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s failed (%s, status %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s failed (%s, status %d): %s", e.Op, e.Kind, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound 是否404（删除操作容忍"已不存在"）
func IsNotFound(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.StatusCode == 404
	}
	return false
}

// IPUnavailable IP轮询超时的占位符地址
const IPUnavailable = "unavailable"

// Droplet 云主机
type Droplet struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	IPAddress   string           `json:"-"`
	Size        string           `json:"-"`
	PriceHourly *decimal.Decimal `json:"-"`
}

// CreateDropletParams 创建云主机的参数
type CreateDropletParams struct {
	Name     string
	Region   string
	Size     string
	Image    string
	SSHKeyID int64
}

// SSHKey 账户下的SSH公钥
type SSHKey struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
}

// Image 系统镜像
type Image struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Distribution string `json:"distribution"`
}

// Size 主机规格
type Size struct {
	Slug         string          `json:"slug"`
	Memory       int             `json:"memory"`
	VCPUs        int             `json:"vcpus"`
	Disk         int             `json:"disk"`
	PriceMonthly decimal.Decimal `json:"price_monthly"`
	PriceHourly  decimal.Decimal `json:"price_hourly"`
	Available    bool            `json:"available"`
}

// Domain 托管DNS区域
type Domain struct {
	Name string `json:"name"`
}

// ActionOutcome 异步操作的等待结果
type ActionOutcome string

const (
	ActionCompleted ActionOutcome = "completed"
	ActionErrored   ActionOutcome = "errored"
	ActionTimedOut  ActionOutcome = "timed_out"
)

// ClusterState 云服务商侧的集群状态（含degraded，落库前折叠）
type ClusterState string

const (
	ClusterStateProvisioning ClusterState = "provisioning"
	ClusterStateRunning      ClusterState = "running"
	ClusterStateDegraded     ClusterState = "degraded"
	ClusterStateError        ClusterState = "error"
)

// Cluster 托管K8s集群
type Cluster struct {
	ID       string
	Name     string
	State    ClusterState
	Endpoint string
}

// CreateClusterParams 创建集群的参数
type CreateClusterParams struct {
	Name      string
	Region    string
	Version   string
	NodeSize  string
	NodeCount int
	HA        bool
}

// KubernetesVersion 可用的K8s版本
type KubernetesVersion struct {
	Slug              string `json:"slug"`
	KubernetesVersion string `json:"kubernetes_version"`
}

// KubernetesNodeSize 可用的节点规格
type KubernetesNodeSize struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// KubernetesOptions 集群创建选项（1小时缓存）
type KubernetesOptions struct {
	Versions []KubernetesVersion  `json:"versions"`
	Sizes    []KubernetesNodeSize `json:"sizes"`
}
