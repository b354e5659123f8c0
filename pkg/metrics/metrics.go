package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Server Metrics

	// APIRequestsTotal API请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIRequestDuration API请求处理时长
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Provider Metrics

	// ProviderRequestsTotal 云服务商API请求总数
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of cloud provider API requests",
		},
		[]string{"operation", "status"},
	)

	// ProviderRequestRetries 云服务商API请求重试次数
	ProviderRequestRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_request_retries_total",
			Help: "Total number of cloud provider API request retries",
		},
		[]string{"operation", "reason"},
	)

	// Lifecycle Reconciler Metrics

	// SweepRunsTotal 回收巡检执行次数
	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_sweep_runs_total",
			Help: "Total number of expiry sweep runs",
		},
		[]string{"result"},
	)

	// SweepDuration 回收巡检耗时
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lifecycle_sweep_duration_seconds",
			Help:    "Duration of a full expiry sweep in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// InstancesReclaimed 已自动回收的实例数
	InstancesReclaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lifecycle_instances_reclaimed_total",
			Help: "Total number of instances reclaimed by the expiry sweep",
		},
	)

	// ExpiryWarningsSent 到期前发出的提醒数
	ExpiryWarningsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lifecycle_expiry_warnings_total",
			Help: "Total number of expiry warnings sent",
		},
	)

	// ManagedInstances 当前纳管的实例数
	ManagedInstances = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "managed_instances_total",
			Help: "Total number of instances under lifecycle management",
		},
	)

	// ManagedClusters 当前纳管的K8s集群数（按状态）
	ManagedClusters = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "managed_clusters_total",
			Help: "Total number of Kubernetes clusters under lifecycle management",
		},
		[]string{"status"},
	)

	// Notification Metrics

	// NotificationsSentTotal 已发送的通知数
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications dispatched",
		},
		[]string{"event", "status"},
	)
)
