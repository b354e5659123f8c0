package model

// ClusterStatus 集群状态（封闭枚举）
// 云服务商侧的 "degraded" 在落库时折叠为 running，只在用户消息中提示
type ClusterStatus string

const (
	ClusterStatusProvisioning ClusterStatus = "provisioning"
	ClusterStatusRunning      ClusterStatus = "running"
	ClusterStatusErrored      ClusterStatus = "errored"
)

// Valid 是否是已知状态
func (s ClusterStatus) Valid() bool {
	switch s {
	case ClusterStatusProvisioning, ClusterStatusRunning, ClusterStatusErrored:
		return true
	}
	return false
}

// IsTerminal errored 是终态：不再轮询、不自动重试
func (s ClusterStatus) IsTerminal() bool {
	return s == ClusterStatusErrored
}

// CanTransition 状态迁移守卫
// 允许: provisioning→running, provisioning→errored
// 拒绝: errored→任何状态、running→provisioning 等回退
func (s ClusterStatus) CanTransition(to ClusterStatus) bool {
	if !s.Valid() || !to.Valid() {
		return false
	}
	if s == to {
		return true
	}
	switch s {
	case ClusterStatusProvisioning:
		return to == ClusterStatusRunning || to == ClusterStatusErrored
	default:
		return false
	}
}
