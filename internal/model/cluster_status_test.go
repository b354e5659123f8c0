package model

import (
	"testing"
)

// TestClusterStatusCanTransition 测试集群状态迁移守卫
func TestClusterStatusCanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     ClusterStatus
		to       ClusterStatus
		expected bool
	}{
		{"provisioning到running", ClusterStatusProvisioning, ClusterStatusRunning, true},
		{"provisioning到errored", ClusterStatusProvisioning, ClusterStatusErrored, true},
		{"provisioning到provisioning", ClusterStatusProvisioning, ClusterStatusProvisioning, true},

		// errored是终态，禁止任何迁出
		{"errored到running被拒绝", ClusterStatusErrored, ClusterStatusRunning, false},
		{"errored到provisioning被拒绝", ClusterStatusErrored, ClusterStatusProvisioning, false},
		{"errored到errored", ClusterStatusErrored, ClusterStatusErrored, true},

		// running不允许回退
		{"running到provisioning被拒绝", ClusterStatusRunning, ClusterStatusProvisioning, false},
		{"running到errored被拒绝", ClusterStatusRunning, ClusterStatusErrored, false},
		{"running到running", ClusterStatusRunning, ClusterStatusRunning, true},

		// 未知状态一律拒绝
		{"未知源状态", ClusterStatus("degraded"), ClusterStatusRunning, false},
		{"未知目标状态", ClusterStatusRunning, ClusterStatus("deleted"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.from.CanTransition(tt.to)
			if result != tt.expected {
				t.Errorf("CanTransition(%q -> %q) = %v, expected %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

// TestClusterStatusIsTerminal 测试终态判定
func TestClusterStatusIsTerminal(t *testing.T) {
	if !ClusterStatusErrored.IsTerminal() {
		t.Error("errored should be terminal")
	}
	if ClusterStatusProvisioning.IsTerminal() {
		t.Error("provisioning should not be terminal")
	}
	if ClusterStatusRunning.IsTerminal() {
		t.Error("running should not be terminal")
	}
}
