package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fisker/cloudlease-backend/internal/model"
)

func mkCluster(t *testing.T, repo *K8sClusterRepository, id, name string, creatorID int64, status model.ClusterStatus, exp time.Time) {
	t.Helper()
	require.NoError(t, repo.Create(&model.K8sCluster{
		ID:             id,
		Name:           name,
		Region:         "fra1",
		Version:        "1.31.1-do.0",
		NodeSize:       "s-2vcpu-4gb",
		NodeCount:      2,
		Status:         status,
		CreatorID:      creatorID,
		ExpirationDate: model.FormatExpiration(exp),
	}))
}

// TestK8sClusterRepository_FindByNameAndCreator 幂等性检查只限同一创建者
func TestK8sClusterRepository_FindByNameAndCreator(t *testing.T) {
	db := setupTestDB(t)
	repo := NewK8sClusterRepository(db)

	exp := time.Date(2026, 9, 7, 12, 0, 0, 0, time.Local)
	mkCluster(t, repo, "c-1", "staging", 42, model.ClusterStatusProvisioning, exp)

	got, err := repo.FindByNameAndCreator("staging", 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "c-1", got.ID)

	// 其他创建者的同名集群不冲突
	got, err = repo.FindByNameAndCreator("staging", 43)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = repo.FindByNameAndCreator("other", 42)
	require.NoError(t, err)
	require.Nil(t, got)
}

// TestK8sClusterRepository_FindByStatus provisioning集群的快速轮询查询
func TestK8sClusterRepository_FindByStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewK8sClusterRepository(db)

	exp := time.Date(2026, 9, 7, 12, 0, 0, 0, time.Local)
	mkCluster(t, repo, "c-1", "a", 42, model.ClusterStatusProvisioning, exp)
	mkCluster(t, repo, "c-2", "b", 42, model.ClusterStatusRunning, exp)
	mkCluster(t, repo, "c-3", "c", 43, model.ClusterStatusProvisioning, exp)
	mkCluster(t, repo, "c-4", "d", 43, model.ClusterStatusErrored, exp)

	provisioning, err := repo.FindByStatus(model.ClusterStatusProvisioning)
	require.NoError(t, err)
	require.Len(t, provisioning, 2)
	for _, c := range provisioning {
		require.Equal(t, model.ClusterStatusProvisioning, c.Status)
	}
}

// TestK8sClusterRepository_UpdateStatus 状态更新与absence报告
func TestK8sClusterRepository_UpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewK8sClusterRepository(db)

	exp := time.Date(2026, 9, 7, 12, 0, 0, 0, time.Local)
	mkCluster(t, repo, "c-1", "staging", 42, model.ClusterStatusProvisioning, exp)

	found, err := repo.UpdateStatus("c-1", model.ClusterStatusRunning, "https://abc.k8s.ondigitalocean.com")
	require.NoError(t, err)
	require.True(t, found)

	got, err := repo.FindByID("c-1")
	require.NoError(t, err)
	require.Equal(t, model.ClusterStatusRunning, got.Status)
	require.Equal(t, "https://abc.k8s.ondigitalocean.com", got.Endpoint)

	// endpoint为空时不覆盖已有值
	found, err = repo.UpdateStatus("c-1", model.ClusterStatusRunning, "")
	require.NoError(t, err)
	require.True(t, found)
	got, err = repo.FindByID("c-1")
	require.NoError(t, err)
	require.Equal(t, "https://abc.k8s.ondigitalocean.com", got.Endpoint)

	found, err = repo.UpdateStatus("missing", model.ClusterStatusRunning, "")
	require.NoError(t, err)
	require.False(t, found)
}

// TestK8sClusterRepository_ExtendAndDelete 续期与删除
func TestK8sClusterRepository_ExtendAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewK8sClusterRepository(db)

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.Local)
	mkCluster(t, repo, "c-1", "staging", 42, model.ClusterStatusRunning, base)

	newExp, found, err := repo.ExtendExpiration("c-1", 7)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, base.AddDate(0, 0, 7), newExp)

	_, found, err = repo.ExtendExpiration("missing", 7)
	require.NoError(t, err)
	require.False(t, found)

	existed, err := repo.Delete("c-1")
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = repo.Delete("c-1")
	require.NoError(t, err)
	require.False(t, existed)
}

// TestK8sClusterRepository_FindDueForExpiry errored集群不豁免到期回收
func TestK8sClusterRepository_FindDueForExpiry(t *testing.T) {
	db := setupTestDB(t)
	repo := NewK8sClusterRepository(db)

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.Local)
	mkCluster(t, repo, "c-1", "expired", 42, model.ClusterStatusRunning, now.Add(-time.Hour))
	mkCluster(t, repo, "c-2", "errored-expired", 42, model.ClusterStatusErrored, now.Add(-time.Hour))
	mkCluster(t, repo, "c-3", "fresh", 42, model.ClusterStatusRunning, now.Add(48*time.Hour))

	due, err := repo.FindDueForExpiry(now, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, due, 2)

	ids := map[string]bool{}
	for _, c := range due {
		ids[c.ID] = true
	}
	require.True(t, ids["c-1"])
	require.True(t, ids["c-2"])
}
