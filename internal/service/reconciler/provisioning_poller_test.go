package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fisker/cloudlease-backend/internal/model"
	"github.com/fisker/cloudlease-backend/internal/provider"
	"github.com/fisker/cloudlease-backend/internal/repository"
)

func seedProvisioning(t *testing.T, clusters *repository.K8sClusterRepository, id, name string) {
	t.Helper()
	require.NoError(t, clusters.Create(&model.K8sCluster{
		ID:             id,
		Name:           name,
		Status:         model.ClusterStatusProvisioning,
		CreatorID:      42,
		ExpirationDate: model.FormatExpiration(time.Now().AddDate(0, 0, 7)),
	}))
}

// TestPollClusterReady running集群落库并通知，凭据以文件送达
func TestPollClusterReady(t *testing.T) {
	db := setupTestDB(t)
	clusters := repository.NewK8sClusterRepository(db)
	seedProvisioning(t, clusters, "c-1", "staging")

	prov := newFakeProvider()
	prov.clusters["c-1"] = &provider.Cluster{
		ID: "c-1", State: provider.ClusterStateRunning, Endpoint: "https://abc.k8s.example.com",
	}
	messenger := &fakeMessenger{}
	poller := newTestPoller(db, prov, messenger)
	poller.Poll(context.Background())

	got, err := clusters.FindByID("c-1")
	require.NoError(t, err)
	require.Equal(t, model.ClusterStatusRunning, got.Status)
	require.Equal(t, "https://abc.k8s.example.com", got.Endpoint)

	require.True(t, messenger.containsText("ready"))
	require.False(t, messenger.containsText("degraded"))
	require.Equal(t, []string{"staging-kubeconfig.yaml"}, messenger.documents)
}

// TestPollClusterDegradedStoredAsRunning degraded落库为running，文案带提示
func TestPollClusterDegradedStoredAsRunning(t *testing.T) {
	db := setupTestDB(t)
	clusters := repository.NewK8sClusterRepository(db)
	seedProvisioning(t, clusters, "c-1", "staging")

	prov := newFakeProvider()
	prov.clusters["c-1"] = &provider.Cluster{
		ID: "c-1", State: provider.ClusterStateDegraded, Endpoint: "https://abc.k8s.example.com",
	}
	messenger := &fakeMessenger{}
	poller := newTestPoller(db, prov, messenger)
	poller.Poll(context.Background())

	got, err := clusters.FindByID("c-1")
	require.NoError(t, err)
	require.Equal(t, model.ClusterStatusRunning, got.Status)
	require.Equal(t, "https://abc.k8s.example.com", got.Endpoint)
	require.True(t, messenger.containsText("degraded"))
}

// TestPollClusterErroredTerminal errored落库终态，后续轮次不再处理
func TestPollClusterErroredTerminal(t *testing.T) {
	db := setupTestDB(t)
	clusters := repository.NewK8sClusterRepository(db)
	seedProvisioning(t, clusters, "c-1", "broken")

	prov := newFakeProvider()
	prov.clusters["c-1"] = &provider.Cluster{ID: "c-1", State: provider.ClusterStateError}
	messenger := &fakeMessenger{}
	poller := newTestPoller(db, prov, messenger)
	poller.Poll(context.Background())

	got, err := clusters.FindByID("c-1")
	require.NoError(t, err)
	require.Equal(t, model.ClusterStatusErrored, got.Status)
	require.True(t, messenger.containsText("failed to provision"))

	// 终态：下一轮不再查询、不重复通知
	notified := len(messenger.texts)
	queried := prov.getCalls
	poller.Poll(context.Background())
	require.Equal(t, queried, prov.getCalls)
	require.Len(t, messenger.texts, notified)
}

// TestPollQueryFailureIsNotErrored 查询失败只记录，不落errored
func TestPollQueryFailureIsNotErrored(t *testing.T) {
	db := setupTestDB(t)
	clusters := repository.NewK8sClusterRepository(db)
	seedProvisioning(t, clusters, "c-1", "flaky")

	prov := newFakeProvider()
	prov.getClusterErr = errors.New("network down")
	messenger := &fakeMessenger{}
	poller := newTestPoller(db, prov, messenger)
	poller.Poll(context.Background())

	got, err := clusters.FindByID("c-1")
	require.NoError(t, err)
	require.Equal(t, model.ClusterStatusProvisioning, got.Status)
	require.Empty(t, messenger.texts)
}

// TestPollStillProvisioningNoAction 仍在创建中：无动作，留给下一轮
func TestPollStillProvisioningNoAction(t *testing.T) {
	db := setupTestDB(t)
	clusters := repository.NewK8sClusterRepository(db)
	seedProvisioning(t, clusters, "c-1", "slow")

	prov := newFakeProvider()
	prov.clusters["c-1"] = &provider.Cluster{ID: "c-1", State: provider.ClusterStateProvisioning}
	messenger := &fakeMessenger{}
	poller := newTestPoller(db, prov, messenger)
	poller.Poll(context.Background())

	got, err := clusters.FindByID("c-1")
	require.NoError(t, err)
	require.Equal(t, model.ClusterStatusProvisioning, got.Status)
	require.Empty(t, messenger.texts)
}

// TestPollKubeconfigFailureNonFatal 凭据获取失败不影响就绪迁移和ready通知
func TestPollKubeconfigFailureNonFatal(t *testing.T) {
	db := setupTestDB(t)
	clusters := repository.NewK8sClusterRepository(db)
	seedProvisioning(t, clusters, "c-1", "staging")

	prov := newFakeProvider()
	prov.clusters["c-1"] = &provider.Cluster{
		ID: "c-1", State: provider.ClusterStateRunning, Endpoint: "https://abc.k8s.example.com",
	}
	prov.kubeconfigErr = errors.New("credentials endpoint down")
	messenger := &fakeMessenger{}
	poller := newTestPoller(db, prov, messenger)
	poller.Poll(context.Background())

	got, err := clusters.FindByID("c-1")
	require.NoError(t, err)
	require.Equal(t, model.ClusterStatusRunning, got.Status)
	require.True(t, messenger.containsText("ready"))
	require.Empty(t, messenger.documents)
}

// TestPollPerClusterIsolation 一个集群失败不影响其余集群
func TestPollPerClusterIsolation(t *testing.T) {
	db := setupTestDB(t)
	clusters := repository.NewK8sClusterRepository(db)
	seedProvisioning(t, clusters, "c-gone", "gone")
	seedProvisioning(t, clusters, "c-ok", "ok")

	prov := newFakeProvider()
	// c-gone 在provider侧404，c-ok 正常就绪
	prov.clusters["c-ok"] = &provider.Cluster{
		ID: "c-ok", State: provider.ClusterStateRunning, Endpoint: "https://ok.k8s.example.com",
	}
	messenger := &fakeMessenger{}
	poller := newTestPoller(db, prov, messenger)
	poller.Poll(context.Background())

	got, err := clusters.FindByID("c-ok")
	require.NoError(t, err)
	require.Equal(t, model.ClusterStatusRunning, got.Status)
}
