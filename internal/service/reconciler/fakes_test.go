package reconciler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fisker/cloudlease-backend/internal/model"
	"github.com/fisker/cloudlease-backend/internal/notification"
	"github.com/fisker/cloudlease-backend/internal/provider"
	"github.com/fisker/cloudlease-backend/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Instance{}, &model.K8sCluster{}, &model.SSHKeyUsage{}))
	return db
}

// fakeMessenger 记录所有出站消息
type fakeMessenger struct {
	texts     []string
	chatIDs   []int64
	documents []string
}

func (f *fakeMessenger) SendMessage(chatID int64, text string, buttons [][]notification.Button) error {
	f.chatIDs = append(f.chatIDs, chatID)
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendDocument(chatID int64, filename string, data []byte, caption string) error {
	f.documents = append(f.documents, filename)
	return nil
}

func (f *fakeMessenger) containsText(substr string) bool {
	for _, text := range f.texts {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

// fakeProvider 可编程的云服务商桩
type fakeProvider struct {
	snapshotErr      error
	snapshotOutcome  provider.ActionOutcome
	waitErr          error
	deleteDropletErr error
	deleteClusterErr error
	dnsErr           error

	snapshots       []string
	deletedDroplets []int64
	deletedClusters []string
	deletedDNS      []int64

	clusters      map[string]*provider.Cluster
	getClusterErr error
	kubeconfig    []byte
	kubeconfigErr error
	getCalls      int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		snapshotOutcome: provider.ActionCompleted,
		clusters:        make(map[string]*provider.Cluster),
		kubeconfig:      []byte("apiVersion: v1\nkind: Config\n"),
	}
}

func (f *fakeProvider) CreateSnapshot(ctx context.Context, dropletID int64, name string) (int64, error) {
	if f.snapshotErr != nil {
		return 0, f.snapshotErr
	}
	f.snapshots = append(f.snapshots, name)
	return int64(len(f.snapshots)), nil
}

func (f *fakeProvider) WaitForAction(ctx context.Context, actionID int64, timeout, interval time.Duration) (provider.ActionOutcome, error) {
	if f.waitErr != nil {
		return "", f.waitErr
	}
	return f.snapshotOutcome, nil
}

func (f *fakeProvider) DeleteDroplet(ctx context.Context, id int64) error {
	if f.deleteDropletErr != nil {
		return f.deleteDropletErr
	}
	f.deletedDroplets = append(f.deletedDroplets, id)
	return nil
}

func (f *fakeProvider) DeleteDNSRecord(ctx context.Context, zone string, recordID int64) error {
	if f.dnsErr != nil {
		return f.dnsErr
	}
	f.deletedDNS = append(f.deletedDNS, recordID)
	return nil
}

func (f *fakeProvider) DeleteCluster(ctx context.Context, id string) error {
	if f.deleteClusterErr != nil {
		return f.deleteClusterErr
	}
	f.deletedClusters = append(f.deletedClusters, id)
	return nil
}

func (f *fakeProvider) GetCluster(ctx context.Context, id string) (*provider.Cluster, error) {
	f.getCalls++
	if f.getClusterErr != nil {
		return nil, f.getClusterErr
	}
	c, ok := f.clusters[id]
	if !ok {
		return nil, &provider.Error{Kind: provider.ErrKindPermanent, StatusCode: 404, Op: "get_cluster"}
	}
	return c, nil
}

func (f *fakeProvider) GetKubeconfig(ctx context.Context, id string) ([]byte, error) {
	if f.kubeconfigErr != nil {
		return nil, f.kubeconfigErr
	}
	return f.kubeconfig, nil
}

// newTestSweeper 固定时钟的巡检器
func newTestSweeper(db *gorm.DB, prov *fakeProvider, messenger *fakeMessenger, now time.Time) *ExpirySweeper {
	return &ExpirySweeper{
		instances:            repository.NewInstanceRepository(db),
		clusters:             repository.NewK8sClusterRepository(db),
		prov:                 prov,
		dispatcher:           notification.NewDispatcher(messenger, -100500),
		stopChan:             make(chan struct{}),
		sweepInterval:        12 * time.Hour,
		warningWindow:        24 * time.Hour,
		snapshotTimeout:      time.Second,
		snapshotPollInterval: time.Millisecond,
		now:                  func() time.Time { return now },
	}
}

func newTestPoller(db *gorm.DB, prov *fakeProvider, messenger *fakeMessenger) *ProvisioningPoller {
	return &ProvisioningPoller{
		clusters:     repository.NewK8sClusterRepository(db),
		prov:         prov,
		dispatcher:   notification.NewDispatcher(messenger, -100500),
		stopChan:     make(chan struct{}),
		pollInterval: 30 * time.Second,
	}
}
