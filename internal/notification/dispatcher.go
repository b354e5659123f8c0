package notification

import (
	"fmt"
	"time"

	"github.com/fisker/cloudlease-backend/internal/model"
	"github.com/fisker/cloudlease-backend/pkg/logger"
	"github.com/fisker/cloudlease-backend/pkg/metrics"
)

// Event 生命周期事件类型
type Event string

const (
	EventCreated         Event = "created"
	EventExtended        Event = "extended"
	EventDeleted         Event = "deleted"
	EventAutoDeleted     Event = "auto_deleted"
	EventSnapshotCreated Event = "snapshot_created"
	EventReady           Event = "ready"
	EventErrored         Event = "errored"
	EventWarning         Event = "warning"
)

// Dispatcher 生命周期事件通知分发器
// 纯格式化+发送：所有发送失败只记录日志，绝不向上传播——
// 通知失败不能导致生命周期动作被判定为失败
type Dispatcher struct {
	messenger       Messenger
	broadcastChatID int64 // 0表示未配置广播频道，广播静默跳过
}

// NewDispatcher 创建分发器
func NewDispatcher(messenger Messenger, broadcastChatID int64) *Dispatcher {
	return &Dispatcher{
		messenger:       messenger,
		broadcastChatID: broadcastChatID,
	}
}

// send 发给指定会话，失败只记录
func (d *Dispatcher) send(event Event, chatID int64, text string, buttons [][]Button) {
	if d.messenger == nil {
		return
	}
	if err := d.messenger.SendMessage(chatID, text, buttons); err != nil {
		metrics.NotificationsSentTotal.WithLabelValues(string(event), "failed").Inc()
		logger.Errorf("[Notification] Failed to send %s to chat %d: %v", event, chatID, err)
		return
	}
	metrics.NotificationsSentTotal.WithLabelValues(string(event), "ok").Inc()
}

// broadcast 发到广播频道，未配置时静默跳过
func (d *Dispatcher) broadcast(event Event, text string) {
	if d.broadcastChatID == 0 {
		return
	}
	d.send(event, d.broadcastChatID, text, nil)
}

// InstanceCreated 主机创建完成
func (d *Dispatcher) InstanceCreated(inst *model.Instance) {
	d.broadcast(EventCreated, fmt.Sprintf(
		"✅ Droplet created\nName: %s\nIP: %s\nType: %s\nExpires: %s\nCreator: %s",
		inst.Name, inst.IPAddress, inst.DropletType, inst.ExpirationDate, inst.DisplayName()))
}

// InstanceExtended 主机续期
func (d *Dispatcher) InstanceExtended(inst *model.Instance, newExp time.Time) {
	d.broadcast(EventExtended, fmt.Sprintf(
		"🔄 Droplet extended\nName: %s\nNew expiration: %s\nCreator: %s",
		inst.Name, model.FormatExpiration(newExp), inst.DisplayName()))
}

// InstanceDeleted 主机被创建者手动删除
func (d *Dispatcher) InstanceDeleted(inst *model.Instance) {
	d.broadcast(EventDeleted, fmt.Sprintf(
		"🗑 Droplet deleted\nName: %s\nCreator: %s", inst.Name, inst.DisplayName()))
}

// InstanceAutoDeleted 主机到期被自动回收
func (d *Dispatcher) InstanceAutoDeleted(inst *model.Instance) {
	d.broadcast(EventAutoDeleted, fmt.Sprintf(
		"⏰ Droplet auto-deleted (expired)\nName: %s\nCreator: %s", inst.Name, inst.DisplayName()))
}

// SnapshotCreated 回收前的安全快照完成
func (d *Dispatcher) SnapshotCreated(inst *model.Instance, snapshotName string) {
	d.broadcast(EventSnapshotCreated, fmt.Sprintf(
		"📸 Snapshot created before deletion\nDroplet: %s\nSnapshot: %s", inst.Name, snapshotName))
}

// InstanceExpiryWarning 到期前直发创建者的警告，附带续期/删除操作
// 每个巡检周期重发一次，直到续期或过期（不跟踪"已警告"状态）
func (d *Dispatcher) InstanceExpiryWarning(inst *model.Instance, left time.Duration) {
	text := fmt.Sprintf(
		"⚠️ Your droplet %s expires in %s and will be deleted.\nIP: %s\nExpires: %s",
		inst.Name, formatLeft(left), inst.IPAddress, inst.ExpirationDate)
	buttons := [][]Button{
		{
			{Text: "Extend 3 days", CallbackData: fmt.Sprintf("extend_droplet:%d:3", inst.DropletID)},
			{Text: "Extend 7 days", CallbackData: fmt.Sprintf("extend_droplet:%d:7", inst.DropletID)},
		},
		{
			{Text: "Delete now", CallbackData: fmt.Sprintf("delete_droplet:%d", inst.DropletID)},
		},
	}
	d.send(EventWarning, inst.CreatorID, text, buttons)
	metrics.ExpiryWarningsSent.Inc()
}

// ClusterCreated 集群开始创建
func (d *Dispatcher) ClusterCreated(cluster *model.K8sCluster) {
	d.broadcast(EventCreated, fmt.Sprintf(
		"✅ K8s cluster creation started\nName: %s\nRegion: %s\nVersion: %s\nNodes: %d x %s\nExpires: %s\nCreator: %s",
		cluster.Name, cluster.Region, cluster.Version, cluster.NodeCount, cluster.NodeSize,
		cluster.ExpirationDate, cluster.DisplayName()))
}

// ClusterExtended 集群续期
func (d *Dispatcher) ClusterExtended(cluster *model.K8sCluster, newExp time.Time) {
	d.broadcast(EventExtended, fmt.Sprintf(
		"🔄 K8s cluster extended\nName: %s\nNew expiration: %s\nCreator: %s",
		cluster.Name, model.FormatExpiration(newExp), cluster.DisplayName()))
}

// ClusterDeleted 集群被创建者手动删除
func (d *Dispatcher) ClusterDeleted(cluster *model.K8sCluster) {
	d.broadcast(EventDeleted, fmt.Sprintf(
		"🗑 K8s cluster deleted\nName: %s\nCreator: %s", cluster.Name, cluster.DisplayName()))
}

// ClusterAutoDeleted 集群到期被自动回收
func (d *Dispatcher) ClusterAutoDeleted(cluster *model.K8sCluster) {
	d.broadcast(EventAutoDeleted, fmt.Sprintf(
		"⏰ K8s cluster auto-deleted (expired)\nName: %s\nCreator: %s",
		cluster.Name, cluster.DisplayName()))
}

// ClusterExpiryWarning 集群到期前直发创建者的警告
func (d *Dispatcher) ClusterExpiryWarning(cluster *model.K8sCluster, left time.Duration) {
	text := fmt.Sprintf(
		"⚠️ Your K8s cluster %s expires in %s and will be deleted.\nExpires: %s",
		cluster.Name, formatLeft(left), cluster.ExpirationDate)
	buttons := [][]Button{
		{
			{Text: "Extend 3 days", CallbackData: fmt.Sprintf("extend_cluster:%s:3", cluster.ID)},
			{Text: "Extend 7 days", CallbackData: fmt.Sprintf("extend_cluster:%s:7", cluster.ID)},
		},
		{
			{Text: "Delete now", CallbackData: fmt.Sprintf("delete_cluster:%s", cluster.ID)},
		},
	}
	d.send(EventWarning, cluster.CreatorID, text, buttons)
	metrics.ExpiryWarningsSent.Inc()
}

// ClusterReady 集群就绪：直发创建者（degraded只在文案中提示），并广播
func (d *Dispatcher) ClusterReady(cluster *model.K8sCluster, degraded bool) {
	text := fmt.Sprintf("🎉 Your K8s cluster %s is ready!\nEndpoint: %s", cluster.Name, cluster.Endpoint)
	if degraded {
		text += "\n⚠️ Note: the cluster is currently in a degraded state. It is usable, but some nodes may still be joining."
	}
	d.send(EventReady, cluster.CreatorID, text, nil)
	d.broadcast(EventReady, fmt.Sprintf(
		"🎉 K8s cluster ready\nName: %s\nEndpoint: %s\nCreator: %s",
		cluster.Name, cluster.Endpoint, cluster.DisplayName()))
}

// ClusterErrored 集群创建失败（终态）
func (d *Dispatcher) ClusterErrored(cluster *model.K8sCluster) {
	d.send(EventErrored, cluster.CreatorID, fmt.Sprintf(
		"❌ Your K8s cluster %s failed to provision. It will not be retried automatically.", cluster.Name), nil)
	d.broadcast(EventErrored, fmt.Sprintf(
		"❌ K8s cluster errored\nName: %s\nCreator: %s", cluster.Name, cluster.DisplayName()))
}

// SendKubeconfig 把集群访问凭据以文件形式直发创建者
// 失败不影响就绪状态迁移，只记录日志
func (d *Dispatcher) SendKubeconfig(cluster *model.K8sCluster, kubeconfig []byte) {
	if d.messenger == nil {
		return
	}
	filename := cluster.Name + "-kubeconfig.yaml"
	err := d.messenger.SendDocument(cluster.CreatorID, filename, kubeconfig,
		fmt.Sprintf("Kubeconfig for cluster %s", cluster.Name))
	if err != nil {
		metrics.NotificationsSentTotal.WithLabelValues("kubeconfig", "failed").Inc()
		logger.Errorf("[Notification] Failed to deliver kubeconfig for cluster %s: %v", cluster.Name, err)
		return
	}
	metrics.NotificationsSentTotal.WithLabelValues("kubeconfig", "ok").Inc()
}

// formatLeft 剩余时间的人类可读格式
func formatLeft(left time.Duration) string {
	if left >= time.Hour {
		return fmt.Sprintf("%.1f hours", left.Hours())
	}
	return fmt.Sprintf("%d minutes", int(left.Minutes()))
}
