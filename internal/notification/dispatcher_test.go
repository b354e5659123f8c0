package notification

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fisker/cloudlease-backend/internal/model"
)

type sentMessage struct {
	chatID  int64
	text    string
	buttons [][]Button
}

// fakeMessenger 记录发送调用，可注入失败
type fakeMessenger struct {
	messages  []sentMessage
	documents []string
	failAll   bool
}

func (f *fakeMessenger) SendMessage(chatID int64, text string, buttons [][]Button) error {
	if f.failAll {
		return errors.New("telegram unreachable")
	}
	f.messages = append(f.messages, sentMessage{chatID: chatID, text: text, buttons: buttons})
	return nil
}

func (f *fakeMessenger) SendDocument(chatID int64, filename string, data []byte, caption string) error {
	if f.failAll {
		return errors.New("telegram unreachable")
	}
	f.documents = append(f.documents, filename)
	return nil
}

// TestDispatcherBroadcastUnconfigured 未配置广播频道时广播静默跳过
func TestDispatcherBroadcastUnconfigured(t *testing.T) {
	fake := &fakeMessenger{}
	d := NewDispatcher(fake, 0)

	d.InstanceCreated(&model.Instance{Name: "web-1", CreatorID: 42})
	require.Empty(t, fake.messages)
}

// TestDispatcherSendFailureNeverPanics 发送失败只记录，不传播
func TestDispatcherSendFailureNeverPanics(t *testing.T) {
	fake := &fakeMessenger{failAll: true}
	d := NewDispatcher(fake, -100500)

	inst := &model.Instance{Name: "web-1", CreatorID: 42}
	d.InstanceCreated(inst)
	d.InstanceAutoDeleted(inst)
	d.InstanceExpiryWarning(inst, 2*time.Hour)
}

// TestDispatcherExpiryWarningButtons 警告消息带续3天/续7天/立即删除按钮，直发创建者
func TestDispatcherExpiryWarningButtons(t *testing.T) {
	fake := &fakeMessenger{}
	d := NewDispatcher(fake, -100500)

	d.InstanceExpiryWarning(&model.Instance{DropletID: 1001, Name: "web-1", CreatorID: 42}, 12*time.Hour)

	require.Len(t, fake.messages, 1)
	msg := fake.messages[0]
	require.Equal(t, int64(42), msg.chatID)
	require.Len(t, msg.buttons, 2)
	require.Equal(t, "extend_droplet:1001:3", msg.buttons[0][0].CallbackData)
	require.Equal(t, "extend_droplet:1001:7", msg.buttons[0][1].CallbackData)
	require.Equal(t, "delete_droplet:1001", msg.buttons[1][0].CallbackData)
}

// TestDispatcherClusterReadyDegradedCaveat degraded只体现在文案里
func TestDispatcherClusterReadyDegradedCaveat(t *testing.T) {
	fake := &fakeMessenger{}
	d := NewDispatcher(fake, -100500)

	cluster := &model.K8sCluster{ID: "c-1", Name: "staging", CreatorID: 42, Endpoint: "https://abc.example.com"}
	d.ClusterReady(cluster, true)

	require.GreaterOrEqual(t, len(fake.messages), 2)
	direct := fake.messages[0]
	require.Equal(t, int64(42), direct.chatID)
	require.Contains(t, direct.text, "degraded")

	d.ClusterReady(cluster, false)
	require.NotContains(t, fake.messages[2].text, "degraded")
}

// TestDispatcherDisplayNameFallback 无用户名时回退到创建者ID
func TestDispatcherDisplayNameFallback(t *testing.T) {
	fake := &fakeMessenger{}
	d := NewDispatcher(fake, -100500)

	d.InstanceCreated(&model.Instance{Name: "web-1", CreatorID: 42})
	require.Len(t, fake.messages, 1)
	require.True(t, strings.Contains(fake.messages[0].text, "Creator: 42"))

	name := "alice"
	d.InstanceCreated(&model.Instance{Name: "web-2", CreatorID: 42, CreatorUsername: &name})
	require.Contains(t, fake.messages[1].text, "Creator: alice")
}
