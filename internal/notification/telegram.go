package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// Button 消息下方的操作按钮
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// Messenger 出站消息边界
// 所有实现都必须是尽力而为：发送失败由调用方记录，不影响生命周期动作
type Messenger interface {
	SendMessage(chatID int64, text string, buttons [][]Button) error
	SendDocument(chatID int64, filename string, data []byte, caption string) error
}

// TelegramMessenger Telegram Bot API实现
type TelegramMessenger struct {
	baseURL    string
	httpClient *http.Client
}

// NewTelegramMessenger 创建Telegram消息发送器
func NewTelegramMessenger(botToken string) *TelegramMessenger {
	return &TelegramMessenger{
		baseURL: "https://api.telegram.org/bot" + botToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendMessage 发送文本消息（可带内联按钮）
func (m *TelegramMessenger) SendMessage(chatID int64, text string, buttons [][]Button) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if len(buttons) > 0 {
		payload["reply_markup"] = map[string]interface{}{
			"inline_keyboard": buttons,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message failed: %w", err)
	}

	resp, err := m.httpClient.Post(m.baseURL+"/sendMessage", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram returned non-200 status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendDocument 发送文件附件（multipart上传）
func (m *TelegramMessenger) SendDocument(chatID int64, filename string, data []byte, caption string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("build multipart failed: %w", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return fmt.Errorf("build multipart failed: %w", err)
		}
	}

	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return fmt.Errorf("build multipart failed: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("build multipart failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("build multipart failed: %w", err)
	}

	resp, err := m.httpClient.Post(m.baseURL+"/sendDocument", writer.FormDataContentType(), &buf)
	if err != nil {
		return fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram returned non-200 status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
