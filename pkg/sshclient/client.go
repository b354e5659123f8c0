package sshclient

import (
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHClient 简单的 SSH 命令执行客户端（密钥认证）
// 用于在邮件宿主机上执行管理命令
type SSHClient struct {
	client *ssh.Client
}

type SSHConfig struct {
	Host       string
	Port       int
	Username   string
	PrivateKey string // 私钥内容（PEM）
	KeyPath    string // 私钥文件路径（与 PrivateKey 二选一）
	Timeout    time.Duration
}

// NewSSHClient 建立 SSH 连接
func NewSSHClient(cfg SSHConfig) (*SSHClient, error) {
	keyData := []byte(cfg.PrivateKey)
	if len(keyData) == 0 {
		if cfg.KeyPath == "" {
			return nil, fmt.Errorf("no private key provided")
		}
		var err error
		keyData, err = os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key %s: %w", cfg.KeyPath, err)
		}
	}

	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sshConfig := &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // 生产环境应该验证 host key
		Timeout:         timeout,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		log.Printf("[SSHClient] Failed to dial %s as user '%s': %v", addr, cfg.Username, err)
		return nil, fmt.Errorf("failed to dial %s as %s: %w", addr, cfg.Username, err)
	}

	return &SSHClient{client: client}, nil
}

// Run 执行单条命令并返回合并输出
// 每条命令使用独立的 session
func (c *SSHClient) Run(cmd string) (string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	output, err := session.CombinedOutput(cmd)
	if err != nil {
		return string(output), fmt.Errorf("command failed: %w (output: %s)", err, string(output))
	}
	return string(output), nil
}

func (c *SSHClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// TestConnection 测试 SSH 连接
func TestConnection(cfg SSHConfig) error {
	client, err := NewSSHClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	_, err = client.Run("echo test")
	return err
}
