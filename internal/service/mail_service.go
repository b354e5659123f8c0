package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/fisker/cloudlease-backend/pkg/config"
	"github.com/fisker/cloudlease-backend/pkg/logger"
	"github.com/fisker/cloudlease-backend/pkg/sshclient"
)

// ErrMailboxExists 邮箱已存在
var ErrMailboxExists = errors.New("mailbox already exists")

// 邮件服务器容器内的 iRedMail 管理脚本调用参数
const (
	mailContainer = "onlyoffice-mail-server"
	mailDBHost    = "onlyoffice-mysql-server"
	mailDBUser    = "root"
	mailDBPass    = "my-secret-pw"
	mailDBName    = "onlyoffice_mailserver"

	createMailboxScript  = "/usr/src/iRedMail/tools/scripts/create_mailboxes.py"
	changePasswordScript = "/usr/src/iRedMail/tools/scripts/change_passwords.py"
)

const passwordLength = 10

// MailService 通过远程Shell管理邮件服务器上的邮箱
type MailService struct {
	cfg *config.MailConfig
}

func NewMailService(cfg *config.MailConfig) *MailService {
	return &MailService{cfg: cfg}
}

// MailboxResult 邮箱操作结果
type MailboxResult struct {
	Address  string `json:"address"`
	Password string `json:"password"`
}

// CreateMailbox 创建邮箱并返回随机生成的初始密码
func (s *MailService) CreateMailbox(name string) (*MailboxResult, error) {
	address := s.qualify(name)
	password, err := GeneratePassword(passwordLength)
	if err != nil {
		return nil, err
	}

	cmd := fmt.Sprintf(
		`sudo docker exec %s python %s -d "%s" -u "%s" -p "%s" -dn "%s" -mba "%s" -mbp "%s"`,
		mailContainer, createMailboxScript, mailDBHost, mailDBUser, mailDBPass, mailDBName, address, password,
	)
	output, err := s.runRemote(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailbox %s: %w", address, err)
	}
	if strings.Contains(output, fmt.Sprintf("User '%s' exist", address)) {
		return nil, fmt.Errorf("%w: %s", ErrMailboxExists, address)
	}

	logger.Infof("[MailService] ✅ Mailbox %s created", address)
	return &MailboxResult{Address: address, Password: password}, nil
}

// ResetPassword 重置邮箱密码并返回新密码
func (s *MailService) ResetPassword(name string) (*MailboxResult, error) {
	address := s.qualify(name)
	password, err := GeneratePassword(passwordLength)
	if err != nil {
		return nil, err
	}

	cmd := fmt.Sprintf(
		`sudo docker exec %s python %s -d "%s" -u "%s" -p "%s" -dn "%s" -mba "%s" -mbp "%s"`,
		mailContainer, changePasswordScript, mailDBHost, mailDBUser, mailDBPass, mailDBName, address, password,
	)
	output, err := s.runRemote(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to reset password for %s: %w", address, err)
	}
	if !strings.Contains(output, "password has been changed") {
		return nil, fmt.Errorf("password reset for %s did not confirm: %s", address, strings.TrimSpace(output))
	}

	logger.Infof("[MailService] Password reset for mailbox %s", address)
	return &MailboxResult{Address: address, Password: password}, nil
}

// qualify 补全裸用户名为完整邮箱地址
func (s *MailService) qualify(name string) string {
	if strings.Contains(name, "@") || s.cfg.DefaultDomain == "" {
		return name
	}
	return fmt.Sprintf("%s@%s", name, s.cfg.DefaultDomain)
}

// runRemote 每次操作建立独立SSH连接执行命令
func (s *MailService) runRemote(cmd string) (string, error) {
	client, err := sshclient.NewSSHClient(sshclient.SSHConfig{
		Host:     s.cfg.SSHHost,
		Port:     s.cfg.SSHPort,
		Username: s.cfg.SSHUser,
		KeyPath:  s.cfg.SSHKeyPath,
		Timeout:  30 * time.Second,
	})
	if err != nil {
		return "", fmt.Errorf("failed to connect to mail host: %w", err)
	}
	defer client.Close()
	return client.Run(cmd)
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GeneratePassword 生成指定长度的随机密码
func GeneratePassword(length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		b[i] = passwordAlphabet[n.Int64()]
	}
	return string(b), nil
}
