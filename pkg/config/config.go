package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Provider  ProviderConfig  `yaml:"provider"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Mail      MailConfig      `yaml:"mail"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Auth      AuthConfig      `yaml:"auth"`
}

// AuthConfig 前端身份令牌校验配置
type AuthConfig struct {
	// JWTSecret 签名密钥（建议64字节或更长，可用环境变量 JWT_SECRET 覆盖）
	JWTSecret string `yaml:"jwt_secret"`
}

type ServerConfig struct {
	APIPort int    `yaml:"api_port"`
	Mode    string `yaml:"mode"` // gin mode: debug / release
}

type DatabaseConfig struct {
	Driver          string `yaml:"driver"` // 数据库驱动: mysql, postgres (默认: mysql)
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"dbname"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	// Enabled 是否启用Redis
	// - true: 启用Redis，回收任务通过分布式锁防止巡检周期重叠执行
	// - false: 禁用Redis，仅使用进程内互斥（单机部署）
	Enabled bool `yaml:"enabled"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// ConnectTimeout 连接超时时间（秒，默认5秒）
	ConnectTimeout int `yaml:"connect_timeout"`
	ReadTimeout    int `yaml:"read_timeout"`
	WriteTimeout   int `yaml:"write_timeout"`
	PoolSize       int `yaml:"pool_size"`
	MinIdleConns   int `yaml:"min_idle_conns"`
}

// Validate 验证Redis配置
func (c *RedisConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Host == "" {
		return fmt.Errorf("redis host is required when enabled=true")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid redis port: %d", c.Port)
	}

	return nil
}

// SetDefaults 设置默认值
func (c *RedisConfig) SetDefaults() {
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = 5
	}
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug / info / warn / error
	Output string `yaml:"output"` // console / file / both
	File   string `yaml:"file"`   // 日志文件路径
}

// ProviderConfig DigitalOcean API 配置
type ProviderConfig struct {
	// Token DigitalOcean API Bearer Token（必填，可用环境变量 DO_TOKEN 覆盖）
	Token string `yaml:"token"`

	// BaseURL API 基础地址，默认官方地址，测试时可指向 mock server
	BaseURL string `yaml:"base_url"`

	// DefaultRegion 默认创建区域
	DefaultRegion string `yaml:"default_region"`

	// IPPollAttempts 创建 Droplet 后轮询 IP 的最大次数
	IPPollAttempts int `yaml:"ip_poll_attempts"`
	// IPPollInterval 轮询 IP 的间隔（秒）
	IPPollInterval int `yaml:"ip_poll_interval"`

	// OptionsCacheTTL 尺寸/版本等选项列表的缓存时间（秒，默认1小时）
	OptionsCacheTTL int `yaml:"options_cache_ttl"`
}

// SetDefaults 设置 Provider 默认值
func (c *ProviderConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.digitalocean.com/v2"
	}
	if c.DefaultRegion == "" {
		c.DefaultRegion = "fra1"
	}
	if c.IPPollAttempts == 0 {
		c.IPPollAttempts = 10
	}
	if c.IPPollInterval == 0 {
		c.IPPollInterval = 5
	}
	if c.OptionsCacheTTL == 0 {
		c.OptionsCacheTTL = 3600
	}
}

// Validate 验证 Provider 配置
func (c *ProviderConfig) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("provider token is required (set provider.token or DO_TOKEN)")
	}
	return nil
}

// TelegramConfig 出站消息配置（直达消息 + 广播频道）
type TelegramConfig struct {
	// BotToken Telegram Bot API Token
	BotToken string `yaml:"bot_token"`

	// BroadcastChatID 生命周期事件广播频道 ID（为空时广播静默跳过）
	BroadcastChatID string `yaml:"broadcast_chat_id"`
}

// MailConfig 邮箱管理模块的远程 Shell 配置
type MailConfig struct {
	SSHHost    string `yaml:"ssh_host"`
	SSHPort    int    `yaml:"ssh_port"`
	SSHUser    string `yaml:"ssh_user"`
	SSHKeyPath string `yaml:"ssh_key_path"`

	// DefaultDomain 新建邮箱的默认域名
	DefaultDomain string `yaml:"default_domain"`
}

// SetDefaults 设置邮箱模块默认值
func (c *MailConfig) SetDefaults() {
	if c.SSHPort == 0 {
		c.SSHPort = 22
	}
}

// LifecycleConfig 生命周期回收配置
type LifecycleConfig struct {
	// SweepInterval 过期巡检间隔（秒，默认12小时）
	// 24小时警告窗口内每次巡检都会重发提醒，间隔过短会刷屏
	SweepInterval int `yaml:"sweep_interval"`

	// PollInterval provisioning 集群快速轮询间隔（秒，默认30秒）
	PollInterval int `yaml:"poll_interval"`

	// WarningWindow 删除前警告窗口（秒，默认24小时）
	WarningWindow int `yaml:"warning_window"`

	// SnapshotTimeout 等待快照完成的超时（秒，默认10分钟）
	SnapshotTimeout int `yaml:"snapshot_timeout"`
	// SnapshotPollInterval 快照完成轮询间隔（秒，默认15秒）
	SnapshotPollInterval int `yaml:"snapshot_poll_interval"`
}

// SetDefaults 设置生命周期默认值
func (c *LifecycleConfig) SetDefaults() {
	if c.SweepInterval == 0 {
		c.SweepInterval = 43200 // 12 hours
	}
	if c.PollInterval == 0 {
		c.PollInterval = 30
	}
	if c.WarningWindow == 0 {
		c.WarningWindow = 86400 // 24 hours
	}
	if c.SnapshotTimeout == 0 {
		c.SnapshotTimeout = 600
	}
	if c.SnapshotPollInterval == 0 {
		c.SnapshotPollInterval = 15
	}
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// 设置默认值
	config.Database.SetDefaults()
	config.Redis.SetDefaults()
	config.Provider.SetDefaults()
	config.Mail.SetDefaults()
	config.Lifecycle.SetDefaults()

	// 支持通过环境变量覆盖数据库配置（Docker 部署时使用）
	if dbDriver := os.Getenv("DB_DRIVER"); dbDriver != "" {
		config.Database.Driver = dbDriver
	}
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = port
		}
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		config.Database.Password = dbPassword
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		config.Database.DBName = dbName
	}

	// 支持通过环境变量覆盖Redis配置
	if redisEnabled := os.Getenv("REDIS_ENABLED"); redisEnabled != "" {
		if enabled, err := strconv.ParseBool(redisEnabled); err == nil {
			config.Redis.Enabled = enabled
		}
	}
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		config.Redis.Host = redisHost
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		if port, err := strconv.Atoi(redisPort); err == nil {
			config.Redis.Port = port
		}
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Redis.Password = redisPassword
	}

	// 敏感凭证优先从环境变量读取
	if doToken := os.Getenv("DO_TOKEN"); doToken != "" {
		config.Provider.Token = doToken
	}
	if botToken := os.Getenv("TELEGRAM_BOT_TOKEN"); botToken != "" {
		config.Telegram.BotToken = botToken
	}
	if chatID := os.Getenv("NOTIFICATION_CHANNEL_ID"); chatID != "" {
		config.Telegram.BroadcastChatID = chatID
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		config.Auth.JWTSecret = jwtSecret
	}

	// 重新设置默认值（环境变量可能覆盖了某些值）
	config.Database.SetDefaults()
	config.Redis.SetDefaults()
	config.Provider.SetDefaults()

	// 验证配置
	if err := config.Redis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}
	if err := config.Provider.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}

	GlobalConfig = &config
	return &config, nil
}

func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" || c.Driver == "postgresql" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.DBName)
	}
	// 默认 MySQL
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// SetDefaults 设置默认值
func (c *DatabaseConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "mysql"
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 100
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 3600 // 1 hour
	}
}
