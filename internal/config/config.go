package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Retention RetentionConfig `mapstructure:"retention"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	AutoMigrate     bool   `mapstructure:"auto_migrate"`      // 是否自动迁移表结构
}

// RedisConfig Redis 配置（任务队列与清理时间戳存储）
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// AuthConfig 认证配置
// 本服务不负责签发令牌，只校验外部身份服务签发的 JWT
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RetentionConfig 回收站与撤销日志的保留策略配置
type RetentionConfig struct {
	TrashRetentionDays  int `mapstructure:"trash_retention_days"`  // 回收站保留天数，默认 30
	UndoTimeoutMs       int `mapstructure:"undo_timeout_ms"`       // 撤销窗口毫秒数，默认 10000
	UndoCacheSize       int `mapstructure:"undo_cache_size"`       // 内存工作集容量，默认 50
	UndoCacheAgeMinutes int `mapstructure:"undo_cache_age_minutes"` // 内存条目最大存活分钟数，默认 60
	HistoryHorizonDays  int `mapstructure:"history_horizon_days"`  // 持久日志保留天数，默认 7
	CleanupIntervalHrs  int `mapstructure:"cleanup_interval_hours"` // 清理节流间隔小时数，默认 24
}

// TrashRetention 回收站保留时长
func (c *RetentionConfig) TrashRetention() time.Duration {
	days := c.TrashRetentionDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// UndoTimeout 默认撤销窗口
func (c *RetentionConfig) UndoTimeout() time.Duration {
	ms := c.UndoTimeoutMs
	if ms <= 0 {
		ms = 10000
	}
	return time.Duration(ms) * time.Millisecond
}

// UndoCacheAge 内存工作集条目最大存活时间
func (c *RetentionConfig) UndoCacheAge() time.Duration {
	min := c.UndoCacheAgeMinutes
	if min <= 0 {
		min = 60
	}
	return time.Duration(min) * time.Minute
}

// HistoryHorizon 持久撤销日志的保留时长
func (c *RetentionConfig) HistoryHorizon() time.Duration {
	days := c.HistoryHorizonDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

// CleanupInterval 清理任务节流间隔
func (c *RetentionConfig) CleanupInterval() time.Duration {
	hrs := c.CleanupIntervalHrs
	if hrs <= 0 {
		hrs = 24
	}
	return time.Duration(hrs) * time.Hour
}

// CacheSize 内存工作集容量
func (c *RetentionConfig) CacheSize() int {
	if c.UndoCacheSize <= 0 {
		return 50
	}
	return c.UndoCacheSize
}

var globalConfig *Config

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// 环境变量优先级高于配置文件，如 APP_DATABASE_HOST
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}
