package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	DocumentAI DocumentAIConfig `mapstructure:"documentai"`
	OCR        OCRConfig        `mapstructure:"ocr"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"` // 服务器主机
	Port int    `mapstructure:"port"` // 服务器端口
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type      string `mapstructure:"type"`     // 存储类型：local 或 minio
	Path      string `mapstructure:"path"`     // 本地存储路径
	Bucket    string `mapstructure:"bucket"`   // MinIO桶名称
	Endpoint  string `mapstructure:"endpoint"` // MinIO端点
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"` // 是否使用SSL
}

// OpenAIConfig OpenAI接口配置
type OpenAIConfig struct {
	APIKey          string `mapstructure:"api_key"`          // API密钥
	AnalysisModel   string `mapstructure:"analysis_model"`   // 分析类任务使用的模型
	GenerationModel string `mapstructure:"generation_model"` // 生成类任务使用的模型
	WhisperModel    string `mapstructure:"whisper_model"`    // 语音转写模型
	ChatEndpoint    string `mapstructure:"chat_endpoint"`    // 聊天补全端点
	WhisperEndpoint string `mapstructure:"whisper_endpoint"` // 语音转写端点
	MaxRetries      int    `mapstructure:"max_retries"`      // 请求最大重试次数
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`  // 请求超时时间(秒)
}

// DocumentAIConfig Google Document AI OCR配置
type DocumentAIConfig struct {
	ProjectID        string `mapstructure:"project_id"`        // GCP项目ID
	Location         string `mapstructure:"location"`          // 处理器所在区域
	ProcessorID      string `mapstructure:"processor_id"`      // OCR处理器ID
	ProcessorVersion string `mapstructure:"processor_version"` // 可选的处理器版本
	AccessToken      string `mapstructure:"access_token"`      // 访问令牌
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`   // 请求超时时间(秒)
}

// OCRConfig 文档分块提取配置
type OCRConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"` // 单个分块大小上限(字节)
	MaxPages     int   `mapstructure:"max_pages"`      // 单个分块页数上限
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`   // 是否启用缓存
	Type     string `mapstructure:"type"`     // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address"`  // Redis地址
	Password string `mapstructure:"password"` // Redis密码
	DB       int    `mapstructure:"db"`       // Redis数据库
	TTL      int    `mapstructure:"ttl"`      // 缓存TTL（秒）
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	Enable        bool   `mapstructure:"enable"`         // 是否启用任务队列
	Type          string `mapstructure:"type"`           // 队列类型
	RedisAddr     string `mapstructure:"redis_addr"`     // Redis地址
	RedisPassword string `mapstructure:"redis_password"` // Redis密码
	RedisDB       int    `mapstructure:"redis_db"`       // Redis数据库编号
	Concurrency   int    `mapstructure:"concurrency"`    // 任务处理并发数
	RetryLimit    int    `mapstructure:"retry_limit"`    // 任务最大重试次数
	RetryDelay    int    `mapstructure:"retry_delay"`    // 重试延迟(秒)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // 数据库类型: sqlite
	DSN  string `mapstructure:"dsn"`  // 数据源名称
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	File       string `mapstructure:"file"`        // 日志文件路径，为空时输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // 单个日志文件大小上限(MB)
	MaxBackups int    `mapstructure:"max_backups"` // 保留的历史日志文件数
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	var config Config

	// 设置默认配置路径
	if configPath == "" {
		configPath = "config.yaml" // 默认在当前目录寻找config.yaml
	}

	// 初始化viper
	v := viper.New()
	v.SetConfigFile(configPath)

	// 尝试读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果找不到配置文件，创建一个默认配置文件
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			log.Printf("Warning: Config file not found at %s, using defaults", configPath)
			setDefaults(v)
			dir := filepath.Dir(configPath)
			if err := os.MkdirAll(dir, 0755); err == nil {
				if err := v.WriteConfigAs(configPath); err != nil {
					log.Printf("Warning: Could not write default config to %s: %v", configPath, err)
				}
			}
		} else {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	} else {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	// 设置默认值
	setDefaults(v)

	// 支持环境变量覆盖
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 解析配置到结构体
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	expandEnvironmentVariables(&config)

	return &config, nil
}

// expandEnvironmentVariables 展开密钥配置项中的${ENV}引用
func expandEnvironmentVariables(cfg *Config) {
	cfg.OpenAI.APIKey = expandEnv(cfg.OpenAI.APIKey)
	cfg.DocumentAI.AccessToken = expandEnv(cfg.DocumentAI.AccessToken)
	cfg.Storage.AccessKey = expandEnv(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = expandEnv(cfg.Storage.SecretKey)
	cfg.Cache.Password = expandEnv(cfg.Cache.Password)
	cfg.Queue.RedisPassword = expandEnv(cfg.Queue.RedisPassword)
}

// expandEnv 将形如${VAR}的值替换为对应环境变量
func expandEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVar := value[2 : len(value)-1]
		if envVal := os.Getenv(envVar); envVal != "" {
			return envVal
		}
	}
	return value
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// 存储默认配置
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "./uploads")
	v.SetDefault("storage.bucket", "smartqms")
	v.SetDefault("storage.use_ssl", false)

	// OpenAI默认配置
	v.SetDefault("openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("openai.analysis_model", "gpt-4o")
	v.SetDefault("openai.generation_model", "gpt-3.5-turbo")
	v.SetDefault("openai.whisper_model", "whisper-1")
	v.SetDefault("openai.chat_endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("openai.whisper_endpoint", "https://api.openai.com/v1/audio/transcriptions")
	v.SetDefault("openai.max_retries", 3)
	v.SetDefault("openai.timeout_seconds", 120)

	// Document AI默认配置
	v.SetDefault("documentai.location", "us")
	v.SetDefault("documentai.access_token", "${DOCUMENTAI_ACCESS_TOKEN}")
	v.SetDefault("documentai.timeout_seconds", 120)

	// 分块提取默认配置
	v.SetDefault("ocr.max_size_bytes", 10<<20) // 10MB
	v.SetDefault("ocr.max_pages", 10)

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", 86400) // 24小时

	// 队列默认配置
	v.SetDefault("queue.enable", false)
	v.SetDefault("queue.type", "redis")
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.retry_limit", 3)
	v.SetDefault("queue.retry_delay", 60) // 60秒

	// 数据库默认配置
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/smartqms.db")

	// 日志默认配置
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 30)
}
