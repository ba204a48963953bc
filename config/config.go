package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	VectorDB VectorDBConfig `mapstructure:"vectordb"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Embed    EmbedConfig    `mapstructure:"embed"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Database DatabaseConfig `mapstructure:"database"`
	Document DocumentConfig `mapstructure:"document"`
	Search   SearchConfig   `mapstructure:"search"`
	Quiz     QuizConfig     `mapstructure:"quiz"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"` // 服务器主机
	Port int    `mapstructure:"port"` // 服务器端口
}

// StorageConfig 上传文件存储配置
type StorageConfig struct {
	Type      string `mapstructure:"type"`     // 存储类型：local 或 minio
	Path      string `mapstructure:"path"`     // 本地存储路径
	Bucket    string `mapstructure:"bucket"`   // MinIO桶名称
	Endpoint  string `mapstructure:"endpoint"` // MinIO端点
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"` // 是否使用SSL
}

// VectorDBConfig 向量仓库配置
type VectorDBConfig struct {
	Type       string `mapstructure:"type"`       // 向量仓库类型：memory 或 qdrant
	Addr       string `mapstructure:"addr"`       // Qdrant gRPC地址
	Collection string `mapstructure:"collection"` // 集合名称
	Dim        int    `mapstructure:"dim"`        // 向量维度
}

// LLMConfig 大语言模型配置
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`    // 提供商：tongyi
	Model       string  `mapstructure:"model"`       // 模型名称
	APIKey      string  `mapstructure:"api_key"`     // API密钥
	Endpoint    string  `mapstructure:"endpoint"`    // API端点
	MaxTokens   int     `mapstructure:"max_tokens"`  // 最大生成token数量
	Temperature float32 `mapstructure:"temperature"` // 采样温度
}

// EmbedConfig 向量嵌入模型配置
type EmbedConfig struct {
	Provider   string `mapstructure:"provider"`   // 提供商：tongyi
	Model      string `mapstructure:"model"`      // 模型名称
	APIKey     string `mapstructure:"api_key"`    // API密钥
	Endpoint   string `mapstructure:"endpoint"`   // API端点
	BatchSize  int    `mapstructure:"batch_size"` // 批处理大小
	Dimensions int    `mapstructure:"dimensions"` // 向量维度
}

// CacheConfig 问答结果缓存配置
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
	Enable        bool   `mapstructure:"enable"`         // 是否启用异步任务队列
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

// DocumentConfig 文档处理配置
type DocumentConfig struct {
	ChunkSize       int `mapstructure:"chunk_size"`       // 分块大小（字符数）
	ChunkOverlap    int `mapstructure:"chunk_overlap"`    // 分块重叠大小（字符数）
	DownloadTimeout int `mapstructure:"download_timeout"` // 下载超时（秒）
	EmbedBatchSize  int `mapstructure:"embed_batch_size"` // 向量化批处理大小
}

// SearchConfig 检索配置
type SearchConfig struct {
	Limit    int     `mapstructure:"limit"`     // 检索的分块数量
	MinScore float32 `mapstructure:"min_score"` // 相似度阈值
}

// QuizConfig 出题配置
type QuizConfig struct {
	MaxQuestions int `mapstructure:"max_questions"` // 单次出题的题目数量上限
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	File       string `mapstructure:"file"`        // 日志文件路径，为空时只输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size"`    // 单个日志文件大小上限（MB）
	MaxBackups int    `mapstructure:"max_backups"` // 保留的历史日志文件数量
	MaxAgeDays int    `mapstructure:"max_age"`     // 历史日志保留天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩历史日志
}

// DownloadTimeoutDuration 返回下载超时时长
func (c DocumentConfig) DownloadTimeoutDuration() time.Duration {
	return time.Duration(c.DownloadTimeout) * time.Second
}

// TTLDuration 返回缓存TTL时长
func (c CacheConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件可以不存在，全部使用默认值和环境变量
		if _, ok := err.(*os.PathError); ok {
			log.Printf("Warning: config file not found at %s, using defaults", configPath)
		} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: config file not found at %s, using defaults", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	}

	// 支持环境变量覆盖，如 EMBED_API_KEY 覆盖 embed.api_key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	expandEnvReferences(&config)

	return &config, nil
}

// expandEnvReferences 展开形如${VAR}的配置值
// 密钥通常不直接写进配置文件
func expandEnvReferences(cfg *Config) {
	cfg.Embed.APIKey = expandEnv(cfg.Embed.APIKey)
	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)
	cfg.Storage.AccessKey = expandEnv(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = expandEnv(cfg.Storage.SecretKey)
	cfg.Cache.Password = expandEnv(cfg.Cache.Password)
	cfg.Queue.RedisPassword = expandEnv(cfg.Queue.RedisPassword)
}

// expandEnv 将${VAR}形式的值替换为对应的环境变量
func expandEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		if envVal := os.Getenv(value[2 : len(value)-1]); envVal != "" {
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
	v.SetDefault("storage.path", "data/uploads")
	v.SetDefault("storage.bucket", "doc-quiz")
	v.SetDefault("storage.use_ssl", false)

	// 向量仓库默认配置
	v.SetDefault("vectordb.type", "memory")
	v.SetDefault("vectordb.addr", "localhost:6334")
	v.SetDefault("vectordb.collection", "document_chunks")
	v.SetDefault("vectordb.dim", 768)

	// LLM默认配置
	v.SetDefault("llm.provider", "tongyi")
	v.SetDefault("llm.model", "qwen-turbo")
	v.SetDefault("llm.max_tokens", 1500)
	v.SetDefault("llm.temperature", 0.7)

	// Embedding默认配置
	v.SetDefault("embed.provider", "tongyi")
	v.SetDefault("embed.model", "text-embedding-v3")
	v.SetDefault("embed.batch_size", 10)
	v.SetDefault("embed.dimensions", 768)

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", 3600)

	// 队列默认配置
	v.SetDefault("queue.enable", false)
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.retry_limit", 3)
	v.SetDefault("queue.retry_delay", 60)

	// 数据库默认配置
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/docquiz.db")

	// 文档处理默认配置
	v.SetDefault("document.chunk_size", 1000)
	v.SetDefault("document.chunk_overlap", 200)
	v.SetDefault("document.download_timeout", 60)
	v.SetDefault("document.embed_batch_size", 16)

	// 检索默认配置
	v.SetDefault("search.limit", 4)
	v.SetDefault("search.min_score", 0.3)

	// 出题默认配置
	v.SetDefault("quiz.max_questions", 20)

	// 日志默认配置
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("logging.compress", true)
}
