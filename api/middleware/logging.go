package middleware

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log = logrus.New()

func init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	log.SetLevel(logrus.InfoLevel)
}

// LogOptions 日志配置
type LogOptions struct {
	Level      string // 日志级别
	File       string // 日志文件路径，为空时只输出到标准输出
	MaxSizeMB  int    // 单个日志文件大小上限（MB）
	MaxBackups int    // 保留的历史日志文件数量
	MaxAgeDays int    // 历史日志保留天数
	Compress   bool   // 是否压缩历史日志
}

// SetupLogger 按配置初始化全局日志器
// 指定日志文件时同时输出到标准输出和滚动日志文件
func SetupLogger(opts LogOptions) {
	if level, err := logrus.ParseLevel(opts.Level); err == nil {
		log.SetLevel(level)
	}

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}
}

// GetLogger 返回全局日志器
func GetLogger() *logrus.Logger {
	return log
}

// Logger 请求日志中间件
// 记录每个请求的方法、路径、状态码和耗时
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := log.WithFields(logrus.Fields{
			FieldStatus:   c.Writer.Status(),
			FieldLatency:  time.Since(start).String(),
			FieldClientIP: c.ClientIP(),
			FieldMethod:   c.Request.Method,
			FieldPath:     path,
		})
		if traceID, exists := c.Get(ContextTraceID); exists {
			entry = entry.WithField(FieldTraceID, traceID)
		}
		entry.Info("HTTP request")
	}
}

// SetTraceID 追踪ID中间件
// 沿用请求头中的追踪ID，没有则生成一个新的
func SetTraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set(ContextTraceID, traceID)
		c.Header("X-Trace-ID", traceID)

		c.Next()
	}
}

// ContextTraceID 追踪ID在gin上下文中的键
const ContextTraceID = "TraceID"

// 常用日志字段
const (
	FieldTraceID  = "trace_id"    // 追踪ID
	FieldPath     = "path"        // 请求路径
	FieldMethod   = "method"      // 请求方法
	FieldStatus   = "status_code" // 状态码
	FieldLatency  = "latency"     // 延迟时间
	FieldClientIP = "client_ip"   // 客户端IP
)
