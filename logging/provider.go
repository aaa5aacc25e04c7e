package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// sinkLogger 统一的 Logger 实现，把条目交给 sink 输出
type sinkLogger struct {
	sink         entrySink
	category     string
	minimumLevel LogLevel
	fields       []Field
}

func (l *sinkLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *sinkLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *sinkLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *sinkLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *sinkLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *sinkLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (l *sinkLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.minimumLevel {
		return
	}
	l.sink.WriteLog(&LogEntry{
		Time:     time.Now(),
		Level:    level,
		Category: l.category,
		Message:  msg,
		Fields:   mergeFields(l.fields, fields),
	})
}

func (l *sinkLogger) WithFields(fields ...Field) Logger {
	return &sinkLogger{
		sink:         l.sink,
		category:     l.category,
		minimumLevel: l.minimumLevel,
		fields:       mergeFields(l.fields, fields),
	}
}

func (l *sinkLogger) WithCategory(category string) Logger {
	return &sinkLogger{
		sink:         l.sink,
		category:     category,
		minimumLevel: l.minimumLevel,
		fields:       l.fields,
	}
}

// ConsoleLoggerOptions 控制台日志选项
type ConsoleLoggerOptions struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
	Output           io.Writer
}

// ConsoleLoggerProvider 控制台日志提供者
type ConsoleLoggerProvider struct {
	mu           sync.RWMutex
	sink         entrySink
	minimumLevel LogLevel
}

func NewConsoleLoggerProvider(options ConsoleLoggerOptions) *ConsoleLoggerProvider {
	if options.Output == nil {
		options.Output = os.Stdout
	}
	formatter := &TextFormatter{
		IncludeTimestamp: options.IncludeTimestamp,
		TimestampFormat:  options.TimestampFormat,
		ColorOutput:      options.ColorOutput,
	}
	return &ConsoleLoggerProvider{
		sink:         newSyncSink(options.Output, formatter),
		minimumLevel: LogLevelInfo,
	}
}

func (p *ConsoleLoggerProvider) CreateLogger(category string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &sinkLogger{
		sink:         p.sink,
		category:     category,
		minimumLevel: p.minimumLevel,
	}
}

func (p *ConsoleLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

// FileLoggerOptions 文件日志选项
type FileLoggerOptions struct {
	Path       string
	Formatter  Formatter // 为空时使用文本格式
	BufferSize int       // 异步队列大小，为 0 时取 1024
}

// FileLoggerProvider 文件日志提供者，通过 AsyncWriter 异步写入
type FileLoggerProvider struct {
	mu           sync.Mutex
	options      FileLoggerOptions
	file         *os.File
	writer       *AsyncWriter
	minimumLevel LogLevel
}

func NewFileLoggerProvider(options FileLoggerOptions) *FileLoggerProvider {
	if options.Formatter == nil {
		options.Formatter = NewTextFormatter()
	}
	if options.BufferSize <= 0 {
		options.BufferSize = 1024
	}
	return &FileLoggerProvider{
		options:      options,
		minimumLevel: LogLevelInfo,
	}
}

func (p *FileLoggerProvider) CreateLogger(category string) Logger {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		file, err := os.OpenFile(p.options.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			// 文件打不开时退回到 stderr，不让应用因为日志挂掉
			fmt.Fprintf(os.Stderr, "logging: failed to open log file %s: %v\n", p.options.Path, err)
			return &sinkLogger{
				sink:         newSyncSink(os.Stderr, p.options.Formatter),
				category:     category,
				minimumLevel: p.minimumLevel,
			}
		}
		p.file = file
		p.writer = NewAsyncWriter(file, p.options.Formatter, p.options.BufferSize)
	}

	return &sinkLogger{
		sink:         p.writer,
		category:     category,
		minimumLevel: p.minimumLevel,
	}
}

func (p *FileLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

// Close 排空异步队列并关闭文件
func (p *FileLoggerProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer != nil {
		p.writer.Close()
		p.writer = nil
	}
	if p.file != nil {
		err := p.file.Close()
		p.file = nil
		return err
	}
	return nil
}
