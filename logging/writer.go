package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// entrySink 接收格式化前的日志条目
type entrySink interface {
	WriteLog(entry *LogEntry)
}

// syncSink 同步写入，格式化后直接写到目标
type syncSink struct {
	mu        sync.Mutex
	writer    io.Writer
	formatter Formatter
}

func newSyncSink(writer io.Writer, formatter Formatter) *syncSink {
	return &syncSink{writer: writer, formatter: formatter}
}

func (s *syncSink) WriteLog(entry *LogEntry) {
	data, err := s.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: format error: %v\n", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Write(data)
}

// AsyncWriter 异步日志写入器，由后台协程格式化并写入
type AsyncWriter struct {
	writer     io.Writer
	formatter  Formatter
	entryCh    chan *LogEntry
	wg         sync.WaitGroup
	closeOnce  sync.Once
	errHandler func(error)
}

// NewAsyncWriter 创建异步写入器，bufferSize 为待写队列容量
func NewAsyncWriter(writer io.Writer, formatter Formatter, bufferSize int) *AsyncWriter {
	w := &AsyncWriter{
		writer:    writer,
		formatter: formatter,
		entryCh:   make(chan *LogEntry, bufferSize),
	}
	w.wg.Add(1)
	go w.process()
	return w
}

// WriteLog 入队一条日志，队列满时阻塞，保证不丢日志
func (w *AsyncWriter) WriteLog(entry *LogEntry) {
	w.entryCh <- entry
}

// SetErrorHandler 设置写入失败时的回调
func (w *AsyncWriter) SetErrorHandler(handler func(error)) {
	w.errHandler = handler
}

// Close 停止接收并等待队列排空
func (w *AsyncWriter) Close() error {
	w.closeOnce.Do(func() {
		close(w.entryCh)
	})
	w.wg.Wait()
	return nil
}

func (w *AsyncWriter) process() {
	defer w.wg.Done()

	for entry := range w.entryCh {
		data, err := w.formatter.Format(entry)
		if err != nil {
			w.reportError(err)
			continue
		}
		if _, err := w.writer.Write(data); err != nil {
			w.reportError(err)
		}
	}
}

func (w *AsyncWriter) reportError(err error) {
	if w.errHandler != nil {
		w.errHandler(err)
		return
	}
	fmt.Fprintf(os.Stderr, "logging: async write error: %v\n", err)
}
