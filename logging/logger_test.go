package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTextFormatter(t *testing.T) {
	f := NewTextFormatter()
	entry := &LogEntry{
		Time:     time.Now(),
		Level:    LogLevelInfo,
		Category: "Test",
		Message:  "Hello",
		Fields:   []Field{{Key: "key", Value: "val"}},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	str := string(out)
	if !strings.Contains(str, "INFO") {
		t.Error("Expected level INFO")
	}
	if !strings.Contains(str, "[Test]") {
		t.Error("Expected category [Test]")
	}
	if !strings.Contains(str, "Hello") {
		t.Error("Expected message Hello")
	}
	if !strings.Contains(str, "key=val") {
		t.Error("Expected field key=val")
	}
	if !strings.HasSuffix(str, "\n") {
		t.Error("Expected trailing newline")
	}
}

func TestJsonFormatter(t *testing.T) {
	f := NewJsonFormatter()
	entry := &LogEntry{
		Time:     time.Now(),
		Level:    LogLevelWarn,
		Category: "Test",
		Message:  "Hello",
		Fields:   []Field{{Key: "key", Value: "val"}},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var data map[string]any
	if err := json.Unmarshal(out, &data); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if data["level"] != "WARN" {
		t.Errorf("Expected level WARN, got %v", data["level"])
	}
	if data["category"] != "Test" {
		t.Error("Expected category Test")
	}
	fields, ok := data["fields"].(map[string]any)
	if !ok {
		t.Fatal("Expected fields map")
	}
	if fields["key"] != "val" {
		t.Error("Expected key=val")
	}
}

func TestConsoleLoggerMinimumLevel(t *testing.T) {
	var buf bytes.Buffer
	provider := NewConsoleLoggerProvider(ConsoleLoggerOptions{Output: &buf})
	provider.SetMinimumLevel(LogLevelWarn)

	logger := provider.CreateLogger("App")
	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("Info below minimum level should be dropped")
	}
	if !strings.Contains(out, "kept") {
		t.Error("Warn at minimum level should be written")
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	provider := NewConsoleLoggerProvider(ConsoleLoggerOptions{Output: &buf})

	logger := provider.CreateLogger("App").WithFields(Field{Key: "request", Value: "r1"})
	logger.Info("handled", Field{Key: "status", Value: 200})

	out := buf.String()
	if !strings.Contains(out, "request=r1") {
		t.Error("Expected bound field request=r1")
	}
	if !strings.Contains(out, "status=200") {
		t.Error("Expected call field status=200")
	}
}

func TestLoggerWithCategory(t *testing.T) {
	var buf bytes.Buffer
	provider := NewConsoleLoggerProvider(ConsoleLoggerOptions{Output: &buf})

	logger := provider.CreateLogger("App").WithCategory("Worker")
	logger.Info("tick")

	if !strings.Contains(buf.String(), "[Worker]") {
		t.Error("Expected category [Worker]")
	}
}

func TestBuilderCompositeOutput(t *testing.T) {
	var first, second bytes.Buffer
	factory := NewLoggingBuilder().
		SetMinimumLevel(LogLevelDebug).
		AddProvider(NewConsoleLoggerProvider(ConsoleLoggerOptions{Output: &first})).
		AddProvider(NewConsoleLoggerProvider(ConsoleLoggerOptions{Output: &second})).
		Build()

	logger := factory.CreateLogger("App")
	logger.Debug("fan-out")

	if !strings.Contains(first.String(), "fan-out") {
		t.Error("Expected first provider to receive the entry")
	}
	if !strings.Contains(second.String(), "fan-out") {
		t.Error("Expected second provider to receive the entry")
	}
}

func TestAsyncWriter(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	writer := &lockedWriter{buf: &buf, mu: &mu}

	async := NewAsyncWriter(writer, NewTextFormatter(), 10)
	entry := &LogEntry{Time: time.Now(), Level: LogLevelInfo, Message: "Async"}
	for i := 0; i < 5; i++ {
		async.WriteLog(entry)
	}
	async.Close()

	mu.Lock()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	mu.Unlock()
	if len(lines) != 5 {
		t.Errorf("Expected 5 lines, got %d", len(lines))
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("ignored")
	if logger.WithFields(Field{Key: "k", Value: 1}).WithCategory("c") == nil {
		t.Fatal("Nop logger chaining should not return nil")
	}
}

type lockedWriter struct {
	buf *bytes.Buffer
	mu  *sync.Mutex
}

func (w *lockedWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func BenchmarkAsyncLogging(b *testing.B) {
	async := NewAsyncWriter(io.Discard, NewTextFormatter(), 10000)
	defer async.Close()

	entry := &LogEntry{Time: time.Now(), Level: LogLevelInfo, Message: "Benchmark"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		async.WriteLog(entry)
	}
}
