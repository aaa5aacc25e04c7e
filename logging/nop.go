package logging

// nopLogger 丢弃全部日志的空实现。
type nopLogger struct{}

// NewNopLogger 返回丢弃全部日志的 Logger，用于未配置日志的场景。
func NewNopLogger() Logger {
	return nopLogger{}
}

func (nopLogger) Trace(msg string, fields ...Field)          {}
func (nopLogger) Debug(msg string, fields ...Field)          {}
func (nopLogger) Info(msg string, fields ...Field)           {}
func (nopLogger) Warn(msg string, fields ...Field)           {}
func (nopLogger) Error(msg string, fields ...Field)          {}
func (nopLogger) Fatal(msg string, fields ...Field)          {}
func (nopLogger) Log(level LogLevel, msg string, f ...Field) {}
func (nopLogger) WithFields(fields ...Field) Logger          { return nopLogger{} }
func (nopLogger) WithCategory(category string) Logger        { return nopLogger{} }
