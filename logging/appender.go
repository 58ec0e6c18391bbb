package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormatStr is the default time format string for log appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. This is a subset of the `zapcore.Core` interface.
type Appender interface {
	// Write submits a structured log entry to the appender for logging.
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync is for signaling that any buffered logs to `Write` should be flushed. E.g: at shutdown.
	Sync() error
}

// ConsoleAppender will create human readable logs.
type ConsoleAppender struct {
	io.Writer
}

// NewStdoutAppender creates a new appender that outputs to stdout.
func NewStdoutAppender() ConsoleAppender {
	return ConsoleAppender{os.Stdout}
}

// NewWriterAppender creates a new appender that outputs to the input writer.
func NewWriterAppender(writer io.Writer) ConsoleAppender {
	return ConsoleAppender{writer}
}

// Write outputs the log entry as one tab delimited line.
func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line, err := formatEntry(entry, fields, false)
	fmt.Fprintln(appender.Writer, line)
	return err
}

// Sync is a no-op.
func (appender ConsoleAppender) Sync() error {
	return nil
}

// formatEntry renders time, level, logger name, caller, message and the json encoded fields.
// An empty logger name is kept as an empty column when keepEmptyName is set. On a field encoding
// error the line is still returned without the fields.
func formatEntry(entry zapcore.Entry, fields []zapcore.Field, keepEmptyName bool) (string, error) {
	cols := []string{
		entry.Time.Format(DefaultTimeFormatStr),
		strings.ToUpper(entry.Level.String()),
	}
	if entry.LoggerName != "" || keepEmptyName {
		cols = append(cols, entry.LoggerName)
	}
	if entry.Caller.Defined {
		cols = append(cols, callerToString(&entry.Caller))
	}
	cols = append(cols, entry.Message)
	if len(fields) == 0 {
		return strings.Join(cols, "\t"), nil
	}

	// an empty Entry makes the encoder emit only the fields, in order.
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := enc.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return strings.Join(cols, "\t"), err
	}
	defer buf.Free()
	cols = append(cols, buf.String())
	return strings.Join(cols, "\t"), nil
}

// callerToString keeps the last directory and the file, e.g. "logging/impl_test.go:36".
func callerToString(caller *zapcore.EntryCaller) string {
	dir, file := path.Split(caller.File)
	pkg := path.Base(path.Clean(dir))
	if dir == "" || pkg == "/" || pkg == "." {
		return fmt.Sprintf("%s:%d", file, caller.Line)
	}
	return fmt.Sprintf("%s/%s:%d", pkg, file, caller.Line)
}
