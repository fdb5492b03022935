// Copyright 2020 Hewlett Packard Enterprise Development LP

package logger

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	otLog "github.com/opentracing/opentracing-go/log"
	log "github.com/sirupsen/logrus"
	"github.com/uber/jaeger-client-go/config"
	"golang.org/x/crypto/ssh/terminal"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultLogLevel    = "info"
	DefaultLogFormat   = TextFormat
	DefaultMaxLogFiles = 10
	MaxFilesLimit      = 20
	DefaultMaxLogSize  = 100  // in MB
	MaxLogSizeLimit    = 1024 // in MB
	JSONFormat         = "json"
	TextFormat         = "text"
	TracingServiceName = "purevmware"

	maxLogAgeDays = 30
)

// LogParams to configure logging
type LogParams struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxFiles   int    `yaml:"max_files"`
	MaxSizeMiB int    `yaml:"max_size_mib"`
	Format     string `yaml:"format"`
}

// Logr is a logging handle passed explicitly to every component.  It carries an optional
// context whose span receives a copy of every log event.
type Logr struct {
	ctx      context.Context
	logEntry *log.Entry
	tracer   opentracing.Tracer
	cl       io.Closer
}

type Fields = log.Fields

func (l LogParams) isValidLevel() bool {
	switch l.Level {
	case "trace", "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func (l LogParams) isValidLogFormat() bool {
	switch l.Format {
	case JSONFormat, TextFormat:
		return true
	default:
		return false
	}
}

func (l LogParams) isValidMaxLogFiles() bool {
	if l.MaxFiles == 0 || l.MaxFiles > MaxFilesLimit {
		return false
	}
	return true
}

func (l LogParams) isValidMaxLogSize() bool {
	if l.MaxSizeMiB == 0 || l.MaxSizeMiB > MaxLogSizeLimit {
		return false
	}
	return true
}

func (l LogParams) GetLevel() string {
	if !l.isValidLevel() {
		return DefaultLogLevel
	}
	return l.Level
}

func (l LogParams) GetFile() string {
	return l.File
}

func (l LogParams) GetMaxFiles() int {
	if !l.isValidMaxLogFiles() {
		return DefaultMaxLogFiles
	}
	return l.MaxFiles
}

func (l LogParams) GetMaxSize() int {
	if !l.isValidMaxLogSize() {
		return DefaultMaxLogSize
	}
	return l.MaxSizeMiB
}

func (l LogParams) GetLogFormat() string {
	if !l.isValidLogFormat() {
		return DefaultLogFormat
	}
	return l.Format
}

func (l LogParams) UseJsonFormatter() bool {
	return l.GetLogFormat() == JSONFormat
}

func (l LogParams) UseTextFormatter() bool {
	return l.GetLogFormat() == TextFormat
}

// applyEnv overrides params from LOG_* environment variables
func (l *LogParams) applyEnv() {
	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		l.Level = level
	}

	logFile := os.Getenv("LOG_FILE")
	if logFile != "" {
		l.File = logFile
	}

	maxSize := os.Getenv("LOG_MAX_SIZE")
	if maxSize != "" {
		size, err := strconv.ParseInt(maxSize, 0, 0)
		if err == nil {
			l.MaxSizeMiB = int(size)
		}
	}

	maxFiles := os.Getenv("LOG_MAX_FILES")
	if maxFiles != "" {
		fileCount, err := strconv.ParseInt(maxFiles, 0, 0)
		if err == nil {
			l.MaxFiles = int(fileCount)
		}
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat != "" {
		l.Format = logFormat
	}
}

// ResolveParams merges defaults, the given params, the log file name and environment
// overrides, in increasing order of precedence.
func ResolveParams(logName string, params *LogParams) LogParams {
	var p LogParams
	if params == nil {
		p = LogParams{
			Level:      DefaultLogLevel,
			MaxSizeMiB: DefaultMaxLogSize,
			MaxFiles:   DefaultMaxLogFiles,
			Format:     DefaultLogFormat,
		}
	} else {
		p = *params
	}
	if logName != "" {
		p.File = logName
	}
	p.applyEnv()
	return p
}

// InitOpentracing initializes a jaeger tracer for the service
func InitOpentracing(service string) (opentracing.Tracer, io.Closer, error) {
	cfg := &config.Configuration{
		ServiceName: service,
		Sampler: &config.SamplerConfig{
			Type:  "const",
			Param: 1,
		},
		Reporter: &config.ReporterConfig{
			LogSpans: true,
		},
	}
	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, nil, fmt.Errorf("cannot init tracing: %v", err)
	}
	return tracer, closer, nil
}

// InitLogging builds a logger with the given params.  Each call returns an independent
// logger; nothing is written through the process wide logrus logger.
func InitLogging(logName string, params *LogParams, alsoLogToStderr bool, initTracing bool) (*Logr, error) {
	p := ResolveParams(logName, params)

	logger := log.New()
	// No output except for the hooks
	logger.SetOutput(ioutil.Discard)

	level, err := log.ParseLevel(p.GetLevel())
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	if p.GetFile() != "" {
		logger.AddHook(NewFileHook(p))
	}
	if alsoLogToStderr {
		logger.AddHook(NewConsoleHook(p))
	}

	l := New(logger)

	// Remind users where the log file lives
	l.logEntry.WithFields(log.Fields{
		"logLevel":        logger.GetLevel().String(),
		"logFileLocation": p.GetFile(),
		"alsoLogToStderr": alsoLogToStderr,
	}).Info("Initialized logging.")

	if initTracing {
		tracer, closer, err := InitOpentracing(TracingServiceName)
		if err != nil {
			return l, err
		}
		l.tracer = tracer
		l.cl = closer
		l.Tracef("Tracing initialized for %s", TracingServiceName)
	}

	return l, nil
}

// New wraps an existing logrus logger
func New(logger *log.Logger) *Logr {
	return &Logr{ctx: context.Background(), logEntry: log.NewEntry(logger)}
}

// Discard returns a logger that writes nothing
func Discard() *Logr {
	logger := log.New()
	logger.SetOutput(ioutil.Discard)
	return New(logger)
}

// Close flushes and closes the tracer, if any
func (l *Logr) Close() error {
	if l.cl == nil {
		return nil
	}
	return l.cl.Close()
}

// WithFields returns a copy of the logger that adds fields to every entry
func (l *Logr) WithFields(fields Fields) *Logr {
	c := *l
	c.logEntry = l.logEntry.WithFields(fields)
	return &c
}

// WithContext returns a copy of the logger bound to ctx.  Log events are also recorded on
// the span carried by ctx.
func (l *Logr) WithContext(ctx context.Context) *Logr {
	c := *l
	c.ctx = ctx
	c.logEntry = l.logEntry.WithContext(ctx)
	return &c
}

// StartSpan starts a span as a child of any span in ctx and returns a logger bound to it
func (l *Logr) StartSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context, *Logr) {
	tracer := l.tracer
	if tracer == nil {
		tracer = opentracing.NoopTracer{}
	}
	span, spanCtx := opentracing.StartSpanFromContextWithTracer(ctx, tracer, operationName)
	return span, spanCtx, l.WithContext(spanCtx)
}

// LogToTrace logs the given message to the span of the logger's context
func (l *Logr) LogToTrace(level, msg string) {
	if l.ctx == nil {
		return
	}
	span := opentracing.SpanFromContext(l.ctx)
	if span == nil {
		return
	}
	span.LogFields(otLog.String("level", level), otLog.String("event", msg))
}

// GetLevel returns the logger level
func (l *Logr) GetLevel() log.Level {
	return l.logEntry.Logger.GetLevel()
}

// IsLevelEnabled checks if the log level of the logger is greater than the level param
func (l *Logr) IsLevelEnabled(level log.Level) bool {
	return l.logEntry.Logger.IsLevelEnabled(level)
}

// ConsoleHook sends log entries to stdout, errors to stderr.
type ConsoleHook struct {
	stdout log.Formatter
	stderr log.Formatter
}

// NewConsoleHook creates a new log hook for writing to stdout/stderr.
func NewConsoleHook(p LogParams) *ConsoleHook {
	if p.UseJsonFormatter() {
		f := &log.JSONFormatter{CallerPrettyfier: CustomCallerPrettyfier}
		return &ConsoleHook{stdout: f, stderr: f}
	}
	return &ConsoleHook{stdout: newConsoleFormatter(os.Stdout), stderr: newConsoleFormatter(os.Stderr)}
}

func newConsoleFormatter(w *os.File) *log.TextFormatter {
	f := &log.TextFormatter{FullTimestamp: true, CallerPrettyfier: CustomCallerPrettyfier}
	//https://github.com/sirupsen/logrus/issues/172
	if runtime.GOOS != "windows" {
		f.ForceColors = isTerminal(w)
	}
	return f
}

func isTerminal(w io.Writer) bool {
	switch v := w.(type) {
	case *os.File:
		return terminal.IsTerminal(int(v.Fd()))
	default:
		return false
	}
}

func (hook *ConsoleHook) Levels() []log.Level {
	return log.AllLevels
}

func (hook *ConsoleHook) Fire(entry *log.Entry) error {
	logWriter, formatter := io.Writer(os.Stderr), hook.stderr
	switch entry.Level {
	case log.DebugLevel, log.InfoLevel, log.WarnLevel, log.TraceLevel:
		logWriter, formatter = os.Stdout, hook.stdout
	}

	lineBytes, err := formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to read entry, %v", err)
		return err
	}
	logWriter.Write(lineBytes)
	return nil
}

// FileHook sends log entries to a rotated file.
type FileHook struct {
	formatter log.Formatter
	mutex     *sync.Mutex
	logWriter io.Writer
	location  string
}

func CustomCallerPrettyfier(f *runtime.Frame) (string, string) {
	s := strings.Split(f.Function, ".")
	funcname := s[len(s)-1]
	_, filename := path.Split(f.File)
	return funcname, filename
}

// NewFileHook creates a new log hook for writing to a file.
func NewFileHook(p LogParams) *FileHook {
	hook := &FileHook{formatter: &log.TextFormatter{FullTimestamp: true}, mutex: &sync.Mutex{}, location: p.GetFile()}
	if p.UseJsonFormatter() {
		hook.formatter = &log.JSONFormatter{}
	}

	// use lumberjack for log rotation
	hook.logWriter = &lumberjack.Logger{
		Filename:   p.GetFile(),
		MaxSize:    p.GetMaxSize(),
		MaxBackups: p.GetMaxFiles(),
		MaxAge:     maxLogAgeDays,
		Compress:   true,
	}
	return hook
}

func (hook *FileHook) Levels() []log.Level {
	return log.AllLevels
}

func (hook *FileHook) Fire(entry *log.Entry) error {
	lineBytes, err := hook.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not read log entry. %v", err)
		return err
	}

	hook.mutex.Lock()
	defer hook.mutex.Unlock()
	_, err = hook.logWriter.Write(lineBytes)
	return err
}

func (hook *FileHook) GetLocation() string {
	return hook.location
}

// HTTPLogger : wrapper for http logging
func (l *Logr) HTTPLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panicked := true
		defer func() {
			if panicked {
				const size = 64 << 10
				buf := make([]byte, size)
				buf = buf[:runtime.Stack(buf, false)]
				l.logEntry.Errorf("HTTPLogger: panic serving %v:\n%s", name, buf)
			}
		}()

		l.logEntry.Debugf(">>>>> %s %s - %s", r.Method, r.RequestURI, name)

		start := time.Now()
		inner.ServeHTTP(w, r)

		l.logEntry.Debugf("<<<<< %s %s - %s %s", r.Method, r.RequestURI, name, time.Since(start))

		panicked = false
	})
}

// IsSensitive checks if the given key exists in the list of bad words (sensitive info)
func IsSensitive(key string) bool {
	badWords := []string{
		"x-auth-token",
		"api-token",
		"api_token",
		"username",
		"user",
		"password",
		"passwd",
		"secret",
		"token",
		"accesskey",
		"passphrase",
	}
	key = strings.ToLower(key)
	for _, bad := range badWords {
		// Perform case-insensitive and substring match
		if strings.Contains(key, bad) {
			return true
		}
	}
	return false
}

// Scrubber checks if the args list contains any sensitive information like username/password/secret
// If found, then returns masked string list, else returns the original input list unmodified.
func Scrubber(args []string) []string {
	for _, arg := range args {
		if IsSensitive(arg) {
			return []string{"**********"}
		}
	}
	return args
}

// MapScrubber checks if the map contains any sensitive information like username/password/secret
// If found, then masks values for those keys, else copies the original value and returns new map
func MapScrubber(m map[string]string) map[string]string {
	retMap := make(map[string]string)
	for k, v := range m {
		if IsSensitive(k) {
			retMap[k] = "**********"
		} else {
			retMap[k] = v
		}
	}
	return retMap
}

// sourced adds a source field to the entry that contains the file name and line where
// the logging happened.
func (l *Logr) sourced() *log.Entry {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "<???>"
		line = 1
	} else {
		slash := strings.LastIndex(file, "/")
		file = file[slash+1:]
	}
	return l.logEntry.WithField("file", fmt.Sprintf("%s:%d", file, line))
}

// Trace logs a message at level Trace
func (l *Logr) Trace(args ...interface{}) {
	l.sourced().Trace(args...)
	l.LogToTrace("trace", fmt.Sprint(args...))
}

// Tracef logs a message at level Trace
func (l *Logr) Tracef(format string, args ...interface{}) {
	l.sourced().Tracef(format, args...)
	l.LogToTrace("trace", fmt.Sprintf(format, args...))
}

// Debug logs a message at level Debug
func (l *Logr) Debug(args ...interface{}) {
	l.sourced().Debug(args...)
	l.LogToTrace("debug", fmt.Sprint(args...))
}

// Debugf logs a message at level Debug
func (l *Logr) Debugf(format string, args ...interface{}) {
	l.sourced().Debugf(format, args...)
	l.LogToTrace("debug", fmt.Sprintf(format, args...))
}

// Info logs a message at level Info
func (l *Logr) Info(args ...interface{}) {
	l.sourced().Info(args...)
	l.LogToTrace("info", fmt.Sprint(args...))
}

// Infof logs a message at level Info
func (l *Logr) Infof(format string, args ...interface{}) {
	l.sourced().Infof(format, args...)
	l.LogToTrace("info", fmt.Sprintf(format, args...))
}

// Warn logs a message at level Warn
func (l *Logr) Warn(args ...interface{}) {
	l.sourced().Warn(args...)
	l.LogToTrace("warn", fmt.Sprint(args...))
}

// Warnf logs a message at level Warn
func (l *Logr) Warnf(format string, args ...interface{}) {
	l.sourced().Warnf(format, args...)
	l.LogToTrace("warn", fmt.Sprintf(format, args...))
}

// Error logs a message at level Error
func (l *Logr) Error(args ...interface{}) {
	l.sourced().Error(args...)
	l.LogToTrace("error", fmt.Sprint(args...))
}

// Errorf logs a message at level Error
func (l *Logr) Errorf(format string, args ...interface{}) {
	l.sourced().Errorf(format, args...)
	l.LogToTrace("error", fmt.Sprintf(format, args...))
}
