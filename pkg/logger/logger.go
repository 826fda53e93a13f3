package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogInfo wraps the shared zap instance
type LogInfo struct {
	log       *zap.Logger
	debugMode bool
	mu        sync.Mutex
}

var (
	// Log shared logger instance, set once from main
	Log *LogInfo
)

// Initialize create a logger writing JSON to a per-date file and the console
func Initialize(serviceName, logDir string) *LogInfo {
	var (
		l = new(LogInfo)
	)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		panic(fmt.Sprintf("Failed to create log directory: %v", err))
	}

	logFile := func() string {
		date := time.Now().Format("2006-01-02")
		return filepath.Join(logDir, fmt.Sprintf("log_%s.log", date))
	}

	// INFO..ERROR go to file and console as JSON
	infoErrorCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.NewMultiWriteSyncer(
			zapcore.AddSync(os.Stdout),
			zapcore.AddSync(getFileWriter(logFile())),
		),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= zap.InfoLevel && level <= zap.ErrorLevel
		}),
	)

	// DEBUG console only, gated on debugMode
	debugCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(os.Stdout),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			l.mu.Lock()
			defer l.mu.Unlock()
			return l.debugMode && level == zapcore.DebugLevel
		}),
	)

	// WARN console only
	warnCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(os.Stdout),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level == zapcore.WarnLevel
		}),
	)

	core := zapcore.NewTee(infoErrorCore, debugCore, warnCore)

	l.log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return l
}

// getFileWriter open the log file WriteSyncer
func getFileWriter(logFile string) zapcore.WriteSyncer {
	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		panic(fmt.Sprintf("Failed to open or create log file: %v", err))
	}
	return zapcore.AddSync(file)
}

// SetNewNop swap in a no-op logger, used by tests
func SetNewNop() {
	Log = &LogInfo{log: zap.NewNop()}
}

// EnableDebugMode enable DEBUG output
func (l *LogInfo) EnableDebugMode() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugMode = true
}

// DisableDebugMode disable DEBUG output
func (l *LogInfo) DisableDebugMode() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugMode = false
}

// SetDebugMode set the log debug mode
func (l *LogInfo) SetDebugMode(status bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugMode = status
}

// Info log at INFO level
func (l *LogInfo) Info(msg string, fields ...zap.Field) {
	l.log.Info(msg, fields...)
}

// Infof log at INFO level with a trailing value
func (l *LogInfo) Infof(msg string, info interface{}, fields ...zap.Field) {
	l.log.Info(fmt.Sprintf("%s %v", msg, info), fields...)
}

// Error log at ERROR level
func (l *LogInfo) Error(msg string, fields ...zap.Field) {
	l.log.Error(msg, fields...)
}

// Errorf log at ERROR level with a trailing error
func (l *LogInfo) Errorf(msg string, err error, fields ...zap.Field) {
	l.log.Error(fmt.Sprintf("%s %v", msg, err), fields...)
}

// Debug log at DEBUG level
func (l *LogInfo) Debug(msg string, fields ...zap.Field) {
	l.log.Debug(msg, fields...)
}

// Warn log at WARN level
func (l *LogInfo) Warn(msg string, fields ...zap.Field) {
	l.log.Warn(msg, fields...)
}

// Sync flush buffered entries
func (l *LogInfo) Sync() {
	if err := l.log.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sync logger: %v\n", err)
	}
}

// Fatal log at ERROR level then exit
func (l *LogInfo) Fatal(msg string, fields ...zap.Field) {
	l.log.Error(msg, fields...)
	if err := l.log.Sync(); err != nil {
		os.Stderr.WriteString("Failed to sync logger: " + err.Error() + "\n")
	}
	os.Exit(1)
}
