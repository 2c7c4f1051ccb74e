package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
	REWARD
)

// Rotation limits for both log files.
const (
	maxLogSizeMB  = 100
	maxLogBackups = 10
	maxLogAgeDays = 30
)

var (
	debugEnabled = true
	ginLogs      io.WriteCloser
	apiLogs      io.WriteCloser
)

// Setup points gin access logs and api logs at rotating files inside dir.
// With an empty dir both streams stay on stdout.
func Setup(dir string, debug bool) {
	debugEnabled = debug
	if dir == "" {
		gin.DefaultWriter = os.Stdout
		log.SetOutput(os.Stdout)
		return
	}

	ginLogs = &lumberjack.Logger{
		Filename:   filepath.Join(dir, "gin.log"),
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
	}
	apiLogs = &lumberjack.Logger{
		Filename:   filepath.Join(dir, "api.log"),
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
	}

	gin.DefaultWriter = io.MultiWriter(ginLogs, os.Stdout)
	log.SetOutput(io.MultiWriter(apiLogs, os.Stdout))
}

// Close flushes and closes the log files opened by Setup.
func Close() {
	if ginLogs != nil {
		ginLogs.Close()
	}
	if apiLogs != nil {
		apiLogs.Close()
	}
}

func (l LogLevel) String() string {
	return [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL", "REWARD"}[l]
}

func logWithLevel(level LogLevel, format string, v ...interface{}) {
	_, f, l, _ := runtime.Caller(2)
	fullFuncName := fmt.Sprintf("%s:%d", f, l)
	logMsg := fmt.Sprintf(format, v...)
	log.Printf("[%s]\n%s: %s", level, fullFuncName, logMsg)
}

// WrapError prefixes err with the caller location and an optional message.
// The original error stays reachable through errors.Is / errors.As.
func WrapError(err error, message string) error {
	_, f, l, _ := runtime.Caller(1)
	if message != "" {
		return fmt.Errorf("\n%s:%d: %s: %w", f, l, message, err)
	}
	return fmt.Errorf("\n%s:%d: %w", f, l, err)
}

func Debug(format string, v ...interface{}) {
	if debugEnabled {
		logWithLevel(DEBUG, format, v...)
	}
}

func Info(format string, v ...interface{}) {
	logWithLevel(INFO, format, v...)
}

func Warn(format string, v ...interface{}) {
	logWithLevel(WARN, format, v...)
}

func Error(format string, v ...interface{}) {
	logWithLevel(ERROR, format, v...)
}

func Fatal(format string, v ...interface{}) {
	logWithLevel(FATAL, format, v...)
	Close()
	os.Exit(1)
}

// Reward records every wallet credit produced by referral or pool payouts.
func Reward(format string, v ...interface{}) {
	logWithLevel(REWARD, format, v...)
}
