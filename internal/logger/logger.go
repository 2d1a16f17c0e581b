package logger

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelSuccess LogLevel = "SUCCESS"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
	LevelDebug   LogLevel = "DEBUG"
	LevelNotice  LogLevel = "NOTICE"
)

var (
	mu sync.Mutex

	out          io.Writer = os.Stdout
	debugEnabled           = true

	errorLogger  *stdlog.Logger
	errorLogFile *os.File

	// Agent traces are kept apart from error.log so tool chatter doesn't bury real failures
	agentLogger  *stdlog.Logger
	agentLogFile *os.File
)

// Setup opens error.log and agent.log inside dir, creating the directory if needed.
// Calling Setup again closes the previous files first.
func Setup(dir string) error {
	mu.Lock()
	defer mu.Unlock()

	closeFiles()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	var err error
	errorLogFile, err = os.OpenFile(filepath.Join(dir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open error log: %w", err)
	}
	errorLogger = stdlog.New(errorLogFile, "", 0)

	agentLogFile, err = os.OpenFile(filepath.Join(dir, "agent.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open agent log: %w", err)
	}
	agentLogger = stdlog.New(agentLogFile, "", 0)

	transcripts.setBaseDir(filepath.Join(dir, "transcripts"))

	return nil
}

// Close should be called during shutdown to properly close all log files
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeFiles()
}

func closeFiles() {
	transcripts.setBaseDir("")

	if errorLogFile != nil {
		errorLogFile.Close()
		errorLogFile = nil
		errorLogger = nil
	}
	if agentLogFile != nil {
		agentLogFile.Close()
		agentLogFile = nil
		agentLogger = nil
	}
}

// SetOutput redirects console output. Tests pass io.Discard.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debugEnabled = enabled
}

var colorMap = map[string]func(a ...interface{}) string{
	string(LevelInfo):    color.New(color.FgBlue).SprintFunc(),
	string(LevelSuccess): color.New(color.FgGreen).SprintFunc(),
	string(LevelWarning): color.New(color.FgYellow).SprintFunc(),
	string(LevelError):   color.New(color.FgRed).SprintFunc(),
	string(LevelDebug):   color.New(color.FgCyan).SprintFunc(),
	string(LevelNotice):  color.New(color.FgMagenta).SprintFunc(),

	"white":  color.New(color.FgWhite).SprintFunc(),
	"purple": color.New(color.FgHiMagenta).SprintFunc(),
}

func GetColorFunc(colorName string) func(a ...interface{}) string {
	if fn, ok := colorMap[colorName]; ok {
		return fn
	}
	return colorMap["white"]
}

func logMessage(level LogLevel, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	mu.Lock()
	defer mu.Unlock()

	if level == LevelDebug && !debugEnabled {
		return
	}

	colorFunc := GetColorFunc(string(level))
	fmt.Fprintln(out, colorFunc(fmt.Sprintf("[%s] ", level))+message)

	// Only errors and warnings are persisted to error.log
	if level == LevelError || level == LevelWarning {
		if errorLogger != nil {
			errorLogger.Printf("[%s] %s: %s", level, timestamp, message)
		}
	}
}

func Infof(format string, args ...interface{}) {
	logMessage(LevelInfo, format, args...)
}

func Successf(format string, args ...interface{}) {
	logMessage(LevelSuccess, format, args...)
}

func Warnf(format string, args ...interface{}) {
	logMessage(LevelWarning, format, args...)
}

func Errorf(format string, args ...interface{}) {
	logMessage(LevelError, format, args...)
}

func Debugf(format string, args ...interface{}) {
	logMessage(LevelDebug, format, args...)
}

func Noticef(format string, args ...interface{}) {
	logMessage(LevelNotice, format, args...)
}

// AIDebugf logs agent loop and tool traces to agent.log instead of error.log.
// Console output only happens in debug mode, the file always receives the line.
func AIDebugf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	mu.Lock()
	defer mu.Unlock()

	if debugEnabled {
		colorFunc := GetColorFunc("purple")
		fmt.Fprintln(out, colorFunc("[AGENT] ")+message)
	}

	if agentLogger != nil {
		agentLogger.Printf("[DEBUG] %s: %s", timestamp, message)
	}
}
