package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type TranscriptKind string

const (
	AgentTranscript TranscriptKind = "agent"
	EmailTranscript TranscriptKind = "email"
)

// transcriptLogger keeps one file per kind per day under <log_dir>/transcripts
type transcriptLogger struct {
	baseDir     string
	files       map[TranscriptKind]*os.File
	mutex       sync.Mutex
	currentDate string
}

var transcripts = &transcriptLogger{
	files: make(map[TranscriptKind]*os.File),
}

func (tl *transcriptLogger) setBaseDir(dir string) {
	tl.mutex.Lock()
	defer tl.mutex.Unlock()

	tl.closeAll()
	tl.baseDir = dir
}

func (tl *transcriptLogger) closeAll() {
	for kind, file := range tl.files {
		file.Close()
		delete(tl.files, kind)
	}
}

// writer returns the file for kind, rotating every file when the date changes.
// Must be called with the mutex held.
func (tl *transcriptLogger) writer(kind TranscriptKind, now time.Time) (*os.File, error) {
	if tl.baseDir == "" {
		return nil, nil
	}

	date := now.Format("2006-01-02")
	if date != tl.currentDate {
		tl.closeAll()
		tl.currentDate = date
	}

	if file, ok := tl.files[kind]; ok {
		return file, nil
	}

	dir := filepath.Join(tl.baseDir, string(kind))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(dir, date+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	tl.files[kind] = file
	return file, nil
}

// LogTranscript appends one entry to today's transcript of the given kind.
// Multi-line text is indented so entries stay greppable by request ID.
func LogTranscript(kind TranscriptKind, requestID, label, text string) {
	now := time.Now()
	text = strings.ReplaceAll(strings.TrimSpace(text), "\n", "\n    ")
	entry := fmt.Sprintf("[%s] %s %s: %s\n", now.Format("15:04:05"), requestID, label, text)

	transcripts.mutex.Lock()
	file, err := transcripts.writer(kind, now)
	if err == nil && file != nil {
		_, err = file.WriteString(entry)
	}
	transcripts.mutex.Unlock()

	// Reported outside the transcript lock, Errorf takes the console lock
	if err != nil {
		Errorf("Failed to write %s transcript: %v", kind, err)
	}
}
