package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// CrashLogDir is the crash log directory relative to the cache directory.
	CrashLogDir = "crash_logs"

	// MaxCrashLogs is the maximum number of crash logs to keep.
	MaxCrashLogs = 10
)

type crashContext struct {
	mu         sync.RWMutex
	command    string
	version    string
	basePath   string
	lastPrompt string
}

var globalContext = &crashContext{}

// SetBasePath sets the directory crash logs are written under.
func SetBasePath(path string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.basePath = path
}

// SetVersion records the application version.
func SetVersion(version string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.version = version
}

// SetCommand records the command line being executed.
func SetCommand(cmd string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.command = cmd
}

// SetLastPrompt records the most recent prompt sent to the model.
func SetLastPrompt(prompt string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.lastPrompt = truncateForLog(prompt, 2000)
}

func truncateForLog(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	return value[:maxLen] + "... [truncated]"
}

// CrashLog is the JSON document written for a panic.
type CrashLog struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version"`
	Command    string    `json:"command"`
	PanicValue string    `json:"panic_value"`
	StackTrace string    `json:"stack_trace"`
	LastPrompt string    `json:"last_prompt,omitempty"`
	GoVersion  string    `json:"go_version"`
	OS         string    `json:"os"`
	Arch       string    `json:"arch"`
}

// HandlePanic recovers a panic, writes a crash log and exits with status 2.
// Usage: defer logger.HandlePanic()
func HandlePanic() {
	r := recover()
	if r == nil {
		return
	}
	entry := newCrashLog(r)
	path, err := WriteCrashLog(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\n[CRASH] Failed to write crash log: %v\n", err)
		fmt.Fprintf(os.Stderr, "[CRASH] Panic: %v\n%s\n", r, entry.StackTrace)
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "\nreportwing crashed unexpectedly: %v\n", r)
	fmt.Fprintf(os.Stderr, "A crash log has been saved to:\n  %s\n", path)
	os.Exit(2)
}

func newCrashLog(panicValue any) CrashLog {
	globalContext.mu.RLock()
	defer globalContext.mu.RUnlock()

	return CrashLog{
		Timestamp:  time.Now(),
		Version:    globalContext.version,
		Command:    globalContext.command,
		PanicValue: fmt.Sprintf("%v", panicValue),
		StackTrace: string(debug.Stack()),
		LastPrompt: globalContext.lastPrompt,
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	}
}

// WriteCrashLog stores entry as JSON and prunes old logs. It returns the
// path written.
func WriteCrashLog(entry CrashLog) (string, error) {
	dir := crashLogDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create crash log dir: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode crash log: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("crash_%s.json", entry.Timestamp.Format("20060102_150405.000")))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write crash log: %w", err)
	}

	if err := pruneCrashLogs(dir, MaxCrashLogs); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to clean old crash logs: %v\n", err)
	}
	return path, nil
}

func crashLogDir() string {
	globalContext.mu.RLock()
	basePath := globalContext.basePath
	globalContext.mu.RUnlock()
	if basePath == "" {
		basePath = ".reportwing"
	}
	return filepath.Join(basePath, CrashLogDir)
}

// ListCrashLogs returns crash log paths, oldest first.
func ListCrashLogs() ([]string, error) {
	dir := crashLogDir()
	names, err := crashLogNames(dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

func crashLogNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "crash_") && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	// Names embed the timestamp, so lexical order is chronological.
	sort.Strings(names)
	return names, nil
}

// pruneCrashLogs keeps the newest keep logs.
func pruneCrashLogs(dir string, keep int) error {
	names, err := crashLogNames(dir)
	if err != nil {
		return err
	}
	for i := 0; i < len(names)-keep; i++ {
		if err := os.Remove(filepath.Join(dir, names[i])); err != nil {
			return fmt.Errorf("remove old crash log %s: %w", names[i], err)
		}
	}
	return nil
}
