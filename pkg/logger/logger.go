package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"air-firmware/pkg/globals"
)

const (
	maxLogs = 1000

	// Ground station messages are fixed size, null terminated
	maxForwardedLen = 49
	maxForwarded    = 100
)

// Options configures the process wide logger
type Options struct {
	Level   string
	Format  string
	Persist bool
}

func NewOptions() *Options {
	return &Options{
		Level:   "info",
		Format:  "console",
		Persist: true,
	}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Level, "log.level", o.Level, "Minimum log level ('debug', 'info', 'warn', 'error').")
	fs.StringVar(&o.Format, "log.format", o.Format, "Log output format ('console' or 'json').")
	fs.BoolVar(&o.Persist, "log.persist", o.Persist, "Keep the last log entries on the data partition.")
}

type Entry struct {
	Time   string `json:"time"`
	Level  string `json:"level"`
	Logger string `json:"logger,omitempty"`
	Msg    string `json:"msg"`
}

// ForwardedMessage is a warning or error queued for the ground station
type ForwardedMessage struct {
	Level   uint8  `json:"level"`
	Message string `json:"message"`
}

type writer struct {
	mu        sync.Mutex
	fs        afero.Fs
	persist   bool
	logs      []Entry
	forwarded []ForwardedMessage
}

var (
	mu   sync.RWMutex
	base = zap.NewNop()
	w    = &writer{}
)

// Init builds the zap logger; every entry is also kept in a ring buffer that
// GetLogs exposes and warnings are queued for DequeueForwarded.
func Init(opts *Options, fs afero.Fs) error {
	if opts == nil {
		opts = NewOptions()
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	switch opts.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console", "":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return fmt.Errorf("invalid log format %q", opts.Format)
	}

	wr := &writer{fs: fs, persist: opts.Persist && fs != nil}
	if wr.persist {
		if err := fs.MkdirAll(filepath.Dir(globals.LogsPath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		wr.logs = load(fs)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(level))
	l := zap.New(core, zap.AddCaller(), zap.Hooks(wr.hook))

	mu.Lock()
	base = l
	w = wr
	mu.Unlock()

	zap.RedirectStdLog(l)
	return nil
}

// Named returns a sugared logger for one component
func Named(name string) *zap.SugaredLogger {
	return L().Named(name).Sugar()
}

func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Sync() {
	_ = L().Sync()
}

func (wr *writer) hook(e zapcore.Entry) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	wr.logs = append(wr.logs, Entry{
		Time:   e.Time.Format("15:04:05"),
		Level:  e.Level.String(),
		Logger: e.LoggerName,
		Msg:    e.Message,
	})
	if len(wr.logs) > maxLogs {
		wr.logs = wr.logs[1:]
	}

	if e.Level >= zapcore.WarnLevel {
		wr.forwarded = append(wr.forwarded, ForwardedMessage{Level: forwardLevel(e.Level), Message: truncate(e.Message, maxForwardedLen)})
		if len(wr.forwarded) > maxForwarded {
			wr.forwarded = wr.forwarded[1:]
		}
	}

	if wr.persist {
		save(wr.fs, wr.logs)
	}
	return nil
}

// truncate cuts msg to at most n bytes without splitting a rune
func truncate(msg string, n int) string {
	if len(msg) <= n {
		return msg
	}
	for n > 0 && !utf8.RuneStart(msg[n]) {
		n--
	}
	return msg[:n]
}

// forwardLevel maps to syslog severities, which the ground station displays
func forwardLevel(l zapcore.Level) uint8 {
	switch {
	case l >= zapcore.DPanicLevel:
		return 2
	case l >= zapcore.ErrorLevel:
		return 3
	case l >= zapcore.WarnLevel:
		return 4
	case l >= zapcore.InfoLevel:
		return 6
	default:
		return 7
	}
}

func GetLogs() []Entry {
	mu.RLock()
	wr := w
	mu.RUnlock()

	wr.mu.Lock()
	defer wr.mu.Unlock()
	return append([]Entry{}, wr.logs...)
}

// DequeueForwarded drains the queue of messages waiting for the ground station
func DequeueForwarded() []ForwardedMessage {
	mu.RLock()
	wr := w
	mu.RUnlock()

	wr.mu.Lock()
	defer wr.mu.Unlock()
	out := wr.forwarded
	wr.forwarded = nil
	if out == nil {
		return []ForwardedMessage{}
	}
	return out
}

func load(fs afero.Fs) []Entry {
	data, err := afero.ReadFile(fs, globals.LogsPath)
	if err != nil {
		return []Entry{}
	}
	var logs []Entry
	if err := json.Unmarshal(data, &logs); err != nil {
		return []Entry{}
	}
	return logs
}

func save(fs afero.Fs, logs []Entry) {
	data, _ := json.Marshal(logs)
	afero.WriteFile(fs, globals.LogsPath, data, 0644)
}
