package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Chative-core-poc-v1/callcenter/internal/core"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
}

// LoggerOpts configures the process-wide logger. File enables a rotating log file in
// addition to stdout.
type LoggerOpts struct {
	Environment core.Environment `ignored:"true"`
	Level       string           `envconfig:"LOG_LEVEL"`
	File        string           `envconfig:"LOG_FILE"`
	MaxSizeMB   int              `envconfig:"LOG_MAX_SIZE_MB" default:"50"`
	MaxBackups  int              `envconfig:"LOG_MAX_BACKUPS" default:"5"`
	MaxAgeDays  int              `envconfig:"LOG_MAX_AGE_DAYS" default:"14"`
}

func safe(opts ...LoggerOpts) *LoggerOpts {
	if len(opts) == 0 {
		return DefaultLoggerOpts
	}
	return &opts[0]
}

func Init(opts ...LoggerOpts) {
	o := safe(opts...)

	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if !o.Environment.IsProduction() {
		out = zerolog.NewConsoleWriter()
		level = zerolog.DebugLevel
	}
	if o.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
			Compress:   true,
		})
	}
	if o.Level != "" {
		if lvl, err := zerolog.ParseLevel(o.Level); err == nil {
			level = lvl
		}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if !o.Environment.IsProduction() {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger().Level(level)
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Panic() *zerolog.Event {
	return log.Panic()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
