package services

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/tamas-pataky/cultiva-node/config"
)

// logOutput is where the global logger writes; ExtraLogger tees it.
var logOutput io.Writer = os.Stderr

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ParseLevel maps the configured level names onto zerolog levels.
func ParseLevel(level string) (zerolog.Level, error) {
	switch level {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return zerolog.NoLevel, errors.Errorf("unknown log level %q", level)
}

// SetupLogging points the global logger at stdout, the rotating log file
// when one is configured, and any extra writers. The returned closer
// releases the log file.
func SetupLogging(conf config.LogConf, writers ...io.Writer) (io.Closer, error) {
	level, err := ParseLevel(conf.Level)
	if err != nil {
		return nil, err
	}

	logWriters := []io.Writer{zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}}
	var closer io.Closer = nopCloser{}
	if conf.File != "" {
		if err := os.MkdirAll(filepath.Dir(conf.File), 0o750); err != nil {
			return nil, errors.Wrap(err, "creating log directory")
		}
		file := &lumberjack.Logger{
			Filename:   conf.File,
			MaxSize:    1,
			MaxBackups: 2,
		}
		logWriters = append(logWriters, file)
		closer = file
	}
	logWriters = append(logWriters, writers...)

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.SetGlobalLevel(level)
	logOutput = zerolog.MultiLevelWriter(logWriters...)
	log.Logger = zerolog.New(logOutput).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger
	return closer, nil
}

// ExtraLogger returns a logger for module writing to the global outputs and
// to each extra writer, e.g. a terminal streaming its own command's logs.
func ExtraLogger(module string, extra ...io.Writer) zerolog.Logger {
	writers := append([]io.Writer{logOutput}, extra...)
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().Timestamp().Str("module", module).Logger()
}
