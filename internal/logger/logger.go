package logger

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. format is json, console or auto; auto picks
// console output when stderr is a terminal.
func New(verbosity, format string) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(verbosity)
	if err != nil {
		return nil, err
	}

	encoding, err := resolveFormat(format, stderrIsTerminal())
	if err != nil {
		return nil, err
	}

	var config zap.Config
	switch encoding {
	case "console":
		config = zap.NewDevelopmentConfig()
		config.Development = false
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		config = zap.NewProductionConfig()
	}
	config.Level = level
	return config.Build()
}

func resolveFormat(format string, terminal bool) (string, error) {
	switch format {
	case "json", "console":
		return format, nil
	case "", "auto":
		if terminal {
			return "console", nil
		}
		return "json", nil
	default:
		return "", fmt.Errorf("unknown log format %q", format)
	}
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
