// Package logsvc implements core.Logger.
package logsvc

import (
	"io"
	"log"
	"os"

	"github.com/natefinch/lumberjack"

	"github.com/campuserp/erp/core"
)

// NewStdLogger returns a logger writing to stdout and, when conf.Log.File is set, to a rotated log file.
func NewStdLogger(prefix string, conf *core.Config) *log.Logger {
	return log.New(Writer(conf, os.Stdout), prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
}

func Writer(conf *core.Config, w io.Writer) io.Writer {
	if conf.Log.File == "" {
		return w
	}
	rotated := &lumberjack.Logger{
		Filename:   conf.Log.File,
		MaxSize:    conf.Log.MaxSize,
		MaxBackups: conf.Log.MaxBackups,
		MaxAge:     conf.Log.MaxAge,
		Compress:   true,
	}
	return io.MultiWriter(w, rotated)
}
