package logsvc

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rotaract/reportdesk/core"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Log outputs
const (
	OutputStdout = "stdout"
	OutputFile   = "file"
	OutputBoth   = "both"
)

// NewLogrus builds the local sink of the application logs.
// Files are written to <conf.Dir>/<name>.log and rotated by lumberjack.
func NewLogrus(conf core.LogConfig, name string) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(conf.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if conf.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	}

	var writers []io.Writer
	if conf.Output == OutputFile || conf.Output == OutputBoth {
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(conf.Dir, name+".log"),
			MaxSize:    conf.MaxSize, // MB
			MaxBackups: conf.MaxBackups,
			MaxAge:     conf.MaxAge, // days
			Compress:   conf.Compress,
		})
	}
	if conf.Output != OutputFile {
		writers = append(writers, os.Stdout)
	}
	logger.SetOutput(io.MultiWriter(writers...))
	return logger
}
