// Package log is the process-wide logrus logger.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

type Level = logrus.Level

const (
	ErrorLevel = logrus.ErrorLevel
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
)

type Fields = logrus.Fields

var Logger = newLogger()

func newLogger() *logrus.Logger {
	return &logrus.Logger{
		Out: os.Stderr,
		Formatter: &logrus.TextFormatter{
			DisableLevelTruncation: true,
			PadLevelText:           true,
			TimestampFormat:        "2006/01/02 15:04:05",
			FullTimestamp:          true,
		},
		Hooks:    logrus.LevelHooks{},
		Level:    logrus.InfoLevel,
		ExitFunc: os.Exit,
	}
}

func SetLevel(level Level) {
	Logger.SetLevel(level)
}

func WithFields(fields Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

func Log(level Level, args ...any) {
	Logger.Logln(level, args...)
}

func Debug(args ...any)                 { Logger.Debugln(args...) }
func Debugf(format string, args ...any) { Logger.Debugf(format, args...) }
func Info(args ...any)                  { Logger.Infoln(args...) }
func Infof(format string, args ...any)  { Logger.Infof(format, args...) }
func Warnf(format string, args ...any)  { Logger.Warnf(format, args...) }
func Error(args ...any)                 { Logger.Errorln(args...) }
func Errorf(format string, args ...any) { Logger.Errorf(format, args...) }
func Fatal(args ...any)                 { Logger.Fatalln(args...) }
