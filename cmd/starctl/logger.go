package main

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-star/pkg/types"
)

func newRootLogger(verbose bool) *glog.BaseLogger {
	level := glog.Info
	if verbose {
		level = glog.Debug
	}
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(level),
		glog.WithName("starctl"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}

// logAdapter lets library packages log through glog.
type logAdapter struct {
	lgr glog.Logger
}

func adaptLogger(lgr glog.Logger) types.Logger {
	if lgr == nil {
		return types.NopLogger{}
	}
	return logAdapter{lgr: lgr}
}

func (l logAdapter) Debug(msg string, fields ...any) {
	l.lgr.Debug(msg, fields...)
}

func (l logAdapter) Info(msg string, fields ...any) {
	l.lgr.Info(msg, fields...)
}

func (l logAdapter) Error(msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", types.RichError(err))
	}
	l.lgr.Error(msg, fields...)
}
