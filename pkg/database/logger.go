// Copyright 2024-2026 Aiku AI

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger forwards gorm's log output to zerolog.
type gormLogger struct {
	log zerolog.Logger
}

func newGormLogger(log zerolog.Logger) *gormLogger {
	return &gormLogger{log: log}
}

// LogMode is a no-op: the zerolog level decides what is written.
func (l *gormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return l
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...any) {
	l.log.Info().Msg(fmt.Sprintf(msg, args...))
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...any) {
	l.log.Warn().Msg(fmt.Sprintf(msg, args...))
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...any) {
	l.log.Error().Msg(fmt.Sprintf(msg, args...))
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("Query failed")
	case elapsed > slowQueryThreshold:
		sql, rows := fc()
		l.log.Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("Slow query")
	case l.log.GetLevel() <= zerolog.TraceLevel:
		sql, rows := fc()
		l.log.Trace().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("Query")
	}
}
