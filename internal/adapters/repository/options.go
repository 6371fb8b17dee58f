package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/rslist/pkg/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

type gormConfig struct {
	log         logger.Logger
	autoMigrate bool
	slowQuery   time.Duration
	logLevel    gormlogger.LogLevel
}

// GormOption applies a configuration option to the GORM store.
type GormOption func(*gormConfig)

// WithLogger routes GORM's query log through log.
func WithLogger(log logger.Logger) GormOption {
	return func(c *gormConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// WithAutoMigrate toggles schema migration on open. Enabled by default.
func WithAutoMigrate(enabled bool) GormOption {
	return func(c *gormConfig) {
		c.autoMigrate = enabled
	}
}

// WithSlowQueryThreshold sets the duration above which queries log a warning.
func WithSlowQueryThreshold(d time.Duration) GormOption {
	return func(c *gormConfig) {
		if d > 0 {
			c.slowQuery = d
		}
	}
}

// WithQueryLogging logs every statement at debug level.
func WithQueryLogging() GormOption {
	return func(c *gormConfig) {
		c.logLevel = gormlogger.Info
	}
}

func newGormConfig(opts []GormOption) gormConfig {
	c := gormConfig{autoMigrate: true, slowQuery: defaultSlowQuery, logLevel: gormlogger.Warn}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c gormConfig) gormLogger() gormlogger.Interface {
	if c.log == nil {
		return gormlogger.Discard
	}
	return &gormLog{log: c.log, level: c.logLevel, slow: c.slowQuery}
}

// gormLog adapts logger.Logger to GORM's logger interface.
type gormLog struct {
	log   logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func (g *gormLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *gormLog) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		g.log.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *gormLog) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.log.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *gormLog) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		g.log.Error(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *gormLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && g.level >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		query, rows := fc()
		g.log.Error(ctx, "query failed", logger.String("sql", query), logger.Int64("rows", rows),
			logger.Int64("elapsed_ms", elapsed.Milliseconds()), logger.Error(err))
	case g.slow > 0 && elapsed > g.slow && g.level >= gormlogger.Warn:
		query, rows := fc()
		g.log.Warn(ctx, "slow query", logger.String("sql", query), logger.Int64("rows", rows),
			logger.Int64("elapsed_ms", elapsed.Milliseconds()))
	case g.level >= gormlogger.Info:
		query, rows := fc()
		g.log.Debug(ctx, "query", logger.String("sql", query), logger.Int64("rows", rows),
			logger.Int64("elapsed_ms", elapsed.Milliseconds()))
	}
}
