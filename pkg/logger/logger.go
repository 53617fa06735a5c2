package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Level   string // debug, info, warn, error; cualquier otro valor se queda en info
	Format  string // json (por defecto) o console
	Service string
}

var global atomic.Pointer[zap.Logger]

// New construye un logger sin tocar el global.
func New(opts Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if lvl, err := zapcore.ParseLevel(opts.Level); err == nil {
		level.SetLevel(lvl)
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	cfg := zap.Config{
		Level:            level,
		Encoding:         "json",
		EncoderConfig:    enc,
		Sampling:         &zap.SamplingConfig{Initial: 100, Thereafter: 100},
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if opts.Format == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Sampling = nil
	}

	var fields []zap.Option
	if opts.Service != "" {
		fields = append(fields, zap.Fields(zap.String("service", opts.Service)))
	}
	return cfg.Build(fields...)
}

// Init fija el logger del proceso y lo devuelve. Entra en pánico si la configuración es inválida.
func Init(opts Options) *zap.Logger {
	l, err := New(opts)
	if err != nil {
		panic(err)
	}
	global.Store(l)
	zap.ReplaceGlobals(l)
	return l
}

// Logger devuelve el logger del proceso, o uno mudo si Init no se llamó.
func Logger() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// Named devuelve un logger hijo para un componente (ej. "orderConsumer").
func Named(component string) *zap.Logger {
	return Logger().Named(component)
}
