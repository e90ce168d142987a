package asyncevent

import (
	"github.com/talostrading/asyncevent/aeopts"
	"go.uber.org/zap"
)

// Logger receives the diagnostics of a reactor and its dispatchers. Message
// content is not part of any contract.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Noticef(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type zapLogger struct {
	s      *zap.SugaredLogger
	notice *zap.SugaredLogger
}

var _ Logger = &zapLogger{}

// NewZapLogger adapts a zap logger. zap has no notice level: notices are
// logged at info level with a tier=notice field. A nil logger discards
// everything.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	s := l.Sugar()
	return &zapLogger{
		s:      s,
		notice: s.With("tier", "notice"),
	}
}

// NopLogger discards all diagnostics.
func NopLogger() Logger {
	return NewZapLogger(nil)
}

func (l *zapLogger) Debugf(format string, args ...interface{}) {
	l.s.Debugf(format, args...)
}

func (l *zapLogger) Infof(format string, args ...interface{}) {
	l.s.Infof(format, args...)
}

func (l *zapLogger) Noticef(format string, args ...interface{}) {
	l.notice.Infof(format, args...)
}

func (l *zapLogger) Warningf(format string, args ...interface{}) {
	l.s.Warnf(format, args...)
}

func (l *zapLogger) Errorf(format string, args ...interface{}) {
	l.s.Errorf(format, args...)
}

type optionLogger struct {
	v Logger
}

// WithLogger sets the logger of a reactor or dispatcher. A nil logger
// disables diagnostics.
func WithLogger(l Logger) aeopts.Option {
	return &optionLogger{v: l}
}

func (o *optionLogger) Type() aeopts.OptionType {
	return aeopts.TypeLogger
}

func (o *optionLogger) Value() interface{} {
	return o.v
}

func loggerFrom(opts []aeopts.Option) Logger {
	if opt, ok := aeopts.Find(aeopts.TypeLogger, opts); ok {
		if l, ok := opt.Value().(Logger); ok && l != nil {
			return l
		}
	}
	return NopLogger()
}
