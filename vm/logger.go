package vm

import (
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/quill/engine"
)

// CommonLogger forwards engine diagnostics to a commonlog logger.
type CommonLogger struct {
	log commonlog.Logger
}

// NewCommonLogger returns a Logger writing to the named commonlog logger.
func NewCommonLogger(name string) *CommonLogger {
	return &CommonLogger{log: commonlog.GetLogger(name)}
}

// Log implements engine.Logger.
func (l *CommonLogger) Log(level engine.LogLevel, msg string) {
	switch level {
	case engine.LogDebug:
		l.log.Debug(msg)
	case engine.LogInfo:
		l.log.Info(msg)
	case engine.LogWarning:
		l.log.Warning(msg)
	default:
		l.log.Error(msg)
	}
}

type discardLogger struct{}

func (discardLogger) Log(engine.LogLevel, string) {}
