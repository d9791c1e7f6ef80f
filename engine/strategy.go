package engine

// LogLevel classifies messages sent to a Logger.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarning
	LogError
)

func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "debug"
	case LogInfo:
		return "info"
	case LogWarning:
		return "warning"
	default:
		return "error"
	}
}

// Logger receives engine diagnostics.
type Logger interface {
	Log(level LogLevel, msg string)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(level LogLevel, msg string)

// Log implements Logger.
func (f LoggerFunc) Log(level LogLevel, msg string) { f(level, msg) }

// Allocator supplies the byte blocks the engine emits bytecode into.
type Allocator interface {
	// Alloc returns a zero-length block with at least size capacity.
	Alloc(size int) []byte
	// Realloc returns a block holding buf's contents with room for n more
	// bytes. buf must not be used afterwards.
	Realloc(buf []byte, n int) []byte
	// Free returns a block to the allocator.
	Free(buf []byte)
}
