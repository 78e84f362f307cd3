package core

// Logger is any service that can log messages at the usual levels.
// Extra args are attached to the entry as-is; a user.User arg sets the
// person on backends that support it.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
