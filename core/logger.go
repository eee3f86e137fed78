package core

// Logger is implemented by the app's logging backends.
// args may hold errors, extra data maps or the user.User currently logged in.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
