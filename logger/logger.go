package logger

var logger Logger = NewGlogLogger()

// SetLogger replaces the package logger and returns a function restoring the previous one.
func SetLogger(l Logger) (restore func()) {
	previous := logger
	logger = l
	return func() {
		logger = previous
	}
}

// Debugf level logging
func Debugf(msg string, args ...any) {
	logger.Debugf(msg, args...)
}

// Infof level logging
func Infof(msg string, args ...any) {
	logger.Infof(msg, args...)
}

// Warnf level logging
func Warnf(msg string, args ...any) {
	logger.Warnf(msg, args...)
}

// Errorf level logging
func Errorf(msg string, args ...any) {
	logger.Errorf(msg, args...)
}

// Fatalf logging, terminates the program execution.
func Fatalf(msg string, args ...any) {
	logger.Fatalf(msg, args...)
}
