package utils

import (
	"io"
	"log"
	"os"
)

// Logger is a simple logger for the application
type Logger struct {
	debugLog *log.Logger
	infoLog  *log.Logger
	errorLog *log.Logger
}

// NewLogger creates a new logger. Debug output is discarded unless the
// DEBUG environment variable is set.
func NewLogger() *Logger {
	debugOut := io.Discard
	if os.Getenv("DEBUG") != "" {
		debugOut = os.Stdout
	}

	return &Logger{
		debugLog: log.New(debugOut, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile),
		infoLog:  log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile),
		errorLog: log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.debugLog.Printf(format, v...)
}

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) {
	l.infoLog.Printf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.errorLog.Printf(format, v...)
}
