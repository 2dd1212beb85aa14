// Package observability holds the metrics and log sinks shared by the tracker binaries.
package observability

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging points the standard logger at stderr and, when path is set, at a
// rotating log file as well. The returned closer releases the file.
func SetupLogging(path string) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if path == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil)
	}

	fileLogger := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, fileLogger))
	return fileLogger
}
