// Package logging builds the arbor logger used by the command.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const timeFormat = "15:04:05"

// New returns a console logger at level. When file is set, output is
// also written there; a file that cannot be created is reported on
// stderr and skipped.
func New(level, file string) arbor.ILogger {
	logger := arbor.NewLogger()

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to create log directory: %v\n", err)
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:             models.LogWriterTypeFile,
				FileName:         file,
				TimeFormat:       timeFormat,
				MaxSize:          10 * 1024 * 1024, // 10 MB
				MaxBackups:       3,
				TextOutput:       true,
				DisableTimestamp: false,
			})
		}
	}

	logger = logger.WithConsoleWriter(models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       timeFormat,
		TextOutput:       true,
		DisableTimestamp: false,
	})

	if level == "" {
		level = "info"
	}
	return logger.WithLevelFromString(level)
}
