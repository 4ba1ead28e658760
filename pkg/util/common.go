package util

import (
	"io"
	"log/slog"
)

// CloseFunc closes c and logs the failure instead of returning it.
func CloseFunc(c io.Closer) {
	err := c.Close()
	if err != nil {
		slog.Error("close", "err", err)
	}
}
