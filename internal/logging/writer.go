package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-logfmt/logfmt"
)

// slogWriter turns logfmt-encoded slog output back into Log records so the
// log service (and through it the UI) can observe every record.
type slogWriter struct{}

func (sw *slogWriter) Write(p []byte) (n int, err error) {
	d := logfmt.NewDecoder(bytes.NewReader(p))
	for d.ScanRecord() {
		entry := Log{}

		for d.ScanKeyval() {
			key := string(d.Key())
			value := string(d.Value())

			switch key {
			case "time":
				parsed, timeErr := time.Parse(time.RFC3339Nano, value)
				if timeErr != nil {
					parsed, timeErr = time.Parse(time.RFC3339, value)
				}
				if timeErr == nil {
					entry.Timestamp = parsed
				}
			case "level":
				entry.Level = strings.ToLower(value)
			case "msg", "message":
				entry.Message = value
			default:
				if entry.Attributes == nil {
					entry.Attributes = make(map[string]string)
				}
				entry.Attributes[key] = value
			}
		}
		if d.Err() != nil {
			return len(p), fmt.Errorf("logfmt.ScanRecord: %w", d.Err())
		}

		if globalLoggingService == nil {
			continue
		}
		if err := Create(context.Background(), entry); err != nil {
			// Use a primitive sink here to avoid logging loops.
			fmt.Fprintf(os.Stderr, "ERROR [logging.slogWriter]: failed to record log: %v\n", err)
		}
	}
	if d.Err() != nil {
		return len(p), fmt.Errorf("logfmt.ScanRecord final: %w", d.Err())
	}
	return len(p), nil
}

func NewSlogWriter() io.Writer {
	return &slogWriter{}
}
