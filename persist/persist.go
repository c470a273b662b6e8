// Package persist writes record sets to files and other sinks.
package persist

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"catalog-scraper/models"

	"github.com/sirupsen/logrus"
)

// ErrWrite is wrapped by every error caused by a failed write
var ErrWrite = errors.New("write failed")

// Format selects the file encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", s)
	}
}

// Writer saves record sets to files, always overwriting
type Writer struct {
	logger *logrus.Entry
}

// NewWriter creates a new Writer
func NewWriter(logger *logrus.Entry) *Writer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Writer{logger: logger}
}

// Save writes records to path in the given format and returns the path that
// was written. The format's extension is appended when path lacks it. An
// empty record set writes nothing and returns an empty path.
func (w *Writer) Save(records []models.Record, path string, format Format) (string, error) {
	if len(records) == 0 {
		w.logger.WithField("path", path).Info("no records to save")
		return "", nil
	}

	ext := "." + string(format)
	if filepath.Ext(path) != ext {
		path += ext
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("%w: create directory %s: %v", ErrWrite, dir, err)
		}
	}

	var err error
	switch format {
	case FormatJSON:
		err = writeJSON(records, path)
	case FormatCSV:
		err = writeCSV(records, path)
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return "", err
	}

	w.logger.WithFields(logrus.Fields{"path": path, "records": len(records)}).Info("records saved")
	return path, nil
}

// closeFile closes c and reports its error through err unless err already
// holds an earlier failure
func closeFile(c io.Closer, path string, err *error) {
	if cErr := c.Close(); cErr != nil && *err == nil {
		*err = fmt.Errorf("%w: close %s: %v", ErrWrite, path, cErr)
	}
}

func writeJSON(records []models.Record, path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrWrite, path, err)
	}
	defer closeFile(file, path, &err)

	if err := json.NewEncoder(file).Encode(records); err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrWrite, path, err)
	}
	return nil
}

func writeCSV(records []models.Record, path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrWrite, path, err)
	}
	defer closeFile(file, path, &err)

	cw := csv.NewWriter(file)
	if err := cw.Write(records[0].Columns()); err != nil {
		return fmt.Errorf("%w: write header %s: %v", ErrWrite, path, err)
	}
	for _, r := range records {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("%w: write row %s: %v", ErrWrite, path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", ErrWrite, path, err)
	}
	return nil
}
