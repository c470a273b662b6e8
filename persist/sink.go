package persist

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"catalog-scraper/models"

	"github.com/hashicorp/go-multierror"
)

// Sink is a destination for a finished record set
type Sink interface {
	Write(ctx context.Context, name string, records []models.Record) error
}

// FileSink saves record sets under a directory, one file per name.
// Names may contain slashes; they become subdirectories of Dir. A name never
// resolves outside Dir.
type FileSink struct {
	Writer *Writer
	Dir    string
	Format Format
}

// Write implements Sink
func (s *FileSink) Write(_ context.Context, name string, records []models.Record) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	_, err = s.Writer.Save(records, p, s.Format)
	return err
}

// path maps name onto a file path under Dir. Rooting the name before
// cleaning drops any leading ".." so it cannot climb out of Dir.
func (s *FileSink) path(name string) (string, error) {
	rel := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
	if rel == "" {
		return "", fmt.Errorf("%w: empty record set name %q", ErrWrite, name)
	}
	p := filepath.Join(s.Dir, filepath.FromSlash(rel))

	r, err := filepath.Rel(s.Dir, p)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: name %q resolves outside %s", ErrWrite, name, s.Dir)
	}
	return p, nil
}

// Fanout writes to every sink in order. A failing sink does not stop the
// others; all failures are returned together.
type Fanout []Sink

// Write implements Sink
func (f Fanout) Write(ctx context.Context, name string, records []models.Record) error {
	var err error
	for _, s := range f {
		if sErr := s.Write(ctx, name, records); sErr != nil {
			err = multierror.Append(err, sErr)
		}
	}
	return err
}
