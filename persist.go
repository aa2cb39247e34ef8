package ploom

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
)

// Persister stores the rendered plan document. It returns the storage
// location, or "" when no writable root is available; in that case the
// engine degrades to the in-memory completion message.
type Persister interface {
	Persist(ctx context.Context, session *PlanSession, document string) (string, error)
}

// FilePersister writes plan documents as plan-<session-id>.md under a
// directory.
type FilePersister struct {
	dir string
}

// NewFilePersister creates a persister writing into dir. An empty dir
// yields a persister that reports no writable root.
func NewFilePersister(dir string) *FilePersister {
	return &FilePersister{dir: dir}
}

func (f *FilePersister) Persist(ctx context.Context, session *PlanSession, document string) (string, error) {
	if f == nil || f.dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", goerr.Wrap(err, "failed to create plan directory", goerr.V("dir", f.dir))
	}
	path := filepath.Join(f.dir, "plan-"+session.ID+".md")
	if err := os.WriteFile(path, []byte(document), 0o644); err != nil {
		return "", goerr.Wrap(err, "failed to write plan document", goerr.V("path", path))
	}
	return path, nil
}
