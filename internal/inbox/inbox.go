// Package inbox turns export files dropped into a directory
// into stored datasets. Each debounced batch of files becomes
// one dataset; ingested files are moved to a done/ or failed/
// subdirectory so they are not picked up again.
package inbox

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wesm/listenview/internal/history"
)

const (
	doneDir   = "done"
	failedDir = "failed"
)

// Builder stores one upload batch as a dataset.
type Builder interface {
	BuildDataset(
		ctx context.Context, payloads [][]byte,
	) (string, *history.Table, error)
}

// Result describes one ingested batch.
type Result struct {
	DatasetID string
	Files     []string
	Rows      int
	Err       error
}

// Inbox watches a directory and ingests what lands there.
type Inbox struct {
	dir      string
	builder  Builder
	watcher  *Watcher
	onResult func(Result)
	ctx      context.Context
	cancel   context.CancelFunc
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithResultFunc registers a callback run after each batch.
func WithResultFunc(f func(Result)) Option {
	return func(in *Inbox) { in.onResult = f }
}

// New creates an inbox over dir, creating it if needed.
func New(
	dir string, debounce time.Duration, b Builder, opts ...Option,
) (*Inbox, error) {
	for _, sub := range []string{"", doneDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating inbox dir: %w", err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	in := &Inbox{
		dir:     dir,
		builder: b,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(in)
	}

	w, err := NewWatcher(debounce, in.ingest)
	if err != nil {
		cancel()
		return nil, err
	}
	if err := w.Watch(dir); err != nil {
		cancel()
		w.watcher.Close()
		return nil, err
	}
	in.watcher = w
	return in, nil
}

// Start ingests files already waiting in the directory as one
// batch, then begins watching.
func (in *Inbox) Start() error {
	existing, err := in.waiting()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		in.ingest(existing)
	}
	in.watcher.Start()
	log.Printf("inbox: watching %s", in.dir)
	return nil
}

// Stop stops watching. A batch in progress is canceled.
func (in *Inbox) Stop() {
	in.cancel()
	in.watcher.Stop()
}

func (in *Inbox) waiting() ([]string, error) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return nil, fmt.Errorf("listing inbox: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && isExportFile(e.Name()) {
			paths = append(paths, filepath.Join(in.dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// ingest builds one dataset from paths. Paths that have
// disappeared since they were queued are skipped.
func (in *Inbox) ingest(paths []string) {
	var files []string
	var payloads [][]byte
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			log.Printf("inbox: reading %s: %v", p, err)
			continue
		}
		files = append(files, p)
		payloads = append(payloads, data)
	}
	if len(files) == 0 {
		return
	}

	res := Result{Files: files}
	id, tbl, err := in.builder.BuildDataset(in.ctx, payloads)
	if err != nil {
		res.Err = err
		log.Printf("inbox: batch of %d file(s) rejected: %v", len(files), err)
		in.move(files, failedDir)
	} else {
		res.DatasetID = id
		res.Rows = tbl.Len()
		log.Printf(
			"inbox: dataset %s from %d file(s), %d rows",
			id, len(files), tbl.Len(),
		)
		in.move(files, doneDir)
	}
	if in.onResult != nil {
		in.onResult(res)
	}
}

func (in *Inbox) move(files []string, sub string) {
	for _, f := range files {
		dst := filepath.Join(in.dir, sub, filepath.Base(f))
		if err := os.Rename(f, dst); err != nil {
			log.Printf("inbox: moving %s: %v", f, err)
		}
	}
}
