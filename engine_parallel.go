package taproot

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/jward/taproot/internal/extract"
	"github.com/jward/taproot/internal/sem"
)

// workItem holds everything a parallel extraction worker needs.
type workItem struct {
	path    string
	content []byte
}

// indexFilesParallel indexes files using a three-phase pipeline:
//
//	Phase A (serial):   read, hash check, skip unchanged files.
//	Phase B (parallel): parse and extract via worker pool (a parser each).
//	Phase C (serial):   commit indexes into the corpus and resolver index.
//
// Commits are serialized because the corpus, cache, and resolver index are
// not safe for concurrent mutation; extraction itself shares nothing.
func (e *Engine) indexFilesParallel(ctx context.Context, paths []string) error {
	// ---- Phase A: serial preparation ----
	var items []workItem
	var errs []error
	for _, path := range paths {
		content, skip, err := e.prepareFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		items = append(items, workItem{path: path, content: content})
	}
	if len(items) == 0 {
		if len(errs) > 0 {
			return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
		}
		return nil
	}

	// ---- Phase B: parallel extraction ----
	numWorkers := min(runtime.NumCPU(), len(items))
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		path  string
		index *sem.Index
		err   error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				ix, err := extract.File(ctx, item.path, item.content)
				if err == nil {
					ix.ContentHash = contentHash(item.content)
				}
				resultCh <- result{path: item.path, index: ix, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: serial commit ----
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("extract %s: %w", res.path, res.err))
			continue
		}
		e.commitIndex(res.index)
	}

	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}
