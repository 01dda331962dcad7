package jobstate

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"meetforge/pkg/logger"
)

// Watch is an optional enrichment: it pushes a fresh State on every
// change to jobDir's artifact tree, so a caller (e.g. an SSE endpoint)
// doesn't need to poll Derive on a timer. Closing ctx stops the watch
// and closes the returned channel.
func Watch(ctx context.Context, jobID, jobDir string) (<-chan *State, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(jobDir); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan *State, 1)

	go func() {
		defer close(out)
		defer watcher.Close()

		if state, err := Derive(jobID, jobDir); err == nil {
			out <- state
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				state, err := Derive(jobID, jobDir)
				if err != nil {
					logger.Warn("jobstate watch: failed to derive state after fs event", "job_id", jobID, "error", err.Error())
					continue
				}
				select {
				case out <- state:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("jobstate watch: fsnotify error", "job_id", jobID, "error", err.Error())
			}
		}
	}()

	return out, nil
}
