package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultWatchDebounce batches the burst of events an editor emits on save.
const DefaultWatchDebounce = 500 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	Debounce time.Duration
	// OnResult receives every generation outcome, including the first.
	OnResult func(*GenerateResult, error)
}

// Watch generates the report once and again each time the notebook's
// content changes, until ctx is cancelled. The notebook's directory is
// watched so editors that save by rename are still seen.
func (a *ReportApp) Watch(ctx context.Context, req GenerateRequest, opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultWatchDebounce
	}
	target, err := filepath.Abs(req.Notebook)
	if err != nil {
		return fmt.Errorf("resolve notebook path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	log := a.log.With(zap.String("notebook", target))
	lastHash := a.contentHash(target)
	run := func() {
		res, err := a.Generate(ctx, req)
		if opts.OnResult != nil {
			opts.OnResult(res, err)
		}
	}
	run()

	timer := time.NewTimer(opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(opts.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))

		case <-timer.C:
			h := a.contentHash(target)
			if h == "" || h == lastHash {
				log.Debug("skip: notebook content unchanged")
				continue
			}
			lastHash = h
			log.Info("notebook changed, regenerating")
			run()
		}
	}
}

// contentHash returns "" when the file cannot be read, such as mid-save.
func (a *ReportApp) contentHash(path string) string {
	data, err := afero.ReadFile(a.ctx.Fs, path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
