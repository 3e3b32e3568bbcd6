package intake

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/errs"
	"supplyguard/internal/usecase/pipeline"
)

// DirSource emits every *.json file dropped into a directory, once per file name.
type DirSource struct {
	dir       string
	processed map[string]struct{}
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: filepath.Clean(dir), processed: map[string]struct{}{}}
}

// Run scans files already present, then watches for new ones until ctx ends.
func (s *DirSource) Run(ctx context.Context, out chan<- pipeline.Envelope) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	logCtx := logging.WithAttrs(logging.WithComponent(ctx, "infrastructure.intake.dir"), slog.String("dir", s.dir))

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errs.Wrapf(err, "create watch dir %q", s.dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Wrap(err, "create watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return errs.Wrapf(err, "watch dir %q", s.dir)
	}

	if err := s.scan(logCtx, out); err != nil {
		return err
	}
	logging.Info(logCtx, "watching for events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if err := s.emit(logCtx, event.Name, out); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn(logCtx, "watcher error", slog.Any("err", errs.Loggable(err)))
		}
	}
}

func (s *DirSource) scan(ctx context.Context, out chan<- pipeline.Envelope) error {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return errs.Wrap(err, "scan watch dir")
	}
	sort.Strings(matches)
	for _, path := range matches {
		if err := s.emit(ctx, path, out); err != nil {
			return err
		}
	}
	return nil
}

// emit returns an error only when ctx ends while sending.
func (s *DirSource) emit(ctx context.Context, path string, out chan<- pipeline.Envelope) error {
	name := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(name), ".json") {
		return nil
	}
	if _, done := s.processed[name]; done {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		logging.Debug(ctx, "event file not readable yet", slog.String("file", name), slog.Any("err", errs.Loggable(err)))
		return nil
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}

	// A file that does not decode stays unmarked: it may still be mid-write,
	// and the next write event reads it again.
	event, err := DecodeEvent(raw, name)
	if err != nil {
		logging.Warn(ctx, "skip undecodable event file", slog.String("file", name), slog.Any("err", errs.Loggable(err)))
		return nil
	}
	s.processed[name] = struct{}{}

	select {
	case out <- pipeline.Envelope{Source: name, Event: event}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
