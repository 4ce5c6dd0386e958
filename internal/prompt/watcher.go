package prompt

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads templates whenever files under the prompts directory change.
// It blocks until ctx is cancelled, so callers run it in a goroutine. Events
// are debounced because editors fire several per save.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(m.dir); err != nil {
		// Directory may not exist; defaults still serve every phase.
		m.log.Warn("cannot watch prompts directory", zap.String("dir", m.dir), zap.Error(err))
		return err
	}
	m.log.Info("watching prompts directory", zap.String("dir", m.dir))

	const debounce = 500 * time.Millisecond
	var pending *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			m.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.log.Error("prompt watcher error", zap.Error(err))
		}
	}
}
