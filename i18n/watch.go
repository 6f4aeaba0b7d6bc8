package i18n

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads dir whenever a catalog in it is written, until ctx is done.
// Bursts of writes within debounce trigger a single reload. onReload, when
// non-nil, receives the result of every reload.
func (t *Translator) Watch(ctx context.Context, dir string, debounce time.Duration, onReload func(error)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("i18n: creating fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("i18n: watching %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	go func() {
		defer fsw.Close()
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
					continue
				}
				if !isCatalog(ev.Name) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				err := t.LoadDir(dir)
				if err != nil {
					t.logger.Warn().Err(err).Str("dir", dir).Msg("i18n: reload failed")
				} else {
					t.logger.Info().Str("dir", dir).Msg("i18n: catalogs reloaded")
				}
				if onReload != nil {
					onReload(err)
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				t.logger.Warn().Err(err).Msg("i18n: watcher error")
			}
		}
	}()
	return nil
}
