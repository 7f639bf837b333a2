package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

// Watch reloads runtime values when the .env file changes on disk, so an
// operator edit applies without a restart. Events are debounced because
// editors tend to emit several writes per save. An invalid file is logged
// and skipped; the running configuration stays untouched.
func (s *Store) Watch(ctx context.Context) error {
	if s.envPath == "" {
		<-ctx.Done()
		return nil
	}

	dir := filepath.Dir(s.envPath)
	file := filepath.Base(s.envPath)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory, not the file: editors replace files on save.
	if err := w.Add(dir); err != nil {
		return err
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	reload := func() {
		env, err := godotenv.Read(s.envPath)
		if err != nil {
			s.log.Warn().Err(err).Str("path", s.envPath).Msg("env reload failed")
			return
		}
		v, err := valuesFrom(fileThenEnv(env))
		if err != nil {
			s.log.Warn().Err(err).Msg("env reload rejected")
			return
		}
		s.Apply(v)
		s.log.Info().Str("path", s.envPath).Msg("runtime config reloaded")
	}
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(200*time.Millisecond, reload)
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != file {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("env watcher error")
		}
	}
}
