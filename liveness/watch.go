package liveness

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// recordWatch wraps an fsnotify watcher armed on one record file.
type recordWatch struct {
	watcher   *fsnotify.Watcher
	path      string
	lostOnArm bool
}

// newRecordWatch arms a watch on the record file. One synchronous
// existence check happens immediately before arming, to close the
// race where the record was deleted before the watch existed. A
// deletion landing between that check and the Add call is missed
// until the next event on the file; the window is known and bounded.
func newRecordWatch(path string) (*recordWatch, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create record watcher: %w", err)
	}

	if _, err := os.Stat(path); err != nil {
		watcher.Close()
		return &recordWatch{path: path, lostOnArm: true}, nil
	}

	if err := watcher.Add(path); err != nil {
		// the record vanished between the check and the watch; loss,
		// not a fatal error
		watcher.Close()
		return &recordWatch{path: path, lostOnArm: true}, nil
	}

	return &recordWatch{watcher: watcher, path: path}, nil
}

// watchRecord delivers loss when the record file disappears. Watcher
// errors are logged and the watch keeps going; only deletion of the
// record is loss.
func (m *Monitor) watchRecord(ctx context.Context, w *recordWatch) {
	if w.lostOnArm {
		m.fire("record missing at arm time")
		return
	}
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				m.fire("record deleted")
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			m.log.Warn("record watcher error", zap.Error(err))
		}
	}
}
