package orchestrator

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// controlStopFile is the out-of-core control plane's cooperative
// shutdown sentinel: its creation signals the loop to stop, mirroring
// the teacher's kill/pause signal-file pattern but scoped to a single
// stop condition instead of per-agent kill/pause files.
const controlStopFile = "stop"

// pollInterval is the fallback poll period used alongside the fsnotify
// watch, in case the watch is dropped (e.g. the directory is replaced).
const pollInterval = 2 * time.Second

// watchControlStop watches <projectDir>/.forge/control/stop and returns a
// channel that closes once, the first time the file is observed to
// exist — via fsnotify event or fallback poll, whichever notices first.
func watchControlStop(projectDir string) (<-chan struct{}, *fsnotify.Watcher, error) {
	dir := filepath.Join(projectDir, ".forge", "control")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	stopPath := filepath.Join(dir, controlStopFile)

	ch := make(chan struct{})

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return pollOnly(stopPath, ch), nil, nil
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return pollOnly(stopPath, ch), nil, nil
	}

	go func() {
		defer close(ch)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			if fileExists(stopPath) {
				return
			}
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name == stopPath && (ev.Op&fsnotify.Create != 0 || ev.Op&fsnotify.Write != 0) {
					return
				}
			case <-w.Errors:
			case <-ticker.C:
			}
		}
	}()

	return ch, w, nil
}

func pollOnly(stopPath string, ch chan struct{}) <-chan struct{} {
	go func() {
		defer close(ch)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for range ticker.C {
			if fileExists(stopPath) {
				return
			}
		}
	}()
	return ch
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
