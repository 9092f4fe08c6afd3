package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/saturnino-fabrica-de-software/ponto/internal/liveness"
)

// Calibration holds the thresholds that can be tuned per kiosk without a restart
type Calibration struct {
	Liveness       liveness.Thresholds `yaml:"liveness"`
	MatchThreshold float64             `yaml:"match_threshold"`
}

func (c Calibration) validate() error {
	for name, v := range map[string]float64{
		"liveness.smile":  c.Liveness.Smile,
		"liveness.blink":  c.Liveness.Blink,
		"match_threshold": c.MatchThreshold,
	} {
		if v <= 0 || v >= 1 {
			return fmt.Errorf("%s must be in (0, 1), got %v", name, v)
		}
	}
	return nil
}

// CalibrationLoader reads a YAML calibration file and watches it for changes.
// Fields missing from the file keep the values from the base calibration.
type CalibrationLoader struct {
	path     string
	base     Calibration
	logger   *slog.Logger
	mu       sync.RWMutex
	current  Calibration
	onChange []func(Calibration)
}

// NewCalibrationLoader creates a loader and performs the initial load.
// An empty path yields a loader that always returns base.
func NewCalibrationLoader(path string, base Calibration, logger *slog.Logger) (*CalibrationLoader, error) {
	l := &CalibrationLoader{
		path:    path,
		base:    base,
		logger:  logger.With("component", "calibration"),
		current: base,
	}
	if path == "" {
		return l, nil
	}

	cal, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cal
	return l, nil
}

// Calibration returns the latest calibration
func (l *CalibrationLoader) Calibration() Calibration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the file reloads
func (l *CalibrationLoader) OnChange(fn func(Calibration)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch hot-reloads the file in the background. The parent directory is
// watched so editors that replace the file are picked up too.
// Call the returned stop function to clean up.
func (l *CalibrationLoader) Watch() (stop func(), err error) {
	if l.path == "" {
		return func() {}, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("calibration watcher: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("calibration watcher add %s: %w", dir, err)
	}

	target := filepath.Clean(l.path)
	done := make(chan struct{})
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						l.logger.Warn("calibration reload failed, keeping previous values", "error", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("calibration watcher error", "error", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// Reload forces an immediate re-read of the file
func (l *CalibrationLoader) Reload() (Calibration, error) {
	cal, err := l.load()
	if err != nil {
		return Calibration{}, err
	}

	l.mu.Lock()
	l.current = cal
	callbacks := make([]func(Calibration), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()

	l.logger.Info("calibration reloaded",
		"smile", cal.Liveness.Smile,
		"blink", cal.Liveness.Blink,
		"match_threshold", cal.MatchThreshold,
	)
	for _, fn := range callbacks {
		fn(cal)
	}
	return cal, nil
}

func (l *CalibrationLoader) load() (Calibration, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return Calibration{}, fmt.Errorf("read calibration %s: %w", l.path, err)
	}

	var cal Calibration
	if err := yaml.Unmarshal(data, &cal); err != nil {
		return Calibration{}, fmt.Errorf("parse calibration %s: %w", l.path, err)
	}

	if cal.Liveness.Smile == 0 {
		cal.Liveness.Smile = l.base.Liveness.Smile
	}
	if cal.Liveness.Blink == 0 {
		cal.Liveness.Blink = l.base.Liveness.Blink
	}
	if cal.MatchThreshold == 0 {
		cal.MatchThreshold = l.base.MatchThreshold
	}

	if err := cal.validate(); err != nil {
		return Calibration{}, fmt.Errorf("calibration %s: %w", l.path, err)
	}
	return cal, nil
}
