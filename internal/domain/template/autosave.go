package template

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultAutoSaveDelay is how long the editor must be idle before a draft
// is written.
const DefaultAutoSaveDelay = 30 * time.Second

// SaveFunc persists a template snapshot.
type SaveFunc func(ctx context.Context, t *Template) error

// AutoSaver debounces draft saves per template. Each Schedule call replaces
// the pending snapshot and restarts that template's timer. Saves that are
// already running are not waited for, so the last write to reach the store
// wins.
type AutoSaver struct {
	delay   time.Duration
	timeout time.Duration
	save    SaveFunc
	logger  zerolog.Logger

	mu      sync.Mutex
	pending map[string]*pendingSave
	seq     uint64
	stopped bool
}

type pendingSave struct {
	timer *time.Timer
	seq   uint64
}

func NewAutoSaver(delay time.Duration, save SaveFunc, logger zerolog.Logger) *AutoSaver {
	if delay <= 0 {
		delay = DefaultAutoSaveDelay
	}
	return &AutoSaver{
		delay:   delay,
		timeout: 10 * time.Second,
		save:    save,
		logger:  logger,
		pending: make(map[string]*pendingSave),
	}
}

// Schedule queues a snapshot of t for saving after the idle delay. Drafts
// without an id, a name or any section are not worth saving and are
// ignored; Schedule reports whether the snapshot was queued.
func (a *AutoSaver) Schedule(t *Template) bool {
	if t.ID == "" || strings.TrimSpace(t.Name) == "" || len(t.Sections) == 0 {
		return false
	}
	snap, err := snapshot(t)
	if err != nil {
		a.logger.Error().Err(err).Str("template_id", t.ID).Msg("autosave snapshot failed")
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return false
	}

	if p, ok := a.pending[t.ID]; ok {
		p.timer.Stop()
	}
	a.seq++
	seq := a.seq
	a.pending[t.ID] = &pendingSave{
		seq:   seq,
		timer: time.AfterFunc(a.delay, func() { a.fire(snap, seq) }),
	}
	return true
}

func (a *AutoSaver) fire(snap *Template, seq uint64) {
	a.mu.Lock()
	p, ok := a.pending[snap.ID]
	if !ok || p.seq != seq || a.stopped {
		a.mu.Unlock()
		return
	}
	delete(a.pending, snap.ID)
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.save(ctx, snap); err != nil {
		a.logger.Error().Err(err).Str("template_id", snap.ID).Msg("autosave failed")
		return
	}
	a.logger.Debug().Str("template_id", snap.ID).Msg("autosaved template")
}

// Cancel abandons the pending save for id and reports whether one existed.
func (a *AutoSaver) Cancel(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pending[id]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(a.pending, id)
	return true
}

// Pending reports whether a save is queued for id.
func (a *AutoSaver) Pending(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.pending[id]
	return ok
}

// Stop abandons every pending save. Later Schedule calls are ignored.
func (a *AutoSaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	for id, p := range a.pending {
		p.timer.Stop()
		delete(a.pending, id)
	}
}

func snapshot(t *Template) (*Template, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	out := &Template{}
	if err := json.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}
