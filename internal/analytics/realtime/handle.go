package realtime

import (
	"context"
	"sync"
	"time"
)

type commandKind int

const (
	cmdPause commandKind = iota
	cmdResume
	cmdInterval
	cmdRefresh
)

type command struct {
	kind     commandKind
	interval time.Duration
	reply    chan Snapshot
}

// Handle owns one polling loop. All methods are safe for concurrent use and
// become no-ops once the loop has exited.
type Handle struct {
	poller   *Poller
	cb       func(Snapshot)
	interval time.Duration

	commands chan command
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu        sync.RWMutex
	latest    Snapshot
	hasLatest bool
	paused    bool
}

// Pause stops the ticker. Already paused handles are left alone.
func (h *Handle) Pause() {
	h.send(command{kind: cmdPause})
}

// Resume polls immediately and restarts the ticker if the handle was paused.
func (h *Handle) Resume() {
	h.send(command{kind: cmdResume})
}

// UpdateInterval changes the cadence. A paused handle keeps the new interval
// for its next Resume.
func (h *Handle) UpdateInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	h.send(command{kind: cmdInterval, interval: interval})
}

// Refresh polls now, runs the callback and returns the result. It reports
// false if the handle is stopped or ctx ends first.
func (h *Handle) Refresh(ctx context.Context) (Snapshot, bool) {
	reply := make(chan Snapshot, 1)
	if !h.sendCtx(ctx, command{kind: cmdRefresh, reply: reply}) {
		return Snapshot{}, false
	}
	select {
	case snap := <-reply:
		return snap, true
	case <-h.done:
		return Snapshot{}, false
	case <-ctx.Done():
		return Snapshot{}, false
	}
}

// Latest returns the last poll result, if any.
func (h *Handle) Latest() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.hasLatest
}

// Paused reports whether the ticker is currently stopped.
func (h *Handle) Paused() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.paused
}

// Stop ends the loop and waits for it to exit. It may be called more than once.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) send(cmd command) {
	h.sendCtx(context.Background(), cmd)
}

func (h *Handle) sendCtx(ctx context.Context, cmd command) bool {
	select {
	case h.commands <- cmd:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *Handle) run(ctx context.Context) {
	defer close(h.done)

	h.tick(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	ticks := ticker.C

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stop:
			return
		case <-ticks:
			h.tick(ctx)
		case cmd := <-h.commands:
			switch cmd.kind {
			case cmdPause:
				if ticks != nil {
					ticker.Stop()
					ticks = nil
					h.setPaused(true)
				}
			case cmdResume:
				if ticks == nil {
					h.tick(ctx)
					ticker.Reset(h.interval)
					ticks = ticker.C
					h.setPaused(false)
				}
			case cmdInterval:
				h.interval = cmd.interval
				if ticks != nil {
					ticker.Reset(h.interval)
				}
			case cmdRefresh:
				cmd.reply <- h.tick(ctx)
			}
		}
	}
}

func (h *Handle) tick(ctx context.Context) Snapshot {
	snap := h.poller.Poll(ctx)
	h.mu.Lock()
	h.latest = snap
	h.hasLatest = true
	h.mu.Unlock()
	h.cb(snap)
	return snap
}

func (h *Handle) setPaused(paused bool) {
	h.mu.Lock()
	h.paused = paused
	h.mu.Unlock()
}
