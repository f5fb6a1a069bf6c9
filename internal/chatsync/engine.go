// Package chatsync keeps the currently selected conversation thread
// consistent with the backend by polling on a fixed interval. The backend is
// the source of truth: each tick fetches the thread's full message set and
// replaces the stored one when it differs, so unseen messages never disappear
// and duplicates never appear locally.
package chatsync

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"socio/internal/backend"
	"socio/internal/identity"
	"socio/internal/models"
	"socio/internal/observability"
	"socio/internal/store"
)

// DefaultPollInterval matches the reference cadence of one fetch per second.
const DefaultPollInterval = time.Second

// Tick outcomes recorded in metrics and logs.
const (
	tickChanged   = "changed"
	tickUnchanged = "unchanged"
	tickError     = "error"
	tickStale     = "stale"
)

// Engine is the polling synchronization engine. It is Idle until a thread is
// selected and tracks exactly one thread at a time.
type Engine struct {
	actor    backend.Actor
	state    *store.Store
	interval time.Duration

	mu      sync.Mutex
	current *tracker
}

// tracker owns the poll loop for one selected conversation key. thread is the
// latest published snapshot; it is replaced on change, never written through.
type tracker struct {
	key    identity.Key
	thread *models.ChatThread
	cancel context.CancelFunc
	done   chan struct{}
	// seq tags each issued fetch; responses that are not the latest issued
	// for the key are discarded rather than applied to stale state.
	seq atomic.Uint64
	log *observability.SyncLogger
}

// NewEngine creates an engine publishing into the given state container.
func NewEngine(actor backend.Actor, state *store.Store, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Engine{actor: actor, state: state, interval: interval}
}

// Select starts tracking the thread between self and the thread counterpart,
// cancelling any previous tracker. The first fetch is issued immediately.
func (e *Engine) Select(ctx context.Context, self string, thread *models.ChatThread) identity.Key {
	key := identity.DeriveConversationKey(self, thread.Name)

	tctx, cancel := context.WithCancel(ctx)
	t := &tracker{
		key:    key,
		thread: thread,
		cancel: cancel,
		done:   make(chan struct{}),
		log:    observability.NewSyncLogger(string(key)),
	}

	e.mu.Lock()
	prev := e.current
	e.current = t
	e.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	e.state.SetSelectedChat(thread)
	go e.run(tctx, t)
	return key
}

// Deselect stops tracking. No fetches for the key are issued afterwards.
func (e *Engine) Deselect() {
	e.mu.Lock()
	t := e.current
	e.current = nil
	e.mu.Unlock()

	if t != nil {
		t.cancel()
		<-t.done
	}
	e.state.SetSelectedChat(nil)
}

// Tracking returns the currently tracked key, if any.
func (e *Engine) Tracking() (identity.Key, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return "", false
	}
	return e.current.key, true
}

func (e *Engine) run(ctx context.Context, t *tracker) {
	defer close(t.done)

	// Ticks are fired on the interval regardless of in-flight fetches, like
	// the reference behavior; the seq tag resolves overlapping responses.
	e.launchTick(ctx, t)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.launchTick(ctx, t)
		}
	}
}

func (e *Engine) launchTick(ctx context.Context, t *tracker) {
	seq := t.seq.Add(1)
	go e.pollOnce(ctx, t, seq)
}

// pollOnce performs one fetch-and-compare cycle. A failed fetch is swallowed
// and retried on the next scheduled tick; a superseded response is discarded.
func (e *Engine) pollOnce(ctx context.Context, t *tracker, seq uint64) {
	groups, err := e.actor.GetMessages(ctx, t.key)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		observability.PollTicks.WithLabelValues(tickError).Inc()
		t.log.LogError(ctx, "getMessages", err)
		return
	}

	e.mu.Lock()
	if e.current != t {
		// Result arrived after deselection; discard, never apply.
		e.mu.Unlock()
		return
	}
	if seq != t.seq.Load() {
		e.mu.Unlock()
		observability.PollTicks.WithLabelValues(tickStale).Inc()
		t.log.LogTick(ctx, seq, tickStale)
		return
	}
	if models.GroupsEqual(groups, t.thread.Messages) {
		e.mu.Unlock()
		observability.PollTicks.WithLabelValues(tickUnchanged).Inc()
		return
	}
	// Published threads are immutable: store readers hold the previous pointer
	// without the engine's lock, so a change goes out as a fresh snapshot.
	updated := &models.ChatThread{
		Name:       t.thread.Name,
		ProfilePic: t.thread.ProfilePic,
		Status:     t.thread.Status,
		Messages:   groups,
	}
	t.thread = updated
	e.mu.Unlock()

	observability.PollTicks.WithLabelValues(tickChanged).Inc()
	t.log.LogTick(ctx, seq, tickChanged)
	e.state.PublishThread(updated)
}

// Send posts a message to the thread. The caller has already cleared its
// input buffer; local state is reconciled by the next poll tick rather than
// an optimistic insert. A failure surfaces a single user-facing alert and
// does not affect the polling cadence.
func (e *Engine) Send(ctx context.Context, key identity.Key, sender, text string, media []byte) error {
	if strings.TrimSpace(text) == "" && len(media) == 0 {
		return models.NewValidationError("message is empty")
	}

	e.state.SetSending(true)
	_, err := e.actor.PostMessage(ctx, key, sender, text, media, time.Now().UTC())
	e.state.SetSending(false)

	if err != nil {
		observability.MessagesSent.WithLabelValues("failure").Inc()
		e.state.SetAlert(store.Alert{Type: "error", Message: "Failed to send message"})
		return err
	}
	observability.MessagesSent.WithLabelValues("success").Inc()
	return nil
}
