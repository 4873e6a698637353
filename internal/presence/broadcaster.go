package presence

import (
	"context"
	"sync"
	"time"

	"github.com/umachittudi2004/VedazAssingment/internal/event"
	"go.uber.org/zap"
)

const defaultStoreTimeout = 5 * time.Second

// OnlineStore persists the user's online flag.
type OnlineStore interface {
	SetOnline(ctx context.Context, userID string, online bool) error
}

// Broadcaster turns registry transitions into user:online / user:offline
// events addressed to every connected handle. Transitions are queued without
// blocking the registry and published in order. The online flag is written
// by a separate loop, in the same order, so a slow store never delays the
// events themselves.
type Broadcaster struct {
	registry     *Registry
	users        OnlineStore
	logger       *zap.Logger
	storeTimeout time.Duration

	mu      sync.Mutex
	pending []Change
	writes  []Change
	stopped bool

	wake      chan struct{}
	writeWake chan struct{}
	stop      chan struct{}
	flushed   chan struct{}
	once      sync.Once
	wg        sync.WaitGroup
}

// NewBroadcaster subscribes to registry and starts the publishing loops.
// users may be nil when the online flag is not persisted.
func NewBroadcaster(registry *Registry, users OnlineStore, logger *zap.Logger) *Broadcaster {
	b := &Broadcaster{
		registry:     registry,
		users:        users,
		logger:       logger.Named("presence"),
		storeTimeout: defaultStoreTimeout,
		wake:         make(chan struct{}, 1),
		writeWake:    make(chan struct{}, 1),
		stop:         make(chan struct{}),
		flushed:      make(chan struct{}),
	}
	registry.Subscribe(b)

	b.wg.Add(1)
	go b.run()
	if users != nil {
		b.wg.Add(1)
		go b.persist()
	}
	return b
}

// OnPresenceChange implements Listener. Changes reported after Stop are
// dropped.
func (b *Broadcaster) OnPresenceChange(ch Change) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		b.logger.Warn("presence change dropped after stop",
			zap.String("user_id", ch.UserID),
			zap.Bool("online", ch.Online),
		)
		return
	}
	b.pending = append(b.pending, ch)
	b.mu.Unlock()

	nudge(b.wake)
}

// Stop publishes and persists the transitions still queued, then ends both
// loops.
func (b *Broadcaster) Stop() {
	b.once.Do(func() {
		b.mu.Lock()
		b.stopped = true
		b.mu.Unlock()
		close(b.stop)
	})
	b.wg.Wait()
}

func nudge(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (b *Broadcaster) run() {
	defer b.wg.Done()
	defer close(b.flushed)
	for {
		select {
		case <-b.stop:
			b.publishAll(b.take(&b.pending))
			return
		case <-b.wake:
			b.publishAll(b.take(&b.pending))
		}
	}
}

func (b *Broadcaster) persist() {
	defer b.wg.Done()
	for {
		select {
		case <-b.flushed:
			for _, ch := range b.take(&b.writes) {
				b.store(ch)
			}
			return
		case <-b.writeWake:
			for _, ch := range b.take(&b.writes) {
				b.store(ch)
			}
		}
	}
}

func (b *Broadcaster) take(queue *[]Change) []Change {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := *queue
	*queue = nil
	return batch
}

func (b *Broadcaster) publishAll(batch []Change) {
	if len(batch) == 0 {
		return
	}
	for _, ch := range batch {
		b.publish(ch)
	}
	if b.users == nil {
		return
	}

	b.mu.Lock()
	b.writes = append(b.writes, batch...)
	b.mu.Unlock()
	nudge(b.writeWake)
}

func (b *Broadcaster) publish(ch Change) {
	name := event.EventUserOffline
	if ch.Online {
		name = event.EventUserOnline
	}
	sent := b.registry.Broadcast(event.MustNew(name, "", ch.UserID))

	b.logger.Debug("presence published",
		zap.String("user_id", ch.UserID),
		zap.String("event", name),
		zap.Int("recipients", sent),
	)
}

func (b *Broadcaster) store(ch Change) {
	ctx, cancel := context.WithTimeout(context.Background(), b.storeTimeout)
	defer cancel()

	if err := b.users.SetOnline(ctx, ch.UserID, ch.Online); err != nil {
		b.logger.Warn("failed to persist online flag",
			zap.String("user_id", ch.UserID),
			zap.Bool("online", ch.Online),
			zap.Error(err),
		)
	}
}
