package state

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Store owns the current State. Dispatch runs logics, then the reducer,
// then notifies subscribers and schedules effects.
type Store struct {
	mu      sync.RWMutex
	state   State
	logics  []Logic
	effects EffectExecutor
	logger  *zap.Logger

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int

	notifyMu sync.Mutex
	pending  sync.WaitGroup

	record  bool
	history []Action
}

// Option configures a Store.
type Option func(*Store)

// WithLogics replaces the default interceptors.
func WithLogics(logics ...Logic) Option {
	return func(s *Store) { s.logics = logics }
}

// WithEffects installs the effect executor.
func WithEffects(e EffectExecutor) Option {
	return func(s *Store) { s.effects = e }
}

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithHistory records every action that reached the reducer.
func WithHistory() Option {
	return func(s *Store) { s.record = true }
}

// NewStore creates a store holding initial.
func NewStore(initial State, opts ...Option) *Store {
	s := &Store{
		state:  initial,
		logics: DefaultLogics(),
		logger: zap.NewNop(),
		subs:   make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch processes a. Effects run on their own goroutine with ctx.
// Subscribers must not call Dispatch synchronously.
func (s *Store) Dispatch(ctx context.Context, a Action) {
	s.notifyMu.Lock()
	s.mu.Lock()
	for _, logic := range s.logics {
		next, ok := logic(s.state, a)
		if !ok {
			s.mu.Unlock()
			s.notifyMu.Unlock()
			s.logger.Debug("action rejected", zap.String("type", a.Type()))
			return
		}
		a = next
	}
	s.state = Reduce(s.state, a)
	current := s.state
	if s.record {
		s.history = append(s.history, a)
	}
	s.mu.Unlock()

	s.logger.Debug("action reduced", zap.String("type", a.Type()))
	for _, fn := range s.subscribers() {
		fn(current)
	}
	s.notifyMu.Unlock()

	if s.effects != nil {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			s.effects.Execute(ctx, a, s)
		}()
	}
}

// Subscribe registers fn to receive the state after every reduced action.
// The returned function unregisters it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) subscribers() []func(State) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(State), len(ids))
	for i, id := range ids {
		out[i] = s.subs[id]
	}
	return out
}

// WhenComplete blocks until every scheduled effect, including effects of
// actions dispatched by effects, has finished.
func (s *Store) WhenComplete() {
	s.pending.Wait()
}

// History returns the recorded actions when WithHistory is set.
func (s *Store) History() []Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Action(nil), s.history...)
}

// Includes reports whether an action of the given type was recorded.
func (s *Store) Includes(actionType string) bool {
	for _, a := range s.History() {
		if a.Type() == actionType {
			return true
		}
	}
	return false
}
