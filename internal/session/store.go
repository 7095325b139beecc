package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Bidon15/orbit-setup/internal/metrics"
	"github.com/Bidon15/orbit-setup/internal/orbit"
	"github.com/Bidon15/orbit-setup/internal/storage"
)

// Options configures Load.
type Options struct {
	// ChainID seeds the default rollup config. Zero generates one.
	ChainID uint64
	Logger  *slog.Logger
	// Metrics counts session writes. May be nil.
	Metrics *metrics.Metrics
}

// Session is the handle consumers receive: a snapshot of the state and the
// function that mutates it.
type Session struct {
	State    State
	Dispatch func(ctx context.Context, action Action) State
}

// Store owns the deployment session and writes it to storage after every
// dispatch.
type Store struct {
	mu        sync.Mutex
	storage   storage.Storage
	logger    *slog.Logger
	metrics   *metrics.Metrics
	defaults  orbit.RollupConfig
	state     State
	err       error
	connected bool
}

// Load restores the session from storage, falling back to fresh defaults
// when the slot is empty, malformed or written by another schema version.
// It never fails.
func Load(ctx context.Context, store storage.Storage, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	chainID := opts.ChainID
	if chainID == 0 {
		chainID = orbit.GenerateChainID()
	}

	s := &Store{
		storage:  store,
		logger:   logger,
		metrics:  opts.Metrics,
		defaults: orbit.DefaultRollupConfig("", chainID),
	}
	s.state = s.initialState(ctx)
	return s
}

func (s *Store) initialState(ctx context.Context) State {
	fresh := NewState(s.defaults)

	raw, err := s.storage.Get(ctx, StateKey)
	if errors.Is(err, storage.ErrNotFound) {
		return fresh
	}
	if err != nil {
		s.logger.Warn("failed to read session, starting fresh", slog.String("error", err.Error()))
		return fresh
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		s.logger.Warn("stored session is malformed, starting fresh", slog.String("error", err.Error()))
		return fresh
	}
	if rec.Version != SchemaVersion {
		s.logger.Warn("stored session has unsupported version, starting fresh",
			slog.Int("version", rec.Version),
			slog.Int("expected", SchemaVersion),
		)
		return fresh
	}

	rec.State.IsLoading = false
	return rec.State
}

// State returns a snapshot of the session.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Defaults returns the rollup config fresh and reset sessions start from.
func (s *Store) Defaults() orbit.RollupConfig {
	return s.defaults
}

// Session returns the handle threaded through the wizard.
func (s *Store) Session() Session {
	return Session{State: s.State(), Dispatch: s.Dispatch}
}

// Dispatch applies action and writes the resulting session to storage. A
// failed write is logged and reported by Err; the new state is returned
// either way.
func (s *Store) Dispatch(ctx context.Context, action Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(ctx, action)
}

func (s *Store) dispatchLocked(ctx context.Context, action Action) State {
	s.state = Reduce(s.defaults, s.state, action)

	if err := s.persist(ctx); err != nil {
		s.logger.Error("failed to persist session",
			slog.String("action", action.Type()),
			slog.String("error", err.Error()),
		)
		s.err = err
		s.written("failed")
	} else {
		s.err = nil
		s.written("success")
	}

	return s.state.Clone()
}

// ConnectWallet sets the owner from the first wallet attached to the store
// when no owner is configured yet. Later calls do nothing.
func (s *Store) ConnectWallet(ctx context.Context, address string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return s.state.Clone()
	}
	s.connected = true

	if s.state.RollupConfig.Owner != "" {
		return s.state.Clone()
	}
	s.logger.Info("owner set from connected wallet", slog.String("owner", address))
	return s.dispatchLocked(ctx, SetRollupConfig{Patch: orbit.OwnerPatch(address)})
}

func (s *Store) written(result string) {
	if s.metrics != nil {
		s.metrics.SessionWritten(result)
	}
}

// Err returns the error of the most recent write, if it failed.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(record{Version: SchemaVersion, State: s.state})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.storage.Set(ctx, StateKey, string(data)); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}
