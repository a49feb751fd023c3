package store

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rebeliceyang/lazynotion/internal/filter"
	"github.com/rebeliceyang/lazynotion/internal/history"
	"github.com/rebeliceyang/lazynotion/internal/models"
	"github.com/rebeliceyang/lazynotion/internal/notion"
	"github.com/rebeliceyang/lazynotion/internal/optioncache"
)

var (
	ErrFetchInFlight    = errors.New("a fetch is already in progress")
	ErrInvalidFilter    = errors.New("filter cannot be compiled")
	ErrNegationDisabled = errors.New("negated filter groups are disabled")
	ErrDuplicateSort    = errors.New("property is already sorted")
	ErrSortIndex        = errors.New("sort index out of range")

	errNoChange = errors.New("no change")
)

// State is everything the table view renders from
type State struct {
	IsLoaded   bool
	IsFetching bool
	Records    []models.Record
	Schema     models.Schema
	Sorts      []models.SortEntry
	Filters    *filter.Tree

	// FilterError is the compile error of the current tree, shown next to
	// the filter editor; empty when the tree compiles
	FilterError string
	// LastError is the message of the last failed fetch
	LastError string
}

func (s State) clone() State {
	c := s
	c.Records = append([]models.Record(nil), s.Records...)
	c.Schema = append(models.Schema(nil), s.Schema...)
	c.Sorts = append([]models.SortEntry(nil), s.Sorts...)
	if s.Filters != nil {
		c.Filters = s.Filters.Clone()
	}
	return c
}

// HistoryRecorder receives one entry per fetch
type HistoryRecorder interface {
	Add(entry history.Entry) error
}

// Selector picks the part of the state a subscriber cares about. Its output
// is compared with cmp.Equal, so it must not contain unexported fields; use
// Tree.Snapshot rather than the tree itself.
type Selector func(State) any

type subscription struct {
	selector Selector
	last     any
	fn       func(any)
}

// Store owns the table state. Transitions are applied to a copy which then
// replaces the current state, and subscribers are told about the parts they
// selected when those changed.
type Store struct {
	mu    sync.Mutex
	state State

	subs    map[int]*subscription
	nextSub int

	querier        notion.Querier
	options        optioncache.Cache
	history        HistoryRecorder
	logger         *slog.Logger
	database       string
	enableNegation bool
}

// Option configures a Store
type Option func(*Store)

// WithOptionCache sets where select options are persisted
func WithOptionCache(c optioncache.Cache) Option {
	return func(s *Store) { s.options = c }
}

// WithHistory records every fetch
func WithHistory(h HistoryRecorder) Option {
	return func(s *Store) { s.history = h }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithDatabase names the database in history entries
func WithDatabase(id string) Option {
	return func(s *Store) { s.database = id }
}

// WithNegation allows negated filter groups
func WithNegation(enabled bool) Option {
	return func(s *Store) { s.enableNegation = enabled }
}

// WithFilterTree replaces the initial empty filter tree
func WithFilterTree(t *filter.Tree) Option {
	return func(s *Store) { s.state.Filters = t }
}

// New creates a store querying through q
func New(q notion.Querier, opts ...Option) *Store {
	s := &Store{
		subs:    make(map[int]*subscription),
		querier: q,
		state: State{
			Filters: filter.NewTree(),
			Schema:  models.Schema{},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.options == nil {
		s.options = optioncache.NewMemory()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// NegationEnabled reports whether groups may be negated
func (s *Store) NegationEnabled() bool {
	return s.enableNegation
}

// Subscribe calls fn with the selector's output whenever it changes. The
// returned function unsubscribes.
func (s *Store) Subscribe(selector Selector, fn func(any)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = &subscription{
		selector: selector,
		last:     selector(s.state),
		fn:       fn,
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Apply runs a transition on a copy of the state, installs the result and
// notifies subscribers whose selection changed
func (s *Store) Apply(transition func(*State)) {
	_ = s.applyErr(func(st *State) error {
		transition(st)
		return nil
	})
}

// applyErr is Apply for transitions that can fail; a failed transition
// leaves the state untouched
func (s *Store) applyErr(transition func(*State) error) error {
	s.mu.Lock()

	next := s.state.clone()
	if err := transition(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next

	type notification struct {
		fn    func(any)
		value any
	}
	var pending []notification
	for _, sub := range s.subs {
		value := sub.selector(next)
		if cmp.Equal(sub.last, value, cmpopts.EquateEmpty()) {
			continue
		}
		sub.last = value
		pending = append(pending, notification{fn: sub.fn, value: value})
	}
	s.mu.Unlock()

	// outside the lock so subscribers can read the store
	for _, n := range pending {
		n.fn(n.value)
	}
	return nil
}

// Load installs an initial record set without querying
func (s *Store) Load(records []models.Record) {
	s.Apply(func(st *State) {
		st.Records = records
		st.Schema = notion.DeriveProperties(records)
		st.IsLoaded = true
	})
	s.cacheAllPropertyOptions()
}
