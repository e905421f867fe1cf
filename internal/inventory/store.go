package inventory

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukerupert/pantry/internal/groceryapi"
	"github.com/dukerupert/pantry/internal/model"
)

// Transport is the REST collaborator the store synchronizes with.
// *groceryapi.Client satisfies it.
type Transport interface {
	ListItems(ctx context.Context) ([]model.GroceryItem, error)
	CreateItem(ctx context.Context, req model.GroceryCreateRequest) error
	GetItemDetail(ctx context.Context, id string) (*model.GroceryDetail, error)
	UpdateItem(ctx context.Context, id string, req model.GroceryUpdateRequest) error
}

// Snapshotter persists the last successfully fetched list.
type Snapshotter interface {
	SaveItems(ctx context.Context, items []model.GroceryItem) error
	LoadItems(ctx context.Context) ([]model.GroceryItem, error)
}

// State is what views render. Error holds a user-facing message only.
type State struct {
	Items     []model.GroceryItem  `json:"items"`
	Detail    *model.GroceryDetail `json:"detail"`
	IsLoading bool                 `json:"is_loading"`
	Error     string               `json:"error,omitempty"`
}

func (st State) clone() State {
	out := st
	out.Items = make([]model.GroceryItem, len(st.Items))
	copy(out.Items, st.Items)
	if st.Detail != nil {
		d := *st.Detail
		out.Detail = &d
	}
	return out
}

// Event describes one state change. Seq increases by one per change and
// listeners receive events in Seq order.
type Event struct {
	Seq    uint64 `json:"seq"`
	Action Action `json:"action"`
	ID     string `json:"id,omitempty"`
	State  State  `json:"state"`
}

type Action string

const (
	ActionItemsLoading    Action = "items_loading"
	ActionItemsLoaded     Action = "items_loaded"
	ActionItemsFailed     Action = "items_failed"
	ActionItemsHydrated   Action = "items_hydrated"
	ActionDetailLoading   Action = "detail_loading"
	ActionDetailLoaded    Action = "detail_loaded"
	ActionDetailFailed    Action = "detail_failed"
	ActionDetailDiscarded Action = "detail_discarded"
	ActionUpdating        Action = "updating"
	ActionUpdated         Action = "updated"
	ActionUpdateFailed    Action = "update_failed"
	ActionCreated         Action = "created"
	ActionCreateFailed    Action = "create_failed"
)

// Store holds the inventory state shown by views and is its only writer.
// The mutex is never held across a transport call.
type Store struct {
	transport Transport
	snapshots Snapshotter
	logger    *slog.Logger

	detailGuard bool

	mu        sync.RWMutex
	state     State
	inflight  int
	detailSeq uint64
	eventSeq  uint64
	listeners []func(Event)

	turnMu    sync.Mutex
	turn      *sync.Cond
	delivered uint64
}

type Option func(*Store)

// WithDetailGuard drops a detail response when a newer detail fetch has been
// started since. Without it the last response to arrive wins.
func WithDetailGuard() Option {
	return func(s *Store) { s.detailGuard = true }
}

// WithSnapshots saves every successfully fetched list to sn and allows Hydrate.
func WithSnapshots(sn Snapshotter) Option {
	return func(s *Store) { s.snapshots = sn }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty store. Create one per application and pass it to views.
func New(t Transport, opts ...Option) *Store {
	s := &Store{
		transport: t,
		logger:    slog.Default(),
		state:     State{Items: []model.GroceryItem{}},
	}
	s.turn = sync.NewCond(&s.turnMu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe registers fn to be called after every state change. fn runs on
// the goroutine that performed the change, must not block, and must not call
// store actions: later changes wait until fn returns.
func (s *Store) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Reset returns the store to its initial state. Listeners are kept.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = State{Items: []model.GroceryItem{}}
	s.inflight = 0
	s.detailSeq = 0
	s.mu.Unlock()
}

// mutate applies fn under the lock, then runs after and notifies listeners
// outside it, in the order the changes were applied. fn may return a
// different action to report; an empty action keeps the given one.
func (s *Store) mutate(action Action, id string, fn func(st *State) Action, after func()) {
	s.mu.Lock()
	if a := fn(&s.state); a != "" {
		action = a
	}
	s.state.IsLoading = s.inflight > 0
	s.eventSeq++
	ev := Event{Seq: s.eventSeq, Action: action, ID: id, State: s.state.clone()}
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	s.turnMu.Lock()
	for s.delivered+1 != ev.Seq {
		s.turn.Wait()
	}
	s.turnMu.Unlock()

	if after != nil {
		after()
	}
	for _, fn := range listeners {
		fn(ev)
	}

	s.turnMu.Lock()
	s.delivered = ev.Seq
	s.turn.Broadcast()
	s.turnMu.Unlock()
}

func (s *Store) begin(action Action, id string, fn func(st *State)) {
	s.mutate(action, id, func(st *State) Action {
		s.inflight++
		st.Error = ""
		if fn != nil {
			fn(st)
		}
		return ""
	}, nil)
}

func (s *Store) end(action Action, id string, fn func(st *State) Action, after func()) {
	s.mutate(action, id, func(st *State) Action {
		if s.inflight > 0 {
			s.inflight--
		}
		if fn != nil {
			return fn(st)
		}
		return ""
	}, after)
}

// FetchGroceries replaces the list with the server's. On failure the previous
// list is kept and Error is set.
func (s *Store) FetchGroceries(ctx context.Context) error {
	s.begin(ActionItemsLoading, "", nil)

	items, err := s.transport.ListItems(ctx)
	if err != nil {
		s.logger.Error("fetch groceries", "error", err)
		s.end(ActionItemsFailed, "", func(st *State) Action {
			st.Error = UserMessage(err)
			return ""
		}, nil)
		return err
	}
	if items == nil {
		items = []model.GroceryItem{}
	}

	// Saved in event order so the snapshot matches the list last applied.
	s.end(ActionItemsLoaded, "", func(st *State) Action {
		st.Items = items
		return ""
	}, func() {
		if s.snapshots == nil {
			return
		}
		if err := s.snapshots.SaveItems(ctx, items); err != nil {
			s.logger.Warn("save snapshot", "error", err)
		}
	})
	return nil
}

// CreateGrocery submits a new item. It does not touch the visible state; the
// caller refreshes the list when it needs to.
func (s *Store) CreateGrocery(ctx context.Context, req model.GroceryCreateRequest) error {
	if err := s.transport.CreateItem(ctx, req); err != nil {
		s.logger.Error("create grocery", "name", req.Name, "error", err)
		s.notify(ActionCreateFailed, "")
		return err
	}
	s.notify(ActionCreated, "")
	return nil
}

func (s *Store) notify(action Action, id string) {
	s.mutate(action, id, func(*State) Action { return "" }, nil)
}

// GetGroceryDetail loads one item into Detail. Detail is cleared as soon as
// the fetch starts and stays cleared if it fails.
func (s *Store) GetGroceryDetail(ctx context.Context, id string) error {
	var seq uint64
	s.begin(ActionDetailLoading, id, func(st *State) {
		s.detailSeq++
		seq = s.detailSeq
		st.Detail = nil
	})

	detail, err := s.transport.GetItemDetail(ctx, id)
	if err != nil {
		s.logger.Error("get grocery detail", "id", id, "error", err)
	} else if detail == nil {
		err = groceryapi.NewAPIError(nil)
	}

	action := ActionDetailLoaded
	if err != nil {
		action = ActionDetailFailed
	}

	var stale bool
	s.end(action, id, func(st *State) Action {
		if s.detailGuard && seq != s.detailSeq {
			stale = true
			return ActionDetailDiscarded
		}
		if err != nil {
			st.Detail = nil
			st.Error = UserMessage(err)
			return ""
		}
		d := *detail
		st.Detail = &d
		return ""
	}, nil)
	if stale {
		s.logger.Debug("discarded superseded detail response", "id", id)
		return ErrSuperseded
	}
	return err
}

// ErrSuperseded is returned by GetGroceryDetail when the detail guard dropped
// the response because a newer fetch had started.
var ErrSuperseded = errors.New("superseded by a newer detail request")

// UpdateGrocery submits changes to an item.
func (s *Store) UpdateGrocery(ctx context.Context, id string, req model.GroceryUpdateRequest) error {
	s.begin(ActionUpdating, id, nil)

	if err := s.transport.UpdateItem(ctx, id, req); err != nil {
		s.logger.Error("update grocery", "id", id, "error", err)
		s.end(ActionUpdateFailed, id, func(st *State) Action {
			st.Error = UserMessage(err)
			return ""
		}, nil)
		return err
	}

	s.end(ActionUpdated, id, nil, nil)
	return nil
}

// Hydrate loads the last saved list when the store has none yet.
func (s *Store) Hydrate(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	items, err := s.snapshots.LoadItems(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	var applied bool
	s.mutate(ActionItemsHydrated, "", func(st *State) Action {
		if len(st.Items) == 0 {
			st.Items = items
			applied = true
		}
		return ""
	}, nil)
	if applied {
		s.logger.Info("restored grocery list from snapshot", "count", len(items))
	}
	return nil
}

// UserMessage is the text a view may show for err. Anything that is not a
// normalized API error gets the generic message.
func UserMessage(err error) string {
	var apiErr *groceryapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return groceryapi.DefaultMessage
}
