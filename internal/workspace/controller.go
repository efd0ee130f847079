package workspace

import (
	"context"
	"log/slog"
	"sync"

	"github.com/magpsaad/partner-calculator/internal/calculator"
	"github.com/magpsaad/partner-calculator/internal/models"
)

// Status is the controller's sync state.
type Status int

const (
	// StatusDisconnected is the state before the initial fetch succeeds.
	StatusDisconnected Status = iota
	// StatusSynced means the mirror matches the last confirmed remote state.
	StatusSynced
	// StatusSaving means a save is in flight; further saves are dropped.
	StatusSaving
	// StatusSaveFailed means the last save failed; local state is retained
	// and will be carried forward by the next successful save.
	StatusSaveFailed
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusSynced:
		return "synced"
	case StatusSaving:
		return "saving"
	case StatusSaveFailed:
		return "save-failed"
	}
	return "unknown"
}

// Controller owns the in-memory workspace mirror. All mutation entry points
// go through it; the calculator only ever reads. Methods are safe for
// concurrent use, which matters because the push subscription fires on its
// own goroutine.
type Controller struct {
	store       Store
	workspaceID string
	logger      *slog.Logger
	ids         *models.IDSource

	mu          sync.Mutex
	state       *models.Workspace
	status      Status
	saving      bool
	unsubscribe func()
	onSyncError func(error)
}

// New creates a controller for the given workspace. The mirror starts at
// the all-empty default until Load succeeds.
func New(store Store, workspaceID string, logger *slog.Logger) *Controller {
	return &Controller{
		store:       store,
		workspaceID: workspaceID,
		logger:      logger,
		ids:         models.NewIDSource(),
		state:       models.NewWorkspace(),
		status:      StatusDisconnected,
	}
}

// OnSyncError registers the user-visible surface for fetch/save failures
// (the UI shows a transient notification). Must be called before Load.
func (c *Controller) OnSyncError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSyncError = fn
}

// Load performs the initial fetch. On failure the mirror stays at the
// all-empty default and the error is surfaced; the controller remains
// usable offline-blind until a later sync succeeds.
func (c *Controller) Load(ctx context.Context) error {
	state, err := c.store.GetDocument(ctx, c.workspaceID)
	if err != nil {
		serr := &SyncError{Op: "load", Err: err}
		c.logger.Error("Initial fetch failed", "workspace_id", c.workspaceID, "error", err)
		c.surface(serr)
		return serr
	}

	c.mu.Lock()
	c.applySnapshotLocked(state)
	c.mu.Unlock()

	c.logger.Info("Workspace loaded", "workspace_id", c.workspaceID, "projects", len(state.Projects))
	return nil
}

// Start opens the push subscription. Each confirmed remote write replaces
// the mirror. Close releases the subscription; holding it past teardown
// leaks the channel.
func (c *Controller) Start(ctx context.Context) error {
	unsub, err := c.store.Subscribe(ctx, c.workspaceID, c.handlePush)
	if err != nil {
		serr := &SyncError{Op: "load", Err: err}
		c.surface(serr)
		return serr
	}
	c.mu.Lock()
	c.unsubscribe = unsub
	c.mu.Unlock()
	return nil
}

// Close releases the push subscription. Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (c *Controller) handlePush(snapshot *models.Workspace) {
	c.mu.Lock()
	c.applySnapshotLocked(snapshot)
	c.mu.Unlock()
	c.logger.Debug("Remote snapshot applied", "workspace_id", c.workspaceID)
}

// applySnapshotLocked replaces the mirror with the snapshot, last write
// wins, including the remotely-selected project. A selection pointing at a
// project the snapshot no longer contains is cleared.
func (c *Controller) applySnapshotLocked(snapshot *models.Workspace) {
	c.state = snapshot.Clone()
	if c.state.Projects == nil {
		c.state.Projects = []*models.Project{}
	}
	if c.state.Settings == (models.Settings{}) {
		c.state.Settings = models.DefaultSettings()
	}
	if c.state.CurrentProjectID != 0 && c.state.Project(c.state.CurrentProjectID) == nil {
		c.state.CurrentProjectID = 0
	}
	if !c.saving {
		c.status = StatusSynced
	}
}

// save pushes the current state. A call while a save is in flight is
// dropped, not queued: every mutation method re-invokes save, so an
// intermediate state skipped here reaches the store on the next call. On
// failure the local mutation is retained and the error surfaced.
func (c *Controller) save(ctx context.Context) error {
	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return nil
	}
	c.saving = true
	c.status = StatusSaving
	snapshot := c.state.Clone()
	c.mu.Unlock()

	err := c.store.SetDocument(ctx, c.workspaceID, snapshot)

	c.mu.Lock()
	c.saving = false
	if err != nil {
		c.status = StatusSaveFailed
	} else {
		c.status = StatusSynced
	}
	c.mu.Unlock()

	if err != nil {
		serr := &SyncError{Op: "save", Err: err}
		c.logger.Error("Save failed, local state retained", "workspace_id", c.workspaceID, "error", err)
		c.surface(serr)
		return serr
	}
	return nil
}

func (c *Controller) surface(err error) {
	c.mu.Lock()
	fn := c.onSyncError
	c.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// Status returns the current sync state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// State returns a deep copy of the mirror.
func (c *Controller) State() *models.Workspace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Settings returns the current partner-name settings.
func (c *Controller) Settings() models.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Settings
}

// Balances computes the shared-cost view for one project.
func (c *Controller) Balances(projectID int64) (calculator.Balances, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.state.Project(projectID)
	if p == nil {
		return calculator.Balances{}, models.ErrNotFound
	}
	return calculator.ComputeBalances(p.Transactions, c.state.Settings), nil
}

// NetFlow computes the cash-movement view for one project.
func (c *Controller) NetFlow(projectID int64, includeSettlements bool) (calculator.NetFlows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.state.Project(projectID)
	if p == nil {
		return calculator.NetFlows{}, models.ErrNotFound
	}
	return calculator.NetFlow(p.Transactions, c.state.Settings, includeSettlements), nil
}

// SettlementNeeded returns the engine's recommendation for one project.
func (c *Controller) SettlementNeeded(projectID int64) (calculator.Settlement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.state.Project(projectID)
	if p == nil {
		return calculator.Settlement{}, models.ErrNotFound
	}
	return calculator.SettlementNeeded(p.Transactions, c.state.Settings), nil
}

// Totals returns the all-projects expense/revenue summary.
func (c *Controller) Totals() calculator.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return calculator.AllProjectsTotals(c.state.Projects)
}
