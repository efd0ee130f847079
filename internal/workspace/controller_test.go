package workspace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/magpsaad/partner-calculator/internal/calculator"
	"github.com/magpsaad/partner-calculator/internal/models"
)

// fakeStore is an in-memory Store with switchable failure modes and an
// optional gate that holds SetDocument open to exercise the save guard.
type fakeStore struct {
	mu       sync.Mutex
	doc      *models.Workspace
	getErr   error
	setErr   error
	setCalls int
	gate     chan struct{}
	handlers []func(*models.Workspace)
}

func newFakeStore() *fakeStore {
	return &fakeStore{doc: models.NewWorkspace()}
}

func (s *fakeStore) GetDocument(ctx context.Context, workspaceID string) (*models.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.doc == nil {
		return nil, models.ErrNotFound
	}
	return s.doc.Clone(), nil
}

func (s *fakeStore) SetDocument(ctx context.Context, workspaceID string, state *models.Workspace) error {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	if s.setErr != nil {
		return s.setErr
	}
	s.doc = state.Clone()
	return nil
}

func (s *fakeStore) Subscribe(ctx context.Context, workspaceID string, onChange func(*models.Workspace)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, onChange)
	return func() {}, nil
}

func (s *fakeStore) push(state *models.Workspace) {
	s.mu.Lock()
	handlers := append([]func(*models.Workspace){}, s.handlers...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(state.Clone())
	}
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCalls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T, store Store) *Controller {
	t.Helper()
	c := New(store, "ws_test", testLogger())
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return c
}

func TestCreateProjectSelectsAndAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newFakeStore())

	first, err := c.CreateProject(ctx, "Renovation")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	second, err := c.CreateProject(ctx, "Garden")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	if second.ID <= first.ID {
		t.Errorf("project ids not strictly increasing: %d then %d", first.ID, second.ID)
	}
	if got := c.CurrentProject(); got == nil || got.ID != second.ID {
		t.Errorf("expected newest project selected, got %+v", got)
	}
	if _, err := c.CreateProject(ctx, "   "); !models.IsValidation(err) {
		t.Errorf("blank name: got %v, want validation error", err)
	}
}

func TestRecordTransactionValidation(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newFakeStore())
	p, _ := c.CreateProject(ctx, "Renovation")

	tests := []struct {
		name  string
		draft Draft
	}{
		{"negative amount", Draft{Type: models.TypeExpense, Amount: -1, Date: "2024-03-01", Description: "x", PaidBy: "Partner A"}},
		{"NaN amount", Draft{Type: models.TypeExpense, Amount: math.NaN(), Date: "2024-03-01", Description: "x", PaidBy: "Partner A"}},
		{"bad date", Draft{Type: models.TypeExpense, Amount: 1, Date: "03/01/2024", Description: "x", PaidBy: "Partner A"}},
		{"impossible date", Draft{Type: models.TypeExpense, Amount: 1, Date: "2024-02-30", Description: "x", PaidBy: "Partner A"}},
		{"missing description", Draft{Type: models.TypeRevenue, Amount: 1, Date: "2024-03-01", ReceivedBy: "Partner A"}},
		{"unknown partner", Draft{Type: models.TypeExpense, Amount: 1, Date: "2024-03-01", Description: "x", PaidBy: "Mallory"}},
		{"unknown type", Draft{Type: "transfer", Amount: 1, Date: "2024-03-01", Description: "x", PaidBy: "Partner A"}},
		{"settlement with supplied receiver", Draft{Type: models.TypeSettlement, Amount: 1, Date: "2024-03-01", PaidBy: "Partner A", ReceivedBy: "Partner B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.RecordTransaction(ctx, p.ID, tt.draft); !models.IsValidation(err) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}

	// Rejected drafts must leave the ledger untouched.
	if got := c.CurrentProject(); len(got.Transactions) != 0 {
		t.Errorf("ledger has %d transactions after rejected drafts, want 0", len(got.Transactions))
	}
}

func TestRecordSettlementDerivesReceiver(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newFakeStore())
	p, _ := c.CreateProject(ctx, "Renovation")

	txn, err := c.RecordTransaction(ctx, p.ID, Draft{
		Type:   models.TypeSettlement,
		Amount: 25,
		Date:   "2024-03-01",
		PaidBy: "Partner B",
	})
	if err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}
	if txn.ReceivedBy != "Partner A" {
		t.Errorf("receiver = %q, want the other partner", txn.ReceivedBy)
	}
}

func TestEditTransactionPreservesIDAndBalances(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := newTestController(t, store)
	p, _ := c.CreateProject(ctx, "Renovation")

	draft := Draft{Type: models.TypeExpense, Amount: 100, Date: "2024-03-01", Description: "tiles", PaidBy: "Partner A"}
	txn, err := c.RecordTransaction(ctx, p.ID, draft)
	if err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}
	before, _ := c.Balances(p.ID)

	edited, err := c.EditTransaction(ctx, p.ID, txn.ID, draft)
	if err != nil {
		t.Fatalf("EditTransaction failed: %v", err)
	}
	if edited.ID != txn.ID {
		t.Errorf("edit changed id from %d to %d", txn.ID, edited.ID)
	}

	after, _ := c.Balances(p.ID)
	if before != after {
		t.Errorf("editing to identical values changed balances: %+v vs %+v", before, after)
	}

	if _, err := c.EditTransaction(ctx, p.ID, 999, draft); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("edit of absent id: got %v, want ErrNotFound", err)
	}
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newFakeStore())
	p, _ := c.CreateProject(ctx, "Renovation")
	txn, _ := c.RecordTransaction(ctx, p.ID, Draft{Type: models.TypeExpense, Amount: 10, Date: "2024-03-01", Description: "x", PaidBy: "Partner A"})

	if err := c.DeleteTransaction(ctx, p.ID, txn.ID); err != nil {
		t.Fatalf("DeleteTransaction failed: %v", err)
	}
	if got := c.CurrentProject(); len(got.Transactions) != 0 {
		t.Errorf("transaction still present after delete")
	}
	if err := c.DeleteTransaction(ctx, p.ID, txn.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestClearTransactions(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := newTestController(t, store)
	p, _ := c.CreateProject(ctx, "Renovation")
	c.RecordTransaction(ctx, p.ID, Draft{Type: models.TypeExpense, Amount: 10, Date: "2024-03-01", Description: "x", PaidBy: "Partner A"})
	c.RecordTransaction(ctx, p.ID, Draft{Type: models.TypeRevenue, Amount: 20, Date: "2024-03-02", Description: "y", ReceivedBy: "Partner B"})

	if err := c.ClearTransactions(ctx, p.ID); err != nil {
		t.Fatalf("ClearTransactions failed: %v", err)
	}

	// The project survives with an empty ledger, and the empty ledger is
	// what gets persisted.
	got := c.CurrentProject()
	if got == nil || got.ID != p.ID {
		t.Fatalf("project gone after clear: %+v", got)
	}
	if len(got.Transactions) != 0 {
		t.Errorf("ledger has %d transactions after clear, want 0", len(got.Transactions))
	}
	saved, err := store.GetDocument(ctx, "ws_test")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got := len(saved.Project(p.ID).Transactions); got != 0 {
		t.Errorf("persisted ledger has %d transactions after clear, want 0", got)
	}

	if err := c.ClearTransactions(ctx, 999); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("clear of absent project: got %v, want ErrNotFound", err)
	}
}

func TestRenameProject(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := newTestController(t, store)
	p, _ := c.CreateProject(ctx, "Renovation")

	if err := c.RenameProject(ctx, p.ID, "Kitchen"); err != nil {
		t.Fatalf("RenameProject failed: %v", err)
	}
	if got := c.CurrentProject(); got.Name != "Kitchen" {
		t.Errorf("name = %q, want Kitchen", got.Name)
	}
	saved, _ := store.GetDocument(ctx, "ws_test")
	if got := saved.Project(p.ID).Name; got != "Kitchen" {
		t.Errorf("persisted name = %q, want Kitchen", got)
	}

	if err := c.RenameProject(ctx, p.ID, "   "); !models.IsValidation(err) {
		t.Errorf("blank name: got %v, want validation error", err)
	}
	if got := c.CurrentProject(); got.Name != "Kitchen" {
		t.Errorf("rejected rename changed name to %q", got.Name)
	}
	if err := c.RenameProject(ctx, 999, "Attic"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("rename of absent project: got %v, want ErrNotFound", err)
	}
}

func TestDeleteProjectClearsSelection(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newFakeStore())
	p, _ := c.CreateProject(ctx, "Renovation")
	c.RecordTransaction(ctx, p.ID, Draft{Type: models.TypeExpense, Amount: 10, Date: "2024-03-01", Description: "x", PaidBy: "Partner A"})

	if err := c.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if got := c.CurrentProject(); got != nil {
		t.Errorf("expected no project selected, got %+v", got)
	}
	if got := c.Projects(); len(got) != 0 {
		t.Errorf("project (and its transactions) should be gone, got %d", len(got))
	}
	if err := c.DeleteProject(ctx, p.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestRenamePartnersRewritesHistory(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newFakeStore())
	p, _ := c.CreateProject(ctx, "Renovation")
	c.RecordTransaction(ctx, p.ID, Draft{Type: models.TypeExpense, Amount: 100, Date: "2024-03-01", Description: "tiles", PaidBy: "Partner A"})
	c.RecordTransaction(ctx, p.ID, Draft{Type: models.TypeRevenue, Amount: 40, Date: "2024-03-02", Description: "scrap", ReceivedBy: "Partner B"})
	c.RecordTransaction(ctx, p.ID, Draft{Type: models.TypeSettlement, Amount: 30, Date: "2024-03-03", PaidBy: "Partner B"})

	before, _ := c.Balances(p.ID)

	if err := c.UpdatePartnerNames(ctx, "Alice", "Bob"); err != nil {
		t.Fatalf("UpdatePartnerNames failed: %v", err)
	}

	for _, txn := range c.CurrentProject().Transactions {
		if txn.PaidBy == "Partner A" || txn.PaidBy == "Partner B" {
			t.Errorf("stale paidBy %q on %d", txn.PaidBy, txn.ID)
		}
		if txn.ReceivedBy == "Partner A" || txn.ReceivedBy == "Partner B" {
			t.Errorf("stale receivedBy %q on %d", txn.ReceivedBy, txn.ID)
		}
	}

	after, _ := c.Balances(p.ID)
	if before != after {
		t.Errorf("rename changed balance totals: %+v vs %+v", before, after)
	}

	if err := c.UpdatePartnerNames(ctx, "Same", "Same"); !models.IsValidation(err) {
		t.Errorf("identical names: got %v, want validation error", err)
	}
}

func TestSettleUp(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newFakeStore())
	p, _ := c.CreateProject(ctx, "Renovation")
	c.RecordTransaction(ctx, p.ID, Draft{Type: models.TypeExpense, Amount: 100, Date: "2024-03-01", Description: "tiles", PaidBy: "Partner A"})

	txn, err := c.SettleUp(ctx, p.ID, "2024-03-05")
	if err != nil {
		t.Fatalf("SettleUp failed: %v", err)
	}
	if txn.PaidBy != "Partner B" || txn.ReceivedBy != "Partner A" {
		t.Errorf("settlement direction %s -> %s, want Partner B -> Partner A", txn.PaidBy, txn.ReceivedBy)
	}
	if math.Abs(txn.Amount-50) > 1e-9 {
		t.Errorf("settlement amount = %v, want 50", txn.Amount)
	}

	rec, _ := c.SettlementNeeded(p.ID)
	if !rec.IsSettled {
		t.Errorf("project not settled after SettleUp: %+v", rec)
	}
	if _, err := c.SettleUp(ctx, p.ID, "2024-03-06"); !errors.Is(err, ErrSettled) {
		t.Errorf("second SettleUp: got %v, want ErrSettled", err)
	}
}

func TestSettleUpEqualizesPushedLedger(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := newTestController(t, store)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Close()
	p, _ := c.CreateProject(ctx, "Renovation")
	c.RecordTransaction(ctx, p.ID, Draft{Type: models.TypeExpense, Amount: 100, Date: "2024-03-01", Description: "tiles", PaidBy: "Partner A"})

	// Another client's snapshot replaces the ledger before the settlement
	// is computed; the amount must equalize the ledger it lands on, not
	// the one that was current earlier.
	snapshot := c.State()
	snapshot.Project(p.ID).Transactions = []models.Transaction{
		{ID: 1, Type: models.TypeExpense, Amount: 300, Date: "2024-03-02", Description: "plumbing", PaidBy: "Partner B"},
	}
	store.push(snapshot)

	txn, err := c.SettleUp(ctx, p.ID, "2024-03-05")
	if err != nil {
		t.Fatalf("SettleUp failed: %v", err)
	}
	if txn.PaidBy != "Partner A" || txn.ReceivedBy != "Partner B" {
		t.Errorf("settlement direction %s -> %s, want Partner A -> Partner B", txn.PaidBy, txn.ReceivedBy)
	}
	if math.Abs(txn.Amount-150) > 1e-9 {
		t.Errorf("settlement amount = %v, want 150 against the pushed ledger", txn.Amount)
	}
	rec, _ := c.SettlementNeeded(p.ID)
	if !rec.IsSettled {
		t.Errorf("project not settled after SettleUp: %+v", rec)
	}

	// The date still goes through draft validation; a rejected settlement
	// leaves the ledger untouched.
	c.RecordTransaction(ctx, p.ID, Draft{Type: models.TypeExpense, Amount: 40, Date: "2024-03-06", Description: "paint", PaidBy: "Partner A"})
	count := len(c.CurrentProject().Transactions)
	if _, err := c.SettleUp(ctx, p.ID, "not-a-date"); !models.IsValidation(err) {
		t.Errorf("bad date: got %v, want validation error", err)
	}
	if got := len(c.CurrentProject().Transactions); got != count {
		t.Errorf("rejected SettleUp changed ledger size from %d to %d", count, got)
	}
}

func TestSaveDroppedWhileInFlight(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := newTestController(t, store)
	p, _ := c.CreateProject(ctx, "Renovation")
	base := store.calls()

	gate := make(chan struct{})
	store.mu.Lock()
	store.gate = gate
	store.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.RecordTransaction(ctx, p.ID, Draft{Type: models.TypeExpense, Amount: 1, Date: "2024-03-01", Description: "a", PaidBy: "Partner A"})
	}()

	// Wait for the first save to enter the store, then mutate again while
	// it is held open: the second save must be dropped, not queued.
	for c.Status() != StatusSaving {
	}
	if _, err := c.RecordTransaction(ctx, p.ID, Draft{Type: models.TypeExpense, Amount: 2, Date: "2024-03-01", Description: "b", PaidBy: "Partner A"}); err != nil {
		t.Fatalf("second RecordTransaction failed: %v", err)
	}

	store.mu.Lock()
	store.gate = nil
	store.mu.Unlock()
	close(gate)
	<-done

	if got := store.calls() - base; got != 1 {
		t.Errorf("store received %d saves, want 1 (second dropped)", got)
	}

	// Both mutations are in the mirror; a later save carries them forward.
	if err := c.SelectProject(ctx, p.ID); err != nil {
		t.Fatalf("SelectProject failed: %v", err)
	}
	saved, err := store.GetDocument(ctx, "ws_test")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got := len(saved.Project(p.ID).Transactions); got != 2 {
		t.Errorf("persisted ledger has %d transactions, want 2", got)
	}
}

func TestSaveFailureRetainsLocalState(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := newTestController(t, store)
	p, _ := c.CreateProject(ctx, "Renovation")

	var surfaced []error
	c.OnSyncError(func(err error) { surfaced = append(surfaced, err) })

	store.mu.Lock()
	store.setErr = errors.New("store unavailable")
	store.mu.Unlock()

	_, err := c.RecordTransaction(ctx, p.ID, Draft{Type: models.TypeExpense, Amount: 10, Date: "2024-03-01", Description: "x", PaidBy: "Partner A"})
	var serr *SyncError
	if !errors.As(err, &serr) || serr.Op != "save" {
		t.Fatalf("got %v, want save SyncError", err)
	}
	if len(surfaced) != 1 {
		t.Errorf("surfaced %d errors, want 1", len(surfaced))
	}
	if c.Status() != StatusSaveFailed {
		t.Errorf("status = %v, want save-failed", c.Status())
	}
	// The mutation is retained locally.
	if got := len(c.CurrentProject().Transactions); got != 1 {
		t.Fatalf("local ledger has %d transactions, want 1", got)
	}

	// Next successful save carries it forward.
	store.mu.Lock()
	store.setErr = nil
	store.mu.Unlock()
	if err := c.SelectProject(ctx, p.ID); err != nil {
		t.Fatalf("SelectProject failed: %v", err)
	}
	saved, _ := store.GetDocument(ctx, "ws_test")
	if got := len(saved.Project(p.ID).Transactions); got != 1 {
		t.Errorf("persisted ledger has %d transactions, want 1", got)
	}
	if c.Status() != StatusSynced {
		t.Errorf("status = %v, want synced", c.Status())
	}
}

func TestLoadFailureLeavesEmptyDefault(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("store unavailable")

	var surfaced error
	c := New(store, "ws_test", testLogger())
	c.OnSyncError(func(err error) { surfaced = err })

	err := c.Load(context.Background())
	var serr *SyncError
	if !errors.As(err, &serr) || serr.Op != "load" {
		t.Fatalf("got %v, want load SyncError", err)
	}
	if surfaced == nil {
		t.Error("load failure was not surfaced")
	}
	if c.Status() != StatusDisconnected {
		t.Errorf("status = %v, want disconnected", c.Status())
	}
	state := c.State()
	if len(state.Projects) != 0 || state.CurrentProjectID != 0 {
		t.Errorf("state not at empty default: %+v", state)
	}
	if state.Settings != models.DefaultSettings() {
		t.Errorf("settings = %+v, want defaults", state.Settings)
	}
}

func TestRemotePushReplacesMirror(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := newTestController(t, store)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Close()

	local, _ := c.CreateProject(ctx, "Mine")

	// Another client's snapshot: different project, different selection.
	remote := models.NewWorkspace()
	remote.Projects = []*models.Project{{
		ID:          local.ID + 100,
		Name:        "Theirs",
		CreatedDate: "2024-03-01",
		Transactions: []models.Transaction{
			{ID: 1, Type: models.TypeExpense, Amount: 5, Date: "2024-03-01", Description: "y", PaidBy: "Partner A"},
		},
	}}
	remote.CurrentProjectID = local.ID + 100
	store.push(remote)

	got := c.State()
	if len(got.Projects) != 1 || got.Projects[0].Name != "Theirs" {
		t.Fatalf("mirror not replaced by snapshot: %+v", got.Projects)
	}
	if got.CurrentProjectID != local.ID+100 {
		t.Errorf("selection = %d, want remote selection %d", got.CurrentProjectID, local.ID+100)
	}

	// A snapshot that no longer contains the selected project clears the
	// selection.
	orphan := models.NewWorkspace()
	store.push(orphan)
	if got := c.CurrentProject(); got != nil {
		t.Errorf("expected no project selected after orphaning snapshot, got %+v", got)
	}
}

func TestTotalsAcrossProjects(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newFakeStore())
	a, _ := c.CreateProject(ctx, "A")
	b, _ := c.CreateProject(ctx, "B")
	c.RecordTransaction(ctx, a.ID, Draft{Type: models.TypeExpense, Amount: 100, Date: "2024-03-01", Description: "x", PaidBy: "Partner A"})
	c.RecordTransaction(ctx, b.ID, Draft{Type: models.TypeRevenue, Amount: 250, Date: "2024-03-01", Description: "y", ReceivedBy: "Partner B"})
	c.RecordTransaction(ctx, b.ID, Draft{Type: models.TypeSettlement, Amount: 75, Date: "2024-03-01", PaidBy: "Partner B"})

	want := calculator.Totals{TotalExpenses: 100, TotalRevenue: 250, NetProfit: 150}
	if got := c.Totals(); got != want {
		t.Errorf("totals = %+v, want %+v", got, want)
	}
}
