package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// The services only use *sql.DB for transaction demarcation; the stores
// behind them are in-memory fakes here. memDriver satisfies BeginTx with
// no-op transactions so the commit/rollback paths run for real.
type memDriver struct{}

func (memDriver) Open(string) (driver.Conn, error) { return memConn{}, nil }

type memConn struct{}

func (memConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (memConn) Close() error                        { return nil }
func (memConn) Begin() (driver.Tx, error)           { return memTx{}, nil }

type memTx struct{}

func (memTx) Commit() error   { return nil }
func (memTx) Rollback() error { return nil }

var registerMemDriver sync.Once

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	registerMemDriver.Do(func() {
		sql.Register("memtx", memDriver{})
	})
	db, err := sql.Open("memtx", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// ---- user store fake ----

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (f *fakeUserStore) put(u *domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *u
	f.users[u.ID] = &c
}

func (f *fakeUserStore) get(id uuid.UUID) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *f.users[id]
	return &c
}

func (f *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	c := *user
	f.users[user.ID] = &c
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeUserStore) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	c := *user
	f.users[user.ID] = &c
	return nil
}

func (f *fakeUserStore) ListActive(_ context.Context) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.User
	for _, u := range f.users {
		if u.IsActive {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (f *fakeUserStore) ListManagers(_ context.Context) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.User
	for _, u := range f.users {
		if u.IsActive && u.Role.IsManager() {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (f *fakeUserStore) WithTx(*sql.Tx) store.UserStore { return f }

// ---- task store fake ----

type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (f *fakeTaskStore) put(t *domain.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *t
	f.tasks[t.ID] = &c
}

func (f *fakeTaskStore) get(id uuid.UUID) *domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *f.tasks[id]
	return &c
}

func (f *fakeTaskStore) Create(_ context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *task
	f.tasks[task.ID] = &c
	return nil
}

func (f *fakeTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeTaskStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeTaskStore) Update(_ context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	c := *task
	f.tasks[task.ID] = &c
	return nil
}

func (f *fakeTaskStore) List(_ context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Task
	for _, t := range f.tasks {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if filter.Type != nil && t.Type != *filter.Type {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTaskStore) ListInQueue(_ context.Context) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Task
	for _, t := range f.tasks {
		if t.Status == domain.TaskStatusInQueue {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeTaskStore) CountInProgress(_ context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, t := range f.tasks {
		if t.Status == domain.TaskStatusInProgress && t.AssigneeID != nil && *t.AssigneeID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeTaskStore) GetFocused(_ context.Context, userID uuid.UUID) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.FocusStartedAt != nil && t.AssigneeID != nil && *t.AssigneeID == userID {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeTaskStore) ListFocusedBefore(_ context.Context, cutoff time.Time) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Task
	for _, t := range f.tasks {
		if t.FocusStartedAt != nil && t.FocusStartedAt.Before(cutoff) {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) ListOverdueCandidates(_ context.Context, now time.Time) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Task
	for _, t := range f.tasks {
		inWork := t.Status == domain.TaskStatusInProgress || t.Status == domain.TaskStatusReview
		if inWork && !t.IsOverdue && t.DueDate != nil && t.DueDate.Before(now) {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) ListQueuedBefore(_ context.Context, cutoff time.Time) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Task
	for _, t := range f.tasks {
		if t.Status == domain.TaskStatusInQueue && t.CreatedAt.Before(cutoff) {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) CountCompletedBetween(_ context.Context, userID uuid.UUID, start, end time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, t := range f.tasks {
		if t.AssigneeID == nil || *t.AssigneeID != userID || t.ValidatedAt == nil {
			continue
		}
		if !t.ValidatedAt.Before(start) && t.ValidatedAt.Before(end) {
			count++
		}
	}
	return count, nil
}

func (f *fakeTaskStore) ListCompletedBetween(_ context.Context, start, end time.Time) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Task
	for _, t := range f.tasks {
		if t.Status != domain.TaskStatusDone || t.ValidatedAt == nil {
			continue
		}
		if !t.ValidatedAt.Before(start) && t.ValidatedAt.Before(end) {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValidatedAt.Before(*out[j].ValidatedAt) })
	return out, nil
}

func (f *fakeTaskStore) WithTx(*sql.Tx) store.TaskStore { return f }

// ---- ledger store fake ----

type fakeLedgerStore struct {
	mu   sync.Mutex
	rows []*domain.QTransaction
}

func newFakeLedgerStore() *fakeLedgerStore { return &fakeLedgerStore{} }

func (f *fakeLedgerStore) Insert(_ context.Context, tx *domain.QTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *tx
	f.rows = append(f.rows, &c)
	return nil
}

func (f *fakeLedgerStore) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]*domain.QTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.QTransaction
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].UserID != userID {
			continue
		}
		c := *f.rows[i]
		out = append(out, &c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLedgerStore) SumByWallet(_ context.Context, userID uuid.UUID, wallet domain.Wallet) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := decimal.Zero
	for _, row := range f.rows {
		if row.UserID == userID && row.Wallet == wallet {
			sum = sum.Add(row.Amount)
		}
	}
	return sum, nil
}

func (f *fakeLedgerStore) WithTx(*sql.Tx) store.LedgerStore { return f }

// userRows returns the user's ledger rows in insertion order.
func (f *fakeLedgerStore) userRows(userID uuid.UUID) []*domain.QTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.QTransaction
	for _, row := range f.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out
}

// ---- notification store fake ----

type fakeNotificationStore struct {
	mu   sync.Mutex
	rows []*domain.Notification
}

func newFakeNotificationStore() *fakeNotificationStore { return &fakeNotificationStore{} }

func (f *fakeNotificationStore) Create(_ context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *n
	f.rows = append(f.rows, &c)
	return nil
}

func (f *fakeNotificationStore) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Notification
	for i := len(f.rows) - 1; i >= 0; i-- {
		n := f.rows[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		c := *n
		out = append(out, &c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotificationStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.rows {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationStore) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.rows {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return store.ErrNotificationNotFound
}

func (f *fakeNotificationStore) MarkAllRead(_ context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.rows {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationStore) ExistsWithLinkSince(_ context.Context, link string, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.rows {
		if n.Link == link && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotificationStore) WithTx(*sql.Tx) store.NotificationStore { return f }

// byType returns the stored notifications of one type, any user.
func (f *fakeNotificationStore) byType(notifType string) []*domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Notification
	for _, n := range f.rows {
		if n.Type == notifType {
			out = append(out, n)
		}
	}
	return out
}

// ---- snapshot store fake ----

type fakeSnapshotStore struct {
	mu   sync.Mutex
	rows []*domain.PeriodSnapshot
}

func newFakeSnapshotStore() *fakeSnapshotStore { return &fakeSnapshotStore{} }

func (f *fakeSnapshotStore) Create(_ context.Context, s *domain.PeriodSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.UserID == s.UserID && row.Period == s.Period {
			return fmt.Errorf("%w: period snapshot", store.ErrDuplicate)
		}
	}
	c := *s
	f.rows = append(f.rows, &c)
	return nil
}

func (f *fakeSnapshotStore) ExistsForPeriod(_ context.Context, period string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.Period == period {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSnapshotStore) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]*domain.PeriodSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PeriodSnapshot
	for _, row := range f.rows {
		if row.UserID == userID {
			c := *row
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSnapshotStore) ListByPeriod(_ context.Context, period string) ([]*domain.PeriodSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PeriodSnapshot
	for _, row := range f.rows {
		if row.Period == period {
			c := *row
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeSnapshotStore) WithTx(*sql.Tx) store.SnapshotStore { return f }

// ---- shop store fake ----

type fakeShopStore struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*domain.ShopItem
	purchases map[uuid.UUID]*domain.Purchase
}

func newFakeShopStore() *fakeShopStore {
	return &fakeShopStore{
		items:     make(map[uuid.UUID]*domain.ShopItem),
		purchases: make(map[uuid.UUID]*domain.Purchase),
	}
}

func (f *fakeShopStore) putItem(item *domain.ShopItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *item
	f.items[item.ID] = &c
}

func (f *fakeShopStore) GetItem(_ context.Context, id uuid.UUID) (*domain.ShopItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, store.ErrShopItemNotFound
	}
	c := *item
	return &c, nil
}

func (f *fakeShopStore) ListActiveItems(_ context.Context) ([]*domain.ShopItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ShopItem
	for _, item := range f.items {
		if item.IsActive {
			c := *item
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CostQ.LessThan(out[j].CostQ) })
	return out, nil
}

func (f *fakeShopStore) CreatePurchase(_ context.Context, p *domain.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *p
	f.purchases[p.ID] = &c
	return nil
}

func (f *fakeShopStore) GetPurchase(_ context.Context, id uuid.UUID) (*domain.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purchases[id]
	if !ok {
		return nil, store.ErrPurchaseNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeShopStore) UpdatePurchase(_ context.Context, p *domain.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.purchases[p.ID]; !ok {
		return store.ErrPurchaseNotFound
	}
	c := *p
	f.purchases[p.ID] = &c
	return nil
}

func (f *fakeShopStore) ListPurchasesByUser(_ context.Context, userID uuid.UUID) ([]*domain.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Purchase
	for _, p := range f.purchases {
		if p.UserID == userID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeShopStore) CountPurchasesSince(_ context.Context, userID, itemID uuid.UUID, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, p := range f.purchases {
		if p.UserID == userID && p.ShopItemID == itemID && !p.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeShopStore) WithTx(*sql.Tx) store.ShopStore { return f }

// ---- catalog store fake ----

type fakeCatalogStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.CatalogItem
}

func newFakeCatalogStore() *fakeCatalogStore {
	return &fakeCatalogStore{items: make(map[uuid.UUID]*domain.CatalogItem)}
}

func (f *fakeCatalogStore) Create(_ context.Context, item *domain.CatalogItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *item
	f.items[item.ID] = &c
	return nil
}

func (f *fakeCatalogStore) GetByID(_ context.Context, id uuid.UUID) (*domain.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, store.ErrCatalogItemNotFound
	}
	c := *item
	return &c, nil
}

func (f *fakeCatalogStore) ListActive(_ context.Context) ([]*domain.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.CatalogItem
	for _, item := range f.items {
		if item.IsActive {
			c := *item
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (f *fakeCatalogStore) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.CatalogItem
	for _, id := range ids {
		if item, ok := f.items[id]; ok && item.IsActive {
			c := *item
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeCatalogStore) Update(_ context.Context, item *domain.CatalogItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[item.ID]; !ok {
		return store.ErrCatalogItemNotFound
	}
	c := *item
	f.items[item.ID] = &c
	return nil
}

func (f *fakeCatalogStore) WithTx(*sql.Tx) store.CatalogStore { return f }

// ---- correction store fake ----

type fakeCorrectionStore struct {
	mu   sync.Mutex
	rows []*domain.TimeCorrection
}

func newFakeCorrectionStore() *fakeCorrectionStore { return &fakeCorrectionStore{} }

func (f *fakeCorrectionStore) Create(_ context.Context, c *domain.TimeCorrection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeCorrectionStore) ListByTask(_ context.Context, taskID uuid.UUID) ([]*domain.TimeCorrection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.TimeCorrection
	for _, row := range f.rows {
		if row.TaskID == taskID {
			c := *row
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeCorrectionStore) WithTx(*sql.Tx) store.CorrectionStore { return f }

// ---- entity builders ----

func testUser(t *testing.T, users *fakeUserStore, role domain.Role, league domain.League, target int) *domain.User {
	t.Helper()
	u, err := domain.NewUser(
		"User "+uuid.NewString()[:8], uuid.NewString()[:8]+"@example.com",
		role, league, target, 2,
	)
	require.NoError(t, err)
	users.put(u)
	return u
}

func testQueuedTask(t *testing.T, tasks *fakeTaskStore, estimatorID uuid.UUID, q string, minLeague domain.League, priority domain.TaskPriority, createdAt time.Time) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(
		"Task "+uuid.NewString()[:8], "", domain.TaskTypeETL, domain.ComplexityM,
		decimal.RequireFromString(q), priority, domain.TaskStatusInQueue,
		minLeague, estimatorID,
	)
	require.NoError(t, err)
	task.CreatedAt = createdAt
	task.UpdatedAt = createdAt
	tasks.put(task)
	return task
}

func actorFor(u *domain.User) Actor {
	return Actor{ID: u.ID, Role: u.Role, League: u.League}
}
