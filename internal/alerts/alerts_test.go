package alerts_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	stdlog "log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/alerts"
	"stockroom/internal/domain"
	"stockroom/internal/metrics"
	"stockroom/internal/notify"
	"stockroom/internal/repos"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recPusher struct {
	mu  sync.Mutex
	got []*domain.Notification
}

func (p *recPusher) Push(_ context.Context, n *domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, n)
	return nil
}

func (p *recPusher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

type fixture struct {
	inv    *repos.InventoryRepo
	notes  *repos.NotificationRepo
	clock  *fakeClock
	pusher *recPusher
	sweep  *alerts.Sweeper
	alert  *alerts.Alerter
	owner  *domain.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	owner := &domain.User{Username: "owner", Email: "owner@example.com", Hash: "x"}
	require.NoError(t, repos.NewUserRepo(db).Create(owner))

	f := &fixture{
		inv:    repos.NewInventoryRepo(db),
		clock:  &fakeClock{now: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
		pusher: &recPusher{},
		owner:  owner,
	}
	m := metrics.New(prometheus.NewRegistry())
	f.notes = repos.NewNotificationRepo(db).WithClock(f.clock.Now)
	d := notify.NewDispatcher(f.notes, f.pusher, m)
	f.alert = alerts.NewAlerter(f.notes, d, 6*time.Hour, m, alerts.WithClock(f.clock.Now))
	f.sweep = alerts.NewSweeper(f.inv, f.alert, 6*time.Hour, m)
	return f
}

func TestSweep_WindowDedup(t *testing.T) {
	f := setup(t)
	bolt := &domain.InventoryItem{Name: "Bolt", Quantity: 5, MinThreshold: 10, Unit: "pieces", CreatedBy: f.owner.ID}
	require.NoError(t, f.inv.Create(bolt))
	require.NoError(t, f.inv.Create(&domain.InventoryItem{Name: "Nut", Quantity: 50, MinThreshold: 10, Unit: "pieces", CreatedBy: f.owner.ID}))

	res, err := f.sweep.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 1, res.Created)
	require.Equal(t, 1, f.pusher.Len())
	assert.Equal(t, "Bolt is running low (5 units remaining)", f.pusher.got[0].Message)
	assert.Equal(t, f.owner.ID, f.pusher.got[0].UserID)

	f.clock.Advance(time.Hour)
	res, err = f.sweep.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Suppressed)

	// the write path shares the window
	created, err := f.alert.Evaluate(context.Background(), *bolt)
	require.NoError(t, err)
	assert.False(t, created)

	f.clock.Advance(6 * time.Hour)
	res, err = f.sweep.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created, "next window alerts again")

	list, err := f.notes.List(f.owner.ID, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, f.pusher.Len())
}

func TestSweep_WindowSurvivesNotificationDelete(t *testing.T) {
	f := setup(t)
	bolt := &domain.InventoryItem{Name: "Bolt", Quantity: 3, MinThreshold: 5, Unit: "pieces", CreatedBy: f.owner.ID}
	require.NoError(t, f.inv.Create(bolt))

	res, err := f.sweep.RunNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)

	list, err := f.notes.List(f.owner.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, f.notes.Delete(list[0].ID, f.owner.ID))

	f.clock.Advance(time.Minute)
	res, err = f.sweep.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Suppressed)
	assert.Equal(t, 1, f.pusher.Len())

	created, err := f.alert.Evaluate(context.Background(), *bolt)
	require.NoError(t, err)
	assert.False(t, created, "the write path sees the same window")

	f.clock.Advance(6 * time.Hour)
	res, err = f.sweep.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
}

func TestSweep_DoesNotMutateInventory(t *testing.T) {
	f := setup(t)
	it := &domain.InventoryItem{Name: "Tape", Quantity: 0, MinThreshold: 3, Unit: "boxes", CreatedBy: f.owner.ID}
	require.NoError(t, f.inv.Create(it))
	before, err := f.inv.Get(it.ID)
	require.NoError(t, err)

	_, err = f.sweep.RunNow(context.Background())
	require.NoError(t, err)

	after, err := f.inv.Get(it.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Quantity, after.Quantity)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestEvaluate_NotLowStock(t *testing.T) {
	f := setup(t)
	created, err := f.alert.Evaluate(context.Background(), domain.InventoryItem{ID: 1, Quantity: 11, MinThreshold: 10, CreatedBy: f.owner.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 0, f.pusher.Len())
}

type listScanner struct {
	items []domain.InventoryItem
	err   error
	calls int
	mu    sync.Mutex
}

func (s *listScanner) LowStockOwned() ([]domain.InventoryItem, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.items, s.err
}

func (s *listScanner) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// flakyHistory fails lookups for one item id.
type flakyHistory struct{ failID int64 }

func (h flakyHistory) HasRecentAlert(_ domain.NotificationType, itemID, _ int64, _ time.Time) (bool, error) {
	if itemID == h.failID {
		return false, errors.New("lookup timed out")
	}
	return false, nil
}

type countingDispatcher struct {
	mu sync.Mutex
	n  int64
}

func (d *countingDispatcher) Dispatch(_ context.Context, in domain.NewNotification) (*domain.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.n++
	return &domain.Notification{ID: d.n, Type: in.Type, Message: in.Message, UserID: in.UserID}, nil
}

func TestSweep_ItemFailureIsolated(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	d := &countingDispatcher{}
	a := alerts.NewAlerter(flakyHistory{failID: 2}, d, time.Hour, m)
	scan := &listScanner{items: []domain.InventoryItem{
		{ID: 1, Name: "A", Quantity: 1, MinThreshold: 2, CreatedBy: 7},
		{ID: 2, Name: "B", Quantity: 1, MinThreshold: 2, CreatedBy: 7},
		{ID: 3, Name: "C", Quantity: 1, MinThreshold: 2, CreatedBy: 7},
	}}

	res, err := alerts.NewSweeper(scan, a, time.Hour, m).RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Failed)
}

func TestSweep_ScanFailure(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	a := alerts.NewAlerter(flakyHistory{}, &countingDispatcher{}, time.Hour, m)
	_, err := alerts.NewSweeper(&listScanner{err: errors.New("db down")}, a, time.Hour, m).RunNow(context.Background())
	assert.Error(t, err)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	a := alerts.NewAlerter(flakyHistory{}, &countingDispatcher{}, time.Hour, m)
	scan := &listScanner{}
	s := alerts.NewSweeper(scan, a, time.Hour, m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return scan.Calls() == 1 }, time.Second, 5*time.Millisecond, "sweeps once at start")
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

type stubGuard struct {
	ok       bool
	err      error
	released int
}

func (g *stubGuard) Claim(context.Context, int64, int64, time.Duration) (bool, error) {
	return g.ok, g.err
}
func (g *stubGuard) Release(context.Context, int64, int64) { g.released++ }

type failingDispatcher struct{}

func (failingDispatcher) Dispatch(context.Context, domain.NewNotification) (*domain.Notification, error) {
	return nil, errors.New("insert failed")
}

func TestEvaluate_Guard(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	low := domain.InventoryItem{ID: 1, Name: "A", Quantity: 0, MinThreshold: 1, CreatedBy: 2}

	held := &stubGuard{ok: false}
	created, err := alerts.NewAlerter(flakyHistory{}, &countingDispatcher{}, time.Hour, m, alerts.WithGuard(held)).Evaluate(context.Background(), low)
	require.NoError(t, err)
	assert.False(t, created, "another evaluator holds the claim")

	down := &stubGuard{err: errors.New("redis: connection refused")}
	created, err = alerts.NewAlerter(flakyHistory{}, &countingDispatcher{}, time.Hour, m, alerts.WithGuard(down)).Evaluate(context.Background(), low)
	require.NoError(t, err)
	assert.True(t, created, "guard outage falls back to the store check")

	free := &stubGuard{ok: true}
	_, err = alerts.NewAlerter(flakyHistory{}, failingDispatcher{}, time.Hour, m, alerts.WithGuard(free)).Evaluate(context.Background(), low)
	require.Error(t, err)
	assert.Equal(t, 1, free.released, "claim is released when the write fails")
}

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisGuard(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()
	ctx := context.Background()
	g := alerts.NewRedisGuard(client)

	const item, owner = 990001, 990002
	g.Release(ctx, item, owner)

	ok, err := g.Claim(ctx, item, owner, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Claim(ctx, item, owner, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	g.Release(ctx, item, owner)
	ok, err = g.Claim(ctx, item, owner, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	g.Release(ctx, item, owner)
}

func TestRedisGuard_ReleaseFailureLogged(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	defer client.Close()
	g := alerts.NewRedisGuard(client)

	var buf bytes.Buffer
	oldW, oldFlags := stdlog.Writer(), stdlog.Flags()
	stdlog.SetOutput(&buf)
	stdlog.SetFlags(0)
	defer func() {
		stdlog.SetOutput(oldW)
		stdlog.SetFlags(oldFlags)
	}()

	g.Release(context.Background(), 7, 9)

	var e struct {
		Level  string         `json:"level"`
		Action string         `json:"action"`
		Err    string         `json:"err"`
		Fields map[string]any `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &e), buf.String())
	assert.Equal(t, "warn", e.Level)
	assert.Equal(t, "alert.guard_release_failed", e.Action)
	assert.NotEmpty(t, e.Err)
	assert.EqualValues(t, 7, e.Fields["inventory_id"])
	assert.EqualValues(t, 9, e.Fields["user_id"])
}
