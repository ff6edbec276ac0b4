package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/domain"
	"stockroom/internal/metrics"
	"stockroom/internal/notify"
)

type memStore struct {
	mu   sync.Mutex
	next int64
	fail error
}

func (s *memStore) Create(in domain.NewNotification) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	s.next++
	return &domain.Notification{ID: s.next, Type: in.Type, Message: in.Message, UserID: in.UserID, InventoryID: in.InventoryID}, nil
}

type recPusher struct {
	mu   sync.Mutex
	got  []*domain.Notification
	fail error
}

func (p *recPusher) Push(_ context.Context, n *domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, n)
	return p.fail
}

func TestDispatch_PushFailureKeepsRecord(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	p := &recPusher{fail: errors.New("channel down")}
	d := notify.NewDispatcher(&memStore{}, p, m)

	n, err := d.Dispatch(context.Background(), domain.NewNotification{Type: domain.NotificationSystem, Message: "hi", UserID: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n.ID)
	assert.Len(t, p.got, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Pushes.WithLabelValues("failed")))
}

func TestDispatch_StoreFailureSkipsPush(t *testing.T) {
	p := &recPusher{}
	d := notify.NewDispatcher(&memStore{fail: errors.New("db gone")}, p, metrics.New(prometheus.NewRegistry()))

	_, err := d.Dispatch(context.Background(), domain.NewNotification{Type: domain.NotificationSystem, Message: "hi", UserID: 3})
	require.Error(t, err)
	assert.Empty(t, p.got)
}

func TestHTTPPusher(t *testing.T) {
	var gotAuth string
	var gotBody domain.Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, notify.PushPath, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := notify.NewHTTPPusher(srv.URL+"/", time.Second, func(uid int64) (string, error) {
		assert.EqualValues(t, 9, uid)
		return "tok-9", nil
	})
	err := p.Push(context.Background(), &domain.Notification{ID: 4, Type: domain.NotificationLowStock, Message: "Bolt is running low", UserID: 9})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-9", gotAuth)
	assert.EqualValues(t, 4, gotBody.ID)
}

func TestHTTPPusher_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer slow" {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := notify.NewHTTPPusher(srv.URL, time.Second, func(int64) (string, error) { return "t", nil })
	assert.Error(t, p.Push(context.Background(), &domain.Notification{UserID: 1}), "non-2xx is an error")

	slow := notify.NewHTTPPusher(srv.URL, 50*time.Millisecond, func(int64) (string, error) { return "slow", nil })
	assert.Error(t, slow.Push(context.Background(), &domain.Notification{UserID: 1}), "timeout bounds the push")

	bad := notify.NewHTTPPusher(srv.URL, time.Second, func(int64) (string, error) { return "", errors.New("no user") })
	assert.Error(t, bad.Push(context.Background(), &domain.Notification{UserID: 1}))
}
