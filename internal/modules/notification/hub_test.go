package notification

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomclean/internal/domain"
)

// hubServer serves the hub with the actor taken from query parameters.
func hubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		actor := domain.Actor{ID: id, Role: domain.UserRole(r.URL.Query().Get("role"))}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(r.Context(), actor, conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, actor domain.Actor) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?id=" + strconv.FormatInt(actor.ID, 10) + "&role=" + string(actor.Role)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readNotification(t *testing.T, conn *websocket.Conn) domain.Notification {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var n domain.Notification
	require.NoError(t, conn.ReadJSON(&n))
	return n
}

func TestHub_DeliversToRecipientAndAdminPool(t *testing.T) {
	hub := NewHub()
	srv := hubServer(t, hub)

	cust := dial(t, srv, customer)
	adm1 := dial(t, srv, adminA)
	adm2 := dial(t, srv, adminB)
	require.Eventually(t, func() bool { return hub.OnlineCount() == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, hub.IsOnline(customer.ID))

	require.NoError(t, hub.Deliver(context.Background(), domain.Notification{ID: 1, RecipientRole: domain.RoleAdmin, Kind: domain.NotifOrderCreated, Title: "New order"}))
	assert.Equal(t, domain.NotifOrderCreated, readNotification(t, adm1).Kind)
	assert.Equal(t, domain.NotifOrderCreated, readNotification(t, adm2).Kind)

	require.NoError(t, hub.Deliver(context.Background(), domain.Notification{ID: 2, RecipientID: customer.ID, RecipientRole: domain.RoleCustomer, Kind: domain.NotifOrderConfirmed}))
	got := readNotification(t, cust)
	assert.Equal(t, int64(2), got.ID, "the customer never sees pool rows")
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub()
	srv := hubServer(t, hub)

	conn := dial(t, srv, customer)
	require.Eventually(t, func() bool { return hub.IsOnline(customer.ID) }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return !hub.IsOnline(customer.ID) }, 2*time.Second, 10*time.Millisecond)

	assert.NoError(t, hub.Deliver(context.Background(), domain.Notification{RecipientID: customer.ID, RecipientRole: domain.RoleCustomer}))
}

type brokenConn struct {
	closed bool
}

func (b *brokenConn) WriteJSON(interface{}) error { return errors.New("broken pipe") }
func (b *brokenConn) WriteControl(int, []byte, time.Time) error { return nil }
func (b *brokenConn) SetWriteDeadline(time.Time) error { return nil }
func (b *brokenConn) Close() error {
	b.closed = true
	return nil
}

func TestHub_DropsBrokenConnection(t *testing.T) {
	hub := NewHub()
	conn := &brokenConn{}
	hub.register(customer, conn)

	err := hub.Deliver(context.Background(), domain.Notification{RecipientID: customer.ID, RecipientRole: domain.RoleCustomer})
	assert.NoError(t, err)
	assert.True(t, conn.closed)
	assert.False(t, hub.IsOnline(customer.ID))
	assert.Equal(t, "websocket", hub.Name())
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()
	a, b := &brokenConn{}, &brokenConn{}
	hub.register(adminA, a)
	hub.register(adminA, b)
	assert.Equal(t, 2, hub.OnlineCount())

	hub.Close()
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Zero(t, hub.OnlineCount())
}
