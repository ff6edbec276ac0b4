package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/log"
	"stockroom/internal/metrics"
	"stockroom/internal/repos"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Event names. The first seven are sent by the server, the last two by clients.
const (
	EventNotification  = "notification"
	EventLowStock      = "low-stock-alert"
	EventUserOnline    = "user_online"
	EventUserOffline   = "user_offline"
	EventMarkedRead    = "notification_marked_read"
	EventAllMarkedRead = "all_notifications_marked_read"
	EventError         = "error"

	EventJoinItemRoom = "join_inventory_room"
	EventMarkRead     = "mark_notification_read"
)

const (
	errAuthentication = "Authentication error"
	errUserNotFound   = "User not found"

	defaultSendBuffer   = 64
	defaultMessageRate  = 10
	defaultMessageBurst = 20
	handshakeTimeout    = 10 * time.Second
)

// Authenticator resolves a bearer token to an existing user.
type Authenticator interface {
	Authenticate(token string) (*domain.User, error)
}

// ReadMarker flags a notification read on behalf of its recipient.
type ReadMarker interface {
	MarkRead(id, userID int64) error
}

// ItemLookup is used when joining item rooms requires ownership.
type ItemLookup interface {
	Get(id int64) (*domain.InventoryItem, error)
}

type Options struct {
	// AllowedOrigins lists accepted Origin headers; "*" accepts any.
	// Requests without an Origin header (non-browser clients) are accepted.
	AllowedOrigins []string
	// OwnershipCheck restricts item rooms to the item's owner.
	OwnershipCheck bool
	SendBuffer     int
	MessageRate    rate.Limit
	MessageBurst   int
}

// Envelope is the wire shape of every frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type presence struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

type lowStockAlert struct {
	Message     string `json:"message"`
	InventoryID *int64 `json:"inventory_id"`
	Timestamp   string `json:"timestamp"`
}

// Channel authenticates clients, tracks their rooms and pushes events.
type Channel struct {
	reg      *Registry
	auth     Authenticator
	reads    ReadMarker
	items    ItemLookup
	m        *metrics.Metrics
	opts     Options
	upgrader websocket.Upgrader
}

func NewChannel(reg *Registry, auth Authenticator, reads ReadMarker, items ItemLookup, m *metrics.Metrics, opts Options) *Channel {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.MessageRate <= 0 {
		opts.MessageRate = defaultMessageRate
	}
	if opts.MessageBurst <= 0 {
		opts.MessageBurst = defaultMessageBurst
	}
	ch := &Channel{reg: reg, auth: auth, reads: reads, items: items, m: m, opts: opts}
	ch.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: handshakeTimeout,
		CheckOrigin:      ch.checkOrigin,
	}
	return ch
}

func (ch *Channel) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range ch.opts.AllowedOrigins {
		if o == "*" || strings.EqualFold(strings.TrimRight(o, "/"), origin) {
			return true
		}
	}
	return false
}

// Token reads the credential from ?token= or an Authorization bearer header.
func Token(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func reject(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ServeHTTP authenticates before upgrading; a rejected client never gets a socket.
func (ch *Channel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tok := Token(r)
	if tok == "" {
		reject(w, errAuthentication)
		return
	}
	u, err := ch.auth.Authenticate(tok)
	if err != nil {
		fields := map[string]any{"ip": r.RemoteAddr}
		if errors.Is(err, repos.ErrNotFound) {
			log.Warn(nil, "ws.auth_unknown_user", err, fields)
			reject(w, errUserNotFound)
			return
		}
		log.Warn(nil, "ws.auth_failed", err, fields)
		reject(w, errAuthentication)
		return
	}

	ws, err := ch.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn(nil, "ws.upgrade_failed", err, map[string]any{"user_id": u.ID})
		return
	}

	c := newConn(ws, u.ID, u.Username, ch.opts.SendBuffer, ch.opts.MessageRate, ch.opts.MessageBurst)
	ch.reg.add(c)
	ch.reg.Join(c, UserRoom(u.ID))
	ch.m.Connections.Inc()
	log.Info(nil, "ws.connected", map[string]any{"conn_id": c.ID, "user_id": u.ID})
	ch.emit(ch.reg.Others(c), EventUserOnline, presence{UserID: u.ID, Username: u.Username})

	go c.writePump()
	c.readPump(func(msg []byte) { ch.handle(c, msg) })

	ch.reg.remove(c)
	c.close()
	ch.m.Connections.Dec()
	log.Info(nil, "ws.disconnected", map[string]any{"conn_id": c.ID, "user_id": u.ID})
	ch.emit(ch.reg.Others(c), EventUserOffline, presence{UserID: u.ID, Username: u.Username})
}

func (ch *Channel) handle(c *Conn, raw []byte) {
	if !c.limiter.Allow() {
		ch.emit([]*Conn{c}, EventError, map[string]string{"message": "Too many messages"})
		return
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		ch.emit([]*Conn{c}, EventError, map[string]string{"message": "Malformed message"})
		return
	}
	switch env.Event {
	case EventJoinItemRoom:
		var in struct {
			InventoryID int64 `json:"inventoryId"`
		}
		if err := json.Unmarshal(env.Data, &in); err != nil || in.InventoryID <= 0 {
			ch.emit([]*Conn{c}, EventError, map[string]string{"message": "Invalid inventory id"})
			return
		}
		ch.joinItemRoom(c, in.InventoryID)
	case EventMarkRead:
		var in struct {
			NotificationID int64 `json:"notificationId"`
		}
		if err := json.Unmarshal(env.Data, &in); err != nil || in.NotificationID <= 0 {
			ch.emit([]*Conn{c}, EventError, map[string]string{"message": "Invalid notification id"})
			return
		}
		ch.markRead(c, in.NotificationID)
	default:
		ch.emit([]*Conn{c}, EventError, map[string]string{"message": "Unknown event"})
	}
}

func (ch *Channel) joinItemRoom(c *Conn, itemID int64) {
	if ch.opts.OwnershipCheck {
		it, err := ch.items.Get(itemID)
		if err != nil || it.CreatedBy != c.UserID {
			if err != nil && !errors.Is(err, repos.ErrNotFound) {
				log.Error(nil, "ws.join_room", err, map[string]any{"inventory_id": itemID})
			}
			ch.emit([]*Conn{c}, EventError, map[string]string{"message": "Not allowed to join this room"})
			return
		}
	}
	ch.reg.Join(c, ItemRoom(itemID))
}

func (ch *Channel) markRead(c *Conn, id int64) {
	if err := ch.reads.MarkRead(id, c.UserID); err != nil {
		msg := "Failed to mark notification as read"
		if errors.Is(err, repos.ErrNotFound) {
			msg = "Notification not found"
		} else {
			log.Error(nil, "ws.mark_read", err, map[string]any{"notification_id": id, "user_id": c.UserID})
		}
		ch.emit([]*Conn{c}, EventError, map[string]string{"message": msg})
		return
	}
	ch.emit([]*Conn{c}, EventMarkedRead, map[string]int64{"notificationId": id})
}

// emit marshals once and queues the frame on every connection without blocking.
func (ch *Channel) emit(conns []*Conn, event string, data any) {
	if len(conns) == 0 {
		return
	}
	msg, err := json.Marshal(outbound{Event: event, Data: data})
	if err != nil {
		log.Error(nil, "ws.encode", err, map[string]any{"event": event})
		return
	}
	for _, c := range conns {
		if !c.enqueue(msg) {
			ch.m.EventsDropped.Inc()
			log.Warn(nil, "ws.event_dropped", nil, map[string]any{"event": event, "conn_id": c.ID, "user_id": c.UserID})
		}
	}
}

// Push delivers a stored notification to its recipient's connections. Low-stock
// alerts also go to the item's room, one copy per connection.
func (ch *Channel) Push(_ context.Context, n *domain.Notification) error {
	ch.emit(ch.reg.Members(UserRoom(n.UserID)), EventNotification, n)
	if n.Type == domain.NotificationLowStock {
		rooms := []string{UserRoom(n.UserID)}
		if n.InventoryID != nil {
			rooms = append(rooms, ItemRoom(*n.InventoryID))
		}
		ch.emit(ch.reg.Members(rooms...), EventLowStock, lowStockAlert{
			Message:     n.Message,
			InventoryID: n.InventoryID,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		})
	}
	return nil
}

// NotifyRead tells the user's connections that a notification was read elsewhere.
func (ch *Channel) NotifyRead(userID, notificationID int64) {
	ch.emit(ch.reg.Members(UserRoom(userID)), EventMarkedRead, map[string]int64{"notificationId": notificationID})
}

func (ch *Channel) NotifyAllRead(userID int64) {
	ch.emit(ch.reg.Members(UserRoom(userID)), EventAllMarkedRead, struct{}{})
}

// Close disconnects every client.
func (ch *Channel) Close() {
	for _, c := range ch.reg.Others(nil) {
		c.close()
	}
}
