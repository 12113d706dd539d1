package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/joebot/worldreset/internal/bus"
	"github.com/joebot/worldreset/internal/message"
)

// FeedName is the channel name of the websocket broadcast feed.
const FeedName = "feed"

const (
	feedPath       = "/feed"
	feedWriteWait  = 5 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
	feedQueue      = 32
)

// FeedEvent is one frame on the feed.
type FeedEvent struct {
	Type      string            `json:"type"`
	Session   string            `json:"session,omitempty"`
	At        time.Time         `json:"at"`
	Text      string            `json:"text,omitempty"`
	Legacy    string            `json:"legacy,omitempty"`
	Component message.Component `json:"component,omitzero"`
}

type feedClient struct {
	id  string
	out chan []byte
}

// Feed serves broadcasts to websocket listeners. Listeners only receive;
// anything they send is discarded.
type Feed struct {
	addr   string
	grants []string

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*feedClient
	srv     *http.Server
	ln      net.Listener
}

// NewFeed creates a feed listening on addr.
func NewFeed(addr string, grants ...string) *Feed {
	return &Feed{
		addr:   addr,
		grants: grants,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*feedClient),
	}
}

func (f *Feed) Name() string     { return FeedName }
func (f *Feed) Grants() []string { return f.grants }

// Handler returns the HTTP handler serving the feed path.
func (f *Feed) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(feedPath, f.serveWS)
	return mux
}

// Start listens and serves until ctx is cancelled or Stop is called.
func (f *Feed) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", f.addr)
	if err != nil {
		return fmt.Errorf("feed listen: %w", err)
	}
	srv := &http.Server{Handler: f.Handler(), ReadHeaderTimeout: 5 * time.Second}

	f.mu.Lock()
	f.srv, f.ln = srv, ln
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.Stop()
	}()

	slog.Info("Feed: listening", "addr", ln.Addr().String(), "path", feedPath)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("feed serve: %w", err)
	}
	return nil
}

// Addr returns the bound address once Start is listening.
func (f *Feed) Addr() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ln == nil {
		return ""
	}
	return f.ln.Addr().String()
}

// Stop closes the server and every listener.
func (f *Feed) Stop() error {
	f.mu.Lock()
	srv := f.srv
	f.srv = nil
	for id, c := range f.clients {
		close(c.out)
		delete(f.clients, id)
	}
	f.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Send queues msg for every listener. Slow listeners lose frames rather
// than block delivery.
func (f *Feed) Send(_ context.Context, msg *bus.OutboundMessage) error {
	ev := FeedEvent{
		Type:      "broadcast",
		At:        time.Now().UTC(),
		Text:      msg.Content,
		Legacy:    message.Legacy(msg.Component),
		Component: msg.Component,
	}
	if msg.Permission == "" {
		ev.Type = "message"
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode feed event: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clients {
		select {
		case c.out <- data:
		default:
			slog.Warn("Feed: listener too slow, frame dropped", "session", c.id)
		}
	}
	return nil
}

// Listeners returns the number of connected listeners.
func (f *Feed) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *Feed) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &feedClient{id: uuid.NewString(), out: make(chan []byte, feedQueue)}
	hello, _ := json.Marshal(FeedEvent{Type: "hello", Session: c.id, At: time.Now().UTC()})
	c.out <- hello

	f.mu.Lock()
	f.clients[c.id] = c
	f.mu.Unlock()
	slog.Info("Feed: listener connected", "session", c.id, "remote", r.RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.writeLoop(conn, c)
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.remove(c)
	<-done
	slog.Info("Feed: listener disconnected", "session", c.id)
}

func (f *Feed) remove(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[c.id]; ok {
		close(c.out)
		delete(f.clients, c.id)
	}
}

func (f *Feed) writeLoop(conn *websocket.Conn, c *feedClient) {
	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()
	for {
		select {
		case data, ok := <-c.out:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
				conn.Close()
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				conn.Close()
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
