// Package stream broadcasts simulation snapshots to WebSocket clients and
// applies playback commands they send back.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/logging"
	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
)

// Controller is the subset of *sim.Controller the hub drives.
type Controller interface {
	Play() error
	Pause() error
	Reset() error
	SetSpeed(speed float64) float64
	Snapshot() sim.Snapshot
}

const (
	// Time allowed to write one frame to a client.
	writeWait = 5 * time.Second

	// Frames queued per client before it is dropped as too slow.
	sendQueue = 16
)

// client owns one connection. Only its writer goroutine writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Hub fans controller output out to every connected client. Register it as
// a sim.Observer. Publishing never waits on a client.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader

	ctrl  Controller
	codec Codec
	log   *logging.Logger
}

var _ sim.Observer = (*Hub)(nil)

var errClientGone = errors.New("stream: client disconnected")

// NewHub creates a hub for ctrl. A nil codec means JSON.
func NewHub(ctrl Controller, codec Codec, log *logging.Logger) *Hub {
	if codec == nil {
		codec = JSONCodec{}
	}
	if log == nil {
		log = logging.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		ctrl:  ctrl,
		codec: codec,
		log:   log,
	}
}

func (h *Hub) add(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, sendQueue),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	go h.write(c)
	return c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// write drains the client's queue until it is closed or a write fails.
func (h *Hub) write(c *client) {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				h.remove(c)
				return
			}
			if err := c.conn.WriteMessage(h.codec.FrameType(), payload); err != nil {
				h.log.Warnf("stream: write to %s: %v", c.conn.RemoteAddr(), err)
				h.remove(c)
				return
			}
		}
	}
}

// enqueueLocked queues payload for c, dropping c if its queue is full.
func (h *Hub) enqueueLocked(c *client, payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		h.log.Warnf("stream: client %s too slow, disconnecting", c.conn.RemoteAddr())
		delete(h.clients, c)
		c.close()
		return false
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg Message) {
	payload, err := h.codec.Encode(msg)
	if err != nil {
		h.log.Errorf("stream: encode %s: %v", msg.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.enqueueLocked(c, payload)
	}
}

// send queues a message for one client.
func (h *Hub) send(c *client, msg Message) error {
	payload, err := h.codec.Encode(msg)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok || !h.enqueueLocked(c, payload) {
		return errClientGone
	}
	return nil
}

func (h *Hub) OnFrame(snap sim.Snapshot) {
	h.broadcast(Message{Type: TypeSnapshot, Snapshot: &snap})
}

func (h *Hub) OnStateChange(from, to sim.PlaybackState) {
	h.broadcast(Message{Type: TypeState, From: from.String(), To: to.String()})
}

func (h *Hub) OnTaskCompleted(agent core.AgentID, cell core.Cell) {
	h.broadcast(Message{Type: TypeTask, Agent: string(agent), Cell: core.CellKey(cell)})
}

func (h *Hub) OnReplan(agent core.AgentID, ok bool) {
	h.broadcast(Message{Type: TypeReplan, Agent: string(agent), OK: &ok})
}

// ServeHTTP upgrades the connection, sends the latest snapshot and then
// applies commands until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("stream: websocket upgrade failed: %v", err)
		return
	}
	c := h.add(conn)
	defer h.remove(c)
	h.log.Debugf("stream: client %s connected", conn.RemoteAddr())

	snap := h.ctrl.Snapshot()
	if err := h.send(c, Message{Type: TypeSnapshot, Snapshot: &snap}); err != nil {
		h.log.Warnf("stream: initial snapshot: %v", err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warnf("stream: read: %v", err)
			}
			return
		}

		cmd, err := h.codec.Decode(data)
		if err == nil {
			err = h.apply(cmd)
		}
		if err != nil {
			h.log.Debugf("stream: command from %s: %v", conn.RemoteAddr(), err)
			if err := h.send(c, Message{Type: TypeError, Error: err.Error()}); err != nil {
				return
			}
		}
	}
}

func (h *Hub) apply(cmd Command) error {
	switch cmd.Action {
	case "play":
		return h.ctrl.Play()
	case "pause":
		return h.ctrl.Pause()
	case "reset":
		return h.ctrl.Reset()
	case "speed":
		h.ctrl.SetSpeed(cmd.Value)
		// Speed changes do not publish on their own.
		h.OnFrame(h.ctrl.Snapshot())
		return nil
	}
	return fmt.Errorf("unknown action %q", cmd.Action)
}

// SnapshotHandler serves the current snapshot as JSON.
func (h *Hub) SnapshotHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h.ctrl.Snapshot()); err != nil {
			h.log.Warnf("stream: snapshot handler: %v", err)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}
