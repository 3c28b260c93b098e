package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lora-console/pkg/nodestatus"
	"lora-console/pkg/store"
)

// StreamMessage is pushed to UI subscribers.
type StreamMessage struct {
	Type  string        `json:"type"` // nodes
	Nodes nodesResponse `json:"payload"`
}

// NodeStream fans out the classified node list to websocket subscribers,
// each keeping the filter it connected with.
type NodeStream struct {
	upgrader websocket.Upgrader
	store    store.NodeStore
	log      *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	subs map[*websocket.Conn]nodestatus.Selector
}

func NewNodeStream(st store.NodeStore, log *slog.Logger) *NodeStream {
	if log == nil {
		log = slog.Default()
	}
	return &NodeStream{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		store: st,
		log:   log,
		now:   time.Now,
		subs:  map[*websocket.Conn]nodestatus.Selector{},
	}
}

// HandleStream upgrades the request; expects ?filter=all|active|inactive|outage.
func (h *NodeStream) HandleStream(w http.ResponseWriter, r *http.Request) {
	sel, err := selectorParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	snap, err := h.store.Snapshot()
	if err != nil {
		h.log.Error("load snapshot failed", "error", err)
		_ = c.Close()
		return
	}
	if err := h.send(c, snap, sel, h.now()); err != nil {
		_ = c.Close()
		return
	}
	h.mu.Lock()
	h.subs[c] = sel
	n := len(h.subs)
	h.mu.Unlock()
	h.log.Debug("node stream subscriber connected", "filter", sel, "subscribers", n)
	go h.readLoop(c)
}

// Broadcast pushes a refreshed snapshot to every subscriber. All
// subscribers are evaluated against the same instant.
func (h *NodeStream) Broadcast(snap store.Snapshot) {
	now := h.now()
	h.mu.Lock()
	defer h.mu.Unlock()
	for c, sel := range h.subs {
		if err := h.send(c, snap, sel, now); err != nil {
			_ = c.Close()
			delete(h.subs, c)
		}
	}
}

// Subscribers returns the number of open streams.
func (h *NodeStream) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *NodeStream) send(c *websocket.Conn, snap store.Snapshot, sel nodestatus.Selector, now time.Time) error {
	view, err := filteredView(snap, sel, now)
	if err != nil {
		return err
	}
	_ = c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.WriteJSON(StreamMessage{Type: "nodes", Nodes: view})
}

func (h *NodeStream) readLoop(c *websocket.Conn) {
	defer h.closeSub(c)
	for {
		if _, _, err := c.NextReader(); err != nil {
			return
		}
	}
}

func (h *NodeStream) closeSub(c *websocket.Conn) {
	_ = c.Close()
	h.mu.Lock()
	delete(h.subs, c)
	h.mu.Unlock()
	h.log.Debug("node stream subscriber disconnected")
}
