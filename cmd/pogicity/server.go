package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/twofactor/pogicity-demo/internal/sim"
)

// hub fans the per-tick state frames out to every connected websocket client.
// New clients first receive a one-off grid snapshot, then frames only.
type hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
	hello    []byte

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

type gridSnapshot struct {
	Type   string    `json:"type"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Tiles  [][]uint8 `json:"tiles"` // row-major TileKind values
}

type frame struct {
	Type        string       `json:"type"`
	Tick        uint64       `json:"tick"`
	Phase       string       `json:"phase"`
	Vehicles    []agentFrame `json:"vehicles"`
	Pedestrians []agentFrame `json:"pedestrians"`
}

type agentFrame struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Dir      string  `json:"dir"`
	Kind     string  `json:"kind"`
	Crossing bool    `json:"crossing,omitempty"`
	Waiting  int     `json:"waiting,omitempty"`
}

func newHub(log *slog.Logger, g *sim.Grid) *hub {
	snap := gridSnapshot{
		Type:   "grid",
		Width:  g.Width(),
		Height: g.Height(),
		Tiles:  make([][]uint8, g.Height()),
	}
	for y := 0; y < g.Height(); y++ {
		row := make([]uint8, g.Width())
		for x := 0; x < g.Width(); x++ {
			row[x] = uint8(g.Tiles[y][x].Kind)
		}
		snap.Tiles[y] = row
	}
	hello, err := json.Marshal(snap)
	if err != nil {
		// A static snapshot of plain integers cannot fail to marshal.
		panic(err)
	}
	return &hub{
		log:   log,
		hello: hello,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, h.hello); err != nil {
		conn.Close()
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	h.log.Info("client connected", "remote", conn.RemoteAddr().String(), "clients", n)

	// Drain the read side so close frames and pings are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
	if ok {
		h.log.Info("client disconnected", "remote", conn.RemoteAddr().String())
	}
}

// broadcast sends one frame to every client, dropping any that fail.
func (h *hub) broadcast(f frame) {
	h.mu.Lock()
	if len(h.conns) == 0 {
		h.mu.Unlock()
		return
	}
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	payload, err := json.Marshal(f)
	if err != nil {
		h.log.Error("frame marshal failed", "err", err)
		return
	}
	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(c)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

func buildFrame(tick uint64, phase string, ts *sim.TrafficSystem, ps *sim.PedestrianSystem) frame {
	f := frame{
		Type:        "tick",
		Tick:        tick,
		Phase:       phase,
		Vehicles:    make([]agentFrame, 0, ts.Count()),
		Pedestrians: make([]agentFrame, 0, ps.Count()),
	}
	for _, v := range ts.Vehicles() {
		f.Vehicles = append(f.Vehicles, agentFrame{
			ID:      v.ID.String(),
			X:       v.X,
			Y:       v.Y,
			Dir:     v.Dir.String(),
			Kind:    v.Class.String(),
			Waiting: v.Waiting,
		})
	}
	for _, p := range ps.Pedestrians() {
		f.Pedestrians = append(f.Pedestrians, agentFrame{
			ID:       p.ID.String(),
			X:        p.X,
			Y:        p.Y,
			Dir:      p.Dir.String(),
			Kind:     p.Kind.String(),
			Crossing: p.Crossing,
		})
	}
	return f
}
