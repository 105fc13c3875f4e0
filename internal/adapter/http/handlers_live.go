package adapthttp

import (
	"net/http"
	"time"

	"fuellog/internal/app"
	"fuellog/internal/domain"

	"github.com/gorilla/websocket"
)

const liveWriteWait = 10 * time.Second

// liveMessage is pushed to dashboard clients on connect and after every
// change to the user's records.
type liveMessage struct {
	Version uint64              `json:"version"`
	Records []domain.FuelRecord `json:"records"`
	Summary domain.Summary      `json:"summary"`
	Error   string              `json:"error,omitempty"`
}

func (s *Server) liveMessage(snap app.Snapshot) liveMessage {
	msg := liveMessage{
		Version: snap.Version,
		Records: app.NewestFirst(snap.Records),
		Summary: s.stats.FromSnapshot(snap),
	}
	if snap.Err != nil {
		msg.Records = []domain.FuelRecord{}
		msg.Error = "failed to load records"
	}
	return msg
}

// handleLive streams full snapshots over a websocket. Slow clients only ever
// see the latest snapshot; intermediate ones are dropped.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	pending := make(chan app.Snapshot, 1)
	offer := func(snap app.Snapshot) {
		for {
			select {
			case pending <- snap:
				return
			default:
			}
			select {
			case old := <-pending:
				if old.Version > snap.Version {
					snap = old
				}
			default:
			}
		}
	}

	unsubscribe := s.feed.Subscribe(user.ID, offer)
	defer unsubscribe()

	offer(s.feed.Current(r.Context(), user.ID))

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	var sent uint64
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case snap := <-pending:
			if sent != 0 && snap.Version <= sent {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(s.liveMessage(snap)); err != nil {
				s.log.DebugContext(r.Context(), "live client gone", "user_id", user.ID, "error", err)
				return
			}
			sent = snap.Version
		}
	}
}
