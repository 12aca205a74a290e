// Package live pushes announcements to browsers over a websocket.
package live

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/olahol/melody"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-hall-booking/internal/metrics"
	"github.com/iliyamo/campus-hall-booking/internal/model"
)

// AnnouncementLister supplies the payload of each broadcast.
type AnnouncementLister interface {
	List(ctx context.Context) ([]model.Announcement, error)
}

// Frame is the JSON object exchanged with clients.
type Frame struct {
	Type          string               `json:"type,omitempty"`
	Message       string               `json:"message,omitempty"`
	Error         string               `json:"error,omitempty"`
	Announcements []model.Announcement `json:"announcements,omitempty"`
}

// Hub wraps a melody instance.
type Hub struct {
	m      *melody.Melody
	lister AnnouncementLister
	log    *zap.Logger
}

func NewHub(lister AnnouncementLister, allowedOrigins []string, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	m := melody.New()
	m.Upgrader.CheckOrigin = originChecker(allowedOrigins)
	h := &Hub{m: m, lister: lister, log: log.Named("live")}

	m.HandleConnect(func(s *melody.Session) {
		metrics.LiveSubscribers.Inc()
		h.log.Debug("subscriber connected", zap.String("remote", s.Request.RemoteAddr))
		h.write(s, Frame{Message: "Connected to WebSocket Server"})
	})
	m.HandleDisconnect(func(s *melody.Session) {
		metrics.LiveSubscribers.Dec()
		h.log.Debug("subscriber disconnected", zap.String("remote", s.Request.RemoteAddr))
	})
	m.HandleMessage(h.onMessage)
	m.HandleError(func(s *melody.Session, err error) {
		h.log.Debug("websocket error", zap.Error(err))
	})
	return h
}

// ServeHTTP upgrades the request.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.m.HandleRequest(w, r); err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
	}
}

func (h *Hub) onMessage(s *melody.Session, msg []byte) {
	var in Frame
	if err := json.Unmarshal(msg, &in); err != nil {
		h.write(s, Frame{Error: "Invalid message format"})
		return
	}
	if in.Type == "ping" {
		h.write(s, Frame{Type: "pong", Message: "pong"})
	}
}

func (h *Hub) write(s *melody.Session, f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	_ = s.Write(b)
}

// Subscribers is the number of open sessions.
func (h *Hub) Subscribers() int { return h.m.Len() }

// BroadcastAnnouncements sends the full announcement list to every
// subscriber.  It is a no-op when nobody is connected.
func (h *Hub) BroadcastAnnouncements(ctx context.Context) error {
	if h.m.Len() == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	list, err := h.lister.List(ctx)
	if err != nil {
		return err
	}
	if list == nil {
		list = []model.Announcement{}
	}
	b, err := json.Marshal(struct {
		Type          string               `json:"type"`
		Announcements []model.Announcement `json:"announcements"`
	}{"announcement", list})
	if err != nil {
		return err
	}
	return h.m.Broadcast(b)
}

// Close disconnects every session.
func (h *Hub) Close() error { return h.m.Close() }

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		o := r.Header.Get("Origin")
		return o == "" || set[o]
	}
}
