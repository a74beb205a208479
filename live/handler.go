package live

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mbolis/formify/log"
	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/report"
	"github.com/mbolis/formify/store"
)

// Application close codes.
const (
	CloseBadRequest = 4400
	CloseForbidden  = 4403
	CloseNotFound   = 4404
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Viewer is the identity of the requester, as resolved by the router.
type Viewer struct {
	UserID        int
	IsStaff       bool
	Authenticated bool
}

type Frame struct {
	Type       string           `json:"type"`
	ReportType model.ReportType `json:"report_type,omitempty"`
	Payload    any              `json:"payload,omitempty"`
	Error      string           `json:"error,omitempty"`
}

type inbound struct {
	Action string `json:"action"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	db      *sql.DB
	hub     *Hub
	builder *report.Builder
	viewer  func(*http.Request) Viewer
}

func NewHandler(db *sql.DB, hub *Hub, builder *report.Builder, viewer func(*http.Request) Viewer) *Handler {
	return &Handler{db: db, hub: hub, builder: builder, viewer: viewer}
}

func reject(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	conn.Close()
}

// canView allows public forms, the owner and staff.
func canView(form model.Form, v Viewer) bool {
	if form.IsPublic {
		return true
	}
	return v.Authenticated && (v.IsStaff || v.UserID == form.CreatedBy)
}

// ServeHTTP serves GET /ws/reports/{form_id}?type=summary|detailed.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("live.upgrade: %v", err)
		return
	}

	formID, err := uuid.Parse(chi.URLParam(r, "form_id"))
	if err != nil {
		reject(conn, CloseNotFound, "invalid form id")
		return
	}

	typ := model.ReportType(strings.ToLower(r.URL.Query().Get("type")))
	if typ == "" {
		typ = model.ReportSummary
	}
	if !typ.Valid() {
		reject(conn, CloseBadRequest, "unknown report type")
		return
	}

	form, err := store.GetForm(r.Context(), h.db, formID)
	if model.IsNotFound(err) {
		reject(conn, CloseNotFound, "form not found")
		return
	}
	if err != nil {
		log.Errorf("live.get_form: %v", err)
		reject(conn, websocket.CloseInternalServerErr, "")
		return
	}
	if !canView(form, h.viewer(r)) {
		reject(conn, CloseForbidden, "forbidden")
		return
	}

	sub := h.hub.Subscribe(formID)
	defer h.hub.Unsubscribe(sub)
	log.WithFields(log.Fields{"form": formID, "type": typ}).Debug("live.subscribe")

	s := &session{
		conn:    conn,
		builder: h.builder,
		formID:  formID,
		typ:     typ,
		refresh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.write(sub)
		// unblocks read when the writer gave up first
		conn.Close()
	}()
	s.read()
	<-writerDone
	log.WithFields(log.Fields{"form": formID}).Debug("live.unsubscribe")
}

type session struct {
	conn    *websocket.Conn
	builder *report.Builder
	formID  uuid.UUID
	typ     model.ReportType
	refresh chan struct{}
	done    chan struct{}
}

// read consumes client frames until the connection fails.
func (s *session) read() {
	defer close(s.done)

	s.conn.SetReadLimit(4096)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inbound
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugf("live.read: %v", err)
			}
			return
		}
		if msg.Action == "refresh" {
			select {
			case s.refresh <- struct{}{}:
			default:
			}
		}
	}
}

// write is the only goroutine writing to the connection.
func (s *session) write(sub *Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if !s.send("init", s.typ) {
		return
	}
	for {
		select {
		case <-s.done:
			return
		case <-s.refresh:
			if !s.send("refresh", "") {
				return
			}
		case <-sub.Changed():
			if !s.send("update", "") {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) send(kind string, reportType model.ReportType) bool {
	f := Frame{Type: kind, ReportType: reportType}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	payload, err := s.builder.Generate(ctx, s.formID, s.typ)
	cancel()
	if err != nil {
		log.WithFields(log.Fields{"form": s.formID}).Warnf("live.build_report: %v", err)
		f.Type, f.Error = "error", "report unavailable"
	} else {
		f.Payload = payload
	}

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(f); err != nil {
		log.Debugf("live.write: %v", err)
		return false
	}
	return true
}
