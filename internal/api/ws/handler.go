package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/evalmachine/internal/domain/runner"
	"github.com/GriffinCanCode/evalmachine/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/evalmachine/internal/script/env"
	"github.com/GriffinCanCode/evalmachine/internal/script/scripterr"
	"github.com/GriffinCanCode/evalmachine/internal/shared/id"
	"github.com/GriffinCanCode/evalmachine/internal/shared/utils"
)

const (
	writeWait = 10 * time.Second
	// readLimit bounds a single client frame.
	readLimit = 1 << 20
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message types.
const (
	TypeEval    = "eval"
	TypePing    = "ping"
	TypeWelcome = "welcome"
	TypeResult  = "result"
	TypeError   = "error"
	TypePong    = "pong"
)

// Request is a client frame.
type Request struct {
	Type          string `json:"type"`
	ID            string `json:"id,omitempty"`
	Code          string `json:"code,omitempty"`
	Filename      string `json:"filename,omitempty"`
	DisplayErrors bool   `json:"display_errors,omitempty"`
}

// Response is a server frame. ID echoes the request, or is generated when
// the request carried none.
type Response struct {
	Type      string         `json:"type"`
	ID        string         `json:"id,omitempty"`
	Session   id.SessionID   `json:"session,omitempty"`
	ContextID id.ContextID   `json:"context_id,omitempty"`
	Value     any            `json:"value,omitempty"`
	Sandbox   map[string]any `json:"sandbox,omitempty"`
	Logs      []env.LogEntry `json:"logs,omitempty"`
	Error     string         `json:"error,omitempty"`
	Kind      string         `json:"kind,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// Handler serves REPL sessions bound to runner contexts.
type Handler struct {
	runner  *runner.Runner
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewHandler creates a REPL handler. metrics may be nil.
func NewHandler(r *runner.Runner, metrics *monitoring.Metrics, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{runner: r, metrics: metrics, log: log}
}

// HandleConnection upgrades the request and evaluates every eval frame in
// the context named by the path, one at a time.
func (h *Handler) HandleConnection(c *gin.Context) {
	cid := id.ContextID(c.Param("id"))
	if _, err := h.runner.Context(cid); err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": "not_found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(readLimit)

	session := id.NewSessionID()
	log := h.log.With(zap.String("session", session.String()), zap.String("context_id", cid.String()))
	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}
	log.Info("repl session opened")
	defer log.Info("repl session closed")

	if err := h.send(conn, Response{Type: TypeWelcome, Session: session, ContextID: cid}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var req Request
		if err := sonic.Unmarshal(data, &req); err != nil {
			h.record("in", "invalid")
			if h.send(conn, Response{Type: TypeError, Error: "invalid frame: " + err.Error(), Kind: "request"}) != nil {
				return
			}
			continue
		}
		switch req.Type {
		case TypeEval, TypePing:
			h.record("in", req.Type)
		default:
			h.record("in", "unknown")
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}

		if err := h.send(conn, h.handle(cid, req)); err != nil {
			log.Warn("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (h *Handler) handle(cid id.ContextID, req Request) Response {
	switch req.Type {
	case TypePing:
		return Response{Type: TypePong, ID: req.ID}
	case TypeEval:
	default:
		return Response{Type: TypeError, ID: req.ID, Error: "unknown message type: " + req.Type, Kind: "request"}
	}

	if err := utils.ValidateRequest(req.Code, req.Filename, nil); err != nil {
		return Response{Type: TypeError, ID: req.ID, Error: err.Error(), Kind: "request"}
	}
	res, err := h.runner.Run(runner.Request{
		Code:          req.Code,
		Filename:      req.Filename,
		Mode:          runner.ModeContext,
		ContextID:     cid,
		DisplayErrors: req.DisplayErrors,
	})
	if err != nil {
		return Response{Type: TypeError, ID: req.ID, Error: err.Error(), Kind: kindOf(err)}
	}
	return Response{Type: TypeResult, ID: req.ID, Value: res.Value, Sandbox: res.Sandbox, Logs: res.Logs}
}

func (h *Handler) send(conn *websocket.Conn, resp Response) error {
	resp.Timestamp = time.Now().Unix()
	data, err := sonic.Marshal(resp)
	if err != nil {
		return err
	}
	h.record("out", resp.Type)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Handler) record(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}

func kindOf(err error) string {
	if errors.Is(err, runner.ErrNotFound) {
		return "not_found"
	}
	return string(scripterr.KindOf(err))
}
