package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/matthewbaird/turbine/internal/compiler"
	"github.com/matthewbaird/turbine/internal/handler"
	"github.com/matthewbaird/turbine/internal/logger"
	"github.com/matthewbaird/turbine/internal/spec"
)

const (
	// artifactBatchSize controls how many artifacts are sent per "artifacts" message.
	artifactBatchSize = 20
)

// Handler runs validate and generate requests over a WebSocket.
type Handler struct {
	compiler *compiler.Compiler
	rules    []string
	log      *zap.SugaredLogger
}

// NewHandler creates a WebSocket handler. rules is announced to clients
// in the hello message.
func NewHandler(c *compiler.Compiler, rules []string) *Handler {
	return &Handler{compiler: c, rules: rules, log: logger.Named("wire")}
}

// ServeHTTP upgrades to WebSocket and runs the message loop. Requests on
// one connection are handled in order.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warnw("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(handler.MaxDocumentBytes * 2)

	ctx := r.Context()
	h.send(ctx, conn, ServerMessage{Type: "hello", Data: HelloData{Rules: h.rules}})

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 {
				h.log.Debugw("connection read failed", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "validate":
			h.handleValidate(ctx, conn, msg)
		case "generate":
			h.handleGenerate(ctx, conn, msg)
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, ErrorData{
				Code:    "UNKNOWN_TYPE",
				Message: fmt.Sprintf("unknown message type: %s", msg.Type),
			})
		}
	}
}

func (h *Handler) document(ctx context.Context, conn *websocket.Conn, msg ClientMessage) (DocumentData, bool) {
	var data DocumentData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, ErrorData{Code: "INVALID_DATA", Message: "invalid document data"})
		return data, false
	}
	if data.Document == "" {
		h.sendError(ctx, conn, msg.ID, ErrorData{Code: "EMPTY_DOCUMENT", Message: "empty document"})
		return data, false
	}
	if data.Format == "" {
		data.Format = spec.FormatYAML
	}
	return data, true
}

func (h *Handler) handleValidate(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	data, ok := h.document(ctx, conn, msg)
	if !ok {
		return
	}
	s, err := h.compiler.Validate([]byte(data.Document), data.Format)
	if err != nil {
		h.sendError(ctx, conn, msg.ID, errorData(err, ""))
		return
	}
	names := make([]string, len(s.Entities))
	for i, e := range s.Entities {
		names[i] = e.Name
	}
	h.send(ctx, conn, ServerMessage{
		Type:      "valid",
		RequestID: msg.ID,
		Data:      ValidData{Project: s.Project.Name, Entities: names},
	})
}

func (h *Handler) handleGenerate(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	start := time.Now()
	data, ok := h.document(ctx, conn, msg)
	if !ok {
		return
	}

	run, err := h.compiler.GenerateDocument(ctx, []byte(data.Document), data.Format)
	if run == nil {
		h.sendError(ctx, conn, msg.ID, errorData(err, ""))
		return
	}
	h.send(ctx, conn, ServerMessage{Type: "run", RequestID: msg.ID, Data: RunData{RunID: run.ID}})
	if cerr := run.Err(); cerr != nil {
		h.sendError(ctx, conn, msg.ID, errorData(cerr, run.ID))
		return
	}
	if err != nil {
		h.sendError(ctx, conn, msg.ID, errorData(err, run.ID))
		return
	}

	arts := run.Result.Artifacts
	for i := 0; i < len(arts); i += artifactBatchSize {
		end := min(i+artifactBatchSize, len(arts))
		batch := make([]ArtifactData, 0, end-i)
		for _, a := range arts[i:end] {
			ad := ArtifactData{Path: a.Path, Rule: a.Rule, HasGaps: a.HasGaps, Size: len(a.Content)}
			if data.Content {
				ad.Content = a.Content
			}
			batch = append(batch, ad)
		}
		h.send(ctx, conn, ServerMessage{Type: "artifacts", RequestID: msg.ID, Data: ArtifactsData{Artifacts: batch}})
	}

	h.send(ctx, conn, ServerMessage{
		Type:      "done",
		RequestID: msg.ID,
		Data: DoneData{
			RunID:     run.ID,
			Artifacts: len(arts),
			Gaps:      append([]string{}, run.Result.Gaps...),
			Elapsed:   time.Since(start).String(),
		},
	})
}

func errorData(err error, runID string) ErrorData {
	_, body := handler.Classify(err)
	return ErrorData{
		Code:    body.Code,
		Message: body.Error,
		RunID:   runID,
		Issues:  body.Issues,
		Cycle:   body.Cycle,
	}
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.log.Debugw("write error", zap.Error(err))
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID string, data ErrorData) {
	h.send(ctx, conn, ServerMessage{Type: "error", RequestID: requestID, Data: data})
}
