package wire

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/matthewbaird/turbine/internal/eventbus"
	"github.com/matthewbaird/turbine/internal/logger"
)

// watcherBuffer is the per-connection event backlog.
const watcherBuffer = 256

// EventsHandler streams run events to WebSocket clients. The optional
// "project" query parameter restricts the stream to one project.
type EventsHandler struct {
	fanout *eventbus.Fanout
	log    *zap.SugaredLogger
}

func NewEventsHandler(f *eventbus.Fanout) *EventsHandler {
	return &EventsHandler{fanout: f, log: logger.Named("wire")}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warnw("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	project := r.URL.Query().Get("project")
	events, cancel := h.fanout.Watch(watcherBuffer)
	defer cancel()

	// The stream is one-way; CloseRead handles control frames and cancels
	// ctx when the client goes away.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if project != "" && evt.Project != project {
				continue
			}
			if err := wsjson.Write(ctx, conn, ServerMessage{Type: "event", Data: evt}); err != nil {
				h.log.Debugw("write error", zap.Error(err))
				return
			}
		}
	}
}
