package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/turbine/internal/compiler"
	"github.com/matthewbaird/turbine/internal/emit"
	"github.com/matthewbaird/turbine/internal/event"
	"github.com/matthewbaird/turbine/internal/eventbus"
	"github.com/matthewbaird/turbine/internal/handler"
	"github.com/matthewbaird/turbine/internal/store"
	"github.com/matthewbaird/turbine/internal/wire"
)

const itemDoc = `
project:
  name: Inventory
  description: Tracks items
entities:
  - name: Item
    operations: [create, list]
    fields:
      - name: title
        type: string
        required: true
`

const itemJSON = `{
  "project": {"name": "Inventory", "description": "Tracks items"},
  "entities": [{"name": "Item", "fields": [{"name": "title", "type": "string"}]}]
}`

const cycleDoc = `
project: {name: Loop, description: x}
entities:
  - name: A
    fields:
      - {name: b, type: relation, relation: {type: belongsTo, target: B}}
  - name: B
    fields:
      - {name: a, type: relation, relation: {type: belongsTo, target: A}}
`

type env struct {
	srv    *httptest.Server
	store  store.Store
	fanout *eventbus.Fanout
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := store.NewMemoryStore()
	bus := eventbus.New(256)
	fanout := eventbus.NewFanout()
	bus.Subscribe("fanout", fanout)
	bus.Start(context.Background())
	t.Cleanup(bus.Stop)

	rec := event.NewStoreRecorder(s)
	rec.SetPublisher(bus)
	c := compiler.New(compiler.WithRecorder(rec), compiler.WithPublisher(bus))

	srv := httptest.NewServer(Router(Config{
		Compiler: c,
		Store:    s,
		Fanout:   fanout,
		Rules:    emit.NewEngine().Rules(),
	}))
	t.Cleanup(srv.Close)
	return &env{srv: srv, store: s, fanout: fanout}
}

func (e *env) post(t *testing.T, path, contentType, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(e.srv.URL+path, contentType, strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *env) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	resp, body := e.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestValidate(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name        string
		contentType string
		query       string
		body        string
		status      int
		code        string
	}{
		{name: "yaml", contentType: "application/yaml", body: itemDoc, status: http.StatusOK},
		{name: "json by content type", contentType: "application/json", body: itemJSON, status: http.StatusOK},
		{name: "format query wins", contentType: "text/plain", query: "?format=json", body: itemJSON, status: http.StatusOK},
		{name: "cycle", contentType: "application/yaml", body: cycleDoc, status: http.StatusUnprocessableEntity, code: "CIRCULAR_DEPENDENCY"},
		{name: "schema", contentType: "application/yaml", body: "entities: []\n", status: http.StatusUnprocessableEntity, code: "SCHEMA_VALIDATION"},
		{name: "empty", contentType: "application/yaml", body: "", status: http.StatusBadRequest, code: "INVALID_REQUEST"},
		{name: "bad format", contentType: "application/yaml", query: "?format=xml", body: itemDoc, status: http.StatusBadRequest, code: "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := e.post(t, "/v1/validate"+tt.query, tt.contentType, tt.body)
			require.Equal(t, tt.status, resp.StatusCode, string(body))
			if tt.code == "" {
				var v handler.ValidateResponse
				require.NoError(t, json.Unmarshal(body, &v))
				assert.True(t, v.Valid)
				assert.Equal(t, "Inventory", v.Project)
				assert.Equal(t, []string{"Item"}, v.Entities)
				return
			}
			var eb handler.ErrorBody
			require.NoError(t, json.Unmarshal(body, &eb))
			assert.Equal(t, tt.code, eb.Code)
			if tt.code == "SCHEMA_VALIDATION" {
				assert.NotEmpty(t, eb.Issues)
			}
			if tt.code == "CIRCULAR_DEPENDENCY" {
				assert.NotEmpty(t, eb.Cycle)
			}
		})
	}
}

func TestGenerateAndBrowseRuns(t *testing.T) {
	e := newEnv(t)

	resp, body := e.post(t, "/v1/generate", "application/yaml", itemDoc)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var gen handler.GenerateResponse
	require.NoError(t, json.Unmarshal(body, &gen))
	assert.Equal(t, store.StatusSucceeded, gen.Run.Status)
	require.NotEmpty(t, gen.Artifacts)
	for _, a := range gen.Artifacts {
		assert.Empty(t, a.Content, "content is opt-in")
	}
	runID := gen.Run.ID

	resp, body = e.get(t, "/v1/runs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list handler.ListRunsResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, runID, list.Runs[0].ID)

	resp, _ = e.get(t, "/v1/runs/"+runID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = e.get(t, "/v1/runs/"+runID+"/artifacts")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var arts struct {
		Artifacts []store.Artifact `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(body, &arts))
	assert.Len(t, arts.Artifacts, len(gen.Artifacts))

	resp, body = e.get(t, "/v1/runs/"+runID+"/artifact?path="+url.QueryEscape("package.json"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var manifest map[string]any
	require.NoError(t, json.Unmarshal(body, &manifest))
	assert.Equal(t, "inventory", manifest["name"])

	resp, _ = e.get(t, "/v1/runs/"+runID+"/artifact?path=nope.ts")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = e.get(t, "/v1/runs/"+runID+"/artifact")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = e.get(t, "/v1/runs/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = e.get(t, "/v1/runs?limit=0")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = e.get(t, "/v1/runs?status=pending")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerate_IncludeContent(t *testing.T) {
	e := newEnv(t)
	resp, body := e.post(t, "/v1/generate?content=true", "application/yaml", itemDoc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var gen handler.GenerateResponse
	require.NoError(t, json.Unmarshal(body, &gen))
	for _, a := range gen.Artifacts {
		assert.Equal(t, a.Size, len(a.Content), a.Path)
	}
}

func TestGenerate_FailedRunIsRecorded(t *testing.T) {
	e := newEnv(t)
	resp, body := e.post(t, "/v1/generate", "application/yaml", cycleDoc)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var eb handler.ErrorBody
	require.NoError(t, json.Unmarshal(body, &eb))
	assert.Equal(t, "CIRCULAR_DEPENDENCY", eb.Code)
	require.NotEmpty(t, eb.RunID)

	resp, body = e.get(t, "/v1/runs?status=failed&project=Loop")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list handler.ListRunsResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, eb.RunID, list.Runs[0].ID)
	assert.Equal(t, store.StatusFailed, list.Runs[0].Status)
}

func dial(t *testing.T, e *env, path string) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(e.srv.URL, "http")+path, nil)
	require.NoError(t, err)
	conn.SetReadLimit(16 << 20)
	t.Cleanup(func() { conn.CloseNow() })
	return conn, ctx
}

type rawMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func TestGenerateStream(t *testing.T) {
	e := newEnv(t)
	conn, ctx := dial(t, e, "/v1/generate/ws")

	var hello rawMessage
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	assert.Equal(t, "hello", hello.Type)

	doc, _ := json.Marshal(wire.DocumentData{Document: itemDoc, Content: true})
	require.NoError(t, wsjson.Write(ctx, conn, wire.ClientMessage{Type: "generate", ID: "1", Data: doc}))

	var (
		runID    string
		streamed int
		done     wire.DoneData
	)
	for {
		var msg rawMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		require.Equal(t, "1", msg.RequestID)
		switch msg.Type {
		case "run":
			var rd wire.RunData
			require.NoError(t, json.Unmarshal(msg.Data, &rd))
			runID = rd.RunID
		case "artifacts":
			var ad wire.ArtifactsData
			require.NoError(t, json.Unmarshal(msg.Data, &ad))
			for _, a := range ad.Artifacts {
				assert.NotEmpty(t, a.Content, a.Path)
			}
			streamed += len(ad.Artifacts)
		case "done":
			require.NoError(t, json.Unmarshal(msg.Data, &done))
		default:
			t.Fatalf("unexpected message %s: %s", msg.Type, msg.Data)
		}
		if msg.Type == "done" {
			break
		}
	}
	assert.Equal(t, runID, done.RunID)
	assert.Equal(t, done.Artifacts, streamed)

	require.NoError(t, wsjson.Write(ctx, conn, wire.ClientMessage{Type: "ping", ID: "2"}))
	var pong rawMessage
	require.NoError(t, wsjson.Read(ctx, conn, &pong))
	assert.Equal(t, "pong", pong.Type)

	doc, _ = json.Marshal(wire.DocumentData{Document: cycleDoc})
	require.NoError(t, wsjson.Write(ctx, conn, wire.ClientMessage{Type: "validate", ID: "3", Data: doc}))
	var failed rawMessage
	require.NoError(t, wsjson.Read(ctx, conn, &failed))
	require.Equal(t, "error", failed.Type)
	var ed wire.ErrorData
	require.NoError(t, json.Unmarshal(failed.Data, &ed))
	assert.Equal(t, "CIRCULAR_DEPENDENCY", ed.Code)

	require.NoError(t, wsjson.Write(ctx, conn, wire.ClientMessage{Type: "explode", ID: "4"}))
	var unknown rawMessage
	require.NoError(t, wsjson.Read(ctx, conn, &unknown))
	assert.Equal(t, "error", unknown.Type)
}

func TestEventStream(t *testing.T) {
	e := newEnv(t)
	conn, ctx := dial(t, e, "/v1/events/ws?project=Inventory")

	require.Eventually(t, func() bool { return e.fanout.Watchers() == 1 }, 5*time.Second, 10*time.Millisecond)

	// A run of another project is filtered out.
	resp, _ := e.post(t, "/v1/generate", "application/yaml", cycleDoc)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp, _ = e.post(t, "/v1/generate", "application/yaml", itemDoc)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for {
		var msg struct {
			Type string            `json:"type"`
			Data event.DomainEvent `json:"data"`
		}
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		require.Equal(t, "event", msg.Type)
		assert.Equal(t, "Inventory", msg.Data.Project)
		if msg.Data.EventType == event.TypeRunCompleted {
			return
		}
	}
}
