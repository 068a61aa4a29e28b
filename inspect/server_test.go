package inspect

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zeu5/dist-qlearning/scheduler"
	"github.com/zeu5/dist-qlearning/types"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testResult() *scheduler.Result {
	return &scheduler.Result{
		RunID:  "run-1",
		Config: scheduler.DefaultConfig(),
		Agents: []types.AgentResult{
			{ID: 0, Status: types.StatusCompleted, Episodes: 10, TotalReward: 3, Values: [][]float64{{0, 1, 1}, {2, 0, 0}}},
			{ID: 1, Status: types.StatusFailed, Episodes: 4, Error: "agent panicked"},
		},
	}
}

func get(t *testing.T, srv *httptest.Server, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestRoutes(t *testing.T) {
	store := NewStore()
	srv := httptest.NewServer(NewServer(":0", store, nil, quietLogger()).Handler())
	defer srv.Close()

	var health map[string]interface{}
	if code := get(t, srv, "/healthz", &health); code != http.StatusOK || health["has_run"] != false {
		t.Errorf("healthz = %d %v", code, health)
	}
	if code := get(t, srv, "/runs/latest", nil); code != http.StatusNotFound {
		t.Errorf("latest before any run = %d", code)
	}

	store.Set(testResult())

	var latest map[string]interface{}
	if code := get(t, srv, "/runs/latest", &latest); code != http.StatusOK || latest["run_id"] != "run-1" || latest["completed"] != 1.0 {
		t.Errorf("latest = %d %v", code, latest)
	}

	var agents []agentSummary
	if code := get(t, srv, "/runs/latest/agents", &agents); code != http.StatusOK || len(agents) != 2 {
		t.Fatalf("agents = %d %v", code, agents)
	}
	if agents[1].Status != "failed" || agents[1].Error == "" {
		t.Errorf("agent 1 = %+v", agents[1])
	}

	var agent types.AgentResult
	if code := get(t, srv, "/runs/latest/agents/0", &agent); code != http.StatusOK || agent.TotalReward != 3 || agent.Status != types.StatusCompleted {
		t.Errorf("agent 0 = %d %+v", code, agent)
	}

	var greedy struct {
		Agent   int   `json:"agent"`
		Actions []int `json:"actions"`
	}
	if code := get(t, srv, "/runs/latest/agents/0/greedy", &greedy); code != http.StatusOK {
		t.Fatalf("greedy = %d", code)
	}
	if len(greedy.Actions) != 2 || greedy.Actions[0] != 1 || greedy.Actions[1] != 0 {
		t.Errorf("greedy actions = %v", greedy.Actions)
	}

	for path, want := range map[string]int{
		"/runs/latest/agents/7":        http.StatusNotFound,
		"/runs/latest/agents/x":        http.StatusBadRequest,
		"/runs/latest/agents/1/greedy": http.StatusNotFound,
	} {
		if code := get(t, srv, path, nil); code != want {
			t.Errorf("%s = %d, want %d", path, code, want)
		}
	}
}

func TestStream(t *testing.T) {
	hub := NewHub(quietLogger())
	srv := httptest.NewServer(NewServer(":0", NewStore(), hub, quietLogger()).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Write(context.Background(), types.Transition{AgentID: 2, Episode: 5, Reward: 1})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var tr types.Transition
	if err := conn.ReadJSON(&tr); err != nil {
		t.Fatal(err)
	}
	if tr.AgentID != 2 || tr.Episode != 5 {
		t.Errorf("streamed %v", tr)
	}

	hub.Close()
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("read after close = %v", err)
	}

	resp, err := http.Get(srv.URL + "/stream")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("stream after close = %d", resp.StatusCode)
	}
}

func TestServerStartStops(t *testing.T) {
	s := NewServer("127.0.0.1:0", NewStore(), nil, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
