// Package inspect serves the results of learning runs over http and streams
// live transitions over a websocket.
package inspect

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeu5/dist-qlearning/scheduler"
	"github.com/zeu5/dist-qlearning/types"
	"gonum.org/v1/gonum/floats"
)

// Store keeps the latest completed run
type Store struct {
	mu     sync.RWMutex
	latest *scheduler.Result
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Set(res *scheduler.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = res
}

func (s *Store) Latest() (*scheduler.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

type Server struct {
	Addr   string
	store  *Store
	hub    *Hub
	server *http.Server
	logger *log.Logger
}

func NewServer(addr string, store *Store, hub *Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		Addr:   addr,
		store:  store,
		hub:    hub,
		logger: logger,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", s.handleHealth)
	r.GET("/runs/latest", s.handleLatest)
	r.GET("/runs/latest/agents", s.handleAgents)
	r.GET("/runs/latest/agents/:id", s.handleAgent)
	r.GET("/runs/latest/agents/:id/greedy", s.handleGreedy)
	if hub != nil {
		r.GET("/stream", func(c *gin.Context) {
			hub.ServeWS(c.Writer, c.Request)
		})
	}
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is done
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("inspection server listening on %s", s.Addr)
		errCh <- s.server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	_, ok := s.store.Latest()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "has_run": ok})
}

func (s *Server) latest(c *gin.Context) (*scheduler.Result, bool) {
	res, ok := s.store.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed run"})
	}
	return res, ok
}

func (s *Server) handleLatest(c *gin.Context) {
	res, ok := s.latest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":    res.RunID,
		"config":    res.Config,
		"bus":       res.Bus,
		"duration":  res.Duration.String(),
		"completed": res.Completed(),
		"agents":    len(res.Agents),
		"mean":      res.MeanReward(),
	})
}

type agentSummary struct {
	ID          int     `json:"id"`
	Status      string  `json:"status"`
	Episodes    int     `json:"episodes"`
	TotalReward float64 `json:"total_reward"`
	Received    int     `json:"received"`
	Error       string  `json:"error,omitempty"`
}

func (s *Server) handleAgents(c *gin.Context) {
	res, ok := s.latest(c)
	if !ok {
		return
	}
	out := make([]agentSummary, len(res.Agents))
	for i, a := range res.Agents {
		out[i] = agentSummary{
			ID:          a.ID,
			Status:      a.Status.String(),
			Episodes:    a.Episodes,
			TotalReward: a.TotalReward,
			Received:    a.Received,
			Error:       a.Error,
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) agent(c *gin.Context) (types.AgentResult, bool) {
	res, ok := s.latest(c)
	if !ok {
		return types.AgentResult{}, false
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agent id"})
		return types.AgentResult{}, false
	}
	a, ok := res.Agent(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown agent"})
	}
	return a, ok
}

func (s *Server) handleAgent(c *gin.Context) {
	a, ok := s.agent(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, a)
}

// handleGreedy returns the greedy action of every state, lowest index on ties
func (s *Server) handleGreedy(c *gin.Context) {
	a, ok := s.agent(c)
	if !ok {
		return
	}
	if len(a.Values) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "agent has no value table"})
		return
	}
	actions := make([]int, len(a.Values))
	for state, row := range a.Values {
		actions[state] = floats.MaxIdx(row)
	}
	c.JSON(http.StatusOK, gin.H{"agent": a.ID, "actions": actions})
}
