package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/models"
)

// ProposalView is the read side of a sync session
type ProposalView interface {
	ListProposals(filter domain.ProposalFilter) []*models.ProposalRecord
	GetProposal(id models.ProposalID) (*models.ProposalRecord, error)
	IsExecutable(id models.ProposalID) (bool, error)
	CurrentHeight() uint64
	CurrentTime() uint64
}

// Server exposes the proposal cache over a read-only HTTP API
type Server struct {
	engine     *gin.Engine
	listenAddr string
	log        *slog.Logger

	mu   sync.RWMutex
	view ProposalView

	srv *http.Server
}

type statusResponse struct {
	Height    uint64 `json:"height"`
	LedgerNow uint64 `json:"ledgerNow"`
	Proposals int    `json:"proposals"`
}

type proposalListResponse struct {
	Proposals []*models.ProposalRecord `json:"proposals"`
	Total     int                      `json:"total"`
}

type executableResponse struct {
	ID         models.ProposalID `json:"id"`
	Executable bool              `json:"executable"`
	ETA        uint64            `json:"eta"`
	LedgerNow  uint64            `json:"ledgerNow"`
}

// NewServer creates the API server. registry may be nil to omit /metrics.
func NewServer(listenAddr string, registry *prometheus.Registry, log *slog.Logger) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	s := &Server{
		engine:     r,
		listenAddr: listenAddr,
		log:        log.With("component", "httpapi"),
	}
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/status", s.handleStatus)
	s.engine.GET("/proposals", s.handleListProposals)
	s.engine.GET("/proposals/:id", s.handleGetProposal)
	s.engine.GET("/proposals/:id/executable", s.handleExecutable)
	if registry != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	s.srv = &http.Server{
		Addr:              listenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// SetView swaps the session backing the API
func (s *Server) SetView(view ProposalView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = view
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.log.Info("serving proposal API", "addr", s.listenAddr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) currentView(c *gin.Context) (ProposalView, bool) {
	s.mu.RLock()
	view := s.view
	s.mu.RUnlock()
	if view == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session not ready"})
		return nil, false
	}
	return view, true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleStatus(c *gin.Context) {
	view, ok := s.currentView(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, statusResponse{
		Height:    view.CurrentHeight(),
		LedgerNow: view.CurrentTime(),
		Proposals: len(view.ListProposals(domain.ProposalFilter{})),
	})
}

func (s *Server) handleListProposals(c *gin.Context) {
	view, ok := s.currentView(c)
	if !ok {
		return
	}

	filter := domain.ProposalFilter{Proposer: c.Query("proposer")}
	if raw := c.Query("state"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			state, err := models.ParseProposalState(name)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			filter.States = append(filter.States, state)
		}
	}

	proposals := view.ListProposals(filter)
	c.JSON(http.StatusOK, proposalListResponse{Proposals: proposals, Total: len(proposals)})
}

func (s *Server) handleGetProposal(c *gin.Context) {
	view, ok := s.currentView(c)
	if !ok {
		return
	}
	rec, err := view.GetProposal(models.ProposalID(c.Param("id")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleExecutable(c *gin.Context) {
	view, ok := s.currentView(c)
	if !ok {
		return
	}
	id := models.ProposalID(c.Param("id"))
	rec, err := view.GetProposal(id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	executable, err := view.IsExecutable(id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, executableResponse{
		ID:         id,
		Executable: executable,
		ETA:        rec.ETA,
		LedgerNow:  view.CurrentTime(),
	})
}

func (s *Server) writeError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.log.Warn("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
