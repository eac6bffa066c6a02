package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lumisproject/digital-twin-project-oracle/internal/index"
	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
	"github.com/lumisproject/digital-twin-project-oracle/internal/syncer"
)

// WebhookRequest is the part of a push notification we read.
type WebhookRequest struct {
	After string `json:"after"`
}

// WebhookResponse acknowledges a notification.
type WebhookResponse struct {
	Status string `json:"status"`
	Commit string `json:"commit,omitempty"`
}

// AskRequest carries a question.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse carries the answer and the units it was based on.
type AskResponse struct {
	Answer string   `json:"answer"`
	Units  []string `json:"units"`
}

// SyncRequest optionally names the commit a manual sync is for.
type SyncRequest struct {
	Commit string `json:"commit"`
}

// SyncResponse reports what a manual sync did.
type SyncResponse struct {
	Status   string `json:"status"`
	Commit   string `json:"commit"`
	Units    int    `json:"units"`
	Reused   int    `json:"reused"`
	Enriched int    `json:"enriched"`
	Dropped  int    `json:"dropped"`
	Removed  int    `json:"removed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleWebhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	commit := strings.TrimSpace(req.After)
	if commit == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "missing after"})
		return
	}

	st, err := s.syncer.Trigger(commit)
	if err != nil {
		s.logger.Error("webhook trigger failed", "commit", commit, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	code := http.StatusAccepted
	if st == syncer.StatusAlreadySynced {
		code = http.StatusOK
	}
	c.JSON(code, WebhookResponse{Status: string(st), Commit: commit})
}

// handleSync runs a sync and waits for it. An empty body syncs to the
// remote head.
func (s *Server) handleSync(c *gin.Context) {
	var req SyncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid json"})
			return
		}
	}
	commit := strings.TrimSpace(req.Commit)

	res, err := s.syncer.SyncNow(c.Request.Context(), commit)
	switch {
	case errors.Is(err, syncer.ErrBusy):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, index.ErrTransport):
		s.logger.Error("manual sync failed", "commit", commit, "error", err)
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	case err != nil:
		s.logger.Error("manual sync failed", "commit", commit, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	status := "synced"
	if res.UpToDate {
		status = string(syncer.StatusAlreadySynced)
	}
	c.JSON(http.StatusOK, SyncResponse{
		Status:   status,
		Commit:   res.Commit,
		Units:    res.Units,
		Reused:   res.Reused,
		Enriched: res.Enriched,
		Dropped:  res.Dropped,
		Removed:  res.Removed,
	})
}

func (s *Server) status() (StatusResponse, error) {
	state := s.syncer.State()
	return BuildStatus(s.store, &state)
}

func (s *Server) handleStatus(c *gin.Context) {
	resp, err := s.status()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHome(c *gin.Context) {
	resp, err := s.status()
	if err != nil {
		c.String(http.StatusInternalServerError, "store unreadable: %v", err)
		return
	}
	c.HTML(http.StatusOK, "status", resp)
}

func (s *Server) handleAsk(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "missing question"})
		return
	}

	ans, err := s.asker.Ask(c.Request.Context(), req.Question)
	if errors.Is(err, store.ErrNoKnowledge) {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("ask failed", "error", err)
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	units := make([]string, 0, len(ans.Context))
	for _, b := range ans.Context {
		units = append(units, b.Unit.ID)
	}
	c.JSON(http.StatusOK, AskResponse{Answer: ans.Text, Units: units})
}
