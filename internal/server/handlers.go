package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/magpsaad/partner-calculator/internal/auth"
	"github.com/magpsaad/partner-calculator/internal/middleware"
	"github.com/magpsaad/partner-calculator/internal/models"
	"github.com/magpsaad/partner-calculator/internal/storage"
)

// WorkspaceHandler serves workspace creation, login, and the document
// get/set/subscribe contract.
type WorkspaceHandler struct {
	store         storage.DocumentStore
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	hub           *Hub
}

// NewWorkspaceHandler wires the handler with its collaborators.
func NewWorkspaceHandler(store storage.DocumentStore, authenticator auth.Authenticator, jwtManager *auth.JWTManager) *WorkspaceHandler {
	return &WorkspaceHandler{
		store:         store,
		authenticator: authenticator,
		jwtManager:    jwtManager,
		hub:           NewHub(),
	}
}

type credentialRequest struct {
	Password string `json:"password" binding:"required"`
}

type documentResponse struct {
	State       *models.Workspace `json:"state"`
	LastUpdated int64             `json:"lastUpdated"`
}

// Create registers a new workspace guarded by the supplied password and
// returns its id.
func (h *WorkspaceHandler) Create(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password required"})
		return
	}

	workspaceID, err := h.authenticator.CreateWorkspace(c.Request.Context(), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("CreateWorkspace failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create workspace"})
		return
	}

	slog.Info("Workspace created", "workspace_id", workspaceID)
	c.JSON(http.StatusCreated, gin.H{"workspaceId": workspaceID})
}

// Login verifies the workspace password and returns a session token along
// with the current document, saving the client a second round trip.
func (h *WorkspaceHandler) Login(c *gin.Context) {
	workspaceID := c.Param("id")

	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password required"})
		return
	}

	if err := h.authenticator.Authenticate(c.Request.Context(), workspaceID, req.Password); err != nil {
		slog.Warn("Login failed", "workspace_id", workspaceID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidCredentials.Error()})
		return
	}

	token, err := h.jwtManager.Generate(workspaceID)
	if err != nil {
		slog.Error("Failed to generate token", "workspace_id", workspaceID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	state, lastUpdated, err := h.store.State(c.Request.Context(), workspaceID)
	if err != nil {
		slog.Error("Failed to load state after login", "workspace_id", workspaceID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load workspace"})
		return
	}

	slog.Info("Workspace login", "workspace_id", workspaceID)
	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"state":       state,
		"lastUpdated": lastUpdated,
	})
}

// GetDocument returns the current workspace document.
func (h *WorkspaceHandler) GetDocument(c *gin.Context) {
	workspaceID := middleware.WorkspaceID(c)

	state, lastUpdated, err := h.store.State(c.Request.Context(), workspaceID)
	if err != nil {
		if errors.Is(err, storage.ErrWorkspaceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workspace not found"})
			return
		}
		slog.Error("GetDocument failed", "workspace_id", workspaceID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load workspace"})
		return
	}

	c.JSON(http.StatusOK, documentResponse{State: state, LastUpdated: lastUpdated})
}

// SetDocument overwrites the workspace document with the request body and
// pushes the confirmed state to every subscriber, the writer's included.
// Last write wins at document granularity; there is no field-level merge.
func (h *WorkspaceHandler) SetDocument(c *gin.Context) {
	workspaceID := middleware.WorkspaceID(c)

	state := models.NewWorkspace()
	if err := c.ShouldBindJSON(state); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed document"})
		return
	}

	lastUpdated, err := h.store.SetState(c.Request.Context(), workspaceID, state)
	if err != nil {
		if errors.Is(err, storage.ErrWorkspaceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workspace not found"})
			return
		}
		slog.Error("SetDocument failed", "workspace_id", workspaceID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save workspace"})
		return
	}

	middleware.CountDocumentWrite()
	h.hub.Broadcast(workspaceID, state)

	c.JSON(http.StatusOK, gin.H{"lastUpdated": lastUpdated})
}

// Events streams document snapshots over SSE: the current state on
// connect, then one event per confirmed write until the client goes away.
func (h *WorkspaceHandler) Events(c *gin.Context) {
	workspaceID := middleware.WorkspaceID(c)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	// Register before reading the initial state so a write landing in
	// between is not missed.
	ch, cancel := h.hub.Subscribe(workspaceID)
	defer cancel()

	state, _, err := h.store.State(c.Request.Context(), workspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load workspace"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	if err := writeSnapshotEvent(c.Writer, state); err != nil {
		return
	}
	flusher.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-ch:
			if snapshot == nil {
				return
			}
			if err := writeSnapshotEvent(c.Writer, snapshot); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, state *models.Workspace) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
	return err
}
