package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/researchcanvas/canvasd/internal/domain"
)

// CreateProjectRequest represents a project creation request
type CreateProjectRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// ResearchRequest represents a research run launch request
type ResearchRequest struct {
	Query   string            `json:"query" binding:"required"`
	Context map[string]string `json:"context"`
}

// PlanRequest represents a plan run launch request
type PlanRequest struct {
	Description  string   `json:"description" binding:"required"`
	ReferenceIDs []string `json:"reference_ids"`
}

// RunResponse represents a run launch response
type RunResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCreateProject handles project creation
func (s *Server) handleCreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	now := time.Now()
	project := &domain.Project{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Phase:       domain.PhaseResearch,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateProject(c.Request.Context(), project); err != nil {
		s.logger.Error("failed to create project", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: ErrorDetail{
				Code:    "CREATION_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, project)
}

// handleGetProject handles getting project details
func (s *Server) handleGetProject(c *gin.Context) {
	projectID := c.Param("id")

	project, err := s.store.GetProject(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Project not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, project)
}

// handleUpdateProject handles partial project updates
func (s *Server) handleUpdateProject(c *gin.Context) {
	projectID := c.Param("id")

	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	if err := s.store.UpdateProject(c.Request.Context(), projectID, updates); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: err.Error(),
			},
		})
		return
	}

	project, err := s.store.GetProject(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "STORE_ERROR",
				Message: err.Error(),
			},
		})
		return
	}
	c.JSON(http.StatusOK, project)
}

// handleListArtifacts handles listing a project's artifacts, optionally
// filtered by phase
func (s *Server) handleListArtifacts(c *gin.Context) {
	projectID := c.Param("id")
	phase := c.Query("phase")

	artifacts, err := s.store.GetArtifacts(c.Request.Context(), projectID, phase)
	if err != nil {
		s.logger.Error("failed to list artifacts",
			zap.String("project_id", projectID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "STORE_ERROR",
				Message: "Failed to retrieve artifacts",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"artifacts": artifacts,
		"total":     len(artifacts),
	})
}

// handleStartResearch launches a research run. The response returns
// immediately; progress streams over the project's event topic.
func (s *Server) handleStartResearch(c *gin.Context) {
	projectID := c.Param("id")

	var req ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	if _, err := s.store.GetProject(c.Request.Context(), projectID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Project not found",
			},
		})
		return
	}

	runID := s.pipeline.StartResearch(projectID, req.Query, req.Context)

	c.JSON(http.StatusAccepted, RunResponse{
		RunID:  runID,
		Status: "started",
	})
}

// handleStartPlan launches a plan run
func (s *Server) handleStartPlan(c *gin.Context) {
	projectID := c.Param("id")

	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	if _, err := s.store.GetProject(c.Request.Context(), projectID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Project not found",
			},
		})
		return
	}

	runID := s.pipeline.StartPlan(projectID, req.Description, req.ReferenceIDs)

	c.JSON(http.StatusAccepted, RunResponse{
		RunID:  runID,
		Status: "started",
	})
}

// handleGetRun handles run status queries. Completed runs leave the
// registry, so a miss means finished or never existed.
func (s *Server) handleGetRun(c *gin.Context) {
	runID := c.Param("id")

	status, ok := s.pipeline.GetRun(runID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Run not active",
			},
		})
		return
	}

	c.JSON(http.StatusOK, status)
}
