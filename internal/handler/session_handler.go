package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abhiyeduru/mentlearn-api/internal/dto"
	"github.com/abhiyeduru/mentlearn-api/internal/middleware"
	"github.com/abhiyeduru/mentlearn-api/internal/models"
	"github.com/abhiyeduru/mentlearn-api/internal/service"
	"github.com/abhiyeduru/mentlearn-api/pkg/response"
)

type sessionService interface {
	ListActive(ctx context.Context) ([]models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.SessionSummary, *models.Pagination, error)
	Stats(ctx context.Context) (*models.SessionStats, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Create(ctx context.Context, actor models.Actor, req service.CreateSessionRequest) (*models.Session, error)
	Update(ctx context.Context, actor models.Actor, id string, req service.UpdateSessionRequest) (*models.Session, error)
	ToggleActive(ctx context.Context, actor models.Actor, id string) (*models.Session, error)
	ToggleLive(ctx context.Context, actor models.Actor, id string) (*models.Session, error)
	SetLive(ctx context.Context, actor models.Actor, id string, isLive bool) (*models.Session, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

// SessionHandler exposes the session catalog.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(svc sessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// ListActive godoc
// @Summary List sessions open for registration
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/active [get]
func (h *SessionHandler) ListActive(c *gin.Context) {
	sessions, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil, middleware.ExtractMeta(c))
}

// List godoc
// @Summary List sessions with registration counts
// @Tags Sessions
// @Produce json
// @Param active query bool false "Filter by active flag"
// @Param live query bool false "Filter by live flag"
// @Param search query string false "Search title or instructor"
// @Param sort query string false "title, date or created_at"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	var filter models.SessionFilter
	var err error
	if filter.Active, err = parseQueryBool(c, "active"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.Live, err = parseQueryBool(c, "live"); err != nil {
		response.Error(c, err)
		return
	}
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page = parseQueryInt(c, "page", 1)
	filter.PageSize = parseQueryInt(c, "limit", 20)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	sessions, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination, middleware.ExtractMeta(c))
}

// Stats godoc
// @Summary Catalog counters
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/stats [get]
func (h *SessionHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Get godoc
// @Summary Get session detail
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Create godoc
// @Summary Create session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	session, err := h.service.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Update godoc
// @Summary Partially update session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.UpdateSessionRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/{id} [patch]
func (h *SessionHandler) Update(c *gin.Context) {
	var req service.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	session, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// ToggleActive godoc
// @Summary Flip the active flag
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/{id}/toggle-active [post]
func (h *SessionHandler) ToggleActive(c *gin.Context) {
	session, err := h.service.ToggleActive(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// ToggleLive godoc
// @Summary Flip the live flag
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/{id}/toggle-live [post]
func (h *SessionHandler) ToggleLive(c *gin.Context) {
	session, err := h.service.ToggleLive(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// SetLive godoc
// @Summary Set the live flag
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SetLiveRequest true "Live flag"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/{id}/live [put]
func (h *SessionHandler) SetLive(c *gin.Context) {
	var req dto.SetLiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	session, err := h.service.SetLive(c.Request.Context(), actorFromContext(c), c.Param("id"), *req.IsLive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Delete godoc
// @Summary Delete session
// @Description Registrations referencing the session are kept.
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Security BearerAuth
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
