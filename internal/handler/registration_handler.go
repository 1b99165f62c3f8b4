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

type registrationService interface {
	Submit(ctx context.Context, req service.SubmitRegistrationRequest) (*models.Registration, error)
	List(ctx context.Context, actor models.Actor, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error)
	SetStatus(ctx context.Context, actor models.Actor, id, rawStatus string) (*models.Registration, error)
}

type registrationExporter interface {
	RegistrationsCSV(ctx context.Context, actor models.Actor, filter models.RegistrationFilter) (*service.ExportFile, error)
}

// RegistrationHandler exposes registration intake and triage.
type RegistrationHandler struct {
	service  registrationService
	exporter registrationExporter
}

// NewRegistrationHandler constructs a registration handler.
func NewRegistrationHandler(svc registrationService, exporter registrationExporter) *RegistrationHandler {
	return &RegistrationHandler{service: svc, exporter: exporter}
}

// Submit godoc
// @Summary Register for a session
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.SubmitRegistrationRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Submit(c *gin.Context) {
	var req service.SubmitRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	registration, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registration)
}

// List godoc
// @Summary List registrations
// @Tags Registrations
// @Produce json
// @Param sessionId query string false "Session ID"
// @Param status query string false "pending, contacted, confirmed or cancelled"
// @Param search query string false "Name, email or session title"
// @Param order query string false "asc or desc by registration time"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	filter := registrationFilterFromQuery(c)
	filter.Page = parseQueryInt(c, "page", 1)
	filter.PageSize = parseQueryInt(c, "limit", 20)
	filter.SortOrder = c.Query("order")

	registrations, pagination, err := h.service.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registrations, pagination, middleware.ExtractMeta(c))
}

// SetStatus godoc
// @Summary Set registration status
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body dto.StatusUpdateRequest true "Status"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/{id}/status [patch]
func (h *RegistrationHandler) SetStatus(c *gin.Context) {
	var req dto.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	registration, err := h.service.SetStatus(c.Request.Context(), actorFromContext(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}

// ExportCSV godoc
// @Summary Download registrations as CSV
// @Description Applies the same filters as the listing.
// @Tags Registrations
// @Produce text/csv
// @Param sessionId query string false "Session ID"
// @Param status query string false "Status filter"
// @Param search query string false "Search keyword"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /registrations/export.csv [get]
func (h *RegistrationHandler) ExportCSV(c *gin.Context) {
	file, err := h.exporter.RegistrationsCSV(c.Request.Context(), actorFromContext(c), registrationFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

func registrationFilterFromQuery(c *gin.Context) models.RegistrationFilter {
	return models.RegistrationFilter{
		SessionID: strings.TrimSpace(c.Query("sessionId")),
		Status:    models.RegistrationStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		Search:    strings.TrimSpace(c.Query("search")),
	}
}
