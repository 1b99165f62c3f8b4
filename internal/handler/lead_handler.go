package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abhiyeduru/mentlearn-api/internal/dto"
	"github.com/abhiyeduru/mentlearn-api/internal/models"
	"github.com/abhiyeduru/mentlearn-api/internal/service"
	"github.com/abhiyeduru/mentlearn-api/pkg/response"
)

type leadService interface {
	Submit(ctx context.Context, kind models.LeadKind, req service.SubmitLeadRequest) (*models.Lead, error)
	List(ctx context.Context, actor models.Actor, filter models.LeadFilter) ([]models.Lead, *models.Pagination, error)
	SetStatus(ctx context.Context, actor models.Actor, id, rawStatus string) error
}

// LeadHandler exposes callback and partner request forms.
type LeadHandler struct {
	service leadService
}

// NewLeadHandler constructs a lead handler.
func NewLeadHandler(svc leadService) *LeadHandler {
	return &LeadHandler{service: svc}
}

// SubmitCallback godoc
// @Summary Request a callback
// @Tags Leads
// @Accept json
// @Produce json
// @Param payload body service.SubmitLeadRequest true "Lead payload"
// @Success 201 {object} response.Envelope
// @Router /leads/callback [post]
func (h *LeadHandler) SubmitCallback(c *gin.Context) {
	h.submit(c, models.LeadKindCallback)
}

// SubmitPartner godoc
// @Summary Submit a partnership request
// @Tags Leads
// @Accept json
// @Produce json
// @Param payload body service.SubmitLeadRequest true "Lead payload"
// @Success 201 {object} response.Envelope
// @Router /leads/partner [post]
func (h *LeadHandler) SubmitPartner(c *gin.Context) {
	h.submit(c, models.LeadKindPartner)
}

func (h *LeadHandler) submit(c *gin.Context, kind models.LeadKind) {
	var req service.SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	lead, err := h.service.Submit(c.Request.Context(), kind, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lead)
}

// List godoc
// @Summary List leads
// @Tags Leads
// @Produce json
// @Param kind query string false "callback or partner"
// @Param status query string false "Status filter"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /leads [get]
func (h *LeadHandler) List(c *gin.Context) {
	filter := models.LeadFilter{
		Kind:     models.LeadKind(strings.ToLower(c.Query("kind"))),
		Status:   models.RegistrationStatus(strings.ToLower(c.Query("status"))),
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "limit", 20),
	}
	leads, pagination, err := h.service.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leads, pagination)
}

// SetStatus godoc
// @Summary Set lead status
// @Tags Leads
// @Accept json
// @Param id path string true "Lead ID"
// @Param payload body dto.StatusUpdateRequest true "Status"
// @Success 204
// @Security BearerAuth
// @Router /leads/{id}/status [patch]
func (h *LeadHandler) SetStatus(c *gin.Context) {
	var req dto.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.service.SetStatus(c.Request.Context(), actorFromContext(c), c.Param("id"), req.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
