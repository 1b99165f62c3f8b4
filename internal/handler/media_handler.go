package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abhiyeduru/mentlearn-api/internal/dto"
	"github.com/abhiyeduru/mentlearn-api/internal/models"
	"github.com/abhiyeduru/mentlearn-api/internal/service"
	appErrors "github.com/abhiyeduru/mentlearn-api/pkg/errors"
	"github.com/abhiyeduru/mentlearn-api/pkg/response"
	"github.com/abhiyeduru/mentlearn-api/pkg/storage"
)

// multipart envelope allowance on top of the largest file size.
const multipartOverhead = 1 << 20

type mediaService interface {
	Limit(kind storage.MediaKind) int64
	Upload(ctx context.Context, actor models.Actor, kind storage.MediaKind, filename, contentType string, size int64, body io.Reader) (*service.MediaUpload, error)
}

// MediaHandler accepts banner and video uploads from staff.
type MediaHandler struct {
	service mediaService
}

// NewMediaHandler constructs a media handler.
func NewMediaHandler(svc mediaService) *MediaHandler {
	return &MediaHandler{service: svc}
}

// Upload godoc
// @Summary Upload an image or video
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param kind formData string true "image or video"
// @Param file formData file true "Media file"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Security BearerAuth
// @Router /media [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	maxBody := h.service.Limit(storage.MediaKindVideo) + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, "upload exceeds size limit"))
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	kind := storage.MediaKind(strings.ToLower(strings.TrimSpace(c.PostForm("kind"))))

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	upload, err := h.service.Upload(c.Request.Context(), actorFromContext(c), kind, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), fileHeader.Size, src)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.MediaUploadResponse{
		URL:         upload.URL,
		Key:         upload.Key,
		Kind:        string(upload.Kind),
		ContentType: upload.ContentType,
		Size:        upload.Size,
	})
}
