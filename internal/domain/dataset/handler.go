package dataset

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicpulse/clinicpulse/internal/domain/record"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/upload", h.Upload)
	api.POST("/clear", h.Clear)
}

// UploadResponse is the upload endpoint's envelope. Success false always
// pairs with a human-readable message.
type UploadResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	ProcessedRecords int    `json:"processed_records,omitempty"`
	DatasetID        string `json:"dataset_id,omitempty"`
}

func (h *Handler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, UploadResponse{Success: false, Message: "No file provided"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, UploadResponse{Success: false, Message: "Could not read uploaded file"})
	}
	defer f.Close()

	d, err := h.svc.Upload(c.Request().Context(), f)
	if err != nil {
		var verr *record.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, UploadResponse{Success: false, Message: verr.Error()})
		}
		return c.JSON(http.StatusInternalServerError, UploadResponse{Success: false, Message: err.Error()})
	}
	return c.JSON(http.StatusOK, UploadResponse{
		Success:          true,
		Message:          fmt.Sprintf("File uploaded successfully! Processed %d records.", len(d.Records)),
		ProcessedRecords: len(d.Records),
		DatasetID:        d.ID.String(),
	})
}

func (h *Handler) Clear(c echo.Context) error {
	if err := h.svc.Clear(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, UploadResponse{Success: false, Message: err.Error()})
	}
	return c.JSON(http.StatusOK, UploadResponse{
		Success: true,
		Message: "All patient data has been cleared successfully.",
	})
}
