package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/kinface/internal/backend/database"
	"github.com/jo-hoe/kinface/internal/core"
	"github.com/jo-hoe/kinface/internal/verify"
)

// CompareRequest carries the optional settings of an API comparison.
// The three images travel as multipart files named father, mother and
// child.
type CompareRequest struct {
	Model  string `form:"model" validate:"omitempty,oneof=Facenet VGG-Face Facenet512 OpenFace DeepFace DeepID ArcFace Dlib SFace"`
	Metric string `form:"metric" validate:"omitempty,oneof=cosine euclidean euclidean_l2"`
}

// ErrorResponse is the JSON error body of the API.
type ErrorResponse struct {
	Error string `json:"error"`
}

type APIService struct {
	coreService *core.CoreService
}

func NewAPIService(coreService *core.CoreService) *APIService {
	return &APIService{coreService: coreService}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.GET("/probe", s.probeHandler)
	e.POST("/api/compare", s.compareHandler)
}

func (s *APIService) probeHandler(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "OK")
}

// compareHandler runs a stateless comparison over three uploaded images.
func (s *APIService) compareHandler(ctx echo.Context) error {
	var req CompareRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := ctx.Validate(&req); err != nil {
		return err
	}
	if req.Model == "" {
		req.Model = verify.DefaultModel
	}
	if req.Metric == "" {
		req.Metric = verify.DefaultDistanceMetric
	}

	images := make(map[string][]byte, len(database.Roles))
	for _, role := range database.Roles {
		data, err := readFormFile(ctx, role)
		if err != nil {
			slog.Warn("compareHandler: missing or unreadable image",
				"status", http.StatusBadRequest, "role", role, "error", err)
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("images for father, mother and child are required; %s is missing or unreadable", role),
			})
		}
		images[role] = data
	}

	outcome, err := s.coreService.CompareImages(ctx.Request().Context(),
		images[database.RoleFather], images[database.RoleMother], images[database.RoleChild],
		req.Model, req.Metric)
	switch {
	case errors.Is(err, verify.ErrNoFace):
		slog.Warn("compareHandler: face detection failed",
			"status", http.StatusUnprocessableEntity, "error", err)
		return ctx.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: "something is wrong with one of the pictures, upload them again",
		})
	case errors.Is(err, core.ErrInvalidImage):
		slog.Warn("compareHandler: invalid image",
			"status", http.StatusBadRequest, "error", err)
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case err != nil:
		slog.Error("compareHandler: comparison failed",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "comparison failed"})
	}

	return ctx.JSON(http.StatusOK, outcome)
}

// readFormFile reads one multipart file field fully into memory.
func readFormFile(ctx echo.Context, field string) ([]byte, error) {
	fileHeader, err := ctx.FormFile(field)
	if err != nil {
		return nil, err
	}
	return readMultipartFile(fileHeader)
}

func readMultipartFile(fileHeader *multipart.FileHeader) ([]byte, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("failed to close uploaded file reader", "error", cerr, "filename", fileHeader.Filename)
		}
	}()
	return io.ReadAll(src)
}
