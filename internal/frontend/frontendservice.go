package frontend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/kinface/internal/backend/database"
	"github.com/jo-hoe/kinface/internal/chart"
	"github.com/jo-hoe/kinface/internal/common"
	"github.com/jo-hoe/kinface/internal/core"
	"github.com/jo-hoe/kinface/internal/match"
	"github.com/jo-hoe/kinface/internal/pipeline"
	"github.com/jo-hoe/kinface/internal/verify"
)

const (
	MainPageName      = "index.html"
	sessionCookieName = "kinface_session"
	mimePNG           = "image/png"
)

// roleView describes one upload slot on the page.
type roleView struct {
	Role  string
	Label string
}

var roleViews = []roleView{
	{Role: database.RoleFather, Label: "Father"},
	{Role: database.RoleChild, Label: "Child"},
	{Role: database.RoleMother, Label: "Mother"},
}

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = newRenderer()

	e.GET("/", service.rootRedirectHandler) // Redirect root to index.html
	e.GET("/"+MainPageName, service.indexHandler)

	e.POST("/htmx/upload/:role", service.htmxUploadImageHandler)
	e.GET("/htmx/image/:role/thumb", service.htmxThumbnailHandler)
	e.POST("/htmx/try", service.htmxTryHandler)
	e.POST("/htmx/reset", service.htmxResetHandler)
	e.POST("/htmx/compare", service.htmxCompareHandler)
	e.GET("/chart.png", service.chartPNGHandler)

	// Favicon (SVG) route
	e.GET("/icon.svg", service.iconHandler)
}

type indexData struct {
	ShowSamples bool
	Model       string
	Metric      string
	Models      []string
	Metrics     []string
	Roles       []roleView
	Timestamp   string
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	sessionID, err := service.sessionID(ctx)
	if err != nil {
		slog.Error("indexHandler: failed to establish session",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to establish session")
	}

	state, err := service.coreService.State(ctx.Request().Context(), sessionID)
	if err != nil {
		slog.Error("indexHandler: failed to load session state",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load session")
	}

	return ctx.Render(http.StatusOK, MainPageName, indexData{
		ShowSamples: state.ShowSamples(),
		Model:       state.Model,
		Metric:      state.Metric,
		Models:      verify.Models,
		Metrics:     verify.DistanceMetrics,
		Roles:       roleViews,
		Timestamp:   service.timestampNanoStr(),
	})
}

func (service *FrontendService) htmxUploadImageHandler(ctx echo.Context) error {
	role := ctx.Param("role")
	if !database.ValidRole(role) {
		slog.Warn("htmxUploadImageHandler: invalid role",
			"status", http.StatusBadRequest, "role", role)
		return ctx.String(http.StatusBadRequest, "Unknown upload slot")
	}

	sessionID, err := service.sessionID(ctx)
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to establish session",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to establish session")
	}

	// Get uploaded file
	file, err := ctx.FormFile("image")
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to get uploaded file",
			"status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Failed to get uploaded file")
	}

	src, err := file.Open()
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to open uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to open uploaded file")
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("htmxUploadImageHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	image, err := io.ReadAll(src)
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to read uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to read uploaded file")
	}

	if _, err := service.coreService.StoreUpload(sessionID, role, image); err != nil {
		if errors.Is(err, core.ErrInvalidImage) {
			slog.Warn("htmxUploadImageHandler: invalid image",
				"status", http.StatusBadRequest, "error", err, "filename", file.Filename)
			return ctx.HTML(http.StatusBadRequest,
				`<p class="error">The file is not a valid image. Upload a png, jpg or jpeg photo.</p>`)
		}
		slog.Error("htmxUploadImageHandler: failed to store uploaded image",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to process uploaded image")
	}

	// Replace the slot content with the fresh thumbnail.
	html := fmt.Sprintf(
		`<img src="/htmx/image/%s/thumb?ts=%s" alt="%s"><small>%s</small>`,
		role, service.timestampNanoStr(), role, file.Filename)
	return ctx.HTML(http.StatusOK, html)
}

func (service *FrontendService) htmxThumbnailHandler(ctx echo.Context) error {
	role := ctx.Param("role")
	if !database.ValidRole(role) {
		slog.Warn("htmxThumbnailHandler: invalid role",
			"status", http.StatusBadRequest, "role", role)
		return ctx.String(http.StatusBadRequest, "Unknown upload slot")
	}

	sessionID, err := service.sessionID(ctx)
	if err != nil {
		return ctx.String(http.StatusInternalServerError, "Failed to establish session")
	}

	image, err := service.coreService.Upload(ctx.Request().Context(), sessionID, role)
	if err != nil || len(image.NormalizedImage) == 0 {
		slog.Warn("htmxThumbnailHandler: image not available",
			"status", http.StatusNotFound, "role", role, "error", err)
		return ctx.String(http.StatusNotFound, "Image not available")
	}

	thumbnail, err := service.toThumbnail(image.NormalizedImage)
	if err != nil || len(thumbnail) == 0 {
		slog.Warn("htmxThumbnailHandler: thumbnail not available",
			"status", http.StatusNotFound, "role", role, "error", err)
		return ctx.String(http.StatusNotFound, "Thumbnail not available")
	}

	// Prevent caching
	service.setNoCache(ctx)

	return ctx.Blob(http.StatusOK, mimePNG, thumbnail)
}

// htmxTryHandler switches the session from the bundled sample photos to
// user uploads.
func (service *FrontendService) htmxTryHandler(ctx echo.Context) error {
	sessionID, err := service.sessionID(ctx)
	if err != nil {
		return ctx.String(http.StatusInternalServerError, "Failed to establish session")
	}

	if _, err := service.coreService.RegisterClick(ctx.Request().Context(), sessionID); err != nil {
		slog.Error("htmxTryHandler: failed to register click",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to update session")
	}

	return service.renderUploadArea(ctx)
}

// htmxResetHandler discards the session's uploads and shows the bundled
// sample photos again.
func (service *FrontendService) htmxResetHandler(ctx echo.Context) error {
	sessionID, err := service.sessionID(ctx)
	if err != nil {
		return ctx.String(http.StatusInternalServerError, "Failed to establish session")
	}

	if _, err := service.coreService.ResetSession(ctx.Request().Context(), sessionID); err != nil {
		slog.Error("htmxResetHandler: failed to reset session",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to reset session")
	}

	return service.renderSampleArea(ctx)
}

func (service *FrontendService) htmxCompareHandler(ctx echo.Context) error {
	sessionID, err := service.sessionID(ctx)
	if err != nil {
		return ctx.String(http.StatusInternalServerError, "Failed to establish session")
	}
	requestCtx := ctx.Request().Context()

	// Persist the current selector values so both verification calls
	// run with the same parameters.
	model := ctx.FormValue("model")
	metric := ctx.FormValue("metric")
	if model != "" || metric != "" {
		if model == "" {
			model = verify.DefaultModel
		}
		if metric == "" {
			metric = verify.DefaultDistanceMetric
		}
		if err := service.coreService.UpdateSettings(requestCtx, sessionID, model, metric); err != nil {
			slog.Warn("htmxCompareHandler: invalid settings",
				"status", http.StatusBadRequest, "model", model, "metric", metric, "error", err)
			return ctx.HTML(http.StatusBadRequest, `<p class="error">Unknown model or distance metric.</p>`)
		}
	}

	outcome, err := service.coreService.Compare(requestCtx, sessionID)
	switch {
	case errors.Is(err, core.ErrMissingImage):
		slog.Warn("htmxCompareHandler: images missing")
		return ctx.HTML(http.StatusOK,
			`<p class="error">Upload pictures of father, mother and child to get started.</p>`)
	case errors.Is(err, verify.ErrNoFace):
		slog.Warn("htmxCompareHandler: face detection failed", "error", err)
		return ctx.HTML(http.StatusOK,
			`<p class="error">Something is wrong with one of the pictures. Upload them again.</p>`)
	case err != nil:
		slog.Error("htmxCompareHandler: comparison failed",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to analyze the images")
	}

	service.setNoCache(ctx)
	return ctx.HTML(http.StatusOK, service.buildResultHTML(outcome))
}

func (service *FrontendService) chartPNGHandler(ctx echo.Context) error {
	sessionID, err := service.sessionID(ctx)
	if err != nil {
		return ctx.String(http.StatusInternalServerError, "Failed to establish session")
	}

	state, err := service.coreService.State(ctx.Request().Context(), sessionID)
	if err != nil {
		slog.Error("chartPNGHandler: failed to load session state", "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load session")
	}
	if state.LastOutcome == nil {
		slog.Warn("chartPNGHandler: no comparison run yet", "status", http.StatusNotFound)
		return ctx.String(http.StatusNotFound, "Run a comparison first")
	}

	svg := chart.SimilaritySVG(*state.LastOutcome, chart.DefaultWidth, chart.DefaultHeight)
	data, err := chart.RenderPNG(svg, chart.DefaultWidth, chart.DefaultHeight)
	if err != nil {
		slog.Error("chartPNGHandler: failed to render chart",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to render chart")
	}

	service.setNoCache(ctx)
	return ctx.Blob(http.StatusOK, mimePNG, data)
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}

// renderUploadArea builds the three upload slots with file inputs,
// shown once the session has left sample mode.
func (service *FrontendService) renderUploadArea(ctx echo.Context) error {
	html := `<div id="upload-area"><div class="grid">`
	for _, view := range roleViews {
		html += fmt.Sprintf(
			`<article><header>%s</header><div id="slot-%s"></div>
<form hx-post="/htmx/upload/%s" hx-target="#slot-%s" hx-encoding="multipart/form-data">
	<input type="file" name="image" accept=".png,.jpg,.jpeg" required>
	<button type="submit">Upload</button>
</form></article>`,
			view.Label, view.Role, view.Role, view.Role)
	}
	html += `</div><button class="secondary" hx-post="/htmx/reset" hx-target="#upload-area" hx-swap="outerHTML">Start over.</button></div>`

	service.setNoCache(ctx)
	return ctx.HTML(http.StatusOK, html)
}

// renderSampleArea mirrors the sample branch of the index template,
// used when a reset swaps the page back to the bundled photos.
func (service *FrontendService) renderSampleArea(ctx echo.Context) error {
	timestamp := service.timestampNanoStr()
	html := `<div id="upload-area"><div class="grid">`
	for _, view := range roleViews {
		html += fmt.Sprintf(
			`<article><header>%s</header><img src="/htmx/image/%s/thumb?ts=%s" alt="%s sample"></article>`,
			view.Label, view.Role, timestamp, view.Role)
	}
	html += `</div><button hx-post="/htmx/try" hx-target="#upload-area" hx-swap="outerHTML">Try it yourself.</button></div>`

	service.setNoCache(ctx)
	return ctx.HTML(http.StatusOK, html)
}

// buildResultHTML embeds the similarity chart and names the winning parent.
func (service *FrontendService) buildResultHTML(outcome *match.Outcome) string {
	verdict := "The child looks more like father."
	if outcome.MoreSimilar == match.ParentMother {
		verdict = "The child looks more like mother."
	}

	svg := chart.SimilaritySVG(*outcome, chart.DefaultWidth, chart.DefaultHeight)
	return fmt.Sprintf(
		`<div id="comparison-result">%s<p class="success">%s</p><a href="/chart.png" download="similarity.png">Download chart</a></div>`,
		svg, verdict)
}

func (service *FrontendService) toThumbnail(image []byte) ([]byte, error) {
	command, err := pipeline.NewDownscaleCommandDirect(service.config.ThumbnailWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail command: %w", err)
	}
	thumbnail, err := command.Execute(image)
	if err != nil {
		return nil, fmt.Errorf("failed to generate thumbnail: %w", err)
	}
	return thumbnail, nil
}

// sessionID returns the browser session identifier, creating the cookie
// on first contact.
func (service *FrontendService) sessionID(ctx echo.Context) (string, error) {
	cookie, err := ctx.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	id, err := common.NewID()
	if err != nil {
		return "", err
	}
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) timestampNanoStr() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
