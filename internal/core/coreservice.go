package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jo-hoe/kinface/internal/backend/database"
	"github.com/jo-hoe/kinface/internal/match"
	"github.com/jo-hoe/kinface/internal/pipeline"
	"github.com/jo-hoe/kinface/internal/session"
	"github.com/jo-hoe/kinface/internal/verify"
)

// ErrMissingImage is returned when a comparison is requested before all
// three family photos are present.
var ErrMissingImage = errors.New("comparison requires father, mother and child images")

// ErrInvalidImage is returned when an upload cannot be decoded as an image.
var ErrInvalidImage = errors.New("image could not be decoded")

const sweepInterval = 10 * time.Minute

// CoreService wires the verifier, upload store, session store and
// upload pipeline together and runs the family comparison.
type CoreService struct {
	config          *ServiceConfig
	verifier        verify.Verifier
	databaseService database.DatabaseService
	sessionStore    session.Store
	sweepStop       chan struct{}
}

func NewCoreService(config *ServiceConfig, verifier verify.Verifier) *CoreService {
	databaseService, err := getDatabaseService(config)
	if err != nil {
		slog.Error("failed to initialize database service", "error", err)
		panic(err)
	}

	sessionStore, err := session.NewRedisStore(config.Session.RedisAddress, sessionTTL(config))
	if err != nil {
		slog.Error("failed to initialize session store", "error", err)
		panic(err)
	}

	service := &CoreService{
		config:          config,
		verifier:        verifier,
		databaseService: databaseService,
		sessionStore:    sessionStore,
		sweepStop:       make(chan struct{}),
	}
	go service.sweepExpired()
	return service
}

func (service *CoreService) Close() error {
	close(service.sweepStop)
	return errors.Join(
		service.databaseService.Close(),
		service.sessionStore.Close(),
	)
}

// Config exposes the loaded service configuration to the HTTP layers.
func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

// State loads the session state, falling back to defaults for new or
// expired sessions.
func (service *CoreService) State(ctx context.Context, sessionID string) (*session.State, error) {
	return service.sessionStore.Get(ctx, sessionID)
}

// RegisterClick increments the session click counter, switching the
// page from sample images to user uploads.
func (service *CoreService) RegisterClick(ctx context.Context, sessionID string) (*session.State, error) {
	state, err := service.sessionStore.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state.Clicks++
	if err := service.sessionStore.Save(ctx, sessionID, state); err != nil {
		return nil, err
	}
	return state, nil
}

// UpdateSettings stores the model and metric selection for the session.
// Both verification calls of a comparison read the same stored values,
// so they always run with identical parameters.
func (service *CoreService) UpdateSettings(ctx context.Context, sessionID, model, metric string) error {
	if !verify.IsSupportedModel(model) {
		return fmt.Errorf("unsupported model: %s", model)
	}
	if !verify.IsSupportedMetric(metric) {
		return fmt.Errorf("unsupported distance metric: %s", metric)
	}

	state, err := service.sessionStore.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	state.Model = model
	state.Metric = metric
	return service.sessionStore.Save(ctx, sessionID, state)
}

// ResetSession discards the session's uploads and returns it to the
// sample-image view with default settings.
func (service *CoreService) ResetSession(ctx context.Context, sessionID string) (*session.State, error) {
	if err := service.databaseService.DeleteSessionImages(sessionID); err != nil {
		return nil, fmt.Errorf("failed to delete session uploads: %w", err)
	}
	state := session.NewState()
	if err := service.sessionStore.Save(ctx, sessionID, state); err != nil {
		return nil, err
	}
	slog.Info("session reset", "session_id", sessionID)
	return state, nil
}

// StoreUpload runs the uploaded bytes through the configured pipeline
// and stores original plus normalized image for the role.
func (service *CoreService) StoreUpload(sessionID, role string, data []byte) (string, error) {
	if !database.ValidRole(role) {
		return "", fmt.Errorf("unknown upload role: %s", role)
	}

	normalized, err := service.normalize(data)
	if err != nil {
		return "", err
	}

	id, err := service.databaseService.UpsertImage(sessionID, role, data, normalized)
	if err != nil {
		return "", fmt.Errorf("failed to store %s image: %w", role, err)
	}

	slog.Info("stored upload", "role", role, "image_id", id, "size_bytes", len(data))
	return id, nil
}

// Upload returns the stored image for a role, or the normalized sample
// image while the session still shows samples.
func (service *CoreService) Upload(ctx context.Context, sessionID, role string) (*database.UploadedImage, error) {
	state, err := service.sessionStore.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.ShowSamples() {
		data, err := service.sampleImage(role)
		if err != nil {
			return nil, err
		}
		return &database.UploadedImage{Role: role, OriginalImage: data, NormalizedImage: data}, nil
	}
	return service.databaseService.GetImage(sessionID, role)
}

// Compare runs the two verification calls, (father, child) then
// (mother, child), with the session's model and metric and derives the
// outcome. If either call fails, no outcome is produced.
func (service *CoreService) Compare(ctx context.Context, sessionID string) (*match.Outcome, error) {
	state, err := service.sessionStore.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	images := make(map[string][]byte, len(database.Roles))
	for _, role := range database.Roles {
		img, err := service.Upload(ctx, sessionID, role)
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrMissingImage
		}
		if err != nil {
			return nil, err
		}
		if len(img.NormalizedImage) == 0 {
			return nil, ErrMissingImage
		}
		images[role] = img.NormalizedImage
	}

	outcome, err := service.runComparison(ctx, images, state.Model, state.Metric)
	if err != nil {
		return nil, err
	}

	// Keep the outcome so the chart download can be rendered later.
	state.LastOutcome = outcome
	if err := service.sessionStore.Save(ctx, sessionID, state); err != nil {
		slog.Error("failed to persist comparison outcome", "error", err)
	}
	return outcome, nil
}

// CompareImages runs a stateless comparison over raw upload bytes. Used
// by the JSON API, which carries all inputs in one request.
func (service *CoreService) CompareImages(ctx context.Context, father, mother, child []byte, model, metric string) (*match.Outcome, error) {
	if model == "" {
		model = verify.DefaultModel
	}
	if metric == "" {
		metric = verify.DefaultDistanceMetric
	}
	if !verify.IsSupportedModel(model) {
		return nil, fmt.Errorf("unsupported model: %s", model)
	}
	if !verify.IsSupportedMetric(metric) {
		return nil, fmt.Errorf("unsupported distance metric: %s", metric)
	}

	images := make(map[string][]byte, len(database.Roles))
	for role, data := range map[string][]byte{
		database.RoleFather: father,
		database.RoleMother: mother,
		database.RoleChild:  child,
	} {
		if len(data) == 0 {
			return nil, ErrMissingImage
		}
		normalized, err := service.normalize(data)
		if err != nil {
			return nil, fmt.Errorf("%s image: %w", role, err)
		}
		images[role] = normalized
	}

	return service.runComparison(ctx, images, model, metric)
}

// runComparison performs both verification calls with identical
// options and derives the outcome.
func (service *CoreService) runComparison(ctx context.Context, images map[string][]byte, model, metric string) (*match.Outcome, error) {
	opts := verify.Options{
		Model:           model,
		DistanceMetric:  metric,
		DetectorBackend: service.config.Verifier.DetectorBackend,
	}

	paternal, err := service.verifier.Verify(ctx, images[database.RoleFather], images[database.RoleChild], opts)
	if err != nil {
		return nil, fmt.Errorf("father comparison failed: %w", err)
	}
	maternal, err := service.verifier.Verify(ctx, images[database.RoleMother], images[database.RoleChild], opts)
	if err != nil {
		return nil, fmt.Errorf("mother comparison failed: %w", err)
	}

	outcome := match.Compare(metric, paternal.Distance, maternal.Distance)
	slog.Info("comparison complete",
		"metric", outcome.Metric,
		"model", model,
		"father_distance", outcome.FatherDistance,
		"mother_distance", outcome.MotherDistance,
		"more_similar", outcome.MoreSimilar)
	return &outcome, nil
}

// normalize applies the configured upload commands, defaulting to plain
// normalization when none are configured.
func (service *CoreService) normalize(data []byte) ([]byte, error) {
	configs := make([]pipeline.CommandConfig, 0, len(service.config.UploadCommands))
	for _, cmd := range service.config.UploadCommands {
		configs = append(configs, pipeline.CommandConfig{Name: cmd.Name, Params: cmd.Params})
	}
	if len(configs) == 0 {
		configs = append(configs, pipeline.CommandConfig{Name: "NormalizeCommand"})
	}
	normalized, err := pipeline.ExecuteCommands(data, configs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return normalized, nil
}

// sampleImage reads one of the bundled sample photos from disk and
// normalizes it like a regular upload.
func (service *CoreService) sampleImage(role string) ([]byte, error) {
	var path string
	switch role {
	case database.RoleFather:
		path = service.config.SampleImages.Father
	case database.RoleMother:
		path = service.config.SampleImages.Mother
	case database.RoleChild:
		path = service.config.SampleImages.Child
	default:
		return nil, fmt.Errorf("unknown upload role: %s", role)
	}
	if path == "" {
		return nil, database.ErrNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read sample image %s: %w", path, err)
	}
	return service.normalize(data)
}

// sweepExpired deletes uploads whose sessions have expired.
func (service *CoreService) sweepExpired() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-service.sweepStop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-sessionTTL(service.config))
			deleted, err := service.databaseService.DeleteExpired(cutoff)
			if err != nil {
				slog.Error("failed to sweep expired uploads", "error", err)
				continue
			}
			if deleted > 0 {
				slog.Info("swept expired uploads", "deleted", deleted)
			}
		}
	}
}

func sessionTTL(config *ServiceConfig) time.Duration {
	return time.Duration(config.Session.TTLMinutes) * time.Minute
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}
