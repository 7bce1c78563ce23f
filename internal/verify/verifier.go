package verify

import (
	"context"
	"errors"
)

// Supported model names of the remote face-recognition service.
const (
	ModelFacenet    = "Facenet"
	ModelVGGFace    = "VGG-Face"
	ModelFacenet512 = "Facenet512"
	ModelOpenFace   = "OpenFace"
	ModelDeepFace   = "DeepFace"
	ModelDeepID     = "DeepID"
	ModelArcFace    = "ArcFace"
	ModelDlib       = "Dlib"
	ModelSFace      = "SFace"
)

// Supported distance metric names.
const (
	MetricCosine      = "cosine"
	MetricEuclidean   = "euclidean"
	MetricEuclideanL2 = "euclidean_l2"
)

const (
	DefaultModel           = ModelFacenet
	DefaultDistanceMetric  = MetricCosine
	DefaultDetectorBackend = "mtcnn"
)

// ErrNoFace indicates the remote service could not detect a face in at
// least one of the submitted images.
var ErrNoFace = errors.New("no face could be detected in one of the images")

// Models lists all model names accepted by the service.
var Models = []string{
	ModelFacenet,
	ModelVGGFace,
	ModelFacenet512,
	ModelOpenFace,
	ModelDeepFace,
	ModelDeepID,
	ModelArcFace,
	ModelDlib,
	ModelSFace,
}

// DistanceMetrics lists all distance metric names accepted by the service.
var DistanceMetrics = []string{
	MetricCosine,
	MetricEuclidean,
	MetricEuclideanL2,
}

// Options select the model stack used for a single verification call.
// Both calls of one comparison must use identical options so their
// distances are comparable.
type Options struct {
	Model           string
	DistanceMetric  string
	DetectorBackend string
}

// WithDefaults returns a copy of the options with empty fields replaced
// by the service defaults.
func (o Options) WithDefaults() Options {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.DistanceMetric == "" {
		o.DistanceMetric = DefaultDistanceMetric
	}
	if o.DetectorBackend == "" {
		o.DetectorBackend = DefaultDetectorBackend
	}
	return o
}

// Result is the outcome of one verification call. Only Distance and
// DistanceMetric are interpreted by callers; the rest is passed through
// from the remote service.
type Result struct {
	Verified       bool    `json:"verified"`
	Distance       float64 `json:"distance"`
	Threshold      float64 `json:"threshold"`
	Model          string  `json:"model"`
	DistanceMetric string  `json:"distance_metric"`
}

// Verifier compares the faces on two images and reports their embedding
// distance. Implementations must treat imgA and imgB as read-only.
type Verifier interface {
	Verify(ctx context.Context, imgA, imgB []byte, opts Options) (*Result, error)
}

// IsSupportedModel reports whether name is a known model name.
func IsSupportedModel(name string) bool {
	for _, m := range Models {
		if m == name {
			return true
		}
	}
	return false
}

// IsSupportedMetric reports whether name is a known distance metric name.
func IsSupportedMetric(name string) bool {
	for _, m := range DistanceMetrics {
		if m == name {
			return true
		}
	}
	return false
}
