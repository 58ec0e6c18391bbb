// Package artracking decides whether a planar reference target is visible in a video frame and
// recovers the pose that places a virtual object on top of it.
package artracking

import (
	"context"
	"image"
	"math"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/artrack/logging"
	"go.viam.com/artrack/rimage/transform"
	"go.viam.com/artrack/vision/keypoints"
)

// trackingSnapshot is replaced as a whole so readers never see a state without its pose.
type trackingSnapshot struct {
	state TrackingState
	pose  *Pose
}

// FrameResult describes what the estimator did with one frame.
type FrameResult struct {
	State       TrackingState `json:"state"`
	Decision    Decision      `json:"decision"`
	Pose        *Pose         `json:"-"`
	KeyPoints   int           `json:"keypoints"`
	Matches     int           `json:"matches"`
	GoodMatches int           `json:"good_matches"`
	MinDist     int           `json:"min_dist"`
	MaxDist     int           `json:"max_dist"`
	// reprojection errors of the good matches under the new pose, in pixels. Only set when Found.
	ReprojectionRMS    float64 `json:"reprojection_rms"`
	ReprojectionMedian float64 `json:"reprojection_median"`
	ReprojectionMax    float64 `json:"reprojection_max"`
}

// PoseEstimator tracks a single reference target. Frames must be handed to it one at a time;
// CurrentPose and State may be called from any goroutine.
type PoseEstimator struct {
	target     *ReferenceTarget
	extractor  keypoints.FeatureExtractor
	projection *transform.CameraProjection
	matching   *keypoints.MatchingConfig
	cfg        *Config
	logger     logging.Logger

	updateMu sync.Mutex
	current  atomic.Pointer[trackingSnapshot]
}

// NewPoseEstimator returns an estimator in the NotFound state. A nil projection uses the default
// camera parameters and a nil cfg uses DefaultConfig.
func NewPoseEstimator(
	target *ReferenceTarget,
	extractor keypoints.FeatureExtractor,
	projection *transform.CameraProjection,
	matching *keypoints.MatchingConfig,
	cfg *Config,
	logger logging.Logger,
) (*PoseEstimator, error) {
	if target == nil || target.Features.Len() == 0 {
		return nil, ErrNoReferenceFeatures
	}
	if extractor == nil {
		return nil, errors.New("a feature extractor is required")
	}
	if projection == nil {
		projection = transform.NewCameraProjection(logger)
	}
	if matching == nil {
		matching = &keypoints.MatchingConfig{}
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate("tracker"); err != nil {
		return nil, err
	}
	pe := &PoseEstimator{
		target:     target,
		extractor:  extractor,
		projection: projection,
		matching:   matching,
		cfg:        cfg,
		logger:     logger,
	}
	pe.current.Store(&trackingSnapshot{state: NotFound})
	return pe, nil
}

// Target returns the tracked reference target.
func (pe *PoseEstimator) Target() *ReferenceTarget {
	return pe.target
}

// Projection returns the camera model used by the solver.
func (pe *PoseEstimator) Projection() *transform.CameraProjection {
	return pe.projection
}

// State returns the current tracking state.
func (pe *PoseEstimator) State() TrackingState {
	return pe.current.Load().state
}

// CurrentPose returns the pose while the target is Found or Stale and a pose has been computed
// since it was last lost.
func (pe *PoseEstimator) CurrentPose() (Pose, bool) {
	snap := pe.current.Load()
	if snap.pose == nil || snap.state == NotFound {
		return Pose{}, false
	}
	return *snap.pose, true
}

// Reset forgets the target, as when the camera changes.
func (pe *PoseEstimator) Reset() {
	pe.updateMu.Lock()
	defer pe.updateMu.Unlock()
	pe.transition(pe.current.Load(), &trackingSnapshot{state: NotFound})
}

// ProcessFrame detects and matches features in frame and updates the tracking state. A frame that
// cannot be used leaves the state untouched.
func (pe *PoseEstimator) ProcessFrame(ctx context.Context, frame *image.Gray) FrameResult {
	if ctx.Err() != nil {
		return pe.result(DecisionCanceled)
	}
	features, err := computeFeatures(pe.extractor, frame)
	if err != nil {
		pe.logger.Debugw("cannot compute frame features", "error", err)
		return pe.result(DecisionNoFeatures)
	}
	if features.Len() == 0 {
		return pe.result(DecisionNoFeatures)
	}
	matches := keypoints.MatchDescriptors(features.Descriptors, pe.target.Features.Descriptors, pe.matching, pe.logger)
	return pe.Update(features.KeyPoints, matches)
}

// Update runs the state machine on the matches between the scene keypoints and the reference.
func (pe *PoseEstimator) Update(sceneKps []keypoints.KeyPoint, matches []keypoints.DescriptorMatch) FrameResult {
	pe.updateMu.Lock()
	defer pe.updateMu.Unlock()

	res := pe.result(DecisionTooFewMatches)
	res.KeyPoints = len(sceneKps)
	res.Matches = len(matches)
	if len(matches) < pe.cfg.MinCorrespondences {
		return pe.logDecision(res)
	}
	minDist, maxDist, err := keypoints.MinMaxDistance(matches)
	if err != nil {
		return pe.logDecision(res)
	}
	res.MinDist, res.MaxDist = minDist, maxDist

	prev := pe.current.Load()
	if minDist > pe.cfg.LostDistance {
		pe.transition(prev, &trackingSnapshot{state: NotFound})
		res.Decision = DecisionLost
		return pe.finish(res)
	}
	if minDist > pe.cfg.HoldDistance {
		pe.transition(prev, &trackingSnapshot{state: Stale, pose: prev.pose})
		res.Decision = DecisionHold
		return pe.finish(res)
	}

	cutoff := math.Max(pe.cfg.GoodMatchFactor*float64(minDist), pe.cfg.MinGoodDistance)
	good := make([]keypoints.DescriptorMatch, 0, len(matches))
	for _, m := range matches {
		if float64(m.Distance) < cutoff {
			good = append(good, m)
		}
	}
	sceneGood, refGood, err := keypoints.GetMatchingKeyPoints(good, sceneKps, pe.target.Features.KeyPoints)
	if err != nil {
		pe.logger.Debugw("invalid matches", "error", err)
		res.Decision = DecisionSolverFailed
		return pe.logDecision(res)
	}
	res.GoodMatches = len(good)
	sceneDistinct, refDistinct := distinctIndices(good)
	if refDistinct < pe.cfg.MinCorrespondences || sceneDistinct < pe.cfg.MinCorrespondences {
		res.Decision = DecisionTooFewGoodMatches
		return pe.logDecision(res)
	}

	k := pe.projection.PinholeIntrinsics()
	object, imagePts := ObjectPoints(refGood), keypoints.KeyPointsToPoints(sceneGood)
	sol, err := transform.SolvePlanarPnP(object, imagePts, &k)
	if err != nil {
		pe.logger.Debugw("pose solver failed", "error", err, "good_matches", len(good))
		res.Decision = DecisionSolverFailed
		return pe.logDecision(res)
	}
	reproj, err := reprojectionStats(object, imagePts, sol, &k)
	if err != nil {
		pe.logger.Debugw("reprojection failed", "error", err)
		res.Decision = DecisionSolverFailed
		return pe.logDecision(res)
	}
	pose := NewPoseFromVision(sol.RVec, sol.TVec)
	pe.transition(prev, &trackingSnapshot{state: Found, pose: &pose})
	res.Decision = DecisionFound
	res.ReprojectionRMS = reproj.RMS
	res.ReprojectionMedian = reproj.Median
	res.ReprojectionMax = reproj.Max
	return pe.finish(res)
}

// distinctIndices counts the scene and reference keypoints used by the matches. Several scene
// keypoints matched to one reference keypoint only constrain the pose once.
func distinctIndices(matches []keypoints.DescriptorMatch) (int, int) {
	scene := make(map[int]struct{}, len(matches))
	ref := make(map[int]struct{}, len(matches))
	for _, m := range matches {
		scene[m.Idx1] = struct{}{}
		ref[m.Idx2] = struct{}{}
	}
	return len(scene), len(ref)
}

func reprojectionStats(
	object []r3.Vector, imagePts []r2.Point, sol *transform.PnPSolution, k *transform.PinholeCameraIntrinsics,
) (transform.ReprojectionStats, error) {
	errs, err := transform.ReprojectionErrors(object, imagePts, sol.RVec, sol.TVec, k)
	if err != nil {
		return transform.ReprojectionStats{}, err
	}
	return transform.ComputeReprojectionStats(errs)
}

// result fills the state and pose of the current snapshot.
func (pe *PoseEstimator) result(decision Decision) FrameResult {
	res := FrameResult{Decision: decision, State: pe.State()}
	if pose, ok := pe.CurrentPose(); ok {
		res.Pose = &pose
	}
	return res
}

func (pe *PoseEstimator) finish(res FrameResult) FrameResult {
	current := pe.result(res.Decision)
	res.State, res.Pose = current.State, current.Pose
	return pe.logDecision(res)
}

func (pe *PoseEstimator) logDecision(res FrameResult) FrameResult {
	pe.logger.Debugw("frame processed",
		"target", pe.target.Name,
		"decision", res.Decision,
		"state", res.State,
		"keypoints", res.KeyPoints,
		"matches", res.Matches,
		"good_matches", res.GoodMatches,
		"min_dist", res.MinDist,
		"max_dist", res.MaxDist,
		"reprojection_rms", res.ReprojectionRMS,
	)
	return res
}

func (pe *PoseEstimator) transition(prev, next *trackingSnapshot) {
	pe.current.Store(next)
	if prev.state != next.state {
		pe.logger.Infow("tracking state changed", "target", pe.target.Name, "from", prev.state, "to", next.state)
	}
}
