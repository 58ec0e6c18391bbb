package keypoints

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/artrack/rimage"
)

// ORBConfig contains the parameters / configs needed to compute ORB features.
type ORBConfig struct {
	Layers               int          `json:"n_layers"`
	DownscaleFactor      int          `json:"downscale_factor"`
	MaxKeypointsPerLayer int          `json:"max_kps_per_layer"`
	FastConf             *FASTConfig  `json:"fast"`
	BRIEFConf            *BRIEFConfig `json:"brief"`
}

// DefaultORBConfig returns the configuration used when none is given.
func DefaultORBConfig() *ORBConfig {
	return &ORBConfig{
		Layers:               4,
		DownscaleFactor:      2,
		MaxKeypointsPerLayer: 500,
		FastConf: &FASTConfig{
			NMatchesCircle: 9,
			NMSWinSize:     7,
			Threshold:      20,
			Oriented:       true,
		},
		BRIEFConf: &BRIEFConfig{
			N:              256,
			Sampling:       uniform,
			UseOrientation: true,
			PatchSize:      31,
			Seed:           0x0b5e55ed,
		},
	}
}

// LoadORBConfiguration loads a ORBConfig from a json file.
func LoadORBConfiguration(file string) (*ORBConfig, error) {
	var config ORBConfig
	filePath := filepath.Clean(file)
	//nolint:gosec
	configFile, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(configFile.Close)
	jsonParser := json.NewDecoder(configFile)
	err = jsonParser.Decode(&config)
	if err != nil {
		return nil, err
	}
	err = config.Validate(file)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate ensures all parts of the ORBConfig are valid.
func (config *ORBConfig) Validate(path string) error {
	if config.Layers < 1 {
		return utils.NewConfigValidationError(path, errors.New("n_layers should be >= 1"))
	}
	if config.DownscaleFactor <= 1 {
		return utils.NewConfigValidationError(path, errors.New("downscale_factor should be greater than 1"))
	}
	if config.MaxKeypointsPerLayer < 0 {
		return utils.NewConfigValidationError(path, errors.New("max_kps_per_layer should be >= 0"))
	}
	if config.FastConf == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "fast")
	}
	if config.FastConf.NMatchesCircle < 1 || config.FastConf.NMatchesCircle > len(CircleIdx) {
		return utils.NewConfigValidationError(path, errors.New("fast.n_matches should be in [1, 16]"))
	}
	if config.FastConf.Threshold < 0 {
		return utils.NewConfigValidationError(path, errors.New("fast.threshold should be >= 0"))
	}
	if config.BRIEFConf == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "brief")
	}
	if err := config.BRIEFConf.Validate(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// ORB detects FAST corners on an image pyramid and describes them with oriented BRIEF. The sample
// pairs are drawn once, so every image described by the same ORB gets comparable descriptors.
type ORB struct {
	cfg    *ORBConfig
	pairs  *SamplePairs
	border int
}

// NewORB validates cfg and draws the BRIEF sample pairs.
func NewORB(cfg *ORBConfig) (*ORB, error) {
	if cfg == nil {
		cfg = DefaultORBConfig()
	}
	if err := cfg.Validate("orb"); err != nil {
		return nil, err
	}
	pairs := GenerateSamplePairs(cfg.BRIEFConf.Sampling, cfg.BRIEFConf.N, cfg.BRIEFConf.PatchSize, cfg.BRIEFConf.Seed)
	border := pairs.Radius(cfg.BRIEFConf.UseOrientation)
	if cfg.FastConf.Oriented && border < orientationRadius {
		border = orientationRadius
	}
	return &ORB{cfg: cfg, pairs: pairs, border: border}, nil
}

// Config returns the configuration in use.
func (orb *ORB) Config() *ORBConfig {
	return orb.cfg
}

// Border is the minimum distance in layer pixels between a keypoint and the layer edges.
func (orb *ORB) Border() int {
	return orb.border
}

func (orb *ORB) pyramid(img *image.Gray) (*rimage.ImagePyramid, error) {
	return rimage.GetImagePyramid(img, orb.cfg.Layers, orb.cfg.DownscaleFactor, 2*orb.border+1)
}

// Detect finds keypoints in every pyramid layer. Only keypoints whose descriptor patch fits in
// their layer are returned.
func (orb *ORB) Detect(img *image.Gray) ([]KeyPoint, error) {
	if rimage.IsEmpty(img) {
		return []KeyPoint{}, nil
	}
	pyramid, err := orb.pyramid(img)
	if err != nil {
		return nil, err
	}
	return orb.detect(pyramid), nil
}

func (orb *ORB) detect(pyramid *rimage.ImagePyramid) []KeyPoint {
	umax := computeMaskOrientationFAST()
	kps := make([]KeyPoint, 0)
	for octave, layer := range pyramid.Images {
		scale := pyramid.Scales[octave]
		corners := ComputeFAST(layer, orb.cfg.FastConf, orb.border)
		if n := orb.cfg.MaxKeypointsPerLayer; n > 0 && len(corners) > n {
			corners = corners[:n]
		}
		for _, c := range corners {
			kp := KeyPoint{
				Point:    rescalePoint(c.Point, scale),
				Octave:   octave,
				Scale:    scale,
				Response: c.Score,
			}
			if orb.cfg.FastConf.Oriented {
				kp.Orientation = computeKeypointOrientation(layer, c.Point, umax)
			}
			kps = append(kps, kp)
		}
	}
	sortKeyPoints(kps)
	return kps
}

// Extract computes one descriptor per keypoint, in order.
func (orb *ORB) Extract(img *image.Gray, kps []KeyPoint) (Descriptors, error) {
	if len(kps) == 0 || rimage.IsEmpty(img) {
		return Descriptors{}, nil
	}
	pyramid, err := orb.pyramid(img)
	if err != nil {
		return nil, err
	}
	return orb.extract(pyramid, kps)
}

func (orb *ORB) extract(pyramid *rimage.ImagePyramid, kps []KeyPoint) (Descriptors, error) {
	// group by octave so each layer is blurred once
	byOctave := make(map[int][]int)
	for i, kp := range kps {
		if kp.Octave < 0 || kp.Octave >= len(pyramid.Images) {
			return nil, errors.Errorf("keypoint %d has octave %d, pyramid has %d layers", i, kp.Octave, len(pyramid.Images))
		}
		byOctave[kp.Octave] = append(byOctave[kp.Octave], i)
	}
	descs := make(Descriptors, len(kps))
	for octave, indices := range byOctave {
		blurred, err := BlurForBRIEF(pyramid.Images[octave])
		if err != nil {
			return nil, err
		}
		layerKps := make([]KeyPoint, len(indices))
		for j, idx := range indices {
			layerKps[j] = kps[idx]
		}
		layerDescs, err := ComputeBRIEFDescriptors(blurred, orb.pairs, layerKps, orb.cfg.BRIEFConf)
		if err != nil {
			return nil, err
		}
		for j, idx := range indices {
			descs[idx] = layerDescs[j]
		}
	}
	return descs, nil
}

// DetectAndCompute builds the pyramid once and returns index aligned keypoints and descriptors.
func (orb *ORB) DetectAndCompute(img *image.Gray) (*Features, error) {
	if rimage.IsEmpty(img) {
		return &Features{KeyPoints: []KeyPoint{}, Descriptors: Descriptors{}}, nil
	}
	pyramid, err := orb.pyramid(img)
	if err != nil {
		return nil, err
	}
	kps := orb.detect(pyramid)
	descs, err := orb.extract(pyramid, kps)
	if err != nil {
		return nil, err
	}
	return &Features{KeyPoints: kps, Descriptors: descs}, nil
}

// ComputeORBKeypoints compute ORB keypoints on gray image.
func ComputeORBKeypoints(im *image.Gray, cfg *ORBConfig) (Descriptors, []KeyPoint, error) {
	orb, err := NewORB(cfg)
	if err != nil {
		return nil, nil, err
	}
	features, err := orb.DetectAndCompute(im)
	if err != nil {
		return nil, nil, err
	}
	return features.Descriptors, features.KeyPoints, nil
}
