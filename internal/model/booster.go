package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Booster evaluates a gradient boosted tree ensemble saved with XGBoost's
// Booster.save_model in JSON format.
type Booster struct {
	trees      []tree
	baseMargin float64
	baseScore  float64
	numFeature int
	objective  string
	link       func(float64) float64
}

type tree struct {
	left        []int
	right       []int
	splitIndex  []int
	splitCond   []float32
	leafValue   []float64
	defaultLeft []bool
}

// xgbModel mirrors the subset of the XGBoost JSON schema needed for inference.
type xgbModel struct {
	Learner struct {
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees []xgbTree `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
	} `json:"learner"`
}

type xgbTree struct {
	LeftChildren    []int      `json:"left_children"`
	RightChildren   []int      `json:"right_children"`
	SplitIndices    []int      `json:"split_indices"`
	SplitConditions []float64  `json:"split_conditions"`
	DefaultLeft     []flexBool `json:"default_left"`
	SplitType       []int      `json:"split_type"`
}

// flexBool accepts both 0/1 and true/false, which differ across XGBoost versions.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case "1", "true":
		*b = true
	case "0", "false":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

func LoadBooster(path string) (*Booster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return ParseBooster(data)
}

func ParseBooster(data []byte) (*Booster, error) {
	var m xgbModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	if name := m.Learner.GradientBooster.Name; name != "" && name != "gbtree" {
		return nil, fmt.Errorf("%w: unsupported booster %q", ErrInvalidArtifact, name)
	}

	baseScore, err := parseBaseScore(m.Learner.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, fmt.Errorf("%w: base_score: %v", ErrInvalidArtifact, err)
	}

	numFeature := 0
	if s := m.Learner.LearnerModelParam.NumFeature; s != "" {
		numFeature, err = strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%w: num_feature: %v", ErrInvalidArtifact, err)
		}
	}

	objective := m.Learner.Objective.Name
	if objective == "" {
		objective = "reg:squarederror"
	}
	toMargin, link, err := linkFor(objective)
	if err != nil {
		return nil, err
	}

	b := &Booster{
		baseScore:  baseScore,
		baseMargin: toMargin(baseScore),
		numFeature: numFeature,
		objective:  objective,
		link:       link,
		trees:      make([]tree, 0, len(m.Learner.GradientBooster.Model.Trees)),
	}

	for i, t := range m.Learner.GradientBooster.Model.Trees {
		parsed, err := newTree(t, numFeature)
		if err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", ErrInvalidArtifact, i, err)
		}
		b.trees = append(b.trees, parsed)
	}
	if len(b.trees) == 0 {
		return nil, fmt.Errorf("%w: model has no trees", ErrInvalidArtifact)
	}

	return b, nil
}

func newTree(t xgbTree, numFeature int) (tree, error) {
	n := len(t.LeftChildren)
	if n == 0 {
		return tree{}, fmt.Errorf("empty tree")
	}
	if len(t.RightChildren) != n || len(t.SplitIndices) != n || len(t.SplitConditions) != n || len(t.DefaultLeft) != n {
		return tree{}, fmt.Errorf("inconsistent node arrays")
	}
	if len(t.SplitType) != 0 && len(t.SplitType) != n {
		return tree{}, fmt.Errorf("inconsistent node arrays")
	}

	defaultLeft := make([]bool, n)
	splitCond := make([]float32, n)
	for i := 0; i < n; i++ {
		defaultLeft[i] = bool(t.DefaultLeft[i])
		splitCond[i] = float32(t.SplitConditions[i])
		if t.LeftChildren[i] == -1 {
			continue
		}
		// Only numerical splits are evaluated; categorical splits need the
		// category bitsets this loader does not read.
		if len(t.SplitType) > 0 && t.SplitType[i] != 0 {
			return tree{}, fmt.Errorf("node %d has unsupported split type %d", i, t.SplitType[i])
		}
		if t.LeftChildren[i] <= i || t.LeftChildren[i] >= n || t.RightChildren[i] <= i || t.RightChildren[i] >= n {
			return tree{}, fmt.Errorf("node %d has out of range children", i)
		}
		if t.SplitIndices[i] < 0 || (numFeature > 0 && t.SplitIndices[i] >= numFeature) {
			return tree{}, fmt.Errorf("node %d splits on feature %d", i, t.SplitIndices[i])
		}
	}

	return tree{
		left:        t.LeftChildren,
		right:       t.RightChildren,
		splitIndex:  t.SplitIndices,
		splitCond:   splitCond,
		leafValue:   t.SplitConditions,
		defaultLeft: defaultLeft,
	}, nil
}

// leaf walks the tree for x. Leaf values live in split_conditions.
// Thresholds compare in float32, the precision XGBoost stores them in.
func (t tree) leaf(x []float64) float64 {
	node := 0
	for t.left[node] != -1 {
		v := x[t.splitIndex[node]]
		switch {
		case math.IsNaN(v):
			if t.defaultLeft[node] {
				node = t.left[node]
			} else {
				node = t.right[node]
			}
		case float32(v) < t.splitCond[node]:
			node = t.left[node]
		default:
			node = t.right[node]
		}
	}
	return t.leafValue[node]
}

// NumFeature is the feature width the model was trained on (0 if unknown).
func (b *Booster) NumFeature() int {
	return b.numFeature
}

func (b *Booster) NumTrees() int {
	return len(b.trees)
}

func (b *Booster) Objective() string {
	return b.objective
}

func (b *Booster) BaseScore() float64 {
	return b.baseScore
}

// Predict returns the model output for a single scaled feature row.
func (b *Booster) Predict(x []float64) (float64, error) {
	if b.numFeature > 0 && len(x) != b.numFeature {
		return 0, fmt.Errorf("%w: got %d features, model expects %d", ErrFeatureMismatch, len(x), b.numFeature)
	}
	margin := b.baseMargin
	for _, t := range b.trees {
		margin += t.leaf(x)
	}
	return b.link(margin), nil
}

// parseBaseScore handles both "5E-1" and the bracketed "[5E-1]" form written
// by XGBoost 2.x.
func parseBaseScore(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return 0.5, nil
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func identity(v float64) float64 { return v }

func sigmoid(v float64) float64 { return 1 / (1 + math.Exp(-v)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

// linkFor returns the base score to margin transform and the inverse link for
// an objective.
func linkFor(objective string) (toMargin, link func(float64) float64, err error) {
	switch objective {
	case "reg:squarederror", "reg:absoluteerror", "reg:pseudohubererror", "reg:squaredlogerror", "reg:quantileerror":
		return identity, identity, nil
	case "count:poisson", "reg:tweedie", "reg:gamma":
		return math.Log, math.Exp, nil
	case "reg:logistic", "binary:logistic":
		return logit, sigmoid, nil
	default:
		return nil, nil, fmt.Errorf("%w: unsupported objective %q", ErrInvalidArtifact, objective)
	}
}
