package store

import "time"

const (
	TransitionUpgrade       = "upgrade"
	TransitionAlternative   = "alternative"
	TransitionComplementary = "complementary"
)

// SimilarityLifestyle is the similarity_type written by the aggregator.
const SimilarityLifestyle = "lifestyle"

func IsValidTransitionType(t string) bool {
	switch t {
	case TransitionUpgrade, TransitionAlternative, TransitionComplementary:
		return true
	}
	return false
}

type Entity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Brand    string `json:"brand,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// StuffItem is one entity tracked by a user. Sentiment is nil when the
// user never scored it; Category is empty when unknown.
type StuffItem struct {
	UserID    string
	EntityID  string
	Status    string
	Sentiment *int
	Category  string
	UpdatedAt time.Time
}

type RoutineStep struct {
	EntityID string `json:"entity_id,omitempty" yaml:"entity_id"`
	Name     string `json:"name,omitempty" yaml:"name"`
	Notes    string `json:"notes,omitempty" yaml:"notes"`
}

type Routine struct {
	ID        string
	UserID    string
	Category  string
	Frequency string
	Steps     []RoutineStep
	CreatedAt time.Time
}

type Journey struct {
	ID             string
	UserID         string
	FromEntityID   string
	ToEntityID     string
	TransitionType string
	FromSentiment  *int
	ToSentiment    *int
	Confidence     float64
	EvidenceText   string
	Category       string
	CreatedAt      time.Time
}

type Review struct {
	UserID    string
	EntityID  string
	Rating    float64
	Category  string
	CreatedAt time.Time
}

// GlobalRelationship is the population-wide consensus for one entity pair.
type GlobalRelationship struct {
	EntityAID        string
	EntityBID        string
	RelationshipType string
	ConsensusCount   int
	AvgConfidence    float64
	UpdatedAt        time.Time
}

type UserCounts struct {
	Stuff    int `json:"stuff"`
	Journeys int `json:"journeys"`
	Routines int `json:"routines"`
	Reviews  int `json:"reviews"`
}

type StuffOverlapDetail struct {
	CommonEntities   []string `json:"common_entities"`
	CommonCategories []string `json:"common_categories"`
	Jaccard          float64  `json:"jaccard"`
	StatusMatches    int      `json:"status_matches"`
	SentimentMatches int      `json:"sentiment_matches"`
}

type RoutinesDetail struct {
	CommonCategories     []string `json:"common_categories"`
	MatchingFrequencies  []string `json:"matching_frequencies"`
	SharedStepEntities   []string `json:"shared_step_entities"`
	CategoryOverlapRatio float64  `json:"category_overlap_ratio"`
}

type JourneyDetail struct {
	SharedStartingPoints []string `json:"shared_starting_points"`
	IdenticalJourneys    int      `json:"identical_journeys"`
	DivergentPaths       int      `json:"divergent_paths"`
	TypeSimilarity       float64  `json:"type_similarity"`
}

// CalculationMetadata records everything needed to recompute OverallScore:
// OverallScore == sum(Weights[d] * Scores[d]).
type CalculationMetadata struct {
	UserAMode        string             `json:"user_a_mode"`
	UserBMode        string             `json:"user_b_mode"`
	EffectiveMode    string             `json:"effective_mode"`
	UserACounts      UserCounts         `json:"user_a_counts"`
	UserBCounts      UserCounts         `json:"user_b_counts"`
	Weights          map[string]float64 `json:"weights"`
	Scores           map[string]float64 `json:"scores"`
	FailedDimensions []string           `json:"failed_dimensions,omitempty"`
	FailureMode      string             `json:"failure_mode"`
	JourneyDetail    *JourneyDetail     `json:"journey_detail,omitempty"`
	CalculatedAt     time.Time          `json:"calculated_at"`
}

// SimilarityResult is one row per (UserA, UserB, Type); the latest
// calculation overwrites the previous one.
type SimilarityResult struct {
	UserA             string
	UserB             string
	Type              string
	OverallScore      float64
	LifestyleScore    float64
	StuffOverlapScore float64
	RoutinesScore     float64
	JourneyScore      float64
	RatingScore       float64
	CategoryScore     float64
	StuffDetail       StuffOverlapDetail
	RoutinesDetail    RoutinesDetail
	Metadata          CalculationMetadata
	CalculatedAt      time.Time
}

type JourneyFilter struct {
	UserIDs        []string
	ExcludeUserID  string
	FromEntityIDs  []string
	TransitionType string
	Limit          int
}

type ConsensusFilter struct {
	EntityAIDs       []string
	RelationshipType string
	Limit            int
}

type SimilarityFilter struct {
	UserA    string
	Type     string
	MinScore float64
	Limit    int
}
