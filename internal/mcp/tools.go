package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"affinity/internal/graph"
	"affinity/internal/similarity"
	"affinity/internal/store"
	"affinity/internal/transitions"
)

type CalculateSimilarityInput struct {
	UserID           string `json:"userId" jsonschema:"user to compare against the candidate pool"`
	Limit            int    `json:"limit,omitempty" jsonschema:"maximum candidates to process (default 50, max 100)"`
	ForceRecalculate bool   `json:"forceRecalculate,omitempty" jsonschema:"recompute pairs scored recently"`
}

type RecommendTransitionsInput struct {
	UserID         string `json:"userId" jsonschema:"user to recommend for"`
	EntityID       string `json:"entityId,omitempty" jsonschema:"only transitions leaving this entity"`
	TransitionType string `json:"transitionType,omitempty" jsonschema:"upgrade, alternative, or complementary"`
	Category       string `json:"category,omitempty" jsonschema:"boost journeys in this category"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum recommendations (default 10)"`
}

type GetSimilarUsersInput struct {
	UserID   string  `json:"userId" jsonschema:"user whose stored similarities to list"`
	MinScore float64 `json:"minScore,omitempty" jsonschema:"only rows scoring above this"`
	Limit    int     `json:"limit,omitempty" jsonschema:"maximum rows (default 20)"`
}

type GetTransitionPathsInput struct {
	EntityID string `json:"entityId" jsonschema:"entity to start from"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum paths (default 20)"`
}

type SimilarUserOutput struct {
	UserID         string             `json:"userId"`
	OverallScore   float64            `json:"overallScore"`
	LifestyleScore float64            `json:"lifestyleScore"`
	EffectiveMode  string             `json:"effectiveMode"`
	Scores         map[string]float64 `json:"scores"`
	CalculatedAt   string             `json:"calculatedAt"`
}

type CalculateSimilarityOutput struct {
	Success                bool                `json:"success"`
	SimilaritiesCalculated int                 `json:"similaritiesCalculated"`
	ProcessedUsers         int                 `json:"processedUsers"`
	SkippedFresh           int                 `json:"skippedFresh"`
	UserMode               string              `json:"userMode"`
	UserCounts             store.UserCounts    `json:"userCounts"`
	TopSimilarities        []SimilarUserOutput `json:"topSimilarities"`
}

type EntityOutput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

type RecommendationOutput struct {
	From             EntityOutput `json:"from"`
	To               EntityOutput `json:"to"`
	TransitionType   string       `json:"transitionType"`
	WeightedScore    float64      `json:"weightedScore"`
	RelevanceScore   float64      `json:"relevanceScore"`
	Headline         string       `json:"headline"`
	Description      string       `json:"description"`
	SentimentChange  string       `json:"sentimentChange,omitempty"`
	EvidenceQuote    string       `json:"evidenceQuote,omitempty"`
	Confidence       string       `json:"confidence"`
	ConsensusCount   int          `json:"consensusCount"`
	Contributors     int          `json:"contributors"`
	LifestyleFactors []string     `json:"lifestyleFactors"`
	Source           string       `json:"source"`
}

type RecommendTransitionsOutput struct {
	Recommendations              []RecommendationOutput `json:"recommendations"`
	RichnessMode                 string                 `json:"richnessMode"`
	SimilarUsersFound            int                    `json:"similarUsersFound"`
	JourneysAnalyzed             int                    `json:"journeysAnalyzed"`
	GlobalRelationshipsAvailable int                    `json:"globalRelationshipsAvailable"`
	EntitySpecific               bool                   `json:"entitySpecific"`
	EntitySpecificJourneys       int                    `json:"entitySpecificJourneys"`
	PersonalizedCount            int                    `json:"personalizedCount"`
	BackfilledCount              int                    `json:"backfilledCount"`
}

type GetSimilarUsersOutput struct {
	SimilarUsers []SimilarUserOutput `json:"similarUsers"`
}

type TransitionPathOutput struct {
	FromID         string  `json:"fromId"`
	ToID           string  `json:"toId"`
	ToName         string  `json:"toName"`
	TransitionType string  `json:"transitionType"`
	Users          int     `json:"users"`
	AvgConfidence  float64 `json:"avgConfidence"`
}

type GetTransitionPathsOutput struct {
	Paths []TransitionPathOutput `json:"paths"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "calculate_similarity",
		Description: "Score a user's lifestyle similarity against other users and store the results",
	}, s.handleCalculateSimilarity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "recommend_transitions",
		Description: "Recommend product transitions drawn from similar users' journeys",
	}, s.handleRecommendTransitions)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_similar_users",
		Description: "List stored similarity scores for a user, best first",
	}, s.handleGetSimilarUsers)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_transition_paths",
		Description: "List transitions leaving an entity in the journey graph",
	}, s.handleGetTransitionPaths)
}

func (s *Server) handleCalculateSimilarity(ctx context.Context, req *sdk.CallToolRequest, input CalculateSimilarityInput) (*sdk.CallToolResult, CalculateSimilarityOutput, error) {
	resp, err := s.calc.Calculate(ctx, similarity.Request{
		UserID:           input.UserID,
		Limit:            input.Limit,
		ForceRecalculate: input.ForceRecalculate,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("tool", "calculate_similarity").Str("user_id", input.UserID).Msg("tool call failed")
		return nil, CalculateSimilarityOutput{}, err
	}

	return nil, CalculateSimilarityOutput{
		Success:                resp.Success,
		SimilaritiesCalculated: resp.SimilaritiesCalculated,
		ProcessedUsers:         resp.ProcessedUsers,
		SkippedFresh:           resp.SkippedFresh,
		UserMode:               string(resp.UserMode),
		UserCounts:             resp.UserCounts,
		TopSimilarities:        similarUserOutputs(resp.TopSimilarities),
	}, nil
}

func (s *Server) handleRecommendTransitions(ctx context.Context, req *sdk.CallToolRequest, input RecommendTransitionsInput) (*sdk.CallToolResult, RecommendTransitionsOutput, error) {
	resp, err := s.rec.Recommend(ctx, transitions.Request{
		UserID:         input.UserID,
		EntityID:       input.EntityID,
		TransitionType: input.TransitionType,
		Category:       input.Category,
		Limit:          input.Limit,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("tool", "recommend_transitions").Str("user_id", input.UserID).Msg("tool call failed")
		return nil, RecommendTransitionsOutput{}, err
	}

	output := make([]RecommendationOutput, 0, len(resp.Recommendations))
	for _, rec := range resp.Recommendations {
		output = append(output, recommendationOutput(rec))
	}
	md := resp.Metadata
	return nil, RecommendTransitionsOutput{
		Recommendations:              output,
		RichnessMode:                 string(md.RichnessMode),
		SimilarUsersFound:            md.SimilarUsersFound,
		JourneysAnalyzed:             md.JourneysAnalyzed,
		GlobalRelationshipsAvailable: md.GlobalRelationshipsAvailable,
		EntitySpecific:               md.EntitySpecific,
		EntitySpecificJourneys:       md.EntitySpecificJourneys,
		PersonalizedCount:            md.PersonalizedCount,
		BackfilledCount:              md.BackfilledCount,
	}, nil
}

func (s *Server) handleGetSimilarUsers(ctx context.Context, req *sdk.CallToolRequest, input GetSimilarUsersInput) (*sdk.CallToolResult, GetSimilarUsersOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	users, err := similarity.SimilarUsers(ctx, s.db, input.UserID, input.MinScore, limit)
	if err != nil {
		return nil, GetSimilarUsersOutput{}, err
	}
	return nil, GetSimilarUsersOutput{SimilarUsers: similarUserOutputs(users)}, nil
}

func (s *Server) handleGetTransitionPaths(ctx context.Context, req *sdk.CallToolRequest, input GetTransitionPathsInput) (*sdk.CallToolResult, GetTransitionPathsOutput, error) {
	if input.EntityID == "" {
		return nil, GetTransitionPathsOutput{}, fmt.Errorf("entityId is required")
	}
	if s.paths == nil {
		return nil, GetTransitionPathsOutput{}, fmt.Errorf("journey graph is not configured")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	paths, err := s.paths.TransitionPaths(ctx, input.EntityID, limit)
	if err != nil {
		return nil, GetTransitionPathsOutput{}, err
	}

	output := make([]TransitionPathOutput, 0, len(paths))
	for _, p := range paths {
		output = append(output, transitionPathOutputFromGraph(p))
	}
	return nil, GetTransitionPathsOutput{Paths: output}, nil
}

func similarUserOutputs(users []similarity.TopSimilarity) []SimilarUserOutput {
	out := make([]SimilarUserOutput, 0, len(users))
	for _, u := range users {
		scores := map[string]float64{}
		for k, v := range u.Scores {
			scores[k] = v
		}
		var calculatedAt string
		if !u.CalculatedAt.IsZero() {
			calculatedAt = u.CalculatedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, SimilarUserOutput{
			UserID:         u.UserID,
			OverallScore:   u.OverallScore,
			LifestyleScore: u.LifestyleScore,
			EffectiveMode:  u.EffectiveMode,
			Scores:         scores,
			CalculatedAt:   calculatedAt,
		})
	}
	return out
}

func recommendationOutput(rec transitions.Recommendation) RecommendationOutput {
	out := RecommendationOutput{
		From:             entityOutput(rec.FromEntity),
		To:               entityOutput(rec.ToEntity),
		TransitionType:   rec.TransitionType,
		WeightedScore:    rec.WeightedScore,
		RelevanceScore:   rec.RelevanceScore,
		Headline:         rec.Story.Headline,
		Description:      rec.Story.Description,
		Confidence:       rec.Confidence,
		ConsensusCount:   rec.ConsensusCount,
		Contributors:     rec.Contributors,
		LifestyleFactors: append([]string{}, rec.LifestyleFactors...),
		Source:           rec.Source,
	}
	if rec.Story.SentimentChange != nil {
		out.SentimentChange = *rec.Story.SentimentChange
	}
	if rec.Story.EvidenceQuote != nil {
		out.EvidenceQuote = *rec.Story.EvidenceQuote
	}
	return out
}

func entityOutput(e store.Entity) EntityOutput {
	return EntityOutput{ID: e.ID, Name: e.Name, Category: e.Category}
}

func transitionPathOutputFromGraph(p graph.TransitionPath) TransitionPathOutput {
	return TransitionPathOutput{
		FromID:         p.FromID,
		ToID:           p.ToID,
		ToName:         p.ToName,
		TransitionType: p.TransitionType,
		Users:          p.Users,
		AvgConfidence:  p.AvgConfidence,
	}
}
