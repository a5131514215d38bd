// Package validate reports integrity problems in stored behavioral data.
package validate

import (
	"context"
	"fmt"
	"sort"

	"affinity/internal/store"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeUnknownEntity      = "journey_unknown_entity"
	codeSelfTransition     = "self_transition"
	codeConfidenceRange    = "confidence_out_of_range"
	codeUnknownTransition  = "unknown_transition_type"
	codeSentimentRange     = "sentiment_out_of_range"
	codeStuffUnknownEntity = "stuff_unknown_entity"
	codeConsensusOrphaned  = "consensus_without_journeys"
	codeConsensusOutOfDate = "consensus_out_of_date"
)

// Sentiments are scored on a -5..5 scale.
const (
	minSentiment = -5
	maxSentiment = 5
)

type Issue struct {
	Severity  Severity `json:"severity"`
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	UserID    string   `json:"user_id,omitempty"`
	EntityID  string   `json:"entity_id,omitempty"`
	JourneyID string   `json:"journey_id,omitempty"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) Errors() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			n++
		}
	}
	return n
}

type Source interface {
	ListEntities(ctx context.Context) ([]store.Entity, error)
	ListAllStuff(ctx context.Context) ([]store.StuffItem, error)
	ListJourneys(ctx context.Context, filter store.JourneyFilter) ([]store.Journey, error)
	ListGlobalRelationships(ctx context.Context, filter store.ConsensusFilter) ([]store.GlobalRelationship, error)
}

func Run(ctx context.Context, db Source) (*Report, error) {
	if db == nil {
		return nil, fmt.Errorf("store is required")
	}

	entities, err := db.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	known := make(map[string]bool, len(entities))
	for _, e := range entities {
		known[e.ID] = true
	}

	journeys, err := db.ListJourneys(ctx, store.JourneyFilter{})
	if err != nil {
		return nil, fmt.Errorf("list journeys: %w", err)
	}
	stuff, err := db.ListAllStuff(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stuff: %w", err)
	}
	rels, err := db.ListGlobalRelationships(ctx, store.ConsensusFilter{})
	if err != nil {
		return nil, fmt.Errorf("list consensus: %w", err)
	}

	issues := make([]Issue, 0)
	for _, j := range journeys {
		issues = append(issues, validateJourney(j, known)...)
	}
	for _, item := range stuff {
		issues = append(issues, validateStuff(item, known)...)
	}
	issues = append(issues, validateConsensus(journeys, rels)...)

	return &Report{Issues: issues}, nil
}

func validateJourney(j store.Journey, known map[string]bool) []Issue {
	var issues []Issue
	add := func(sev Severity, code, msg string) {
		issues = append(issues, Issue{Severity: sev, Code: code, Message: msg, UserID: j.UserID, JourneyID: j.ID})
	}

	for _, id := range []string{j.FromEntityID, j.ToEntityID} {
		if !known[id] {
			add(SeverityError, codeUnknownEntity, fmt.Sprintf("journey references unknown entity %q", id))
		}
	}
	if j.FromEntityID == j.ToEntityID {
		add(SeverityWarn, codeSelfTransition, fmt.Sprintf("journey transitions %q to itself", j.FromEntityID))
	}
	if j.Confidence < 0 || j.Confidence > 1 {
		add(SeverityError, codeConfidenceRange, fmt.Sprintf("confidence %v outside [0,1]", j.Confidence))
	}
	if !store.IsValidTransitionType(j.TransitionType) {
		add(SeverityError, codeUnknownTransition, fmt.Sprintf("unknown transition type %q", j.TransitionType))
	}
	for _, s := range []*int{j.FromSentiment, j.ToSentiment} {
		if s != nil && (*s < minSentiment || *s > maxSentiment) {
			add(SeverityWarn, codeSentimentRange, fmt.Sprintf("sentiment %d outside [%d,%d]", *s, minSentiment, maxSentiment))
		}
	}
	return issues
}

func validateStuff(item store.StuffItem, known map[string]bool) []Issue {
	var issues []Issue
	if !known[item.EntityID] {
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeStuffUnknownEntity,
			Message:  fmt.Sprintf("tracked item references unknown entity %q", item.EntityID),
			UserID:   item.UserID,
			EntityID: item.EntityID,
		})
	}
	if s := item.Sentiment; s != nil && (*s < minSentiment || *s > maxSentiment) {
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeSentimentRange,
			Message:  fmt.Sprintf("sentiment %d outside [%d,%d]", *s, minSentiment, maxSentiment),
			UserID:   item.UserID,
			EntityID: item.EntityID,
		})
	}
	return issues
}

type consensusKey struct {
	from, to, kind string
}

// validateConsensus compares each consensus row against the distinct-user
// count its journeys currently support.
func validateConsensus(journeys []store.Journey, rels []store.GlobalRelationship) []Issue {
	users := map[consensusKey]map[string]bool{}
	for _, j := range journeys {
		k := consensusKey{j.FromEntityID, j.ToEntityID, j.TransitionType}
		if users[k] == nil {
			users[k] = map[string]bool{}
		}
		users[k][j.UserID] = true
	}

	var issues []Issue
	for _, rel := range rels {
		k := consensusKey{rel.EntityAID, rel.EntityBID, rel.RelationshipType}
		pair := rel.EntityAID + "->" + rel.EntityBID
		actual := len(users[k])
		switch {
		case actual == 0:
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeConsensusOrphaned,
				Message:  fmt.Sprintf("%s %s has no supporting journeys", rel.RelationshipType, pair),
				EntityID: rel.EntityAID,
			})
		case actual != rel.ConsensusCount:
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeConsensusOutOfDate,
				Message:  fmt.Sprintf("%s %s records %d users, journeys show %d", rel.RelationshipType, pair, rel.ConsensusCount, actual),
				EntityID: rel.EntityAID,
			})
		}
	}

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Message < issues[j].Message })
	return issues
}
