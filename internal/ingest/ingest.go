// Package ingest loads YAML datasets of entities and per-user behavior into
// the store.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"affinity/internal/store"
)

type Store interface {
	EnsureSchema(ctx context.Context) error
	UpsertEntity(ctx context.Context, e store.Entity) error
	UpsertStuff(ctx context.Context, item store.StuffItem) error
	UpsertRoutine(ctx context.Context, r store.Routine) error
	UpsertJourney(ctx context.Context, j store.Journey) error
	UpsertReview(ctx context.Context, r store.Review) error
	RebuildGlobalRelationships(ctx context.Context) (int64, error)
}

// Mirror receives the ingested entities and journeys, e.g. the Neo4j graph.
type Mirror interface {
	SyncEntities(ctx context.Context, entities []store.Entity) (int, error)
	SyncJourneys(ctx context.Context, journeys []store.Journey) (int, error)
}

type Options struct {
	RebuildConsensus bool
	Mirror           Mirror
}

type Result struct {
	Entities      int
	Stuff         int
	Routines      int
	Journeys      int
	Reviews       int
	Relationships int64
	Mirrored      int
	Errors        []error
}

func LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	ds, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("loading dataset %s: %w", path, err)
	}
	return ds, nil
}

// Decode rejects unknown keys so typos in a dataset surface as errors.
func Decode(r io.Reader) (*Dataset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var ds Dataset
	if err := dec.Decode(&ds); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	return &ds, nil
}

// Run upserts the dataset record by record. A bad record is reported in
// Result.Errors and skipped; only schema setup and consensus rebuild
// failures abort the run.
func Run(ctx context.Context, ds *Dataset, db Store, opts Options, logger zerolog.Logger) (*Result, error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	log := logger.With().Str("component", "ingest").Logger()
	result := &Result{}
	fail := func(err error) {
		log.Warn().Err(err).Msg("record skipped")
		result.Errors = append(result.Errors, err)
	}

	entities := make([]store.Entity, 0, len(ds.Entities))
	for i, rec := range ds.Entities {
		e := store.Entity{
			ID:       strings.TrimSpace(rec.ID),
			Name:     rec.Name,
			Category: rec.Category,
			Brand:    rec.Brand,
			ImageURL: rec.ImageURL,
		}
		if e.ID == "" {
			fail(fmt.Errorf("entity %d: id is required", i))
			continue
		}
		if err := db.UpsertEntity(ctx, e); err != nil {
			fail(fmt.Errorf("upserting entity %s: %w", e.ID, err))
			continue
		}
		entities = append(entities, e)
		result.Entities++
	}

	var journeys []store.Journey
	for i, user := range ds.Users {
		userID := strings.TrimSpace(user.ID)
		if userID == "" {
			fail(fmt.Errorf("user %d: id is required", i))
			continue
		}

		for _, rec := range user.Stuff {
			item := store.StuffItem{
				UserID:    userID,
				EntityID:  rec.Entity,
				Status:    rec.Status,
				Sentiment: rec.Sentiment,
				Category:  rec.Category,
			}
			if err := db.UpsertStuff(ctx, item); err != nil {
				fail(fmt.Errorf("upserting stuff %s/%s: %w", userID, rec.Entity, err))
				continue
			}
			result.Stuff++
		}

		for j, rec := range user.Routines {
			r := store.Routine{
				ID:        rec.ID,
				UserID:    userID,
				Category:  rec.Category,
				Frequency: rec.Frequency,
				Steps:     make([]store.RoutineStep, 0, len(rec.Steps)),
			}
			if r.ID == "" {
				r.ID = fmt.Sprintf("%s:routine:%d", userID, j)
			}
			for _, step := range rec.Steps {
				r.Steps = append(r.Steps, store.RoutineStep{EntityID: step.EntityID, Name: step.Name, Notes: step.Notes})
			}
			if err := db.UpsertRoutine(ctx, r); err != nil {
				fail(fmt.Errorf("upserting routine %s: %w", r.ID, err))
				continue
			}
			result.Routines++
		}

		for _, rec := range user.Journeys {
			j, err := journeyFromRecord(userID, rec)
			if err != nil {
				fail(err)
				continue
			}
			if err := db.UpsertJourney(ctx, j); err != nil {
				fail(fmt.Errorf("upserting journey %s: %w", j.ID, err))
				continue
			}
			journeys = append(journeys, j)
			result.Journeys++
		}

		for _, rec := range user.Reviews {
			r := store.Review{
				UserID:    userID,
				EntityID:  rec.Entity,
				Rating:    rec.Rating,
				Category:  rec.Category,
				CreatedAt: rec.CreatedAt,
			}
			if err := db.UpsertReview(ctx, r); err != nil {
				fail(fmt.Errorf("upserting review %s/%s: %w", userID, rec.Entity, err))
				continue
			}
			result.Reviews++
		}
	}

	if opts.RebuildConsensus {
		n, err := db.RebuildGlobalRelationships(ctx)
		if err != nil {
			return result, fmt.Errorf("rebuilding consensus: %w", err)
		}
		result.Relationships = n
	}

	if opts.Mirror != nil {
		if _, err := opts.Mirror.SyncEntities(ctx, entities); err != nil {
			fail(fmt.Errorf("mirroring entities: %w", err))
		} else if n, err := opts.Mirror.SyncJourneys(ctx, journeys); err != nil {
			fail(fmt.Errorf("mirroring journeys: %w", err))
		} else {
			result.Mirrored = n
		}
	}

	log.Info().
		Int("entities", result.Entities).
		Int("journeys", result.Journeys).
		Int("errors", len(result.Errors)).
		Msg("dataset ingested")

	return result, nil
}

// journeyFromRecord fills the deterministic id user:from:to:type when the
// record has none, so re-ingesting a dataset is idempotent.
func journeyFromRecord(userID string, rec JourneyRecord) (store.Journey, error) {
	if rec.From == "" || rec.To == "" {
		return store.Journey{}, fmt.Errorf("journey for %s: from and to are required", userID)
	}
	if !store.IsValidTransitionType(rec.Type) {
		return store.Journey{}, fmt.Errorf("journey %s->%s for %s: unknown transition type %q", rec.From, rec.To, userID, rec.Type)
	}

	confidence := 1.0
	if rec.Confidence != nil {
		confidence = *rec.Confidence
	}
	if confidence < 0 || confidence > 1 {
		return store.Journey{}, fmt.Errorf("journey %s->%s for %s: confidence %v outside [0,1]", rec.From, rec.To, userID, confidence)
	}

	id := rec.ID
	if id == "" {
		id = strings.Join([]string{userID, rec.From, rec.To, rec.Type}, ":")
	}

	return store.Journey{
		ID:             id,
		UserID:         userID,
		FromEntityID:   rec.From,
		ToEntityID:     rec.To,
		TransitionType: rec.Type,
		FromSentiment:  rec.FromSentiment,
		ToSentiment:    rec.ToSentiment,
		Confidence:     confidence,
		EvidenceText:   rec.Evidence,
		Category:       rec.Category,
		CreatedAt:      rec.CreatedAt,
	}, nil
}
