package store

import "context"

// Store is the persistence gateway. It holds no business logic: filtered
// reads, count-only queries and upserts.
type Store interface {
	Close(ctx context.Context) error
	Ping(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	UpsertEntity(ctx context.Context, e Entity) error
	UpsertStuff(ctx context.Context, item StuffItem) error
	UpsertRoutine(ctx context.Context, r Routine) error
	UpsertJourney(ctx context.Context, j Journey) error
	UpsertReview(ctx context.Context, r Review) error
	UpsertGlobalRelationship(ctx context.Context, rel GlobalRelationship) error
	UpsertSimilarity(ctx context.Context, res SimilarityResult) error
	RebuildGlobalRelationships(ctx context.Context) (int64, error)

	CountStuff(ctx context.Context, userID string) (int, error)
	CountJourneys(ctx context.Context, userID string) (int, error)
	CountRoutines(ctx context.Context, userID string) (int, error)
	CountReviews(ctx context.Context, userID string) (int, error)

	GetEntities(ctx context.Context, ids []string) ([]Entity, error)
	ListEntities(ctx context.Context) ([]Entity, error)
	ListCandidateUsers(ctx context.Context, excludeUserID string, limit int) ([]string, error)
	ListStuff(ctx context.Context, userID string) ([]StuffItem, error)
	ListAllStuff(ctx context.Context) ([]StuffItem, error)
	ListRoutines(ctx context.Context, userID string) ([]Routine, error)
	ListReviews(ctx context.Context, userID string) ([]Review, error)
	ListJourneys(ctx context.Context, filter JourneyFilter) ([]Journey, error)
	ListGlobalRelationships(ctx context.Context, filter ConsensusFilter) ([]GlobalRelationship, error)
	ListSimilarities(ctx context.Context, filter SimilarityFilter) ([]SimilarityResult, error)
}
