package similarity

import "context"

// RatingCorrelation scores how alike two users rate things, in [0,1]. The
// engine treats it as opaque.
type RatingCorrelation interface {
	Correlate(ctx context.Context, userA, userB string) (float64, error)
}

// CorrelationFunc adapts a plain function to RatingCorrelation.
type CorrelationFunc func(ctx context.Context, userA, userB string) (float64, error)

func (f CorrelationFunc) Correlate(ctx context.Context, userA, userB string) (float64, error) {
	return f(ctx, userA, userB)
}
