package classifier

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/JaimeStill/concord/internal/ledger"
)

// NewLimiter returns a limiter admitting one call per interval. A
// non-positive interval disables limiting.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

type throttled struct {
	Classifier
	limiter *rate.Limiter
}

// Throttle waits on limiter before each call. Classifiers sharing a limiter
// share its budget.
func Throttle(c Classifier, limiter *rate.Limiter) Classifier {
	return &throttled{Classifier: c, limiter: limiter}
}

func (t *throttled) Classify(ctx context.Context, sentence string) (ledger.Value, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return ledger.Failure, err
	}
	return t.Classifier.Classify(ctx, sentence)
}
