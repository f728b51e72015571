package classifier

import (
	"context"
	"errors"
	"time"

	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/pkg/retry"
)

type resilient struct {
	Classifier
	timeout time.Duration
	policy  retry.Policy
}

// Resilient bounds every attempt by timeout and retries transient failures
// under policy. Unusable replies are not retried.
func Resilient(c Classifier, timeout time.Duration, policy retry.Policy) Classifier {
	return &resilient{Classifier: c, timeout: timeout, policy: policy}
}

func (r *resilient) Classify(ctx context.Context, sentence string) (ledger.Value, error) {
	p := r.policy
	p.Retryable = func(err error) bool {
		return ctx.Err() == nil && Transient(err)
	}

	return retry.Value(ctx, p, func(ctx context.Context) (ledger.Value, error) {
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		return r.Classifier.Classify(ctx, sentence)
	})
}

// Transient reports whether a classification error may succeed on retry.
// Per-attempt timeouts are transient; caller cancellation and unusable replies
// are not.
func Transient(err error) bool {
	if errors.Is(err, ErrClassificationFailed) || errors.Is(err, context.Canceled) {
		return false
	}
	if retry, known := retryableStatus(err); known {
		return retry
	}
	return true
}
