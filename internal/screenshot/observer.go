package screenshot

import (
	"context"

	"github.com/xkilldash9x/formcheck/internal/classifier"
)

// Observer returns a classifier observer that captures the page after each
// decision. Validation errors and probe failures are filed under fail, success
// under pass, and the no-confirmation fallback by its computed outcome.
func Observer(store *Store, shooter Screenshotter, testID string) classifier.Observer {
	return func(ctx context.Context, d classifier.Decision) {
		store.Capture(ctx, shooter, decisionStatus(d), testID, d.Step, "")
	}
}

func decisionStatus(d classifier.Decision) Status {
	switch d.Outcome {
	case classifier.OutcomeSuccess:
		return StatusPass
	case classifier.OutcomeAmbiguous:
		return StatusFor(d.Result.IsSuccess)
	default:
		return StatusFail
	}
}
