package command

import (
	"context"
	"fmt"
	"strconv"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/ratelimit"
)

// Feature keys consulted by the AI handlers.
const (
	FeatureAIGenerate    = "ai.generate"
	FeatureAIEvaluate    = "ai.evaluate"
	FeatureAIAnalyze     = "ai.analyze"
	FeatureAIGapAnalysis = "ai.gap_analysis"
	FeatureAIQuery       = "ai.query"
)

func featureEnabled(ctx context.Context, gate featuregate.FeatureGate, key string, userID int64) (bool, error) {
	if gate == nil {
		return true, nil
	}
	if userID <= 0 {
		return gate.Enabled(ctx, key)
	}
	return gate.Enabled(ctx, key, featuregate.WithScopeSet(featuregate.ScopeSet{
		System: true,
		UserID: strconv.FormatInt(userID, 10),
	}))
}

// aiGuard admits an AI call for a user: the feature must be on and the
// per-user AI budget not exhausted.
type aiGuard struct {
	gate    featuregate.FeatureGate
	limiter *ratelimit.Limiter
}

func (g aiGuard) admit(ctx context.Context, feature string, userID int64) error {
	enabled, err := featureEnabled(ctx, g.gate, feature, userID)
	if err != nil {
		return err
	}
	if !enabled {
		return fmt.Errorf("%w: %s", types.ErrFeatureDisabled, feature)
	}
	if g.limiter == nil {
		return nil
	}
	if !g.limiter.Allow(strconv.FormatInt(userID, 10)) {
		return types.ErrRateLimited
	}
	return nil
}
