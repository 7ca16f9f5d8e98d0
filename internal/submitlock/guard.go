package submitlock

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/costline/internal/config"
	"go.uber.org/zap"
)

const keyDocumentSubmit = "costline:submit:document:%s"

// Guard serializes submits of the same document across instances.
type Guard struct {
	locker Locker
	engine *config.EngineConfigHolder
	log    *zap.Logger
}

func NewGuard(locker Locker, engine *config.EngineConfigHolder, log *zap.Logger) *Guard {
	return &Guard{locker: locker, engine: engine, log: log.Named("submit.guard")}
}

// Acquire returns a release func when the lock was taken and ok=false when
// another submit holds it.
func (g *Guard) Acquire(ctx context.Context, documentID snowflake.ID) (func(context.Context), bool, error) {
	key := fmt.Sprintf(keyDocumentSubmit, documentID.String())
	ttl := g.engine.Get().SubmitLockTTL
	token, ok, err := g.locker.TryLock(ctx, key, ttl)
	if err != nil || !ok {
		return nil, ok, err
	}
	release := func(ctx context.Context) {
		if err := g.locker.Release(ctx, key, token); err != nil {
			// The key stays held until the ttl lapses.
			g.log.Warn("submit lock release failed",
				zap.String("document_id", documentID.String()),
				zap.Duration("ttl", ttl),
				zap.Error(err),
			)
		}
	}
	return release, true, nil
}
