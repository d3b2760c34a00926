package sqlstore

import (
	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/ratelimit"
)

var (
	_ ratelimit.StateStore   = (*RateLimitStateStore)(nil)
	_ ratelimit.StateStore   = (*CachedRateLimitStateStore)(nil)
	_ core.CommandSyncLedger = (*CommandSyncStore)(nil)
)
