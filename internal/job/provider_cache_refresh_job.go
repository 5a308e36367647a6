package job

import "context"

type ICacheRefresher interface {
	RefreshCache(ctx context.Context) error
}

// ProviderCacheRefreshJob keeps the loaded video's provider cache alive.
type ProviderCacheRefreshJob struct {
	sessions ICacheRefresher
}

func NewProviderCacheRefreshJob(sessions ICacheRefresher) *ProviderCacheRefreshJob {
	return &ProviderCacheRefreshJob{sessions: sessions}
}

func (j *ProviderCacheRefreshJob) Name() string {
	return "provider_cache_refresh"
}

func (j *ProviderCacheRefreshJob) Run(ctx context.Context) error {
	if j.sessions == nil {
		return nil
	}
	return j.sessions.RefreshCache(ctx)
}
