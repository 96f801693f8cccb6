package cache

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rpupo63/round/database"
	"github.com/rpupo63/round/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a read-model entry lives when nothing invalidates it.
const DefaultTTL = time.Hour

// Tag categories. Every entry carries its category and the category scoped to
// the entity it describes, e.g. "project-issues-count" and
// "project-issues-count:acme".
const (
	TagProjectMembers        = "project-members"
	TagUserProjects          = "user-projects"
	TagProject               = "project"
	TagUserProjectsWithOwner = "user-projects-with-owner"
	TagProjectMembersCount   = "project-members-count"
	TagProjectIssuesCount    = "project-issues-count"
)

// Scoped returns tag narrowed to one entity.
func Scoped(tag, id string) string {
	return tag + ":" + id
}

// Source answers read-model queries uncached.
type Source interface {
	ProjectMembers(ctx context.Context, projectID string) ([]models.User, error)
	UserProjects(ctx context.Context, userID string) ([]models.Project, error)
	Project(ctx context.Context, projectID string) (*models.Project, error)
	UserProjectsWithOwner(ctx context.Context, userID string) ([]models.Project, error)
	ProjectMembersCount(ctx context.Context, projectID string) (int64, error)
	ProjectIssueCounts(ctx context.Context, projectID string) (database.IssueCounts, error)
}

// ReadModel serves Source queries through a Store. Concurrent misses on one
// key share a single load.
type ReadModel struct {
	source Source
	store  Store
	ttl    time.Duration
	group  singleflight.Group
}

func NewReadModel(source Source, store Store, ttl time.Duration) *ReadModel {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ReadModel{
		source: source,
		store:  store,
		ttl:    ttl,
	}
}

func (rm *ReadModel) ProjectMembers(ctx context.Context, projectID string) ([]models.User, error) {
	return remember(ctx, rm, TagProjectMembers, projectID, func(ctx context.Context) ([]models.User, error) {
		return rm.source.ProjectMembers(ctx, projectID)
	})
}

func (rm *ReadModel) UserProjects(ctx context.Context, userID string) ([]models.Project, error) {
	return remember(ctx, rm, TagUserProjects, userID, func(ctx context.Context) ([]models.Project, error) {
		return rm.source.UserProjects(ctx, userID)
	})
}

// Project returns one project. Lookups that fail, including not-found, are
// not cached.
func (rm *ReadModel) Project(ctx context.Context, projectID string) (*models.Project, error) {
	return remember(ctx, rm, TagProject, projectID, func(ctx context.Context) (*models.Project, error) {
		return rm.source.Project(ctx, projectID)
	})
}

func (rm *ReadModel) UserProjectsWithOwner(ctx context.Context, userID string) ([]models.Project, error) {
	return remember(ctx, rm, TagUserProjectsWithOwner, userID, func(ctx context.Context) ([]models.Project, error) {
		return rm.source.UserProjectsWithOwner(ctx, userID)
	})
}

func (rm *ReadModel) ProjectMembersCount(ctx context.Context, projectID string) (int64, error) {
	return remember(ctx, rm, TagProjectMembersCount, projectID, func(ctx context.Context) (int64, error) {
		return rm.source.ProjectMembersCount(ctx, projectID)
	})
}

func (rm *ReadModel) ProjectIssueCounts(ctx context.Context, projectID string) (database.IssueCounts, error) {
	return remember(ctx, rm, TagProjectIssuesCount, projectID, func(ctx context.Context) (database.IssueCounts, error) {
		return rm.source.ProjectIssueCounts(ctx, projectID)
	})
}

// Invalidate drops every entry carrying any of tags.
func (rm *ReadModel) Invalidate(ctx context.Context, tags ...string) error {
	return rm.store.Invalidate(ctx, tags...)
}

// InvalidateUserProjects drops both project lists of userID.
func (rm *ReadModel) InvalidateUserProjects(ctx context.Context, userID string) error {
	return rm.Invalidate(ctx,
		Scoped(TagUserProjects, userID),
		Scoped(TagUserProjectsWithOwner, userID),
	)
}

// InvalidateProjectIssues drops the issue counts of projectID.
func (rm *ReadModel) InvalidateProjectIssues(ctx context.Context, projectID string) error {
	return rm.Invalidate(ctx, Scoped(TagProjectIssuesCount, projectID))
}

func remember[T any](ctx context.Context, rm *ReadModel, tag, id string, load func(context.Context) (T, error)) (T, error) {
	key := Scoped(tag, id)
	logger := log.With().Str("cacheKey", key).Logger()

	raw, ok, err := rm.store.Get(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Msg("Cache read failed, loading from store")
	} else if ok {
		var cached T
		decodeErr := sonic.Unmarshal(raw, &cached)
		if decodeErr == nil {
			return cached, nil
		}
		logger.Warn().Err(decodeErr).Msg("Discarding undecodable cache entry")
	}

	// The load is shared by every caller waiting on key, so one caller
	// going away must not cancel it for the rest.
	shared := context.WithoutCancel(ctx)
	v, err, _ := rm.group.Do(key, func() (any, error) {
		fresh, err := load(shared)
		if err != nil {
			return nil, err
		}
		encoded, err := sonic.Marshal(fresh)
		if err != nil {
			logger.Warn().Err(err).Msg("Cache encode failed")
			return fresh, nil
		}
		if err := rm.store.Set(shared, key, encoded, rm.ttl, tag, key); err != nil {
			logger.Warn().Err(err).Msg("Cache write failed")
		}
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
