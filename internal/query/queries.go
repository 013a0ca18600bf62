package query

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/vicdash/internal/errors"
	"github.com/hpungsan/vicdash/internal/filters"
	"github.com/hpungsan/vicdash/internal/vic"
)

// Backend is the read surface of the VIC API. *api.Client implements it.
type Backend interface {
	ListIdeas(ctx context.Context, p filters.Params) ([]vic.Idea, error)
	GetIdea(ctx context.Context, id string) (*vic.IdeaDetail, error)
	GetIdeaPerformance(ctx context.Context, id string) (*vic.Performance, error)
	GetIdeaDescription(ctx context.Context, id string) (*vic.Description, error)
	GetIdeaCatalysts(ctx context.Context, id string) (*vic.Catalysts, error)
	ListCompanies(ctx context.Context, p filters.Params) ([]vic.Company, error)
	ListUsers(ctx context.Context, p filters.Params) ([]vic.User, error)
	Health(ctx context.Context) (*vic.HealthStatus, error)
}

// Resource names prefix cache keys.
const (
	ResourceIdeas       = "ideas"
	ResourceIdea        = "idea"
	ResourcePerformance = "performance"
	ResourceDescription = "description"
	ResourceCatalysts   = "catalysts"
	ResourceCompanies   = "companies"
	ResourceUsers       = "users"
)

// Key builds the content-addressed key for a list resource.
func Key(resource string, p filters.Params) string {
	return resource + "?" + p.CacheKey()
}

// DetailKey builds the key for a per-idea resource.
func DetailKey(resource, id string) string {
	return resource + "/" + id
}

// Queries bundles one cache per resource over a Backend.
type Queries struct {
	backend Backend
	opts    Options

	ideas       *Cache[[]vic.Idea]
	idea        *Cache[*vic.IdeaDetail]
	performance *Cache[*vic.Performance]
	description *Cache[*vic.Description]
	catalysts   *Cache[*vic.Catalysts]
	companies   *Cache[[]vic.Company]
	users       *Cache[[]vic.User]
}

// New wires caches over b. Every cache gets opts.Size slots.
func New(b Backend, opts Options) *Queries {
	opts = opts.withDefaults()
	return &Queries{
		backend:     b,
		opts:        opts,
		ideas:       NewCache[[]vic.Idea](ResourceIdeas, opts),
		idea:        NewCache[*vic.IdeaDetail](ResourceIdea, opts),
		performance: NewCache[*vic.Performance](ResourcePerformance, opts),
		description: NewCache[*vic.Description](ResourceDescription, opts),
		catalysts:   NewCache[*vic.Catalysts](ResourceCatalysts, opts),
		companies:   NewCache[[]vic.Company](ResourceCompanies, opts),
		users:       NewCache[[]vic.User](ResourceUsers, opts),
	}
}

// Ideas fetches one page of ideas.
func (q *Queries) Ideas(ctx context.Context, p filters.Params) Entry[[]vic.Idea] {
	return q.ideas.Fetch(ctx, Key(ResourceIdeas, p), func(ctx context.Context) ([]vic.Idea, error) {
		return q.backend.ListIdeas(ctx, p)
	})
}

// PeekIdeas returns the cached page for p, if any.
func (q *Queries) PeekIdeas(p filters.Params) (Entry[[]vic.Idea], bool) {
	return q.ideas.Peek(Key(ResourceIdeas, p))
}

// Idea fetches an idea with whatever related records the backend embeds.
func (q *Queries) Idea(ctx context.Context, id string) Entry[*vic.IdeaDetail] {
	if err := validateID(id); err != nil {
		return Entry[*vic.IdeaDetail]{Status: StatusError, Err: err}
	}
	return q.idea.Fetch(ctx, DetailKey(ResourceIdea, id), func(ctx context.Context) (*vic.IdeaDetail, error) {
		return q.backend.GetIdea(ctx, id)
	})
}

// IdeaPerformance fetches the performance record of an idea.
func (q *Queries) IdeaPerformance(ctx context.Context, id string) Entry[*vic.Performance] {
	if err := validateID(id); err != nil {
		return Entry[*vic.Performance]{Status: StatusError, Err: err}
	}
	return q.performance.Fetch(ctx, DetailKey(ResourcePerformance, id), func(ctx context.Context) (*vic.Performance, error) {
		return q.backend.GetIdeaPerformance(ctx, id)
	})
}

// IdeaDescription fetches the write-up body of an idea.
func (q *Queries) IdeaDescription(ctx context.Context, id string) Entry[*vic.Description] {
	if err := validateID(id); err != nil {
		return Entry[*vic.Description]{Status: StatusError, Err: err}
	}
	return q.description.Fetch(ctx, DetailKey(ResourceDescription, id), func(ctx context.Context) (*vic.Description, error) {
		return q.backend.GetIdeaDescription(ctx, id)
	})
}

// IdeaCatalysts fetches the catalysts section of an idea.
func (q *Queries) IdeaCatalysts(ctx context.Context, id string) Entry[*vic.Catalysts] {
	if err := validateID(id); err != nil {
		return Entry[*vic.Catalysts]{Status: StatusError, Err: err}
	}
	return q.catalysts.Fetch(ctx, DetailKey(ResourceCatalysts, id), func(ctx context.Context) (*vic.Catalysts, error) {
		return q.backend.GetIdeaCatalysts(ctx, id)
	})
}

// Detail fetches an idea and fills each section the backend did not embed
// from its own resource. A section that cannot be read stays nil: it is
// "not available", not an error. Only the idea itself can fail.
func (q *Queries) Detail(ctx context.Context, id string) (*vic.IdeaDetail, error) {
	idea, err := q.Idea(ctx, id).Result()
	if err != nil {
		return nil, err
	}

	detail := *idea
	if detail.Description == nil {
		detail.Description = section(q, id, ResourceDescription, q.IdeaDescription(ctx, id))
	}
	if detail.Catalysts == nil {
		detail.Catalysts = section(q, id, ResourceCatalysts, q.IdeaCatalysts(ctx, id))
	}
	if detail.Performance == nil {
		detail.Performance = section(q, id, ResourcePerformance, q.IdeaPerformance(ctx, id))
	}
	return &detail, nil
}

// Companies fetches one page of companies.
func (q *Queries) Companies(ctx context.Context, p filters.Params) Entry[[]vic.Company] {
	return q.companies.Fetch(ctx, Key(ResourceCompanies, p), func(ctx context.Context) ([]vic.Company, error) {
		return q.backend.ListCompanies(ctx, p)
	})
}

// Users fetches one page of users.
func (q *Queries) Users(ctx context.Context, p filters.Params) Entry[[]vic.User] {
	return q.users.Fetch(ctx, Key(ResourceUsers, p), func(ctx context.Context) ([]vic.User, error) {
		return q.backend.ListUsers(ctx, p)
	})
}

// Health checks backend reachability. It is never cached but follows the
// same retry policy.
func (q *Queries) Health(ctx context.Context) (*vic.HealthStatus, error) {
	log := q.opts.Logger.WithFields(logrus.Fields{"component": "query", "cache": "health"})
	return withRetry(ctx, q.opts.RetryDelay, log, q.backend.Health)
}

// IdeasFetcher adapts Ideas to the accum.Tracker fetch signature.
func (q *Queries) IdeasFetcher() func(context.Context, filters.Params) ([]vic.Idea, error) {
	return func(ctx context.Context, p filters.Params) ([]vic.Idea, error) {
		return q.Ideas(ctx, p).Result()
	}
}

// CompaniesFetcher adapts Companies to the accum.Tracker fetch signature.
func (q *Queries) CompaniesFetcher() func(context.Context, filters.Params) ([]vic.Company, error) {
	return func(ctx context.Context, p filters.Params) ([]vic.Company, error) {
		return q.Companies(ctx, p).Result()
	}
}

// UsersFetcher adapts Users to the accum.Tracker fetch signature.
func (q *Queries) UsersFetcher() func(context.Context, filters.Params) ([]vic.User, error) {
	return func(ctx context.Context, p filters.Params) ([]vic.User, error) {
		return q.Users(ctx, p).Result()
	}
}

func section[T any](q *Queries, id, resource string, e Entry[*T]) *T {
	v, err := e.Result()
	if err != nil {
		q.opts.Logger.WithFields(logrus.Fields{"component": "query", "idea": id, "section": resource}).
			WithError(err).Debug("section not available")
		return nil
	}
	return v
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.NewInvalidRequest("idea id is required")
	}
	return nil
}
