// Package planner assembles the bounded daily study plan: due reviews
// first, then fresh material, catch-up content, and advance exposure,
// balanced across the user's enrolled courses.
package planner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/studypace/studypace/internal/profile"
	"github.com/studypace/studypace/store"
	"github.com/studypace/studypace/store/cache"
)

const (
	// DefaultPlanLimit is used when the caller does not ask for a size.
	DefaultPlanLimit = 20
	// MaxPlanLimit caps a single plan request.
	MaxPlanLimit = 100

	planCacheTTL = 30 * time.Second
)

// Reason explains an empty (or non-empty) plan to the caller; the UI needs
// to tell "you are done" apart from "you are not enrolled anywhere".
type Reason string

const (
	ReasonOK                   Reason = "ok"
	ReasonNoEnrollments        Reason = "no_enrollments"
	ReasonNoPublishedQuestions Reason = "no_published_questions"
	ReasonNothingDue           Reason = "nothing_due"
)

// ErrCourseNotFound is returned for an unknown course filter.
var ErrCourseNotFound = fmt.Errorf("course not found")

// Config tunes the selection policy. Shares are proportions of the budget
// left after due reviews are seated; they are normalized at use.
type Config struct {
	CurrentShare float64
	BridgeShare  float64
	StretchShare float64

	MaxPullForwardDays int
	StretchWindowDays  int
	// CurrentWindowDays is how far back topic coverage still counts as
	// "just covered" rather than catch-up material.
	CurrentWindowDays int
}

// ConfigFromProfile builds the selection policy from the server profile.
func ConfigFromProfile(p *profile.Profile) Config {
	return Config{
		CurrentShare:       p.PlanCurrentShare,
		BridgeShare:        p.PlanBridgeShare,
		StretchShare:       p.PlanStretchShare,
		MaxPullForwardDays: p.MaxPullForwardDays,
		StretchWindowDays:  p.StretchWindowDays,
		CurrentWindowDays:  7,
	}
}

// Store is the interface for store operations needed by the planner.
type Store interface {
	GetCourse(ctx context.Context, find *store.FindCourse) (*store.Course, error)
	ListEnrollments(ctx context.Context, find *store.FindEnrollment) ([]*store.Enrollment, error)
	ListTopics(ctx context.Context, find *store.FindTopic) ([]*store.Topic, error)
	ListQuestions(ctx context.Context, find *store.FindQuestion) ([]*store.Question, error)
	ListCards(ctx context.Context, find *store.FindCard) ([]*store.Card, error)
}

// Service builds daily plans. Plan builds are pure reads; an abandoned
// request has nothing to unwind.
type Service struct {
	store  Store
	config Config

	// planCache keeps freshly built plans for a few seconds; a plan is
	// recomputed from scratch on every miss.
	planCache *cache.Cache

	now func() time.Time
}

// NewService creates the plan builder.
func NewService(st Store, config Config) *Service {
	return &Service{
		store:  st,
		config: config,
		planCache: cache.New(cache.Config{
			DefaultTTL: planCacheTTL,
			MaxItems:   256,
		}),
		now: time.Now,
	}
}

// Close releases the plan cache.
func (s *Service) Close() {
	s.planCache.Close()
}

// BuildPlanRequest asks for a plan of at most Limit questions.
// PaceOffsetDays is negative when the learner is behind the course's
// nominal schedule and positive when ahead.
type BuildPlanRequest struct {
	UserID         int32
	CourseUID      *string
	Limit          int
	PaceOffsetDays int
}

// Plan is one computed daily session.
type Plan struct {
	Items []PlanItem `json:"items"`
	// IsBehind reports catch-up mode: true iff bridge items were selected.
	IsBehind bool   `json:"isBehind"`
	Reason   Reason `json:"reason"`
}

// BuildPlan produces the ordered plan for one user. The same request
// against unchanged data yields the same plan; interval fuzz only affects
// future scheduling, never selection. An empty plan is a valid result
// carrying the reason it is empty.
func (s *Service) BuildPlan(ctx context.Context, request *BuildPlanRequest) (*Plan, error) {
	limit := request.Limit
	if limit <= 0 {
		limit = DefaultPlanLimit
	}
	if limit > MaxPlanLimit {
		limit = MaxPlanLimit
	}

	cacheKey := planCacheKey(request, limit)
	if v, ok := s.planCache.Get(ctx, cacheKey); ok {
		if plan, ok := v.(*Plan); ok {
			return plan, nil
		}
	}

	courses, err := s.resolveCourses(ctx, request)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return &Plan{Items: []PlanItem{}, Reason: ReasonNoEnrollments}, nil
	}

	now := s.now().UTC()
	pools := make([]*coursePools, 0, len(courses))
	visibleQuestions := 0
	totalCandidates := 0
	for _, course := range courses {
		p, err := gatherCoursePools(ctx, s.store, request.UserID, course, now, request.PaceOffsetDays, s.config)
		if err != nil {
			return nil, err
		}
		pools = append(pools, p)
		visibleQuestions += p.visibleQuestions
		totalCandidates += p.total()
	}

	if visibleQuestions == 0 {
		return &Plan{Items: []PlanItem{}, Reason: ReasonNoPublishedQuestions}, nil
	}
	if totalCandidates == 0 {
		return &Plan{Items: []PlanItem{}, Reason: ReasonNothingDue}, nil
	}

	// Split the budget across courses by candidate volume, then apply
	// the pool policy inside each course's slice of the budget.
	weights := make([]int, len(pools))
	for i, p := range pools {
		weights[i] = p.total()
	}
	courseSlots := allocateProportionally(limit, weights)

	selected := selection{}
	for i, p := range pools {
		selected.merge(selectFromPools(p, courseSlots[i], s.config))
	}
	items := selected.ordered()

	plan := &Plan{
		Items:    items,
		IsBehind: len(selected.bridge) > 0,
		Reason:   ReasonOK,
	}
	s.planCache.Set(ctx, cacheKey, plan)
	return plan, nil
}

func (s *Service) resolveCourses(ctx context.Context, request *BuildPlanRequest) ([]*store.Course, error) {
	if request.CourseUID != nil {
		course, err := s.store.GetCourse(ctx, &store.FindCourse{UID: request.CourseUID})
		if err != nil {
			return nil, fmt.Errorf("failed to get course: %w", err)
		}
		if course == nil {
			return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, *request.CourseUID)
		}
		return []*store.Course{course}, nil
	}

	enrollments, err := s.store.ListEnrollments(ctx, &store.FindEnrollment{UserID: &request.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	courses := make([]*store.Course, 0, len(enrollments))
	for _, enrollment := range enrollments {
		course, err := s.store.GetCourse(ctx, &store.FindCourse{ID: &enrollment.CourseID})
		if err != nil {
			return nil, fmt.Errorf("failed to get course %d: %w", enrollment.CourseID, err)
		}
		if course != nil {
			courses = append(courses, course)
		}
	}
	// Deterministic course order regardless of enrollment insertion.
	sort.Slice(courses, func(i, j int) bool { return courses[i].UID < courses[j].UID })
	return courses, nil
}

// selection accumulates picked items per category across courses.
type selection struct {
	review  []PlanItem
	current []PlanItem
	bridge  []PlanItem
	stretch []PlanItem
}

func (sel *selection) merge(other selection) {
	sel.review = append(sel.review, other.review...)
	sel.current = append(sel.current, other.current...)
	sel.bridge = append(sel.bridge, other.bridge...)
	sel.stretch = append(sel.stretch, other.stretch...)
}

// ordered renders the final plan order: all reviews first (most overdue
// first across courses), then current, bridge, and stretch in course-UID
// order, which is already how they were gathered.
func (sel *selection) ordered() []PlanItem {
	sort.SliceStable(sel.review, func(i, j int) bool {
		return sel.review[i].PriorityScore > sel.review[j].PriorityScore
	})
	items := make([]PlanItem, 0, len(sel.review)+len(sel.current)+len(sel.bridge)+len(sel.stretch))
	items = append(items, sel.review...)
	items = append(items, sel.current...)
	items = append(items, sel.bridge...)
	items = append(items, sel.stretch...)
	return items
}

// selectFromPools fills one course's slot budget: reviews may consume the
// whole budget; whatever remains is split across current/bridge/stretch by
// the configured shares, with in-order backfill of unused quota.
func selectFromPools(pools *coursePools, slots int, cfg Config) selection {
	sel := selection{}
	if slots <= 0 {
		return sel
	}

	take := len(pools.review)
	if take > slots {
		take = slots
	}
	sel.review = pools.review[:take]
	remaining := slots - take
	if remaining == 0 {
		return sel
	}

	sizes := []int{len(pools.current), len(pools.bridge), len(pools.stretch)}
	quotas := shareQuotas(remaining, sizes, []float64{cfg.CurrentShare, cfg.BridgeShare, cfg.StretchShare})
	sel.current = pools.current[:quotas[0]]
	sel.bridge = pools.bridge[:quotas[1]]
	sel.stretch = pools.stretch[:quotas[2]]
	return sel
}

// shareQuotas turns fractional shares into integer quotas capped by pool
// size, handing any unusable quota to the next pool in priority order.
func shareQuotas(total int, sizes []int, shares []float64) []int {
	quotas := make([]int, len(sizes))
	shareSum := 0.0
	for i, share := range shares {
		if sizes[i] > 0 && share > 0 {
			shareSum += share
		}
	}
	if shareSum == 0 {
		// No positive share with candidates; fall back to pure
		// priority-order fill.
		return backfill(total, quotas, sizes)
	}

	assigned := 0
	for i, share := range shares {
		if sizes[i] == 0 || share <= 0 {
			continue
		}
		q := int(float64(total) * share / shareSum)
		if q > sizes[i] {
			q = sizes[i]
		}
		quotas[i] = q
		assigned += q
	}
	return backfill(total-assigned, quotas, sizes)
}

func planCacheKey(request *BuildPlanRequest, limit int) string {
	courseUID := ""
	if request.CourseUID != nil {
		courseUID = *request.CourseUID
	}
	return fmt.Sprintf("plan/%d/%s/%d/%d", request.UserID, courseUID, limit, request.PaceOffsetDays)
}
