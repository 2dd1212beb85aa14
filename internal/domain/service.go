// Package domain defines the activity model and the operations over the stored document.
package domain

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

// DateLayout is the ISO-8601 layout used when an activity is created without a date.
const DateLayout = "2006-01-02T15:04:05.000000"

// DocumentStore loads and saves the whole document.
type DocumentStore interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

// Service orchestrates activity workflows. Every operation is a full
// load, compute, optional save cycle run under a single lock.
type Service struct {
	mu        sync.Mutex
	store     DocumentStore
	publisher EventPublisher
	now       func() time.Time
}

// Option configures optional Service behaviour.
type Option func(*Service)

// WithPublisher sets the publisher notified after committed mutations.
func WithPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

// WithClock overrides the time source used for default dates and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service.
func NewService(store DocumentStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: noopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateActivityInput captures the payload from the API layer. A nil Date
// defaults to now; any supplied value, including "", is stored as given.
type CreateActivityInput struct {
	Title             string
	Description       string
	Category          string
	ImpactDescription string
	AISummary         string
	Date              *string
	Tags              []string
}

// Validate checks the required fields.
func (in CreateActivityInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return validationError("title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return validationError("description is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return validationError("category is required")
	}
	return nil
}

// ActivityPatch holds the fields an update may replace. Nil means keep the current value.
type ActivityPatch struct {
	Title             *string
	Description       *string
	Category          *string
	ImpactDescription *string
	AISummary         *string
	Tags              *[]string
}

func (p ActivityPatch) apply(a *Activity) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.ImpactDescription != nil {
		a.ImpactDescription = *p.ImpactDescription
	}
	if p.AISummary != nil {
		a.AISummary = *p.AISummary
	}
	if p.Tags != nil {
		a.Tags = append([]string{}, (*p.Tags)...)
	}
}

// Stats summarises how activities spread over categories.
type Stats struct {
	TotalActivities      int            `json:"total_activities"`
	CategoriesUsed       int            `json:"categories_used"`
	CategoryDistribution map[string]int `json:"category_distribution"`
}

// ListActivities returns activities sorted by date, newest first. A non-empty
// category keeps only exact matches. Dates compare as plain strings.
func (s *Service) ListActivities(ctx context.Context, category string) ([]Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Activity, 0, len(doc.Activities))
	for _, activity := range doc.Activities {
		if category != "" && activity.Category != category {
			continue
		}
		out = append(out, activity.clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out, nil
}

// GetActivity fetches by ID.
func (s *Service) GetActivity(ctx context.Context, id int) (*Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := doc.indexOf(id)
	if idx < 0 {
		return nil, ErrActivityNotFound
	}
	activity := doc.Activities[idx].clone()
	return &activity, nil
}

// CreateActivity assigns the next id, fills defaults and appends the activity.
func (s *Service) CreateActivity(ctx context.Context, input CreateActivityInput) (*Activity, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var created Activity
	err := s.mutate(ctx, func(doc *Document) (*Event, error) {
		created = Activity{
			ID:                doc.NextActivityID(),
			Title:             input.Title,
			Description:       input.Description,
			Category:          input.Category,
			ImpactDescription: input.ImpactDescription,
			AISummary:         input.AISummary,
			Tags:              append([]string{}, input.Tags...),
		}
		if input.Date != nil {
			created.Date = *input.Date
		} else {
			created.Date = s.now().Format(DateLayout)
		}

		doc.Activities = append(doc.Activities, created)
		event := created.clone()
		return &Event{Type: EventActivityCreated, ActivityID: created.ID, Activity: &event}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateActivity merges the supplied fields into an existing activity. The id and
// date are never changed.
func (s *Service) UpdateActivity(ctx context.Context, id int, patch ActivityPatch) (*Activity, error) {
	var updated Activity
	err := s.mutate(ctx, func(doc *Document) (*Event, error) {
		idx := doc.indexOf(id)
		if idx < 0 {
			return nil, ErrActivityNotFound
		}
		patch.apply(&doc.Activities[idx])
		updated = doc.Activities[idx].clone()
		event := updated.clone()
		return &Event{Type: EventActivityUpdated, ActivityID: id, Activity: &event}, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteActivity removes the activity with the given id.
func (s *Service) DeleteActivity(ctx context.Context, id int) error {
	return s.mutate(ctx, func(doc *Document) (*Event, error) {
		idx := doc.indexOf(id)
		if idx < 0 {
			return nil, ErrActivityNotFound
		}
		doc.Activities = append(doc.Activities[:idx], doc.Activities[idx+1:]...)
		return &Event{Type: EventActivityDeleted, ActivityID: id}, nil
	})
}

// ListCategories returns the categories in first-seen order.
func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string{}, doc.Categories...), nil
}

// CreateCategory appends name unless it is already present. The document is
// only written when it changed; name is returned either way.
func (s *Service) CreateCategory(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", validationError("name is required")
	}

	err := s.mutate(ctx, func(doc *Document) (*Event, error) {
		if doc.HasCategory(name) {
			return nil, nil
		}
		doc.Categories = append(doc.Categories, name)
		return &Event{Type: EventCategoryCreated, Category: name}, nil
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// Stats counts activities per category. Only categories used by at least one
// activity appear in the distribution.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return Stats{}, err
	}

	distribution := make(map[string]int)
	for _, activity := range doc.Activities {
		category := activity.Category
		if category == "" {
			category = UncategorizedLabel
		}
		distribution[category]++
	}

	return Stats{
		TotalActivities:      len(doc.Activities),
		CategoriesUsed:       len(distribution),
		CategoryDistribution: distribution,
	}, nil
}

// mutate runs change against the loaded document and saves the document when
// change returns an event. Only the load, change and save hold the lock; the
// event is published after it is released.
func (s *Service) mutate(ctx context.Context, change func(doc *Document) (*Event, error)) error {
	event, err := s.commit(ctx, change)
	if err != nil || event == nil {
		return err
	}
	if err := s.publisher.Publish(ctx, *event); err != nil {
		log.Printf("events: publish %s failed: %v", event.Type, err)
	}
	return nil
}

func (s *Service) commit(ctx context.Context, change func(doc *Document) (*Event, error)) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	event, err := change(doc)
	if err != nil || event == nil {
		return nil, err
	}
	if err := s.store.Save(ctx, doc); err != nil {
		return nil, err
	}
	event.OccurredAt = s.now().UTC()
	return event, nil
}
