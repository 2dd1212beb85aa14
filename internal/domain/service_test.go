package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateAssignsIncreasingIDsWithoutReuse(t *testing.T) {
	ctx := context.Background()
	service := NewService(newMemoryStore())

	first, err := service.CreateActivity(ctx, CreateActivityInput{Title: "Talk", Description: "d", Category: "Speaking Engagement"})
	require.NoError(t, err)
	require.Equal(t, 1, first.ID)
	require.NotEmpty(t, first.Date)
	require.NotNil(t, first.Tags)
	require.Empty(t, first.Tags)

	second, err := service.CreateActivity(ctx, CreateActivityInput{Title: "Post", Description: "d", Category: "Blog Post"})
	require.NoError(t, err)
	require.Equal(t, 2, second.ID)

	require.NoError(t, service.DeleteActivity(ctx, 1))
	_, err = service.GetActivity(ctx, 1)
	require.ErrorIs(t, err, ErrActivityNotFound)

	third, err := service.CreateActivity(ctx, CreateActivityInput{Title: "Video", Description: "d", Category: "Video Content"})
	require.NoError(t, err)
	require.Equal(t, 3, third.ID)
}

func TestCreateUsesClockForMissingDate(t *testing.T) {
	fixed := time.Date(2025, time.March, 4, 9, 30, 15, 123456000, time.UTC)
	service := NewService(newMemoryStore(), WithClock(func() time.Time { return fixed }))

	activity, err := service.CreateActivity(context.Background(), CreateActivityInput{Title: "t", Description: "d", Category: "c"})
	require.NoError(t, err)
	require.Equal(t, "2025-03-04T09:30:15.123456", activity.Date)

	explicit, err := service.CreateActivity(context.Background(), CreateActivityInput{Title: "t", Description: "d", Category: "c", Date: stringPtr("2024-01-01T00:00:00")})
	require.NoError(t, err)
	require.Equal(t, "2024-01-01T00:00:00", explicit.Date)

	blank, err := service.CreateActivity(context.Background(), CreateActivityInput{Title: "t", Description: "d", Category: "c", Date: stringPtr("")})
	require.NoError(t, err)
	require.Equal(t, "", blank.Date, "a supplied empty date is stored as given")
}

func TestCreateRequiresFields(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store)

	cases := []CreateActivityInput{
		{Description: "d", Category: "c"},
		{Title: "t", Category: "c"},
		{Title: "t", Description: "d", Category: "   "},
	}
	for _, input := range cases {
		_, err := service.CreateActivity(context.Background(), input)
		require.ErrorIs(t, err, ErrValidation)
	}
	require.Zero(t, store.saves)
}

func TestUpdateMergesOnlySuppliedFields(t *testing.T) {
	ctx := context.Background()
	service := NewService(newMemoryStore())

	created, err := service.CreateActivity(ctx, CreateActivityInput{
		Title:             "Workshop",
		Description:       "Hands-on lab",
		Category:          "Technical Workshop",
		ImpactDescription: "40 attendees",
		AISummary:         "summary",
		Date:              stringPtr("2025-02-01T10:00:00"),
		Tags:              []string{"go", "cloud"},
	})
	require.NoError(t, err)

	title := "Workshop v2"
	updated, err := service.UpdateActivity(ctx, created.ID, ActivityPatch{Title: &title})
	require.NoError(t, err)

	want := *created
	want.Title = title
	require.Equal(t, want, *updated)

	stored, err := service.GetActivity(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, want, *stored)
}

func TestUpdateReplacesTagsAndEmptyStrings(t *testing.T) {
	ctx := context.Background()
	service := NewService(newMemoryStore())

	created, err := service.CreateActivity(ctx, CreateActivityInput{Title: "t", Description: "d", Category: "c", AISummary: "old", Tags: []string{"a"}})
	require.NoError(t, err)

	empty := ""
	tags := []string{}
	updated, err := service.UpdateActivity(ctx, created.ID, ActivityPatch{AISummary: &empty, Tags: &tags})
	require.NoError(t, err)
	require.Equal(t, "", updated.AISummary)
	require.Empty(t, updated.Tags)
	require.Equal(t, created.Date, updated.Date)
	require.Equal(t, created.ID, updated.ID)
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	service := NewService(newMemoryStore())

	_, err := service.UpdateActivity(context.Background(), 42, ActivityPatch{})
	require.ErrorIs(t, err, ErrActivityNotFound)
	require.ErrorIs(t, service.DeleteActivity(context.Background(), 42), ErrActivityNotFound)
}

func TestListFiltersExactlyAndSortsByDateString(t *testing.T) {
	ctx := context.Background()
	service := NewService(newMemoryStore())

	inputs := []CreateActivityInput{
		{Title: "a", Description: "d", Category: "Blog Post", Date: stringPtr("2025-01-10T00:00:00")},
		{Title: "b", Description: "d", Category: "blog post", Date: stringPtr("2025-03-01T00:00:00")},
		{Title: "c", Description: "d", Category: "Blog Post", Date: stringPtr("2025-02-01T00:00:00")},
		{Title: "d", Description: "d", Category: "Mentoring", Date: stringPtr("2025-02-01T00:00:00")},
	}
	for _, input := range inputs {
		_, err := service.CreateActivity(ctx, input)
		require.NoError(t, err)
	}

	all, err := service.ListActivities(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c", "d", "a"}, titles(all))

	filtered, err := service.ListActivities(ctx, "Blog Post")
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a"}, titles(filtered))

	none, err := service.ListActivities(ctx, "Blog")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestListPutsMissingDatesLast(t *testing.T) {
	store := newMemoryStore()
	store.doc = &Document{
		Activities: []Activity{
			{ID: 1, Title: "undated", Tags: []string{}},
			{ID: 2, Title: "dated", Date: "2024-05-05T00:00:00", Tags: []string{}},
		},
		Categories: []string{},
	}
	service := NewService(store)

	activities, err := service.ListActivities(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, []string{"dated", "undated"}, titles(activities))
}

func TestCreateCategoryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	service := NewService(store)

	name, err := service.CreateCategory(ctx, "Podcast")
	require.NoError(t, err)
	require.Equal(t, "Podcast", name)
	savesAfterFirst := store.saves

	name, err = service.CreateCategory(ctx, "Podcast")
	require.NoError(t, err)
	require.Equal(t, "Podcast", name)
	require.Equal(t, savesAfterFirst, store.saves, "duplicate category must not rewrite the document")

	categories, err := service.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, len(DefaultCategories)+1)
	require.Equal(t, "Podcast", categories[len(categories)-1])

	count := 0
	for _, category := range categories {
		if category == "Podcast" {
			count++
		}
	}
	require.Equal(t, 1, count)

	_, err = service.CreateCategory(ctx, " ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestStatsCountsUsedCategories(t *testing.T) {
	store := newMemoryStore()
	store.doc = &Document{
		Activities: []Activity{
			{ID: 1, Category: "Blog Post"},
			{ID: 2, Category: "Blog Post"},
			{ID: 3, Category: "Mentoring"},
			{ID: 4},
		},
		Categories: append([]string{}, DefaultCategories...),
	}
	service := NewService(store)

	stats, err := service.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, stats.TotalActivities)
	require.Equal(t, 3, stats.CategoriesUsed)
	require.Equal(t, map[string]int{"Blog Post": 2, "Mentoring": 1, UncategorizedLabel: 1}, stats.CategoryDistribution)

	sum := 0
	for _, count := range stats.CategoryDistribution {
		sum += count
	}
	require.Equal(t, stats.TotalActivities, sum)
}

func TestStorageErrorsPropagate(t *testing.T) {
	boom := &StorageError{Op: "load", Err: errors.New("corrupt")}
	service := NewService(&failingStore{err: boom})

	_, err := service.ListActivities(context.Background(), "")
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	require.Equal(t, "load", storageErr.Op)
}

func TestMutationsPublishEvents(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{err: errors.New("broker down")}
	service := NewService(newMemoryStore(), WithPublisher(publisher))

	created, err := service.CreateActivity(ctx, CreateActivityInput{Title: "t", Description: "d", Category: "c"})
	require.NoError(t, err, "publish failures must not fail the mutation")

	title := "t2"
	_, err = service.UpdateActivity(ctx, created.ID, ActivityPatch{Title: &title})
	require.NoError(t, err)
	require.NoError(t, service.DeleteActivity(ctx, created.ID))
	_, err = service.CreateCategory(ctx, "New")
	require.NoError(t, err)
	_, err = service.CreateCategory(ctx, "New")
	require.NoError(t, err)

	require.Equal(t, []string{EventActivityCreated, EventActivityUpdated, EventActivityDeleted, EventCategoryCreated}, publisher.types())
	require.Equal(t, created.ID, publisher.events[0].ActivityID)
	require.Equal(t, "t2", publisher.events[1].Activity.Title)
	require.False(t, publisher.events[0].OccurredAt.IsZero())
}

func TestPublishDoesNotHoldTheDocumentLock(t *testing.T) {
	ctx := context.Background()
	publisher := &blockingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	service := NewService(newMemoryStore(), WithPublisher(publisher))

	created := make(chan error, 1)
	go func() {
		_, err := service.CreateActivity(ctx, CreateActivityInput{Title: "t", Description: "d", Category: "c"})
		created <- err
	}()

	select {
	case <-publisher.entered:
	case <-time.After(time.Second):
		t.Fatal("create never reached the publisher")
	}

	listed := make(chan []Activity, 1)
	go func() {
		activities, err := service.ListActivities(ctx, "")
		if err == nil {
			listed <- activities
		}
	}()

	select {
	case activities := <-listed:
		require.Equal(t, []string{"t"}, titles(activities))
	case <-time.After(time.Second):
		t.Fatal("ListActivities waited for a slow publish")
	}

	close(publisher.release)
	require.NoError(t, <-created)
}

func TestNextActivityIDUsesMaximum(t *testing.T) {
	doc := &Document{Activities: []Activity{{ID: 7}, {ID: 3}}}
	require.Equal(t, 8, doc.NextActivityID())
	require.Equal(t, 1, NewDocument().NextActivityID())
}

func stringPtr(s string) *string {
	return &s
}

func titles(activities []Activity) []string {
	out := make([]string, 0, len(activities))
	for _, activity := range activities {
		out = append(out, activity.Title)
	}
	return out
}

// memoryStore copies the document on every load and save so tests observe
// the same isolation a real backend gives.
type memoryStore struct {
	doc   *Document
	saves int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{}
}

func (m *memoryStore) Load(context.Context) (*Document, error) {
	if m.doc == nil {
		m.doc = NewDocument()
		m.saves++
	}
	return copyDocument(m.doc), nil
}

func (m *memoryStore) Save(_ context.Context, doc *Document) error {
	m.doc = copyDocument(doc)
	m.saves++
	return nil
}

func copyDocument(doc *Document) *Document {
	out := &Document{
		Activities: make([]Activity, 0, len(doc.Activities)),
		Categories: append([]string{}, doc.Categories...),
	}
	for _, activity := range doc.Activities {
		out.Activities = append(out.Activities, activity.clone())
	}
	return out
}

type failingStore struct {
	err error
}

func (f *failingStore) Load(context.Context) (*Document, error) { return nil, f.err }

func (f *failingStore) Save(context.Context, *Document) error { return f.err }

type recordingPublisher struct {
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingPublisher) types() []string {
	out := make([]string, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.Type)
	}
	return out
}

type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingPublisher) Publish(ctx context.Context, _ Event) error {
	close(b.entered)
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
