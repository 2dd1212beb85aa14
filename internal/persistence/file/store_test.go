package file

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/liamchampton/write-my-performance-review/internal/domain"
)

func TestLoadCreatesDefaultDocument(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/data/activities_data.json")

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, doc.Activities)
	require.Equal(t, domain.DefaultCategories, doc.Categories)

	exists, err := afero.Exists(fs, "/data/activities_data.json")
	require.NoError(t, err)
	require.True(t, exists, "first load must persist the default document")

	data, err := afero.ReadFile(fs, "/data/activities_data.json")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "{\n  \"activities\": [],\n  \"categories\": [\n    \"Speaking Engagement\""))
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(afero.NewMemMapFs(), "activities_data.json")

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	doc.Activities = append(doc.Activities, domain.Activity{
		ID:                1,
		Title:             "Talk",
		Description:       "Conference keynote",
		Category:          "Speaking Engagement",
		ImpactDescription: "500 attendees",
		Date:              "2025-06-01T09:00:00.000000",
		Tags:              []string{"keynote"},
	})
	doc.Categories = append(doc.Categories, "Podcast")
	require.NoError(t, store.Save(ctx, doc))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(doc, loaded); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, store.Save(ctx, loaded))
	reloaded, err := store.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(loaded, reloaded); diff != "" {
		t.Fatalf("save(load()) changed the document (-want +got):\n%s", diff)
	}
}

func TestSaveLeavesNoTemporaryFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/srv/tracker/activities_data.json")

	_, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), domain.NewDocument()))

	entries, err := afero.ReadDir(fs, "/srv/tracker")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "activities_data.json", entries[0].Name())
}

func TestLoadMalformedFileFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "activities_data.json", []byte(`{"activities": [`), 0o644))
	store := NewStore(fs, "activities_data.json")

	_, err := store.Load(context.Background())
	var storageErr *domain.StorageError
	require.ErrorAs(t, err, &storageErr)
	require.Equal(t, "load", storageErr.Op)

	data, err := afero.ReadFile(fs, "activities_data.json")
	require.NoError(t, err)
	require.Equal(t, `{"activities": [`, string(data), "a corrupt file must not be overwritten")
}

func TestSaveOnReadOnlyFilesystemFails(t *testing.T) {
	store := NewStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "activities_data.json")

	_, err := store.Load(context.Background())
	var storageErr *domain.StorageError
	require.ErrorAs(t, err, &storageErr)
	require.Equal(t, "save", storageErr.Op)
}
