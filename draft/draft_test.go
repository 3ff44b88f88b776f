package draft

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankwell/models"
	"rankwell/wizard"
)

func strPtr(s string) *string { return &s }

func TestListingSlugFollowsTitleUntilEdited(t *testing.T) {
	d := NewListingDraft()

	d.SetTitle("Modern 2 Bedroom Apartment")
	assert.Equal(t, "modern-2-bedroom-apartment", d.Slug)
	assert.False(t, d.Touched.Slug)

	d.SetSlug("dha-apartment")
	assert.True(t, d.Touched.Slug)

	d.SetTitle("Modern 3 Bedroom Apartment")
	assert.Equal(t, "dha-apartment", d.Slug)
}

func TestListingSlugMatchingTitleStaysDerived(t *testing.T) {
	d := NewListingDraft()
	d.SetTitle("Sunny Rooms")
	d.SetSlug("sunny-rooms")
	assert.False(t, d.Touched.Slug)

	d.SetTitle("Sunny Rooms Lahore")
	assert.Equal(t, "sunny-rooms-lahore", d.Slug)
}

func TestListingMetaDerivation(t *testing.T) {
	d := NewListingDraft()
	d.Apply(ListingPatch{
		Title:       strPtr("Cafe Blue"),
		City:        strPtr("Lahore"),
		Description: strPtr(strings.Repeat("a", 200)),
	})
	assert.Equal(t, "Cafe Blue - Lahore", d.MetaTitle)
	assert.Len(t, d.MetaDescription, 160)

	d.SetMetaTitle("Best cafe in town")
	d.SetCity("Karachi")
	assert.Equal(t, "Best cafe in town", d.MetaTitle)
}

func TestListingApplyExplicitSlugWins(t *testing.T) {
	d := NewListingDraft()
	d.Apply(ListingPatch{Title: strPtr("Green Valley School"), Slug: strPtr("gvs")})

	assert.Equal(t, "gvs", d.Slug)
	assert.True(t, d.Touched.Slug)
}

func TestListingRemoveImage(t *testing.T) {
	d := NewListingDraft()
	d.Apply(ListingPatch{
		FeaturedImageURL: strPtr("https://cdn.example.com/a.jpg"),
		FeaturedImageAlt: strPtr("Front door"),
	})
	require.True(t, d.HasImage())

	d.Apply(ListingPatch{RemoveImage: true})
	assert.False(t, d.HasImage())
	assert.Empty(t, d.FeaturedImageAlt)
}

func TestListingDraftFromMarksDerivedTouched(t *testing.T) {
	d := ListingDraftFrom(&models.BusinessListing{
		ID:        "abc",
		Title:     "Old Title",
		Slug:      "old-title",
		Amenities: []string{"WiFi", "Parking"},
	})

	assert.Equal(t, "WiFi, Parking", d.Amenities)
	d.SetTitle("New Title")
	assert.Equal(t, "old-title", d.Slug)
}

func TestPostReadTimeFollowsContent(t *testing.T) {
	d := NewPostDraft()
	assert.Equal(t, 1, d.ReadTime)

	d.SetContent(strings.TrimSpace(strings.Repeat("word ", 450)))
	assert.Equal(t, 3, d.ReadTime)

	d.SetReadTime(10)
	assert.True(t, d.Touched.ReadTime)

	d.SetContent("short")
	assert.Equal(t, 1, d.ReadTime)
	assert.False(t, d.Touched.ReadTime)
}

func TestPostApplyReadTimeOverrideInSameEdit(t *testing.T) {
	d := NewPostDraft()
	minutes := 7
	d.Apply(PostPatch{
		Content:  strPtr(strings.Repeat("word ", 450)),
		ReadTime: &minutes,
	})
	assert.Equal(t, 7, d.ReadTime)
}

func TestPostExcerptGeneration(t *testing.T) {
	d := NewPostDraft()
	d.Apply(PostPatch{
		Content:         strPtr("# Heading\n\nSecond paragraph"),
		GenerateExcerpt: true,
	})
	assert.Equal(t, "Heading", d.Excerpt)
	assert.True(t, d.Touched.Excerpt)
}

func TestPostTags(t *testing.T) {
	d := NewPostDraft()
	assert.True(t, d.AddTag(" seo "))
	assert.False(t, d.AddTag("seo"))
	assert.False(t, d.AddTag("   "))
	assert.True(t, d.AddTag("maps"))

	d.RemoveTag("seo")
	assert.Equal(t, []string{"maps"}, d.Tags)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "u1:listing-draft-new", ListingKey("u1", ""))
	assert.Equal(t, "u1:listing-draft-abc", ListingKey("u1", "abc"))
	assert.Equal(t, "u2:blog-draft-new", PostKey("u2", ""))
}

func sampleSnapshot() Snapshot[*ListingDraft] {
	d := NewListingDraft()
	d.Apply(ListingPatch{
		Category:    strPtr("restaurants"),
		Title:       strPtr("Cafe Blue"),
		City:        strPtr("Lahore"),
		Description: strPtr("Coffee and cake"),
		Amenities:   strPtr("WiFi, Parking"),
	})
	d.SetSlug("cafe-blue-lhr")
	return Snapshot[*ListingDraft]{
		Draft:   d,
		Wizard:  wizard.State{CurrentStep: 3, CompletedSteps: []int{1, 2}},
		SavedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	snap := sampleSnapshot()

	require.NoError(t, SaveSnapshot(ctx, store, "u1:listing-draft-new", snap))
	got, err := LoadSnapshot[*ListingDraft](ctx, store, "u1:listing-draft-new")
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	require.NoError(t, store.Delete(ctx, "u1:listing-draft-new"))
	_, err = LoadSnapshot[*ListingDraft](ctx, store, "u1:listing-draft-new")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d := NewPostDraft()
	d.Apply(PostPatch{Title: strPtr("Ranking in Maps"), Content: strPtr("body text"), AddTag: strPtr("maps")})
	snap := Snapshot[*PostDraft]{Draft: d, Wizard: wizard.State{CurrentStep: 1, CompletedSteps: []int{}}}

	require.NoError(t, SaveSnapshot(ctx, store, "k", snap))
	got, err := LoadSnapshot[*PostDraft](ctx, store, "k")
	require.NoError(t, err)
	assert.Equal(t, snap.Draft, got.Draft)
	assert.Equal(t, snap.Wizard, got.Wizard)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	snap := sampleSnapshot()
	require.NoError(t, SaveSnapshot(ctx, store, "u1:listing-draft-new", snap))
	assert.True(t, mr.Exists("drafts:u1:listing-draft-new"))

	got, err := LoadSnapshot[*ListingDraft](ctx, store, "u1:listing-draft-new")
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	mr.FastForward(2 * time.Hour)
	_, err = store.Load(ctx, "u1:listing-draft-new")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAutosaverDebounces(t *testing.T) {
	store := NewMemoryStore()
	saver := NewAutosaver(store, 20*time.Millisecond, nil)
	saves := make(chan string, 10)
	saver.OnSave(func(key string, err error) { saves <- key })

	saver.Schedule("k", []byte("one"))
	saver.Schedule("k", []byte("two"))
	saver.Schedule("k", []byte("three"))

	select {
	case <-saves:
	case <-time.After(time.Second):
		t.Fatal("autosave never fired")
	}

	data, err := store.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "three", string(data))
	assert.Len(t, saves, 0)
}

func TestAutosaverFlushAndCancel(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	saver := NewAutosaver(store, time.Hour, nil)

	saver.Schedule("a", []byte("x"))
	require.NoError(t, saver.Flush(ctx, "a"))
	data, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	saver.Schedule("b", []byte("y"))
	require.NoError(t, saver.Cancel(ctx, "b"))
	require.NoError(t, saver.Close(ctx))
	_, err = store.Load(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

// slowStore delays every Save so tests can act while a write is running.
type slowStore struct {
	*MemoryStore
	delay   time.Duration
	started chan struct{}
}

func (s *slowStore) Save(ctx context.Context, key string, data []byte) error {
	select {
	case s.started <- struct{}{}:
	default:
	}
	time.Sleep(s.delay)
	return s.MemoryStore.Save(ctx, key, data)
}

func newSlowStore() *slowStore {
	return &slowStore{MemoryStore: NewMemoryStore(), delay: 100 * time.Millisecond, started: make(chan struct{}, 1)}
}

func TestAutosaverCancelWaitsForRunningSave(t *testing.T) {
	ctx := context.Background()
	store := newSlowStore()
	saver := NewAutosaver(store, time.Millisecond, nil)

	saver.Schedule("k", []byte(`{"draft":{"title":"old"}}`))
	select {
	case <-store.started:
	case <-time.After(time.Second):
		t.Fatal("autosave never started")
	}

	require.NoError(t, saver.Cancel(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))

	time.Sleep(200 * time.Millisecond)
	_, err := store.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAutosaverCancelDropsWriteWaitingBehindAnother(t *testing.T) {
	ctx := context.Background()
	store := newSlowStore()
	saver := NewAutosaver(store, time.Millisecond, nil)

	saver.Schedule("k", []byte("first"))
	<-store.started
	// queued while the first write is still running
	saver.Schedule("k", []byte("second"))
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, saver.Cancel(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))

	time.Sleep(300 * time.Millisecond)
	_, err := store.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAutosaverFlushWaitsForRunningSave(t *testing.T) {
	ctx := context.Background()
	store := newSlowStore()
	saver := NewAutosaver(store, time.Millisecond, nil)
	require.NoError(t, store.MemoryStore.Save(ctx, "k", []byte("older")))

	saver.Schedule("k", []byte("newer"))
	<-store.started

	require.NoError(t, saver.Flush(ctx, "k"))
	data, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "newer", string(data))
}

func TestAutosaverScheduleAfterCancelStillSaves(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	saver := NewAutosaver(store, time.Hour, nil)

	saver.Schedule("k", []byte("dropped"))
	require.NoError(t, saver.Cancel(ctx, "k"))
	saver.Schedule("k", []byte("kept"))
	require.NoError(t, saver.Flush(ctx, "k"))

	data, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))
}
