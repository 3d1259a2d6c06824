package mongodb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/draft"
	"github.com/rotaract/reportdesk/core/report"
	"github.com/rotaract/reportdesk/core/sequence"
)

// testDB connects to TEST_MONGODB_URI and drops the throwaway database after the test.
func testDB(t *testing.T) *DB {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}
	conf := core.MongoConfig{
		URI:            uri,
		Database:       "reportdesk_test_" + uuid.New().String()[:8],
		MaxPoolSize:    5,
		ConnectTimeout: 5 * time.Second,
		SocketTimeout:  10 * time.Second,
	}
	db, err := Connect(conf, nil)
	require.NoError(t, err)
	require.NoError(t, db.EnsureIndexes(context.Background()))
	t.Cleanup(func() {
		_ = db.Database.Drop(context.Background())
		_ = db.Close(context.Background())
	})
	return db
}

func TestReportRepository(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewReportRepository[report.ProjectReport](db, ProjectReportsCollection, report.ProjectReports)
	now := time.Now().UTC().Truncate(time.Millisecond)

	for i := 1; i <= 3; i++ {
		_, err := repo.Create(ctx, report.ProjectReport{
			Meta:         report.Meta{ID: uuid.New().String(), SubmittedBy: "u1", CreatedAt: now.Add(time.Duration(i) * time.Minute)},
			ProjectID:    sequence.Format("PROJ", i),
			ProjectInput: report.ProjectInput{ProjectName: fmt.Sprintf("Blood Drive %d", i)},
		})
		require.NoError(t, err)
	}

	last, err := repo.LastIdentifier(ctx, "PROJ")
	require.NoError(t, err)
	assert.Equal(t, "PROJ0003", last)

	items, total, err := repo.Query(ctx, report.Filter{SubmittedBy: "u1", Search: "blood", Page: core.NewPage(1, 2)})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "PROJ0003", items[0].ProjectID)

	require.NoError(t, repo.Delete(ctx, "PROJ0003"))
	_, err = repo.Get(ctx, "PROJ0003")
	assert.True(t, core.IsNotFound(err))
}

func TestDraftRepository_updateAndSweep(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewDraftRepository[draft.MeetingDraft](db, MeetingDraftsCollection, draft.MeetingDrafts)
	now := time.Now().UTC().Truncate(time.Millisecond)

	created, err := repo.Create(ctx, draft.MeetingDraft{
		Meta:    report.Meta{ID: "d1", SubmittedBy: "u1", CreatedAt: now.Add(-8 * 24 * time.Hour)},
		DraftID: "DRAFTM0001",
	})
	require.NoError(t, err)

	upd, err := repo.Update(ctx, draft.MeetingDraft{
		Meta:         report.Meta{SubmittedBy: "u1", CreatedAt: now, UpdatedAt: now},
		DraftID:      "DRAFTM0001",
		MeetingInput: report.MeetingInput{Venue: "Hall A"},
	})
	require.NoError(t, err)
	assert.Equal(t, "d1", upd.ID)
	assert.True(t, created.CreatedAt.Equal(upd.CreatedAt))
	assert.Equal(t, "Hall A", upd.Venue)

	n, err := repo.DeleteExpired(ctx, "u1", now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCounterStore(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := NewCounterStore(db)

	_, err := store.AdvanceCounter(ctx, "k", 1000)
	assert.Equal(t, sequence.ErrCounterNotFound, err)

	require.NoError(t, store.SeedCounter(ctx, "k", 998))
	require.NoError(t, store.SeedCounter(ctx, "k", 5), "seeding twice keeps the first value")
	for _, want := range []int{999, 0, 1} {
		seq, err := store.AdvanceCounter(ctx, "k", 1000)
		require.NoError(t, err)
		assert.Equal(t, want, seq)
	}
}
