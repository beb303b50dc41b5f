package app

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Dest1on/jobboard/internal/common"
	"github.com/Dest1on/jobboard/internal/domain/application"
	"github.com/Dest1on/jobboard/internal/storage"
)

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func seedSweep(t *testing.T) (*fakeSink, *fakeApplicationRepo, time.Time) {
	t.Helper()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	sink := newFakeSink()
	sink.objects["https://blobs.test/resumes/old-orphan.pdf"] = storage.StoredObject{URL: "https://blobs.test/resumes/old-orphan.pdf", CreatedAt: now.Add(-48 * time.Hour)}
	sink.objects["https://blobs.test/resumes/old-kept.pdf"] = storage.StoredObject{URL: "https://blobs.test/resumes/old-kept.pdf", CreatedAt: now.Add(-72 * time.Hour)}
	sink.objects["https://blobs.test/resumes/fresh.pdf"] = storage.StoredObject{URL: "https://blobs.test/resumes/fresh.pdf", CreatedAt: now.Add(-time.Hour)}

	apps := newFakeApplicationRepo()
	_, err := apps.Create(context.Background(), application.Application{JobID: common.NewUUID(), ApplicantID: "user-1", ResumeURL: "https://blobs.test/resumes/old-kept.pdf"})
	require.NoError(t, err)
	return sink, apps, now
}

func TestSweepDeletesOnlyOldUnreferencedResumes(t *testing.T) {
	sink, apps, now := seedSweep(t)
	sweeper := NewResumeSweeper(sink, apps, zap.NewNop())
	sweeper.now = func() time.Time { return now }

	report, err := sweeper.Sweep(context.Background(), 24*time.Hour, false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, []string{"https://blobs.test/resumes/old-orphan.pdf"}, report.Orphaned)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 2, sink.stored())
}

func TestSweepDryRunKeepsEverything(t *testing.T) {
	sink, apps, now := seedSweep(t)
	sweeper := NewResumeSweeper(sink, apps, zap.NewNop())
	sweeper.now = func() time.Time { return now }

	report, err := sweeper.Sweep(context.Background(), 0, true)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Len(t, report.Orphaned, 1)
	assert.Equal(t, 0, report.Deleted)
	assert.Equal(t, 3, sink.stored())
}
