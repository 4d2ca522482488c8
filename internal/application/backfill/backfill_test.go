package backfill

import (
	"context"
	"errors"
	"testing"

	"auditorfiscal/datalake/internal/application/extractor"
	"auditorfiscal/datalake/internal/application/transformer"
	"auditorfiscal/datalake/internal/core/datalake"
	"auditorfiscal/datalake/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repo *testutil.MockDocumentRepository, bodies ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(bodies))
	for i, body := range bodies {
		id, err := repo.Insert(context.Background(), datalake.Record{
			Document: datalake.Document{AccessKey: testutil.AccessKey(100 + i), RawXML: body},
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func newBackfiller(repo datalake.Repository) *Backfiller {
	return New(repo, extractor.New(nil, extractor.Options{}), transformer.New(nil), nil)
}

func TestRun_PatchesEveryDocumentAcrossBatches(t *testing.T) {
	repo := &testutil.MockDocumentRepository{}
	ids := seed(t, repo,
		string(testutil.DefaultNFe(1).XML()),
		string(testutil.DefaultNFe(2).XML()),
		string(testutil.InboundNFe(3).XML()),
	)

	stats, err := newBackfiller(repo).Run(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Scanned)
	assert.Equal(t, 3, stats.Patched)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, int64(9), stats.Rows)

	rec, ok := repo.Patches[ids[0]]
	require.True(t, ok)
	assert.Equal(t, testutil.AccessKey(1), rec.Document.AccessKey)
	require.Len(t, rec.Items, 2)
	require.NotNil(t, rec.Items[0].Number)
	assert.Equal(t, 1, *rec.Items[0].Number)
}

func TestRun_FailuresAreCountedNotFatal(t *testing.T) {
	repo := &testutil.MockDocumentRepository{}
	ids := seed(t, repo,
		"<nfeProc><NFe>",
		"",
		string(testutil.DefaultNFe(1).XML()),
	)

	stats, err := newBackfiller(repo).Run(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Scanned)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 1, stats.Patched)
	assert.NotContains(t, repo.Patches, ids[0])
	assert.Contains(t, repo.Patches, ids[2])
}

func TestRun_NothingToPatch(t *testing.T) {
	repo := &testutil.MockDocumentRepository{
		PatchMissingFunc: func(ctx context.Context, documentID int64, rec datalake.Record) (int64, error) {
			return 0, nil
		},
	}
	seed(t, repo, string(testutil.DefaultNFe(1).XML()))

	stats, err := newBackfiller(repo).Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, stats.Patched)
}

func TestRun_EmptyTable(t *testing.T) {
	stats, err := newBackfiller(&testutil.MockDocumentRepository{}).Run(context.Background(), 5)
	require.NoError(t, err)
	assert.Zero(t, stats.Scanned)
}

func TestRun_ListError(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &testutil.MockDocumentRepository{
		ListRawFunc: func(ctx context.Context, afterID int64, limit int) ([]datalake.RawDocument, error) {
			return nil, boom
		},
	}

	_, err := newBackfiller(repo).Run(context.Background(), 5)
	assert.ErrorIs(t, err, boom)
}

func TestRun_Cancelled(t *testing.T) {
	repo := &testutil.MockDocumentRepository{}
	seed(t, repo, string(testutil.DefaultNFe(1).XML()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := newBackfiller(repo).Run(ctx, 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Scanned)
}
