package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"auditorfiscal/datalake/internal/application/extractor"
	"auditorfiscal/datalake/internal/application/loader"
	"auditorfiscal/datalake/internal/application/transformer"
	"auditorfiscal/datalake/internal/core/datalake"
	"auditorfiscal/datalake/internal/core/etl"
	"auditorfiscal/datalake/internal/core/fiscal"
	"auditorfiscal/datalake/internal/core/nfe"
	"auditorfiscal/datalake/internal/infrastructure/checksum"
	"auditorfiscal/datalake/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractFile(path string) (*nfe.Extraction, error) {
	args := m.Called(path)
	ext, _ := args.Get(0).(*nfe.Extraction)
	return ext, args.Error(1)
}

type MockTransformer struct {
	mock.Mock
}

func (m *MockTransformer) Transform(ext *nfe.Extraction) (datalake.Record, error) {
	args := m.Called(ext)
	return args.Get(0).(datalake.Record), args.Error(1)
}

type env struct {
	docs   *testutil.MockDocumentRepository
	ledger *testutil.MockLedger
	logs   *testutil.MockLog
	runs   *testutil.MockRunRepository
	loader *loader.Loader
	dir    string
}

func newEnv(t *testing.T, opts loader.Options) *env {
	t.Helper()
	h, err := checksum.New(checksum.SHA256)
	require.NoError(t, err)
	opts.Hasher = h

	e := &env{
		docs:   &testutil.MockDocumentRepository{},
		ledger: &testutil.MockLedger{},
		logs:   &testutil.MockLog{},
		runs:   &testutil.MockRunRepository{},
		dir:    t.TempDir(),
	}
	e.loader, err = loader.New(e.docs, e.ledger, e.logs, opts, testutil.NewNullLogger())
	require.NoError(t, err)
	return e
}

func (e *env) pipeline(ex Extractor, tr Transformer) *Pipeline {
	if ex == nil {
		ex = extractor.New(testutil.NewNullLogger(), extractor.Options{CompanyCNPJ: testutil.SupplierCNPJ})
	}
	if tr == nil {
		tr = transformer.New(testutil.NewNullLogger())
	}
	return New(ex, tr, e.loader, e.runs, Options{DefaultDir: e.dir, Recursive: true}, testutil.NewNullLogger())
}

func assertInvariant(t *testing.T, stats RunStats) {
	t.Helper()
	assert.Equal(t, stats.Total, stats.Processed+stats.Duplicates+stats.Errors)
}

func TestProcessDirectory_MixedOutcomes(t *testing.T) {
	e := newEnv(t, loader.Options{DedupByPath: true})
	testutil.WriteFile(t, e.dir, "01.xml", testutil.DefaultNFe(1).XML())
	testutil.WriteFile(t, e.dir, "02.XML", testutil.DefaultNFe(2).XML())
	testutil.WriteFile(t, e.dir, "sub/03.xml", testutil.DefaultNFe(1).XML())
	testutil.WriteFile(t, e.dir, "sub/04.xml", []byte("<nfeProc><NFe>"))
	testutil.WriteFile(t, e.dir, "notes.txt", []byte("ignored"))

	stats, err := e.pipeline(nil, nil).ProcessDirectory(context.Background(), "", etl.RunFull, true)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.Errors)
	assertInvariant(t, stats)
	assert.NotEmpty(t, stats.CorrelationID)
	assert.InDelta(t, 50.0, stats.SuccessRate(), 0.001)
	assert.Equal(t, 2, e.docs.Count())

	run := e.runs.Last()
	assert.Equal(t, etl.RunFinished, run.Status)
	assert.Equal(t, 2, run.Processed)
	assert.Equal(t, 1, run.Duplicates)
	assert.Equal(t, 1, run.Errors)

	stored, ok := e.docs.Get(testutil.AccessKey(1))
	require.True(t, ok)
	assert.Equal(t, fiscal.MovementExit, stored.Document.Movement)
}

func TestProcessDirectory_FlatSkipsSubdirectories(t *testing.T) {
	e := newEnv(t, loader.Options{})
	testutil.WriteFile(t, e.dir, "01.xml", testutil.DefaultNFe(1).XML())
	testutil.WriteFile(t, e.dir, "sub/02.xml", testutil.DefaultNFe(2).XML())

	stats, err := e.pipeline(nil, nil).ProcessDirectory(context.Background(), e.dir, etl.RunIncremental, false)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, etl.RunIncremental, e.runs.Last().Type)
}

func TestProcessDirectory_SecondRunSkipsProcessedFiles(t *testing.T) {
	e := newEnv(t, loader.Options{DedupByPath: true})
	testutil.WriteFile(t, e.dir, "01.xml", testutil.DefaultNFe(1).XML())
	p := e.pipeline(nil, nil)

	_, err := p.Run(context.Background(), etl.RunFull)
	require.NoError(t, err)

	ex := &MockExtractor{}
	stats, err := New(ex, transformer.New(nil), e.loader, e.runs, Options{DefaultDir: e.dir}, nil).
		Run(context.Background(), etl.RunIncremental)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Duplicates)
	ex.AssertNotCalled(t, "ExtractFile", mock.Anything)
	assert.Len(t, e.runs.Runs, 2)
}

func TestProcessDirectory_MissingDirectory(t *testing.T) {
	e := newEnv(t, loader.Options{})

	_, err := e.pipeline(nil, nil).ProcessDirectory(context.Background(), filepath.Join(e.dir, "missing"), etl.RunFull, true)
	require.Error(t, err)

	run := e.runs.Last()
	assert.Equal(t, etl.RunFailed, run.Status)
	assert.Contains(t, run.Message, "missing")
}

func TestProcessDirectory_NotADirectory(t *testing.T) {
	e := newEnv(t, loader.Options{})
	file := testutil.WriteFile(t, e.dir, "01.xml", testutil.DefaultNFe(1).XML())

	_, err := e.pipeline(nil, nil).ProcessDirectory(context.Background(), file, etl.RunFull, true)
	require.Error(t, err)
	assert.Equal(t, etl.RunFailed, e.runs.Last().Status)
}

func TestProcessDirectory_NoDirectoryConfigured(t *testing.T) {
	e := newEnv(t, loader.Options{})
	p := New(&MockExtractor{}, &MockTransformer{}, e.loader, e.runs, Options{}, nil)

	_, err := p.ProcessDirectory(context.Background(), "", etl.RunFull, true)
	assert.ErrorIs(t, err, ErrNoDirectory)
	assert.Empty(t, e.runs.Runs)
}

func TestProcessDirectory_Empty(t *testing.T) {
	e := newEnv(t, loader.Options{})

	stats, err := e.pipeline(nil, nil).ProcessDirectory(context.Background(), "", etl.RunFull, true)
	require.NoError(t, err)

	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.AveragePerFile())
	run := e.runs.Last()
	assert.Equal(t, etl.RunFinished, run.Status)
	assert.Equal(t, "Nenhum arquivo encontrado", run.Message)
}

func TestProcessDirectory_StartFailure(t *testing.T) {
	e := newEnv(t, loader.Options{})
	e.runs.StartFunc = func(ctx context.Context, runType etl.RunType) (int64, error) {
		return 0, errors.New("database unavailable")
	}

	_, err := e.pipeline(nil, nil).ProcessDirectory(context.Background(), "", etl.RunFull, true)
	assert.ErrorContains(t, err, "database unavailable")
}

func TestProcessDirectory_CancelledContext(t *testing.T) {
	e := newEnv(t, loader.Options{})
	testutil.WriteFile(t, e.dir, "01.xml", testutil.DefaultNFe(1).XML())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := e.pipeline(nil, nil).ProcessDirectory(ctx, "", etl.RunFull, true)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Total)
	assert.Equal(t, etl.RunFailed, e.runs.Last().Status)
}

func TestProcessFiles_SortsAndDeduplicates(t *testing.T) {
	e := newEnv(t, loader.Options{})
	b := testutil.WriteFile(t, e.dir, "b.xml", testutil.DefaultNFe(2).XML())
	a := testutil.WriteFile(t, e.dir, "a.xml", testutil.DefaultNFe(1).XML())

	var order []string
	ex := &MockExtractor{}
	ex.On("ExtractFile", mock.Anything).Return(&nfe.Extraction{}, nil).Run(func(args mock.Arguments) {
		order = append(order, args.String(0))
	})
	tr := &MockTransformer{}
	tr.On("Transform", mock.Anything).Return(datalake.Record{}, errors.New("sem itens"))

	stats, err := e.pipeline(ex, tr).ProcessFiles(context.Background(), []string{b, a, b, ""}, etl.RunFull)
	require.NoError(t, err)

	assert.Equal(t, []string{a, b}, order)
	assert.Equal(t, 2, stats.Total)
	assertInvariant(t, stats)
}

func TestProcessFile_StageFailures(t *testing.T) {
	parseErr := &fiscal.ParseError{Reason: "xml malformado", Err: errors.New("unexpected EOF")}
	ext := &nfe.Extraction{AccessKey: testutil.AccessKey(9)}

	tests := []struct {
		name      string
		setup     func(ex *MockExtractor, tr *MockTransformer)
		wantKey   string
		wantInErr string
	}{
		{
			name: "extract error",
			setup: func(ex *MockExtractor, tr *MockTransformer) {
				ex.On("ExtractFile", mock.Anything).Return(nil, parseErr)
			},
			wantInErr: "xml malformado",
		},
		{
			name: "transform error",
			setup: func(ex *MockExtractor, tr *MockTransformer) {
				ex.On("ExtractFile", mock.Anything).Return(ext, nil)
				tr.On("Transform", ext).Return(datalake.Record{}, transformer.ErrNilExtraction)
			},
			wantKey:   testutil.AccessKey(9),
			wantInErr: "transform",
		},
		{
			name: "transform panic",
			setup: func(ex *MockExtractor, tr *MockTransformer) {
				ex.On("ExtractFile", mock.Anything).Return(ext, nil)
				tr.On("Transform", ext).Panic("index out of range")
			},
			wantKey:   testutil.AccessKey(9),
			wantInErr: "panic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, loader.Options{Disposition: loader.DispositionDelete})
			path := testutil.WriteFile(t, e.dir, "x.xml", []byte("<x/>"))
			ex, tr := &MockExtractor{}, &MockTransformer{}
			tt.setup(ex, tr)

			res := e.pipeline(ex, tr).ProcessFile(context.Background(), path, 1)

			assert.Equal(t, loader.OutcomeError, res.Outcome)
			require.Error(t, res.Err)
			assert.Contains(t, res.Err.Error(), tt.wantInErr)
			assert.Equal(t, tt.wantKey, res.AccessKey)
			assert.FileExists(t, path)

			entry, ok := e.ledger.Get(path)
			require.True(t, ok)
			assert.Equal(t, etl.FileFailed, entry.Status)
			assert.Equal(t, []etl.LogStatus{etl.LogError}, e.logs.Statuses())
		})
	}
}

func TestRunStats(t *testing.T) {
	stats := RunStats{Total: 4, Processed: 3, Errors: 1, Elapsed: 400}
	assert.InDelta(t, 75.0, stats.SuccessRate(), 0.001)
	assert.EqualValues(t, 100, stats.AveragePerFile())
	assert.Zero(t, RunStats{}.SuccessRate())
}
