package audit

import (
	"context"
	"sync"

	"auditorfiscal/datalake/internal/application/validator"
	"auditorfiscal/datalake/internal/core/fiscal"
	"auditorfiscal/datalake/internal/core/nfe"
)

// Extractor parses a source file.
type Extractor interface {
	ExtractFile(path string) (*nfe.Extraction, error)
}

// Auditor maps an extraction into the audit model.
type Auditor interface {
	Audit(ext *nfe.Extraction) fiscal.Document
}

// FileJob represents a file to be audited by a worker.
type FileJob struct {
	Path  string
	Index int
}

// FileResult is the outcome of one job. Err is set when the file could not be read.
type FileResult struct {
	Path       string
	Index      int
	Document   fiscal.Document
	Validation validator.Result
	Err        error
}

// WorkerPool extracts and validates files concurrently.
type WorkerPool struct {
	workerCount int
	jobChan     chan FileJob
	resultChan  chan FileResult
	extractor   Extractor
	auditor     Auditor
	validator   *validator.Validator
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewWorkerPool creates a pool with workerCount workers, at least one.
func NewWorkerPool(ctx context.Context, workerCount int, ex Extractor, au Auditor, v *validator.Validator) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	poolCtx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workerCount: workerCount,
		jobChan:     make(chan FileJob, workerCount*2),
		resultChan:  make(chan FileResult, workerCount*2),
		extractor:   ex,
		auditor:     au,
		validator:   v,
		ctx:         poolCtx,
		cancel:      cancel,
	}
}

// Start starts the workers.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop waits for the workers once no more jobs will be submitted.
func (p *WorkerPool) Stop() {
	p.wg.Wait()
	p.cancel()
	close(p.resultChan)
}

// Submit queues a job, failing once the pool context is done.
func (p *WorkerPool) Submit(job FileJob) error {
	select {
	case p.jobChan <- job:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Results returns the channel for receiving results.
func (p *WorkerPool) Results() <-chan FileResult {
	return p.resultChan
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for job := range p.jobChan {
		p.resultChan <- p.process(job)
	}
}

func (p *WorkerPool) process(job FileJob) FileResult {
	result := FileResult{Path: job.Path, Index: job.Index}
	if err := p.ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	ext, err := p.extractor.ExtractFile(job.Path)
	if err != nil {
		result.Err = err
		return result
	}
	result.Document = p.auditor.Audit(ext)
	result.Validation = p.validator.Validate(result.Document)
	return result
}

// ProcessFiles audits every file and returns the results in input order.
func (p *WorkerPool) ProcessFiles(files []string) []FileResult {
	p.Start()

	go func() {
		defer close(p.jobChan)
		for i, path := range files {
			if err := p.Submit(FileJob{Path: path, Index: i}); err != nil {
				return
			}
		}
	}()

	results := make([]FileResult, len(files))
	received := make([]bool, len(files))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range p.Results() {
			results[res.Index] = res
			received[res.Index] = true
		}
	}()

	p.Stop()
	<-done

	for i := range results {
		if !received[i] {
			results[i] = FileResult{Path: files[i], Index: i, Err: p.ctx.Err()}
		}
	}
	return results
}
