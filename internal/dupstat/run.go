package dupstat

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Progress is a snapshot of a running scan.
type Progress struct {
	// Discovered is the number of files yielded by the walk so far.
	Discovered uint64
	// Scanned is the number of files read successfully so far.
	Scanned uint64
	// Bytes is the size of the files read successfully so far.
	Bytes uint64
}

// staging groups walked records by size until the walk completes.
type staging struct {
	mu         sync.Mutex
	bySize     map[uint64][]FileRecord
	discovered atomic.Uint64
}

func newStaging() *staging {
	return &staging{bySize: make(map[uint64][]FileRecord)}
}

func (s *staging) add(rec FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bySize[rec.Size] = append(s.bySize[rec.Size], rec)
	s.discovered.Add(1)
}

// buckets returns the size buckets in ascending size order with records
// sorted by path, so that scheduling is reproducible for a given tree.
func (s *staging) buckets() [][]FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	sizes := make([]uint64, 0, len(s.bySize))
	for size := range s.bySize {
		sizes = append(sizes, size)
	}

	slices.Sort(sizes)

	out := make([][]FileRecord, 0, len(sizes))

	for _, size := range sizes {
		recs := s.bySize[size]
		slices.SortFunc(recs, func(a, b FileRecord) int { return cmp.Compare(a.Path, b.Path) })
		out = append(out, recs)
	}

	return out
}

// errorList collects recoverable errors from concurrent stages.
type errorList struct {
	mu   sync.Mutex
	errs []ScanError
}

func (l *errorList) add(err ScanError) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.errs = append(l.errs, err)
}

func (l *errorList) sorted() []ScanError {
	l.mu.Lock()
	defer l.mu.Unlock()

	errs := slices.Clone(l.errs)
	slices.SortFunc(errs, func(a, b ScanError) int {
		if c := cmp.Compare(a.Path, b.Path); c != 0 {
			return c
		}

		return cmp.Compare(a.Op, b.Op)
	})

	if errs == nil {
		errs = make([]ScanError, 0)
	}

	return errs
}

type jobKind int

const (
	// jobProbe opens a file that cannot have a duplicate and counts it.
	jobProbe jobKind = iota
	// jobQuick hashes the first block of a file.
	jobQuick
	// jobHash computes the full signature.
	jobHash
)

type job struct {
	rec  FileRecord
	kind jobKind
}

type quickKey struct {
	size uint64
	hash uint64
}

// pipeline owns the state shared by the worker pool.
type pipeline struct {
	opt    Options
	fp     Fingerprinter
	index  *Index
	errs   *errorList
	log    *log.Logger
	quickM sync.Mutex
	quick  map[quickKey][]FileRecord
}

func (p *pipeline) fail(rec FileRecord, op string, err error) {
	p.log.Warn("skipping file", "path", rec.Path, "op", op, "err", err)
	p.errs.add(ScanError{Path: rec.Path, Op: op, Err: err})
}

func (p *pipeline) process(ctx context.Context, j job) {
	switch j.kind {
	case jobProbe:
		if err := probe(j.rec.Path); err != nil {
			p.fail(j.rec, OpFingerprint, err)

			return
		}

		p.index.Count(j.rec)
	case jobQuick:
		sum, err := QuickFingerprint(j.rec.Path, p.opt.BlockSize)
		if err != nil {
			p.fail(j.rec, OpFingerprint, err)

			return
		}

		key := quickKey{size: j.rec.Size, hash: sum}

		p.quickM.Lock()
		p.quick[key] = append(p.quick[key], j.rec)
		p.quickM.Unlock()
	case jobHash:
		sig, err := p.fp.Fingerprint(ctx, j.rec.Path)
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled mid-file: neither counted nor an error.
				return
			}

			p.fail(j.rec, OpFingerprint, err)

			return
		}

		p.index.Add(sig, j.rec)
	}
}

// runPool feeds jobs from a single producer through a bounded queue to
// workers. Once ctx is done the producer stops and queued jobs are drained
// without being processed.
func runPool(ctx context.Context, workers int, jobs []job, fn func(context.Context, job)) error {
	queue := make(chan job, 2*workers)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)

		for _, j := range jobs {
			select {
			case queue <- j:
			case <-gctx.Done():
				return nil
			}
		}

		return nil
	})

	for range workers {
		g.Go(func() error {
			for j := range queue {
				if gctx.Err() != nil {
					continue
				}

				fn(gctx, j)
			}

			return nil
		})
	}

	return g.Wait()
}

// startProgressReporter invokes hook on each tick until ctx is done.
func startProgressReporter(ctx context.Context, snapshot func() Progress, hook func(Progress), interval time.Duration) {
	if hook == nil {
		return
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hook(snapshot())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Run scans opt.Path for duplicate files.
//
// The only errors returned are a missing or non-directory root and invalid
// options; both are detected before any file is read. Per-file and
// per-directory failures are collected in Result.Errors. Cancelling ctx stops
// the scan early and returns the partial result with Result.Partial set.
//
//nolint:funlen // Pipeline stages read best in sequence.
func Run(ctx context.Context, opt Options, progressHook func(Progress)) (*Result, error) {
	logger := orDiscard(opt.Logger)

	if opt.Path == "" {
		opt.Path = "."
	}

	opt.Path = filepath.Clean(opt.Path)

	if opt.Workers <= 0 {
		opt.Workers = runtime.NumCPU()
	}

	if opt.BlockSize > MaxBlockSize {
		return nil, fmt.Errorf("block size %d exceeds the maximum of %d", opt.BlockSize, MaxBlockSize)
	}

	filter, err := NewFilter(opt)
	if err != nil {
		return nil, err
	}

	fp := opt.Fingerprinter
	if fp == nil {
		sf, err := NewFingerprinter(opt.Algorithm, opt.BlockSize)
		if err != nil {
			return nil, err
		}

		fp = sf
	}

	walker, err := NewWalker(opt.Path, filter, logger)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		opt:   opt,
		fp:    fp,
		index: NewIndex(),
		errs:  &errorList{},
		log:   logger,
		quick: make(map[quickKey][]FileRecord),
	}

	stage := newStaging()

	// Child context stops the progress reporter on return.
	progressCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	startProgressReporter(progressCtx, func() Progress {
		return Progress{
			Discovered: stage.discovered.Load(),
			Scanned:    p.index.Files(),
			Bytes:      p.index.TotalBytes(),
		}
	}, progressHook, opt.ProgressInterval)

	start := time.Now()

	if err := walker.Walk(ctx, stage.add, p.errs.add); err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("walking %q: %w", opt.Path, err)
	}

	logger.Debug("walk complete", "files", stage.discovered.Load(), "elapsed", time.Since(start))

	jobs := plan(stage.buckets(), opt)
	if err := runPool(ctx, opt.Workers, jobs, p.process); err != nil {
		return nil, err
	}

	if opt.Prefilter && opt.QuickHash {
		jobs = p.quickCollisions()
		if err := runPool(ctx, opt.Workers, jobs, p.process); err != nil {
			return nil, err
		}
	}

	groups := p.index.Finalize()

	logger.Debug("fingerprinting complete", "files", p.index.Files(), "groups", len(groups), "elapsed", time.Since(start))

	if opt.Verify {
		groups = verifyGroups(ctx, groups, opt, p.errs.add)
		p.index.replace(groups)

		logger.Debug("verification complete", "groups", len(groups), "elapsed", time.Since(start))
	}

	errs := p.errs.sorted()

	stats := Aggregate(groups, p.index.TotalBytes(), p.index.Files())
	stats.ErrorCount = uint(len(errs))
	stats.Elapsed = time.Since(start)

	return &Result{
		Root:    opt.Path,
		Groups:  groups,
		Stats:   stats,
		Errors:  errs,
		Partial: ctx.Err() != nil,
	}, nil
}

// plan turns size buckets into jobs. With the prefilter, a file whose size
// is unique is only probed; otherwise every file is hashed.
func plan(buckets [][]FileRecord, opt Options) []job {
	var jobs []job

	for _, recs := range buckets {
		kind := jobHash

		switch {
		case !opt.Prefilter:
		case len(recs) < 2:
			kind = jobProbe
		case opt.QuickHash:
			kind = jobQuick
		}

		for _, rec := range recs {
			jobs = append(jobs, job{rec: rec, kind: kind})
		}
	}

	return jobs
}

// quickCollisions counts records whose quick hash is unique and returns
// hash jobs for the rest.
func (p *pipeline) quickCollisions() []job {
	p.quickM.Lock()
	defer p.quickM.Unlock()

	keys := make([]quickKey, 0, len(p.quick))
	for key := range p.quick {
		keys = append(keys, key)
	}

	slices.SortFunc(keys, func(a, b quickKey) int {
		if c := cmp.Compare(a.size, b.size); c != 0 {
			return c
		}

		return cmp.Compare(a.hash, b.hash)
	})

	var jobs []job

	for _, key := range keys {
		recs := p.quick[key]
		slices.SortFunc(recs, func(a, b FileRecord) int { return cmp.Compare(a.Path, b.Path) })

		if len(recs) < 2 {
			p.index.Count(recs[0])

			continue
		}

		for _, rec := range recs {
			jobs = append(jobs, job{rec: rec, kind: jobHash})
		}
	}

	return jobs
}

// verifyGroups splits every group into byte-identical subgroups. Groups not
// reached before ctx is done are kept as fingerprinted.
func verifyGroups(ctx context.Context, groups []DuplicateGroup, opt Options, report func(ScanError)) []DuplicateGroup {
	verifier := NewVerifier(opt.BlockSize)
	results := make([][]DuplicateGroup, len(groups))

	var g errgroup.Group

	g.SetLimit(opt.Workers)

	for i, group := range groups {
		g.Go(func() error {
			split, err := verifier.Split(ctx, group, report)
			if err != nil {
				results[i] = []DuplicateGroup{group}

				return nil //nolint:nilerr // Cancellation keeps the unverified group
			}

			results[i] = split

			return nil
		})
	}

	_ = g.Wait()

	verified := make([]DuplicateGroup, 0, len(groups))
	for _, split := range results {
		verified = append(verified, split...)
	}

	return verified
}
