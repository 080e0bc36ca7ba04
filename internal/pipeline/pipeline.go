// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline wires the stages together: the deadline tracker
// decides which conferences are due, the source adapters fetch
// candidates, the merge engine folds them into canonical papers, and
// the verifier and summarizer enrich the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/paper-radar/internal/deadline"
	"github.com/pdiddy/paper-radar/internal/llm"
	"github.com/pdiddy/paper-radar/internal/merge"
	"github.com/pdiddy/paper-radar/internal/source"
	"github.com/pdiddy/paper-radar/internal/store"
	"github.com/pdiddy/paper-radar/internal/verify"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// AdapterFunc builds the ranked adapters for one conference. Tests
// substitute stub adapters here.
type AdapterFunc func(conf types.ConferenceConfig, client *http.Client, cfg types.SourceConfig) []source.Ranked

// Pipeline runs one collection pass over every due conference.
type Pipeline struct {
	Config   types.PipelineConfig
	Store    *store.Store
	Tracker  *deadline.Tracker
	Adapters AdapterFunc
	Verifier *verify.Verifier
	LLM      llm.Provider
	Client   *http.Client
	Now      func() time.Time
	Out      io.Writer

	// verifyGroup collapses concurrent verifications of the same
	// repository URL across conferences.
	verifyGroup singleflight.Group
}

func New(cfg types.PipelineConfig, st *store.Store, tracker *deadline.Tracker, verifier *verify.Verifier, provider llm.Provider, out io.Writer) *Pipeline {
	timeout := cfg.Sources.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Pipeline{
		Config:   cfg,
		Store:    st,
		Tracker:  tracker,
		Adapters: source.ForConference,
		Verifier: verifier,
		LLM:      provider,
		Client:   &http.Client{Timeout: timeout},
		Now:      time.Now,
		Out:      out,
	}
}

// Run executes one collection pass: refresh the deadline feed, find
// due conferences, and collect each. Conferences are isolated; one
// failing leaves its window open for the next run without blocking
// the others.
func (p *Pipeline) Run(ctx context.Context) error {
	lockPath := p.Config.Storage.LockPath
	if lockPath == "" {
		lockPath = p.Config.Storage.DBPath + ".lock"
	}
	lock, err := acquireRunLock(lockPath)
	if err != nil {
		return err
	}
	defer lock.release()

	p.refreshFeed(ctx)

	due, err := p.Tracker.Due(ctx, p.Now())
	if err != nil {
		return fmt.Errorf("finding due conferences: %w", err)
	}
	if len(due) == 0 {
		fmt.Fprintln(p.Out, "No conferences due.")
		return nil
	}

	maxConc := p.Config.Monitoring.MaxConcurrentConferences
	if maxConc <= 0 {
		maxConc = 2
	}
	sem := make(chan struct{}, maxConc)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, d := range due {
		wg.Add(1)
		go func(d types.ConferenceDeadline) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := p.collectConference(ctx, d); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s %d: %w", d.ConferenceID, d.Year, err))
				mu.Unlock()
				fmt.Fprintf(p.Out, "error: %s %d: %v\n", d.ConferenceID, d.Year, err)
			}
		}(d)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// refreshFeed reconciles the deadline feed into the store. Feed
// trouble must not stop a run: already-stored deadlines still fire, so
// failures only warn.
func (p *Pipeline) refreshFeed(ctx context.Context) {
	var entries []deadline.FeedEntry
	var err error
	switch {
	case p.Config.Monitoring.FeedPath != "":
		entries, err = deadline.LoadFeed(p.Config.Monitoring.FeedPath)
	case p.Config.Monitoring.FeedURL != "":
		entries, err = deadline.FetchFeed(ctx, p.Client, p.Config.Monitoring.FeedURL)
	default:
		return
	}
	if err != nil {
		fmt.Fprintf(p.Out, "warning: deadline feed unavailable, using stored deadlines: %v\n", err)
		return
	}
	if err := p.Tracker.Refresh(ctx, p.Config.Conferences, entries, p.Out); err != nil {
		fmt.Fprintf(p.Out, "warning: refreshing deadlines: %v\n", err)
	}
}

// collectConference runs the full collection for one due occurrence
// and closes its window on success.
func (p *Pipeline) collectConference(ctx context.Context, d types.ConferenceDeadline) error {
	conf, ok := p.conferenceConfig(d.ConferenceID, d.Year)
	if !ok {
		return fmt.Errorf("no configuration for conference")
	}

	fmt.Fprintf(p.Out, "Collecting %s %d (deadline %s)...\n",
		d.ConferenceID, d.Year, d.Deadline.Format("2006-01-02"))

	window := p.Tracker.Window(d)
	ranked := p.Adapters(conf, p.Client, p.Config.Sources)
	if len(ranked) == 0 {
		return fmt.Errorf("no sources configured")
	}

	streams := make([]merge.Stream, 0, len(ranked))
	for _, r := range ranked {
		records, err := r.Adapter.Fetch(ctx, conf, window)
		for i := range records {
			records[i].SourceRank = r.Rank
		}
		streams = append(streams, merge.Stream{
			Source:  r.Adapter.Name(),
			Rank:    r.Rank,
			Records: records,
			Err:     err,
		})
		if err == nil {
			fmt.Fprintf(p.Out, "  %s: %d records\n", r.Adapter.Name(), len(records))
		}
	}

	papers, err := merge.NewEngine().Merge(ctx, conf.Name, conf.Year, streams, p.Store, p.Out)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.Out, "  merged into %d papers\n", len(papers))

	p.verifyPapers(ctx, papers, d.Deadline)
	p.summarizePapers(ctx, conf)

	if err := p.Tracker.CloseWindow(ctx, d); err != nil {
		return fmt.Errorf("closing window: %w", err)
	}
	return nil
}

func (p *Pipeline) conferenceConfig(name string, year int) (types.ConferenceConfig, bool) {
	for _, conf := range p.Config.Conferences {
		if strings.EqualFold(conf.Name, name) && conf.Year == year {
			return conf, true
		}
	}
	return types.ConferenceConfig{}, false
}

// verifyPapers classifies every linked repository with a bounded worker
// pool. Verification failures are logged and left for the next run;
// they never fail the collection.
func (p *Pipeline) verifyPapers(ctx context.Context, papers []*types.CanonicalPaper, paperDate time.Time) {
	workers := p.Config.Verifier.Workers
	if workers <= 0 {
		workers = 4
	}
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for _, paper := range papers {
		if paper.RepoURL == "" {
			if err := p.Store.SetCodeStatus(ctx, paper.PaperKey, types.CodeNoRepo); err != nil {
				fmt.Fprintf(p.Out, "warning: marking %s: %v\n", paper.PaperKey, err)
			}
			continue
		}

		wg.Add(1)
		go func(paper *types.CanonicalPaper) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			v, err, _ := p.verifyGroup.Do(paper.RepoURL, func() (any, error) {
				verdict, verr := p.Verifier.Verify(ctx, paper.RepoURL, paperDate)
				if perr := p.Store.PutVerdict(ctx, verdict); perr != nil {
					return verdict, perr
				}
				return verdict, verr
			})
			if err != nil {
				fmt.Fprintf(p.Out, "warning: verifying %s: %v\n", paper.RepoURL, err)
			}
			verdict := v.(types.RepositoryVerdict)
			if err := p.Store.SetCodeStatus(ctx, paper.PaperKey, types.CodeStatusFor(verdict.Verdict)); err != nil {
				fmt.Fprintf(p.Out, "warning: marking %s: %v\n", paper.PaperKey, err)
			}
		}(paper)
	}
	wg.Wait()
}

// summarizePapers generates summaries for papers that lack one, in
// batches. Without a provider this is a no-op.
func (p *Pipeline) summarizePapers(ctx context.Context, conf types.ConferenceConfig) {
	if p.LLM == nil || !p.LLM.Available() {
		return
	}
	batchSize := p.Config.LLM.MaxBatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	for {
		pending, err := p.Store.PapersWithoutSummary(ctx, conf.Name, conf.Year, batchSize)
		if err != nil {
			fmt.Fprintf(p.Out, "warning: listing papers to summarize: %v\n", err)
			return
		}
		if len(pending) == 0 {
			return
		}

		batch := make([]*types.CanonicalPaper, len(pending))
		for i := range pending {
			batch[i] = &pending[i]
		}
		summaries, err := p.LLM.SummarizeBatch(ctx, batch)
		if err != nil {
			fmt.Fprintf(p.Out, "warning: summarizing %s %d: %v\n", conf.Name, conf.Year, err)
			return
		}

		stored := 0
		for key, tldr := range summaries {
			if err := p.Store.PutSummary(ctx, key, tldr, p.Config.LLM.Model); err != nil {
				fmt.Fprintf(p.Out, "warning: storing summary for %s: %v\n", key, err)
				continue
			}
			stored++
		}
		fmt.Fprintf(p.Out, "  summarized %d papers\n", stored)

		// A model that returns nothing for a whole batch would loop
		// forever; bail instead and let the next run retry.
		if stored == 0 {
			return
		}
	}
}
