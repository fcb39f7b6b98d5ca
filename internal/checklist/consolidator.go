// Package checklist consolidates the per-pair requirement catalogs of a deal
// into one checklist. One catalog request is issued per seller×buyer pair;
// results are merged with dedup on requirement identity, so the checklist is
// the union of everything any pair demands.
package checklist

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/domain/deal"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
)

// ErrCatalogUnavailable is returned when no pair request succeeded at all.
// Partial failures degrade to the successful subset instead.
var ErrCatalogUnavailable = errors.New("requirement catalog unavailable")

const fetchConcurrency = 4

// Consolidator builds the merged checklist for a roster + property config.
type Consolidator interface {
	Consolidate(ctx context.Context, sellers, buyers []deal.Party, cfg deal.PropertyConfig) (*types.ConsolidatedChecklist, error)
}

type consolidator struct {
	log      *logger.Logger
	provider CatalogProvider
	now      func() time.Time
}

func NewConsolidator(baseLog *logger.Logger, provider CatalogProvider) Consolidator {
	return &consolidator{
		log:      baseLog.With("service", "ChecklistConsolidator"),
		provider: provider,
		now:      time.Now,
	}
}

func (c *consolidator) Consolidate(ctx context.Context, sellers, buyers []deal.Party, cfg deal.PropertyConfig) (*types.ConsolidatedChecklist, error) {
	reqs := pairRequests(sellers, buyers, cfg)
	if len(reqs) == 0 {
		return nil, ErrCatalogUnavailable
	}

	// Fan out one fetch per pair. Pair failures are recorded, not returned:
	// one slow or broken combination must not sink the whole checklist.
	results := make([]*PairChecklist, len(reqs))
	errs := make([]error, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := c.provider.FetchPair(gctx, req)
			if err != nil {
				c.log.Warn("pair checklist fetch failed",
					"pair", i,
					"error", err)
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	out := &types.ConsolidatedChecklist{TotalPairs: len(reqs)}
	m := newMerger()
	for _, res := range results {
		if res == nil {
			out.FailedPairs++
			continue
		}
		m.add(res)
	}
	if out.FailedPairs == len(reqs) {
		joined := errors.Join(errs...)
		return nil, errors.Join(ErrCatalogUnavailable, joined)
	}

	out.Sellers = m.sellers.category()
	out.Buyers = m.buyers.category()
	out.Property = m.property.category()
	normalizeCounts(&out.Property, cfg.DeedCount)

	out.Summary = types.ChecklistSummary{
		MaxComplexity:       m.complexity,
		MaxEstimatedDays:    m.estimatedDays,
		EstimatedCompletion: c.now().AddDate(0, 0, m.estimatedDays),
	}

	c.log.Info("checklist consolidated",
		"total_pairs", out.TotalPairs,
		"failed_pairs", out.FailedPairs,
		"complexity", out.Summary.MaxComplexity,
		"estimated_days", out.Summary.MaxEstimatedDays)
	return out, nil
}

// pairRequests enumerates seller×buyer combinations in roster order. Spouse
// entries ride along with their principal and do not fan out on their own.
func pairRequests(sellers, buyers []deal.Party, cfg deal.PropertyConfig) []PairRequest {
	ss := principals(sellers)
	bs := principals(buyers)

	out := make([]PairRequest, 0, len(ss)*len(bs))
	for _, s := range ss {
		for _, b := range bs {
			out = append(out, PairRequest{
				SellerType:         s.PersonType,
				SellerMaritalState: s.MaritalState,
				SellerRegime:       s.PropertyRegime,
				BuyerType:          b.PersonType,
				BuyerMaritalState:  b.MaritalState,
				BuyerRegime:        b.PropertyRegime,
				Financing:          cfg.Financing,
				PropertyState:      cfg.PropertyState,
				PropertyType:       cfg.PropertyType,
				DeedCount:          cfg.DeedCount,
			})
		}
	}
	return out
}

func principals(list []deal.Party) []deal.Party {
	out := make([]deal.Party, 0, len(list))
	for _, p := range list {
		if !p.IsSpouse {
			out = append(out, p)
		}
	}
	return out
}

// merger accumulates pair responses in arrival order; first occurrence of a
// requirement key wins, later duplicates are dropped.
type merger struct {
	sellers       *categoryMerger
	buyers        *categoryMerger
	property      *categoryMerger
	complexity    types.Complexity
	estimatedDays int
}

func newMerger() *merger {
	return &merger{
		sellers:  newCategoryMerger(),
		buyers:   newCategoryMerger(),
		property: newCategoryMerger(),
	}
}

func (m *merger) add(res *PairChecklist) {
	m.sellers.add(res.Sellers)
	m.buyers.add(res.Buyers)
	m.property.add(res.Property)
	m.complexity = m.complexity.Max(res.Complexity)
	if res.EstimatedDays > m.estimatedDays {
		m.estimatedDays = res.EstimatedDays
	}
}

type categoryMerger struct {
	requirements []types.Requirement
	seenReq      map[string]bool
	alerts       []string
	seenAlert    map[string]bool
}

func newCategoryMerger() *categoryMerger {
	return &categoryMerger{
		seenReq:   make(map[string]bool),
		seenAlert: make(map[string]bool),
	}
}

func (cm *categoryMerger) add(cat types.ChecklistCategory) {
	for _, r := range cat.Requirements {
		if cm.seenReq[r.Key()] {
			continue
		}
		cm.seenReq[r.Key()] = true
		cm.requirements = append(cm.requirements, r)
	}
	for _, a := range cat.Alerts {
		if cm.seenAlert[a] {
			continue
		}
		cm.seenAlert[a] = true
		cm.alerts = append(cm.alerts, a)
	}
}

func (cm *categoryMerger) category() types.ChecklistCategory {
	return types.ChecklistCategory{
		Requirements: cm.requirements,
		Alerts:       cm.alerts,
	}
}

// normalizeCounts fills in RequiredCount: deed requirements need one instance
// per registered deed, capped at 5; everything else needs exactly one.
func normalizeCounts(cat *types.ChecklistCategory, deedCount int) {
	for i := range cat.Requirements {
		r := &cat.Requirements[i]
		if r.ID == deal.DocTypeDeed {
			r.RequiredCount = clamp(deedCount, 1, 5)
		} else if r.RequiredCount <= 0 {
			r.RequiredCount = 1
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
