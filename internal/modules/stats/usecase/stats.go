package usecase

import (
	"context"
	"sort"

	"analyzeit/internal/modules/stats/domain"
	"analyzeit/internal/modules/stats/dto"
	statsin "analyzeit/internal/modules/stats/port/in"
	"analyzeit/internal/modules/stats/service"
)

type Interactor struct {
	svc *service.StatsService
}

func NewInteractor(svc *service.StatsService) statsin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Accumulate(ctx context.Context, input dto.AccumulateInput) (dto.AccumulateOutput, error) {
	category, keys, err := i.svc.Accumulate(ctx, input.Domain, input.Seconds, input.OccurredAt)
	out := dto.AccumulateOutput{Category: category, Keys: make([]string, 0, len(keys))}
	for _, key := range keys {
		out.Keys = append(out.Keys, key.String())
	}
	return out, err
}

func (i *Interactor) PendingBuckets(ctx context.Context) ([]dto.BucketOutput, error) {
	buckets, err := i.svc.Pending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.BucketOutput, 0, len(buckets))
	for _, stored := range buckets {
		out = append(out, toBucketOutput(stored))
	}
	return out, nil
}

func (i *Interactor) SettleBucket(ctx context.Context, input dto.SettleInput) error {
	flushed := domain.Bucket{}
	for _, cat := range input.Categories {
		stats := &domain.CategoryStats{TotalSeconds: cat.TotalSeconds, Sites: map[string]*domain.SiteStats{}}
		for _, site := range cat.Sites {
			stats.Sites[site.Key] = &domain.SiteStats{Seconds: site.Seconds, Title: site.Title, Domain: site.Domain}
		}
		flushed[cat.Name] = stats
	}
	return i.svc.Settle(ctx, input.Key, flushed)
}

func (i *Interactor) Clear(ctx context.Context) error {
	return i.svc.Clear(ctx)
}

func (i *Interactor) DaySummary(ctx context.Context, date string) (dto.DaySummaryOutput, error) {
	buckets, err := i.svc.Day(ctx, date)
	if err != nil {
		return dto.DaySummaryOutput{}, err
	}
	out := dto.DaySummaryOutput{Date: date}
	categories := map[string]int64{}
	sites := map[string]*dto.SiteSummary{}
	for _, stored := range buckets {
		for name, cat := range stored.Bucket {
			categories[name] += cat.TotalSeconds
			out.TotalSeconds += cat.TotalSeconds
			for key, site := range cat.Sites {
				if site == nil {
					continue
				}
				summary, ok := sites[key]
				if !ok {
					summary = &dto.SiteSummary{Key: key, Domain: siteDomain(key, site), Title: site.Title}
					sites[key] = summary
				}
				// A site recategorized mid-day is listed under its latest category.
				summary.Category = name
				summary.Seconds += site.Seconds
			}
		}
	}
	for name, seconds := range categories {
		out.Categories = append(out.Categories, dto.CategoryTotal{Name: name, Seconds: seconds})
	}
	sort.Slice(out.Categories, func(a, b int) bool {
		if out.Categories[a].Seconds != out.Categories[b].Seconds {
			return out.Categories[a].Seconds > out.Categories[b].Seconds
		}
		return out.Categories[a].Name < out.Categories[b].Name
	})
	for _, summary := range sites {
		out.Sites = append(out.Sites, *summary)
	}
	sort.Slice(out.Sites, func(a, b int) bool {
		if out.Sites[a].Seconds != out.Sites[b].Seconds {
			return out.Sites[a].Seconds > out.Sites[b].Seconds
		}
		return out.Sites[a].Key < out.Sites[b].Key
	})
	return out, nil
}

func toBucketOutput(stored domain.StoredBucket) dto.BucketOutput {
	out := dto.BucketOutput{Key: stored.Key.String(), Date: stored.Key.Date, Hour: stored.Key.Hour}
	names := make([]string, 0, len(stored.Bucket))
	for name := range stored.Bucket {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cat := stored.Bucket[name]
		category := dto.CategoryOutput{Name: name, TotalSeconds: cat.TotalSeconds}
		keys := make([]string, 0, len(cat.Sites))
		for key := range cat.Sites {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			site := cat.Sites[key]
			if site == nil {
				continue
			}
			category.Sites = append(category.Sites, dto.SiteOutput{
				Key:     key,
				Domain:  siteDomain(key, site),
				Title:   site.Title,
				Seconds: site.Seconds,
			})
		}
		out.Categories = append(out.Categories, category)
	}
	return out
}

func siteDomain(key string, site *domain.SiteStats) string {
	if site.Domain != "" {
		return site.Domain
	}
	return domain.DomainFromSiteKey(key)
}
