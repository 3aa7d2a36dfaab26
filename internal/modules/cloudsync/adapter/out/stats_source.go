package out

import (
	"context"

	"analyzeit/internal/modules/cloudsync/domain"
	syncout "analyzeit/internal/modules/cloudsync/port/out"
	statsdto "analyzeit/internal/modules/stats/dto"
	statsin "analyzeit/internal/modules/stats/port/in"
)

type StatsSource struct {
	stats statsin.Usecase
}

func NewStatsSource(stats statsin.Usecase) syncout.BucketSource {
	return &StatsSource{stats: stats}
}

func (a *StatsSource) Pending(ctx context.Context) ([]domain.PendingBucket, error) {
	buckets, err := a.stats.PendingBuckets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PendingBucket, 0, len(buckets))
	for _, bucket := range buckets {
		pending := domain.PendingBucket{Key: bucket.Key, Date: bucket.Date, Hour: bucket.Hour}
		for _, cat := range bucket.Categories {
			totals := domain.CategoryTotals{Name: cat.Name, TotalSeconds: cat.TotalSeconds}
			for _, site := range cat.Sites {
				totals.Sites = append(totals.Sites, domain.SiteTotals{Key: site.Key, Domain: site.Domain, Title: site.Title, Seconds: site.Seconds})
			}
			pending.Categories = append(pending.Categories, totals)
		}
		out = append(out, pending)
	}
	return out, nil
}

func (a *StatsSource) Settle(ctx context.Context, flushed domain.PendingBucket) error {
	input := statsdto.SettleInput{Key: flushed.Key}
	for _, cat := range flushed.Categories {
		category := statsdto.CategoryOutput{Name: cat.Name, TotalSeconds: cat.TotalSeconds}
		for _, site := range cat.Sites {
			category.Sites = append(category.Sites, statsdto.SiteOutput{Key: site.Key, Domain: site.Domain, Title: site.Title, Seconds: site.Seconds})
		}
		input.Categories = append(input.Categories, category)
	}
	return a.stats.SettleBucket(ctx, input)
}
