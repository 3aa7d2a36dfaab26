package out

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"analyzeit/internal/modules/cloudsync/domain"
)

// render substitutes placeholders so expressions can be asserted readably.
func render(input *dynamodb.UpdateItemInput) string {
	out := *input.UpdateExpression
	placeholders := make([]string, 0, len(input.ExpressionAttributeNames)+len(input.ExpressionAttributeValues))
	for placeholder := range input.ExpressionAttributeNames {
		placeholders = append(placeholders, placeholder)
	}
	for placeholder := range input.ExpressionAttributeValues {
		if placeholder != ":empty" && placeholder != ":zero" {
			placeholders = append(placeholders, placeholder)
		}
	}
	sort.Slice(placeholders, func(i, j int) bool { return len(placeholders[i]) > len(placeholders[j]) })
	for _, placeholder := range placeholders {
		replacement := input.ExpressionAttributeNames[placeholder]
		switch v := input.ExpressionAttributeValues[placeholder].(type) {
		case *types.AttributeValueMemberN:
			replacement = v.Value
		case *types.AttributeValueMemberS:
			replacement = "'" + v.Value + "'"
		}
		out = strings.ReplaceAll(out, placeholder, replacement)
	}
	return out
}

func sampleUpdate() domain.Update {
	return domain.Update{
		Date:         "2026-01-19",
		Hour:         "14",
		TotalSeconds: 90,
		Daily:        map[string]int64{"productiveSeconds": 90},
		Hourly:       map[string]int64{"productive": 90},
		Sites: map[string]domain.SiteDelta{
			"github_com": {Seconds: 90, Domain: "github.com", Title: "Github", Category: "Productive"},
		},
	}
}

func TestBuildDailyUpdatesOrdersMapCreationBeforeIncrements(t *testing.T) {
	t.Parallel()

	syncedAt := time.Date(2026, 1, 19, 14, 2, 0, 0, time.UTC)
	inputs := BuildDailyUpdates("daily", "u1", sampleUpdate(), syncedAt)
	if len(inputs) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(inputs))
	}
	for _, input := range inputs {
		if *input.TableName != "daily" {
			t.Fatalf("unexpected table %s", *input.TableName)
		}
		uid := input.Key["uid"].(*types.AttributeValueMemberS).Value
		date := input.Key["date"].(*types.AttributeValueMemberS).Value
		if uid != "u1" || date != "2026-01-19" {
			t.Fatalf("unexpected key %s/%s", uid, date)
		}
	}

	if got := render(inputs[0]); got != "SET hourly_activity = if_not_exists(hourly_activity, :empty), sites_map = if_not_exists(sites_map, :empty)" {
		t.Fatalf("unexpected root expression %q", got)
	}
	if got := render(inputs[1]); got != "SET hourly_activity.14 = if_not_exists(hourly_activity.14, :empty), sites_map.github_com = if_not_exists(sites_map.github_com, :empty)" {
		t.Fatalf("unexpected nested expression %q", got)
	}
	for _, input := range inputs[:2] {
		for placeholder := range input.ExpressionAttributeValues {
			if placeholder != ":empty" {
				t.Fatalf("preparatory request must not carry numbers, found %s", placeholder)
			}
		}
	}

	final := render(inputs[2])
	for _, want := range []string{
		"ADD totalSeconds 90, productiveSeconds 90",
		"hourly_activity.14.total = if_not_exists(hourly_activity.14.total, :zero) + 90",
		"hourly_activity.14.productive = if_not_exists(hourly_activity.14.productive, :zero) + 90",
		"sites_map.github_com.seconds = if_not_exists(sites_map.github_com.seconds, :zero) + 90",
		"sites_map.github_com.domain = 'github.com'",
		"sites_map.github_com.title = 'Github'",
		"sites_map.github_com.category = 'Productive'",
		"lastSynced = '2026-01-19T14:02:00Z'",
	} {
		if !strings.Contains(final, want) {
			t.Fatalf("final expression %q missing %q", final, want)
		}
	}
}

func TestBuildDailyUpdatesChunksManySites(t *testing.T) {
	t.Parallel()

	update := sampleUpdate()
	for i := 0; i < 100; i++ {
		update.Sites["s"+string(rune('a'+i%26))+strings.Repeat("x", i/26)] = domain.SiteDelta{Seconds: 1}
	}
	inputs := BuildDailyUpdates("daily", "u1", update, time.Now())
	// root + ceil((1 hour + 101 sites)/40) ensure requests + final
	if len(inputs) != 1+3+1 {
		t.Fatalf("expected 5 requests, got %d", len(inputs))
	}
}

func TestSplitBucketKeepsExpressionsUnderLimit(t *testing.T) {
	t.Parallel()

	bucket := domain.PendingBucket{Key: "stats_2026-01-19_14", Date: "2026-01-19", Hour: 14}
	for _, name := range []string{"Productive", "Social Media", "Streaming", "Utilities", "Total"} {
		cat := domain.CategoryTotals{Name: name}
		for i := 0; i < 30; i++ {
			key := fmt.Sprintf("%s_site%02d_example_com", strings.ReplaceAll(strings.ToLower(name), " ", "_"), i)
			cat.Sites = append(cat.Sites, domain.SiteTotals{Key: key, Domain: key, Title: key, Seconds: 7})
			cat.TotalSeconds += 7
		}
		bucket.Categories = append(bucket.Categories, cat)
	}

	parts := domain.SplitBucket(bucket, domain.SitesPerUpdate)
	if len(parts) < 8 {
		t.Fatalf("expected 150 sites spread over several parts, got %d", len(parts))
	}
	for _, part := range parts {
		update, ok := domain.BuildUpdate(part)
		if !ok {
			t.Fatalf("expected update for %+v", part)
		}
		for _, input := range BuildDailyUpdates("daily", "u1", update, time.Now()) {
			if n := len(*input.UpdateExpression); n >= 4096 {
				t.Fatalf("expression of %d bytes", n)
			}
			if dup := duplicateTarget(render(input)); dup != "" {
				t.Fatalf("path %s assigned twice", dup)
			}
		}
	}
}

// duplicateTarget returns the first attribute path an expression writes twice.
func duplicateTarget(expression string) string {
	expression = strings.NewReplacer(", :zero)", ":zero)", ", :empty)", ":empty)").Replace(expression)
	seen := map[string]bool{}
	for _, clause := range strings.Split(expression, ", ") {
		clause = strings.TrimPrefix(strings.TrimPrefix(clause, "SET "), "ADD ")
		if i := strings.Index(clause, " ADD "); i >= 0 {
			clause = clause[i+len(" ADD "):]
		}
		target := strings.Fields(clause)[0]
		if seen[target] {
			return target
		}
		seen[target] = true
	}
	return ""
}

type recordingUpdater struct {
	fakeAPI
	calls  int
	failAt int
}

func (r *recordingUpdater) UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	r.calls++
	if r.calls == r.failAt {
		return nil, errors.New("throttled")
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	client := &recordingUpdater{failAt: 2}
	store := NewDynamoAggregateStore(client, "daily")
	if err := store.Apply(context.Background(), "u1", sampleUpdate(), time.Now()); err == nil {
		t.Fatalf("expected error")
	}
	if client.calls != 2 {
		t.Fatalf("expected to stop after failing call, got %d calls", client.calls)
	}

	ok := &recordingUpdater{}
	if err := NewDynamoAggregateStore(ok, "daily").Apply(context.Background(), "u1", sampleUpdate(), time.Now()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if ok.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", ok.calls)
	}
}

type fakeAPI struct{}

func (fakeAPI) GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (fakeAPI) PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}

func (fakeAPI) DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return &dynamodb.DeleteItemOutput{}, nil
}

func (fakeAPI) Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{}, nil
}

func (fakeAPI) BatchWriteItem(context.Context, *dynamodb.BatchWriteItemInput, ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return &dynamodb.BatchWriteItemOutput{}, nil
}
