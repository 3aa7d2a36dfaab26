package out

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"analyzeit/internal/modules/cloudsync/domain"
	syncout "analyzeit/internal/modules/cloudsync/port/out"
	"analyzeit/internal/platform/dynamo"
)

const (
	hourlyAttr = "hourly_activity"
	sitesAttr  = "sites_map"
	// Keeps the map-creation expressions well under the 4KB expression limit.
	maxPathsPerEnsure = 40
)

// DynamoAggregateStore keeps one daily item per (uid, date). Apply first
// makes sure every nested map exists, then sends all increments in a single
// UpdateItem. The preparatory requests change no numbers, so retrying a
// partially applied update never counts twice.
type DynamoAggregateStore struct {
	client dynamo.API
	table  string
}

func NewDynamoAggregateStore(client dynamo.API, table string) syncout.AggregateStore {
	return &DynamoAggregateStore{client: client, table: table}
}

func (s *DynamoAggregateStore) Apply(ctx context.Context, uid string, update domain.Update, syncedAt time.Time) error {
	for _, input := range BuildDailyUpdates(s.table, uid, update, syncedAt) {
		if _, err := s.client.UpdateItem(ctx, input); err != nil {
			return fmt.Errorf("update daily %s: %w", update.Date, err)
		}
	}
	return nil
}

// BuildDailyUpdates returns the ordered UpdateItem requests for one update.
// Only the last request changes numbers.
func BuildDailyUpdates(table, uid string, update domain.Update, syncedAt time.Time) []*dynamodb.UpdateItemInput {
	key := map[string]types.AttributeValue{
		"uid":  &types.AttributeValueMemberS{Value: uid},
		"date": &types.AttributeValueMemberS{Value: update.Date},
	}
	siteKeys := make([]string, 0, len(update.Sites))
	for siteKey := range update.Sites {
		siteKeys = append(siteKeys, siteKey)
	}
	sort.Strings(siteKeys)

	var out []*dynamodb.UpdateItemInput

	roots := newExpr()
	roots.ensure(roots.name(hourlyAttr))
	roots.ensure(roots.name(sitesAttr))
	out = append(out, roots.input(table, key))

	paths := make([][]string, 0, len(siteKeys)+1)
	paths = append(paths, []string{hourlyAttr, update.Hour})
	for _, siteKey := range siteKeys {
		paths = append(paths, []string{sitesAttr, siteKey})
	}
	for start := 0; start < len(paths); start += maxPathsPerEnsure {
		end := min(start+maxPathsPerEnsure, len(paths))
		nested := newExpr()
		for _, path := range paths[start:end] {
			nested.ensure(nested.path(path...))
		}
		out = append(out, nested.input(table, key))
	}

	values := newExpr()
	values.add(values.name("totalSeconds"), update.TotalSeconds)
	for _, field := range sortedKeys(update.Daily) {
		values.add(values.name(field), update.Daily[field])
	}
	values.add(values.path(hourlyAttr, update.Hour, "total"), update.TotalSeconds)
	for _, field := range sortedKeys(update.Hourly) {
		values.add(values.path(hourlyAttr, update.Hour, field), update.Hourly[field])
	}
	for _, siteKey := range siteKeys {
		site := update.Sites[siteKey]
		values.add(values.path(sitesAttr, siteKey, "seconds"), site.Seconds)
		values.set(values.path(sitesAttr, siteKey, "domain"), site.Domain)
		values.set(values.path(sitesAttr, siteKey, "title"), site.Title)
		values.set(values.path(sitesAttr, siteKey, "category"), site.Category)
	}
	values.set(values.name("lastSynced"), syncedAt.UTC().Format(time.RFC3339))
	out = append(out, values.input(table, key))
	return out
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// expr accumulates an update expression with placeholder names and values.
type expr struct {
	names     map[string]string
	byName    map[string]string
	values    map[string]types.AttributeValue
	setParts  []string
	addParts  []string
	valueSeen int
}

func newExpr() *expr {
	return &expr{names: map[string]string{}, byName: map[string]string{}, values: map[string]types.AttributeValue{}}
}

func (e *expr) name(attr string) string {
	if placeholder, ok := e.byName[attr]; ok {
		return placeholder
	}
	placeholder := "#n" + strconv.Itoa(len(e.byName))
	e.byName[attr] = placeholder
	e.names[placeholder] = attr
	return placeholder
}

func (e *expr) path(attrs ...string) string {
	parts := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		parts = append(parts, e.name(attr))
	}
	return strings.Join(parts, ".")
}

func (e *expr) value(v types.AttributeValue) string {
	placeholder := ":v" + strconv.Itoa(e.valueSeen)
	e.valueSeen++
	e.values[placeholder] = v
	return placeholder
}

func (e *expr) ensure(path string) {
	if _, ok := e.values[":empty"]; !ok {
		e.values[":empty"] = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}
	}
	e.setParts = append(e.setParts, fmt.Sprintf("%s = if_not_exists(%s, :empty)", path, path))
}

// add increments a number. ADD only reaches top-level attributes, so nested
// counters use SET with if_not_exists instead.
func (e *expr) add(path string, n int64) {
	v := e.value(&types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)})
	if !strings.Contains(path, ".") {
		e.addParts = append(e.addParts, path+" "+v)
		return
	}
	if _, ok := e.values[":zero"]; !ok {
		e.values[":zero"] = &types.AttributeValueMemberN{Value: "0"}
	}
	e.setParts = append(e.setParts, fmt.Sprintf("%s = if_not_exists(%s, :zero) + %s", path, path, v))
}

func (e *expr) set(path, s string) {
	e.setParts = append(e.setParts, path+" = "+e.value(&types.AttributeValueMemberS{Value: s}))
}

func (e *expr) input(table string, key map[string]types.AttributeValue) *dynamodb.UpdateItemInput {
	var clauses []string
	if len(e.setParts) > 0 {
		clauses = append(clauses, "SET "+strings.Join(e.setParts, ", "))
	}
	if len(e.addParts) > 0 {
		clauses = append(clauses, "ADD "+strings.Join(e.addParts, ", "))
	}
	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       key,
		UpdateExpression:          aws.String(strings.Join(clauses, " ")),
		ExpressionAttributeNames:  e.names,
		ExpressionAttributeValues: e.values,
	}
}
