// internal/services/stats.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"abiahub/internal/models"

	"github.com/montanaflynn/stats"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// StatsService aggregates report figures for official dashboards.
// Snapshots are cached: dashboards tolerate hour-old figures and the
// aggregation is too heavy to run per request.
type StatsService struct {
	reports  *mongo.Collection
	rewards  *mongo.Collection
	requests *mongo.Collection

	mu       sync.Mutex
	cache    map[string]statsCacheEntry
	cacheTTL time.Duration
}

type statsCacheEntry struct {
	stats     *ReportStats
	expiresAt time.Time
}

func NewStatsService(db *mongo.Database) *StatsService {
	return &StatsService{
		reports:  db.Collection("reports"),
		rewards:  db.Collection("rewards"),
		requests: db.Collection("service_requests"),
		cache:    make(map[string]statsCacheEntry),
		cacheTTL: time.Hour,
	}
}

type ReportStats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByCategory map[string]int64 `json:"by_category"`
	ByChannel  map[string]int64 `json:"by_channel"`
	ByLGA      map[string]int64 `json:"by_lga"`

	// Resolution times in hours, over resolved reports.
	ResolutionMeanHours   float64 `json:"resolution_mean_hours"`
	ResolutionMedianHours float64 `json:"resolution_median_hours"`
	ResolutionP90Hours    float64 `json:"resolution_p90_hours"`

	ResolvedLast30Days int64 `json:"resolved_last_30_days"`
	OpenedLast30Days   int64 `json:"opened_last_30_days"`

	TrendByDay []DailyCount `json:"trend_by_day"`
}

// DailyCount is one day in the submission trend.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

func (s *StatsService) cachedStats(key string) *ReportStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil
	}
	return e.stats
}

func (s *StatsService) storeStats(key string, result *ReportStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = statsCacheEntry{stats: result, expiresAt: time.Now().Add(s.cacheTTL)}
}

// ReportStats builds the dashboard snapshot, optionally scoped to one LGA.
func (s *StatsService) ReportStats(ctx context.Context, lgaID *primitive.ObjectID) (*ReportStats, error) {
	cacheKey := "all"
	if lgaID != nil {
		cacheKey = lgaID.Hex()
	}
	if cached := s.cachedStats(cacheKey); cached != nil {
		return cached, nil
	}

	match := bson.M{"deleted_at": nil}
	if lgaID != nil {
		match["lga_id"] = *lgaID
	}

	result := &ReportStats{
		ByStatus:   make(map[string]int64),
		ByCategory: make(map[string]int64),
		ByChannel:  make(map[string]int64),
		ByLGA:      make(map[string]int64),
	}

	total, err := s.reports.CountDocuments(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("counting reports: %w", err)
	}
	result.Total = total

	for _, group := range []struct {
		field string
		dest  map[string]int64
	}{
		{"status", result.ByStatus},
		{"category", result.ByCategory},
		{"submission_channel", result.ByChannel},
	} {
		if err := s.countBy(ctx, match, group.field, group.dest); err != nil {
			return nil, err
		}
	}

	if err := s.resolutionStats(ctx, match, result); err != nil {
		return nil, err
	}

	monthAgo := time.Now().AddDate(0, 0, -30)

	resolvedMatch := bson.M{"resolved_at": bson.M{"$gte": monthAgo}}
	for k, v := range match {
		resolvedMatch[k] = v
	}
	result.ResolvedLast30Days, err = s.reports.CountDocuments(ctx, resolvedMatch)
	if err != nil {
		return nil, fmt.Errorf("counting resolved reports: %w", err)
	}

	openedMatch := bson.M{"created_at": bson.M{"$gte": monthAgo}}
	for k, v := range match {
		openedMatch[k] = v
	}
	result.OpenedLast30Days, err = s.reports.CountDocuments(ctx, openedMatch)
	if err != nil {
		return nil, fmt.Errorf("counting opened reports: %w", err)
	}

	if err := s.countByLGA(ctx, match, result.ByLGA); err != nil {
		return nil, err
	}

	result.TrendByDay, err = s.trendByDay(ctx, match, 30)
	if err != nil {
		return nil, err
	}

	s.storeStats(cacheKey, result)

	return result, nil
}

func (s *StatsService) countByLGA(ctx context.Context, match bson.M, dest map[string]int64) error {
	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id":   "$lga_id",
			"count": bson.M{"$sum": 1},
		}},
	}

	cursor, err := s.reports.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("grouping by lga: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Count int64              `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return fmt.Errorf("decoding lga groups: %w", err)
	}

	for _, row := range rows {
		if !row.ID.IsZero() {
			dest[row.ID.Hex()] = row.Count
		}
	}
	return nil
}

// trendByDay counts submissions per calendar day over the last days days.
func (s *StatsService) trendByDay(ctx context.Context, match bson.M, days int) ([]DailyCount, error) {
	trendMatch := bson.M{"created_at": bson.M{"$gte": time.Now().AddDate(0, 0, -days)}}
	for k, v := range match {
		if k != "created_at" {
			trendMatch[k] = v
		}
	}

	pipeline := []bson.M{
		{"$match": trendMatch},
		{"$group": bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
			"count": bson.M{"$sum": 1},
		}},
		{"$sort": bson.M{"_id": 1}},
	}

	cursor, err := s.reports.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("grouping by day: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decoding day groups: %w", err)
	}

	trend := make([]DailyCount, 0, len(rows))
	for _, row := range rows {
		trend = append(trend, DailyCount{Date: row.ID, Count: row.Count})
	}
	return trend, nil
}

func (s *StatsService) countBy(ctx context.Context, match bson.M, field string, dest map[string]int64) error {
	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id":   "$" + field,
			"count": bson.M{"$sum": 1},
		}},
	}

	cursor, err := s.reports.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("grouping by %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return fmt.Errorf("decoding %s groups: %w", field, err)
	}

	for _, row := range rows {
		if row.ID != "" {
			dest[row.ID] = row.Count
		}
	}
	return nil
}

func (s *StatsService) resolutionStats(ctx context.Context, match bson.M, result *ReportStats) error {
	resolvedMatch := bson.M{
		"status":      models.ReportStatusResolved,
		"resolved_at": bson.M{"$ne": nil},
	}
	for k, v := range match {
		resolvedMatch[k] = v
	}

	cursor, err := s.reports.Find(ctx, resolvedMatch)
	if err != nil {
		return fmt.Errorf("finding resolved reports: %w", err)
	}
	defer cursor.Close(ctx)

	var hours []float64
	for cursor.Next(ctx) {
		var report models.Report
		if err := cursor.Decode(&report); err != nil {
			return fmt.Errorf("decoding report: %w", err)
		}
		if d := report.ResolutionTime(); d > 0 {
			hours = append(hours, d.Hours())
		}
	}

	if len(hours) == 0 {
		return nil
	}

	if mean, err := stats.Mean(hours); err == nil {
		result.ResolutionMeanHours = mean
	}
	if median, err := stats.Median(hours); err == nil {
		result.ResolutionMedianHours = median
	}
	if p90, err := stats.Percentile(hours, 90); err == nil {
		result.ResolutionP90Hours = p90
	}

	return nil
}

type RewardStats struct {
	TotalGranted   int64   `json:"total_granted"`
	TotalProcessed int64   `json:"total_processed"`
	TotalFailed    int64   `json:"total_failed"`
	TotalPending   int64   `json:"total_pending"`
	AmountPaid     float64 `json:"amount_paid"`
}

func (s *StatsService) RewardStats(ctx context.Context) (*RewardStats, error) {
	result := &RewardStats{}

	var err error
	if result.TotalGranted, err = s.rewards.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, fmt.Errorf("counting rewards: %w", err)
	}
	if result.TotalProcessed, err = s.rewards.CountDocuments(ctx, bson.M{"status": models.RewardStatusProcessed}); err != nil {
		return nil, fmt.Errorf("counting processed rewards: %w", err)
	}
	if result.TotalFailed, err = s.rewards.CountDocuments(ctx, bson.M{"status": models.RewardStatusFailed}); err != nil {
		return nil, fmt.Errorf("counting failed rewards: %w", err)
	}
	if result.TotalPending, err = s.rewards.CountDocuments(ctx, bson.M{"status": models.RewardStatusPending}); err != nil {
		return nil, fmt.Errorf("counting pending rewards: %w", err)
	}

	pipeline := []bson.M{
		{"$match": bson.M{"status": models.RewardStatusProcessed}},
		{"$group": bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}},
	}
	cursor, err := s.rewards.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("summing paid rewards: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decoding reward sum: %w", err)
	}
	if len(rows) > 0 {
		result.AmountPaid = rows[0].Total
	}

	return result, nil
}
