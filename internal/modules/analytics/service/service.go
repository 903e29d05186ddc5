package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"anoa.com/campuspulse/internal/entity"
	analyticsDto "anoa.com/campuspulse/internal/modules/analytics/dto"
	rollupRepo "anoa.com/campuspulse/internal/modules/rollup/repository"
	scoringRepo "anoa.com/campuspulse/internal/modules/scoring/repository"
	"anoa.com/campuspulse/pkg/apperror"
	"anoa.com/campuspulse/pkg/counterstore"
	"github.com/google/uuid"
)

const (
	leaderboardLookbackDays = 30
	projectionMonths        = 6
	minGrowthSamples        = 3
	lowConfidence           = 0.2
)

// metricExtractors maps dotted metric paths onto rollup counter fields.
// A typed registry, no reflection.
var metricExtractors = map[string]func(*entity.ScopePeriodRollup) float64{
	"users.sessions":            func(r *entity.ScopePeriodRollup) float64 { return float64(r.Users.Sessions) },
	"users.logins":              func(r *entity.ScopePeriodRollup) float64 { return float64(r.Users.Logins) },
	"users.logouts":             func(r *entity.ScopePeriodRollup) float64 { return float64(r.Users.Logouts) },
	"users.follows":             func(r *entity.ScopePeriodRollup) float64 { return float64(r.Users.Follows) },
	"content.posts_created":     func(r *entity.ScopePeriodRollup) float64 { return float64(r.Content.PostsCreated) },
	"content.comments_created":  func(r *entity.ScopePeriodRollup) float64 { return float64(r.Content.CommentsCreated) },
	"content.shares":            func(r *entity.ScopePeriodRollup) float64 { return float64(r.Content.Shares) },
	"content.saves":             func(r *entity.ScopePeriodRollup) float64 { return float64(r.Content.Saves) },
	"content.views":             func(r *entity.ScopePeriodRollup) float64 { return float64(r.Content.Views) },
	"engagement.likes_given":    func(r *entity.ScopePeriodRollup) float64 { return float64(r.Engagement.LikesGiven) },
	"engagement.likes_removed":  func(r *entity.ScopePeriodRollup) float64 { return float64(r.Engagement.LikesRemoved) },
	"engagement.total":          func(r *entity.ScopePeriodRollup) float64 { return float64(r.Engagement.Total) },
	"ai.interactions":           func(r *entity.ScopePeriodRollup) float64 { return float64(r.AI.Interactions) },
	"academic.answers_provided": func(r *entity.ScopePeriodRollup) float64 { return float64(r.Academic.AnswersProvided) },
	"performance.events_processed": func(r *entity.ScopePeriodRollup) float64 {
		return float64(r.Performance.EventsProcessed)
	},
}

type Service interface {
	// TimeSeries extracts one metric across stored rollups, ordered by
	// timestamp ascending. An empty range yields an empty series, not an
	// error.
	TimeSeries(ctx context.Context, scopeID uuid.UUID, metric string, start, end time.Time, period entity.Period) ([]analyticsDto.Point, error)
	Leaderboard(ctx context.Context, scopeID uuid.UUID, period entity.Period, limit int) ([]analyticsDto.LeaderboardEntry, error)
	GrowthProjection(ctx context.Context, scopeID uuid.UUID) (*analyticsDto.GrowthProjection, error)
	Compare(ctx context.Context, scopeIDs []uuid.UUID, metric string, period entity.Period, start, end time.Time) (map[string][]analyticsDto.Point, error)
	LiveDashboard(ctx context.Context, scopeID uuid.UUID) (*analyticsDto.LiveDashboard, error)
}

type service struct {
	rollups      rollupRepo.RollupRepository
	userPeriods  scoringRepo.UserPeriodRepository
	counters     counterstore.CounterStore
	activeWindow time.Duration
}

func NewService(
	rollups rollupRepo.RollupRepository,
	userPeriods scoringRepo.UserPeriodRepository,
	counters counterstore.CounterStore,
	activeWindow time.Duration,
) Service {
	return &service{
		rollups:      rollups,
		userPeriods:  userPeriods,
		counters:     counters,
		activeWindow: activeWindow,
	}
}

func (s *service) TimeSeries(ctx context.Context, scopeID uuid.UUID, metric string, start, end time.Time, period entity.Period) ([]analyticsDto.Point, error) {
	extract, ok := metricExtractors[metric]
	if !ok {
		return nil, fmt.Errorf("%w: unknown metric %q", apperror.ErrBadRequest, metric)
	}

	rollups, err := s.rollups.Range(ctx, scopeID, period, start, end)
	if err != nil {
		return nil, err
	}

	points := make([]analyticsDto.Point, 0, len(rollups))
	for i := range rollups {
		points = append(points, analyticsDto.Point{
			Timestamp: rollups[i].BucketStart,
			Value:     extract(&rollups[i]),
		})
	}
	return points, nil
}

func (s *service) Leaderboard(ctx context.Context, scopeID uuid.UUID, period entity.Period, limit int) ([]analyticsDto.LeaderboardEntry, error) {
	since := time.Now().UTC().AddDate(0, 0, -leaderboardLookbackDays)

	records, err := s.userPeriods.TopByOverall(ctx, scopeID, period, since, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]analyticsDto.LeaderboardEntry, 0, len(records))
	for i, record := range records {
		entries = append(entries, analyticsDto.LeaderboardEntry{
			Position:     i + 1,
			UserID:       record.UserID,
			Overall:      roundScore(record.Scores.Overall),
			Engagement:   roundScore(record.Scores.Engagement),
			Contribution: roundScore(record.Scores.Contribution),
			Influence:    roundScore(record.Scores.Influence),
			Quality:      roundScore(record.Scores.Quality),
			Streak:       record.Retention.Streak,
		})
	}
	return entries, nil
}

// roundScore is the presentation-boundary rounding. Nothing upstream rounds,
// so errors never compound across periods.
func roundScore(v float64) int {
	return int(math.Round(v))
}

func (s *service) GrowthProjection(ctx context.Context, scopeID uuid.UUID) (*analyticsDto.GrowthProjection, error) {
	now := time.Now().UTC()
	result := &analyticsDto.GrowthProjection{GeneratedAt: now}

	rollups, err := s.rollups.Range(ctx, scopeID, entity.PeriodMonthly, time.Time{}, now)
	if err != nil {
		return nil, err
	}

	result.Samples = len(rollups)

	first := 0.0
	last := 0.0
	if len(rollups) > 0 {
		first = float64(rollups[0].Users.Sessions)
		last = float64(rollups[len(rollups)-1].Users.Sessions)
	}

	// Extrapolating from fewer than three samples is noise; degrade to a
	// low-confidence result instead of failing.
	if len(rollups) < minGrowthSamples || first <= 0 {
		result.InsufficientData = true
		result.Confidence = lowConfidence
		return result, nil
	}

	periods := float64(len(rollups) - 1)
	rate := math.Pow(last/first, 1/periods) - 1
	result.MonthlyRate = rate
	result.Confidence = math.Min(0.9, 0.3+0.05*float64(len(rollups)))

	lastBucket := rollups[len(rollups)-1].BucketStart
	projected := last
	for i := 1; i <= projectionMonths; i++ {
		projected *= 1 + rate
		result.Projection = append(result.Projection, analyticsDto.Point{
			Timestamp: lastBucket.AddDate(0, i, 0),
			Value:     projected,
		})
	}

	return result, nil
}

func (s *service) Compare(ctx context.Context, scopeIDs []uuid.UUID, metric string, period entity.Period, start, end time.Time) (map[string][]analyticsDto.Point, error) {
	result := make(map[string][]analyticsDto.Point, len(scopeIDs))
	for _, scopeID := range scopeIDs {
		series, err := s.TimeSeries(ctx, scopeID, metric, start, end, period)
		if err != nil {
			return nil, err
		}
		result[scopeID.String()] = series
	}
	return result, nil
}

func (s *service) LiveDashboard(ctx context.Context, scopeID uuid.UUID) (*analyticsDto.LiveDashboard, error) {
	if s.counters == nil {
		return nil, apperror.ErrUnavailable
	}

	now := time.Now().UTC()
	scope := scopeID.String()
	dashboard := &analyticsDto.LiveDashboard{
		EventsByType: map[string]int64{},
	}

	var err error
	if dashboard.TotalEvents, err = s.counters.Get(ctx, counterstore.KeyTotalEvents()); err != nil {
		return nil, fmt.Errorf("%w: counter store: %v", apperror.ErrUnavailable, err)
	}
	if dashboard.EventsThisHour, err = s.counters.Get(ctx, counterstore.KeyHourlyEvents(scope, now)); err != nil {
		return nil, fmt.Errorf("%w: counter store: %v", apperror.ErrUnavailable, err)
	}

	windowStart := float64(now.Add(-s.activeWindow).Unix())
	if dashboard.ActiveUsers, err = s.counters.CardinalityByScore(ctx, counterstore.KeyActiveUsers(scope), windowStart, math.MaxFloat64); err != nil {
		return nil, fmt.Errorf("%w: counter store: %v", apperror.ErrUnavailable, err)
	}

	for _, eventType := range []entity.EventType{
		entity.EventLogin, entity.EventPostCreated, entity.EventCommentCreated,
		entity.EventLikeGiven, entity.EventView, entity.EventAIInteraction,
	} {
		count, err := s.counters.Get(ctx, counterstore.KeyEventsByType(string(eventType)))
		if err != nil {
			continue
		}
		dashboard.EventsByType[string(eventType)] = count
	}

	members, err := s.counters.RangeByScoreDesc(ctx, counterstore.KeyPopularContent(scope), 0, 10)
	if err == nil {
		for _, m := range members {
			dashboard.PopularContent = append(dashboard.PopularContent, analyticsDto.PopularItem{
				ContentID: m.Member,
				Score:     m.Score,
			})
		}
	}

	return dashboard, nil
}
