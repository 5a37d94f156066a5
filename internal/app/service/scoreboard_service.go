package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"olymphub/internal/domain/model"
	"olymphub/internal/domain/repository"
	"olymphub/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

type ScoreboardService struct {
	enrollRepo     repository.EnrollmentRepository
	problemRepo    repository.ProblemRepository
	submissionRepo repository.SubmissionRepository
	rdb            *redis.Client // nil disables caching
}

func NewScoreboardService(
	enrollRepo repository.EnrollmentRepository,
	problemRepo repository.ProblemRepository,
	submissionRepo repository.SubmissionRepository,
	rdb *redis.Client,
) *ScoreboardService {
	return &ScoreboardService{
		enrollRepo:     enrollRepo,
		problemRepo:    problemRepo,
		submissionRepo: submissionRepo,
		rdb:            rdb,
	}
}

func scoreboardCacheKey(olympiadID string) string {
	return "scoreboard:" + olympiadID
}

// Scoreboard returns the ranked standings for an olympiad. The result is a
// pure function of stored submissions and problems, so it is cached in Redis
// and recomputed on cache miss. Cache failures degrade to recompute.
func (s *ScoreboardService) Scoreboard(ctx context.Context, olympiadID string) ([]model.ScoreboardRow, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, scoreboardCacheKey(olympiadID)).Bytes()
		if err == nil {
			var rows []model.ScoreboardRow
			if err := json.Unmarshal(cached, &rows); err == nil {
				return rows, nil
			}
		} else if err != redis.Nil {
			log.Printf("Scoreboard cache read failed for olympiad %s: %v", olympiadID, err)
		}
	}

	rows, err := s.compute(ctx, olympiadID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if payload, err := json.Marshal(rows); err == nil {
			if err := s.rdb.Set(ctx, scoreboardCacheKey(olympiadID), payload, config.AppConfig.ScoreboardCacheTTL).Err(); err != nil {
				log.Printf("Scoreboard cache write failed for olympiad %s: %v", olympiadID, err)
			}
		}
	}
	return rows, nil
}

// Invalidate drops the cached scoreboard; called whenever a submission or a
// review changes the underlying data.
func (s *ScoreboardService) Invalidate(ctx context.Context, olympiadID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, scoreboardCacheKey(olympiadID)).Err(); err != nil {
		log.Printf("Scoreboard cache invalidation failed for olympiad %s: %v", olympiadID, err)
	}
}

func (s *ScoreboardService) compute(ctx context.Context, olympiadID string) ([]model.ScoreboardRow, error) {
	enrollments, err := s.enrollRepo.ListByOlympiad(ctx, olympiadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	problems, err := s.problemRepo.ListByOlympiad(ctx, olympiadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}
	submissions, err := s.submissionRepo.ListByOlympiad(ctx, olympiadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return BuildScoreboard(enrollments, problems, submissions), nil
}

// BuildScoreboard aggregates best-per-problem scores into ranked rows.
// Pending (unreviewed) submissions contribute 0; a problem appears the moment
// a grader reviews any of its submissions. Order: total descending, ties
// broken by username ascending, so repeated runs over unchanged data yield
// identical output. Ranks are assigned sequentially after sorting.
func BuildScoreboard(enrollments []model.Enrollment, problems []model.Problem, submissions []model.Submission) []model.ScoreboardRow {
	rowByEnrollment := make(map[string]*model.ScoreboardRow, len(enrollments))
	rows := make([]model.ScoreboardRow, 0, len(enrollments))
	for _, e := range enrollments {
		row := model.ScoreboardRow{
			UserID:        e.UserID,
			ProblemScores: make(map[string]int, len(problems)),
		}
		if e.Username != nil {
			row.Username = *e.Username
		}
		for _, p := range problems {
			row.ProblemScores[p.ID] = 0
		}
		rows = append(rows, row)
		rowByEnrollment[e.ID] = &rows[len(rows)-1]
	}

	for _, sub := range submissions {
		if sub.Status != model.SubmissionReviewed || sub.Score == nil {
			continue
		}
		row, ok := rowByEnrollment[sub.EnrollmentID]
		if !ok {
			continue
		}
		if *sub.Score > row.ProblemScores[sub.ProblemID] {
			row.ProblemScores[sub.ProblemID] = *sub.Score
		}
	}

	for i := range rows {
		total := 0
		for _, best := range rows[i].ProblemScores {
			total += best
		}
		rows[i].Total = total
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].Username < rows[j].Username
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}
