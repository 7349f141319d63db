package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/mixclub/music-league/models"
	"github.com/mixclub/music-league/repositories"
	"golang.org/x/sync/errgroup"
)

// Очки за ранги: 1-е место = 3, 2-е = 2, 3-е = 1. Ниже третьего ранга
// очков нет — бюллетени ограничены тремя позициями по построению.
var pointsByRank = map[int]int{1: 3, 2: 2, 3: 1}

type ResultService interface {
	// CalculateResults — детерминированный подсчет очков раунда по
	// записанным голосам. Не требует завершенного раунда: на активном
	// раунде возвращает промежуточные результаты.
	CalculateResults(ctx context.Context, roundID int) (*models.RoundResults, error)
	GetLeaderboard(ctx context.Context, leagueID int) (*models.Leaderboard, error)
}

type resultService struct {
	roundRepo      repositories.RoundRepository
	leagueRepo     repositories.LeagueRepository
	submissionRepo repositories.SubmissionRepository
	voteRepo       repositories.VoteRepository
}

func NewResultService(
	roundRepo repositories.RoundRepository,
	leagueRepo repositories.LeagueRepository,
	submissionRepo repositories.SubmissionRepository,
	voteRepo repositories.VoteRepository,
) ResultService {
	return &resultService{
		roundRepo:      roundRepo,
		leagueRepo:     leagueRepo,
		submissionRepo: submissionRepo,
		voteRepo:       voteRepo,
	}
}

func (s *resultService) CalculateResults(ctx context.Context, roundID int) (*models.RoundResults, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %d: %w", roundID, err)
	}

	votes, err := s.voteRepo.ListByRoundID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}

	pointsBySong := make(map[int]int)
	votesBySong := make(map[int][]models.VoteReceived)
	for _, vote := range votes {
		pointsBySong[vote.SongID] += pointsByRank[vote.Rank]

		voterName := ""
		if vote.VoterName != nil {
			voterName = *vote.VoterName
		}
		votesBySong[vote.SongID] = append(votesBySong[vote.SongID], models.VoteReceived{
			VoterID:   vote.VoterID,
			VoterName: voterName,
			Rank:      vote.Rank,
		})
	}

	submissions, err := s.submissionRepo.ListByRoundID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	// Каждая песня раунда попадает в результаты, включая песни без
	// единого голоса.
	results := make([]models.SongResult, 0)
	for _, submission := range submissions {
		submitterName := ""
		if submission.UserName != nil {
			submitterName = *submission.UserName
		}
		for _, song := range submission.Songs {
			received := votesBySong[song.ID]
			result := models.SongResult{
				SongID:        song.ID,
				SongTitle:     song.Title,
				ArtistName:    song.ArtistName,
				AlbumName:     song.AlbumName,
				SubmitterID:   submission.UserID,
				SubmitterName: submitterName,
				TotalPoints:   pointsBySong[song.ID],
				VotesReceived: received,
			}
			for _, v := range received {
				switch v.Rank {
				case 1:
					result.FirstPlaceVotes++
				case 2:
					result.SecondPlaceVotes++
				case 3:
					result.ThirdPlaceVotes++
				}
			}
			results = append(results, result)
		}
	}

	// Сортировка по очкам по убыванию; при равенстве — по возрастанию
	// id песни, чтобы порядок не зависел от порядка обхода хранилища.
	slices.SortFunc(results, func(a, b models.SongResult) int {
		if c := cmp.Compare(b.TotalPoints, a.TotalPoints); c != 0 {
			return c
		}
		return cmp.Compare(a.SongID, b.SongID)
	})

	return &models.RoundResults{
		RoundID:    roundID,
		RoundTheme: round.Theme,
		Results:    results,
	}, nil
}

func (s *resultService) GetLeaderboard(ctx context.Context, leagueID int) (*models.Leaderboard, error) {
	if _, err := s.leagueRepo.GetByID(ctx, leagueID); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to get league %d: %w", leagueID, err)
	}

	rounds, err := s.roundRepo.ListByLeagueID(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}

	completed := make([]models.Round, 0, len(rounds))
	for _, round := range rounds {
		if round.Status == models.RoundStatusCompleted {
			completed = append(completed, round)
		}
	}
	// Сворачиваем в порядке завершения раундов.
	slices.SortFunc(completed, func(a, b models.Round) int {
		return a.CompletedAt.Compare(*b.CompletedAt)
	})

	// Подсчеты раундов независимы: считаем параллельно, сворачиваем
	// строго по порядку завершения.
	tallies := make([]*models.RoundResults, len(completed))
	g, gctx := errgroup.WithContext(ctx)
	for i, round := range completed {
		i, round := i, round
		g.Go(func() error {
			tally, err := s.CalculateResults(gctx, round.ID)
			if err != nil {
				return err
			}
			tallies[i] = tally
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	userPoints := make(map[int]int)
	userNames := make(map[int]string)
	userDetails := make(map[int][]models.RoundDetailRecord)

	for i, tally := range tallies {
		round := completed[i]
		for _, result := range tally.Results {
			userPoints[result.SubmitterID] += result.TotalPoints
			if _, ok := userNames[result.SubmitterID]; !ok {
				userNames[result.SubmitterID] = result.SubmitterName
			}
			userDetails[result.SubmitterID] = append(userDetails[result.SubmitterID], models.RoundDetailRecord{
				RoundID:    round.ID,
				RoundTheme: round.Theme,
				Points:     result.TotalPoints,
				SongTitle:  result.SongTitle,
				ArtistName: result.ArtistName,
			})
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(userPoints))
	for userID, total := range userPoints {
		entries = append(entries, models.LeaderboardEntry{
			UserID:             userID,
			UserName:           userNames[userID],
			TotalPoints:        total,
			RoundsParticipated: len(userDetails[userID]),
			RoundDetails:       userDetails[userID],
		})
	}

	// При равных суммах — по возрастанию id пользователя.
	slices.SortFunc(entries, func(a, b models.LeaderboardEntry) int {
		if c := cmp.Compare(b.TotalPoints, a.TotalPoints); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})

	return &models.Leaderboard{
		LeagueID:             leagueID,
		CompletedRoundsCount: len(completed),
		Entries:              entries,
	}, nil
}
