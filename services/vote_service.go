package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mixclub/music-league/models"
	"github.com/mixclub/music-league/repositories"
)

const maxRankedSongs = 3

type CastVotesInput struct {
	RoundID       int   `json:"round_id"`
	RankedSongIDs []int `json:"ranked_songs"`
}

type VoteService interface {
	// CastVotes записывает ранжированный набор голосов участника.
	// Семантика replace-all: старые голоса участника в раунде удаляются
	// и заменяются новыми одной транзакцией, повторный вызов идемпотентен.
	CastVotes(ctx context.Context, currentUserID int, input CastVotesInput) ([]models.Vote, error)
	GetUserVotes(ctx context.Context, roundID, currentUserID int) (*models.UserVotes, error)
	DeleteVotes(ctx context.Context, roundID, currentUserID int) error
	// VotingComplete — все ли участники лиги проголосовали. Только
	// сигнал для оркестрации: завершение раунда всегда явное действие.
	VotingComplete(ctx context.Context, roundID int) (bool, error)
}

type voteService struct {
	voteRepo       repositories.VoteRepository
	roundRepo      repositories.RoundRepository
	memberRepo     repositories.MemberRepository
	submissionRepo repositories.SubmissionRepository
	transactor     repositories.Transactor
}

func NewVoteService(
	voteRepo repositories.VoteRepository,
	roundRepo repositories.RoundRepository,
	memberRepo repositories.MemberRepository,
	submissionRepo repositories.SubmissionRepository,
	transactor repositories.Transactor,
) VoteService {
	return &voteService{
		voteRepo:       voteRepo,
		roundRepo:      roundRepo,
		memberRepo:     memberRepo,
		submissionRepo: submissionRepo,
		transactor:     transactor,
	}
}

func (s *voteService) CastVotes(ctx context.Context, currentUserID int, input CastVotesInput) ([]models.Vote, error) {
	if len(input.RankedSongIDs) == 0 || len(input.RankedSongIDs) > maxRankedSongs {
		return nil, fmt.Errorf("%w: got %d song(s)", ErrInvalidBallot, len(input.RankedSongIDs))
	}
	seen := make(map[int]struct{}, len(input.RankedSongIDs))
	for _, songID := range input.RankedSongIDs {
		if _, ok := seen[songID]; ok {
			return nil, fmt.Errorf("%w: song %d is ranked more than once", ErrInvalidBallot, songID)
		}
		seen[songID] = struct{}{}
	}

	round, err := s.roundRepo.GetByID(ctx, input.RoundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %d: %w", input.RoundID, err)
	}

	if _, err := s.memberRepo.GetByLeagueAndUser(ctx, round.LeagueID, currentUserID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return nil, ErrNotLeagueMember
		}
		return nil, fmt.Errorf("failed to check league membership: %w", err)
	}

	switch round.Phase() {
	case models.PhaseVoting:
		// Окно голосования открыто.
	case models.PhaseSubmission:
		return nil, ErrVotingNotStarted
	default:
		return nil, fmt.Errorf("%w: voting is only open while the round is active", ErrRoundNotActive)
	}

	if round.VotingDeadline != nil && time.Now().UTC().After(*round.VotingDeadline) {
		return nil, ErrVotingDeadline
	}

	// Каждая песня должна принадлежать заявке этого раунда, и ни одна —
	// заявке самого голосующего.
	owners, err := s.submissionRepo.ListRoundSongOwners(ctx, input.RoundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list round songs: %w", err)
	}
	ownerBySong := make(map[int]int, len(owners))
	for _, o := range owners {
		ownerBySong[o.SongID] = o.SubmitterID
	}

	for _, songID := range input.RankedSongIDs {
		submitterID, ok := ownerBySong[songID]
		if !ok {
			return nil, fmt.Errorf("%w: song %d", ErrSongNotFound, songID)
		}
		if submitterID == currentUserID {
			return nil, fmt.Errorf("%w: song %d", ErrSelfVote, songID)
		}
	}

	votes := make([]models.Vote, 0, len(input.RankedSongIDs))
	for rank, songID := range input.RankedSongIDs {
		votes = append(votes, models.Vote{
			RoundID: input.RoundID,
			VoterID: currentUserID,
			SongID:  songID,
			Rank:    rank + 1,
		})
	}

	votedAt := time.Now().UTC()
	var created []models.Vote
	err = s.transactor.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.voteRepo.DeleteByRoundAndVoter(ctx, exec, input.RoundID, currentUserID); err != nil {
			return fmt.Errorf("failed to clear previous votes: %w", err)
		}
		created, err = s.voteRepo.CreateBatch(ctx, exec, votes, votedAt)
		if err != nil {
			return fmt.Errorf("failed to insert votes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *voteService) GetUserVotes(ctx context.Context, roundID, currentUserID int) (*models.UserVotes, error) {
	votes, err := s.voteRepo.ListByRoundAndVoter(ctx, roundID, currentUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	if len(votes) == 0 {
		return nil, nil
	}

	rankedSongIDs := make([]int, 0, len(votes))
	for _, v := range votes {
		rankedSongIDs = append(rankedSongIDs, v.SongID)
	}

	return &models.UserVotes{
		RoundID:       roundID,
		RankedSongIDs: rankedSongIDs,
		VotedAt:       votes[0].VotedAt,
	}, nil
}

func (s *voteService) DeleteVotes(ctx context.Context, roundID, currentUserID int) error {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return ErrRoundNotFound
		}
		return fmt.Errorf("failed to get round %d: %w", roundID, err)
	}

	if round.Status == models.RoundStatusCompleted {
		return fmt.Errorf("%w: cannot delete votes after round is completed", ErrRoundCompleted)
	}
	if round.VotingDeadline != nil && time.Now().UTC().After(*round.VotingDeadline) {
		return ErrVotingDeadline
	}

	deleted, err := s.voteRepo.DeleteByRoundAndVoter(ctx, nil, roundID, currentUserID)
	if err != nil {
		return fmt.Errorf("failed to delete votes: %w", err)
	}
	if deleted == 0 {
		return ErrVotesNotFound
	}
	return nil
}

func (s *voteService) VotingComplete(ctx context.Context, roundID int) (bool, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return false, ErrRoundNotFound
		}
		return false, fmt.Errorf("failed to get round %d: %w", roundID, err)
	}

	memberCount, err := s.memberRepo.CountByLeagueID(ctx, round.LeagueID)
	if err != nil {
		return false, fmt.Errorf("failed to count league members: %w", err)
	}

	voterCount, err := s.voteRepo.CountDistinctVoters(ctx, roundID)
	if err != nil {
		return false, fmt.Errorf("failed to count voters: %w", err)
	}

	return voterCount >= memberCount, nil
}
