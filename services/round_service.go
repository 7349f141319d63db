package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mixclub/music-league/models"
	"github.com/mixclub/music-league/repositories"
)

const (
	// Окна фаз раунда: 2 дня на заявки с момента старта, 5 дней на
	// голосование с момента закрытия заявок. Дедлайн голосования,
	// выставленный при старте, предварительный: он пересчитывается,
	// когда последняя заявка закрывает фазу submissions.
	submissionWindow = 48 * time.Hour
	votingWindow     = 120 * time.Hour
)

type CreateRoundInput struct {
	LeagueID    int     `json:"league_id"`
	Theme       string  `json:"theme"`
	Description *string `json:"description"`
	Order       *int    `json:"order"`
}

type UpdateRoundInput struct {
	Theme       *string `json:"theme"`
	Description *string `json:"description"`
}

type RoundOrder struct {
	ID    int `json:"id"`
	Order int `json:"order"`
}

// RoundSummary — раунд, дополненный полями для списков
// (как их отдает API: счетчик заявок, флаги текущего пользователя).
type RoundSummary struct {
	models.Round
	SubmissionCount  int  `json:"submission_count"`
	UserHasSubmitted bool `json:"user_has_submitted"`
	IsAdmin          bool `json:"is_admin"`
}

type RoundDetail struct {
	RoundSummary
	Submissions []models.Submission `json:"submissions"`
}

type RoundService interface {
	CreateRound(ctx context.Context, currentUserID int, input CreateRoundInput) (*models.Round, error)
	GetRound(ctx context.Context, roundID, currentUserID int) (*RoundDetail, error)
	ListLeagueRounds(ctx context.Context, leagueID, currentUserID int) ([]RoundSummary, error)
	UpdateRound(ctx context.Context, roundID, currentUserID int, input UpdateRoundInput) (*models.Round, error)
	DeleteRound(ctx context.Context, roundID, currentUserID int) error
	StartRound(ctx context.Context, roundID, currentUserID int) (*models.Round, error)
	CompleteRound(ctx context.Context, roundID, currentUserID int) (*models.Round, error)
	ReorderRounds(ctx context.Context, leagueID, currentUserID int, orders []RoundOrder) ([]RoundSummary, error)

	// ProgressToVoting переводит активный раунд в фазу голосования.
	// Безопасен при повторном вызове: гонка "двое последних сдали
	// одновременно" разрешается идемпотентностью, а не блокировкой.
	ProgressToVoting(ctx context.Context, roundID int) (*models.Round, error)
	// SubmissionComplete — покрытие заявок: все ли участники лиги сдали.
	SubmissionComplete(ctx context.Context, roundID int) (bool, error)
}

type roundService struct {
	roundRepo      repositories.RoundRepository
	leagueRepo     repositories.LeagueRepository
	memberRepo     repositories.MemberRepository
	submissionRepo repositories.SubmissionRepository
	logger         *slog.Logger
}

func NewRoundService(
	roundRepo repositories.RoundRepository,
	leagueRepo repositories.LeagueRepository,
	memberRepo repositories.MemberRepository,
	submissionRepo repositories.SubmissionRepository,
	logger *slog.Logger,
) RoundService {
	return &roundService{
		roundRepo:      roundRepo,
		leagueRepo:     leagueRepo,
		memberRepo:     memberRepo,
		submissionRepo: submissionRepo,
		logger:         logger,
	}
}

// requireAdmin перепроверяет право администратора внутри каждой
// операции; решения авторизации между вызовами не кешируются.
func (s *roundService) requireAdmin(ctx context.Context, leagueID, userID int) error {
	member, err := s.memberRepo.GetByLeagueAndUser(ctx, leagueID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return ErrNotLeagueAdmin
		}
		return fmt.Errorf("failed to check league membership: %w", err)
	}
	if !member.IsAdmin {
		return ErrNotLeagueAdmin
	}
	return nil
}

func (s *roundService) getRound(ctx context.Context, roundID int) (*models.Round, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %d: %w", roundID, err)
	}
	return round, nil
}

func (s *roundService) CreateRound(ctx context.Context, currentUserID int, input CreateRoundInput) (*models.Round, error) {
	if _, err := s.leagueRepo.GetByID(ctx, input.LeagueID); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to get league %d: %w", input.LeagueID, err)
	}

	if err := s.requireAdmin(ctx, input.LeagueID, currentUserID); err != nil {
		return nil, err
	}

	// Если порядок не указан, раунд встает в конец очереди лиги.
	order := 0
	if input.Order != nil {
		order = *input.Order
	} else {
		count, err := s.roundRepo.CountByLeagueID(ctx, input.LeagueID)
		if err != nil {
			return nil, fmt.Errorf("failed to count rounds: %w", err)
		}
		order = count
	}

	round := &models.Round{
		LeagueID:    input.LeagueID,
		Theme:       input.Theme,
		Description: input.Description,
		Order:       order,
		Status:      models.RoundStatusPending,
		// Timestamps остаются NULL до старта раунда.
	}

	if err := s.roundRepo.Create(ctx, round); err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}
	return round, nil
}

func (s *roundService) StartRound(ctx context.Context, roundID, currentUserID int) (*models.Round, error) {
	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	if err := s.requireAdmin(ctx, round.LeagueID, currentUserID); err != nil {
		return nil, err
	}

	if round.Status != models.RoundStatusPending {
		return nil, fmt.Errorf("%w: only pending rounds can be started", ErrRoundNotPending)
	}

	// Инвариант: не больше одного активного раунда в лиге.
	active, err := s.roundRepo.GetActiveByLeagueID(ctx, round.LeagueID)
	if err != nil && !errors.Is(err, repositories.ErrRoundNotFound) {
		return nil, fmt.Errorf("failed to check for active round: %w", err)
	}
	if active != nil {
		return nil, fmt.Errorf("%w: round %q is already active, complete it before starting a new round",
			ErrActiveRoundExists, active.Theme)
	}

	now := time.Now().UTC()
	submissionDeadline := now.Add(submissionWindow)
	votingDeadline := submissionDeadline.Add(votingWindow)

	if err := s.roundRepo.MarkStarted(ctx, round.ID, now, submissionDeadline, votingDeadline); err != nil {
		return nil, fmt.Errorf("failed to start round %d: %w", round.ID, err)
	}

	round.Status = models.RoundStatusActive
	round.StartedAt = &now
	round.SubmissionDeadline = &submissionDeadline
	round.VotingDeadline = &votingDeadline

	s.logger.Info("round started",
		slog.Int("round_id", round.ID),
		slog.Int("league_id", round.LeagueID),
		slog.Time("submission_deadline", submissionDeadline))

	return round, nil
}

func (s *roundService) ProgressToVoting(ctx context.Context, roundID int) (*models.Round, error) {
	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	if round.Status != models.RoundStatusActive {
		return nil, fmt.Errorf("%w: round must be active to start voting", ErrRoundNotActive)
	}

	// Окно голосования всегда отсчитывается от момента, когда закрылись
	// заявки, а не от фиксированного расписания старта раунда.
	now := time.Now().UTC()
	votingDeadline := now.Add(votingWindow)

	if err := s.roundRepo.MarkVotingStarted(ctx, round.ID, now, votingDeadline); err != nil {
		return nil, fmt.Errorf("failed to progress round %d to voting: %w", round.ID, err)
	}

	round.VotingStartedAt = &now
	round.VotingDeadline = &votingDeadline

	s.logger.Info("round progressed to voting",
		slog.Int("round_id", round.ID),
		slog.Time("voting_deadline", votingDeadline))

	return round, nil
}

func (s *roundService) CompleteRound(ctx context.Context, roundID, currentUserID int) (*models.Round, error) {
	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	if err := s.requireAdmin(ctx, round.LeagueID, currentUserID); err != nil {
		return nil, err
	}

	if round.Status != models.RoundStatusActive {
		return nil, fmt.Errorf("%w: only active rounds can be completed", ErrRoundNotActive)
	}

	now := time.Now().UTC()
	if err := s.roundRepo.MarkCompleted(ctx, round.ID, now); err != nil {
		return nil, fmt.Errorf("failed to complete round %d: %w", round.ID, err)
	}

	round.Status = models.RoundStatusCompleted
	round.CompletedAt = &now

	s.logger.Info("round completed",
		slog.Int("round_id", round.ID),
		slog.Int("league_id", round.LeagueID))

	// Каскадное автопродвижение: стартуем следующий pending-раунд
	// с наименьшим order от имени того же администратора.
	next, err := s.roundRepo.FindNextPending(ctx, round.LeagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return round, nil
		}
		return nil, fmt.Errorf("failed to look up next pending round: %w", err)
	}

	if _, err := s.StartRound(ctx, next.ID, currentUserID); err != nil {
		return nil, fmt.Errorf("failed to auto-start next round %d: %w", next.ID, err)
	}

	return round, nil
}

func (s *roundService) ReorderRounds(ctx context.Context, leagueID, currentUserID int, orders []RoundOrder) ([]RoundSummary, error) {
	if err := s.requireAdmin(ctx, leagueID, currentUserID); err != nil {
		return nil, err
	}

	for _, item := range orders {
		round, err := s.roundRepo.GetByID(ctx, item.ID)
		if err != nil {
			if errors.Is(err, repositories.ErrRoundNotFound) {
				// Неизвестные id молча пропускаются.
				continue
			}
			return nil, fmt.Errorf("failed to get round %d: %w", item.ID, err)
		}

		if round.LeagueID != leagueID {
			return nil, fmt.Errorf("%w: round %d does not belong to league %d", ErrRoundNotInLeague, item.ID, leagueID)
		}
		if round.Status != models.RoundStatusPending {
			return nil, fmt.Errorf("%w: round %q cannot be reordered", ErrRoundNotPending, round.Theme)
		}

		if err := s.roundRepo.UpdateOrder(ctx, round.ID, item.Order); err != nil {
			return nil, fmt.Errorf("failed to update order of round %d: %w", round.ID, err)
		}
	}

	return s.ListLeagueRounds(ctx, leagueID, currentUserID)
}

func (s *roundService) UpdateRound(ctx context.Context, roundID, currentUserID int, input UpdateRoundInput) (*models.Round, error) {
	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	if err := s.requireAdmin(ctx, round.LeagueID, currentUserID); err != nil {
		return nil, err
	}

	// Активные и завершенные раунды неизменяемы; переходы делаются
	// только через start/complete.
	if round.Status != models.RoundStatusPending {
		return nil, fmt.Errorf("%w: use start/complete endpoints for active rounds", ErrRoundNotPending)
	}

	if input.Theme != nil {
		round.Theme = *input.Theme
	}
	if input.Description != nil {
		round.Description = input.Description
	}

	if err := s.roundRepo.UpdateDetails(ctx, round); err != nil {
		return nil, fmt.Errorf("failed to update round %d: %w", round.ID, err)
	}
	return round, nil
}

func (s *roundService) DeleteRound(ctx context.Context, roundID, currentUserID int) error {
	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return err
	}

	if err := s.requireAdmin(ctx, round.LeagueID, currentUserID); err != nil {
		return err
	}

	if round.Status != models.RoundStatusPending {
		return fmt.Errorf("%w: only pending rounds can be deleted", ErrRoundNotPending)
	}

	if err := s.roundRepo.Delete(ctx, round.ID); err != nil {
		return fmt.Errorf("failed to delete round %d: %w", round.ID, err)
	}
	return nil
}

func (s *roundService) SubmissionComplete(ctx context.Context, roundID int) (bool, error) {
	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return false, err
	}

	memberCount, err := s.memberRepo.CountByLeagueID(ctx, round.LeagueID)
	if err != nil {
		return false, fmt.Errorf("failed to count league members: %w", err)
	}

	submissionCount, err := s.submissionRepo.CountByRoundID(ctx, roundID)
	if err != nil {
		return false, fmt.Errorf("failed to count submissions: %w", err)
	}

	return submissionCount >= memberCount, nil
}

func (s *roundService) ListLeagueRounds(ctx context.Context, leagueID, currentUserID int) ([]RoundSummary, error) {
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

	isAdmin := false
	if member, err := s.memberRepo.GetByLeagueAndUser(ctx, leagueID, currentUserID); err == nil {
		isAdmin = member.IsAdmin
	}

	summaries := make([]RoundSummary, 0, len(rounds))
	for _, round := range rounds {
		summary, err := s.buildSummary(ctx, round, currentUserID, isAdmin)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *roundService) GetRound(ctx context.Context, roundID, currentUserID int) (*RoundDetail, error) {
	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	isAdmin := false
	if member, err := s.memberRepo.GetByLeagueAndUser(ctx, round.LeagueID, currentUserID); err == nil {
		isAdmin = member.IsAdmin
	}

	summary, err := s.buildSummary(ctx, *round, currentUserID, isAdmin)
	if err != nil {
		return nil, err
	}

	submissions, err := s.submissionRepo.ListByRoundID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	// Имена отправителей скрыты до завершения раунда: пока идет
	// голосование, заявки анонимны.
	if round.Status != models.RoundStatusCompleted {
		for i := range submissions {
			submissions[i].UserName = nil
		}
	}

	return &RoundDetail{RoundSummary: summary, Submissions: submissions}, nil
}

func (s *roundService) buildSummary(ctx context.Context, round models.Round, currentUserID int, isAdmin bool) (RoundSummary, error) {
	count, err := s.submissionRepo.CountByRoundID(ctx, round.ID)
	if err != nil {
		return RoundSummary{}, fmt.Errorf("failed to count submissions for round %d: %w", round.ID, err)
	}

	hasSubmitted := false
	if _, err := s.submissionRepo.GetByRoundAndUser(ctx, round.ID, currentUserID); err == nil {
		hasSubmitted = true
	} else if !errors.Is(err, repositories.ErrSubmissionNotFound) {
		return RoundSummary{}, fmt.Errorf("failed to check submission of user %d: %w", currentUserID, err)
	}

	return RoundSummary{
		Round:            round,
		SubmissionCount:  count,
		UserHasSubmitted: hasSubmitted,
		IsAdmin:          isAdmin,
	}, nil
}
