package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mixclub/music-league/models"
	"github.com/mixclub/music-league/repositories"
	"github.com/mixclub/music-league/utils"
)

const (
	minSongsPerRound = 1
	maxSongsPerRound = 5

	// Сколько раз пробуем перегенерировать invite-код при коллизии.
	inviteCodeAttempts = 5
)

type CreateLeagueInput struct {
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	SongsPerRound int     `json:"songs_per_round"`
}

type UpdateLeagueInput struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	SongsPerRound *int    `json:"songs_per_round"`
}

type LeagueService interface {
	// CreateLeague создает лигу и делает создателя её админом одной транзакцией.
	CreateLeague(ctx context.Context, currentUserID int, input CreateLeagueInput) (*models.League, error)
	GetLeague(ctx context.Context, leagueID, currentUserID int) (*models.League, error)
	GetUserLeagues(ctx context.Context, currentUserID int) ([]models.League, error)
	// JoinLeague добавляет пользователя в лигу по invite-коду.
	JoinLeague(ctx context.Context, currentUserID int, inviteCode string) (*models.League, error)
	LeaveLeague(ctx context.Context, leagueID, currentUserID int) error
	UpdateLeague(ctx context.Context, leagueID, currentUserID int, input UpdateLeagueInput) (*models.League, error)
	DeleteLeague(ctx context.Context, leagueID, currentUserID int) error
	ListMembers(ctx context.Context, leagueID, currentUserID int) ([]models.LeagueMember, error)
	IsAdmin(ctx context.Context, leagueID, userID int) (bool, error)
}

type leagueService struct {
	leagueRepo repositories.LeagueRepository
	memberRepo repositories.MemberRepository
	transactor repositories.Transactor
	logger     *slog.Logger
}

func NewLeagueService(
	leagueRepo repositories.LeagueRepository,
	memberRepo repositories.MemberRepository,
	transactor repositories.Transactor,
	logger *slog.Logger,
) LeagueService {
	return &leagueService{
		leagueRepo: leagueRepo,
		memberRepo: memberRepo,
		transactor: transactor,
		logger:     logger,
	}
}

func (s *leagueService) CreateLeague(ctx context.Context, currentUserID int, input CreateLeagueInput) (*models.League, error) {
	if input.SongsPerRound < minSongsPerRound || input.SongsPerRound > maxSongsPerRound {
		return nil, fmt.Errorf("%w: got %d", ErrLeagueInvalidSongsCount, input.SongsPerRound)
	}

	league := &models.League{
		Name:          input.Name,
		Description:   input.Description,
		CreatedByID:   currentUserID,
		SongsPerRound: input.SongsPerRound,
	}

	// Invite-код уникален на уровне БД; при коллизии генерируем заново.
	var created bool
	for attempt := 0; attempt < inviteCodeAttempts && !created; attempt++ {
		code, err := utils.GenerateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate invite code: %w", err)
		}
		league.InviteCode = code

		err = s.transactor.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
			if err := s.leagueRepo.Create(ctx, exec, league); err != nil {
				return err
			}
			member := &models.LeagueMember{
				LeagueID: league.ID,
				UserID:   currentUserID,
				IsAdmin:  true,
			}
			return s.memberRepo.Create(ctx, exec, member)
		})
		switch {
		case err == nil:
			created = true
		case errors.Is(err, repositories.ErrLeagueInviteCodeConflict):
			s.logger.Warn("invite code collision, retrying", "attempt", attempt+1)
		default:
			return nil, fmt.Errorf("failed to create league: %w", err)
		}
	}
	if !created {
		return nil, ErrInviteCodeGeneration
	}

	s.logger.Info("league created", "league_id", league.ID, "created_by", currentUserID)
	return league, nil
}

func (s *leagueService) GetLeague(ctx context.Context, leagueID, currentUserID int) (*models.League, error) {
	league, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to get league %d: %w", leagueID, err)
	}

	if _, err := s.memberRepo.GetByLeagueAndUser(ctx, leagueID, currentUserID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return nil, ErrNotLeagueMember
		}
		return nil, fmt.Errorf("failed to check league membership: %w", err)
	}

	members, err := s.memberRepo.ListByLeagueID(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list league members: %w", err)
	}
	league.Members = members

	return league, nil
}

func (s *leagueService) GetUserLeagues(ctx context.Context, currentUserID int) ([]models.League, error) {
	leagues, err := s.leagueRepo.ListByUserID(ctx, currentUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	return leagues, nil
}

func (s *leagueService) JoinLeague(ctx context.Context, currentUserID int, inviteCode string) (*models.League, error) {
	league, err := s.leagueRepo.GetByInviteCode(ctx, inviteCode)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to look up invite code: %w", err)
	}

	member := &models.LeagueMember{
		LeagueID: league.ID,
		UserID:   currentUserID,
		IsAdmin:  false,
	}
	if err := s.memberRepo.Create(ctx, nil, member); err != nil {
		if errors.Is(err, repositories.ErrMemberConflict) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to join league: %w", err)
	}

	s.logger.Info("user joined league", "league_id", league.ID, "user_id", currentUserID)
	return league, nil
}

func (s *leagueService) LeaveLeague(ctx context.Context, leagueID, currentUserID int) error {
	league, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return ErrLeagueNotFound
		}
		return fmt.Errorf("failed to get league %d: %w", leagueID, err)
	}

	// Создатель не покидает лигу: у лиги всегда есть владелец.
	if league.CreatedByID == currentUserID {
		return ErrCreatorCannotLeave
	}

	if err := s.memberRepo.Delete(ctx, leagueID, currentUserID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return ErrNotLeagueMember
		}
		return fmt.Errorf("failed to leave league: %w", err)
	}
	return nil
}

func (s *leagueService) UpdateLeague(ctx context.Context, leagueID, currentUserID int, input UpdateLeagueInput) (*models.League, error) {
	league, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to get league %d: %w", leagueID, err)
	}

	admin, err := s.IsAdmin(ctx, leagueID, currentUserID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, ErrNotLeagueAdmin
	}

	if input.Name != nil {
		league.Name = *input.Name
	}
	if input.Description != nil {
		league.Description = input.Description
	}
	if input.SongsPerRound != nil {
		if *input.SongsPerRound < minSongsPerRound || *input.SongsPerRound > maxSongsPerRound {
			return nil, fmt.Errorf("%w: got %d", ErrLeagueInvalidSongsCount, *input.SongsPerRound)
		}
		league.SongsPerRound = *input.SongsPerRound
	}

	if err := s.leagueRepo.Update(ctx, league); err != nil {
		return nil, fmt.Errorf("failed to update league %d: %w", leagueID, err)
	}
	return league, nil
}

func (s *leagueService) DeleteLeague(ctx context.Context, leagueID, currentUserID int) error {
	league, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return ErrLeagueNotFound
		}
		return fmt.Errorf("failed to get league %d: %w", leagueID, err)
	}

	if league.CreatedByID != currentUserID {
		return ErrNotLeagueCreator
	}

	if err := s.leagueRepo.Delete(ctx, leagueID); err != nil {
		return fmt.Errorf("failed to delete league %d: %w", leagueID, err)
	}

	s.logger.Info("league deleted", "league_id", leagueID, "deleted_by", currentUserID)
	return nil
}

func (s *leagueService) ListMembers(ctx context.Context, leagueID, currentUserID int) ([]models.LeagueMember, error) {
	if _, err := s.memberRepo.GetByLeagueAndUser(ctx, leagueID, currentUserID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return nil, ErrNotLeagueMember
		}
		return nil, fmt.Errorf("failed to check league membership: %w", err)
	}

	members, err := s.memberRepo.ListByLeagueID(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list league members: %w", err)
	}
	return members, nil
}

func (s *leagueService) IsAdmin(ctx context.Context, leagueID, userID int) (bool, error) {
	member, err := s.memberRepo.GetByLeagueAndUser(ctx, leagueID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check league membership: %w", err)
	}
	return member.IsAdmin, nil
}
