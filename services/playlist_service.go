package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mixclub/music-league/repositories"
	"github.com/mixclub/music-league/tidal"
)

type TidalStatus struct {
	Connected bool    `json:"connected"`
	UserID    *string `json:"user_id,omitempty"`
}

type CreatePlaylistResult struct {
	PlaylistID   string `json:"playlist_id"`
	PlaylistURL  string `json:"playlist_url"`
	TrackCount   int    `json:"track_count"`
	SkippedCount int    `json:"skipped_count"`
}

type PlaylistService interface {
	GetTidalStatus(ctx context.Context, userID int) (*TidalStatus, error)
	StartTidalAuth(ctx context.Context, userID int) (*tidal.DeviceAuth, error)
	// CompleteTidalAuth опрашивает Tidal; при успехе сохраняет сессию на
	// строке пользователя. Пока авторизация не завершена — ErrTidalAuthPending.
	CompleteTidalAuth(ctx context.Context, userID int, deviceCode string) error
	DisconnectTidal(ctx context.Context, userID int) error
	// CreateRoundPlaylist собирает tidal-ссылки из заявок раунда и создает
	// плейлист с названием по теме раунда. Песни без распознаваемой
	// tidal-ссылки пропускаются и попадают в skipped-счетчик.
	CreateRoundPlaylist(ctx context.Context, userID, roundID int) (*CreatePlaylistResult, error)
}

type playlistService struct {
	userRepo       repositories.UserRepository
	roundRepo      repositories.RoundRepository
	submissionRepo repositories.SubmissionRepository
	memberRepo     repositories.MemberRepository
	tidalClient    *tidal.Client
	logger         *slog.Logger
}

func NewPlaylistService(
	userRepo repositories.UserRepository,
	roundRepo repositories.RoundRepository,
	submissionRepo repositories.SubmissionRepository,
	memberRepo repositories.MemberRepository,
	tidalClient *tidal.Client,
	logger *slog.Logger,
) PlaylistService {
	return &playlistService{
		userRepo:       userRepo,
		roundRepo:      roundRepo,
		submissionRepo: submissionRepo,
		memberRepo:     memberRepo,
		tidalClient:    tidalClient,
		logger:         logger,
	}
}

func (s *playlistService) GetTidalStatus(ctx context.Context, userID int) (*TidalStatus, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return &TidalStatus{
		Connected: user.TidalUserID != nil,
		UserID:    user.TidalUserID,
	}, nil
}

func (s *playlistService) StartTidalAuth(ctx context.Context, userID int) (*tidal.DeviceAuth, error) {
	auth, err := s.tidalClient.StartDeviceAuth(ctx)
	if err != nil {
		return nil, s.mapTidalError(err)
	}
	return auth, nil
}

func (s *playlistService) CompleteTidalAuth(ctx context.Context, userID int, deviceCode string) error {
	session, tidalUserID, err := s.tidalClient.PollDeviceAuth(ctx, deviceCode)
	if err != nil {
		return s.mapTidalError(err)
	}

	sessionData, err := session.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize tidal session: %w", err)
	}
	if err := s.userRepo.UpdateTidalSession(ctx, userID, &tidalUserID, &sessionData); err != nil {
		return fmt.Errorf("failed to store tidal session: %w", err)
	}

	s.logger.Info("tidal account linked", "user_id", userID)
	return nil
}

func (s *playlistService) DisconnectTidal(ctx context.Context, userID int) error {
	if err := s.userRepo.UpdateTidalSession(ctx, userID, nil, nil); err != nil {
		return fmt.Errorf("failed to clear tidal session: %w", err)
	}
	return nil
}

func (s *playlistService) CreateRoundPlaylist(ctx context.Context, userID, roundID int) (*CreatePlaylistResult, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user.TidalUserID == nil || user.TidalSessionData == nil {
		return nil, ErrTidalNotLinked
	}

	// Сессия живет только в рамках этого запроса.
	session, err := tidal.ParseSession(*user.TidalSessionData)
	if err != nil {
		return nil, s.mapTidalError(err)
	}

	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %d: %w", roundID, err)
	}

	if _, err := s.memberRepo.GetByLeagueAndUser(ctx, round.LeagueID, userID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return nil, ErrNotLeagueMember
		}
		return nil, fmt.Errorf("failed to check league membership: %w", err)
	}

	submissions, err := s.submissionRepo.ListByRoundID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	var trackIDs []int64
	skipped := 0
	for _, submission := range submissions {
		for _, song := range submission.Songs {
			if song.TidalURL == nil {
				skipped++
				continue
			}
			if id := tidal.ExtractTrackID(*song.TidalURL); id != 0 {
				trackIDs = append(trackIDs, id)
			} else {
				skipped++
			}
		}
	}

	playlist, err := s.tidalClient.CreatePlaylist(ctx, session, *user.TidalUserID,
		round.Theme, "Created by MixClub", trackIDs)
	if err != nil {
		mapped := s.mapTidalError(err)
		// Протухшую сессию чистим сразу, чтобы фронт запросил переавторизацию.
		if errors.Is(mapped, ErrTidalSessionExpired) {
			if clearErr := s.userRepo.UpdateTidalSession(ctx, userID, nil, nil); clearErr != nil {
				s.logger.Warn("failed to clear expired tidal session", "user_id", userID, "error", clearErr)
			}
		}
		return nil, mapped
	}

	s.logger.Info("tidal playlist created",
		"round_id", roundID, "playlist_id", playlist.ID, "tracks", len(trackIDs), "skipped", skipped)

	return &CreatePlaylistResult{
		PlaylistID:   playlist.ID,
		PlaylistURL:  playlist.URL,
		TrackCount:   len(trackIDs),
		SkippedCount: skipped,
	}, nil
}

func (s *playlistService) mapTidalError(err error) error {
	switch {
	case errors.Is(err, tidal.ErrAuthPending):
		return ErrTidalAuthPending
	case errors.Is(err, tidal.ErrSessionExpired):
		return ErrTidalSessionExpired
	case errors.Is(err, tidal.ErrUpstream):
		return fmt.Errorf("%w: %v", ErrTidalUpstream, err)
	default:
		return err
	}
}
