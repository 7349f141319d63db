package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mixclub/music-league/models"
	"github.com/mixclub/music-league/repositories"
)

type SongInput struct {
	Title           string  `json:"song_title"`
	ArtistName      string  `json:"artist_name"`
	AlbumName       *string `json:"album_name"`
	SonglinkURL     string  `json:"songlink_url"`
	SpotifyURL      *string `json:"spotify_url"`
	AppleMusicURL   *string `json:"apple_music_url"`
	YoutubeURL      *string `json:"youtube_url"`
	YoutubeMusicURL *string `json:"youtube_music_url"`
	AmazonMusicURL  *string `json:"amazon_music_url"`
	TidalURL        *string `json:"tidal_url"`
	DeezerURL       *string `json:"deezer_url"`
	ArtworkURL      *string `json:"artwork_url"`
}

type CreateSubmissionInput struct {
	RoundID int         `json:"round_id"`
	Songs   []SongInput `json:"songs"`
}

type SubmissionService interface {
	// CreateSubmission записывает заявку участника на раунд. Заявка и её
	// песни вставляются одной транзакцией. Обновления заявки нет:
	// канонический путь изменения — delete + повторный submit.
	CreateSubmission(ctx context.Context, currentUserID int, input CreateSubmissionInput) (*models.Submission, error)
	GetUserSubmission(ctx context.Context, roundID, currentUserID int) (*models.Submission, error)
	DeleteSubmission(ctx context.Context, submissionID, currentUserID int) error
}

type submissionService struct {
	submissionRepo repositories.SubmissionRepository
	roundRepo      repositories.RoundRepository
	leagueRepo     repositories.LeagueRepository
	memberRepo     repositories.MemberRepository
	transactor     repositories.Transactor
}

func NewSubmissionService(
	submissionRepo repositories.SubmissionRepository,
	roundRepo repositories.RoundRepository,
	leagueRepo repositories.LeagueRepository,
	memberRepo repositories.MemberRepository,
	transactor repositories.Transactor,
) SubmissionService {
	return &submissionService{
		submissionRepo: submissionRepo,
		roundRepo:      roundRepo,
		leagueRepo:     leagueRepo,
		memberRepo:     memberRepo,
		transactor:     transactor,
	}
}

func (s *submissionService) CreateSubmission(ctx context.Context, currentUserID int, input CreateSubmissionInput) (*models.Submission, error) {
	round, err := s.roundRepo.GetByID(ctx, input.RoundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %d: %w", input.RoundID, err)
	}

	league, err := s.leagueRepo.GetByID(ctx, round.LeagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to get league %d: %w", round.LeagueID, err)
	}

	// Политика количества песен фиксируется на момент создания заявки.
	if len(input.Songs) != league.SongsPerRound {
		return nil, fmt.Errorf("%w: expected %d song(s), got %d",
			ErrSongCountMismatch, league.SongsPerRound, len(input.Songs))
	}

	if _, err := s.memberRepo.GetByLeagueAndUser(ctx, round.LeagueID, currentUserID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return nil, ErrNotLeagueMember
		}
		return nil, fmt.Errorf("failed to check league membership: %w", err)
	}

	switch round.Phase() {
	case models.PhaseSubmission:
		// Окно заявок открыто.
	case models.PhaseVoting:
		return nil, ErrSubmissionsClosed
	default:
		return nil, fmt.Errorf("%w: submissions are only accepted while the round is active", ErrRoundNotActive)
	}

	// Дедлайны проверяются лениво, только в момент записи; ничего не
	// закрывает окно проактивно.
	if round.SubmissionDeadline != nil && time.Now().UTC().After(*round.SubmissionDeadline) {
		return nil, ErrSubmissionDeadline
	}

	if _, err := s.submissionRepo.GetByRoundAndUser(ctx, input.RoundID, currentUserID); err == nil {
		return nil, ErrAlreadySubmitted
	} else if !errors.Is(err, repositories.ErrSubmissionNotFound) {
		return nil, fmt.Errorf("failed to check existing submission: %w", err)
	}

	submission := &models.Submission{
		RoundID: input.RoundID,
		UserID:  currentUserID,
		Songs:   make([]models.Song, 0, len(input.Songs)),
	}
	for i, song := range input.Songs {
		submission.Songs = append(submission.Songs, models.Song{
			Title:           song.Title,
			ArtistName:      song.ArtistName,
			AlbumName:       song.AlbumName,
			SonglinkURL:     song.SonglinkURL,
			SpotifyURL:      song.SpotifyURL,
			AppleMusicURL:   song.AppleMusicURL,
			YoutubeURL:      song.YoutubeURL,
			YoutubeMusicURL: song.YoutubeMusicURL,
			AmazonMusicURL:  song.AmazonMusicURL,
			TidalURL:        song.TidalURL,
			DeezerURL:       song.DeezerURL,
			ArtworkURL:      song.ArtworkURL,
			Position:        i + 1,
		})
	}

	err = s.transactor.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.submissionRepo.Create(ctx, exec, submission); err != nil {
			if errors.Is(err, repositories.ErrSubmissionConflict) {
				return ErrAlreadySubmitted
			}
			return fmt.Errorf("failed to create submission: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return submission, nil
}

func (s *submissionService) GetUserSubmission(ctx context.Context, roundID, currentUserID int) (*models.Submission, error) {
	submission, err := s.submissionRepo.GetByRoundAndUser(ctx, roundID, currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return submission, nil
}

func (s *submissionService) DeleteSubmission(ctx context.Context, submissionID, currentUserID int) error {
	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return ErrSubmissionNotFound
		}
		return fmt.Errorf("failed to get submission %d: %w", submissionID, err)
	}

	if submission.UserID != currentUserID {
		return ErrNotSubmissionOwner
	}

	round, err := s.roundRepo.GetByID(ctx, submission.RoundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return ErrRoundNotFound
		}
		return fmt.Errorf("failed to get round %d: %w", submission.RoundID, err)
	}

	// Зеркало guard-ов создания: после начала голосования и после
	// дедлайна заявку уже не убрать.
	if round.Phase() == models.PhaseVoting {
		return ErrSubmissionsClosed
	}
	if round.SubmissionDeadline != nil && time.Now().UTC().After(*round.SubmissionDeadline) {
		return ErrSubmissionDeadline
	}

	if err := s.submissionRepo.Delete(ctx, submissionID); err != nil {
		return fmt.Errorf("failed to delete submission %d: %w", submissionID, err)
	}
	return nil
}
