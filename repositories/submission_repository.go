package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mixclub/music-league/models"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrSubmissionConflict = errors.New("user already has a submission for this round")
)

// SongOwner связывает песню раунда с её отправителем; используется
// движком голосования для проверки самоголосования.
type SongOwner struct {
	SongID      int
	SubmitterID int
}

type SubmissionRepository interface {
	// Create вставляет заявку и все её песни. Принимает exec: заявка и
	// песни должны записываться одной транзакцией, частичные наборы
	// не должны быть видимы.
	Create(ctx context.Context, exec SQLExecutor, submission *models.Submission) error
	GetByID(ctx context.Context, id int) (*models.Submission, error)
	GetByRoundAndUser(ctx context.Context, roundID, userID int) (*models.Submission, error)
	ListByRoundID(ctx context.Context, roundID int) ([]models.Submission, error)
	CountByRoundID(ctx context.Context, roundID int) (int, error)
	ListRoundSongOwners(ctx context.Context, roundID int) ([]SongOwner, error)
	Delete(ctx context.Context, id int) error
}

type postgresSubmissionRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &postgresSubmissionRepository{db: db}
}

func (r *postgresSubmissionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const songColumns = `id, submission_id, song_title, artist_name, album_name,
	songlink_url, spotify_url, apple_music_url, youtube_url, youtube_music_url,
	amazon_music_url, tidal_url, deezer_url, artwork_url, position, created_at`

func (r *postgresSubmissionRepository) Create(ctx context.Context, exec SQLExecutor, submission *models.Submission) error {
	executor := r.getExecutor(exec)

	query := `
		INSERT INTO submissions (round_id, user_id)
		VALUES ($1, $2)
		RETURNING id, submitted_at`

	err := executor.QueryRowContext(ctx, query,
		submission.RoundID,
		submission.UserID,
	).Scan(&submission.ID, &submission.SubmittedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" && pqErr.Constraint == "submissions_round_id_user_id_key" {
				return ErrSubmissionConflict
			}
		}
		return err
	}

	songQuery := `
		INSERT INTO songs (
			submission_id, song_title, artist_name, album_name,
			songlink_url, spotify_url, apple_music_url, youtube_url, youtube_music_url,
			amazon_music_url, tidal_url, deezer_url, artwork_url, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	for i := range submission.Songs {
		song := &submission.Songs[i]
		song.SubmissionID = submission.ID
		err := executor.QueryRowContext(ctx, songQuery,
			song.SubmissionID, song.Title, song.ArtistName, song.AlbumName,
			song.SonglinkURL, song.SpotifyURL, song.AppleMusicURL, song.YoutubeURL, song.YoutubeMusicURL,
			song.AmazonMusicURL, song.TidalURL, song.DeezerURL, song.ArtworkURL, song.Position,
		).Scan(&song.ID, &song.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert song %d of submission %d: %w", song.Position, submission.ID, err)
		}
	}

	return nil
}

func (r *postgresSubmissionRepository) GetByID(ctx context.Context, id int) (*models.Submission, error) {
	query := `SELECT id, round_id, user_id, submitted_at FROM submissions WHERE id = $1`

	submission := &models.Submission{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&submission.ID,
		&submission.RoundID,
		&submission.UserID,
		&submission.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	if err := r.attachSongs(ctx, submission); err != nil {
		return nil, err
	}
	return submission, nil
}

func (r *postgresSubmissionRepository) GetByRoundAndUser(ctx context.Context, roundID, userID int) (*models.Submission, error) {
	query := `SELECT id, round_id, user_id, submitted_at FROM submissions WHERE round_id = $1 AND user_id = $2`

	submission := &models.Submission{}
	err := r.db.QueryRowContext(ctx, query, roundID, userID).Scan(
		&submission.ID,
		&submission.RoundID,
		&submission.UserID,
		&submission.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	if err := r.attachSongs(ctx, submission); err != nil {
		return nil, err
	}
	return submission, nil
}

func (r *postgresSubmissionRepository) ListByRoundID(ctx context.Context, roundID int) ([]models.Submission, error) {
	query := `
		SELECT s.id, s.round_id, s.user_id, s.submitted_at, u.name
		FROM submissions s
		JOIN users u ON u.id = s.user_id
		WHERE s.round_id = $1
		ORDER BY s.submitted_at ASC`

	rows, err := r.db.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := make([]models.Submission, 0)
	for rows.Next() {
		var s models.Submission
		var userName string
		if scanErr := rows.Scan(&s.ID, &s.RoundID, &s.UserID, &s.SubmittedAt, &userName); scanErr != nil {
			return nil, scanErr
		}
		s.UserName = &userName
		submissions = append(submissions, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for i := range submissions {
		if err := r.attachSongs(ctx, &submissions[i]); err != nil {
			return nil, err
		}
	}
	return submissions, nil
}

func (r *postgresSubmissionRepository) attachSongs(ctx context.Context, submission *models.Submission) error {
	query := `SELECT ` + songColumns + ` FROM songs WHERE submission_id = $1 ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, submission.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	songs := make([]models.Song, 0)
	for rows.Next() {
		var song models.Song
		if scanErr := rows.Scan(
			&song.ID, &song.SubmissionID, &song.Title, &song.ArtistName, &song.AlbumName,
			&song.SonglinkURL, &song.SpotifyURL, &song.AppleMusicURL, &song.YoutubeURL, &song.YoutubeMusicURL,
			&song.AmazonMusicURL, &song.TidalURL, &song.DeezerURL, &song.ArtworkURL, &song.Position, &song.CreatedAt,
		); scanErr != nil {
			return scanErr
		}
		songs = append(songs, song)
	}
	if err = rows.Err(); err != nil {
		return err
	}

	submission.Songs = songs
	return nil
}

func (r *postgresSubmissionRepository) CountByRoundID(ctx context.Context, roundID int) (int, error) {
	query := `SELECT COUNT(*) FROM submissions WHERE round_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, roundID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresSubmissionRepository) ListRoundSongOwners(ctx context.Context, roundID int) ([]SongOwner, error) {
	query := `
		SELECT sg.id, s.user_id
		FROM songs sg
		JOIN submissions s ON s.id = sg.submission_id
		WHERE s.round_id = $1`

	rows, err := r.db.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := make([]SongOwner, 0)
	for rows.Next() {
		var o SongOwner
		if scanErr := rows.Scan(&o.SongID, &o.SubmitterID); scanErr != nil {
			return nil, scanErr
		}
		owners = append(owners, o)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return owners, nil
}

func (r *postgresSubmissionRepository) Delete(ctx context.Context, id int) error {
	// Песни удаляются каскадом по FK songs_submission_id_fkey.
	query := `DELETE FROM submissions WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSubmissionNotFound)
}
