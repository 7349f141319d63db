package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mixclub/music-league/models"
)

var ErrVotesNotFound = errors.New("votes not found")

type VoteRepository interface {
	// DeleteByRoundAndVoter удаляет все голоса участника в раунде.
	// Возвращает количество удаленных строк (0 — не ошибка: replace-all
	// при первом касте ничего не удаляет).
	DeleteByRoundAndVoter(ctx context.Context, exec SQLExecutor, roundID, voterID int) (int64, error)
	// CreateBatch вставляет набор голосов одного каста; все строки
	// получают общий votedAt.
	CreateBatch(ctx context.Context, exec SQLExecutor, votes []models.Vote, votedAt time.Time) ([]models.Vote, error)
	ListByRoundAndVoter(ctx context.Context, roundID, voterID int) ([]models.Vote, error)
	// ListByRoundID возвращает все голоса раунда с именами голосующих.
	ListByRoundID(ctx context.Context, roundID int) ([]models.Vote, error)
	CountDistinctVoters(ctx context.Context, roundID int) (int, error)
}

type postgresVoteRepository struct {
	db *sql.DB
}

func NewPostgresVoteRepository(db *sql.DB) VoteRepository {
	return &postgresVoteRepository{db: db}
}

func (r *postgresVoteRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresVoteRepository) DeleteByRoundAndVoter(ctx context.Context, exec SQLExecutor, roundID, voterID int) (int64, error) {
	executor := r.getExecutor(exec)
	query := `DELETE FROM votes WHERE round_id = $1 AND voter_id = $2`

	result, err := executor.ExecContext(ctx, query, roundID, voterID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *postgresVoteRepository) CreateBatch(ctx context.Context, exec SQLExecutor, votes []models.Vote, votedAt time.Time) ([]models.Vote, error) {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO votes (round_id, voter_id, song_id, rank, voted_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	created := make([]models.Vote, 0, len(votes))
	for _, vote := range votes {
		vote.VotedAt = votedAt
		err := executor.QueryRowContext(ctx, query,
			vote.RoundID, vote.VoterID, vote.SongID, vote.Rank, votedAt,
		).Scan(&vote.ID)
		if err != nil {
			return nil, err
		}
		created = append(created, vote)
	}
	return created, nil
}

func (r *postgresVoteRepository) ListByRoundAndVoter(ctx context.Context, roundID, voterID int) ([]models.Vote, error) {
	query := `
		SELECT id, round_id, voter_id, song_id, rank, voted_at
		FROM votes
		WHERE round_id = $1 AND voter_id = $2
		ORDER BY rank ASC`

	rows, err := r.db.QueryContext(ctx, query, roundID, voterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := make([]models.Vote, 0)
	for rows.Next() {
		var v models.Vote
		if scanErr := rows.Scan(&v.ID, &v.RoundID, &v.VoterID, &v.SongID, &v.Rank, &v.VotedAt); scanErr != nil {
			return nil, scanErr
		}
		votes = append(votes, v)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *postgresVoteRepository) ListByRoundID(ctx context.Context, roundID int) ([]models.Vote, error) {
	query := `
		SELECT v.id, v.round_id, v.voter_id, v.song_id, v.rank, v.voted_at, u.name
		FROM votes v
		JOIN users u ON u.id = v.voter_id
		WHERE v.round_id = $1
		ORDER BY v.id ASC`

	rows, err := r.db.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := make([]models.Vote, 0)
	for rows.Next() {
		var v models.Vote
		var voterName string
		if scanErr := rows.Scan(&v.ID, &v.RoundID, &v.VoterID, &v.SongID, &v.Rank, &v.VotedAt, &voterName); scanErr != nil {
			return nil, scanErr
		}
		v.VoterName = &voterName
		votes = append(votes, v)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *postgresVoteRepository) CountDistinctVoters(ctx context.Context, roundID int) (int, error) {
	query := `SELECT COUNT(DISTINCT voter_id) FROM votes WHERE round_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, roundID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
