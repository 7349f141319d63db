package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/mixclub/music-league/models"
)

var (
	ErrRoundNotFound      = errors.New("round not found")
	ErrRoundLeagueInvalid = errors.New("round league conflict or invalid")
)

type RoundRepository interface {
	Create(ctx context.Context, round *models.Round) error
	GetByID(ctx context.Context, id int) (*models.Round, error)
	// ListByLeagueID возвращает раунды лиги: активный первым, затем
	// очередь pending по возрастанию order, затем история по убыванию completed_at.
	ListByLeagueID(ctx context.Context, leagueID int) ([]models.Round, error)
	GetActiveByLeagueID(ctx context.Context, leagueID int) (*models.Round, error)
	// FindNextPending возвращает pending-раунд лиги с наименьшим order.
	FindNextPending(ctx context.Context, leagueID int) (*models.Round, error)
	CountByLeagueID(ctx context.Context, leagueID int) (int, error)
	UpdateDetails(ctx context.Context, round *models.Round) error
	UpdateOrder(ctx context.Context, id, order int) error
	MarkStarted(ctx context.Context, id int, startedAt, submissionDeadline, votingDeadline time.Time) error
	MarkVotingStarted(ctx context.Context, id int, votingStartedAt, votingDeadline time.Time) error
	MarkCompleted(ctx context.Context, id int, completedAt time.Time) error
	Delete(ctx context.Context, id int) error
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

const roundColumns = `id, league_id, theme, description, round_order, status,
	started_at, submission_deadline, voting_started_at, voting_deadline, completed_at, created_at`

func (r *postgresRoundRepository) Create(ctx context.Context, round *models.Round) error {
	query := `
		INSERT INTO rounds (league_id, theme, description, round_order, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		round.LeagueID,
		round.Theme,
		round.Description,
		round.Order,
		round.Status,
	).Scan(&round.ID, &round.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23503" && pqErr.Constraint == "rounds_league_id_fkey" {
				return ErrRoundLeagueInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresRoundRepository) GetByID(ctx context.Context, id int) (*models.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE id = $1`
	return scanRoundRow(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresRoundRepository) ListByLeagueID(ctx context.Context, leagueID int) ([]models.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE league_id = $1
		ORDER BY
			CASE status WHEN 'active' THEN 0 WHEN 'pending' THEN 1 ELSE 2 END,
			round_order ASC,
			completed_at DESC NULLS LAST`

	rows, err := r.db.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := make([]models.Round, 0)
	for rows.Next() {
		round, scanErr := scanRound(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rounds = append(rounds, *round)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return rounds, nil
}

func (r *postgresRoundRepository) GetActiveByLeagueID(ctx context.Context, leagueID int) (*models.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE league_id = $1 AND status = $2`
	return scanRoundRow(r.db.QueryRowContext(ctx, query, leagueID, models.RoundStatusActive))
}

func (r *postgresRoundRepository) FindNextPending(ctx context.Context, leagueID int) (*models.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE league_id = $1 AND status = $2
		ORDER BY round_order ASC
		LIMIT 1`
	return scanRoundRow(r.db.QueryRowContext(ctx, query, leagueID, models.RoundStatusPending))
}

func (r *postgresRoundRepository) CountByLeagueID(ctx context.Context, leagueID int) (int, error) {
	query := `SELECT COUNT(*) FROM rounds WHERE league_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, leagueID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresRoundRepository) UpdateDetails(ctx context.Context, round *models.Round) error {
	query := `UPDATE rounds SET theme = $1, description = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, round.Theme, round.Description, round.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresRoundRepository) UpdateOrder(ctx context.Context, id, order int) error {
	query := `UPDATE rounds SET round_order = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, order, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresRoundRepository) MarkStarted(ctx context.Context, id int, startedAt, submissionDeadline, votingDeadline time.Time) error {
	query := `
		UPDATE rounds SET
			status = $1,
			started_at = $2,
			submission_deadline = $3,
			voting_deadline = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query,
		models.RoundStatusActive, startedAt, submissionDeadline, votingDeadline, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresRoundRepository) MarkVotingStarted(ctx context.Context, id int, votingStartedAt, votingDeadline time.Time) error {
	query := `UPDATE rounds SET voting_started_at = $1, voting_deadline = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, votingStartedAt, votingDeadline, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresRoundRepository) MarkCompleted(ctx context.Context, id int, completedAt time.Time) error {
	query := `UPDATE rounds SET status = $1, completed_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, models.RoundStatusCompleted, completedAt, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresRoundRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM rounds WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRound(s rowScanner) (*models.Round, error) {
	round := &models.Round{}
	err := s.Scan(
		&round.ID,
		&round.LeagueID,
		&round.Theme,
		&round.Description,
		&round.Order,
		&round.Status,
		&round.StartedAt,
		&round.SubmissionDeadline,
		&round.VotingStartedAt,
		&round.VotingDeadline,
		&round.CompletedAt,
		&round.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return round, nil
}

func scanRoundRow(row *sql.Row) (*models.Round, error) {
	round, err := scanRound(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return round, nil
}
