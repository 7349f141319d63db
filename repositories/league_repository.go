package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/mixclub/music-league/models"
)

var (
	ErrLeagueNotFound           = errors.New("league not found")
	ErrLeagueInviteCodeConflict = errors.New("league invite code conflict")
)

type LeagueRepository interface {
	// Create создает лигу. Заполняет ID и CreatedAt у переданного объекта.
	// Принимает exec, чтобы создание лиги и членства создателя шли одной транзакцией.
	Create(ctx context.Context, exec SQLExecutor, league *models.League) error
	GetByID(ctx context.Context, id int) (*models.League, error)
	GetByInviteCode(ctx context.Context, inviteCode string) (*models.League, error)
	ListByUserID(ctx context.Context, userID int) ([]models.League, error)
	Update(ctx context.Context, league *models.League) error
	Delete(ctx context.Context, id int) error
}

type postgresLeagueRepository struct {
	db *sql.DB
}

func NewPostgresLeagueRepository(db *sql.DB) LeagueRepository {
	return &postgresLeagueRepository{db: db}
}

func (r *postgresLeagueRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const leagueColumns = `id, name, description, invite_code, created_by_id, songs_per_round, created_at`

func (r *postgresLeagueRepository) Create(ctx context.Context, exec SQLExecutor, league *models.League) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO leagues (name, description, invite_code, created_by_id, songs_per_round)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		league.Name,
		league.Description,
		league.InviteCode,
		league.CreatedByID,
		league.SongsPerRound,
	).Scan(&league.ID, &league.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" && pqErr.Constraint == "leagues_invite_code_key" {
				return ErrLeagueInviteCodeConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresLeagueRepository) GetByID(ctx context.Context, id int) (*models.League, error) {
	query := `SELECT ` + leagueColumns + ` FROM leagues WHERE id = $1`
	return r.scanLeague(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresLeagueRepository) GetByInviteCode(ctx context.Context, inviteCode string) (*models.League, error) {
	query := `SELECT ` + leagueColumns + ` FROM leagues WHERE invite_code = $1`
	return r.scanLeague(r.db.QueryRowContext(ctx, query, inviteCode))
}

func (r *postgresLeagueRepository) scanLeague(row *sql.Row) (*models.League, error) {
	league := &models.League{}
	err := row.Scan(
		&league.ID,
		&league.Name,
		&league.Description,
		&league.InviteCode,
		&league.CreatedByID,
		&league.SongsPerRound,
		&league.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}
	return league, nil
}

func (r *postgresLeagueRepository) ListByUserID(ctx context.Context, userID int) ([]models.League, error) {
	query := `
		SELECT l.id, l.name, l.description, l.invite_code, l.created_by_id, l.songs_per_round, l.created_at
		FROM leagues l
		JOIN league_members m ON m.league_id = l.id
		WHERE m.user_id = $1
		ORDER BY l.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leagues := make([]models.League, 0)
	for rows.Next() {
		var l models.League
		if scanErr := rows.Scan(
			&l.ID, &l.Name, &l.Description, &l.InviteCode,
			&l.CreatedByID, &l.SongsPerRound, &l.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		leagues = append(leagues, l)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return leagues, nil
}

func (r *postgresLeagueRepository) Update(ctx context.Context, league *models.League) error {
	query := `
		UPDATE leagues SET
			name = $1,
			description = $2,
			songs_per_round = $3
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query,
		league.Name, league.Description, league.SongsPerRound, league.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

func (r *postgresLeagueRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM leagues WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}
