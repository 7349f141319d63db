package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/mixclub/music-league/models"
)

var (
	ErrMemberNotFound = errors.New("league membership not found")
	ErrMemberConflict = errors.New("user is already a member of this league")
)

type MemberRepository interface {
	Create(ctx context.Context, exec SQLExecutor, member *models.LeagueMember) error
	GetByLeagueAndUser(ctx context.Context, leagueID, userID int) (*models.LeagueMember, error)
	ListByLeagueID(ctx context.Context, leagueID int) ([]models.LeagueMember, error)
	CountByLeagueID(ctx context.Context, leagueID int) (int, error)
	Delete(ctx context.Context, leagueID, userID int) error
}

type postgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) MemberRepository {
	return &postgresMemberRepository{db: db}
}

func (r *postgresMemberRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMemberRepository) Create(ctx context.Context, exec SQLExecutor, member *models.LeagueMember) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO league_members (league_id, user_id, is_admin)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at`

	err := executor.QueryRowContext(ctx, query,
		member.LeagueID,
		member.UserID,
		member.IsAdmin,
	).Scan(&member.ID, &member.JoinedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" && pqErr.Constraint == "league_members_league_id_user_id_key" {
				return ErrMemberConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresMemberRepository) GetByLeagueAndUser(ctx context.Context, leagueID, userID int) (*models.LeagueMember, error) {
	query := `
		SELECT id, league_id, user_id, is_admin, joined_at
		FROM league_members
		WHERE league_id = $1 AND user_id = $2`

	member := &models.LeagueMember{}
	err := r.db.QueryRowContext(ctx, query, leagueID, userID).Scan(
		&member.ID,
		&member.LeagueID,
		&member.UserID,
		&member.IsAdmin,
		&member.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

func (r *postgresMemberRepository) ListByLeagueID(ctx context.Context, leagueID int) ([]models.LeagueMember, error) {
	query := `
		SELECT m.id, m.league_id, m.user_id, m.is_admin, m.joined_at, u.name
		FROM league_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.league_id = $1
		ORDER BY m.joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]models.LeagueMember, 0)
	for rows.Next() {
		var m models.LeagueMember
		var userName string
		if scanErr := rows.Scan(&m.ID, &m.LeagueID, &m.UserID, &m.IsAdmin, &m.JoinedAt, &userName); scanErr != nil {
			return nil, scanErr
		}
		m.UserName = &userName
		members = append(members, m)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *postgresMemberRepository) CountByLeagueID(ctx context.Context, leagueID int) (int, error) {
	query := `SELECT COUNT(*) FROM league_members WHERE league_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, leagueID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresMemberRepository) Delete(ctx context.Context, leagueID, userID int) error {
	query := `DELETE FROM league_members WHERE league_id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, leagueID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMemberNotFound)
}
