package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixclub/music-league/models"
	"github.com/mixclub/music-league/repositories"
)

type leagueServiceFixture struct {
	leagues    *fakeLeagueRepo
	members    *fakeMemberRepo
	transactor *fakeTransactor
	svc        LeagueService
}

func newLeagueServiceFixture(t *testing.T) *leagueServiceFixture {
	t.Helper()

	f := &leagueServiceFixture{
		leagues:    newFakeLeagueRepo(),
		members:    newFakeMemberRepo(),
		transactor: &fakeTransactor{},
	}
	f.svc = NewLeagueService(f.leagues, f.members, f.transactor, testLogger())
	return f
}

func (f *leagueServiceFixture) createLeague(t *testing.T, creatorID int) *models.League {
	t.Helper()
	league, err := f.svc.CreateLeague(context.Background(), creatorID, CreateLeagueInput{
		Name:          "Indie Wednesdays",
		SongsPerRound: 1,
	})
	require.NoError(t, err)
	return league
}

func TestCreateLeague(t *testing.T) {
	f := newLeagueServiceFixture(t)

	league := f.createLeague(t, adminUserID)

	assert.Len(t, league.InviteCode, 8)
	assert.Equal(t, adminUserID, league.CreatedByID)
	assert.Equal(t, 1, f.transactor.calls, "league and creator membership must be written in one transaction")

	// Создатель сразу становится админом лиги.
	member, err := f.members.GetByLeagueAndUser(context.Background(), league.ID, adminUserID)
	require.NoError(t, err)
	assert.True(t, member.IsAdmin)
}

func TestCreateLeagueSongsPerRoundBounds(t *testing.T) {
	f := newLeagueServiceFixture(t)
	ctx := context.Background()

	for _, count := range []int{0, -1, 6} {
		_, err := f.svc.CreateLeague(ctx, adminUserID, CreateLeagueInput{Name: "Bad", SongsPerRound: count})
		assert.ErrorIs(t, err, ErrLeagueInvalidSongsCount)
	}

	_, err := f.svc.CreateLeague(ctx, adminUserID, CreateLeagueInput{Name: "Max", SongsPerRound: 5})
	assert.NoError(t, err)
}

// conflictingLeagueRepo отдает коллизию invite-кода первые failures раз.
type conflictingLeagueRepo struct {
	*fakeLeagueRepo
	failures int
}

func (r *conflictingLeagueRepo) Create(ctx context.Context, exec repositories.SQLExecutor, league *models.League) error {
	if r.failures > 0 {
		r.failures--
		return repositories.ErrLeagueInviteCodeConflict
	}
	return r.fakeLeagueRepo.Create(ctx, exec, league)
}

func TestCreateLeagueRetriesOnInviteCodeCollision(t *testing.T) {
	f := newLeagueServiceFixture(t)
	repo := &conflictingLeagueRepo{fakeLeagueRepo: f.leagues, failures: 2}
	svc := NewLeagueService(repo, f.members, f.transactor, testLogger())

	league, err := svc.CreateLeague(context.Background(), adminUserID, CreateLeagueInput{Name: "Retry", SongsPerRound: 1})
	require.NoError(t, err)
	assert.Len(t, league.InviteCode, 8)
}

func TestCreateLeagueInviteCodeExhaustion(t *testing.T) {
	f := newLeagueServiceFixture(t)
	repo := &conflictingLeagueRepo{fakeLeagueRepo: f.leagues, failures: 100}
	svc := NewLeagueService(repo, f.members, f.transactor, testLogger())

	_, err := svc.CreateLeague(context.Background(), adminUserID, CreateLeagueInput{Name: "Unlucky", SongsPerRound: 1})
	assert.ErrorIs(t, err, ErrInviteCodeGeneration)
}

func TestJoinLeague(t *testing.T) {
	f := newLeagueServiceFixture(t)
	ctx := context.Background()
	league := f.createLeague(t, adminUserID)

	joined, err := f.svc.JoinLeague(ctx, memberUserID, league.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, league.ID, joined.ID)

	member, err := f.members.GetByLeagueAndUser(ctx, league.ID, memberUserID)
	require.NoError(t, err)
	assert.False(t, member.IsAdmin)
}

func TestJoinLeagueInvalidCode(t *testing.T) {
	f := newLeagueServiceFixture(t)

	_, err := f.svc.JoinLeague(context.Background(), memberUserID, "NOPE2222")
	assert.ErrorIs(t, err, ErrInvalidInviteCode)
}

func TestJoinLeagueTwice(t *testing.T) {
	f := newLeagueServiceFixture(t)
	ctx := context.Background()
	league := f.createLeague(t, adminUserID)

	_, err := f.svc.JoinLeague(ctx, memberUserID, league.InviteCode)
	require.NoError(t, err)

	_, err = f.svc.JoinLeague(ctx, memberUserID, league.InviteCode)
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestLeaveLeague(t *testing.T) {
	f := newLeagueServiceFixture(t)
	ctx := context.Background()
	league := f.createLeague(t, adminUserID)

	_, err := f.svc.JoinLeague(ctx, memberUserID, league.InviteCode)
	require.NoError(t, err)

	require.NoError(t, f.svc.LeaveLeague(ctx, league.ID, memberUserID))

	_, err = f.members.GetByLeagueAndUser(ctx, league.ID, memberUserID)
	assert.ErrorIs(t, err, repositories.ErrMemberNotFound)
}

func TestLeaveLeagueCreatorCannot(t *testing.T) {
	f := newLeagueServiceFixture(t)
	league := f.createLeague(t, adminUserID)

	err := f.svc.LeaveLeague(context.Background(), league.ID, adminUserID)
	assert.ErrorIs(t, err, ErrCreatorCannotLeave)
}

func TestGetLeagueRequiresMembership(t *testing.T) {
	f := newLeagueServiceFixture(t)
	ctx := context.Background()
	league := f.createLeague(t, adminUserID)

	_, err := f.svc.GetLeague(ctx, league.ID, memberUserID)
	assert.ErrorIs(t, err, ErrNotLeagueMember)

	got, err := f.svc.GetLeague(ctx, league.ID, adminUserID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)
}

func TestUpdateLeague(t *testing.T) {
	f := newLeagueServiceFixture(t)
	ctx := context.Background()
	league := f.createLeague(t, adminUserID)

	name := "Renamed"
	songs := 3
	updated, err := f.svc.UpdateLeague(ctx, league.ID, adminUserID, UpdateLeagueInput{Name: &name, SongsPerRound: &songs})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 3, updated.SongsPerRound)

	bad := 9
	_, err = f.svc.UpdateLeague(ctx, league.ID, adminUserID, UpdateLeagueInput{SongsPerRound: &bad})
	assert.ErrorIs(t, err, ErrLeagueInvalidSongsCount)
}

func TestUpdateLeagueRequiresAdmin(t *testing.T) {
	f := newLeagueServiceFixture(t)
	ctx := context.Background()
	league := f.createLeague(t, adminUserID)

	_, err := f.svc.JoinLeague(ctx, memberUserID, league.InviteCode)
	require.NoError(t, err)

	name := "Hijacked"
	_, err = f.svc.UpdateLeague(ctx, league.ID, memberUserID, UpdateLeagueInput{Name: &name})
	assert.ErrorIs(t, err, ErrNotLeagueAdmin)
}

func TestDeleteLeagueCreatorOnly(t *testing.T) {
	f := newLeagueServiceFixture(t)
	ctx := context.Background()
	league := f.createLeague(t, adminUserID)

	_, err := f.svc.JoinLeague(ctx, memberUserID, league.InviteCode)
	require.NoError(t, err)

	err = f.svc.DeleteLeague(ctx, league.ID, memberUserID)
	assert.ErrorIs(t, err, ErrNotLeagueCreator)

	require.NoError(t, f.svc.DeleteLeague(ctx, league.ID, adminUserID))

	_, err = f.leagues.GetByID(ctx, league.ID)
	assert.ErrorIs(t, err, repositories.ErrLeagueNotFound)
}

func TestIsAdmin(t *testing.T) {
	f := newLeagueServiceFixture(t)
	ctx := context.Background()
	league := f.createLeague(t, adminUserID)

	admin, err := f.svc.IsAdmin(ctx, league.ID, adminUserID)
	require.NoError(t, err)
	assert.True(t, admin)

	// Не-участник — просто не админ, а не ошибка.
	admin, err = f.svc.IsAdmin(ctx, league.ID, memberUserID)
	require.NoError(t, err)
	assert.False(t, admin)
}
