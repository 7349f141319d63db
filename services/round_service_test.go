package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixclub/music-league/models"
)

const (
	adminUserID  = 1
	memberUserID = 2
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type roundServiceFixture struct {
	rounds      *fakeRoundRepo
	leagues     *fakeLeagueRepo
	members     *fakeMemberRepo
	submissions *fakeSubmissionRepo
	league      *models.League
	svc         RoundService
}

// newRoundServiceFixture поднимает лигу с админом (user 1) и обычным
// участником (user 2).
func newRoundServiceFixture(t *testing.T) *roundServiceFixture {
	t.Helper()

	f := &roundServiceFixture{
		rounds:      newFakeRoundRepo(),
		leagues:     newFakeLeagueRepo(),
		members:     newFakeMemberRepo(),
		submissions: newFakeSubmissionRepo(),
	}
	f.svc = NewRoundService(f.rounds, f.leagues, f.members, f.submissions, testLogger())

	ctx := context.Background()
	f.league = &models.League{Name: "Indie Wednesdays", InviteCode: "AAAA2222", CreatedByID: adminUserID, SongsPerRound: 1}
	require.NoError(t, f.leagues.Create(ctx, nil, f.league))
	require.NoError(t, f.members.Create(ctx, nil, &models.LeagueMember{LeagueID: f.league.ID, UserID: adminUserID, IsAdmin: true}))
	require.NoError(t, f.members.Create(ctx, nil, &models.LeagueMember{LeagueID: f.league.ID, UserID: memberUserID}))
	return f
}

func (f *roundServiceFixture) createRound(t *testing.T, theme string) *models.Round {
	t.Helper()
	round, err := f.svc.CreateRound(context.Background(), adminUserID, CreateRoundInput{
		LeagueID: f.league.ID,
		Theme:    theme,
	})
	require.NoError(t, err)
	return round
}

func TestCreateRound(t *testing.T) {
	f := newRoundServiceFixture(t)

	first := f.createRound(t, "Guilty Pleasures")
	second := f.createRound(t, "One Hit Wonders")

	assert.Equal(t, models.RoundStatusPending, first.Status)
	assert.Nil(t, first.StartedAt)
	// Без явного order раунд встает в конец очереди.
	assert.Equal(t, 0, first.Order)
	assert.Equal(t, 1, second.Order)
}

func TestCreateRoundRequiresAdmin(t *testing.T) {
	f := newRoundServiceFixture(t)

	_, err := f.svc.CreateRound(context.Background(), memberUserID, CreateRoundInput{
		LeagueID: f.league.ID,
		Theme:    "Covers",
	})
	assert.ErrorIs(t, err, ErrNotLeagueAdmin)
}

func TestStartRound(t *testing.T) {
	f := newRoundServiceFixture(t)
	round := f.createRound(t, "Guilty Pleasures")

	started, err := f.svc.StartRound(context.Background(), round.ID, adminUserID)
	require.NoError(t, err)

	assert.Equal(t, models.RoundStatusActive, started.Status)
	assert.Equal(t, models.PhaseSubmission, started.Phase())
	require.NotNil(t, started.StartedAt)
	require.NotNil(t, started.SubmissionDeadline)
	require.NotNil(t, started.VotingDeadline)
	assert.Nil(t, started.VotingStartedAt)

	// 48 часов на заявки, затем 120 часов на голосование.
	assert.Equal(t, 48*time.Hour, started.SubmissionDeadline.Sub(*started.StartedAt))
	assert.Equal(t, 120*time.Hour, started.VotingDeadline.Sub(*started.SubmissionDeadline))
}

func TestStartRoundOnlyPending(t *testing.T) {
	f := newRoundServiceFixture(t)
	round := f.createRound(t, "Guilty Pleasures")

	_, err := f.svc.StartRound(context.Background(), round.ID, adminUserID)
	require.NoError(t, err)

	_, err = f.svc.StartRound(context.Background(), round.ID, adminUserID)
	assert.ErrorIs(t, err, ErrRoundNotPending)
}

func TestStartRoundSingleActiveInvariant(t *testing.T) {
	f := newRoundServiceFixture(t)
	first := f.createRound(t, "Guilty Pleasures")
	second := f.createRound(t, "One Hit Wonders")

	_, err := f.svc.StartRound(context.Background(), first.ID, adminUserID)
	require.NoError(t, err)

	_, err = f.svc.StartRound(context.Background(), second.ID, adminUserID)
	assert.ErrorIs(t, err, ErrActiveRoundExists)
}

func TestProgressToVoting(t *testing.T) {
	f := newRoundServiceFixture(t)
	round := f.createRound(t, "Guilty Pleasures")

	started, err := f.svc.StartRound(context.Background(), round.ID, adminUserID)
	require.NoError(t, err)
	provisionalDeadline := *started.VotingDeadline

	voting, err := f.svc.ProgressToVoting(context.Background(), round.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PhaseVoting, voting.Phase())
	require.NotNil(t, voting.VotingStartedAt)
	// Дедлайн пересчитан от фактического закрытия заявок, а не от
	// предварительного расписания старта.
	assert.Equal(t, 120*time.Hour, voting.VotingDeadline.Sub(*voting.VotingStartedAt))
	assert.True(t, voting.VotingDeadline.Before(provisionalDeadline))

	// Повторный вызов только перештамповывает дедлайны, не ломая фазу.
	again, err := f.svc.ProgressToVoting(context.Background(), round.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseVoting, again.Phase())
	assert.False(t, again.VotingDeadline.Before(*voting.VotingDeadline))
}

func TestProgressToVotingRequiresActiveRound(t *testing.T) {
	f := newRoundServiceFixture(t)
	round := f.createRound(t, "Guilty Pleasures")

	_, err := f.svc.ProgressToVoting(context.Background(), round.ID)
	assert.ErrorIs(t, err, ErrRoundNotActive)
}

func TestCompleteRoundAutoStartsNextPending(t *testing.T) {
	f := newRoundServiceFixture(t)
	first := f.createRound(t, "Guilty Pleasures")
	second := f.createRound(t, "One Hit Wonders")
	third := f.createRound(t, "Covers")

	_, err := f.svc.StartRound(context.Background(), first.ID, adminUserID)
	require.NoError(t, err)

	completed, err := f.svc.CompleteRound(context.Background(), first.ID, adminUserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	// Следующим стартует pending-раунд с наименьшим order.
	next, err := f.rounds.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusActive, next.Status)

	rest, err := f.rounds.GetByID(context.Background(), third.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusPending, rest.Status)
}

func TestCompleteRoundWithEmptyQueue(t *testing.T) {
	f := newRoundServiceFixture(t)
	round := f.createRound(t, "Guilty Pleasures")

	_, err := f.svc.StartRound(context.Background(), round.ID, adminUserID)
	require.NoError(t, err)

	completed, err := f.svc.CompleteRound(context.Background(), round.ID, adminUserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusCompleted, completed.Status)
}

func TestCompleteRoundRequiresActiveRound(t *testing.T) {
	f := newRoundServiceFixture(t)
	round := f.createRound(t, "Guilty Pleasures")

	_, err := f.svc.CompleteRound(context.Background(), round.ID, adminUserID)
	assert.ErrorIs(t, err, ErrRoundNotActive)
}

func TestReorderRounds(t *testing.T) {
	f := newRoundServiceFixture(t)
	first := f.createRound(t, "Guilty Pleasures")
	second := f.createRound(t, "One Hit Wonders")

	_, err := f.svc.ReorderRounds(context.Background(), f.league.ID, adminUserID, []RoundOrder{
		{ID: first.ID, Order: 1},
		{ID: second.ID, Order: 0},
		{ID: 9999, Order: 2}, // неизвестный id молча пропускается
	})
	require.NoError(t, err)

	updated, err := f.rounds.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Order)

	updated, err = f.rounds.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Order)
}

func TestReorderRoundsRejectsStartedRound(t *testing.T) {
	f := newRoundServiceFixture(t)
	round := f.createRound(t, "Guilty Pleasures")

	_, err := f.svc.StartRound(context.Background(), round.ID, adminUserID)
	require.NoError(t, err)

	_, err = f.svc.ReorderRounds(context.Background(), f.league.ID, adminUserID, []RoundOrder{
		{ID: round.ID, Order: 5},
	})
	assert.ErrorIs(t, err, ErrRoundNotPending)
}

func TestReorderRoundsRejectsForeignRound(t *testing.T) {
	f := newRoundServiceFixture(t)
	round := f.createRound(t, "Guilty Pleasures")

	otherLeague := &models.League{Name: "Other", InviteCode: "BBBB3333", CreatedByID: adminUserID, SongsPerRound: 1}
	require.NoError(t, f.leagues.Create(context.Background(), nil, otherLeague))
	require.NoError(t, f.members.Create(context.Background(), nil, &models.LeagueMember{LeagueID: otherLeague.ID, UserID: adminUserID, IsAdmin: true}))

	_, err := f.svc.ReorderRounds(context.Background(), otherLeague.ID, adminUserID, []RoundOrder{
		{ID: round.ID, Order: 0},
	})
	assert.ErrorIs(t, err, ErrRoundNotInLeague)
}

func TestUpdateRoundOnlyWhilePending(t *testing.T) {
	f := newRoundServiceFixture(t)
	round := f.createRound(t, "Guilty Pleasures")

	newTheme := "Songs from Movies"
	updated, err := f.svc.UpdateRound(context.Background(), round.ID, adminUserID, UpdateRoundInput{Theme: &newTheme})
	require.NoError(t, err)
	assert.Equal(t, "Songs from Movies", updated.Theme)

	_, err = f.svc.StartRound(context.Background(), round.ID, adminUserID)
	require.NoError(t, err)

	_, err = f.svc.UpdateRound(context.Background(), round.ID, adminUserID, UpdateRoundInput{Theme: &newTheme})
	assert.ErrorIs(t, err, ErrRoundNotPending)
}

func TestDeleteRoundOnlyWhilePending(t *testing.T) {
	f := newRoundServiceFixture(t)
	round := f.createRound(t, "Guilty Pleasures")

	_, err := f.svc.StartRound(context.Background(), round.ID, adminUserID)
	require.NoError(t, err)

	err = f.svc.DeleteRound(context.Background(), round.ID, adminUserID)
	assert.ErrorIs(t, err, ErrRoundNotPending)
}

func TestSubmissionComplete(t *testing.T) {
	f := newRoundServiceFixture(t)
	round := f.createRound(t, "Guilty Pleasures")
	ctx := context.Background()

	_, err := f.svc.StartRound(ctx, round.ID, adminUserID)
	require.NoError(t, err)

	done, err := f.svc.SubmissionComplete(ctx, round.ID)
	require.NoError(t, err)
	assert.False(t, done)

	for _, userID := range []int{adminUserID, memberUserID} {
		require.NoError(t, f.submissions.Create(ctx, nil, &models.Submission{
			RoundID: round.ID,
			UserID:  userID,
			Songs:   []models.Song{{Title: "Track", ArtistName: "Artist", SonglinkURL: "https://song.link/x", Position: 1}},
		}))
	}

	done, err = f.svc.SubmissionComplete(ctx, round.ID)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestGetRoundHidesSubmitterNamesUntilCompleted(t *testing.T) {
	f := newRoundServiceFixture(t)
	round := f.createRound(t, "Guilty Pleasures")
	ctx := context.Background()

	_, err := f.svc.StartRound(ctx, round.ID, adminUserID)
	require.NoError(t, err)

	name := "Alice"
	require.NoError(t, f.submissions.Create(ctx, nil, &models.Submission{
		RoundID:  round.ID,
		UserID:   memberUserID,
		UserName: &name,
		Songs:    []models.Song{{Title: "Track", ArtistName: "Artist", SonglinkURL: "https://song.link/x", Position: 1}},
	}))

	detail, err := f.svc.GetRound(ctx, round.ID, adminUserID)
	require.NoError(t, err)
	require.Len(t, detail.Submissions, 1)
	assert.Nil(t, detail.Submissions[0].UserName, "submissions must stay anonymous before completion")
	assert.Equal(t, 1, detail.SubmissionCount)
	assert.True(t, detail.IsAdmin)
	assert.False(t, detail.UserHasSubmitted)

	_, err = f.svc.CompleteRound(ctx, round.ID, adminUserID)
	require.NoError(t, err)

	detail, err = f.svc.GetRound(ctx, round.ID, adminUserID)
	require.NoError(t, err)
	require.Len(t, detail.Submissions, 1)
	require.NotNil(t, detail.Submissions[0].UserName)
	assert.Equal(t, "Alice", *detail.Submissions[0].UserName)
}
