package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixclub/music-league/models"
)

type submissionServiceFixture struct {
	*roundServiceFixture
	transactor *fakeTransactor
	round      *models.Round
	svc        SubmissionService
}

// newSubmissionServiceFixture строит лигу с активным раундом в фазе заявок.
func newSubmissionServiceFixture(t *testing.T) *submissionServiceFixture {
	t.Helper()

	base := newRoundServiceFixture(t)
	f := &submissionServiceFixture{
		roundServiceFixture: base,
		transactor:          &fakeTransactor{},
	}
	f.svc = NewSubmissionService(base.submissions, base.rounds, base.leagues, base.members, f.transactor)

	f.round = f.createRound(t, "Guilty Pleasures")
	_, err := base.svc.StartRound(context.Background(), f.round.ID, adminUserID)
	require.NoError(t, err)
	return f
}

func singleSongInput(roundID int) CreateSubmissionInput {
	return CreateSubmissionInput{
		RoundID: roundID,
		Songs: []SongInput{{
			Title:       "Dreams",
			ArtistName:  "Fleetwood Mac",
			SonglinkURL: "https://song.link/s/dreams",
		}},
	}
}

func TestCreateSubmission(t *testing.T) {
	f := newSubmissionServiceFixture(t)

	submission, err := f.svc.CreateSubmission(context.Background(), memberUserID, singleSongInput(f.round.ID))
	require.NoError(t, err)

	assert.Equal(t, memberUserID, submission.UserID)
	require.Len(t, submission.Songs, 1)
	assert.Equal(t, "Dreams", submission.Songs[0].Title)
	assert.Equal(t, 1, submission.Songs[0].Position)
	assert.Equal(t, 1, f.transactor.calls, "submission insert must run inside a transaction")
}

func TestCreateSubmissionSongCountPolicy(t *testing.T) {
	f := newSubmissionServiceFixture(t)

	input := singleSongInput(f.round.ID)
	input.Songs = append(input.Songs, SongInput{
		Title:       "Go Your Own Way",
		ArtistName:  "Fleetwood Mac",
		SonglinkURL: "https://song.link/s/gyow",
	})

	_, err := f.svc.CreateSubmission(context.Background(), memberUserID, input)
	assert.ErrorIs(t, err, ErrSongCountMismatch)
}

func TestCreateSubmissionRequiresMembership(t *testing.T) {
	f := newSubmissionServiceFixture(t)

	_, err := f.svc.CreateSubmission(context.Background(), 77, singleSongInput(f.round.ID))
	assert.ErrorIs(t, err, ErrNotLeagueMember)
}

func TestCreateSubmissionDuplicate(t *testing.T) {
	f := newSubmissionServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateSubmission(ctx, memberUserID, singleSongInput(f.round.ID))
	require.NoError(t, err)

	_, err = f.svc.CreateSubmission(ctx, memberUserID, singleSongInput(f.round.ID))
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestCreateSubmissionClosedDuringVoting(t *testing.T) {
	f := newSubmissionServiceFixture(t)
	ctx := context.Background()

	_, err := f.roundServiceFixture.svc.ProgressToVoting(ctx, f.round.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateSubmission(ctx, memberUserID, singleSongInput(f.round.ID))
	assert.ErrorIs(t, err, ErrSubmissionsClosed)
}

func TestCreateSubmissionRejectsPendingRound(t *testing.T) {
	f := newSubmissionServiceFixture(t)
	pending := f.createRound(t, "One Hit Wonders")

	_, err := f.svc.CreateSubmission(context.Background(), memberUserID, singleSongInput(pending.ID))
	assert.ErrorIs(t, err, ErrRoundNotActive)
}

func TestCreateSubmissionAfterDeadline(t *testing.T) {
	f := newSubmissionServiceFixture(t)
	ctx := context.Background()

	// Откатываем дедлайн заявок в прошлое.
	stored, err := f.rounds.GetByID(ctx, f.round.ID)
	require.NoError(t, err)
	expired := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, f.rounds.MarkStarted(ctx, f.round.ID, *stored.StartedAt, expired, *stored.VotingDeadline))

	_, err = f.svc.CreateSubmission(ctx, memberUserID, singleSongInput(f.round.ID))
	assert.ErrorIs(t, err, ErrSubmissionDeadline)
}

func TestGetUserSubmission(t *testing.T) {
	f := newSubmissionServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetUserSubmission(ctx, f.round.ID, memberUserID)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	created, err := f.svc.CreateSubmission(ctx, memberUserID, singleSongInput(f.round.ID))
	require.NoError(t, err)

	got, err := f.svc.GetUserSubmission(ctx, f.round.ID, memberUserID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestDeleteSubmission(t *testing.T) {
	f := newSubmissionServiceFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateSubmission(ctx, memberUserID, singleSongInput(f.round.ID))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteSubmission(ctx, created.ID, memberUserID))

	_, err = f.svc.GetUserSubmission(ctx, f.round.ID, memberUserID)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestDeleteSubmissionOwnerOnly(t *testing.T) {
	f := newSubmissionServiceFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateSubmission(ctx, memberUserID, singleSongInput(f.round.ID))
	require.NoError(t, err)

	err = f.svc.DeleteSubmission(ctx, created.ID, adminUserID)
	assert.ErrorIs(t, err, ErrNotSubmissionOwner)
}

func TestDeleteSubmissionClosedDuringVoting(t *testing.T) {
	f := newSubmissionServiceFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateSubmission(ctx, memberUserID, singleSongInput(f.round.ID))
	require.NoError(t, err)

	_, err = f.roundServiceFixture.svc.ProgressToVoting(ctx, f.round.ID)
	require.NoError(t, err)

	err = f.svc.DeleteSubmission(ctx, created.ID, memberUserID)
	assert.ErrorIs(t, err, ErrSubmissionsClosed)
}
