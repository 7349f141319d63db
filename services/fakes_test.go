package services

import (
	"context"
	"sort"
	"time"

	"github.com/mixclub/music-league/models"
	"github.com/mixclub/music-league/repositories"
)

// In-memory фейки репозиториев для сервисных тестов. Семантику
// повторяют за postgres-реализациями ровно настолько, насколько
// на неё полагаются сервисы.

type fakeTransactor struct {
	calls int
}

func (t *fakeTransactor) WithinTransaction(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	t.calls++
	return fn(nil)
}

// --- users ---

type fakeUserRepo struct {
	users  map[int]*models.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User), nextID: 1}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) UpdateAvatarKey(_ context.Context, userID int, avatarKey *string) error {
	user, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.AvatarKey = avatarKey
	return nil
}

func (r *fakeUserRepo) UpdateTidalSession(_ context.Context, userID int, tidalUserID, sessionData *string) error {
	user, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.TidalUserID = tidalUserID
	user.TidalSessionData = sessionData
	return nil
}

// --- leagues ---

type fakeLeagueRepo struct {
	leagues map[int]*models.League
	nextID  int
	// invite-коды, на которых Create должен вернуть конфликт
	conflictCodes map[string]bool
}

func newFakeLeagueRepo() *fakeLeagueRepo {
	return &fakeLeagueRepo{
		leagues:       make(map[int]*models.League),
		nextID:        1,
		conflictCodes: make(map[string]bool),
	}
}

func (r *fakeLeagueRepo) Create(_ context.Context, _ repositories.SQLExecutor, league *models.League) error {
	if r.conflictCodes[league.InviteCode] {
		return repositories.ErrLeagueInviteCodeConflict
	}
	for _, l := range r.leagues {
		if l.InviteCode == league.InviteCode {
			return repositories.ErrLeagueInviteCodeConflict
		}
	}
	league.ID = r.nextID
	r.nextID++
	league.CreatedAt = time.Now()
	clone := *league
	r.leagues[league.ID] = &clone
	return nil
}

func (r *fakeLeagueRepo) GetByID(_ context.Context, id int) (*models.League, error) {
	league, ok := r.leagues[id]
	if !ok {
		return nil, repositories.ErrLeagueNotFound
	}
	clone := *league
	return &clone, nil
}

func (r *fakeLeagueRepo) GetByInviteCode(_ context.Context, inviteCode string) (*models.League, error) {
	for _, league := range r.leagues {
		if league.InviteCode == inviteCode {
			clone := *league
			return &clone, nil
		}
	}
	return nil, repositories.ErrLeagueNotFound
}

func (r *fakeLeagueRepo) ListByUserID(_ context.Context, _ int) ([]models.League, error) {
	leagues := make([]models.League, 0, len(r.leagues))
	for _, league := range r.leagues {
		leagues = append(leagues, *league)
	}
	sort.Slice(leagues, func(i, j int) bool { return leagues[i].ID < leagues[j].ID })
	return leagues, nil
}

func (r *fakeLeagueRepo) Update(_ context.Context, league *models.League) error {
	stored, ok := r.leagues[league.ID]
	if !ok {
		return repositories.ErrLeagueNotFound
	}
	stored.Name = league.Name
	stored.Description = league.Description
	stored.SongsPerRound = league.SongsPerRound
	return nil
}

func (r *fakeLeagueRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.leagues[id]; !ok {
		return repositories.ErrLeagueNotFound
	}
	delete(r.leagues, id)
	return nil
}

// --- members ---

type fakeMemberRepo struct {
	members []models.LeagueMember
	nextID  int
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{nextID: 1}
}

func (r *fakeMemberRepo) Create(_ context.Context, _ repositories.SQLExecutor, member *models.LeagueMember) error {
	for _, m := range r.members {
		if m.LeagueID == member.LeagueID && m.UserID == member.UserID {
			return repositories.ErrMemberConflict
		}
	}
	member.ID = r.nextID
	r.nextID++
	member.JoinedAt = time.Now()
	r.members = append(r.members, *member)
	return nil
}

func (r *fakeMemberRepo) GetByLeagueAndUser(_ context.Context, leagueID, userID int) (*models.LeagueMember, error) {
	for _, m := range r.members {
		if m.LeagueID == leagueID && m.UserID == userID {
			clone := m
			return &clone, nil
		}
	}
	return nil, repositories.ErrMemberNotFound
}

func (r *fakeMemberRepo) ListByLeagueID(_ context.Context, leagueID int) ([]models.LeagueMember, error) {
	members := make([]models.LeagueMember, 0)
	for _, m := range r.members {
		if m.LeagueID == leagueID {
			members = append(members, m)
		}
	}
	return members, nil
}

func (r *fakeMemberRepo) CountByLeagueID(_ context.Context, leagueID int) (int, error) {
	count := 0
	for _, m := range r.members {
		if m.LeagueID == leagueID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMemberRepo) Delete(_ context.Context, leagueID, userID int) error {
	for i, m := range r.members {
		if m.LeagueID == leagueID && m.UserID == userID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return nil
		}
	}
	return repositories.ErrMemberNotFound
}

// --- rounds ---

type fakeRoundRepo struct {
	rounds map[int]*models.Round
	nextID int
}

func newFakeRoundRepo() *fakeRoundRepo {
	return &fakeRoundRepo{rounds: make(map[int]*models.Round), nextID: 1}
}

func (r *fakeRoundRepo) Create(_ context.Context, round *models.Round) error {
	round.ID = r.nextID
	r.nextID++
	round.CreatedAt = time.Now()
	clone := *round
	r.rounds[round.ID] = &clone
	return nil
}

func (r *fakeRoundRepo) GetByID(_ context.Context, id int) (*models.Round, error) {
	round, ok := r.rounds[id]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	clone := *round
	return &clone, nil
}

func (r *fakeRoundRepo) ListByLeagueID(_ context.Context, leagueID int) ([]models.Round, error) {
	rounds := make([]models.Round, 0)
	for _, round := range r.rounds {
		if round.LeagueID == leagueID {
			rounds = append(rounds, *round)
		}
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].ID < rounds[j].ID })
	return rounds, nil
}

func (r *fakeRoundRepo) GetActiveByLeagueID(_ context.Context, leagueID int) (*models.Round, error) {
	for _, round := range r.rounds {
		if round.LeagueID == leagueID && round.Status == models.RoundStatusActive {
			clone := *round
			return &clone, nil
		}
	}
	return nil, repositories.ErrRoundNotFound
}

func (r *fakeRoundRepo) FindNextPending(_ context.Context, leagueID int) (*models.Round, error) {
	var next *models.Round
	for _, round := range r.rounds {
		if round.LeagueID != leagueID || round.Status != models.RoundStatusPending {
			continue
		}
		if next == nil || round.Order < next.Order {
			next = round
		}
	}
	if next == nil {
		return nil, repositories.ErrRoundNotFound
	}
	clone := *next
	return &clone, nil
}

func (r *fakeRoundRepo) CountByLeagueID(_ context.Context, leagueID int) (int, error) {
	count := 0
	for _, round := range r.rounds {
		if round.LeagueID == leagueID {
			count++
		}
	}
	return count, nil
}

func (r *fakeRoundRepo) UpdateDetails(_ context.Context, round *models.Round) error {
	stored, ok := r.rounds[round.ID]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	stored.Theme = round.Theme
	stored.Description = round.Description
	return nil
}

func (r *fakeRoundRepo) UpdateOrder(_ context.Context, id, order int) error {
	stored, ok := r.rounds[id]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	stored.Order = order
	return nil
}

func (r *fakeRoundRepo) MarkStarted(_ context.Context, id int, startedAt, submissionDeadline, votingDeadline time.Time) error {
	stored, ok := r.rounds[id]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	stored.Status = models.RoundStatusActive
	stored.StartedAt = &startedAt
	stored.SubmissionDeadline = &submissionDeadline
	stored.VotingDeadline = &votingDeadline
	return nil
}

func (r *fakeRoundRepo) MarkVotingStarted(_ context.Context, id int, votingStartedAt, votingDeadline time.Time) error {
	stored, ok := r.rounds[id]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	stored.VotingStartedAt = &votingStartedAt
	stored.VotingDeadline = &votingDeadline
	return nil
}

func (r *fakeRoundRepo) MarkCompleted(_ context.Context, id int, completedAt time.Time) error {
	stored, ok := r.rounds[id]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	stored.Status = models.RoundStatusCompleted
	stored.CompletedAt = &completedAt
	return nil
}

func (r *fakeRoundRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.rounds[id]; !ok {
		return repositories.ErrRoundNotFound
	}
	delete(r.rounds, id)
	return nil
}

// --- submissions ---

type fakeSubmissionRepo struct {
	submissions map[int]*models.Submission
	nextID      int
	nextSongID  int
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		submissions: make(map[int]*models.Submission),
		nextID:      1,
		nextSongID:  1,
	}
}

func (r *fakeSubmissionRepo) Create(_ context.Context, _ repositories.SQLExecutor, submission *models.Submission) error {
	for _, s := range r.submissions {
		if s.RoundID == submission.RoundID && s.UserID == submission.UserID {
			return repositories.ErrSubmissionConflict
		}
	}
	submission.ID = r.nextID
	r.nextID++
	submission.SubmittedAt = time.Now()
	for i := range submission.Songs {
		submission.Songs[i].ID = r.nextSongID
		r.nextSongID++
		submission.Songs[i].SubmissionID = submission.ID
	}
	clone := *submission
	clone.Songs = append([]models.Song(nil), submission.Songs...)
	r.submissions[submission.ID] = &clone
	return nil
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id int) (*models.Submission, error) {
	submission, ok := r.submissions[id]
	if !ok {
		return nil, repositories.ErrSubmissionNotFound
	}
	clone := *submission
	return &clone, nil
}

func (r *fakeSubmissionRepo) GetByRoundAndUser(_ context.Context, roundID, userID int) (*models.Submission, error) {
	for _, submission := range r.submissions {
		if submission.RoundID == roundID && submission.UserID == userID {
			clone := *submission
			return &clone, nil
		}
	}
	return nil, repositories.ErrSubmissionNotFound
}

func (r *fakeSubmissionRepo) ListByRoundID(_ context.Context, roundID int) ([]models.Submission, error) {
	submissions := make([]models.Submission, 0)
	for _, submission := range r.submissions {
		if submission.RoundID == roundID {
			clone := *submission
			clone.Songs = append([]models.Song(nil), submission.Songs...)
			submissions = append(submissions, clone)
		}
	}
	sort.Slice(submissions, func(i, j int) bool { return submissions[i].ID < submissions[j].ID })
	return submissions, nil
}

func (r *fakeSubmissionRepo) CountByRoundID(_ context.Context, roundID int) (int, error) {
	count := 0
	for _, submission := range r.submissions {
		if submission.RoundID == roundID {
			count++
		}
	}
	return count, nil
}

func (r *fakeSubmissionRepo) ListRoundSongOwners(_ context.Context, roundID int) ([]repositories.SongOwner, error) {
	owners := make([]repositories.SongOwner, 0)
	for _, submission := range r.submissions {
		if submission.RoundID != roundID {
			continue
		}
		for _, song := range submission.Songs {
			owners = append(owners, repositories.SongOwner{SongID: song.ID, SubmitterID: submission.UserID})
		}
	}
	return owners, nil
}

func (r *fakeSubmissionRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.submissions[id]; !ok {
		return repositories.ErrSubmissionNotFound
	}
	delete(r.submissions, id)
	return nil
}

// --- votes ---

type fakeVoteRepo struct {
	votes  []models.Vote
	nextID int
}

func newFakeVoteRepo() *fakeVoteRepo {
	return &fakeVoteRepo{nextID: 1}
}

func (r *fakeVoteRepo) DeleteByRoundAndVoter(_ context.Context, _ repositories.SQLExecutor, roundID, voterID int) (int64, error) {
	var kept []models.Vote
	var deleted int64
	for _, v := range r.votes {
		if v.RoundID == roundID && v.VoterID == voterID {
			deleted++
			continue
		}
		kept = append(kept, v)
	}
	r.votes = kept
	return deleted, nil
}

func (r *fakeVoteRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, votes []models.Vote, votedAt time.Time) ([]models.Vote, error) {
	created := make([]models.Vote, 0, len(votes))
	for _, v := range votes {
		v.ID = r.nextID
		r.nextID++
		v.VotedAt = votedAt
		r.votes = append(r.votes, v)
		created = append(created, v)
	}
	return created, nil
}

func (r *fakeVoteRepo) ListByRoundAndVoter(_ context.Context, roundID, voterID int) ([]models.Vote, error) {
	votes := make([]models.Vote, 0)
	for _, v := range r.votes {
		if v.RoundID == roundID && v.VoterID == voterID {
			votes = append(votes, v)
		}
	}
	sort.Slice(votes, func(i, j int) bool { return votes[i].Rank < votes[j].Rank })
	return votes, nil
}

func (r *fakeVoteRepo) ListByRoundID(_ context.Context, roundID int) ([]models.Vote, error) {
	votes := make([]models.Vote, 0)
	for _, v := range r.votes {
		if v.RoundID == roundID {
			votes = append(votes, v)
		}
	}
	sort.Slice(votes, func(i, j int) bool { return votes[i].ID < votes[j].ID })
	return votes, nil
}

func (r *fakeVoteRepo) CountDistinctVoters(_ context.Context, roundID int) (int, error) {
	seen := make(map[int]struct{})
	for _, v := range r.votes {
		if v.RoundID == roundID {
			seen[v.VoterID] = struct{}{}
		}
	}
	return len(seen), nil
}
