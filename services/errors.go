package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурсы
	ErrUserNotFound       = errors.New("user not found")
	ErrLeagueNotFound     = errors.New("league not found")
	ErrRoundNotFound      = errors.New("round not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrSongNotFound       = errors.New("song not found in this round")
	ErrVotesNotFound      = errors.New("no votes found")

	// Аутентификация и авторизация
	ErrAuthInvalidCredentials = errors.New("incorrect email or password")
	ErrAuthEmailTaken         = errors.New("email already registered")
	ErrUserInactive           = errors.New("inactive user account")
	ErrNotLeagueAdmin         = errors.New("only league admins can perform this action")
	ErrNotLeagueMember        = errors.New("you must be a member of this league")
	ErrNotSubmissionOwner     = errors.New("you can only modify your own submissions")
	ErrNotLeagueCreator       = errors.New("only the league creator can perform this action")
	ErrCreatorCannotLeave     = errors.New("the league creator cannot leave the league")

	// Конфликты
	ErrAlreadyMember           = errors.New("already a member of this league")
	ErrAlreadySubmitted        = errors.New("you have already submitted for this round")
	ErrInviteCodeGeneration    = errors.New("failed to generate unique invite code")
	ErrInvalidInviteCode       = errors.New("invalid invite code")
	ErrActiveRoundExists       = errors.New("another round is already active in this league")
	ErrLeagueInvalidSongsCount = errors.New("songs per round must be between 1 and 5")

	// Состояние раунда
	ErrRoundNotPending        = errors.New("only pending rounds can be modified")
	ErrRoundNotActive         = errors.New("round is not active")
	ErrRoundNotInLeague       = errors.New("round does not belong to this league")
	ErrRoundCompleted         = errors.New("round is already completed")
	ErrSubmissionsClosed      = errors.New("round is in voting phase - submissions are closed")
	ErrSubmissionDeadline     = errors.New("submission deadline has passed")
	ErrVotingNotStarted       = errors.New("voting has not started yet")
	ErrVotingDeadline         = errors.New("voting deadline has passed")

	// Структурные нарушения входа
	ErrSongCountMismatch = errors.New("submission must contain exactly the league's songs per round")
	ErrInvalidBallot     = errors.New("votes must rank between 1 and 3 distinct songs")
	ErrSelfVote          = errors.New("you cannot vote for your own song")

	// Внешние провайдеры
	ErrTrackNotFound       = errors.New("track not found")
	ErrMusicUpstream       = errors.New("music provider unavailable")
	ErrTidalNotLinked      = errors.New("no tidal account linked")
	ErrTidalSessionExpired = errors.New("tidal session is invalid or expired")
	ErrTidalUpstream       = errors.New("tidal unavailable")
	ErrTidalAuthPending    = errors.New("tidal authorization not completed yet")
)
