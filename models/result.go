package models

// VoteReceived — кто и каким рангом проголосовал за песню.
type VoteReceived struct {
	VoterID   int    `json:"voter_id"`
	VoterName string `json:"voter_name"`
	Rank      int    `json:"rank"`
}

// SongResult — итог одной песни в раунде. Песни без голосов тоже
// попадают в результаты с нулём очков.
type SongResult struct {
	SongID           int            `json:"song_id"`
	SongTitle        string         `json:"song_title"`
	ArtistName       string         `json:"artist_name"`
	AlbumName        *string        `json:"album_name,omitempty"`
	SubmitterID      int            `json:"submitter_id"`
	SubmitterName    string         `json:"submitter_name"`
	TotalPoints      int            `json:"total_points"`
	VotesReceived    []VoteReceived `json:"votes_received"`
	FirstPlaceVotes  int            `json:"first_place_votes"`
	SecondPlaceVotes int            `json:"second_place_votes"`
	ThirdPlaceVotes  int            `json:"third_place_votes"`
}

type RoundResults struct {
	RoundID    int          `json:"round_id"`
	RoundTheme string       `json:"round_theme"`
	Results    []SongResult `json:"results"`
}

// RoundDetailRecord — результат пользователя в одном завершённом раунде.
type RoundDetailRecord struct {
	RoundID    int    `json:"round_id"`
	RoundTheme string `json:"round_theme"`
	Points     int    `json:"points"`
	SongTitle  string `json:"song_title"`
	ArtistName string `json:"artist_name"`
}

type LeaderboardEntry struct {
	UserID             int                 `json:"user_id"`
	UserName           string              `json:"user_name"`
	TotalPoints        int                 `json:"total_points"`
	RoundsParticipated int                 `json:"rounds_participated"`
	RoundDetails       []RoundDetailRecord `json:"round_details"`
}

type Leaderboard struct {
	LeagueID             int                `json:"league_id"`
	CompletedRoundsCount int                `json:"completed_rounds_count"`
	Entries              []LeaderboardEntry `json:"leaderboard"`
}
