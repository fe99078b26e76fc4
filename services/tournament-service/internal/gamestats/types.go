package gamestats

// Account is a cross-game player identity.
type Account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type ValorantMatch struct {
	MatchInfo    ValorantMatchInfo     `json:"matchInfo"`
	Players      []ValorantPlayer      `json:"players"`
	Teams        []ValorantTeam        `json:"teams"`
	RoundResults []ValorantRoundResult `json:"roundResults"`
}

type ValorantMatchInfo struct {
	MatchId          string `json:"matchId"`
	MapId            string `json:"mapId"`
	GameLengthMillis int64  `json:"gameLengthMillis"`
	GameStartMillis  int64  `json:"gameStartMillis"`
	IsCompleted      bool   `json:"isCompleted"`
	QueueId          string `json:"queueId"`
	GameMode         string `json:"gameMode"`
}

type ValorantPlayer struct {
	PUUID       string               `json:"puuid"`
	GameName    string               `json:"gameName"`
	TagLine     string               `json:"tagLine"`
	TeamId      string               `json:"teamId"`
	CharacterId string               `json:"characterId"`
	Stats       *ValorantPlayerStats `json:"stats"`
}

type ValorantPlayerStats struct {
	Score        int `json:"score"`
	RoundsPlayed int `json:"roundsPlayed"`
	Kills        int `json:"kills"`
	Deaths       int `json:"deaths"`
	Assists      int `json:"assists"`
}

type ValorantTeam struct {
	TeamId       string `json:"teamId"`
	Won          bool   `json:"won"`
	RoundsPlayed int    `json:"roundsPlayed"`
	RoundsWon    int    `json:"roundsWon"`
}

type ValorantRoundResult struct {
	RoundNum    int                   `json:"roundNum"`
	RoundResult string                `json:"roundResult"`
	WinningTeam string                `json:"winningTeam"`
	PlayerStats []ValorantRoundPlayer `json:"playerStats"`
}

type ValorantRoundPlayer struct {
	PUUID  string           `json:"puuid"`
	Kills  []ValorantKill   `json:"kills"`
	Damage []ValorantDamage `json:"damage"`
	Score  int              `json:"score"`
}

type ValorantKill struct {
	Victim string `json:"victim"`
}

type ValorantDamage struct {
	Receiver string `json:"receiver"`
	Damage   int    `json:"damage"`
}

type ValorantMatchList struct {
	PUUID   string                   `json:"puuid"`
	History []ValorantMatchListEntry `json:"history"`
}

type ValorantMatchListEntry struct {
	MatchId             string `json:"matchId"`
	GameStartTimeMillis int64  `json:"gameStartTimeMillis"`
	QueueId             string `json:"queueId"`
}

type LeagueMatch struct {
	Metadata LeagueMetadata `json:"metadata"`
	Info     LeagueInfo     `json:"info"`
}

type LeagueMetadata struct {
	MatchId      string   `json:"matchId"`
	Participants []string `json:"participants"`
}

type LeagueInfo struct {
	GameCreation     int64               `json:"gameCreation"`
	GameDuration     int64               `json:"gameDuration"`
	GameEndTimestamp int64               `json:"gameEndTimestamp"`
	GameMode         string              `json:"gameMode"`
	Participants     []LeagueParticipant `json:"participants"`
	Teams            []LeagueTeam        `json:"teams"`
}

type LeagueParticipant struct {
	PUUID                       string `json:"puuid"`
	RiotIdGameName              string `json:"riotIdGameName"`
	TeamId                      int    `json:"teamId"`
	ChampionName                string `json:"championName"`
	Kills                       int    `json:"kills"`
	Deaths                      int    `json:"deaths"`
	Assists                     int    `json:"assists"`
	Win                         bool   `json:"win"`
	TotalDamageDealtToChampions int    `json:"totalDamageDealtToChampions"`
}

type LeagueTeam struct {
	TeamId int  `json:"teamId"`
	Win    bool `json:"win"`
}

type LobbyRequest struct {
	TournamentId string `json:"tournamentId"`
	Region       string `json:"region"`
	Count        int    `json:"count"`
}
