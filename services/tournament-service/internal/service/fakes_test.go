package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/bracket-esports/bracket/common/models"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/gamestats"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/repository"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/storage"
)

// memDB stands in for the single table. Every fake repository applies its
// write conditions under one lock, the way a DynamoDB transaction does.
type memDB struct {
	mu sync.Mutex

	tournaments  map[string]models.Tournament
	participants map[string]map[string]models.Participant
	users        map[string]models.User
	usernames    map[string]string
	accounts     map[string]string
	ledger       map[string][]models.WalletTransaction
	teams        map[string]models.Team
	tags         map[string]string
	members      map[string]map[string]models.TeamMembership
	lobbies      map[string]models.Lobby
	matches      map[string]models.Match
	extMatches   map[string]string
	players      map[string]map[string]models.PlayerMatchStats
	rounds       map[string]map[int]models.MatchRound
	played       map[string]bool

	// beforeJoin runs between the service's pre-checks and the join write.
	beforeJoin func(db *memDB)
}

func newMemDB() *memDB {
	return &memDB{
		tournaments:  make(map[string]models.Tournament),
		participants: make(map[string]map[string]models.Participant),
		users:        make(map[string]models.User),
		usernames:    make(map[string]string),
		accounts:     make(map[string]string),
		ledger:       make(map[string][]models.WalletTransaction),
		teams:        make(map[string]models.Team),
		tags:         make(map[string]string),
		members:      make(map[string]map[string]models.TeamMembership),
		lobbies:      make(map[string]models.Lobby),
		matches:      make(map[string]models.Match),
		extMatches:   make(map[string]string),
		players:      make(map[string]map[string]models.PlayerMatchStats),
		rounds:       make(map[string]map[int]models.MatchRound),
		played:       make(map[string]bool),
	}
}

func (db *memDB) putUser(u models.User) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users[u.UserId] = u
	db.usernames[u.Username] = u.UserId
}

func (db *memDB) putTournament(t models.Tournament) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tournaments[t.TournamentId] = t
}

func (db *memDB) user(id string) models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.users[id]
}

func (db *memDB) tournament(id string) models.Tournament {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.tournaments[id]
}

func (db *memDB) participantCount(tournamentId string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.participants[tournamentId])
}

func (db *memDB) participantIds(tournamentId string) []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	var ids []string
	for id := range db.participants[tournamentId] {
		ids = append(ids, id)
	}
	return ids
}

func (db *memDB) ledgerOf(userId string) []models.WalletTransaction {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]models.WalletTransaction(nil), db.ledger[userId]...)
}

func (db *memDB) team(id string) (models.Team, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.teams[id]
	return t, ok
}

// --- tournaments ---

type fakeTournamentRepo struct{ db *memDB }

func (r fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.db.putTournament(*t)
	return nil
}

func (r fakeTournamentRepo) GetById(_ context.Context, id string) (*models.Tournament, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tournaments[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r fakeTournamentRepo) List(_ context.Context, f repository.TournamentFilter) ([]models.Tournament, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Tournament, 0)
	for _, t := range r.db.tournaments {
		if (f.Game == "" || t.Game == f.Game) && (f.Status == "" || t.Status == f.Status) &&
			(f.Format == "" || t.Format == f.Format) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r fakeTournamentRepo) ListByCreator(_ context.Context, creatorId string) ([]models.Tournament, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Tournament, 0)
	for _, t := range r.db.tournaments {
		if t.CreatorId == creatorId {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r fakeTournamentRepo) UpdateStatus(_ context.Context, id string, from, to models.TournamentStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tournaments[id]
	if !ok || t.Status != from {
		return repository.ErrTournamentConditionFailed
	}
	t.Status = to
	r.db.tournaments[id] = t
	return nil
}

func (r fakeTournamentRepo) SetBanner(_ context.Context, id, url string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t := r.db.tournaments[id]
	t.BannerURL = url
	r.db.tournaments[id] = t
	return nil
}

type fakeParticipantRepo struct{ db *memDB }

func (r fakeParticipantRepo) Get(_ context.Context, tournamentId, userId string) (*models.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.participants[tournamentId][userId]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r fakeParticipantRepo) ListByTournament(_ context.Context, tournamentId string) ([]models.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Participant, 0)
	for _, p := range r.db.participants[tournamentId] {
		out = append(out, p)
	}
	return out, nil
}

func (r fakeParticipantRepo) ListByUser(_ context.Context, userId string) ([]models.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Participant, 0)
	for _, byUser := range r.db.participants {
		if p, ok := byUser[userId]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeEntryRepo mirrors the condition expressions of the join, leave,
// refund and prize transactions.
type fakeEntryRepo struct{ db *memDB }

func (r fakeEntryRepo) Join(_ context.Context, e repository.JoinEntry) error {
	db := r.db
	if db.beforeJoin != nil {
		db.beforeJoin(db)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	tid, uid := e.Tournament.TournamentId, e.Participant.UserId
	t, ok := db.tournaments[tid]
	if !ok || t.Status != models.TournamentOpen || e.Now.After(t.RegistrationDeadline) ||
		t.ParticipantCount >= t.MaxParticipants {
		return repository.ErrTournamentConditionFailed
	}
	u, ok := db.users[uid]
	if !ok || u.CoinBalance < e.Tournament.EntryFee {
		return repository.ErrBalanceConditionFailed
	}
	if _, exists := db.participants[tid][uid]; exists {
		return repository.ErrParticipantExists
	}

	t.ParticipantCount++
	db.tournaments[tid] = t
	u.CoinBalance -= e.Tournament.EntryFee
	u.Stats.TournamentsJoined++
	db.users[uid] = u
	if db.participants[tid] == nil {
		db.participants[tid] = make(map[string]models.Participant)
	}
	db.participants[tid][uid] = *e.Participant
	if e.Tournament.EntryFee > 0 {
		db.ledger[uid] = append(db.ledger[uid], models.WalletTransaction{
			TransactionId: e.TransactionId, UserId: uid, Kind: models.WalletEntryFee,
			Amount: -e.Tournament.EntryFee, Reference: tid, CreatedAt: e.Now,
		})
	}
	return nil
}

func (r fakeEntryRepo) Leave(_ context.Context, e repository.LeaveEntry) error {
	db := r.db
	db.mu.Lock()
	defer db.mu.Unlock()

	tid, uid := e.Tournament.TournamentId, e.Participant.UserId
	t := db.tournaments[tid]
	if !t.Status.Leavable() || t.ParticipantCount <= 0 {
		return repository.ErrTournamentConditionFailed
	}
	if _, exists := db.participants[tid][uid]; !exists {
		return repository.ErrParticipantMissing
	}

	refund := e.Participant.EntryFeePaid
	t.ParticipantCount--
	db.tournaments[tid] = t
	u := db.users[uid]
	u.CoinBalance += refund
	u.Stats.TournamentsJoined--
	db.users[uid] = u
	delete(db.participants[tid], uid)
	if refund > 0 {
		db.ledger[uid] = append(db.ledger[uid], models.WalletTransaction{
			TransactionId: e.TransactionId, UserId: uid, Kind: models.WalletRefund,
			Amount: refund, Reference: tid, CreatedAt: e.Now,
		})
	}
	return nil
}

func (r fakeEntryRepo) Refund(_ context.Context, e repository.LeaveEntry) error {
	db := r.db
	db.mu.Lock()
	defer db.mu.Unlock()

	tid, uid := e.Tournament.TournamentId, e.Participant.UserId
	p, exists := db.participants[tid][uid]
	if !exists || p.EntryFeePaid != e.Participant.EntryFeePaid || p.EntryFeePaid <= 0 {
		return repository.ErrAlreadyRefunded
	}

	refund := p.EntryFeePaid
	p.EntryFeePaid = 0
	db.participants[tid][uid] = p
	u := db.users[uid]
	u.CoinBalance += refund
	db.users[uid] = u
	db.ledger[uid] = append(db.ledger[uid], models.WalletTransaction{
		TransactionId: e.TransactionId, UserId: uid, Kind: models.WalletRefund,
		Amount: refund, Reference: tid, CreatedAt: e.Now,
	})
	return nil
}

func (r fakeEntryRepo) AwardPrize(_ context.Context, a repository.PrizeAward) error {
	db := r.db
	db.mu.Lock()
	defer db.mu.Unlock()

	tid := a.Tournament.TournamentId
	t := db.tournaments[tid]
	if t.Status != models.TournamentInProgress {
		return repository.ErrTournamentConditionFailed
	}
	if _, exists := db.participants[tid][a.WinnerId]; !exists {
		return repository.ErrParticipantMissing
	}

	t.Status = models.TournamentCompleted
	t.WinnerId = a.WinnerId
	db.tournaments[tid] = t
	u := db.users[a.WinnerId]
	u.CoinBalance += t.PrizePool
	u.Stats.TournamentsWon++
	u.Stats.TotalEarnings += t.PrizePool
	db.users[a.WinnerId] = u
	if t.PrizePool > 0 {
		db.ledger[a.WinnerId] = append(db.ledger[a.WinnerId], models.WalletTransaction{
			TransactionId: a.TransactionId, UserId: a.WinnerId, Kind: models.WalletPrize,
			Amount: t.PrizePool, Reference: tid, CreatedAt: a.Now,
		})
	}
	return nil
}

// --- users ---

type fakeUserRepo struct{ db *memDB }

func (r fakeUserRepo) Create(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, taken := r.db.usernames[u.Username]; taken {
		return repository.ErrUsernameTaken
	}
	r.db.users[u.UserId] = *u
	r.db.usernames[u.Username] = u.UserId
	return nil
}

func (r fakeUserRepo) GetById(_ context.Context, id string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id, ok := r.db.usernames[username]
	if !ok {
		return nil, nil
	}
	u := r.db.users[id]
	return &u, nil
}

func accountKey(platform models.Game, externalId string) string {
	return fmt.Sprintf("%s#%s", platform, externalId)
}

func (r fakeUserRepo) LinkAccount(_ context.Context, userId string, account models.LinkedAccount) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := accountKey(account.Platform, account.ExternalId)
	if _, linked := r.db.accounts[key]; linked {
		return repository.ErrAccountLinked
	}
	r.db.accounts[key] = userId
	u := r.db.users[userId]
	u.LinkedAccounts = append(u.LinkedAccounts, account)
	r.db.users[userId] = u
	return nil
}

func (r fakeUserRepo) UnlinkAccount(_ context.Context, user *models.User, platform models.Game) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u := r.db.users[user.UserId]
	kept := u.LinkedAccounts[:0]
	for _, acc := range u.LinkedAccounts {
		if acc.Platform == platform {
			delete(r.db.accounts, accountKey(platform, acc.ExternalId))
			continue
		}
		kept = append(kept, acc)
	}
	u.LinkedAccounts = kept
	r.db.users[user.UserId] = u
	return nil
}

func (r fakeUserRepo) FindUserIdByAccount(_ context.Context, platform models.Game, externalId string) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.accounts[accountKey(platform, externalId)], nil
}

func (r fakeUserRepo) UpdateCreator(_ context.Context, userId string, creator models.CreatorProfile, role models.Role) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u := r.db.users[userId]
	u.Creator = creator
	u.Role = role
	r.db.users[userId] = u
	return nil
}

func (r fakeUserRepo) GrantCoins(_ context.Context, txn *models.WalletTransaction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u := r.db.users[txn.UserId]
	u.CoinBalance += txn.Amount
	r.db.users[txn.UserId] = u
	r.db.ledger[txn.UserId] = append(r.db.ledger[txn.UserId], *txn)
	return nil
}

func (r fakeUserRepo) IncrementMatchesPlayed(_ context.Context, userId, matchId string, _ time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.played[userId+"/"+matchId] {
		return nil
	}
	r.db.played[userId+"/"+matchId] = true
	u := r.db.users[userId]
	u.Stats.MatchesPlayed++
	r.db.users[userId] = u
	return nil
}

type fakeWalletRepo struct{ db *memDB }

func (r fakeWalletRepo) ListByUser(_ context.Context, userId string) ([]models.WalletTransaction, error) {
	txns := r.db.ledgerOf(userId)
	sort.SliceStable(txns, func(i, j int) bool { return txns[i].CreatedAt.After(txns[j].CreatedAt) })
	return txns, nil
}

// --- teams ---

type fakeTeamRepo struct{ db *memDB }

func (r fakeTeamRepo) Create(_ context.Context, team *models.Team, captain *models.TeamMembership) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, taken := r.db.tags[team.Tag]; taken {
		return repository.ErrTagTaken
	}
	r.db.tags[team.Tag] = team.TeamId
	r.db.teams[team.TeamId] = *team
	r.db.members[team.TeamId] = map[string]models.TeamMembership{captain.UserId: *captain}
	return nil
}

func (r fakeTeamRepo) GetById(_ context.Context, id string) (*models.Team, error) {
	t, ok := r.db.team(id)
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r fakeTeamRepo) List(_ context.Context, game models.Game) ([]models.Team, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Team, 0)
	for _, t := range r.db.teams {
		if game == "" || t.Game == game {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r fakeTeamRepo) GetMember(_ context.Context, teamId, userId string) (*models.TeamMembership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.members[teamId][userId]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r fakeTeamRepo) ListMembers(_ context.Context, teamId string) ([]models.TeamMembership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.TeamMembership, 0)
	for _, m := range r.db.members[teamId] {
		out = append(out, m)
	}
	return out, nil
}

func (r fakeTeamRepo) ListMembershipsByUser(_ context.Context, userId string) ([]models.TeamMembership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.TeamMembership, 0)
	for _, byUser := range r.db.members {
		if m, ok := byUser[userId]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r fakeTeamRepo) AddMember(_ context.Context, team *models.Team, member *models.TeamMembership) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.teams[team.TeamId]
	if !ok || t.MemberCount >= t.MaxMembers {
		return repository.ErrTeamConditionFailed
	}
	if _, exists := r.db.members[team.TeamId][member.UserId]; exists {
		return repository.ErrMemberExists
	}
	t.MemberCount++
	r.db.teams[team.TeamId] = t
	r.db.members[team.TeamId][member.UserId] = *member
	return nil
}

func (r fakeTeamRepo) RemoveMember(_ context.Context, team *models.Team, userId string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.teams[team.TeamId]
	if !ok || t.CaptainId == userId || t.MemberCount <= 1 {
		return repository.ErrTeamConditionFailed
	}
	if _, exists := r.db.members[team.TeamId][userId]; !exists {
		return repository.ErrMemberMissing
	}
	t.MemberCount--
	r.db.teams[team.TeamId] = t
	delete(r.db.members[team.TeamId], userId)
	return nil
}

func (r fakeTeamRepo) Disband(_ context.Context, team *models.Team) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.teams[team.TeamId]
	if !ok || t.MemberCount != 1 || t.CaptainId != team.CaptainId {
		return repository.ErrTeamConditionFailed
	}
	delete(r.db.teams, t.TeamId)
	delete(r.db.members, t.TeamId)
	delete(r.db.tags, t.Tag)
	return nil
}

func (r fakeTeamRepo) TransferCaptain(_ context.Context, team *models.Team, newCaptainId string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.teams[team.TeamId]
	if !ok || t.CaptainId != team.CaptainId {
		return repository.ErrTeamConditionFailed
	}
	next, exists := r.db.members[t.TeamId][newCaptainId]
	if !exists {
		return repository.ErrMemberMissing
	}
	prev := r.db.members[t.TeamId][t.CaptainId]
	prev.Role = models.TeamMember
	next.Role = models.TeamCaptain
	r.db.members[t.TeamId][prev.UserId] = prev
	r.db.members[t.TeamId][newCaptainId] = next
	t.CaptainId = newCaptainId
	r.db.teams[t.TeamId] = t
	return nil
}

func (r fakeTeamRepo) SetLogo(_ context.Context, teamId, url string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t := r.db.teams[teamId]
	t.LogoURL = url
	r.db.teams[teamId] = t
	return nil
}

// --- matches ---

type fakeLobbyRepo struct{ db *memDB }

func (r fakeLobbyRepo) Create(_ context.Context, lobby *models.Lobby) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.lobbies[lobby.LobbyId] = *lobby
	return nil
}

func (r fakeLobbyRepo) GetById(_ context.Context, id string) (*models.Lobby, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.lobbies[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (r fakeLobbyRepo) ListByTournament(_ context.Context, tournamentId string) ([]models.Lobby, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Lobby, 0)
	for _, l := range r.db.lobbies {
		if l.TournamentId == tournamentId {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeMatchRepo struct{ db *memDB }

func (r fakeMatchRepo) CreateIfAbsent(_ context.Context, m *models.Match) (*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := accountKey(m.Game, m.ExternalMatchId)
	if id, ok := r.db.extMatches[key]; ok {
		existing := r.db.matches[id]
		return &existing, nil
	}
	r.db.extMatches[key] = m.MatchId
	r.db.matches[m.MatchId] = *m
	created := *m
	return &created, nil
}

func (r fakeMatchRepo) GetById(_ context.Context, id string) (*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.matches[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r fakeMatchRepo) ListByTournament(_ context.Context, tournamentId string) ([]models.Match, error) {
	return r.filter(func(m models.Match) bool { return m.TournamentId == tournamentId }), nil
}

func (r fakeMatchRepo) ListTracking(_ context.Context) ([]models.Match, error) {
	return r.filter(func(m models.Match) bool { return m.Status == models.MatchTracking }), nil
}

func (r fakeMatchRepo) filter(keep func(models.Match) bool) []models.Match {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Match, 0)
	for _, m := range r.db.matches {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func (r fakeMatchRepo) UpdateDetails(_ context.Context, m *models.Match) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored := r.db.matches[m.MatchId]
	stored.Map = m.Map
	stored.DurationSeconds = m.DurationSeconds
	stored.WinningTeam = m.WinningTeam
	stored.StartedAt = m.StartedAt
	r.db.matches[m.MatchId] = stored
	return nil
}

func (r fakeMatchRepo) MarkCompleted(_ context.Context, m *models.Match, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored := r.db.matches[m.MatchId]
	if stored.Status != models.MatchTracking {
		return false, nil
	}
	stored.Status = models.MatchCompleted
	stored.CompletedAt = &at
	r.db.matches[m.MatchId] = stored
	return true, nil
}

func (r fakeMatchRepo) SavePlayerStats(_ context.Context, s *models.PlayerMatchStats) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.players[s.MatchId] == nil {
		r.db.players[s.MatchId] = make(map[string]models.PlayerMatchStats)
	}
	r.db.players[s.MatchId][s.ExternalPlayerId] = *s
	return nil
}

func (r fakeMatchRepo) ListPlayerStats(_ context.Context, matchId string) ([]models.PlayerMatchStats, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.PlayerMatchStats, 0)
	for _, s := range r.db.players[matchId] {
		out = append(out, s)
	}
	return out, nil
}

func (r fakeMatchRepo) CreateRoundIfAbsent(_ context.Context, round *models.MatchRound) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.rounds[round.MatchId] == nil {
		r.db.rounds[round.MatchId] = make(map[int]models.MatchRound)
	}
	if _, exists := r.db.rounds[round.MatchId][round.RoundNumber]; exists {
		return false, nil
	}
	r.db.rounds[round.MatchId][round.RoundNumber] = *round
	return true, nil
}

func (r fakeMatchRepo) ListRounds(_ context.Context, matchId string) ([]models.MatchRound, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.MatchRound, 0)
	for _, round := range r.db.rounds[matchId] {
		out = append(out, round)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

// --- collaborators ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	fail   error
}

func (p *recordingPublisher) record(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, name)
	return p.fail
}

func (p *recordingPublisher) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == name {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) PublishUserRegistered(context.Context, *models.User) error {
	return p.record("user.registered")
}

func (p *recordingPublisher) PublishTournamentCreated(context.Context, *models.Tournament) error {
	return p.record("tournament.created")
}

func (p *recordingPublisher) PublishTournamentJoined(context.Context, *models.Tournament, *models.Participant) error {
	return p.record("tournament.joined")
}

func (p *recordingPublisher) PublishTournamentLeft(context.Context, string, string, int64) error {
	return p.record("tournament.left")
}

func (p *recordingPublisher) PublishTournamentStatusChanged(context.Context, string, models.TournamentStatus, models.TournamentStatus) error {
	return p.record("tournament.status_changed")
}

func (p *recordingPublisher) PublishTournamentCompleted(context.Context, *models.Tournament, *models.User) error {
	return p.record("tournament.completed")
}

func (p *recordingPublisher) PublishTeamCreated(context.Context, *models.Team) error {
	return p.record("team.created")
}

func (p *recordingPublisher) PublishTeamMemberJoined(context.Context, string, string) error {
	return p.record("team.member_joined")
}

func (p *recordingPublisher) PublishTeamMemberLeft(context.Context, string, string) error {
	return p.record("team.member_left")
}

func (p *recordingPublisher) PublishTeamDisbanded(context.Context, string) error {
	return p.record("team.disbanded")
}

func (p *recordingPublisher) PublishMatchCompleted(context.Context, *models.Match, []models.PlayerMatchStats) error {
	return p.record("match.completed")
}

type fakeImageStore struct {
	keys []string
}

func (s *fakeImageStore) Upload(_ context.Context, key, _ string, body io.Reader) (*storage.UploadResult, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return nil, err
	}
	s.keys = append(s.keys, key)
	return &storage.UploadResult{Key: key, Location: storage.JoinURL("https://cdn.test", key)}, nil
}

type fakeTokens struct{}

func (fakeTokens) Issue(user *models.User) (string, time.Time, error) {
	return "token-" + user.UserId, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

type fakeGameAPI struct {
	mu       sync.Mutex
	accounts map[string]*gamestats.Account
	matches  map[string]*gamestats.ValorantMatch
	err      error
	calls    int
}

func (f *fakeGameAPI) GetAccountByRiotID(_ context.Context, _, gameName, tagLine string) (*gamestats.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	acc, ok := f.accounts[gameName+"#"+tagLine]
	if !ok {
		return nil, fmt.Errorf("no account %s#%s", gameName, tagLine)
	}
	return acc, nil
}

func (f *fakeGameAPI) GetValorantMatch(_ context.Context, _, matchId string) (*gamestats.ValorantMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.matches[matchId], nil
}

func (f *fakeGameAPI) CreateLobbyCode(_ context.Context, _ models.Game, req gamestats.LobbyRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "CODE-" + req.Region, nil
}
