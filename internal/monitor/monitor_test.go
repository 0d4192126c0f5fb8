package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mhso/IntFar-sub002/internal/award"
	"github.com/mhso/IntFar-sub002/internal/betting"
	"github.com/mhso/IntFar-sub002/internal/claim"
	"github.com/mhso/IntFar-sub002/internal/game"
	"github.com/mhso/IntFar-sub002/internal/games/cs2"
	"github.com/mhso/IntFar-sub002/internal/games/lol"
	"github.com/mhso/IntFar-sub002/internal/match"
	"github.com/mhso/IntFar-sub002/internal/storage"
)

// fakeClient reports every account in activeIDs as playing matchID until
// end is called.
type fakeClient struct {
	mu        sync.Mutex
	matchID   string
	inMatch   map[string]bool
	ended     bool
	details   func(matchID string, players []match.Player) (*match.Data, error)
	fetches   []string
	tokenFrom map[string]int
	token     string
	calls     map[string]int
}

func newFakeClient(matchID string, accounts ...string) *fakeClient {
	c := &fakeClient{
		matchID: matchID,
		inMatch: make(map[string]bool),
		calls:   make(map[string]int),
	}
	for _, a := range accounts {
		c.inMatch[a] = true
	}
	return c
}

func (c *fakeClient) end() {
	c.mu.Lock()
	c.ended = true
	c.mu.Unlock()
}

// start begins a new match for the same accounts.
func (c *fakeClient) start(matchID string) {
	c.mu.Lock()
	c.matchID = matchID
	c.ended = false
	c.mu.Unlock()
}

func (c *fakeClient) ActiveMatch(_ context.Context, a match.Account) (*match.ActiveMatch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended || !c.inMatch[a.ID] {
		return nil, nil
	}
	return &match.ActiveMatch{ID: c.matchID, AccountID: a.ID}, nil
}

func (c *fakeClient) MatchDetails(_ context.Context, matchID string, players []match.Player) (*match.Data, error) {
	c.mu.Lock()
	c.fetches = append(c.fetches, matchID)
	c.mu.Unlock()
	return c.details(matchID, players)
}

func (c *fakeClient) fetched() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.fetches...)
}

// fakeTokenClient advances each account's token on a fixed call number.
type fakeTokenClient struct {
	*fakeClient
}

func (c fakeTokenClient) NextMatchToken(_ context.Context, a match.Account, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[a.ID]++
	if c.calls[a.ID] >= c.tokenFrom[a.ID] {
		return c.token, nil
	}
	return "", nil
}

type fakeModule struct {
	typ       match.GameType
	client    game.Client
	qualifier *award.Qualifier
	bets      *betting.Resolver
}

func (f *fakeModule) Name() string { return string(f.typ) }
func (f *fakeModule) Type() match.GameType { return f.typ }
func (f *fakeModule) Description() string { return "" }
func (f *fakeModule) ValidatePlayerID(string) error { return nil }
func (f *fakeModule) ResolveAccount(context.Context, string) (*match.Account, error) {
	return nil, errors.New("not supported")
}
func (f *fakeModule) Client() game.Client { return f.client }
func (f *fakeModule) Qualifier() *award.Qualifier { return f.qualifier }
func (f *fakeModule) Bets() *betting.Resolver { return f.bets }
func (f *fakeModule) RecordStats() []game.RecordStat {
	return []game.RecordStat{{Name: match.StatKills}, {Name: match.StatDeaths, LowerIsBetter: true}}
}
func (f *fakeModule) Classify(d *match.Data, minDuration time.Duration) match.Status {
	if !d.Ranked {
		return match.StatusCustomGame
	}
	if d.Duration < minDuration {
		return match.StatusTooShort
	}
	return match.StatusOK
}

type recorder struct {
	results chan *match.Result
}

func (r *recorder) OnMatchResolved(_ context.Context, res *match.Result) {
	r.results <- res
}

func (r *recorder) next(t *testing.T) *match.Result {
	t.Helper()
	select {
	case res := <-r.results:
		return res
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for a resolved match")
		return nil
	}
}

// failingStore fails every save.
type failingStore struct {
	*storage.Repository
}

func (failingStore) SaveMatch(context.Context, *match.Result) error {
	return errors.New("disk I/O error")
}

type harness struct {
	repo    *storage.Repository
	ledger  *betting.Ledger
	monitor *Monitor
	rec     *recorder
}

func testConfig() Config {
	return Config{
		DormantInterval:   5 * time.Millisecond,
		ActiveInterval:    5 * time.Millisecond,
		TokenPollInterval: time.Millisecond,
		FetchAttempts:     3,
		FetchBaseDelay:    time.Millisecond,
		FetchMaxDelay:     4 * time.Millisecond,
		MinDuration:       5 * time.Minute,
	}
}

func newHarness(t *testing.T, module game.Module, cfg Config, wrap func(*storage.Repository) Store) *harness {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "intfar.db"), 1000)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	var store Store = repo
	if wrap != nil {
		store = wrap(repo)
	}
	h := &harness{
		repo:   repo,
		ledger: betting.NewLedger(repo, 10*time.Minute),
		rec:    &recorder{results: make(chan *match.Result, 8)},
	}
	h.monitor = New(module, store, h.ledger, claim.NewMemory(time.Hour), h.rec, cfg)
	t.Cleanup(h.monitor.Shutdown)
	return h
}

func (h *harness) addPlayer(t *testing.T, id int64, game match.GameType, account string) match.Player {
	t.Helper()
	p := match.Player{
		DiscordID: id,
		Name:      account,
		Active:    true,
		Accounts:  []match.Account{{Game: game, ID: account}},
	}
	ctx := context.Background()
	if err := h.repo.CreatePlayer(ctx, &p); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	if err := h.repo.AddAccount(ctx, id, p.Accounts[0]); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	return p
}

func lolModule(c game.Client) *fakeModule {
	return &fakeModule{typ: match.GameLoL, client: c, qualifier: lol.NewQualifier(), bets: lol.NewBets()}
}

func lolStats(id int64, account string, kills, deaths, assists int, kp, vision float64) match.PlayerStats {
	return match.PlayerStats{
		DiscordID: id,
		AccountID: account,
		Kills:     kills,
		Deaths:    deaths,
		Assists:   assists,
		Resources: 10000,
		Stats: map[string]float64{
			lol.StatKillParticipation: kp,
			lol.StatVisionScore:       vision,
		},
	}
}

func lolMatch(players ...match.PlayerStats) func(string, []match.Player) (*match.Data, error) {
	return func(id string, _ []match.Player) (*match.Data, error) {
		return &match.Data{
			ID:       id,
			Game:     match.GameLoL,
			Duration: 25 * time.Minute,
			Mode:     "CLASSIC",
			Ranked:   true,
			Outcome:  match.OutcomeWin,
			Players:  players,
		}, nil
	}
}

// waitActive blocks until the guild's match has been detected.
func waitActive(t *testing.T, m *Monitor, guildID string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !m.Snapshot(guildID).Active {
		if time.Now().After(deadline) {
			t.Fatalf("match never became active in %s", guildID)
		}
		time.Sleep(time.Millisecond)
	}
}

// waitIdle blocks until the guild has dispatched its match.
func waitIdle(t *testing.T, m *Monitor, guildID string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for s := m.Snapshot(guildID); s.Active || s.Resolving; s = m.Snapshot(guildID) {
		if time.Now().After(deadline) {
			t.Fatalf("match never finished in %s", guildID)
		}
		time.Sleep(time.Millisecond)
	}
}

// waitFetches blocks until the details of a match were requested n times.
func waitFetches(t *testing.T, c *fakeClient, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for len(c.fetched()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("details fetched %d times, want %d", len(c.fetched()), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestVisionIntFarAndPreMatchBet(t *testing.T) {
	client := newFakeClient("EUW1_42", "puuid-a", "puuid-b")
	client.details = lolMatch(
		lolStats(1, "puuid-a", 8, 2, 10, 60, 5),
		lolStats(2, "puuid-b", 10, 3, 5, 70, 30),
	)
	h := newHarness(t, lolModule(client), testConfig(), nil)
	a := h.addPlayer(t, 1, match.GameLoL, "puuid-a")
	b := h.addPlayer(t, 2, match.GameLoL, "puuid-b")
	ctx := context.Background()

	ticket := match.Ticket{
		DiscordID: 1,
		GuildID:   "g1",
		Game:      match.GameLoL,
		Wagers:    []match.Wager{{EventID: "intfar", Amount: 100}},
	}
	if _, err := h.ledger.PlaceTicket(ctx, lol.NewBets(), ticket, 0); err != nil {
		t.Fatalf("PlaceTicket: %v", err)
	}

	h.monitor.PlayerJoinedVoice(a, "g1")
	h.monitor.PlayerJoinedVoice(b, "g1")
	waitActive(t, h.monitor, "g1")
	client.end()

	res := h.rec.next(t)
	if res.Status != match.StatusOK {
		t.Fatalf("status = %s (%v), want ok", res.Status, res.Err)
	}
	if res.MatchID != "EUW1_42" {
		t.Fatalf("match id = %s", res.MatchID)
	}
	neg := res.Awards.Negative
	if neg == nil || neg.DiscordID != 1 || neg.Criteria != "0001" {
		t.Fatalf("negative award = %+v, want player 1 for vision", neg)
	}
	if len(res.Bets) != 1 || !res.Bets[0].Won {
		t.Fatalf("bets = %+v, want one winning ticket", res.Bets)
	}

	// 100 at 1/0.75 odds, no decay
	if bal, _ := h.repo.Balance(ctx, 1); bal != 1033 {
		t.Fatalf("balance = %d, want 1033", bal)
	}
	if ok, _ := h.repo.MatchExists(ctx, match.GameLoL, "EUW1_42"); !ok {
		t.Fatalf("match was not saved")
	}
}

func TestSoloMatchIsNotScored(t *testing.T) {
	client := newFakeClient("EUW1_9", "puuid-a")
	client.details = lolMatch(lolStats(1, "puuid-a", 0, 12, 1, 5, 2))
	h := newHarness(t, lolModule(client), testConfig(), nil)
	a := h.addPlayer(t, 1, match.GameLoL, "puuid-a")
	b := h.addPlayer(t, 2, match.GameLoL, "puuid-b")
	ctx := context.Background()

	ticket := match.Ticket{DiscordID: 2, GuildID: "g1", Game: match.GameLoL, Wagers: []match.Wager{{EventID: "game_win", Amount: 200}}}
	if _, err := h.ledger.PlaceTicket(ctx, lol.NewBets(), ticket, 0); err != nil {
		t.Fatalf("PlaceTicket: %v", err)
	}

	h.monitor.PlayerJoinedVoice(a, "g1")
	h.monitor.PlayerJoinedVoice(b, "g1")
	waitActive(t, h.monitor, "g1")
	client.end()

	res := h.rec.next(t)
	if res.Status != match.StatusSolo {
		t.Fatalf("status = %s, want solo", res.Status)
	}
	if res.Awards != nil || res.Bets != nil {
		t.Fatalf("solo match was scored: %+v", res)
	}
	if ok, _ := h.repo.MatchExists(ctx, match.GameLoL, "EUW1_9"); ok {
		t.Fatalf("solo match was saved")
	}
	if missed, _ := h.repo.MissedMatches(ctx); len(missed) != 0 {
		t.Fatalf("solo match was ledgered: %+v", missed)
	}
	// the pending ticket is refunded
	if bal, _ := h.repo.Balance(ctx, 2); bal != 1000 {
		t.Fatalf("balance = %d, want refunded 1000", bal)
	}
}

func TestTokenBarrierWaitsForEveryPlayer(t *testing.T) {
	base := newFakeClient("", "76561190000000001", "76561190000000002")
	base.token = "CSGO-aaaaa-bbbbb-ccccc-ddddd-eeeee"
	base.tokenFrom = map[string]int{"76561190000000001": 2, "76561190000000002": 5}
	base.details = func(id string, _ []match.Player) (*match.Data, error) {
		return &match.Data{
			ID:       id,
			Game:     match.GameCS2,
			Duration: 40 * time.Minute,
			Mode:     "premier",
			Ranked:   true,
			Outcome:  match.OutcomeLoss,
			Players: []match.PlayerStats{
				{DiscordID: 1, AccountID: "76561190000000001", Kills: 20, Deaths: 15, Stats: map[string]float64{cs2.StatADR: 90, cs2.StatScore: 50}},
				{DiscordID: 2, AccountID: "76561190000000002", Kills: 5, Deaths: 20, Stats: map[string]float64{cs2.StatADR: 40, cs2.StatScore: 12}},
			},
		}, nil
	}
	module := &fakeModule{typ: match.GameCS2, client: fakeTokenClient{base}, qualifier: cs2.NewQualifier(), bets: cs2.NewBets()}
	h := newHarness(t, module, testConfig(), nil)
	p1 := h.addPlayer(t, 1, match.GameCS2, "76561190000000001")
	p2 := h.addPlayer(t, 2, match.GameCS2, "76561190000000002")

	h.monitor.PlayerJoinedVoice(p1, "g1")
	h.monitor.PlayerJoinedVoice(p2, "g1")
	waitActive(t, h.monitor, "g1")
	base.end()

	res := h.rec.next(t)
	if res.Status != match.StatusOK {
		t.Fatalf("status = %s (%v), want ok", res.Status, res.Err)
	}
	if res.MatchID != base.token {
		t.Fatalf("match id = %s, want %s", res.MatchID, base.token)
	}

	base.mu.Lock()
	c1, c2 := base.calls["76561190000000001"], base.calls["76561190000000002"]
	base.mu.Unlock()
	if c1 != 2 || c2 != 5 {
		t.Fatalf("token calls = %d, %d; want 2, 5", c1, c2)
	}
	if f := base.fetched(); len(f) != 1 || f[0] != base.token {
		t.Fatalf("fetched = %v", f)
	}
	if got := res.Data.TokensByAccount["76561190000000002"]; got != base.token {
		t.Fatalf("consumed token = %q", got)
	}

	p, err := h.repo.GetPlayer(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if p.Accounts[0].LastToken != base.token {
		t.Fatalf("stored token = %q, want %q", p.Accounts[0].LastToken, base.token)
	}
}

func TestSaveFailureStillDispatches(t *testing.T) {
	client := newFakeClient("EUW1_77", "puuid-a", "puuid-b")
	client.details = lolMatch(
		lolStats(1, "puuid-a", 1, 10, 1, 10, 5),
		lolStats(2, "puuid-b", 10, 3, 5, 70, 30),
	)
	h := newHarness(t, lolModule(client), testConfig(), func(r *storage.Repository) Store {
		return failingStore{r}
	})
	a := h.addPlayer(t, 1, match.GameLoL, "puuid-a")
	b := h.addPlayer(t, 2, match.GameLoL, "puuid-b")

	h.monitor.PlayerJoinedVoice(a, "g1")
	h.monitor.PlayerJoinedVoice(b, "g1")
	waitActive(t, h.monitor, "g1")
	client.end()

	res := h.rec.next(t)
	if res.Status != match.StatusError || res.Err == nil {
		t.Fatalf("status = %s (%v), want error", res.Status, res.Err)
	}
	if res.Data == nil || res.Awards == nil || res.Awards.Negative == nil {
		t.Fatalf("result lost its match data: %+v", res)
	}

	missed, err := h.repo.MissedMatches(context.Background())
	if err != nil {
		t.Fatalf("MissedMatches: %v", err)
	}
	if len(missed) != 1 || missed[0].MatchID != "EUW1_77" {
		t.Fatalf("missed = %+v, want EUW1_77 once", missed)
	}
}

func TestFetchRetryExhaustedIsLedgered(t *testing.T) {
	client := newFakeClient("EUW1_5", "puuid-a", "puuid-b")
	client.details = func(string, []match.Player) (*match.Data, error) {
		return nil, errors.New("503 service unavailable")
	}
	h := newHarness(t, lolModule(client), testConfig(), nil)
	a := h.addPlayer(t, 1, match.GameLoL, "puuid-a")
	b := h.addPlayer(t, 2, match.GameLoL, "puuid-b")

	h.monitor.PlayerJoinedVoice(a, "g1")
	h.monitor.PlayerJoinedVoice(b, "g1")
	waitActive(t, h.monitor, "g1")
	client.end()

	res := h.rec.next(t)
	if res.Status != match.StatusError {
		t.Fatalf("status = %s, want error", res.Status)
	}
	if n := len(client.fetched()); n != 3 {
		t.Fatalf("fetch attempts = %d, want 3", n)
	}
	if missed, _ := h.repo.MissedMatches(context.Background()); len(missed) != 1 {
		t.Fatalf("missed = %+v", missed)
	}
}

func TestMalformedDetails(t *testing.T) {
	client := newFakeClient("EUW1_6", "puuid-a", "puuid-b")
	client.details = func(string, []match.Player) (*match.Data, error) {
		return nil, match.ErrMalformed
	}
	h := newHarness(t, lolModule(client), testConfig(), nil)
	a := h.addPlayer(t, 1, match.GameLoL, "puuid-a")
	b := h.addPlayer(t, 2, match.GameLoL, "puuid-b")

	h.monitor.PlayerJoinedVoice(a, "g1")
	h.monitor.PlayerJoinedVoice(b, "g1")
	waitActive(t, h.monitor, "g1")
	client.end()

	if res := h.rec.next(t); res.Status != match.StatusMalformed {
		t.Fatalf("status = %s, want malformed", res.Status)
	}
}

func TestSameMatchInTwoGuilds(t *testing.T) {
	client := newFakeClient("EUW1_100", "puuid-a", "puuid-b", "puuid-c", "puuid-d")
	client.details = lolMatch(
		lolStats(1, "puuid-a", 8, 2, 10, 60, 5),
		lolStats(2, "puuid-b", 10, 3, 5, 70, 30),
		lolStats(3, "puuid-c", 4, 4, 4, 50, 20),
		lolStats(4, "puuid-d", 6, 5, 9, 55, 25),
	)
	h := newHarness(t, lolModule(client), testConfig(), nil)
	a := h.addPlayer(t, 1, match.GameLoL, "puuid-a")
	b := h.addPlayer(t, 2, match.GameLoL, "puuid-b")
	c := h.addPlayer(t, 3, match.GameLoL, "puuid-c")
	d := h.addPlayer(t, 4, match.GameLoL, "puuid-d")

	h.monitor.PlayerJoinedVoice(a, "g1")
	h.monitor.PlayerJoinedVoice(b, "g1")
	h.monitor.PlayerJoinedVoice(c, "g2")
	h.monitor.PlayerJoinedVoice(d, "g2")
	waitActive(t, h.monitor, "g1")
	waitActive(t, h.monitor, "g2")
	client.end()

	counts := make(map[match.Status]int)
	for i := 0; i < 2; i++ {
		counts[h.rec.next(t).Status]++
	}
	if counts[match.StatusOK] != 1 || counts[match.StatusDuplicate] != 1 {
		t.Fatalf("statuses = %v, want one ok and one duplicate", counts)
	}
}

func TestTooShortRefundsBets(t *testing.T) {
	client := newFakeClient("EUW1_3", "puuid-a", "puuid-b")
	client.details = func(id string, players []match.Player) (*match.Data, error) {
		d, _ := lolMatch(
			lolStats(1, "puuid-a", 0, 3, 0, 0, 0),
			lolStats(2, "puuid-b", 1, 1, 0, 50, 2),
		)(id, players)
		d.Duration = 3 * time.Minute
		return d, nil
	}
	h := newHarness(t, lolModule(client), testConfig(), nil)
	a := h.addPlayer(t, 1, match.GameLoL, "puuid-a")
	b := h.addPlayer(t, 2, match.GameLoL, "puuid-b")
	ctx := context.Background()

	ticket := match.Ticket{DiscordID: 1, GuildID: "g1", Game: match.GameLoL, Wagers: []match.Wager{{EventID: "no_intfar", Amount: 300}}}
	h.ledger.PlaceTicket(ctx, lol.NewBets(), ticket, 0)

	h.monitor.PlayerJoinedVoice(a, "g1")
	h.monitor.PlayerJoinedVoice(b, "g1")
	waitActive(t, h.monitor, "g1")
	client.end()

	if res := h.rec.next(t); res.Status != match.StatusTooShort {
		t.Fatalf("status = %s, want too_short", res.Status)
	}
	if bal, _ := h.repo.Balance(ctx, 1); bal != 1000 {
		t.Fatalf("balance = %d, want 1000", bal)
	}
}

func TestLeaveGraceDebounce(t *testing.T) {
	client := newFakeClient("EUW1_1")
	cfg := testConfig()
	cfg.LeaveGrace = 50 * time.Millisecond
	h := newHarness(t, lolModule(client), cfg, nil)
	a := h.addPlayer(t, 1, match.GameLoL, "puuid-a")
	b := h.addPlayer(t, 2, match.GameLoL, "puuid-b")

	h.monitor.PlayerJoinedVoice(a, "g1")
	if h.monitor.Snapshot("g1").Polling {
		t.Fatalf("polling started with one player")
	}
	h.monitor.PlayerJoinedVoice(b, "g1")
	if !h.monitor.Snapshot("g1").Polling {
		t.Fatalf("polling did not start with two players")
	}

	// quick reconnect keeps polling
	h.monitor.PlayerLeftVoice(a, "g1")
	h.monitor.PlayerJoinedVoice(a, "g1")
	time.Sleep(100 * time.Millisecond)
	if s := h.monitor.Snapshot("g1"); !s.Polling || len(s.Players) != 2 {
		t.Fatalf("snapshot after reconnect = %+v", s)
	}

	h.monitor.PlayerLeftVoice(a, "g1")
	if !h.monitor.Snapshot("g1").Polling {
		t.Fatalf("polling stopped before grace period")
	}
	time.Sleep(100 * time.Millisecond)
	if s := h.monitor.Snapshot("g1"); s.Polling || len(s.Players) != 1 {
		t.Fatalf("snapshot after leave = %+v", s)
	}
}

func TestMajorityToken(t *testing.T) {
	got := majority(map[int64]string{1: "CSGO-b", 2: "CSGO-a", 3: "CSGO-b"})
	if got != "CSGO-b" {
		t.Fatalf("majority = %s, want CSGO-b", got)
	}
	if got := majority(map[int64]string{1: "CSGO-b", 2: "CSGO-a"}); got != "CSGO-a" {
		t.Fatalf("tie = %s, want CSGO-a", got)
	}
}

func TestRejoinWhileResolvingDispatchesOnce(t *testing.T) {
	client := newFakeClient("EUW1_8", "puuid-a", "puuid-b")
	scored := lolMatch(
		lolStats(1, "puuid-a", 8, 2, 10, 60, 5),
		lolStats(2, "puuid-b", 10, 3, 5, 70, 30),
	)
	release := make(chan struct{})
	client.details = func(id string, players []match.Player) (*match.Data, error) {
		<-release
		return scored(id, players)
	}
	h := newHarness(t, lolModule(client), testConfig(), nil)
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	t.Cleanup(unblock)
	a := h.addPlayer(t, 1, match.GameLoL, "puuid-a")
	b := h.addPlayer(t, 2, match.GameLoL, "puuid-b")

	h.monitor.PlayerJoinedVoice(a, "g1")
	h.monitor.PlayerJoinedVoice(b, "g1")
	waitActive(t, h.monitor, "g1")
	client.end()
	waitFetches(t, client, 1)

	if _, err := h.monitor.BetOffset("g1"); !errors.Is(err, match.ErrBettingClosed) {
		t.Fatalf("BetOffset err = %v, want ErrBettingClosed while resolving", err)
	}

	// stop and restart polling while the match is resolving
	h.monitor.PlayerLeftVoice(a, "g1")
	if h.monitor.Snapshot("g1").Polling {
		t.Fatalf("polling kept running with one player")
	}
	h.monitor.PlayerJoinedVoice(a, "g1")
	time.Sleep(30 * time.Millisecond)
	unblock()

	res := h.rec.next(t)
	if res.Status != match.StatusOK || res.MatchID != "EUW1_8" {
		t.Fatalf("status = %s for %s (%v), want ok for EUW1_8", res.Status, res.MatchID, res.Err)
	}
	select {
	case extra := <-h.rec.results:
		t.Fatalf("match dispatched twice, second status %s", extra.Status)
	case <-time.After(100 * time.Millisecond):
	}
	if n := len(client.fetched()); n != 1 {
		t.Fatalf("details fetched %d times, want 1", n)
	}
	if s := h.monitor.Snapshot("g1"); !s.Polling || s.Active || s.Resolving {
		t.Fatalf("snapshot after restart = %+v, want idle polling", s)
	}
}

func TestUnscoredMatchHoldsItsTickets(t *testing.T) {
	client := newFakeClient("EUW1_1", "puuid-a", "puuid-b")
	scored := lolMatch(
		lolStats(1, "puuid-a", 8, 2, 10, 60, 5),
		lolStats(2, "puuid-b", 10, 3, 5, 70, 30),
	)
	client.details = func(id string, players []match.Player) (*match.Data, error) {
		if id == "EUW1_1" {
			return nil, errors.New("503 service unavailable")
		}
		return scored(id, players)
	}
	h := newHarness(t, lolModule(client), testConfig(), nil)
	a := h.addPlayer(t, 1, match.GameLoL, "puuid-a")
	b := h.addPlayer(t, 2, match.GameLoL, "puuid-b")
	ctx := context.Background()

	stale, err := h.ledger.PlaceTicket(ctx, lol.NewBets(), match.Ticket{
		DiscordID: 1, GuildID: "g1", Game: match.GameLoL,
		Wagers: []match.Wager{{EventID: "game_win", Amount: 200}},
	}, 0)
	if err != nil {
		t.Fatalf("PlaceTicket: %v", err)
	}

	h.monitor.PlayerJoinedVoice(a, "g1")
	h.monitor.PlayerJoinedVoice(b, "g1")
	waitActive(t, h.monitor, "g1")
	client.end()
	if res := h.rec.next(t); res.Status != match.StatusError {
		t.Fatalf("first match status = %s, want error", res.Status)
	}
	waitIdle(t, h.monitor, "g1")

	fresh, err := h.ledger.PlaceTicket(ctx, lol.NewBets(), match.Ticket{
		DiscordID: 2, GuildID: "g1", Game: match.GameLoL,
		Wagers: []match.Wager{{EventID: "game_win", Amount: 100}},
	}, 0)
	if err != nil {
		t.Fatalf("PlaceTicket: %v", err)
	}

	client.start("EUW1_2")
	waitActive(t, h.monitor, "g1")
	client.end()
	res := h.rec.next(t)
	if res.Status != match.StatusOK || res.MatchID != "EUW1_2" {
		t.Fatalf("second match = %s %s (%v), want ok EUW1_2", res.MatchID, res.Status, res.Err)
	}
	if len(res.Bets) != 1 || res.Bets[0].TicketID != fresh.ID {
		t.Fatalf("bets = %+v, want only ticket %s", res.Bets, fresh.ID)
	}

	held, err := h.repo.HeldTickets(ctx, "g1")
	if err != nil {
		t.Fatalf("HeldTickets: %v", err)
	}
	if len(held) != 1 || held[0].ID != stale.ID || held[0].MatchID != "EUW1_1" {
		t.Fatalf("held = %+v, want ticket %s held for EUW1_1", held, stale.ID)
	}
	if bal, _ := h.repo.Balance(ctx, 1); bal != 800 {
		t.Fatalf("balance = %d, want stake still debited at 800", bal)
	}
}
