package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yodateam/faceit-backend/internal/domain"
	"github.com/yodateam/faceit-backend/internal/testutil"
)

// latestMatchID grabs the most recent match row.
func latestMatchID(t *testing.T, env *testutil.TestEnv) uuid.UUID {
	t.Helper()
	var match domain.Match
	require.NoError(t, env.DB.DB.Order("created_at DESC").First(&match).Error)
	return match.ID
}

func matchStatus(t *testing.T, env *testutil.TestEnv, id uuid.UUID) domain.MatchStatus {
	t.Helper()
	var match domain.Match
	require.NoError(t, env.DB.DB.First(&match, "id = ?", id).Error)
	return match.Status
}

// fillSlot joins every player into the slot and returns the pending match.
func fillSlot(t *testing.T, env *testutil.TestEnv, mode domain.Mode, index int, players []*domain.Player) *domain.PendingMatch {
	t.Helper()
	ctx := context.Background()
	for _, p := range players {
		_, err := env.Services.Lobby.Join(ctx, p.ID, mode, index)
		require.NoError(t, err)
	}
	id := latestMatchID(t, env)
	pm, err := env.Services.Accept.GetPending(ctx, id)
	require.NoError(t, err)
	return pm
}

// acceptAll confirms every rostered player; the draft starts on the last one.
func acceptAll(t *testing.T, env *testutil.TestEnv, pm *domain.PendingMatch) *domain.ActiveMatch {
	t.Helper()
	ctx := context.Background()
	for _, p := range pm.Roster {
		_, err := env.Services.Accept.Accept(ctx, p.PlayerID, pm.ID)
		require.NoError(t, err)
	}
	am, err := env.Services.Draft.Get(ctx, pm.ID)
	require.NoError(t, err)
	return am
}

func TestJoinFillsSlotAndOpensAcceptWindow(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx := context.Background()
	players := testutil.CreatePlayers(t, env.DB.DB, 2)

	slot, err := env.Services.Lobby.Join(ctx, players[0].ID, domain.Mode1x1, 3)
	require.NoError(t, err)
	assert.Len(t, slot.Players, 1)

	// same player again, anywhere in the mode
	_, err = env.Services.Lobby.Join(ctx, players[0].ID, domain.Mode1x1, 3)
	assert.ErrorIs(t, err, domain.ErrAlreadyInLobby)
	_, err = env.Services.Lobby.Join(ctx, players[0].ID, domain.Mode1x1, 4)
	assert.ErrorIs(t, err, domain.ErrAlreadyInLobby)

	_, err = env.Services.Lobby.Join(ctx, players[1].ID, domain.Mode1x1, 3)
	require.NoError(t, err)

	// slot drained and reset
	slots, err := env.Services.Lobby.ListSlots(ctx, domain.Mode1x1)
	require.NoError(t, err)
	assert.Empty(t, slots[3].Players)

	// pending match exists with a 60s deadline wake armed
	id := latestMatchID(t, env)
	pm, err := env.Services.Accept.GetPending(ctx, id)
	require.NoError(t, err)
	assert.Len(t, pm.Roster, 2)
	assert.Equal(t, 1, env.Clock.Pending())
	assert.Equal(t, domain.StatusPending, matchStatus(t, env, id))

	// both players were told
	for _, p := range players {
		msgs := env.Notifier.MessagesFor(p.ID)
		require.NotEmpty(t, msgs)
		assert.Contains(t, msgs[0].Text, "Match found")
	}
}

func TestJoinValidation(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx := context.Background()

	player := testutil.NewPlayerBuilder().Build(t, env.DB.DB)
	banned := testutil.NewPlayerBuilder().BannedFor(10 * time.Minute).Build(t, env.DB.DB)

	_, err := env.Services.Lobby.Join(ctx, player.ID, domain.Mode1x1, -1)
	assert.ErrorIs(t, err, domain.ErrUnknownSlot)
	_, err = env.Services.Lobby.Join(ctx, player.ID, domain.Mode1x1, domain.SlotsPerMode)
	assert.ErrorIs(t, err, domain.ErrUnknownSlot)

	_, err = env.Services.Lobby.Join(ctx, 424242, domain.Mode1x1, 0)
	assert.ErrorIs(t, err, domain.ErrUnknownPlayer)

	_, err = env.Services.Lobby.Join(ctx, banned.ID, domain.Mode1x1, 0)
	assert.ErrorIs(t, err, domain.ErrPlayerBanned)

	// leave requires membership
	_, err = env.Services.Lobby.Leave(ctx, player.ID, domain.Mode1x1, 0)
	assert.ErrorIs(t, err, domain.ErrNotInLobby)

	_, err = env.Services.Lobby.Join(ctx, player.ID, domain.Mode1x1, 0)
	require.NoError(t, err)
	slot, err := env.Services.Lobby.Leave(ctx, player.ID, domain.Mode1x1, 0)
	require.NoError(t, err)
	assert.Empty(t, slot.Players)
}

func TestConcurrentJoinsNeverOverbook(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx := context.Background()
	players := testutil.CreatePlayers(t, env.DB.DB, 9)

	var wg sync.WaitGroup
	for _, p := range players {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			env.Services.Lobby.Join(ctx, id, domain.Mode2x2, 0)
		}(p.ID)
	}
	wg.Wait()

	// 9 racing joins into a capacity-4 slot: two full matches spawn and
	// one player is left queueing. Nobody appears twice.
	var pendings []domain.PendingMatch
	require.NoError(t, env.Repos.State.List(ctx, "pending:", &pendings))
	require.Len(t, pendings, 2)

	seen := map[int64]int{}
	for _, pm := range pendings {
		assert.Len(t, pm.Roster, 4)
		for _, p := range pm.Roster {
			seen[p.PlayerID]++
		}
	}
	slots, err := env.Services.Lobby.ListSlots(ctx, domain.Mode2x2)
	require.NoError(t, err)
	assert.Len(t, slots[0].Players, 1)
	for _, p := range slots[0].Players {
		seen[p.PlayerID]++
	}
	assert.Len(t, seen, 9)
	for id, n := range seen {
		assert.Equal(t, 1, n, "player %d placed %d times", id, n)
	}
}

func TestAcceptIsIdempotentAndLastAcceptStartsDraft(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx := context.Background()
	players := testutil.CreatePlayers(t, env.DB.DB, 2)
	pm := fillSlot(t, env, domain.Mode1x1, 0, players)

	outsider := testutil.NewPlayerBuilder().Build(t, env.DB.DB)
	_, err := env.Services.Accept.Accept(ctx, outsider.ID, pm.ID)
	assert.ErrorIs(t, err, domain.ErrNotInMatch)

	_, err = env.Services.Accept.Accept(ctx, players[0].ID, pm.ID)
	require.NoError(t, err)
	// repeat accept is a no-op
	again, err := env.Services.Accept.Accept(ctx, players[0].ID, pm.ID)
	require.NoError(t, err)
	assert.True(t, again.Accepted[players[0].ID])

	_, err = env.Services.Accept.Accept(ctx, players[1].ID, pm.ID)
	require.NoError(t, err)

	// pending gone, draft live, match row active
	_, err = env.Services.Accept.GetPending(ctx, pm.ID)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)

	am, err := env.Services.Draft.Get(ctx, pm.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseBan, am.Phase)
	assert.Equal(t, domain.SideCT, am.Turn)
	assert.Len(t, am.Available, 7)
	assert.GreaterOrEqual(t, am.RatingDelta, 5)
	assert.LessOrEqual(t, am.RatingDelta, 15)
	assert.Equal(t, domain.StatusActive, matchStatus(t, env, pm.ID))

	// a late deadline wake finds nothing to expire
	env.Clock.Advance(env.Config.AcceptWindow)
	_, err = env.Services.Draft.Get(ctx, pm.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, matchStatus(t, env, pm.ID))
}

func TestAcceptTimeoutStrikesAbsenteesAndRequeuesRest(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx := context.Background()

	acceptor := testutil.NewPlayerBuilder().Build(t, env.DB.DB)
	// one strike away from the limit
	repeat := testutil.NewPlayerBuilder().WithMissedGames(2).Build(t, env.DB.DB)
	pm := fillSlot(t, env, domain.Mode1x1, 0, []*domain.Player{acceptor, repeat})

	_, err := env.Services.Accept.Accept(ctx, acceptor.ID, pm.ID)
	require.NoError(t, err)

	env.Clock.Advance(env.Config.AcceptWindow)

	// window collapsed
	_, err = env.Services.Accept.GetPending(ctx, pm.ID)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
	assert.Equal(t, domain.StatusCancelled, matchStatus(t, env, pm.ID))

	// absentee hit the limit: banned, counter reset
	struck, err := env.Repos.Player.GetByID(ctx, repeat.ID)
	require.NoError(t, err)
	assert.True(t, struck.IsBanned(time.Now()))
	assert.Equal(t, 0, struck.MissedGames)

	// acceptor is back in the queue
	slot, err := env.Services.Lobby.CurrentLobbyOf(ctx, acceptor.ID)
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, domain.Mode1x1, slot.Mode)

	// and a banned absentee cannot rejoin
	_, err = env.Services.Lobby.Join(ctx, repeat.ID, domain.Mode1x1, 1)
	assert.ErrorIs(t, err, domain.ErrPlayerBanned)
}

func TestAcceptTimeoutWarnsBelowLimit(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx := context.Background()
	players := testutil.CreatePlayers(t, env.DB.DB, 2)
	pm := fillSlot(t, env, domain.Mode1x1, 0, players)

	env.Clock.Advance(env.Config.AcceptWindow)

	for _, p := range players {
		struck, err := env.Repos.Player.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, struck.MissedGames)
		assert.False(t, struck.IsBanned(time.Now()))
	}
	_, err := env.Services.Accept.GetPending(ctx, pm.ID)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
}

func TestDraftManualBanWinsOverStaleTimeout(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx := context.Background()
	players := testutil.CreatePlayers(t, env.DB.DB, 2)
	pm := fillSlot(t, env, domain.Mode1x1, 0, players)
	am := acceptAll(t, env, pm)

	holder := am.TurnHolder()
	other := am.Captains[am.Turn.Opposite()]

	// wrong actor first
	_, err := env.Services.Draft.SubmitBan(ctx, other, pm.ID, am.Available[0])
	assert.ErrorIs(t, err, domain.ErrNotYourTurn)
	_, err = env.Services.Draft.SubmitBan(ctx, holder, pm.ID, "Atlantis")
	assert.ErrorIs(t, err, domain.ErrUnknownMap)

	banned := am.Available[0]
	am, err = env.Services.Draft.SubmitBan(ctx, holder, pm.ID, banned)
	require.NoError(t, err)
	assert.Len(t, am.Available, 6)
	assert.NotContains(t, am.Available, banned)

	// the Begin wake is stale (turn moved on); the wake armed by the
	// manual ban auto-bans for the new holder
	env.Clock.Advance(env.Config.StepWindow)

	am, err = env.Services.Draft.Get(ctx, pm.ID)
	require.NoError(t, err)
	assert.Len(t, am.Available, 5)
	assert.Equal(t, domain.SideCT, am.Turn, "auto-ban handed the turn back")
}

func TestDraftCompletesOnTimeoutsAlone(t *testing.T) {
	env := testutil.NewTestEnv(t)
	players := testutil.CreatePlayers(t, env.DB.DB, 2)
	pm := fillSlot(t, env, domain.Mode1x1, 0, players)
	am := acceptAll(t, env, pm)

	// nobody acts: six auto-bans close the draft
	for i := 0; i < 6; i++ {
		env.Clock.Advance(env.Config.StepWindow)
	}

	am, err := env.Services.Draft.Get(context.Background(), pm.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseDone, am.Phase)
	assert.NotEmpty(t, am.FinalMap)
	assert.Empty(t, am.Available)

	// adjudicator got the result card
	msgs := env.Notifier.MessagesFor(env.Config.Adjudicators[0])
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0].Text, "Awaiting result")
}

func TestTeamDraftPickPhaseAndSettlement(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx := context.Background()
	players := testutil.CreatePlayers(t, env.DB.DB, 4)
	pm := fillSlot(t, env, domain.Mode2x2, 2, players)
	am := acceptAll(t, env, pm)

	assert.GreaterOrEqual(t, am.RatingDelta, 20)
	assert.LessOrEqual(t, am.RatingDelta, 30)
	delta := am.RatingDelta

	// evidence before the draft is finished is rejected
	_, err := env.Services.Settlement.SubmitResultEvidence(ctx, players[0].ID, pm.ID, "screenshot-1")
	assert.ErrorIs(t, err, domain.ErrWrongPhase)
	_, err = env.Services.Settlement.ConfirmWin(ctx, pm.ID, domain.SideCT)
	assert.ErrorIs(t, err, domain.ErrWrongPhase)

	// ban through the pool
	for am.Phase == domain.PhaseBan {
		am, err = env.Services.Draft.SubmitBan(ctx, am.TurnHolder(), pm.ID, am.Available[0])
		require.NoError(t, err)
	}
	assert.Equal(t, domain.PhasePick, am.Phase)
	assert.Equal(t, domain.SideT, am.Turn)
	require.Len(t, am.Unassigned, 2)

	// one pick resolves a 2x2: the last player auto-assigns
	am, err = env.Services.Draft.SubmitPick(ctx, am.TurnHolder(), pm.ID, am.Unassigned[0].PlayerID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseDone, am.Phase)
	assert.Len(t, am.Teams[domain.SideCT], 2)
	assert.Len(t, am.Teams[domain.SideT], 2)

	// evidence now lands
	am, err = env.Services.Settlement.SubmitResultEvidence(ctx, am.Roster[0].PlayerID, pm.ID, "screenshot-1")
	require.NoError(t, err)
	require.Len(t, am.Evidence, 1)

	winners := am.Teams[domain.SideT]
	losers := am.Teams[domain.SideCT]

	_, err = env.Services.Settlement.ConfirmWin(ctx, pm.ID, domain.SideT)
	require.NoError(t, err)

	for _, p := range winners {
		updated, err := env.Repos.Player.GetByID(ctx, p.PlayerID)
		require.NoError(t, err)
		assert.Equal(t, 1000+delta, updated.Rating)
		assert.Equal(t, 1, updated.Matches)
		assert.Equal(t, 1, updated.Wins)
		assert.Equal(t, domain.LevelForRating(1000+delta), updated.Level)
	}
	for _, p := range losers {
		updated, err := env.Repos.Player.GetByID(ctx, p.PlayerID)
		require.NoError(t, err)
		assert.Equal(t, 1000-delta, updated.Rating)
		assert.Equal(t, 1, updated.Matches)
		assert.Equal(t, 0, updated.Wins)
	}

	assert.Equal(t, domain.StatusCompleted, matchStatus(t, env, pm.ID))

	// settlement is terminal
	_, err = env.Services.Draft.Get(ctx, pm.ID)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
	_, err = env.Services.Settlement.ConfirmWin(ctx, pm.ID, domain.SideCT)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
}

func TestCancelAndNullify(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx := context.Background()
	players := testutil.CreatePlayers(t, env.DB.DB, 2)
	pm := fillSlot(t, env, domain.Mode1x1, 0, players)
	am := acceptAll(t, env, pm)

	outsider := testutil.NewPlayerBuilder().Build(t, env.DB.DB)
	_, err := env.Services.Settlement.NullifyOne(ctx, pm.ID, outsider.ID)
	assert.ErrorIs(t, err, domain.ErrNotInMatch)

	am, err = env.Services.Settlement.NullifyOne(ctx, pm.ID, am.Roster[0].PlayerID)
	require.NoError(t, err)
	assert.True(t, am.IsVoided(am.Roster[0].PlayerID))

	// the mark is idempotent
	am, err = env.Services.Settlement.NullifyOne(ctx, pm.ID, am.Roster[0].PlayerID)
	require.NoError(t, err)
	assert.Len(t, am.Voided, 1)

	// cancel works mid-ban and moves no ratings
	require.NoError(t, env.Services.Settlement.CancelAll(ctx, pm.ID))
	assert.Equal(t, domain.StatusCancelled, matchStatus(t, env, pm.ID))
	for _, p := range players {
		updated, err := env.Repos.Player.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1000, updated.Rating)
		assert.Equal(t, 0, updated.Matches)
	}
	_, err = env.Services.Draft.Get(ctx, pm.ID)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)

	// a stale step wake after cancellation is harmless
	env.Clock.Advance(env.Config.StepWindow)
	assert.Equal(t, domain.StatusCancelled, matchStatus(t, env, pm.ID))
}

func TestDraftNotificationsFollowTheTurn(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx := context.Background()
	players := testutil.CreatePlayers(t, env.DB.DB, 2)
	pm := fillSlot(t, env, domain.Mode1x1, 0, players)
	am := acceptAll(t, env, pm)

	holder := am.TurnHolder()
	_, err := env.Services.Draft.SubmitBan(ctx, holder, pm.ID, am.Available[0])
	require.NoError(t, err)

	// the new holder's card was edited in place with the ban prompt
	next := am.Captains[am.Turn.Opposite()]
	msgs := env.Notifier.MessagesFor(next)
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.True(t, last.Edited)
	assert.True(t, strings.Contains(last.Text, "ban phase"))
}

func TestMatchLookupErrors(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx := context.Background()

	missing := uuid.New()
	_, err := env.Services.Accept.Accept(ctx, 1, missing)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
	_, err = env.Services.Draft.SubmitBan(ctx, 1, missing, "Temple")
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
	err = env.Services.Settlement.CancelAll(ctx, missing)
	assert.True(t, errors.Is(err, domain.ErrMatchNotFound))
}
