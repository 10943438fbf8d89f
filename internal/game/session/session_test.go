package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/imposter/internal/game/clock"
	"github.com/cory-johannsen/imposter/internal/game/random"
	"github.com/cory-johannsen/imposter/internal/game/words"
)

func names(players []Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.Name
	}
	return out
}

func TestRegister_PreservesOrderAndBroadcasts(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")

	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names(f.s.Players()))
	// Alice hears all three registrations, Carol only her own.
	assert.Len(t, f.j.filter("Alice", "state"), 3)
	assert.Len(t, f.j.filter("Carol", "state"), 1)
	for _, e := range f.j.filter("", "state") {
		assert.Equal(t, StateWaitingForPlayers, e.state)
	}
}

func TestRegister_DefaultPlayerFields(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice")

	p := f.s.Players()[0]
	assert.Equal(t, Player{Name: "Alice", Alive: true}, p)
}

func TestRegister_TrimsName(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	require.NoError(t, f.s.Register("  Alice ", &recorder{name: "Alice", j: f.j}))
	assert.Equal(t, []string{"Alice"}, names(f.s.Players()))
}

func TestRegister_CapacityExceeded(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "P1", "P2", "P3", "P4", "P5", "P6")

	err := f.s.Register("P7", &recorder{name: "P7", j: f.j})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.ErrorIs(t, err, ErrRegistration)
	assert.Len(t, f.s.Players(), 6)
}

func TestRegister_NameTaken(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob")

	err := f.s.Register("Alice", &recorder{name: "Alice", j: f.j})
	assert.ErrorIs(t, err, ErrNameTaken)
	assert.ErrorIs(t, err, ErrRegistration)
	assert.Equal(t, []string{"Alice", "Bob"}, names(f.s.Players()))
}

func TestRegister_InvalidName(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	assert.ErrorIs(t, f.s.Register("   ", &recorder{j: f.j}), ErrInvalidName)
	assert.Error(t, f.s.Register("Alice", nil))
	assert.Empty(t, f.s.Players())
}

func TestRegister_NotAcceptingAfterStart(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())

	err := f.s.Register("Dave", &recorder{name: "Dave", j: f.j})
	assert.ErrorIs(t, err, ErrNotAcceptingPlayers)
	assert.ErrorIs(t, err, ErrRegistration)
	assert.Len(t, f.s.Players(), 3)
}

func TestUnregister_OnlyInLobby(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol", "Dave")

	assert.True(t, f.s.Unregister("Bob"))
	assert.False(t, f.s.Unregister("Bob"))
	assert.Equal(t, []string{"Alice", "Carol", "Dave"}, names(f.s.Players()))

	require.NoError(t, f.s.Start())
	assert.False(t, f.s.Unregister("Carol"))
	assert.Len(t, f.s.Players(), 3)
}

func TestStart_InsufficientPlayers(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob")

	err := f.s.Start()
	assert.ErrorIs(t, err, ErrInsufficientPlayers)
	assert.Equal(t, StateWaitingForPlayers, f.s.State())
	assert.Equal(t, 0, f.clk.Pending())
}

func TestStart_Twice(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())

	assert.ErrorIs(t, f.s.Start(), ErrInvalidTransition)
	assert.Equal(t, StateWordDistribution, f.s.State())
}

func TestStart_AssignsExactlyOneImposterWithoutWord(t *testing.T) {
	f := newFixture(t, DefaultOptions(), 1, 0) // Bob, "apple"
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())

	imposters := 0
	for _, p := range f.s.Players() {
		if p.IsImposter {
			imposters++
			assert.Equal(t, "Bob", p.Name)
			assert.Empty(t, p.Word)
			assert.Equal(t, "Hint: fruit", p.Hint)
		} else {
			assert.Equal(t, "apple", p.Word)
			assert.Equal(t, "fruit", p.Hint)
		}
	}
	assert.Equal(t, 1, imposters)

	assigned := f.j.filter("", "word")
	require.Len(t, assigned, 3)
	for _, e := range assigned {
		if e.player == "Bob" {
			assert.True(t, e.assignment.IsImposter)
			assert.Empty(t, e.assignment.Word)
			assert.NotContains(t, e.assignment.Hint, "apple")
		} else {
			assert.False(t, e.assignment.IsImposter)
			assert.Equal(t, "apple", e.assignment.Word)
		}
	}
}

func TestStart_BroadcastsStartingThenWordDistribution(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())

	var states []State
	for _, e := range f.j.filter("Alice", "state") {
		states = append(states, e.state)
	}
	assert.Equal(t, []State{
		StateWaitingForPlayers, StateWaitingForPlayers, StateWaitingForPlayers,
		StateStarting, StateWordDistribution,
	}, states)
	assert.NotEmpty(t, f.s.Status().GameID)
}

func TestRound1_BeginsAfterStartDelay(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())

	f.clk.Advance(3*time.Second - time.Millisecond)
	assert.Equal(t, StateWordDistribution, f.s.State())

	f.clk.Advance(time.Millisecond)
	assert.Equal(t, StateRound1, f.s.State())

	turns := f.j.filter("", "turn")
	require.Len(t, turns, 1)
	assert.Equal(t, "Alice", turns[0].player)
	assert.True(t, turns[0].yourTurn)
	assert.Equal(t, 30*time.Second, turns[0].limit)

	st := f.s.Status()
	assert.Equal(t, 1, st.Round)
	assert.Equal(t, "Alice", st.ActivePlayer)
}

func TestTurnAction_AdvancesAndBroadcasts(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())
	f.clk.Advance(3 * time.Second)

	assert.True(t, f.s.SubmitTurnAction("Alice", "  it is sweet  "))

	chats := f.j.filter("", "chat")
	require.Len(t, chats, 3)
	for _, c := range chats {
		assert.Equal(t, "Alice", c.speaker)
		assert.Equal(t, "it is sweet", c.message)
	}
	aliceTurns := f.j.filter("Alice", "turn")
	require.Len(t, aliceTurns, 2)
	assert.False(t, aliceTurns[1].yourTurn)
	assert.Equal(t, time.Duration(0), aliceTurns[1].limit)
	assert.Equal(t, "Bob", f.s.Status().ActivePlayer)

	// Alice's cancelled countdown must not end Bob's turn early.
	f.clk.Advance(29 * time.Second)
	assert.Equal(t, "Bob", f.s.Status().ActivePlayer)
	f.clk.Advance(time.Second)
	assert.Equal(t, "Carol", f.s.Status().ActivePlayer)
	assert.Len(t, f.j.filter("Alice", "turn"), 2, "Alice's turn ended exactly once")
}

func TestTurnAction_OffTurnIsNoOp(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())
	f.clk.Advance(3 * time.Second)

	before := len(f.j.all())
	assert.False(t, f.s.SubmitTurnAction("Bob", "not my turn"))
	assert.False(t, f.s.SubmitTurnAction("Mallory", "who am I"))
	assert.False(t, f.s.SubmitTurnAction("Alice", "   "))

	assert.Len(t, f.j.all(), before)
	assert.Equal(t, "Alice", f.s.Status().ActivePlayer)
	assert.Empty(t, f.j.filter("", "chat"))
}

func TestTurnAction_OutsideRoundIsNoOp(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	assert.False(t, f.s.SubmitTurnAction("Alice", "too early"))

	require.NoError(t, f.s.Start())
	assert.False(t, f.s.SubmitTurnAction("Alice", "still too early"))
	assert.Empty(t, f.j.filter("", "chat"))
}

func TestTurnTimeout_NotifiesAndAdvances(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())
	f.clk.Advance(3 * time.Second)

	f.clk.Advance(30 * time.Second)
	aliceTurns := f.j.filter("Alice", "turn")
	require.Len(t, aliceTurns, 2)
	assert.True(t, aliceTurns[0].yourTurn)
	assert.False(t, aliceTurns[1].yourTurn)
	assert.Equal(t, "Bob", f.s.Status().ActivePlayer)
	assert.Empty(t, f.j.filter("", "chat"))
}

func TestRounds_VisitEveryPlayerInOrder(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol", "Dave")
	require.NoError(t, f.s.Start())

	var seen []State
	for i := 0; i < 1000 && f.s.State() != StateVoting; i++ {
		f.clk.Advance(time.Second)
		if st := f.s.State(); len(seen) == 0 || seen[len(seen)-1] != st {
			seen = append(seen, st)
		}
	}
	require.Equal(t, StateVoting, f.s.State())
	assert.Equal(t, []State{StateWordDistribution, StateRound1, StateRound2, StateRound3, StateVoting}, seen[len(seen)-5:])

	order := []string{"Alice", "Bob", "Carol", "Dave"}
	var want []string
	for r := 0; r < Rounds; r++ {
		want = append(want, order...)
	}
	assert.Equal(t, want, f.j.turnStarts())
}

func TestRounds_GapBetweenRounds(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())
	f.clk.Advance(3 * time.Second)

	for _, n := range []string{"Alice", "Bob", "Carol"} {
		require.True(t, f.s.SubmitTurnAction(n, "clue"))
	}
	assert.Equal(t, StateRound1, f.s.State())
	assert.Empty(t, f.s.Status().ActivePlayer)

	f.clk.Advance(2*time.Second - time.Millisecond)
	assert.Equal(t, StateRound1, f.s.State())
	f.clk.Advance(time.Millisecond)
	assert.Equal(t, StateRound2, f.s.State())
	assert.Equal(t, "Alice", f.s.Status().ActivePlayer)
}

func TestTurnEndsExactlyOnce_ActionRacingTimeout(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())
	f.clk.Advance(3 * time.Second)

	// Hold the session lock while the countdown comes due so the callback
	// either blocks on the lock or is cancelled before it runs.
	f.s.mu.Lock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.clk.Advance(30 * time.Second)
	}()
	// The clock reaches the deadline before invoking the callback.
	require.Eventually(t, func() bool { return f.clk.Now() == 33*time.Second }, time.Second, time.Millisecond)
	accepted := f.s.submitTurnActionLocked("Alice", "clue")
	f.s.mu.Unlock()
	<-done

	require.True(t, accepted)
	aliceTurns := f.j.filter("Alice", "turn")
	require.Len(t, aliceTurns, 2, "exactly one turn end for Alice")
	assert.Equal(t, "Bob", f.s.Status().ActivePlayer, "stale countdown must not skip Bob")
}

func TestTurnEndsExactlyOnce_RealClock(t *testing.T) {
	opts := DefaultOptions()
	opts.TurnLimit = 2 * time.Millisecond
	opts.StartDelay = 0
	opts.RoundDelay = 0
	opts.VotingWindow = time.Hour

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	j := &journal{}
	assigner := NewAssigner(random.NewPicker(random.NewSeededSource(1), logger), words.DefaultTable())
	s := New(opts, assigner, clock.Real(), logger)
	players := []string{"Alice", "Bob", "Carol"}
	for _, n := range players {
		require.NoError(t, s.Register(n, &recorder{name: n, j: j}))
	}
	require.NoError(t, s.Start())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for _, n := range players {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				s.SubmitTurnAction(n, "clue")
				time.Sleep(time.Millisecond)
			}
		}()
	}
	require.Eventually(t, func() bool { return s.State() == StateVoting }, 10*time.Second, 5*time.Millisecond)
	close(stop)
	wg.Wait()
	s.Replay()

	for _, n := range players {
		var starts, ends int
		for _, e := range j.filter(n, "turn") {
			if e.yourTurn {
				starts++
			} else {
				ends++
			}
		}
		assert.Equal(t, Rounds, starts, "%s turn starts", n)
		assert.Equal(t, Rounds, ends, "%s turn ends", n)
	}
	assert.Equal(t, []string{"Alice", "Bob", "Carol", "Alice", "Bob", "Carol", "Alice", "Bob", "Carol"}, j.turnStarts())
}

func TestVoting_ResetsVotesAndArmsWindow(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())
	f.advanceUntil(t, StateVoting)

	for _, p := range f.s.Players() {
		assert.Equal(t, 0, p.Votes)
	}
	assert.Equal(t, StateVoting, f.j.filter("Carol", "state")[len(f.j.filter("Carol", "state"))-1].state)

	f.clk.Advance(30*time.Second - time.Millisecond)
	assert.Equal(t, StateVoting, f.s.State())
	f.clk.Advance(time.Millisecond)
	assert.Equal(t, StateGameOver, f.s.State())
}

func TestScenario_ImposterCaught(t *testing.T) {
	f := newFixture(t, DefaultOptions(), 1, 3) // Bob is the imposter
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())

	assigned := f.j.filter("", "word")
	require.Len(t, assigned, 3)
	imposters := 0
	for _, w := range assigned {
		if w.assignment.IsImposter {
			imposters++
		}
	}
	assert.Equal(t, 1, imposters)
	assert.Equal(t, "Bob", f.imposter(t))

	f.advanceUntil(t, StateVoting)
	assert.True(t, f.s.SubmitVote("Alice", "Bob"))
	assert.True(t, f.s.SubmitVote("Carol", "Bob"))
	f.advanceUntil(t, StateGameOver)

	results := f.j.filter("", "result")
	require.Len(t, results, 3)
	won := map[string]bool{}
	for _, r := range results {
		assert.Equal(t, "Bob", r.imposter)
		won[r.player] = r.won
	}
	assert.Equal(t, map[string]bool{"Alice": true, "Bob": false, "Carol": true}, won)

	out, ok := f.s.Outcome()
	require.True(t, ok)
	assert.Equal(t, "Bob", out.Accused)
	assert.True(t, out.Caught)
	assert.Equal(t, map[string]int{"Alice": 0, "Bob": 2, "Carol": 0}, out.Votes)
}

func TestScenario_InnocentAccused(t *testing.T) {
	f := newFixture(t, DefaultOptions(), 0, 3) // Alice is the imposter
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())
	f.advanceUntil(t, StateVoting)

	f.s.SubmitVote("Alice", "Bob")
	f.s.SubmitVote("Carol", "Bob")
	f.advanceUntil(t, StateGameOver)

	won := map[string]bool{}
	for _, r := range f.j.filter("", "result") {
		assert.Equal(t, "Alice", r.imposter)
		won[r.player] = r.won
	}
	assert.Equal(t, map[string]bool{"Alice": true, "Bob": false, "Carol": false}, won)

	out, _ := f.s.Outcome()
	assert.Equal(t, "Bob", out.Accused)
	assert.False(t, out.Caught)
}

func TestVoting_TieGoesToEarliestRegistered(t *testing.T) {
	f := newFixture(t, DefaultOptions(), 2, 0)
	f.register(t, "Alice", "Bob", "Carol", "Dave")
	require.NoError(t, f.s.Start())
	f.advanceUntil(t, StateVoting)

	f.s.SubmitVote("Alice", "Dave")
	f.s.SubmitVote("Bob", "Carol")
	f.s.SubmitVote("Dave", "Carol")
	f.s.SubmitVote("Carol", "Dave")
	f.advanceUntil(t, StateGameOver)

	out, _ := f.s.Outcome()
	assert.Equal(t, "Carol", out.Accused)
	assert.True(t, out.Caught)
}

func TestVoting_NoVotesAccusesFirstPlayer(t *testing.T) {
	f := newFixture(t, DefaultOptions(), 1, 0)
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())
	f.advanceUntil(t, StateGameOver)

	out, ok := f.s.Outcome()
	require.True(t, ok)
	assert.Equal(t, "Alice", out.Accused)
	assert.False(t, out.Caught)
}

func TestVoting_OneVotePerPlayer(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())
	f.advanceUntil(t, StateVoting)

	assert.True(t, f.s.SubmitVote("Alice", "Bob"))
	assert.False(t, f.s.SubmitVote("Alice", "Bob"))
	assert.False(t, f.s.SubmitVote("Alice", "Carol"))
	assert.False(t, f.s.SubmitVote("Mallory", "Carol"), "unregistered voter")
	assert.False(t, f.s.SubmitVote("Bob", "Nobody"), "unknown target")

	votes := map[string]int{}
	for _, p := range f.s.Players() {
		votes[p.Name] = p.Votes
	}
	assert.Equal(t, map[string]int{"Alice": 0, "Bob": 1, "Carol": 0}, votes)
}

func TestVoting_PermissiveAllowsRepeatVotes(t *testing.T) {
	opts := DefaultOptions()
	opts.OneVotePerPlayer = false
	f := newFixture(t, opts)
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())
	f.advanceUntil(t, StateVoting)

	for i := 0; i < 3; i++ {
		assert.True(t, f.s.SubmitVote("Alice", "Carol"))
	}
	assert.True(t, f.s.SubmitVote("Spectator", "Carol"))
	assert.Equal(t, 4, f.s.Players()[2].Votes)
}

func TestVoting_OutsideVotingIsNoOp(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	assert.False(t, f.s.SubmitVote("Alice", "Bob"))

	require.NoError(t, f.s.Start())
	f.clk.Advance(3 * time.Second)
	assert.False(t, f.s.SubmitVote("Alice", "Bob"))
	for _, p := range f.s.Players() {
		assert.Equal(t, 0, p.Votes)
	}
}

func TestReplay_AfterGameOver(t *testing.T) {
	f := newFixture(t, DefaultOptions(), 1, 0)
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())
	f.advanceUntil(t, StateVoting)
	f.s.SubmitVote("Alice", "Bob")
	f.advanceUntil(t, StateGameOver)

	f.s.Replay()

	assert.Equal(t, StateWaitingForPlayers, f.s.State())
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names(f.s.Players()))
	for _, p := range f.s.Players() {
		assert.Equal(t, Player{Name: p.Name, Alive: true}, p)
	}
	st := f.s.Status()
	assert.Empty(t, st.GameID)
	assert.Equal(t, 0, st.Round)
	_, ok := f.s.Outcome()
	assert.False(t, ok)
	states := f.j.filter("Alice", "state")
	assert.Equal(t, StateWaitingForPlayers, states[len(states)-1].state)

	require.NoError(t, f.s.Start(), "same roster can play again without re-registering")
	f.clk.Advance(3 * time.Second)
	assert.Equal(t, StateRound1, f.s.State())
}

func TestReplay_MidRoundCancelsTimers(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())
	f.clk.Advance(10 * time.Second)
	require.Equal(t, StateRound1, f.s.State())

	f.s.Replay()
	assert.Equal(t, 0, f.clk.Pending())

	turnsBefore := len(f.j.filter("", "turn"))
	f.clk.Advance(5 * time.Minute)
	assert.Equal(t, StateWaitingForPlayers, f.s.State())
	assert.Len(t, f.j.filter("", "turn"), turnsBefore)
}

func TestClose_CancelsTimers(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())
	require.Positive(t, f.clk.Pending())

	f.s.Close()
	assert.Equal(t, 0, f.clk.Pending())
	f.clk.Advance(time.Minute)
	assert.Equal(t, StateWordDistribution, f.s.State())
}

func TestReplay_AllowsRegistrationAgain(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")
	require.NoError(t, f.s.Start())
	f.s.Replay()

	f.register(t, "Dave")
	assert.Len(t, f.s.Players(), 4)
}

func TestNotificationFailure_DoesNotAbortTransitions(t *testing.T) {
	f := newFixture(t, DefaultOptions(), 0, 0)
	f.register(t, "Alice", "Bob", "Carol")
	f.recorders["Alice"].fail = true
	f.recorders["Bob"].panic = true

	require.NoError(t, f.s.Start())
	f.clk.Advance(3 * time.Second)
	assert.Equal(t, StateRound1, f.s.State())
	assert.Len(t, f.j.filter("Carol", "word"), 1)

	f.advanceUntil(t, StateGameOver)
	assert.Len(t, f.j.filter("Carol", "result"), 1)
	assert.Equal(t, []string{"Carol", "Carol", "Carol"}, f.j.turnStarts())
}

func TestPlayers_ReturnsCopy(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.register(t, "Alice", "Bob", "Carol")

	snap := f.s.Players()
	snap[0].Name = "Mallory"
	snap[1].Votes = 99
	assert.Equal(t, "Alice", f.s.Players()[0].Name)
	assert.Equal(t, 0, f.s.Players()[1].Votes)
}

func TestPlayer_Redacted(t *testing.T) {
	p := Player{Name: "Bob", IsImposter: true, Hint: "Hint: fruit", Alive: true, Votes: 2}
	r := p.Redacted()
	assert.Equal(t, Player{Name: "Bob", Alive: true, Votes: 2}, r)
	assert.True(t, p.IsImposter, "original untouched")
}

func TestNew_PanicsOnInvalidBounds(t *testing.T) {
	logger := zaptest.NewLogger(t)
	assigner := NewAssigner(random.NewPicker(random.NewSeededSource(1), logger), words.DefaultTable())
	opts := DefaultOptions()
	opts.MaxPlayers = 7
	assert.Panics(t, func() { New(opts, assigner, clock.NewManual(), logger) })
	assert.Panics(t, func() { New(DefaultOptions(), nil, clock.NewManual(), logger) })
}

func TestState_Round(t *testing.T) {
	assert.Equal(t, 1, StateRound1.Round())
	assert.Equal(t, 3, StateRound3.Round())
	assert.Equal(t, 0, StateVoting.Round())
	assert.True(t, StateRound2.IsRound())
	assert.False(t, StateWordDistribution.IsRound())
	assert.Equal(t, "GAME_OVER", StateGameOver.String())
}

func TestErrors_RegistrationCategory(t *testing.T) {
	for _, err := range []error{ErrCapacityExceeded, ErrNotAcceptingPlayers, ErrNameTaken, ErrInvalidName} {
		assert.True(t, errors.Is(err, ErrRegistration), "%v", err)
	}
	assert.False(t, errors.Is(ErrInsufficientPlayers, ErrRegistration))
	assert.False(t, errors.Is(ErrCapacityExceeded, ErrNameTaken))
}

func TestPropertyRegistrationRosterUniqueAndOrdered(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		logger := zaptest.NewLogger(t)
		assigner := NewAssigner(random.NewPicker(random.NewSeededSource(1), logger), words.DefaultTable())
		s := New(DefaultOptions(), assigner, clock.NewManual(), logger)
		j := &journal{}

		attempts := rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b", "c", "d", "e", "f", "g", "h"}), 0, 20).Draw(rt, "names")
		var want []string
		seen := map[string]bool{}
		for _, n := range attempts {
			err := s.Register(n, &recorder{name: n, j: j})
			switch {
			case seen[n]:
				if !errors.Is(err, ErrNameTaken) && !errors.Is(err, ErrCapacityExceeded) {
					rt.Fatalf("duplicate %q: got %v", n, err)
				}
			case len(want) >= 6:
				if !errors.Is(err, ErrCapacityExceeded) {
					rt.Fatalf("7th player %q: got %v", n, err)
				}
			default:
				if err != nil {
					rt.Fatalf("register %q: %v", n, err)
				}
				seen[n] = true
				want = append(want, n)
			}
		}
		got := names(s.Players())
		if strings.Join(got, ",") != strings.Join(want, ",") {
			rt.Fatalf("roster %v, want %v", got, want)
		}
	})
}

func TestPropertyTallyStrictMaxEarliestTie(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		votes := rapid.SliceOfN(rapid.IntRange(0, 5), 1, 6).Draw(rt, "votes")
		players := make([]Player, len(votes))
		for i, v := range votes {
			players[i] = Player{Name: fmt.Sprintf("p%d", i), Votes: v}
		}
		accused, ok := Tally(players)
		if !ok {
			rt.Fatal("tally of non-empty roster must accuse someone")
		}
		max := 0
		for _, v := range votes {
			if v > max {
				max = v
			}
		}
		for i, v := range votes {
			if v == max {
				if accused != players[i].Name {
					rt.Fatalf("votes %v: accused %s, want %s", votes, accused, players[i].Name)
				}
				return
			}
		}
	})
}

func TestTally_Empty(t *testing.T) {
	_, ok := Tally(nil)
	assert.False(t, ok)
}

func TestPropertyExactlyOneImposterPerGame(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(3, 6).Draw(rt, "players")
		seed := rapid.Uint64().Draw(rt, "seed")

		logger := zaptest.NewLogger(t)
		assigner := NewAssigner(random.NewPicker(random.NewSeededSource(seed), logger), words.DefaultTable())
		s := New(DefaultOptions(), assigner, clock.NewManual(), logger)
		j := &journal{}
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("P%d", i)
			if err := s.Register(name, &recorder{name: name, j: j}); err != nil {
				rt.Fatalf("register: %v", err)
			}
		}
		if err := s.Start(); err != nil {
			rt.Fatalf("start: %v", err)
		}

		imposters := 0
		var shared string
		for _, p := range s.Players() {
			if p.IsImposter {
				imposters++
			} else {
				shared = p.Word
			}
		}
		if imposters != 1 {
			rt.Fatalf("%d imposters", imposters)
		}
		for _, e := range j.filter("", "word") {
			if e.assignment.IsImposter && (e.assignment.Word != "" || strings.Contains(e.assignment.Hint, shared)) {
				rt.Fatalf("imposter payload leaks word %q: %+v", shared, e.assignment)
			}
		}
	})
}
