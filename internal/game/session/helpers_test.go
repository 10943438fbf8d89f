package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/imposter/internal/game/clock"
	"github.com/cory-johannsen/imposter/internal/game/random"
	"github.com/cory-johannsen/imposter/internal/game/words"
)

// fixedSource replays a fixed list of picks, each reduced modulo n.
type fixedSource struct {
	mu    sync.Mutex
	picks []int
	i     int
}

func (f *fixedSource) Intn(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.picks) == 0 {
		return 0
	}
	v := f.picks[f.i%len(f.picks)]
	f.i++
	return v % n
}

type entry struct {
	player     string
	kind       string
	state      State
	yourTurn   bool
	limit      time.Duration
	speaker    string
	message    string
	assignment PlayerAssignment
	imposter   string
	won        bool
}

// journal collects notifications from every recorder in delivery order.
type journal struct {
	mu      sync.Mutex
	entries []entry
}

func (j *journal) add(e entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
}

func (j *journal) all() []entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]entry(nil), j.entries...)
}

func (j *journal) filter(player, kind string) []entry {
	var out []entry
	for _, e := range j.all() {
		if (player == "" || e.player == player) && e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// turnStarts returns the players who were told it is their turn, in order.
func (j *journal) turnStarts() []string {
	var out []string
	for _, e := range j.filter("", "turn") {
		if e.yourTurn {
			out = append(out, e.player)
		}
	}
	return out
}

// recorder is a Notifier that writes to a shared journal.
type recorder struct {
	name  string
	j     *journal
	fail  bool
	panic bool
}

var errUnreachable = errors.New("player unreachable")

func (r *recorder) record(e entry) error {
	if r.panic {
		panic("transport exploded")
	}
	if r.fail {
		return errUnreachable
	}
	e.player = r.name
	r.j.add(e)
	return nil
}

func (r *recorder) TurnChanged(isYourTurn bool, timeLimit time.Duration) error {
	return r.record(entry{kind: "turn", yourTurn: isYourTurn, limit: timeLimit})
}

func (r *recorder) Chat(speaker, message string) error {
	return r.record(entry{kind: "chat", speaker: speaker, message: message})
}

func (r *recorder) WordAssigned(a PlayerAssignment) error {
	return r.record(entry{kind: "word", assignment: a})
}

func (r *recorder) VotingResult(imposterName string, yourSideWon bool) error {
	return r.record(entry{kind: "result", imposter: imposterName, won: yourSideWon})
}

func (r *recorder) StateChanged(state State) error {
	return r.record(entry{kind: "state", state: state})
}

type fixture struct {
	s         *Session
	clk       *clock.Manual
	j         *journal
	recorders map[string]*recorder
}

func newFixture(t *testing.T, opts Options, picks ...int) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	var src random.Source = &fixedSource{picks: picks}
	assigner := NewAssigner(random.NewPicker(src, logger), words.DefaultTable())
	clk := clock.NewManual()
	return &fixture{
		s:         New(opts, assigner, clk, logger),
		clk:       clk,
		j:         &journal{},
		recorders: make(map[string]*recorder),
	}
}

func (f *fixture) register(t *testing.T, names ...string) {
	t.Helper()
	for _, n := range names {
		r := &recorder{name: n, j: f.j}
		require.NoError(t, f.s.Register(n, r))
		f.recorders[n] = r
	}
}

// advanceUntil steps the clock one second at a time until the state matches.
func (f *fixture) advanceUntil(t *testing.T, want State) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if f.s.State() == want {
			return
		}
		f.clk.Advance(time.Second)
	}
	t.Fatalf("state %s never reached; stuck in %s", want, f.s.State())
}

func (f *fixture) imposter(t *testing.T) string {
	t.Helper()
	for _, p := range f.s.Players() {
		if p.IsImposter {
			return p.Name
		}
	}
	t.Fatal("no imposter assigned")
	return ""
}
