package duelpresenter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/park285/Cheese-Duel/internal/duel"
	"github.com/park285/Cheese-Duel/internal/msgcat"
	"github.com/park285/Cheese-Duel/internal/render"
	"github.com/park285/Cheese-Duel/internal/session"
	"github.com/park285/Cheese-Duel/pkg/dueldto"
)

type prefix string

func (p prefix) Prefix() string { return string(p) }

type noClock struct{}

func (noClock) Every(time.Duration, func()) func() { return func() {} }

func newFormatter(t *testing.T) *Formatter {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	return NewFormatter(cat, prefix("!"), 15, nil)
}

var (
	alice = duel.Player{ID: "u1", Name: "alice"}
	bob   = duel.Player{ID: "u2", Name: "bob"}
)

func play(t *testing.T, m *duel.Manager, user duel.Player, from, to string) *duel.MoveReply {
	t.Helper()
	reply, err := m.Move(context.Background(), "room", user, from, to)
	if err != nil || !reply.Result.Accepted() {
		t.Fatalf("move %s%s: %v %+v", from, to, err, reply)
	}
	return reply
}

func TestMoveAnnouncesCheck(t *testing.T) {
	f := newFormatter(t)
	m := duel.NewManager(duel.NewMemoryStore(time.Hour), nil, duel.Config{Scheduler: noClock{}}, nil)
	defer m.Close()
	if _, err := m.Open(context.Background(), "room", alice, bob); err != nil {
		t.Fatalf("Open: %v", err)
	}
	play(t, m, alice, "e2", "e4")
	play(t, m, bob, "f7", "f6")
	reply := play(t, m, alice, "d1", "h5")

	st := ToDTO(&reply.Snapshot)
	got := f.Move(st, "white")
	want := "alice: d1h5\n♚ bob 체크! 15초 안에 풀지 못하면 패배합니다."
	if got != want {
		t.Fatalf("Move text\n got: %q\nwant: %q", got, want)
	}
	if !strings.Contains(f.Status(st), "체크 시계 15초 남음") {
		t.Fatalf("status lacks clock: %q", f.Status(st))
	}
}

func TestStatusShowsOpeningAndResult(t *testing.T) {
	f := newFormatter(t)
	st := &dueldto.BoardState{
		White: dueldto.Seat{ID: "u1", Name: "alice"}, Black: dueldto.Seat{ID: "u2"},
		Turn: "black", MoveLog: []string{"e2e4", "e7e5"}, LastMove: "e7e5",
		OpeningCode: "C20", OpeningTitle: "King's Pawn Game",
		Finished: true, Winner: "black", Reason: string(session.EndResigned),
	}
	want := "♞ 대국 현황\n• 백: alice / 흑: u2\n• 진행 2수 (최근 e7e5)\n• 오프닝: C20 King's Pawn Game\n• 종료: u2 승 (기권)"
	if got := f.Status(st); got != want {
		t.Fatalf("status\n got: %q\nwant: %q", got, want)
	}
}

func TestRejectionTexts(t *testing.T) {
	f := newFormatter(t)
	if got := f.MoveRejected(session.ReasonIllegal, "e2e5"); got != "둘 수 없는 수입니다: e2e5" {
		t.Fatalf("illegal: %q", got)
	}
	if got := f.MoveRejected(session.ReasonFinished, ""); !strings.Contains(got, "!대국 초기화") {
		t.Fatalf("finished: %q", got)
	}
	st := &dueldto.BoardState{Turn: "black"}
	if got := f.NotYourTurn(st); got != "지금은 흑 차례입니다." {
		t.Fatalf("not your turn: %q", got)
	}
	if got := f.Resign(&dueldto.BoardState{Winner: "white", White: dueldto.Seat{Name: "alice"}}, true); got != "🏳️ 흑 기권.\n🏆 승자: alice" {
		t.Fatalf("resign: %q", got)
	}
	if got := f.ClockExpired("bob", "alice"); !strings.HasPrefix(got, "⌛ 시간 초과! bob") {
		t.Fatalf("expired: %q", got)
	}
}

func TestPresenterSendsTextThenImage(t *testing.T) {
	var sent []string
	p := NewPresenter(
		func(room, msg string) error { sent = append(sent, "text:"+msg); return nil },
		func(room, img string) error { sent = append(sent, "image:"+img); return nil },
	)
	if err := p.Board("room", "hi", &dueldto.BoardState{BoardImage: []byte("png")}); err != nil {
		t.Fatalf("Board: %v", err)
	}
	if err := p.Board("room", "  ", &dueldto.BoardState{}); err != nil {
		t.Fatalf("Board: %v", err)
	}
	if len(sent) != 2 || sent[0] != "text:hi" || sent[1] != "image:cG5n" {
		t.Fatalf("sent = %v", sent)
	}

	boom := errors.New("boom")
	p = NewPresenter(func(string, string) error { return boom }, nil)
	if err := p.Board("room", "hi", nil); !errors.Is(err, boom) {
		t.Fatalf("expected send error, got %v", err)
	}
}

func TestRenderBoardFromSnapshot(t *testing.T) {
	m := duel.NewManager(duel.NewMemoryStore(time.Hour), nil, duel.Config{Scheduler: noClock{}}, nil)
	defer m.Close()
	snap, err := m.Open(context.Background(), "room", alice, bob)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	img, err := RenderBoard(context.Background(), render.New(), snap)
	if err != nil || len(img) == 0 {
		t.Fatalf("RenderBoard: %d bytes, %v", len(img), err)
	}
	if got := hudStatus(snap); got != "white to move" {
		t.Fatalf("hud = %q", got)
	}
}
