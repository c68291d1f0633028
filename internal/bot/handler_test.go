package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/park285/Cheese-Duel/internal/adapter/duelpresenter"
	"github.com/park285/Cheese-Duel/internal/duel"
	"github.com/park285/Cheese-Duel/internal/irisfast"
	"github.com/park285/Cheese-Duel/internal/msgcat"
	"github.com/park285/Cheese-Duel/internal/render"
)

type prefix string

func (p prefix) Prefix() string { return string(p) }

type outbox struct {
	mu     sync.Mutex
	texts  []string
	images int
	signal chan struct{}
}

func newOutbox() *outbox { return &outbox{signal: make(chan struct{}, 64)} }

func (o *outbox) presenter() *duelpresenter.Presenter {
	return duelpresenter.NewPresenter(
		func(room, msg string) error {
			o.mu.Lock()
			o.texts = append(o.texts, msg)
			o.mu.Unlock()
			select {
			case o.signal <- struct{}{}:
			default:
			}
			return nil
		},
		func(room, img string) error {
			o.mu.Lock()
			o.images++
			o.mu.Unlock()
			return nil
		},
	)
}

func (o *outbox) last() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.texts) == 0 {
		return ""
	}
	return o.texts[len(o.texts)-1]
}

func (o *outbox) imageCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.images
}

type manualClock struct {
	mu    sync.Mutex
	tasks []func()
	dead  []bool
}

func (c *manualClock) Every(_ time.Duration, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := len(c.tasks)
	c.tasks = append(c.tasks, fn)
	c.dead = append(c.dead, false)
	return func() {
		c.mu.Lock()
		c.dead[idx] = true
		c.mu.Unlock()
	}
}

func (c *manualClock) Advance(units int) {
	for i := 0; i < units; i++ {
		c.mu.Lock()
		var live []func()
		for j, fn := range c.tasks {
			if !c.dead[j] {
				live = append(live, fn)
			}
		}
		c.mu.Unlock()
		for _, fn := range live {
			fn()
		}
	}
}

type fixture struct {
	h     *Handler
	out   *outbox
	clock *manualClock
}

func newFixture(t *testing.T, renderer *render.Renderer) *fixture {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	clock := &manualClock{}
	m := duel.NewManager(duel.NewMemoryStore(time.Hour), nil, duel.Config{ClockLength: 15, Scheduler: clock}, nil)
	t.Cleanup(m.Close)
	out := newOutbox()
	h := NewHandler(m, duelpresenter.NewFormatter(cat, prefix("!"), 15, nil), out.presenter(), renderer, Config{
		Prefix:      "!",
		RoomAllowed: func(room string) bool { return room != "blocked" },
	}, nil)
	m.SetNotifier(h.OnClock)
	return &fixture{h: h, out: out, clock: clock}
}

func (f *fixture) send(t *testing.T, id, name, text string) string {
	t.Helper()
	f.out.mu.Lock()
	before := len(f.out.texts)
	f.out.mu.Unlock()
	sender := name
	f.h.Handle(context.Background(), &irisfast.Message{Msg: text, Room: "room", Sender: &sender, JSON: &irisfast.MessageJSON{UserID: id}})
	f.out.mu.Lock()
	defer f.out.mu.Unlock()
	if len(f.out.texts) == before {
		return ""
	}
	return f.out.texts[len(f.out.texts)-1]
}

func (f *fixture) waitFor(t *testing.T, substr string) string {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if last := f.out.last(); strings.Contains(last, substr) {
			return last
		}
		select {
		case <-f.out.signal:
		case <-deadline:
			t.Fatalf("timed out waiting for %q, last = %q", substr, f.out.last())
		}
	}
}

func TestDuelConversation(t *testing.T) {
	f := newFixture(t, nil)

	if got := f.send(t, "u1", "alice", "!대국 e2 e4"); !strings.Contains(got, "진행 중인 대국이 없습니다") {
		t.Fatalf("no table reply: %q", got)
	}
	if got := f.send(t, "u1", "alice", "!대국 시작 @bob"); !strings.Contains(got, "• 흑: bob") {
		t.Fatalf("start reply: %q", got)
	}
	if got := f.send(t, "u2", "bob", "!대국 e7 e5"); !strings.Contains(got, "백 차례") {
		t.Fatalf("not-your-turn reply: %q", got)
	}
	if got := f.send(t, "u1", "alice", "!대국 e2 e5"); got != "둘 수 없는 수입니다: e2e5" {
		t.Fatalf("illegal reply: %q", got)
	}
	if got := f.send(t, "u1", "alice", "!대국 e2e4"); got != "alice: e2e4" {
		t.Fatalf("move reply: %q", got)
	}
	if got := f.send(t, "u3", "carol", "!대국 e7e5"); !strings.Contains(got, "참가자가 아닙니다") {
		t.Fatalf("carol reply: %q", got)
	}
	if got := f.send(t, "u2", "bob", "!대국 무르기"); !strings.Contains(got, "참가자가 아닙니다") {
		t.Fatalf("reserved seat may not undo before sitting: %q", got)
	}
	if got := f.send(t, "u2", "bob", "!대국 e7e5"); got != "bob: e7e5" {
		t.Fatalf("bob's move: %q", got)
	}
	if got := f.send(t, "u2", "bob", "!대국 무르기"); got != "↩️ 한 수 물렀습니다. 흑 차례입니다." {
		t.Fatalf("undo reply: %q", got)
	}
	if got := f.send(t, "u2", "bob", "!대국 다시"); !strings.Contains(got, "백 차례") {
		t.Fatalf("redo reply: %q", got)
	}
	if got := f.send(t, "u2", "bob", "!대국 승급 q"); !strings.Contains(got, "승급을 기다리는 폰이 없습니다") {
		t.Fatalf("promote reply: %q", got)
	}
	if got := f.send(t, "u1", "alice", "hello"); got != "" {
		t.Fatalf("plain chat answered: %q", got)
	}
	if got := f.send(t, "u2", "bob", "!대국 기권"); !strings.Contains(got, "승자: alice") {
		t.Fatalf("resign reply: %q", got)
	}
}

func TestClockNoticesReachRoom(t *testing.T) {
	f := newFixture(t, nil)
	f.send(t, "u1", "alice", "!대국 시작 @bob")
	f.send(t, "u1", "alice", "!대국 e2e4")
	f.send(t, "u2", "bob", "!대국 f7f6")
	if got := f.send(t, "u1", "alice", "!대국 d1h5"); !strings.Contains(got, "bob 체크!") {
		t.Fatalf("check reply: %q", got)
	}

	f.clock.Advance(5)
	f.waitFor(t, "남은 시간 10초")
	f.clock.Advance(10)
	got := f.waitFor(t, "시간 초과")
	if !strings.Contains(got, "bob 체크를 풀지 못했습니다") || !strings.Contains(got, "승자: alice") {
		t.Fatalf("expiry text: %q", got)
	}
	if got := f.send(t, "u2", "bob", "!대국 g7g6"); !strings.Contains(got, "이미 끝난 대국") {
		t.Fatalf("move after expiry: %q", got)
	}
}

func TestPromotionInOneMessage(t *testing.T) {
	f := newFixture(t, nil)
	f.send(t, "u1", "alice", "!대국 시작 @bob")
	for i, mv := range []struct{ id, name, text string }{
		{"u1", "alice", "!대국 h2h4"}, {"u2", "bob", "!대국 g7g5"},
		{"u1", "alice", "!대국 h4g5"}, {"u2", "bob", "!대국 h7h6"},
		{"u1", "alice", "!대국 g5h6"}, {"u2", "bob", "!대국 f8g7"},
		{"u1", "alice", "!대국 h6g7"}, {"u2", "bob", "!대국 a7a6"},
	} {
		if got := f.send(t, mv.id, mv.name, mv.text); !strings.Contains(got, ": ") {
			t.Fatalf("move %d (%s) failed: %q", i, mv.text, got)
		}
	}
	if got := f.send(t, "u1", "alice", "!대국 b2b4q"); !strings.Contains(got, "형식으로 입력해주세요") {
		t.Fatalf("piece on a plain move: %q", got)
	}
	got := f.send(t, "u1", "alice", "!대국 g7h8n")
	if !strings.Contains(got, "h8 폰이 나이트(으)로 승급했습니다") {
		t.Fatalf("promotion reply: %q", got)
	}
	if got := f.send(t, "u2", "bob", "!대국 a6a5"); got != "bob: a6a5" {
		t.Fatalf("turn did not pass after promotion: %q", got)
	}
}

func TestBoardImagesAndRoomFilter(t *testing.T) {
	f := newFixture(t, render.New())
	f.send(t, "u1", "alice", "!대국 시작")
	if f.out.imageCount() != 1 {
		t.Fatalf("start should send a board image")
	}
	f.send(t, "u1", "alice", "!대국 e2 e5")
	if f.out.imageCount() != 1 {
		t.Fatalf("rejected move must not send a board")
	}
	f.h.Handle(context.Background(), &irisfast.Message{Msg: "!대국 현황", Room: "blocked"})
	if f.out.imageCount() != 1 {
		t.Fatalf("blocked room answered")
	}
	if got := f.send(t, "u1", "alice", "!대국 현황"); !strings.Contains(got, "대국 현황") || f.out.imageCount() != 2 {
		t.Fatalf("board reply: %q images=%d", got, f.out.imageCount())
	}
}
