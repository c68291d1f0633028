package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-Duel/internal/adapter/duelpresenter"
	"github.com/park285/Cheese-Duel/internal/bot"
	appcfg "github.com/park285/Cheese-Duel/internal/config"
	"github.com/park285/Cheese-Duel/internal/duelbuilder"
	"github.com/park285/Cheese-Duel/internal/irisfast"
	"github.com/park285/Cheese-Duel/internal/obslog"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	closeLog, err := obslog.Init(cfg.Log)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = closeLog() }()
	logger := obslog.L()

	client := irisfast.NewClient(cfg.IrisBaseURL,
		irisfast.WithHeaderProvider(cfg.IrisHeaders),
		irisfast.WithTimeout(8*time.Second),
		irisfast.WithRetry(cfg.IrisRetryMax),
	)

	// 연결 확인용. 실패해도 기동은 계속한다.
	pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
	if ic, err := client.GetConfig(pctx); err != nil {
		logger.Warn("iris_config_error", zap.Error(err))
	} else {
		logger.Info("iris_config", zap.String("bot", ic.BotName), zap.Int("rate", ic.MessageRate))
	}
	pcancel()

	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second, logger)
	ws.SetHeaderProvider(cfg.IrisHeaders)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("ws_state", zap.Stringer("state", state))
	})

	deps, err := duelbuilder.New(cfg, logger)
	if err != nil {
		logger.Fatal("duel_init_error", zap.Error(err))
	}

	egress := irisfast.NewEgress(cfg.Egress, cfg.EgressDryRun, client, ws, logger)
	presenter := duelpresenter.NewPresenter(
		func(room, message string) error { return egress.SendText(context.Background(), room, message) },
		func(room, imageBase64 string) error { return egress.SendImage(context.Background(), room, imageBase64) },
	)

	handler := bot.NewHandler(deps.Manager, deps.Formatter, presenter, deps.Renderer, bot.Config{
		Prefix:      cfg.BotPrefix,
		RoomAllowed: cfg.RoomAllowed,
	}, logger)
	deps.Manager.SetNotifier(handler.OnClock)

	ws.OnMessage(func(msg *irisfast.Message) {
		if msg == nil || msg.Msg == "" {
			return
		}
		// Avoid blocking the WS loop
		go handler.Handle(context.Background(), msg)
	})

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ws.Connect(cctx); err != nil {
		cancel()
		logger.Fatal("ws_connect_error", zap.Error(err))
	}
	cancel()
	logger.Info("duel_bot_started",
		zap.String("prefix", cfg.BotPrefix),
		zap.String("egress", cfg.Egress),
		zap.Int("check_clock", cfg.CheckClockUnits),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("duel_bot_stopping")

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	_ = ws.Close(sctx)
	deps.Close()
}
