// irischeck probes the Iris gateway and shows which incoming chat lines the
// duel bot would treat as commands. Nothing is sent back.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	appcfg "github.com/park285/Cheese-Duel/internal/config"
	"github.com/park285/Cheese-Duel/internal/command"
	"github.com/park285/Cheese-Duel/internal/irisfast"
)

func main() {
	watch := flag.Duration("watch", 10*time.Second, "how long to observe the WebSocket (0 skips it)")
	flag.Parse()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	client := irisfast.NewClient(cfg.IrisBaseURL,
		irisfast.WithHeaderProvider(cfg.IrisHeaders),
		irisfast.WithTimeout(8*time.Second),
		irisfast.WithRetry(cfg.IrisRetryMax),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ic, err := client.GetConfig(ctx)
	if err != nil {
		log.Printf("/config error: %v", err)
	} else {
		log.Printf("/config ok: bot=%s port=%d polling=%d rate=%d endpoint=%s", ic.BotName, ic.Port, ic.PollingSpeed, ic.MessageRate, ic.WebserverEndpoint)
	}

	if *watch <= 0 {
		return
	}

	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second, nil)
	ws.SetHeaderProvider(cfg.IrisHeaders)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		log.Printf("WS state: %s", state)
	})
	ws.OnMessage(func(msg *irisfast.Message) {
		allowed := cfg.RoomAllowed(msg.Room)
		cmd, ok := command.Parse(cfg.BotPrefix, msg.Msg)
		if !ok {
			fmt.Printf("WS msg room=%s from=%s text=%q\n", msg.Room, msg.SenderName(), msg.Msg)
			return
		}
		fmt.Printf("WS cmd room=%s from=%s kind=%s allowed=%t text=%q\n", msg.Room, msg.SenderName(), cmd.Kind, allowed, msg.Msg)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	// Observe for a short window
	t := time.NewTimer(*watch)
	<-t.C

	_ = ws.Close(context.Background())
}
