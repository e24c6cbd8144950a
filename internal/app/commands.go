package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"findemybot/internal/remind"
	kit "findemybot/internal/transport"
	logx "findemybot/pkg/logx"
)

// dispatchLoop consumes inbound Telegram updates. Only two commands
// exist, both owner-only: /resync and /status.
func (a *App) dispatchLoop(ctx context.Context, updates <-chan kit.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if u.Message == nil {
				continue
			}
			a.handleCommand(ctx, u.Message)
		}
	}
}

func (a *App) handleCommand(ctx context.Context, m *kit.Message) {
	cmd := strings.ToLower(strings.TrimSpace(m.Text))
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	if cmd != "/resync" && cmd != "/status" {
		return
	}
	if !a.isOwner(m.FromID) {
		a.log.Debug("command from non-owner ignored",
			logx.Int64("from", m.FromID), logx.String("cmd", cmd))
		return
	}

	reply := kit.ChatTarget{ChatID: m.ChatID, ThreadID: m.ThreadID}
	switch cmd {
	case "/resync":
		a.sendText(ctx, reply, "Resync dimulai...")
		go func() {
			a.resyncDetached()
			done := a.runCtx()
			if done == nil {
				return
			}
			sctx, cancel := context.WithTimeout(done, 10*time.Second)
			defer cancel()
			a.sendText(sctx, reply, a.statusText())
		}()
	case "/status":
		a.sendText(ctx, reply, a.statusText())
	}
}

func (a *App) isOwner(userID int64) bool {
	cfg := a.cfgm.Get()
	if cfg == nil || len(cfg.Telegram.OwnerUserIDs) == 0 {
		return false
	}
	for _, id := range cfg.Telegram.OwnerUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (a *App) statusText() string {
	var b strings.Builder
	b.WriteString("findemybot status\n")

	snap := a.sched.Snapshot()
	var pending []string
	for _, e := range snap.Entries {
		if e.Spec != "" || !strings.HasPrefix(e.Tag, remind.TagPrefix) {
			continue
		}
		pending = append(pending, fmt.Sprintf("  %s: %s", e.Tag, e.Next.Format("Mon 02 Jan 15:04")))
	}
	fmt.Fprintf(&b, "pending reminders: %d\n", len(pending))
	for _, line := range pending {
		b.WriteString(line + "\n")
	}

	hist := a.notif.Snapshot()
	fmt.Fprintf(&b, "deliveries (session): %d\n", len(hist))
	n := 5
	if len(hist) < n {
		n = len(hist)
	}
	for _, h := range hist[len(hist)-n:] {
		line := h.Text
		if i := strings.IndexByte(line, '\n'); i > 0 {
			line = line[:i]
		}
		fmt.Fprintf(&b, "  %s %s\n", h.At.Format("15:04"), line)
	}
	return b.String()
}

func (a *App) sendText(ctx context.Context, to kit.ChatTarget, text string) {
	if _, err := a.adapter.SendText(ctx, to, text, nil); err != nil {
		a.log.Debug("command reply failed", logx.Err(err))
	}
}
