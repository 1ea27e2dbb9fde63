package notifier

import (
	"context"
	"strings"

	"VIXBar/internal/calculator"
	"VIXBar/internal/loginitem"
	"VIXBar/internal/state"
)

// Fetcher runs a synchronous fetch cycle.
type Fetcher interface {
	FetchOnce(ctx context.Context) bool
}

// Commands maps chat commands onto the store, poller and login item.
type Commands struct {
	Symbol string
	Store  *state.Store
	Poller Fetcher
	Login  loginitem.Manager
	Quit   func()
}

// HandleCommand processes a user command and returns a reply.
func (c *Commands) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return FormatHelp()
	}
	// "/vix@SomeBot" in group chats
	name := strings.SplitN(fields[0], "@", 2)[0]
	args := fields[1:]

	switch name {
	case "/vix", "/status":
		return FormatStatus(c.Symbol, c.Store.Latest())
	case "/refresh":
		if !c.Poller.FetchOnce(ctx) {
			return "⚠️ Refresh failed, showing last value\n" + FormatStatus(c.Symbol, c.Store.Latest())
		}
		return FormatStatus(c.Symbol, c.Store.Latest())
	case "/history":
		summary, err := calculator.Summarize(c.Store.History(), calculator.DefaultSMAPeriod)
		if err != nil {
			return "No history yet"
		}
		return FormatSummary(c.Symbol, summary)
	case "/login":
		return c.handleLogin(args)
	case "/quit":
		if c.Quit != nil {
			c.Quit()
		}
		return "👋 Stopping"
	default:
		return FormatHelp()
	}
}

func (c *Commands) handleLogin(args []string) string {
	if len(args) == 0 || args[0] == "status" {
		return FormatLoginStatus(c.Login.IsEnabled(), nil)
	}
	switch args[0] {
	case "on", "enable":
		actual, err := loginitem.Set(c.Login, true)
		return FormatLoginStatus(actual, err)
	case "off", "disable":
		actual, err := loginitem.Set(c.Login, false)
		return FormatLoginStatus(actual, err)
	default:
		return "Usage: /login status|on|off"
	}
}
