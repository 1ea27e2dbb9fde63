package notifier

import (
	"fmt"
	"strings"

	"VIXBar/internal/display"
	"VIXBar/internal/model"
)

// FormatStatus formats the current value for a chat reply.
func FormatStatus(symbol string, st model.State) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%s</b> %s\n", symbol, display.FormatValue(st.LatestValue)))
	if ts := display.FormatTime(st.LastUpdated); ts != "" {
		b.WriteString(fmt.Sprintf("Updated: %s\n", ts))
	} else {
		b.WriteString("No data yet\n")
	}
	return b.String()
}

// FormatSummary formats history statistics.
func FormatSummary(symbol string, s *model.HistorySummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s history</b> (%d samples)\n\n", symbol, s.Count))
	b.WriteString(fmt.Sprintf("Latest: %.2f\n", s.Latest))
	b.WriteString(fmt.Sprintf("Range: %.2f – %.2f (position %.0f%%)\n", s.Min, s.Max, s.Position*100))
	b.WriteString(fmt.Sprintf("Mean: %.2f ± %.2f\n", s.Mean, s.StdDev))
	b.WriteString(fmt.Sprintf("SMA%d: %.2f\n", s.SMAPeriod, s.SMA))
	return b.String()
}

// FormatLoginStatus formats the login-item state, with the error if a change failed.
func FormatLoginStatus(enabled bool, err error) string {
	state := "off"
	if enabled {
		state = "on"
	}
	msg := fmt.Sprintf("Launch at login: <b>%s</b>", state)
	if err != nil {
		msg += fmt.Sprintf("\n❌ %v", err)
	}
	return msg
}

// FormatHelp lists the available commands.
func FormatHelp() string {
	return "Available commands:\n" +
		"• /vix: current value\n" +
		"• /refresh: fetch now\n" +
		"• /history: history summary\n" +
		"• /login status|on|off: launch at login\n" +
		"• /quit: stop the process"
}
