// Package analytics aggregates persisted game sessions into daily usage
// statistics for the operator report.
package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"fourmind/internal/session"
)

// DailyStats summarizes one day of games.
type DailyStats struct {
	Date             string         `json:"date"`
	Games            int            `json:"games"`
	Messages         int            `json:"messages"`
	BotMessages      int            `json:"bot_messages"`
	EnrichedMessages int            `json:"enriched_messages"`
	ByLanguage       map[string]int `json:"by_language"`
	AvgDurationSec   int            `json:"avg_duration_sec"`
}

// AnalyzeDailyGames aggregates the snapshots whose games started on the
// target date.
func AnalyzeDailyGames(snaps []session.Snapshot, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := &DailyStats{
		Date:       startOfDay.Format("2006-01-02"),
		ByLanguage: make(map[string]int),
	}

	var totalDuration time.Duration
	for _, snap := range snaps {
		if snap.StartTime.Before(startOfDay) || !snap.StartTime.Before(endOfDay) {
			continue
		}
		stats.Games++
		stats.ByLanguage[snap.Language]++
		totalDuration += snap.LastMessageTime.Sub(snap.StartTime)

		for _, msg := range snap.Messages {
			stats.Messages++
			if msg.Sender == snap.Bot {
				stats.BotMessages++
			}
			if msg.Enriched() {
				stats.EnrichedMessages++
			}
		}
	}
	if stats.Games > 0 {
		stats.AvgDurationSec = int(totalDuration.Seconds()) / stats.Games
	}
	return stats
}

// Summary renders the stats as a plain-text report.
func (ds *DailyStats) Summary() string {
	out := fmt.Sprintf(`FourMind games for %s:

- Games played: %d
- Messages total: %d (bot: %d)
- Messages enriched: %d
- Average game length: %ds
`, ds.Date, ds.Games, ds.Messages, ds.BotMessages, ds.EnrichedMessages, ds.AvgDurationSec)

	if len(ds.ByLanguage) > 0 {
		out += "\nLanguages:\n"
		langs := make([]string, 0, len(ds.ByLanguage))
		for lang := range ds.ByLanguage {
			langs = append(langs, lang)
		}
		sort.Strings(langs)
		for _, lang := range langs {
			out += fmt.Sprintf("- %s: %d\n", lang, ds.ByLanguage[lang])
		}
	}
	return out
}

// ToJSON serializes the stats for detailed inspection.
func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
