package drill

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
)

// Render formats the report as a summary box followed by a player table.
// verbose lists every player instead of the first few.
func (r *Report) Render(verbose bool) (string, error) {
	s := r.Stats
	var rate, throughput float64
	if n := s.Submitted.Load(); n > 0 {
		rate = float64(s.Accepted.Load()) / float64(n) * percentage
		if s.Duration > 0 {
			throughput = float64(n) / s.Duration.Seconds()
		}
	}

	summary := pterm.Sprintfln("Generated   %d", s.Generated) +
		pterm.Sprintfln("Submitted   %d", s.Submitted.Load()) +
		pterm.Sprintfln("Accepted    %s", pterm.LightGreen(fmt.Sprintf("%d (%.1f%%)", s.Accepted.Load(), rate))) +
		pterm.Sprintfln("Duplicates  %d", s.Duplicates.Load()) +
		pterm.Sprintfln("Throttled   %d", s.Throttled.Load()) +
		pterm.Sprintfln("Failed      %d", s.Failed.Load()) +
		pterm.Sprintf("Throughput  %.0f/s in %s", throughput, s.Duration.Round(time.Millisecond))
	box := pterm.DefaultBox.WithTitle("coach drill").Sprint(summary)

	rows := r.Results
	if !verbose && len(rows) > summaryRowsDefault {
		rows = rows[:summaryRowsDefault]
	}
	data := pterm.TableData{{"Player", "Played", "Correct", "Level", "Top focus", "Status"}}
	for _, res := range rows {
		status := pterm.LightGreen("ok")
		if len(res.Problems) > 0 {
			status = pterm.LightRed(strings.Join(res.Problems, "; "))
		}
		data = append(data, []string{
			res.PlayerID,
			strconv.Itoa(res.Played),
			strconv.Itoa(res.Correct),
			res.Level,
			res.Focus,
			status,
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", err
	}
	return box + "\n" + table, nil
}
