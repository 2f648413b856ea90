package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/nerrad567/gray-logic-loadsynth/internal/simulation"
)

const summaryRule = "---------------------------------------"

// Summary returns the lines of the run report. noise describes the noise
// added to the total channel.
func Summary(res *simulation.Result, noise string) []string {
	ops := 0
	for _, n := range res.ApplianceRuns {
		ops += n
	}

	lines := []string{
		fmt.Sprintf("Trace duration (days)  : %14d", res.Days),
		fmt.Sprintf("First weekday          : %14s", res.FirstWeekday),
		fmt.Sprintf("# active devices       : %14d", len(res.ApplianceRuns)),
		fmt.Sprintf("# appliance operations : %14d", ops),
		summaryRule,
	}
	for _, t := range res.ApplianceTypes() {
		lines = append(lines, fmt.Sprintf("%16s #runs : %14d", t, res.ApplianceRuns[t]))
	}
	lines = append(lines, summaryRule)
	for _, a := range res.Activities() {
		c := res.Stats[a]
		lines = append(lines, fmt.Sprintf("%16s       : %5d scheduled, %d didn't fit", a, c.Scheduled, c.DidntFit))
	}
	lines = append(lines,
		summaryRule,
		fmt.Sprintf("Max. appl. concurrency : %14d", res.MaxConcurrency),
		fmt.Sprintf("Random seed            : %14d", res.Seed),
		fmt.Sprintf("Added noise            : %14s", noise),
	)
	return lines
}

// WriteSummary writes lines, one per line.
func WriteSummary(out io.Writer, lines []string) error {
	_, err := io.WriteString(out, strings.Join(lines, "\n")+"\n")
	return err
}
