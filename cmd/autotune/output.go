package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/pkg/errors"

	"github.com/thalesfsp/autotune"
)

// renderReport prints the session summary to stdout: the headline numbers,
// the best configuration, and the top trials ranked by score.
func renderReport(report *autotune.Report, top int) error {
	fmt.Printf("\nSession %s finished: strategy=%s trials=%d failures=%d total_cost=%s\n",
		report.SessionID,
		report.Strategy,
		report.Len(),
		report.Failures,
		report.TotalCost,
	)

	best, ok := report.Best()
	if !ok {
		fmt.Println("No trial succeeded; nothing to report.")

		return nil
	}

	fmt.Printf("Best score %.6g at trial %d\n\n", best.Score, best.Index)

	if err := renderBestConfig(report.BestConfig); err != nil {
		return err
	}

	fmt.Println()

	return renderTopTrials(report, top)
}

// renderBestConfig prints the winning configuration, one parameter per row.
func renderBestConfig(config autotune.Config) error {
	names := make([]string, 0, len(config))

	for name := range config {
		names = append(names, name)
	}

	sort.Strings(names)

	table := tablewriter.NewWriter(os.Stdout)
	table.Options(
		tablewriter.WithHeader([]string{"Parameter", "Value"}),
		tablewriter.WithRendition(
			tw.Rendition{
				Borders: tw.Border{
					Left:   tw.State(1),
					Top:    tw.State(1),
					Right:  tw.State(1),
					Bottom: tw.State(1),
				},
			},
		),
		tablewriter.WithAlignment(tw.MakeAlign(2, tw.AlignLeft)),
	)

	for _, name := range names {
		if err := table.Append([]string{name, fmt.Sprintf("%v", config[name])}); err != nil {
			return errors.Wrap(err, "appending config row")
		}
	}

	if err := table.Render(); err != nil {
		return errors.Wrap(err, "rendering config table")
	}

	return nil
}

// renderTopTrials prints the highest-scoring trials, capped at top rows.
// Failed trials rank below every success.
func renderTopTrials(report *autotune.Report, top int) error {
	trials := make([]autotune.Trial, len(report.Trials))
	copy(trials, report.Trials)

	sort.SliceStable(trials, func(i, j int) bool {
		iFailed, jFailed := trials[i].Failed(), trials[j].Failed()

		if iFailed != jFailed {
			return jFailed
		}

		if trials[i].Score != trials[j].Score {
			return trials[i].Score > trials[j].Score
		}

		return trials[i].Index < trials[j].Index
	})

	if top < len(trials) {
		trials = trials[:top]
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Options(
		tablewriter.WithHeader([]string{"Trial", "Score", "Cost", "Configuration"}),
		tablewriter.WithRendition(
			tw.Rendition{
				Borders: tw.Border{
					Left:   tw.State(1),
					Top:    tw.State(1),
					Right:  tw.State(1),
					Bottom: tw.State(1),
				},
			},
		),
		tablewriter.WithAlignment(tw.MakeAlign(4, tw.AlignLeft)),
	)

	for _, trial := range trials {
		score := fmt.Sprintf("%.6g", trial.Score)

		if trial.Failed() || math.IsNaN(trial.Score) {
			score = "failed"
		}

		if err := table.Append([]string{
			fmt.Sprintf("%d", trial.Index),
			score,
			trial.Cost.String(),
			configString(trial.Config),
		}); err != nil {
			return errors.Wrap(err, "appending trial row")
		}
	}

	if err := table.Render(); err != nil {
		return errors.Wrap(err, "rendering trials table")
	}

	return nil
}

// configString renders a configuration as a compact, sorted k=v list.
func configString(config autotune.Config) string {
	names := make([]string, 0, len(config))

	for name := range config {
		names = append(names, name)
	}

	sort.Strings(names)

	parts := make([]string, 0, len(names))

	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%v", name, config[name]))
	}

	return strings.Join(parts, " ")
}
