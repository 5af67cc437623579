package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"skimmer/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show item, category, and digest statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runCtx := cmd.Context()
			counts, err := st.Stats(runCtx)
			if err != nil {
				return err
			}
			categories, err := st.CategoryCounts(runCtx)
			if err != nil {
				return err
			}
			digests, err := st.RecentDigests(runCtx, 7)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			knownStatuses := store.AllStatuses()
			statusRows := make([][]string, 0, len(knownStatuses)+1)
			for _, status := range knownStatuses {
				statusRows = append(statusRows, []string{string(status), strconv.Itoa(counts.Count(status))})
			}
			statusRows = append(statusRows, []string{"total", strconv.Itoa(counts.Total)})
			fmt.Fprintln(out, "Items")
			fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, statusRows,
				[]columnAlignment{alignLeft, alignRight}))
			if counts.Total > 0 {
				rate := float64(counts.Processed) / float64(counts.Total) * 100
				fmt.Fprintf(out, "Processing rate: %.1f%%\n", rate)
			}

			if len(categories) > 0 {
				// Known categories render in canonical order; anything else
				// trails sorted by name.
				categoryRows := make([][]string, 0, len(categories))
				seen := make(map[store.Category]struct{}, len(categories))
				for _, category := range store.AllCategories() {
					seen[category] = struct{}{}
					if count, ok := categories[category]; ok {
						categoryRows = append(categoryRows, []string{string(category), strconv.Itoa(count)})
					}
				}
				var rest []store.Category
				for category := range categories {
					if _, ok := seen[category]; !ok {
						rest = append(rest, category)
					}
				}
				sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
				for _, category := range rest {
					categoryRows = append(categoryRows, []string{string(category), strconv.Itoa(categories[category])})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Categories")
				fmt.Fprintln(out, renderTable([]string{"Category", "Count"}, categoryRows,
					[]columnAlignment{alignLeft, alignRight}))
			}

			if len(digests) > 0 {
				digestRows := make([][]string, 0, len(digests))
				for _, record := range digests {
					digestRows = append(digestRows, []string{
						record.DigestDate,
						strconv.Itoa(record.ItemCount),
						string(record.Status),
					})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Recent digests")
				fmt.Fprintln(out, renderTable([]string{"Date", "Items", "Status"}, digestRows,
					[]columnAlignment{alignLeft, alignRight, alignLeft}))
			}
			return nil
		},
	}
}
