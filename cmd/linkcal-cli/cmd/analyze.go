package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"linkcal/internal/application/commands"
	"linkcal/internal/domain"
)

var (
	analyzeYear    int
	analyzePeriod  string
	analyzeFirst   string
	analyzeContext bool

	monthYear  int
	monthMonth int

	boundsGranularity string
	periodFirst       string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <note>...",
	Short: "Count daily-note backlinks per day for a year",
	Long: `Count how often daily notes link to the given notes, bucketed by day.

Examples:
  linkcal-cli analyze Projects/Atlas.md
  linkcal-cli analyze Projects/Atlas.md People/Ada.md --year 2024
  linkcal-cli analyze Projects/Atlas.md --period this-week --first-day sunday`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commands.NewAnalyzeCommand(service, args, analyzeYear, analyzePeriod)
		c.FirstDayOfWeek = analyzeFirst
		c.IncludeContext = analyzeContext

		res, err := c.Execute(context.Background())
		if err != nil {
			return err
		}

		printDays(res.Analysis.Days)
		fmt.Println(res.Message)
		return nil
	},
}

var monthCmd = &cobra.Command{
	Use:   "month <note>...",
	Short: "Count daily-note backlinks per day for one month",
	Long: `Count backlinks per day for a calendar month, defaulting to the current one.

Examples:
  linkcal-cli month Projects/Atlas.md
  linkcal-cli month Projects/Atlas.md --year 2025 --month 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		year, month := monthYear, monthMonth
		if year == 0 {
			year = now.Year()
		}
		if month == 0 {
			month = int(now.Month())
		}

		c := commands.NewMonthCommand(service, args, year, month)
		c.IncludeContext = analyzeContext

		res, err := c.Execute(context.Background())
		if err != nil {
			return err
		}

		printDays(res.Days)
		fmt.Println(res.Message)
		return nil
	},
}

var boundsCmd = &cobra.Command{
	Use:   "bounds <note>...",
	Short: "Show the navigable range of years or months",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commands.NewBoundsCommand(service, args, boundsGranularity)
		res, err := c.Execute(context.Background())
		if err != nil {
			return err
		}

		fmt.Println(res.Message)
		return nil
	},
}

var periodCmd = &cobra.Command{
	Use:   "period <token>",
	Short: "Resolve a period token to its date range",
	Long: `Resolve a period token against the current time.

Tokens: today, this-week, this-month, this-quarter, this-year,
past-24-hours, past-year, past-N-days.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commands.NewResolvePeriodCommand(service, args[0])
		c.FirstDayOfWeek = periodFirst

		res, err := c.Execute(context.Background())
		if err != nil {
			return err
		}

		fmt.Println(res.Message)
		return nil
	},
}

func printDays(days domain.BucketMap) {
	for _, key := range days.Keys() {
		day := days[key]
		fmt.Printf("%s  %d\n", key, day.Occurrences)
		for _, line := range day.Context {
			fmt.Printf("    %s\n", line)
		}
	}
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeYear, "year", 0, "year to analyze (default current year)")
	analyzeCmd.Flags().StringVar(&analyzePeriod, "period", "", "period token for the current-period count")
	analyzeCmd.Flags().StringVar(&analyzeFirst, "first-day", "", "first day of the week for this-week")
	analyzeCmd.Flags().BoolVar(&analyzeContext, "context", false, "include the linking lines of each daily note")

	monthCmd.Flags().IntVar(&monthYear, "year", 0, "year (default current year)")
	monthCmd.Flags().IntVar(&monthMonth, "month", 0, "month 1-12 (default current month)")
	monthCmd.Flags().BoolVar(&analyzeContext, "context", false, "include the linking lines of each daily note")

	boundsCmd.Flags().StringVar(&boundsGranularity, "granularity", "year", "year or month")
	periodCmd.Flags().StringVar(&periodFirst, "first-day", "", "first day of the week for this-week")

	rootCmd.AddCommand(analyzeCmd, monthCmd, boundsCmd, periodCmd)
}
