package app

import (
	"fmt"
	"strings"

	"abcdreport/internal/config"
	"abcdreport/internal/domain"
	"abcdreport/internal/report"

	"github.com/spf13/cobra"
)

var loadConfig = config.Load

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "abcdreport",
		Short:         "Classify day-matrix numbers into ABCD and BCD sets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newImportCmd(), newAnalyzeCmd(), newDatesCmd(), newServeCmd())
	return root
}

// withService loads config, opens the service and runs fn.
func withService(fn func(cfg config.Config, svc *Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	svc, cleanup, err := open(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(cfg, svc)
}

func newImportCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "import <files...>",
		Short: "Store day documents (YAML or JSON)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(_ config.Config, svc *Service) error {
				results, err := svc.Import(user, args)
				for _, r := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d cells, %d hours\n",
						r.User, domain.DayKey(r.Date), r.Cells, r.Hours)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "store under this user instead of the document's")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var (
		user    string
		date    string
		hr      int
		verbose bool
		plain   bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify the sequence ending at a date and write the report",
		Long: `Builds the reference sequence A, B, C, D from the three dates with data
before --date, classifies every topic for every hour with a planet, caches the
results and writes a markdown report. Without --date the latest eligible date is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(user) == "" {
				return fmt.Errorf("--user is required")
			}
			return withService(func(_ config.Config, svc *Service) error {
				svc.Verbose = verbose
				var out Outcome
				var err error
				if date == "" {
					out, err = svc.AnalyzeLatest(cmd.Context(), user)
				} else {
					trigger, perr := domain.ParseDayKey(date)
					if perr != nil {
						return fmt.Errorf("--date %q: want YYYY-MM-DD", date)
					}
					out, err = svc.Analyze(cmd.Context(), user, trigger, hr)
				}
				if err != nil {
					return err
				}
				if plain {
					fmt.Fprint(cmd.OutOrStdout(), report.PlainText(out.Report))
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\nreport: %s\n", out.Run.Sequence, out.ReportPath)
				for _, h := range out.Run.Hours {
					s := h.Overall.Summary
					fmt.Fprintf(cmd.OutOrStdout(), "HR %d (%s): ABCD=%v BCD=%v rate=%s%%\n",
						h.HR, h.Planet, h.Overall.ABCD, h.Overall.BCD, s.RateString())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user whose data to analyse")
	cmd.Flags().StringVar(&date, "date", "", "D-day (YYYY-MM-DD); latest eligible date when empty")
	cmd.Flags().IntVar(&hr, "hr", 0, "analyse only this hour")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "include the per-number audit table")
	cmd.Flags().BoolVar(&plain, "print", false, "print the report as plain text instead of the summary")
	return cmd
}

func newDatesCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "dates",
		Short: "List stored dates and mark those usable as D",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(user) == "" {
				return fmt.Errorf("--user is required")
			}
			return withService(func(_ config.Config, svc *Service) error {
				all, eligible, err := svc.Dates(user)
				if err != nil {
					return err
				}
				ok := make(map[string]bool, len(eligible))
				for _, d := range eligible {
					ok[domain.DayKey(d)] = true
				}
				for _, d := range all {
					key := domain.DayKey(d)
					if ok[key] {
						fmt.Fprintf(cmd.OutOrStdout(), "%s  eligible\n", key)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\n", key)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user whose dates to list")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled analyses until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(cfg config.Config, svc *Service) error {
				return serve(cmd.Context(), cfg, svc)
			})
		},
	}
}
