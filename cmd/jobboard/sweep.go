package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Dest1on/jobboard/internal/app"
	"github.com/Dest1on/jobboard/internal/config"
)

func sweepCmd(envFile *string) *cobra.Command {
	var (
		grace  time.Duration
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "sweep-resumes",
		Short: "Delete uploaded resumes no application references",
		Long: `Scan the resume store and delete objects older than --grace that no
application points at. These are left behind when a submission fails after
its upload succeeded and the inline cleanup could not finish.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("grace") {
				grace = cfg.SweepGrace
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := openDatabase(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			dialect, err := newDialect(cfg)
			if err != nil {
				return err
			}
			sink, err := newSink(cfg)
			if err != nil {
				return err
			}

			sweeper := app.NewResumeSweeper(sink, newApplicationRepository(db, dialect), logger)
			report, err := sweeper.Sweep(cmd.Context(), grace, dryRun)
			if err != nil {
				return err
			}

			for _, url := range report.Orphaned {
				label := color.New(color.FgRed).Sprint("DELETE")
				if dryRun {
					label = color.New(color.FgYellow).Sprint("ORPHAN")
				}
				fmt.Printf("  %s %s\n", label, url)
			}
			fmt.Printf("scanned %d, orphaned %d, deleted %d, failed %d\n",
				report.Scanned, len(report.Orphaned), report.Deleted, report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d orphaned resumes could not be deleted", report.Failed)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", app.DefaultSweepGrace, "only consider objects older than this")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report orphans without deleting them")
	return cmd
}
