package main

import (
	"fmt"

	"github.com/sandevgo/mualim/internal/config"
	"github.com/sandevgo/mualim/internal/service/ui"
	"github.com/sandevgo/mualim/internal/storage/sqlite"
	"github.com/sandevgo/mualim/pkg/log"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show crowd cache statistics",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("failed to init env")
		}

		appCfg := config.NewAppConfig(ctx)
		db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
		if err != nil {
			return err
		}
		defer db.Close()

		crowd := sqlite.NewCrowdRepo(db)

		stats, err := crowd.Stats(ctx)
		if err != nil {
			return err
		}

		fmt.Println(ui.TitleStyle.Render("CROWD CACHE"))
		fmt.Printf("  %s %d\n", ui.UsageStyle.Render("records:"), stats.TotalRecords)
		fmt.Printf("  %s %d\n", ui.UsageStyle.Render("popular:"), stats.PopularCount)

		popular, err := crowd.Popular(ctx, 10)
		if err != nil {
			return err
		}
		if len(popular) > 0 {
			fmt.Println()
			fmt.Println(ui.TitleStyle.Render("TOP QUESTIONS"))
			for _, rec := range popular {
				fmt.Printf("  %3d  %s %s\n", rec.TimesAsked, rec.Question, ui.DescStyle.Render("["+rec.Subject.Label()+"]"))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
