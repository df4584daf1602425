// Package main is the entry point for the study buddy server.
//
// The main package stays minimal: it reads configuration, builds the
// logger, and hands off to internal/server. All actual logic lives in the
// imported packages.
//
// COMMANDS:
//
//	studybuddy serve         run the HTTP server
//	studybuddy leaderboard   print the points table from the database
//
// Settings come from flags, STUDYBUDDY_* environment variables, an optional
// .env file and built-in defaults, in that order of precedence.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sakif/study-buddy/internal/config"
	"github.com/sakif/study-buddy/internal/mirror"
	sqliteRepo "github.com/sakif/study-buddy/internal/repository/sqlite"
	"github.com/sakif/study-buddy/internal/server"
	"github.com/sakif/study-buddy/internal/stats"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var envFile string

	root := &cobra.Command{
		Use:           "studybuddy",
		Short:         "AI-assisted study groups, quizzes and planner",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Variables loaded here are seen by viper's AutomaticEnv lookups,
			// which happen lazily on Get.
			return config.LoadDotEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file")
	root.PersistentFlags().String("db", "", "SQLite database path (db.path)")
	bind(v, root.PersistentFlags().Lookup("db"), "db.path")

	root.AddCommand(newServeCmd(v), newLeaderboardCmd(v))
	return root
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			logger := cfg.Logger(os.Stdout)

			srv, err := server.New(cfg, logger)
			if err != nil {
				logger.Error("failed to create server", slog.String("error", err.Error()))
				return err
			}

			// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
			if err := srv.Start(); err != nil {
				logger.Error("server error", slog.String("error", err.Error()))
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int("port", 8080, "HTTP port")
	flags.Bool("memory", false, "keep all data in memory")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("log-format", "text", "text or json")
	bind(v, flags.Lookup("port"), "port")
	bind(v, flags.Lookup("memory"), "memory")
	bind(v, flags.Lookup("log-level"), "log.level")
	bind(v, flags.Lookup("log-format"), "log.format")

	return cmd
}

func newLeaderboardCmd(v *viper.Viper) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the leaderboard stored in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sqliteRepo.New(v.GetString("db.path"))
			if err != nil {
				return err
			}
			defer db.Close()

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			table := mirror.AllStats.Load(context.Background(), mirror.New(db, logger))
			standings := stats.Rank(table)
			if limit > 0 && len(standings) > limit {
				standings = standings[:limit]
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tUSER\tPOINTS\tACHIEVEMENTS")
			for _, st := range standings {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", st.Rank, st.Stats.UserID, st.Stats.Points, len(st.Stats.Achievements))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "rows to print, 0 for all")
	return cmd
}

// bind ties a flag to a viper key. Flags only override other sources when
// set explicitly.
func bind(v *viper.Viper, flag *pflag.Flag, key string) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag.Name, err))
	}
}
