package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthwatch/healthwatch/internal/config"
	"github.com/healthwatch/healthwatch/internal/domain/account"
	"github.com/healthwatch/healthwatch/internal/domain/observation"
	"github.com/healthwatch/healthwatch/internal/domain/team"
	"github.com/healthwatch/healthwatch/internal/platform/db"
	"github.com/healthwatch/healthwatch/internal/platform/sandbox"
)

// migrationSchema is where the tables live; the server uses the default
// search_path.
const migrationSchema = "public"

func main() {
	rootCmd := &cobra.Command{
		Use:   "healthwatch-server",
		Short: "Team health monitoring API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx, migrationSchema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx, migrationSchema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// userCmd provisions accounts. There is no self-registration; the first
// admin is created here.
func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			role, _ := cmd.Flags().GetString("role")
			password, _ := cmd.Flags().GetString("password")
			if username == "" {
				return errors.New("--username is required")
			}
			password, err := resolvePassword(password, os.Getenv("HEALTHWATCH_PASSWORD"), cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := account.NewService(account.NewAccountRepoPG(pool), nil, nil)
			a, err := svc.CreateAccount(ctx, account.CreateInput{Username: username, Password: password, Role: role})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s account %q (%s).\n", a.Role, a.Username, a.ID)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Login name")
	createCmd.Flags().String("role", "viewer", "admin, doctor or viewer")
	createCmd.Flags().String("password", "", "Password (falls back to HEALTHWATCH_PASSWORD, then stdin)")

	cmd.AddCommand(createCmd)
	return cmd
}

// resolvePassword prefers the flag, then the environment, then the first
// line of stdin.
func resolvePassword(flag, env string, stdin io.Reader) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env != "" {
		return env, nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required (--password, HEALTHWATCH_PASSWORD or stdin)")
	}
	return line, nil
}

// seedCmd fills a development database with demo members and observations.
func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo team members and observations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			if !cfg.IsDev() && !force {
				return fmt.Errorf("refusing to seed with ENV=%q (use --force)", cfg.Env)
			}

			seedCfg := sandbox.DefaultSeedConfig()
			seedCfg.MemberCount, _ = cmd.Flags().GetInt("members")
			seedCfg.ObservationsPerMember, _ = cmd.Flags().GetInt("observations")
			seedCfg.Days, _ = cmd.Flags().GetInt("days")
			seedCfg.Seed, _ = cmd.Flags().GetInt64("seed")

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			seeder := sandbox.NewSeeder(seedCfg,
				team.NewService(team.NewMemberRepoPG(pool)),
				observation.NewService(observation.NewObservationRepoPG(pool)))

			res, err := seeder.Seed(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d member(s) and %d observation(s) in %s: %v\n",
				res.Members, res.Observations, res.Duration.Round(time.Millisecond), res.ByLevel)
			return nil
		},
	}
	defaults := sandbox.DefaultSeedConfig()
	cmd.Flags().Int("members", defaults.MemberCount, "Number of team members")
	cmd.Flags().Int("observations", defaults.ObservationsPerMember, "Observations per member")
	cmd.Flags().Int("days", defaults.Days, "Spread observations over this many past days")
	cmd.Flags().Int64("seed", defaults.Seed, "Random seed")
	cmd.Flags().Bool("force", false, "Allow seeding outside development")
	return cmd
}
