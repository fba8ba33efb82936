package main

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/history"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/maintenance"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/publish"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/config"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/logging"
)

type app struct {
	configFile string
	logLevel   string
	dataPath   string

	cfg    *config.Config
	logger *zap.Logger

	stdout io.Writer
	stderr io.Writer
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:           "janus",
		Short:         "Generate cloud maintenance scripts",
		Long:          "janus renders one shell script per maintenance step per operator from the resource and operator documents of a maintenance.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default $JANUS_PATH/conf/janus.yaml)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.dataPath, "data", "", "override data_path, the directory holding maintenances")

	cmd.AddCommand(
		newRenderCmd(a),
		newValidateCmd(a),
		newStepsCmd(a),
		newOperatorsCmd(a),
		newServeCmd(a),
	)
	return cmd
}

// setup loads configuration and builds the logger. Flags override the file
// and environment.
func (a *app) setup() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.dataPath != "" {
		cfg.DataPath = a.dataPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// manager builds a maintenance manager with the configured publish backend.
func (a *app) manager(ctx context.Context, withPublisher bool) (*maintenance.Manager, error) {
	m := maintenance.NewManager(a.cfg, a.logger)
	if !withPublisher {
		return m, nil
	}
	backend, err := publish.New(ctx, a.cfg.Publish)
	if err != nil {
		return nil, fmt.Errorf("publish backend: %w", err)
	}
	if backend != nil {
		m.SetPublisher(backend)
	}
	return m, nil
}

// attachHistory persists runs to PostgreSQL when database.url is set. A
// database that cannot be reached leaves history in memory. The returned
// function releases the connection pool.
func (a *app) attachHistory(ctx context.Context, m *maintenance.Manager) func() {
	if a.cfg.Database.URL == "" {
		return func() {}
	}
	pool, err := history.Connect(ctx, a.cfg.Database.URL)
	if err != nil {
		a.logger.Warn("database unavailable, keeping run history in memory", zap.Error(err))
		return func() {}
	}

	store := history.NewPgStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		a.logger.Warn("run history migration failed, keeping run history in memory", zap.Error(err))
		return func() {}
	}
	m.SetStore(store)
	a.logger.Info("run history connected", zap.String("database", maskDSN(a.cfg.Database.URL)))
	return pool.Close
}

// maskDSN hides the password of a connection string for logging.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
