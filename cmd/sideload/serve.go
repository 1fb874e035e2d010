package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sideload-dev/sideload/internal/apitest"
	"github.com/sideload-dev/sideload/internal/cli/config"
)

var (
	serveAddr   string
	serveDB     string
	serveSecret string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the development JSON:API fixture server",
	Long: `Serve the bikeshed dataset over JSON:API for local development.
With --db, resources are loaded from a SQLite file or a postgres:// URL
(the demo schema is created and seeded when empty). With --auth-secret,
requests must carry a bearer token minted by "sideload token".`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "database DSN (SQLite path or postgres:// URL)")
	serveCmd.Flags().StringVar(&serveSecret, "auth-secret", "", "require bearer tokens signed with this secret")
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()

	data := apitest.Fixture()
	if serveDB != "" {
		db, err := apitest.OpenDB(serveDB)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := apitest.EnsureSchema(ctx, db); err != nil {
			return err
		}
		data, err = apitest.LoadSQLDataset(ctx, db)
		if err != nil {
			return err
		}
		log.Info("loaded dataset from database", zap.String("dsn", serveDB))
	}

	opts := []apitest.ServerOption{apitest.WithServerLogger(log)}
	secret := serveSecret
	if secret == "" {
		if cfg, err := config.Load(); err == nil {
			secret = cfg.Auth.Secret
		}
	}
	if secret != "" {
		opts = append(opts, apitest.WithAuth(apitest.NewTokenService(secret, 24*time.Hour)))
		log.Info("bearer auth enabled")
	}

	server := &http.Server{
		Addr:              serveAddr,
		Handler:           apitest.NewServer(data, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("sideload fixture server listening on %s\n", serveAddr)
	return server.ListenAndServe()
}
