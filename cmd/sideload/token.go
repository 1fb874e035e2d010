package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sideload-dev/sideload/internal/apitest"
	"github.com/sideload-dev/sideload/internal/cli/config"
)

var (
	tokenSecret  string
	tokenSubject string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a dev bearer token for the fixture server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		secret := tokenSecret
		if secret == "" {
			secret = cfg.Auth.Secret
		}
		if secret == "" {
			return fmt.Errorf("no signing secret: pass --secret or set auth.secret in sideload.yml")
		}

		tokens := apitest.NewTokenService(secret, cfg.Auth.TokenTTL)
		token, err := tokens.GenerateToken(tokenSubject)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "signing secret (overrides config)")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "dev", "token subject claim")
}
