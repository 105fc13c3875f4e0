package main

import (
	"errors"
	"fmt"
	"os"

	"fuellog/internal/app"

	"github.com/spf13/cobra"
)

var createUserPassword string

var createUserCmd = &cobra.Command{
	Use:   "create-user <username>",
	Short: "Add a password account to a persistent backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DataBackend == "memory" {
			return errors.New("create-user needs a persistent backend, set DATA_BACKEND")
		}

		password := createUserPassword
		if password == "" {
			password = os.Getenv("FUELLOG_PASSWORD")
		}

		st, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = st.close() }()

		user, err := app.NewAuthService(st.users, st.sessions, logger).CreateUser(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	createUserCmd.Flags().StringVar(&createUserPassword, "password", "", "password (default $FUELLOG_PASSWORD)")
}
