package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/op-booking/internal/auth"
	"github.com/example/op-booking/internal/portal"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Staff account administration",
	}
	cmd.AddCommand(newAdminCreateUserCmd())
	return cmd
}

func newAdminCreateUserCmd() *cobra.Command {
	var req portal.CreateUserRequest
	c := &cobra.Command{
		Use:   "create-user",
		Short: "Create a staff account (requires the admin key)",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(nil)
			if err != nil {
				return err
			}
			svc := &auth.Service{API: env.api, Session: env.sess, Log: env.log}
			msg, err := svc.CreateUser(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	c.Flags().StringVar(&req.Email, "email", "", "staff email address")
	c.Flags().StringVar(&req.Password, "password", "", "password, at least 6 characters")
	c.Flags().StringVar(&req.AdminKey, "admin-key", "", "administrator key")
	return c
}
