package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/op-booking/internal/auth"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with your Aadhaar number and a one-time passcode",
	}
	cmd.AddCommand(newLoginRequestCmd())
	cmd.AddCommand(newLoginVerifyCmd())
	return cmd
}

func newLoginRequestCmd() *cobra.Command {
	var aadhaar string
	c := &cobra.Command{
		Use:   "request",
		Short: "Send an OTP to the mobile registered with the Aadhaar number",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(nil)
			if err != nil {
				return err
			}
			svc := &auth.Service{API: env.api, Session: env.sess, Log: env.log}
			ch, err := svc.RequestOTP(cmd.Context(), aadhaar)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ch.Message)
			if ch.IsNewUser {
				fmt.Fprintf(out, "New patient: run `opbook login verify --aadhaar %s --otp <code> --new --name <full name> --phone <number>`\n", aadhaar)
			} else {
				fmt.Fprintf(out, "Run `opbook login verify --aadhaar %s --otp <code>`\n", aadhaar)
			}
			return nil
		},
	}
	c.Flags().StringVar(&aadhaar, "aadhaar", "", "12-digit Aadhaar number")
	_ = c.MarkFlagRequired("aadhaar")
	return c
}

func newLoginVerifyCmd() *cobra.Command {
	var in auth.VerifyInput
	c := &cobra.Command{
		Use:   "verify",
		Short: "Verify the OTP and start a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(nil)
			if err != nil {
				return err
			}
			svc := &auth.Service{API: env.api, Session: env.sess, Log: env.log}
			u, msg, err := svc.Verify(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Logged in as %s.\n", msg, u.Name)
			return nil
		},
	}
	c.Flags().StringVar(&in.AadhaarNumber, "aadhaar", "", "12-digit Aadhaar number")
	c.Flags().StringVar(&in.OTP, "otp", "", "6-digit code")
	c.Flags().BoolVar(&in.NewUser, "new", false, "first login: register with --name and --phone")
	c.Flags().StringVar(&in.Name, "name", "", "full name (new patients)")
	c.Flags().StringVar(&in.PhoneNumber, "phone", "", "phone number (new patients)")
	_ = c.MarkFlagRequired("aadhaar")
	_ = c.MarkFlagRequired("otp")
	return c
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(nil)
			if err != nil {
				return err
			}
			svc := &auth.Service{API: env.api, Session: env.sess, Log: env.log}
			if err := svc.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(nil)
			if err != nil {
				return err
			}
			u, err := env.requireUser()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (Aadhaar %s)\n", u.Name, u.AadhaarNumber)
			return nil
		},
	}
}
