package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/op-booking/internal/emergency"
)

func newEmergencyCmd() *cobra.Command {
	var (
		confirm bool
		pdfPath string
	)
	c := &cobra.Command{
		Use:   "emergency",
		Short: "Book an immediate emergency department visit",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(nil)
			if err != nil {
				return err
			}
			b := &emergency.Booker{API: env.api, Session: env.sess, Letterhead: env.letterhead(), Log: env.log}
			slip, err := b.Book(cmd.Context(), confirm)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Emergency appointment booked. Please proceed to the emergency department.")
			fmt.Fprintln(out)
			return printSlip(out, slip, pdfPath)
		},
	}
	c.Flags().BoolVar(&confirm, "confirm", false, "confirm that you need an emergency appointment")
	c.Flags().StringVar(&pdfPath, "pdf", "", "also write the OP slip as PDF to this path")
	return c
}
