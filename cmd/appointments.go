package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAppointmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "appointments",
		Short: "List appointments booked under your Aadhaar number",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(nil)
			if err != nil {
				return err
			}
			u, err := env.requireUser()
			if err != nil {
				return err
			}
			appts, err := env.api.Appointments(cmd.Context(), u.AadhaarNumber)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(appts) == 0 {
				_, err := fmt.Fprintln(out, "No appointments found.")
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tTIME\tDEPARTMENT\tDOCTOR\tSYMPTOMS")
			for _, a := range appts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", a.ID, a.Date, a.Time, a.Department, a.Doctor, strings.Join(a.SymptomList, ", "))
			}
			return tw.Flush()
		},
	}
}
