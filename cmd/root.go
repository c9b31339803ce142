package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/op-booking/internal/booking"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "opbook",
		Short:         "Book outpatient appointments at the hospital from the terminal or a browser",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newServerCmd())
	root.AddCommand(newLoginCmd())
	root.AddCommand(newLogoutCmd())
	root.AddCommand(newWhoamiCmd())
	root.AddCommand(newBookCmd())
	root.AddCommand(newEmergencyCmd())
	root.AddCommand(newBookingsCmd())
	root.AddCommand(newAppointmentsCmd())
	root.AddCommand(newAdminCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, booking.UserMessage(err))
		os.Exit(1)
	}
}
