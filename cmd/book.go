package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/op-booking/internal/booking"
	"github.com/example/op-booking/internal/opslip"
)

func newBookCmd() *cobra.Command {
	var (
		date         string
		symptoms     []string
		notes        string
		prefer       []string
		pdfPath      string
		listSymptoms bool
	)

	c := &cobra.Command{
		Use:   "book",
		Short: "Book an outpatient appointment",
		Long: `Book an outpatient appointment in one go: check availability for the date,
match the symptoms to a department and doctor, pick a slot and confirm.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if listSymptoms {
				for _, s := range booking.Symptoms {
					fmt.Fprintln(out, s)
				}
				return nil
			}
			if len(symptoms) == 0 {
				return fmt.Errorf("at least one --symptom is required (see --list-symptoms)")
			}

			env, err := loadEnv(nil)
			if err != nil {
				return err
			}
			if _, err := env.requireUser(); err != nil {
				return err
			}
			ctx := cmd.Context()

			wf := booking.NewWorkflow(env.api, env.sess,
				booking.WithLogger(env.log),
				booking.WithLetterhead(env.letterhead()),
			)
			defer wf.Wait()

			if date != "" {
				if err := wf.SetDate(date); err != nil {
					return err
				}
			}
			avail, err := wf.CheckAvailability(ctx)
			if err != nil {
				return err
			}
			d := wf.Draft()
			if avail.Count == 0 {
				return fmt.Errorf("no slots available on %s, try another --date", d.Date)
			}
			fmt.Fprintf(out, "%d slots available on %s: %s\n", avail.Count, d.Date, strings.Join(avail.Slots, ", "))
			if err := wf.Next(); err != nil {
				return err
			}

			wf.SetSymptoms(symptoms)
			wf.SetNotes(notes)
			a, err := wf.AnalyzeSymptoms(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Recommended: %s, %s (%.0f%% confidence)\n", a.Department, a.RecommendedDoctor, a.Confidence)

			slot, _ := booking.PickSlot(prefer, avail.Slots)
			if err := wf.SelectTimeSlot(slot); err != nil {
				return err
			}
			if err := wf.Next(); err != nil {
				return err
			}

			conf, err := wf.Submit(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Appointment booked successfully!")
			fmt.Fprintln(out)
			return printSlip(out, conf.Slip, pdfPath)
		},
	}

	c.Flags().StringVar(&date, "date", "", "appointment date YYYY-MM-DD (default today)")
	c.Flags().StringSliceVar(&symptoms, "symptom", nil, "symptom, repeatable or comma separated")
	c.Flags().StringVar(&notes, "notes", "", "additional notes for the doctor")
	c.Flags().StringSliceVar(&prefer, "prefer", nil, "preferred slot times in order, e.g. 09:30,10:00")
	c.Flags().StringVar(&pdfPath, "pdf", "", "also write the OP slip as PDF to this path")
	c.Flags().BoolVar(&listSymptoms, "list-symptoms", false, "print the symptom catalogue and exit")
	return c
}

func printSlip(out io.Writer, slip opslip.Slip, pdfPath string) error {
	if err := slip.WriteText(out); err != nil {
		return err
	}
	if pdfPath == "" {
		return nil
	}
	f, err := os.Create(pdfPath)
	if err != nil {
		return err
	}
	if err := slip.WritePDF(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nOP slip saved to %s\n", pdfPath)
	return nil
}
