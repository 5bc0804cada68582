package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sitewerk/sitesync/internal/record"
	"github.com/sitewerk/sitesync/internal/ui"
)

var deviationCmd = &cobra.Command{
	Use:   "deviation",
	Short: "Manage deviations within a report",
}

var (
	deviationText     string
	deviationModule   string
	deviationLocation string
	deviationSeverity string
	deviationPhoto    string
)

var deviationAddCmd = &cobra.Command{
	Use:   "add <report-id>",
	Short: "Add a deviation to a report",
	Long: `Add a deviation to a report.

The finding text comes from --text, or from --module to copy a text
module's content. Module content is copied by value: later edits to the
module do not change the deviation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.close()

		r, err := findReport(ctx, sess, args[0])
		if err != nil {
			return err
		}

		text := deviationText
		if deviationModule != "" {
			m, err := sess.store.GetModuleContext(ctx, deviationModule)
			if err != nil {
				return fmt.Errorf("module %s: %w", deviationModule, err)
			}
			text = m.Content
		}
		if text == "" {
			return fmt.Errorf("either --text or --module is required")
		}

		d := record.Deviation{
			Text:     text,
			Location: deviationLocation,
			Severity: record.Severity(deviationSeverity),
		}
		if deviationPhoto != "" {
			photo, err := os.ReadFile(deviationPhoto)
			if err != nil {
				return fmt.Errorf("read photo: %w", err)
			}
			d.Photo = photo
		}

		r.AppendDeviation(d)
		if err := sess.syncer.SaveReport(ctx, r); err != nil {
			return err
		}
		fmt.Printf("%s Added deviation to %s\n", ui.RenderSuccess("✓"), ui.RenderAccent(shortID(r.ID)))
		return nil
	},
}

var deviationRmCmd = &cobra.Command{
	Use:   "rm <report-id> <deviation-id>",
	Short: "Remove a deviation from a report",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.close()

		r, err := findReport(ctx, sess, args[0])
		if err != nil {
			return err
		}
		r.RemoveDeviation(args[1])
		if err := sess.syncer.SaveReport(ctx, r); err != nil {
			return err
		}
		fmt.Printf("%s Removed deviation from %s\n", ui.RenderSuccess("✓"), ui.RenderAccent(shortID(r.ID)))
		return nil
	},
}

func init() {
	deviationAddCmd.Flags().StringVar(&deviationText, "text", "", "finding text")
	deviationAddCmd.Flags().StringVar(&deviationModule, "module", "", "copy text from this module id")
	deviationAddCmd.Flags().StringVar(&deviationLocation, "location", "", "where on site the finding was made")
	deviationAddCmd.Flags().StringVar(&deviationSeverity, "severity", string(record.SeverityMedium), "Low, Medium, High or Critical")
	deviationAddCmd.Flags().StringVar(&deviationPhoto, "photo", "", "photo file to attach")

	deviationCmd.AddCommand(deviationAddCmd)
	deviationCmd.AddCommand(deviationRmCmd)
	reportCmd.AddCommand(deviationCmd)
}
