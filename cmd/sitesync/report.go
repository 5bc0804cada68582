package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/sitewerk/sitesync/internal/geocode"
	"github.com/sitewerk/sitesync/internal/record"
	"github.com/sitewerk/sitesync/internal/render"
	"github.com/sitewerk/sitesync/internal/ui"
)

var reportCmd = &cobra.Command{
	Use:     "report",
	GroupID: "records",
	Short:   "Manage site inspection reports",
	Long: `Create, inspect and export site inspection reports.

Reports live in the local database and are pushed to the remote archive
whenever a connection is available. Deleting a report only removes the
local copy; a newer remote copy returns on the next sync.`,
}

var (
	reportNewProject   string
	reportNewNumber    string
	reportNewVisit     string
	reportNewInspector string
	reportNewAuthor    string
	reportNewLat       float64
	reportNewLon       float64
)

var reportNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new draft report",
	Long: `Create a new draft report.

Without flags an interactive form is shown. The visit date accepts
natural language ("tomorrow 9am", "next monday") as well as plain
dates. With --lat/--lon the site location is resolved through the
configured reverse-geocoding endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if reportNewProject == "" {
			if err := runReportForm(); err != nil {
				return err
			}
		}
		if strings.TrimSpace(reportNewProject) == "" {
			return fmt.Errorf("project name is required")
		}

		r := record.NewReport(strings.TrimSpace(reportNewProject))
		r.ReportNumber = reportNewNumber
		r.Inspector = reportNewInspector
		r.Author = reportNewAuthor

		if reportNewVisit != "" {
			visit, err := parseVisitDate(reportNewVisit)
			if err != nil {
				return err
			}
			r.VisitDate = visit.Format("2006-01-02")
			r.VisitTime = visit.Format("15:04")
		}

		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
			r.Location = resolveLocation(ctx, reportNewLat, reportNewLon)
		}

		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.close()

		if err := sess.syncer.SaveReport(ctx, r); err != nil {
			return fmt.Errorf("save report: %w", err)
		}

		fmt.Printf("%s Created report %s\n", ui.RenderSuccess("✓"), ui.RenderAccent(r.ID))
		return nil
	},
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.close()

		reports, err := sess.store.ListReportsContext(cmd.Context())
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Println(ui.RenderFaint("No reports yet. Create one with 'sitesync report new'."))
			return nil
		}

		fmt.Println(ui.RenderHeader(fmt.Sprintf("%d report(s)", len(reports))))
		for _, r := range reports {
			status := ui.RenderFaint(string(r.Status))
			if r.Status == record.StatusFinal {
				status = ui.RenderSuccess(string(r.Status))
			}
			updated := time.UnixMilli(r.LastUpdated).Format("2006-01-02 15:04")
			fmt.Printf("  %s  %-30s %s  %s  %s\n",
				ui.RenderAccent(shortID(r.ID)), r.ProjectName, status,
				ui.RenderFaint(updated), ui.RenderFaint(fmt.Sprintf("%d deviation(s)", len(r.Deviations))))
		}
		return nil
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.close()

		r, err := findReport(cmd.Context(), sess, args[0])
		if err != nil {
			return err
		}
		out, err := render.NewText().Render(cmd.Context(), r)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil
	},
}

var reportFinalCmd = &cobra.Command{
	Use:   "final <id>",
	Short: "Mark a report as final",
	Args:  cobra.ExactArgs(1),
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
		patch := record.ReportPatch{Status: record.Status(record.StatusFinal)}
		patch.Apply(r)
		if err := sess.syncer.SaveReport(ctx, r); err != nil {
			return err
		}
		fmt.Printf("%s Report %s is final\n", ui.RenderSuccess("✓"), ui.RenderAccent(shortID(r.ID)))
		return nil
	},
}

var reportDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete the local copy of a report",
	Long: `Delete a report from the local database.

The remote archive keeps its copy. If the remote copy is newer it will
be adopted again on the next sync cycle.`,
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
		if err := sess.syncer.DeleteReport(ctx, r.ID); err != nil {
			return err
		}
		fmt.Printf("%s Deleted local copy of %s\n", ui.RenderSuccess("✓"), ui.RenderAccent(shortID(r.ID)))
		return nil
	},
}

var reportExportOut string

var reportExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a report to a text file",
	Args:  cobra.ExactArgs(1),
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

		renderer := render.NewText()
		out, err := renderer.Render(ctx, r)
		if err != nil {
			return err
		}

		path := reportExportOut
		if path == "" {
			name := r.ReportNumber
			if name == "" {
				name = shortID(r.ID)
			}
			path = "report-" + name + "." + renderer.Extension()
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Printf("%s Exported to %s\n", ui.RenderSuccess("✓"), ui.RenderAccent(path))
		return nil
	},
}

func init() {
	reportNewCmd.Flags().StringVar(&reportNewProject, "project", "", "project name (skips the interactive form)")
	reportNewCmd.Flags().StringVar(&reportNewNumber, "number", "", "report number")
	reportNewCmd.Flags().StringVar(&reportNewVisit, "visit", "", "visit date, natural language allowed")
	reportNewCmd.Flags().StringVar(&reportNewInspector, "inspector", "", "inspector name")
	reportNewCmd.Flags().StringVar(&reportNewAuthor, "author", "", "author name")
	reportNewCmd.Flags().Float64Var(&reportNewLat, "lat", 0, "site latitude")
	reportNewCmd.Flags().Float64Var(&reportNewLon, "lon", 0, "site longitude")

	reportExportCmd.Flags().StringVarP(&reportExportOut, "out", "o", "", "output file (default report-<number>.txt)")

	reportCmd.AddCommand(reportNewCmd)
	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportFinalCmd)
	reportCmd.AddCommand(reportDeleteCmd)
	reportCmd.AddCommand(reportExportCmd)
	rootCmd.AddCommand(reportCmd)
}

// runReportForm collects the new-report fields interactively.
func runReportForm() error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Value(&reportNewProject).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("project name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Report number").
				Value(&reportNewNumber),
			huh.NewInput().
				Title("Visit date").
				Description("e.g. \"tomorrow 9am\" or \"2026-09-15\"").
				Value(&reportNewVisit),
			huh.NewInput().
				Title("Inspector").
				Value(&reportNewInspector),
			huh.NewInput().
				Title("Author").
				Value(&reportNewAuthor),
		),
	)
	return form.Run()
}

// parseVisitDate understands natural-language dates as well as plain
// YYYY-MM-DD input.
func parseVisitDate(input string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", input); err == nil {
		return t, nil
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	res, err := w.Parse(input, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse visit date: %w", err)
	}
	if res == nil {
		return time.Time{}, fmt.Errorf("could not understand visit date %q", input)
	}
	return res.Time, nil
}

// resolveLocation turns coordinates into a human-readable label, falling
// back to the raw coordinates when no geocoder is configured.
func resolveLocation(ctx context.Context, lat, lon float64) string {
	var g geocode.Geocoder
	if cfg.Geocode.Endpoint != "" {
		g = geocode.NewHTTP(cfg.Geocode.Endpoint, cfg.Geocode.Timeout)
	}
	return geocode.Label(ctx, g, lat, lon)
}

// findReport resolves a full or shortened report id.
func findReport(ctx context.Context, sess *session, id string) (*record.Report, error) {
	if r, err := sess.store.GetReportContext(ctx, id); err == nil {
		return r, nil
	}
	reports, err := sess.store.ListReportsContext(ctx)
	if err != nil {
		return nil, err
	}
	var match *record.Report
	for _, r := range reports {
		if strings.HasPrefix(r.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous report id %q", id)
			}
			match = r
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no report matching %q", id)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
