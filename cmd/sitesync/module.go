package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sitewerk/sitesync/internal/record"
	"github.com/sitewerk/sitesync/internal/ui"
)

var moduleCmd = &cobra.Command{
	Use:     "module",
	GroupID: "records",
	Short:   "Manage reusable text modules",
	Long: `Manage the reusable text modules inserted into deviations.

The whole module collection syncs as one unit: the device with the most
recent edit wins, older collections are replaced entirely.`,
}

var moduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List text modules",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.close()

		modules, err := sess.store.ListModulesContext(cmd.Context())
		if err != nil {
			return err
		}
		if len(modules) == 0 {
			fmt.Println(ui.RenderFaint("No modules."))
			return nil
		}
		fmt.Println(ui.RenderHeader(fmt.Sprintf("%d module(s)", len(modules))))
		for _, m := range modules {
			content := m.Content
			if len(content) > 60 {
				content = content[:57] + "..."
			}
			fmt.Printf("  %s  %-20s %s\n", ui.RenderAccent(shortID(m.ID)), m.Category, ui.RenderFaint(content))
		}
		return nil
	},
}

var moduleAddCmd = &cobra.Command{
	Use:   "add <category> <content>",
	Short: "Add a text module",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.close()

		m := record.NewModule(args[0], args[1])
		if err := sess.syncer.SaveModule(ctx, m); err != nil {
			return err
		}
		fmt.Printf("%s Added module %s\n", ui.RenderSuccess("✓"), ui.RenderAccent(shortID(m.ID)))
		return nil
	},
}

var (
	moduleEditCategory string
	moduleEditContent  string
)

var moduleEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a text module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.close()

		m, err := findModule(ctx, sess, args[0])
		if err != nil {
			return err
		}
		patch := record.ModulePatch{}
		if moduleEditCategory != "" {
			patch.Category = record.String(moduleEditCategory)
		}
		if moduleEditContent != "" {
			patch.Content = record.String(moduleEditContent)
		}
		patch.Apply(m)
		if err := sess.syncer.SaveModule(ctx, m); err != nil {
			return err
		}
		fmt.Printf("%s Updated module %s\n", ui.RenderSuccess("✓"), ui.RenderAccent(shortID(m.ID)))
		return nil
	},
}

var moduleRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a text module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.close()

		m, err := findModule(ctx, sess, args[0])
		if err != nil {
			return err
		}
		if err := sess.syncer.DeleteModule(ctx, m.ID); err != nil {
			return err
		}
		fmt.Printf("%s Removed module %s\n", ui.RenderSuccess("✓"), ui.RenderAccent(shortID(m.ID)))
		return nil
	},
}

func init() {
	moduleEditCmd.Flags().StringVar(&moduleEditCategory, "category", "", "new category")
	moduleEditCmd.Flags().StringVar(&moduleEditContent, "content", "", "new content")

	moduleCmd.AddCommand(moduleListCmd)
	moduleCmd.AddCommand(moduleAddCmd)
	moduleCmd.AddCommand(moduleEditCmd)
	moduleCmd.AddCommand(moduleRmCmd)
	rootCmd.AddCommand(moduleCmd)
}

// findModule resolves a full or shortened module id.
func findModule(ctx context.Context, sess *session, id string) (*record.Module, error) {
	if m, err := sess.store.GetModuleContext(ctx, id); err == nil {
		return m, nil
	}
	modules, err := sess.store.ListModulesContext(ctx)
	if err != nil {
		return nil, err
	}
	var match *record.Module
	for _, m := range modules {
		if strings.HasPrefix(m.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous module id %q", id)
			}
			match = m
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no module matching %q", id)
	}
	return match, nil
}
