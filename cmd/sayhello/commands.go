package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sayhello/sayhello/internal/app"
	"github.com/sayhello/sayhello/internal/config"
	"github.com/sayhello/sayhello/internal/directory"
	"github.com/sayhello/sayhello/internal/query"
)

// newController loads config, opens the configured gateway, and wraps it
// in a controller. Callers must invoke the returned closer.
func newController() (*app.Controller, func() error, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, config.Config{}, err
	}
	gw, closer, err := openGateway(cfg)
	if err != nil {
		return nil, nil, config.Config{}, err
	}
	return app.NewController(gw), closer, cfg, nil
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles in the directory",
	Long: `List profiles in the directory, with optional filtering and sorting.

Examples:
  sayhello list
  sayhello list --q cooking --sort name
  sayhello list --native Spanish --practice English --page 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, closer, cfg, err := newController()
		if err != nil {
			return err
		}
		defer closer()

		if err := ctrl.Load(cmd.Context()); err != nil {
			return err
		}

		q, _ := cmd.Flags().GetString("q")
		native, _ := cmd.Flags().GetString("native")
		practice, _ := cmd.Flags().GetString("practice")
		sortBy, _ := cmd.Flags().GetString("sort")
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		asJSON, _ := cmd.Flags().GetBool("json")
		if pageSize == 0 {
			pageSize = cfg.Directory.PageSize
		}

		ctrl.SetFilters(query.Spec{
			Q:        q,
			Native:   native,
			Practice: practice,
			Sort:     sortBy,
			Page:     page,
			PageSize: pageSize,
		})
		visible := ctrl.Visible()

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(visible)
		}

		if len(visible) == 0 {
			fmt.Fprintln(os.Stdout, "No profiles match.")
			return nil
		}
		for _, p := range visible {
			printProfile(p)
		}
		total := len(ctrl.Profiles())
		fmt.Fprintf(os.Stdout, "%d of %d profile(s)\n", len(visible), total)
		return nil
	},
}

// --- save ---

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or update a profile",
	Long: `Create a profile, or update one by passing --id with an existing id.

Examples:
  sayhello save --name "Joel Hurtado" --email joel@rsb.edu --native Spanish --practice English --interests "cinema, running"
  sayhello save --id 1d1906f5-6ff7-4e35-b2e9-01a7a2f7c6e8 --name "Joel H." --email joel@rsb.edu --native Spanish --practice English`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, closer, _, err := newController()
		if err != nil {
			return err
		}
		defer closer()

		form := directory.Form{Level: directory.DefaultLevel}
		form.ID, _ = cmd.Flags().GetString("id")
		form.Name, _ = cmd.Flags().GetString("name")
		form.Email, _ = cmd.Flags().GetString("email")
		form.Native, _ = cmd.Flags().GetString("native")
		form.Practice, _ = cmd.Flags().GetString("practice")
		if level, _ := cmd.Flags().GetString("level"); level != "" {
			form.Level = level
		}
		form.Availability, _ = cmd.Flags().GetString("availability")
		form.Interests, _ = cmd.Flags().GetString("interests")
		form.Bio, _ = cmd.Flags().GetString("bio")

		ctrl.SetForm(form)
		saved, err := ctrl.Submit(cmd.Context())
		if err != nil {
			printError("%v", err)
			return err
		}

		printSuccess("Saved profile %s (%s)", saved.Name, saved.ID)
		return nil
	},
}

// --- rm ---

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a profile by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, closer, _, err := newController()
		if err != nil {
			return err
		}
		defer closer()

		if err := ctrl.Delete(cmd.Context(), args[0]); err != nil {
			printError("%v", err)
			return err
		}
		printSuccess("Deleted profile %s", args[0])
		return nil
	},
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Bulk-import profiles from a JSON file",
	Long: `Bulk-import profiles from a JSON array. Records are normalized before
saving: unknown languages become empty, levels default to ` + directory.DefaultLevel + `,
and interests are capped at 10. With --strict, rows that would fail
validation are dropped instead of persisted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading import file: %w", err)
		}

		ctrl, closer, cfg, err := newController()
		if err != nil {
			return err
		}
		defer closer()

		policy := app.ParseImportPolicy(cfg.Directory.ImportPolicy)
		if strict, _ := cmd.Flags().GetBool("strict"); strict {
			policy = app.ImportRejectInvalid
		}

		saved, err := ctrl.Import(cmd.Context(), data, policy)
		if err != nil {
			printError("Import failed: %v", err)
			return err
		}

		printSuccess("Imported %d profile(s)", len(saved))
		return nil
	},
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export all profiles to a JSON file",
	Long:  `Export the full directory as a JSON array. Pass "-" to write to stdout.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, closer, _, err := newController()
		if err != nil {
			return err
		}
		defer closer()

		if err := ctrl.Load(cmd.Context()); err != nil {
			return err
		}

		data, err := ctrl.Export()
		if err != nil {
			return fmt.Errorf("exporting profiles: %w", err)
		}

		if args[0] == "-" {
			_, err := os.Stdout.Write(append(data, '\n'))
			return err
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return fmt.Errorf("writing export file: %w", err)
		}
		printSuccess("Exported %d profile(s) to %s", len(ctrl.Profiles()), args[0])
		return nil
	},
}

// --- wipe ---

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete every profile in the directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			fmt.Fprint(os.Stderr, "This permanently erases all profiles. Continue? [y/N] ")
			var answer string
			fmt.Fscanln(os.Stdin, &answer)
			if !strings.EqualFold(strings.TrimSpace(answer), "y") {
				fmt.Fprintln(os.Stderr, "Aborted.")
				return nil
			}
		}

		ctrl, closer, _, err := newController()
		if err != nil {
			return err
		}
		defer closer()

		if err := ctrl.Load(cmd.Context()); err != nil {
			return err
		}
		count := len(ctrl.Profiles())

		if err := ctrl.Wipe(cmd.Context()); err != nil {
			printError("Wipe failed: %v", err)
			return err
		}
		printSuccess("Deleted %d profile(s)", count)
		return nil
	},
}

func init() {
	listCmd.Flags().String("q", "", "free-text search over name, bio, interests, and languages")
	listCmd.Flags().String("native", "", "exact native language filter")
	listCmd.Flags().String("practice", "", "exact practice language filter")
	listCmd.Flags().String("sort", query.SortRecent, "sort key: recent, name, native, practice")
	listCmd.Flags().Int("page", 1, "page number")
	listCmd.Flags().Int("page-size", 0, "page size (0 uses the configured default)")
	listCmd.Flags().Bool("json", false, "print raw JSON")

	saveCmd.Flags().String("id", "", "existing profile id (omit to create)")
	saveCmd.Flags().String("name", "", "full name")
	saveCmd.Flags().String("email", "", "contact email")
	saveCmd.Flags().String("native", "", "native language")
	saveCmd.Flags().String("practice", "", "language to practice")
	saveCmd.Flags().String("level", "", "target proficiency level (A1..C2)")
	saveCmd.Flags().String("availability", "", "availability, free text")
	saveCmd.Flags().String("interests", "", "comma-separated interests")
	saveCmd.Flags().String("bio", "", "short intro (max 200 chars)")

	importCmd.Flags().Bool("strict", false, "drop rows that fail validation instead of persisting them")

	wipeCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
}
