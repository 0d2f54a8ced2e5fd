package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"asset-catalog/internal/database"
	"asset-catalog/internal/remotetree"
)

// importPrefixLen is how much of a location an imported source name keeps.
const importPrefixLen = 15

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage catalog sources",
}

var sourceAddCmd = &cobra.Command{
	Use:   "add NAME LOCATION",
	Short: "Register a local directory or remote folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		location, err := resolveLocation(a, kind, args[1])
		if err != nil {
			return err
		}
		src, err := a.db.AddSource(ctx, args[0], kind, location)
		if err != nil {
			return err
		}

		fmt.Printf("Added source #%d %s (%s) at %s\n", src.ID, src.Name, src.Kind, src.Location)
		return nil
	},
}

var sourceImportCmd = &cobra.Command{
	Use:   "import [FILE]",
	Short: "Register one source per line of FILE (or stdin)",
	Long: "Register one source per non-empty line. Each source is named " +
		"Import-<start of its location>; the next scan replaces that with the real folder name.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening import list: %w", err)
			}
			defer func() { _ = f.Close() }()
			in = f
		}
		lines, err := readLines(in)
		if err != nil {
			return fmt.Errorf("reading import list: %w", err)
		}
		if len(lines) == 0 {
			fmt.Println("No locations given.")
			return nil
		}

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		added := importSources(ctx, a, kind, lines, cmd.ErrOrStderr())
		fmt.Printf("Imported %d/%d source(s)\n", added, len(lines))
		return nil
	},
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sources, err := a.db.ListSources(ctx)
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			fmt.Println("No sources registered.")
			return nil
		}

		for _, s := range sources {
			count, err := a.db.CountAssets(ctx, s.ID)
			if err != nil {
				return err
			}
			fmt.Printf("#%-4d %-11s %-30s %6d  %s\n", s.ID, s.Kind, s.Name, count, s.Location)
		}
		return nil
	},
}

var sourceRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove a source and all of its assets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid source id %q", args[0])
		}
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.db.RemoveSource(ctx, id); err != nil {
			if errors.Is(err, database.ErrSourceNotFound) {
				return fmt.Errorf("no source #%d", id)
			}
			return err
		}
		fmt.Printf("Removed source #%d\n", id)
		return nil
	},
}

func parseKind(cmd *cobra.Command) (database.SourceKind, error) {
	value, _ := cmd.Flags().GetString("kind")
	kind := database.SourceKind(strings.ToLower(value))
	if !kind.Valid() {
		return "", fmt.Errorf("--kind must be %q or %q", database.SourceLocal, database.SourceRemoteTree)
	}
	return kind, nil
}

// resolveLocation makes local paths absolute and reduces remote links or
// URLs to a folder id.
func resolveLocation(a *app, kind database.SourceKind, location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", errors.New("location is required")
	}
	if kind == database.SourceLocal {
		return filepath.Abs(location)
	}
	tree, err := a.requireTree()
	if err != nil {
		return "", err
	}
	return remotetree.NormalizeRootID(tree, location), nil
}

func importSources(ctx context.Context, a *app, kind database.SourceKind, lines []string, errOut io.Writer) int {
	added := 0
	for _, line := range lines {
		location, err := resolveLocation(a, kind, line)
		if err == nil {
			_, err = a.db.AddSource(ctx, importName(location), kind, location)
		}
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "skipping %s: %v\n", truncate(line, 30), err)
			continue
		}
		added++
	}
	return added
}

// importName is the placeholder name of an imported source.
func importName(location string) string {
	return "Import-" + truncate(location, importPrefixLen)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// readLines returns the trimmed non-empty lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func init() {
	for _, c := range []*cobra.Command{sourceAddCmd, sourceImportCmd} {
		c.Flags().StringP("kind", "k", string(database.SourceLocal), "Source kind: local or remote-tree")
	}

	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceImportCmd)
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)
}
