package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"asset-catalog/internal/database"
	"asset-catalog/internal/remotetree"
)

func TestImportName(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"short/", "Import-short/"},
		{"1AbCdEfGhIjKlMnOpQrStUv/", "Import-1AbCdEfGhIjKlMn"},
		{"/mnt/models/ğüşiöç-extra", "Import-/mnt/models/ğüş"},
	}
	for _, tt := range tests {
		if got := importName(tt.location); got != tt.want {
			t.Errorf("importName(%q) = %q, want %q", tt.location, got, tt.want)
		}
	}
}

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("  a/ \n\n\tb/\r\n   \nc/"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(lines, ",") != "a/,b/,c/" {
		t.Errorf("lines = %q", lines)
	}
}

func TestParseKind(t *testing.T) {
	newCmd := func(value string) *cobra.Command {
		c := &cobra.Command{}
		c.Flags().String("kind", "local", "")
		if value != "" {
			_ = c.Flags().Set("kind", value)
		}
		return c
	}

	tests := []struct {
		value   string
		want    database.SourceKind
		wantErr bool
	}{
		{"", database.SourceLocal, false},
		{"REMOTE-TREE", database.SourceRemoteTree, false},
		{"gdrive", "", true},
	}
	for _, tt := range tests {
		got, err := parseKind(newCmd(tt.value))
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseKind(%q) = %q, %v", tt.value, got, err)
		}
	}
}

func TestResolveLocation(t *testing.T) {
	t.Run("local paths become absolute", func(t *testing.T) {
		got, err := resolveLocation(&app{}, database.SourceLocal, "models")
		if err != nil {
			t.Fatal(err)
		}
		if !filepath.IsAbs(got) || filepath.Base(got) != "models" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("remote locations need a backend", func(t *testing.T) {
		if _, err := resolveLocation(&app{}, database.SourceRemoteTree, "figures/"); err == nil {
			t.Error("expected an error without a remote backend")
		}
	})

	t.Run("remote urls are reduced to a folder id", func(t *testing.T) {
		a := &app{tree: remotetree.NewMemory("assets")}
		got, err := resolveLocation(a, database.SourceRemoteTree, "s3://assets/figures/dragons")
		if err != nil {
			t.Fatal(err)
		}
		if got != "figures/dragons/" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("blank location", func(t *testing.T) {
		if _, err := resolveLocation(&app{}, database.SourceLocal, "  "); err == nil {
			t.Error("expected an error")
		}
	})
}
