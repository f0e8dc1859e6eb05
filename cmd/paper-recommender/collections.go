// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List Zotero collections",
	Long: `Collections lists the collections in your Zotero library with their keys.
Pass a collection name or key to recommend --collection to scope a run.`,
	RunE: runCollections,
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}

func runCollections(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	if err := requireLibraryConfig(cfg); err != nil {
		return err
	}

	collections, err := newLibraryClient(cfg).ListCollections(context.Background())
	if err != nil {
		return err
	}
	if len(collections) == 0 {
		fmt.Println("No collections found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-10s  %s\n", "Key", "Name")
	for _, col := range collections {
		fmt.Fprintf(os.Stdout, "%-10s  %s\n", col.Key, col.Name)
	}
	return nil
}
