// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-recommender/internal/library"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the embedding and citation caches",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop cached embedding profiles and citation networks",
	Long: `Clear drops the cached embedding profile and citation network. With
--collection only that collection's cache is dropped; otherwise everything
goes. The next recommend run rebuilds from scratch.`,
	RunE: runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	store, err := openCache(cmd, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	name, _ := cmd.Flags().GetString("collection")
	namespace := ""
	if name != "" {
		namespace = library.CollectionKey(name)
	}

	if err := store.Clear(context.Background(), namespace); err != nil {
		return err
	}
	if namespace == "" {
		fmt.Println("Cleared all caches.")
	} else {
		fmt.Printf("Cleared caches for collection %q.\n", name)
	}
	return nil
}
