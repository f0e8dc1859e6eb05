// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-recommender/internal/reviewed"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

var reviewedCmd = &cobra.Command{
	Use:   "reviewed",
	Short: "Manage the reviewed-papers registry",
	Long: `Reviewed manages the registry of papers already seen. Papers in the
registry are excluded from recommendations unless --include-reviewed is set.`,
}

var reviewedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reviewed papers, newest first",
	RunE:  runReviewedList,
}

var reviewedMarkCmd = &cobra.Command{
	Use:   "mark <paper-id>",
	Short: "Mark a paper as reviewed by its OpenAlex id",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewedMark,
}

var reviewedClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget all reviewed papers",
	RunE:  runReviewedClear,
}

func init() {
	reviewedMarkCmd.Flags().String("title", "", "paper title to record with the entry")
	reviewedMarkCmd.Flags().String("doi", "", "paper DOI to record with the entry")

	reviewedCmd.AddCommand(reviewedListCmd)
	reviewedCmd.AddCommand(reviewedMarkCmd)
	reviewedCmd.AddCommand(reviewedClearCmd)
	rootCmd.AddCommand(reviewedCmd)
}

func openReviewedStore(cmd *cobra.Command) (*reviewed.Store, error) {
	cfg := buildConfig()
	return reviewed.Open(filepath.Join(cacheDir(cmd, cfg), "reviewed"))
}

func runReviewedList(cmd *cobra.Command, args []string) error {
	store, err := openReviewedStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.All()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No reviewed papers.")
		return nil
	}

	for _, entry := range entries {
		fmt.Printf("%s  %s  %s\n",
			entry.ReviewedAt.Format("2006-01-02"), entry.PaperID, entry.Title)
	}
	fmt.Printf("\n%d reviewed papers\n", len(entries))
	return nil
}

func runReviewedMark(cmd *cobra.Command, args []string) error {
	store, err := openReviewedStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	title, _ := cmd.Flags().GetString("title")
	doi, _ := cmd.Flags().GetString("doi")
	paper := types.CandidatePaper{OpenAlexID: args[0], Title: title, DOI: doi}
	if err := store.Mark(paper); err != nil {
		return err
	}
	fmt.Printf("Marked %s as reviewed.\n", args[0])
	return nil
}

func runReviewedClear(cmd *cobra.Command, args []string) error {
	store, err := openReviewedStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Count()
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Printf("Cleared %d reviewed papers.\n", count)
	return nil
}
