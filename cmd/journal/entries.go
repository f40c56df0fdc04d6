package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/journal/internal/domain"
	"github.com/pbaille/journal/internal/store"
	"github.com/spf13/cobra"
)

func addCmd() *cobra.Command {
	var (
		noClassify bool
		date       string
	)

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a new entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")

			var createdAt time.Time
			if date != "" {
				t, err := time.ParseInLocation("2006-01-02", date, time.Local)
				if err != nil {
					return fmt.Errorf("parse date: %w", err)
				}
				createdAt = t.Add(12 * time.Hour)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			entry, err := a.store.AddEntry(ctx, userID, content, createdAt)
			if err != nil {
				return err
			}

			fmt.Printf("Added entry: %s\n", shortID(entry.ID))
			fmt.Printf("Content: %s\n", truncate(entry.Content, 80))

			if noClassify {
				fmt.Println("(skipped classification)")
				return nil
			}

			fmt.Print("Classifying... ")
			if err := a.tagger.TagEntry(ctx, *entry); err != nil {
				fmt.Printf("failed: %v\n", err)
				return nil
			}
			fmt.Println("done")

			tagged, err := a.store.GetEntry(ctx, entry.ID)
			if err != nil {
				return err
			}
			printTags(tagged)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noClassify, "no-classify", false, "skip automatic classification")
	cmd.Flags().StringVar(&date, "date", "", "entry date (YYYY-MM-DD), defaults to now")
	return cmd
}

func listCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.store.ListEntries(cmd.Context(), userID, limit, offset)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No entries yet. Use 'journal add' to create one.")
				return nil
			}

			for _, e := range entries {
				fmt.Printf("%s  %s  %s\n", shortID(e.ID), e.CreatedAt.Local().Format("2006-01-02"), truncate(e.Content, 60))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show entry details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			entry, err := findEntry(cmd.Context(), a.store, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("ID:      %s\n", entry.ID)
			fmt.Printf("Created: %s\n", entry.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("Content:\n%s\n", entry.Content)
			printTags(entry)
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.store.SearchEntries(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No matching entries found.")
				return nil
			}

			for _, e := range entries {
				fmt.Printf("%s  %s\n", shortID(e.ID), truncate(e.Content, 60))
			}
			return nil
		},
	}
}

func findEntry(ctx context.Context, s *store.Store, prefix string) (*domain.Entry, error) {
	entry, err := s.FindEntry(ctx, userID, prefix)
	if errors.Is(err, store.ErrEntryNotFound) {
		return nil, fmt.Errorf("entry not found: %s", prefix)
	}
	return entry, err
}

func printTags(e *domain.Entry) {
	if !e.Tagged() {
		return
	}
	if len(e.Themes) > 0 {
		fmt.Printf("\nThemes:\n")
		for _, t := range e.Themes {
			fmt.Printf("  - %s\n", t)
		}
	}
	if e.Sentiment != nil {
		fmt.Printf("Sentiment: %s\n", *e.Sentiment)
	}
}
