package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pbaille/journal/internal/insights"
	"github.com/spf13/cobra"
)

func tagCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Classify untagged entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			run := func() (string, error) {
				if all {
					res, err := a.tagger.TagAll(cmd.Context())
					return fmt.Sprintf("Tagged %d entries (%d failed)", res.Tagged, res.Failed), err
				}
				res, err := a.tagger.TagUser(cmd.Context(), userID)
				return fmt.Sprintf("Tagged %d entries (%d failed)", res.Tagged, res.Failed), err
			}

			summary, err := run()
			fmt.Println(summary)
			return err
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "tag entries of every user")
	return cmd
}

func insightsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Show themes, sentiment and insights derived from your entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "json", "markdown", "text":
			default:
				return fmt.Errorf("unknown format %q (json, markdown or text)", format)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.insights.Report(cmd.Context(), userID)
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			fmt.Print(insights.FormatReport(report, format))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: json, markdown or text")
	return cmd
}

func streakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Show your current writing streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.insights.Stats(cmd.Context(), userID)
			if err != nil {
				return err
			}

			fmt.Printf("Current streak: %d day(s)\n", stats.CurrentStreak)
			fmt.Printf("Total entries:  %d\n", stats.TotalEntries)
			return nil
		},
	}
}

func promptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt [theme]",
		Short: "Suggest a writing prompt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				fmt.Println(insights.NewPromptLibrary().SuggestPrompt(args[0]))
				return nil
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			prompts, err := a.insights.Prompts(cmd.Context(), userID)
			if err != nil {
				return err
			}
			for _, p := range prompts {
				fmt.Printf("[%s] %s\n", p.Theme, p.Prompt)
			}
			return nil
		},
	}
}
