package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legal-ai/legal-assistant/internal/app"
	"github.com/legal-ai/legal-assistant/internal/model"
)

func newSearchCmd(ro *rootOptions) *cobra.Command {
	var kinds []string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search conversations and the legal corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ro.open(cmd.Context(), app.Options{WithoutChat: true, WithoutNATS: true})
			if err != nil {
				return err
			}
			defer a.Close()

			filters := model.DefaultSearchFilters()
			if len(kinds) > 0 {
				filters.Kinds = nil
				for _, k := range kinds {
					filters.Kinds = append(filters.Kinds, model.ResultKind(k))
				}
			}

			query := strings.Join(args, " ")
			results, err := a.Search.Search(cmd.Context(), ro.user, query, ro.language(), filters)
			if err != nil {
				return err
			}

			if ro.json {
				return printJSON(cmd, results)
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
				if fixes := a.Suggester.Spelling(query, ro.language()); len(fixes) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Did you mean: %s?\n", strings.Join(fixes, ", "))
				}
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s (%d)\n    %s\n", i+1, r.Title, r.RelevanceScore, r.Snippet)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&kinds, "type", "t", nil, "result kinds: conversation, legal_document, law_section")
	return cmd
}

func newSuggestCmd(ro *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest [partial query]",
		Short: "Show search suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ro.open(cmd.Context(), app.Options{WithoutChat: true, WithoutNATS: true})
			if err != nil {
				return err
			}
			defer a.Close()

			query := strings.Join(args, " ")
			suggestions, didYouMean := a.Suggester.Complete(query, ro.language(), limit)

			if ro.json {
				return printJSON(cmd, &model.SuggestionsResponse{
					Query:       query,
					Suggestions: suggestions,
					DidYouMean:  didYouMean,
				})
			}
			for _, s := range suggestions {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", s.Kind, s.Text)
			}
			if len(didYouMean) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Did you mean: %s?\n", strings.Join(didYouMean, ", "))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of suggestions")
	return cmd
}
