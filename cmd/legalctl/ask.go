package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legal-ai/legal-assistant/internal/app"
	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/internal/service"
)

func newAskCmd(ro *rootOptions) *cobra.Command {
	var (
		conversationID string
		persona        string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant and stream the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ro.open(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			var streamed strings.Builder
			res, err := a.Chat.SendMessage(cmd.Context(), &service.TurnRequest{
				UserID:         ro.user,
				ConversationID: conversationID,
				Content:        strings.Join(args, " "),
				Persona:        model.Persona(persona),
				Language:       ro.language(),
			}, service.TurnHooks{
				OnDelta: func(delta string, _ int) error {
					streamed.WriteString(delta)
					_, err := fmt.Fprint(out, delta)
					return err
				},
			})
			if err != nil {
				return err
			}

			if streamed.Len() > 0 {
				fmt.Fprintln(out)
			}
			if ro.json {
				return printJSON(cmd, res)
			}
			// Fallback replies are never streamed.
			if res.Message.Content != streamed.String() {
				fmt.Fprintln(out, res.Message.Content)
			}
			cmd.PrintErrf("conversation %s (%s)\n", res.Conversation.ID, res.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "continue an existing conversation")
	cmd.Flags().StringVarP(&persona, "persona", "p", string(model.PersonaGeneralPublic), "General Public, Law Student or Lawyer")
	return cmd
}

func newExportCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [conversation id]",
		Short: "Export one or all conversations as text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ro.open(cmd.Context(), app.Options{WithoutChat: true, WithoutNATS: true})
			if err != nil {
				return err
			}
			defer a.Close()

			var text string
			if len(args) == 1 {
				_, text, err = a.Conversations.Export(cmd.Context(), ro.user, args[0])
			} else {
				text, err = a.Conversations.ExportAll(cmd.Context(), ro.user)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
