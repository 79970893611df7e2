package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"knowledge-assist/chat-api/pkg/streamclient"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List your conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		client := streamclient.New(apiURL, token)
		conversations, err := client.ListConversations(cmd.Context())
		if err != nil {
			return err
		}
		if len(conversations) == 0 {
			fmt.Println("no conversations yet")
			return nil
		}
		for _, conv := range conversations {
			fmt.Printf("%s  %s  (%s)\n", conv.ID, conv.Title, conv.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [conversation-id]",
	Short: "Show a conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		client := streamclient.New(apiURL, token)
		conv, err := client.GetConversation(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\n\n", conv.Title)
		for _, msg := range conv.Messages {
			fmt.Printf("[%s] %s\n%s\n\n", msg.Role, msg.ID, msg.Content)
		}
		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay [message-id]",
	Short: "Replay a stored assistant answer exactly as it streamed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		client := streamclient.New(apiURL, token)
		envelopes, err := client.GetMessageChunks(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		transcript, errorMessage, err := streamclient.Replay(envelopes)
		if err != nil {
			return err
		}
		fmt.Println(transcript.String())
		if errorMessage != "" {
			fmt.Printf("\n(this answer was interrupted: %s)\n", errorMessage)
		}
		return nil
	},
}
