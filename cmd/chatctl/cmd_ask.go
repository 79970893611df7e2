package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"knowledge-assist/chat-api/pkg/streamclient"
)

var askConversationID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question and stream the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAskCommand,
}

func init() {
	askCmd.Flags().StringVarP(&askConversationID, "conversation", "c", "", "continue an existing conversation")
}

func runAskCommand(cmd *cobra.Command, args []string) error {
	if err := requireToken(); err != nil {
		return err
	}
	question := strings.Join(args, " ")

	client := streamclient.New(apiURL, token)

	spinner := streamclient.NewSpinner(os.Stderr, "Thinking...")
	spinner.Start()
	defer spinner.Stop()

	session := streamclient.NewConversationSession(spinner)
	session.OnBound = func(conversationID string) {
		// Refresh the list in the background so a follow-up `chatctl history`
		// reflects the new conversation without blocking the answer.
		_, _ = client.ListConversations(context.Background())
	}
	session.BeginTurn()

	var conversationID *string
	if askConversationID != "" {
		conversationID = &askConversationID
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	consumer, err := client.OpenStream(ctx, question, conversationID)
	if err != nil {
		return err
	}
	defer consumer.Stop()
	go func() {
		// Ctrl-C closes the read loop and clears the indicator; the server
		// finishes the turn on its own.
		<-ctx.Done()
		consumer.Stop()
		spinner.Stop()
	}()

	err = consumer.Consume(session)
	spinner.Stop()
	if err != nil {
		return err
	}

	if msg := session.LastError(); msg != "" {
		fmt.Fprintf(os.Stderr, "stream failed: %s\n", msg)
	}
	fmt.Println(session.Transcript().String())

	if session.Degraded() {
		fmt.Fprintln(os.Stderr, "(warning: parts of this answer could not be saved for replay)")
	}
	if convID := session.ConversationID(); convID != "" {
		fmt.Fprintf(os.Stderr, "\nconversation: %s\n", convID)
	}
	if messageID, err := session.FeedbackTarget(); err == nil {
		fmt.Fprintf(os.Stderr, "message: %s\n", messageID)
	}
	return nil
}
