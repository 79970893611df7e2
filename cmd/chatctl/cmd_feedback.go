package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"knowledge-assist/chat-api/pkg/streamclient"
)

var (
	feedbackPositive bool
	feedbackNegative bool
	feedbackComment  string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback [message-id]",
	Short: "Rate an assistant answer",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedbackCommand,
}

func init() {
	feedbackCmd.Flags().BoolVar(&feedbackPositive, "positive", false, "mark the answer as helpful")
	feedbackCmd.Flags().BoolVar(&feedbackNegative, "negative", false, "mark the answer as unhelpful (requires --comment)")
	feedbackCmd.Flags().StringVar(&feedbackComment, "comment", "", "free text comment, up to 255 characters")
}

func runFeedbackCommand(cmd *cobra.Command, args []string) error {
	if err := requireToken(); err != nil {
		return err
	}
	if feedbackPositive == feedbackNegative {
		return fmt.Errorf("pass exactly one of --positive or --negative")
	}

	var comment *string
	if feedbackComment != "" {
		comment = &feedbackComment
	}

	client := streamclient.New(apiURL, token)
	if err := client.SubmitFeedback(cmd.Context(), args[0], feedbackPositive, comment); err != nil {
		return err
	}
	fmt.Println("feedback recorded")
	return nil
}
