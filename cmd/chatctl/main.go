package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiURL string
	token  string
)

var rootCmd = &cobra.Command{
	Use:   "chatctl",
	Short: "Terminal client for the knowledge assistant chat API",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("CHAT_API_URL", "http://localhost:8080"), "chat API base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("CHAT_API_TOKEN"), "session bearer token")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func requireToken() error {
	if token == "" {
		return fmt.Errorf("no session token: set CHAT_API_TOKEN or pass --token")
	}
	return nil
}
