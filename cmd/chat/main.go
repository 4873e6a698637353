package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	socketURL string
)

var rootCmd = &cobra.Command{
	Use:           "chat",
	Short:         "Terminal client for the courier chat server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "REST base URL (default from credentials or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&socketURL, "socket", "", "websocket URL (default from credentials or ws://localhost:8081/ws)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
