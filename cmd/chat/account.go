package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/umachittudi2004/VedazAssingment/internal/client"
)

var accountPassword string

func init() {
	for _, cmd := range []*cobra.Command{registerCmd, loginCmd} {
		cmd.Flags().StringVarP(&accountPassword, "password", "p", "", "password (prompted when empty)")
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(usersCmd)
}

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create an account and store its token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd.Context(), args[0], true)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and store the token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd.Context(), args[0], false)
	},
}

func authenticate(ctx context.Context, username string, create bool) error {
	creds, err := loadCredentials()
	if err != nil {
		return err
	}
	base, socket := creds.endpoints()

	password := accountPassword
	if password == "" {
		fmt.Print("Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	api := client.NewAPI(base, "")
	var result *client.AuthResult
	if create {
		result, err = api.Register(ctx, username, password)
	} else {
		result, err = api.Login(ctx, username, password)
	}
	if err != nil {
		return err
	}

	creds.Server = CredentialsServer{BaseURL: base, SocketURL: socket}
	creds.Auth = CredentialsAuth{Token: result.Token, UserID: result.User.ID, Username: result.User.Username}
	if err := saveCredentials(creds); err != nil {
		return err
	}

	fmt.Printf("Logged in as %s (%s)\n", result.User.Username, result.User.ID)
	return nil
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List the other users and whether they are online",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := requireLogin()
		if err != nil {
			return err
		}
		base, _ := creds.endpoints()

		users, err := client.NewAPI(base, creds.Auth.Token).Users(cmd.Context())
		if err != nil {
			return err
		}
		if len(users) == 0 {
			fmt.Println("No other users yet.")
			return nil
		}
		for _, u := range users {
			state := "offline"
			if u.Online {
				state = "online"
			}
			fmt.Printf("%-38s %-20s %s\n", u.ID, u.Username, state)
		}
		return nil
	},
}
