package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/umachittudi2004/VedazAssingment/internal/client"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
	"go.uber.org/zap"
)

var (
	talkPeer    string
	talkVerbose bool
)

func init() {
	talkCmd.Flags().StringVar(&talkPeer, "peer", "", "user id or username to talk to")
	talkCmd.Flags().BoolVarP(&talkVerbose, "verbose", "v", false, "log session diagnostics to stderr")
	_ = talkCmd.MarkFlagRequired("peer")
	rootCmd.AddCommand(talkCmd)
}

var talkCmd = &cobra.Command{
	Use:   "talk --peer <user>",
	Short: "Open a live conversation; each stdin line is sent as a message",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := requireLogin()
		if err != nil {
			return err
		}
		base, socket := creds.endpoints()
		me := creds.Auth.UserID

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		api := client.NewAPI(base, creds.Auth.Token)
		peer, err := resolvePeer(ctx, api, talkPeer)
		if err != nil {
			return err
		}

		logger := zap.NewNop()
		if talkVerbose {
			if logger, err = zap.NewDevelopment(); err != nil {
				return err
			}
		}

		printer := &printer{me: me, peer: peer}
		session, err := client.Dial(ctx, socket, creds.Auth.Token, me, printer.handlers(), logger)
		if err != nil {
			return err
		}
		defer session.Close()

		// Events arriving before Open are kept by the session and merged
		// with this history.
		history, err := api.History(ctx, peer.ID)
		if err != nil {
			return err
		}

		session.SetOnline(peer.ID, peer.Online)
		conv := session.Open(peer.ID, history)
		fmt.Printf("Talking to %s (%s). Ctrl-D to quit.\n", peer.Username, presenceLabel(peer.Online))
		for _, m := range conv.Messages() {
			printer.message(m)
		}

		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-session.Done():
				return session.Err()
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				if strings.TrimSpace(line) == "" {
					continue
				}
				session.Keystroke()
				if _, err := session.Send(line); err != nil {
					fmt.Fprintf(os.Stderr, "not sent: %v\n", err)
				}
			}
		}
	},
}

func resolvePeer(ctx context.Context, api *client.API, ref string) (model.UserSummary, error) {
	users, err := api.Users(ctx)
	if err != nil {
		return model.UserSummary{}, err
	}
	for _, u := range users {
		if u.ID == ref || u.Username == ref {
			return u, nil
		}
	}
	return model.UserSummary{}, fmt.Errorf("unknown user %q", ref)
}

func presenceLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

type printer struct {
	me   string
	peer model.UserSummary
}

func (p *printer) handlers() client.Handlers {
	return client.Handlers{
		OnMessage: func(msg model.Message, outcome client.ReconcileOutcome) {
			if outcome == client.Appended || msg.SenderID != p.me {
				p.message(msg)
			}
		},
		OnStatus: func(id string, status model.MessageStatus) {
			fmt.Printf("  [%s] %s\n", shortID(id), status)
		},
		OnPresence: func(userID string, online bool) {
			if userID == p.peer.ID {
				fmt.Printf("* %s is %s\n", p.peer.Username, presenceLabel(online))
			}
		},
		OnTyping: func(userID string, typing bool) {
			if userID == p.peer.ID && typing {
				fmt.Printf("* %s is typing...\n", p.peer.Username)
			}
		},
		OnError: func(payload model.ErrorPayload) {
			fmt.Fprintf(os.Stderr, "! %s: %s\n", payload.Code, payload.Message)
		},
	}
}

func (p *printer) message(m model.Message) {
	who := p.peer.Username
	if m.SenderID == p.me {
		who = "me"
	}
	fmt.Printf("%s %-10s %s  [%s %s]\n", m.CreatedAt.Local().Format("15:04"), who, m.Text, shortID(m.ID), m.Status)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
