package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/josinaldojr/smart-assistant/internal/chat"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	userLabel      = color.New(color.FgCyan, color.Bold).SprintFunc()
	assistantLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	errorText      = color.New(color.FgRed).SprintFunc()
	hintText       = color.New(color.Faint).SprintFunc()
)

const defaultServer = "http://localhost:3001"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// newRootCmd resolves the API URL from --server, then ASSISTANT_URL, then the default.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetDefault("server", defaultServer)
	_ = v.BindEnv("server", "ASSISTANT_URL")

	root := &cobra.Command{
		Use:          "chat",
		Short:        "Terminal chat with the assistant API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			session := chat.NewSession(chat.NewHTTPQuerier(v.GetString("server"), nil))
			return repl(cmd.Context(), session, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	root.Flags().String("server", defaultServer, "base URL of the assistant API (env ASSISTANT_URL)")
	_ = v.BindPFlag("server", root.Flags().Lookup("server"))

	return root
}

func repl(ctx context.Context, s *chat.Session, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, hintText("Type a message. /reset clears the conversation, /exit quits."))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, userLabel("you> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()

		switch strings.TrimSpace(line) {
		case "/exit", "/quit":
			return nil
		case "/reset":
			s.Reset()
			fmt.Fprintln(out, hintText("conversation cleared"))
			continue
		}

		turn, err := s.Submit(ctx, line)
		switch {
		case errors.Is(err, chat.ErrEmptyInput):
			continue
		case err != nil:
			fmt.Fprintln(out, errorText("error: "+err.Error()))
			continue
		}

		fmt.Fprintf(out, "%s\n%s\n\n", assistantLabel("assistant>"), turn.Content)
	}
}
