package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/safestay/staychat/cmd/staychat/internal"
	"github.com/safestay/staychat/pkg/api"
	"github.com/safestay/staychat/pkg/chat"
	"github.com/safestay/staychat/pkg/logger"
	"github.com/safestay/staychat/pkg/stream"
)

func chatCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Auth.Token == "" || cfg.Auth.User == nil {
		return errors.New("not signed in, run `staychat login` first")
	}
	self := *cfg.Auth.User

	client := api.NewClient(api.Config{
		BaseURL: cfg.Server.BaseURL,
		Token:   cfg.Auth.Token,
		Timeout: cfg.HTTPTimeout(),
	})

	var notifier chat.NotificationSink
	if cfg.Notifications.Enabled {
		notifier = chat.NotifyFunc(func(sender, body string) {
			// Terminal bell stands in for the browser notification.
			fmt.Printf("\a\r%s: %s\n", sender, body)
		})
	}

	sess := chat.NewSession(self, client, chat.SessionOptions{
		DedupWindow:  cfg.DedupWindow(),
		ReadyTimeout: cfg.ReadyTimeout(),
		Notifier:     notifier,
	})
	sess.SetTransport(stream.NewSession(stream.Options{
		URL:         cfg.Server.SocketURL,
		Token:       cfg.Auth.Token,
		JoinTimeout: cfg.JoinTimeout(),
	}, sess))
	defer sess.Close()

	ctx := context.Background()
	if err := sess.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("Signed in as %s — room %s\n", self.Name, self.Room())
	printConversations(sess)
	printHistory(sess)

	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or interrupt
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, sess, line); quit {
				return nil
			}
			continue
		}

		if _, err := sess.SendMessage(ctx, line); err != nil {
			fmt.Printf("send failed: %v\n", err)
		}
	}
}

func runCommand(ctx context.Context, sess *chat.Session, line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/q":
		return true

	case "/chats":
		printConversations(sess)

	case "/open":
		idx, ok := argIndex(fields, len(sess.Conversations()))
		if !ok {
			fmt.Println("usage: /open <chat number>")
			return false
		}
		conv := sess.Conversations()[idx]
		if err := sess.SelectConversation(ctx, conv.PartnerID); err != nil {
			fmt.Printf("history load failed: %v\n", err)
		}
		printHistory(sess)

	case "/new":
		peers := sess.Peers()
		if len(fields) == 1 {
			for i, p := range peers {
				marker := ""
				if sess.IsOnline(p.Name) {
					marker = " (online)"
				}
				fmt.Printf("%2d. %s [%s]%s\n", i+1, p.Name, p.Role, marker)
			}
			return false
		}
		idx, ok := argIndex(fields, len(peers))
		if !ok {
			fmt.Println("usage: /new <peer number>")
			return false
		}
		if _, err := sess.StartConversation(ctx, peers[idx]); err != nil {
			fmt.Printf("could not start conversation: %v\n", err)
			return false
		}
		printHistory(sess)

	case "/who":
		online := sess.OnlinePeers()
		if len(online) == 0 {
			fmt.Println("nobody online")
			return false
		}
		fmt.Println(strings.Join(online, ", "))

	default:
		fmt.Println("commands: /chats /open <n> /new [n] /who /quit")
	}
	return false
}

func argIndex(fields []string, limit int) (int, bool) {
	if len(fields) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > limit {
		return 0, false
	}
	return n - 1, true
}

func printConversations(sess *chat.Session) {
	convs := sess.Conversations()
	if len(convs) == 0 {
		fmt.Println("No conversations yet — use /new to start one")
		return
	}
	for i, conv := range convs {
		marker := ""
		if sess.IsOnline(conv.PartnerName) {
			marker = " (online)"
		}
		fmt.Printf("%2d. %s [%s]%s — %s\n",
			i+1, conv.PartnerName, conv.PartnerRole, marker, conv.LastMessage.Body)
	}
}

func printHistory(sess *chat.Session) {
	conv, ok := sess.Selected()
	if !ok {
		return
	}
	fmt.Printf("--- %s ---\n", conv.PartnerName)
	for _, msg := range sess.Messages() {
		name := msg.SenderName
		if name == "" {
			name = msg.SenderID.String()
		}
		fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Format("15:04"), name, msg.Body)
	}
}
