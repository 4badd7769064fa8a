package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"citychat/client"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF90")).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D676"))

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1658FF")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A1A1AA"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F43F5E")).
			Bold(true)
)

type command struct {
	name string
	args string
	help string
}

var commands = []command{
	{"/new", "[title]", "start a chat"},
	{"/list", "", "list chats"},
	{"/open", "<n|id>", "switch to a chat"},
	{"/search", "<text>", "find chats by title"},
	{"/rename", "<title>", "rename the open chat"},
	{"/delete", "[n|id]", "delete a chat (default: the open one)"},
	{"/clear", "", "delete every chat"},
	{"/topics", "", "show starter topics"},
	{"/topic", "<n>", "start a chat on a starter topic"},
	{"/suggest", "[n]", "show or send a quick suggestion"},
	{"/show", "", "print the open chat"},
	{"/help", "", "show this help"},
	{"/quit", "", "exit"},
}

// repl holds the open chat and dispatches input lines.
type repl struct {
	book    *client.Book
	current string
	out     io.Writer
}

func (r *repl) prompt() string {
	if c, ok := r.book.Get(r.current); ok {
		return fmt.Sprintf("[%s] > ", shorten(c.Title, 24))
	}
	return "> "
}

func (r *repl) welcome(relayURL string) {
	fmt.Fprintln(r.out, titleStyle.Render("Bangalore City Guide"))
	fmt.Fprintln(r.out, infoStyle.Render("Ask me anything about Bangalore - from tourist spots to tech parks!"))
	fmt.Fprintln(r.out, infoStyle.Render(fmt.Sprintf("relay: %s  |  %d saved chats  |  /help for commands", relayURL, len(r.book.List()))))
}

// handle runs one input line. It returns false when the user asked to quit.
func (r *repl) handle(ctx context.Context, input string) bool {
	if !strings.HasPrefix(input, "/") {
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return false
		}
		r.report(r.send(ctx, input))
		return true
	}

	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch strings.ToLower(name) {
	case "/quit", "/q", "/exit":
		return false
	case "/help", "/h", "/?":
		r.help()
	case "/new", "/n":
		err = r.newChat(arg)
	case "/list", "/l":
		r.list(r.book.List())
	case "/search":
		r.list(r.book.Search(arg))
	case "/open", "/o":
		err = r.open(arg)
	case "/rename":
		err = r.rename(arg)
	case "/delete":
		err = r.delete(arg)
	case "/clear":
		err = r.book.Clear()
		if err == nil {
			r.current = ""
			fmt.Fprintln(r.out, warningStyle.Render("[All chats deleted]"))
		}
	case "/topics":
		r.numbered(client.Options)
	case "/topic":
		err = r.topic(ctx, arg)
	case "/suggest":
		err = r.suggest(ctx, arg)
	case "/show":
		r.show()
	default:
		err = fmt.Errorf("unknown command: %s (type /help for commands)", name)
	}
	r.report(err)
	return true
}

func (r *repl) report(err error) {
	if err != nil {
		fmt.Fprintln(r.out, errorStyle.Render("[Error]"), err)
	}
}

func (r *repl) help() {
	for _, c := range commands {
		fmt.Fprintf(r.out, "  %-9s %-9s %s\n", c.name, c.args, infoStyle.Render(c.help))
	}
	fmt.Fprintln(r.out, infoStyle.Render("  anything else is sent to the open chat"))
}

func (r *repl) newChat(title string) error {
	id, err := r.book.Create(title)
	if err != nil {
		return err
	}
	r.current = id
	c, _ := r.book.Get(id)
	fmt.Fprintln(r.out, titleStyle.Render("Started: "+c.Title))
	return nil
}

// send posts text to the open chat, starting one if needed. Ctrl+C while
// waiting cancels the request.
func (r *repl) send(ctx context.Context, text string) error {
	if _, ok := r.book.Get(r.current); !ok {
		id, err := r.book.Create("")
		if err != nil {
			return err
		}
		r.current = id
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(r.out, infoStyle.Render("Typing..."))
	bot, err := r.book.Send(ctx, r.current, text)
	if bot.Message != "" {
		fmt.Fprintln(r.out, botStyle.Render("Guide:"), bot.Message)
	}
	return err
}

func (r *repl) list(entries []client.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(r.out, infoStyle.Render("No chats found"))
		return
	}
	for i, e := range entries {
		marker := " "
		if e.ID == r.current {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %2d. %s %s\n", marker, i+1, e.Title,
			infoStyle.Render(fmt.Sprintf("(%d messages)", len(e.Messages))))
	}
}

// resolve maps a list number or a chat id to an id.
func (r *repl) resolve(arg string) (string, error) {
	if arg == "" {
		return "", errors.New("which chat? give a number from /list or a chat id")
	}
	if n, err := strconv.Atoi(arg); err == nil {
		entries := r.book.List()
		if n < 1 || n > len(entries) {
			return "", fmt.Errorf("no chat number %d", n)
		}
		return entries[n-1].ID, nil
	}
	if _, ok := r.book.Get(arg); !ok {
		return "", fmt.Errorf("%w: %s", client.ErrChatNotFound, arg)
	}
	return arg, nil
}

func (r *repl) open(arg string) error {
	id, err := r.resolve(arg)
	if err != nil {
		return err
	}
	r.current = id
	r.show()
	return nil
}

func (r *repl) rename(title string) error {
	if title == "" {
		return errors.New("usage: /rename <title>")
	}
	if r.current == "" {
		return errors.New("no chat is open")
	}
	return r.book.Rename(r.current, title)
}

func (r *repl) delete(arg string) error {
	id := r.current
	if arg != "" {
		var err error
		if id, err = r.resolve(arg); err != nil {
			return err
		}
	}
	if id == "" {
		return errors.New("no chat is open")
	}
	if err := r.book.Delete(id); err != nil {
		return err
	}
	if id == r.current {
		r.current = ""
	}
	fmt.Fprintln(r.out, warningStyle.Render("[Chat deleted]"))
	return nil
}

func (r *repl) numbered(items []string) {
	for i, s := range items {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, s)
	}
}

func pick(items []string, arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(items) {
		return "", fmt.Errorf("pick a number between 1 and %d", len(items))
	}
	return items[n-1], nil
}

func (r *repl) topic(ctx context.Context, arg string) error {
	option, err := pick(client.Options, arg)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(r.out, infoStyle.Render("Typing..."))
	id, bot, err := r.book.Start(ctx, option)
	if id != "" {
		r.current = id
	}
	if bot.Message != "" {
		fmt.Fprintln(r.out, botStyle.Render("Guide:"), bot.Message)
	}
	return err
}

func (r *repl) suggest(ctx context.Context, arg string) error {
	if arg == "" {
		r.numbered(client.Suggestions)
		return nil
	}
	s, err := pick(client.Suggestions, arg)
	if err != nil {
		return err
	}
	if r.current == "" {
		return errors.New("open or start a chat first")
	}
	fmt.Fprintln(r.out, userStyle.Render("You:"), s)
	return r.send(ctx, s)
}

func (r *repl) show() {
	c, ok := r.book.Get(r.current)
	if !ok {
		fmt.Fprintln(r.out, infoStyle.Render("No chat is open"))
		return
	}
	fmt.Fprintln(r.out, titleStyle.Render(c.Title))
	if len(c.Messages) == 0 {
		fmt.Fprintln(r.out, infoStyle.Render("No messages in this chat. Start by asking something!"))
		return
	}
	for _, m := range c.Messages {
		who := userStyle.Render("You:")
		if m.Sender == client.SenderBot {
			who = botStyle.Render("Guide:")
		}
		fmt.Fprintf(r.out, "%s %s %s\n", infoStyle.Render(m.Timestamp.Local().Format("15:04")), who, m.Message)
	}
}

func shorten(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-3]) + "..."
}
