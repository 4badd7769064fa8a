// Command citychat is a terminal client for the city chat relay. Chats are
// kept in a JSON file compatible with the browser client's storage.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"citychat/client"
	"github.com/joho/godotenv"
	"github.com/peterh/liner"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("[Error]"), err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	dir := dataDir()
	relayURL := envOr("CITYCHAT_RELAY_URL", client.DefaultRelayURL)
	storePath := envOr("CITYCHAT_STORE", filepath.Join(dir, "chats.json"))

	book, err := client.OpenBook(client.NewFileStore(storePath), client.NewClient(relayURL))
	if err != nil {
		return err
	}

	in := newLineInput(filepath.Join(dir, "history"))
	defer in.Close()

	r := &repl{book: book, out: os.Stdout}
	r.welcome(relayURL)

	for {
		input, err := in.ReadInput(r.prompt())
		if err != nil {
			// Ctrl+C, Ctrl+D or a closed terminal
			fmt.Fprintln(r.out)
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !r.handle(context.Background(), input) {
			return nil
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func dataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".citychat")
	}
	return filepath.Join(os.TempDir(), "citychat")
}

// lineInput provides line editing and history across runs.
type lineInput struct {
	line        *liner.State
	historyFile string
}

func newLineInput(historyFile string) *lineInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)

	in := &lineInput{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (in *lineInput) ReadInput(prompt string) (string, error) {
	input, err := in.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

// Close writes history with owner-only permissions and restores the terminal.
func (in *lineInput) Close() {
	if err := os.MkdirAll(filepath.Dir(in.historyFile), 0o700); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}

func completeCommand(line string) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}
	var out []string
	for _, c := range commands {
		if strings.HasPrefix(c.name, line) {
			out = append(out, c.name)
		}
	}
	return out
}
