// Package client is the terminal side of the city chat: a book of named
// chats persisted through a Store, and an HTTP client for the relay.
package client

import (
	"fmt"
	"time"
)

// NewChatTitle is the placeholder title of a chat nobody has written in yet.
const NewChatTitle = "new chat"

// ErrorReply is appended as a bot message when the relay call fails.
const ErrorReply = "Sorry, I encountered an error. Please try again."

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Options are the topics offered on an empty screen. Picking one starts a
// chat titled with it and sends it as the first message.
var Options = []string{
	"Tourist Places",
	"Local Food",
	"Tech Parks",
	"Transportation",
	"Neighborhood",
	"Education",
	"Events & festivals",
}

// Suggestions are quick prompts sendable into any open chat.
var Suggestions = []string{
	"What are the best places to visit in Bangalore?",
	"Tell me about Bangalore's weather throughout the year",
	"Recommend some local Bangalore street food",
	"Which tech parks are famous in Bangalore?",
}

// Message is one line of a conversation.
type Message struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat is a titled conversation.
type Chat struct {
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// NewChatID derives a chat id from the creation time in milliseconds.
func NewChatID(now time.Time) string {
	return fmt.Sprintf("chat_%d", now.UnixMilli())
}

// FrameMessage wraps the user's text with the chat topic before it goes to
// the relay. The relay treats the result as opaque.
func FrameMessage(title, text string) string {
	return "Context: You are a helpful assistant specializing in Bangalore city information. " +
		"The user asked about \"" + title + "\"(if its \"new chat\" then ignore the title, just answer with the user input. " +
		"But remember you are a helpful assistant specializing in Bangalore city information). " +
		"Please provide relevant and helpful information about this topic in Bangalore.\n" +
		"          \n" +
		"          User's message: " + text
}
