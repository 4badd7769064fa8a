package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

const sshBanner = "Bangalore city guide. Type a question and press enter, \"exit\" to leave.\n"

// StartSSHServer accepts chat sessions on addr until ctx is cancelled.
func (s *Server) StartSSHServer(ctx context.Context, addr string) error {
	config, err := s.sshServerConfig()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("[SSH] SSH server listening on %s", ln.Addr())
	return s.serveSSH(ctx, ln, config)
}

// sshServerConfig accepts any client; callers are told apart by address only.
func (s *Server) sshServerConfig() (*ssh.ServerConfig, error) {
	signer, err := loadHostKey(s.settings.SSHHostKey)
	if err != nil {
		return nil, err
	}

	config := &ssh.ServerConfig{NoClientAuth: true}
	config.AddHostKey(signer)
	return config, nil
}

// loadHostKey reads a PEM private key from path, or generates an ephemeral
// ed25519 key when path is empty.
func loadHostKey(path string) (ssh.Signer, error) {
	if path == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate host key: %w", err)
		}
		log.Printf("[SSH] No SSH_HOST_KEY set, using an ephemeral host key")
		return ssh.NewSignerFromKey(priv)
	}

	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read host key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse host key %s: %w", path, err)
	}
	return signer, nil
}

func (s *Server) serveSSH(ctx context.Context, ln net.Listener, config *ssh.ServerConfig) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handleSSHConn(ctx, conn, config)
	}
}

func (s *Server) handleSSHConn(ctx context.Context, conn net.Conn, config *ssh.ServerConfig) {
	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		log.Printf("[SSH] Handshake failed from %s: %v", conn.RemoteAddr(), err)
		conn.Close()
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(reqs)

	caller := "unknown"
	if host, _, err := net.SplitHostPort(sshConn.RemoteAddr().String()); err == nil {
		caller = host
	}
	log.Printf("[SSH] Session from %s (%s)", caller, sshConn.ClientVersion())

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			log.Printf("[SSH] Could not accept channel: %v", err)
			continue
		}
		go acceptSessionRequests(requests)
		go s.sshSession(ctx, channel, caller)
	}
}

// acceptSessionRequests agrees to a shell and a pty; everything else is refused.
func acceptSessionRequests(in <-chan *ssh.Request) {
	for req := range in {
		switch req.Type {
		case "shell", "pty-req", "window-change":
			req.Reply(true, nil)
		default:
			req.Reply(false, nil)
		}
	}
}

// sshSession reads one question per line and writes back the relay's answer.
func (s *Server) sshSession(ctx context.Context, channel ssh.Channel, caller string) {
	defer channel.Close()

	terminal := term.NewTerminal(channel, "> ")
	io.WriteString(terminal, sshBanner)

	for {
		line, err := terminal.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("[SSH] Read error from %s: %v", caller, err)
			}
			return
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			io.WriteString(terminal, "Bye!\n")
			return
		}

		reply, _ := s.relayText(context.WithoutCancel(ctx), caller, "ssh", line)
		io.WriteString(terminal, reply+"\n")
	}
}
