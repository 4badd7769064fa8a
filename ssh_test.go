package main

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// syncBuffer collects session output for polling.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startSSH(t *testing.T, s *Server) string {
	t.Helper()
	config, err := s.sshServerConfig()
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.serveSSH(ctx, ln, config)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().String()
}

func TestSSHSession(t *testing.T) {
	up := newFakeUpstream(t, map[string]upstreamReply{
		"m1": completion("Nandi Hills is 60 km away."),
	})
	s := newTestServer(t, up, []string{"m1"}, nil, nil)
	addr := startSSH(t, s)

	client, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            "guest",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	require.NoError(t, err)
	defer client.Close()

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()

	stdin, err := session.StdinPipe()
	require.NoError(t, err)
	var out syncBuffer
	session.Stdout = &out
	require.NoError(t, session.Shell())

	waitFor := func(want string) {
		t.Helper()
		require.Eventually(t, func() bool {
			return strings.Contains(out.String(), want)
		}, 5*time.Second, 10*time.Millisecond, "output so far: %q", out.String())
	}

	waitFor("Bangalore city guide")

	_, err = io.WriteString(stdin, "How far is Nandi Hills?\r")
	require.NoError(t, err)
	waitFor("Nandi Hills is 60 km away.")

	_, err = io.WriteString(stdin, "exit\r")
	require.NoError(t, err)
	waitFor("Bye!")

	assert.Equal(t, []string{"How far is Nandi Hills?"}, up.Messages())
}

func TestLoadHostKey(t *testing.T) {
	signer, err := loadHostKey("")
	require.NoError(t, err)
	assert.Equal(t, ssh.KeyAlgoED25519, signer.PublicKey().Type())

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "host_key")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))

	signer, err = loadHostKey(path)
	require.NoError(t, err)
	assert.Equal(t, ssh.KeyAlgoED25519, signer.PublicKey().Type())

	_, err = loadHostKey(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
