package notify

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/reqtrack/internal/infra"
)

// fakeSMTP — минимальный SMTP-сервер: принимает любое письмо и считает доставленные.
type fakeSMTP struct {
	ln        net.Listener
	delivered atomic.Int64
	wg        sync.WaitGroup
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeSMTP{ln: ln}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.serve(conn)
			}()
		}
	}()

	t.Cleanup(func() {
		ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *fakeSMTP) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) serve(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	rd := bufio.NewReader(conn)
	reply := func(lines ...string) {
		for _, l := range lines {
			fmt.Fprintf(conn, "%s\r\n", l)
		}
	}

	reply("220 localhost ESMTP")
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))

		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			reply("250-localhost", "250 AUTH PLAIN")
		case strings.HasPrefix(cmd, "AUTH"):
			reply("235 2.7.0 Authentication successful")
		case cmd == "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			for {
				l, err := rd.ReadString('\n')
				if err != nil {
					return
				}
				if strings.TrimRight(l, "\r\n") == "." {
					break
				}
			}
			s.delivered.Add(1)
			reply("250 OK")
		case cmd == "QUIT":
			reply("221 Bye")
			return
		default:
			// HELO, MAIL, RCPT, RSET, NOOP
			reply("250 OK")
		}
	}
}

func newTestSMTPSender(t *testing.T, srv *fakeSMTP) *SMTPSender {
	t.Helper()
	s, err := NewSMTPSender(infra.MailConfig{
		Host:     "127.0.0.1",
		Port:     srv.port(),
		Username: "robot@example.com",
		Password: "secret",
		Sender:   "robot@example.com",
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	return s
}

func TestSMTPSenderDelivers(t *testing.T) {
	srv := startFakeSMTP(t)
	s := newTestSMTPSender(t, srv)

	err := s.Send(context.Background(), Message{To: "b@x.com", Subject: SubjectAssigned, Body: "hello"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, srv.delivered.Load())
}

func TestSMTPSenderConcurrentSends(t *testing.T) {
	srv := startFakeSMTP(t)
	s := newTestSMTPSender(t, srv)

	const n = 20
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Send(context.Background(), Message{
				To:      "b@x.com",
				Subject: SubjectStatusUpdated,
				Body:    fmt.Sprintf("update #%d", i),
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, n, srv.delivered.Load())
}

func TestSMTPSenderRejectsBadRecipient(t *testing.T) {
	srv := startFakeSMTP(t)
	s := newTestSMTPSender(t, srv)

	err := s.Send(context.Background(), Message{To: "not an address", Subject: "x", Body: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
	assert.Zero(t, srv.delivered.Load())
}
