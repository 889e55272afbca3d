package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func TestApprovalMessage(t *testing.T) {
	msg, err := ApprovalMessage(" ngo@example.org ", "")
	require.NoError(t, err)
	assert.Equal(t, "ngo@example.org", msg.To)
	assert.Equal(t, ApprovalSubject, msg.Subject)
	assert.Contains(t, msg.HTML, "Dear NGO Representative,")
	assert.Contains(t, msg.HTML, "The GreenBite Team")

	msg, err = ApprovalMessage("ngo@example.org", "<b>Food & Friends</b>")
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "Dear &lt;b&gt;Food &amp; Friends&lt;/b&gt;,")
}

func TestAPISenderSend(t *testing.T) {
	ln := fasthttputil.NewInmemoryListener()
	defer ln.Close()

	var (
		auth string
		got  apiRequest
	)
	go func() {
		_ = fasthttp.Serve(ln, func(ctx *fasthttp.RequestCtx) {
			auth = string(ctx.Request.Header.Peek("Authorization"))
			assert.NoError(t, json.Unmarshal(ctx.PostBody(), &got))
			ctx.SetStatusCode(fasthttp.StatusAccepted)
		})
	}()

	s := NewAPISender(APIConfig{URL: "http://mail.local/v1.1/email", Key: "Zoho-enczapikey k", From: "noreply@greenbite.org", Timeout: time.Second})
	s.client.Dial = func(addr string) (net.Conn, error) { return ln.Dial() }

	err := s.Send(context.Background(), Message{To: "ngo@example.org", ToName: "Helpers", Subject: "Hi", HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, "Zoho-enczapikey k", auth)
	assert.Equal(t, "noreply@greenbite.org", got.From.Address)
	require.Len(t, got.To, 1)
	assert.Equal(t, "ngo@example.org", got.To[0].Email.Address)
	assert.Equal(t, "<p>x</p>", got.HTMLBody)
}

func TestAPISenderRejectsErrorStatus(t *testing.T) {
	ln := fasthttputil.NewInmemoryListener()
	defer ln.Close()
	go func() {
		_ = fasthttp.Serve(ln, func(ctx *fasthttp.RequestCtx) {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		})
	}()

	s := NewAPISender(APIConfig{URL: "http://mail.local", Key: "k", From: "a@b.c", Timeout: time.Second})
	s.client.Dial = func(addr string) (net.Conn, error) { return ln.Dial() }

	assert.Error(t, s.Send(context.Background(), Message{To: "x@y.z"}))
	assert.ErrorIs(t, s.Send(context.Background(), Message{}), ErrNoRecipient)
}

func TestSMTPSenderComposes(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.gmail.com", Username: "greenbite@example.org", Password: "secret", FromName: "GreenBite"})

	var (
		addr string
		to   []string
		body string
	)
	s.send = func(a string, _ smtp.Auth, from string, rcpt []string, msg []byte) error {
		addr, to, body = a, rcpt, string(msg)
		return nil
	}

	require.NoError(t, s.Send(context.Background(), Message{To: "ngo@example.org", Subject: ApprovalSubject, HTML: "<p>hi</p>"}))
	assert.Equal(t, "smtp.gmail.com:587", addr)
	assert.Equal(t, []string{"ngo@example.org"}, to)
	assert.True(t, strings.HasPrefix(body, "From: GreenBite <greenbite@example.org>\r\n"))
	assert.Contains(t, body, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(body, "<p>hi</p>"))

	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("535 auth failed") }
	assert.Error(t, s.Send(context.Background(), Message{To: "ngo@example.org"}))
}
