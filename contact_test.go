package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, replyTo, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to, replyTo, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, replyTo, subject, body})
	return nil
}

func (m *fakeMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var to []string
	for _, s := range m.sent {
		to = append(to, s.to)
	}
	return to
}

func postContact(t *testing.T, mailer Mailer, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := newTestSite(t, mailer)
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

const validContact = `{"name":"Ada Lovelace","email":"ada@example.com","subject":"Hello","message":"Loved the BugBattle demo."}`

func TestContactSendsBothEmails(t *testing.T) {
	mailer := &fakeMailer{}
	rec := postContact(t, mailer, validContact)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thank you for your message")
	assert.ElementsMatch(t, []string{"owner@portfolio.test", "ada@example.com"}, mailer.recipients())

	for _, s := range mailer.sent {
		if s.to == "owner@portfolio.test" {
			assert.Equal(t, "ada@example.com", s.replyTo)
			assert.Equal(t, "New Contact Form Submission: Hello", s.subject)
			assert.Contains(t, s.body, "Loved the BugBattle demo.")
		} else {
			assert.Equal(t, "Re: Hello", s.subject)
			assert.Contains(t, s.body, "Hi Ada Lovelace")
		}
	}
}

func TestContactFormPost(t *testing.T) {
	mailer := &fakeMailer{}
	r := newTestSite(t, mailer)
	form := "name=Ada&email=ada%40example.com&subject=Hi&message=Hello+there"
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, mailer.recipients(), 2)
}

func TestContactValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing fields", `{"name":"Ada"}`},
		{"bad email", `{"name":"Ada","email":"not-an-email","subject":"Hi","message":"Hello"}`},
		{"line break in subject", `{"name":"Ada","email":"ada@example.com","subject":"Hi\r\nBcc: x@example.com","message":"Hello"}`},
		{"malformed json", `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &fakeMailer{}
			rec := postContact(t, mailer, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, mailer.recipients())
		})
	}
}

func TestContactMailerErrors(t *testing.T) {
	rec := postContact(t, &fakeMailer{err: ErrMailerNotConfigured}, validContact)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = postContact(t, &fakeMailer{err: errors.New("535 authentication failed")}, validContact)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to send message")
}

func TestSMTPMailerRequiresCredentials(t *testing.T) {
	m := newSMTPMailer(SMTPConfig{Host: "smtp.gmail.com", Port: "587"})
	err := m.Send(context.Background(), "owner@portfolio.test", "ada@example.com", "Hi", "Hello")
	assert.ErrorIs(t, err, ErrMailerNotConfigured)
}
