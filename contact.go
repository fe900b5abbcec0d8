package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var (
	ErrMailerNotConfigured = errors.New("SMTP credentials not configured")
	ErrInvalidContactForm  = errors.New("invalid contact form")
)

// ContactForm is a contact form submission. Both JSON and form posts bind.
type ContactForm struct {
	Name    string `json:"name" form:"name" binding:"required,max=100"`
	Email   string `json:"email" form:"email" binding:"required,email"`
	Subject string `json:"subject" form:"subject" binding:"required,max=200"`
	Message string `json:"message" form:"message" binding:"required,max=5000"`
}

// Mailer delivers a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, replyTo, subject, body string) error
}

type smtpMailer struct {
	cfg SMTPConfig
}

func newSMTPMailer(cfg SMTPConfig) *smtpMailer {
	return &smtpMailer{cfg: cfg}
}

func (m *smtpMailer) Send(ctx context.Context, to, replyTo, subject, body string) error {
	if m.cfg.User == "" || m.cfg.Pass == "" {
		return ErrMailerNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := []byte("To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + m.cfg.User + "\r\n" +
		"Reply-To: " + replyTo + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	if err := smtp.SendMail(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.User, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// contactService sends the owner a notification and the visitor an
// auto-reply for every submission.
type contactService struct {
	mailer     Mailer
	owner      string
	ownerEmail string
	log        *zap.Logger
}

func (s *contactService) Submit(ctx context.Context, form ContactForm) error {
	// header injection guard; the validator does not reject line breaks
	for _, v := range []string{form.Name, form.Email, form.Subject} {
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("%w: line break in header field", ErrInvalidContactForm)
		}
	}

	notification := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Subject: %s
Message:
%s

---
Sent from your portfolio contact form
`, form.Name, form.Email, form.Subject, form.Message)

	reply := fmt.Sprintf(`Hi %s,

Thank you for reaching out! I've received your message about "%s" and will get back to you as soon as possible.

Your message:
%s

- %s
`, form.Name, form.Subject, form.Message, s.owner)

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		return s.mailer.Send(ctx, s.ownerEmail, form.Email, "New Contact Form Submission: "+form.Subject, notification)
	})
	p.Go(func(ctx context.Context) error {
		return s.mailer.Send(ctx, form.Email, s.ownerEmail, "Re: "+form.Subject, reply)
	})
	if err := p.Wait(); err != nil {
		s.log.Error("Error sending emails", zap.Error(err))
		return err
	}

	s.log.Info("Contact emails sent", zap.String("name", form.Name))
	return nil
}

func (s *contactService) handleContact(c *gin.Context) {
	var form ContactForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please fill in your name, a valid email, a subject and a message."})
		return
	}

	if err := s.Submit(c.Request.Context(), form); err != nil {
		switch {
		case errors.Is(err, ErrMailerNotConfigured):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "The contact form is not available right now."})
		case errors.Is(err, ErrInvalidContactForm):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please remove line breaks from your name, email and subject."})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send message. Please try again later."})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Thank you for your message! I'll get back to you soon."})
}
