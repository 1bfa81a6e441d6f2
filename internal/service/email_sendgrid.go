package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"toolshare-backend/internal/logger"
)

const sendGridMailEndpoint = "/v3/mail/send"

type sendGridEmailSender struct {
	apiKey    string
	host      string
	fromEmail string
	fromName  string
}

func NewSendGridEmailSender(apiKey, host, fromEmail, fromName string) EmailSender {
	if host == "" {
		host = "https://api.sendgrid.com"
	}
	return &sendGridEmailSender{
		apiKey:    apiKey,
		host:      host,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *sendGridEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(msg.ToName, msg.ToEmail)
	html := msg.HTML
	if html == "" {
		html = "<pre>" + msg.PlainText + "</pre>"
	}
	message := mail.NewSingleEmail(from, msg.Subject, recipient, msg.PlainText, html)

	request := sendgrid.GetRequest(s.apiKey, sendGridMailEndpoint, s.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	logger.ExternalServiceCall("sendgrid", "mail.send", "to", msg.ToEmail)
	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		err = fmt.Errorf("failed to send email: %w", err)
		logger.ExternalServiceResult("sendgrid", "mail.send", err)
		return err
	}
	if response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		logger.ExternalServiceResult("sendgrid", "mail.send", err)
		return err
	}
	logger.ExternalServiceResult("sendgrid", "mail.send", nil, "status", response.StatusCode)
	return nil
}
