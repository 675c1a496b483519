package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/imrishuroy/go-template-storefront/internal/aws"
)

// Attachment is a file attached to an outbound email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a single outbound email.
type Message struct {
	From        string
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer delivers messages through an email provider and returns the provider message id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// SESMailer sends raw MIME messages through Amazon SES v2.
type SESMailer struct {
	client aws.SESAPI
}

// NewSESMailer wraps an SES client.
func NewSESMailer(client aws.SESAPI) *SESMailer {
	return &SESMailer{client: client}
}

// Send builds a multipart/mixed message and hands it to SES.
func (m *SESMailer) Send(ctx context.Context, msg Message) (string, error) {
	raw, err := BuildMIME(msg)
	if err != nil {
		return "", err
	}
	out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: sdkaws.String(msg.From),
		Destination:      &sestypes.Destination{ToAddresses: msg.To},
		Content: &sestypes.EmailContent{
			Raw: &sestypes.RawMessage{Data: raw},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ses send email: %w", err)
	}
	return sdkaws.ToString(out.MessageId), nil
}

// headerAddress parses a single address and formats it for a header line.
func headerAddress(s string) (string, error) {
	if strings.ContainsAny(s, "\r\n") {
		return "", fmt.Errorf("address %q contains a line break", s)
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

// BuildMIME renders msg as a multipart/mixed MIME document with a base64 HTML
// part and one base64 part per attachment.
func BuildMIME(msg Message) ([]byte, error) {
	if msg.From == "" || len(msg.To) == 0 {
		return nil, fmt.Errorf("build mime: sender and recipient are required")
	}
	from, err := headerAddress(msg.From)
	if err != nil {
		return nil, fmt.Errorf("build mime: from: %w", err)
	}
	to := make([]string, 0, len(msg.To))
	for _, addr := range msg.To {
		a, err := headerAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("build mime: to: %w", err)
		}
		to = append(to, a)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", w.Boundary())

	htmlHeader := textproto.MIMEHeader{}
	htmlHeader.Set("Content-Type", "text/html; charset=UTF-8")
	htmlHeader.Set("Content-Transfer-Encoding", "base64")
	part, err := w.CreatePart(htmlHeader)
	if err != nil {
		return nil, fmt.Errorf("build mime: %w", err)
	}
	if err := writeBase64(part, []byte(msg.HTML)); err != nil {
		return nil, fmt.Errorf("build mime: %w", err)
	}

	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", mime.FormatMediaType(ct, map[string]string{"name": a.Filename}))
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
		h.Set("Content-Transfer-Encoding", "base64")
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("build mime: %w", err)
		}
		if err := writeBase64(part, a.Data); err != nil {
			return nil, fmt.Errorf("build mime: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("build mime: %w", err)
	}
	return buf.Bytes(), nil
}

// writeBase64 writes data base64 encoded in 76 character lines.
func writeBase64(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 76 {
		if _, err := w.Write([]byte(enc[:76] + "\r\n")); err != nil {
			return err
		}
		enc = enc[76:]
	}
	_, err := w.Write([]byte(enc + "\r\n"))
	return err
}
