package tool

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"

	"google.golang.org/api/gmail/v1"
)

type messageFetcher interface {
	GetMessage(ctx context.Context, msgID string) (*gmail.Message, error)
}

type htmlConverter interface {
	HTML2Text(raw []byte) (string, error)
}

// fetchedMessage is a Gmail message reduced to what preprocessing needs.
type fetchedMessage struct {
	summary     MessageSummary
	body        string
	attachments []Attachment
}

// emailText renders the message the way a pasted email looks: a Subject
// line, a blank line, then the body.
func (m fetchedMessage) emailText() string {
	if m.summary.Subject == "" {
		return m.body
	}
	return "Subject: " + m.summary.Subject + "\n\n" + m.body
}

func fetchMessage(ctx context.Context, svc messageFetcher, conv htmlConverter, msgID string) (fetchedMessage, error) {
	msg, err := svc.GetMessage(ctx, msgID)
	if err != nil {
		return fetchedMessage{}, fmt.Errorf("get message %s failed: %w", msgID, err)
	}

	fm := fetchedMessage{summary: extractMessageSummary(msg)}
	if msg.Payload == nil {
		return fm, nil
	}

	var parts messageParts
	parts.walk(msg.Payload)
	fm.attachments = parts.attachments

	switch {
	case parts.text != "":
		fm.body = parts.text
	case parts.html != "":
		fm.body, err = conv.HTML2Text([]byte(parts.html))
		if err != nil {
			return fetchedMessage{}, fmt.Errorf("conv.HTML2Text(%s) failed: %w", msgID, err)
		}
	}

	return fm, nil
}

// messageParts collects the first text and HTML bodies in depth-first
// order along with every attachment.
type messageParts struct {
	text        string
	html        string
	attachments []Attachment
}

func (p *messageParts) walk(part *gmail.MessagePart) {
	if part.Filename != "" || (part.Body != nil && part.Body.AttachmentId != "") {
		var size int64
		if part.Body != nil {
			size = part.Body.Size
		}
		p.attachments = append(p.attachments, Attachment{
			Filename: part.Filename,
			MimeType: part.MimeType,
			Size:     size,
		})
	} else if part.Body != nil && part.Body.Data != "" {
		switch {
		case part.MimeType == "text/plain" && p.text == "":
			p.text = decodeBase64URL(part.Body.Data)
		case part.MimeType == "text/html" && p.html == "":
			p.html = decodeBase64URL(part.Body.Data)
		}
	}

	for _, child := range part.Parts {
		p.walk(child)
	}
}

func decodeBase64URL(data string) string {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding} {
		if decoded, err := enc.DecodeString(data); err == nil {
			return string(decoded)
		}
	}
	return data
}

func extractMessageSummary(msg *gmail.Message) MessageSummary {
	summary := MessageSummary{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
	}
	if msg.Payload == nil {
		return summary
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "From":
			summary.From = parseEmailAddress(header.Value)
		case "To":
			summary.To = parseEmailAddressList(header.Value)
		case "Cc":
			summary.CC = parseEmailAddressList(header.Value)
		case "Subject":
			summary.Subject = header.Value
		case "Date":
			summary.Timestamp = header.Value
		}
	}

	return summary
}

func parseEmailAddress(value string) EmailAddress {
	if addr, err := mail.ParseAddress(value); err == nil {
		return EmailAddress{Name: addr.Name, Email: addr.Address}
	}

	// Lenient fallback for headers net/mail rejects.
	addr := EmailAddress{Email: strings.TrimSpace(value)}
	if open := strings.Index(value, "<"); open != -1 {
		addr.Name = strings.Trim(strings.TrimSpace(value[:open]), `"`)
		rest := value[open+1:]
		if end := strings.Index(rest, ">"); end != -1 {
			rest = rest[:end]
		}
		addr.Email = strings.TrimSpace(rest)
	}
	return addr
}

func parseEmailAddressList(value string) []EmailAddress {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	if list, err := mail.ParseAddressList(value); err == nil {
		result := make([]EmailAddress, 0, len(list))
		for _, addr := range list {
			result = append(result, EmailAddress{Name: addr.Name, Email: addr.Address})
		}
		return result
	}

	var result []EmailAddress
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, parseEmailAddress(part))
		}
	}
	return result
}
