// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	netmail "net/mail"
	"net/textproto"
	"strings"
)

var headerDecoder = new(mime.WordDecoder)

// ParseRFC822 splits an RFC 822 message into decoded headers and its leaf
// text parts in document order.
func ParseRFC822(raw []byte) (map[string]string, []Part, error) {
	msg, err := netmail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("read message: %w", err)
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read message body: %w", err)
	}

	headers := make(map[string]string, len(msg.Header))
	for k, v := range msg.Header {
		if len(v) == 0 {
			continue
		}
		decoded, err := headerDecoder.DecodeHeader(v[0])
		if err != nil {
			decoded = v[0]
		}
		headers[k] = decoded
	}

	parts, err := collectParts(textproto.MIMEHeader(msg.Header), body, nil)
	if err != nil {
		return nil, nil, err
	}
	return headers, parts, nil
}

func collectParts(header textproto.MIMEHeader, body []byte, out []Part) ([]Part, error) {
	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil || mediaType == "" {
		mediaType = "text/plain"
	}

	decoded, err := decodeTransferEncoding(header.Get("Content-Transfer-Encoding"), body)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		boundary := params["boundary"]
		if boundary == "" {
			return out, nil
		}
		reader := multipart.NewReader(bytes.NewReader(decoded), boundary)
		for {
			part, err := reader.NextRawPart()
			if err == io.EOF {
				return out, nil
			}
			if err != nil {
				return nil, fmt.Errorf("read multipart: %w", err)
			}
			partBody, err := io.ReadAll(part)
			if err != nil {
				return nil, fmt.Errorf("read part: %w", err)
			}
			if out, err = collectParts(part.Header, partBody, out); err != nil {
				return nil, err
			}
		}
	case mediaType == "message/rfc822":
		nested, err := netmail.ReadMessage(bytes.NewReader(decoded))
		if err != nil {
			return nil, fmt.Errorf("read nested message: %w", err)
		}
		nestedBody, err := io.ReadAll(nested.Body)
		if err != nil {
			return nil, err
		}
		return collectParts(textproto.MIMEHeader(nested.Header), nestedBody, out)
	case strings.HasPrefix(mediaType, "text/"):
		return append(out, Part{MimeType: mediaType, Content: strings.TrimSpace(string(decoded))}), nil
	default:
		return out, nil
	}
}

func decodeTransferEncoding(encoding string, body []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(bytes.NewReader(body)))
	case "base64":
		clean := strings.NewReplacer("\r", "", "\n", "").Replace(string(body))
		decoded, err := base64.StdEncoding.DecodeString(clean)
		if err != nil {
			return body, nil
		}
		return decoded, nil
	default:
		return body, nil
	}
}

// buildMessage renders a plain-text message for SMTP submission.
func buildMessage(from, to, subject, body, messageID string, date string) []byte {
	headers := []string{
		"From: " + from,
		"To: " + sanitizeHeader(to),
		"Subject: " + mime.QEncoding.Encode("utf-8", sanitizeHeader(subject)),
		"Date: " + date,
		"Message-ID: " + messageID,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + normalizeBody(body) + "\r\n")
}

func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}

func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	return strings.ReplaceAll(strings.TrimSpace(body), "\n", "\r\n")
}
