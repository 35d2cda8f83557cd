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
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

// IMAPConfig holds the mailbox and submission server settings.
type IMAPConfig struct {
	IMAPAddr string // host:port, implicit TLS
	SMTPAddr string // host:port
	// SMTPImplicitTLS selects TLS from the first byte (port 465); otherwise
	// STARTTLS is negotiated.
	SMTPImplicitTLS bool
	Username        string
	Password        string
	Mailbox         string
	From            string
}

// IMAPTransport reads mail over IMAP and sends replies over SMTP. Each call
// opens its own connection.
type IMAPTransport struct {
	cfg IMAPConfig
}

// NewIMAPTransport creates a transport. Mailbox defaults to INBOX and From
// to the username.
func NewIMAPTransport(cfg IMAPConfig) *IMAPTransport {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &IMAPTransport{cfg: cfg}
}

// ListUnread returns the UIDs of up to max unseen messages, newest first.
func (t *IMAPTransport) ListUnread(ctx context.Context, max int) ([]string, error) {
	c, closeFn, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}

	selected := newestUIDs(uids, max)
	ids := make([]string, 0, len(selected))
	for _, uid := range selected {
		ids = append(ids, strconv.FormatUint(uint64(uid), 10))
	}
	return ids, nil
}

// Get fetches one message by UID. The body is fetched with PEEK so the
// message stays unread.
func (t *IMAPTransport) Get(ctx context.Context, id string) (*RawMessage, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid message id %q: %w", id, err)
	}

	c, closeFn, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uint32(uid))
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var raw *RawMessage
	var parseErr error
	for msg := range messages {
		if raw != nil || parseErr != nil {
			continue
		}
		literal := msg.GetBody(section)
		if literal == nil {
			parseErr = fmt.Errorf("message %s: empty body section", id)
			continue
		}
		data, err := io.ReadAll(literal)
		if err != nil {
			parseErr = fmt.Errorf("read message %s: %w", id, err)
			continue
		}
		headers, parts, err := ParseRFC822(data)
		if err != nil {
			parseErr = fmt.Errorf("parse message %s: %w", id, err)
			continue
		}
		raw = &RawMessage{
			ID:           id,
			ThreadID:     threadID(headers),
			Headers:      headers,
			Parts:        parts,
			InternalDate: msg.InternalDate,
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	return raw, nil
}

// Send submits a plain-text message over SMTP with PLAIN authentication.
func (t *IMAPTransport) Send(ctx context.Context, to, subject, body string) error {
	c, err := t.dialSMTP(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	if err := c.Auth(sasl.NewPlainClient("", t.cfg.Username, t.cfg.Password)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(t.cfg.From, nil); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(to, nil); err != nil {
		return fmt.Errorf("smtp RCPT TO %q: %w", to, err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	msg := buildMessage(t.cfg.From, to, subject, body, messageID(t.cfg.From), time.Now().Format(time.RFC1123Z))
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp finalize: %w", err)
	}
	if err := c.Quit(); err != nil {
		return fmt.Errorf("smtp QUIT: %w", err)
	}
	return nil
}

// connect dials, logs in and selects the mailbox read-only. The returned
// func logs out; cancelling ctx terminates the connection.
func (t *IMAPTransport) connect(ctx context.Context) (*client.Client, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	c, err := client.DialTLS(t.cfg.IMAPAddr, &tls.Config{ServerName: hostOf(t.cfg.IMAPAddr)})
	if err != nil {
		return nil, nil, fmt.Errorf("imap dial: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { c.Terminate() })
	closeFn := func() {
		stop()
		c.Logout()
	}

	if err := c.Login(t.cfg.Username, t.cfg.Password); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select(t.cfg.Mailbox, true); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("imap select %s: %w", t.cfg.Mailbox, err)
	}
	return c, closeFn, nil
}

func (t *IMAPTransport) dialSMTP(ctx context.Context) (*smtp.Client, error) {
	tlsConfig := &tls.Config{ServerName: hostOf(t.cfg.SMTPAddr)}
	if t.cfg.SMTPImplicitTLS {
		conn, err := (&tls.Dialer{Config: tlsConfig}).DialContext(ctx, "tcp", t.cfg.SMTPAddr)
		if err != nil {
			return nil, fmt.Errorf("smtp dial: %w", err)
		}
		return smtp.NewClient(conn), nil
	}

	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", t.cfg.SMTPAddr)
	if err != nil {
		return nil, fmt.Errorf("smtp dial: %w", err)
	}
	c, err := smtp.NewClientStartTLS(conn, tlsConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp starttls: %w", err)
	}
	return c, nil
}

// newestUIDs returns up to max UIDs in descending order. A non-positive max
// returns them all.
func newestUIDs(uids []uint32, max int) []uint32 {
	sorted := slices.Clone(uids)
	slices.Sort(sorted)
	slices.Reverse(sorted)
	if max > 0 && len(sorted) > max {
		sorted = sorted[:max]
	}
	return sorted
}

// threadID uses the root of the References chain, falling back to the
// message's own Message-ID.
func threadID(headers map[string]string) string {
	if refs := strings.Fields(headers["References"]); len(refs) > 0 {
		return refs[0]
	}
	if v := strings.TrimSpace(headers["In-Reply-To"]); v != "" {
		return v
	}
	return strings.TrimSpace(headers["Message-Id"])
}

func messageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
