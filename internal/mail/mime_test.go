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
	"slices"
	"strings"
	"testing"
)

const multipartMessage = "From: Alice <alice@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: =?utf-8?q?Caf=C3=A9_meeting?=\r\n" +
	"Message-ID: <root@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=UTF-8\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"Can we schedule a meeting =\r\ntomorrow?\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=UTF-8\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"PHA+SGk8L3A+\r\n" +
	"--b1--\r\n"

func TestParseRFC822_Multipart(t *testing.T) {
	headers, parts, err := ParseRFC822([]byte(multipartMessage))
	if err != nil {
		t.Fatalf("ParseRFC822: %v", err)
	}

	if got := headers["Subject"]; got != "Café meeting" {
		t.Errorf("subject = %q", got)
	}
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	if parts[0].MimeType != "text/plain" || parts[0].Content != "Can we schedule a meeting tomorrow?" {
		t.Errorf("plain part = %+v", parts[0])
	}
	if parts[1].MimeType != "text/html" || parts[1].Content != "<p>Hi</p>" {
		t.Errorf("html part = %+v", parts[1])
	}
	if got := threadID(headers); got != "<root@example.com>" {
		t.Errorf("thread id = %q", got)
	}
}

func TestParseRFC822_PlainDefault(t *testing.T) {
	_, parts, err := ParseRFC822([]byte("Subject: x\r\n\r\nhello\r\n"))
	if err != nil {
		t.Fatalf("ParseRFC822: %v", err)
	}
	if len(parts) != 1 || parts[0].MimeType != "text/plain" || parts[0].Content != "hello" {
		t.Errorf("parts = %+v", parts)
	}
}

func TestThreadID_References(t *testing.T) {
	got := threadID(map[string]string{
		"References": "<a@x> <b@x>",
		"Message-Id": "<c@x>",
	})
	if got != "<a@x>" {
		t.Errorf("thread id = %q, want <a@x>", got)
	}
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("me@example.com", "you@example.com", "Re: hi\r\nBcc: evil", "line1\nline2", "<id@example.com>", "Mon, 02 Jan 2006 15:04:05 +0000"))

	if !strings.Contains(msg, "Subject: Re: hi  Bcc: evil\r\n") {
		t.Errorf("subject header not sanitized:\n%s", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nline1\r\nline2\r\n") {
		t.Errorf("body not normalized:\n%q", msg)
	}
}

func TestNewestUIDs(t *testing.T) {
	got := newestUIDs([]uint32{3, 9, 1, 7}, 2)
	if !slices.Equal(got, []uint32{9, 7}) {
		t.Errorf("newestUIDs = %v, want [9 7]", got)
	}
	if got := newestUIDs([]uint32{1, 2}, 0); len(got) != 2 {
		t.Errorf("max 0 should keep all, got %v", got)
	}
}
