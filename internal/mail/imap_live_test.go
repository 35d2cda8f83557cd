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
	"os"
	"testing"
	"time"
)

const liveTestFlagEnv = "TRIAGE_IMAP_LIVE_TEST"

// TestLiveIMAP_ListAndGet reads the newest unread message from a real
// mailbox without marking it read.
func TestLiveIMAP_ListAndGet(t *testing.T) {
	if os.Getenv(liveTestFlagEnv) != "1" {
		t.Skipf("set %s=1 to run live IMAP integration tests", liveTestFlagEnv)
	}

	tr := NewIMAPTransport(IMAPConfig{
		IMAPAddr: os.Getenv("TRIAGE_IMAP_ADDR"),
		Username: os.Getenv("TRIAGE_MAIL_USERNAME"),
		Password: os.Getenv("TRIAGE_MAIL_PASSWORD"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ids, err := tr.ListUnread(ctx, 1)
	if err != nil {
		t.Fatalf("ListUnread: %v", err)
	}
	if len(ids) == 0 {
		t.Skip("mailbox has no unread messages")
	}

	raw, err := tr.Get(ctx, ids[0])
	if err != nil {
		t.Fatalf("Get(%s): %v", ids[0], err)
	}
	if raw.ID != ids[0] {
		t.Errorf("id = %q, want %q", raw.ID, ids[0])
	}
}
