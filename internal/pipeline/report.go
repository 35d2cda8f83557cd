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

package pipeline

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bcem/triage/internal/models"
)

const subjectWidth = 48

// WriteBatchReport prints the "X/Y processed" line and one row per message.
func WriteBatchReport(w io.Writer, res *BatchResult) error {
	if _, err := fmt.Fprintf(w, "%d/%d processed\n\n", res.Succeeded, res.Total); err != nil {
		return err
	}
	if len(res.Reports) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MESSAGE\tSUBJECT\tCATEGORY\tURGENCY\tACTIONS\tSTATUS")
	for _, r := range res.Reports {
		status := string(r.Stage)
		if r.Err != nil {
			status = fmt.Sprintf("failed at %s: %v", r.FailedAt, r.Err)
		} else if r.ActionErr != nil {
			status += " (some actions failed)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.MessageID,
			clip(r.Subject, subjectWidth),
			r.Analysis.Category,
			r.Analysis.Urgency,
			r.Outcome.KindString(),
			status,
		)
	}
	return tw.Flush()
}

// WriteRecords prints stored records in the order given, with an urgency
// marker and the suggested action.
func WriteRecords(w io.Writer, records []models.StoredRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBJECT\tCATEGORY\tURGENCY\tSENTIMENT\tACTIONS\tSUGGESTED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\t%s\n",
			clip(r.Subject, subjectWidth),
			r.Analysis.Category,
			urgencyMarker(r.Analysis.Urgency),
			r.Analysis.Urgency,
			r.Analysis.Sentiment.Label,
			r.Outcome.KindString(),
			r.Analysis.SuggestedAction,
		)
	}
	return tw.Flush()
}

func urgencyMarker(u models.Urgency) string {
	switch u {
	case models.UrgencyHigh:
		return "!!"
	case models.UrgencyMedium:
		return "! "
	default:
		return "  "
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
