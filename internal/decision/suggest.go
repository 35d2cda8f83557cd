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

package decision

import "github.com/bcem/triage/internal/models"

// SuggestAction returns advisory text for a human reader. It never triggers
// an automated action. The order of checks is fixed: urgency High, then
// finance, then jobs, then urgency Medium.
func SuggestAction(category string, urgency models.Urgency) string {
	switch {
	case urgency == models.UrgencyHigh:
		return "Respond immediately"
	case category == models.CategoryFinance:
		return "Review within 24 hours"
	case category == models.CategoryJobs:
		return "Follow up if interested"
	case urgency == models.UrgencyMedium:
		return "Address soon"
	default:
		return "Read when available"
	}
}
