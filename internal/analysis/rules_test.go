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

package analysis

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/bcem/triage/internal/models"
)

func TestClassifyCategory(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Hi, can we schedule a meeting tomorrow?", models.CategoryMeeting},
		{"Could you provide more information about your services?", models.CategoryInformation},
		{"Your UPI transaction was successful", models.CategoryFinance},
		{"We are HIRING for a new position", models.CategoryJobs},
		{"Big discount this weekend", models.CategoryPromotions},
		{"Join our referral scheme", models.CategoryOpportunities},
		{"Notice from the Ministry", models.CategoryGovernment},
		{"Your OTP is 1234", models.CategorySecurity},
		{"Lunch was nice", models.CategoryGeneral},
		{"", models.CategoryGeneral},
	}
	for _, tt := range tests {
		be.Equal(t, ClassifyCategory(tt.text), tt.want)
	}
}

// TestClassifyCategory_Precedence verifies the first category in declared
// order wins when several match, on every call.
func TestClassifyCategory_Precedence(t *testing.T) {
	text := "Payment reminder: please schedule a meeting about your bank account"
	for i := 0; i < 10; i++ {
		be.Equal(t, ClassifyCategory(text), models.CategoryMeeting)
	}
	be.Equal(t, ClassifyCategory("job offer with a sign-on bonus paid to your bank"), models.CategoryFinance)
	be.Equal(t, ClassifyCategory("security alert: verify your login"), models.CategorySecurity)
}

func TestDetectUrgency(t *testing.T) {
	tests := []struct {
		text string
		want models.Urgency
	}{
		{"FINAL NOTICE: pay now", models.UrgencyHigh},
		{"The deadline for lunch orders is noon", models.UrgencyHigh},
		{"Important update about your account", models.UrgencyMedium},
		{"Please respond when you can", models.UrgencyMedium},
		{"Hi, can we schedule a meeting tomorrow?", models.UrgencyLow},
		{"", models.UrgencyLow},
	}
	for _, tt := range tests {
		be.Equal(t, DetectUrgency(tt.text), tt.want)
	}
}

// TestDetectUrgency_UrgentBeforeImportant checks the urgent list is consulted
// before the important list.
func TestDetectUrgency_UrgentBeforeImportant(t *testing.T) {
	be.Equal(t, DetectUrgency("important: act now"), models.UrgencyHigh)
}

func TestTruncate(t *testing.T) {
	be.Equal(t, Truncate("héllo wörld", 5), "héllo")
	be.Equal(t, Truncate("short", 10), "short")
	be.Equal(t, Truncate("unbounded", 0), "unbounded")
}
