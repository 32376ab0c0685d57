package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

// TestCanAccessReport covers all 16 combinations of the four access
// conditions. Access is granted iff at least one condition holds.
func TestCanAccessReport(t *testing.T) {
	const caller = "user-123"

	for i := 0; i < 16; i++ {
		userMatches := i&1 != 0
		creatorMatches := i&2 != 0
		noDeal := i&4 != 0
		isAdmin := i&8 != 0
		want := userMatches || creatorMatches || noDeal || isAdmin

		name := fmt.Sprintf("user=%v_creator=%v_noDeal=%v_admin=%v", userMatches, creatorMatches, noDeal, isAdmin)
		t.Run(name, func(t *testing.T) {
			report := &models.ContractReport{ID: uuid.New()}

			owner := "someone-else"
			if userMatches {
				owner = caller
			}
			report.UserID = &owner

			if !noDeal {
				dealID := uuid.New()
				report.DealID = &dealID
				creatorID := "another-creator"
				if creatorMatches {
					creatorID = caller
				}
				report.Deal = &models.Deal{ID: dealID, CreatorID: creatorID}
			} else if creatorMatches {
				// A deal-less report can still carry a joined deal row in
				// theory; creator match is checked independently of deal_id.
				report.Deal = &models.Deal{CreatorID: caller}
			}

			role := "creator"
			if isAdmin {
				role = "admin"
			}

			assert.Equal(t, want, CanAccessReport(report, caller, role))
		})
	}
}

func TestCanAccessReportNilValues(t *testing.T) {
	assert.False(t, CanAccessReport(nil, "user-1", "admin"), "nil report is never accessible")

	dealID := uuid.New()
	report := &models.ContractReport{ID: uuid.New(), DealID: &dealID}
	assert.False(t, CanAccessReport(report, "user-1", "creator"),
		"report with a deal but no matching owner denies access")
	assert.True(t, CanAccessReport(report, "user-1", "admin"))
}
