package services

import (
	"github.com/dealshield-inc/dealshield-engine/pkg/auth"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

// CanAccessReport decides whether a caller may read or mutate a report and
// its derived artifacts. The rule is three-tier ownership plus admin:
//
//	user_id == caller OR deal.creator_id == caller OR deal_id IS NULL OR role == admin
//
// A report with no deal is readable by any authenticated caller. Every
// report-derived operation re-fetches the report and re-runs this check;
// the result is never cached across requests.
func CanAccessReport(report *models.ContractReport, callerID, callerRole string) bool {
	if report == nil {
		return false
	}
	if report.UserID != nil && *report.UserID == callerID {
		return true
	}
	if report.Deal != nil && report.Deal.CreatorID == callerID {
		return true
	}
	if report.DealID == nil {
		return true
	}
	return callerRole == auth.RoleAdmin
}
