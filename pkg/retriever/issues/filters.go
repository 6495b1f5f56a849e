package issues

import (
	"fmt"

	"callcenter-assistant-be/pkg/searchindex"
)

// Status sets used when deriving filters from the plan intent.
var (
	openStatuses = []string{"To Do", "In Progress", "Selected for Development"}
	doneStatuses = []string{"Done", "Closed", "Resolved", "Released"}
)

// DefaultStaleDays is the staleness threshold for "missed" work when no
// explicit override is configured.
const DefaultStaleDays = 10

// BuildFilters derives index filters from the search plan and the resolved
// assignee.
//
// "working" constrains to open statuses. "completed" requires a done status or
// a resolution date. "missed" means still open AND either overdue (due date in
// the past) or stale (not updated for staleDays); an explicit date window in
// the plan replaces the derived overdue/stale window. "generic" applies only
// the date window, if any.
func BuildFilters(plan Plan, assigneeAccountID string, staleDays int) []searchindex.M {
	if staleDays <= 0 {
		staleDays = DefaultStaleDays
	}

	var filters []searchindex.M
	if plan.Project != "" {
		filters = append(filters, searchindex.Term("project", plan.Project))
	}
	if assigneeAccountID != "" {
		filters = append(filters, searchindex.Term("assignee_accountId", assigneeAccountID))
	}

	dateWindow := func() (searchindex.M, bool) {
		if plan.DateField == "" || (plan.StartISO == "" && plan.EndISO == "") {
			return nil, false
		}
		bounds := searchindex.M{}
		if plan.StartISO != "" {
			bounds["gte"] = plan.StartISO
		}
		if plan.EndISO != "" {
			bounds["lte"] = plan.EndISO
		}
		return searchindex.Range(plan.DateField, bounds), true
	}

	switch plan.Intent {
	case PlanWorking:
		filters = append(filters, searchindex.Terms("status", openStatuses))
		if w, ok := dateWindow(); ok {
			filters = append(filters, w)
		}

	case PlanCompleted:
		filters = append(filters, searchindex.Should(
			searchindex.Terms("status", doneStatuses),
			searchindex.Exists("resolutiondate"),
		))
		if w, ok := dateWindow(); ok {
			filters = append(filters, w)
		}

	case PlanMissed:
		filters = append(filters, searchindex.Terms("status", openStatuses))
		if w, ok := dateWindow(); ok {
			filters = append(filters, w)
		} else {
			filters = append(filters, searchindex.Should(
				searchindex.Range("duedate", searchindex.M{"lt": "now/d"}),
				searchindex.Range("updated", searchindex.M{"lte": fmt.Sprintf("now-%dd/d", staleDays)}),
			))
		}

	default:
		if w, ok := dateWindow(); ok {
			filters = append(filters, w)
		}
	}

	return filters
}
