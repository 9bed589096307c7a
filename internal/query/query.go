// Package query provides the read-side filtering, search and sorting used by
// list endpoints and reports.
package query

import (
	"sort"
	"strings"

	leadrepo "leadflow_backend/internal/leads/repository"
	taskrepo "leadflow_backend/internal/tasks/repository"
)

// Sort directions.
const (
	DirAsc  = "asc"
	DirDesc = "desc"
)

// Sort keys.
const (
	KeyScore  = "score"
	KeyDate   = "date"
	KeyStatus = "status"
)

// LeadFilter narrows a lead list. Zero values mean "no constraint".
type LeadFilter struct {
	Status string
	Search string
}

// TaskFilter narrows a task list. Empty slices/strings mean "no constraint";
// every non-empty field is AND-ed.
type TaskFilter struct {
	Statuses   []string
	Types      []string
	Priorities []string
	Agent      string
	Search     string
}

// FilterLeads returns the leads matching the filter. Status is an exact
// match; the search term does a case-insensitive substring match across
// name, phone, location and property interest.
func FilterLeads(leads []leadrepo.Lead, filter LeadFilter) []leadrepo.Lead {
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	result := make([]leadrepo.Lead, 0, len(leads))
	for _, lead := range leads {
		if filter.Status != "" && lead.Status != filter.Status {
			continue
		}
		if search != "" && !leadMatches(lead, search) {
			continue
		}
		result = append(result, lead)
	}
	return result
}

func leadMatches(lead leadrepo.Lead, search string) bool {
	fields := []string{lead.Name, lead.Phone, lead.Location, lead.PropertyInterest}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// FilterTasks returns the tasks matching the filter. Each non-empty filter
// field is AND-ed; the search term ORs across name, description and agent.
func FilterTasks(tasks []taskrepo.AutomatedTask, filter TaskFilter) []taskrepo.AutomatedTask {
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	result := make([]taskrepo.AutomatedTask, 0, len(tasks))
	for _, task := range tasks {
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, task.Status) {
			continue
		}
		if len(filter.Types) > 0 && !contains(filter.Types, task.Type) {
			continue
		}
		if len(filter.Priorities) > 0 && !contains(filter.Priorities, task.Priority) {
			continue
		}
		if filter.Agent != "" && task.AssignedAgent != filter.Agent {
			continue
		}
		if search != "" && !taskMatches(task, search) {
			continue
		}
		result = append(result, task)
	}
	return result
}

func taskMatches(task taskrepo.AutomatedTask, search string) bool {
	fields := []string{task.Name, task.Description, task.AssignedAgent}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// SortLeads orders leads in place by the given key and direction. The sort is
// stable and ties are broken by id ascending.
func SortLeads(leads []leadrepo.Lead, key, dir string) {
	desc := dir == DirDesc
	sort.SliceStable(leads, func(i, j int) bool {
		a, b := leads[i], leads[j]
		var less, equal bool
		switch key {
		case KeyScore:
			less, equal = a.Score < b.Score, a.Score == b.Score
		case KeyStatus:
			less, equal = a.Status < b.Status, a.Status == b.Status
		default: // date
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		}
		if equal {
			return a.ID.String() < b.ID.String()
		}
		if desc {
			return !less
		}
		return less
	})
}

// SortTasks orders tasks in place by the given key and direction. The sort is
// stable and ties are broken by id ascending.
func SortTasks(tasks []taskrepo.AutomatedTask, key, dir string) {
	desc := dir == DirDesc
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		var less, equal bool
		switch key {
		case KeyStatus:
			less, equal = a.Status < b.Status, a.Status == b.Status
		default: // date
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		}
		if equal {
			return a.ID.String() < b.ID.String()
		}
		if desc {
			return !less
		}
		return less
	})
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
