package query

import (
	"fmt"
	"testing"
	"time"

	leaddomain "leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	taskdomain "leadflow_backend/internal/tasks/domain"
	taskrepo "leadflow_backend/internal/tasks/repository"

	"github.com/google/uuid"
)

// orderedID builds uuids whose lexical order follows n, so id tie-breaking is
// deterministic in tests.
func orderedID(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("%08d-0000-0000-0000-000000000000", n))
}

func TestFilterTasksByStatusReturnsOnlyMatching(t *testing.T) {
	tasks := []taskrepo.AutomatedTask{
		{ID: orderedID(1), Status: taskdomain.StatusFailed},
		{ID: orderedID(2), Status: taskdomain.StatusCompleted},
		{ID: orderedID(3), Status: taskdomain.StatusFailed},
		{ID: orderedID(4), Status: taskdomain.StatusPending},
	}

	got := FilterTasks(tasks, TaskFilter{Statuses: []string{taskdomain.StatusFailed}})
	if len(got) != 2 {
		t.Fatalf("expected 2 failed tasks, got %d", len(got))
	}
	for _, task := range got {
		if task.Status != taskdomain.StatusFailed {
			t.Errorf("task %s has status %q, want failed", task.ID, task.Status)
		}
	}
}

func TestFilterTasksANDsAllFields(t *testing.T) {
	tasks := []taskrepo.AutomatedTask{
		{ID: orderedID(1), Name: "Follow up Marina lead", Status: taskdomain.StatusPending, Type: taskdomain.TypeLeadFollowup, Priority: taskdomain.PriorityHigh, AssignedAgent: "Sara"},
		{ID: orderedID(2), Name: "Follow up JVC lead", Status: taskdomain.StatusPending, Type: taskdomain.TypeLeadFollowup, Priority: taskdomain.PriorityLow, AssignedAgent: "Sara"},
		{ID: orderedID(3), Name: "Compliance sweep", Status: taskdomain.StatusPending, Type: taskdomain.TypeComplianceCheck, Priority: taskdomain.PriorityHigh, AssignedAgent: "Sara"},
	}

	got := FilterTasks(tasks, TaskFilter{
		Statuses:   []string{taskdomain.StatusPending},
		Types:      []string{taskdomain.TypeLeadFollowup},
		Priorities: []string{taskdomain.PriorityHigh},
		Agent:      "Sara",
	})
	if len(got) != 1 || got[0].ID != orderedID(1) {
		t.Fatalf("expected only task 1, got %d results", len(got))
	}
}

func TestFilterTasksSearchORsNameDescriptionAgent(t *testing.T) {
	tasks := []taskrepo.AutomatedTask{
		{ID: orderedID(1), Name: "Send brochure"},
		{ID: orderedID(2), Description: "brochure refresh for Q3"},
		{ID: orderedID(3), AssignedAgent: "Brochure Bot"},
		{ID: orderedID(4), Name: "Call back"},
	}

	got := FilterTasks(tasks, TaskFilter{Search: "BROCHURE"})
	if len(got) != 3 {
		t.Fatalf("expected 3 matches across name/description/agent, got %d", len(got))
	}
}

func TestFilterLeadsSearchSpansFields(t *testing.T) {
	leads := []leadrepo.Lead{
		{ID: orderedID(1), Name: "Ahmed Hassan", Status: leaddomain.StatusNew},
		{ID: orderedID(2), Phone: "+971501234567", Status: leaddomain.StatusNew},
		{ID: orderedID(3), Location: "Dubai Marina", Status: leaddomain.StatusQualified},
		{ID: orderedID(4), PropertyInterest: "Marina penthouse", Status: leaddomain.StatusNew},
	}

	got := FilterLeads(leads, LeadFilter{Search: "marina"})
	if len(got) != 2 {
		t.Fatalf("expected 2 marina matches, got %d", len(got))
	}

	got = FilterLeads(leads, LeadFilter{Status: leaddomain.StatusNew, Search: "marina"})
	if len(got) != 1 || got[0].ID != orderedID(4) {
		t.Fatalf("status+search should leave only lead 4, got %d results", len(got))
	}
}

func TestSortLeadsByScoreDescIsStable(t *testing.T) {
	now := time.Now()
	leads := []leadrepo.Lead{
		{ID: orderedID(1), Score: 70, CreatedAt: now},
		{ID: orderedID(2), Score: 95, CreatedAt: now},
		{ID: orderedID(3), Score: 95, CreatedAt: now},
		{ID: orderedID(4), Score: 40, CreatedAt: now},
	}

	SortLeads(leads, KeyScore, DirDesc)

	wantOrder := []uuid.UUID{orderedID(2), orderedID(3), orderedID(1), orderedID(4)}
	for i, want := range wantOrder {
		if leads[i].ID != want {
			t.Fatalf("position %d = %s, want %s (scores %v)", i, leads[i].ID, want, scores(leads))
		}
	}
}

func TestSortLeadsTiesBrokenByIDAscending(t *testing.T) {
	now := time.Now()
	leads := []leadrepo.Lead{
		{ID: orderedID(9), Score: 50, CreatedAt: now},
		{ID: orderedID(2), Score: 50, CreatedAt: now},
		{ID: orderedID(5), Score: 50, CreatedAt: now},
	}

	SortLeads(leads, KeyScore, DirAsc)

	wantOrder := []uuid.UUID{orderedID(2), orderedID(5), orderedID(9)}
	for i, want := range wantOrder {
		if leads[i].ID != want {
			t.Fatalf("position %d = %s, want %s", i, leads[i].ID, want)
		}
	}
}

func TestSortTasksByDateAsc(t *testing.T) {
	base := time.Now()
	tasks := []taskrepo.AutomatedTask{
		{ID: orderedID(1), CreatedAt: base.Add(2 * time.Hour)},
		{ID: orderedID(2), CreatedAt: base},
		{ID: orderedID(3), CreatedAt: base.Add(time.Hour)},
	}

	SortTasks(tasks, KeyDate, DirAsc)

	wantOrder := []uuid.UUID{orderedID(2), orderedID(3), orderedID(1)}
	for i, want := range wantOrder {
		if tasks[i].ID != want {
			t.Fatalf("position %d = %s, want %s", i, tasks[i].ID, want)
		}
	}
}

func scores(leads []leadrepo.Lead) []int {
	out := make([]int, len(leads))
	for i, lead := range leads {
		out[i] = lead.Score
	}
	return out
}
