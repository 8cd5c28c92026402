package task

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	domain "github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/modules/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(store.New(filepath.Join(t.TempDir(), "board.json")), "tester")
}

func mustCreate(t *testing.T, s *Service, fields CreateFields) *domain.Task {
	t.Helper()
	created, err := s.Create(fields)
	if err != nil {
		t.Fatalf("Create(%+v): %v", fields, err)
	}
	return created
}

func strPtr(v string) *string { return &v }

func TestCreateAppliesDefaults(t *testing.T) {
	s := newTestService(t)

	created := mustCreate(t, s, CreateFields{Title: "Write release notes"})

	if created.ID == "" {
		t.Fatal("expected a generated id")
	}
	if created.Status != domain.StatusBacklog {
		t.Errorf("status = %q, want %q", created.Status, domain.StatusBacklog)
	}
	if created.Priority != domain.PriorityNormal {
		t.Errorf("priority = %q, want %q", created.Priority, domain.PriorityNormal)
	}
	if created.Project != "general" {
		t.Errorf("project = %q, want general", created.Project)
	}
	if created.Assignee != "tester" {
		t.Errorf("assignee = %q, want tester", created.Assignee)
	}
	if created.CreatedBy != "tester" {
		t.Errorf("created_by = %q, want tester", created.CreatedBy)
	}

	detail, err := s.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(detail.Activity) != 1 {
		t.Fatalf("activity entries = %d, want 1", len(detail.Activity))
	}
	if detail.Activity[0].Action != domain.ActionCreated {
		t.Errorf("activity action = %q, want %q", detail.Activity[0].Action, domain.ActionCreated)
	}
}

func TestCreateBlankTitleRejected(t *testing.T) {
	s := newTestService(t)

	for _, title := range []string{"", "   ", "\t\n"} {
		if _, err := s.Create(CreateFields{Title: title}); !IsValidation(err) {
			t.Errorf("Create(title=%q) err = %v, want ValidationError", title, err)
		}
	}

	// Nothing may have been persisted by the rejected creates.
	tasks, err := s.List(Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("persisted tasks = %d, want 0", len(tasks))
	}
}

func TestCreatePreservesUnknownStatus(t *testing.T) {
	s := newTestService(t)

	created := mustCreate(t, s, CreateFields{Title: "Spike", Status: "blocked"})
	if created.Status != domain.Status("blocked") {
		t.Errorf("status = %q, want blocked", created.Status)
	}
}

func TestUpdateStatusChangeRecordsMove(t *testing.T) {
	s := newTestService(t)
	created := mustCreate(t, s, CreateFields{Title: "Fix flaky test", Status: "todo"})

	updated, err := s.Update(created.ID, UpdateFields{
		Status: strPtr("in-progress"),
		By:     "alice",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != domain.StatusInProgress {
		t.Errorf("status = %q, want in-progress", updated.Status)
	}

	detail, err := s.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var moved *domain.ActivityEntry
	for i := range detail.Activity {
		if detail.Activity[i].Action == domain.ActionMoved {
			moved = &detail.Activity[i]
		}
	}
	if moved == nil {
		t.Fatal("expected a moved activity entry")
	}
	if moved.FromStatus != domain.StatusTodo || moved.ToStatus != domain.StatusInProgress {
		t.Errorf("transition = %s -> %s, want todo -> in-progress", moved.FromStatus, moved.ToStatus)
	}
	if moved.By != "alice" {
		t.Errorf("by = %q, want alice", moved.By)
	}
}

func TestUpdateSameStatusNoMoveEntry(t *testing.T) {
	s := newTestService(t)
	created := mustCreate(t, s, CreateFields{Title: "Tidy imports", Status: "todo"})

	if _, err := s.Update(created.ID, UpdateFields{Status: strPtr("todo")}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	detail, err := s.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for _, a := range detail.Activity {
		if a.Action == domain.ActionMoved {
			t.Errorf("unexpected moved entry: %+v", a)
		}
	}
}

func TestUpdateStatusAndDueDateTwoEntries(t *testing.T) {
	s := newTestService(t)
	created := mustCreate(t, s, CreateFields{Title: "Ship v2", Status: "todo"})

	_, err := s.Update(created.ID, UpdateFields{
		Status:     strPtr("review"),
		DueDate:    strPtr("2026-09-15"),
		DueDateSet: true,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	detail, err := s.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// created + moved + due date update
	if len(detail.Activity) != 3 {
		t.Fatalf("activity entries = %d, want 3", len(detail.Activity))
	}
	seen := map[int64]bool{}
	for _, a := range detail.Activity {
		if seen[a.ID] {
			t.Errorf("duplicate activity id %d", a.ID)
		}
		seen[a.ID] = true
	}
}

func TestUpdateDueDateRemoval(t *testing.T) {
	s := newTestService(t)
	created := mustCreate(t, s, CreateFields{Title: "Renew cert", DueDate: strPtr("2026-09-01")})

	updated, err := s.Update(created.ID, UpdateFields{DueDate: nil, DueDateSet: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.DueDate != nil {
		t.Errorf("due date = %v, want nil", *updated.DueDate)
	}

	detail, err := s.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	found := false
	for _, a := range detail.Activity {
		if a.Action == domain.ActionUpdated && a.Note == "Due date removed" {
			found = true
		}
	}
	if !found {
		t.Error("expected a 'Due date removed' activity entry")
	}
}

func TestUpdateUnknownTask(t *testing.T) {
	s := newTestService(t)
	if _, err := s.Update("missing", UpdateFields{Title: strPtr("x")}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestArchiveRestoreRoundtrip(t *testing.T) {
	s := newTestService(t)
	created := mustCreate(t, s, CreateFields{Title: "Decommission old queue"})

	archived, err := s.Archive(created.ID, "bob")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if archived.ArchivedAt == nil {
		t.Error("archived_at not stamped")
	}

	// Archived tasks drop out of List but stay reachable via Get.
	tasks, err := s.List(Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("active tasks after archive = %d, want 0", len(tasks))
	}
	if _, err := s.Get(created.ID); err != nil {
		t.Fatalf("Get archived: %v", err)
	}

	// Archiving twice is not found: the task no longer lives in the
	// active collection.
	if _, err := s.Archive(created.ID, "bob"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("second Archive err = %v, want ErrTaskNotFound", err)
	}

	restored, err := s.Restore(created.ID, "bob")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.ArchivedAt != nil {
		t.Error("archived_at not cleared on restore")
	}

	tasks, err = s.List(Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("active tasks after restore = %d, want 1", len(tasks))
	}

	detail, err := s.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// created + archived + restored
	if len(detail.Activity) != 3 {
		t.Errorf("activity entries = %d, want 3", len(detail.Activity))
	}
}

func TestRestoreActiveTaskFails(t *testing.T) {
	s := newTestService(t)
	created := mustCreate(t, s, CreateFields{Title: "Still active"})

	if _, err := s.Restore(created.ID, ""); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	s := newTestService(t)
	keep := mustCreate(t, s, CreateFields{Title: "Keeper"})
	doomed := mustCreate(t, s, CreateFields{Title: "Doomed"})

	if _, err := s.AddComment(doomed.ID, "will vanish", "carol"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if _, err := s.LinkDocument(doomed.ID, "notes/plan.md", "Plan", "markdown", "carol"); err != nil {
		t.Fatalf("LinkDocument: %v", err)
	}

	if _, err := s.Delete(doomed.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := s.Get(doomed.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Get deleted err = %v, want ErrTaskNotFound", err)
	}

	counts, err := s.TaskDocuments()
	if err != nil {
		t.Fatalf("TaskDocuments: %v", err)
	}
	if _, ok := counts["notes/plan.md"]; ok {
		t.Error("document link survived delete")
	}

	// The unrelated task keeps its trail.
	detail, err := s.Get(keep.ID)
	if err != nil {
		t.Fatalf("Get keeper: %v", err)
	}
	if len(detail.Activity) != 1 {
		t.Errorf("keeper activity entries = %d, want 1", len(detail.Activity))
	}
}

func TestDeleteArchivedTask(t *testing.T) {
	s := newTestService(t)
	created := mustCreate(t, s, CreateFields{Title: "Old work"})
	if _, err := s.Archive(created.ID, ""); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	if _, err := s.Delete(created.ID); err != nil {
		t.Fatalf("Delete archived: %v", err)
	}
	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Archived != 0 {
		t.Errorf("archived count = %d, want 0", stats.Archived)
	}
}

func TestListFilters(t *testing.T) {
	s := newTestService(t)
	mustCreate(t, s, CreateFields{Title: "A", Project: "infra", Status: "todo"})
	mustCreate(t, s, CreateFields{Title: "B", Project: "infra", Status: "done"})
	mustCreate(t, s, CreateFields{Title: "C", Project: "web", Status: "todo"})

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"by project", Filter{Project: "infra"}, 2},
		{"by status", Filter{Status: "todo"}, 2},
		{"combined", Filter{Project: "infra", Status: "todo"}, 1},
		{"no match", Filter{Project: "mobile"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := s.List(tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(tasks) != tt.want {
				t.Errorf("len = %d, want %d", len(tasks), tt.want)
			}
		})
	}
}

func TestListOverdueBeatsPriority(t *testing.T) {
	s := newTestService(t)

	low := mustCreate(t, s, CreateFields{Title: "Overdue low", Priority: "low", DueDate: strPtr("2020-01-01")})
	urgent := mustCreate(t, s, CreateFields{Title: "Urgent future", Priority: "urgent", DueDate: strPtr("2999-01-01")})
	high := mustCreate(t, s, CreateFields{Title: "High no date", Priority: "high"})

	tasks, err := s.List(Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("len = %d, want 3", len(tasks))
	}
	if tasks[0].ID != low.ID {
		t.Errorf("first = %q, want overdue task %q", tasks[0].Title, low.ID)
	}
	if tasks[1].ID != urgent.ID {
		t.Errorf("second = %q, want urgent task", tasks[1].Title)
	}
	if tasks[2].ID != high.ID {
		t.Errorf("third = %q, want high task", tasks[2].Title)
	}
}

func TestListUnparseableDueDateNotOverdue(t *testing.T) {
	s := newTestService(t)
	mustCreate(t, s, CreateFields{Title: "Garbage date", Priority: "low", DueDate: strPtr("soonish")})
	urgent := mustCreate(t, s, CreateFields{Title: "Urgent", Priority: "urgent"})

	tasks, err := s.List(Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if tasks[0].ID != urgent.ID {
		t.Errorf("first = %q, want the urgent task", tasks[0].Title)
	}
}

func TestStatsZeroFill(t *testing.T) {
	s := newTestService(t)
	mustCreate(t, s, CreateFields{Title: "A", Status: "todo"})
	mustCreate(t, s, CreateFields{Title: "B", Status: "todo"})
	mustCreate(t, s, CreateFields{Title: "C", Status: "done"})
	arch := mustCreate(t, s, CreateFields{Title: "D", Status: "done"})
	if _, err := s.Archive(arch.ID, ""); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := Stats{Total: 3, Backlog: 0, Todo: 2, InProgress: 0, Review: 0, Done: 1, Archived: 1}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}
}

func TestAddCommentPreviewTruncation(t *testing.T) {
	s := newTestService(t)
	created := mustCreate(t, s, CreateFields{Title: "Discuss"})

	long := strings.Repeat("x", 150)
	comment, err := s.AddComment(created.ID, long, "dave")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if comment.Text != long {
		t.Error("comment text must be stored untruncated")
	}

	detail, err := s.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var note string
	for _, a := range detail.Activity {
		if a.Action == domain.ActionCommented {
			note = a.Note
		}
	}
	if want := strings.Repeat("x", 100) + "..."; note != want {
		t.Errorf("note = %q (len %d), want 100 chars plus ellipsis", note, len(note))
	}
}

func TestAddCommentValidation(t *testing.T) {
	s := newTestService(t)
	created := mustCreate(t, s, CreateFields{Title: "Quiet"})

	if _, err := s.AddComment(created.ID, "   ", "dave"); !IsValidation(err) {
		t.Errorf("blank comment err = %v, want ValidationError", err)
	}
	if _, err := s.AddComment("missing", "hello", "dave"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("missing task err = %v, want ErrTaskNotFound", err)
	}
}

func TestLinkDocumentDuplicateConflict(t *testing.T) {
	s := newTestService(t)
	created := mustCreate(t, s, CreateFields{Title: "Design work"})

	if _, err := s.LinkDocument(created.ID, "docs/design.md", "Design", "markdown", ""); err != nil {
		t.Fatalf("LinkDocument: %v", err)
	}
	if _, err := s.LinkDocument(created.ID, "docs/design.md", "Again", "markdown", ""); !errors.Is(err, ErrDuplicateLink) {
		t.Errorf("duplicate err = %v, want ErrDuplicateLink", err)
	}

	detail, err := s.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(detail.LinkedDocuments) != 1 {
		t.Errorf("links = %d, want 1 after rejected duplicate", len(detail.LinkedDocuments))
	}
}

func TestUnlinkDocument(t *testing.T) {
	s := newTestService(t)
	created := mustCreate(t, s, CreateFields{Title: "Cleanup"})

	if err := s.UnlinkDocument(created.ID, "docs/gone.md", ""); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("unlink with no links err = %v, want ErrLinkNotFound", err)
	}

	if _, err := s.LinkDocument(created.ID, "docs/a.md", "", "", ""); err != nil {
		t.Fatalf("LinkDocument: %v", err)
	}
	if err := s.UnlinkDocument(created.ID, "docs/b.md", ""); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("unlink wrong path err = %v, want ErrLinkNotFound", err)
	}
	if err := s.UnlinkDocument(created.ID, "docs/a.md", ""); err != nil {
		t.Fatalf("UnlinkDocument: %v", err)
	}

	counts, err := s.TaskDocuments()
	if err != nil {
		t.Fatalf("TaskDocuments: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("reverse index = %v, want empty", counts)
	}
}

func TestTaskDocumentsReverseIndex(t *testing.T) {
	s := newTestService(t)
	a := mustCreate(t, s, CreateFields{Title: "A"})
	b := mustCreate(t, s, CreateFields{Title: "B"})

	for _, id := range []string{a.ID, b.ID} {
		if _, err := s.LinkDocument(id, "docs/shared.md", "", "", ""); err != nil {
			t.Fatalf("LinkDocument: %v", err)
		}
	}
	if _, err := s.LinkDocument(a.ID, "docs/solo.md", "", "", ""); err != nil {
		t.Fatalf("LinkDocument: %v", err)
	}

	counts, err := s.TaskDocuments()
	if err != nil {
		t.Fatalf("TaskDocuments: %v", err)
	}
	if counts["docs/shared.md"] != 2 || counts["docs/solo.md"] != 1 {
		t.Errorf("counts = %v, want shared=2 solo=1", counts)
	}
}

func TestActivityIDsMonotonic(t *testing.T) {
	s := newTestService(t)
	created := mustCreate(t, s, CreateFields{Title: "Busy task"})

	if _, err := s.Update(created.ID, UpdateFields{Status: strPtr("todo")}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := s.AddComment(created.ID, "note", ""); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if _, err := s.LinkDocument(created.ID, "d.md", "", "", ""); err != nil {
		t.Fatalf("LinkDocument: %v", err)
	}

	detail, err := s.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var prev int64
	for _, a := range detail.Activity {
		if a.ID <= prev {
			t.Errorf("activity id %d not strictly increasing after %d", a.ID, prev)
		}
		prev = a.ID
	}
}
