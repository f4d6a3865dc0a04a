package domain

import (
	"testing"
	"time"

	"crm_backend/internal/events"
	"crm_backend/platform/apperr"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newExistingLead(assignee uuid.UUID) Lead {
	return Lead{
		ID:           uuid.New(),
		Name:         "Acme Corp",
		Email:        "a@b.com",
		Status:       StatusNew,
		AssignedToID: &assignee,
		CreatedByID:  assignee,
		CreatedAt:    testNow.Add(-time.Hour),
		UpdatedAt:    testNow.Add(-time.Hour),
	}
}

func TestCreateDefaultsAssigneeToCreator(t *testing.T) {
	actor := UserRef{ID: uuid.New(), Name: "Sam"}
	change, err := Create(uuid.New(), CreateInput{Name: "Acme Corp", Email: "a@b.com"}, actor, nil, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if change.Lead.AssignedToID == nil || *change.Lead.AssignedToID != actor.ID {
		t.Fatalf("expected lead assigned to creator, got %v", change.Lead.AssignedToID)
	}
	if change.Lead.CreatedByID != actor.ID {
		t.Fatalf("expected createdBy %s, got %s", actor.ID, change.Lead.CreatedByID)
	}
	if change.Lead.Status != StatusNew {
		t.Fatalf("expected default status New, got %s", change.Lead.Status)
	}
	if len(change.Activities) != 1 {
		t.Fatalf("expected exactly one activity, got %d", len(change.Activities))
	}
	activity := change.Activities[0]
	if activity.Type != ActivityNote || activity.Title != "Lead Created" {
		t.Fatalf("unexpected initial activity %+v", activity)
	}
	if activity.Description == nil || *activity.Description != `Lead "Acme Corp" was created` {
		t.Fatalf("unexpected description %v", activity.Description)
	}
	if len(change.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(change.Events))
	}
	created, ok := change.Events[0].(events.LeadCreated)
	if !ok {
		t.Fatalf("expected LeadCreated, got %T", change.Events[0])
	}
	if created.Lead.AssignedToName != "Sam" || created.ActorName != "Sam" {
		t.Fatalf("unexpected event names %+v", created)
	}
}

func TestCreateWithExplicitAssignee(t *testing.T) {
	actor := UserRef{ID: uuid.New(), Name: "Manager"}
	assignee := UserRef{ID: uuid.New(), Name: "Rep"}

	change, err := Create(uuid.New(), CreateInput{
		Name:         "Acme Corp",
		Email:        "a@b.com",
		Status:       strPtr("Qualified"),
		AssignedToID: &assignee.ID,
	}, actor, &assignee, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *change.Lead.AssignedToID != assignee.ID {
		t.Fatalf("expected explicit assignee")
	}
	if change.Lead.Status != StatusQualified {
		t.Fatalf("expected Qualified, got %s", change.Lead.Status)
	}

	if _, err := Create(uuid.New(), CreateInput{Name: "X", Email: "a@b.com", AssignedToID: &assignee.ID}, actor, nil, testNow); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for unresolved assignee, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	actor := UserRef{ID: uuid.New(), Name: "Sam"}
	negative := -5.0
	cases := map[string]CreateInput{
		"missing name":   {Name: "  ", Email: "a@b.com"},
		"bad email":      {Name: "Acme", Email: "not-an-email"},
		"bad status":     {Name: "Acme", Email: "a@b.com", Status: strPtr("Pending")},
		"negative value": {Name: "Acme", Email: "a@b.com", EstimatedValue: &negative},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			change, err := Create(uuid.New(), in, actor, nil, testNow)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if change.Modified() {
				t.Fatal("expected no change on validation failure")
			}
		})
	}
}

func TestApplyWithoutStatusCreatesNoActivity(t *testing.T) {
	owner := uuid.New()
	existing := newExistingLead(owner)
	actor := UserRef{ID: owner, Name: "Rep"}

	change, err := Apply(existing, Patch{Company: strPtr("Acme Inc")}, actor, nil, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(change.Activities) != 0 || len(change.Events) != 0 {
		t.Fatalf("expected no activities or events, got %d/%d", len(change.Activities), len(change.Events))
	}
	if change.Lead.Company == nil || *change.Lead.Company != "Acme Inc" {
		t.Fatal("expected company applied")
	}
	if change.Lead.CreatedByID != existing.CreatedByID {
		t.Fatal("createdBy must not change")
	}
}

func TestApplyStatusChange(t *testing.T) {
	owner := uuid.New()
	existing := newExistingLead(owner)
	actor := UserRef{ID: uuid.New(), Name: "Manager"}

	change, err := Apply(existing, Patch{Status: strPtr("Contacted")}, actor, nil, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(change.Activities) != 1 {
		t.Fatalf("expected one activity, got %d", len(change.Activities))
	}
	a := change.Activities[0]
	if a.Type != ActivityStatusChange {
		t.Fatalf("expected status change activity, got %s", a.Type)
	}
	if a.Metadata["oldStatus"] != "New" || a.Metadata["newStatus"] != "Contacted" {
		t.Fatalf("unexpected metadata %v", a.Metadata)
	}
	if *a.Description != `Status changed from "New" to "Contacted"` {
		t.Fatalf("unexpected description %q", *a.Description)
	}
	if a.UserID != actor.ID {
		t.Fatal("activity should be authored by the actor")
	}

	if len(change.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(change.Events))
	}
	ev, ok := change.Events[0].(events.LeadStatusChanged)
	if !ok {
		t.Fatalf("expected LeadStatusChanged, got %T", change.Events[0])
	}
	if ev.OldStatus != "New" || ev.NewStatus != "Contacted" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestApplySameStatusIsIdempotent(t *testing.T) {
	owner := uuid.New()
	existing := newExistingLead(owner)
	actor := UserRef{ID: owner, Name: "Rep"}
	patch := Patch{Status: strPtr("New"), Notes: strPtr("called twice"), AssignedToID: &owner}

	first, err := Apply(existing, patch, actor, nil, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Apply(first.Lead, patch, actor, nil, testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Modified() || second.Modified() {
		t.Fatal("repeating a non-status update must not produce activities")
	}
}

func TestApplyReassignment(t *testing.T) {
	owner := uuid.New()
	existing := newExistingLead(owner)
	actor := UserRef{ID: uuid.New(), Name: "Manager"}
	next := UserRef{ID: uuid.New(), Name: "Jordan"}

	if !NeedsAssignee(existing, Patch{AssignedToID: &next.ID}) {
		t.Fatal("expected reassignment to need the new assignee")
	}

	change, err := Apply(existing, Patch{AssignedToID: &next.ID}, actor, &next, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(change.Activities) != 1 || change.Activities[0].Title != "Lead Reassigned" {
		t.Fatalf("unexpected activities %+v", change.Activities)
	}
	if *change.Activities[0].Description != "Lead reassigned to Jordan" {
		t.Fatalf("unexpected description %q", *change.Activities[0].Description)
	}
	ev, ok := change.Events[0].(events.LeadReassigned)
	if !ok {
		t.Fatalf("expected LeadReassigned, got %T", change.Events[0])
	}
	if ev.NewAssigneeID != next.ID || ev.PreviousAssigneeID == nil || *ev.PreviousAssigneeID != owner {
		t.Fatalf("unexpected event %+v", ev)
	}

	if _, err := Apply(existing, Patch{AssignedToID: &next.ID}, actor, nil, testNow); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error without resolved assignee, got %v", err)
	}
}

func TestApplyStatusAndReassignTogether(t *testing.T) {
	owner := uuid.New()
	existing := newExistingLead(owner)
	actor := UserRef{ID: uuid.New(), Name: "Manager"}
	next := UserRef{ID: uuid.New(), Name: "Jordan"}

	change, err := Apply(existing, Patch{Status: strPtr("Won"), AssignedToID: &next.ID}, actor, &next, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(change.Activities) != 2 || len(change.Events) != 2 {
		t.Fatalf("expected two activities and two events, got %d/%d", len(change.Activities), len(change.Events))
	}
}

func TestApplyValidationLeavesLeadUntouched(t *testing.T) {
	owner := uuid.New()
	existing := newExistingLead(owner)
	actor := UserRef{ID: owner, Name: "Rep"}

	cases := map[string]Patch{
		"bad email":  {Email: strPtr("nope"), Status: strPtr("Won")},
		"bad status": {Status: strPtr("Archived"), Name: strPtr("Renamed")},
		"empty name": {Name: strPtr("   ")},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			change, err := Apply(existing, p, actor, nil, testNow)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if change.Lead.ID != uuid.Nil || change.Modified() {
				t.Fatal("expected empty change on failure")
			}
		})
	}
	if existing.Name != "Acme Corp" || existing.Status != StatusNew {
		t.Fatal("existing lead must not be mutated")
	}
}

func TestNewActivityValidation(t *testing.T) {
	leadID, author := uuid.New(), uuid.New()
	if _, err := NewActivity(leadID, author, "Fax", "Sent fax", nil, nil, testNow); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected invalid type, got %v", err)
	}
	if _, err := NewActivity(leadID, author, "Call", " ", nil, nil, testNow); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected missing title, got %v", err)
	}
	a, err := NewActivity(leadID, author, "Call", "Intro call", nil, nil, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Type.IsNotable() || a.Metadata == nil {
		t.Fatalf("unexpected activity %+v", a)
	}
	if ActivityNote.IsNotable() || ActivityEmail.IsNotable() {
		t.Fatal("notes and emails are not notable")
	}
}
