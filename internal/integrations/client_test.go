package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crm_backend/internal/events"
)

func TestSlackClientPost(t *testing.T) {
	var got SlackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewSlackClient(time.Second)
	if err := client.Post(context.Background(), srv.URL, testSlackMessage()); err != nil {
		t.Fatalf("post: %v", err)
	}
	if got.Text != "Test notification from CRM System" || got.Attachments[0].Color != "good" {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestSlackClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer srv.Close()

	if err := NewSlackClient(time.Second).Post(context.Background(), srv.URL, SlackMessage{Text: "x"}); err == nil {
		t.Fatal("expected error for 403")
	}
}

func TestHubSpotClient(t *testing.T) {
	var (
		auth    string
		path    string
		query   string
		created hubSpotContactRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		query = r.URL.RawQuery
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&created)
			w.WriteHeader(http.StatusCreated)
			return
		}
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	client := NewHubSpotClient(srv.URL+"/", time.Second)

	if err := client.Ping(context.Background(), "pat-1"); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if auth != "Bearer pat-1" || path != "/crm/v3/objects/contacts" || query != "limit=1" {
		t.Fatalf("unexpected ping request auth=%q path=%q query=%q", auth, path, query)
	}

	props := map[string]string{"email": "ada@example.com", "firstname": "Ada"}
	if err := client.CreateContact(context.Background(), "pat-1", props); err != nil {
		t.Fatalf("create contact: %v", err)
	}
	if created.Properties["email"] != "ada@example.com" {
		t.Fatalf("unexpected contact body %+v", created)
	}
}

func TestBuildPayloadStatusChange(t *testing.T) {
	e := leadCreated()

	p, ok := BuildPayload(KindSlack, statusChanged(e))
	if !ok || p.Slack == nil {
		t.Fatal("expected slack payload for status change")
	}
	if p.Slack.Text != "New Status Change on Lead" || p.Slack.Attachments[0].Fields[1].Value != "Status Change" {
		t.Fatalf("unexpected message %+v", p.Slack)
	}
	if _, ok := BuildPayload(KindHubSpot, statusChanged(e)); ok {
		t.Fatal("hubspot only syncs new leads")
	}
}

func statusChanged(e events.LeadCreated) events.LeadStatusChanged {
	return events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		Lead:      e.Lead,
		OldStatus: "New",
		NewStatus: "Contacted",
	}
}
