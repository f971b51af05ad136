package rooms_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tokencast/models"
	"tokencast/services/rooms"
)

func TestListRooms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooms" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"rooms": []models.Room{
				{Name: "stream-1", NumParticipants: 4},
				{Name: "stream-2", NumParticipants: 1},
			},
		})
	}))
	defer server.Close()

	client := rooms.NewClient(server.URL, "test-key")
	list, err := client.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("list rooms returned error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(list))
	}
	if list[0].Name != "stream-1" || list[0].NumParticipants != 4 {
		t.Fatalf("unexpected first room %+v", list[0])
	}
}

func TestListRoomsDoesNotRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "roster unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := rooms.NewClient(server.URL, "")
	_, err := client.ListRooms(context.Background())
	if !errors.Is(err, models.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single roster request, got %d", calls)
	}
}

func TestStartEgressRetriesTransportFailures(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "try again", http.StatusBadGateway)
			return
		}
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		json.NewEncoder(w).Encode(models.EgressJob{
			EgressID: "eg-1",
			RoomName: payload["roomName"],
			Status:   "active",
		})
	}))
	defer server.Close()

	client := rooms.NewClient(server.URL, "")
	job, err := client.StartEgress(context.Background(), "stream-1")
	if err != nil {
		t.Fatalf("start egress returned error: %v", err)
	}
	if job.EgressID != "eg-1" || job.RoomName != "stream-1" {
		t.Fatalf("unexpected job %+v", job)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestStopEgressGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "no such egress", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := rooms.NewClient(server.URL, "")
	err := client.StopEgress(context.Background(), "eg-1")
	if !errors.Is(err, models.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}
