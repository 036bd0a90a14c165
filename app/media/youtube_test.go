package media

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestChunkIDs(t *testing.T) {
	ids := make([]string, 237)
	for i := range ids {
		ids[i] = fmt.Sprintf("video-%d", i)
	}

	chunks := ChunkIDs(ids, 50)

	if len(chunks) != 5 {
		t.Fatalf("Expected 5 chunks, got: %d", len(chunks))
	}

	expectedSizes := []int{50, 50, 50, 50, 37}
	for i, chunk := range chunks {
		if len(chunk) != expectedSizes[i] {
			t.Errorf("Expected chunk %d to have %d ids, got: %d", i, expectedSizes[i], len(chunk))
		}
	}

	if chunks[0][0] != "video-0" {
		t.Errorf("Expected first id 'video-0', got: %s", chunks[0][0])
	}
	if chunks[4][36] != "video-236" {
		t.Errorf("Expected last id 'video-236', got: %s", chunks[4][36])
	}
}

func TestChunkIDsEmpty(t *testing.T) {
	if chunks := ChunkIDs(nil, 50); len(chunks) != 0 {
		t.Errorf("Expected no chunks for empty input, got: %d", len(chunks))
	}
}

func TestChunkIDsSmallInput(t *testing.T) {
	chunks := ChunkIDs([]string{"a", "b"}, 50)
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got: %d", len(chunks))
	}
	if len(chunks[0]) != 2 {
		t.Errorf("Expected 2 ids in chunk, got: %d", len(chunks[0]))
	}
}

func TestLookupDurations(t *testing.T) {
	var mu sync.Mutex
	requestCount := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requestCount++
		mu.Unlock()

		if r.URL.Query().Get("part") != "contentDetails" {
			t.Errorf("Expected part=contentDetails, got: %s", r.URL.Query().Get("part"))
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("Expected key=test-key, got: %s", r.URL.Query().Get("key"))
		}

		ids := strings.Split(r.URL.Query().Get("id"), ",")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[`)
		for i, id := range ids {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"id":"%s","contentDetails":{"duration":"PT1M30S"}}`, id)
		}
		fmt.Fprint(w, `]}`)
	}))
	defer server.Close()

	client := NewYouTubeClient(server.Client(), server.URL, "test-key", "test-agent")

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = fmt.Sprintf("video-%d", i)
	}

	durations, err := client.LookupDurations(context.Background(), ids)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if requestCount != 3 {
		t.Errorf("Expected 3 requests for 120 ids, got: %d", requestCount)
	}
	if len(durations) != 120 {
		t.Fatalf("Expected 120 durations, got: %d", len(durations))
	}
	if durations["video-7"] != 90 {
		t.Errorf("Expected 90 seconds, got: %f", durations["video-7"])
	}
}

func TestLookupDurationsSkipsUnparseable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[
			{"id":"ok","contentDetails":{"duration":"PT2M"}},
			{"id":"bad","contentDetails":{"duration":"2 minutes"}}
		]}`)
	}))
	defer server.Close()

	client := NewYouTubeClient(server.Client(), server.URL, "test-key", "test-agent")

	durations, err := client.LookupDurations(context.Background(), []string{"ok", "bad"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(durations) != 1 {
		t.Fatalf("Expected 1 duration, got: %d", len(durations))
	}
	if durations["ok"] != 120 {
		t.Errorf("Expected 120 seconds, got: %f", durations["ok"])
	}
	if _, ok := durations["bad"]; ok {
		t.Error("Expected unparseable duration to be omitted")
	}
}

func TestLookupDurationsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewYouTubeClient(server.Client(), server.URL, "test-key", "test-agent")

	_, err := client.LookupDurations(context.Background(), []string{"video-1"})
	if err == nil {
		t.Fatal("Expected error for HTTP 403")
	}
}

func TestLookupDurationsEmpty(t *testing.T) {
	client := NewYouTubeClient(http.DefaultClient, "http://invalid", "test-key", "test-agent")

	durations, err := client.LookupDurations(context.Background(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(durations) != 0 {
		t.Errorf("Expected empty result, got: %d", len(durations))
	}
}
