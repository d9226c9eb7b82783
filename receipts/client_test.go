package receipts_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"readtrack/receipts"
)

func TestMarkMessageAsReadHitsEndpoint(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	c := receipts.NewClient(srv.URL, 1)
	c.MarkMessageAsRead(context.Background(), 42)

	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %q", gotMethod)
	}
	if gotPath != "/api/tiktok/messages/42/read" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestMarkMessageAsReadSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	// Must not panic or propagate anything, on server errors or with no
	// server at all.
	receipts.NewClient(srv.URL, 1).MarkMessageAsRead(context.Background(), 42)
	receipts.NewClient("http://127.0.0.1:1", 1).MarkMessageAsRead(context.Background(), 42)
}

func TestMarkConversationAsRead(t *testing.T) {
	var calls int32
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotPath = r.URL.Path
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	receipts.NewClient(srv.URL, 9).MarkConversationAsRead(context.Background())
	if gotPath != "/api/tiktok/conversations/9/read" {
		t.Fatalf("unexpected path %q", gotPath)
	}

	// Without a conversation id the call is a no-op.
	receipts.NewClient(srv.URL, 0).MarkConversationAsRead(context.Background())
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected 1 request, got %d", n)
	}
}

func TestGetMessageStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tiktok/messages/7/status" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"status": {"status": "read", "readAt": "2024-01-01T00:05:00Z", "readBy": [3]}}`))
	}))
	defer srv.Close()

	st := receipts.NewClient(srv.URL, 1).GetMessageStatus(context.Background(), 7)
	if st == nil {
		t.Fatal("expected a status payload")
	}
	if st.Status != "read" {
		t.Fatalf("expected status read, got %q", st.Status)
	}
	want, _ := time.Parse(time.RFC3339, "2024-01-01T00:05:00Z")
	if st.ReadAt == nil || !st.ReadAt.Equal(want) {
		t.Fatalf("unexpected readAt: %v", st.ReadAt)
	}
	if len(st.ReadBy) != 1 || st.ReadBy[0] != 3 {
		t.Fatalf("unexpected readBy: %v", st.ReadBy)
	}
}

func TestGetMessageStatusFailures(t *testing.T) {
	for name, handler := range map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": "boom"}`, http.StatusInternalServerError)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":`))
		},
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			if st := receipts.NewClient(srv.URL, 1).GetMessageStatus(context.Background(), 7); st != nil {
				t.Fatalf("expected nil status, got %+v", st)
			}
		})
	}

	if st := receipts.NewClient("http://127.0.0.1:1", 1).GetMessageStatus(context.Background(), 7); st != nil {
		t.Fatalf("expected nil status on transport failure, got %+v", st)
	}
}

func TestGetReadReceipts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"receipts": [{"userId": 3, "readAt": "2024-01-01T00:05:00Z"}]}`))
	}))
	defer srv.Close()

	got := receipts.NewClient(srv.URL, 1).GetReadReceipts(context.Background(), 7)
	if len(got) != 1 || got[0].UserID != 3 {
		t.Fatalf("unexpected receipts: %+v", got)
	}
}

func TestGetReadReceiptsNeverNil(t *testing.T) {
	for name, handler := range map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": "boom"}`, http.StatusInternalServerError)
		},
		"missing field": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		},
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			got := receipts.NewClient(srv.URL, 1).GetReadReceipts(context.Background(), 7)
			if got == nil {
				t.Fatal("receipts must be empty, never nil")
			}
			if len(got) != 0 {
				t.Fatalf("expected no receipts, got %+v", got)
			}
		})
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	c := receipts.NewClient(srv.URL, 1)
	c.Token = "sekret"
	c.MarkMessageAsRead(context.Background(), 1)

	if gotAuth != "Bearer sekret" {
		t.Fatalf("unexpected Authorization header %q", gotAuth)
	}
}
