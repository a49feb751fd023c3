package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rebeliceyang/lazynotion/internal/models"
	"github.com/stretchr/testify/require"
)

func page(id, status string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"created_time": "2024-03-01T10:00:00.000Z",
		"last_edited_time": "2024-03-02T10:00:00.000Z",
		"url": "https://notion.so/%s",
		"properties": {
			"Name": {"id": "title", "type": "title", "title": [{"plain_text": "Task %s"}]},
			"Status": {"id": "st", "type": "select", "select": {"name": %q, "color": "green"}}
		}
	}`, id, id, id, status)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, Token: "secret", DatabaseID: "db1", MaxPages: 3}, nil)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	if _, err := NewClient(Config{DatabaseID: "db"}, nil); err == nil {
		t.Error("expected error without token")
	}
	if _, err := NewClient(Config{Token: "t"}, nil); err == nil {
		t.Error("expected error without database id")
	}
}

func TestQuery_SendsFilterAndSorts(t *testing.T) {
	var gotBody map[string]any
	var gotHeaders http.Header
	var gotPath string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprintf(w, `{"results": [%s], "has_more": false, "next_cursor": null}`, page("p1", "Done"))
	})

	filter := models.NewGroup(models.CompoundAnd,
		models.NewCondition("Status", models.PropertySelect, "equals", "Done"),
	)
	records, err := c.Query(context.Background(), models.QueryParams{
		Filter: &filter,
		Sorts:  []models.SortEntry{{Property: "Name", Direction: models.Descending}},
	})
	require.NoError(t, err)

	if gotPath != "/v1/databases/db1/query" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if got := gotHeaders.Get("Authorization"); got != "Bearer secret" {
		t.Errorf("unexpected authorization %q", got)
	}
	if got := gotHeaders.Get("Notion-Version"); got != DefaultVersion {
		t.Errorf("unexpected version %q", got)
	}

	wantBody := map[string]any{
		"filter": map[string]any{
			"and": []any{
				map[string]any{"property": "Status", "select": map[string]any{"equals": "Done"}},
			},
		},
		"sorts":     []any{map[string]any{"property": "Name", "direction": "descending"}},
		"page_size": float64(DefaultPageSize),
	}
	if diff := cmp.Diff(wantBody, gotBody); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if got := records[0].Properties["Name"].Display(); got != "Task p1" {
		t.Errorf("expected title 'Task p1', got %q", got)
	}
	if got := records[0].Properties["Status"].Display(); got != "Done" {
		t.Errorf("expected status Done, got %q", got)
	}
}

func TestQuery_OmitsEmptyFilter(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"results": [], "has_more": false}`)
	})

	empty := models.NewGroup(models.CompoundAnd)
	_, err := c.Query(context.Background(), models.QueryParams{Filter: &empty})
	require.NoError(t, err)

	if _, ok := gotBody["filter"]; ok {
		t.Errorf("expected no filter in body, got %v", gotBody["filter"])
	}
	if _, ok := gotBody["sorts"]; ok {
		t.Errorf("expected no sorts in body, got %v", gotBody["sorts"])
	}
}

func TestQuery_Pagination(t *testing.T) {
	var cursors []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		cursor, _ := body["start_cursor"].(string)
		cursors = append(cursors, cursor)

		switch cursor {
		case "":
			fmt.Fprintf(w, `{"results": [%s], "has_more": true, "next_cursor": "c2"}`, page("p1", "Done"))
		case "c2":
			fmt.Fprintf(w, `{"results": [%s], "has_more": false, "next_cursor": null}`, page("p2", "Todo"))
		default:
			t.Errorf("unexpected cursor %q", cursor)
		}
	})

	records, err := c.Query(context.Background(), models.QueryParams{})
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"", "c2"}, cursors); diff != "" {
		t.Errorf("cursor mismatch (-want +got):\n%s", diff)
	}
	if len(records) != 2 || records[0].ID != "p1" || records[1].ID != "p2" {
		t.Errorf("unexpected records %+v", records)
	}
}

func TestQuery_StopsAtMaxPages(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprintf(w, `{"results": [%s], "has_more": true, "next_cursor": "c%d"}`, page(fmt.Sprintf("p%d", calls), "Done"), calls)
	})

	records, err := c.Query(context.Background(), models.QueryParams{})
	require.NoError(t, err)

	if calls != 3 {
		t.Errorf("expected 3 requests, got %d", calls)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
}

func TestQuery_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"object": "error", "status": 400, "code": "validation_error", "message": "body failed validation"}`)
	})

	_, err := c.Query(context.Background(), models.QueryParams{})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != "validation_error" {
		t.Errorf("unexpected api error %+v", apiErr)
	}
}

func TestQuery_ContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results": []}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Query(ctx, models.QueryParams{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
