package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andreasronge/neo4j-core/src/session"
)

func TestHTTPSessionQuery(t *testing.T) {
	var gotBody txRequest
	var gotPath, gotTag string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTag = r.Header.Get("X-Query-Context")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"results": [{
				"columns": ["n.name", "n.age"],
				"data": [
					{"row": ["alice", 30]},
					{"row": ["bob", 40]}
				]
			}],
			"errors": []
		}`))
	}))
	defer srv.Close()

	s, err := NewHTTPSession(srv.URL, "people")
	if err != nil {
		t.Fatalf("NewHTTPSession: %v", err)
	}
	defer s.Close()

	res, err := s.Query(context.Background(), "MATCH (n) RETURN n.name, n.age",
		map[string]interface{}{"min": 1}, "people.list")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Err() != nil {
		t.Fatalf("unexpected query error: %v", res.Err())
	}

	if gotPath != "/db/people/tx/commit" {
		t.Errorf("path = %q", gotPath)
	}
	if gotTag != "people.list" {
		t.Errorf("tag header = %q", gotTag)
	}
	if len(gotBody.Statements) != 1 || gotBody.Statements[0].Statement != "MATCH (n) RETURN n.name, n.age" {
		t.Errorf("statements = %+v", gotBody.Statements)
	}

	sr, ok := res.(*session.ServerResult)
	if !ok {
		t.Fatalf("result %T, want *session.ServerResult", res)
	}
	rows := sr.Rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[0]["n.name"] != "alice" || rows[1]["n.name"] != "bob" {
		t.Errorf("rows = %v", rows)
	}
}

func TestHTTPSessionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"results": [],
			"errors": [{
				"code": "Neo.ClientError.Statement.SyntaxError",
				"message": "Invalid input"
			}]
		}`))
	}))
	defer srv.Close()

	s, err := NewHTTPSession(srv.URL, "")
	if err != nil {
		t.Fatalf("NewHTTPSession: %v", err)
	}

	res, err := s.Query(context.Background(), "MTCH (n)", nil, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	qe := res.Err()
	if qe == nil {
		t.Fatal("expected query error")
	}
	if qe.Code != "Neo.ClientError.Statement.SyntaxError" || qe.Message != "Invalid input" {
		t.Errorf("qe = %+v", qe)
	}
	if qe.Status != http.StatusOK {
		t.Errorf("status = %d", qe.Status)
	}
}

func TestHTTPSessionNonJSONFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	s, err := NewHTTPSession(srv.URL, "")
	if err != nil {
		t.Fatalf("NewHTTPSession: %v", err)
	}

	res, err := s.Query(context.Background(), "RETURN 1", nil, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	qe := res.Err()
	if qe == nil || qe.Status != http.StatusBadGateway {
		t.Errorf("qe = %+v", qe)
	}
}

func TestHTTPSessionBasicAuthFromURL(t *testing.T) {
	var user, pass string
	var withAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, withAuth = r.BasicAuth()
		_, _ = w.Write([]byte(`{"results": [], "errors": []}`))
	}))
	defer srv.Close()

	s, err := NewHTTPSession(srv.URL, "", WithBasicAuth("neo4j", "secret"))
	if err != nil {
		t.Fatalf("NewHTTPSession: %v", err)
	}
	if _, err := s.Query(context.Background(), "RETURN 1", nil, ""); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !withAuth || user != "neo4j" || pass != "secret" {
		t.Errorf("auth = %q/%q (%v)", user, pass, withAuth)
	}
}

func TestHTTPSessionRejectsBadScheme(t *testing.T) {
	if _, err := NewHTTPSession("bolt://localhost:7687", ""); err == nil {
		t.Error("expected scheme error")
	}
}
