package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"sports_club_backend/internal/repositories"
	"sports_club_backend/internal/services"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	issuer services.TokenIssuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth, err := services.NewAuthService(services.AuthConfig{Mode: services.AuthModeJWT, JWTSecret: "router-test-secret", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewAuthService failed: %v", err)
	}
	engine := gin.New()
	Setup(engine, Options{
		ClubRepo:  repositories.NewMemoryClubRepository(),
		Workbooks: repositories.NewWorkbookPool(""),
		Auth:      auth,
		DefaultStore: services.DefaultStore{
			SpreadsheetID: "default",
			Editors:       []string{"editor@example.com"},
			Viewers:       []string{"viewer@example.com"},
		},
		LockTimeout: time.Second,
		Clock:       func() time.Time { return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC) },
	})
	return &testServer{t: t, engine: engine, issuer: auth.(services.TokenIssuer)}
}

func (s *testServer) token(email string) string {
	s.t.Helper()
	tok, err := s.issuer.IssueToken(email, "")
	if err != nil {
		s.t.Fatalf("IssueToken failed: %v", err)
	}
	return tok
}

func (s *testServer) get(token string, query url.Values) (int, envelope) {
	s.t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/exec?"+query.Encode(), nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(req)
}

func (s *testServer) post(token string, body map[string]interface{}) (int, envelope) {
	s.t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		s.t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exec", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(req)
}

func (s *testServer) serve(req *http.Request) (int, envelope) {
	s.t.Helper()
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("response is not an envelope: %v: %s", err, w.Body.String())
	}
	return w.Code, env
}

func expectError(t *testing.T, code int, env envelope, wantCode int, wantMessage string) {
	t.Helper()
	if code != wantCode {
		t.Errorf("expected HTTP %d, got %d", wantCode, code)
	}
	if env.Status != "error" || env.Error == nil {
		t.Fatalf("expected an error envelope, got %+v", env)
	}
	if env.Error.Code != wantCode {
		t.Errorf("expected envelope code %d, got %d", wantCode, env.Error.Code)
	}
	if wantMessage != "" && env.Error.Message != wantMessage {
		t.Errorf("expected message %q, got %q", wantMessage, env.Error.Message)
	}
}

func expectSuccess(t *testing.T, code int, env envelope, out interface{}) {
	t.Helper()
	if code != http.StatusOK || env.Status != "success" {
		t.Fatalf("expected success, got %d %+v (error %+v)", code, env, env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decoding data: %v", err)
		}
	}
}

func TestAuthGate(t *testing.T) {
	s := newTestServer(t)
	editor := s.token("editor@example.com")

	t.Run("unknown action needs no token", func(t *testing.T) {
		code, env := s.get("", url.Values{"action": {"dropTables"}})
		expectError(t, code, env, http.StatusBadRequest, "Unknown action: dropTables")
	})

	t.Run("missing action", func(t *testing.T) {
		code, env := s.get(editor, url.Values{})
		expectError(t, code, env, http.StatusBadRequest, "Unknown action: ")
	})

	t.Run("missing token", func(t *testing.T) {
		code, env := s.get("", url.Values{"action": {"getMembers"}})
		expectError(t, code, env, http.StatusUnauthorized, "Authorization token required")
	})

	t.Run("invalid token", func(t *testing.T) {
		code, env := s.get("not-a-jwt", url.Values{"action": {"getMembers"}})
		expectError(t, code, env, http.StatusUnauthorized, "Invalid or expired token")
	})

	t.Run("token as query parameter", func(t *testing.T) {
		code, env := s.get("", url.Values{"action": {"getMembers"}, "access_token": {editor}})
		expectSuccess(t, code, env, nil)
	})

	t.Run("caller without access", func(t *testing.T) {
		code, env := s.get(s.token("stranger@example.com"), url.Values{"action": {"getMembers"}})
		expectError(t, code, env, http.StatusForbidden, "You do not have access to this sports club")
	})

	t.Run("viewer cannot mutate", func(t *testing.T) {
		viewer := s.token("viewer@example.com")
		code, env := s.post(viewer, map[string]interface{}{"action": "addMember", "firstName": "Ann", "phone": "555"})
		expectError(t, code, env, http.StatusForbidden, "Read-only access to this sports club")

		code, env = s.get(viewer, url.Values{"action": {"getMembers"}})
		expectSuccess(t, code, env, nil)
	})

	t.Run("unknown club", func(t *testing.T) {
		code, env := s.get(editor, url.Values{"action": {"getMembers"}, "sportsClubId": {"nope"}})
		expectError(t, code, env, http.StatusNotFound, "sports club not found")
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/exec?action=addMember", bytes.NewReader([]byte(`[1,2]`)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+editor)
		code, env := s.serve(req)
		expectError(t, code, env, http.StatusBadRequest, "")
	})
}

func TestMemberActions(t *testing.T) {
	s := newTestServer(t)
	editor := s.token("editor@example.com")

	var created struct {
		ID        string `json:"id"`
		FirstName string `json:"firstName"`
		JoinDate  string `json:"joinDate"`
	}
	code, env := s.post(editor, map[string]interface{}{"action": "addMember", "firstName": "Ann", "phone": "+1 555-0100"})
	expectSuccess(t, code, env, &created)
	if created.ID != "1" || created.FirstName != "Ann" || created.JoinDate != "2025-01-15" {
		t.Errorf("unexpected member %+v", created)
	}

	t.Run("form parameters", func(t *testing.T) {
		code, env := s.get(editor, url.Values{"action": {"addMember"}, "firstName": {"Bob"}, "phone": {"555-0101"}})
		expectSuccess(t, code, env, &created)
		if created.ID != "2" {
			t.Errorf("expected id 2, got %q", created.ID)
		}
	})

	t.Run("validation message", func(t *testing.T) {
		code, env := s.post(editor, map[string]interface{}{"action": "addMember", "firstName": "Cid"})
		expectError(t, code, env, http.StatusBadRequest, "phone is required")
	})

	t.Run("duplicate phone", func(t *testing.T) {
		code, env := s.post(editor, map[string]interface{}{"action": "addMember", "firstName": "Dup", "phone": "15550100"})
		expectError(t, code, env, http.StatusBadRequest, "a member with this phone number already exists")
	})

	t.Run("list", func(t *testing.T) {
		var members []struct {
			ID string `json:"id"`
		}
		code, env := s.get(editor, url.Values{"action": {"getMembers"}, "sinceId": {"1"}})
		expectSuccess(t, code, env, &members)
		if len(members) != 1 || members[0].ID != "2" {
			t.Errorf("expected only member 2, got %+v", members)
		}
	})

	t.Run("not found", func(t *testing.T) {
		code, env := s.get(editor, url.Values{"action": {"getMember"}, "id": {"99"}})
		expectError(t, code, env, http.StatusNotFound, "member not found")
	})

	t.Run("payment extends expiry", func(t *testing.T) {
		var res struct {
			PaymentID  string  `json:"paymentId"`
			ExpiryDate *string `json:"expiryDate"`
		}
		code, env := s.post(editor, map[string]interface{}{
			"action": "recordPayment", "memberId": "1", "amount": 50,
			"periodStart": "2025-01-01", "periodEnd": "2025-02-01",
		})
		expectSuccess(t, code, env, &res)
		if res.PaymentID != "1" || res.ExpiryDate == nil || *res.ExpiryDate != "2025-02-01" {
			t.Errorf("unexpected payment result %+v", res)
		}
	})
}

func TestPublicPhoneLookup(t *testing.T) {
	s := newTestServer(t)
	editor := s.token("editor@example.com")
	code, env := s.post(editor, map[string]interface{}{"action": "addMember", "firstName": "Ann", "phone": "555-0100"})
	expectSuccess(t, code, env, nil)

	lookup := func(token string) (int, envelope) {
		return s.get("", url.Values{"action": {"getMemberByPhoneNo"}, "phone": {"5550100"}, "access_token": {token}})
	}

	t.Run("any token without an API token", func(t *testing.T) {
		var m struct {
			FirstName string `json:"firstName"`
		}
		code, env := lookup("kiosk")
		expectSuccess(t, code, env, &m)
		if m.FirstName != "Ann" {
			t.Errorf("expected Ann, got %q", m.FirstName)
		}
	})

	code, env = s.post(editor, map[string]interface{}{"action": "updateSettings", "key": "API Token", "value": "kiosk-secret"})
	var settings map[string]string
	expectSuccess(t, code, env, &settings)
	if settings["API Token"] != "********" {
		t.Errorf("expected a masked API token, got %q", settings["API Token"])
	}
	if _, ok := settings["action"]; ok {
		t.Errorf("the action parameter must not become a setting")
	}

	t.Run("wrong API token", func(t *testing.T) {
		code, env := lookup("kiosk")
		expectError(t, code, env, http.StatusUnauthorized, "Invalid or expired token")
	})

	t.Run("right API token", func(t *testing.T) {
		code, env := lookup("kiosk-secret")
		expectSuccess(t, code, env, nil)
	})

	t.Run("unknown phone", func(t *testing.T) {
		code, env := s.get("", url.Values{"action": {"getMemberByPhoneNo"}, "phone": {"000"}, "access_token": {"kiosk-secret"}})
		expectError(t, code, env, http.StatusNotFound, "member not found")
	})
}

func TestSportsClubActions(t *testing.T) {
	s := newTestServer(t)
	owner := s.token("owner@example.com")
	editor := s.token("editor@example.com")

	var club struct {
		ID            string `json:"id"`
		SpreadsheetID string `json:"spreadsheetId"`
	}
	code, env := s.post(owner, map[string]interface{}{"action": "addSportsClub", "name": "Riverside"})
	expectSuccess(t, code, env, &club)
	if club.ID == "" {
		t.Fatalf("expected a club id")
	}

	code, env = s.post(owner, map[string]interface{}{"action": "addMember", "sportsClubId": club.ID, "firstName": "Ann", "phone": "1"})
	expectSuccess(t, code, env, nil)

	t.Run("club data is separate from the default store", func(t *testing.T) {
		var members []json.RawMessage
		code, env := s.get(editor, url.Values{"action": {"getMembers"}})
		expectSuccess(t, code, env, &members)
		if len(members) != 0 {
			t.Errorf("expected an empty default store, got %d members", len(members))
		}
	})

	t.Run("default editors have no access to other clubs", func(t *testing.T) {
		code, env := s.get(editor, url.Values{"action": {"getMembers"}, "sportsClubId": {club.ID}})
		expectError(t, code, env, http.StatusForbidden, "")
	})

	t.Run("listing", func(t *testing.T) {
		var clubs []json.RawMessage
		code, env := s.get(owner, url.Values{"action": {"getSportsClubs"}})
		expectSuccess(t, code, env, &clubs)
		if len(clubs) != 1 {
			t.Errorf("expected 1 club, got %d", len(clubs))
		}
	})

	t.Run("the default store cannot be claimed", func(t *testing.T) {
		stranger := s.token("stranger@example.com")
		code, env := s.post(stranger, map[string]interface{}{"action": "addSportsClub", "name": "Mine", "spreadsheetId": "default"})
		expectError(t, code, env, http.StatusBadRequest, "spreadsheetId is already in use")
		code, env = s.get(stranger, url.Values{"action": {"getMembers"}})
		expectError(t, code, env, http.StatusForbidden, "")
	})

	t.Run("only the owner updates", func(t *testing.T) {
		code, env := s.post(editor, map[string]interface{}{"action": "updateSportsClub", "id": club.ID, "name": "Taken"})
		expectError(t, code, env, http.StatusForbidden, "")
		code, env = s.post(owner, map[string]interface{}{"action": "updateSportsClub", "id": club.ID, "editors": []string{"editor@example.com"}})
		expectSuccess(t, code, env, nil)
		code, env = s.get(editor, url.Values{"action": {"getMembers"}, "sportsClubId": {club.ID}})
		expectSuccess(t, code, env, nil)
	})
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
