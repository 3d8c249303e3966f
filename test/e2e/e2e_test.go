//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stemsi/learning-portal/internal/model"
	"github.com/stemsi/learning-portal/internal/service"
)

const defaultBaseURL = "http://localhost:3000/api/v1"

var (
	baseURL  string
	email    string
	password string
)

// TestMain expects a running portal wired to a backend that knows the
// E2E_EMAIL student.
func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	email = os.Getenv("E2E_EMAIL")
	password = os.Getenv("E2E_PASSWORD")
	if email == "" || password == "" {
		fmt.Println("E2E_EMAIL and E2E_PASSWORD must be set")
		os.Exit(1)
	}

	os.Exit(m.Run())
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func TestE2EFlow(t *testing.T) {
	// Step 1: Bad credentials surface the backend message
	t.Run("RejectedLogin", func(t *testing.T) {
		resp := do(t, http.MethodPost, "/auth/login", model.StudentLoginRequest{Email: email, Password: "wrong-password"})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 2: Login
	t.Run("Login", func(t *testing.T) {
		resp := do(t, http.MethodPost, "/auth/login", model.StudentLoginRequest{Email: email, Password: password, RememberMe: true})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}

		var body struct {
			Session service.SessionInfo `json:"session"`
		}
		decodeData(t, resp, &body)
		if !body.Session.Authenticated {
			t.Fatal("session not authenticated")
		}
		if body.Session.RememberedEmail != email {
			t.Fatalf("remembered email %q", body.Session.RememberedEmail)
		}
	})

	// Step 3: Dashboard and assessments
	t.Run("Dashboard", func(t *testing.T) {
		resp := do(t, http.MethodGet, "/dashboard", nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
		var d service.DashboardData
		decodeData(t, resp, &d)
		if d.PendingAssessments < 0 {
			t.Fatalf("pending %d", d.PendingAssessments)
		}
	})

	var assessmentID int
	t.Run("ListAssessments", func(t *testing.T) {
		resp := do(t, http.MethodGet, "/assessments", nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
		var list service.AssessmentList
		decodeData(t, resp, &list)
		if list.Metrics.Total != len(list.Pending)+len(list.InProgress)+len(list.Completed) {
			t.Fatalf("metrics total %d does not match groups", list.Metrics.Total)
		}
		if len(list.Pending) > 0 {
			assessmentID = list.Pending[0].ID
		}
	})

	// Step 4: Start an attempt and leave it without submitting
	t.Run("AttemptExit", func(t *testing.T) {
		if assessmentID == 0 {
			t.Skip("no pending assessment")
		}
		resp := do(t, http.MethodPost, "/assessments/"+strconv.Itoa(assessmentID)+"/attempts", nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
		var body struct {
			Attempt struct {
				AttemptID string `json:"attempt_id"`
				State     string `json:"state"`
				Clock     string `json:"clock"`
			} `json:"attempt"`
		}
		decodeData(t, resp, &body)
		if body.Attempt.State != "taking" {
			t.Fatalf("state %q", body.Attempt.State)
		}

		path := "/attempts/" + body.Attempt.AttemptID
		for _, action := range []string{"request_exit", "confirm_exit"} {
			r := do(t, http.MethodPost, path+"/actions", map[string]string{"action": action})
			if r.StatusCode != http.StatusOK {
				t.Fatalf("%s: status %d: %s", action, r.StatusCode, readBody(r))
			}
			r.Body.Close()
		}

		r := do(t, http.MethodDelete, path, nil)
		r.Body.Close()
		if r.StatusCode != http.StatusOK && r.StatusCode != http.StatusNoContent {
			t.Fatalf("discard status %d", r.StatusCode)
		}
	})

	// Step 5: Profile edits are refused while locked
	t.Run("Profile", func(t *testing.T) {
		resp := do(t, http.MethodGet, "/profile", nil)
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			t.Skip("student has no profile yet")
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
		var v service.ProfileView
		decodeData(t, resp, &v)
		if v.CanEdit {
			t.Skip("profile is unlocked")
		}

		r := do(t, http.MethodPost, "/profile/fields/phone/edit", nil)
		defer r.Body.Close()
		if r.StatusCode != http.StatusForbidden {
			t.Fatalf("status %d: %s", r.StatusCode, readBody(r))
		}
	})

	t.Run("PermissionRequestTooShort", func(t *testing.T) {
		resp := do(t, http.MethodPost, "/profile/permission-requests", map[string]string{"reason": "short"})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 6: Notifications
	t.Run("Notifications", func(t *testing.T) {
		resp := do(t, http.MethodPost, "/notifications/open", nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
		var inbox service.NotificationInbox
		decodeData(t, resp, &inbox)
		if inbox.UnreadCount < 0 {
			t.Fatalf("unread %d", inbox.UnreadCount)
		}

		r := do(t, http.MethodPost, "/notifications/close", nil)
		r.Body.Close()
		if r.StatusCode != http.StatusOK {
			t.Fatalf("close status %d", r.StatusCode)
		}
	})

	// Step 7: Logout ends the session
	t.Run("Logout", func(t *testing.T) {
		resp := do(t, http.MethodPost, "/auth/logout", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d", resp.StatusCode)
		}

		r := do(t, http.MethodGet, "/dashboard", nil)
		defer r.Body.Close()
		if r.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status after logout %d", r.StatusCode)
		}
	})
}

// Helpers

func do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+path, bodyReader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func decodeData(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("data decode: %v", err)
	}
}
