package handlers

import (
	"net/http"
	"testing"

	"cellscope/internal/models"
)

func validUploadBody() map[string]any {
	return map[string]any{
		"imageData":         "data:image/png;base64,aGVsbG8=",
		"imageOriginalName": "smear.png",
		"prediction": map[string]any{
			"cellType":   "Lymphocyte",
			"confidence": 97.3,
			"modelUsed":  "MobileNet",
		},
	}
}

func TestCreateUploadHandler(t *testing.T) {
	env := newTestEnv(t)
	token := env.addUser(t, "u1", "alice", "pass1234")

	rec := env.do(t, request{
		method: http.MethodPost,
		path:   "/api/uploads",
		body:   validUploadBody(),
		token:  token,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["message"] != "Upload record created successfully" {
		t.Fatalf("unexpected body: %v", body)
	}
	data, _ := body["data"].(map[string]any)
	if data["id"] == "" || data["userId"] != "u1" {
		t.Fatalf("unexpected data: %v", data)
	}
	if len(env.uploads.byID) != 1 {
		t.Fatalf("expected one stored upload")
	}
}

func TestCreateUploadHandler_Validation(t *testing.T) {
	env := newTestEnv(t)
	token := env.addUser(t, "u1", "alice", "pass1234")

	tests := []struct {
		name        string
		mutate      func(map[string]any)
		wantMessage string
	}{
		{
			"no prediction",
			func(b map[string]any) { delete(b, "prediction") },
			"Image data, name, and prediction are required",
		},
		{
			"no confidence",
			func(b map[string]any) {
				b["prediction"] = map[string]any{"cellType": "Lymphocyte", "modelUsed": "MobileNet"}
			},
			"Prediction must include cellType, confidence, and modelUsed",
		},
		{
			"no image data",
			func(b map[string]any) { b["imageData"] = "" },
			"Image data, name, and prediction are required",
		},
		{
			"not a data url",
			func(b map[string]any) { b["imageData"] = "plain-base64" },
			"Invalid image data format",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := validUploadBody()
			tc.mutate(body)

			rec := env.do(t, request{method: http.MethodPost, path: "/api/uploads", body: body, token: token})
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if decodeBody(t, rec)["message"] != tc.wantMessage {
				t.Fatalf("expected %q, got %s", tc.wantMessage, rec.Body.String())
			}
		})
	}
}

func TestGetUploadHandler_OwnershipHidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "u1", "alice", "pass1234")
	intruder := env.addUser(t, "u2", "mallory", "pass1234")

	env.uploads.byID["up1"] = models.Upload{ID: "up1", UserID: "u1", ImageOriginalName: "smear.png"}

	rec := env.do(t, request{method: http.MethodGet, path: "/api/uploads/up1", token: owner})
	if rec.Code != http.StatusOK {
		t.Fatalf("owner fetch failed: %d %s", rec.Code, rec.Body.String())
	}

	// A foreign record and a missing record answer identically.
	for _, path := range []string{"/api/uploads/up1", "/api/uploads/missing"} {
		rec = env.do(t, request{method: http.MethodGet, path: path, token: intruder})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
		if decodeBody(t, rec)["message"] != "Upload not found" {
			t.Fatalf("%s: unexpected message %s", path, rec.Body.String())
		}
	}
}

func TestDeleteUploadHandler(t *testing.T) {
	env := newTestEnv(t)
	token := env.addUser(t, "u1", "alice", "pass1234")
	env.uploads.byID["up1"] = models.Upload{ID: "up1", UserID: "u1"}

	rec := env.do(t, request{method: http.MethodDelete, path: "/api/uploads/up1", token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["message"] != "Upload deleted successfully" {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}
	if len(env.uploads.byID) != 0 {
		t.Fatalf("record not deleted")
	}

	rec = env.do(t, request{method: http.MethodDelete, path: "/api/uploads/up1", token: token})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestListUploadsHandler_Pagination(t *testing.T) {
	env := newTestEnv(t)
	token := env.addUser(t, "u1", "alice", "pass1234")

	env.uploads.listOut = []models.Upload{
		{ID: "a", UserID: "u1", ImageOriginalName: "a.png"},
		{ID: "b", UserID: "u1", ImageOriginalName: "b.png"},
	}
	env.uploads.total = 42

	rec := env.do(t, request{method: http.MethodGet, path: "/api/uploads?page=2&limit=5", token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	pagination, _ := body["pagination"].(map[string]any)
	if pagination["total"] != float64(42) || pagination["page"] != float64(2) {
		t.Fatalf("unexpected pagination: %v", pagination)
	}
	if pagination["pages"] != float64(9) {
		t.Fatalf("expected 9 pages for 42/5, got %v", pagination["pages"])
	}
	items, _ := body["data"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
}

func TestHistoryHandlers(t *testing.T) {
	env := newTestEnv(t)
	token := env.addUser(t, "u1", "alice", "pass1234")
	env.uploads.byID["up1"] = models.Upload{ID: "up1", UserID: "u1"}

	rec := env.do(t, request{method: http.MethodGet, path: "/api/history", token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("history list failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, request{method: http.MethodGet, path: "/api/history/stats", token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("history stats failed: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	data, _ := body["data"].(map[string]any)
	if _, ok := data["totalPredictions"]; !ok {
		t.Fatalf("expected totalPredictions field, got %v", data)
	}

	rec = env.do(t, request{method: http.MethodGet, path: "/api/history/missing", token: token})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if decodeBody(t, rec)["message"] != "History item not found" {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}

	rec = env.do(t, request{method: http.MethodDelete, path: "/api/history/up1", token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("history delete failed: %d %s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["message"] != "History item deleted successfully" {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}
}
