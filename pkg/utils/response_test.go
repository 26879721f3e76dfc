package utils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestRespondErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, 404, "negotiation not found")

	if rec.Code != 404 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type: %q", ct)
	}

	var body struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body.Error != "negotiation not found" || body.Status != 404 {
		t.Fatalf("unexpected envelope: %+v", body)
	}
}
