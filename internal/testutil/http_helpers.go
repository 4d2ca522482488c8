package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
)

// TB is the subset of testing.TB used by the response helpers.
type TB interface {
	Errorf(format string, args ...any)
	FailNow()
}

// ReadJSONResponse requires a 200 response and decodes its JSON body into v.
func ReadJSONResponse(t TB, w *httptest.ResponseRecorder, v any) {
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
		t.FailNow()
	}

	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Errorf("failed to decode JSON response: %v", err)
		t.FailNow()
	}
}

// ReadErrorResponse decodes an error response body.
func ReadErrorResponse(t TB, w *httptest.ResponseRecorder) map[string]any {
	var response map[string]any
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Errorf("failed to decode error response: %v", err)
		t.FailNow()
	}
	return response
}
