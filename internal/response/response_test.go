package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestSuccessEnvelope(t *testing.T) {
	c, rec := testContext(t)
	c.Set(ContextKeyRequestID, "req-123")

	Success(c, http.StatusOK, gin.H{"name": "Nguyễn Văn An"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decodeBody(t, rec)
	if _, ok := body["error"]; ok {
		t.Error("success envelope must not carry an error body")
	}
	data, ok := body["data"].(map[string]interface{})
	if !ok || data["name"] != "Nguyễn Văn An" {
		t.Errorf("data = %v", body["data"])
	}
	meta, ok := body["metadata"].(map[string]interface{})
	if !ok {
		t.Fatalf("metadata missing: %v", body)
	}
	if meta["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", meta["request_id"])
	}
	if meta["timestamp"] == "" {
		t.Error("timestamp missing")
	}
}

func TestFailEnvelopeCarriesCodeAndMessage(t *testing.T) {
	c, rec := testContext(t)

	Fail(c, http.StatusConflict, ErrAttemptRunning)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	body := decodeBody(t, rec)
	if body["data"] != nil {
		t.Errorf("data = %v, want null", body["data"])
	}
	errBody, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("error body missing: %v", body)
	}
	if errBody["code"] != string(ErrAttemptRunning) {
		t.Errorf("code = %v, want %s", errBody["code"], ErrAttemptRunning)
	}
	if errBody["message"] != GetMessage(ErrAttemptRunning) {
		t.Errorf("message = %v", errBody["message"])
	}
	meta, ok := body["metadata"].(map[string]interface{})
	if !ok || meta["request_id"] == "" {
		t.Error("metadata must carry a request_id even without the middleware")
	}
}

func TestFailWithFieldsIncludesFieldDetails(t *testing.T) {
	c, rec := testContext(t)

	FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{
		"student_code": "required",
	})

	body := decodeBody(t, rec)
	errBody, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("error body missing: %v", body)
	}
	fields, ok := errBody["fields"].(map[string]interface{})
	if !ok || fields["student_code"] != "required" {
		t.Errorf("fields = %v", errBody["fields"])
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name           string
		page, perPage  int
		total          int
		wantTotalPages int
	}{
		{"exact fit", 1, 50, 100, 2},
		{"partial last page", 2, 50, 101, 3},
		{"empty listing", 1, 50, 0, 0},
		{"single row", 1, 50, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.perPage, tt.total)
			if p.Page != tt.page || p.PerPage != tt.perPage || p.TotalItems != tt.total {
				t.Errorf("echo fields wrong: %+v", p)
			}
			if p.TotalPages != tt.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", p.TotalPages, tt.wantTotalPages)
			}
		})
	}
}
