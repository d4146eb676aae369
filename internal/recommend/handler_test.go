package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"petcare-backend/internal/catalog"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStartRecommendationAccepted(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo, LLM: staticLLM{content: "{}"}}
	r := newTestRouter(svc)

	w := postJSON(t, r, "/api/v1/recommendations", testBundle())
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		RecommendationID string `json:"recommendationId"`
		Status           string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RecommendationID == "" {
		t.Fatal("missing recommendationId")
	}
	if resp.Status != StatusQueued {
		t.Fatalf("status = %q, want queued", resp.Status)
	}
}

func TestStartRecommendationValidation(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo(), LLM: staticLLM{content: "{}"}}
	r := newTestRouter(svc)

	bundle := testBundle()
	bundle.Pet.Name = ""
	w := postJSON(t, r, "/api/v1/recommendations", bundle)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", bytes.NewReader([]byte("not json")))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status = %d, want 400", w.Code)
	}
}

func TestStartRecommendationWithoutModelClient(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo(), LLM: nil}
	r := newTestRouter(svc)

	w := postJSON(t, r, "/api/v1/recommendations", testBundle())
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "configuration_error" {
		t.Fatalf("error code = %q, want configuration_error", resp.Error.Code)
	}
}

func TestGetRecommendationNotFound(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo(), LLM: staticLLM{content: "{}"}}
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetRecommendationCompletedCarriesResult(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo, LLM: staticLLM{content: "{}"}}
	r := newTestRouter(svc)

	result := FallbackRecommendation(testBundle())
	completedAt := time.Now().UTC()
	run := RecommendationRun{
		ID:          "run-1",
		PetName:     "Milu",
		PetSpecies:  "DOG",
		Status:      StatusCompleted,
		Result:      &result,
		CompletedAt: &completedAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), run); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/run-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != StatusCompleted {
		t.Fatalf("status = %v", resp["status"])
	}
	if _, ok := resp["result"]; !ok {
		t.Fatal("completed run must carry result")
	}
}

func TestGetRecommendationPollLimit(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo, LLM: staticLLM{content: "{}"}}
	r := newTestRouter(svc)

	run := RecommendationRun{ID: "run-1", PetName: "Milu", Status: StatusQueued, CreatedAt: time.Now().UTC()}
	if err := repo.Create(context.Background(), run); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/run-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first poll: status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/run-1", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second poll: status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
}

func TestListRecommendations(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo, LLM: staticLLM{content: "{}"}}
	r := newTestRouter(svc)

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		run := RecommendationRun{ID: id, PetName: "pet-" + id, Status: StatusQueued, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(context.Background(), run); err != nil {
			t.Fatalf("seed run %s: %v", id, err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations?limit=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("got %d items, want 2", len(resp))
	}
	if resp[0]["recommendationId"] != "c" {
		t.Fatalf("first item = %v, want newest", resp[0]["recommendationId"])
	}
}

func TestFallbackEndpointSynchronous(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo(), LLM: nil}
	r := newTestRouter(svc)

	w := postJSON(t, r, "/api/v1/recommendations/fallback", testBundle())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var result RecommendationResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.FoodRecommendations) == 0 {
		t.Fatal("fallback returned no foods")
	}
	if result.Analysis.HealthSummary == "" {
		t.Fatal("fallback analysis missing")
	}
}

func TestFallbackEndpointValidation(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo(), LLM: nil}
	r := newTestRouter(svc)

	w := postJSON(t, r, "/api/v1/recommendations/fallback", catalog.AnalysisBundle{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
