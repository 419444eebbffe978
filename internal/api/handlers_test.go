package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/program-generator/internal/config"
	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/metrics"
	"alcyxob/program-generator/internal/repository/memory"
	"alcyxob/program-generator/internal/service"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeOrchestrator returns a fixed result or error and records the request.
type fakeOrchestrator struct {
	result *service.GeneratePhaseResult
	err    error
	got    *service.GeneratePhaseRequest
	ctxErr error
}

func (f *fakeOrchestrator) GeneratePhase(ctx context.Context, req service.GeneratePhaseRequest) (*service.GeneratePhaseResult, error) {
	f.got = &req
	f.ctxErr = ctx.Err()
	return f.result, f.err
}

type testServer struct {
	router *gin.Engine
	store  *memory.Store
	orch   *fakeOrchestrator
}

func newTestServer(orch *fakeOrchestrator, opts RouteOptions) *testServer {
	store := memory.NewStore()
	opts.JWTSecret = testSecret
	router := gin.New()
	SetupRoutes(router, Services{
		Orchestrator: orch,
		Programs:     service.NewProgramService(store.Programs(), store.WorkoutPlans(), store.Workouts(), store.WorkoutExercises(), store.ExerciseLibrary()),
		Credits:      service.NewCreditService(store.Users(), config.CreditsConfig{FreeLimit: 4}, nil),
		Usage:        service.NewUsageRecorder(store.GenerationLogs(), nil, discard()),
	}, opts)
	return &testServer{router: router, store: store, orch: orch}
}

func token(t *testing.T, userID string, expires time.Duration) string {
	t.Helper()
	claims := jwtClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expires)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func phaseBody() map[string]any {
	return map[string]any{
		"phaseNumber": 1,
		"totalPhases": 3,
		"profile":     map[string]any{"sex": "female", "trainingGoal": "strength", "weight": 140},
	}
}

func successResult() *service.GeneratePhaseResult {
	return &service.GeneratePhaseResult{
		Phase:     &domain.ValidatedPhase{PhaseNumber: 1, Name: "Foundation"},
		ProgramID: primitive.NewObjectID(),
		Metadata:  service.PhaseMetadata{PhaseNumber: 1, TotalPhases: 3, TokensUsed: 1200, Model: "m"},
	}
}

func TestGeneratePhase_Success(t *testing.T) {
	orch := &fakeOrchestrator{result: successResult()}
	s := newTestServer(orch, RouteOptions{})

	w := s.do(http.MethodPost, "/api/v1/programs/generate/phase", token(t, "u1", time.Hour), phaseBody())

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, orch.result.ProgramID.Hex(), body["programId"])
	assert.Equal(t, "Foundation", body["phase"].(map[string]any)["name"])
	assert.Equal(t, float64(1200), body["metadata"].(map[string]any)["tokensUsed"])

	require.NotNil(t, orch.got)
	assert.Equal(t, "u1", orch.got.UserID)
	assert.NotEmpty(t, orch.got.RequestID)
	assert.Equal(t, orch.got.RequestID, w.Header().Get("X-Request-ID"))
}

func TestGeneratePhase_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		check    func(t *testing.T, body map[string]any)
	}{
		{
			name:     "validation",
			err:      &service.ValidationError{Msg: "phaseNumber must be between 1 and 3"},
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "phaseNumber must be between 1 and 3", body["error"])
			},
		},
		{
			name:     "auth",
			err:      &service.AuthError{Msg: "user identity is required"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "quota",
			err:      &service.QuotaExceededError{Used: 4, Limit: 4},
			wantCode: http.StatusForbidden,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "generation_limit_reached", body["error"])
				assert.Equal(t, float64(4), body["limit"])
				assert.Equal(t, float64(4), body["used"])
			},
		},
		{
			name:     "generation",
			err:      &service.GenerationError{Reason: "model call timed out"},
			wantCode: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, float64(1), body["phaseNumber"])
				assert.Contains(t, body["error"], "model call timed out")
			},
		},
		{
			name:     "persistence",
			err:      &service.PersistenceError{Op: "write phase", Err: errors.New("boom")},
			wantCode: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Failed to save the generated phase. Please retry this phase.", body["error"])
			},
		},
		{
			name:     "unexpected",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.NotContains(t, body["error"], "boom")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeOrchestrator{err: tt.err}, RouteOptions{})
			w := s.do(http.MethodPost, "/api/v1/programs/generate/phase", token(t, "u1", time.Hour), phaseBody())
			require.Equal(t, tt.wantCode, w.Code)
			if tt.check != nil {
				tt.check(t, decode(t, w))
			}
		})
	}
}

func TestGeneratePhase_BadBody(t *testing.T) {
	orch := &fakeOrchestrator{result: successResult()}
	s := newTestServer(orch, RouteOptions{})

	w := s.do(http.MethodPost, "/api/v1/programs/generate/phase", token(t, "u1", time.Hour), map[string]any{"totalPhases": 3})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, orch.got)
}

func TestGeneratePhase_Authentication(t *testing.T) {
	body := phaseBody()
	body["userId"] = "anon-1"

	t.Run("missing token", func(t *testing.T) {
		s := newTestServer(&fakeOrchestrator{result: successResult()}, RouteOptions{})
		w := s.do(http.MethodPost, "/api/v1/programs/generate/phase", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		s := newTestServer(&fakeOrchestrator{result: successResult()}, RouteOptions{})
		w := s.do(http.MethodPost, "/api/v1/programs/generate/phase", token(t, "u1", -time.Minute), body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Token has expired", decode(t, w)["error"])
	})

	t.Run("anonymous allowed", func(t *testing.T) {
		orch := &fakeOrchestrator{result: successResult()}
		s := newTestServer(orch, RouteOptions{AllowAnonymous: true})
		w := s.do(http.MethodPost, "/api/v1/programs/generate/phase", "", body)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "anon-1", orch.got.UserID)
	})

	t.Run("anonymous without userId", func(t *testing.T) {
		s := newTestServer(&fakeOrchestrator{result: successResult()}, RouteOptions{AllowAnonymous: true})
		w := s.do(http.MethodPost, "/api/v1/programs/generate/phase", "", phaseBody())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token wins over body", func(t *testing.T) {
		orch := &fakeOrchestrator{result: successResult()}
		s := newTestServer(orch, RouteOptions{AllowAnonymous: true})
		w := s.do(http.MethodPost, "/api/v1/programs/generate/phase", token(t, "u1", time.Hour), body)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u1", orch.got.UserID)
	})
}

func TestGeneratePhase_RateLimited(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{RequestsPerMinute: 1, Burst: 1})
	s := newTestServer(&fakeOrchestrator{result: successResult()}, RouteOptions{Limiter: limiter})
	bearer := token(t, "u1", time.Hour)

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/programs/generate/phase", bearer, phaseBody()).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodPost, "/api/v1/programs/generate/phase", bearer, phaseBody()).Code)

	// Another user has their own bucket.
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/programs/generate/phase", token(t, "u2", time.Hour), phaseBody()).Code)
}

func TestGetProgram(t *testing.T) {
	s := newTestServer(&fakeOrchestrator{}, RouteOptions{})
	ctx := context.Background()
	programID, err := s.store.Programs().Create(ctx, &domain.Program{OwnerID: "u1", Name: "Strong", TotalPhases: 2})
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/api/v1/programs/"+programID.Hex(), token(t, "u1", time.Hour), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Strong", decode(t, w)["name"])

	w = s.do(http.MethodGet, "/api/v1/programs/"+programID.Hex(), token(t, "u2", time.Hour), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/programs/"+primitive.NewObjectID().Hex(), token(t, "u1", time.Hour), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/programs/not-an-id", token(t, "u1", time.Hour), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/programs/"+programID.Hex(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetCredits(t *testing.T) {
	s := newTestServer(&fakeOrchestrator{}, RouteOptions{})
	s.store.PutUser(domain.User{ID: "u1", Tier: domain.TierFree, GenerationsThisMonth: 1, ResetAt: time.Now().UTC()})

	w := s.do(http.MethodGet, "/api/v1/credits", token(t, "u1", time.Hour), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["allowed"])
	assert.Equal(t, float64(1), body["used"])
	assert.Equal(t, float64(4), body["limit"])
}

func TestGetGenerationLogs(t *testing.T) {
	s := newTestServer(&fakeOrchestrator{}, RouteOptions{})

	w := s.do(http.MethodGet, "/api/v1/generation-logs", token(t, "u1", time.Hour), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	_, err := s.store.GenerationLogs().Create(context.Background(), &domain.GenerationLog{UserID: "u1", PhaseNumber: 1, Outcome: domain.OutcomeSuccess})
	require.NoError(t, err)

	w = s.do(http.MethodGet, "/api/v1/generation-logs?limit=5", token(t, "u1", time.Hour), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []domain.GenerationLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, domain.OutcomeSuccess, logs[0].Outcome)
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	m.CreditDenied()
	s := newTestServer(&fakeOrchestrator{}, RouteOptions{Gatherer: registry})

	w := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "program_credit_denials_total 1")

	s = newTestServer(&fakeOrchestrator{}, RouteOptions{})
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/metrics", "", nil).Code)
}

func TestRequestIDIsReused(t *testing.T) {
	s := newTestServer(&fakeOrchestrator{}, RouteOptions{})
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestGeneratePhase_ClientDisconnectDoesNotCancelGeneration(t *testing.T) {
	orch := &fakeOrchestrator{result: successResult()}
	s := newTestServer(orch, RouteOptions{})

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(phaseBody()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/programs/generate/phase", &buf).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token(t, "u1", time.Hour))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.NotNil(t, orch.got)
	assert.NoError(t, orch.ctxErr)
	assert.Equal(t, http.StatusOK, w.Code)
}
