package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"cellscope/internal/catalog"
	"cellscope/internal/config"
	"cellscope/internal/inference"
	"cellscope/internal/models"
	"cellscope/internal/repository"
	"cellscope/internal/security"
	"cellscope/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUsers struct {
	byUsername map[string]models.User
	byEmail    map[string]models.User
	byID       map[string]models.User
}

func newStubUsers(users ...models.User) *stubUsers {
	s := &stubUsers{
		byUsername: map[string]models.User{},
		byEmail:    map[string]models.User{},
		byID:       map[string]models.User{},
	}
	for _, u := range users {
		s.byUsername[u.Username] = u
		s.byEmail[u.Email] = u
		s.byID[u.ID] = u
	}
	return s
}

func (s *stubUsers) Create(ctx context.Context, user models.User) error {
	s.byUsername[user.Username] = user
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return nil
}

func (s *stubUsers) FindByUsername(ctx context.Context, username string) (models.User, error) {
	u, ok := s.byUsername[username]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *stubUsers) FindByEmail(ctx context.Context, email string) (models.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *stubUsers) GetByID(ctx context.Context, id string) (models.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

type stubUploads struct {
	byID map[string]models.Upload

	listOut []models.Upload
	total   int64
}

func newStubUploads() *stubUploads {
	return &stubUploads{byID: map[string]models.Upload{}}
}

func (s *stubUploads) Create(ctx context.Context, upload models.Upload) error {
	s.byID[upload.ID] = upload
	return nil
}

func (s *stubUploads) GetByID(ctx context.Context, id, userID string) (models.Upload, error) {
	u, ok := s.byID[id]
	if !ok || u.UserID != userID {
		return models.Upload{}, repository.ErrUploadNotFound
	}
	return u, nil
}

func (s *stubUploads) GetImage(ctx context.Context, id, userID string) (repository.UploadImage, error) {
	u, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return repository.UploadImage{}, err
	}
	return repository.UploadImage{
		ImageData:         u.ImageData,
		ImageMimeType:     u.ImageMimeType,
		ImageOriginalName: u.ImageOriginalName,
	}, nil
}

func (s *stubUploads) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.GetByID(ctx, id, userID); err != nil {
		return err
	}
	delete(s.byID, id)
	return nil
}

func (s *stubUploads) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]models.Upload, error) {
	return s.listOut, nil
}

func (s *stubUploads) CountByUser(ctx context.Context, userID string) (int64, error) {
	return s.total, nil
}

func (s *stubUploads) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	return 0, nil
}

func (s *stubUploads) GroupByModel(ctx context.Context, userID string) ([]repository.LabelCount, error) {
	return nil, nil
}

func (s *stubUploads) GroupByCellType(ctx context.Context, userID string) ([]repository.LabelCount, error) {
	return nil, nil
}

func (s *stubUploads) SetImagePath(ctx context.Context, id, path string) error {
	return nil
}

func (s *stubUploads) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type stubEngine struct {
	classifyOut inference.ClassificationResult
	classifyErr error
	modelsOut   inference.ModelList
	modelsErr   error
}

func (s *stubEngine) Classify(ctx context.Context, image []byte, modelID string) (inference.ClassificationResult, error) {
	return s.classifyOut, s.classifyErr
}

func (s *stubEngine) Detect(ctx context.Context, image []byte, conf float64, showLabels bool) (inference.DetectionResult, error) {
	return inference.DetectionResult{}, nil
}

func (s *stubEngine) Count(ctx context.Context, image []byte, conf float64, showLabels bool) (inference.CountResult, error) {
	return inference.CountResult{}, nil
}

func (s *stubEngine) Models(ctx context.Context) (inference.ModelList, error) {
	return s.modelsOut, s.modelsErr
}

type testEnv struct {
	router  *gin.Engine
	cfg     *config.AppConfig
	users   *stubUsers
	uploads *stubUploads
	engine  *stubEngine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.AppConfig{}
	cfg.Environment = "test"
	cfg.Security.JWTSecret = "test-secret"
	cfg.Security.TokenTTL = time.Hour
	cfg.Security.CookieName = "token"
	cfg.Inference.ConfidenceThreshold = 0.25

	users := newStubUsers()
	uploads := newStubUploads()
	engine := &stubEngine{}
	log := zerolog.Nop()

	modelCatalog, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog load error: %v", err)
	}

	uploadSvc := service.NewUploadService(uploads, nil, nil, cfg, log)

	h := HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: service.NewAuthService(users, cfg, log),
		uploads:     uploadSvc,
		predictions: service.NewPredictionService(engine, uploadSvc, cfg, log),
		catalog:     modelCatalog,
		users:       users,
	}

	router := gin.New()
	h.Register(router.Group("/api"))

	return &testEnv{
		router:  router,
		cfg:     cfg,
		users:   users,
		uploads: uploads,
		engine:  engine,
	}
}

func (e *testEnv) addUser(t *testing.T, id, username, password string) string {
	t.Helper()

	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	_ = e.users.Create(context.Background(), models.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
	})

	token, err := security.IssueSessionToken(e.cfg.Security.JWTSecret, id, username, time.Hour)
	if err != nil {
		t.Fatalf("IssueSessionToken error: %v", err)
	}
	return token
}

type request struct {
	method string
	path   string
	body   any
	token  string
	cookie string
}

func (e *testEnv) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(r.method, r.path, body)
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.cookie != "" {
		req.AddCookie(&http.Cookie{Name: e.cfg.Security.CookieName, Value: r.cookie})
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}
