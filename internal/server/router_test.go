package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/file-hosting-api/internal/identity/local"
	"github.com/yukikurage/file-hosting-api/internal/metrics"
	"github.com/yukikurage/file-hosting-api/internal/models"
	"github.com/yukikurage/file-hosting-api/internal/repository"
	"github.com/yukikurage/file-hosting-api/internal/services"
	"github.com/yukikurage/file-hosting-api/internal/storage"
	"github.com/yukikurage/file-hosting-api/internal/testutil"
	"golang.org/x/crypto/bcrypt"
)

type RouterTestSuite struct {
	suite.Suite
	router      *gin.Engine
	store       *storage.DiskStore
	authService *services.AuthService
	metrics     *metrics.Metrics
}

func (suite *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db := testutil.NewSQLiteDB(suite.T())
	provider := local.New(db, local.Config{
		Secret:     []byte("router-test-secret"),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	suite.Require().NoError(provider.Migrate())

	var err error
	suite.store, err = storage.NewDiskStore(suite.T().TempDir())
	suite.Require().NoError(err)

	profiles := repository.NewProfileRepository(db)
	files := repository.NewFileRepository(db)
	suite.metrics = metrics.New("")
	suite.authService = services.NewAuthService(provider, profiles)

	suite.router = NewRouter(Deps{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Provider:       provider,
		AuthService:    suite.authService,
		FileService:    services.NewFileService(files, suite.store, suite.metrics),
		AdminService:   services.NewAdminService(suite.authService, profiles, provider),
		Store:          suite.store,
		SessionStore:   cookie.NewStore([]byte("secret")),
		Metrics:        suite.metrics,
		MaxUploadBytes: 64,
	})
}

type loginResult struct {
	AccessToken string `json:"accessToken"`
	User        struct {
		ID uint64 `json:"id"`
	} `json:"user"`
}

type fileResult struct {
	FileID uint64 `json:"fileid"`
	UserID uint64 `json:"userid"`
}

func (suite *RouterTestSuite) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *RouterTestSuite) doJSON(method, path, token string, payload any) *httptest.ResponseRecorder {
	body, err := json.Marshal(payload)
	suite.Require().NoError(err)
	return suite.do(method, path, token, bytes.NewReader(body), "application/json")
}

func (suite *RouterTestSuite) errorMessage(w *httptest.ResponseRecorder) string {
	var body map[string]string
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func (suite *RouterTestSuite) registerAndLogin(email, username string) loginResult {
	w := suite.doJSON(http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": "password123",
		"username": username,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return suite.login(email)
}

func (suite *RouterTestSuite) login(email string) loginResult {
	w := suite.doJSON(http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": "password123",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var result loginResult
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func (suite *RouterTestSuite) upload(token, filename, content string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	suite.Require().NoError(err)
	_, err = part.Write([]byte(content))
	suite.Require().NoError(err)
	suite.Require().NoError(mw.Close())

	return suite.do(http.MethodPost, "/api/files/upload", token, &buf, mw.FormDataContentType())
}

func (suite *RouterTestSuite) uploadOK(token, filename, content string) fileResult {
	w := suite.upload(token, filename, content)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var response struct {
		File fileResult `json:"file"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return response.File
}

func (suite *RouterTestSuite) TestHealth() {
	w := suite.do(http.MethodGet, "/health", "", nil, "")

	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"status":"ok"`)
	suite.NotEmpty(w.Header().Get("X-Request-ID"))
}

func (suite *RouterTestSuite) TestFileRoutesRequireBearer() {
	w := suite.do(http.MethodGet, "/api/files", "", nil, "")
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal("Access token required", suite.errorMessage(w))

	w = suite.do(http.MethodGet, "/api/files", "garbage", nil, "")
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal("Invalid or expired token", suite.errorMessage(w))
}

func (suite *RouterTestSuite) TestLoginTokenResolvesSameUser() {
	alice := suite.registerAndLogin("alice@example.com", "alice")

	file := suite.uploadOK(alice.AccessToken, "notes.txt", "hello")
	suite.Equal(alice.User.ID, file.UserID)

	w := suite.do(http.MethodGet, "/api/files", alice.AccessToken, nil, "")
	suite.Require().Equal(http.StatusOK, w.Code)
	var response struct {
		Files []fileResult `json:"files"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Require().Len(response.Files, 1)
	suite.Equal(alice.User.ID, response.Files[0].UserID)
}

func (suite *RouterTestSuite) TestListFilesWithTrailingSlash() {
	alice := suite.registerAndLogin("alice@example.com", "alice")

	for _, path := range []string{"/api/files", "/api/files/"} {
		w := suite.do(http.MethodGet, path, alice.AccessToken, nil, "")
		suite.Equal(http.StatusOK, w.Code, path)
		suite.JSONEq(`{"files":[]}`, w.Body.String(), path)
	}

	w := suite.do(http.MethodGet, "/api/files/", "", nil, "")
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *RouterTestSuite) TestCrossUserAccessIsForbidden() {
	alice := suite.registerAndLogin("alice@example.com", "alice")
	bob := suite.registerAndLogin("bob@example.com", "bob")

	file := suite.uploadOK(alice.AccessToken, "private.txt", "alice only")
	id := strconv.FormatUint(file.FileID, 10)

	w := suite.do(http.MethodGet, "/api/files/download/"+id, bob.AccessToken, nil, "")
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal("Access denied", suite.errorMessage(w))

	w = suite.do(http.MethodDelete, "/api/files/delete/"+id, bob.AccessToken, nil, "")
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.do(http.MethodGet, "/api/files/download/"+id, alice.AccessToken, nil, "")
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("alice only", w.Body.String())
	suite.Contains(w.Header().Get("Content-Disposition"), "private.txt")
}

func (suite *RouterTestSuite) TestUploadStoresUnderGeneratedName() {
	alice := suite.registerAndLogin("alice@example.com", "alice")

	suite.uploadOK(alice.AccessToken, "report.pdf", "%PDF")

	entries, err := os.ReadDir(suite.store.Dir())
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	name := entries[0].Name()
	suite.True(strings.HasPrefix(name, "report-"))
	suite.Equal(".pdf", filepath.Ext(name))
}

func (suite *RouterTestSuite) TestUploadWithoutFile() {
	alice := suite.registerAndLogin("alice@example.com", "alice")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	suite.Require().NoError(mw.WriteField("note", "no file here"))
	suite.Require().NoError(mw.Close())

	w := suite.do(http.MethodPost, "/api/files/upload", alice.AccessToken, &buf, mw.FormDataContentType())
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("No file uploaded", suite.errorMessage(w))
}

func (suite *RouterTestSuite) TestUploadTooLarge() {
	alice := suite.registerAndLogin("alice@example.com", "alice")

	w := suite.upload(alice.AccessToken, "big.bin", strings.Repeat("x", 65))
	suite.Equal(http.StatusRequestEntityTooLarge, w.Code)
	suite.Equal("File too large", suite.errorMessage(w))

	entries, err := os.ReadDir(suite.store.Dir())
	suite.Require().NoError(err)
	suite.Empty(entries)
}

func (suite *RouterTestSuite) TestDeleteRemovesFileAndRecord() {
	alice := suite.registerAndLogin("alice@example.com", "alice")
	file := suite.uploadOK(alice.AccessToken, "tmp.txt", "temporary")
	id := strconv.FormatUint(file.FileID, 10)

	w := suite.do(http.MethodDelete, "/api/files/delete/"+id, alice.AccessToken, nil, "")
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/api/files/download/"+id, alice.AccessToken, nil, "")
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("File not found", suite.errorMessage(w))

	entries, err := os.ReadDir(suite.store.Dir())
	suite.Require().NoError(err)
	suite.Empty(entries)
}

func (suite *RouterTestSuite) TestAdminRoutesRequireAdminRole() {
	alice := suite.registerAndLogin("alice@example.com", "alice")

	w := suite.do(http.MethodGet, "/admin/", alice.AccessToken, nil, "")
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal("Admin access required", suite.errorMessage(w))

	w = suite.do(http.MethodGet, "/admin/", "", nil, "")
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = suite.do(http.MethodGet, "/admin", alice.AccessToken, nil, "")
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *RouterTestSuite) TestAdminDeletesUserOrphansToken() {
	_, err := suite.authService.Register(context.Background(), services.RegisterInput{
		Email:    "root@example.com",
		Password: "password123",
		Username: "root",
		Role:     models.RoleAdmin,
	})
	suite.Require().NoError(err)
	admin := suite.login("root@example.com")
	alice := suite.registerAndLogin("alice@example.com", "alice")

	w := suite.do(http.MethodGet, "/admin/", admin.AccessToken, nil, "")
	suite.Require().Equal(http.StatusOK, w.Code)
	var users []models.Profile
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &users))
	suite.Len(users, 2)

	w = suite.do(http.MethodDelete, "/admin/delete_user/"+strconv.FormatUint(admin.User.ID, 10), admin.AccessToken, nil, "")
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("Cannot delete your own account", suite.errorMessage(w))

	w = suite.do(http.MethodDelete, "/admin/delete_user/"+strconv.FormatUint(alice.User.ID, 10), admin.AccessToken, nil, "")
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/api/files", alice.AccessToken, nil, "")
	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.Equal("Failed to fetch files", suite.errorMessage(w))

	w = suite.doJSON(http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	})
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *RouterTestSuite) TestAdminCreateUser() {
	_, err := suite.authService.Register(context.Background(), services.RegisterInput{
		Email:    "root@example.com",
		Password: "password123",
		Username: "root",
		Role:     models.RoleAdmin,
	})
	suite.Require().NoError(err)
	admin := suite.login("root@example.com")

	w := suite.doJSON(http.MethodPost, "/admin/create_user", admin.AccessToken, map[string]string{
		"email":    "ops@example.com",
		"password": "password123",
		"username": "ops",
		"role":     "admin",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	ops := suite.login("ops@example.com")
	w = suite.do(http.MethodGet, "/admin/", ops.AccessToken, nil, "")
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *RouterTestSuite) TestMetricsEndpoint() {
	suite.do(http.MethodGet, "/health", "", nil, "")

	w := suite.do(http.MethodGet, "/metrics", "", nil, "")
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "http_requests_total")
	suite.Contains(w.Body.String(), `route="/health"`)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
