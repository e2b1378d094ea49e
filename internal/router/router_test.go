package router

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vzemtsov/listomat/internal/auth"
	"github.com/vzemtsov/listomat/internal/db/memorystorage"
	"github.com/vzemtsov/listomat/internal/ipchecker"
	"github.com/vzemtsov/listomat/internal/logger"
	"github.com/vzemtsov/listomat/internal/mockstorage"
	"github.com/vzemtsov/listomat/internal/models"
	"github.com/vzemtsov/listomat/internal/service"
	"github.com/vzemtsov/listomat/internal/uploader"
)

const (
	testTrustedSubnet = "127.0.0.0/8"
	testMaxImages     = 5
)

var testSigningSecretKey = []byte("test_jwt_secret")

type testEnv struct {
	server *httptest.Server
	auth   *auth.Auth
	db     *memorystorage.MemoryStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, logger.Init("fatal"))

	theStorage, err := memorystorage.New()
	require.NoError(t, err)

	theAuth := auth.New(theStorage, testSigningSecretKey, 2*time.Hour)
	svc := service.New(theStorage, uploader.NewPlaceholderUploader("https://picsum.photos"))

	theIPChecker, err := ipchecker.New(testTrustedSubnet)
	require.NoError(t, err)

	handler := New(svc, theAuth, theAuth, theIPChecker, testMaxImages)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &testEnv{
		server: server,
		auth:   theAuth,
		db:     theStorage,
	}
}

func (env *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	var body models.LoginResponse
	response, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.LoginRequest{Email: email, Password: password}).
		SetResult(&body).
		Post(env.server.URL + "/login")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	require.NotEmpty(t, body.Token)

	return body.Token
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	token := env.login(t, "first@example.com", "pw")

	claims, err := env.auth.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "first@example.com", claims.Email)

	// Wrong password on a now-known email.
	var body models.MessageResponse
	response, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.LoginRequest{Email: "first@example.com", Password: "wrong"}).
		SetError(&body).
		Post(env.server.URL + "/login")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode())
	assert.Equal(t, "Invalid credentials", body.Message)
}

func TestLoginRejectsIncompleteCredentials(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name        string
		credentials models.LoginRequest
	}{
		{"missing email", models.LoginRequest{Password: "pw"}},
		{"missing password", models.LoginRequest{Email: "blank@example.com"}},
		{"empty body", models.LoginRequest{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var body models.MessageResponse
			response, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(test.credentials).
				SetError(&body).
				Post(env.server.URL + "/login")
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, response.StatusCode())
			assert.Equal(t, "Malformed request", body.Message)
		})
	}

	users, err := env.db.GetNumberOfUsers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, users, "Incomplete credentials should never provision a user")
}

func TestProductsRequireToken(t *testing.T) {
	env := newTestEnv(t)

	response, err := resty.New().R().Get(env.server.URL + "/products")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode())

	response, err = resty.New().R().
		SetHeader("Authorization", "Bearer garbage").
		Get(env.server.URL + "/products")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, response.StatusCode())
}

func TestProductLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "seller@example.com", "pw")

	claims, err := env.auth.VerifyToken(token)
	require.NoError(t, err)

	// Create.
	var created models.ProductResponse
	response, err := resty.New().R().
		SetAuthToken(token).
		SetFormData(map[string]string{
			"name":        "bicycle",
			"price":       "120",
			"description": "city bike",
			"location":    "Riga",
			"userName":    "John",
			"userPhone":   "+371000000",
		}).
		SetFileReader("images", "bike.jpg", bytes.NewReader([]byte("first image"))).
		SetFileReader("images", "seat.jpg", bytes.NewReader([]byte("second image"))).
		SetResult(&created).
		Post(env.server.URL + "/products")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())

	assert.Equal(t, "Product created", created.Message)
	assert.NotEmpty(t, created.Product.ID)
	assert.Len(t, created.Product.Images, 2)
	assert.Equal(t, claims.UserID, created.Product.User.ID)
	assert.Equal(t, "John", created.Product.User.Name)

	// List.
	var products []models.Product
	response, err = resty.New().R().
		SetAuthToken(token).
		SetResult(&products).
		Get(env.server.URL + "/products")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	require.Len(t, products, 1)
	assert.Equal(t, created.Product, products[0])

	// Partial update: only the price changes, images stay untouched.
	var updated models.ProductResponse
	response, err = resty.New().R().
		SetAuthToken(token).
		SetFormData(map[string]string{"price": "99"}).
		SetResult(&updated).
		Put(env.server.URL + "/products/" + created.Product.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())

	assert.Equal(t, "Product updated", updated.Message)
	assert.Equal(t, "99", updated.Product.Price)
	assert.Equal(t, created.Product.Name, updated.Product.Name)
	assert.Equal(t, created.Product.Images, updated.Product.Images)
	assert.Equal(t, created.Product.User, updated.Product.User)

	// Update with a new file replaces the whole image sequence.
	response, err = resty.New().R().
		SetAuthToken(token).
		SetFileReader("images", "new.jpg", bytes.NewReader([]byte("new image"))).
		SetResult(&updated).
		Put(env.server.URL + "/products/" + created.Product.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	require.Len(t, updated.Product.Images, 1)
	assert.NotContains(t, created.Product.Images, updated.Product.Images[0])

	// Another authenticated user may update the product: no ownership check.
	otherToken := env.login(t, "other@example.com", "pw")
	response, err = resty.New().R().
		SetAuthToken(otherToken).
		SetFormData(map[string]string{"location": "Tallinn"}).
		SetResult(&updated).
		Put(env.server.URL + "/products/" + created.Product.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	assert.Equal(t, "Tallinn", updated.Product.Location)
	assert.Equal(t, claims.UserID, updated.Product.User.ID, "The owner snapshot keeps the creator's ID")

	// Delete.
	var deleted models.MessageResponse
	response, err = resty.New().R().
		SetAuthToken(token).
		SetResult(&deleted).
		Delete(env.server.URL + "/products/" + created.Product.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	assert.Equal(t, "Product deleted", deleted.Message)

	response, err = resty.New().R().
		SetAuthToken(token).
		Delete(env.server.URL + "/products/" + created.Product.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, response.StatusCode())

	response, err = resty.New().R().
		SetAuthToken(token).
		SetResult(&products).
		Get(env.server.URL + "/products")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	assert.Empty(t, products)
}

func TestUpdateUnknownProduct(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "seller@example.com", "pw")

	var body models.MessageResponse
	response, err := resty.New().R().
		SetAuthToken(token).
		SetFormData(map[string]string{"price": "99"}).
		SetError(&body).
		Put(env.server.URL + "/products/unknown")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, response.StatusCode())
	assert.Equal(t, "Product not found", body.Message)
}

func TestCreateWithoutFilesGetsPlaceholder(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "seller@example.com", "pw")

	var created models.ProductResponse
	response, err := resty.New().R().
		SetAuthToken(token).
		SetFormData(map[string]string{"name": "chair"}).
		SetResult(&created).
		Post(env.server.URL + "/products")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	assert.Len(t, created.Product.Images, 1, "The placeholder adapter backfills one image")
}

func TestInternalStats(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "seller@example.com", "pw")

	var stats models.InternalStatsResponse
	response, err := resty.New().R().
		SetHeader("X-Real-IP", "127.0.0.1").
		SetResult(&stats).
		Get(env.server.URL + "/api/internal/stats")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	assert.Equal(t, int64(1), stats.Users)
	assert.Equal(t, int64(0), stats.Products)

	response, err = resty.New().R().
		SetHeader("X-Real-IP", "10.1.2.3").
		Get(env.server.URL + "/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, response.StatusCode())
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)

	response, err := resty.New().R().Get(env.server.URL + "/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
}

func TestStorageFailureYieldsInternalError(t *testing.T) {
	require.NoError(t, logger.Init("fatal"))

	theStorage := &mockstorage.StorageMock{}
	theStorage.On("GetProducts", mock.Anything).
		Return(nil, errors.New("storage went away"))

	theAuth := auth.New(theStorage, testSigningSecretKey, 2*time.Hour)
	svc := service.New(theStorage, uploader.NewPlaceholderUploader("https://picsum.photos"))

	theIPChecker, err := ipchecker.New("")
	require.NoError(t, err)

	server := httptest.NewServer(New(svc, theAuth, theAuth, theIPChecker, testMaxImages))
	defer server.Close()

	// A token from a working identity path is still needed to reach the handler.
	workingStorage, err := memorystorage.New()
	require.NoError(t, err)
	workingAuth := auth.New(workingStorage, testSigningSecretKey, 2*time.Hour)
	result, err := workingAuth.Login(context.Background(), "seller@example.com", "pw")
	require.NoError(t, err)

	response, err := resty.New().R().
		SetAuthToken(result.Token).
		Get(server.URL + "/products")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, response.StatusCode())
}
