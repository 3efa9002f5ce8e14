package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spothole/spothole-api/internal/config"
	"github.com/spothole/spothole-api/internal/metrics"
	"github.com/spothole/spothole-api/internal/models"
	"github.com/spothole/spothole-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

var (
	alice = models.User{ID: primitive.NewObjectID(), Name: "Alice", Email: "alice@example.com", Image: "https://img.example/alice.png"}
	bob   = models.User{ID: primitive.NewObjectID(), Name: "Bob", Email: "bob@example.com"}
)

type testEnv struct {
	app     *fiber.App
	store   *store.MemoryStore
	metrics *metrics.Metrics
}

type envOption func(*Deps, *config.Config)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	s := store.NewMemoryStore()
	cfg := &config.Config{
		JWTSecret:        testSecret,
		CORSOrigins:      "*",
		CommentsPageSize: 5,
		S3Bucket:         "spothole-test",
		UploadURLExpiry:  time.Minute,
	}
	deps := Deps{
		Store:   s,
		Users:   store.NewMemoryUserDirectory(alice, bob),
		Metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(&deps, cfg)
	}
	return &testEnv{app: New(cfg, deps), store: s, metrics: deps.Metrics}
}

func tokenFor(t *testing.T, u models.User) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":     u.ID.Hex(),
		"email":   u.Email,
		"name":    u.Name,
		"picture": u.Image,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp, decoded
}

func (e *testEnv) createPothole(t *testing.T) string {
	t.Helper()
	resp, body := e.do(t, "POST", "/api/potholes", "", map[string]interface{}{
		"longitude": 72.8777,
		"latitude":  19.0760,
		"imageUrl":  "https://x/1.jpg",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return body["data"].(map[string]interface{})["id"].(string)
}

func TestCreateThenListFlat(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "POST", "/api/potholes", "", map[string]interface{}{
		"longitude":   72.8777,
		"latitude":    19.0760,
		"imageUrl":    "https://x/1.jpg",
		"description": "Near the station",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	id := data["id"].(string)
	assert.True(t, primitive.IsValidObjectID(id))
	assert.Equal(t, "Reported", data["status"])
	assert.Equal(t, []interface{}{72.8777, 19.0760}, data["location"].(map[string]interface{})["coordinates"])

	resp, body = env.do(t, "GET", "/api/potholes", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := body["data"].([]interface{})
	require.Len(t, list, 1)
	item := list[0].(map[string]interface{})
	assert.Equal(t, id, item["id"])
	assert.Equal(t, 19.0760, item["latitude"])
	assert.Equal(t, 72.8777, item["longitude"])
	assert.Equal(t, "Near the station", item["description"])
	assert.Equal(t, float64(0), item["upvoteCount"])
}

func TestCreatePothole_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{name: "missing longitude", body: map[string]interface{}{"latitude": 1, "imageUrl": "https://x/1.jpg"}},
		{name: "missing latitude", body: map[string]interface{}{"longitude": 1, "imageUrl": "https://x/1.jpg"}},
		{name: "missing image", body: map[string]interface{}{"longitude": 1, "latitude": 1}},
		{name: "bad severity", body: map[string]interface{}{"longitude": 1, "latitude": 1, "imageUrl": "https://x/1.jpg", "severity": "Huge"}},
		{name: "longitude out of range", body: map[string]interface{}{"longitude": 200, "latitude": 1, "imageUrl": "https://x/1.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, "POST", "/api/potholes", "", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["message"])
		})
	}

	_, body := env.do(t, "GET", "/api/potholes", "", nil)
	assert.Empty(t, body["data"])
}

func TestCreatePothole_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest("POST", "/api/potholes", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreatePothole_RecordsReporter(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, "POST", "/api/potholes", tokenFor(t, alice), map[string]interface{}{
		"longitude": 1, "latitude": 2, "imageUrl": "https://x/2.jpg", "severity": "Major",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, alice.ID.Hex(), data["reportedBy"])
	assert.Equal(t, "Major", data["severity"])
}

func TestListPotholes_BoundingBox(t *testing.T) {
	env := newTestEnv(t)
	env.createPothole(t)

	_, body := env.do(t, "GET", "/api/potholes?bbox=72,18,73,20", "", nil)
	assert.Len(t, body["data"], 1)

	_, body = env.do(t, "GET", "/api/potholes?bbox=0,0,1,1", "", nil)
	assert.Len(t, body["data"], 0)

	resp, body := env.do(t, "GET", "/api/potholes?bbox=1,2,3", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestGetPothole(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPothole(t)

	resp, body := env.do(t, "GET", "/api/potholes/"+id, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, id, body["data"].(map[string]interface{})["id"])

	resp, _ = env.do(t, "GET", "/api/potholes/"+primitive.NewObjectID().Hex(), "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, "GET", "/api/potholes/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUpvote_UnauthenticatedLeavesSetUnchanged(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPothole(t)

	resp, body := env.do(t, "POST", "/api/potholes/"+id+"/upvote", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	oid, _ := primitive.ObjectIDFromHex(id)
	p, err := env.store.FindByID(context.Background(), oid)
	require.NoError(t, err)
	assert.Empty(t, p.Upvotes)
}

func TestUpvote_ToggleRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPothole(t)
	token := tokenFor(t, alice)

	resp, body := env.do(t, "POST", "/api/potholes/"+id+"/upvote", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{alice.ID.Hex()}, data["upvotes"])
	assert.Equal(t, float64(1), data["upvoteCount"])

	_, body = env.do(t, "GET", "/api/potholes", "", nil)
	assert.Equal(t, float64(1), body["data"].([]interface{})[0].(map[string]interface{})["upvoteCount"])

	resp, body = env.do(t, "POST", "/api/potholes/"+id+"/upvote", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data = body["data"].(map[string]interface{})
	assert.Empty(t, data["upvotes"])
	assert.Equal(t, float64(0), data["upvoteCount"])
}

func TestUpvote_NotFound(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPothole(t)

	resp, _ := env.do(t, "POST", "/api/potholes/"+primitive.NewObjectID().Hex()+"/upvote", tokenFor(t, alice), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	stranger := models.User{ID: primitive.NewObjectID(), Email: "stranger@example.com"}
	resp, _ = env.do(t, "POST", "/api/potholes/"+id+"/upvote", tokenFor(t, stranger), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestComments_AddAndPaginate(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPothole(t)
	path := "/api/potholes/" + id + "/comments"

	for i := 0; i < 7; i++ {
		token := tokenFor(t, alice)
		if i%2 == 1 {
			token = tokenFor(t, bob)
		}
		resp, body := env.do(t, "POST", path, token, map[string]string{"text": fmt.Sprintf("comment %d", i)})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, fmt.Sprintf("comment %d", i), data["text"])
		assert.NotEmpty(t, data["user"].(map[string]interface{})["name"])
	}

	resp, body := env.do(t, "GET", path+"?page=1&limit=5", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["hasMore"])
	page1 := body["data"].([]interface{})
	require.Len(t, page1, 5)
	first := page1[0].(map[string]interface{})
	assert.Equal(t, "comment 6", first["text"])
	assert.Equal(t, "Alice", first["user"].(map[string]interface{})["name"])

	_, body = env.do(t, "GET", path+"?page=2&limit=5", "", nil)
	assert.Equal(t, false, body["hasMore"])
	page2 := body["data"].([]interface{})
	require.Len(t, page2, 2)
	assert.Equal(t, "comment 0", page2[1].(map[string]interface{})["text"])

	_, body = env.do(t, "GET", "/api/potholes", "", nil)
	assert.Equal(t, float64(7), body["data"].([]interface{})[0].(map[string]interface{})["commentCount"])
}

func TestComments_Empty(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPothole(t)

	resp, body := env.do(t, "GET", "/api/potholes/"+id+"/comments", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{}, body["data"])
	assert.Equal(t, false, body["hasMore"])
}

func TestComments_PageFarPastTheEnd(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPothole(t)
	path := "/api/potholes/" + id + "/comments"
	for i := 0; i < 3; i++ {
		resp, _ := env.do(t, "POST", path, tokenFor(t, alice), map[string]string{"text": fmt.Sprintf("comment %d", i)})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	resp, body := env.do(t, "GET", path+"?page=3689348814741910324&limit=5", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{}, body["data"])
	assert.Equal(t, false, body["hasMore"])
}

func TestComments_Errors(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPothole(t)
	path := "/api/potholes/" + id + "/comments"

	resp, _ := env.do(t, "POST", path, "", map[string]string{"text": "hi"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body := env.do(t, "POST", path, tokenFor(t, alice), map[string]string{"text": "  "})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Comment text is required", body["message"])

	resp, _ = env.do(t, "POST", "/api/potholes/"+primitive.NewObjectID().Hex()+"/comments", tokenFor(t, alice), map[string]string{"text": "hi"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, "GET", "/api/potholes/"+primitive.NewObjectID().Hex()+"/comments", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// An unknown report is reported before the text is checked.
	resp, body = env.do(t, "POST", "/api/potholes/"+primitive.NewObjectID().Hex()+"/comments", tokenFor(t, alice), map[string]string{"text": " "})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Pothole not found", body["message"])
}

func TestComments_FilterWhenEnabled(t *testing.T) {
	env := newTestEnv(t, func(_ *Deps, cfg *config.Config) { cfg.CommentFilterEnabled = true })
	id := env.createPothole(t)

	resp, body := env.do(t, "POST", "/api/potholes/"+id+"/comments", tokenFor(t, alice), map[string]string{"text": "call me 555-123-4567"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Contact information is not allowed in comments.", body["message"])
}

// failingStore fails every read so handlers take the 500 path.
type failingStore struct {
	*store.MemoryStore
}

func (failingStore) FindAll(context.Context) ([]models.Pothole, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestStoreFailureIsGeneric500(t *testing.T) {
	env := newTestEnv(t, func(d *Deps, _ *config.Config) {
		d.Store = failingStore{store.NewMemoryStore()}
	})

	resp, body := env.do(t, "GET", "/api/potholes", "", nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Server Error", body["message"])
	assert.NotContains(t, fmt.Sprint(body), "connection refused")

	resp, body = env.do(t, "GET", "/api/health", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", body["status"])
}

func TestStoreFailureLogsLatency(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	env := newTestEnv(t, func(d *Deps, _ *config.Config) {
		d.Store = failingStore{store.NewMemoryStore()}
	})
	resp, _ := env.do(t, "GET", "/api/potholes", "", nil)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var entry map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]interface{}
		if json.Unmarshal([]byte(line), &rec) == nil && rec["msg"] == "request failed" {
			entry = rec
		}
	}
	require.NotNil(t, entry, buf.String())
	assert.Contains(t, entry, "latency_ms")
	assert.GreaterOrEqual(t, entry["latency_ms"], 0.0)
	assert.NotEmpty(t, entry["request_id"])
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, "GET", "/api/health", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["store"])
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, "GET", "/api/nowhere", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

type stubPresigner struct{}

func (stubPresigner) PresignPutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://spothole-test.s3.amazonaws.com/" + *params.Key, Method: "PUT"}, nil
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t, func(d *Deps, _ *config.Config) { d.Presigner = stubPresigner{} })

	resp, body := env.do(t, "POST", "/api/s3-upload", "", map[string]string{"fileType": "image/png"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	key := body["key"].(string)
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.True(t, strings.HasSuffix(body["url"].(string), key))

	resp, body = env.do(t, "POST", "/api/s3-upload", "", map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "File type is required.", body["message"])
}

func TestUpload_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, "POST", "/api/s3-upload", "", map[string]string{"fileType": "image/png"})
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

type fixedLookup struct {
	address string
	err     error
}

func (f fixedLookup) Reverse(context.Context, float64, float64) (string, error) {
	return f.address, f.err
}

func TestGeocode(t *testing.T) {
	env := newTestEnv(t, func(d *Deps, _ *config.Config) { d.Geocoder = fixedLookup{address: "SV Road, Mumbai"} })

	resp, body := env.do(t, "GET", "/api/geocode?lat=19.076&lon=72.8777", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "SV Road, Mumbai", body["address"])

	resp, _ = env.do(t, "GET", "/api/geocode?lat=abc&lon=1", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGeocode_FailureIsTolerated(t *testing.T) {
	env := newTestEnv(t, func(d *Deps, _ *config.Config) { d.Geocoder = fixedLookup{err: errors.New("timeout")} })

	resp, body := env.do(t, "GET", "/api/geocode?lat=1&lon=1", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Failed to fetch address details.", body["address"])
}

func TestCreateStoresAddressWhenEnabled(t *testing.T) {
	env := newTestEnv(t, func(d *Deps, cfg *config.Config) {
		d.Geocoder = fixedLookup{address: "SV Road, Mumbai"}
		cfg.GeocoderEnabled = true
	})
	id := env.createPothole(t)

	_, body := env.do(t, "GET", "/api/potholes/"+id, "", nil)
	assert.Equal(t, "SV Road, Mumbai", body["data"].(map[string]interface{})["address"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.createPothole(t)
	env.do(t, "GET", "/api/potholes", "", nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "spothole_potholes_created_total 1")
	assert.Contains(t, text, `spothole_http_requests_total{method="GET",route="/api/potholes",status="200"}`)
}
