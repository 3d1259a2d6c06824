package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	. "github.com/rotaract/reportdesk/apps/api/echo"
	"github.com/rotaract/reportdesk/core/user"
	"github.com/rotaract/reportdesk/tests"
)

const strongPassword = "Str0ng!Passw0rd#"

var errMissingToken = apiErr(http.StatusUnauthorized, "missing or malformed jwt")

type testEnv struct {
	app    *testutil.App
	server *Server
}

func setup(t *testing.T, now ...func() time.Time) testEnv {
	t.Helper()
	app := testutil.NewApp(t, nil, now...)
	server := NewServer(app.Conf, &Deps{
		Logger:    app.Logger,
		UserSvc:   app.Users,
		ReportSvc: app.Reports,
		DraftSvc:  app.Drafts,
	})
	t.Cleanup(func() { _ = server.Close() })
	return testEnv{app: app, server: server}
}

func (env testEnv) createUser(t *testing.T, uname string, roles ...string) user.User {
	t.Helper()
	return testutil.CreateUser(t, env.app.Repos.Users, "User "+uname, uname, uname+"@test.org", strongPassword, roles, true)
}

func (env testEnv) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	env.server.ServeHTTP(rec, req)
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newMultipartRequest builds a form post. files maps a field to its filename and content.
func newMultipartRequest(
	t *testing.T,
	path, token string,
	fields map[string]string,
	files map[string][2]string,
) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, file := range files {
		fw, err := w.CreateFormFile(field, file[0])
		require.NoError(t, err)
		_, err = fw.Write([]byte(file[1]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, env testEnv, usr user.User) string {
	t.Helper()
	tokens := env.server.Tokens()
	token, err := tokens.GenerateToken(tokens.GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func apiErr(code int, message string) ApiResponse {
	return ApiResponse{StatusCode: code, Message: message}
}

func apiOK(code int, data interface{}, message string) ApiResponse {
	return ApiResponse{StatusCode: code, Data: data, Message: message, Success: true}
}

// decode reads the envelope of rec and unmarshals its data into v when v is not nil.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) ApiResponse {
	t.Helper()
	var raw struct {
		ApiResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw), rec.Body.String())
	if v != nil {
		require.NoError(t, json.Unmarshal(raw.Data, v), string(raw.Data))
	}
	return raw.ApiResponse
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
