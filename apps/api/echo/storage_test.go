package echoapi

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/simcatalog/core/attachment"
	"github.com/trezcool/simcatalog/core/user"
	testutil "github.com/trezcool/simcatalog/tests"
)

const simulatorHTML = "<!DOCTYPE html><html><head><title>ECG</title></head><body>simulador</body></html>"

func Test_storageApi(t *testing.T) {
	app := setup(t)
	editorUsr := testutil.CreateUser(t, app.usrRepo, "Editor", "editor@test.cd", "", user.RoleEditor)
	editor := app.getToken(t, editorUsr)
	viewer := app.getToken(t, testutil.CreateUser(t, app.usrRepo, "Viewer", "viewer@test.cd", "", user.RoleViewer))

	t.Run("auth required", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/upload", "", "index.html", []byte(simulatorHTML), nil)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("editor required", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/upload", viewer, "index.html", []byte(simulatorHTML), nil)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/upload", editor, "", nil, map[string]string{"foo": "bar"})
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"file": attachment.ErrFileRequired.Error()}),
		}, rec)
	})

	t.Run("type not allowed", func(t *testing.T) {
		png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
		req, rec := newUploadRequest(t, "/v1/upload", editor, "logo.png", png, nil)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"file": "Tipo de arquivo não permitido"}),
		}, rec)
	})

	t.Run("upload and download", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/upload", editor, "index.html", []byte(simulatorHTML), nil)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var up attachment.Upload
		unmarshal(t, rec, &up)
		assert.True(t, strings.HasPrefix(up.Path, editorUsr.ID+"/"), up.Path)
		assert.True(t, strings.HasSuffix(up.Path, "-index.html"), up.Path)
		assert.Equal(t, "/v1/storage/simulators/"+up.Path, up.URL)
		assert.Equal(t, "index.html", up.FileName)
		assert.Equal(t, int64(len(simulatorHTML)), up.FileSize)
		assert.Equal(t, "text/html", up.FileType)

		req, rec = newAuthRequest(http.MethodGet, up.URL, viewer)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, simulatorHTML, rec.Body.String())
		assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
		assert.Equal(t, "private, max-age=3600", rec.Header().Get("Cache-Control"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "sandbox allow-scripts allow-forms allow-pointer-lock", rec.Header().Get("Content-Security-Policy"))
	})

	t.Run("passive content is cached publicly", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/upload", editor, "scene.json", []byte(`{"nodes": []}`), nil)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var up attachment.Upload
		unmarshal(t, rec, &up)

		req, rec = newAuthRequest(http.MethodGet, up.URL, viewer)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
		assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
	})

	app.run(t, []httpTest{
		{
			name: "download: not found", path: "/v1/storage/simulators/nope/index.html", token: viewer, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: attachment.ErrNotFound.Error()}),
		},
		{
			name: "download: no climbing", path: "/v1/storage/simulators/../../etc/passwd", token: viewer, wantCode: http.StatusNotFound,
		},
		{name: "download: auth required", path: "/v1/storage/simulators/nope/index.html", wantCode: http.StatusUnauthorized},
	})
}
