package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/simcatalog/core/roadmap"
	testutil "github.com/trezcool/simcatalog/tests"
)

func Test_roadmapApi(t *testing.T) {
	f := newCatalogFixture(t)
	app := f.app
	other := testutil.CreateGroup(t, app.catRepo, "Engenharia", "ENG")

	create := func(t *testing.T, body string) roadmap.Roadmap {
		req, rec := newAuthRequest(http.MethodPost, "/v1/roadmap", f.editor, []byte(body))
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var r roadmap.Roadmap
		unmarshal(t, rec, &r)
		return r
	}

	rm := create(t, `{"groupId":"`+f.group.ID+`","reach":50,"impact":50,"confidence":50,"effort":50}`)
	assert.Equal(t, roadmap.StatusIdea, rm.Status)
	assert.Equal(t, 2500.0, rm.RiceScore)
	require.NotNil(t, rm.Group)
	assert.Equal(t, f.group.Name, rm.Group.Name)

	low := create(t, `{"groupId":"`+other.ID+`","status":"PILOTO","reach":10,"impact":10,"confidence":10,"effort":0}`)
	assert.Equal(t, roadmap.StatusPilot, low.Status)
	assert.Equal(t, 0.0, low.RiceScore)

	path := "/v1/roadmap/" + rm.ID

	app.run(t, []httpTest{
		{name: "auth required", path: "/v1/roadmap", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "list by RICE score", path: "/v1/roadmap", token: f.viewer, wantCode: http.StatusOK, wantData: marchallList(t, rm, low)},
		{name: "retrieve", path: path, token: f.viewer, wantCode: http.StatusOK, wantData: marchallObj(t, rm)},
		{
			name: "retrieve: not found", path: "/v1/roadmap/nope", token: f.viewer, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "roadmap not found"}),
		},
		{
			name: "create: editor required", method: http.MethodPost, path: "/v1/roadmap", token: f.viewer,
			body: []byte(`{"groupId":"` + f.group.ID + `"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "create: unknown group", method: http.MethodPost, path: "/v1/roadmap", token: f.editor,
			body: []byte(`{"groupId":"nope"}`), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "group not found"}),
		},
		{
			name: "create: one per group", method: http.MethodPost, path: "/v1/roadmap", token: f.editor,
			body:     []byte(`{"groupId":"` + f.group.ID + `"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"groupId": roadmap.ErrRoadmapExists.Error()}),
		},
		{
			name: "create: metric out of range", method: http.MethodPost, path: "/v1/roadmap", token: f.editor,
			body: []byte(`{"groupId":"` + f.group.ID + `","reach":150}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "update: metric out of range", method: http.MethodPut, path: path, token: f.editor,
			body: []byte(`{"effort":-1}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "status: unknown", method: http.MethodPatch, path: path + "/status", token: f.editor,
			body: []byte(`{"status":"LANCADO"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "status: forbidden transition", method: http.MethodPatch, path: path + "/status", token: f.editor,
			body:     []byte(`{"status":"PRODUCAO"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"status": "IDEIA -> PRODUCAO: transition not permitted"}),
		},
	})

	t.Run("update metrics", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path, f.editor, []byte(`{"effort":25,"status":"PRODUCAO"}`))
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var r roadmap.Roadmap
		unmarshal(t, rec, &r)
		assert.Equal(t, 5000.0, r.RiceScore)
		assert.Equal(t, 50.0, r.Reach)
		assert.Equal(t, roadmap.StatusIdea, r.Status)
	})

	t.Run("status transition", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, path+"/status", f.editor, []byte(`{"status":"PROTOTIPO"}`))
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var r roadmap.Roadmap
		unmarshal(t, rec, &r)
		assert.Equal(t, roadmap.StatusPrototype, r.Status)

		// staying put is allowed
		req, rec = newAuthRequest(http.MethodPatch, path+"/status", f.editor, []byte(`{"status":"PROTOTIPO"}`))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
