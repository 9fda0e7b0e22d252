package skillapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillctl/pkg/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

func newJSONBox(t *testing.T, handler http.HandlerFunc) (*[]recordedRequest, *httptest.Server) {
	t.Helper()

	var (
		mu       sync.Mutex
		requests []recordedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return &requests, server
}

func TestREST_GetWithoutArgument(t *testing.T) {
	requests, server := newJSONBox(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id": 1, "name": "pick"}, {"id": 2, "name": "place"}]`)
	})
	client := newTestClient(t, config.Endpoint{URL: server.URL + "/skills", Transport: config.TransportHTTP})

	v, err := client.TrainedSkills(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, v.Len())

	name, ok := v.Items[1].Get("name")
	require.True(t, ok)
	assert.Equal(t, "place", name.Scalar)

	id, ok := v.Items[0].Get("id")
	require.True(t, ok)
	assert.Equal(t, int64(1), id.Scalar)

	require.Len(t, *requests, 1)
	assert.Equal(t, http.MethodGet, (*requests)[0].Method)
	assert.Equal(t, "/skills/get_trained_skills", (*requests)[0].Path)
	assert.Empty(t, (*requests)[0].Body)
}

func TestREST_PostWithSkillID(t *testing.T) {
	requests, server := newJSONBox(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status": "success"}`)
	})
	client := newTestClient(t, config.Endpoint{URL: server.URL + "/skills/", Transport: config.TransportHTTP})

	_, err := client.ExecuteSkill(context.Background(), "42")
	require.NoError(t, err)
	_, err = client.PrepareSkillAsync(context.Background(), "pick-a")
	require.NoError(t, err)

	require.Len(t, *requests, 2)
	assert.Equal(t, http.MethodPost, (*requests)[0].Method)
	assert.Equal(t, "/skills/execute_skill", (*requests)[0].Path)
	assert.JSONEq(t, `{"skill_id": 42}`, (*requests)[0].Body)

	assert.Equal(t, "/skills/prepare_skill_async", (*requests)[1].Path)
	assert.JSONEq(t, `{"skill_id": "pick-a"}`, (*requests)[1].Body)
}

func TestREST_ErrorStatusIsFault(t *testing.T) {
	_, server := newJSONBox(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "skill 9 is not trained"})
	})
	client := newTestClient(t, config.Endpoint{URL: server.URL + "/skills/", Transport: config.TransportHTTP})

	_, err := client.Result(context.Background(), "9")
	require.Error(t, err)

	var callErr *RemoteCallError
	require.True(t, errors.As(err, &callErr))
	fault, ok := callErr.Fault()
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, fault.Code)
	assert.Equal(t, "skill 9 is not trained", fault.Message)
	assert.Equal(t, "remote call get_result failed: skill 9 is not trained", err.Error())
}

func TestREST_MalformedJSON(t *testing.T) {
	_, server := newJSONBox(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status": `)
	})
	client := newTestClient(t, config.Endpoint{URL: server.URL + "/skills/", Transport: config.TransportHTTP})

	_, err := client.BoxMetadata(context.Background())
	require.Error(t, err)
	assert.True(t, IsRemoteCallError(err))
	assert.Contains(t, err.Error(), "malformed json response")
}

func TestFaultMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"message field", `{"message": "busy"}`, "busy"},
		{"error field", `{"error": "denied"}`, "denied"},
		{"plain text", "  internal error \n", "internal error"},
		{"empty body", "", "500 Internal Server Error"},
		{"long body", strings.Repeat("x", maxFaultBody+10), strings.Repeat("x", maxFaultBody) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, faultMessage("500 Internal Server Error", []byte(tt.body)))
		})
	}
}
