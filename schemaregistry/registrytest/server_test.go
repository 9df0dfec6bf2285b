package registrytest

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hamba/avro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaText = `{"type": "record", "name": "ns.Pair", "fields": [{"name": "k", "type": "string"}]}`

func request(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(w.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func registerBody(t *testing.T) string {
	b, err := json.Marshal(map[string]string{"schema": schemaText})
	require.NoError(t, err)
	return string(b)
}

func TestServer_Routes(t *testing.T) {
	s := NewServer()
	defer s.Close()
	h := s.Router()

	code, body := request(t, h, http.MethodPost, "/subjects/pairs-value/versions", registerBody(t))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["id"])

	code, body = request(t, h, http.MethodGet, "/subjects/pairs-value/versions/latest", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["version"])
	assert.Equal(t, schemaText, body["schema"])

	code, body = request(t, h, http.MethodPost, "/subjects/pairs-value", registerBody(t))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["id"])

	schema, err := avro.ParseWithCache(schemaText, "", &avro.SchemaCache{})
	require.NoError(t, err)
	fp := schema.Fingerprint()
	code, body = request(t, h, http.MethodGet, "/subjects/pairs-value/fingerprints/"+hex.EncodeToString(fp[:]), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["id"])

	code, body = request(t, h, http.MethodGet, "/schemas/ids/1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, schemaText, body["schema"])
	assert.Equal(t, int64(1), s.Fetches())
}

func TestServer_Errors(t *testing.T) {
	s := NewServer()
	defer s.Close()
	h := s.Router()

	tests := []struct {
		method, path, body string
		status, code       int
	}{
		{http.MethodGet, "/schemas/ids/7", "", http.StatusNotFound, CodeSchemaNotFound},
		{http.MethodGet, "/subjects/none/versions", "", http.StatusNotFound, CodeSubjectNotFound},
		{http.MethodGet, "/subjects/none/versions/1", "", http.StatusNotFound, CodeSubjectNotFound},
		{http.MethodPost, "/subjects/x/versions", `{"schema": "{\"type\": \"nope\"}"}`, http.StatusUnprocessableEntity, CodeInvalidSchema},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			code, body := request(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, code)
			assert.Equal(t, float64(tt.code), body["error_code"])
		})
	}
}

func TestServer_DefaultsDistinguishSchemas(t *testing.T) {
	s := NewServer()
	defer s.Close()
	h := s.Router()

	withDefault := `{"type": "record", "name": "ns.Pair", "fields": [{"name": "k", "type": "string", "default": "x"}]}`
	b, err := json.Marshal(map[string]string{"schema": withDefault})
	require.NoError(t, err)

	code, body := request(t, h, http.MethodPost, "/subjects/pairs-value/versions", registerBody(t))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["id"])

	code, body = request(t, h, http.MethodPost, "/subjects/pairs-value/versions", string(b))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["id"])

	code, body = request(t, h, http.MethodGet, "/schemas/ids/2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, withDefault, body["schema"])

	// both share a canonical fingerprint; the latest version wins
	schema, err := avro.ParseWithCache(schemaText, "", &avro.SchemaCache{})
	require.NoError(t, err)
	fp := schema.Fingerprint()
	code, body = request(t, h, http.MethodGet, "/subjects/pairs-value/fingerprints/"+hex.EncodeToString(fp[:]), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["id"])
}
