package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("debug", "json", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("post_id", 1).Info("post created")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "post created", line["msg"])
	assert.Equal(t, float64(1), line["post_id"])

	_, err = New("loud", "text", io.Discard)
	assert.Error(t, err)
	_, err = New("info", "xml", io.Discard)
	assert.Error(t, err)
}

func TestRequestLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := middleware.RequestID(RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/group/x/?page=2", nil))

	require.Len(t, hook.AllEntries(), 1)
	e := hook.LastEntry()
	assert.Equal(t, "request", e.Message)
	assert.Equal(t, http.StatusNotFound, e.Data["status"])
	assert.Equal(t, 4, e.Data["bytes"])
	assert.Equal(t, "/group/x/?page=2", e.Data["path"])
	assert.NotEmpty(t, e.Data["request_id"])
}
