package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("period x: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("bad start: %w", ErrValidation), http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("load: %w", context.Canceled), http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		assert.Equal(t, tc.code, rr.Code, tc.err.Error())
		assert.Equal(t, tc.code, StatusFor(tc.err))
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Status)
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("pq: password authentication failed"))

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Empty(t, body.Detail)
}

func TestAttachmentAndInline(t *testing.T) {
	rr := httptest.NewRecorder()
	Attachment(rr, "text/csv; charset=utf-8", "ranking.csv", []byte("a,b\n"))
	assert.Equal(t, `attachment; filename="ranking.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "4", rr.Header().Get("Content-Length"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	rr = httptest.NewRecorder()
	Inline(rr, "image/svg+xml", []byte("<svg/>"))
	assert.Empty(t, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	assert.Equal(t, "<svg/>", rr.Body.String())
}
