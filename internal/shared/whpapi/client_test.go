package whpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/whp/internal/whp/entity"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 0)
}

func TestUploadBatchSendsMultipartAndDecodesRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/healthcheck-report/upload-batch", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "staff.xlsx", hdr.Filename)
		assert.Equal(t, "PK\x03\x04data", string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"statusCode":200,"message":"ok","data":{"batch_uuid":"b-1","total_rows":1,
			"rows":[{"row_number":2,"data":{"employee_code":"E1","weight_kg":70.5},"status":"OK","remark":null}]},"error":null}`)
	})

	batch, err := c.UploadBatch(WithToken(context.Background(), "tok"), "staff.xlsx", []byte("PK\x03\x04data"))
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, "b-1", batch.BatchUUID)
	assert.Equal(t, 1, batch.TotalRows)
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "70.5", batch.Rows[0].Field("weight_kg"))
	assert.Equal(t, entity.RowStatusOK, batch.Rows[0].Status)
}

func TestUploadBatchWithoutData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"queued"}`)
	})
	batch, err := c.UploadBatch(context.Background(), "a.xlsx", nil)
	require.NoError(t, err)
	assert.Nil(t, batch)
}

func TestErrorMessagePrecedence(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"error":{"message":"รหัสซ้ำ"},"message":"bad request"}`, "รหัสซ้ำ"},
		{`{"error":"boom","message":"bad request"}`, "bad request"},
		{`{"message":"bad request"}`, "bad request"},
		{`not json`, ""},
		{``, ""},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, tc.body)
		})
		_, err := c.ConfirmBatch(context.Background(), "b-1")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), tc.body)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, tc.want, apiErr.Message, tc.body)
		assert.Equal(t, "fallback", MessageOr(errors.New("other"), "fallback"))
		if tc.want == "" {
			assert.Equal(t, "fallback", MessageOr(err, "fallback"))
		} else {
			assert.Equal(t, tc.want, MessageOr(err, "fallback"))
		}
	}
}

func TestConfirmBatchBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"batch_uuid": "b-9"}, body)
		_, _ = io.WriteString(w, `{"message":"confirmed"}`)
	})
	res, err := c.ConfirmBatch(context.Background(), "b-9")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", res.Message)
}

func TestListReportsAndPeriods(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthcheck-report":
			assert.Equal(t, "2025-01", r.URL.Query().Get("round_year_month"))
			_, _ = io.WriteString(w, `{"data":[{"employee_code":"E1"}]}`)
		case "/health_checks_grouped":
			_, _ = io.WriteString(w, `{"data":[{"round_year_month":"2025-01","count":3},{"round_year_month":"2024-12"}]}`)
		default:
			http.NotFound(w, r)
		}
	})

	res, err := c.ListHealthCheckReports(context.Background(), "2025-01")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"employee_code":"E1"}]`, string(res.Data))

	periods, err := c.ListPeriods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []entity.Period{{RoundYearMonth: "2025-01", Count: 3}, {RoundYearMonth: "2024-12"}}, periods)

	_, err = c.GetHealthCheckReport(context.Background(), "missing/1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestRegisterRefusal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register", r.URL.Path)
		var reg entity.Registration
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reg))
		if reg.Username == "taken" {
			_, _ = io.WriteString(w, `{"success":false,"data":"ชื่อผู้ใช้ซ้ำ"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":1}}`)
	})

	_, err := c.Register(context.Background(), entity.Registration{Username: "taken"})
	assert.Equal(t, "ชื่อผู้ใช้ซ้ำ", MessageOr(err, "fallback"))

	res, err := c.Register(context.Background(), entity.Registration{Username: "fresh"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(res.Data))
}

func TestTransportFailureIsNotAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	c := NewClient(srv.URL, 0)

	_, err := c.CreateUser(context.Background(), entity.NewUser{Username: "a"})
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Equal(t, "เกิดข้อผิดพลาด", MessageOr(err, "เกิดข้อผิดพลาด"))
}
