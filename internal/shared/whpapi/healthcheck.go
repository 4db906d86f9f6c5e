package whpapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bitfantasy/whp/internal/whp/entity"
)

const (
	pathReports      = "/healthcheck-report"
	pathUploadBatch  = "/healthcheck-report/upload-batch"
	pathConfirmBatch = "/healthcheck-report/confirm-batch"
	pathPeriods      = "/health_checks_grouped"
	pathRegister     = "/auth/register"
	pathUsers        = "/users"
)

// CreateHealthCheckReport stores one report.
func (c *Client) CreateHealthCheckReport(ctx context.Context, report entity.HealthCheckReport) (*Result, error) {
	return c.result(ctx, http.MethodPost, pathReports, report)
}

// GetHealthCheckReport returns the stored report with id.
func (c *Client) GetHealthCheckReport(ctx context.Context, id string) (*Result, error) {
	return c.result(ctx, http.MethodGet, pathReports+"/"+url.PathEscape(id), nil)
}

// ListHealthCheckReports lists reports, optionally for one reporting month
// (YYYY-MM).
func (c *Client) ListHealthCheckReports(ctx context.Context, roundYearMonth string) (*Result, error) {
	q := url.Values{}
	if roundYearMonth != "" {
		q.Set("round_year_month", roundYearMonth)
	}
	return c.result(ctx, http.MethodGet, withQuery(pathReports, q), nil)
}

// ListPeriods returns the reporting months that have data, newest first.
func (c *Client) ListPeriods(ctx context.Context) ([]entity.Period, error) {
	env, err := c.doJSON(ctx, http.MethodGet, pathPeriods, nil)
	if err != nil {
		return nil, err
	}
	var periods []entity.Period
	if err := decodeData(env, pathPeriods, &periods); err != nil {
		return nil, err
	}
	return periods, nil
}

// UploadBatch sends a spreadsheet for remote validation. A nil batch with a
// nil error means the remote side accepted the file but returned no batch.
func (c *Client) UploadBatch(ctx context.Context, fileName string, data []byte) (*entity.ImportBatch, error) {
	env, err := c.uploadMultipart(ctx, pathUploadBatch, fileName, data)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}
	var batch entity.ImportBatch
	if err := decodeData(env, pathUploadBatch, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// ConfirmBatch commits a validated batch.
func (c *Client) ConfirmBatch(ctx context.Context, batchUUID string) (*Result, error) {
	return c.result(ctx, http.MethodPost, pathConfirmBatch, map[string]string{"batch_uuid": batchUUID})
}

// Register creates an organization and its owner account. The endpoint
// reports refusals as success=false with the reason in data.
func (c *Client) Register(ctx context.Context, reg entity.Registration) (*Result, error) {
	env, err := c.doJSON(ctx, http.MethodPost, pathRegister, reg)
	if err != nil {
		return nil, err
	}
	if env.Success != nil && !*env.Success {
		var reason string
		_ = decodeData(env, pathRegister, &reason)
		if reason == "" {
			reason = env.errorMessage()
		}
		return nil, &APIError{StatusCode: http.StatusOK, Message: reason, Path: pathRegister}
	}
	return &Result{Message: env.Message, Data: env.Data}, nil
}

// CreateUser adds an account to the caller's organization.
func (c *Client) CreateUser(ctx context.Context, user entity.NewUser) (*Result, error) {
	return c.result(ctx, http.MethodPost, pathUsers, user)
}
