package service

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"github.com/bitfantasy/whp/internal/shared/whpapi"
	"github.com/bitfantasy/whp/internal/whp/entity"
)

// ReportClient is the read side of the remote report API.
type ReportClient interface {
	GetHealthCheckReport(ctx context.Context, id string) (*whpapi.Result, error)
	ListHealthCheckReports(ctx context.Context, roundYearMonth string) (*whpapi.Result, error)
	ListPeriods(ctx context.Context) ([]entity.Period, error)
}

// ReportList is one page of the report listing with its period filter.
type ReportList struct {
	Period  string          `json:"period"`
	Periods []entity.Period `json:"periods"`
	Reports json.RawMessage `json:"reports"`
}

// ReportService proxies report reads to the remote API.
type ReportService struct {
	client ReportClient
}

func NewReportService(client ReportClient) *ReportService {
	return &ReportService{client: client}
}

// List returns the reports of period together with the available periods.
// An empty period selects the newest one; when that is also unknown the
// unfiltered list is returned.
func (s *ReportService) List(ctx context.Context, period string) (*ReportList, error) {
	if period == "" {
		periods, err := s.client.ListPeriods(ctx)
		if err != nil {
			return nil, err
		}
		if len(periods) > 0 {
			period = periods[0].RoundYearMonth
		}
		reports, err := s.client.ListHealthCheckReports(ctx, period)
		if err != nil {
			return nil, err
		}
		return &ReportList{Period: period, Periods: nonNilPeriods(periods), Reports: reports.Data}, nil
	}

	var (
		periods []entity.Period
		reports *whpapi.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		periods, err = s.client.ListPeriods(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		reports, err = s.client.ListHealthCheckReports(gctx, period)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ReportList{Period: period, Periods: nonNilPeriods(periods), Reports: reports.Data}, nil
}

// Get returns one report as sent by the remote API.
func (s *ReportService) Get(ctx context.Context, id string) (json.RawMessage, error) {
	res, err := s.client.GetHealthCheckReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// Periods returns the reporting months that have data.
func (s *ReportService) Periods(ctx context.Context) ([]entity.Period, error) {
	periods, err := s.client.ListPeriods(ctx)
	if err != nil {
		return nil, err
	}
	return nonNilPeriods(periods), nil
}

func nonNilPeriods(p []entity.Period) []entity.Period {
	if p == nil {
		return []entity.Period{}
	}
	return p
}
