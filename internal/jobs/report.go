package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seantiz/asyncops/internal/model"
	"github.com/seantiz/asyncops/internal/process"
)

const ReportPayloadType = "Report"

// Report kinds.
const (
	ReportDaily   = "daily"
	ReportWeekly  = "weekly"
	ReportMonthly = "monthly"
)

var (
	ErrInvalidDateRange  = errors.New("end date is before start date")
	ErrUnknownReportType = errors.New("unknown report type")
)

// ReportPayload requests a report over [StartDate, EndDate].
type ReportPayload struct {
	model.PayloadBase
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	ReportType        string    `json:"report_type"`
	ReportDescription string    `json:"report_description,omitempty"`
	StepDelayMS       int64     `json:"step_delay_ms"`
}

// ReportProcessor simulates generating a report in stages.
type ReportProcessor struct {
	payload *ReportPayload
}

var reportStages = []struct {
	percent int
	message string
}{
	{0, "Collecting data"},
	{10, "Aggregating records"},
	{50, "Rendering report"},
	{90, "Publishing report"},
	{100, "Report ready"},
}

func (r *ReportProcessor) Execute(ctx context.Context, rt process.Runtime) error {
	p := r.payload
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: %s < %s", ErrInvalidDateRange,
			p.EndDate.Format(time.DateOnly), p.StartDate.Format(time.DateOnly))
	}
	kind := p.ReportType
	switch kind {
	case "":
		kind = ReportDaily
	case ReportDaily, ReportWeekly, ReportMonthly:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownReportType, kind)
	}

	for i, stage := range reportStages {
		if i > 0 {
			if err := sleep(ctx, time.Duration(p.StepDelayMS)*time.Millisecond); err != nil {
				return fmt.Errorf("report stage %q: %w", stage.message, err)
			}
		}
		if err := rt.PublishProgress(ctx, stage.message, stage.percent); err != nil {
			return err
		}
	}

	days := int(p.EndDate.Sub(p.StartDate).Hours()/24) + 1
	summary := fmt.Sprintf("%s report covering %d day(s) from %s to %s", kind, days,
		p.StartDate.Format(time.DateOnly), p.EndDate.Format(time.DateOnly))
	if p.ReportDescription != "" {
		summary += ": " + p.ReportDescription
	}
	rt.SetResult(summary, "report generated")
	return nil
}
