package reports

import (
	"bytes"
	"context"
	"fmt"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/overtime"
	"timesheet/internal/domain/variance"
)

type Directory interface {
	Employee(ctx context.Context, id string) (core.Employee, error)
}

type OvertimeReader interface {
	Get(ctx context.Context, actor auth.Actor, id string) (overtime.Request, error)
}

type VarianceReader interface {
	Team(ctx context.Context, actor auth.Actor, year, month int) ([]variance.EmployeeMonth, error)
	ByTask(ctx context.Context, actor auth.Actor, projectID string) (variance.ProjectVariance, error)
}

type Service struct {
	directory Directory
	overtime  OvertimeReader
	variance  VarianceReader
}

func NewService(directory Directory, ot OvertimeReader, vr VarianceReader) *Service {
	return &Service{directory: directory, overtime: ot, variance: vr}
}

// ClaimPDF renders an overtime claim and returns the file name to serve it as.
func (s *Service) ClaimPDF(ctx context.Context, actor auth.Actor, id string) ([]byte, string, error) {
	req, err := s.overtime.Get(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	emp, err := s.directory.Employee(ctx, req.EmployeeID)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if err := RenderClaimPDF(&buf, req, emp); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("overtime-%d-%s-%s.pdf", req.Year, req.Half, req.ID), nil
}

// VarianceWorkbook exports the actor's team variance for a month as XLSX.
func (s *Service) VarianceWorkbook(ctx context.Context, actor auth.Actor, year, month int, projectID string) ([]byte, string, error) {
	if err := auth.Require(actor, auth.ActReportsExport); err != nil {
		return nil, "", err
	}
	rows, err := s.variance.Team(ctx, actor, year, month)
	if err != nil {
		return nil, "", err
	}
	var project *variance.ProjectVariance
	if projectID != "" {
		pv, err := s.variance.ByTask(ctx, actor, projectID)
		if err != nil {
			return nil, "", err
		}
		project = &pv
	}
	buf, err := RenderVarianceWorkbook(rows, project, year, month)
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("variance-%04d-%02d.xlsx", year, month), nil
}
