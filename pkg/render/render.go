// Package render produces downloadable report and contract documents.
// The shipped implementations are deliberately small: a single-column PDF
// writer and a minimal OOXML document. Richer layouts belong to an
// external converter service plugged in behind the same interfaces.
package render

import (
	"context"
	"errors"

	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

// ErrRendererUnavailable signals that the requested output format needs a
// converter that is not configured in this deployment.
var ErrRendererUnavailable = errors.New("document renderer unavailable")

// ReportRenderer turns an analysis result into a shareable PDF report.
type ReportRenderer interface {
	RenderReportPDF(ctx context.Context, report *models.ContractReport, result *models.AnalysisResult) ([]byte, error)
}

// ContractRenderer turns generated contract text into document files.
type ContractRenderer interface {
	RenderContractDocx(ctx context.Context, title, body string) ([]byte, error)
	RenderContractPDF(ctx context.Context, title, body string) ([]byte, error)
}
