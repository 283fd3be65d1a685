package adapter

import (
	"fmt"
	"strconv"

	"github.com/noah-isme/hcm-campaign-api/internal/models"
	"github.com/noah-isme/hcm-campaign-api/pkg/export"
)

// PDFRenderer renders campaign summaries for download.
type PDFRenderer struct {
	exporter *export.PDFExporter
}

// NewPDFRenderer constructs the renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{exporter: export.NewPDFExporter()}
}

// RenderCampaignSummary produces a one-page summary of the campaign and its
// assignment roster.
func (r *PDFRenderer) RenderCampaignSummary(campaign models.CampaignDetail, stats models.CampaignStats, assignments []models.AssignmentDetail) ([]byte, error) {
	summary := export.Dataset{
		Headers: []string{"Field", "Value"},
		Rows: []map[string]string{
			{"Field": "Family", "Value": string(campaign.Family)},
			{"Field": "Template", "Value": campaign.TemplateName},
			{"Field": "Status", "Value": string(campaign.Status)},
			{"Field": "Start", "Value": campaign.StartDate.Format("2006-01-02")},
			{"Field": "End", "Value": campaign.EndDate.Format("2006-01-02")},
			{"Field": "Assignments", "Value": strconv.Itoa(stats.TotalAssignments)},
			{"Field": "Completion", "Value": fmt.Sprintf("%.1f%%", stats.CompletionRate)},
		},
	}
	page, err := r.exporter.Render(summary, campaign.Name)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return page, nil
	}

	roster := export.Dataset{
		Headers: []string{"Employee", "Email", "Status"},
	}
	for _, a := range assignments {
		roster.Rows = append(roster.Rows, map[string]string{
			"Employee": a.EmployeeName,
			"Email":    a.EmployeeEmail,
			"Status":   string(a.Status),
		})
	}
	return r.exporter.RenderMulti([]export.Section{
		{Title: campaign.Name, Data: summary},
		{Title: "Assignments", Data: roster},
	})
}
