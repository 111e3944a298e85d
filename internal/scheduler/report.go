package scheduler

import (
	"html/template"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/expanders360/vendor-match/internal/sla"
	"github.com/expanders360/vendor-match/internal/stats"
)

var refreshSummaryTmpl = template.Must(template.New("refresh_summary").Parse(`<h2>Daily Match Refresh Summary</h2>
<p>The scheduled match refresh finished with errors.</p>
<ul>
  <li>Projects processed: {{.Total}}</li>
  <li>Succeeded: {{.Succeeded}}</li>
  <li>Failed: {{.Failed}}</li>
</ul>
<p>Check the service logs for the failing project IDs.</p>
`))

var slaAlertTmpl = template.Must(template.New("sla_alert").Parse(`<h2>SLA Alert</h2>
<p>{{len .}} vendor(s) are past their response deadline.</p>
<table border="1" cellpadding="4" cellspacing="0">
  <tr><th>Vendor</th><th>Project</th><th>Deadline (UTC)</th><th>Hours Overdue</th></tr>
{{- range .}}
  <tr>
    <td>{{.Vendor.Name}}</td>
    <td>{{.Match.ProjectID}}</td>
    <td>{{.Deadline.Format "2006-01-02 15:04"}}</td>
    <td>{{.HoursOverdue}}</td>
  </tr>
{{- end}}
</table>
`))

var weeklyReportTmpl = template.Must(template.New("weekly_report").Parse(`<h2>Weekly Matching Statistics</h2>
<p>Window start: {{.WindowStart.Format "2006-01-02 15:04"}} UTC</p>
<ul>
  <li>Total matches: {{.TotalMatches}}</li>
  <li>Average score: {{printf "%.2f" .AverageScore}}</li>
  <li>Unique projects: {{.UniqueProjects}}</li>
  <li>Unique vendors: {{.UniqueVendors}}</li>
</ul>
{{- if .TopVendors}}
<h3>Top Vendors</h3>
<table border="1" cellpadding="4" cellspacing="0">
  <tr><th>Vendor</th><th>Average Score</th><th>Matches</th></tr>
{{- range .TopVendors}}
  <tr>
    <td>{{.VendorName}}</td>
    <td>{{printf "%.2f" .AverageScore}}</td>
    <td>{{.MatchCount}}</td>
  </tr>
{{- end}}
</table>
{{- else}}
<p>No matches were created this week.</p>
{{- end}}
`))

type refreshSummary struct {
	Total     int
	Succeeded int
	Failed    int
}

func renderRefreshSummary(total, succeeded, failed int) (string, error) {
	var b strings.Builder
	data := refreshSummary{Total: total, Succeeded: succeeded, Failed: failed}
	if err := refreshSummaryTmpl.Execute(&b, data); err != nil {
		return "", eris.Wrap(err, "scheduler: render refresh summary")
	}
	return b.String(), nil
}

func renderSLAAlert(expired []sla.Expired) (string, error) {
	var b strings.Builder
	if err := slaAlertTmpl.Execute(&b, expired); err != nil {
		return "", eris.Wrap(err, "scheduler: render SLA alert")
	}
	return b.String(), nil
}

func renderWeeklyReport(summary *stats.Summary) (string, error) {
	var b strings.Builder
	if err := weeklyReportTmpl.Execute(&b, summary); err != nil {
		return "", eris.Wrap(err, "scheduler: render weekly report")
	}
	return b.String(), nil
}
