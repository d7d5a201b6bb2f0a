package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
)

// ExportJSON renders the response as indented JSON.
func (f *Formatter) ExportJSON(response *Response) (string, error) {
	out, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export json: %w", err)
	}
	return string(out), nil
}

// ExportCSV renders the response's event rows as CSV. Responses without
// row data export as an empty string.
func (f *Formatter) ExportCSV(response *Response) (string, error) {
	if len(response.Data) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"timestamp", "event_type", "user", "host", "source_ip", "destination_ip", "outcome", "message"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("export csv: %w", err)
	}

	for _, event := range response.Data {
		row := []string{
			event.Timestamp, event.EventType, event.User, event.Host,
			event.SourceIP, event.DestinationIP, event.Outcome, event.Message,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("export csv: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("export csv: %w", err)
	}
	return buf.String(), nil
}

var htmlReportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>SIEM Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        table { border-collapse: collapse; width: 100%; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #4CAF50; color: white; }
        .summary { background-color: #f9f9f9; padding: 15px; margin: 20px 0; }
    </style>
</head>
<body>
    <h1>SIEM Investigation Report</h1>
    <div class="summary">
        <h2>Summary</h2>
        <pre>{{.Text}}</pre>
    </div>
{{if .Data}}    <h2>Details</h2>
    <table>
        <tr><th>Timestamp</th><th>Event</th><th>User</th><th>Host</th><th>Source IP</th><th>Destination IP</th><th>Outcome</th></tr>
{{range .Data}}        <tr><td>{{.Timestamp}}</td><td>{{.EventType}}</td><td>{{.User}}</td><td>{{.Host}}</td><td>{{.SourceIP}}</td><td>{{.DestinationIP}}</td><td>{{.Outcome}}</td></tr>
{{end}}    </table>
{{end}}</body>
</html>
`))

// ExportHTML renders the response as a standalone HTML document.
func (f *Formatter) ExportHTML(response *Response) (string, error) {
	var buf bytes.Buffer
	if err := htmlReportTemplate.Execute(&buf, response); err != nil {
		return "", fmt.Errorf("export html: %w", err)
	}
	return buf.String(), nil
}
