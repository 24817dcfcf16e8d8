package gemini

import (
	"bytes"
	"fmt"
	"text/template"
)

const defaultPrompt = `You are reading a scanned vehicle registration document ({{.FileName}}, {{.MIMEType}}).
Extract the following fields and answer with a single JSON object and nothing else:
  plate_number, vin, make, model, year (integer, 0 if unknown), owner_name,
  expiry_date (YYYY-MM-DD if present), document_type, confidence (0 to 1).
Use an empty string for any text field that is not visible in the document.`

var promptTemplate = template.Must(template.New("registration").Parse(defaultPrompt))

// buildPrompt renders the instruction prompt for one document.
func buildPrompt(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
