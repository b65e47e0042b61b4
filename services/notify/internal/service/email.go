package service

import (
	"bytes"
	"html/template"
)

var emailTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #3b2a20;">
  <h2>{{.Title}}</h2>
  {{if .Name}}<p>Hi {{.Name}},</p>{{end}}
  <p>{{.Message}}</p>
  {{if .SenderName}}<p style="color: #8a7566;">{{.SenderName}}</p>{{end}}
</body>
</html>
`))

type emailData struct {
	Title      string
	Name       string
	Message    string
	SenderName string
}

func renderEmail(d emailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
