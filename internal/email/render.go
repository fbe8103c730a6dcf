package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/shopspring/decimal"

	"simplyinvoicing/api/internal/models"
)

// Rendered is the output of a template.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

var funcs = map[string]interface{}{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2 Jan 2006")
	},
	"upper": strings.ToUpper,
}

// Render executes the template's subject and text parts with text/template
// and the HTML part with html/template.
func Render(tmpl *models.EmailTemplate, data interface{}) (*Rendered, error) {
	subject, err := execText(tmpl.TemplateID+":subject", tmpl.Subject, data)
	if err != nil {
		return nil, err
	}
	text, err := execText(tmpl.TemplateID+":text", tmpl.Text, data)
	if err != nil {
		return nil, err
	}
	out := &Rendered{Subject: strings.TrimSpace(subject), Text: text}

	if tmpl.HTML != "" {
		t, err := htmltemplate.New(tmpl.TemplateID + ":html").Funcs(htmltemplate.FuncMap(funcs)).Parse(tmpl.HTML)
		if err != nil {
			return nil, fmt.Errorf("failed to parse html template %s: %w", tmpl.TemplateID, err)
		}
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to render html template %s: %w", tmpl.TemplateID, err)
		}
		out.HTML = buf.String()
	}
	return out, nil
}

func execText(name, src string, data interface{}) (string, error) {
	t, err := texttemplate.New(name).Funcs(texttemplate.FuncMap(funcs)).Parse(src)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}
