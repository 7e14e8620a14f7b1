package nexi

import (
	"bytes"
	"html/template"

	"golang.org/x/text/language"
)

var formTemplate = template.Must(template.New("nexi-form").Parse(`<form id="nexi-payment-form" method="POST" action="{{.Action}}">
{{- range .Fields}}
  <input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{- end}}
  <noscript><button type="submit">Weiter zur Zahlung</button></noscript>
</form>
<script>document.getElementById("nexi-payment-form").submit();</script>`))

func renderForm(form *HostedPaymentForm) (string, error) {
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, form); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LanguageID maps a BCP 47 tag (e.g. "de-AT") onto the gateway's page languages.
func LanguageID(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return "ENG"
	}
	base, _ := tag.Base()
	switch base.String() {
	case "it":
		return "ITA"
	case "de":
		return "GER"
	case "fr":
		return "FRA"
	case "es":
		return "SPA"
	default:
		return "ENG"
	}
}
