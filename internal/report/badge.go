package report

import (
	"os"
	"text/template"

	"github.com/pkg/errors"
)

// Badge colors per status.
const (
	colorPassing = "#4c1"
	colorFailing = "#e05d44"
	colorUnknown = "#9f9f9f"
)

var badgeTemplate = template.Must(template.New("badge").Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="20" role="img" aria-label="build: {{.Message}}">
  <linearGradient id="s" x2="0" y2="100%">
    <stop offset="0" stop-color="#bbb" stop-opacity=".1"/>
    <stop offset="1" stop-opacity=".1"/>
  </linearGradient>
  <rect rx="3" width="{{.Width}}" height="20" fill="#555"/>
  <rect rx="3" x="37" width="{{.MsgWidth}}" height="20" fill="{{.Color}}"/>
  <rect rx="3" width="{{.Width}}" height="20" fill="url(#s)"/>
  <g fill="#fff" text-anchor="middle" font-family="DejaVu Sans,Verdana,Geneva,sans-serif" font-size="11">
    <text x="18" y="14">build</text>
    <text x="{{.MsgX}}" y="14">{{.Message}}</text>
  </g>
</svg>
`))

type badgeData struct {
	Message  string
	Color    string
	Width    int
	MsgWidth int
	MsgX     int
}

// badgeMessage maps a recorded run status to badge text and color.
func badgeMessage(status string) (string, string) {
	switch status {
	case "passed":
		return "passing", colorPassing
	case "failed":
		return "failing", colorFailing
	default:
		return "unknown", colorUnknown
	}
}

// WriteBadge renders the status badge for the given run status to path.
func WriteBadge(path, status string) error {
	msg, color := badgeMessage(status)
	// rough 7px per glyph for the message box
	msgWidth := 7*len(msg) + 10
	d := badgeData{
		Message:  msg,
		Color:    color,
		Width:    37 + msgWidth,
		MsgWidth: msgWidth,
		MsgX:     37 + msgWidth/2,
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create badge file")
	}
	defer func() { _ = f.Close() }()
	if err := badgeTemplate.Execute(f, d); err != nil {
		return errors.Wrap(err, "render badge")
	}
	return nil
}
