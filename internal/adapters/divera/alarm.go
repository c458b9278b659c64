package divera

import (
	"regexp"

	"alarm-relay/internal/common/templates"
	"alarm-relay/internal/models"
)

// titleNoise matches the leading "A123SRS (12:34)" marker some dispatch
// systems prepend to the alarm title
var titleNoise = regexp.MustCompile(`^\s*A\d+SRS\s*\(\d{2}:\d{2}\)\s*`)

// alarm is the rendered content of one delivery
type alarm struct {
	kind     models.Kind
	title    string
	text     string
	priority string
	target   string
	event    models.AlarmEvent
}

func buildAlarm(cfg *Config, kind models.Kind, event models.AlarmEvent) alarm {
	title := templates.Render(cfg.Title, event)
	return alarm{
		kind:     kind,
		title:    stripTitleNoise(title),
		text:     templates.Render(cfg.Text, event),
		priority: templates.Render(cfg.Priority, event),
		target:   templates.Render(cfg.Target, event),
		event:    event,
	}
}

func stripTitleNoise(title string) string {
	return titleNoise.ReplaceAllString(title, "")
}

func (a alarm) validPriority() bool {
	return a.priority == "true" || a.priority == "false"
}

// missingTarget returns the note logged when the kind's target rendered empty
func (a alarm) missingTarget() string {
	if a.target != "" {
		return ""
	}
	switch a.kind {
	case models.KindFMS:
		return "No Vehicle set!"
	case models.KindZVEI:
		return "No ZVEI_ID set!"
	default:
		return "No RIC set!"
	}
}

// endpoint returns the Stage A path
func (a alarm) endpoint() string {
	if a.kind == models.KindFMS {
		return "/api/fms"
	}
	return "/api/alarm"
}

// params returns the Stage A query, without the access key
func (a alarm) params() map[string]string {
	p := map[string]string{
		"title":    a.title,
		"text":     a.text,
		"priority": a.priority,
	}
	switch a.kind {
	case models.KindFMS:
		p["vehicle_ric"] = a.target
		p["status_id"] = a.event.Status
		p["status_note"] = a.event.DirectionText
	case models.KindZVEI:
		p["ric"] = a.target
	case models.KindPOC:
		if a.target != "" {
			p["ric"] = a.target
		}
	}
	return p
}
