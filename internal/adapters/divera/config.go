package divera

import (
	"strings"

	"alarm-relay/internal/adapters/base"
	"alarm-relay/internal/common/errors"
	"alarm-relay/internal/config"
	"alarm-relay/internal/models"
)

// DefaultBaseURL is the public Divera 24/7 API
const DefaultBaseURL = "https://www.divera247.com"

// Config holds the settings one run needs. Templates are still unrendered.
type Config struct {
	BaseURL          string
	AccessKey        string
	MessageAccessKey string

	Text     string
	Title    string
	Priority string
	// Target is the vehicle, ZVEI id or RIC template, depending on kind
	Target string
}

// kindKeys names the text, title and target keys for each kind
var kindKeys = map[models.Kind][3]string{
	models.KindFMS:  {"fms_text", "fms_title", "fms_vehicle"},
	models.KindZVEI: {"zvei_text", "zvei_title", "zvei_id"},
	models.KindPOC:  {"poc_text", "poc_title", "poc_ric"},
}

// priorityKey returns the settings key holding the priority for kind. POC
// priority depends on the RIC sub-address; an unknown function yields "".
func priorityKey(kind models.Kind, function string) string {
	switch kind {
	case models.KindFMS:
		return "fms_prio"
	case models.KindZVEI:
		return "zvei_prio"
	case models.KindPOC:
		switch models.FunctionLetter(function) {
		case "a", "b", "c", "d":
			return "Sub" + strings.ToUpper(models.FunctionLetter(function))
		}
	}
	return ""
}

func loadConfig(a *base.Adapter, kind models.Kind, event models.AlarmEvent) (*Config, error) {
	keys, ok := kindKeys[kind]
	if !ok {
		return nil, errors.UnsupportedKindError(string(kind))
	}

	values, err := a.Lookup("accesskey", "messageaccesskey", keys[0], keys[1], keys[2])
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseURL:          strings.TrimRight(a.Settings().GetDefault(a.Section(), "base_url", DefaultBaseURL), "/"),
		AccessKey:        values["accesskey"],
		MessageAccessKey: values["messageaccesskey"],
		Text:             values[keys[0]],
		Title:            values[keys[1]],
		Target:           values[keys[2]],
	}

	if key := priorityKey(kind, event.Function); key != "" {
		if cfg.Priority, err = a.Get(key); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// isNetIdent reports whether ric is one of the network identification RICs
// listed under POC.netIdent_ric
func isNetIdent(settings *config.Settings, ric string) bool {
	for _, item := range config.SplitList(settings.GetOptional("POC", "netIdent_ric")) {
		if item == ric {
			return true
		}
	}
	return false
}
