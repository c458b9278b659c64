package testutil

import (
	"time"

	"alarm-relay/internal/models"
)

// FixedTime is the timestamp used by the event fixtures
var FixedTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

// FMSEvent returns a vehicle status event
func FMSEvent() models.AlarmEvent {
	return models.AlarmEvent{
		Kind:          models.KindFMS,
		Frequency:     "85.075M",
		FMS:           "93377141",
		Status:        "3",
		Direction:     "0",
		DirectionText: "vehicle->station",
		TSI:           "III",
		Timestamp:     FixedTime,
	}
}

// ZVEIEvent returns a tone-sequence alarm
func ZVEIEvent() models.AlarmEvent {
	return models.AlarmEvent{
		Kind:      models.KindZVEI,
		Frequency: "85.075M",
		ZVEI:      "25832",
		Timestamp: FixedTime,
	}
}

// POCEvent returns a pager message for ric with the given function digit
func POCEvent(ric, function, msg string) models.AlarmEvent {
	return models.AlarmEvent{
		Kind:      models.KindPOC,
		Frequency: "173.255M",
		RIC:       ric,
		Function:  function,
		Msg:       msg,
		Bitrate:   "1200",
		Timestamp: FixedTime,
	}
}
