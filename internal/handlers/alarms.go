package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"alarm-relay/internal/common/errors"
	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/dispatcher"
	"alarm-relay/internal/models"
)

const maxAlarmBody = 64 << 10

// HandleAlarm accepts one decoded alarm and dispatches it in the background.
// The response is sent before any adapter runs.
func (h *Handlers) HandleAlarm(w http.ResponseWriter, r *http.Request) {
	event, err := h.decodeAlarm(w, r)
	if err != nil {
		h.logger.Warn("Rejected alarm", logging.Err(err))
		h.sendJSONError(w, http.StatusBadRequest, message(err))
		return
	}

	eventID := uuid.NewString()
	ctx := dispatcher.WithEventID(h.background, eventID)

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		h.dispatcher.Dispatch(ctx, event)
	}()

	h.sendJSONResponse(w, http.StatusAccepted, map[string]interface{}{
		"status":   "accepted",
		"event_id": eventID,
		"type":     event.Kind,
		"adapters": h.dispatcher.Loaded(),
	})
}

func (h *Handlers) decodeAlarm(w http.ResponseWriter, r *http.Request) (models.AlarmEvent, error) {
	var event models.AlarmEvent

	r.Body = http.MaxBytesReader(w, r.Body, maxAlarmBody)
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		return event, errors.ValidationError("invalid JSON body: " + err.Error())
	}

	kind, err := models.ParseKind(string(event.Kind))
	if err != nil {
		return event, err
	}
	event.Kind = kind

	if err := h.validator.ValidateStruct(event); err != nil {
		return event, errors.ValidationError(err.Error())
	}
	if err := event.Validate(); err != nil {
		return event, err
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return event, nil
}

func message(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
