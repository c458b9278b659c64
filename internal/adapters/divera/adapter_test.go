package divera

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alarm-relay/internal/adapters"
	commonhttp "alarm-relay/internal/common/http"
	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/config"
	"alarm-relay/internal/models"
	"alarm-relay/internal/testutil"
)

type provider struct {
	mu       sync.Mutex
	hits     map[string]int
	queries  map[string]url.Values
	message  map[string]interface{}
	status   map[string]int
	lastBody string
	server   *httptest.Server
}

func newProvider(t *testing.T) *provider {
	t.Helper()
	p := &provider{
		hits:     map[string]int{},
		queries:  map[string]url.Values{},
		status:   map[string]int{},
		lastBody: `{"message_channel_id": 4711}`,
	}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.hits[r.URL.Path]++
		p.queries[r.URL.Path] = r.URL.Query()
		if r.URL.Path == "/api/v2/messages" {
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &p.message)
		}
		if status, ok := p.status[r.URL.Path]; ok {
			w.WriteHeader(status)
			return
		}
		if r.URL.Path == "/api/last-alarm" {
			w.Write([]byte(p.lastBody))
			return
		}
		w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(p.server.Close)
	return p
}

func (p *provider) count(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits[path]
}

func (p *provider) query(path string) url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries[path]
}

func (p *provider) posted() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.message
}

func (p *provider) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.hits {
		n += c
	}
	return n
}

func (p *provider) settings(overrides map[string]string) map[string]map[string]string {
	values := map[string]string{
		"base_url":         p.server.URL,
		"accesskey":        "alarm-key",
		"messageaccesskey": "message-key",
		"fms_text":         "{fms} status {status}",
		"fms_title":        "FMS {fms}",
		"fms_prio":         "false",
		"fms_vehicle":      "{fms}",
		"zvei_text":        "ZVEI {zvei}",
		"zvei_title":       "Alarm {zvei}",
		"zvei_prio":        "true",
		"zvei_id":          "{zvei}",
		"poc_text":         "{msg}",
		"poc_title":        "{msg}",
		"poc_ric":          "{ric}{functionChar}",
		"SubA":             "true",
		"SubB":             "true",
		"SubC":             "false",
		"SubD":             "false",
	}
	for k, v := range overrides {
		if v == "-" {
			delete(values, k)
			continue
		}
		values[k] = v
	}
	return map[string]map[string]string{
		Name:  values,
		"POC": {"netIdent_ric": "0000001, 0000002"},
	}
}

type fixture struct {
	adapter *Adapter
	logger  *testutil.RecordingLogger
	rt      *testutil.CountingRoundTripper
}

func newFixture(t *testing.T, sections map[string]map[string]string) fixture {
	t.Helper()
	logger := testutil.NewRecordingLogger()
	rt := testutil.NewCountingRoundTripper()
	a, err := New(adapters.Dependencies{
		Settings:  config.NewSettings(sections, logger),
		Transport: commonhttp.NewTransport(commonhttp.NewHTTPClient(commonhttp.WithTransport(rt)), commonhttp.WithLogger(logger)),
		Logger:    logger,
	})
	require.NoError(t, err)
	require.NoError(t, a.OnLoad(context.Background()))
	return fixture{adapter: a.(*Adapter), logger: logger, rt: rt}
}

func (f fixture) run(event models.AlarmEvent) {
	f.adapter.Run(context.Background(), event.Kind, event.Frequency, event)
}

func TestRun_POCFullChain(t *testing.T) {
	p := newProvider(t)
	f := newFixture(t, p.settings(map[string]string{"poc_title": "A12SRS (12:34) {msg}"}))

	f.run(testutil.POCEvent("1234567", "2", "Fire Main St"))

	assert.Equal(t, 1, p.count("/api/alarm"))
	assert.Equal(t, 1, p.count("/api/last-alarm"))
	assert.Equal(t, 1, p.count("/api/v2/messages"))

	q := p.query("/api/alarm")
	assert.Equal(t, "alarm-key", q.Get("accesskey"))
	assert.Equal(t, "Fire Main St", q.Get("title"))
	assert.Equal(t, "Fire Main St", q.Get("text"))
	assert.Equal(t, "1234567b", q.Get("ric"))
	assert.Equal(t, "true", q.Get("priority"))

	assert.Equal(t, "alarm-key", p.query("/api/last-alarm").Get("accesskey"))
	assert.Equal(t, "message-key", p.query("/api/v2/messages").Get("accesskey"))

	msg, ok := p.posted()["Message"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(4711), msg["message_channel_id"])
	assert.Equal(t, float64(0), msg["parent_id"])
	assert.Equal(t, "Fire Main St", msg["text"])
	assert.Equal(t, "Binary", msg["uploads"])

	assert.Empty(t, f.logger.AtLevel(logging.WarnLevel))
	assert.Empty(t, f.logger.AtLevel(logging.ErrorLevel))
	assert.Equal(t, 3, f.rt.Requests())
	assert.Equal(t, 3, f.rt.Closes())
	assert.True(t, f.rt.Balanced())
}

func TestRun_FMS(t *testing.T) {
	p := newProvider(t)
	f := newFixture(t, p.settings(nil))

	f.run(testutil.FMSEvent())

	require.Equal(t, 1, p.count("/api/fms"))
	q := p.query("/api/fms")
	assert.Equal(t, "93377141", q.Get("vehicle_ric"))
	assert.Equal(t, "3", q.Get("status_id"))
	assert.Equal(t, "vehicle->station", q.Get("status_note"))
	assert.Equal(t, "false", q.Get("priority"))
	assert.Equal(t, "FMS 93377141", q.Get("title"))
	assert.Equal(t, 1, p.count("/api/v2/messages"))
}

func TestRun_ZVEI(t *testing.T) {
	p := newProvider(t)
	f := newFixture(t, p.settings(nil))

	f.run(testutil.ZVEIEvent())

	require.Equal(t, 1, p.count("/api/alarm"))
	assert.Equal(t, "25832", p.query("/api/alarm").Get("ric"))
	assert.Equal(t, "Alarm 25832", p.query("/api/alarm").Get("title"))
}

func TestRun_POCWithoutRIC(t *testing.T) {
	p := newProvider(t)
	f := newFixture(t, p.settings(map[string]string{"poc_ric": ""}))

	f.run(testutil.POCEvent("1234567", "1", "Fire"))

	require.Equal(t, 1, p.count("/api/alarm"))
	_, hasRIC := p.query("/api/alarm")["ric"]
	assert.False(t, hasRIC)
	assert.True(t, f.logger.Has(logging.InfoLevel, "No RIC set!"))
	assert.Equal(t, 1, p.count("/api/v2/messages"))
}

func TestRun_EmptyVehicleStillDelivers(t *testing.T) {
	p := newProvider(t)
	f := newFixture(t, p.settings(map[string]string{"fms_vehicle": "{zvei}"}))

	f.run(testutil.FMSEvent())

	assert.True(t, f.logger.Has(logging.InfoLevel, "No Vehicle set!"))
	assert.Equal(t, 1, p.count("/api/fms"))
}

func TestRun_InvalidPriorityAbortsBeforeNetwork(t *testing.T) {
	p := newProvider(t)
	f := newFixture(t, p.settings(map[string]string{"fms_prio": "maybe"}))

	f.run(testutil.FMSEvent())

	assert.Zero(t, p.total())
	assert.Zero(t, f.rt.Requests())
	assert.True(t, f.logger.Has(logging.InfoLevel, "No priority configured"))
}

func TestRun_POCUnknownFunctionHasNoPriority(t *testing.T) {
	p := newProvider(t)
	f := newFixture(t, p.settings(nil))

	f.run(testutil.POCEvent("1234567", "7", "Fire"))

	assert.Zero(t, p.total())
	assert.True(t, f.logger.Has(logging.InfoLevel, "No priority configured"))
}

func TestRun_POCPriorityBySubAddress(t *testing.T) {
	p := newProvider(t)
	f := newFixture(t, p.settings(nil))

	f.run(testutil.POCEvent("1234567", "3", "Fire"))
	assert.Equal(t, "false", p.query("/api/alarm").Get("priority"))
}

func TestRun_NetIdentRICIsSkipped(t *testing.T) {
	p := newProvider(t)
	f := newFixture(t, p.settings(nil))

	f.run(testutil.POCEvent("0000002", "1", "net ident"))

	assert.Zero(t, p.total())
	assert.True(t, f.logger.Has(logging.InfoLevel, "net ident"))
}

func TestRun_StageAFailureSkipsLaterStages(t *testing.T) {
	p := newProvider(t)
	p.status["/api/alarm"] = http.StatusUnauthorized
	f := newFixture(t, p.settings(nil))

	f.run(testutil.POCEvent("1234567", "1", "Fire"))

	assert.Equal(t, 1, p.count("/api/alarm"))
	assert.Zero(t, p.count("/api/last-alarm"))
	assert.Zero(t, p.count("/api/v2/messages"))

	entry, ok := f.logger.Find(logging.WarnLevel, "divera response: 401 - Unauthorized")
	require.True(t, ok)
	assert.Equal(t, stageAlarm, entry.Fields["stage"])
	assert.True(t, f.rt.Balanced())
}

func TestRun_StageAConnectionFailure(t *testing.T) {
	p := newProvider(t)
	settings := p.settings(nil)
	p.server.Close()
	f := newFixture(t, settings)

	f.run(testutil.POCEvent("1234567", "1", "Fire"))

	assert.True(t, f.logger.Has(logging.ErrorLevel, "cannot reach provider"))
	assert.True(t, f.logger.Has(logging.DebugLevel, "provider request failed"))
	assert.Equal(t, 1, f.rt.Requests())
}

func TestRun_StageBRejectedSkipsStageC(t *testing.T) {
	p := newProvider(t)
	p.status["/api/last-alarm"] = http.StatusNotFound
	f := newFixture(t, p.settings(nil))

	f.run(testutil.POCEvent("1234567", "2", "Fire"))

	assert.Equal(t, 1, p.count("/api/alarm"))
	assert.Equal(t, 1, p.count("/api/last-alarm"))
	assert.Zero(t, p.count("/api/v2/messages"))

	entry, ok := f.logger.Find(logging.WarnLevel, "divera response: 404 - Not Found")
	require.True(t, ok)
	assert.Equal(t, stageLastAlarm, entry.Fields["stage"])
	assert.Equal(t, 2, f.rt.Closes())
	assert.True(t, f.rt.Balanced())
}

func TestRun_StageBMalformedSkipsStageC(t *testing.T) {
	for _, body := range []string{`not json`, `{"other": 1}`, `{"message_channel_id": null}`, `{"message_channel_id": ""}`} {
		t.Run(body, func(t *testing.T) {
			p := newProvider(t)
			p.lastBody = body
			f := newFixture(t, p.settings(nil))

			f.run(testutil.POCEvent("1234567", "2", "Fire"))

			assert.Equal(t, 1, p.count("/api/last-alarm"))
			assert.Zero(t, p.count("/api/v2/messages"))
			assert.True(t, f.logger.Has(logging.WarnLevel, "unexpected provider response"))
		})
	}
}

func TestRun_StageCRejected(t *testing.T) {
	p := newProvider(t)
	p.status["/api/v2/messages"] = http.StatusBadRequest
	f := newFixture(t, p.settings(nil))

	f.run(testutil.POCEvent("1234567", "2", "Fire"))

	assert.Equal(t, 1, p.count("/api/v2/messages"))
	entry, ok := f.logger.Find(logging.WarnLevel, "divera response: 400 - Bad Request")
	require.True(t, ok)
	assert.Equal(t, stageMessage, entry.Fields["stage"])
	assert.Equal(t, 3, f.rt.Closes())
}

func TestRun_MissingConfigMakesNoCalls(t *testing.T) {
	for _, key := range []string{"accesskey", "messageaccesskey", "poc_text", "poc_title", "poc_ric", "SubB"} {
		t.Run(key, func(t *testing.T) {
			p := newProvider(t)
			f := newFixture(t, p.settings(map[string]string{key: "-"}))

			f.run(testutil.POCEvent("1234567", "2", "Fire"))

			assert.Zero(t, p.total())
			entry, ok := f.logger.Find(logging.WarnLevel, "missing configuration")
			require.True(t, ok)
			assert.Equal(t, key, entry.Fields["key"])
		})
	}

	t.Run("no section", func(t *testing.T) {
		f := newFixture(t, nil)
		f.run(testutil.FMSEvent())
		assert.Zero(t, f.rt.Requests())
		assert.True(t, f.logger.Has(logging.WarnLevel, "No configuration section"))
	})
}

func TestRun_ConcurrentEvents(t *testing.T) {
	p := newProvider(t)
	f := newFixture(t, p.settings(nil))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.run(testutil.POCEvent("1234567", "1", "Fire"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, p.count("/api/v2/messages"))
	assert.True(t, f.rt.Balanced())
}

func TestStripTitleNoise(t *testing.T) {
	assert.Equal(t, "Brand", stripTitleNoise("A12SRS (12:34) Brand"))
	assert.Equal(t, "Brand", stripTitleNoise("  A1SRS(01:02)Brand"))
	assert.Equal(t, "Brand A12SRS (12:34)", stripTitleNoise("Brand A12SRS (12:34)"))
	assert.Equal(t, "B A3SRS (11:11) x", stripTitleNoise("A2SRS (10:10) B A3SRS (11:11) x"))
}

func TestParseChannelID(t *testing.T) {
	id, err := parseChannelID([]byte(`{"message_channel_id": 12345678901234}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345678901234"), id)

	id, err = parseChannelID([]byte(`{"message_channel_id": "abc"}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
}

func TestPriorityKey(t *testing.T) {
	assert.Equal(t, "fms_prio", priorityKey(models.KindFMS, ""))
	assert.Equal(t, "zvei_prio", priorityKey(models.KindZVEI, ""))
	assert.Equal(t, "SubA", priorityKey(models.KindPOC, "1"))
	assert.Equal(t, "SubD", priorityKey(models.KindPOC, "4"))
	assert.Equal(t, "", priorityKey(models.KindPOC, "5"))
	assert.Equal(t, "", priorityKey(models.KindPOC, ""))
}
