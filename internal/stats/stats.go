package stats

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const (
	NumActiveClients = "NumActiveClients"
	NumOnlineUsers   = "NumOnlineUsers"
	NumActiveRooms   = "NumActiveRooms"
	NumMessagesSent  = "NumMessagesSent"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

// StatsUpdater applies counter updates on a single goroutine and serves the
// counters as JSON. Updates never block the caller: they are dropped when
// the queue is full or the updater has stopped.
type StatsUpdater struct {
	log      zerolog.Logger
	vars     *expvar.Map
	updates  chan metricUpdate
	done     chan struct{}
	stopOnce sync.Once
}

type metricUpdate struct {
	name  string
	delta int64
}

// NewStatsUpdater creates a stats updater and serves its counters on
// GET /debug/vars. The map is not published to the global expvar registry,
// so several updaters can coexist in one process.
func NewStatsUpdater(mux *http.ServeMux, logger zerolog.Logger) *StatsUpdater {
	su := &StatsUpdater{
		log:     logger,
		vars:    new(expvar.Map).Init(),
		updates: make(chan metricUpdate, 512),
		done:    make(chan struct{}),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))

	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))

	return su
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	data := make(map[string]json.RawMessage)
	su.vars.Do(func(kv expvar.KeyValue) {
		data[kv.Key] = json.RawMessage(kv.Value.String())
	})

	if err := json.NewEncoder(w).Encode(data); err != nil {
		su.log.Error().Err(err).Msg("encode stats")
	}
}

func (su *StatsUpdater) updateMetrics() {
	for {
		select {
		case u := <-su.updates:
			metric, ok := su.vars.Get(u.name).(*expvar.Int)
			if !ok {
				su.log.Warn().Str("metric", u.name).Msg("update for unregistered metric")
				continue
			}
			metric.Add(u.delta)
		case <-su.done:
			return
		}
	}
}

func (su *StatsUpdater) queue(name string, delta int64) {
	select {
	case <-su.done:
		return
	default:
	}

	select {
	case su.updates <- metricUpdate{name: name, delta: delta}:
	default:
		su.log.Warn().Str("metric", name).Msg("stats queue full, dropping update")
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.queue(name, 1)
}

func (su *StatsUpdater) Decr(name string) {
	su.queue(name, -1)
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, new(expvar.Int))
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

func (su *StatsUpdater) Stop() {
	su.stopOnce.Do(func() { close(su.done) })
}
