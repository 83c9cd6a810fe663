package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dbm "github.com/tendermint/tm-db"

	"github.com/tonlight/tonlight/config"
	"github.com/tonlight/tonlight/libs/log"
	"github.com/tonlight/tonlight/light"
	"github.com/tonlight/tonlight/light/provider"
	"github.com/tonlight/tonlight/light/provider/fixture"
	"github.com/tonlight/tonlight/light/provider/toncenter"
	"github.com/tonlight/tonlight/light/store"
	dbs "github.com/tonlight/tonlight/light/store/db"
)

// sources are the providers configured in the [light] section.
type sources struct {
	fixtures *fixture.Fixtures
	blocks   provider.BlockSource
	sigs     provider.SignatureSource
	// remote is nil unless signatures come from toncenter.
	remote *toncenter.Client
}

func newSources(conf *config.Config, logger log.Logger) (*sources, error) {
	f, err := fixture.Load(conf.Light.FixturesPath())
	if err != nil {
		return nil, fmt.Errorf("loading fixtures: %w", err)
	}
	src := fixture.NewSource(f)

	s := &sources{fixtures: f, blocks: src, sigs: src}

	// block ids are resolved by the endpoint the signatures come from
	if conf.Light.SignatureSource == config.SignatureSourceToncenter {
		s.remote = toncenter.New(conf.Light.ToncenterEndpoint,
			toncenter.APIKey(conf.Light.ToncenterAPIKey),
			toncenter.Timeout(conf.Light.RequestTimeout),
			toncenter.Logger(logger.With("module", "toncenter")),
		)
		s.sigs = s.remote
		s.blocks = provider.NewIndexed(src, s.remote)
	}

	if conf.Light.CacheSize > 0 {
		cached, err := provider.NewCached(s.blocks, conf.Light.CacheSize)
		if err != nil {
			return nil, err
		}
		s.blocks = cached
	}
	return s, nil
}

// newClient builds a verifier over s.
func (s *sources) newClient(conf *config.Config, logger log.Logger, metrics *light.Metrics) *light.Client {
	return light.NewClient(s.blocks, s.sigs,
		light.Logger(logger.With("module", "light")),
		light.WithMetrics(metrics),
		light.Prefetch(conf.Light.Prefetch),
	)
}

const trustedStoreName = "light"

// openStore opens the database holding verified key blocks.
func openStore(conf *config.Config) (store.Store, func() error, error) {
	db, err := dbm.NewDB(trustedStoreName, dbm.BackendType(conf.DBBackend), conf.DBDir())
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s database: %w", trustedStoreName, err)
	}
	return dbs.New(db), db.Close, nil
}

// startMetrics serves Prometheus metrics when they are enabled. The returned
// function stops the server.
func startMetrics(conf *config.Config, logger log.Logger) (*light.Metrics, func(), error) {
	if !conf.Instrumentation.Prometheus {
		return light.NopMetrics(), func() {}, nil
	}

	ln, err := net.Listen("tcp", conf.Instrumentation.PrometheusListenAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening for prometheus: %w", err)
	}
	srv := &http.Server{
		Handler: promhttp.InstrumentMetricHandler(
			stdprometheus.DefaultRegisterer, promhttp.HandlerFor(
				stdprometheus.DefaultGatherer,
				promhttp.HandlerOpts{MaxRequestsInFlight: 3},
			),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("prometheus HTTP server ListenAndServe", "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("prometheus HTTP server Shutdown", "err", err)
		}
	}
	return light.PrometheusMetrics(conf.Instrumentation.Namespace), stop, nil
}
