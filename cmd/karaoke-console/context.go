package main

import (
	"strings"
	"sync"

	"github.com/svidal-nlive/karaoke-console/internal/api"
	"github.com/svidal-nlive/karaoke-console/internal/config"
	"github.com/svidal-nlive/karaoke-console/internal/services/actions"
	"github.com/svidal-nlive/karaoke-console/internal/services/livesync"
	"github.com/svidal-nlive/karaoke-console/internal/services/metrics"
	"github.com/svidal-nlive/karaoke-console/internal/services/records"
	"github.com/svidal-nlive/karaoke-console/internal/services/settings"
	"github.com/svidal-nlive/karaoke-console/internal/services/upload"
)

// commandContext lazily builds the shared configuration and services the
// commands run against. Construction happens once, on first use.
type commandContext struct {
	configFlag *string
	apiURLFlag *string

	once      sync.Once
	config    config.Config
	configErr error

	client     *api.Client
	adapter    *records.Adapter
	aggregator *metrics.Aggregator
	bus        *livesync.Bus
	uploads    *upload.Manager
	dispatcher *actions.Dispatcher
	settings   *settings.Store
}

func newCommandContext(configFlag, apiURLFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, apiURLFlag: apiURLFlag}
}

func (c *commandContext) ensure() error {
	c.once.Do(func() {
		path := ""
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.apiURLFlag != nil && strings.TrimSpace(*c.apiURLFlag) != "" {
			cfg.APIURL = strings.TrimSpace(*c.apiURLFlag)
			if err := cfg.Validate(); err != nil {
				c.configErr = err
				return
			}
		}
		c.config = cfg

		c.client = api.NewClient(cfg.APIURL, cfg.RequestTimeout())
		c.adapter = records.NewAdapter(c.client)
		c.aggregator = metrics.NewAggregator(c.client)
		c.bus = livesync.NewBus()
		c.uploads = upload.NewManager(c.client, c.bus)
		c.dispatcher = actions.NewDispatcher(c.client, c.adapter, c.bus)
		c.settings = settings.NewStore(c.client)
	})
	return c.configErr
}
