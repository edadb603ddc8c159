package app

import (
	"log/slog"

	"github.com/soocke/debuff-tracker-go/config"
	"github.com/soocke/debuff-tracker-go/domain/capture"
	"github.com/soocke/debuff-tracker-go/domain/match"
	"github.com/soocke/debuff-tracker-go/domain/monitor"
)

// Container assembles the detection services shared by the GUI and headless
// front ends.
type Container struct {
	Config      *config.Config
	ConfigPath  string
	Logger      *slog.Logger
	Source      *capture.ScreenSource
	Templates   *match.TemplateStore
	Bus         *monitor.Bus
	Coordinator *monitor.Coordinator
	Tracker     *Tracker
}

// BuildContainer constructs all components. No monitor is started yet.
func BuildContainer(cfg *config.Config, cfgPath string, logger *slog.Logger) (*Container, error) {
	store, err := match.NewTemplateStore(cfg.AssetsDir, cfg.TemplateCache)
	if err != nil {
		return nil, err
	}
	c := &Container{Config: cfg, ConfigPath: cfgPath, Logger: logger, Templates: store}
	c.Source = capture.NewScreenSource(logger)
	c.Bus = monitor.NewBus(cfg.EventBuffer, logger)
	c.Coordinator = monitor.NewCoordinator(monitor.Deps{
		Source:    c.Source,
		Matcher:   match.NCCMatcher{},
		Templates: store,
		Sink:      c.Bus,
		Logger:    logger,
	}, cfg.StopGrace())
	c.Tracker = NewTracker(cfg, cfgPath, c.Coordinator, c.Bus, logger)
	return c, nil
}
