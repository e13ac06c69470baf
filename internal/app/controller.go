// Package app wires the runtime together: window tracking feeds the
// state machine, the mode manager gates automation, and configuration
// changes are locked out while the core is active.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/autark/internal/config"
	"github.com/dshills/autark/internal/logging"
	"github.com/dshills/autark/internal/mode"
	"github.com/dshills/autark/internal/state"
	"github.com/dshills/autark/internal/window"
)

// Controller owns the component graph and the event flow between the
// tracker and the state machine.
type Controller struct {
	cfg     *config.AppConfig
	machine *state.Machine
	modes   *mode.Manager
	tracker *window.Tracker
	log     *logging.Logger

	mu           sync.Mutex
	configLocked bool
	running      bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// ControllerOption configures a Controller.
type ControllerOption func(*controllerDeps)

type controllerDeps struct {
	log         *logging.Logger
	enumerator  window.Enumerator
	resolver    window.ProcessResolver
	capturer    window.Capturer
	startAction state.ActionFunc
	stopAction  state.ActionFunc
}

// WithLogger sets the controller's logger; components derive theirs
// from it.
func WithLogger(log *logging.Logger) ControllerOption {
	return func(d *controllerDeps) { d.log = log }
}

// WithEnumerator overrides the platform window enumerator.
func WithEnumerator(e window.Enumerator) ControllerOption {
	return func(d *controllerDeps) { d.enumerator = e }
}

// WithResolver overrides the platform process resolver.
func WithResolver(r window.ProcessResolver) ControllerOption {
	return func(d *controllerDeps) { d.resolver = r }
}

// WithCapturer overrides the platform capturer.
func WithCapturer(c window.Capturer) ControllerOption {
	return func(d *controllerDeps) { d.capturer = c }
}

// WithStartAction sets the action run while the core starts.
func WithStartAction(fn state.ActionFunc) ControllerOption {
	return func(d *controllerDeps) { d.startAction = fn }
}

// WithStopAction sets the action run while the core stops.
func WithStopAction(fn state.ActionFunc) ControllerOption {
	return func(d *controllerDeps) { d.stopAction = fn }
}

// NewController builds the component graph from cfg. The config must
// already validate.
func NewController(cfg *config.AppConfig, opts ...ControllerOption) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("controller config: %w", err)
	}

	deps := controllerDeps{log: logging.Discard}
	for _, opt := range opts {
		opt(&deps)
	}

	store := state.NewStore(cfg.State.Path,
		state.WithStoreLogger(deps.log.WithComponent("store")))

	machineOpts := []state.MachineOption{
		state.WithLogger(deps.log.WithComponent("state")),
		state.WithStore(store, cfg.State.AutoSaveInterval()),
	}
	if deps.startAction != nil {
		machineOpts = append(machineOpts, state.WithStartAction(deps.startAction))
	}
	if deps.stopAction != nil {
		machineOpts = append(machineOpts, state.WithStopAction(deps.stopAction))
	}
	machine := state.NewMachine(machineOpts...)

	modes := mode.NewManager(
		mode.WithConfigs(cfg.Macro, cfg.Intelligent),
		mode.WithManagerLogger(deps.log.WithComponent("mode")))
	if err := modes.SwitchMode(cfg.Mode); err != nil {
		return nil, fmt.Errorf("initial mode: %w", err)
	}

	trackerOpts := []window.TrackerOption{
		window.WithTrackerLogger(deps.log.WithComponent("window")),
	}
	if deps.resolver != nil {
		trackerOpts = append(trackerOpts, window.WithResolver(deps.resolver))
	}
	if deps.capturer != nil {
		trackerOpts = append(trackerOpts, window.WithCapturer(deps.capturer))
	}
	tracker := window.NewTracker(cfg.Detection.DetectionConfig(), deps.enumerator, trackerOpts...)

	c := &Controller{
		cfg:     cfg,
		machine: machine,
		modes:   modes,
		tracker: tracker,
		log:     deps.log,
	}
	machine.AddObserver(c)
	return c, nil
}

// Machine returns the state machine.
func (c *Controller) Machine() *state.Machine { return c.machine }

// Modes returns the mode manager.
func (c *Controller) Modes() *mode.Manager { return c.modes }

// Tracker returns the window tracker.
func (c *Controller) Tracker() *window.Tracker { return c.tracker }

// Start restores persisted state, starts window detection, and begins
// forwarding tracker events into the state machine.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrControllerRunning
	}
	c.running = true
	c.stop = make(chan struct{})
	c.mu.Unlock()

	if err := c.machine.Initialize(); err != nil {
		c.abortStart()
		return fmt.Errorf("restore state: %w", err)
	}

	c.wg.Add(1)
	go c.forwardEvents(ctx, c.stop)

	if err := c.tracker.Start(); err != nil {
		c.abortStart()
		return fmt.Errorf("start tracker: %w", err)
	}

	c.log.Info("controller started")
	return nil
}

// abortStart unwinds a failed Start so a later attempt can succeed:
// the running flag is cleared, the stop channel is closed, and any
// launched forwarder is drained.
func (c *Controller) abortStart() {
	c.mu.Lock()
	c.running = false
	close(c.stop)
	c.mu.Unlock()
	c.wg.Wait()
}

// Shutdown stops detection, drains the event forwarder, and persists a
// final state snapshot.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrControllerStopped
	}
	c.running = false
	close(c.stop)
	c.mu.Unlock()

	c.tracker.Stop()
	c.wg.Wait()

	if err := c.machine.Shutdown(); err != nil {
		return fmt.Errorf("shutdown state machine: %w", err)
	}
	c.log.Info("controller stopped")
	return nil
}

// forwardEvents maps tracker events onto game state and honors
// auto-start.
func (c *Controller) forwardEvents(ctx context.Context, stop <-chan struct{}) {
	defer c.wg.Done()

	for {
		select {
		case <-stop:
			return
		case ev := <-c.tracker.Events():
			switch ev.Kind {
			case window.Found:
				c.machine.UpdateGameState(state.GameDetected)
				if c.autoStart() && c.machine.CanStartCore() {
					if err := c.StartAutomation(ctx); err != nil {
						c.log.Warn("auto start failed: %v", err)
					}
				}
			case window.Updated:
				c.machine.UpdateGameState(state.GameDetected)
			case window.Lost:
				c.machine.UpdateGameState(state.GameNotDetected)
			}
		}
	}
}

func (c *Controller) autoStart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Global.AutoStartOnDetection
}

// StartAutomation validates the active mode configuration and starts
// the core.
func (c *Controller) StartAutomation(ctx context.Context) error {
	if err := c.modes.ValidateCurrent(); err != nil {
		return fmt.Errorf("start automation: %w", err)
	}
	return c.machine.StartCore(ctx)
}

// StopAutomation stops the core.
func (c *Controller) StopAutomation(ctx context.Context) error {
	return c.machine.StopCore(ctx)
}

// ConfigLocked reports whether configuration changes are currently
// rejected.
func (c *Controller) ConfigLocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configLocked
}

// ApplyConfig installs a reloaded configuration. Rejected while the
// core is active.
func (c *Controller) ApplyConfig(cfg *config.AppConfig) error {
	if c.ConfigLocked() {
		return ErrConfigLocked
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}

	if err := c.modes.SetMacroConfig(cfg.Macro); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	if err := c.modes.SetIntelligentConfig(cfg.Intelligent); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	if err := c.modes.SwitchMode(cfg.Mode); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}

	c.mu.Lock()
	old := c.cfg
	c.cfg = cfg
	c.mu.Unlock()

	// Detection, state, and logging are wired at construction time.
	if old.Detection != cfg.Detection || old.State != cfg.State || old.Logging != cfg.Logging {
		c.log.Warn("detection, state, and logging changes require a restart to take effect")
	}

	c.log.Info("configuration applied")
	return nil
}

// OnProgramStateChanged tracks the config lock. It runs synchronously
// on every program state transition.
func (c *Controller) OnProgramStateChanged(_, new state.ProgramState) {
	c.mu.Lock()
	c.configLocked = new != state.ProgramStopped
	c.mu.Unlock()
}

// OnGameStateChanged is part of the observer interface.
func (c *Controller) OnGameStateChanged(old, new state.GameState) {
	c.log.Debug("game state: %s -> %s", old, new)
}
