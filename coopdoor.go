package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"coopdoor/alert"
	"coopdoor/automation"
	"coopdoor/buttons"
	"coopdoor/clock"
	"coopdoor/console"
	"coopdoor/door"
	"coopdoor/eventpipe"
	"coopdoor/hatch"
	"coopdoor/indicator"
	"coopdoor/keypad"
	"coopdoor/light"
	"coopdoor/logging"
	"coopdoor/mqtt"
	"coopdoor/rotary"
	"coopdoor/store"
	"coopdoor/sun"
	"coopdoor/telemetry"
	"coopdoor/tracker"
	"coopdoor/udp"
)

var myBuild string

// exitRestart is the exit status asking the supervisor to start us again.
const exitRestart = 3

// App holds the application state and dependencies.
type App struct {
	cfg *Config
	log *logging.Logger

	hatch     *hatch.Hatch
	medium    store.Medium
	motor     door.Motor
	encoder   rotary.Encoder
	tracker   *tracker.Tracker
	indicator indicator.Indicator
	telemetry *telemetry.Client

	mqtt    *mqtt.Client
	udp     *udp.Server
	console *console.Console
	pipe    *eventpipe.EventPipe
	keypad  *keypad.Keypad
	buttons *buttons.Panel

	ctx       context.Context
	cancel    context.CancelFunc
	restarted atomic.Bool
}

func main() {
	fmt.Printf("coopdoor build %s\n", myBuild)

	cfgfile := flag.String("cfg", "coopdoor.yml", "Config file")
	flag.Parse()

	cfg, err := loadConfig(*cfgfile)
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		cfg:    &cfg,
		log:    logging.New(cfg.Logging, myBuild),
		ctx:    ctx,
		cancel: cancel,
	}

	// Initialize indicator (LEDs, neopixels)
	app.indicator, err = indicator.New(cfg.Indicator)
	if err != nil {
		log.Fatalf("Init indicator: %v", err)
	}

	notifiers, err := app.openTransports()
	if err != nil {
		log.Fatalf("Init transports: %v", err)
	}

	deps := hatch.Deps{
		Notifier:  notifiers,
		Restarter: hatch.RestartFunc(app.restart),
		Signal:    app.indicator,
	}
	app.telemetry, err = telemetry.Connect(cfg.Telemetry, app.log)
	switch {
	case err == nil:
		deps.Recorder = app.telemetry
	case errors.Is(err, telemetry.ErrDisabled):
	default:
		app.log.Warn("telemetry unavailable", "error", err)
	}

	if err := app.buildHatch(deps); err != nil {
		log.Fatalf("Init door: %v", err)
	}

	var wg sync.WaitGroup
	app.serve(&wg)

	// Wait for shutdown signal or a restart command
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	fmt.Println("Shutting down...")
	cancel()
	app.shutdown()
	wg.Wait()
	fmt.Println("Shutdown complete")

	if app.restarted.Load() {
		os.Exit(exitRestart)
	}
}

// buildHatch loads the persistent settings and assembles the door. A
// failing medium yields a degraded hatch instead of an error.
func (app *App) buildHatch(deps hatch.Deps) error {
	cfg := app.cfg

	medium, err := store.OpenMedium(cfg.Store)
	if err != nil {
		app.hatch = hatch.NewDegraded(err, deps, app.log)
		return nil
	}
	app.medium = medium

	st := store.New(medium, app.log)
	bootstrapped, err := st.Load()
	if err != nil {
		app.hatch = hatch.NewDegraded(err, deps, app.log)
		return nil
	}
	if bootstrapped {
		app.log.Info("settings initialised", "id", st.Config().ID)
	}

	app.motor, err = door.New(cfg.Door)
	if err != nil {
		return fmt.Errorf("motor: %w", err)
	}
	app.encoder, err = rotary.New(cfg.Rotary)
	if err != nil {
		return fmt.Errorf("encoder: %w", err)
	}
	sensor, err := light.New(cfg.Light)
	if err != nil {
		return fmt.Errorf("light sensor: %w", err)
	}
	calc, err := sun.FromConfig(cfg.Sun)
	if err != nil {
		return fmt.Errorf("sun: %w", err)
	}

	app.tracker = tracker.New(st, app.motor, app.encoder, cfg.Tracker, app.log)
	eng := automation.New(st.Config(), app.tracker, light.NewMeter(sensor, cfg.Light),
		calc, clock.NewSystem(calc.Location()), cfg.Automation, app.log)

	app.hatch = hatch.New(st, app.tracker, eng, deps, cfg.Hatch, app.log)
	return nil
}

// openTransports opens every configured command transport and returns
// them as one notifier.
func (app *App) openTransports() (hatch.Notifiers, error) {
	cfg := app.cfg
	var ns hatch.Notifiers
	var err error

	app.mqtt, err = mqtt.New(cfg.MQTT, cfg.ClientID, mqtt.Handlers{
		OnConnect:    app.onMQTTConnect,
		OnDisconnect: app.onMQTTDisconnect,
		OnMessage:    app.onMQTTMessage,
	}, app.log)
	if err != nil {
		return nil, fmt.Errorf("mqtt: %w", err)
	}
	if app.mqtt.IsEnabled() {
		ns = append(ns, app.mqtt)
	}

	if cfg.UDP.Listen != "" {
		app.udp, err = udp.Listen(cfg.UDP, app.log)
		if err != nil {
			return nil, fmt.Errorf("udp: %w", err)
		}
		ns = append(ns, app.udp)
	}

	if cfg.Console.Device != "" {
		app.console, err = console.Open(cfg.Console, app.log)
		if err != nil {
			return nil, fmt.Errorf("console: %w", err)
		}
		ns = append(ns, app.console)
	}

	app.pipe, err = eventpipe.New(cfg.EventPipe, app.handleLocal, app.log)
	if err != nil {
		return nil, fmt.Errorf("event pipe: %w", err)
	}

	if mailer := alert.New(cfg.Alert, cfg.ClientID, app.log); mailer != nil {
		ns = append(ns, mailer)
	}

	app.keypad, err = keypad.Open(cfg.Keypad, app.log)
	if err != nil {
		return nil, fmt.Errorf("keypad: %w", err)
	}

	app.buttons, err = buttons.New(cfg.Buttons, app.log)
	if err != nil {
		return nil, fmt.Errorf("buttons: %w", err)
	}

	return ns, nil
}

// serve starts the scheduler and the transport listeners.
func (app *App) serve(wg *sync.WaitGroup) {
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(app.ctx); err != nil && !errors.Is(err, context.Canceled) {
				app.log.Error("stopped", "component", name, "error", err)
			}
		}()
	}

	run("hatch", app.hatch.Run)
	if app.udp != nil {
		run("udp", func(ctx context.Context) error { return app.udp.Serve(ctx, app.handle) })
	}
	if app.console != nil {
		// Pushed messages already reach the console, so only the status
		// line is written back.
		run("console", func(ctx context.Context) error {
			return app.console.Serve(ctx, func(pkt []byte) (string, string) {
				_, status := app.handle(pkt)
				return "", status
			})
		})
	}
	if app.keypad != nil {
		run("keypad", func(ctx context.Context) error { return app.keypad.Serve(ctx, app.handleLocal) })
	}
	if app.buttons != nil {
		run("buttons", func(ctx context.Context) error { return app.buttons.Serve(ctx, app.handleLocal) })
	}
	if app.pipe != nil {
		go app.pipe.Start()
	}

	go func() {
		if err := app.mqtt.Connect(); err != nil {
			app.log.Warn("MQTT connect failed", "error", err)
		}
	}()
}

// handle applies one command packet and returns the reply and status
// line for the requesting transport.
func (app *App) handle(pkt []byte) (reply, status string) {
	resp, err := app.hatch.Handle(pkt)
	if err != nil {
		app.log.Debug("packet not applied", "packet", string(pkt), "error", err)
	}
	return resp.Reply, resp.Status
}

// handleLocal applies a packet from a source that cannot take a reply.
func (app *App) handleLocal(pkt []byte) {
	_, status := app.handle(pkt)
	if status != "" {
		app.log.Info("status", "line", status)
	}
}

func (app *App) onMQTTConnect() {
	if err := app.mqtt.Subscribe(app.mqtt.CommandTopic()); err != nil {
		app.log.Warn("MQTT subscribe failed", "error", err)
	}
	if app.hatch.Degraded() {
		app.indicator.Fault()
		return
	}
	app.indicator.Connected()
}

func (app *App) onMQTTDisconnect() {
	app.indicator.ConnectionLost()
}

func (app *App) onMQTTMessage(topic string, payload []byte) {
	if topic != app.mqtt.CommandTopic() {
		return
	}
	app.mqtt.Reply(app.handle(payload))
}

// restart stops the process with the restart exit status.
func (app *App) restart() {
	app.restarted.Store(true)
	app.cancel()
}

func (app *App) shutdown() {
	app.mqtt.Disconnect()
	if app.udp != nil {
		app.udp.Close()
	}
	if app.console != nil {
		app.console.Close()
	}
	if app.pipe != nil {
		app.pipe.Close()
	}
	if app.keypad != nil {
		app.keypad.Close()
	}
	if app.buttons != nil {
		app.buttons.Close()
	}
	if app.telemetry != nil {
		app.telemetry.Close()
	}
	if app.tracker != nil {
		app.tracker.Release()
	}
	if app.motor != nil {
		app.motor.Release()
	}
	if app.encoder != nil {
		app.encoder.Release()
	}
	if app.medium != nil {
		app.medium.Close()
	}
	app.indicator.Shutdown()
	app.indicator.Release()
}
