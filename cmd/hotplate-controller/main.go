// Command hotplate-controller runs the heated-plate and stirrer control
// daemon. It polls the RTD probe and drives the heater relay and stirrer
// triac, with telemetry on MQTT and an HTTP control surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/hotplate-controller/internal/config"
	"github.com/sweeney/hotplate-controller/internal/heater"
	"github.com/sweeney/hotplate-controller/internal/hw"
	"github.com/sweeney/hotplate-controller/internal/mqtt"
	"github.com/sweeney/hotplate-controller/internal/notes"
	"github.com/sweeney/hotplate-controller/internal/sensor"
	"github.com/sweeney/hotplate-controller/internal/status"
	"github.com/sweeney/hotplate-controller/internal/stirrer"
	"github.com/sweeney/hotplate-controller/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/hotplate/config.yaml", "YAML configuration path")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", "HTTP listen address (overrides config, \"off\" disables)")
	poll := flag.Duration("poll", 0, "Temperature polling interval (overrides config)")
	heartbeatFlag := flag.Duration("heartbeat", -1, "Heartbeat interval (overrides config, 0 disables)")
	printTemp := flag.Bool("print-temp", false, "Read the probe once, print the temperature, and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if *broker != "" {
		cfg.MQTT.Broker = *broker
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *httpAddr == "off" {
		cfg.HTTP.Addr = ""
	}
	if *poll > 0 {
		cfg.Heater.PollMs = int(poll.Milliseconds())
	}
	heartbeat := time.Duration(cfg.MQTT.HeartbeatMs) * time.Millisecond
	if *heartbeatFlag >= 0 {
		heartbeat = *heartbeatFlag
	}

	if err := run(cfg, heartbeat, *printTemp); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, heartbeat time.Duration, printTemp bool) error {
	// Initialize the probe first; nothing is safe to run without it.
	probe, err := sensor.NewMAX31865(cfg.Hardware.Chip, sensor.MAX31865Pins{
		CS:   cfg.Hardware.SPI.CS,
		CLK:  cfg.Hardware.SPI.CLK,
		MOSI: cfg.Hardware.SPI.MOSI,
		MISO: cfg.Hardware.SPI.MISO,
	}, cfg.Heater.RRef, cfg.Heater.RNominal)
	if err != nil {
		return fmt.Errorf("init probe: %w", err)
	}
	defer probe.Close()

	if printTemp {
		temp, err := probe.ReadTemperature()
		if err != nil {
			return fmt.Errorf("read probe: %w", err)
		}
		fmt.Printf("%.2f C\n", temp)
		return nil
	}

	relay, err := hw.NewRealOutputPin(cfg.Hardware.Chip, cfg.Hardware.RelayPin)
	if err != nil {
		return fmt.Errorf("init relay: %w", err)
	}
	defer relay.Close()

	gate, err := hw.NewRealOutputPin(cfg.Hardware.Chip, cfg.Hardware.GatePin)
	if err != nil {
		return fmt.Errorf("init stirrer gate: %w", err)
	}
	defer gate.Close()

	zc := hw.NewRealZeroCross(cfg.Hardware.Chip, cfg.Hardware.ZeroCrossPin)

	element := heater.NewElement(relay, cfg.Heater.MaxTemp)
	modes := heater.NewModeManager(element)

	stir := stirrer.NewController(gate, zc, hw.TimerScheduler{}, cfg.Hardware.MainsHz, stirrer.Tuning{
		MaxRPM:     cfg.Stirrer.MaxRPM,
		MinPercent: cfg.Stirrer.MinPercent,
		MaxPercent: cfg.Stirrer.MaxPercent,
		Gamma:      2.0,
		GatePulse:  time.Duration(cfg.Stirrer.GatePulseUs) * time.Microsecond,
	})
	if err := stir.Begin(); err != nil {
		return fmt.Errorf("init stirrer: %w", err)
	}
	defer stir.Close()

	publisher, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Username, cfg.MQTT.Password)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	poll := time.Duration(cfg.Heater.PollMs) * time.Millisecond
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      poll.Milliseconds(),
		HeartbeatMs: heartbeat.Milliseconds(),
		MaxTemp:     cfg.Heater.MaxTemp,
		MainsHz:     cfg.Hardware.MainsHz,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	})

	// Publish startup event with full status snapshot.
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	ctl := &controller{
		modes:        modes,
		element:      element,
		stir:         stir,
		maxTemp:      cfg.Heater.MaxTemp,
		maxRPM:       cfg.Stirrer.MaxRPM,
		defTolerance: cfg.Heater.Tolerance,
	}

	// Start the HTTP control surface.
	if cfg.HTTP.Addr != "" {
		store, err := notes.NewStore(cfg.Notes.Dir)
		if err != nil {
			log.Printf("notes store disabled: %v", err)
			store = nil
		}
		srv := web.New(cfg.HTTP.Addr, tracker, ctl, store)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: poll=%v broker=%s heartbeat=%v maxTemp=%.1f mains=%dHz",
		poll, cfg.MQTT.Broker, heartbeat, cfg.Heater.MaxTemp, cfg.Hardware.MainsHz)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(probe, ctl, publisher, publisher, tracker, heartbeat, time.Now, ticker.C, sigCh)
}

// controller mediates between the HTTP handlers and the control loop. The
// handlers mutate the mode machine under the mutex; events produced by
// commands queue up until the next loop tick publishes them.
type controller struct {
	mu      sync.Mutex
	modes   *heater.ModeManager
	element *heater.Element
	stir    *stirrer.Controller
	maxTemp float64
	maxRPM  float64

	// defTolerance is the configured hysteresis half-width used when a
	// command does not carry one.
	defTolerance float64

	pendingHeater  []heater.Event
	pendingStirrer []stirrer.Event
}

// tolerance resolves a command's hysteresis half-width, falling back to the
// configured default.
func (c *controller) tolerance(requested float64) float64 {
	if requested > 0 {
		return requested
	}
	if c.defTolerance > 0 {
		return c.defTolerance
	}
	return heater.DefaultTolerance
}

func (c *controller) SetHold(target, tolerance float64) error {
	if target > c.maxTemp {
		return fmt.Errorf("target %.1f exceeds limit %.1f", target, c.maxTemp)
	}
	tolerance = c.tolerance(tolerance)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingHeater = append(c.pendingHeater, c.modes.SetHold(target, tolerance, time.Now())...)
	return nil
}

func (c *controller) SetRamp(start, end float64, duration time.Duration, tolerance float64) error {
	if start > c.maxTemp || end > c.maxTemp {
		return fmt.Errorf("ramp endpoint exceeds limit %.1f", c.maxTemp)
	}
	tolerance = c.tolerance(tolerance)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingHeater = append(c.pendingHeater, c.modes.SetRamp(start, end, duration, tolerance, time.Now())...)
	return nil
}

func (c *controller) SetTimer(duration time.Duration, target float64, useTemp bool, tolerance float64) error {
	if useTemp && target > c.maxTemp {
		return fmt.Errorf("target %.1f exceeds limit %.1f", target, c.maxTemp)
	}
	tolerance = c.tolerance(tolerance)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingHeater = append(c.pendingHeater, c.modes.SetTimer(duration, target, useTemp, tolerance, time.Now())...)
	return nil
}

func (c *controller) HeaterOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingHeater = append(c.pendingHeater, c.modes.SetOff(time.Now())...)
	return nil
}

func (c *controller) StirrerStart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingStirrer = append(c.pendingStirrer, c.stir.Start(time.Now())...)
	return nil
}

func (c *controller) StirrerStop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingStirrer = append(c.pendingStirrer, c.stir.Stop(time.Now())...)
	return nil
}

func (c *controller) SetStirrerRPM(rpm float64) error {
	if rpm > c.maxRPM {
		return fmt.Errorf("rpm %.0f exceeds limit %.0f", rpm, c.maxRPM)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stir.SetTargetRPM(rpm)
	return nil
}

// step runs one control tick under the mutex: feed the sample through the
// thermal loop, advance the mode machine and stirrer estimate, and collect
// everything together with events queued by HTTP commands.
func (c *controller) step(sample heater.Sample, now time.Time) ([]heater.Event, []stirrer.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	heaterEvents := c.pendingHeater
	c.pendingHeater = nil
	stirrerEvents := c.pendingStirrer
	c.pendingStirrer = nil

	heaterEvents = append(heaterEvents, c.element.Process(sample)...)
	heaterEvents = append(heaterEvents, c.modes.Update(now)...)
	stirrerEvents = append(stirrerEvents, c.stir.Update(now)...)
	return heaterEvents, stirrerEvents
}

// shutdown forces both actuators off.
func (c *controller) shutdown(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stir.Stop(now)
	c.modes.SetOff(now)
}

// heaterView builds the tracker's heater state under the mutex.
func (c *controller) heaterView(now time.Time) status.HeaterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	temp, hasTemp := c.element.CurrentTemperature()
	return status.HeaterState{
		Mode:        c.modes.CurrentMode(),
		Temperature: temp,
		HasReading:  hasTemp,
		Target:      c.element.Target(),
		TargetSet:   c.element.TargetSet(),
		Heating:     c.element.IsRunning(),
		Fault:       c.element.HasFault(),
		Progress:    c.modes.Progress(now),
		Remaining:   c.modes.Remaining(now),
	}
}

func (c *controller) stirrerView() status.StirrerState {
	return status.StirrerState{
		Running:   c.stir.IsRunning(),
		TargetRPM: c.stir.TargetRPM(),
		Estimate:  c.stir.CurrentEstimate(),
		Fault:     c.stir.HasFault(),
	}
}

func (c *controller) currentMode() heater.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modes.CurrentMode()
}

func runLoop(probe sensor.Source, ctl *controller, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	lastHeartbeat := startTime
	var counts status.Counts

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			// Both actuators off before the broker hears about it.
			ctl.shutdown(now())

			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				tracker.UpdateHeater(ctl.heaterView(now()))
				tracker.UpdateStirrer(ctl.stirrerView())
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			temp, err := probe.ReadTemperature()
			if err != nil {
				log.Printf("probe read error: %v", err)
			}

			heaterEvents, stirrerEvents := ctl.step(heater.Sample{
				Temperature: temp,
				Time:        t,
				Err:         err,
			}, t)

			mode := ctl.currentMode()
			for _, ev := range heaterEvents {
				logHeaterEvent(ev)
				tallyHeaterEvent(&counts, ev)
				if err := publisher.Publish(heaterToMQTT(ev, mode)); err != nil {
					log.Printf("publish error: %v", err)
				}
			}
			for _, ev := range stirrerEvents {
				log.Printf("event: %s (rpm=%.0f)", ev.Type, ev.RPM)
				if err := publisher.Publish(stirrerToMQTT(ev)); err != nil {
					log.Printf("publish error: %v", err)
				}
			}

			// Update status tracker for HTTP and websocket consumers.
			if tracker != nil {
				tracker.UpdateHeater(ctl.heaterView(t))
				tracker.UpdateStirrer(ctl.stirrerView())
				tracker.SetCounts(counts)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				log.Printf("heartbeat: uptime=%v heater_on=%d heater_off=%d faults=%d completed=%d",
					t.Sub(startTime).Truncate(time.Second), counts.HeaterOn, counts.HeaterOff, counts.Faults, counts.Completed)

				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func logHeaterEvent(ev heater.Event) {
	switch ev.Type {
	case heater.EventTemperature:
		log.Printf("event: %s (%.1fC)", ev.Type, ev.Temperature)
	case heater.EventFault:
		log.Printf("event: %s (%s)", ev.Type, ev.Reason)
	case heater.EventModeComplete, heater.EventModeFault:
		log.Printf("event: %s (%s)", ev.Type, ev.Mode.DisplayName())
	default:
		log.Printf("event: %s", ev.Type)
	}
}

func tallyHeaterEvent(counts *status.Counts, ev heater.Event) {
	switch ev.Type {
	case heater.EventHeaterOn:
		counts.HeaterOn++
	case heater.EventHeaterOff:
		counts.HeaterOff++
	case heater.EventFault:
		counts.Faults++
	case heater.EventModeComplete:
		counts.Completed++
	}
}

func heaterToMQTT(ev heater.Event, mode heater.Mode) mqtt.Event {
	out := mqtt.Event{
		Timestamp: ev.Timestamp,
		Source:    "heater",
		Type:      string(ev.Type),
		Mode:      mode.DisplayName(),
		Reason:    ev.Reason,
	}
	if ev.Type == heater.EventTemperature {
		temp := ev.Temperature
		out.Temperature = &temp
	}
	if ev.Type == heater.EventModeComplete || ev.Type == heater.EventModeFault {
		out.Mode = ev.Mode.DisplayName()
	}
	return out
}

func stirrerToMQTT(ev stirrer.Event) mqtt.Event {
	rpm := ev.RPM
	return mqtt.Event{
		Timestamp: ev.Timestamp,
		Source:    "stirrer",
		Type:      string(ev.Type),
		RPM:       &rpm,
	}
}
