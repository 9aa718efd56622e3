package main

import (
	"context"
	"fmt"

	"github.com/brutella/hc"
	"github.com/brutella/hc/accessory"

	"gregoryjjb/fireside/gpio"
)

const (
	hkManufacturer = "Custom"
	hkFirmware     = "1.0.0"
)

type hkDevice struct {
	name   string // as understood by PinConfig.DevicePin
	label  string
	model  string
	serial string
}

// homeKitDevices lists every switchable device. Optional ones are only
// exposed when a pin is configured for them.
var homeKitDevices = []hkDevice{
	{name: "fireplace", label: "Fireplace", model: "GPIO-Fireplace-v1", serial: "FP"},
	{name: "fireplace_fan", label: "Fireplace Fan", model: "GPIO-Fan-v1", serial: "FAN"},
	{name: "lights", label: "Lights", model: "GPIO-Lights-v1", serial: "LT"},
	{name: "secondary_device", label: "Secondary Device", model: "GPIO-Secondary-v1", serial: "SD"},
}

// switchUpdate is a value to show on a device's switch in the Home app.
type switchUpdate struct {
	device string
	on     bool
}

// HomeKitBridge exposes each device as a HomeKit lightbulb. Switching one
// in the Home app drives the pin through the controller, and pin changes
// from any source are reflected back.
//
// Only the run loop writes switch values; everything else queues them.
type HomeKitBridge struct {
	config *ConfigStore
	gpio   *gpio.Controller

	bridge  *accessory.Bridge
	order   []string
	lights  map[string]*accessory.Lightbulb
	updates chan switchUpdate
}

func NewHomeKitBridge(config *ConfigStore, controller *gpio.Controller) *HomeKitBridge {
	cfg := config.Get()
	room := cfg.Room.Name

	b := &HomeKitBridge{
		config:  config,
		gpio:    controller,
		lights:  make(map[string]*accessory.Lightbulb),
		updates: make(chan switchUpdate, 16),
	}

	b.bridge = accessory.NewBridge(accessory.Info{
		ID:               1,
		Name:             fmt.Sprintf("%s Fireplace Control", room),
		Manufacturer:     hkManufacturer,
		Model:            "GPIO-Bridge-v1",
		SerialNumber:     fmt.Sprintf("BR-%s", room),
		FirmwareRevision: hkFirmware,
	})

	id := uint64(2)
	for _, d := range homeKitDevices {
		if _, ok := cfg.Pins.DevicePin(d.name); !ok {
			continue
		}

		lb := accessory.NewLightbulb(accessory.Info{
			ID:               id,
			Name:             d.label,
			Manufacturer:     hkManufacturer,
			Model:            d.model,
			SerialNumber:     fmt.Sprintf("%s-%s", d.serial, room),
			FirmwareRevision: hkFirmware,
		})
		id++

		name := d.name
		// The backend can take up to the command timeout, so HomeKit's
		// request must not wait on it.
		lb.Lightbulb.On.OnValueRemoteUpdate(func(on bool) {
			go func() {
				if err := b.apply(context.Background(), name, on); err != nil {
					hklog().Err(err).Str("device", name).Bool("on", on).Msg("Failed to switch device")
				}
			}()
		})

		b.order = append(b.order, d.name)
		b.lights[d.name] = lb
	}

	return b
}

// Accessories returns the bridged accessories in a stable order.
func (b *HomeKitBridge) Accessories() []*accessory.Accessory {
	out := make([]*accessory.Accessory, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.lights[name].Accessory)
	}
	return out
}

// apply switches a device using the pin and polarity configured right now,
// so a config reload is picked up without rebuilding the bridge. On failure
// the switch in the Home app is put back to the pin's recorded state.
func (b *HomeKitBridge) apply(ctx context.Context, device string, on bool) error {
	if _, ok := b.lights[device]; !ok {
		return fmt.Errorf("unknown homekit device %q", device)
	}

	cfg := b.config.Get()
	pin, ok := cfg.Pins.DevicePin(device)
	if !ok {
		return fmt.Errorf("no pin configured for %s", device)
	}

	hklog().Info().Str("device", device).Uint32("pin", pin).Bool("on", on).Msg("HomeKit request")

	if err := b.gpio.SetPin(ctx, pin, on, cfg.Pins.ActiveLow); err != nil {
		b.queue(switchUpdate{device: device, on: isOn(b.gpio.PinState(pin), cfg.Pins.ActiveLow)})
		return err
	}
	return nil
}

func (b *HomeKitBridge) queue(u switchUpdate) {
	select {
	case b.updates <- u:
	default:
		hklog().Warn().Str("device", u.device).Msg("Switch update queue full, dropping update")
	}
}

// updateFor maps a recorded pin level onto the matching accessory, if any.
func (b *HomeKitBridge) updateFor(ev gpio.PinEvent) (switchUpdate, bool) {
	cfg := b.config.Get()
	name, ok := cfg.Pins.PinName(ev.Pin)
	if !ok {
		return switchUpdate{}, false
	}
	if _, ok := b.lights[name]; !ok {
		return switchUpdate{}, false
	}
	return switchUpdate{device: name, on: isOn(ev.State, cfg.Pins.ActiveLow)}, true
}

func (b *HomeKitBridge) setSwitch(u switchUpdate) {
	if lb, ok := b.lights[u.device]; ok {
		lb.Lightbulb.On.SetValue(u.on)
	}
}

// run writes pin events and queued updates to the switches until ctx is
// done or the controller stops publishing.
func (b *HomeKitBridge) run(ctx context.Context, events <-chan gpio.PinEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if u, ok := b.updateFor(ev); ok {
				b.setSwitch(u)
			}
		case u := <-b.updates:
			b.setSwitch(u)
		}
	}
}

func isOn(state gpio.PinState, activeLow bool) bool {
	if state == gpio.Unknown {
		return false
	}
	return (state == gpio.High) != activeLow
}

// Start publishes the bridge on the network and blocks until ctx is done.
func (b *HomeKitBridge) Start(ctx context.Context) error {
	hk := b.config.Get().HomeKit

	t, err := hc.NewIPTransport(hc.Config{
		Pin:         hk.Pin,
		StoragePath: hk.StoragePath,
		Port:        hk.Port,
	}, b.bridge.Accessory, b.Accessories()...)
	if err != nil {
		return fmt.Errorf("failed to create homekit transport: %w", err)
	}

	unsub, events := b.gpio.Subscribe()
	go func() {
		defer unsub()
		b.run(ctx, events)
		<-t.Stop()
	}()

	hklog().Info().
		Str("pin", hk.Pin).
		Strs("accessories", b.order).
		Msg("Starting HomeKit bridge")

	t.Start()
	return nil
}
