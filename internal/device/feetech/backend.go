// Package feetech drives Feetech STS bus servos in wheel mode as robot
// motors. Servo IDs stand in for smart-port numbers.
package feetech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/task"
)

var ErrUnsupported = errors.New("feetech: device not available on a servo bus")

var (
	_ device.Backend    = (*Backend)(nil)
	_ device.Motor      = (*Motor)(nil)
	_ device.DigitalOut = (*latch)(nil)
	_ device.Gamepad    = idlePad{}
)

// DefaultPeriod is how often every servo is read and written.
const DefaultPeriod = 20 * time.Millisecond

type Config struct {
	Port     string
	BaudRate int
	Timeout  time.Duration
	Period   time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaudRate == 0 {
		c.BaudRate = 1_000_000
	}
	if c.Timeout == 0 {
		c.Timeout = 100 * time.Millisecond
	}
	if c.Period <= 0 {
		c.Period = DefaultPeriod
	}
	return c
}

type Backend struct {
	mu     sync.Mutex
	motors map[int]*Motor
	outs   map[byte]*latch
	closed bool

	period time.Duration
	loop   *task.Task
	bus    io.Closer
	log    *log.Entry
}

// Open connects to the bus, finds the servos answering on IDs 1 through
// device.MaxPort, puts each in wheel mode and starts the update loop.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	cfg = cfg.withDefaults()
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: cfg.BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus %s: %w", cfg.Port, err)
	}

	found, err := bus.Scan(ctx, 1, device.MaxPort)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan %s: %w", cfg.Port, err)
	}

	servos := make(map[int]Servo, len(found))
	for _, f := range found {
		s := feetech.NewServo(bus, f.ID, f.Model)
		if err := wheelMode(ctx, s); err != nil {
			bus.Close()
			return nil, fmt.Errorf("servo %d: %w", f.ID, err)
		}
		servos[f.ID] = s
	}

	b := New(servos, cfg.Period)
	b.bus = bus
	b.log.WithFields(log.Fields{"port": cfg.Port, "servos": b.Ports()}).Info("servo bus open")
	if err := b.Start(ctx); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// wheelMode switches a servo to continuous rotation. Torque has to be off
// while the mode changes.
func wheelMode(ctx context.Context, s *feetech.Servo) error {
	if err := s.Disable(ctx); err != nil {
		return err
	}
	if err := s.SetOperatingMode(ctx, feetech.ModeVelocity); err != nil {
		return err
	}
	if err := s.Enable(ctx); err != nil {
		return err
	}
	return s.SetVelocity(ctx, 0)
}

// New builds a backend over already-configured servos keyed by ID. The
// update loop is not started; call Start, or Step directly.
func New(servos map[int]Servo, period time.Duration) *Backend {
	if period <= 0 {
		period = DefaultPeriod
	}
	b := &Backend{
		motors: make(map[int]*Motor, len(servos)),
		outs:   make(map[byte]*latch),
		period: period,
		log:    log.WithField("backend", "feetech"),
	}
	for id, s := range servos {
		b.motors[id] = newMotor(id, s)
	}
	b.loop = task.New("feetech", period, b.Step)
	return b
}

func (b *Backend) Start(ctx context.Context) error {
	return b.loop.Start(ctx)
}

// Step reads and writes every servo once, in port order.
func (b *Backend) Step(ctx context.Context) {
	b.mu.Lock()
	motors := make([]*Motor, 0, len(b.motors))
	for _, p := range b.ports() {
		motors = append(motors, b.motors[p])
	}
	b.mu.Unlock()

	dt := b.period.Seconds()
	for _, m := range motors {
		m.update(ctx, dt)
	}
}

// Ports lists the servo IDs found on the bus.
func (b *Backend) Ports() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ports()
}

func (b *Backend) ports() []int {
	ports := make([]int, 0, len(b.motors))
	for p := range b.motors {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports
}

func (b *Backend) Motor(port int) (device.Motor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, device.ErrBackendClosed
	}
	if !device.ValidPort(port) {
		return nil, fmt.Errorf("%w: %d", device.ErrInvalidPort, port)
	}
	m, ok := b.motors[port]
	if !ok {
		return nil, fmt.Errorf("%w: no servo with id %d", device.ErrInvalidPort, port)
	}
	return m, nil
}

func (b *Backend) RotationSensor(top, bottom byte, reversed bool) (device.RotationSensor, error) {
	return nil, fmt.Errorf("%w: rotation sensor on %c%c", ErrUnsupported, top, bottom)
}

// DigitalOut returns a latch that remembers its level; nothing on the
// servo bus is driven by it.
func (b *Backend) DigitalOut(pin byte) (device.DigitalOut, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, device.ErrBackendClosed
	}
	if !device.ValidPin(pin) {
		return nil, fmt.Errorf("%w: pin %q", device.ErrInvalidPort, pin)
	}
	if d, ok := b.outs[pin]; ok {
		return d, nil
	}
	d := &latch{pin: pin, log: b.log}
	b.outs[pin] = d
	return d, nil
}

func (b *Backend) Gamepad(id int) (device.Gamepad, error) {
	return idlePad{}, nil
}

// Close stops the update loop, releases torque on every servo and closes
// the bus. It is safe to call more than once.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	motors := make([]*Motor, 0, len(b.motors))
	for _, p := range b.ports() {
		motors = append(motors, b.motors[p])
	}
	b.mu.Unlock()

	b.loop.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var errs []error
	for _, m := range motors {
		if err := m.servo.Disable(ctx); err != nil {
			errs = append(errs, fmt.Errorf("servo %d: %w", m.port, err))
		}
	}
	if b.bus != nil {
		if err := b.bus.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ports lists serial devices a servo bus could be attached to.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	out := ports[:0]
	for _, p := range ports {
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type latch struct {
	mu  sync.Mutex
	pin byte
	on  bool
	log *log.Entry
}

func (d *latch) Set(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if on != d.on {
		d.log.WithField("pin", string(d.pin)).Debugf("digital out %v", on)
	}
	d.on = on
}

func (d *latch) Value() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}

// idlePad is a controller with nothing pressed.
type idlePad struct{}

func (idlePad) Analog(device.Axis) int             { return 0 }
func (idlePad) Digital(device.Button) bool         { return false }
func (idlePad) DigitalNewPress(device.Button) bool { return false }
