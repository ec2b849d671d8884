package mechanism

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/motorgroup"
)

type IndexerConfig struct {
	Rotation   float64       `yaml:"rotation"`
	Velocity   int           `yaml:"velocity"`
	CycleDelay time.Duration `yaml:"cycle_delay"`
}

func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{Rotation: 720, Velocity: 200, CycleDelay: 2250 * time.Millisecond}
}

// Indexer pushes one disk into the flywheel per punch.
type Indexer struct {
	cfg    IndexerConfig
	motors *motorgroup.Group
	log    *log.Entry
}

func NewIndexer(cfg IndexerConfig, motors *motorgroup.Group) *Indexer {
	motors.SetEncoderUnits(device.UnitsDegrees)
	motors.SetGearing(device.GearsetGreen)
	return &Indexer{cfg: cfg, motors: motors, log: log.WithField("subsystem", "indexer")}
}

func (x *Indexer) Motors() *motorgroup.Group { return x.motors }

func (x *Indexer) Config() IndexerConfig { return x.cfg }

// SetRotation changes how far one punch turns the indexer.
func (x *Indexer) SetRotation(deg float64) { x.cfg.Rotation = deg }

// PunchDisk runs one full indexer cycle and waits CycleDelay for the
// mechanism to return before the next disk.
func (x *Indexer) PunchDisk(ctx context.Context) error {
	x.motors.ResetPositions()
	x.motors.MoveRelative(x.cfg.Rotation, x.cfg.Velocity)
	x.log.WithField("rotation", x.cfg.Rotation).Debug("punch")
	return sleep(ctx, x.cfg.CycleDelay)
}

// Driver fires while fire is held and pulls back while pullback is held.
func (x *Indexer) Driver(pad device.Gamepad, fire, pullback device.Button) {
	twoWay(pad, fire, pullback,
		func() { x.motors.MoveVelocity(x.cfg.Velocity) },
		func() { x.motors.MoveVelocity(-x.cfg.Velocity) },
		func() { x.motors.Move(0) })
}
