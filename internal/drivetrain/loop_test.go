package drivetrain_test

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/drivetrain"
	"github.com/san-kum/motioncore/internal/motorgroup"
	"github.com/san-kum/motioncore/internal/plant"
	"github.com/san-kum/motioncore/internal/task"
)

var _ = Describe("Drivetrain loop on the simulated robot", func() {
	var (
		world  *plant.World
		drive  *drivetrain.Drivetrain
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		world = plant.NewWorld()
		left, err := motorgroup.FromPorts(world, []int{11, 12}, []bool{true, true})
		Expect(err).NotTo(HaveOccurred())
		right, err := motorgroup.FromPorts(world, []int{13, 14}, []bool{false, false})
		Expect(err).NotTo(HaveOccurred())
		left.SetBrakeMode(device.BrakeBrake)
		right.SetBrakeMode(device.BrakeBrake)

		drive, err = drivetrain.New(drivetrain.DefaultConfig(), left, right)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel = context.WithCancel(context.Background())
		go world.Run(ctx, time.Millisecond)
		Expect(drive.InitTask(ctx)).To(Succeed())
	})

	AfterEach(func() {
		drive.EndTask()
		cancel()
	})

	It("drives 24 inches and settles near the target", func() {
		drive.MoveStraight(24)
		Expect(drive.Settled()).To(BeFalse())
		Expect(drive.WaitUntilSettled(ctx)).To(Succeed())

		target, _ := drive.Targets()
		l, r := drive.Feedback()
		Expect(l).To(BeNumerically("~", target, 30))
		Expect(r).To(BeNumerically("~", target, 30))
	})

	It("turns in place with mirrored sides", func() {
		drive.TurnAngle(90)
		Expect(drive.WaitUntilSettled(ctx)).To(Succeed())

		l, r := drive.Feedback()
		Expect(l).To(BeNumerically(">", 350))
		Expect(r).To(BeNumerically("<", -350))
		Expect(math.Abs(l + r)).To(BeNumerically("<", 30))
	})

	It("settles straight, turn and straight again back to back", func() {
		drive.MoveStraight(24)
		Expect(drive.WaitUntilSettled(ctx)).To(Succeed())
		drive.TurnAngle(90)
		Expect(drive.WaitUntilSettled(ctx)).To(Succeed())
		drive.MoveStraight(24)
		Expect(drive.WaitUntilSettled(ctx)).To(Succeed())

		target, _ := drive.Targets()
		l, r := drive.Feedback()
		Expect(l).To(BeNumerically("~", target, 30))
		Expect(r).To(BeNumerically("~", target, 30))
	})

	It("gives up on a jammed drive through stall detection", func() {
		for _, p := range []int{11, 12, 13, 14} {
			m, err := world.SimMotor(p)
			Expect(err).NotTo(HaveOccurred())
			m.Jam(true)
		}
		drive.MoveStraight(24)
		Eventually(drive.Settled).WithTimeout(2 * time.Second).Should(BeTrue())

		l, r := drive.Feedback()
		Expect(l).To(BeNumerically("~", 0, 1))
		Expect(r).To(BeNumerically("~", 0, 1))
	})

	It("holds still while paused and tracks again after resume", func() {
		drive.PauseTask()
		Expect(drive.TaskState()).To(Equal(task.Paused))

		drive.MoveStraight(12)
		Expect(drive.TaskState()).To(Equal(task.Paused))
		Consistently(func() float64 {
			l, _ := drive.Feedback()
			return l
		}).WithTimeout(100 * time.Millisecond).Should(BeNumerically("~", 0, 1))

		drive.ResumeTask()
		Eventually(drive.Settled).WithTimeout(3 * time.Second).Should(BeTrue())
	})

	It("refuses a second start and brakes on end", func() {
		Expect(drive.InitTask(ctx)).To(MatchError(task.ErrAlreadyStarted))
		drive.EndTask()
		Expect(drive.TaskState()).To(Equal(task.Idle))
		Expect(drive.Left().AreStopped()).To(HaveEach(BeTrue()))
	})
})
