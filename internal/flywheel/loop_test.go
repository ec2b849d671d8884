package flywheel_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/motioncore/internal/flywheel"
	"github.com/san-kum/motioncore/internal/motorgroup"
	"github.com/san-kum/motioncore/internal/plant"
	"github.com/san-kum/motioncore/internal/task"
)

// heldWithin samples the wheel over window and reports whether every
// sample stayed within tol of rpm.
func heldWithin(wheel *flywheel.Flywheel, rpm, tol float64, window time.Duration) func() bool {
	return func() bool {
		lo, hi := wheel.Velocity(), wheel.Velocity()
		for end := time.Now().Add(window); time.Now().Before(end); time.Sleep(5 * time.Millisecond) {
			v := wheel.Velocity()
			lo, hi = min(lo, v), max(hi, v)
		}
		return lo >= rpm-tol && hi <= rpm+tol
	}
}

var _ = Describe("Flywheel loop on the simulated launcher", func() {
	var (
		world  *plant.World
		wheel  *flywheel.Flywheel
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		world = plant.NewWorld()
		motors, err := motorgroup.FromPorts(world, []int{20}, []bool{true})
		Expect(err).NotTo(HaveOccurred())
		wheel, err = flywheel.New(flywheel.DefaultConfig(), motors)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel = context.WithCancel(context.Background())
		go world.Run(ctx, time.Millisecond)
		Expect(wheel.InitTask(ctx)).To(Succeed())
	})

	AfterEach(func() {
		wheel.EndTask()
		cancel()
	})

	It("spins up to the slow preset", func() {
		wheel.SetSpeedSlow()
		Eventually(wheel.Velocity).WithTimeout(3 * time.Second).Should(BeNumerically("~", 400, 10))
		// the first crossing is on the rising edge; wait for the overshoot
		// to die out over a whole window before checking that it holds
		Eventually(heldWithin(wheel, 400, 5, 100*time.Millisecond)).
			WithTimeout(3 * time.Second).Should(BeTrue())
		Consistently(wheel.Velocity).WithTimeout(200 * time.Millisecond).Should(BeNumerically("~", 400, 15))
	})

	It("coasts down while paused and recovers on resume", func() {
		wheel.SetSpeedSlow()
		Eventually(wheel.Velocity).WithTimeout(3 * time.Second).Should(BeNumerically("~", 400, 10))

		wheel.PauseTask()
		Expect(wheel.TaskState()).To(Equal(task.Paused))
		Eventually(wheel.Velocity).WithTimeout(5 * time.Second).Should(BeNumerically("<", 100))

		wheel.SetSpeedFast()
		wheel.ResumeTask()
		Eventually(wheel.Velocity).WithTimeout(3 * time.Second).Should(BeNumerically(">", 550))
	})

	It("holds velocity with the feedforward law", func() {
		Expect(wheel.UseLaw(flywheel.LawFeedforward)).To(Succeed())
		wheel.SetTargetVelocity(300)
		Eventually(wheel.Velocity).WithTimeout(3 * time.Second).Should(BeNumerically("~", 300, 10))
	})

	It("holds velocity with take-back-half", func() {
		Expect(wheel.UseLaw(flywheel.LawTBH)).To(Succeed())
		wheel.SetTargetVelocity(300)
		Eventually(wheel.Velocity).WithTimeout(5 * time.Second).Should(BeNumerically("~", 300, 15))
	})
})
