package drivetrain_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	log "github.com/sirupsen/logrus"
)

func TestDrivetrain(t *testing.T) {
	log.SetLevel(log.WarnLevel)
	RegisterFailHandler(Fail)
	RunSpecs(t, "Drivetrain Suite")
}
