package xpbd_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestXPBD(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "XPBD Solver Suite")
}
