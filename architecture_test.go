package main

import (
	"testing"

	"github.com/kcmvp/archunit"
)

var corePatterns = []string{
	".../store", ".../sun", ".../clock", ".../light",
	".../tracker", ".../automation", ".../protocol", ".../hatch",
}

func TestArchitecture(t *testing.T) {
	core := archunit.Packages("core", corePatterns)
	transports := archunit.Packages("transports", []string{
		".../mqtt", ".../udp", ".../console", ".../eventpipe", ".../keypad",
		".../buttons", ".../telemetry",
	})

	// The door core is driven by transports, never the other way round
	if err := core.ShouldNotReferLayers(transports); err != nil {
		t.Errorf("Architecture violation: core depends on transports: %v", err)
	}
}

func TestHardwareStaysBehindInterfaces(t *testing.T) {
	core := archunit.Packages("core", corePatterns)
	drivers := archunit.Packages("drivers", []string{".../rotary", ".../indicator"})

	if err := core.ShouldNotReferLayers(drivers); err != nil {
		t.Errorf("Architecture violation: core depends on drivers: %v", err)
	}
}

func TestCorePackagesPresent(t *testing.T) {
	hatch := archunit.Packages("hatch", []string{".../hatch"})
	if len(hatch.Packages()) == 0 {
		t.Error("No hatch package found")
	}
}
