package indicator

import "coopdoor/door"

// Noop implements Indicator but does nothing.
// Used when no indicators are configured.
type Noop struct{}

// Idle implements Indicator.Idle.
func (n *Noop) Idle() {}

// Moving implements Indicator.Moving.
func (n *Noop) Moving(dir door.Direction) {}

// Fault implements Indicator.Fault.
func (n *Noop) Fault() {}

// ConnectionLost implements Indicator.ConnectionLost.
func (n *Noop) ConnectionLost() {}

// Connected implements Indicator.Connected.
func (n *Noop) Connected() {}

// Shutdown implements Indicator.Shutdown.
func (n *Noop) Shutdown() {}

// Release implements Indicator.Release.
func (n *Noop) Release() error {
	return nil
}
