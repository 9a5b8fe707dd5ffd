package door

// Noop implements Motor but does nothing.
// Used when no motor is configured.
type Noop struct{}

// Drive implements Motor.Drive.
func (n *Noop) Drive(dir Direction) error {
	return nil
}

// Stop implements Motor.Stop.
func (n *Noop) Stop() error {
	return nil
}

// Release implements Motor.Release.
func (n *Noop) Release() error {
	return nil
}
