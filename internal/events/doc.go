// Package events provides in-process gesture and visibility sources. Front
// ends (the terminal UI, the simulator) publish into them and the unlock
// coordinator listens.
package events
