// Package audio backs the unlock coordinator with real audio output using
// the oto/v3 library. oto allows exactly one context per process, which is
// the shared audio context the coordinator owns.
package audio
