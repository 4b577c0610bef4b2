// Package queue runs tasks one at a time in priority order. Speech engines
// use it to keep a single utterance in flight.
package queue
