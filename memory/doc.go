// Package memory keeps conversation history between calls. A Store holds the
// messages of each conversation; the Advisor replays them in front of every
// new request and records the exchange once the chain has answered.
//
// The Advisor belongs in front of the evaluation harness so that retries do
// not write intermediate attempts into the history.
package memory
