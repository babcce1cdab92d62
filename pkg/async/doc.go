// Package async wraps task execution with panic recovery and timeout
// enforcement. The update loop uses it so one bad update cannot crash
// or stall the bot.
package async
