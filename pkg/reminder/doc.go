// Package reminder implements the calendar-driven reminder rules: who
// still owes readings or money, when the scheduled runs fire, and the
// message construction shared with the owner's on-demand /remind
// commands. The date triggers are pure predicates over time.Time so they
// are testable apart from delivery side effects.
package reminder
