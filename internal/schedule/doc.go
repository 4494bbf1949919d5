// Package schedule derives push times and countdown text from a
// subscription's frequency tier.
package schedule
