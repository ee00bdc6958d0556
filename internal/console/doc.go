// Package console is the interactive input side of pikoctl: prompt, line
// editing, first-word completion and a persisted, de-duplicated history.
package console
