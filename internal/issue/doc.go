// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of Markdown guidance
// for envinline's failure categories, rendered in the terminal with glamour.
package issue
