// Package studio owns the content-generation workflow: projects, the
// admission queue in front of the single inference slot, prompt building,
// output validation, and persistence. The HTTP layer talks to it through
// a narrow interface and maps its error types to status codes.
package studio
