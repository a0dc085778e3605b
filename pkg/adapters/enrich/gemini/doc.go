// Package gemini generates artifact visuals through the Gemini image
// models. One call produces one image; retry policy belongs to the
// caller.
package gemini
