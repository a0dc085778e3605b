// Package anthropic implements the planning, research, synthesis and
// plan-generation capabilities on the Anthropic Messages API.
//
// Every capability follows the same shape: one prompt, one completion,
// then lenient JSON extraction. Responses that cannot be parsed fall
// back to the documented degraded value instead of returning an error;
// only transport-level failures surface to the caller.
package anthropic
