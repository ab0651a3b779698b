// Package voting contains the vote aggregation core: the similarity
// registry, the vote coordinator state machine, the outcome dispatcher that
// compensates speculative cache writes, and the startup cache warmup.
package voting
