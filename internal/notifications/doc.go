// Package notifications pushes build milestones to ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set, so
// the pipeline can publish unconditionally. Build code depends only on the
// small Service interface; swap in another transport by implementing it.
package notifications
