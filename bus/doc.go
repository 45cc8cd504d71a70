// Package bus implements publish/subscribe routing of core.Event values.
//
// Two implementations are provided:
//
//   - InMemoryBus: the default single-process bus. Delivery is synchronous
//     in subscription order, subscriber matching is covariant over the event
//     type hierarchy, and each handler's failures (errors and panics) are
//     isolated so one misbehaving subscriber cannot block delivery to the
//     rest or prevent Publish from returning.
//
//   - RedisBus: the same contract over Redis pub/sub for deployments that
//     span processes. Event type tags map to Redis channels and covariant
//     delivery uses pattern subscriptions over the dotted tag hierarchy.
//
// Buses are explicitly constructed and injected; there is no package-level
// singleton.
package bus
