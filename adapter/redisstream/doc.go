// Package redisstream carries platform events over Redis Streams.
//
// Transport name: "redis-streams"
//
// Each event name maps to one stream ("<stream_prefix><name>"); each xtheme
// consumer group maps to one Redis consumer group, so every subscriber of a
// page session receives every event. Deliveries are handed to the configured
// executor, which keeps handlers on the page loop.
//
// Config keys:
//   - addr: "host:port" (default "127.0.0.1:6379")
//   - stream_prefix: stream key prefix (default "xtheme:")
//   - consumer: consumer name (default "xtheme-<host>-<pid>")
//   - batch_size: XREADGROUP COUNT (default 64)
//   - block: XREADGROUP BLOCK duration (default 2s)
//   - auto_create: create group/stream if missing (default true)
//   - ephemeral_groups: destroy the group when its subscription closes (default true)
//   - dead_letter: stream receiving nacked events (optional)
//   - executor: xtheme.Executor running deliveries (default inline)
//
// Example:
//
//	bus, err := xtheme.NewBusBuilder().
//	    WithTransport(redisstream.TransportName, map[string]any{
//	        "addr":     "localhost:6379",
//	        "executor": lp,
//	    }).
//	    Build()
package redisstream
