// Package service drives the market from a decoded event stream.
//
// FeedService maps normalized feed events onto one Manager and owns
// the error policy around them; Dispatcher shards that work across
// workers by symbol. Both stay decoupled from where the tape comes
// from, a file, stdin, or a Kafka topic all feed the same decoder.
package service
