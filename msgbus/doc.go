// SPDX-License-Identifier: EPL-2.0

// Package msgbus carries out-of-band log messages to a writer.
//
// Processes that want their messages stored alongside the data publish
// (source, time, text) triples to an endpoint named after the recording
// server. The writer drains a bounded batch on every pass of its consumer
// loop. Bus is the in-process endpoint; MQTT carries the same messages
// through a broker on the topic "<server>/log".
package msgbus
