// Package events defines the wire-exact realtime control event contract.
//
// Every message on the duplex channel is a single JSON object carrying a
// `type` discriminator. The recognized types are a closed enumeration; a
// payload whose type falls outside of it still parses (the log keeps it)
// but contributes nothing to presence derivation or tool dispatch.
//
// Outbound (client) types:
//
//   - conversation.item.create: append a user message to the conversation.
//   - response.create: ask the remote agent for its next turn, optionally
//     with steering instructions.
//   - session.update: declare the tool set and tool choice policy.
//
// Inbound (server) types:
//
//   - session.created: the remote session is ready for configuration.
//   - conversation.item.created: a conversation item was materialized
//     remotely; assistant-role items signal content delivery.
//   - response.created: response generation was accepted and is underway.
//   - response.done: a response finished; its output array may carry
//     function_call entries to dispatch.
//   - input_audio_buffer.speech_started / .speech_stopped: user speech
//     activity boundaries.
//   - output_audio_buffer.started: agent audio playback began.
//   - response.audio.delta: incremental agent audio.
//   - error: a remote-side failure report.
//
// Local-only annotations (direction, sequence, timestamp) are never
// serialized; a transmitted event consists solely of its wire fields.
package events
