// Package playback implements the player's transport: the play queue, the current track and the
// single audio output they drive.
//
// The [Engine] is the only writer of playback state. It binds one [Output] (at construction or
// on the first play), registers itself as that output's [Listener] and mirrors position, duration
// and end-of-track notifications back into its [State]. Each source is set with a fresh [SourceID];
// notifications carrying an older ID are dropped. State is memory-only and never persisted.
//
// Outputs:
//   - [StreamOutput] : downloads an mp3 preview, decodes it and streams PCM to a writer in real time
//   - [NullOutput] : silent, records calls; used in tests and when no stream output can be built
package playback
