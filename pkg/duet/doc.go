// Package duet runs a dialogue between two model participants and streams
// every turn to live viewers.
//
// A Duet owns the conversation state: one history per participant, the
// running flag and the completed-turn counter. Start launches an engine
// goroutine that alternates turns A, B, A, ... with a pacing delay in
// between. Each turn sends [system] + the speaker's history to the model,
// broadcasts every fragment as it arrives, and on completion commits the
// reply to the speaker's history as an assistant message and to the other
// participant's history as a user message.
//
// All state mutation and every broadcast happen under one mutex, so
// viewers observe events in the order they were produced and a newly
// registered viewer's init snapshot is consistent with what follows it.
//
// Stop is cooperative. The engine checks the running flag before a turn,
// after every fragment and after the reply completes; a turn that finds
// the conversation stopped, or restarted under a new run, is dropped
// without touching the histories. Fragments already broadcast stay on the
// viewers' screens.
package duet
