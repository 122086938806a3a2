// Package login runs QR code login attempts against the music plugin.
//
// # Lifecycle
//
// A [Poller] owns a single [Session]. [Poller.StartLogin] moves it through
//
//	Idle → GeneratingQR → AwaitingScan → LoggedIn
//	                    ↘ Failed
//
// While AwaitingScan the poller checks credential validity every interval. A failed check is logged and
// polling continues; only a valid credential ends the attempt. There is no retry limit and, unless
// [Options.MaxWait] is set, no timeout.
//
// # Supersession
//
// Starting another attempt (or calling [Poller.Abandon]) stops the running [Task], cancels requests made
// for the old attempt and bumps the generation counter. Any result that still arrives for an older
// generation is dropped, so at most one poll task is ever active and a stale success cannot leak into a
// newer attempt.
//
// # Observers
//
// Front ends read [Poller.Snapshot] or [Poller.Subscribe] to a channel of snapshots. Sends are
// non-blocking, mirroring how long-running operations report progress elsewhere in qmc.
package login
