// Package harness runs scripted offline and optimistic-update scenarios
// against the full client on a fake clock.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: offline_toggle_replays
//	description: "A toggle made offline replays on reconnect"
//	online: false
//	steps:
//	  - op: toggle
//	    habit: 1
//	    date: "2024-01-15"
//	  - op: set_online
//	    online: true
//	  - op: advance
//	    duration: 500ms
//	assertions:
//	  - type: provisional
//	    habit: 1
//	    date: "2024-01-15"
//	    expect: false
//	  - type: queue_size
//	    count: 0
//
// # Step Ops
//
//   - toggle: propose a toggle (habit, date, current)
//   - complete: explicit completion write (habit, date, completed)
//   - bulk: bulk completion (habits, date)
//   - set_online: connectivity transition (online)
//   - advance: move the fake clock (duration)
//   - drain, retry_failed, clear_queue: queue operations
//   - fail_writes: the next count writes fail, as 409 Conflict if conflict is set
//   - cache_set: seed a cached status read (habit, date, completed)
//   - read_status: read status through the cache (habit, date)
//
// # Assertion Types
//
//   - display_value: ResolveDisplayValue(habit, date, confirmed) equals expect
//   - provisional: IsProvisional(habit, date) equals expect
//   - queue_size, failed_count: queue length and items with retries, equal count
//   - cache_miss: the cached status for (habit, date) is gone
//   - write_calls: number of writes the server received equals count
//   - server_state: the server's completion for (habit, date) equals expect
//
// # Deterministic Testing
//
// Every scenario gets a fresh client wired by app.Build over memory storage,
// a scripted backend, a FakeClock starting at 09:00 UTC on the scenario's
// today (default 2024-01-15), and queue ids q-1, q-2, ... Each step waits
// for background drains before the next one runs, so the trace of server
// calls and queue changes is identical across runs and can be compared
// against golden files.
package harness
