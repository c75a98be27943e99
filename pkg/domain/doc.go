/*
Package domain contains the core models shared by every tablecast component.

It defines what a render invocation carries in and what it hands back out, and the
error taxonomy strategies use to explain why they could not produce an image. This
package is kept pure and free of I/O so adapters, strategies and the orchestrator can
all depend on it.

# Key Entities

  - RenderRequest: The immutable, non-blank payload of one invocation.
  - Success / Failure: The two outcomes of a render. Failure implements error.
  - AttemptOutcome: One failed strategy attempt, in attempt order.
  - RenderError: The typed error strategies return, classified by ErrorKind.
  - LifecycleHooks: Callbacks for observing attempts (metrics, audit logs).
*/
package domain
