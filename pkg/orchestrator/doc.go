/*
Package orchestrator runs the registered rendering strategies for one request.

Strategies are tried strictly in registration order, each under its own timeout. The
first one whose bytes pass the image check wins and later strategies are never invoked.
When every strategy fails the caller receives a *domain.Failure holding exactly one
AttemptOutcome per registered strategy, in order.

The orchestrator holds no resources of its own: a strategy releases whatever it
acquired before Attempt returns, so two strategies of one invocation never overlap.
*/
package orchestrator
