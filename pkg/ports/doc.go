/*
Package ports defines the driven ports (interfaces) of tablecast.

These interfaces decouple the orchestrator from concrete integration surfaces and
infrastructure, so strategies, limiters and inbound adapters can be swapped or faked.

# Key Interfaces

  - Strategy: One way of turning a RenderRequest into image bytes.
  - SessionLimiter: Bounds how many heavy automation sessions may be open at once.
  - Renderer: What inbound adapters (HTTP, MCP, chat) need from the core.
*/
package ports
