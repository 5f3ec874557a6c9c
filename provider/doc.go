// Package provider defines the uniform call contract over external language
// model backends and the Adapter that owns retry, timeout and failover
// policy on top of it.
//
// Concrete backends (Anthropic, OpenAI) implement the Provider interface in
// sub-packages so higher layers stay decoupled from vendor SDKs; selection
// happens by configuration, never by subclassing.
package provider
