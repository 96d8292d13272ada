// Package model defines the call contract of the model providers that
// mayhem wraps: language models with one-shot and streaming generation,
// embedding, image, speech and transcription models, providers that hand
// out models by id, and tools a model may call.
//
// Nothing here talks to a real provider. Adapters in the provider package
// implement these interfaces around an existing model and forward every
// call through chaos.
package model
