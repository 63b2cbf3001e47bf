// Package bedrock implements the [ai.Provider] interface for Amazon Bedrock's
// Converse API, covering Anthropic, Meta, and other model families hosted on
// Bedrock through one request/response shape.
//
// It translates the generic [ai.ChatRequest] into a Converse input (splitting
// system, user, and assistant content into the blocks Converse expects),
// issues the request through the AWS SDK's bedrockruntime client, and maps
// the Converse output back into [ai.ChatResponse]. Structured output is
// requested through Bedrock's reserved "json" tool, since Converse has no
// native response_format.
//
// The primary entry point is [New], which accepts a pre-configured
// bedrockruntime client (callers own AWS credential/region resolution; this
// package does not read AWS environment variables itself).
package bedrock
